package block

import (
	"github.com/df-mc/dragonfly/server/block/cube"
)

// Observable is the publicly visible projection of a Block. Fields that the
// kind does not expose are zero, so two projections compare with ==.
type Observable struct {
	Kind   Kind
	Facing cube.Face

	Powered  bool
	Pressed  bool
	Power    int
	On       bool
	Delay    int
	Locked   bool
	Output   int
	Mode     Mode
	Lit      bool
	Extended bool
	Enabled  bool
}

// Observe projects b onto its observable fields. Internal counters such as the
// repeater countdown and the piston's last seen input are dropped.
func (b Block) Observe() Observable {
	o := Observable{Kind: b.Kind}
	if b.Kind.Directional() {
		o.Facing = b.Facing
	}
	switch b.Kind {
	case KindAir:
	case KindLever:
		o.Powered = b.Powered
	case KindButton:
		o.Pressed = b.TicksRemaining > 0
	case KindDust:
		o.Power = b.Power
	case KindLamp:
		o.On = b.On
	case KindRepeater:
		o.Delay = b.Delay
		o.Powered = b.Powered
		o.Locked = b.Locked
	case KindComparator:
		o.Mode = b.Mode
		o.Output = b.Output
	case KindTorch:
		o.Lit = b.Lit
	case KindPiston:
		o.Extended = b.Extended
	case KindHopper:
		o.Enabled = b.Enabled
	}
	return o
}
