package block

import (
	"fmt"

	"github.com/df-mc/dragonfly/server/block/cube"
)

// MaxPower is the strongest signal level.
const MaxPower = 15

// Repeater delay bounds, in ticks.
const (
	MinDelay = 1
	MaxDelay = 4
)

// Kind identifies the behaviour of a block.
type Kind uint8

const (
	// KindAir is the absence of a block. It never lives in a World; edits use
	// it to remove the block at a position.
	KindAir Kind = iota
	KindLever
	KindButton
	KindDust
	KindLamp
	KindRepeater
	KindComparator
	KindTorch
	KindPiston
	KindHopper
)

var kindNames = [...]string{
	KindAir:        "air",
	KindLever:      "lever",
	KindButton:     "button",
	KindDust:       "dust",
	KindLamp:       "lamp",
	KindRepeater:   "repeater",
	KindComparator: "comparator",
	KindTorch:      "torch",
	KindPiston:     "piston",
	KindHopper:     "hopper",
}

// Kinds lists every placeable kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindLever, KindButton, KindDust, KindLamp, KindRepeater,
		KindComparator, KindTorch, KindPiston, KindHopper,
	}
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a wire name to a Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return KindAir, false
}

// Directional reports whether the kind carries a facing.
func (k Kind) Directional() bool {
	switch k {
	case KindLever, KindButton, KindRepeater, KindComparator, KindTorch, KindPiston, KindHopper:
		return true
	case KindAir, KindDust, KindLamp:
		return false
	}
	return false
}

// Consumer reports whether the kind has no outputs. Consumers are evaluated
// after every other block of a tick has been derived.
func (k Kind) Consumer() bool {
	switch k {
	case KindLamp, KindPiston, KindHopper:
		return true
	case KindAir, KindLever, KindButton, KindDust, KindRepeater, KindComparator, KindTorch:
		return false
	}
	return false
}

// Mode is the comparator operating mode.
type Mode uint8

const (
	ModeCompare Mode = iota
	ModeSubtract
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	if m == ModeSubtract {
		return "subtract"
	}
	return "compare"
}

// ParseMode maps a wire name to a Mode.
func ParseMode(name string) (Mode, bool) {
	switch name {
	case "compare":
		return ModeCompare, true
	case "subtract":
		return ModeSubtract, true
	}
	return ModeCompare, false
}

// Block is one placed block's kind, orientation and state.
//
// Field meaning depends on Kind:
//
//	Lever       Facing, Powered
//	Button      Facing, TicksRemaining (pressed while > 0)
//	Dust        Power
//	Lamp        On
//	Repeater    Facing, Delay, TicksRemaining (internal), Powered, Locked
//	Comparator  Facing, Mode, Output
//	Torch       Facing (toward attachment), Lit
//	Piston      Facing, Extended, Powered (internal: last seen input)
//	Hopper      Facing, Enabled
//
// Block is a value type; the scheduler copies it between buffers.
type Block struct {
	Kind   Kind
	Facing cube.Face

	Powered        bool
	TicksRemaining int
	Power          int
	On             bool
	Delay          int
	Locked         bool
	Output         int
	Mode           Mode
	Lit            bool
	Extended       bool
	Enabled        bool
}

// Placed is a block at a position. TickAt 0 means the initial layout; later
// ticks schedule an edit.
type Placed struct {
	Pos    cube.Pos
	Block  Block
	TickAt int
}

// Lever returns a lever mounted toward facing.
func Lever(facing cube.Face, powered bool) Block {
	return Block{Kind: KindLever, Facing: facing, Powered: powered}
}

// Button returns a button mounted toward facing, pressed for ticks ticks.
func Button(facing cube.Face, ticks int) Block {
	return Block{Kind: KindButton, Facing: facing, TicksRemaining: ticks}
}

// Dust returns a dust block with the given power.
func Dust(power int) Block {
	return Block{Kind: KindDust, Power: power}
}

// Lamp returns a lamp.
func Lamp(on bool) Block {
	return Block{Kind: KindLamp, On: on}
}

// Repeater returns an unpowered repeater with the given delay.
func Repeater(facing cube.Face, delay int) Block {
	return Block{Kind: KindRepeater, Facing: facing, Delay: delay}
}

// Comparator returns a comparator with zero output.
func Comparator(facing cube.Face, mode Mode) Block {
	return Block{Kind: KindComparator, Facing: facing, Mode: mode}
}

// Torch returns a torch attached toward facing.
func Torch(facing cube.Face, lit bool) Block {
	return Block{Kind: KindTorch, Facing: facing, Lit: lit}
}

// Piston returns a piston pushing toward facing.
func Piston(facing cube.Face, extended bool) Block {
	return Block{Kind: KindPiston, Facing: facing, Extended: extended}
}

// Hopper returns a hopper whose spout points toward facing.
func Hopper(facing cube.Face, enabled bool) Block {
	return Block{Kind: KindHopper, Facing: facing, Enabled: enabled}
}

// Air returns the removal marker used by edits.
func Air() Block {
	return Block{Kind: KindAir}
}

// Level returns the signal strength the block emits through its outputs.
func (b Block) Level() int {
	switch b.Kind {
	case KindLever:
		if b.Powered {
			return MaxPower
		}
	case KindButton:
		if b.TicksRemaining > 0 {
			return MaxPower
		}
	case KindDust:
		return b.Power
	case KindRepeater:
		if b.Powered {
			return MaxPower
		}
	case KindComparator:
		return b.Output
	case KindTorch:
		if b.Lit {
			return MaxPower
		}
	case KindAir, KindLamp, KindPiston, KindHopper:
		return 0
	}
	return 0
}

// Validate checks the per-kind invariants. The returned error is a plain
// description; callers attach position and error kind.
func (b Block) Validate() error {
	if b.Kind.Directional() && (b.Facing < cube.FaceDown || b.Facing > cube.FaceEast) {
		return fmt.Errorf("%s has invalid facing %d", b.Kind, b.Facing)
	}
	switch b.Kind {
	case KindAir, KindLever, KindLamp, KindTorch, KindPiston, KindHopper:
		return nil
	case KindButton:
		if b.TicksRemaining < 0 {
			return fmt.Errorf("button ticks_remaining %d must be >= 0", b.TicksRemaining)
		}
	case KindDust:
		if b.Power < 0 || b.Power > MaxPower {
			return fmt.Errorf("dust power %d out of range 0..%d", b.Power, MaxPower)
		}
	case KindRepeater:
		if !Horizontal(b.Facing) {
			return fmt.Errorf("repeater facing %s must be horizontal", FaceName(b.Facing))
		}
		if b.Delay < MinDelay || b.Delay > MaxDelay {
			return fmt.Errorf("repeater delay %d out of range %d..%d", b.Delay, MinDelay, MaxDelay)
		}
		if b.TicksRemaining < 0 || b.TicksRemaining >= b.Delay {
			return fmt.Errorf("repeater ticks_remaining %d out of range 0..%d", b.TicksRemaining, b.Delay-1)
		}
	case KindComparator:
		if !Horizontal(b.Facing) {
			return fmt.Errorf("comparator facing %s must be horizontal", FaceName(b.Facing))
		}
		if b.Output < 0 || b.Output > MaxPower {
			return fmt.Errorf("comparator output %d out of range 0..%d", b.Output, MaxPower)
		}
	default:
		return fmt.Errorf("unknown block kind %d", b.Kind)
	}
	return nil
}
