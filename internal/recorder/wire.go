package recorder

import (
	"encoding/json"
	"fmt"

	"github.com/df-mc/dragonfly/server/block/cube"

	"github.com/roach88/redstonesim/internal/block"
)

// wireChange is the JSON shape of a change: position, type and the
// observable fields of that type only.
type wireChange struct {
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Z        int     `json:"z"`
	Type     string  `json:"type"`
	Facing   *string `json:"facing,omitempty"`
	Powered  *bool   `json:"powered,omitempty"`
	Pressed  *bool   `json:"pressed,omitempty"`
	Power    *int    `json:"power,omitempty"`
	On       *bool   `json:"on,omitempty"`
	Delay    *int    `json:"delay,omitempty"`
	Locked   *bool   `json:"locked,omitempty"`
	Mode     *string `json:"mode,omitempty"`
	Output   *int    `json:"output,omitempty"`
	Lit      *bool   `json:"lit,omitempty"`
	Extended *bool   `json:"extended,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty"`
}

func ptr[T any](v T) *T { return &v }

// MarshalJSON encodes the change with only the fields its kind exposes.
func (c Change) MarshalJSON() ([]byte, error) {
	s := c.State
	w := wireChange{X: c.Pos[0], Y: c.Pos[1], Z: c.Pos[2], Type: s.Kind.String()}
	if s.Kind.Directional() {
		w.Facing = ptr(block.FaceName(s.Facing))
	}
	switch s.Kind {
	case block.KindAir:
	case block.KindLever:
		w.Powered = ptr(s.Powered)
	case block.KindButton:
		w.Pressed = ptr(s.Pressed)
	case block.KindDust:
		w.Power = ptr(s.Power)
	case block.KindLamp:
		w.On = ptr(s.On)
	case block.KindRepeater:
		w.Delay = ptr(s.Delay)
		w.Powered = ptr(s.Powered)
		w.Locked = ptr(s.Locked)
	case block.KindComparator:
		w.Mode = ptr(s.Mode.String())
		w.Output = ptr(s.Output)
	case block.KindTorch:
		w.Lit = ptr(s.Lit)
	case block.KindPiston:
		w.Extended = ptr(s.Extended)
	case block.KindHopper:
		w.Enabled = ptr(s.Enabled)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a change written by MarshalJSON.
func (c *Change) UnmarshalJSON(data []byte) error {
	var w wireChange
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	kind, ok := block.ParseKind(w.Type)
	if !ok {
		return fmt.Errorf("unknown block type %q", w.Type)
	}

	s := block.Observable{Kind: kind}
	if w.Facing != nil {
		f, ok := block.ParseFace(*w.Facing)
		if !ok {
			return fmt.Errorf("unknown facing %q", *w.Facing)
		}
		s.Facing = f
	}
	if w.Mode != nil {
		m, ok := block.ParseMode(*w.Mode)
		if !ok {
			return fmt.Errorf("unknown comparator mode %q", *w.Mode)
		}
		s.Mode = m
	}
	s.Powered = deref(w.Powered)
	s.Pressed = deref(w.Pressed)
	s.Power = deref(w.Power)
	s.On = deref(w.On)
	s.Delay = deref(w.Delay)
	s.Locked = deref(w.Locked)
	s.Output = deref(w.Output)
	s.Lit = deref(w.Lit)
	s.Extended = deref(w.Extended)
	s.Enabled = deref(w.Enabled)

	*c = Change{Pos: cube.Pos{w.X, w.Y, w.Z}, State: s}
	return nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
