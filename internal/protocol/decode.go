package protocol

import (
	"encoding/json"
	"slices"

	"github.com/df-mc/dragonfly/server/block/cube"

	"github.com/roach88/redstonesim/internal/block"
	"github.com/roach88/redstonesim/internal/sim"
	"github.com/roach88/redstonesim/internal/simerr"
)

// DefaultButtonTicks is the press duration of a button given as
// "pressed": true without ticks_remaining.
const DefaultButtonTicks = 10

// DecodeSimulate parses and validates a simulate request document.
func DecodeSimulate(raw []byte) (sim.Request, error) {
	if err := validate(DefSimulateRequest, raw); err != nil {
		return sim.Request{}, err
	}
	var wire SimulateRequest
	if err := json.Unmarshal(raw, &wire); err != nil {
		return sim.Request{}, simerr.Parse(err, "decoding simulate request")
	}
	return wire.Request()
}

// Request converts the wire document to a facade request.
func (r SimulateRequest) Request() (sim.Request, error) {
	req := sim.Request{
		Ticks:     r.Ticks,
		EarlyExit: true,
		Blocks:    make([]block.Placed, 0, len(r.World.Blocks)),
	}
	if r.EarlyExit != nil {
		req.EarlyExit = *r.EarlyExit
	}
	if r.Simulation != nil {
		req.Edition = r.Simulation.Edition
		req.Version = r.Simulation.Version
	}
	for _, bj := range r.World.Blocks {
		p, err := bj.Placed()
		if err != nil {
			return sim.Request{}, err
		}
		req.Blocks = append(req.Blocks, p)
	}
	return req, nil
}

// DecodeConnections parses and validates a connections request document.
func DecodeConnections(raw []byte) (block.Placed, Simulation, error) {
	if err := validate(DefConnectionsRequest, raw); err != nil {
		return block.Placed{}, Simulation{}, err
	}
	var wire ConnectionsRequest
	if err := json.Unmarshal(raw, &wire); err != nil {
		return block.Placed{}, Simulation{}, simerr.Parse(err, "decoding connections request")
	}
	p, err := wire.Placed()
	if err != nil {
		return block.Placed{}, Simulation{}, err
	}
	var s Simulation
	if wire.Simulation != nil {
		s = *wire.Simulation
	}
	return p, s, nil
}

// kindFields lists the optional fields each kind accepts besides the
// position, type and tick_at.
var kindFields = map[block.Kind][]string{
	block.KindAir:        nil,
	block.KindLever:      {"facing", "powered", "on"},
	block.KindButton:     {"facing", "pressed", "ticks_remaining"},
	block.KindDust:       {"power"},
	block.KindLamp:       {"on"},
	block.KindRepeater:   {"facing", "delay", "powered", "locked", "ticks_remaining"},
	block.KindComparator: {"facing", "mode", "output"},
	block.KindTorch:      {"facing", "lit"},
	block.KindPiston:     {"facing", "extended"},
	block.KindHopper:     {"facing", "enabled"},
}

// Placed converts the wire block to a placed block. Unknown types, unknown
// facings and fields that do not belong to the type are ValidationErrors.
// Range checks are left to block.Validate.
func (bj BlockJSON) Placed() (block.Placed, error) {
	pos := cube.Pos{bj.X, bj.Y, bj.Z}
	kind, ok := block.ParseKind(bj.Type)
	if !ok {
		return block.Placed{}, simerr.ValidationAt(pos, "unknown block type %q", bj.Type)
	}
	allowed := kindFields[kind]
	for _, f := range bj.present() {
		if !slices.Contains(allowed, f) {
			return block.Placed{}, simerr.ValidationAt(pos, "field %q is not valid for %s", f, kind)
		}
	}

	b := block.Block{Kind: kind}
	if kind.Directional() {
		f, err := bj.facing(pos, kind)
		if err != nil {
			return block.Placed{}, err
		}
		b.Facing = f
	}

	switch kind {
	case block.KindAir:
	case block.KindLever:
		if bj.Powered != nil && bj.On != nil && *bj.Powered != *bj.On {
			return block.Placed{}, simerr.ValidationAt(pos, "lever powered and on disagree")
		}
		b.Powered = orDefault(bj.Powered, orDefault(bj.On, false))
	case block.KindButton:
		b.TicksRemaining = orDefault(bj.TicksRemaining, 0)
		if bj.TicksRemaining == nil && orDefault(bj.Pressed, false) {
			b.TicksRemaining = DefaultButtonTicks
		}
	case block.KindDust:
		b.Power = orDefault(bj.Power, 0)
	case block.KindLamp:
		b.On = orDefault(bj.On, false)
	case block.KindRepeater:
		b.Delay = orDefault(bj.Delay, block.MinDelay)
		b.Powered = orDefault(bj.Powered, false)
		b.Locked = orDefault(bj.Locked, false)
		b.TicksRemaining = orDefault(bj.TicksRemaining, 0)
	case block.KindComparator:
		b.Mode = block.ModeCompare
		if bj.Mode != nil {
			m, ok := block.ParseMode(*bj.Mode)
			if !ok {
				return block.Placed{}, simerr.ValidationAt(pos, "unknown comparator mode %q", *bj.Mode)
			}
			b.Mode = m
		}
		b.Output = orDefault(bj.Output, 0)
	case block.KindTorch:
		b.Lit = orDefault(bj.Lit, false)
	case block.KindPiston:
		b.Extended = orDefault(bj.Extended, false)
	case block.KindHopper:
		b.Enabled = orDefault(bj.Enabled, false)
	}

	return block.Placed{Pos: pos, Block: b, TickAt: orDefault(bj.TickAt, 0)}, nil
}

// facing resolves the facing field. Torches and hoppers default to down;
// every other directional kind requires it.
func (bj BlockJSON) facing(pos cube.Pos, kind block.Kind) (cube.Face, error) {
	if bj.Facing == nil {
		switch kind {
		case block.KindTorch, block.KindHopper:
			return cube.FaceDown, nil
		default:
			return 0, simerr.ValidationAt(pos, "%s requires a facing", kind)
		}
	}
	f, ok := block.ParseFace(*bj.Facing)
	if !ok {
		return 0, simerr.ValidationAt(pos, "invalid facing %q", *bj.Facing)
	}
	return f, nil
}

// present returns the names of the optional kind fields that are set.
func (bj BlockJSON) present() []string {
	var out []string
	add := func(name string, set bool) {
		if set {
			out = append(out, name)
		}
	}
	add("facing", bj.Facing != nil)
	add("powered", bj.Powered != nil)
	add("pressed", bj.Pressed != nil)
	add("ticks_remaining", bj.TicksRemaining != nil)
	add("power", bj.Power != nil)
	add("on", bj.On != nil)
	add("delay", bj.Delay != nil)
	add("locked", bj.Locked != nil)
	add("output", bj.Output != nil)
	add("mode", bj.Mode != nil)
	add("lit", bj.Lit != nil)
	add("extended", bj.Extended != nil)
	add("enabled", bj.Enabled != nil)
	return out
}

func orDefault[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// EncodeBlock is the inverse of BlockJSON.Placed for blocks it produced.
// Every field the kind accepts is written explicitly.
func EncodeBlock(p block.Placed) BlockJSON {
	b := p.Block
	bj := BlockJSON{X: p.Pos[0], Y: p.Pos[1], Z: p.Pos[2], Type: b.Kind.String()}
	if b.Kind.Directional() {
		bj.Facing = ptr(block.FaceName(b.Facing))
	}
	if p.TickAt != 0 {
		bj.TickAt = ptr(p.TickAt)
	}
	switch b.Kind {
	case block.KindAir:
	case block.KindLever:
		bj.Powered = ptr(b.Powered)
	case block.KindButton:
		bj.TicksRemaining = ptr(b.TicksRemaining)
	case block.KindDust:
		bj.Power = ptr(b.Power)
	case block.KindLamp:
		bj.On = ptr(b.On)
	case block.KindRepeater:
		bj.Delay = ptr(b.Delay)
		bj.Powered = ptr(b.Powered)
		bj.Locked = ptr(b.Locked)
		bj.TicksRemaining = ptr(b.TicksRemaining)
	case block.KindComparator:
		bj.Mode = ptr(b.Mode.String())
		bj.Output = ptr(b.Output)
	case block.KindTorch:
		bj.Lit = ptr(b.Lit)
	case block.KindPiston:
		bj.Extended = ptr(b.Extended)
	case block.KindHopper:
		bj.Enabled = ptr(b.Enabled)
	}
	return bj
}

// EncodeRequest renders a facade request as a wire document.
func EncodeRequest(req sim.Request) SimulateRequest {
	out := SimulateRequest{
		Ticks:     req.Ticks,
		EarlyExit: ptr(req.EarlyExit),
		World:     WorldJSON{Blocks: make([]BlockJSON, 0, len(req.Blocks))},
	}
	if req.Edition != "" || req.Version != "" {
		out.Simulation = &Simulation{Edition: req.Edition, Version: req.Version}
	}
	for _, p := range req.Blocks {
		out.World.Blocks = append(out.World.Blocks, EncodeBlock(p))
	}
	return out
}

func ptr[T any](v T) *T { return &v }
