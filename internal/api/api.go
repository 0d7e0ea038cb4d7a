// Package api is the JSON-in/JSON-out binding over the two facade
// operations. It holds no simulation logic: every call decodes a request
// document, invokes sim, and encodes the response document.
//
// Failed calls still return a document (the error envelope) together with
// the error, so foreign callers always receive JSON.
package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/redstonesim/internal/protocol"
	"github.com/roach88/redstonesim/internal/quirks"
	"github.com/roach88/redstonesim/internal/sim"
)

// Service binds the facade to a ruleset table and run options.
type Service struct {
	rules *quirks.Table
	opts  []sim.Option
}

// New creates a service. A nil table selects the embedded rulesets.
func New(rules *quirks.Table, opts ...sim.Option) *Service {
	if rules == nil {
		rules = quirks.Default()
	}
	return &Service{rules: rules, opts: opts}
}

// Rules returns the ruleset table the service resolves policies from.
func (s *Service) Rules() *quirks.Table {
	return s.rules
}

// Run decodes raw and simulates it. The decoded request is returned
// alongside the result so callers can journal it.
func (s *Service) Run(ctx context.Context, raw []byte, opts ...sim.Option) (sim.Request, *sim.Result, error) {
	req, err := protocol.DecodeSimulate(raw)
	if err != nil {
		return sim.Request{}, nil, err
	}
	res, err := s.RunRequest(ctx, req, opts...)
	return req, res, err
}

// RunRequest simulates an already decoded request.
func (s *Service) RunRequest(ctx context.Context, req sim.Request, opts ...sim.Option) (*sim.Result, error) {
	all := make([]sim.Option, 0, len(s.opts)+len(opts)+1)
	all = append(all, sim.WithRules(s.rules))
	all = append(all, s.opts...)
	all = append(all, opts...)
	return sim.Simulate(ctx, req, all...)
}

// Simulate is the JSON-in/JSON-out simulate operation.
func (s *Service) Simulate(ctx context.Context, raw []byte, opts ...sim.Option) ([]byte, error) {
	_, res, err := s.Run(ctx, raw, opts...)
	if err != nil {
		return errorDocument(err), err
	}
	return encode(protocol.NewSimulateResponse(res))
}

// Connections is the JSON-in/JSON-out connections operation.
func (s *Service) Connections(raw []byte) ([]byte, error) {
	p, sel, err := protocol.DecodeConnections(raw)
	if err != nil {
		return errorDocument(err), err
	}
	policy, _, err := s.rules.Resolve(sel.Edition, sel.Version)
	if err != nil {
		return errorDocument(err), err
	}
	c, err := sim.Connections(p.Pos, p.Block, policy)
	if err != nil {
		return errorDocument(err), err
	}
	return encode(protocol.NewConnectionsResponse(c))
}

func encode(v any) ([]byte, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	return out, nil
}

func errorDocument(err error) []byte {
	out, mErr := json.Marshal(protocol.NewErrorResponse(err))
	if mErr != nil {
		return []byte(`{"error":{"code":"INTERNAL_ERROR","message":"unencodable error"}}`)
	}
	return out
}

// Simulate runs the JSON-in/JSON-out simulate operation with the embedded
// rulesets.
func Simulate(ctx context.Context, raw []byte, opts ...sim.Option) ([]byte, error) {
	return New(nil).Simulate(ctx, raw, opts...)
}

// Connections runs the JSON-in/JSON-out connections operation with the
// embedded rulesets.
func Connections(raw []byte) ([]byte, error) {
	return New(nil).Connections(raw)
}
