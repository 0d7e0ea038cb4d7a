package protocol

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/roach88/redstonesim/internal/simerr"
)

//go:embed schema.cue
var schemaSource string

// Schema definitions checked by Validator.
const (
	DefSimulateRequest    = "#SimulateRequest"
	DefConnectionsRequest = "#ConnectionsRequest"
)

// Validator checks raw request documents against the embedded CUE schema.
// CUE values are not safe for concurrent use, so calls are serialised.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling request schema: %w", err)
	}
	return &Validator{ctx: ctx, schema: schema}, nil
}

var defaultValidator = sync.OnceValues(NewValidator)

// Validate checks that raw is a JSON document matching definition def.
// Malformed JSON and structural mismatches are ParseErrors.
func (v *Validator) Validate(def string, raw []byte) error {
	expr, err := cuejson.Extract("request.json", raw)
	if err != nil {
		return simerr.Parse(err, "malformed JSON: %s", firstCUEError(err))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	schema := v.schema.LookupPath(cue.ParsePath(def))
	if !schema.Exists() {
		return fmt.Errorf("schema definition %s not found", def)
	}
	doc := v.ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return simerr.Parse(err, "malformed JSON: %s", firstCUEError(err))
	}
	if err := schema.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return simerr.Parse(err, "%s", firstCUEError(err))
	}
	return nil
}

func validate(def string, raw []byte) error {
	v, err := defaultValidator()
	if err != nil {
		return err
	}
	return v.Validate(def, raw)
}

// firstCUEError reduces a CUE error list to its first entry, which carries
// the offending path.
func firstCUEError(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	return errs[0].Error()
}
