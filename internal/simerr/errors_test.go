package simerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "plain",
			err:  Validation("unknown block type %q", "glass"),
			want: `VALIDATION_ERROR: unknown block type "glass"`,
		},
		{
			name: "with position",
			err:  ValidationAt(cube.Pos{1, -2, 3}, "duplicate block in initial layout"),
			want: "VALIDATION_ERROR: duplicate block in initial layout (at 1,-2,3)",
		},
		{
			name: "with cause",
			err:  Parse(errors.New("unexpected EOF"), "request is not valid JSON"),
			want: "PARSE_ERROR: request is not valid JSON: unexpected EOF",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestValidationAt_CopiesPosition(t *testing.T) {
	pos := cube.Pos{4, 5, 6}
	err := ValidationAt(pos, "bad facing")
	pos[0] = 99

	require.NotNil(t, err.Pos)
	assert.Equal(t, cube.Pos{4, 5, 6}, *err.Pos)
}

func TestParse_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Parse(cause, "bad input")
	assert.ErrorIs(t, err, cause)
}

func TestCodeOf_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("decode: %w", Validation("ticks must be non-negative"))

	assert.Equal(t, CodeValidation, CodeOf(wrapped))
	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsParse(wrapped))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestUnsupportedEdition(t *testing.T) {
	err := UnsupportedEdition("legacy", []string{"bedrock", "java"})

	assert.True(t, IsUnsupportedEdition(err))
	assert.False(t, IsWarning(err))
	assert.Equal(t, `edition "legacy" is not supported (known: [bedrock java])`, err.Message)
	assert.Equal(t, "legacy", err.Details["edition"])
}

func TestUnknownVersion_IsWarning(t *testing.T) {
	err := UnknownVersion("java", "1.18", "1.16")

	assert.True(t, IsWarning(err))
	assert.Equal(t, map[string]string{
		"edition":   "java",
		"requested": "1.18",
		"resolved":  "1.16",
	}, err.Details)
	assert.Contains(t, err.Message, "nearest ruleset 1.16")
}
