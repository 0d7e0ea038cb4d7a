package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalRequest = `
request:
  ticks: 2
  world:
    blocks:
      - {x: 0, y: 0, z: 0, type: lamp}
`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "test.yaml", `
name: test_scenario
description: "Test scenario for validation"
`+minimalRequest+`
expect:
  terminated: settled
  ticks_simulated: 1
assertions:
  - type: state
    tick: 1
    at: [0, 0, 0]
    expect: {on: false}
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, 2, scenario.Request["ticks"])
	require.NotNil(t, scenario.Expect)
	assert.Equal(t, "settled", scenario.Expect.Terminated)
	require.NotNil(t, scenario.Expect.TicksSimulated)
	assert.Equal(t, 1, *scenario.Expect.TicksSimulated)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertState, scenario.Assertions[0].Type)
	assert.Equal(t, [3]int{0, 0, 0}, [3]int(scenario.Assertions[0].Pos()))
	assert.Equal(t, false, scenario.Assertions[0].Expect["on"])
}

func TestLoadScenario_RequestFileRelativeToScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "requests"), 0755))
	reqPath := filepath.Join(dir, "requests", "lamp.json")
	require.NoError(t, os.WriteFile(reqPath, []byte(`{"ticks": 1, "world": {"blocks": []}}`), 0644))

	path := writeScenario(t, dir, "test.yaml", `
name: from_file
description: request loaded from a JSON document
request_file: requests/lamp.json
expect:
  terminated: settled
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, reqPath, scenario.RequestFile)

	raw, err := scenario.RequestJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"ticks": 1, "world": {"blocks": []}}`, string(raw))
}

func TestLoadScenario_InlineRequestJSON(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "test.yaml", `
name: inline
description: inline request
`+minimalRequest+`
expect:
  terminated: settled
`)
	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	raw, err := scenario.RequestJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"ticks": 2, "world": {"blocks": [{"x": 0, "y": 0, "z": 0, "type": "lamp"}]}}`, string(raw))
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "test.yaml", `
name: typo
description: misspelled section
`+minimalRequest+`
assertion:
  - type: change_count
    count: 0
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: no name
` + minimalRequest + `
expect: {terminated: settled}
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: x
` + minimalRequest + `
expect: {terminated: settled}
`,
			wantErr: "description is required",
		},
		{
			name: "missing request",
			content: `
name: x
description: no request
expect: {terminated: settled}
`,
			wantErr: "one of request or request_file is required",
		},
		{
			name: "both request kinds",
			content: `
name: x
description: two requests
request_file: /dev/null
` + minimalRequest + `
expect: {terminated: settled}
`,
			wantErr: "mutually exclusive",
		},
		{
			name: "missing request file",
			content: `
name: x
description: dangling file
request_file: missing.json
expect: {terminated: settled}
`,
			wantErr: "request file not found",
		},
		{
			name: "nothing to check",
			content: `
name: x
description: no checks
` + minimalRequest,
			wantErr: "expect or assertions is required",
		},
		{
			name: "bad terminated",
			content: `
name: x
description: bad state
` + minimalRequest + `
expect: {terminated: running}
`,
			wantErr: "expect.terminated",
		},
		{
			name: "error with assertions",
			content: `
name: x
description: error and assertions
` + minimalRequest + `
expect: {error: VALIDATION_ERROR}
assertions:
  - type: change_count
    count: 0
`,
			wantErr: "expect.error cannot be combined",
		},
		{
			name: "state without position",
			content: `
name: x
description: no position
` + minimalRequest + `
assertions:
  - type: state
    tick: 1
    expect: {on: true}
`,
			wantErr: "at must be [x, y, z]",
		},
		{
			name: "state without fields",
			content: `
name: x
description: no fields
` + minimalRequest + `
assertions:
  - type: state
    at: [0, 0, 0]
`,
			wantErr: "expect is required for state",
		},
		{
			name: "changed at tick zero",
			content: `
name: x
description: tick zero
` + minimalRequest + `
assertions:
  - type: changed
    at: [0, 0, 0]
`,
			wantErr: "tick must be >= 1",
		},
		{
			name: "change_count without count",
			content: `
name: x
description: no count
` + minimalRequest + `
assertions:
  - type: change_count
`,
			wantErr: "count is required",
		},
		{
			name: "unknown assertion",
			content: `
name: x
description: unknown type
` + minimalRequest + `
assertions:
  - type: trace_contains
`,
			wantErr: "unknown assertion type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, t.TempDir(), "test.yaml", tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	for _, name := range []string{"b.yaml", "a.yml", "nested/c.yaml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	files, err := FindScenarios(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "nested", "c.yaml"),
	}, files)

	files, err = FindScenarios(dir, "b*")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.yaml")}, files)
}

func TestFindScenarios_InvalidFilter(t *testing.T) {
	_, err := FindScenarios(t.TempDir(), "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}
