package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// leverDustLamp switches a lever on at tick 2; dust and lamp follow at
// tick 3 and the circuit settles at tick 4.
const leverDustLamp = `{
	"ticks": 5,
	"world": {"blocks": [
		{"x": 0, "y": 0, "z": -1, "type": "lamp"},
		{"x": 0, "y": 0, "z": 0, "type": "dust"},
		{"x": 0, "y": 0, "z": 1, "type": "lever", "facing": "north"},
		{"x": 0, "y": 0, "z": 1, "type": "lever", "facing": "north", "powered": true, "tick_at": 2}
	]},
	"simulation": {"edition": "java", "version": "1.21"}
}`

const duplicateBlock = `{
	"ticks": 1,
	"world": {"blocks": [
		{"x": 1, "y": 0, "z": 0, "type": "lamp"},
		{"x": 1, "y": 0, "z": 0, "type": "dust"}
	]}
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns what it wrote to stdout. Logs go
// to a separate buffer so they never mix with command output.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decodeResponse decodes a JSON CLIResponse whose data has type T.
func decodeResponse[T any](t *testing.T, out string) (CLIResponse, T) {
	t.Helper()
	var resp struct {
		CLIResponse
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp.CLIResponse, resp.Data
}
