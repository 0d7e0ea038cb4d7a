package cli

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/redstonesim/internal/store"
)

// startServe runs the serve command on a loopback listener until the test
// cancels it. The returned channel yields the command's error.
func startServe(t *testing.T, opts *ServeOptions) (string, context.CancelFunc, <-chan error, *bytes.Buffer) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	opts.Listener = ln
	if opts.MaxBody == 0 {
		opts.MaxBody = 1 << 20
	}
	if opts.Workers == 0 {
		opts.Workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := &bytes.Buffer{}
	cmd := NewServeCommand(opts.RootOptions)
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() { done <- runServe(opts, cmd) }()

	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	return base, cancel, done, out
}

func waitStopped(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancel")
		return nil
	}
}

func TestServe_HealthAndShutdown(t *testing.T) {
	base, cancel, done, out := startServe(t, &ServeOptions{RootOptions: &RootOptions{Format: "text"}})

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	require.NoError(t, waitStopped(t, done))
	assert.Contains(t, out.String(), "Listening on "+strings.TrimPrefix(base, "http://"))
}

func TestServe_JournalsSimulateCalls(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	base, cancel, done, _ := startServe(t, &ServeOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    dbPath,
	})

	resp, err := http.Post(base+"/v1/simulate", "application/json", strings.NewReader(leverDustLamp))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	runID := resp.Header.Get("X-Run-Id")
	require.NotEmpty(t, runID)

	cancel()
	require.NoError(t, waitStopped(t, done))

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	run, err := st.ReadRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, "settled", run.Terminated)
	assert.Equal(t, expectedDigest(t, leverDustLamp), run.DiffDigest)
}

func TestServe_BadRulesFile(t *testing.T) {
	rules := writeFile(t, t.TempDir(), "rules.yaml", "editions: {}\n")

	_, err := execute(NewServeCommand(&RootOptions{Format: "text"}), "--rules", rules)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
