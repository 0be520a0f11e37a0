package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/contractsig/auth"
)

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "contractsig.yaml")
	body := fmt.Sprintf("mirror:\n  driver: sqlite\n  path: %s\n%s", filepath.Join(dir, "mirror.db"), extra)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "contractsig", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "state", "can-edit", "sign", "unsign", "token"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	cfg := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, cfg)
	assert.Equal(t, "c", cfg.Shorthand)
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "state", "c1", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestStateCommand(t *testing.T) {
	path := writeConfig(t, "")

	out, _, err := execute(t, "--config", path, "--format", "json", "state", "c1")
	require.NoError(t, err)
	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "remote", data["source"])
	assert.Equal(t, false, data["has_designer_signature"])

	out, _, err = execute(t, "--config", path, "state", "c1")
	require.NoError(t, err)
	assert.Contains(t, out, "designer:  unsigned")
	assert.Contains(t, out, "source:    remote")
}

func TestCanEditCommand(t *testing.T) {
	path := writeConfig(t, "")

	out, _, err := execute(t, "--config", path, "can-edit", "c1")
	require.NoError(t, err)
	assert.Equal(t, "editable\n", out)
}

func TestSignCommand(t *testing.T) {
	path := writeConfig(t, "")

	out, _, err := execute(t, "--config", path, "--format", "json", "sign", "c1", "designer", "--payload", `{"image":"x"}`)
	require.NoError(t, err)
	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "signed", resp.Data.(map[string]any)["action"])

	payloadFile := filepath.Join(t.TempDir(), "sig.json")
	require.NoError(t, os.WriteFile(payloadFile, []byte(`{"image":"y"}`), 0o600))
	out, _, err = execute(t, "--config", path, "sign", "c1", "client", "--payload-file", payloadFile)
	require.NoError(t, err)
	assert.Equal(t, "signed client for c1\n", out)

	out, _, err = execute(t, "--config", path, "unsign", "c1", "client")
	require.NoError(t, err)
	assert.Equal(t, "unsigned client for c1\n", out)
}

func TestSignCommand_Errors(t *testing.T) {
	path := writeConfig(t, "")

	tests := []struct {
		name string
		args []string
	}{
		{"unknown role", []string{"sign", "c1", "notary", "--payload", "1"}},
		{"bad payload", []string{"sign", "c1", "client", "--payload", "{not json"}},
		{"null payload", []string{"sign", "c1", "designer", "--payload", "null"}},
		{"missing payload file", []string{"sign", "c1", "client", "--payload-file", "/does/not/exist"}},
		{"unsign unknown role", []string{"unsign", "c1", "notary"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, append([]string{"--config", path, "--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.True(t, IsReported(err))
			resp := decodeResponse(t, out)
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, ErrCodeArgument, resp.Error.Code)
		})
	}
}

func TestConfigError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nope: 1\n"), 0o600))

	out, _, err := execute(t, "--config", path, "state", "c1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeConfig)
}

func TestTokenCommand(t *testing.T) {
	secret := strings.Repeat("s", 32)
	path := writeConfig(t, fmt.Sprintf("auth:\n  secret: %s\n  jwt:\n    issuer: contractsig\n", secret))

	out, _, err := execute(t, "--config", path, "token", "ada@example.com", "--role", "designer", "--ttl", "10m")
	require.NoError(t, err)

	a, err := auth.NewJWTAuthenticator(auth.JWTConfig{Issuer: "contractsig"}, []byte(secret))
	require.NoError(t, err)
	id, err := a.Authenticate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", id.Principal)
	assert.True(t, id.HasRole("designer"))
}

func TestTokenCommand_NoSecret(t *testing.T) {
	path := writeConfig(t, "")

	_, _, err := execute(t, "--config", path, "token", "ada")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestServe(t *testing.T) {
	path := writeConfig(t, "")

	cmd := NewRootCommand()
	var stderr bytes.Buffer
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&stderr)

	addrCh := make(chan string, 1)
	opts := &ServeOptions{
		RootOptions: &RootOptions{ConfigPath: path, Format: "text"},
		Addr:        "127.0.0.1:0",
		ready:       func(addr string) { addrCh <- addr },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, opts, cmd) }()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + addr + "/v1/contracts/c1/edit-gate")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Contains(t, stderr.String(), `"msg":"listening"`)
}

func TestOutputFormatter(t *testing.T) {
	var out, errOut bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &out, ErrWriter: &errOut, Verbose: true}

	require.NoError(t, f.Success(map[string]int{"a": 1}, ""))
	assert.Equal(t, "map[a:1]\n", out.String())

	f.VerboseLog("hello %s", "world")
	assert.Equal(t, "hello world\n", errOut.String())

	out.Reset()
	err := f.Fail(ExitFailure, ErrCodeRemote, fmt.Errorf("boom"))
	assert.Equal(t, "Error [E003]: boom\n", out.String())
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
}
