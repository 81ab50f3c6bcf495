package main

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{"resourceMetrics":[{"resource":{"attributes":[{"key":"service.name","value":{"stringValue":"claude-code"}}]},
"scopeMetrics":[{"metrics":[{"name":"claude_code.token.usage","sum":{"dataPoints":[
{"asInt":"150","timeUnixNano":"1700000000000000000","attributes":[
{"key":"user.email","value":{"stringValue":"alice@example.com"}},
{"key":"type","value":{"stringValue":"input"}}]}]}}]}]}]}`

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SINK", "console")
	t.Setenv("METRICS_NAMESPACE", "TestMetrics")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("INCLUDE_SERVICE_NAME", "")
	t.Setenv("EXTRA_DIMENSIONS", "")
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTranslateCommand(t *testing.T) {
	setTestEnv(t)
	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte(samplePayload), 0o600))

	out, err := execute(t, "", "translate", path)
	require.NoError(t, err)

	assert.Contains(t, out, "TestMetrics")
	assert.Contains(t, out, "TokenUsage")
	assert.Contains(t, out, "TokenType=input")
	assert.Contains(t, out, `{"accepted":1}`)
}

func TestTranslateCommand_Base64Stdin(t *testing.T) {
	setTestEnv(t)
	encoded := base64.StdEncoding.EncodeToString([]byte(samplePayload))

	out, err := execute(t, encoded, "translate", "--base64", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `{"accepted":1}`)
}

func TestTranslateCommand_InvalidInput(t *testing.T) {
	setTestEnv(t)

	out, err := execute(t, "not json", "translate", "-")
	require.Error(t, err)
	assert.Contains(t, out, `{"error":"Invalid JSON"}`)

	_, err = execute(t, "", "translate", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	_, err = execute(t, "", "translate")
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "claude-code-metrics "), "got %q", out)
}

func TestRootCommand_PrintsHelpOutsideLambda(t *testing.T) {
	t.Setenv(lambdaRuntimeEnv, "")

	out, err := execute(t, "")
	require.NoError(t, err)
	assert.Contains(t, out, "METRICS_NAMESPACE")
	assert.Contains(t, out, "translate")
}

func TestPruneCommand(t *testing.T) {
	setTestEnv(t)
	dbPath := filepath.Join(t.TempDir(), "metrics.db")
	t.Setenv("DATABASE_PATH", dbPath)

	out, err := execute(t, "", "prune", "--days", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 0 batches older than 7 days")
	assert.Contains(t, out, dbPath)
}
