package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogo/zai/internal/bridge"
	apierrors "github.com/diogo/zai/internal/errors"
	"github.com/diogo/zai/internal/models"
)

func TestRootCommand_Metadata(t *testing.T) {
	cmd := NewRootCmd(newTestEnv(t).deps)
	assert.Equal(t, "zai [query]", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := make([]string, 0)
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"chat", "engines", "config", "history"})
}

func TestRootCommand_Version(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.run("--version"))
	assert.Contains(t, env.stdout.String(), "zai "+Version)
}

func TestRootCommand_NoInputShowsHelp(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.run())
	assert.Contains(t, env.stdout.String(), "zai [query]")
}

func TestRootCommand_TooManyArgs(t *testing.T) {
	env := newTestEnv(t)
	assert.Error(t, env.run("a", "b"))
}

func TestQuery_BridgeResponse(t *testing.T) {
	env := newTestEnv(t)
	env.bridge = bridge.NewStaticMock("Hi there")

	require.NoError(t, env.run("Hello"))

	assert.Equal(t, "Hi there\n", env.stdout.String())
	assert.Equal(t, []bridge.Call{{Query: "Hello", Engine: "default"}}, env.bridge.Calls())

	convs, err := env.store.ListConversations()
	require.NoError(t, err)
	require.Len(t, convs, 1)
	require.Len(t, convs[0].Messages, 2)
	assert.Equal(t, "Hello", convs[0].Messages[0].Content)
	assert.Equal(t, "Hi there", convs[0].Messages[1].Content)

	assert.Equal(t, 1, env.logs.FilterMessage("exchange resolved").Len())
}

func TestQuery_EngineAndBridgeFlags(t *testing.T) {
	env := newTestEnv(t)
	env.bridge = bridge.NewStaticMock("ok")

	require.NoError(t, env.run("-e", "mixtral-8x7b", "--bridge", "ws://localhost:9000", "q"))

	assert.Equal(t, "mixtral-8x7b", env.bridge.Calls()[0].Engine)
	require.Len(t, env.bridgeCfgs, 1)
	assert.Equal(t, "ws://localhost:9000", env.bridgeCfgs[0].Bridge.URL)
}

func TestQuery_UnknownEngineIsAccepted(t *testing.T) {
	env := newTestEnv(t)
	env.bridge = bridge.NewStaticMock("ok")

	require.NoError(t, env.run("-e", "custom-engine", "q"))
	assert.Equal(t, "custom-engine", env.bridge.Calls()[0].Engine)
}

func TestQuery_NoBridgeExitsWithDiagnostic(t *testing.T) {
	env := newTestEnv(t)

	err := env.run("Test")

	var ee *exitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 2, ee.code)
	assert.True(t, apierrors.IsBridgeUnavailable(err))
	assert.Contains(t, env.stderr.String(), models.BridgeNotDetectedText)
	assert.Empty(t, env.stdout.String())
	assert.Equal(t, 1, env.logs.FilterMessage("query not answered").Len())
}

func TestQuery_Interrupted(t *testing.T) {
	env := newTestEnv(t)
	env.bridge = bridge.NewMock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := env.runContext(ctx, "q")

	var ee *exitError
	require.ErrorAs(t, err, &ee)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, env.stderr.String(), models.CanceledText)
}

func TestQuery_EmptyQuery(t *testing.T) {
	env := newTestEnv(t)
	env.bridge = bridge.NewStaticMock("ok")

	err := env.run("   ")
	assert.ErrorIs(t, err, apierrors.ErrEmptyQuery)
	assert.Equal(t, 0, env.bridge.CallCount())
}

func TestQuery_FromStdin(t *testing.T) {
	env := newTestEnv(t)
	env.bridge = bridge.NewStaticMock("ok")
	env.stdin = "from stdin"
	env.piped = true

	require.NoError(t, env.run())
	assert.Equal(t, "from stdin", env.bridge.Calls()[0].Query)
}

func TestQuery_FromFile(t *testing.T) {
	env := newTestEnv(t)
	env.bridge = bridge.NewStaticMock("ok")
	path := filepath.Join(t.TempDir(), "prompt.md")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0o600))

	require.NoError(t, env.run("-f", path))
	assert.Equal(t, "from file", env.bridge.Calls()[0].Query)

	assert.Error(t, env.run("-f", filepath.Join(t.TempDir(), "missing.md")))
}

func TestQuery_OutputFileAndCopy(t *testing.T) {
	env := newTestEnv(t)
	env.bridge = bridge.NewStaticMock("# Answer")
	out := filepath.Join(t.TempDir(), "answer.md")

	require.NoError(t, env.run("-o", out, "--copy", "q"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "# Answer", string(data))
	assert.Empty(t, env.stdout.String())
	assert.Equal(t, []string{"# Answer"}, env.copied)
}

func TestQuery_ClipboardFailureIsWarning(t *testing.T) {
	env := newTestEnv(t)
	env.bridge = bridge.NewStaticMock("x")
	env.deps.Clipboard = func(string) error { return errors.New("no display") }

	require.NoError(t, env.run("--copy", "q"))
	assert.Contains(t, env.stderr.String(), "no display")
	assert.Equal(t, "x\n", env.stdout.String())
}

func TestQuery_HistoryDisabled(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.SaveHistory = false
	env.bridge = bridge.NewStaticMock("ok")

	require.NoError(t, env.run("q"))

	convs, err := env.store.ListConversations()
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestQuery_InvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.FallbackDelayMS = -1

	err := env.run("q")
	assert.True(t, apierrors.IsConfigError(err))
}

func TestQuery_TTYRendersMarkdown(t *testing.T) {
	env := newTestEnv(t)
	env.tty = true
	env.cfg.Markdown.Style = "notty"
	env.bridge = bridge.NewStaticMock("Hello **world**")

	require.NoError(t, env.run("q"))

	out := env.stdout.String()
	assert.Contains(t, out, "ZEGA via default")
	assert.Contains(t, out, "world")
	assert.Contains(t, env.stderr.String(), "Done in")
}

func TestQuery_RawFlagOnTTY(t *testing.T) {
	env := newTestEnv(t)
	env.tty = true
	env.bridge = bridge.NewStaticMock("**raw**")

	require.NoError(t, env.run("--raw", "q"))
	assert.Equal(t, "**raw**\n", env.stdout.String())
}

func TestReadQuery_Precedence(t *testing.T) {
	env := newTestEnv(t)
	env.deps.Stdin = nil

	q, ok, err := readQuery(env.deps, "", []string{"arg"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "arg", q)

	_, ok, err = readQuery(env.deps, "", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExitError(t *testing.T) {
	assert.Equal(t, "exit status 2", (&exitError{code: 2}).Error())
}
