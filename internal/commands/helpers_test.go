package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/diogo/zai/internal/bridge"
	"github.com/diogo/zai/internal/config"
	"github.com/diogo/zai/internal/history"
	"github.com/diogo/zai/internal/logging"
	"github.com/diogo/zai/internal/tui"
)

type fakeTUI struct {
	calls []tui.ChatOptions
	err   error
}

func (f *fakeTUI) RunChat(opts tui.ChatOptions) error {
	f.calls = append(f.calls, opts)
	return f.err
}

type testEnv struct {
	deps   *Dependencies
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	home   string

	cfg        config.Config
	saved      []config.Config
	bridgeCfgs []config.Config
	bridge     *bridge.Mock
	store      *history.Store
	tui        *fakeTUI
	copied     []string
	tty        bool
	stdin      string
	piped      bool
	logs       *observer.ObservedLogs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	store, err := history.NewStore(home)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.FallbackDelayMS = 10
	cfg.LogFile = filepath.Join(home, "zai.log")

	core, logs := observer.New(zapcore.DebugLevel)
	env := &testEnv{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		home:   home,
		cfg:    cfg,
		store:  store,
		tui:    &fakeTUI{},
		logs:   logs,
	}

	env.deps = &Dependencies{
		Stdout:         env.stdout,
		Stderr:         env.stderr,
		LoadConfig:     func() (config.Config, error) { return env.cfg, nil },
		LoadFileConfig: func() (config.Config, error) { return env.cfg, nil },
		SaveConfig: func(c config.Config) error {
			env.saved = append(env.saved, c)
			return nil
		},
		ConfigPath:  func() (string, error) { return filepath.Join(home, "config.json"), nil },
		OpenHistory: func() (*history.Store, error) { return env.store, nil },
		NewBridge: func(c config.Config, _ *zap.Logger) (bridge.Bridge, error) {
			env.bridgeCfgs = append(env.bridgeCfgs, c)
			if env.bridge == nil {
				return nil, nil
			}
			return env.bridge, nil
		},
		NewLogger: func(logging.Options) (*zap.Logger, error) { return zap.New(core), nil },
		TUI:       env.tui,
		Clipboard: func(s string) error {
			env.copied = append(env.copied, s)
			return nil
		},
		IsTTY:      func() bool { return env.tty },
		TermWidth:  func() int { return 80 },
		StdinPiped: func() bool { return env.piped },
	}
	return env
}

func (e *testEnv) run(args ...string) error {
	return e.runContext(context.Background(), args...)
}

func (e *testEnv) runContext(ctx context.Context, args ...string) error {
	e.deps.Stdin = strings.NewReader(e.stdin)
	cmd := NewRootCmd(e.deps)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
