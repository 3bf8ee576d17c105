package commands

import (
	"io"
	"os"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/diogo/zai/internal/bridge"
	"github.com/diogo/zai/internal/config"
	"github.com/diogo/zai/internal/history"
	"github.com/diogo/zai/internal/logging"
	"github.com/diogo/zai/internal/tui"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(opts tui.ChatOptions) error
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// LoadConfig returns the effective configuration (file plus environment).
	LoadConfig func() (config.Config, error)
	// LoadFileConfig returns the file configuration only, for editing.
	LoadFileConfig func() (config.Config, error)
	SaveConfig     func(config.Config) error
	ConfigPath     func() (string, error)

	OpenHistory func() (*history.Store, error)
	NewBridge   func(config.Config, *zap.Logger) (bridge.Bridge, error)
	NewLogger   func(logging.Options) (*zap.Logger, error)

	TUI       TUIInterface
	Clipboard func(string) error

	IsTTY      func() bool
	TermWidth  func() int
	StdinPiped func() bool
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(opts tui.ChatOptions) error {
	return tui.RunChat(opts)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		Stdin:          os.Stdin,
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		LoadConfig:     config.LoadConfig,
		LoadFileConfig: config.LoadFileConfig,
		SaveConfig:     config.SaveConfig,
		ConfigPath:     config.GetConfigPath,
		OpenHistory:    history.DefaultStore,
		NewBridge:      bridge.FromConfig,
		NewLogger:      logging.New,
		TUI:            &DefaultTUI{},
		Clipboard:      clipboard.WriteAll,
		IsTTY:          isStdoutTTY,
		TermWidth:      getTerminalWidth,
		StdinPiped:     stdinPiped,
	}
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// isStdoutTTY returns true if stdout is connected to a terminal
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func stdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice == 0
}
