package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/diogo/zai/internal/chat"
	apierrors "github.com/diogo/zai/internal/errors"
	"github.com/diogo/zai/internal/history"
	"github.com/diogo/zai/internal/render"
)

// queryFlags are the root command's one-shot flags.
type queryFlags struct {
	output string
	file   string
	copy   bool
	raw    bool
}

var (
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginTop(1).
				MarginBottom(1)

	diagnosticStyle = lipgloss.NewStyle().
			Foreground(colorError)
)

// newController builds a controller for the current configuration. The
// returned cleanup closes the controller and then the bridge.
func (a *app) newController(opts ...chat.Option) (*chat.Controller, func(), error) {
	b, err := a.deps.NewBridge(a.cfg, a.logger)
	if err != nil {
		return nil, nil, err
	}

	base := []chat.Option{
		chat.WithFallbackDelay(a.cfg.FallbackDelay()),
		chat.WithResponseTimeout(a.cfg.ResponseTimeout()),
		chat.WithLogger(a.logger),
	}
	if b != nil {
		base = append(base, chat.WithBridge(b))
	}
	if rec := a.recorder(); rec != nil {
		base = append(base, chat.WithRecorder(rec))
	}

	ctrl := chat.NewController(nil, nil, append(base, opts...)...)
	cleanup := func() {
		ctrl.Close()
		if b != nil {
			if err := b.Close(); err != nil {
				a.logger.Warn("failed to close bridge", zap.Error(err))
			}
		}
	}
	return ctrl, cleanup, nil
}

// recorder returns a history recorder, or nil when history is disabled
// or unavailable.
func (a *app) recorder() chat.Recorder {
	if !a.cfg.SaveHistory {
		return nil
	}
	store, err := a.deps.OpenHistory()
	if err != nil {
		a.logger.Warn("history disabled", zap.Error(err))
		return nil
	}
	return history.NewRecorder(store)
}

// runQuery submits one query, waits for its resolution and prints it.
func (a *app) runQuery(ctx context.Context, query string, flags queryFlags) error {
	if strings.TrimSpace(query) == "" {
		return apierrors.ErrEmptyQuery
	}
	if a.cfgErr != nil {
		return a.cfgErr
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctrl, cleanup, err := a.newController()
	if err != nil {
		return err
	}
	defer cleanup()

	ex, err := ctrl.Submit(query, a.cfg.DefaultEngine)
	if err != nil {
		return err
	}

	tty := a.deps.IsTTY()
	var spin *spinner
	if tty {
		spin = newSpinner(a.deps.Stderr, strings.TrimSuffix(ctrl.Transcript().Text(ex.Handle()), "..."))
		spin.start()
	}

	res, err := ex.Wait(ctx)
	if err != nil {
		// interrupted: resolve as canceled
		ctrl.Close()
		res, _ = ex.Wait(context.Background())
	}

	if res.Diagnostic() {
		if spin != nil {
			spin.stopWithError()
		}
		fmt.Fprintln(a.deps.Stderr, diagnosticStyle.Render("✗ "+res.Text))
		cause := diagnosticCause(ex, res)
		a.logger.Warn("query not answered", zap.String("exchange_id", ex.ID), zap.Error(cause))
		return &exitError{code: 2, err: cause}
	}
	if spin != nil {
		spin.stopWithSuccess(fmt.Sprintf("Done in %s", res.At.Sub(ex.CreatedAt).Round(time.Millisecond)))
	}

	return a.printResponse(res.Text, flags, tty)
}

// diagnosticCause maps a client-side resolution to the error it stands for.
func diagnosticCause(ex *chat.Exchange, res chat.Resolution) error {
	switch res.Source {
	case chat.SourceFallback:
		return apierrors.NewBridgeUnavailableError(ex.ID)
	case chat.SourceTimeout:
		return apierrors.NewTimeoutError(fmt.Sprintf("%s after %s", ex.Engine, res.At.Sub(ex.CreatedAt).Round(time.Second)))
	default:
		return context.Canceled
	}
}

func (a *app) printResponse(text string, flags queryFlags, tty bool) error {
	if flags.copy || a.cfg.CopyToClipboard {
		if err := a.deps.Clipboard(text); err != nil {
			fmt.Fprintln(a.deps.Stderr, diagnosticStyle.Render(fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err)))
		} else if tty {
			fmt.Fprintln(a.deps.Stderr, lipgloss.NewStyle().Foreground(colorSuccess).Render("✓ Copied to clipboard"))
		}
	}

	if flags.output != "" {
		if err := os.WriteFile(flags.output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if tty {
			fmt.Fprintln(a.deps.Stderr, lipgloss.NewStyle().Foreground(colorSuccess).Render(
				fmt.Sprintf("✓ Response saved to %s", flags.output)))
		}
		return nil
	}

	if !tty || flags.raw {
		fmt.Fprint(a.deps.Stdout, text)
		if !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(a.deps.Stdout)
		}
		return nil
	}

	bubbleWidth := min(max(a.deps.TermWidth()-4, 40), 120)
	contentWidth := bubbleWidth - 4

	fmt.Fprintln(a.deps.Stdout, assistantLabelStyle.Render("✦ ZEGA via "+a.cfg.DefaultEngine))
	rendered := render.MarkdownOrPlain(text, render.FromConfig(a.cfg.Markdown).WithWidth(contentWidth))
	fmt.Fprintln(a.deps.Stdout, assistantBubbleStyle.Width(bubbleWidth).Render(rendered))
	return nil
}
