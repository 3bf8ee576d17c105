package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diogo/zai/internal/chat"
	"github.com/diogo/zai/internal/history"
	"github.com/diogo/zai/internal/models"
	"github.com/diogo/zai/internal/render"
	"github.com/diogo/zai/internal/tui"
)

func newChatCmd(a *app) *cobra.Command {
	var resume string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with a ZEGA engine.

Tab and Shift+Tab switch the engine, Ctrl+Y copies the last response.
Type /exit or /quit, or press Esc or Ctrl+C, to end the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(resume)
		},
	}
	cmd.Flags().StringVarP(&resume, "resume", "r", "", "Continue a saved conversation (@last, index, title or ID)")
	return cmd
}

func (a *app) runChat(resume string) error {
	if a.cfgErr != nil {
		return a.cfgErr
	}

	b, err := a.deps.NewBridge(a.cfg, a.logger)
	if err != nil {
		return err
	}
	if b != nil {
		defer func() {
			if err := b.Close(); err != nil {
				a.logger.Warn("failed to close bridge", zap.Error(err))
			}
		}()
	}

	if !render.SetTUITheme(a.cfg.TUITheme) {
		a.logger.Warn("unknown tui theme, using default", zap.String("theme", a.cfg.TUITheme))
	}
	tui.UpdateTheme()

	opts := tui.ChatOptions{
		Bridge:          b,
		Engines:         models.NewEngineList(a.cfg.Engines, a.cfg.DefaultEngine),
		FallbackDelay:   a.cfg.FallbackDelay(),
		ResponseTimeout: a.cfg.ResponseTimeout(),
		Logger:          a.logger,
		Render:          render.FromConfig(a.cfg.Markdown),
		CopyOnResolve:   a.cfg.CopyToClipboard,
	}

	if resume != "" {
		rec, prior, err := a.resumeConversation(resume)
		if err != nil {
			return err
		}
		opts.Recorder = rec
		opts.Prior = prior
	} else if rec := a.recorder(); rec != nil {
		opts.Recorder = rec
	}

	a.logger.Info("chat session started",
		zap.String("engine", a.cfg.DefaultEngine),
		zap.Bool("bridge", b != nil))
	return a.deps.TUI.RunChat(opts)
}

// resumeConversation loads a saved conversation so the session continues it.
func (a *app) resumeConversation(ref string) (chat.Recorder, []models.Message, error) {
	store, err := a.deps.OpenHistory()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history: %w", err)
	}

	conv, err := resolveConversation(store, ref)
	if err != nil {
		return nil, nil, err
	}

	prior := make([]models.Message, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		prior = append(prior, models.Message{Role: msg.Role, Text: msg.Content})
	}

	if !a.cfg.SaveHistory {
		return nil, prior, nil
	}
	return history.ResumeRecorder(store, conv.ID), prior, nil
}
