package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/zai/internal/history"
	"github.com/diogo/zai/internal/render"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage conversation history",
		Long:  "View and manage your local conversation history.\n\n" + history.ListAliases(),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHistoryList()
		},
	})

	var format string
	show := &cobra.Command{
		Use:   "show <ref>",
		Short: "Show a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHistoryShow(args[0], format)
		},
	}
	show.Flags().StringVar(&format, "format", "markdown", "Output format: markdown or json")
	cmd.AddCommand(show)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <ref>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHistoryDelete(args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <ref> <title>",
		Short: "Rename a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHistoryRename(args[0], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHistoryClear()
		},
	})

	return cmd
}

func (a *app) openHistory() (*history.Store, error) {
	store, err := a.deps.OpenHistory()
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}

func resolveConversation(store *history.Store, ref string) (*history.Conversation, error) {
	id, err := history.NewResolver(store).Resolve(ref)
	if err != nil {
		return nil, err
	}
	return store.GetConversation(id)
}

func (a *app) runHistoryList() error {
	store, err := a.openHistory()
	if err != nil {
		return err
	}

	conversations, err := store.ListConversations()
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	if len(conversations) == 0 {
		fmt.Fprintln(a.deps.Stdout, "No conversations found.")
		return nil
	}

	w := tabwriter.NewWriter(a.deps.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tID\tTITLE\tENGINE\tMESSAGES\tUPDATED")

	for i, conv := range conversations {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			i+1, conv.ID, truncate(conv.Title, 40), conv.Engine, len(conv.Messages),
			history.FormatRelativeTime(conv.UpdatedAt))
	}

	return w.Flush()
}

func (a *app) runHistoryShow(ref, format string) error {
	exportFormat, err := history.ParseExportFormat(format)
	if err != nil {
		return err
	}

	store, err := a.openHistory()
	if err != nil {
		return err
	}

	conv, err := resolveConversation(store, ref)
	if err != nil {
		return err
	}

	data, err := store.Export(conv.ID, exportFormat)
	if err != nil {
		return err
	}

	out := string(data)
	if exportFormat == history.ExportFormatMarkdown && a.deps.IsTTY() {
		out = render.MarkdownOrPlain(out, render.FromConfig(a.cfg.Markdown).WithWidth(a.deps.TermWidth()))
	}
	fmt.Fprintln(a.deps.Stdout, out)
	return nil
}

func (a *app) runHistoryDelete(ref string) error {
	store, err := a.openHistory()
	if err != nil {
		return err
	}

	conv, err := resolveConversation(store, ref)
	if err != nil {
		return err
	}

	if err := store.DeleteConversation(conv.ID); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	fmt.Fprintf(a.deps.Stdout, "Deleted conversation: %s (%s)\n", conv.ID, conv.Title)
	return nil
}

func (a *app) runHistoryRename(ref, title string) error {
	store, err := a.openHistory()
	if err != nil {
		return err
	}

	conv, err := resolveConversation(store, ref)
	if err != nil {
		return err
	}

	if err := store.UpdateTitle(conv.ID, title); err != nil {
		return err
	}

	fmt.Fprintf(a.deps.Stdout, "Renamed conversation: %s\n", conv.ID)
	return nil
}

func (a *app) runHistoryClear() error {
	store, err := a.openHistory()
	if err != nil {
		return err
	}

	n, err := store.ClearAll()
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	fmt.Fprintf(a.deps.Stdout, "Deleted %d conversations.\n", n)
	return nil
}

// truncate shortens s to n runes, adding an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
