package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/diogo/zai/internal/models"
)

// ExportFormat represents the format for exporting conversations
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
)

// ParseExportFormat accepts "markdown", "md" or "json".
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return ExportFormatMarkdown, nil
	case "json":
		return ExportFormatJSON, nil
	}
	return "", fmt.Errorf("unknown export format %q (use markdown or json)", s)
}

// Export renders a conversation in the given format
func (s *Store) Export(id string, format ExportFormat) ([]byte, error) {
	conv, err := s.GetConversation(id)
	if err != nil {
		return nil, err
	}
	switch format {
	case ExportFormatJSON:
		return json.MarshalIndent(conv, "", "  ")
	case ExportFormatMarkdown:
		return []byte(ToMarkdown(conv)), nil
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}

// ToMarkdown formats a conversation as a markdown document
func ToMarkdown(conv *Conversation) string {
	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(conv.Title)
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "**Engine:** %s\n", conv.Engine)
	fmt.Fprintf(&sb, "**Created:** %s\n", conv.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "**Updated:** %s\n", conv.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "**Messages:** %d\n\n---\n\n", len(conv.Messages))

	for i, msg := range conv.Messages {
		role := "User"
		if msg.Role == models.RoleAssistant {
			role = "ZEGA"
			if msg.Engine != "" {
				role += " via " + msg.Engine
			}
		}

		sb.WriteString("## ")
		sb.WriteString(role)
		if !msg.Timestamp.IsZero() {
			sb.WriteString(" (")
			sb.WriteString(msg.Timestamp.Format("15:04:05"))
			sb.WriteString(")")
		}
		sb.WriteString("\n\n")

		sb.WriteString(msg.Content)
		sb.WriteString("\n")

		if i < len(conv.Messages)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String()
}

// FormatRelativeTime formats t relative to now, e.g. "5m ago" or "yesterday".
func FormatRelativeTime(t time.Time) string {
	return formatRelative(t, time.Now())
}

func formatRelative(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 48*time.Hour:
		return "yesterday"
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}
