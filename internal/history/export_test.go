package history

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogo/zai/internal/models"
)

func TestParseExportFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ExportFormat
		wantErr bool
	}{
		{"", ExportFormatMarkdown, false},
		{"md", ExportFormatMarkdown, false},
		{"Markdown", ExportFormatMarkdown, false},
		{"json", ExportFormatJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseExportFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestExport(t *testing.T) {
	s := newTestStore(t)
	conv, _ := s.CreateConversation("mixtral-8x7b")
	require.NoError(t, s.AddMessage(conv.ID, models.RoleUser, "Hello", "mixtral-8x7b"))
	require.NoError(t, s.AddMessage(conv.ID, models.RoleAssistant, "**Hi** there", "mixtral-8x7b"))

	md, err := s.Export(conv.ID, ExportFormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Hello\n")
	assert.Contains(t, string(md), "**Engine:** mixtral-8x7b")
	assert.Contains(t, string(md), "## ZEGA via mixtral-8x7b")
	assert.Contains(t, string(md), "**Hi** there")

	raw, err := s.Export(conv.ID, ExportFormatJSON)
	require.NoError(t, err)
	var decoded Conversation
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, conv.ID, decoded.ID)
	assert.Len(t, decoded.Messages, 2)

	_, err = s.Export("conv-nope", ExportFormatJSON)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFormatRelative(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{30 * time.Hour, "yesterday"},
		{4 * 24 * time.Hour, "4 days ago"},
		{40 * 24 * time.Hour, "2025-01-29"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatRelative(now.Add(-tt.ago), now))
	}
}
