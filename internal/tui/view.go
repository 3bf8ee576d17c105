package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/diogo/zai/internal/chat"
	"github.com/diogo/zai/internal/models"
	"github.com/diogo/zai/internal/render"
)

// transcriptView renders a chat transcript into a viewport. It is shared
// by pointer between the bubbletea model and the controller, which uses
// it as its Scroller.
type transcriptView struct {
	vp         viewport.Model
	transcript *chat.Transcript
	isPending  func(id string) bool
	renderOpts render.Options

	// rendered markdown per message index, valid while text is unchanged
	cache map[int]renderedEntry
}

type renderedEntry struct {
	text  string
	width int
	out   string
}

func newTranscriptView(t *chat.Transcript, isPending func(string) bool, opts render.Options) *transcriptView {
	return &transcriptView{
		vp:         viewport.New(0, 0),
		transcript: t,
		isPending:  isPending,
		renderOpts: opts,
		cache:      make(map[int]renderedEntry),
	}
}

// GotoBottom refreshes the content and scrolls to the newest message.
func (v *transcriptView) GotoBottom() {
	v.Refresh()
	v.vp.GotoBottom()
}

// Resize sets the viewport dimensions and re-renders.
func (v *transcriptView) Resize(width, height int) {
	v.vp.Width = width
	v.vp.Height = height
	v.Refresh()
}

// Refresh rebuilds the viewport content from the transcript.
func (v *transcriptView) Refresh() {
	v.vp.SetContent(v.Render())
}

// Render formats every transcript message as a styled bubble.
func (v *transcriptView) Render() string {
	var content strings.Builder
	bubbleWidth := max(v.vp.Width-6, 10)

	for i, msg := range v.transcript.Messages() {
		if i > 0 {
			content.WriteString("\n")
		}

		if msg.Role == models.RoleUser {
			label := userLabelStyle.Render("● You")
			bubble := userBubbleStyle.Width(bubbleWidth).Render(msg.Text)
			content.WriteString(label + "\n" + bubble)
		} else {
			label := assistantLabelStyle.Render("✦ ZEGA")
			bubble := assistantBubbleStyle.Width(bubbleWidth).Render(v.assistantBody(i, msg, bubbleWidth-4))
			content.WriteString(label + "\n" + bubble)
		}
		content.WriteString("\n")
	}

	return content.String()
}

func (v *transcriptView) assistantBody(i int, msg models.Message, width int) string {
	switch {
	case msg.IsPlaceholder() && v.isPending != nil && v.isPending(msg.ElementID):
		return placeholderStyle.Render(msg.Text)
	case strings.HasPrefix(msg.Text, "Error: "):
		return diagnosticStyle.Render(msg.Text)
	}

	if e, ok := v.cache[i]; ok && e.text == msg.Text && e.width == width {
		return e.out
	}
	out := render.MarkdownOrPlain(msg.Text, v.renderOpts.WithWidth(width))
	v.cache[i] = renderedEntry{text: msg.Text, width: width, out: out}
	return out
}
