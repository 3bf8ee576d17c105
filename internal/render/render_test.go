package render

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogo/zai/internal/config"
)

func TestMarkdown(t *testing.T) {
	out, err := Markdown("# Title\n\nsome **bold** text", DefaultOptions().WithStyle("notty"))
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "bold")
}

func TestMarkdown_ZegaStyle(t *testing.T) {
	out, err := Markdown("## Heading\n\n[link](https://example.com)", DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, out, "Heading")
}

func TestMarkdown_InvalidStylePath(t *testing.T) {
	_, err := Markdown("x", DefaultOptions().WithStyle("/does/not/exist.json"))
	assert.Error(t, err)
}

func TestMarkdownOrPlain_FallsBack(t *testing.T) {
	out := MarkdownOrPlain("raw **text**", DefaultOptions().WithStyle("/does/not/exist.json"))
	assert.Equal(t, "raw **text**", out)
}

func TestMarkdownOrPlain_TrimsNewlines(t *testing.T) {
	out := MarkdownOrPlain("hello", DefaultOptions().WithStyle("notty"))
	assert.False(t, strings.HasPrefix(out, "\n"))
	assert.False(t, strings.HasSuffix(out, "\n"))
	assert.Contains(t, out, "hello")
}

func TestPoolReusesOptionSets(t *testing.T) {
	ClearCache()
	defer ClearCache()

	opts := DefaultOptions().WithStyle("notty")
	_, err := Markdown("a", opts)
	require.NoError(t, err)
	_, err = Markdown("b", opts)
	require.NoError(t, err)
	assert.Equal(t, 1, CacheSize())

	_, err = Markdown("c", opts.WithWidth(40))
	require.NoError(t, err)
	assert.Equal(t, 2, CacheSize())
}

func TestMarkdown_Concurrent(t *testing.T) {
	opts := DefaultOptions().WithStyle("notty")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Markdown("* item\n* item", opts)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestFromConfig(t *testing.T) {
	t.Setenv("GLAMOUR_STYLE", "")

	opts := FromConfig(config.MarkdownConfig{Style: "light", EnableEmoji: false, TableWrap: true})
	assert.Equal(t, "light", opts.Style)
	assert.False(t, opts.EnableEmoji)
	assert.False(t, opts.PreserveNewLines)
	assert.True(t, opts.TableWrap)
	assert.Equal(t, 80, opts.Width)

	opts = FromConfig(config.MarkdownConfig{})
	assert.Equal(t, StyleZega, opts.Style)

	t.Setenv("GLAMOUR_STYLE", "dracula")
	assert.Equal(t, "dracula", FromConfig(config.MarkdownConfig{Style: "light"}).Style)
}

func TestTUIThemes(t *testing.T) {
	defer SetTUITheme(ZegaTheme.Name)

	assert.Equal(t, "zega", GetTUITheme().Name)
	assert.Equal(t, []string{"dracula", "tokyonight", "zega"}, TUIThemeNames())

	assert.False(t, SetTUITheme("solarized"))
	assert.Equal(t, "zega", GetTUITheme().Name)

	assert.True(t, SetTUITheme("dracula"))
	assert.Equal(t, DraculaTheme, GetTUITheme())
}
