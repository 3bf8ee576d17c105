package render

import (
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

// StyleZega is the default markdown style: glamour's dark style with
// the ZEGA green on headings and links.
const StyleZega = "zega"

const zegaGreen = "#58f01b"

func zegaStyle() ansi.StyleConfig {
	cfg := styles.DarkStyleConfig
	green := zegaGreen

	cfg.Heading.Color = &green
	cfg.H1.Color = &green
	cfg.H1.BackgroundColor = nil
	cfg.Link.Color = &green
	cfg.LinkText.Color = &green
	return cfg
}
