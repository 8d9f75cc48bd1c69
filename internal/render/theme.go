// Package render turns a text plus its highlight tag stream into terminal
// output, HTML or a JSON list of styled runs.
package render

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// DefaultTheme is used when no theme is configured.
const DefaultTheme = "monokai"

// ErrUnknownTheme is returned for a theme name chroma does not ship.
var ErrUnknownTheme = errors.New("unknown theme")

// tokenTypes picks the chroma entry that colours each highlight style.
var tokenTypes = map[string]chroma.TokenType{
	"keyword":     chroma.Keyword,
	"type":        chroma.KeywordType,
	"string":      chroma.LiteralString,
	"specialchar": chroma.LiteralStringEscape,
	"comment":     chroma.Comment,
	"preproc":     chroma.CommentPreproc,
	"number":      chroma.LiteralNumber,
	"function":    chroma.NameFunction,
	"variable":    chroma.NameVariable,
	"constant":    chroma.NameConstant,
	"symbol":      chroma.Operator,
	"url":         chroma.LiteralStringOther,
}

// Theme maps highlight style names to terminal styles.
type Theme struct {
	Name   string
	styles map[string]lipgloss.Style
	gutter lipgloss.Style
	plain  lipgloss.Style
}

// NewTheme builds a theme from the named chroma style. overrides maps style
// names to hex colours and wins over the chroma entry.
func NewTheme(name string, overrides map[string]string) (*Theme, error) {
	if name == "" {
		name = DefaultTheme
	}
	base, ok := styles.Registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}

	t := &Theme{
		Name:   base.Name,
		styles: make(map[string]lipgloss.Style, len(tokenTypes)+len(overrides)),
		gutter: chromaToLipgloss(chroma.LineNumbers, base),
		plain:  chromaToLipgloss(chroma.Text, base),
	}
	for style, tt := range tokenTypes {
		t.styles[style] = chromaToLipgloss(tt, base)
	}
	t.styles["url"] = t.styles["url"].Underline(true)

	for style, hex := range overrides {
		s, ok := t.styles[style]
		if !ok {
			s = t.plain
		}
		t.styles[style] = s.Foreground(lipgloss.Color(hex))
	}
	return t, nil
}

// Style returns the terminal style for a highlight style. Unknown and empty
// names get the theme's plain text style.
func (t *Theme) Style(name string) lipgloss.Style {
	if s, ok := t.styles[name]; ok {
		return s
	}
	return t.plain
}

// StyleNames returns the style names the theme colours, sorted.
func (t *Theme) StyleNames() []string {
	return slices.Sorted(maps.Keys(t.styles))
}

// ThemeNames lists the available chroma styles.
func ThemeNames() []string {
	return styles.Names()
}

func chromaToLipgloss(tokenType chroma.TokenType, style *chroma.Style) lipgloss.Style {
	entry := style.Get(tokenType)
	lipStyle := lipgloss.NewStyle()

	if entry.Colour.IsSet() {
		lipStyle = lipStyle.Foreground(lipgloss.Color(entry.Colour.String()))
	}
	if entry.Bold == chroma.Yes {
		lipStyle = lipStyle.Bold(true)
	}
	if entry.Italic == chroma.Yes {
		lipStyle = lipStyle.Italic(true)
	}
	if entry.Underline == chroma.Yes {
		lipStyle = lipStyle.Underline(true)
	}
	return lipStyle
}
