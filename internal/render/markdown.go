package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/zjrosen/shine/internal/lang"
)

// noMarginStyle removes document margins on top of the auto style.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// MarkdownRenderer renders markdown for the terminal.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
}

// NewMarkdownRenderer creates a renderer wrapping at width.
func NewMarkdownRenderer(width int) (*MarkdownRenderer, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &MarkdownRenderer{renderer: r, width: width}, nil
}

func (r *MarkdownRenderer) Width() int {
	return r.width
}

func (r *MarkdownRenderer) Render(markdown string) (string, error) {
	return r.renderer.Render(markdown)
}

// Markdown describes a language definition: its names, then one table of
// patterns per state.
func Markdown(def *lang.Definition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", def.Name)
	if len(def.Aliases) > 0 {
		fmt.Fprintf(&b, "- **Aliases:** %s\n", strings.Join(def.Aliases, ", "))
	}
	if len(def.Extensions) > 0 {
		fmt.Fprintf(&b, "- **Extensions:** %s\n", strings.Join(def.Extensions, ", "))
	}
	if def.Source != "" {
		fmt.Fprintf(&b, "- **Source:** %s\n", def.Source)
	}

	for i, st := range def.States {
		fmt.Fprintf(&b, "\n## %d. %s\n\n", i, st.Name)
		b.WriteString("| # | Regex | Style | Transition | Environment |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for j, p := range st.Patterns {
			tr := p.Transition.String()
			if p.Transition == lang.Enter {
				tr += " → " + def.States[p.Target].Name
			}
			env := p.Environment
			if env == "" {
				env = "-"
			}
			fmt.Fprintf(&b, "| %d | `%s` | %s | %s | %s |\n",
				j, tableCell(p.Expr), tableCell(p.Style.String()), tr, env)
		}
	}
	return b.String()
}

// tableCell escapes pipes so a value stays inside its markdown cell.
func tableCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
