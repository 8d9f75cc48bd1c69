// Package lang holds language definitions: ordered lexer states, each an
// ordered list of patterns. Definitions are built once and never mutated, so
// a single *Definition can be shared by concurrent highlighting requests.
package lang

import (
	"errors"
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

var (
	// ErrUnknownLanguage is returned when a lookup names no registered language.
	ErrUnknownLanguage = errors.New("unknown language")

	// ErrInvalidDefinition is returned for malformed definitions: bad regex,
	// missing target state, unknown transition, mismatched group styles.
	ErrInvalidDefinition = errors.New("invalid language definition")
)

// Transition is the stack action taken after a pattern matches.
type Transition uint8

const (
	// Stay leaves the pattern stack unchanged.
	Stay Transition = iota
	// Enter pushes the matched pattern, making its target state active.
	Enter
	// ExitOne pops one level. Popping an empty stack is a no-op.
	ExitOne
	// ExitAll clears the stack.
	ExitAll
)

func (t Transition) String() string {
	switch t {
	case Stay:
		return "stay"
	case Enter:
		return "enter"
	case ExitOne:
		return "exit"
	case ExitAll:
		return "exit_all"
	default:
		return fmt.Sprintf("transition(%d)", uint8(t))
	}
}

// ParseTransition converts the YAML spelling of a transition.
// An empty string means Stay.
func ParseTransition(s string) (Transition, error) {
	switch s {
	case "", "stay":
		return Stay, nil
	case "enter":
		return Enter, nil
	case "exit", "exit_one":
		return ExitOne, nil
	case "exit_all":
		return ExitAll, nil
	default:
		return Stay, fmt.Errorf("%w: unknown transition %q", ErrInvalidDefinition, s)
	}
}

// StyleKind discriminates the Style sum type.
type StyleKind uint8

const (
	StyleNone StyleKind = iota
	StyleSingle
	StylePerGroup
)

// Style is either a single style name applied to the whole match, or one
// style name per capturing group. An empty group name leaves that group
// unstyled.
type Style struct {
	Kind   StyleKind
	Name   string
	Groups []string
}

// Single returns a style that applies name to the whole match.
func Single(name string) Style {
	if name == "" {
		return Style{}
	}
	return Style{Kind: StyleSingle, Name: name}
}

// PerGroup returns a style that applies names[i] to capture group i+1.
func PerGroup(names ...string) Style {
	return Style{Kind: StylePerGroup, Groups: names}
}

func (s Style) String() string {
	switch s.Kind {
	case StyleSingle:
		return s.Name
	case StylePerGroup:
		return fmt.Sprintf("%q", s.Groups)
	default:
		return "-"
	}
}

// Pattern is the unit of matching: a regex, a style and a transition.
type Pattern struct {
	// Expr is the regex source, kept for diagnostics.
	Expr string

	// Regex is compiled with ECMAScript semantics and searched from an offset
	// within a single line.
	Regex *regexp2.Regexp

	Style      Style
	Transition Transition

	// Target is the state index activated by Enter. Ignored otherwise.
	Target int

	// Environment is the style given to unstyled text while this pattern is
	// the top of the pattern stack. Empty means none.
	Environment string
}

// NewPattern compiles expr and builds a pattern. For Enter patterns with a
// single style the environment defaults to that style.
func NewPattern(expr string, style Style, tr Transition, target int) (Pattern, error) {
	return newPattern(expr, style, tr, target, 0)
}

func newPattern(expr string, style Style, tr Transition, target int, timeout time.Duration) (Pattern, error) {
	re, err := regexp2.Compile(expr, regexp2.ECMAScript)
	if err != nil {
		return Pattern{}, fmt.Errorf("%w: regex %q: %v", ErrInvalidDefinition, expr, err)
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}

	if style.Kind == StylePerGroup {
		groups := len(re.GetGroupNumbers()) - 1
		if len(style.Groups) > groups {
			return Pattern{}, fmt.Errorf("%w: regex %q has %d groups but %d group styles",
				ErrInvalidDefinition, expr, groups, len(style.Groups))
		}
	}

	p := Pattern{
		Expr:       expr,
		Regex:      re,
		Style:      style,
		Transition: tr,
		Target:     target,
	}
	if tr == Enter && style.Kind == StyleSingle {
		p.Environment = style.Name
	}
	return p, nil
}

// MustPattern is like NewPattern but panics on error. Intended for tests and
// static tables.
func MustPattern(expr string, style Style, tr Transition, target int) Pattern {
	p, err := NewPattern(expr, style, tr, target)
	if err != nil {
		panic(err)
	}
	return p
}

// WithEnvironment returns a copy of p with its environment style replaced.
func (p Pattern) WithEnvironment(style string) Pattern {
	p.Environment = style
	return p
}

// State is an ordered list of patterns. Earlier patterns win ties.
type State struct {
	Name     string
	Patterns []Pattern
}

// Definition is the static state table for one language. State 0 is the
// initial state.
type Definition struct {
	Name       string
	Aliases    []string
	Extensions []string
	States     []State

	// Source records where the definition was loaded from ("builtin" or a path).
	Source string
}

// NewDefinition validates and returns a definition built from states.
func NewDefinition(name string, states ...State) (*Definition, error) {
	d := &Definition{Name: name, States: states}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks that every Enter transition targets an existing state.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}
	if len(d.States) == 0 {
		return fmt.Errorf("%w: %s: at least one state is required", ErrInvalidDefinition, d.Name)
	}
	for si, st := range d.States {
		for pi, p := range st.Patterns {
			if p.Regex == nil {
				return fmt.Errorf("%w: %s: state %d pattern %d: regex not compiled", ErrInvalidDefinition, d.Name, si, pi)
			}
			if p.Transition == Enter && (p.Target < 0 || p.Target >= len(d.States)) {
				return fmt.Errorf("%w: %s: state %d pattern %d enters nonexistent state %d",
					ErrInvalidDefinition, d.Name, si, pi, p.Target)
			}
		}
	}
	return nil
}

// StateIndex returns the index of the named state, or -1.
func (d *Definition) StateIndex(name string) int {
	for i, st := range d.States {
		if st.Name == name {
			return i
		}
	}
	return -1
}

// PatternCount returns the total number of patterns across all states.
func (d *Definition) PatternCount() int {
	n := 0
	for _, st := range d.States {
		n += len(st.Patterns)
	}
	return n
}
