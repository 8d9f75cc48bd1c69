package lang

import (
	"fmt"
	"io/fs"
	"os"
	stdpath "path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/shine/internal/log"
)

// DefinitionFile is the root structure of a language YAML file.
type DefinitionFile struct {
	Name       string     `yaml:"name"`
	Aliases    []string   `yaml:"aliases"`
	Extensions []string   `yaml:"extensions"`
	States     []StateDef `yaml:"states"`
}

// StateDef defines one lexer state in YAML.
type StateDef struct {
	Name     string       `yaml:"name"`
	Patterns []PatternDef `yaml:"patterns"`
}

// PatternDef defines one pattern in YAML.
type PatternDef struct {
	Regex      string   `yaml:"regex"`
	Style      string   `yaml:"style"`      // single style for the whole match
	Styles     []string `yaml:"styles"`     // one style per capture group ("" = unstyled)
	Transition string   `yaml:"transition"` // stay (default), enter, exit, exit_all
	Next       string   `yaml:"next"`       // target state name for enter

	// Environment overrides the inherited style for text inside the entered
	// state. Absent means "use style"; an explicit "" disables inheritance.
	Environment *string `yaml:"environment"`
}

// LoadOptions configures definition compilation.
type LoadOptions struct {
	// MatchTimeout bounds each regex evaluation. Zero means no timeout.
	MatchTimeout time.Duration

	// Source is recorded on every loaded definition.
	Source string
}

// Option mutates LoadOptions.
type Option func(*LoadOptions)

// WithMatchTimeout bounds every compiled regex.
func WithMatchTimeout(d time.Duration) Option {
	return func(o *LoadOptions) { o.MatchTimeout = d }
}

// WithSource sets the source label recorded on loaded definitions.
func WithSource(src string) Option {
	return func(o *LoadOptions) { o.Source = src }
}

func buildOptions(opts []Option) LoadOptions {
	var o LoadOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Parse decodes and compiles a single YAML language definition.
func Parse(data []byte, opts ...Option) (*Definition, error) {
	var file DefinitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidDefinition, err)
	}
	return Build(file, opts...)
}

// Build compiles a decoded definition file. State names referenced by
// `next` are resolved to indices; a missing state is a configuration error.
func Build(file DefinitionFile, opts ...Option) (*Definition, error) {
	o := buildOptions(opts)

	if file.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}

	index := make(map[string]int, len(file.States))
	for i, st := range file.States {
		if st.Name == "" {
			return nil, fmt.Errorf("%w: %s: state %d has no name", ErrInvalidDefinition, file.Name, i)
		}
		if _, dup := index[st.Name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate state %q", ErrInvalidDefinition, file.Name, st.Name)
		}
		index[st.Name] = i
	}

	def := &Definition{
		Name:       strings.ToLower(file.Name),
		Aliases:    lowerAll(file.Aliases),
		Extensions: normalizeExtensions(file.Extensions),
		States:     make([]State, len(file.States)),
		Source:     o.Source,
	}

	for si, st := range file.States {
		state := State{Name: st.Name, Patterns: make([]Pattern, 0, len(st.Patterns))}
		for pi, pd := range st.Patterns {
			p, err := buildPattern(pd, index, o)
			if err != nil {
				return nil, fmt.Errorf("%s: state %s pattern %d: %w", file.Name, st.Name, pi, err)
			}
			state.Patterns = append(state.Patterns, p)
		}
		def.States[si] = state
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func buildPattern(pd PatternDef, index map[string]int, o LoadOptions) (Pattern, error) {
	if pd.Regex == "" {
		return Pattern{}, fmt.Errorf("%w: regex is required", ErrInvalidDefinition)
	}
	if pd.Style != "" && len(pd.Styles) > 0 {
		return Pattern{}, fmt.Errorf("%w: style and styles are mutually exclusive", ErrInvalidDefinition)
	}

	tr, err := ParseTransition(pd.Transition)
	if err != nil {
		return Pattern{}, err
	}

	target := 0
	switch {
	case tr == Enter:
		if pd.Next == "" {
			return Pattern{}, fmt.Errorf("%w: enter requires next", ErrInvalidDefinition)
		}
		idx, ok := index[pd.Next]
		if !ok {
			return Pattern{}, fmt.Errorf("%w: next state %q does not exist", ErrInvalidDefinition, pd.Next)
		}
		target = idx
	case pd.Next != "":
		return Pattern{}, fmt.Errorf("%w: next is only valid with transition enter", ErrInvalidDefinition)
	}

	style := Single(pd.Style)
	if len(pd.Styles) > 0 {
		style = PerGroup(pd.Styles...)
	}

	p, err := newPattern(pd.Regex, style, tr, target, o.MatchTimeout)
	if err != nil {
		return Pattern{}, err
	}
	if pd.Environment != nil {
		p.Environment = *pd.Environment
	}
	return p, nil
}

// LoadFS loads every *.yaml / *.yml file below root in fsys.
func LoadFS(fsys fs.FS, root string, opts ...Option) ([]*Definition, error) {
	var defs []*Definition

	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := stdpath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		fileOpts := opts
		if buildOptions(opts).Source == "" {
			fileOpts = append(append([]Option{}, opts...), WithSource(path))
		}
		def, err := Parse(content, fileOpts...)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		log.Debug(log.CatLang, "loaded language", "name", def.Name, "path", path,
			"states", len(def.States), "patterns", def.PatternCount())
		defs = append(defs, def)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan language definitions: %w", err)
	}

	return defs, nil
}

// LoadUserDir loads definitions from a user directory.
// Returns nil, nil if the directory doesn't exist.
func LoadUserDir(dir string, opts ...Option) ([]*Definition, error) {
	if dir == "" {
		return nil, nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	return LoadFS(os.DirFS(dir), ".", opts...)
}

func lowerAll(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToLower(s))
		}
	}
	return out
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range lowerAll(exts) {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
