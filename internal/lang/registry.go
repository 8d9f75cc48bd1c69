package lang

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zjrosen/shine/internal/log"
)

// builtinLanguages embeds the shipped language definitions.
//
//go:embed languages
var builtinLanguages embed.FS

// BuiltinFS returns the embedded filesystem holding languages/*.yaml.
func BuiltinFS() fs.FS {
	return builtinLanguages
}

// Registry maps language names, aliases and file extensions to definitions.
// A Registry is immutable once built; reloading means building a new one.
type Registry struct {
	byName map[string]*Definition
	byExt  map[string]*Definition
	names  []string
}

// NewRegistry indexes defs. Later definitions override earlier ones with the
// same name, alias or extension.
func NewRegistry(defs ...*Definition) *Registry {
	r := &Registry{
		byName: make(map[string]*Definition),
		byExt:  make(map[string]*Definition),
	}

	canonical := make(map[string]*Definition)
	for _, def := range defs {
		if def == nil {
			continue
		}
		canonical[def.Name] = def
	}

	// Index in input order so overrides are deterministic.
	for _, def := range defs {
		if def == nil || canonical[def.Name] != def {
			continue
		}
		r.byName[def.Name] = def
		for _, alias := range def.Aliases {
			r.byName[alias] = def
		}
		for _, ext := range def.Extensions {
			r.byExt[ext] = def
		}
	}

	for name := range canonical {
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r
}

// Builtin loads the embedded definitions into a registry.
func Builtin(opts ...Option) (*Registry, error) {
	defs, err := LoadFS(builtinLanguages, "languages", append([]Option{WithSource("builtin")}, opts...)...)
	if err != nil {
		return nil, err
	}
	return NewRegistry(defs...), nil
}

// LoadRegistry loads the builtin definitions and then userDir, letting user
// definitions override builtins of the same name.
func LoadRegistry(userDir string, opts ...Option) (*Registry, error) {
	builtin, err := LoadFS(builtinLanguages, "languages", append([]Option{WithSource("builtin")}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("load builtin languages: %w", err)
	}

	user, err := LoadUserDir(userDir, opts...)
	if err != nil {
		return nil, fmt.Errorf("load user languages: %w", err)
	}
	if len(user) > 0 {
		log.Info(log.CatLang, "loaded user languages", "dir", userDir, "count", len(user))
	}

	return NewRegistry(append(builtin, user...)...), nil
}

// Lookup returns the definition registered under name or alias.
func (r *Registry) Lookup(name string) (*Definition, error) {
	if r != nil {
		if def, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]; ok {
			return def, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
}

// ForFile returns the definition registered for path's extension.
func (r *Registry) ForFile(path string) (*Definition, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if r != nil && ext != "" {
		if def, ok := r.byExt[ext]; ok {
			return def, nil
		}
	}
	return nil, fmt.Errorf("%w: no language for file %q", ErrUnknownLanguage, path)
}

// Names returns the canonical language names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of distinct languages.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}
