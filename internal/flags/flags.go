// Package flags provides feature flags read from the `flags:` config section.
// Flags are read-only after initialization; unknown flags are disabled.
package flags

import (
	"maps"
	"slices"

	"github.com/zjrosen/shine/internal/log"
)

const (
	// FlagMailLinks resolves link text that looks like an e-mail address to
	// a mailto: target.
	FlagMailLinks = "mail-links"

	// FlagResultCache keeps highlighting results in memory, on top of
	// cache.enabled.
	FlagResultCache = "result-cache"
)

// Defaults returns the built-in flag values. Config entries override them.
func Defaults() map[string]bool {
	return map[string]bool{
		FlagMailLinks:   true,
		FlagResultCache: true,
	}
}

// Registry holds feature flag state.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from the defaults overlaid with configured values.
func New(configured map[string]bool) *Registry {
	flags := Defaults()
	maps.Copy(flags, configured)

	r := &Registry{flags: flags}
	log.Debug(log.CatConfig, "feature flags initialized", "count", len(flags), "flags", r.All())
	return r
}

// Enabled returns true if the named flag is enabled. Unknown flags and a
// nil registry report false.
func (r *Registry) Enabled(name string) bool {
	if r == nil {
		return false
	}
	value, exists := r.flags[name]
	if !exists {
		log.Debug(log.CatConfig, "unknown flag accessed", "flag", name)
		return false
	}
	return value
}

// All returns a copy of all flags.
func (r *Registry) All() map[string]bool {
	if r == nil {
		return make(map[string]bool)
	}
	return maps.Clone(r.flags)
}

// Names returns the flag names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.flags))
}
