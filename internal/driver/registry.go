package driver

import (
	"github.com/cardline/platform/internal/domain"
)

// Registry resolves a sport to its driver module.
type Registry struct {
	modules map[domain.Sport]Module
}

// NewRegistry builds the full module set. Callers decide which sports
// to dispatch; the registry always knows all of them.
func NewRegistry() *Registry {
	mods := []Module{
		NewNHLModule(),
		NewNBAModule(),
		NewGenericModule(domain.SportNCAAM, "NCAAM Composite Edge", "ncaam-v1"),
		NewGenericModule(domain.SportMLB, "MLB Composite Edge", "mlb-v1"),
		NewGenericModule(domain.SportNFL, "NFL Composite Edge", "nfl-v1"),
		NewGenericModule(domain.SportSoccer, "Soccer Composite Edge", "soccer-v1"),
		NewGenericModule(domain.SportFPL, "FPL Composite Edge", "fpl-v1"),
	}
	byID := make(map[domain.Sport]Module, len(mods))
	for _, m := range mods {
		byID[m.Sport()] = m
	}
	return &Registry{modules: byID}
}

// ForSport returns the module for a sport.
func (r *Registry) ForSport(sport domain.Sport) (Module, bool) {
	m, ok := r.modules[sport]
	return m, ok
}
