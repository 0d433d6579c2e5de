package app

import (
	"github.com/rs/zerolog"

	"waxwing/internal/core"
	"waxwing/internal/domain"
	"waxwing/internal/lock"
	"waxwing/internal/profile"
	"waxwing/internal/settings"
	"waxwing/internal/store"
)

// Wire bundles the profile collaborators for the CLI.
type Wire struct {
	Paths  store.Paths
	Locker *lock.Locker
	Global *settings.Global
	Log    zerolog.Logger

	options domain.CoreOptions
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	paths := store.NewPaths(cfg.Home)
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}

	global, err := settings.LoadGlobal(paths)
	if err != nil {
		return nil, err
	}

	return &Wire{
		Paths:   paths,
		Locker:  lock.New(cfg.Home, cfg.Log),
		Global:  global,
		Log:     cfg.Log,
		options: cfg.Options,
	}, nil
}

// ProfileConfig binds the wire into a profile configuration with this
// repo's core and AV implementations.
func (w *Wire) ProfileConfig(events profile.Events) profile.Config {
	return profile.Config{
		Paths:  w.Paths,
		Locker: w.Locker,
		Global: w.Global,
		NewCore: func(save []byte, opts domain.CoreOptions) (domain.Core, error) {
			c, err := core.New(save, opts)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		NewAV: func(c domain.Core) (domain.AV, error) {
			av, err := core.NewAV(c)
			if err != nil {
				return nil, err
			}
			return av, nil
		},
		CoreOptions: w.options,
		Events:      events,
		Log:         w.Log,
	}
}
