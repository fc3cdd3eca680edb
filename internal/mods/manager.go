// Package mods manages the workshop mod list of an instance. All changes
// funnel through the registry's mutate path, so the three mod files
// (both modoverrides.lua copies and dedicated_server_mods_setup.lua) can
// never disagree with each other.
package mods

import (
	"context"
	"strings"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/cluster"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/errors"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/logger"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/registry"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/validation"
)

// NameStore resolves a workshop mod ID to a human-readable name. The db
// package provides the sqlite-backed implementation; a nil store just
// leaves the display names empty.
type NameStore interface {
	Name(ctx context.Context, modID string) (string, error)
}

// Info is one mod entry enriched with its display name
type Info struct {
	ID          string                 `json:"id"`
	DisplayName string                 `json:"display_name,omitempty"`
	Enabled     bool                   `json:"enabled"`
	Options     map[string]interface{} `json:"options,omitempty"`
}

// Manager edits instance mod lists
type Manager struct {
	reg   *registry.Registry
	names NameStore
}

// NewManager creates a mod manager. names may be nil.
func NewManager(reg *registry.Registry, names NameStore) *Manager {
	return &Manager{reg: reg, names: names}
}

// List returns the instance's mods in configured order
func (m *Manager) List(ctx context.Context, name string) ([]Info, error) {
	inst, err := m.reg.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(inst.Mods))
	for _, mod := range inst.Mods {
		info := Info{
			ID:      mod.ID,
			Enabled: mod.Enabled,
			Options: mod.Options,
		}
		if m.names != nil {
			if displayName, err := m.names.Name(ctx, mod.ID); err == nil {
				info.DisplayName = displayName
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Add appends a mod to the instance's list. The mod starts enabled unless
// told otherwise; options may be nil.
func (m *Manager) Add(ctx context.Context, name, modID string, enabled bool, options map[string]interface{}) (*cluster.Instance, error) {
	if err := validation.ModID(modID); err != nil {
		return nil, err
	}

	inst, err := m.reg.Mutate(ctx, name, func(inst *cluster.Instance) error {
		if inst.Mod(modID) != nil {
			return errors.DuplicateMod(inst.Name, modID)
		}
		inst.Mods = append(inst.Mods, cluster.ModEntry{
			ID:      modID,
			Enabled: enabled,
			Options: options,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithInstance(inst.Name).WithField("mod", modID).Info("Mod added")
	return inst, nil
}

// Remove deletes a mod from the instance's list
func (m *Manager) Remove(ctx context.Context, name, modID string) (*cluster.Instance, error) {
	inst, err := m.reg.Mutate(ctx, name, func(inst *cluster.Instance) error {
		for i, mod := range inst.Mods {
			if mod.ID == modID {
				inst.Mods = append(inst.Mods[:i], inst.Mods[i+1:]...)
				return nil
			}
		}
		return errors.UnknownMod(inst.Name, modID)
	})
	if err != nil {
		return nil, err
	}

	logger.WithInstance(inst.Name).WithField("mod", modID).Info("Mod removed")
	return inst, nil
}

// SetEnabled flips a mod's enabled flag without touching its options or
// its position in the list.
func (m *Manager) SetEnabled(ctx context.Context, name, modID string, enabled bool) (*cluster.Instance, error) {
	return m.reg.Mutate(ctx, name, func(inst *cluster.Instance) error {
		mod := inst.Mod(modID)
		if mod == nil {
			return errors.UnknownMod(inst.Name, modID)
		}
		mod.Enabled = enabled
		return nil
	})
}

// Configure replaces a mod's configuration options
func (m *Manager) Configure(ctx context.Context, name, modID string, options map[string]interface{}) (*cluster.Instance, error) {
	return m.reg.Mutate(ctx, name, func(inst *cluster.Instance) error {
		mod := inst.Mod(modID)
		if mod == nil {
			return errors.UnknownMod(inst.Name, modID)
		}
		mod.Options = options
		return nil
	})
}

// Reorder rearranges the mod list into the given order. The order must be
// an exact permutation of the configured mod IDs; load order matters to
// the game, so a partial or padded list is rejected rather than guessed at.
func (m *Manager) Reorder(ctx context.Context, name string, order []string) (*cluster.Instance, error) {
	return m.reg.Mutate(ctx, name, func(inst *cluster.Instance) error {
		if err := checkPermutation(inst, order); err != nil {
			return err
		}

		reordered := make([]cluster.ModEntry, 0, len(order))
		for _, modID := range order {
			reordered = append(reordered, *inst.Mod(modID))
		}
		inst.Mods = reordered
		return nil
	})
}

// checkPermutation verifies that order names every configured mod exactly once
func checkPermutation(inst *cluster.Instance, order []string) error {
	if len(order) != len(inst.Mods) {
		return errors.ValidationFailed("order", strings.Join(order, ","),
			"order must name every configured mod exactly once")
	}

	seen := map[string]bool{}
	for _, modID := range order {
		if seen[modID] {
			return errors.ValidationFailed("order", modID, "mod listed twice")
		}
		seen[modID] = true
		if inst.Mod(modID) == nil {
			return errors.UnknownMod(inst.Name, modID)
		}
	}
	return nil
}
