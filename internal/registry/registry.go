// Package registry is the durable catalog of managed server instances.
// The instances directory is the single source of truth: the registry
// derives its view by scanning it, never from a separate index that could
// drift. A short-lived cache sits in front of the scan and is invalidated
// on every write.
package registry

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/cache"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/cluster"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/constants"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/errors"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/logger"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/validation"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/world"
)

// StatusFunc reports the live status of an instance. The supervisor is
// wired in as the status source; a nil func means everything is stopped.
type StatusFunc func(name string) cluster.Status

// CreateOptions carries optional overrides for Create
type CreateOptions struct {
	Settings *cluster.Settings
	Ports    *cluster.Ports
	World    map[string]map[string]interface{}
}

// Registry manages the set of cluster directories under one base path
type Registry struct {
	basePath string
	catalog  *world.Catalog
	statusFn StatusFunc

	cache *cache.Cache[string, *cluster.Instance]

	// locks serializes mutations per instance; the map itself is guarded
	// by mu. Keys are lowercased names.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a registry rooted at basePath
func New(basePath string, catalog *world.Catalog) *Registry {
	return &Registry{
		basePath: basePath,
		catalog:  catalog,
		cache:    cache.New[string, *cluster.Instance](30 * time.Second),
		locks:    map[string]*sync.Mutex{},
	}
}

// SetStatusFunc wires in the supervisor as the live-status source
func (r *Registry) SetStatusFunc(fn StatusFunc) {
	r.statusFn = fn
}

// Presets returns the names of the available world presets
func (r *Registry) Presets() []string {
	return r.catalog.Names()
}

// BasePath returns the instances directory
func (r *Registry) BasePath() string {
	return r.basePath
}

// Dir returns the cluster directory of a named instance
func (r *Registry) Dir(name string) string {
	return filepath.Join(r.basePath, name)
}

// lockFor returns the mutation lock of one instance
func (r *Registry) lockFor(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(name)
	if l, ok := r.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	r.locks[key] = l
	return l
}

// status returns the live status of an instance
func (r *Registry) status(name string) cluster.Status {
	if r.statusFn == nil {
		return cluster.StatusStopped
	}
	return r.statusFn(name)
}

// scanNames returns the directory names of all cluster directories. A
// directory counts as a cluster only if it carries a cluster.ini.
func (r *Registry) scanNames() ([]string, error) {
	entries, err := os.ReadDir(r.basePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrFileSystem, "failed to scan instances directory", err).
			WithContext("path", r.basePath)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		marker := filepath.Join(r.basePath, e.Name(), cluster.FileClusterINI)
		if _, err := os.Stat(marker); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// findDir resolves a name to the on-disk directory name, case-insensitively
func (r *Registry) findDir(name string) (string, bool, error) {
	names, err := r.scanNames()
	if err != nil {
		return "", false, err
	}
	for _, n := range names {
		if validation.SameName(n, name) {
			return n, true, nil
		}
	}
	return "", false, nil
}

// List returns all known instances. An instance whose config fails to
// parse is surfaced with status invalid instead of aborting the whole load.
func (r *Registry) List(ctx context.Context) ([]*cluster.Instance, error) {
	names, err := r.scanNames()
	if err != nil {
		return nil, err
	}

	instances := make([]*cluster.Instance, 0, len(names))
	for _, name := range names {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		inst, err := r.load(name)
		if err != nil {
			logger.WithInstance(name).WithError(err).Warn("Instance config failed to parse")
			instances = append(instances, &cluster.Instance{
				Name:   name,
				Status: cluster.StatusInvalid,
			})
			continue
		}
		instances = append(instances, inst)
	}

	return instances, nil
}

// Get returns one instance by name
func (r *Registry) Get(ctx context.Context, name string) (*cluster.Instance, error) {
	dirName, found, err := r.findDir(name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.InstanceNotFound(name)
	}
	return r.load(dirName)
}

// load parses an instance, going through the cache. Status is always
// refreshed from the supervisor, never cached. Callers get a shallow copy
// so the cached value stays pristine.
func (r *Registry) load(dirName string) (*cluster.Instance, error) {
	key := strings.ToLower(dirName)
	cached, ok := r.cache.Get(key)
	if !ok {
		parsed, err := cluster.Parse(r.Dir(dirName))
		if err != nil {
			return nil, err
		}
		r.cache.Set(key, parsed)
		cached = parsed
	}

	inst := *cached
	inst.Status = r.status(dirName)
	return &inst, nil
}

// Create creates a new instance directory and renders its full config set.
// Port liveness conflicts with other instances are deliberately not checked
// here; two stopped instances may share ports and only collide at start.
func (r *Registry) Create(ctx context.Context, name, token string, opts CreateOptions) (*cluster.Instance, error) {
	if err := validation.InstanceName(name); err != nil {
		return nil, err
	}

	lock := r.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	if _, exists, err := r.findDir(name); err != nil {
		return nil, err
	} else if exists {
		return nil, errors.DuplicateName(name)
	}

	inst := cluster.New(name, token)
	if opts.Settings != nil {
		inst.Settings = *opts.Settings
	}
	if opts.Ports != nil {
		inst.Ports = *opts.Ports
	}

	worldTables, err := r.catalog.Apply(inst.Settings.WorldPreset, opts.World)
	if err != nil {
		return nil, err
	}
	inst.World = worldTables

	if err := inst.Validate(); err != nil {
		return nil, err
	}

	// Assemble the whole directory in a staging location and rename it
	// into place, so a crash mid-create never leaves a half-built cluster.
	staging, err := os.MkdirTemp(r.basePath, ".create-"+strings.ToLower(name)+"-")
	if err != nil {
		if mkErr := os.MkdirAll(r.basePath, 0755); mkErr == nil {
			staging, err = os.MkdirTemp(r.basePath, ".create-"+strings.ToLower(name)+"-")
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrFileSystem, "failed to create staging directory", err)
		}
	}
	defer os.RemoveAll(staging)

	if err := writeFileSet(staging, inst.Render()); err != nil {
		return nil, err
	}
	for _, shard := range []string{constants.ShardMaster, constants.ShardCaves} {
		if err := os.MkdirAll(filepath.Join(staging, shard, cluster.SaveDir), 0755); err != nil {
			return nil, errors.Wrap(errors.ErrFileSystem, "failed to create save directory", err)
		}
	}

	if err := os.Rename(staging, r.Dir(name)); err != nil {
		return nil, errors.Wrap(errors.ErrFileSystem, "failed to move cluster into place", err).
			WithContext("instance", name)
	}

	r.cache.Delete(strings.ToLower(name))
	logger.WithInstance(name).Info("Instance created")
	return r.load(name)
}

// UpdateSettings replaces the settings of a stopped instance and re-renders
// its config. Changing the world preset regenerates the worldgen overrides.
func (r *Registry) UpdateSettings(ctx context.Context, name string, settings cluster.Settings) (*cluster.Instance, error) {
	return r.Mutate(ctx, name, func(inst *cluster.Instance) error {
		if settings.WorldPreset != inst.Settings.WorldPreset {
			worldTables, err := r.catalog.Apply(settings.WorldPreset, nil)
			if err != nil {
				return err
			}
			inst.World = worldTables
		}
		inst.Settings = settings
		return nil
	})
}

// SetToken replaces the cluster token of a stopped instance
func (r *Registry) SetToken(ctx context.Context, name, token string) (*cluster.Instance, error) {
	return r.Mutate(ctx, name, func(inst *cluster.Instance) error {
		inst.Token = strings.TrimSpace(token)
		return nil
	})
}

// SetPorts replaces the port triple of a stopped instance
func (r *Registry) SetPorts(ctx context.Context, name string, ports cluster.Ports) (*cluster.Instance, error) {
	return r.Mutate(ctx, name, func(inst *cluster.Instance) error {
		inst.Ports = ports
		return nil
	})
}

// Mutate applies fn to a stopped instance under its lock, validates the
// result and re-renders the config atomically. The mod manager goes through
// this path for every mod-list change.
func (r *Registry) Mutate(ctx context.Context, name string, fn func(*cluster.Instance) error) (*cluster.Instance, error) {
	lock := r.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	dirName, found, err := r.findDir(name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.InstanceNotFound(name)
	}

	if st := r.status(dirName); st != cluster.StatusStopped {
		return nil, errors.InstanceBusy(dirName, string(st))
	}

	inst, err := cluster.Parse(r.Dir(dirName))
	if err != nil {
		return nil, err
	}

	if err := fn(inst); err != nil {
		return nil, err
	}

	if err := inst.Validate(); err != nil {
		return nil, err
	}

	if err := writeFileSet(r.Dir(dirName), inst.Render()); err != nil {
		return nil, err
	}

	r.cache.Delete(strings.ToLower(dirName))
	logger.WithInstance(dirName).Debug("Instance config updated")
	return r.load(dirName)
}

// Exclusive runs fn against a stopped instance's directory under its
// mutation lock, without the parse/render cycle of Mutate. The import
// engine's bulk file swaps go through here. The cache is invalidated
// afterwards since fn may have replaced config files.
func (r *Registry) Exclusive(ctx context.Context, name string, fn func(dir string) error) error {
	lock := r.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	dirName, found, err := r.findDir(name)
	if err != nil {
		return err
	}
	if !found {
		return errors.InstanceNotFound(name)
	}

	if st := r.status(dirName); st != cluster.StatusStopped {
		return errors.InstanceBusy(dirName, string(st))
	}

	err = fn(r.Dir(dirName))
	r.cache.Delete(strings.ToLower(dirName))
	return err
}

// Delete removes an instance and its directory. An instance with existing
// save data is only deleted when confirm is set.
func (r *Registry) Delete(ctx context.Context, name string, confirm bool) error {
	lock := r.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	dirName, found, err := r.findDir(name)
	if err != nil {
		return err
	}
	if !found {
		return errors.InstanceNotFound(name)
	}

	if st := r.status(dirName); st != cluster.StatusStopped {
		return errors.InstanceBusy(dirName, string(st))
	}

	if r.hasSaveData(dirName) && !confirm {
		return errors.ConfirmRequired(dirName)
	}

	if err := os.RemoveAll(r.Dir(dirName)); err != nil {
		return errors.Wrap(errors.ErrFileSystem, "failed to delete cluster directory", err).
			WithContext("instance", dirName)
	}

	r.cache.Delete(strings.ToLower(dirName))
	logger.WithInstance(dirName).Info("Instance deleted")
	return nil
}

// hasSaveData reports whether any shard has a non-empty save directory
func (r *Registry) hasSaveData(dirName string) bool {
	for _, shard := range []string{constants.ShardMaster, constants.ShardCaves} {
		entries, err := os.ReadDir(filepath.Join(r.Dir(dirName), shard, cluster.SaveDir))
		if err == nil && len(entries) > 0 {
			return true
		}
	}
	return false
}

// writeFileSet writes rendered files under dir. Each file is written to a
// temporary sibling and renamed into place, so a crash mid-write never
// leaves a half-written config.
func writeFileSet(dir string, files map[string][]byte) error {
	for rel, data := range files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return errors.Wrap(errors.ErrFileWrite, "failed to create config directory", err).
				WithContext("path", filepath.Dir(path))
		}

		tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-")
		if err != nil {
			return errors.Wrap(errors.ErrFileWrite, "failed to create temp file", err).
				WithContext("path", path)
		}
		tmpName := tmp.Name()

		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return errors.Wrap(errors.ErrFileWrite, "failed to write config file", err).
				WithContext("path", path)
		}
		if err := tmp.Close(); err != nil {
			os.Remove(tmpName)
			return errors.Wrap(errors.ErrFileWrite, "failed to close temp file", err).
				WithContext("path", path)
		}
		if err := os.Chmod(tmpName, 0644); err != nil {
			os.Remove(tmpName)
			return errors.Wrap(errors.ErrFileWrite, "failed to set file mode", err).
				WithContext("path", path)
		}

		if err := os.Rename(tmpName, path); err != nil {
			os.Remove(tmpName)
			return errors.Wrap(errors.ErrFileWrite, "failed to move config into place", err).
				WithContext("path", path)
		}
	}
	return nil
}
