// Package importer copies save data, mod configuration and settings from an
// existing cluster directory into a managed instance. Everything is staged
// first and swapped into place at the end, so a failed or cancelled import
// leaves the destination exactly as it was.
package importer

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/cluster"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/constants"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/errors"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/logger"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/registry"
)

// Selection names the item kinds to import
type Selection struct {
	WorldSave bool `json:"world_save"`
	ModConfig bool `json:"mod_config"`
	Settings  bool `json:"settings"`
}

// Any reports whether at least one kind is selected
func (s Selection) Any() bool {
	return s.WorldSave || s.ModConfig || s.Settings
}

// Manifest describes one pending import. It lives for the duration of a
// single Import call and is never persisted.
type Manifest struct {
	// Source is a cluster directory: another instance's directory or an
	// external save location with the same shard layout.
	Source string `json:"source"`
	// Destination is the name of the managed target instance.
	Destination string `json:"destination"`
	Selection   Selection `json:"selection"`
}

// Progress reports copy advancement after each chunk
type Progress struct {
	Item        string `json:"item"`
	CopiedBytes int64  `json:"copied_bytes"`
	TotalBytes  int64  `json:"total_bytes"`
}

// ProgressFunc observes copy progress. May be nil.
type ProgressFunc func(Progress)

// item kind names used in errors and progress reports
const (
	itemWorldSave = "world_save"
	itemModConfig = "mod_config"
	itemSettings  = "settings"
)

// Engine performs imports into registry-managed instances
type Engine struct {
	reg *registry.Registry
}

// NewEngine creates an import engine
func NewEngine(reg *registry.Registry) *Engine {
	return &Engine{reg: reg}
}

// importItem is one selected kind resolved to relative paths
type importItem struct {
	kind string
	// rels are paths relative to both source and destination roots. A rel
	// may be a file or a directory; missing optional rels are skipped.
	rels     []string
	required []string
}

// Import copies the selected kinds from the manifest source into the
// destination instance. The destination must exist and be stopped. Existing
// destination files of a selected kind are fully replaced; this is an
// explicit overwrite, never a merge.
func (e *Engine) Import(ctx context.Context, m Manifest, onProgress ProgressFunc) error {
	if !m.Selection.Any() {
		return errors.ValidationFailed("selection", "", "no item kinds selected")
	}

	srcInfo, err := os.Stat(m.Source)
	if err != nil || !srcInfo.IsDir() {
		return errors.InvalidPath(m.Source, "source is not a directory")
	}

	items := selectedItems(m.Selection)

	return e.reg.Exclusive(ctx, m.Destination, func(destDir string) error {
		if filepath.Clean(m.Source) == filepath.Clean(destDir) {
			return errors.InvalidPath(m.Source, "source and destination are the same directory")
		}

		staging, err := os.MkdirTemp(e.reg.BasePath(), ".import-"+strings.ToLower(m.Destination)+"-")
		if err != nil {
			return errors.Wrap(errors.ErrFileSystem, "failed to create staging directory", err)
		}
		defer os.RemoveAll(staging)

		total, err := totalSize(m.Source, items)
		if err != nil {
			return err
		}

		var copied int64
		for _, item := range items {
			if err := e.stageItem(ctx, m.Source, staging, item, &copied, total, onProgress); err != nil {
				return err
			}
		}

		if m.Selection.ModConfig {
			if err := regenerateModSetup(staging); err != nil {
				return errors.ImportFailed(itemModConfig, err)
			}
		}
		if m.Selection.Settings {
			if err := pinClusterName(filepath.Join(staging, cluster.FileClusterINI), m.Destination); err != nil {
				return errors.ImportFailed(itemSettings, err)
			}
		}

		if err := swapStaged(staging, destDir); err != nil {
			return err
		}

		logger.WithInstance(m.Destination).WithFields(logger.Fields{
			"source":     m.Source,
			"world_save": m.Selection.WorldSave,
			"mod_config": m.Selection.ModConfig,
			"settings":   m.Selection.Settings,
		}).Info("Import completed")
		return nil
	})
}

// selectedItems resolves a selection to the relative paths of each kind
func selectedItems(sel Selection) []importItem {
	var items []importItem
	if sel.WorldSave {
		items = append(items, importItem{
			kind: itemWorldSave,
			rels: []string{
				filepath.Join(constants.ShardMaster, cluster.SaveDir),
				filepath.Join(constants.ShardCaves, cluster.SaveDir),
			},
			required: []string{filepath.Join(constants.ShardMaster, cluster.SaveDir)},
		})
	}
	if sel.ModConfig {
		items = append(items, importItem{
			kind: itemModConfig,
			rels: []string{
				filepath.FromSlash(cluster.FileMasterMods),
				filepath.FromSlash(cluster.FileCavesMods),
			},
			required: []string{filepath.FromSlash(cluster.FileMasterMods)},
		})
	}
	if sel.Settings {
		items = append(items, importItem{
			kind:     itemSettings,
			rels:     []string{cluster.FileClusterINI},
			required: []string{cluster.FileClusterINI},
		})
	}
	return items
}

// stageItem copies one item kind from source into the staging directory
func (e *Engine) stageItem(ctx context.Context, source, staging string, item importItem, copied *int64, total int64, onProgress ProgressFunc) error {
	for _, rel := range item.required {
		if _, err := os.Stat(filepath.Join(source, rel)); err != nil {
			return errors.ImportFailed(item.kind, err)
		}
	}

	for _, rel := range item.rels {
		srcPath := filepath.Join(source, rel)
		if _, err := os.Stat(srcPath); err != nil {
			continue // optional rel absent at source
		}
		if err := copyPath(ctx, srcPath, filepath.Join(staging, rel), item.kind, copied, total, onProgress); err != nil {
			if ctx.Err() != nil {
				return errors.Cancelled("import")
			}
			return errors.ImportFailed(item.kind, err)
		}
	}
	return nil
}

// copyPath copies a file or directory tree
func copyPath(ctx context.Context, src, dst, kind string, copied *int64, total int64, onProgress ProgressFunc) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return copyFile(ctx, src, dst, kind, copied, total, onProgress)
	}

	if err := os.MkdirAll(dst, 0755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := copyPath(ctx, filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name()), kind, copied, total, onProgress); err != nil {
			return err
		}
	}
	return nil
}

// copyFile copies one file in chunks, checking for cancellation and
// reporting progress between chunks.
func copyFile(ctx context.Context, src, dst, kind string, copied *int64, total int64, onProgress ProgressFunc) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	buf := make([]byte, constants.ImportChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			out.Close()
			return err
		}

		n, readErr := in.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				out.Close()
				return err
			}
			*copied += int64(n)
			if onProgress != nil {
				onProgress(Progress{Item: kind, CopiedBytes: *copied, TotalBytes: total})
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			return readErr
		}
	}

	return out.Close()
}

// totalSize sums the byte size of every selected source path
func totalSize(source string, items []importItem) (int64, error) {
	var total int64
	for _, item := range items {
		for _, rel := range item.rels {
			path := filepath.Join(source, rel)
			err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() {
					total += info.Size()
				}
				return nil
			})
			if err != nil && !os.IsNotExist(err) {
				return 0, errors.ImportFailed(item.kind, err)
			}
		}
	}
	return total, nil
}

// regenerateModSetup rebuilds the mod download manifest from the staged
// modoverrides, so the imported mod list and the download list can never
// disagree. The caves copy is overwritten from the master copy for the
// same reason.
func regenerateModSetup(staging string) error {
	masterPath := filepath.Join(staging, filepath.FromSlash(cluster.FileMasterMods))
	data, err := os.ReadFile(masterPath)
	if err != nil {
		return err
	}

	mods, err := cluster.ParseMods(cluster.FileMasterMods, data)
	if err != nil {
		return err
	}

	canonical := cluster.RenderMods(mods)
	if err := os.WriteFile(masterPath, canonical, 0644); err != nil {
		return err
	}
	cavesPath := filepath.Join(staging, filepath.FromSlash(cluster.FileCavesMods))
	if err := os.MkdirAll(filepath.Dir(cavesPath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(cavesPath, canonical, 0644); err != nil {
		return err
	}

	setupPath := filepath.Join(staging, filepath.FromSlash(cluster.FileModSetup))
	if err := os.MkdirAll(filepath.Dir(setupPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(setupPath, cluster.RenderModSetup(mods), 0644)
}

// pinClusterName rewrites the cluster_name key in a staged cluster.ini so
// an imported settings file cannot rename the destination instance.
func pinClusterName(path, name string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "cluster_name") {
			line = "cluster_name = " + name
		}
		out.WriteString(line)
		out.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return os.WriteFile(path, out.Bytes(), 0644)
}

// swapStaged moves every staged path into the destination, backing up the
// originals first so a mid-swap failure can be rolled back.
func swapStaged(staging, destDir string) error {
	rels, err := stagedRels(staging)
	if err != nil {
		return errors.Wrap(errors.ErrFileSystem, "failed to enumerate staged files", err)
	}

	var swapped []string
	rollback := func() {
		for i := len(swapped) - 1; i >= 0; i-- {
			rel := swapped[i]
			dst := filepath.Join(destDir, rel)
			os.RemoveAll(dst)
			os.Rename(dst+".import-old", dst)
		}
	}

	for _, rel := range rels {
		dst := filepath.Join(destDir, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			rollback()
			return errors.ImportFailed(rel, err)
		}

		backup := dst + ".import-old"
		os.RemoveAll(backup)
		hadOriginal := false
		if _, err := os.Stat(dst); err == nil {
			hadOriginal = true
			if err := os.Rename(dst, backup); err != nil {
				rollback()
				return errors.ImportFailed(rel, err)
			}
		}

		if err := os.Rename(filepath.Join(staging, rel), dst); err != nil {
			if hadOriginal {
				os.Rename(backup, dst)
			}
			rollback()
			return errors.ImportFailed(rel, err)
		}
		swapped = append(swapped, rel)
	}

	for _, rel := range swapped {
		os.RemoveAll(filepath.Join(destDir, rel) + ".import-old")
	}
	return nil
}

// stagedRels lists the swap units in a staging directory: whole save
// directories and individual config files.
func stagedRels(staging string) ([]string, error) {
	var rels []string
	candidates := []string{
		filepath.Join(constants.ShardMaster, cluster.SaveDir),
		filepath.Join(constants.ShardCaves, cluster.SaveDir),
		filepath.FromSlash(cluster.FileMasterMods),
		filepath.FromSlash(cluster.FileCavesMods),
		filepath.FromSlash(cluster.FileModSetup),
		cluster.FileClusterINI,
	}
	for _, rel := range candidates {
		if _, err := os.Stat(filepath.Join(staging, rel)); err == nil {
			rels = append(rels, rel)
		}
	}
	return rels, nil
}
