package supervisor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/constants"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/logger"

	"github.com/fsnotify/fsnotify"
)

// livenessMarker is the line the master shard prints once the simulation
// is up and accepting connections.
const livenessMarker = "Sim paused"

// waitForMarker tails the shard log until the liveness marker appears or
// ctx is done. Write events drive the scan; a periodic re-read covers
// events the watcher may drop under load.
func waitForMarker(ctx context.Context, logPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// No inotify available; fall back to pure polling.
		logger.WithError(err).Debug("fsnotify unavailable, polling shard log")
		return pollForMarker(ctx, logPath)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(logPath)); err != nil {
		return pollForMarker(ctx, logPath)
	}

	ticker := time.NewTicker(constants.PollInterval)
	defer ticker.Stop()

	var offset int64
	for {
		found, newOffset := scanForMarker(logPath, offset)
		if found {
			return nil
		}
		offset = newOffset

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-watcher.Events:
			if ev.Name != logPath || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
		case err := <-watcher.Errors:
			logger.WithError(err).Debug("shard log watch error")
		case <-ticker.C:
		}
	}
}

// pollForMarker is the fsnotify-free fallback
func pollForMarker(ctx context.Context, logPath string) error {
	ticker := time.NewTicker(constants.PollInterval)
	defer ticker.Stop()

	var offset int64
	for {
		found, newOffset := scanForMarker(logPath, offset)
		if found {
			return nil
		}
		offset = newOffset

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// scanForMarker reads the log from offset and reports whether the marker
// was seen. The returned offset is rewound by the marker length so a
// marker split across two reads is still found.
func scanForMarker(logPath string, offset int64) (bool, int64) {
	f, err := os.Open(logPath)
	if err != nil {
		return false, offset
	}
	defer f.Close()

	if _, err := f.Seek(offset, 0); err != nil {
		return false, offset
	}

	buf := make([]byte, 64*1024)
	marker := []byte(livenessMarker)
	var tail []byte
	for {
		n, err := f.Read(buf)
		if n > 0 {
			chunk := append(tail, buf[:n]...)
			if bytes.Contains(chunk, marker) {
				return true, offset
			}
			if len(chunk) > len(marker) {
				tail = append([]byte(nil), chunk[len(chunk)-len(marker):]...)
			} else {
				tail = append([]byte(nil), chunk...)
			}
			offset += int64(n)
		}
		if err != nil {
			break
		}
	}

	rewind := offset - int64(len(marker))
	if rewind < 0 {
		rewind = 0
	}
	return false, rewind
}
