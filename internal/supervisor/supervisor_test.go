package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/cluster"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/config"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/constants"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/errors"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/registry"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/world"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fake server binaries. The supervisor only looks at the process lifetime
// and the liveness marker in the captured log, so a shell script is enough.
const (
	scriptHealthy = `#!/bin/sh
echo "[00:00:01]: Starting Up"
echo "[00:00:02]: Sim paused"
trap 'exit 0' TERM
while :; do sleep 0.1; done
`
	scriptCrashOnLaunch = `#!/bin/sh
echo "[00:00:01]: Error during initialization"
exit 1
`
	scriptNeverReady = `#!/bin/sh
echo "[00:00:01]: Starting Up"
trap 'exit 0' TERM
while :; do sleep 0.1; done
`
	scriptDiesAfterReady = `#!/bin/sh
echo "[00:00:02]: Sim paused"
sleep 0.5
exit 1
`
	scriptIgnoresTerm = `#!/bin/sh
echo "[00:00:02]: Sim paused"
trap '' TERM
while :; do sleep 0.1; done
`
)

func newTestSupervisor(t *testing.T) (*Supervisor, *registry.Registry, *config.GlobalConfig) {
	t.Helper()
	cfg := &config.GlobalConfig{
		Storage: config.StorageConfig{
			InstancesPath: t.TempDir(),
			InstallPath:   t.TempDir(),
		},
		Supervisor: config.SupervisorConfig{
			StartTimeoutSeconds: 10,
			StopGraceSeconds:    1,
		},
	}
	reg := registry.New(cfg.Storage.InstancesPath, world.NewCatalog(""))
	return New(cfg, reg), reg, cfg
}

func installFakeBinary(t *testing.T, cfg *config.GlobalConfig, script string) {
	t.Helper()
	bin := filepath.Join(cfg.Storage.InstallPath, filepath.FromSlash(constants.ServerBinary64))
	require.NoError(t, os.MkdirAll(filepath.Dir(bin), 0755))
	require.NoError(t, os.WriteFile(bin, []byte(script), 0755))
}

func TestStartAndStop(t *testing.T) {
	s, reg, cfg := newTestSupervisor(t)
	installFakeBinary(t, cfg, scriptHealthy)
	ctx := context.Background()

	_, err := reg.Create(ctx, "Forest", "T1", registry.CreateOptions{})
	require.NoError(t, err)

	require.NoError(t, s.Start(ctx, "Forest"))
	assert.Equal(t, cluster.StatusRunning, s.Poll("Forest"))
	assert.Greater(t, s.Uptime("Forest"), time.Duration(0))

	// The master shard's console output was captured.
	logData, err := os.ReadFile(filepath.Join(reg.Dir("Forest"), "Master", "server_log.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "Sim paused")

	require.NoError(t, s.Stop(ctx, "Forest"))
	assert.Equal(t, cluster.StatusStopped, s.Poll("Forest"))
	assert.Equal(t, time.Duration(0), s.Uptime("Forest"))
}

func TestStartUnknownInstance(t *testing.T) {
	s, _, cfg := newTestSupervisor(t)
	installFakeBinary(t, cfg, scriptHealthy)

	err := s.Start(context.Background(), "Nope")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrNotFound))
}

func TestStartWithoutToken(t *testing.T) {
	s, reg, cfg := newTestSupervisor(t)
	installFakeBinary(t, cfg, scriptHealthy)
	ctx := context.Background()

	_, err := reg.Create(ctx, "Forest", "", registry.CreateOptions{})
	require.NoError(t, err)

	err = s.Start(ctx, "Forest")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrMissingToken))
	assert.Equal(t, cluster.StatusStopped, s.Poll("Forest"))
}

func TestStartWithoutBinary(t *testing.T) {
	s, reg, _ := newTestSupervisor(t)
	ctx := context.Background()

	_, err := reg.Create(ctx, "Forest", "T1", registry.CreateOptions{})
	require.NoError(t, err)

	err = s.Start(ctx, "Forest")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrBinaryMissing))
}

func TestStartAlreadyRunning(t *testing.T) {
	s, reg, cfg := newTestSupervisor(t)
	installFakeBinary(t, cfg, scriptHealthy)
	ctx := context.Background()

	_, err := reg.Create(ctx, "Forest", "T1", registry.CreateOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Start(ctx, "Forest"))
	defer s.Stop(ctx, "Forest")

	err = s.Start(ctx, "Forest")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))

	// Still running; the failed start must not have touched the processes.
	assert.Equal(t, cluster.StatusRunning, s.Poll("Forest"))
}

func TestStartPortConflict(t *testing.T) {
	s, reg, cfg := newTestSupervisor(t)
	installFakeBinary(t, cfg, scriptHealthy)
	ctx := context.Background()

	// Both instances keep the default ports. Creating them is fine; the
	// conflict only surfaces when the second one tries to run.
	_, err := reg.Create(ctx, "Forest", "T1", registry.CreateOptions{})
	require.NoError(t, err)
	_, err = reg.Create(ctx, "Cave", "T1", registry.CreateOptions{})
	require.NoError(t, err)

	require.NoError(t, s.Start(ctx, "Forest"))
	defer s.Stop(ctx, "Forest")

	err = s.Start(ctx, "Cave")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrPortConflict))
	assert.Equal(t, cluster.StatusStopped, s.Poll("Cave"))
}

func TestStartPortConflictOnCavesPort(t *testing.T) {
	s, reg, cfg := newTestSupervisor(t)
	installFakeBinary(t, cfg, scriptHealthy)
	ctx := context.Background()

	_, err := reg.Create(ctx, "Forest", "T1", registry.CreateOptions{})
	require.NoError(t, err)
	_, err = reg.Create(ctx, "Cave", "T1", registry.CreateOptions{})
	require.NoError(t, err)

	// Cave's game port lands on Forest's caves-shard port (game+1).
	_, err = reg.SetPorts(ctx, "Cave", cluster.Ports{
		Game:   constants.DefaultGamePort + 1,
		Master: 27020,
		Auth:   8800,
	})
	require.NoError(t, err)

	require.NoError(t, s.Start(ctx, "Forest"))
	defer s.Stop(ctx, "Forest")

	err = s.Start(ctx, "Cave")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrPortConflict))
}

func TestDistinctPortsRunConcurrently(t *testing.T) {
	s, reg, cfg := newTestSupervisor(t)
	installFakeBinary(t, cfg, scriptHealthy)
	ctx := context.Background()

	_, err := reg.Create(ctx, "Forest", "T1", registry.CreateOptions{})
	require.NoError(t, err)
	_, err = reg.Create(ctx, "Cave", "T1", registry.CreateOptions{})
	require.NoError(t, err)
	_, err = reg.SetPorts(ctx, "Cave", cluster.Ports{Game: 11010, Master: 27020, Auth: 8800})
	require.NoError(t, err)

	require.NoError(t, s.Start(ctx, "Forest"))
	defer s.Stop(ctx, "Forest")
	require.NoError(t, s.Start(ctx, "Cave"))
	defer s.Stop(ctx, "Cave")

	assert.Equal(t, cluster.StatusRunning, s.Poll("Forest"))
	assert.Equal(t, cluster.StatusRunning, s.Poll("Cave"))
}

func TestStartCrashOnLaunch(t *testing.T) {
	s, reg, cfg := newTestSupervisor(t)
	installFakeBinary(t, cfg, scriptCrashOnLaunch)
	ctx := context.Background()

	_, err := reg.Create(ctx, "Forest", "T1", registry.CreateOptions{})
	require.NoError(t, err)

	err = s.Start(ctx, "Forest")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrProcessCrashed))
	assert.Equal(t, cluster.StatusCrashed, s.Poll("Forest"))

	// Crashed is not terminal; a fixed instance may be started again.
	installFakeBinary(t, cfg, scriptHealthy)
	require.NoError(t, s.Start(ctx, "Forest"))
	require.NoError(t, s.Stop(ctx, "Forest"))
}

func TestStartTimeout(t *testing.T) {
	s, reg, cfg := newTestSupervisor(t)
	cfg.Supervisor.StartTimeoutSeconds = 1
	installFakeBinary(t, cfg, scriptNeverReady)
	ctx := context.Background()

	_, err := reg.Create(ctx, "Forest", "T1", registry.CreateOptions{})
	require.NoError(t, err)

	err = s.Start(ctx, "Forest")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrTimeout))
	assert.Equal(t, cluster.StatusCrashed, s.Poll("Forest"))
}

func TestStartCancelled(t *testing.T) {
	s, reg, cfg := newTestSupervisor(t)
	installFakeBinary(t, cfg, scriptNeverReady)

	_, err := reg.Create(context.Background(), "Forest", "T1", registry.CreateOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	err = s.Start(ctx, "Forest")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCancelled))
	assert.Equal(t, cluster.StatusStopped, s.Poll("Forest"))
}

func TestCrashWhileRunningDetectedByPoll(t *testing.T) {
	s, reg, cfg := newTestSupervisor(t)
	installFakeBinary(t, cfg, scriptDiesAfterReady)
	ctx := context.Background()

	_, err := reg.Create(ctx, "Forest", "T1", registry.CreateOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Start(ctx, "Forest"))

	assert.Eventually(t, func() bool {
		return s.Poll("Forest") == cluster.StatusCrashed
	}, 5*time.Second, 50*time.Millisecond)

	// Sticky until the next start.
	assert.Equal(t, cluster.StatusCrashed, s.Poll("Forest"))
}

func TestStopEscalatesToKill(t *testing.T) {
	s, reg, cfg := newTestSupervisor(t)
	installFakeBinary(t, cfg, scriptIgnoresTerm)
	ctx := context.Background()

	_, err := reg.Create(ctx, "Forest", "T1", registry.CreateOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Start(ctx, "Forest"))

	s.mu.Lock()
	h := s.handles["forest"]
	s.mu.Unlock()
	require.NotNil(t, h)
	require.Len(t, h.shards, 2)

	start := time.Now()
	require.NoError(t, s.Stop(ctx, "Forest"))
	assert.Equal(t, cluster.StatusStopped, s.Poll("Forest"))

	// Both shards ignore SIGTERM, so the kill escalation must cover every
	// shard within the single one-second grace period, not one grace period
	// per shard.
	assert.Less(t, time.Since(start), 4*time.Second)
	for _, proc := range h.shards {
		select {
		case <-proc.done:
		default:
			t.Fatalf("shard %s was never reaped", proc.shard)
		}
	}
}

func TestStopWhenNotRunning(t *testing.T) {
	s, reg, cfg := newTestSupervisor(t)
	installFakeBinary(t, cfg, scriptHealthy)
	ctx := context.Background()

	_, err := reg.Create(ctx, "Forest", "T1", registry.CreateOptions{})
	require.NoError(t, err)

	err = s.Stop(ctx, "Forest")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidInput))
}

func TestPollIsCaseInsensitive(t *testing.T) {
	s, reg, cfg := newTestSupervisor(t)
	installFakeBinary(t, cfg, scriptHealthy)
	ctx := context.Background()

	_, err := reg.Create(ctx, "Forest", "T1", registry.CreateOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Start(ctx, "Forest"))
	defer s.Stop(ctx, "Forest")

	assert.Equal(t, cluster.StatusRunning, s.Poll("forest"))
	assert.Equal(t, cluster.StatusRunning, s.Poll("FOREST"))
}
