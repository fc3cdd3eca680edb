// Package supervisor owns the OS processes behind running instances.
// It is the only component that holds process handles; everyone else
// observes instances through Poll.
package supervisor

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/cluster"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/config"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/constants"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/errors"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/logger"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/registry"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/validation"
)

// shardProc is one launched shard process
type shardProc struct {
	shard   string
	cmd     *exec.Cmd
	logFile *os.File

	done     chan struct{}
	exitCode int
}

// handle is the supervisor-owned state of one instance. Registry and CLI
// only ever see the status, never the handle itself.
type handle struct {
	name          string
	ports         cluster.Ports
	status        cluster.Status
	stopRequested bool
	shards        []*shardProc
	startedAt     time.Time
}

// Supervisor starts, stops and polls dedicated-server processes
type Supervisor struct {
	cfg *config.GlobalConfig
	reg *registry.Registry

	mu      sync.Mutex
	handles map[string]*handle
}

// New creates a supervisor and wires it into the registry as the
// live-status source.
func New(cfg *config.GlobalConfig, reg *registry.Registry) *Supervisor {
	s := &Supervisor{
		cfg:     cfg,
		reg:     reg,
		handles: map[string]*handle{},
	}
	reg.SetStatusFunc(s.Poll)
	return s
}

// Poll returns the current status of an instance. It never blocks and is
// safe for instances with no live process. A running instance whose
// processes died without a stop request is flipped to crashed here.
func (s *Supervisor) Poll(name string) cluster.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[strings.ToLower(name)]
	if !ok {
		return cluster.StatusStopped
	}

	if h.status == cluster.StatusRunning && !h.stopRequested && h.allExited() {
		logger.WithInstance(h.name).Warn("Server processes exited unexpectedly")
		h.status = cluster.StatusCrashed
	}

	return h.status
}

// Uptime returns how long an instance has been running, or zero
func (s *Supervisor) Uptime(name string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[strings.ToLower(name)]
	if !ok || h.status != cluster.StatusRunning {
		return 0
	}
	return time.Since(h.startedAt)
}

// Start launches both shard processes of an instance and blocks until the
// master shard reports liveness, the start times out, or ctx is cancelled.
// A cancelled or timed-out start never leaves processes behind.
func (s *Supervisor) Start(ctx context.Context, name string) error {
	inst, err := s.reg.Get(ctx, name)
	if err != nil {
		return err
	}
	name = inst.Name

	if err := validation.ClusterToken(inst.Token); err != nil {
		return errors.MissingToken(name)
	}

	binary := s.cfg.ServerBinaryPath()
	if _, err := os.Stat(binary); err != nil {
		return errors.BinaryMissing(binary)
	}

	h, err := s.claim(name, inst.Ports)
	if err != nil {
		return err
	}

	if err := s.launchShards(h, binary); err != nil {
		s.release(name)
		return err
	}

	logger.WithInstance(name).Info("Shards launched, waiting for liveness")

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.StartTimeout())
	defer cancel()

	masterLog := s.shardLogPath(name, constants.ShardMaster)
	livenessErr := s.awaitLiveness(waitCtx, h, masterLog)
	if livenessErr == nil {
		s.mu.Lock()
		h.status = cluster.StatusRunning
		h.startedAt = time.Now()
		s.mu.Unlock()
		logger.WithInstance(name).Info("Instance running")
		return nil
	}

	// Liveness never arrived. Tear the processes down; a cancelled start
	// ends stopped, a timed-out or crashed one ends crashed.
	s.terminate(h)

	if ctx.Err() != nil {
		s.release(name)
		logger.WithInstance(name).Info("Start cancelled")
		return errors.Cancelled("start")
	}

	s.mu.Lock()
	h.status = cluster.StatusCrashed
	s.mu.Unlock()
	return livenessErr
}

// Stop terminates an instance's processes gracefully, escalating to a hard
// kill after the grace period. The instance always ends stopped.
func (s *Supervisor) Stop(ctx context.Context, name string) error {
	s.mu.Lock()
	h, ok := s.handles[strings.ToLower(name)]
	if !ok || (h.status != cluster.StatusRunning && h.status != cluster.StatusStarting) {
		s.mu.Unlock()
		status := cluster.StatusStopped
		if ok {
			status = h.status
		}
		return errors.NewWithDetails(errors.ErrInvalidInput, "Instance is not running",
			"Instance: "+name+", Status: "+string(status))
	}
	h.stopRequested = true
	h.status = cluster.StatusStopping
	s.mu.Unlock()

	logger.WithInstance(h.name).Info("Stopping instance")
	s.terminate(h)
	s.release(h.name)
	logger.WithInstance(h.name).Info("Instance stopped")
	return nil
}

// claim transitions an instance to starting after the conflict checks.
// Holding s.mu across the checks makes concurrent starts race-free.
func (s *Supervisor) claim(name string, ports cluster.Ports) (*handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(name)
	if existing, ok := s.handles[key]; ok {
		switch existing.status {
		case cluster.StatusStopped, cluster.StatusCrashed:
			// Stale handle from a previous run; replace it.
		default:
			return nil, errors.AlreadyRunning(name)
		}
	}

	for _, other := range s.handles {
		if other.status != cluster.StatusStarting && other.status != cluster.StatusRunning {
			continue
		}
		if port, overlap := ports.Overlaps(other.ports); overlap {
			return nil, errors.PortConflict(name, other.name, port)
		}
	}

	h := &handle{
		name:   name,
		ports:  ports,
		status: cluster.StatusStarting,
	}
	s.handles[key] = h
	return h, nil
}

// release drops an instance's handle, returning it to stopped
func (s *Supervisor) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handles, strings.ToLower(name))
}

// launchShards starts the Master and Caves processes with stdout captured
// into per-shard log files.
func (s *Supervisor) launchShards(h *handle, binary string) error {
	for _, shard := range []string{constants.ShardMaster, constants.ShardCaves} {
		logPath := s.shardLogPath(h.name, shard)
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return errors.LaunchFailed(h.name, shard, err)
		}
		logFile, err := os.Create(logPath)
		if err != nil {
			return errors.LaunchFailed(h.name, shard, err)
		}

		cmd := exec.Command(binary,
			"-console",
			"-persistent_storage_root", s.reg.BasePath(),
			"-cluster", h.name,
			"-shard", shard,
		)
		cmd.Dir = filepath.Dir(binary)
		cmd.Stdout = logFile
		cmd.Stderr = logFile

		if err := cmd.Start(); err != nil {
			logFile.Close()
			s.terminate(h)
			return errors.LaunchFailed(h.name, shard, err)
		}

		proc := &shardProc{
			shard:   shard,
			cmd:     cmd,
			logFile: logFile,
			done:    make(chan struct{}),
		}
		h.shards = append(h.shards, proc)

		go s.reap(h.name, proc)
	}
	return nil
}

// reap waits for one shard process and records its exit
func (s *Supervisor) reap(name string, proc *shardProc) {
	err := proc.cmd.Wait()
	proc.logFile.Close()
	if exitErr, ok := err.(*exec.ExitError); ok {
		proc.exitCode = exitErr.ExitCode()
	}
	close(proc.done)
	logger.WithInstance(name).WithFields(logger.Fields{
		"shard":     proc.shard,
		"exit_code": proc.exitCode,
	}).Debug("Shard process exited")
}

// awaitLiveness waits for the master shard's liveness marker while also
// detecting an early process death.
func (s *Supervisor) awaitLiveness(ctx context.Context, h *handle, masterLog string) error {
	markerCh := make(chan error, 1)
	go func() { markerCh <- waitForMarker(ctx, masterLog) }()

	var masterDone chan struct{}
	for _, proc := range h.shards {
		if proc.shard == constants.ShardMaster {
			masterDone = proc.done
		}
	}

	select {
	case err := <-markerCh:
		if err == nil {
			return nil
		}
		if ctx.Err() == context.DeadlineExceeded {
			return errors.StartTimeout(h.name, s.cfg.StartTimeout())
		}
		return err
	case <-masterDone:
		master := h.shardByName(constants.ShardMaster)
		return errors.ProcessCrashed(h.name, constants.ShardMaster, master.exitCode)
	}
}

// terminate signals every shard to exit and kills whatever is still alive
// after the grace period.
func (s *Supervisor) terminate(h *handle) {
	for _, proc := range h.shards {
		if proc.cmd.Process != nil {
			proc.cmd.Process.Signal(syscall.SIGTERM)
		}
	}

	// One absolute deadline shared by all shards. A per-shard time.After
	// would reset the grace period for each stubborn shard in turn.
	deadline := time.Now().Add(s.cfg.StopGrace())
	for _, proc := range h.shards {
		select {
		case <-proc.done:
			continue
		case <-time.After(time.Until(deadline)):
		}
		if proc.cmd.Process != nil {
			logger.WithInstance(h.name).WithField("shard", proc.shard).
				Warn("Shard did not exit in time, killing")
			proc.cmd.Process.Kill()
		}
		<-proc.done
	}
}

func (h *handle) shardByName(shard string) *shardProc {
	for _, proc := range h.shards {
		if proc.shard == shard {
			return proc
		}
	}
	return nil
}

// allExited reports whether every shard process has been reaped
func (h *handle) allExited() bool {
	if len(h.shards) == 0 {
		return false
	}
	for _, proc := range h.shards {
		select {
		case <-proc.done:
		default:
			return false
		}
	}
	return true
}

// shardLogPath is where the supervisor captures a shard's console output
func (s *Supervisor) shardLogPath(name, shard string) string {
	return filepath.Join(s.reg.Dir(name), shard, "server_log.txt")
}
