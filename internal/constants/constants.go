// Package constants defines shared constants for dstkit
package constants

import "time"

// Server defaults
const (
	// DefaultHTTPPort is the default port for the dstkit HTTP API
	DefaultHTTPPort = 8090
)

// Dedicated server defaults. These mirror the stock ports the DST
// dedicated server ships with.
const (
	DefaultGamePort   = 10999
	DefaultMasterPort = 27016
	DefaultAuthPort   = 8768

	// DefaultShardMasterPort is the internal port the Caves shard uses to
	// reach the Master shard on localhost.
	DefaultShardMasterPort = 10889
)

// Shard names. Every cluster managed by dstkit is a two-shard cluster:
// an overworld Master and a Caves shard.
const (
	ShardMaster = "Master"
	ShardCaves  = "Caves"
)

// Gameplay defaults
const (
	DefaultGameMode    = "survival"
	DefaultMaxPlayers  = 6
	DefaultWorldPreset = "default"
	DefaultDescription = "A Don't Starve Together Dedicated Server"
)

// Process supervision timeouts
const (
	// DefaultStartTimeout bounds how long a shard may take to report
	// liveness before the start is declared failed.
	DefaultStartTimeout = 120 * time.Second

	// DefaultStopGrace bounds how long a shard gets to exit after a
	// graceful termination signal before it is killed.
	DefaultStopGrace = 15 * time.Second

	// PollInterval is the supervisor's liveness re-check interval.
	PollInterval = 2 * time.Second
)

// Binary names for the dedicated server executable, relative to the
// server install directory.
const (
	ServerBinary64 = "bin64/dontstarve_dedicated_server_nullrenderer_x64"
	ServerBinary32 = "bin/dontstarve_dedicated_server_nullrenderer"
)

// Import copy tuning
const (
	// ImportChunkSize is the copy buffer size used by the import engine.
	// Cancellation is only observed between chunks.
	ImportChunkSize = 256 * 1024
)
