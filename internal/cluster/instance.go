// Package cluster models one managed dedicated-server cluster and its
// on-disk configuration layout.
package cluster

import (
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/constants"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/validation"
)

// Status represents the lifecycle state of an instance
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusCrashed  Status = "crashed"

	// StatusInvalid marks an instance whose on-disk config failed to parse.
	// It is surfaced by the registry, never written to disk.
	StatusInvalid Status = "invalid"
)

// Ports is the network port triple of one instance. The Caves shard
// additionally binds Game+1 for its own simulation traffic.
type Ports struct {
	Game   int `json:"game"`
	Master int `json:"master"`
	Auth   int `json:"auth"`
}

// All returns every host port the instance binds while running.
func (p Ports) All() []int {
	return []int{p.Game, p.Game + 1, p.Master, p.Auth}
}

// Overlaps reports whether two port sets collide on any port, and on which.
func (p Ports) Overlaps(other Ports) (int, bool) {
	for _, a := range p.All() {
		for _, b := range other.All() {
			if a == b {
				return a, true
			}
		}
	}
	return 0, false
}

// Settings holds the display and gameplay settings of one instance
type Settings struct {
	Description    string `json:"description"`
	GameMode       string `json:"game_mode"`
	MaxPlayers     int    `json:"max_players"`
	PVP            bool   `json:"pvp"`
	Password       string `json:"password"`
	PauseWhenEmpty bool   `json:"pause_when_empty"`
	Intention      string `json:"intention"`
	ConsoleEnabled bool   `json:"console_enabled"`
	WorldPreset    string `json:"world_preset"`
}

// ShardNet holds the intra-cluster shard wiring written to cluster.ini.
// Stock values work for a single-host Master+Caves cluster.
type ShardNet struct {
	BindIP     string `json:"bind_ip"`
	MasterIP   string `json:"master_ip"`
	MasterPort int    `json:"master_port"`
	ClusterKey string `json:"cluster_key"`
}

// ModEntry is one workshop mod configured on an instance. Order within
// Instance.Mods determines load order and survives serialization.
type ModEntry struct {
	ID      string                 `json:"id"`
	Enabled bool                   `json:"enabled"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// ExtraKey is an unrecognized ini key carried through parse and re-emitted
// on render, so settings added by newer server builds are never dropped.
type ExtraKey struct {
	Section string `json:"section"`
	Key     string `json:"key"`
	Value   string `json:"value"`
}

// Instance is one managed server definition. Name doubles as the cluster
// directory name under the instances path.
type Instance struct {
	Name     string                            `json:"name"`
	Settings Settings                          `json:"settings"`
	Token    string                            `json:"-"`
	Ports    Ports                             `json:"ports"`
	ShardNet ShardNet                          `json:"shard_net"`
	Mods     []ModEntry                        `json:"mods"`
	World    map[string]map[string]interface{} `json:"world"`

	// Extra preserves unknown ini keys per relative file path.
	Extra map[string][]ExtraKey `json:"-"`

	// Status is runtime state owned by the supervisor; never serialized
	// into the cluster directory.
	Status Status `json:"status"`
}

// DefaultSettings returns the stock settings for a new instance
func DefaultSettings() Settings {
	return Settings{
		Description:    constants.DefaultDescription,
		GameMode:       constants.DefaultGameMode,
		MaxPlayers:     constants.DefaultMaxPlayers,
		PVP:            false,
		Password:       "",
		PauseWhenEmpty: true,
		Intention:      "cooperative",
		ConsoleEnabled: true,
		WorldPreset:    constants.DefaultWorldPreset,
	}
}

// DefaultShardNet returns the stock shard wiring
func DefaultShardNet() ShardNet {
	return ShardNet{
		BindIP:     "127.0.0.1",
		MasterIP:   "127.0.0.1",
		MasterPort: constants.DefaultShardMasterPort,
		ClusterKey: "defaultkey",
	}
}

// DefaultPorts returns the stock port triple
func DefaultPorts() Ports {
	return Ports{
		Game:   constants.DefaultGamePort,
		Master: constants.DefaultMasterPort,
		Auth:   constants.DefaultAuthPort,
	}
}

// New creates an instance with stock settings
func New(name, token string) *Instance {
	return &Instance{
		Name:     name,
		Settings: DefaultSettings(),
		Token:    token,
		Ports:    DefaultPorts(),
		ShardNet: DefaultShardNet(),
		Mods:     nil,
		World:    nil,
		Status:   StatusStopped,
	}
}

// Validate checks the instance definition before any write
func (i *Instance) Validate() error {
	if err := validation.InstanceName(i.Name); err != nil {
		return err
	}

	if err := validation.PortTriple(i.Ports.Game, i.Ports.Master, i.Ports.Auth); err != nil {
		return err
	}

	// Every string that lands on a config line must stay on that line.
	fields := []struct {
		name  string
		value string
	}{
		{"description", i.Settings.Description},
		{"game_mode", i.Settings.GameMode},
		{"password", i.Settings.Password},
		{"intention", i.Settings.Intention},
		{"world_preset", i.Settings.WorldPreset},
		{"bind_ip", i.ShardNet.BindIP},
		{"master_ip", i.ShardNet.MasterIP},
		{"cluster_key", i.ShardNet.ClusterKey},
		{"token", i.Token},
	}
	for _, f := range fields {
		if err := validation.SettingString(f.name, f.value); err != nil {
			return err
		}
	}

	for _, m := range i.Mods {
		if err := validation.ModID(m.ID); err != nil {
			return err
		}
	}

	return nil
}

// Mod returns the mod entry with the given id, or nil
func (i *Instance) Mod(id string) *ModEntry {
	for idx := range i.Mods {
		if i.Mods[idx].ID == id {
			return &i.Mods[idx]
		}
	}
	return nil
}

// ModIDs returns the configured mod ids in load order
func (i *Instance) ModIDs() []string {
	ids := make([]string, len(i.Mods))
	for idx, m := range i.Mods {
		ids[idx] = m.ID
	}
	return ids
}
