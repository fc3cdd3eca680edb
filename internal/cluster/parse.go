package cluster

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/constants"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/errors"
)

// Parse reconstructs an instance from an existing cluster directory.
// Missing optional files and keys fall back to stock defaults; unknown ini
// keys are preserved in Extra and re-emitted verbatim by Render. A malformed
// file aborts the parse with a ConfigParse error naming the file and line.
func Parse(dir string) (*Instance, error) {
	inst := &Instance{
		Name:     filepath.Base(dir),
		Settings: DefaultSettings(),
		Ports:    DefaultPorts(),
		ShardNet: DefaultShardNet(),
		Status:   StatusStopped,
	}

	if err := inst.parseClusterINI(dir); err != nil {
		return nil, err
	}
	if err := inst.parseToken(dir); err != nil {
		return nil, err
	}
	if err := inst.parseServerINI(dir, constants.ShardMaster); err != nil {
		return nil, err
	}
	if err := inst.parseServerINI(dir, constants.ShardCaves); err != nil {
		return nil, err
	}
	if err := inst.parseWorld(dir); err != nil {
		return nil, err
	}
	if err := inst.parseMods(dir); err != nil {
		return nil, err
	}

	return inst, nil
}

func (inst *Instance) parseClusterINI(dir string) error {
	data, ok, err := readOptional(filepath.Join(dir, FileClusterINI))
	if err != nil || !ok {
		return err
	}

	doc, err := parseINI(FileClusterINI, data)
	if err != nil {
		return err
	}

	if s := doc.lookup("GAMEPLAY"); s != nil {
		takeString(s, "game_mode", &inst.Settings.GameMode)
		if err := takeInt(FileClusterINI, s, "max_players", &inst.Settings.MaxPlayers); err != nil {
			return err
		}
		if err := takeBool(FileClusterINI, s, "pvp", &inst.Settings.PVP); err != nil {
			return err
		}
		if err := takeBool(FileClusterINI, s, "pause_when_empty", &inst.Settings.PauseWhenEmpty); err != nil {
			return err
		}
		takeString(s, "world_preset", &inst.Settings.WorldPreset)
	}

	if s := doc.lookup("NETWORK"); s != nil {
		// cluster_name mirrors the directory name; the directory wins.
		s.take("cluster_name")
		takeString(s, "cluster_description", &inst.Settings.Description)
		takeString(s, "cluster_password", &inst.Settings.Password)
		takeString(s, "cluster_intention", &inst.Settings.Intention)
	}

	if s := doc.lookup("MISC"); s != nil {
		if err := takeBool(FileClusterINI, s, "console_enabled", &inst.Settings.ConsoleEnabled); err != nil {
			return err
		}
	}

	if s := doc.lookup("SHARD"); s != nil {
		s.take("shard_enabled")
		takeString(s, "bind_ip", &inst.ShardNet.BindIP)
		takeString(s, "master_ip", &inst.ShardNet.MasterIP)
		if err := takeInt(FileClusterINI, s, "master_port", &inst.ShardNet.MasterPort); err != nil {
			return err
		}
		takeString(s, "cluster_key", &inst.ShardNet.ClusterKey)
	}

	inst.setExtras(FileClusterINI, doc.remaining())
	return nil
}

func (inst *Instance) parseToken(dir string) error {
	data, ok, err := readOptional(filepath.Join(dir, FileClusterToken))
	if err != nil || !ok {
		return err
	}
	inst.Token = strings.TrimSpace(string(data))
	return nil
}

func (inst *Instance) parseServerINI(dir, shardName string) error {
	rel := FileMasterINI
	if shardName == constants.ShardCaves {
		rel = FileCavesINI
	}

	data, ok, err := readOptional(filepath.Join(dir, rel))
	if err != nil || !ok {
		return err
	}

	doc, err := parseINI(rel, data)
	if err != nil {
		return err
	}

	isMaster := shardName == constants.ShardMaster

	if s := doc.lookup("NETWORK"); s != nil {
		if isMaster {
			if err := takeInt(rel, s, "server_port", &inst.Ports.Game); err != nil {
				return err
			}
		} else {
			// Derived from the master port triple; drop without recording.
			s.take("server_port")
		}
	}

	if s := doc.lookup("STEAM"); s != nil && isMaster {
		if err := takeInt(rel, s, "master_server_port", &inst.Ports.Master); err != nil {
			return err
		}
		if err := takeInt(rel, s, "authentication_port", &inst.Ports.Auth); err != nil {
			return err
		}
	}

	if s := doc.lookup("SHARD"); s != nil {
		s.take("is_master")
		s.take("name")
		s.take("id")
	}

	inst.setExtras(rel, doc.remaining())
	return nil
}

func (inst *Instance) parseWorld(dir string) error {
	for shardName, rel := range map[string]string{
		constants.ShardMaster: FileMasterWorld,
		constants.ShardCaves:  FileCavesWorld,
	} {
		data, ok, err := readOptional(filepath.Join(dir, rel))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		overrides, err := parseWorldOverrides(rel, data)
		if err != nil {
			return err
		}
		if len(overrides) == 0 {
			continue
		}

		if inst.World == nil {
			inst.World = map[string]map[string]interface{}{}
		}
		inst.World[shardName] = overrides
	}
	return nil
}

func (inst *Instance) parseMods(dir string) error {
	// Both shards carry identical modoverrides.lua copies; the Master copy
	// is authoritative.
	data, ok, err := readOptional(filepath.Join(dir, FileMasterMods))
	if err != nil || !ok {
		return err
	}

	mods, err := parseModOverrides(FileMasterMods, data)
	if err != nil {
		return err
	}
	inst.Mods = mods
	return nil
}

func (inst *Instance) setExtras(rel string, extras []ExtraKey) {
	if len(extras) == 0 {
		return
	}
	if inst.Extra == nil {
		inst.Extra = map[string][]ExtraKey{}
	}
	inst.Extra[rel] = extras
}

// readOptional reads a file that may legitimately be absent
func readOptional(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrFileRead, "failed to read config file", err).
			WithContext("path", path)
	}
	return data, true, nil
}

func takeString(s *iniSection, key string, dst *string) {
	if k, ok := s.take(key); ok {
		*dst = k.value
	}
}

func takeInt(file string, s *iniSection, key string, dst *int) error {
	k, ok := s.take(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(k.value)
	if err != nil {
		return errors.ConfigParse(file, k.line,
			fmt.Errorf("key %s: expected integer, got %q", key, k.value))
	}
	*dst = n
	return nil
}

func takeBool(file string, s *iniSection, key string, dst *bool) error {
	k, ok := s.take(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(k.value)
	if err != nil {
		return errors.ConfigParse(file, k.line,
			fmt.Errorf("key %s: expected boolean, got %q", key, k.value))
	}
	*dst = b
	return nil
}
