package cluster

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/constants"
)

// Relative paths of the rendered file set within a cluster directory.
const (
	FileClusterINI    = "cluster.ini"
	FileClusterToken  = "cluster_token.txt"
	FileMasterINI     = "Master/server.ini"
	FileCavesINI      = "Caves/server.ini"
	FileMasterWorld   = "Master/worldgenoverride.lua"
	FileCavesWorld    = "Caves/worldgenoverride.lua"
	FileMasterMods    = "Master/modoverrides.lua"
	FileCavesMods     = "Caves/modoverrides.lua"
	FileModSetup      = "mods/dedicated_server_mods_setup.lua"
	SaveDir           = "save"
)

// Render produces the complete on-disk file set for one instance, keyed by
// path relative to the cluster directory. Output is deterministic: the same
// instance always renders to byte-identical files.
func (i *Instance) Render() map[string][]byte {
	files := map[string][]byte{
		FileClusterINI:   i.renderClusterINI(),
		FileClusterToken: []byte(i.Token + "\n"),
		FileMasterINI:    i.renderServerINI(constants.ShardMaster),
		FileCavesINI:     i.renderServerINI(constants.ShardCaves),
		FileMasterWorld:  renderWorldOverrides(i.World[constants.ShardMaster]),
		FileCavesWorld:   renderWorldOverrides(i.World[constants.ShardCaves]),
		FileMasterMods:   renderModOverrides(i.Mods),
		FileCavesMods:    renderModOverrides(i.Mods),
		FileModSetup:     i.renderModSetup(),
	}
	return files
}

func (i *Instance) renderClusterINI() []byte {
	doc := &iniDoc{}

	gameplay := doc.section("GAMEPLAY")
	gameplay.set("game_mode", i.Settings.GameMode)
	gameplay.set("max_players", strconv.Itoa(i.Settings.MaxPlayers))
	gameplay.set("pvp", strconv.FormatBool(i.Settings.PVP))
	gameplay.set("pause_when_empty", strconv.FormatBool(i.Settings.PauseWhenEmpty))
	// Kit-owned key. The server ignores it; Parse reads it back so the
	// preset an instance was created from is not lost.
	gameplay.set("world_preset", i.Settings.WorldPreset)

	network := doc.section("NETWORK")
	network.set("cluster_name", i.Name)
	network.set("cluster_description", i.Settings.Description)
	network.set("cluster_password", i.Settings.Password)
	network.set("cluster_intention", i.Settings.Intention)

	misc := doc.section("MISC")
	misc.set("console_enabled", strconv.FormatBool(i.Settings.ConsoleEnabled))

	shard := doc.section("SHARD")
	shard.set("shard_enabled", "true")
	shard.set("bind_ip", i.ShardNet.BindIP)
	shard.set("master_ip", i.ShardNet.MasterIP)
	shard.set("master_port", strconv.Itoa(i.ShardNet.MasterPort))
	shard.set("cluster_key", i.ShardNet.ClusterKey)

	doc.applyExtras(i.Extra[FileClusterINI])

	return doc.render()
}

func (i *Instance) renderServerINI(shardName string) []byte {
	doc := &iniDoc{}
	isMaster := shardName == constants.ShardMaster

	network := doc.section("NETWORK")
	if isMaster {
		network.set("server_port", strconv.Itoa(i.Ports.Game))
	} else {
		// The Caves shard binds the next port up from the Master shard.
		network.set("server_port", strconv.Itoa(i.Ports.Game+1))
	}

	if isMaster {
		steam := doc.section("STEAM")
		steam.set("master_server_port", strconv.Itoa(i.Ports.Master))
		steam.set("authentication_port", strconv.Itoa(i.Ports.Auth))
	}

	shard := doc.section("SHARD")
	shard.set("is_master", strconv.FormatBool(isMaster))
	shard.set("name", strings.ToLower(shardName))
	shard.set("id", strings.ToLower(shardName))

	if isMaster {
		doc.applyExtras(i.Extra[FileMasterINI])
	} else {
		doc.applyExtras(i.Extra[FileCavesINI])
	}

	return doc.render()
}

// renderModSetup produces dedicated_server_mods_setup.lua. The server runs
// this on boot to download enabled workshop mods. It is a derived artifact:
// Parse reconstructs the mod list from modoverrides.lua, not from this file.
func (i *Instance) renderModSetup() []byte {
	return RenderModSetup(i.Mods)
}

// RenderModSetup produces the mod download manifest for a mod list
func RenderModSetup(mods []ModEntry) []byte {
	var buf bytes.Buffer
	buf.WriteString("--There are two functions that will install mods, ServerModSetup and ServerModCollectionSetup.\n")
	buf.WriteString("--Put the calls to the functions in this file and they will be executed on boot.\n")
	buf.WriteString("\n")
	buf.WriteString("-- Mods configured for this cluster:\n")
	for _, mod := range mods {
		if mod.Enabled {
			fmt.Fprintf(&buf, "ServerModSetup(\"%s\")\n", mod.ID)
		}
	}
	return buf.Bytes()
}

// RenderMods produces the canonical modoverrides.lua payload for a mod list
func RenderMods(mods []ModEntry) []byte {
	return renderModOverrides(mods)
}

// ParseMods reads a modoverrides.lua payload back into a mod list
func ParseMods(file string, data []byte) ([]ModEntry, error) {
	return parseModOverrides(file, data)
}
