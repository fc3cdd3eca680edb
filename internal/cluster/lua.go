package cluster

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/errors"
)

// The server consumes worldgenoverride.lua and modoverrides.lua as Lua
// scripts, but every file this kit writes is a plain literal table. The
// renderer emits a fixed canonical layout (sorted option keys, two-space
// indent, trailing commas) so re-renders are byte-identical, and the parser
// reads exactly that subset back.

var luaIdentRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// renderLuaValue formats a scalar as a Lua literal. Integer-valued floats
// render without a fraction so formatting is stable across round-trips.
func renderLuaValue(v interface{}) string {
	switch val := v.(type) {
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		return `"` + escapeLuaString(val) + `"`
	default:
		return `"` + escapeLuaString(fmt.Sprintf("%v", val)) + `"`
	}
}

// escapeLuaString escapes a string for a double-quoted Lua literal. Mod
// option values are opaque caller data, so quotes and newlines must not be
// able to break the table layout.
func escapeLuaString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// unescapeLuaString reverses escapeLuaString
func unescapeLuaString(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if !escaped {
			if r == '\\' {
				escaped = true
			} else {
				b.WriteRune(r)
			}
			continue
		}
		switch r {
		case 'n':
			b.WriteRune('\n')
		case 'r':
			b.WriteRune('\r')
		case 't':
			b.WriteRune('\t')
		default:
			b.WriteRune(r)
		}
		escaped = false
	}
	return b.String()
}

// parseLuaValue reads a scalar Lua literal
func parseLuaValue(s string) (interface{}, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "true":
		return true, nil
	case s == "false":
		return false, nil
	case len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"':
		return unescapeLuaString(s[1 : len(s)-1]), nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("unsupported lua literal %q", s)
}

// renderLuaKey formats a table key, bracket-quoting anything that is not a
// plain identifier.
func renderLuaKey(k string) string {
	if luaIdentRegex.MatchString(k) {
		return k
	}
	return `["` + escapeLuaString(k) + `"]`
}

// parseLuaKey reads a table key in either bare or bracketed form
func parseLuaKey(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `["`) && strings.HasSuffix(s, `"]`) {
		return unescapeLuaString(s[2 : len(s)-2])
	}
	return s
}

// sortedKeys returns map keys in lexical order for deterministic rendering
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// renderWorldOverrides produces worldgenoverride.lua for one shard
func renderWorldOverrides(overrides map[string]interface{}) []byte {
	var buf bytes.Buffer
	buf.WriteString("return {\n")
	buf.WriteString("  override_enabled = true,\n")
	buf.WriteString("  preset = \"CUSTOM\",\n")
	buf.WriteString("  overrides = {\n")
	for _, k := range sortedKeys(overrides) {
		fmt.Fprintf(&buf, "    %s = %s,\n", renderLuaKey(k), renderLuaValue(overrides[k]))
	}
	buf.WriteString("  },\n")
	buf.WriteString("}\n")
	return buf.Bytes()
}

// parseWorldOverrides reads the overrides table back out of
// worldgenoverride.lua. file is used for error reporting only.
func parseWorldOverrides(file string, data []byte) (map[string]interface{}, error) {
	overrides := map[string]interface{}{}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	inOverrides := false
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "" || strings.HasPrefix(line, "--"):
			continue
		case strings.HasPrefix(line, "overrides") && strings.HasSuffix(line, "{"):
			inOverrides = true
			continue
		case line == "}," || line == "}":
			inOverrides = false
			continue
		}

		if !inOverrides {
			continue
		}

		key, value, err := splitLuaAssignment(line)
		if err != nil {
			return nil, errors.ConfigParse(file, lineNo, err)
		}
		v, err := parseLuaValue(value)
		if err != nil {
			return nil, errors.ConfigParse(file, lineNo, err)
		}
		overrides[key] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.ConfigParse(file, lineNo, err)
	}

	return overrides, nil
}

// renderModOverrides produces modoverrides.lua in mod load order. Disabled
// mods are written with enabled = false rather than omitted, so the enabled
// flag survives a round-trip.
func renderModOverrides(mods []ModEntry) []byte {
	var buf bytes.Buffer
	buf.WriteString("return {\n")
	for _, mod := range mods {
		fmt.Fprintf(&buf, "  [\"workshop-%s\"] = {\n", mod.ID)
		fmt.Fprintf(&buf, "    enabled = %s,\n", strconv.FormatBool(mod.Enabled))
		buf.WriteString("    configuration_options = {\n")
		for _, k := range sortedKeys(mod.Options) {
			fmt.Fprintf(&buf, "      %s = %s,\n", renderLuaKey(k), renderLuaValue(mod.Options[k]))
		}
		buf.WriteString("    },\n")
		buf.WriteString("  },\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes()
}

// parseModOverrides reads the mod list back out of modoverrides.lua,
// preserving file order as load order.
func parseModOverrides(file string, data []byte) ([]ModEntry, error) {
	var mods []ModEntry
	var current *ModEntry
	inOptions := false

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "" || strings.HasPrefix(line, "--"):
			continue
		case strings.HasPrefix(line, "return"):
			continue
		case strings.HasPrefix(line, `["workshop-`):
			end := strings.Index(line, `"]`)
			if end < 0 {
				return nil, errors.ConfigParse(file, lineNo,
					fmt.Errorf("malformed mod entry %q", line))
			}
			id := strings.TrimPrefix(line[2:end], "workshop-")
			mods = append(mods, ModEntry{ID: id, Enabled: true})
			current = &mods[len(mods)-1]
			continue
		case strings.HasPrefix(line, "configuration_options"):
			inOptions = true
			continue
		case line == "},":
			if inOptions {
				inOptions = false
			} else {
				current = nil
			}
			continue
		case line == "}":
			continue
		}

		if current == nil {
			return nil, errors.ConfigParse(file, lineNo,
				fmt.Errorf("unexpected content %q", line))
		}

		key, value, err := splitLuaAssignment(line)
		if err != nil {
			return nil, errors.ConfigParse(file, lineNo, err)
		}
		v, err := parseLuaValue(value)
		if err != nil {
			return nil, errors.ConfigParse(file, lineNo, err)
		}

		if inOptions {
			if current.Options == nil {
				current.Options = map[string]interface{}{}
			}
			current.Options[key] = v
			continue
		}

		if key == "enabled" {
			if b, ok := v.(bool); ok {
				current.Enabled = b
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.ConfigParse(file, lineNo, err)
	}

	return mods, nil
}

// splitLuaAssignment splits a `key = value,` table line
func splitLuaAssignment(line string) (string, string, error) {
	eq := strings.Index(line, "=")
	if eq < 0 {
		return "", "", fmt.Errorf("expected key = value, got %q", line)
	}
	key := parseLuaKey(line[:eq])
	value := strings.TrimSuffix(strings.TrimSpace(line[eq+1:]), ",")
	if key == "" {
		return "", "", fmt.Errorf("empty key in %q", line)
	}
	return key, value, nil
}
