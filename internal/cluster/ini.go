package cluster

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/errors"
)

// The DST server reads a plain `[SECTION]` / `key = value` ini dialect with
// no quoting or escapes. The document model keeps section and key order so
// unknown keys round-trip verbatim and repeated renders are byte-identical.

type iniKey struct {
	name  string
	value string
	line  int
}

type iniSection struct {
	name string
	keys []iniKey
}

type iniDoc struct {
	sections []*iniSection
}

// section returns the named section, creating it if needed
func (d *iniDoc) section(name string) *iniSection {
	for _, s := range d.sections {
		if s.name == name {
			return s
		}
	}
	s := &iniSection{name: name}
	d.sections = append(d.sections, s)
	return s
}

// lookup returns the named section or nil
func (d *iniDoc) lookup(name string) *iniSection {
	for _, s := range d.sections {
		if s.name == name {
			return s
		}
	}
	return nil
}

// set appends a key to a section
func (s *iniSection) set(key, value string) {
	s.keys = append(s.keys, iniKey{name: key, value: value})
}

// take removes and returns the first occurrence of key
func (s *iniSection) take(key string) (iniKey, bool) {
	for i, k := range s.keys {
		if k.name == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			return k, true
		}
	}
	return iniKey{}, false
}

// render serializes the document with lf line endings and one blank line
// between sections.
func (d *iniDoc) render() []byte {
	var buf bytes.Buffer
	for i, s := range d.sections {
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "[%s]\n", s.name)
		for _, k := range s.keys {
			fmt.Fprintf(&buf, "%s = %s\n", k.name, k.value)
		}
	}
	return buf.Bytes()
}

// parseINI parses data into a document. file is used for error reporting only.
func parseINI(file string, data []byte) (*iniDoc, error) {
	doc := &iniDoc{}
	var current *iniSection

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") || len(line) < 3 {
				return nil, errors.ConfigParse(file, lineNo,
					fmt.Errorf("malformed section header %q", line))
			}
			current = doc.section(line[1 : len(line)-1])
			continue
		}

		eq := strings.Index(line, "=")
		if eq < 0 {
			return nil, errors.ConfigParse(file, lineNo,
				fmt.Errorf("expected key = value, got %q", line))
		}
		if current == nil {
			return nil, errors.ConfigParse(file, lineNo,
				fmt.Errorf("key %q outside of any section", line[:eq]))
		}

		key := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		if key == "" {
			return nil, errors.ConfigParse(file, lineNo,
				fmt.Errorf("empty key name"))
		}
		current.keys = append(current.keys, iniKey{name: key, value: value, line: lineNo})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.ConfigParse(file, lineNo, err)
	}

	return doc, nil
}

// remaining flattens every key left in the document into ExtraKeys,
// preserving encounter order. Called after all known keys were taken.
func (d *iniDoc) remaining() []ExtraKey {
	var extras []ExtraKey
	for _, s := range d.sections {
		for _, k := range s.keys {
			extras = append(extras, ExtraKey{Section: s.name, Key: k.name, Value: k.value})
		}
	}
	return extras
}

// applyExtras re-inserts preserved unknown keys into the document
func (d *iniDoc) applyExtras(extras []ExtraKey) {
	for _, e := range extras {
		d.section(e.Section).set(e.Key, e.Value)
	}
}
