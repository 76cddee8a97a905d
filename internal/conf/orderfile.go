// Package conf loads the external configuration files consumed by the
// analysis, chiefly the interdex order file describing the desired
// class-load ordering across dex files.
package conf

import (
	"bufio"
	"io"
	"strings"

	apperrors "github.com/dexmerge/pkg/errors"
)

// EndMarkerPrefix marks the synthetic entries delimiting interdex
// subgroups in the order file, e.g. "LDexEndMarker0;".
const EndMarkerPrefix = "LDexEndMarker"

// coldSuffix annotates a class-load entry observed only in cold basic
// blocks. The basic-block filtering inference mode ignores such entries.
const coldSuffix = ":cold"

// OrderEntry is one class-load observation from the order file.
type OrderEntry struct {
	TypeName string
	// Group is the interdex subgroup index, counting end markers.
	Group int
	// ColdOnly marks loads observed only in cold basic blocks.
	ColdOnly bool
}

// ConfigFiles holds the parsed external configuration. A nil ConfigFiles
// behaves as "no order file present".
type ConfigFiles struct {
	entries   []OrderEntry
	numGroups int
	hot       map[string]bool
	ordered   map[string]bool
}

// LoadOrderFile parses an interdex order file: one class descriptor per
// line in observed load order, '#' comments, end-marker entries starting
// new subgroups, and an optional ":cold" suffix on entries seen only in
// cold code. The hot set is the first subgroup.
func LoadOrderFile(r io.Reader) (*ConfigFiles, error) {
	c := &ConfigFiles{
		hot:     make(map[string]bool),
		ordered: make(map[string]bool),
	}

	group := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, EndMarkerPrefix) {
			group++
			continue
		}
		cold := false
		if strings.HasSuffix(line, coldSuffix) {
			cold = true
			line = strings.TrimSuffix(line, coldSuffix)
		}
		if !strings.HasPrefix(line, "L") || !strings.HasSuffix(line, ";") {
			return nil, apperrors.Newf(apperrors.CodeOrderFileError,
				"malformed order file entry %q", line)
		}
		c.entries = append(c.entries, OrderEntry{TypeName: line, Group: group, ColdOnly: cold})
		c.ordered[line] = true
		if group == 0 {
			c.hot[line] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeOrderFileError, "failed to read order file", err)
	}

	c.numGroups = group + 1
	return c, nil
}

// HasOrderFile reports whether order data is present.
func (c *ConfigFiles) HasOrderFile() bool {
	return c != nil && len(c.entries) > 0
}

// Entries returns the class-load observations in file order.
func (c *ConfigFiles) Entries() []OrderEntry {
	if c == nil {
		return nil
	}
	return c.entries
}

// NumGroups returns the number of interdex subgroups delimited by end
// markers. At least 1 when an order file is present.
func (c *ConfigFiles) NumGroups() int {
	if c == nil {
		return 0
	}
	return c.numGroups
}

// IsHot reports whether the type is in the hot (first) subgroup.
func (c *ConfigFiles) IsHot(typeName string) bool {
	return c != nil && c.hot[typeName]
}

// IsOrdered reports whether the type appears anywhere in the order file.
func (c *ConfigFiles) IsOrdered(typeName string) bool {
	return c != nil && c.ordered[typeName]
}
