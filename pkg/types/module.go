package types

import (
	"slices"
	"strings"
)

// ModuleRecord is one executable image or shared library mapped into a process.
type ModuleRecord struct {
	Path string
}

const deletedSuffix = " (deleted)"

// Modules builds a deduplicated, sorted module table from raw mapping paths.
// Empty entries and pseudo mappings such as "[heap]" are dropped, and the
// kernel's " (deleted)" marker is stripped before comparison.
func Modules(paths []string) []ModuleRecord {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		p = strings.TrimSuffix(strings.TrimSpace(p), deletedSuffix)
		if p == "" || strings.HasPrefix(p, "[") {
			continue
		}
		set[p] = struct{}{}
	}

	out := make([]ModuleRecord, 0, len(set))
	for p := range set {
		out = append(out, ModuleRecord{Path: p})
	}
	slices.SortFunc(out, func(a, b ModuleRecord) int { return strings.Compare(a.Path, b.Path) })
	return out
}
