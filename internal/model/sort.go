package model

import (
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// SortField defines what to sort groups by.
type SortField int

const (
	SortByWasted SortField = iota
	SortBySize
	SortByCount
	SortByPath
)

// SortOrder defines ascending or descending.
type SortOrder int

const (
	SortDesc SortOrder = iota
	SortAsc
)

// SortConfig holds sort preferences.
type SortConfig struct {
	Field SortField
	Order SortOrder
}

// DefaultSort orders groups by reclaimable bytes, largest first.
func DefaultSort() SortConfig {
	return SortConfig{Field: SortByWasted, Order: SortDesc}
}

// String returns a short label for the field.
func (f SortField) String() string {
	switch f {
	case SortByWasted:
		return "Wasted"
	case SortBySize:
		return "Size"
	case SortByCount:
		return "Count"
	case SortByPath:
		return "Path"
	default:
		return "?"
	}
}

// SortGroups sorts groups in place. Ties keep their report order.
func SortGroups(groups []DuplicateGroup, cfg SortConfig) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := &groups[i], &groups[j]

		// Swap for descending so equal items still compare false.
		if cfg.Order == SortDesc {
			a, b = b, a
		}

		switch cfg.Field {
		case SortBySize:
			return a.Size < b.Size
		case SortByCount:
			return a.Count() < b.Count()
		case SortByPath:
			return natural.Less(strings.ToLower(firstPath(a)), strings.ToLower(firstPath(b)))
		default:
			return a.Wasted() < b.Wasted()
		}
	})
}

// SortFiles orders group members by path in natural order.
func SortFiles(files []FileRecord) {
	sort.SliceStable(files, func(i, j int) bool {
		return natural.Less(strings.ToLower(files[i].Path), strings.ToLower(files[j].Path))
	})
}

func firstPath(g *DuplicateGroup) string {
	if len(g.Files) == 0 {
		return ""
	}
	return g.Files[0].Path
}
