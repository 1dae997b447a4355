package service

import (
	"strings"
)

// MergeSuppliers folds a purchase's supplier name into a stock item's
// comma-joined supplier attribution. Existing entries are never removed or
// reordered; the incoming name is appended only when not already present
// (case-sensitive comparison, matching how the attribution was written).
// Returns the merged field and whether anything changed.
func MergeSuppliers(existing, incoming string) (string, bool) {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" {
		return existing, false
	}
	if strings.TrimSpace(existing) == "" {
		return incoming, true
	}

	parts := strings.Split(existing, ",")
	names := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if p == incoming {
			return existing, false
		}
		names = append(names, p)
	}
	names = append(names, incoming)
	return strings.Join(names, ", "), true
}
