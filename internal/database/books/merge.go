package books

import (
	"fmt"

	"github.com/google/uuid"
)

// MergePolicy decides how newly resolved authors or tags join a book's
// existing set on update.
type MergePolicy int

const (
	// MergeAppend appends every resolved entity, even one already linked.
	// Submitting the same author on two updates leaves two links.
	MergeAppend MergePolicy = iota
	// MergeUnique appends only entities that are not linked yet.
	MergeUnique
)

func (p MergePolicy) String() string {
	switch p {
	case MergeAppend:
		return "append"
	case MergeUnique:
		return "unique"
	default:
		return fmt.Sprintf("MergePolicy(%d)", int(p))
	}
}

// ParseMergePolicy accepts "append" and "unique". An empty string is append.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch s {
	case "", "append":
		return MergeAppend, nil
	case "unique":
		return MergeUnique, nil
	default:
		return MergeAppend, fmt.Errorf("unknown relation merge policy %q", s)
	}
}

// merge combines the current links of a book with newly resolved ids. It
// never drops a current member. When current is empty, incoming replaces it.
// added holds the ids that need a new link row, in order.
func merge(policy MergePolicy, current, incoming []uuid.UUID) (merged, added []uuid.UUID) {
	if len(incoming) == 0 {
		return current, nil
	}
	if len(current) == 0 {
		return incoming, incoming
	}

	added = incoming
	if policy == MergeUnique {
		linked := make(map[uuid.UUID]struct{}, len(current))
		for _, id := range current {
			linked[id] = struct{}{}
		}
		added = make([]uuid.UUID, 0, len(incoming))
		for _, id := range incoming {
			if _, ok := linked[id]; ok {
				continue
			}
			linked[id] = struct{}{}
			added = append(added, id)
		}
	}

	merged = make([]uuid.UUID, 0, len(current)+len(added))
	merged = append(merged, current...)
	merged = append(merged, added...)
	return merged, added
}

// distinct drops repeated ids, keeping first occurrences in order.
func distinct(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
