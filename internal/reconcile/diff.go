package reconcile

import "sort"

// Diff partitions one observation pass against stored state.
type Diff struct {
	Added      []string
	Maintained []string
	Removed    []string
}

// ComputeDiff classifies observed ids against the existing and active sets.
// Removed is only computed when the observation covered the whole universe;
// a partial view never deactivates anything. All slices are sorted.
func ComputeDiff(observed []string, existing, active map[string]struct{}, complete bool) Diff {
	seen := make(map[string]struct{}, len(observed))
	var d Diff
	for _, id := range observed {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := existing[id]; ok {
			d.Maintained = append(d.Maintained, id)
		} else {
			d.Added = append(d.Added, id)
		}
	}

	if complete {
		for id := range active {
			if _, ok := seen[id]; !ok {
				d.Removed = append(d.Removed, id)
			}
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Maintained)
	sort.Strings(d.Removed)
	return d
}
