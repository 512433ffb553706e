package badges

import "github.com/julienreichel/on-track-career-os-sub005/internal/onboarding"

// Eligible returns the IDs whose predicate holds, in catalog order.
func Eligible(in onboarding.Inputs, state onboarding.State) []ID {
	out := make([]ID, 0, len(catalog))
	for _, def := range catalog {
		if def.eligible(in, state) {
			out = append(out, def.ID)
		}
	}
	return out
}

type Diff struct {
	AllEarned   []ID `json:"allEarned"`
	NewlyEarned []ID `json:"newlyEarned"`
}

// DiffBadges never drops an existing badge. Duplicates in existing are
// collapsed to their first occurrence.
func DiffBadges(existing, eligible []ID) Diff {
	seen := make(map[ID]struct{}, len(existing)+len(eligible))
	all := make([]ID, 0, len(existing)+len(eligible))
	for _, id := range existing {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		all = append(all, id)
	}

	newly := make([]ID, 0)
	for _, id := range eligible {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		newly = append(newly, id)
		all = append(all, id)
	}
	return Diff{AllEarned: all, NewlyEarned: newly}
}

// FilterKnown drops stored IDs that are no longer in the catalog.
func FilterKnown(raw []string) []ID {
	out := make([]ID, 0, len(raw))
	for _, value := range raw {
		if _, ok := Lookup(ID(value)); ok {
			out = append(out, ID(value))
		}
	}
	return out
}

func Strings(ids []ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
