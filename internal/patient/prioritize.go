package patient

import "sort"

// attentionOrder fixes the display precedence of the known levels. Anything
// the upstream sends outside this set sorts after all known levels.
var attentionOrder = map[string]int{
	AttentionHigh:   0,
	AttentionMedium: 1,
	AttentionLow:    2,
}

const unknownLevelOrder = 3

func levelRank(level string) int {
	if r, ok := attentionOrder[level]; ok {
		return r
	}
	return unknownLevelOrder
}

// Prioritize sorts patients by attention level (high, medium, low, then
// unrecognized levels) and descending risk score, then coalesces adjacent
// patients sharing a level into one group. Because the sort makes all
// same-level patients contiguous, grouping is a byproduct of the single
// sorted pass rather than a separate partition step, so group order always
// matches the tie-break policy of the sort. The sort is stable: patients with
// equal level and score keep their input order.
func Prioritize(patients []Patient) []AttentionGroup {
	sorted := make([]Patient, len(patients))
	copy(sorted, patients)

	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := levelRank(sorted[i].Status.AttentionLevel), levelRank(sorted[j].Status.AttentionLevel)
		if ri != rj {
			return ri < rj
		}
		return sorted[i].Status.RiskScore > sorted[j].Status.RiskScore
	})

	var groups []AttentionGroup
	for _, p := range sorted {
		if n := len(groups); n > 0 && groups[n-1].Level == p.Status.AttentionLevel {
			groups[n-1].Patients = append(groups[n-1].Patients, p)
			continue
		}
		groups = append(groups, AttentionGroup{
			Level:    p.Status.AttentionLevel,
			Patients: []Patient{p},
		})
	}
	return groups
}

// Criteria holds the overview filters. Zero values match everything; matching
// is exact equality on the categorical fields, never partial.
type Criteria struct {
	AttentionLevel string
	Concern        string
}

// Filter returns the subset of patients matching every set criterion. It is
// applied before Prioritize so displayed counts and groups always reflect the
// filtered set.
func Filter(patients []Patient, crit Criteria) []Patient {
	if crit.AttentionLevel == "" && crit.Concern == "" {
		return patients
	}
	out := make([]Patient, 0, len(patients))
	for _, p := range patients {
		if crit.AttentionLevel != "" && p.Status.AttentionLevel != crit.AttentionLevel {
			continue
		}
		if crit.Concern != "" && p.PrimaryConcern != crit.Concern {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Concerns returns the distinct primary concerns in the list, sorted, for the
// filter dropdown.
func Concerns(patients []Patient) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range patients {
		if !seen[p.PrimaryConcern] {
			seen[p.PrimaryConcern] = true
			out = append(out, p.PrimaryConcern)
		}
	}
	sort.Strings(out)
	return out
}
