package patient

import (
	"fmt"
	"testing"
)

func mkPatient(id, level string, risk int) Patient {
	return Patient{
		ID:             id,
		MRN:            "MRN-" + id,
		Name:           "Patient " + id,
		PrimaryConcern: "migraine",
		Status: Status{
			AttentionLevel: level,
			RiskScore:      risk,
		},
	}
}

func flatten(groups []AttentionGroup) []Patient {
	var out []Patient
	for _, g := range groups {
		out = append(out, g.Patients...)
	}
	return out
}

// ── Prioritize ──

func TestPrioritize_EmptyInput(t *testing.T) {
	if groups := Prioritize(nil); len(groups) != 0 {
		t.Errorf("expected no groups for empty input, got %d", len(groups))
	}
}

func TestPrioritize_SixPatientScenario(t *testing.T) {
	in := []Patient{
		mkPatient("a", AttentionMedium, 44),
		mkPatient("b", AttentionLow, 12),
		mkPatient("c", AttentionHigh, 85),
		mkPatient("d", AttentionHigh, 92),
		mkPatient("e", AttentionLow, 18),
		mkPatient("f", AttentionMedium, 58),
	}

	groups := Prioritize(in)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}

	want := []struct {
		level string
		risks []int
	}{
		{AttentionHigh, []int{92, 85}},
		{AttentionMedium, []int{58, 44}},
		{AttentionLow, []int{18, 12}},
	}
	for i, w := range want {
		g := groups[i]
		if g.Level != w.level {
			t.Errorf("group %d: expected level %s, got %s", i, w.level, g.Level)
		}
		if len(g.Patients) != len(w.risks) {
			t.Fatalf("group %d: expected %d patients, got %d", i, len(w.risks), len(g.Patients))
		}
		for j, r := range w.risks {
			if g.Patients[j].Status.RiskScore != r {
				t.Errorf("group %d patient %d: expected risk %d, got %d", i, j, r, g.Patients[j].Status.RiskScore)
			}
		}
	}

	if total := len(flatten(groups)); total != 6 {
		t.Errorf("expected 6 patients across groups, got %d", total)
	}
}

func TestPrioritize_PreservesMultiset(t *testing.T) {
	var in []Patient
	levels := []string{AttentionLow, AttentionHigh, "unknown", AttentionMedium, AttentionHigh}
	for i, lvl := range levels {
		in = append(in, mkPatient(fmt.Sprintf("p%d", i), lvl, i*17%101))
	}

	out := flatten(Prioritize(in))
	if len(out) != len(in) {
		t.Fatalf("expected %d patients out, got %d", len(in), len(out))
	}
	seen := map[string]int{}
	for _, p := range out {
		seen[p.ID]++
	}
	for _, p := range in {
		if seen[p.ID] != 1 {
			t.Errorf("patient %s appears %d times in output", p.ID, seen[p.ID])
		}
	}
}

func TestPrioritize_RiskNonIncreasingWithinGroup(t *testing.T) {
	in := []Patient{
		mkPatient("a", AttentionHigh, 10),
		mkPatient("b", AttentionHigh, 99),
		mkPatient("c", AttentionHigh, 55),
		mkPatient("d", AttentionLow, 70),
		mkPatient("e", AttentionLow, 71),
	}
	for _, g := range Prioritize(in) {
		for i := 1; i < len(g.Patients); i++ {
			prev, cur := g.Patients[i-1].Status.RiskScore, g.Patients[i].Status.RiskScore
			if cur > prev {
				t.Errorf("group %s: risk %d follows %d", g.Level, cur, prev)
			}
		}
	}
}

func TestPrioritize_UnknownLevelSortsLast(t *testing.T) {
	in := []Patient{
		mkPatient("a", "critical-unknown", 100),
		mkPatient("b", AttentionLow, 1),
		mkPatient("c", AttentionHigh, 50),
		mkPatient("d", AttentionMedium, 50),
	}
	groups := Prioritize(in)
	if len(groups) != 4 {
		t.Fatalf("expected 4 groups, got %d", len(groups))
	}
	wantOrder := []string{AttentionHigh, AttentionMedium, AttentionLow, "critical-unknown"}
	for i, lvl := range wantOrder {
		if groups[i].Level != lvl {
			t.Errorf("group %d: expected level %s, got %s", i, lvl, groups[i].Level)
		}
	}
	// The unrecognized level keeps its literal value and loses no patients.
	last := groups[len(groups)-1]
	if len(last.Patients) != 1 || last.Patients[0].ID != "a" {
		t.Errorf("expected unrecognized-level patient to survive grouping, got %+v", last.Patients)
	}
}

func TestPrioritize_StableTieBreak(t *testing.T) {
	in := []Patient{
		mkPatient("first", AttentionMedium, 40),
		mkPatient("second", AttentionMedium, 40),
		mkPatient("third", AttentionMedium, 40),
	}
	groups := Prioritize(in)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	for i, id := range []string{"first", "second", "third"} {
		if groups[0].Patients[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, groups[0].Patients[i].ID)
		}
	}
}

func TestPrioritize_DoesNotMutateInput(t *testing.T) {
	in := []Patient{
		mkPatient("a", AttentionLow, 1),
		mkPatient("b", AttentionHigh, 90),
	}
	Prioritize(in)
	if in[0].ID != "a" || in[1].ID != "b" {
		t.Error("expected input slice order to be untouched")
	}
}

// ── Filter ──

func sixPatients() []Patient {
	ps := []Patient{
		mkPatient("d", AttentionHigh, 92),
		mkPatient("c", AttentionHigh, 85),
		mkPatient("f", AttentionMedium, 58),
		mkPatient("a", AttentionMedium, 44),
		mkPatient("e", AttentionLow, 18),
		mkPatient("b", AttentionLow, 12),
	}
	ps[2].PrimaryConcern = "concussion"
	ps[3].PrimaryConcern = "concussion"
	return ps
}

func TestFilter_ByAttentionLevel(t *testing.T) {
	all := sixPatients()
	got := Filter(all, Criteria{AttentionLevel: AttentionHigh})
	if len(got) != 2 {
		t.Fatalf("expected 2 high patients, got %d", len(got))
	}
	for _, p := range got {
		if p.Status.AttentionLevel != AttentionHigh {
			t.Errorf("patient %s has level %s", p.ID, p.Status.AttentionLevel)
		}
	}
}

func TestFilter_ByConcern(t *testing.T) {
	got := Filter(sixPatients(), Criteria{Concern: "concussion"})
	if len(got) != 2 {
		t.Fatalf("expected 2 concussion patients, got %d", len(got))
	}
}

func TestFilter_BothCriteria(t *testing.T) {
	got := Filter(sixPatients(), Criteria{AttentionLevel: AttentionMedium, Concern: "concussion"})
	if len(got) != 2 {
		t.Fatalf("expected 2 patients matching both criteria, got %d", len(got))
	}
	got = Filter(sixPatients(), Criteria{AttentionLevel: AttentionHigh, Concern: "concussion"})
	if len(got) != 0 {
		t.Fatalf("expected no patients matching both criteria, got %d", len(got))
	}
}

func TestFilter_ExactMatchOnly(t *testing.T) {
	got := Filter(sixPatients(), Criteria{Concern: "concuss"})
	if len(got) != 0 {
		t.Errorf("expected no partial matches, got %d", len(got))
	}
}

func TestFilter_UnsetCriteriaRestoreFullSet(t *testing.T) {
	all := sixPatients()
	filtered := Filter(all, Criteria{AttentionLevel: AttentionLow})
	if len(filtered) != 2 {
		t.Fatalf("expected 2 low patients, got %d", len(filtered))
	}

	// Removing the filter restores the original full, correctly re-grouped set.
	restored := Filter(all, Criteria{})
	if len(restored) != len(all) {
		t.Fatalf("expected full set back, got %d", len(restored))
	}
	groups := Prioritize(restored)
	if len(groups) != 3 || len(flatten(groups)) != 6 {
		t.Errorf("expected 3 groups over 6 patients after clearing filter, got %d groups over %d",
			len(groups), len(flatten(groups)))
	}
}

func TestConcerns_DistinctSorted(t *testing.T) {
	got := Concerns(sixPatients())
	want := []string{"concussion", "migraine"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}
