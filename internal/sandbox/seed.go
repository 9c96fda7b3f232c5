package sandbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/careview/careview/internal/patient"
)

func intPtr(i int) *int { return &i }

func iso(t time.Time) *string {
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func obs(kind, value string, at time.Time) json.RawMessage {
	b, _ := json.Marshal(map[string]string{
		"type":       kind,
		"value":      value,
		"recordedAt": at.UTC().Format(time.RFC3339),
	})
	return b
}

// seedPatients returns the fixture cohort for the sandbox: a headache clinic
// panel spanning all three attention levels with realistic coordination
// state. Observations are full series; list responses summarize them.
func seedPatients(now time.Time) []patient.Patient {
	neuro := patient.Hcp{ID: "hcp-1", Name: "Dr. Elin Vance", Role: "Neurologist", Clinic: "Northside Neurology"}
	nurse := patient.Hcp{ID: "hcp-2", Name: "Sam Okafor", Role: "Nurse", Clinic: "Northside Neurology"}
	physio := patient.Hcp{ID: "hcp-3", Name: "Rita Delgado", Role: "Physiotherapist", Clinic: "Northside Neurology"}
	patients := []patient.Patient{
		{
			ID: "pt-001", MRN: "100234", Name: "Margaret Ellis", Age: 58, Sex: "female",
			PrimaryConcern: "migraine", Hcp: neuro,
			CareTeam:        []patient.Hcp{neuro, nurse},
			CareTeamSummary: &patient.CareTeamSummary{Size: 2, Roles: []string{"Neurologist", "Nurse"}},
			LastContactAt:   iso(now.Add(-26 * 24 * time.Hour)),
			Status: patient.Status{
				AttentionLevel:        patient.AttentionHigh,
				AttentionReasons:      []string{"Risk score increased by 18 in 2 weeks", "Missed last follow-up"},
				RiskScore:             92,
				AdherencePct:          intPtr(41),
				NextRecommendedAction: "Schedule urgent neurology review",
				UpdatedAt:             now.Add(-2 * time.Hour).UTC().Format(time.RFC3339),
			},
			Coordination: patient.Coordination{
				HasActiveCrossDisciplinaryPlan: false,
				LastTeamReviewAt:               nil,
				HandoffRisk:                    "high",
				PendingTasksByRole: []patient.PendingTask{
					{Role: "Neurologist", Count: 2, Description: "Review medication escalation"},
					{Role: "Nurse", Count: 1},
				},
			},
		},
		{
			ID: "pt-002", MRN: "100871", Name: "Theo Brandt", Age: 34, Sex: "male",
			PrimaryConcern: "concussion", Hcp: neuro,
			CareTeam:        []patient.Hcp{neuro, physio},
			CareTeamSummary: &patient.CareTeamSummary{Size: 2, Roles: []string{"Neurologist", "Physiotherapist"}},
			LastContactAt:   iso(now.Add(-3 * 24 * time.Hour)),
			Status: patient.Status{
				AttentionLevel:        patient.AttentionHigh,
				AttentionReasons:      []string{"Symptom diary reports worsening photophobia"},
				RiskScore:             85,
				AdherencePct:          intPtr(76),
				NextRecommendedAction: "Repeat vestibular assessment",
				UpdatedAt:             now.Add(-6 * time.Hour).UTC().Format(time.RFC3339),
			},
			Coordination: patient.Coordination{
				HasActiveCrossDisciplinaryPlan: true,
				LastTeamReviewAt:               iso(now.Add(-10 * 24 * time.Hour)),
				HandoffRisk:                    "medium",
				PendingTasksByRole: []patient.PendingTask{
					{Role: "Physiotherapist", Count: 1, Description: "Update return-to-play protocol"},
				},
			},
		},
		{
			ID: "pt-003", MRN: "101442", Name: "Priya Nair", Age: 41, Sex: "female",
			PrimaryConcern: "mixed_headache_disorder", Hcp: neuro,
			CareTeam:        []patient.Hcp{neuro, nurse, physio},
			CareTeamSummary: &patient.CareTeamSummary{Size: 3, Roles: []string{"Neurologist", "Nurse", "Physiotherapist"}},
			LastContactAt:   iso(now.Add(-1 * 24 * time.Hour)),
			Status: patient.Status{
				AttentionLevel:        patient.AttentionMedium,
				AttentionReasons:      []string{"Adherence trending down"},
				RiskScore:             58,
				AdherencePct:          intPtr(63),
				NextRecommendedAction: "Nurse check-in call this week",
				UpdatedAt:             now.Add(-12 * time.Hour).UTC().Format(time.RFC3339),
			},
			Coordination: patient.Coordination{
				HasActiveCrossDisciplinaryPlan: true,
				LastTeamReviewAt:               iso(now.Add(-20 * 24 * time.Hour)),
				HandoffRisk:                    "low",
				PendingTasksByRole:             []patient.PendingTask{{Role: "Nurse", Count: 1}},
			},
		},
		{
			ID: "pt-004", MRN: "101901", Name: "Douglas Reed", Age: 67, Sex: "male",
			PrimaryConcern: "whiplash", Hcp: physio,
			LastContactAt:  iso(now.Add(-8 * 24 * time.Hour)),
			Status: patient.Status{
				AttentionLevel:        patient.AttentionMedium,
				AttentionReasons:      []string{"Pain scores plateaued"},
				RiskScore:             44,
				AdherencePct:          nil,
				NextRecommendedAction: "Reassess physiotherapy plan",
				UpdatedAt:             now.Add(-18 * time.Hour).UTC().Format(time.RFC3339),
			},
			Coordination: patient.Coordination{
				HasActiveCrossDisciplinaryPlan: false,
				HandoffRisk:                    "medium",
				PendingTasksByRole:             []patient.PendingTask{{Role: "Physiotherapist", Count: 3}},
			},
		},
		{
			ID: "pt-005", MRN: "102118", Name: "Hana Suzuki", Age: 29, Sex: "female",
			PrimaryConcern: "headache", Hcp: nurse,
			LastContactAt:  iso(now.Add(-40 * 24 * time.Hour)),
			Status: patient.Status{
				AttentionLevel:        patient.AttentionLow,
				AttentionReasons:      nil,
				RiskScore:             18,
				AdherencePct:          intPtr(94),
				NextRecommendedAction: "Routine 3-month review",
				UpdatedAt:             now.Add(-30 * time.Hour).UTC().Format(time.RFC3339),
			},
			Coordination: patient.Coordination{
				HasActiveCrossDisciplinaryPlan: true,
				LastTeamReviewAt:               iso(now.Add(-35 * 24 * time.Hour)),
				HandoffRisk:                    "low",
			},
		},
		{
			ID: "pt-006", MRN: "102559", Name: "Viktor Lindqvist", Age: 52, Sex: "male",
			PrimaryConcern: "migraine", Hcp: neuro,
			LastContactAt:  nil,
			Status: patient.Status{
				AttentionLevel:        patient.AttentionLow,
				AttentionReasons:      nil,
				RiskScore:             12,
				AdherencePct:          intPtr(88),
				NextRecommendedAction: "No action needed",
				UpdatedAt:             now.Add(-48 * time.Hour).UTC().Format(time.RFC3339),
			},
			Coordination: patient.Coordination{
				HasActiveCrossDisciplinaryPlan: true,
				LastTeamReviewAt:               iso(now.Add(-15 * 24 * time.Hour)),
				HandoffRisk:                    "low",
			},
		},
	}

	// Attach an observation series per patient; the list endpoint summarizes
	// these into recentObservations.
	for i := range patients {
		var series []json.RawMessage
		for d := 0; d < 6; d++ {
			at := now.Add(-time.Duration(d*7*24) * time.Hour)
			series = append(series,
				obs("headache_days_per_week", fmt.Sprintf("%d", (patients[i].Status.RiskScore/20)+d%3), at),
				obs("pain_intensity", fmt.Sprintf("%d", (patients[i].Status.RiskScore/15)+d%4), at),
			)
		}
		patients[i].Observations = series
	}

	return patients
}
