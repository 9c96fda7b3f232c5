package patient

import "encoding/json"

// Attention levels assigned by the upstream risk engine. The portal never
// recomputes a level or a risk score; it only orders and groups by them, so
// unrecognized values coming off the wire are carried through as-is.
const (
	AttentionHigh   = "high"
	AttentionMedium = "medium"
	AttentionLow    = "low"
)

// Hcp identifies a healthcare professional attached to a patient.
type Hcp struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Clinic string `json:"clinic"`
}

// Status is the upstream-computed clinical status block. AdherencePct is a
// pointer because the upstream omits it for patients with no adherence data.
type Status struct {
	AttentionLevel        string   `json:"attentionLevel"`
	AttentionReasons      []string `json:"attentionReasons"`
	RiskScore             int      `json:"riskScore"`
	AdherencePct          *int     `json:"adherencePct"`
	NextRecommendedAction string   `json:"nextRecommendedAction"`
	UpdatedAt             string   `json:"updatedAt"`
}

// PendingTask counts open work items for one care-team role.
type PendingTask struct {
	Role        string `json:"role"`
	Count       int    `json:"count"`
	Description string `json:"description,omitempty"`
}

// Coordination describes cross-disciplinary care state for a patient.
type Coordination struct {
	HasActiveCrossDisciplinaryPlan bool          `json:"hasActiveCrossDisciplinaryPlan"`
	LastTeamReviewAt               *string       `json:"lastTeamReviewAt"`
	HandoffRisk                    string        `json:"handoffRisk"`
	PendingTasksByRole             []PendingTask `json:"pendingTasksByRole"`
}

// CareTeamSummary is the compact care-team shape returned on list responses.
type CareTeamSummary struct {
	Size  int      `json:"size"`
	Roles []string `json:"roles"`
}

// Patient is constructed wholly from an upstream response and is immutable on
// this side: the portal re-fetches rather than patching. List responses carry
// summarized RecentObservations; the detail endpoint carries Observations.
type Patient struct {
	ID                 string            `json:"id"`
	MRN                string            `json:"mrn"`
	Name               string            `json:"name"`
	Age                int               `json:"age"`
	Sex                string            `json:"sex"`
	PrimaryConcern     string            `json:"primaryConcern"`
	Hcp                Hcp               `json:"hcp"`
	CareTeam           []Hcp             `json:"careTeam,omitempty"`
	CareTeamSummary    *CareTeamSummary  `json:"careTeamSummary,omitempty"`
	LastContactAt      *string           `json:"lastContactAt"`
	Status             Status            `json:"status"`
	Coordination       Coordination      `json:"coordination"`
	RecentObservations []json.RawMessage `json:"recentObservations,omitempty"`
	Observations       []json.RawMessage `json:"observations,omitempty"`
}

// AttentionGroup is a derived, non-persisted grouping of patients sharing one
// attention level, rebuilt on every render from the current filtered list.
type AttentionGroup struct {
	Level    string
	Patients []Patient
}
