package patient

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSectionLabel(t *testing.T) {
	cases := map[string]string{
		AttentionHigh:   "Needs Immediate Attention",
		AttentionMedium: "Monitor Closely",
		AttentionLow:    "Stable",
		"weird":         "weird",
	}
	for level, want := range cases {
		if got := SectionLabel(level); got != want {
			t.Errorf("SectionLabel(%q) = %q, want %q", level, got, want)
		}
	}
}

func TestRiskTier(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{92, "danger"},
		{70, "danger"},
		{69, "warning"},
		{40, "warning"},
		{39, "success"},
		{0, "success"},
	}
	for _, c := range cases {
		if got := RiskTier(c.score); got != c.want {
			t.Errorf("RiskTier(%d) = %q, want %q", c.score, got, c.want)
		}
	}
}

func TestFormatConcern(t *testing.T) {
	if got := FormatConcern("mixed_headache_disorder"); got != "Mixed Headache Disorder" {
		t.Errorf("got %q", got)
	}
	if got := FormatConcern("migraine"); got != "Migraine" {
		t.Errorf("got %q", got)
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	str := func(d time.Duration) *string {
		s := now.Add(-d).Format(time.RFC3339)
		return &s
	}

	cases := []struct {
		ts   *string
		want string
	}{
		{nil, "No contact"},
		{str(2 * time.Hour), "Today"},
		{str(25 * time.Hour), "Yesterday"},
		{str(5 * 24 * time.Hour), "5d ago"},
		{str(65 * 24 * time.Hour), "2mo ago"},
	}
	for _, c := range cases {
		if got := TimeAgo(c.ts, now); got != c.want {
			t.Errorf("TimeAgo(%v) = %q, want %q", c.ts, got, c.want)
		}
	}

	bad := "not-a-timestamp"
	if got := TimeAgo(&bad, now); got != "No contact" {
		t.Errorf("expected unparsable timestamp to read as no contact, got %q", got)
	}
}

func TestDecodeObservations(t *testing.T) {
	raw := []json.RawMessage{
		json.RawMessage(`{"id":"obs-1","type":"pain_intensity","value":7,"flagged":true}`),
		json.RawMessage(`{"type":"note","value":"stable","detail":{"by":"nurse"}}`),
		json.RawMessage(`"not an object"`),
	}

	entries := DecodeObservations(raw, 10)
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 (non-object skipped)", len(entries))
	}

	first := entries[0]
	if _, ok := first["id"]; ok {
		t.Error("internal id should be dropped")
	}
	if first["type"] != "pain_intensity" || first["value"] != "7" || first["flagged"] != "true" {
		t.Errorf("first entry = %v", first)
	}
	if entries[1]["detail"] != `{"by":"nurse"}` {
		t.Errorf("nested value = %q, want compact JSON", entries[1]["detail"])
	}
}

func TestDecodeObservationsCapped(t *testing.T) {
	var raw []json.RawMessage
	for i := 0; i < 15; i++ {
		raw = append(raw, json.RawMessage(`{"type":"x"}`))
	}
	if got := len(DecodeObservations(raw, 10)); got != 10 {
		t.Errorf("entries = %d, want 10", got)
	}
}
