package patient

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// sectionLabels are the overview headings per attention level. Unrecognized
// levels fall back to their literal value.
var sectionLabels = map[string]string{
	AttentionHigh:   "Needs Immediate Attention",
	AttentionMedium: "Monitor Closely",
	AttentionLow:    "Stable",
}

// SectionLabel returns the overview heading for an attention level.
func SectionLabel(level string) string {
	if l, ok := sectionLabels[level]; ok {
		return l
	}
	return level
}

// RiskTier buckets a risk score for display styling.
func RiskTier(score int) string {
	switch {
	case score >= 70:
		return "danger"
	case score >= 40:
		return "warning"
	default:
		return "success"
	}
}

// FormatConcern turns a concern code like "mixed_headache_disorder" into
// "Mixed Headache Disorder".
func FormatConcern(concern string) string {
	words := strings.Split(concern, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// DecodeObservations flattens raw observation entries for display: each
// entry becomes its fields as strings, with the internal id dropped and
// nested values kept as compact JSON. At most max entries are returned;
// entries that are not JSON objects are skipped.
func DecodeObservations(raw []json.RawMessage, max int) []map[string]string {
	var out []map[string]string
	for _, r := range raw {
		if len(out) == max {
			break
		}
		var fields map[string]interface{}
		if err := json.Unmarshal(r, &fields); err != nil {
			continue
		}
		entry := make(map[string]string, len(fields))
		for k, v := range fields {
			if k == "id" {
				continue
			}
			switch val := v.(type) {
			case string:
				entry[k] = val
			case float64:
				entry[k] = strconv.FormatFloat(val, 'f', -1, 64)
			case bool:
				entry[k] = strconv.FormatBool(val)
			case nil:
				entry[k] = ""
			default:
				b, _ := json.Marshal(v)
				entry[k] = string(b)
			}
		}
		out = append(out, entry)
	}
	return out
}

// TimeAgo renders a last-contact timestamp relative to now. A nil or
// unparsable timestamp reads "No contact".
func TimeAgo(ts *string, now time.Time) string {
	if ts == nil {
		return "No contact"
	}
	t, err := time.Parse(time.RFC3339, *ts)
	if err != nil {
		return "No contact"
	}
	days := int(now.Sub(t).Hours() / 24)
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 30:
		return fmt.Sprintf("%dd ago", days)
	default:
		return fmt.Sprintf("%dmo ago", days/30)
	}
}
