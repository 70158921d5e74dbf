package modal

import "strings"

// Field values carrying one of these prefixes still need clarification.
const (
	UnknownMarker       = "Unknown — needs clarification"
	ContradictionMarker = "Contradiction —"
)

// ClaimDescription is the structured four-field extraction of a claim.
type ClaimDescription struct {
	ObjectDescription  string `json:"objectDescription"`
	DamageDescription  string `json:"damageDescription"`
	LocationOfIncident string `json:"locationOfIncident"`
	InvolvedParties    string `json:"involvedParties"`
}

// ClassifyField reports whether a field value is a fact or one of the two markers.
func ClassifyField(v string) FieldState {
	s := strings.TrimSpace(v)
	switch {
	case s == "":
		return FieldUnknown
	case hasMarker(s, UnknownMarker), hasMarker(s, "Unknown - needs clarification"):
		return FieldUnknown
	case hasMarker(s, ContradictionMarker), hasMarker(s, "Contradiction -"):
		return FieldContradiction
	default:
		return FieldSupported
	}
}

func hasMarker(s, marker string) bool {
	return len(s) >= len(marker) && strings.EqualFold(s[:len(marker)], marker)
}

// Fields returns the description keyed by its JSON field names, in schema order.
func (d ClaimDescription) Fields() [][2]string {
	return [][2]string{
		{"objectDescription", d.ObjectDescription},
		{"damageDescription", d.DamageDescription},
		{"locationOfIncident", d.LocationOfIncident},
		{"involvedParties", d.InvolvedParties},
	}
}

// OpenFields lists the fields still marked unknown or contradictory.
func (d ClaimDescription) OpenFields() map[string]FieldState {
	open := make(map[string]FieldState)
	for _, f := range d.Fields() {
		if st := ClassifyField(f[1]); st != FieldSupported {
			open[f[0]] = st
		}
	}
	return open
}
