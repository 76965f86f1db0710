// Package suit maps a sea-surface temperature to a wetsuit recommendation.
package suit

// Type is a normalized wetsuit category.
type Type string

const (
	TypeShorty  Type = "shorty"
	TypeFull3mm Type = "full-3mm"
	TypeFull5mm Type = "full-5mm"
	TypeFull7mm Type = "full-7mm"
	TypeDrysuit Type = "drysuit"
)

// Recommendation pairs a suit type with a human-readable note.
type Recommendation struct {
	Type  Type   `json:"type"`
	Notes string `json:"notes"`
}

// Preferences bias the classification toward warmer suits for divers who
// run cold or plan long dives.
type Preferences struct {
	RunsCold    bool
	DiveMinutes int
}

// Bias returns the temperature adjustment implied by the preferences.
func (p Preferences) Bias() float64 {
	bias := 0.0
	if p.RunsCold {
		bias -= 1
	}
	if p.DiveMinutes > 45 {
		bias -= 0.5
	}
	return bias
}

// Classify maps a temperature in degrees Celsius to a recommendation.
// Thresholds are inclusive lower bounds on the bias-adjusted temperature,
// evaluated top-down; the function is total over the reals.
func Classify(tempC float64, prefs Preferences) Recommendation {
	adjusted := tempC + prefs.Bias()

	switch {
	case adjusted >= 26:
		return Recommendation{Type: TypeShorty, Notes: "≥26°C - warm tropical waters"}
	case adjusted >= 23:
		return Recommendation{Type: TypeFull3mm, Notes: "23–26°C - warm waters"}
	case adjusted >= 20:
		return Recommendation{Type: TypeFull5mm, Notes: "20–23°C - temperate waters"}
	case adjusted >= 16:
		return Recommendation{Type: TypeFull7mm, Notes: "16–20°C - cold waters, add hood/gloves"}
	case adjusted >= 10:
		return Recommendation{Type: TypeDrysuit, Notes: "10–16°C - cold waters, drysuit recommended"}
	default:
		return Recommendation{Type: TypeDrysuit, Notes: "<10°C - very cold waters, drysuit required"}
	}
}
