package reconcile

// RiskClass buckets a risk score. Always re-derivable from the score alone.
type RiskClass string

const (
	RiskLow      RiskClass = "low"
	RiskMedium   RiskClass = "medium"
	RiskHigh     RiskClass = "high"
	RiskCritical RiskClass = "critical"
)

// RiskScore pairs a probability and impact estimate (1-5 each) with their
// product and the derived classification.
type RiskScore struct {
	Name           string    `json:"name"`
	Probability    float64   `json:"probability"`
	Impact         float64   `json:"impact"`
	Score          float64   `json:"score"`
	Classification RiskClass `json:"classification"`
}

// ScoreRisk computes score = probability × impact and classifies it.
func ScoreRisk(name string, probability, impact float64) RiskScore {
	score := probability * impact
	return RiskScore{
		Name:           name,
		Probability:    probability,
		Impact:         impact,
		Score:          score,
		Classification: ClassifyRisk(score),
	}
}

// ClassifyRisk maps a score onto the fixed bands.
func ClassifyRisk(score float64) RiskClass {
	switch {
	case score >= 20:
		return RiskCritical
	case score >= 12:
		return RiskHigh
	case score >= 6:
		return RiskMedium
	default:
		return RiskLow
	}
}
