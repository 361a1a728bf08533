package onboarding

import "strconv"

// Data is everything collected during onboarding: structured form answers
// plus free-text and ingested document context. It feeds section prompts
// and drives progressive dispatch via Field.
type Data struct {
	// Niche form.
	Industry string `json:"industry"`
	Audience string `json:"audience"`
	ICP      string `json:"icp"`

	// Briefing form.
	Budget              float64 `json:"budget"`
	OfferPrice          float64 `json:"offerPrice"`
	SalesCycleLength    string  `json:"salesCycleLength"`
	CPL                 float64 `json:"cpl,omitempty"`
	LeadToSQLRate       float64 `json:"leadToSqlRate,omitempty"`
	SQLToCustomerRate   float64 `json:"sqlToCustomerRate,omitempty"`
	RetentionMultiplier float64 `json:"retentionMultiplier,omitempty"`

	// Free-text answers.
	OfferDescription       string `json:"offerDescription,omitempty"`
	Competitors            string `json:"competitors,omitempty"`
	CompetitorFrustrations string `json:"competitorFrustrations,omitempty"`
	UniqueEdge             string `json:"uniqueEdge,omitempty"`

	// Plain-text context from ingested documents and transcripts.
	DocumentContext string `json:"documentContext,omitempty"`
}

// SalesCycleLengths is the allowed briefing enumeration.
var SalesCycleLengths = []string{"days", "weeks", "1-3_months", "3-6_months", "6-12_months"}

// Field returns the named context field as a string, "" when absent or
// empty. Numeric fields render only when positive, so progressive dispatch
// treats an unset budget as missing.
func (d *Data) Field(name string) string {
	if d == nil {
		return ""
	}
	switch name {
	case "industry":
		return d.Industry
	case "audience":
		return d.Audience
	case "icp":
		return d.ICP
	case "budget":
		return positiveNum(d.Budget)
	case "offerPrice":
		return positiveNum(d.OfferPrice)
	case "salesCycleLength":
		return d.SalesCycleLength
	case "offerDescription":
		return d.OfferDescription
	case "competitors":
		return d.Competitors
	case "competitorFrustrations":
		return d.CompetitorFrustrations
	case "uniqueEdge":
		return d.UniqueEdge
	case "documentContext":
		return d.DocumentContext
	default:
		return ""
	}
}

// Merge overlays the answered fields of patch onto base and returns the
// result. Strings overwrite when non-empty, numbers when positive; an
// untouched form field never erases an earlier answer.
func Merge(base, patch Data) Data {
	out := base
	if patch.Industry != "" {
		out.Industry = patch.Industry
	}
	if patch.Audience != "" {
		out.Audience = patch.Audience
	}
	if patch.ICP != "" {
		out.ICP = patch.ICP
	}
	if patch.Budget > 0 {
		out.Budget = patch.Budget
	}
	if patch.OfferPrice > 0 {
		out.OfferPrice = patch.OfferPrice
	}
	if patch.SalesCycleLength != "" {
		out.SalesCycleLength = patch.SalesCycleLength
	}
	if patch.CPL > 0 {
		out.CPL = patch.CPL
	}
	if patch.LeadToSQLRate > 0 {
		out.LeadToSQLRate = patch.LeadToSQLRate
	}
	if patch.SQLToCustomerRate > 0 {
		out.SQLToCustomerRate = patch.SQLToCustomerRate
	}
	if patch.RetentionMultiplier > 0 {
		out.RetentionMultiplier = patch.RetentionMultiplier
	}
	if patch.OfferDescription != "" {
		out.OfferDescription = patch.OfferDescription
	}
	if patch.Competitors != "" {
		out.Competitors = patch.Competitors
	}
	if patch.CompetitorFrustrations != "" {
		out.CompetitorFrustrations = patch.CompetitorFrustrations
	}
	if patch.UniqueEdge != "" {
		out.UniqueEdge = patch.UniqueEdge
	}
	if patch.DocumentContext != "" {
		out.DocumentContext = patch.DocumentContext
	}
	return out
}

func positiveNum(f float64) string {
	if f <= 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
