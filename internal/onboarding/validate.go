package onboarding

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors name the offending form group; handlers surface the
// message verbatim with HTTP 400.
var (
	ErrInvalidNiche    = errors.New("Invalid niche form data")
	ErrInvalidBriefing = errors.New("Invalid briefing form data")
)

// ValidateNiche checks the niche form: industry, audience and ICP must be
// non-empty strings.
func ValidateNiche(d *Data) error {
	if d == nil {
		return ErrInvalidNiche
	}
	var missing []string
	if strings.TrimSpace(d.Industry) == "" {
		missing = append(missing, "industry")
	}
	if strings.TrimSpace(d.Audience) == "" {
		missing = append(missing, "audience")
	}
	if strings.TrimSpace(d.ICP) == "" {
		missing = append(missing, "icp")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidNiche, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateBriefing checks the briefing form: budget and offer price must be
// positive and salesCycleLength must be one of the fixed enumeration.
func ValidateBriefing(d *Data) error {
	if d == nil {
		return ErrInvalidBriefing
	}
	if d.Budget <= 0 {
		return fmt.Errorf("%w: budget must be > 0", ErrInvalidBriefing)
	}
	if d.OfferPrice <= 0 {
		return fmt.Errorf("%w: offerPrice must be > 0", ErrInvalidBriefing)
	}
	if !validSalesCycle(d.SalesCycleLength) {
		return fmt.Errorf("%w: salesCycleLength must be one of %s", ErrInvalidBriefing, strings.Join(SalesCycleLengths, ", "))
	}
	return nil
}

func validSalesCycle(v string) bool {
	for _, allowed := range SalesCycleLengths {
		if v == allowed {
			return true
		}
	}
	return false
}

// Validate runs both form groups; used by the non-streaming submission
// endpoint before anything reaches the scheduler.
func Validate(d *Data) error {
	if err := ValidateNiche(d); err != nil {
		return err
	}
	return ValidateBriefing(d)
}
