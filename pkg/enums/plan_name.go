package enums

import "fmt"

// PlanName identifies one of the fixed rate plan tiers.
type PlanName string

const (
	PlanNameBronze   PlanName = "Bronze"
	PlanNameSilver   PlanName = "Silver"
	PlanNameGold     PlanName = "Gold"
	PlanNamePlatinum PlanName = "Platinum"
)

var validPlanNames = []PlanName{
	PlanNameBronze,
	PlanNameSilver,
	PlanNameGold,
	PlanNamePlatinum,
}

// String implements fmt.Stringer.
func (p PlanName) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PlanName.
func (p PlanName) IsValid() bool {
	for _, candidate := range validPlanNames {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlanName converts raw input into a PlanName.
func ParsePlanName(value string) (PlanName, error) {
	for _, candidate := range validPlanNames {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan name %q", value)
}
