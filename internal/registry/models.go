package registry

import (
	"time"

	dErrors "conclave/pkg/domain-errors"
)

// CostTier categorizes responders by price bracket. Tiers feed the run cost
// summary; they never influence aggregation.
type CostTier string

const (
	TierFree    CostTier = "free"
	TierBudget  CostTier = "budget"
	TierMid     CostTier = "mid"
	TierPremium CostTier = "premium"
)

// IsValid checks if the cost tier is one of the supported enum values.
func (t CostTier) IsValid() bool {
	switch t {
	case TierFree, TierBudget, TierMid, TierPremium:
		return true
	}
	return false
}

// ParseCostTier creates a CostTier from a string, validating it.
func ParseCostTier(s string) (CostTier, error) {
	t := CostTier(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid cost tier: "+s)
	}
	return t, nil
}

// Descriptor describes a single responder endpoint. Descriptors are immutable
// after registry load; everything downstream holds references, not copies it
// mutates.
type Descriptor struct {
	ID      string        `yaml:"id" json:"id"`
	Name    string        `yaml:"name" json:"name"`
	Origin  string        `yaml:"origin" json:"origin"`
	Tier    CostTier      `yaml:"tier" json:"tier"`
	Free    bool          `yaml:"free" json:"free"`
	Timeout time.Duration `yaml:"-" json:"timeout"`
}

// UnmarshalYAML accepts Go duration strings ("30s") for the timeout field.
func (d *Descriptor) UnmarshalYAML(unmarshal func(any) error) error {
	var aux struct {
		ID      string   `yaml:"id"`
		Name    string   `yaml:"name"`
		Origin  string   `yaml:"origin"`
		Tier    CostTier `yaml:"tier"`
		Free    bool     `yaml:"free"`
		Timeout string   `yaml:"timeout"`
	}
	if err := unmarshal(&aux); err != nil {
		return err
	}
	d.ID = aux.ID
	d.Name = aux.Name
	d.Origin = aux.Origin
	d.Tier = aux.Tier
	d.Free = aux.Free
	if aux.Timeout != "" {
		t, err := time.ParseDuration(aux.Timeout)
		if err != nil {
			return err
		}
		d.Timeout = t
	}
	return nil
}
