package domain

// AllBrands is the option that disables a list filter when selected.
const AllBrands = "Svi"

// EstimatorFilter selects campaigns from the estimator dataset
type EstimatorFilter struct {
	Search string `json:"search,omitempty" validate:"max=200"`

	Brands   []string `json:"brands,omitempty" validate:"dive,max=100"`
	Formats  []string `json:"formats,omitempty" validate:"dive,max=100"`
	Ages     []string `json:"ages,omitempty" validate:"dive,max=50"`
	Genders  []string `json:"genders,omitempty" validate:"dive,max=50"`
	Bids     []string `json:"bids,omitempty" validate:"dive,max=100"`
	Quarters []string `json:"quarters,omitempty" validate:"dive,max=20"`

	// TargetBudget > 0 selects campaigns within ±10% of it and overrides
	// MinBudget and MaxBudget.
	TargetBudget float64 `json:"target_budget,omitempty" validate:"gte=0"`
	MinBudget    float64 `json:"min_budget,omitempty" validate:"gte=0"`
	MaxBudget    float64 `json:"max_budget,omitempty" validate:"gte=0"`

	Metrics           []string `json:"metrics,omitempty"`
	ShowOriginalNames bool     `json:"show_original_names,omitempty"`
	Limit             int      `json:"limit,omitempty" validate:"gte=0,lte=10000"`
}

// HasBrand reports whether the filter restricts brands. An empty selection
// or one containing AllBrands keeps every brand.
func (f EstimatorFilter) HasBrand() bool {
	for _, b := range f.Brands {
		if b == AllBrands {
			return false
		}
	}
	return len(f.Brands) > 0
}
