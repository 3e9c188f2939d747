package domain

// Plan describes one of the two fixed subscription plans. Prices are display
// amounts in cents; the provider price IDs live in the billing credential set
// so they can differ between test and live mode.
type Plan struct {
	ID                string
	Name              string
	MonthlyPriceCents int64
	AnnualPriceCents  int64
	Features          []string
}

const (
	PlanPro   = "pro"
	PlanElite = "elite"
)

var plans = []Plan{
	{
		ID:                PlanPro,
		Name:              "Pro",
		MonthlyPriceCents: 1900,
		AnnualPriceCents:  19000,
		Features: []string{
			"unlimited_prompts",
			"prompt_history",
			"standard_models",
		},
	},
	{
		ID:                PlanElite,
		Name:              "Elite",
		MonthlyPriceCents: 4900,
		AnnualPriceCents:  49000,
		Features: []string{
			"unlimited_prompts",
			"prompt_history",
			"standard_models",
			"premium_models",
			"priority_support",
		},
	},
}

// Plans returns the fixed plan catalog in display order.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// PlanByID looks up a plan in the catalog.
func PlanByID(id string) (Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// HasFeature reports whether the plan carries the named feature.
func (p Plan) HasFeature(feature string) bool {
	for _, f := range p.Features {
		if f == feature {
			return true
		}
	}
	return false
}
