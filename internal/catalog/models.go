// Package catalog holds the static model and role definitions that drive
// routing, pricing, and budget policy. The tables are tunable data, not
// logic.
package catalog

// ModelDef describes one upstream model. Tier is a strict order used for
// downgrade selection; higher is more capable. Costs are USD per million
// tokens.
type ModelDef struct {
	ID                   string
	DisplayName          string
	Tier                 int
	InputCostPerMillion  float64
	OutputCostPerMillion float64
}

// DefaultModel is the fallback when a request names no model or a role
// permits nothing.
const DefaultModel = "claude-sonnet-4-20250514"

var models = map[string]ModelDef{
	"claude-opus-4-20250514": {
		ID:                   "claude-opus-4-20250514",
		DisplayName:          "Claude Opus 4",
		Tier:                 3,
		InputCostPerMillion:  15.0,
		OutputCostPerMillion: 75.0,
	},
	"claude-sonnet-4-20250514": {
		ID:                   "claude-sonnet-4-20250514",
		DisplayName:          "Claude Sonnet 4",
		Tier:                 2,
		InputCostPerMillion:  3.0,
		OutputCostPerMillion: 15.0,
	},
	"claude-3-5-haiku-20241022": {
		ID:                   "claude-3-5-haiku-20241022",
		DisplayName:          "Claude Haiku 3.5",
		Tier:                 1,
		InputCostPerMillion:  0.8,
		OutputCostPerMillion: 4.0,
	},
}

// GetModel returns the definition for id.
func GetModel(id string) (ModelDef, bool) {
	m, ok := models[id]
	return m, ok
}

// AllModels returns every model definition, highest tier first.
func AllModels() []ModelDef {
	out := make([]ModelDef, 0, len(models))
	for _, m := range models {
		out = append(out, m)
	}
	// Insertion sort by descending tier; the table is tiny.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Tier > out[j-1].Tier; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
