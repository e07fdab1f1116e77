package matcher

// DefaultAlias is returned when no strategy finds a location. Most
// unattributed federal enforcement stories are datelined in the capital.
const DefaultAlias = "washington"

// Nominal scores for strategies that accept the first hit without scoring.
const (
	TitlePatternScore = 100
	CityStateScore    = 90
	DirectionalScore  = 20
	BareMentionScore  = 10
	DefaultScore      = 0
)

// ContextKeywords raise a scored alias when they appear close to it.
var ContextKeywords = []string{"raid", "arrest", "operation", "detention", "enforcement", "ice"}

// Thresholds holds the tunable constants of the matcher.
type Thresholds struct {
	// MinScore is the score the best scored-pass candidate must exceed.
	MinScore int
	// CityMinLen is the length a canonical city name must exceed to be scored.
	CityMinLen int
	// ContextWindow is the maximum distance in bytes between an alias and a context keyword.
	ContextWindow int
	// TitleBonus is added when an alias also appears in the title.
	TitleBonus int
	// CityTitleBonus is added when a canonical city name appears in the title.
	CityTitleBonus int
	// ContextBonus is added per context keyword inside the window.
	ContextBonus int
	// MinCaptureLen is the shortest captured phrase looked up inside aliases.
	// Captured phrases are compared to city names only when longer than this.
	MinCaptureLen int
	// MaxDirectionalWords caps the phrase captured after in/near/from/out of.
	MaxDirectionalWords int
}

// DefaultThresholds returns the stock tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinScore:            3,
		CityMinLen:          4,
		ContextWindow:       50,
		TitleBonus:          10,
		CityTitleBonus:      5,
		ContextBonus:        2,
		MinCaptureLen:       3,
		MaxDirectionalWords: 4,
	}
}
