package config

const (
	// Team matching weights, summing to 100.
	RoleFitWeight       = 40
	ReciprocalFitWeight = 20
	SkillsWeight        = 30
	AvailabilityWeight  = 10

	DefaultMatchLimit = 10
	MaxMatchLimit     = 50
)

// MatchReasons are the human readable labels attached to a scored candidate.
var MatchReasons = map[string]string{
	"role":         "fills a role you are looking for",
	"reciprocal":   "is looking for your role",
	"skills":       "shares skills or tech stack",
	"availability": "overlapping availability",
}
