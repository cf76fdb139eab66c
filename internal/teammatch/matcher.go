// Package teammatch ranks team profiles against each other for team formation.
package teammatch

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"hackmate/backend/internal/config"
	"hackmate/backend/internal/models"
	"hackmate/backend/internal/storage"

	"go.uber.org/zap"
)

// MatcherService finds teammates for a profile.
type MatcherService struct {
	Storage storage.ProfileStore
	log     *zap.Logger
}

func NewMatcherService(s storage.ProfileStore, log *zap.Logger) *MatcherService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MatcherService{Storage: s, log: log}
}

// Matches scores every other profile against profileID, best first.
// limit <= 0 means config.DefaultMatchLimit; it is capped at config.MaxMatchLimit.
func (m *MatcherService) Matches(ctx context.Context, profileID uint, limit int) ([]models.TeamMatch, error) {
	profile, err := m.Storage.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	candidates, err := m.Storage.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}

	matches := Rank(*profile, candidates, limit)
	m.log.Debug("ranked team matches",
		zap.Uint("profile_id", profileID),
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(matches)),
	)
	return matches, nil
}

// Rank scores candidates against u, drops zero scores and u itself, and sorts by
// score descending then name.
func Rank(u models.TeamProfile, candidates []models.TeamProfile, limit int) []models.TeamMatch {
	if limit <= 0 {
		limit = config.DefaultMatchLimit
	}
	if limit > config.MaxMatchLimit {
		limit = config.MaxMatchLimit
	}

	out := make([]models.TeamMatch, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == u.ID || strings.EqualFold(c.Email, u.Email) {
			continue
		}
		score, reasons := Score(u, c)
		if score == 0 {
			continue
		}
		out = append(out, models.TeamMatch{Profile: c, Score: score, Reasons: reasons})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Profile.Name < out[j].Profile.Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Score returns c's fit for u in 0..100 and the reasons that contributed.
func Score(u, c models.TeamProfile) (int, []string) {
	var total float64
	reasons := []string{}

	if containsFold(u.LookingFor, c.Role) {
		total += config.RoleFitWeight
		reasons = append(reasons, config.MatchReasons["role"])
	}
	if containsFold(c.LookingFor, u.Role) {
		total += config.ReciprocalFitWeight
		reasons = append(reasons, config.MatchReasons["reciprocal"])
	}
	if sim := jaccard(tokens(u.Skills, u.TechStack), tokens(c.Skills, c.TechStack)); sim > 0 {
		total += sim * config.SkillsWeight
		reasons = append(reasons, config.MatchReasons["skills"])
	}
	if overlap := availabilityOverlap(u.Availability, c.Availability); overlap > 0 {
		total += overlap * config.AvailabilityWeight
		reasons = append(reasons, config.MatchReasons["availability"])
	}

	return int(math.Round(total)), reasons
}

func containsFold(list []string, v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}

// tokens splits free-text fields on commas and whitespace into a lower-cased set.
func tokens(fields ...string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range fields {
		for _, tok := range strings.FieldsFunc(strings.ToLower(f), func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		}) {
			set[tok] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// availabilityOverlap is |u ∩ c| / |u| over case-insensitive slots.
func availabilityOverlap(u, c []string) float64 {
	us := make(map[string]struct{}, len(u))
	for _, slot := range u {
		if s := strings.ToLower(strings.TrimSpace(slot)); s != "" {
			us[s] = struct{}{}
		}
	}
	if len(us) == 0 {
		return 0
	}
	cs := make(map[string]struct{}, len(c))
	for _, slot := range c {
		cs[strings.ToLower(strings.TrimSpace(slot))] = struct{}{}
	}
	inter := 0
	for s := range us {
		if _, ok := cs[s]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(us))
}
