// Package hackathon looks up hackathons for an interest through an
// OpenAI-compatible chat completions API.
package hackathon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hackmate/backend/internal/config"
	"hackmate/backend/internal/models"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrInterestRequired = errors.New("interest is required")
	// ErrUnavailable means no API key is configured.
	ErrUnavailable = errors.New("hackathon data is currently unavailable")
	ErrUpstream    = errors.New("hackathon search failed")
)

const promptTemplate = "Find ongoing or upcoming hackathons related to %s. Please return ONLY a valid JSON array of hackathon objects with these EXACT fields: title, theme, platform, deadline, link, description. Include platforms like Devpost, Devfolio, DoraHacks, and MLH. Give at least 10 available hackathons if available. Each object should have exactly these fields with string values. The response must be a valid JSON array without any additional text."

const maxAttempts = 3

// Cache stores results per normalized interest. storage.Service implements it.
type Cache interface {
	GetCachedHackathons(ctx context.Context, interest string) ([]models.Hackathon, bool, error)
	CacheHackathons(ctx context.Context, interest string, hackathons []models.Hackathon, ttl time.Duration) error
}

// Finder queries the search upstream, rate limited and cached.
type Finder struct {
	cfg      config.SearchConfig
	cache    Cache
	cacheTTL time.Duration
	client   *http.Client
	limiter  *rate.Limiter
	log      *zap.Logger
}

func NewFinder(cfg config.SearchConfig, cache Cache, cacheTTL time.Duration, log *zap.Logger) *Finder {
	if log == nil {
		log = zap.NewNop()
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 1
	}
	return &Finder{
		cfg:      cfg,
		cache:    cache,
		cacheTTL: cacheTTL,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		log:      log,
	}
}

// Enabled reports whether an API key is configured.
func (f *Finder) Enabled() bool { return f.cfg.APIKey != "" }

// Find returns hackathons for interest. An empty slice means the upstream found none.
func (f *Finder) Find(ctx context.Context, interest string) ([]models.Hackathon, error) {
	interest = strings.TrimSpace(interest)
	if interest == "" {
		return nil, ErrInterestRequired
	}
	if !f.Enabled() {
		return nil, ErrUnavailable
	}

	if f.cache != nil {
		cached, ok, err := f.cache.GetCachedHackathons(ctx, interest)
		if err != nil {
			f.log.Warn("hackathon cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	content, err := backoff.Retry(ctx, func() (string, error) {
		return f.complete(ctx, fmt.Sprintf(promptTemplate, interest))
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			f.log.Warn("hackathon search retry", zap.Duration("next", next), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	hackathons, err := ParseHackathons(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if f.cache != nil && len(hackathons) > 0 {
		if err := f.cache.CacheHackathons(ctx, interest, hackathons, f.cacheTTL); err != nil {
			f.log.Warn("hackathon cache write failed", zap.Error(err))
		}
	}
	return hackathons, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete runs one completion. 4xx responses are not retried.
func (f *Finder) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       f.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.2,
	})
	if err != nil {
		return "", backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.cfg.APIKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", backoff.Permanent(fmt.Errorf("decode completion: %w", err))
	}
	if len(out.Choices) == 0 {
		return "", backoff.Permanent(errors.New("completion has no choices"))
	}
	return out.Choices[0].Message.Content, nil
}

// ParseHackathons extracts the JSON array from a completion, from the first '['
// to the last ']', and assigns ids hack-0, hack-1, ...
func ParseHackathons(content string) ([]models.Hackathon, error) {
	raw := content
	if start, end := strings.Index(content, "["), strings.LastIndex(content, "]"); start >= 0 && end > start {
		raw = content[start : end+1]
	}

	var hackathons []models.Hackathon
	if err := json.Unmarshal([]byte(raw), &hackathons); err != nil {
		return nil, fmt.Errorf("completion is not a hackathon list: %w", err)
	}
	for i := range hackathons {
		hackathons[i].ID = fmt.Sprintf("hack-%d", i)
	}
	if hackathons == nil {
		hackathons = []models.Hackathon{}
	}
	return hackathons, nil
}
