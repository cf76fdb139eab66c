package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hackmate/backend/internal/models"
)

// HTTPSnapshot reads room history from GET /api/messages.
type HTTPSnapshot struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPSnapshot(baseURL string) *HTTPSnapshot {
	return &HTTPSnapshot{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (h *HTTPSnapshot) ListMessages(ctx context.Context, teamID string) ([]models.TeamMessage, error) {
	endpoint := h.BaseURL + "/api/messages?teamId=" + url.QueryEscape(teamID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
		return nil, fmt.Errorf("fetch history: %s: %s", resp.Status, body.Error)
	}

	var out struct {
		Messages []models.TeamMessage `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return out.Messages, nil
}
