package models

// Hackathon is one search result from the hackathon finder.
type Hackathon struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Theme       string `json:"theme"`
	Platform    string `json:"platform"`
	Deadline    string `json:"deadline"`
	Link        string `json:"link"`
	Description string `json:"description"`
}
