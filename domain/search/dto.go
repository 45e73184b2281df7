package search

// Match values distinguishing how a result was found.
const (
	MatchText   = "text"
	MatchVector = "vector"
)

// Result is a single entity hit. Score is cosine similarity for vector hits
// and the match tier (3 prefix, 2 name, 1 description) for text hits.
type Result struct {
	ID          string  `json:"id"`
	Type        string  `json:"type,omitempty"`
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	ShortName   string  `json:"x_mitre_shortname,omitempty"`
	Score       float32 `json:"score"`
	Match       string  `json:"match"`
}

// Response is the search endpoint payload
type Response struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
}
