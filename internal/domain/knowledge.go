package domain

// KnowledgeResult is one supporting snippet returned by retrieval.
// Score is a relative ranking key, not a calibrated probability: keyword
// boosting during hybrid search can push it past 1.0.
type KnowledgeResult struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Title string  `json:"title,omitempty"`
	URL   string  `json:"url,omitempty"`
	Score float64 `json:"score"`
}

// KnowledgeDocument is an article to be embedded and indexed.
type KnowledgeDocument struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
	URL   string `json:"url,omitempty"`
}
