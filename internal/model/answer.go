package model

// Reference points at a fragment that contributed to an answer.
type Reference struct {
	FragmentID string  `json:"fragment_id"`
	RepoID     string  `json:"repo_id"`
	Path       string  `json:"path"`
	StartLine  int     `json:"start_line"`
	EndLine    int     `json:"end_line"`
	Score      float64 `json:"score"`
}

// Answer is the result of a question against a repo or group.
type Answer struct {
	Text           string      `json:"text"`
	References     []Reference `json:"references"`
	ConversationID string      `json:"conversation_id,omitempty"`
	LinkHistory    bool        `json:"link_history"`
	Cached         bool        `json:"cached,omitempty"`
}

// Hit is one retrieval result before answer generation.
type Hit struct {
	Fragment Fragment `json:"fragment"`
	Score    float64  `json:"score"`
}
