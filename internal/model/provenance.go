package model

// ExtractionMethod records which extractor produced a review.
type ExtractionMethod string

const (
	MethodHeuristic         ExtractionMethod = "heuristic"
	MethodAI                ExtractionMethod = "ai"
	MethodHeuristicFallback ExtractionMethod = "heuristic_fallback"
)

// Provenance describes where and how a review was obtained.
type Provenance struct {
	Method  ExtractionMethod `json:"method"`
	Model   string           `json:"model,omitempty"`
	PageURL string           `json:"page_url,omitempty"`
	Page    int              `json:"page,omitempty"`
}
