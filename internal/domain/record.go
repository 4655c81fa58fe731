package domain

import "time"

// RawRecord is a candidate item as delivered by an acquisition source.
type RawRecord struct {
	URL       string
	Title     string
	Source    string
	Published string
}

// Candidate is the representative record of one canonical story after aggregation.
type Candidate struct {
	RawRecord
	CanonicalURL   string
	Corroborations int
}

// ScoredCandidate carries the ingestion-time identity and accuracy of a candidate.
type ScoredCandidate struct {
	Candidate
	ID        string
	Published time.Time
	Accuracy  float64
}

// Enrichment holds the descriptive fields supplied by an enrichment collaborator.
type Enrichment struct {
	Meaning  string `json:"meaning"`
	Impact   string `json:"impact"`
	Affected string `json:"affected"`
}

// EnrichmentRequest is the per-story input handed to an enricher.
type EnrichmentRequest struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Source string `json:"source"`
}

// Engagement is the externally observed reaction to a published handle.
type Engagement struct {
	Replies int
	Pinned  bool
}

// TransitionKind enumerates lifecycle events emitted for downstream consumers.
type TransitionKind string

const (
	TransitionIngested  TransitionKind = "ingested"
	TransitionPromoted  TransitionKind = "promoted"
	TransitionRemoved   TransitionKind = "removed"
	TransitionPermanent TransitionKind = "permanently_archived"
)

// Transition records one lifecycle event of a story.
type Transition struct {
	RunID      string
	StoryID    string
	Kind       TransitionKind
	From       Status
	To         Status
	ValueScore float64
	At         time.Time
}
