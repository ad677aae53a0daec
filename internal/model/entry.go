package model

// CandidateEntry is a single search hit that survived the URL filter.
// Immutable once created; classification produces a ScoredEntry rather
// than mutating the candidate in place.
type CandidateEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text,omitempty"`
}

// ScoredEntry is a CandidateEntry plus the classifier's listing
// probability. Probability is present and in [0,1] for every entry that
// survived classification; entries the classifier fails to score are
// dropped as part of a whole-batch failure, never defaulted.
type ScoredEntry struct {
	CandidateEntry
	ListingProbability float64 `json:"listing_probability"`
}

// TopicBlock groups one topic's entries for one bank. Entry URLs within
// a block are unique; the same URL may legitimately appear under another
// topic of the same bank.
type TopicBlock[E any] struct {
	Topic   Topic `json:"topic"`
	Entries []E   `json:"entries"`
}

// CandidateBlock and ScoredBlock are the two concrete block shapes the
// pipeline persists.
type (
	CandidateBlock = TopicBlock[CandidateEntry]
	ScoredBlock    = TopicBlock[ScoredEntry]
)

// HighConfidenceEntry is one row of the final aggregate artifact. Topics
// holds more than one label when the same URL was independently scored
// above threshold under multiple topics for the same bank.
type HighConfidenceEntry struct {
	BankName           string  `json:"bank_name"`
	URL                string  `json:"url"`
	Title              string  `json:"title"`
	Text               string  `json:"text,omitempty"`
	ListingProbability float64 `json:"listing_probability"`
	Topics             []Topic `json:"topics"`
}
