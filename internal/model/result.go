package model

// WebHit is one raw web result inside a search-oracle response.
type WebHit struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text,omitempty"`
}

// QueryResponse is one response object from a single search call. The
// oracle may return several of these per query.
type QueryResponse struct {
	Results WebResults `json:"results"`
}

// WebResults holds the web hits of a query response.
type WebResults struct {
	Web []WebHit `json:"web"`
}

// RawTopicResult is one topic's raw search output for a bank: the query
// that was issued and the responses it produced, in oracle order.
type RawTopicResult struct {
	Topic     Topic           `json:"topic"`
	Query     string          `json:"query,omitempty"`
	Responses []QueryResponse `json:"search_result"`
}

// RawResult is the per-bank raw search artifact, written once per bank.
type RawResult struct {
	BankName string           `json:"bank_name"`
	Topics   []RawTopicResult `json:"search_results"`
}

// TotalHits counts web hits across all topics and responses. Used by the
// status command to flag banks whose searches came back nearly empty.
func (r RawResult) TotalHits() int {
	total := 0
	for _, t := range r.Topics {
		for _, resp := range t.Responses {
			total += len(resp.Results.Web)
		}
	}
	return total
}

// FilteredResult is the per-bank artifact after flattening and URL
// filtering: deduplicated candidates grouped by topic.
type FilteredResult struct {
	BankName string           `json:"bank_name"`
	Blocks   []CandidateBlock `json:"topic_blocks"`
}

// ClassifiedResult is the per-bank artifact after listing classification.
type ClassifiedResult struct {
	BankName string        `json:"bank_name"`
	Blocks   []ScoredBlock `json:"topic_blocks"`
}
