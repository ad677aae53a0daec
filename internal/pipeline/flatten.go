// Package pipeline implements the per-bank discovery stages: flattening
// raw search results through the URL filter, scoring the surviving
// candidates with the listing classifier, collecting the high-confidence
// aggregate, and orchestrating the stages end to end.
package pipeline

import (
	"go.uber.org/zap"

	"github.com/cbdata-group/listing-cli/internal/model"
	"github.com/cbdata-group/listing-cli/internal/urlfilter"
)

// Flattener turns a bank's nested raw search results into per-topic
// deduplicated candidate lists.
type Flattener struct {
	// KeepEmptyTopics retains topic blocks whose every hit was filtered
	// out. Default drops them so downstream stages never see an empty
	// batch.
	KeepEmptyTopics bool
}

// Flatten walks topics, query responses, and web hits in input order.
// Each topic owns a fresh seen set: the same URL surviving under two
// topics of one bank is intentional. Entries keep first-seen order.
func (f Flattener) Flatten(raw model.RawResult) model.FilteredResult {
	out := model.FilteredResult{BankName: raw.BankName}

	for _, topic := range raw.Topics {
		seen := urlfilter.NewSeenSet()
		var entries []model.CandidateEntry

		for _, resp := range topic.Responses {
			for _, hit := range resp.Results.Web {
				if hit.URL == "" || !urlfilter.IsValid(hit.URL, seen) {
					continue
				}
				entries = append(entries, model.CandidateEntry{
					URL:   hit.URL,
					Title: hit.Title,
					Text:  hit.Text,
				})
			}
		}

		if len(entries) == 0 && !f.KeepEmptyTopics {
			zap.L().Debug("flatten: dropping empty topic",
				zap.String("bank", raw.BankName),
				zap.String("topic", string(topic.Topic)),
			)
			continue
		}

		out.Blocks = append(out.Blocks, model.CandidateBlock{
			Topic:   topic.Topic,
			Entries: entries,
		})
	}

	return out
}
