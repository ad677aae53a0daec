package pipeline

import (
	"go.uber.org/zap"

	"github.com/cbdata-group/listing-cli/internal/model"
)

// Collector builds the aggregate high-confidence artifact from per-bank
// classified results.
type Collector struct {
	// Threshold is exceeded strictly: an entry scored exactly at the
	// threshold is excluded.
	Threshold float64

	// Accepted limits collection to these topic labels. Blocks under
	// other topics are ignored entirely.
	Accepted model.TopicSet
}

// Collect scans classified results in input order and returns the flat
// high-confidence list. Within one bank the same URL scored above
// threshold under several topics collapses to a single row whose Topics
// holds the union of labels (first winning score kept). The same URL
// appearing under two different banks stays two rows.
func (c Collector) Collect(results []model.ClassifiedResult) []model.HighConfidenceEntry {
	var out []model.HighConfidenceEntry

	for _, res := range results {
		index := make(map[string]int) // url → position in out, this bank only
		kept := 0

		for _, block := range res.Blocks {
			if !c.Accepted.Has(block.Topic) {
				continue
			}
			for _, entry := range block.Entries {
				if entry.ListingProbability <= c.Threshold {
					continue
				}
				if pos, ok := index[entry.URL]; ok {
					out[pos].Topics = appendTopic(out[pos].Topics, block.Topic)
					continue
				}
				index[entry.URL] = len(out)
				out = append(out, model.HighConfidenceEntry{
					BankName:           res.BankName,
					URL:                entry.URL,
					Title:              entry.Title,
					Text:               entry.Text,
					ListingProbability: entry.ListingProbability,
					Topics:             []model.Topic{block.Topic},
				})
				kept++
			}
		}

		zap.L().Debug("collect: bank scanned",
			zap.String("bank", res.BankName),
			zap.Int("kept", kept),
		)
	}

	return out
}

func appendTopic(topics []model.Topic, t model.Topic) []model.Topic {
	for _, have := range topics {
		if have == t {
			return topics
		}
	}
	return append(topics, t)
}
