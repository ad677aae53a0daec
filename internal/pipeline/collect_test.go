package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbdata-group/listing-cli/internal/model"
)

func coreCollector() Collector {
	topics, _ := model.VocabularyCore.Topics()
	return Collector{Threshold: 0.75, Accepted: model.NewTopicSet(topics...)}
}

func scored(url string, p float64) model.ScoredEntry {
	return model.ScoredEntry{
		CandidateEntry:     model.CandidateEntry{URL: url, Title: "t", Text: "x"},
		ListingProbability: p,
	}
}

func TestCollect_StrictThreshold(t *testing.T) {
	results := []model.ClassifiedResult{{
		BankName: "Bank of Ghana",
		Blocks: []model.ScoredBlock{{
			Topic: model.TopicNews,
			Entries: []model.ScoredEntry{
				scored("https://bank.gov/at-threshold", 0.75),
				scored("https://bank.gov/above-threshold", 0.76),
			},
		}},
	}}

	out := coreCollector().Collect(results)
	require.Len(t, out, 1)
	assert.Equal(t, "https://bank.gov/above-threshold", out[0].URL)
}

func TestCollect_CrossTopicMergeWithinBank(t *testing.T) {
	results := []model.ClassifiedResult{{
		BankName: "Bank of Ghana",
		Blocks: []model.ScoredBlock{
			{Topic: model.TopicNews, Entries: []model.ScoredEntry{
				scored("https://bank.gov/publications", 0.9),
			}},
			{Topic: model.TopicResearch, Entries: []model.ScoredEntry{
				scored("https://bank.gov/publications", 0.85),
			}},
		},
	}}

	out := coreCollector().Collect(results)
	require.Len(t, out, 1)
	assert.Equal(t, []model.Topic{model.TopicNews, model.TopicResearch}, out[0].Topics)
	// First winning score is kept.
	assert.Equal(t, 0.9, out[0].ListingProbability)
}

func TestCollect_SameURLAcrossBanksStaysSeparate(t *testing.T) {
	entry := scored("https://sdmx.example.org/portal", 0.9)
	results := []model.ClassifiedResult{
		{BankName: "Bank A", Blocks: []model.ScoredBlock{{Topic: model.TopicStatistics, Entries: []model.ScoredEntry{entry}}}},
		{BankName: "Bank B", Blocks: []model.ScoredBlock{{Topic: model.TopicStatistics, Entries: []model.ScoredEntry{entry}}}},
	}

	out := coreCollector().Collect(results)
	assert.Len(t, out, 2)
	assert.Equal(t, "Bank A", out[0].BankName)
	assert.Equal(t, "Bank B", out[1].BankName)
}

func TestCollect_UnacceptedTopicIgnored(t *testing.T) {
	results := []model.ClassifiedResult{{
		BankName: "Bank of Ghana",
		Blocks: []model.ScoredBlock{
			{Topic: model.TopicAnnouncements, Entries: []model.ScoredEntry{
				scored("https://bank.gov/announcements-index", 0.95),
			}},
			{Topic: model.TopicNews, Entries: []model.ScoredEntry{
				scored("https://bank.gov/news-index", 0.95),
			}},
		},
	}}

	out := coreCollector().Collect(results)
	require.Len(t, out, 1)
	assert.Equal(t, "https://bank.gov/news-index", out[0].URL)
}

func TestCollect_StableOrder(t *testing.T) {
	results := []model.ClassifiedResult{{
		BankName: "Bank of Ghana",
		Blocks: []model.ScoredBlock{{
			Topic: model.TopicNews,
			Entries: []model.ScoredEntry{
				scored("https://bank.gov/first", 0.8),
				scored("https://bank.gov/second", 0.8),
				scored("https://bank.gov/third", 0.8),
			},
		}},
	}}

	out := coreCollector().Collect(results)
	require.Len(t, out, 3)
	assert.Equal(t, "https://bank.gov/first", out[0].URL)
	assert.Equal(t, "https://bank.gov/second", out[1].URL)
	assert.Equal(t, "https://bank.gov/third", out[2].URL)
}
