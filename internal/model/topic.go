package model

import "github.com/rotisserie/eris"

// Topic is a coarse document-category label used to scope a search query
// and its resulting candidate set.
type Topic string

const (
	TopicPublications   Topic = "publications"
	TopicStatistics     Topic = "statistics"
	TopicMonetaryPolicy Topic = "monetary_policy"
	TopicNews           Topic = "news"
	TopicResearch       Topic = "research"

	// Extended vocabulary.
	TopicAnnouncements Topic = "announcements"
	TopicNotices       Topic = "notices"
	TopicCommunication Topic = "communication"

	// Document-type vocabulary.
	TopicAnnualReports        Topic = "annual_reports"
	TopicStatisticalBulletins Topic = "statistical_bulletins"
	TopicEconomicReviews      Topic = "economic_reviews"
	TopicWorkingPapers        Topic = "working_papers"
	TopicFinancialStability   Topic = "financial_stability"
	TopicInflationReports     Topic = "inflation_reports"
	TopicExchangeRate         Topic = "exchange_rate"
	TopicPressReleases        Topic = "press_releases"
	TopicSpeeches             Topic = "speeches"
	TopicRegulatoryUpdates    Topic = "regulatory_updates"
	TopicPublicationsMisc     Topic = "publications_misc"
	TopicNA                   Topic = "NA"
)

// Vocabulary names a closed topic set. One vocabulary is fixed per
// deployment; mixing vocabularies across pipeline stages silently loses
// data, so every stage resolves topics through the same vocabulary.
type Vocabulary string

const (
	VocabularyCore     Vocabulary = "core"
	VocabularyExtended Vocabulary = "extended"
	VocabularyDocType  Vocabulary = "doctype"
)

var coreTopics = []Topic{
	TopicPublications,
	TopicStatistics,
	TopicMonetaryPolicy,
	TopicNews,
	TopicResearch,
}

var extendedTopics = append(append([]Topic{}, coreTopics...),
	TopicAnnouncements,
	TopicNotices,
	TopicCommunication,
)

var docTypeTopics = []Topic{
	TopicAnnualReports,
	TopicStatisticalBulletins,
	TopicEconomicReviews,
	TopicWorkingPapers,
	TopicFinancialStability,
	TopicInflationReports,
	TopicExchangeRate,
	TopicPressReleases,
	TopicSpeeches,
	TopicRegulatoryUpdates,
	TopicPublicationsMisc,
	TopicNA,
}

// Topics returns the topic labels in the vocabulary, in canonical order.
func (v Vocabulary) Topics() ([]Topic, error) {
	switch v {
	case VocabularyCore:
		return coreTopics, nil
	case VocabularyExtended:
		return extendedTopics, nil
	case VocabularyDocType:
		return docTypeTopics, nil
	default:
		return nil, eris.Errorf("model: unknown topic vocabulary %q", string(v))
	}
}

// Contains reports whether the topic belongs to the vocabulary.
func (v Vocabulary) Contains(t Topic) bool {
	topics, err := v.Topics()
	if err != nil {
		return false
	}
	for _, cand := range topics {
		if cand == t {
			return true
		}
	}
	return false
}

// TopicSet is a membership set of topic labels.
type TopicSet map[Topic]struct{}

// NewTopicSet builds a TopicSet from labels.
func NewTopicSet(topics ...Topic) TopicSet {
	s := make(TopicSet, len(topics))
	for _, t := range topics {
		s[t] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s TopicSet) Has(t Topic) bool {
	_, ok := s[t]
	return ok
}
