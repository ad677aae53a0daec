package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVocabularyTopics(t *testing.T) {
	core, err := VocabularyCore.Topics()
	require.NoError(t, err)
	assert.Equal(t, []Topic{
		TopicPublications,
		TopicStatistics,
		TopicMonetaryPolicy,
		TopicNews,
		TopicResearch,
	}, core)

	ext, err := VocabularyExtended.Topics()
	require.NoError(t, err)
	assert.Len(t, ext, 8)
	assert.Contains(t, ext, TopicAnnouncements)
	assert.Contains(t, ext, TopicPublications)

	dt, err := VocabularyDocType.Topics()
	require.NoError(t, err)
	assert.Len(t, dt, 12)
	assert.Contains(t, dt, TopicNA)
}

func TestVocabularyTopics_Unknown(t *testing.T) {
	_, err := Vocabulary("klingon").Topics()
	assert.ErrorContains(t, err, `unknown topic vocabulary "klingon"`)
}

func TestVocabularyContains(t *testing.T) {
	assert.True(t, VocabularyCore.Contains(TopicNews))
	assert.False(t, VocabularyCore.Contains(TopicAnnouncements))
	assert.True(t, VocabularyExtended.Contains(TopicAnnouncements))
	assert.False(t, Vocabulary("bogus").Contains(TopicNews))
}

func TestTopicSet(t *testing.T) {
	s := NewTopicSet(TopicNews, TopicResearch)
	assert.True(t, s.Has(TopicNews))
	assert.True(t, s.Has(TopicResearch))
	assert.False(t, s.Has(TopicStatistics))
}
