package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArtifactName(t *testing.T) {
	tests := []struct {
		name string
		bank string
		want string
	}{
		{"plain", "Bank of England", "Bank_of_England"},
		{"punctuation stripped", "Central Bank of Trinidad & Tobago", "Central_Bank_of_Trinidad__Tobago"},
		{"diacritics folded", "Banco Central de la República Argentina", "Banco_Central_de_la_Republica_Argentina"},
		{"hyphens kept", "Banque Centrale Ouest-Africaine", "Banque_Centrale_Ouest-Africaine"},
		{"leading and trailing spaces", "  Reserve Bank  ", "Reserve_Bank"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Bank{Name: tt.bank}
			assert.Equal(t, tt.want, b.ArtifactName())
		})
	}
}

func TestNormalizedName(t *testing.T) {
	b := Bank{Name: "  Bank of GHANA "}
	assert.Equal(t, "bank of ghana", b.NormalizedName())
}

func TestRawResultTotalHits(t *testing.T) {
	r := RawResult{
		BankName: "Test Bank",
		Topics: []RawTopicResult{
			{
				Topic: TopicNews,
				Responses: []QueryResponse{
					{Results: WebResults{Web: []WebHit{{URL: "a"}, {URL: "b"}}}},
					{Results: WebResults{Web: []WebHit{{URL: "c"}}}},
				},
			},
			{
				Topic:     TopicResearch,
				Responses: []QueryResponse{{Results: WebResults{Web: []WebHit{{URL: "d"}}}}},
			},
		},
	}
	assert.Equal(t, 4, r.TotalHits())
}
