package pipeline

import (
	"context"

	"github.com/cbdata-group/listing-cli/pkg/anthropic"
	"github.com/cbdata-group/listing-cli/pkg/laterical"
)

// mockOracle is a function-backed anthropic.Client.
type mockOracle struct {
	createMessage func(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error)
}

func (m *mockOracle) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return m.createMessage(ctx, req)
}

// textResponse wraps text in a minimal MessageResponse.
func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

// mockSearch is a function-backed laterical.Client.
type mockSearch struct {
	search func(ctx context.Context, query string) ([]laterical.QueryResult, error)
}

func (m *mockSearch) Search(ctx context.Context, query string) ([]laterical.QueryResult, error) {
	return m.search(ctx, query)
}
