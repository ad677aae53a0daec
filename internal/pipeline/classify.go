package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cbdata-group/listing-cli/internal/config"
	"github.com/cbdata-group/listing-cli/internal/model"
	"github.com/cbdata-group/listing-cli/pkg/anthropic"
)

const classifySystemPrompt = `You are an expert at identifying whether a web page is a listing/collection page for publications, news articles, reports, research papers or similar official documents on a central bank website. A listing page contains links to multiple documents or downloadable items, not just a single article, report, or news post. Given a JSON array of entries (with url, title, and text), for each entry, append a new field 'listing_probability': a score between 0 and 1 indicating how likely it is that the page is a listing or collection page for publications/reports. Do not give a high score to single document pages or home/about/contact/FAQ pages. Return the same JSON array, but with the new field added to each entry. Do not use markdown formatting or any extra text.`

// Classifier scores candidate entries with the classification oracle.
// One Classify call is one oracle request; batching per topic is the
// caller's boundary, and retries belong to the caller too. Safe for
// concurrent use: one Classifier is shared across parallel bank runs.
type Classifier struct {
	client anthropic.Client
	cfg    config.AnthropicConfig

	mu    sync.Mutex
	usage anthropic.TokenUsage
}

// NewClassifier creates a Classifier using the given oracle client.
func NewClassifier(client anthropic.Client, cfg config.AnthropicConfig) *Classifier {
	return &Classifier{client: client, cfg: cfg}
}

// Usage returns accumulated token usage across all Classify calls.
func (c *Classifier) Usage() anthropic.TokenUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// LogCost logs accumulated usage and estimated cost.
func (c *Classifier) LogCost() {
	c.Usage().LogCost(c.cfg.Model, "classify")
}

// Classify scores one batch of entries. The returned slice is parallel
// to the input. Any malformed oracle response fails the whole batch: no
// partial scores, no fabricated defaults.
func (c *Classifier) Classify(ctx context.Context, entries []model.CandidateEntry) ([]model.ScoredEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, eris.Wrap(err, "classify: marshal entries")
	}

	temp := c.cfg.Temperature
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		System:      anthropic.BuildCachedSystemBlocks(classifySystemPrompt),
		Messages:    []anthropic.Message{{Role: "user", Content: string(payload)}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "classify: oracle request")
	}
	c.mu.Lock()
	c.usage.Add(resp.Usage)
	c.mu.Unlock()

	scored, err := parseScoredEntries(resp.Text(), len(entries))
	if err != nil {
		zap.L().Error("classify: malformed oracle response",
			zap.Int("entries", len(entries)),
			zap.String("raw", truncate(resp.Text(), 500)),
			zap.Error(err),
		)
		return nil, err
	}
	return scored, nil
}

// scoredWire is the oracle's response shape. The probability is a
// pointer so an entry that came back without one is a hard failure,
// not a silent zero.
type scoredWire struct {
	URL                string   `json:"url"`
	Title              string   `json:"title"`
	Text               string   `json:"text"`
	ListingProbability *float64 `json:"listing_probability"`
}

// parseScoredEntries strips code fences, parses the JSON array, and
// validates shape, length, and probability presence and range.
func parseScoredEntries(text string, want int) ([]model.ScoredEntry, error) {
	text = stripFences(text)

	var wire []scoredWire
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, eris.Wrap(err, "classify: parse response")
	}
	if len(wire) != want {
		return nil, eris.Errorf("classify: got %d scored entries, want %d", len(wire), want)
	}

	scored := make([]model.ScoredEntry, len(wire))
	for i, w := range wire {
		if w.ListingProbability == nil {
			return nil, eris.Errorf("classify: entry %d missing listing_probability", i)
		}
		if p := *w.ListingProbability; p < 0 || p > 1 {
			return nil, eris.Errorf("classify: entry %d probability %v out of range", i, p)
		}
		scored[i] = model.ScoredEntry{
			CandidateEntry: model.CandidateEntry{
				URL:   w.URL,
				Title: w.Title,
				Text:  w.Text,
			},
			ListingProbability: *w.ListingProbability,
		}
	}
	return scored, nil
}

// stripFences removes a leading markdown fence line (with optional
// language tag) and a trailing fence line, if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	lines = lines[1:]
	if len(lines) > 0 && strings.HasPrefix(lines[len(lines)-1], "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
