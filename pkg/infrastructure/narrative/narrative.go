// Package narrative turns a finished scheduling run into a human-readable
// explanation using the Gemini API. The explanation is advisory text for
// production planners; scheduling decisions never depend on it.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// ErrExplanationUnavailable reports that no explanation could be produced.
// The schedule itself is unaffected.
var ErrExplanationUnavailable = errors.New("schedule explanation unavailable")

const (
	defaultModel   = "gemini-1.5-flash"
	defaultTimeout = 30 * time.Second
)

// PlacementSummary describes one placed batch for the narrator.
type PlacementSummary struct {
	RequestID  string
	RecipeName string
	Line       string
	Start      time.Time
	End        time.Time
	Additives  []AdditiveUse
}

// AdditiveUse is one additive reservation, already formatted with its unit.
type AdditiveUse struct {
	Name   string
	Amount string
}

// ShortfallSummary describes one request the run could not place.
type ShortfallSummary struct {
	RequestID string
	Reason    string
	Detail    string
}

// Briefing is the complete, deterministic input handed to a Generator.
type Briefing struct {
	RunID       string
	Placements  []PlacementSummary
	Infeasible  []ShortfallSummary
	GeneratedAt time.Time
}

// Generator produces a planner-facing explanation for a scheduling run.
type Generator interface {
	Explain(ctx context.Context, b Briefing) (string, error)
}

// BuildPrompt renders the briefing into the model prompt. The output is a
// pure function of the briefing, so identical runs produce identical prompts.
func BuildPrompt(b Briefing) string {
	var sb strings.Builder
	sb.WriteString("You are a yogurt production planning assistant analyzing scheduling run ")
	sb.WriteString(b.RunID)
	sb.WriteString(".\n\nScheduled batches:\n")
	if len(b.Placements) == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, p := range b.Placements {
		fmt.Fprintf(&sb, "  - %s: %s on %s from %s to %s\n",
			p.RequestID, p.RecipeName, p.Line,
			p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339))
		for _, a := range p.Additives {
			fmt.Fprintf(&sb, "      reserves %s of %s\n", a.Amount, a.Name)
		}
	}
	sb.WriteString("\nUnschedulable requests:\n")
	if len(b.Infeasible) == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, s := range b.Infeasible {
		fmt.Fprintf(&sb, "  - %s: %s (%s)\n", s.RequestID, s.Reason, s.Detail)
	}
	sb.WriteString(`
Explain this schedule to a production planner in markdown with bullet points, covering:
- Why batches landed on their lines and time slots
- What blocked the unschedulable requests and how to unblock them
- Additive inventory to restock before the next planning run
`)
	return sb.String()
}

// GeminiGenerator generates explanations with the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

var _ Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a Gemini-backed narrator. An empty model picks
// the default.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = defaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Explain sends the briefing prompt to the model. Calls are bounded by a
// default timeout when the caller's context has none.
func (g *GeminiGenerator) Explain(ctx context.Context, b Briefing) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(BuildPrompt(b)), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExplanationUnavailable, err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("%w: model returned no text", ErrExplanationUnavailable)
	}
	return text, nil
}
