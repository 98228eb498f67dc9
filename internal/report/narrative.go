package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/mokala/veldscan/internal/models"
)

// Narrator produces a short prose summary of a run's yearly series using
// OpenAI. Optional: construction fails without an API key, and callers treat
// narration errors as non-fatal.
type Narrator struct {
	client openai.Client
	model  string
}

// NewNarrator reads OPENAI_API_KEY for authentication.
func NewNarrator() (*Narrator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &Narrator{
		client: client,
		model:  openai.ChatModelGPT4oMini,
	}, nil
}

// Summarize asks for a two-sentence plain-language trend summary of the
// yearly mean biomass series.
func (n *Narrator) Summarize(ctx context.Context, region string, metrics models.Metrics, years []models.YearlyResult) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Yearly mean standing biomass (kg/ha) for the %s reserve, modelled from satellite reflectance (validation R2 %.2f, RMSE %.0f):\n", region, metrics.R2, metrics.RMSE)
	for _, yr := range years {
		switch {
		case yr.MeanBiomass != nil:
			fmt.Fprintf(&b, "%d: %.0f\n", yr.Year, *yr.MeanBiomass)
		case yr.Status == models.YearSkipped:
			fmt.Fprintf(&b, "%d: no usable imagery\n", yr.Year)
		default:
			fmt.Fprintf(&b, "%d: failed\n", yr.Year)
		}
	}
	b.WriteString("Write a two-sentence summary of the trend for a reserve manager. No jargon.")

	resp, err := n.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: n.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(b.String()),
		},
	})
	if err != nil {
		return "", fmt.Errorf("narrative generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("narrative generation returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
