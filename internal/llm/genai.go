package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// GenAIClient is an alternative Generator built on the official Gemini SDK.
// The SDK handles auth plumbing but hides the raw HTTP exchange, so upstream
// failures are classified from its APIError instead of the response itself.
type GenAIClient struct {
	model  string
	apiKey string

	initOnce sync.Once
	client   *genai.Client
	initErr  error
}

type GenAIClientOpts struct {
	Model  string
	APIKey string
}

func NewGenAIClient(opts GenAIClientOpts) *GenAIClient {
	return &GenAIClient{model: opts.Model, apiKey: opts.APIKey}
}

// init creates the underlying SDK client on first use. Construction is
// deferred so a missing API key surfaces as a per-request configuration
// error rather than a startup crash.
func (g *GenAIClient) init(ctx context.Context) error {
	g.initOnce.Do(func() {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: g.apiKey})
		if err != nil {
			g.initErr = fmt.Errorf("failed to create Gemini client: %w", err)
			return
		}
		g.client = client
	})
	return g.initErr
}

func (g *GenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", &Error{Kind: KindConfiguration, Message: "GEMINI_API_KEY is not set"}
	}
	if err := g.init(ctx); err != nil {
		return "", &Error{Kind: KindConfiguration, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](Temperature),
		MaxOutputTokens: MaxOutputTokens,
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", classifyGenAIError(err)
	}

	if len(result.Candidates) == 0 {
		log.Warn().Str("model", g.model).Msg("upstream returned no candidates")
		return "", nil
	}

	if result.UsageMetadata != nil {
		log.Info().
			Str("model", g.model).
			Int32("inputTokens", result.UsageMetadata.PromptTokenCount).
			Int32("outputTokens", result.UsageMetadata.CandidatesTokenCount).
			Msg("prediction llm call")
	}

	return result.Text(), nil
}

func classifyGenAIError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "upstream call timed out"}
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, apiErr.Message)
	}
	return &Error{Kind: KindUnavailable, Message: err.Error()}
}
