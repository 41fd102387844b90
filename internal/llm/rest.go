package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// RestClient calls the Gemini generateContent REST endpoint directly. Going
// through the raw API keeps the upstream status code and error body available
// for classification.
type RestClient struct {
	httpClient *resty.Client
	model      string
	apiKey     string
	timeout    time.Duration
}

type RestClientOpts struct {
	BaseURL string
	Model   string
	APIKey  string
	// Timeout overrides RequestTimeout when non-zero (for testing).
	Timeout time.Duration
}

func NewRestClient(opts RestClientOpts) *RestClient {
	c := &RestClient{
		model:   opts.Model,
		apiKey:  opts.APIKey,
		timeout: RequestTimeout,
	}
	if opts.Timeout != 0 {
		c.timeout = opts.Timeout
	}
	baseURL := DefaultBaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	c.httpClient = resty.New().
		SetDebug(false).
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")
	return c
}

type generateRequest struct {
	Contents         []restContent    `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type restContent struct {
	Role  string     `json:"role"`
	Parts []restPart `json:"parts"`
}

type restPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []restPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int64 `json:"promptTokenCount"`
		CandidatesTokenCount int64 `json:"candidatesTokenCount"`
		TotalTokenCount      int64 `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Generate performs a single generateContent call. The API key is checked
// before any network activity so a misconfigured server never reaches the
// upstream.
func (c *RestClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", &Error{Kind: KindConfiguration, Message: "GEMINI_API_KEY is not set"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := generateRequest{
		Contents: []restContent{
			{Role: "user", Parts: []restPart{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     Temperature,
			MaxOutputTokens: MaxOutputTokens,
		},
	}

	result := &generateResponse{}
	res, err := c.httpClient.NewRequest().
		SetContext(ctx).
		SetHeader("x-goog-api-key", c.apiKey).
		SetBody(body).
		SetResult(result).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", c.model))
	if err != nil {
		if isTimeout(err) {
			return "", &Error{Kind: KindTimeout, Message: "upstream call timed out"}
		}
		return "", &Error{Kind: KindUnavailable, Message: err.Error()}
	}

	if res.IsError() {
		return "", classifyStatus(res.StatusCode(), extractErrorMessage(res.Body()))
	}

	text := result.text()
	if text == "" {
		log.Warn().Str("model", c.model).Msg("upstream returned no candidates")
	}

	log.Info().
		Str("model", c.model).
		Int64("inputTokens", result.UsageMetadata.PromptTokenCount).
		Int64("outputTokens", result.UsageMetadata.CandidatesTokenCount).
		Msg("prediction llm call")

	return text, nil
}

func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var out string
	for _, p := range r.Candidates[0].Content.Parts {
		out += p.Text
	}
	return out
}

// extractErrorMessage pulls the human-readable message out of a Gemini error
// body, falling back to the raw body when it doesn't match the expected shape.
func extractErrorMessage(body []byte) string {
	var errBody struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errBody); err == nil && errBody.Error.Message != "" {
		return errBody.Error.Message
	}
	if len(body) > 200 {
		// Back up to a rune boundary so the cut never splits a UTF-8 sequence
		cut := 200
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return string(body)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
