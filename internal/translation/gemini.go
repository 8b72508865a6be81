package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	geminiBaseURL  = "https://generativelanguage.googleapis.com/v1beta/models"
	batchDelimiter = "|||"
)

var errRetryable = errors.New("retryable")

// GeminiClient sends prompts to the Google Gemini generateContent API.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	maxRetries int
	backoff    time.Duration
	httpClient *http.Client
}

// NewGeminiClient creates a Gemini client for model.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    geminiBaseURL,
		maxRetries: 3,
		backoff:    2 * time.Second,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// WithBaseURL points the client at another endpoint.
func (gc *GeminiClient) WithBaseURL(url string) *GeminiClient {
	gc.baseURL = strings.TrimRight(url, "/")
	return gc
}

// WithBackoff sets the base delay between retries; attempt n waits n times base.
func (gc *GeminiClient) WithBackoff(base time.Duration) *GeminiClient {
	gc.backoff = base
	return gc
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  *genConfig      `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type genConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata *geminiUsage      `json:"usageMetadata,omitempty"`
	Error         *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Generate sends one prompt and returns the text of the first candidate.
// Rate limits and server errors are retried with a linear backoff.
func (gc *GeminiClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	bodyBytes, err := json.Marshal(geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: userPrompt}}},
		},
		GenerationConfig: &genConfig{
			MaxOutputTokens: 8192,
			Temperature:     0.2,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal translation request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < gc.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * gc.backoff
			log.Warn().Int("attempt", attempt+1).Dur("backoff", backoff).Msg("Retrying translation")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, err := gc.doRequest(ctx, bodyBytes)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !errors.Is(err, errRetryable) {
			return "", err
		}
	}

	return "", fmt.Errorf("translation failed after %d attempts: %w", gc.maxRetries, lastErr)
}

func (gc *GeminiClient) doRequest(ctx context.Context, bodyBytes []byte) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", gc.baseURL, gc.model, gc.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := gc.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("API call: %w: %w", errRetryable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w error (status %d): %s", errRetryable, resp.StatusCode, string(respBody))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("API error [%s]: %s", apiResp.Error.Status, apiResp.Error.Message)
	}
	if len(apiResp.Candidates) == 0 {
		return "", errors.New("empty response: no candidates")
	}

	var result strings.Builder
	for _, p := range apiResp.Candidates[0].Content.Parts {
		result.WriteString(p.Text)
	}

	if apiResp.UsageMetadata != nil {
		log.Debug().
			Int("prompt_tokens", apiResp.UsageMetadata.PromptTokenCount).
			Int("output_tokens", apiResp.UsageMetadata.CandidatesTokenCount).
			Msg("Translation complete")
	}

	return strings.TrimSpace(result.String()), nil
}

// GeminiTranslator translates batches with one Gemini request per batch.
type GeminiTranslator struct {
	client  *GeminiClient
	prompts *PromptBuilder
}

// NewGeminiTranslator creates a translator from language from to language to.
func NewGeminiTranslator(client *GeminiClient, from, to string) *GeminiTranslator {
	return &GeminiTranslator{
		client:  client,
		prompts: NewPromptBuilder(from, to),
	}
}

// TranslateBatch sends texts as one numbered prompt and splits the answer on
// the batch delimiter. Missing answers yield empty entries.
func (gt *GeminiTranslator) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	response, err := gt.client.Generate(ctx, gt.prompts.SystemPrompt(), gt.prompts.BatchUserPrompt(texts))
	if err != nil {
		return nil, err
	}

	parts := splitBatchResponse(response)
	if len(parts) != len(texts) {
		log.Warn().Int("expected", len(texts)).Int("got", len(parts)).Msg("Misaligned batch response")
	}

	results := make([]string, len(texts))
	for i := range results {
		if i < len(parts) {
			results[i] = parts[i]
		}
	}
	return results, nil
}

var numberPrefix = regexp.MustCompile(`^\[\d+\]\s*`)

func splitBatchResponse(response string) []string {
	var parts []string
	for _, p := range strings.Split(response, batchDelimiter) {
		p = strings.TrimSpace(p)
		parts = append(parts, numberPrefix.ReplaceAllString(p, ""))
	}
	// A trailing delimiter leaves one empty part.
	if n := len(parts); n > 0 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return parts
}
