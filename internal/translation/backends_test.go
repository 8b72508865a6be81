package translation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bregydoc/gtranslate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleTranslatorPerTextFailure(t *testing.T) {
	g := NewGoogleTranslator("es", "en", time.Millisecond)
	var seen []gtranslate.TranslationParams
	g.translate = func(text string, p gtranslate.TranslationParams) (string, error) {
		seen = append(seen, p)
		if text == "roto" {
			return "", errors.New("429")
		}
		return strings.ToUpper(text), nil
	}

	out, err := g.TranslateBatch(context.Background(), []string{"hola", "roto", "adiós"})
	require.NoError(t, err)
	assert.Equal(t, []string{"HOLA", "", "ADIÓS"}, out)
	require.Len(t, seen, 3)
	assert.Equal(t, "es", seen[0].From)
	assert.Equal(t, "en", seen[0].To)
}

func TestGoogleTranslatorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGoogleTranslator("auto", "en", 0)
	g.translate = func(string, gtranslate.TranslationParams) (string, error) {
		t.Fatal("no request after cancellation")
		return "", nil
	}
	_, err := g.TranslateBatch(ctx, []string{"hola"})
	require.ErrorIs(t, err, context.Canceled)
}

func geminiServer(t *testing.T, handler func(req geminiRequest) (int, string)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))

		body, _ := io.ReadAll(r.Body)
		var req geminiRequest
		if !assert.NoError(t, json.Unmarshal(body, &req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		status, text := handler(req)
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(text))
			return
		}
		_ = json.NewEncoder(w).Encode(geminiResponse{
			Candidates: []geminiCandidate{{Content: geminiContent{Parts: []geminiPart{{Text: text}}}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestGeminiTranslatorBatch(t *testing.T) {
	srv, _ := geminiServer(t, func(req geminiRequest) (int, string) {
		assert.Contains(t, req.SystemInstruction.Parts[0].Text, "Translate from es to en")
		assert.Contains(t, req.Contents[0].Parts[0].Text, "[1] Guardar\n[2] Cancelar\n")
		return http.StatusOK, "[1] Save ||| [2] Cancel |||"
	})

	client := NewGeminiClient("secret", "test-model").WithBaseURL(srv.URL)
	out, err := NewGeminiTranslator(client, "es", "en").TranslateBatch(context.Background(), []string{"Guardar", "Cancelar"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Save", "Cancel"}, out)
}

func TestGeminiTranslatorShortResponse(t *testing.T) {
	srv, _ := geminiServer(t, func(geminiRequest) (int, string) {
		return http.StatusOK, "Save"
	})

	client := NewGeminiClient("secret", "test-model").WithBaseURL(srv.URL)
	out, err := NewGeminiTranslator(client, "auto", "en").TranslateBatch(context.Background(), []string{"Guardar", "Cancelar"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Save", ""}, out)
}

func TestGeminiClientRetries(t *testing.T) {
	var n atomic.Int32
	srv, calls := geminiServer(t, func(geminiRequest) (int, string) {
		if n.Add(1) == 1 {
			return http.StatusTooManyRequests, "slow down"
		}
		return http.StatusOK, "Hello"
	})

	client := NewGeminiClient("secret", "test-model").WithBaseURL(srv.URL).WithBackoff(time.Millisecond)
	out, err := client.Generate(context.Background(), "sys", "Hola")
	require.NoError(t, err)
	assert.Equal(t, "Hello", out)
	assert.EqualValues(t, 2, calls.Load())
}

func TestGeminiClientDoesNotRetryClientErrors(t *testing.T) {
	srv, calls := geminiServer(t, func(geminiRequest) (int, string) {
		return http.StatusBadRequest, "bad key"
	})

	client := NewGeminiClient("secret", "test-model").WithBaseURL(srv.URL).WithBackoff(time.Millisecond)
	_, err := client.Generate(context.Background(), "sys", "Hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.EqualValues(t, 1, calls.Load())
}

func TestSplitBatchResponse(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitBatchResponse("[1] a |||\n[2] b"))
	assert.Empty(t, splitBatchResponse(""))
}
