package translation

import (
	"context"
	"time"

	"pencil-translator/internal/textutil"

	"github.com/bregydoc/gtranslate"
	"github.com/rs/zerolog/log"
)

// GoogleTranslator translates through the public Google Translate endpoint,
// one text per request with a fixed delay between requests.
type GoogleTranslator struct {
	from, to  string
	delay     time.Duration
	translate func(text string, params gtranslate.TranslationParams) (string, error)
}

// NewGoogleTranslator creates a translator from language from ("auto" detects) to language to.
func NewGoogleTranslator(from, to string, delay time.Duration) *GoogleTranslator {
	return &GoogleTranslator{
		from:      from,
		to:        to,
		delay:     delay,
		translate: gtranslate.TranslateWithParams,
	}
}

// TranslateBatch translates texts one by one. A failed text yields an empty entry.
func (g *GoogleTranslator) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	results := make([]string, len(texts))

	for i, text := range texts {
		if i > 0 && g.delay > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(g.delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		translated, err := g.translate(text, gtranslate.TranslationParams{
			From: g.from,
			To:   g.to,
		})
		if err != nil {
			log.Warn().Err(err).Str("text", textutil.Truncate(text, 30)).Msg("Translation failed")
			continue
		}
		results[i] = translated
	}

	return results, nil
}
