package translation

import (
	"context"
	"strings"

	"pencil-translator/internal/cache"
	"pencil-translator/internal/interpolation"
	"pencil-translator/internal/table"
	"pencil-translator/internal/textutil"
	"pencil-translator/internal/worker"

	"github.com/rs/zerolog/log"
)

// Options tune a Service.
type Options struct {
	TargetLang string
	BatchSize  int
	Workers    int
	// OnProgress is called with the number of texts finished after each batch.
	OnProgress func(done int)
}

// Stats summarizes one TranslateRows run.
type Stats struct {
	Unique     int
	Cached     int
	Translated int
	Failed     int
	// Untranslatable counts texts without letters, copied through as-is.
	Untranslatable int
}

// Service fills the new text of table rows using a Translator and a cache.
type Service struct {
	translator Translator
	cache      *cache.TranslationCache
	opts       Options
}

// NewService creates a Service. A nil cache keeps results for this run only.
func NewService(tr Translator, c *cache.TranslationCache, opts Options) *Service {
	if c == nil {
		c = cache.NewTranslationCache(nil)
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	return &Service{translator: tr, cache: c, opts: opts}
}

type job struct {
	sources  []string
	safe     []string
	mappings [][]interpolation.Mapping
}

// Pending returns the unique texts of rows that still need a translator call.
func (s *Service) Pending(ctx context.Context, rows []table.Row) []string {
	var out []string
	for _, text := range uniqueTexts(rows) {
		if !textutil.HasLetters(text) {
			continue
		}
		if _, ok := s.cache.Get(ctx, s.opts.TargetLang, text); ok {
			continue
		}
		out = append(out, text)
	}
	return out
}

// TranslateRows returns a copy of rows with NewText set to the translation of
// OriginalText. Each distinct text is translated once. Texts that fail, or
// whose markup placeholders do not survive translation, keep an empty NewText.
// An error is returned only when ctx is cancelled.
func (s *Service) TranslateRows(ctx context.Context, rows []table.Row) ([]table.Row, *Stats, error) {
	unique := uniqueTexts(rows)
	stats := &Stats{Unique: len(unique)}
	results := make(map[string]string, len(unique))

	var todo []string
	for _, text := range unique {
		if !textutil.HasLetters(text) {
			results[text] = text
			stats.Untranslatable++
			continue
		}
		if v, ok := s.cache.Get(ctx, s.opts.TargetLang, text); ok {
			results[text] = v
			stats.Cached++
			continue
		}
		todo = append(todo, text)
	}

	log.Info().
		Int("unique", stats.Unique).
		Int("cached", stats.Cached).
		Int("to_translate", len(todo)).
		Msg("Translation plan")

	var jobs []job
	for _, batch := range worker.Batch(todo, s.opts.BatchSize) {
		j := job{sources: batch, safe: make([]string, len(batch)), mappings: make([][]interpolation.Mapping, len(batch))}
		for i, text := range batch {
			j.safe[i], j.mappings[i] = interpolation.Protect(text)
		}
		jobs = append(jobs, j)
	}

	pool := worker.NewPool[job, []string](s.opts.Workers, func(ctx context.Context, j job) ([]string, error) {
		return s.translator.TranslateBatch(ctx, j.safe)
	})
	pool.OnDone(func(task worker.Task[job, []string]) {
		s.collect(ctx, task, results, stats)
		if s.opts.OnProgress != nil {
			s.opts.OnProgress(len(task.Input.sources))
		}
	})
	pool.Execute(ctx, jobs)

	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	out := make([]table.Row, len(rows))
	for i, r := range rows {
		r.NewText = results[strings.TrimSpace(r.OriginalText)]
		out[i] = r
	}

	log.Info().
		Int("translated", stats.Translated).
		Int("failed", stats.Failed).
		Msg("Translation finished")

	return out, stats, nil
}

func (s *Service) collect(ctx context.Context, task worker.Task[job, []string], results map[string]string, stats *Stats) {
	j := task.Input
	if task.Err != nil {
		stats.Failed += len(j.sources)
		return
	}

	for i, src := range j.sources {
		var got string
		if i < len(task.Result) {
			got = strings.TrimSpace(task.Result[i])
		}
		if got == "" {
			stats.Failed++
			continue
		}
		if !interpolation.Intact(got, j.mappings[i]) {
			log.Warn().Str("text", textutil.Truncate(src, 30)).Msg("Translation lost markup, leaving it empty")
			stats.Failed++
			continue
		}

		translated := interpolation.Restore(got, j.mappings[i])
		results[src] = translated
		stats.Translated++
		if err := s.cache.Set(ctx, s.opts.TargetLang, src, translated); err != nil {
			log.Warn().Err(err).Msg("Failed to cache translation")
		}
	}
}

func uniqueTexts(rows []table.Row) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rows {
		text := strings.TrimSpace(r.OriginalText)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		out = append(out, text)
	}
	return out
}
