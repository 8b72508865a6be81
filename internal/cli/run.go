package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pencil-translator/internal/cache"
	"pencil-translator/internal/config"
	"pencil-translator/internal/fileutil"
	"pencil-translator/internal/locator"
	"pencil-translator/internal/pipeline"
	"pencil-translator/internal/table"
	"pencil-translator/internal/translation"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

// newTranslator builds the configured translation backend.
var newTranslator = func(cfg *config.Config) (translation.Translator, error) {
	switch cfg.Backend {
	case "google":
		return translation.NewGoogleTranslator(cfg.SourceLang, cfg.TargetLang, cfg.RequestDelay), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini backend needs GEMINI_API_KEY")
		}
		client := translation.NewGeminiClient(cfg.GeminiAPIKey, cfg.TranslationModel)
		return translation.NewGeminiTranslator(client, cfg.SourceLang, cfg.TargetLang), nil
	default:
		return nil, fmt.Errorf("unknown translation backend %q (want google or gemini)", cfg.Backend)
	}
}

// runExtract handles the `extract` command.
func runExtract(archivePath, out string, format table.Format) ([]table.Row, error) {
	res, err := pipeline.New(nil).ExtractFile(archivePath)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", archivePath, err)
	}

	if err := table.WriteFile(out, res.Rows, format, false); err != nil {
		return nil, fmt.Errorf("write table: %w", err)
	}

	log.Info().
		Str("archive", archivePath).
		Str("format", res.Kind.String()).
		Int("documents", res.Documents).
		Int("texts", len(res.Rows)).
		Str("output", out).
		Msg("Extraction complete")

	return res.Rows, nil
}

// runTranslate handles the `translate` command.
func runTranslate(ctx context.Context, cfg *config.Config, in, out string) error {
	rows, err := table.ReadFile(in, table.FormatFromPath(in))
	if err != nil {
		return fmt.Errorf("read table: %w", err)
	}

	translated, err := translateRows(ctx, cfg, rows)
	if err != nil {
		return err
	}

	if err := table.WriteFile(out, translated, table.FormatFromPath(out), true); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	log.Info().Str("output", out).Int("rows", len(translated)).Msg("Translated table written")
	return nil
}

func translateRows(ctx context.Context, cfg *config.Config, rows []table.Row) ([]table.Row, error) {
	tr, err := newTranslator(cfg)
	if err != nil {
		return nil, err
	}

	translationCache, closeCache, err := initCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeCache()

	log.Info().
		Str("backend", cfg.Backend).
		Str("from", cfg.SourceLang).
		Str("to", cfg.TargetLang).
		Msg("Starting translation")

	var bar *progressbar.ProgressBar
	svc := translation.NewService(tr, translationCache, translation.Options{
		TargetLang: cfg.TargetLang,
		BatchSize:  cfg.BatchSize,
		Workers:    cfg.MaxConcurrentAPICalls,
		OnProgress: func(n int) { _ = bar.Add(n) },
	})
	bar = newProgressBar(len(svc.Pending(ctx, rows)), "translating")

	translated, stats, err := svc.TranslateRows(ctx, rows)
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}

	if stats.Failed > 0 {
		log.Warn().Int("failed", stats.Failed).Msg("Some texts were not translated, their new_text is empty")
	}
	return translated, nil
}

// initCache creates the translation cache, persisted in PostgreSQL when DATABASE_URL is set.
func initCache(ctx context.Context, cfg *config.Config) (*cache.TranslationCache, func(), error) {
	if cfg.DatabaseURL == "" {
		return cache.NewTranslationCache(nil), func() {}, nil
	}

	pool, store, err := cache.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	translationCache := cache.NewTranslationCache(store)
	if err := translationCache.Preload(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to preload cache")
	}
	return translationCache, pool.Close, nil
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", description)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

// runReplace handles the `replace` command.
func runReplace(archivePath, tablePath, out string) error {
	rows, err := table.ReadFile(tablePath, table.FormatFromPath(tablePath))
	if err != nil {
		return fmt.Errorf("read table: %w", err)
	}
	return replaceRows(archivePath, rows, out)
}

func replaceRows(archivePath string, rows []table.Row, out string) error {
	res, err := pipeline.New(nil).ReplaceFile(archivePath, rows)
	if err != nil {
		return fmt.Errorf("replace %s: %w", archivePath, err)
	}

	for _, w := range res.Warnings {
		log.Warn().Str("kind", string(w.Kind)).Str("id", w.ID).Msg(w.Detail)
	}

	if err := fileutil.WriteFile(out, res.Data, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	log.Info().
		Str("format", res.Kind.String()).
		Int("documents", res.Documents).
		Int("matched", res.Matched).
		Int("changes", res.Changes).
		Int("skipped", res.Skipped).
		Int("warnings", len(res.Warnings)).
		Str("output", out).
		Msg("Replacement complete")
	return nil
}

// allOutputs are the files written by runAll.
type allOutputs struct {
	Texts      string
	Translated string
	Archive    string
}

// runAll handles the `all` command.
func runAll(ctx context.Context, cfg *config.Config, archivePath string) (*allOutputs, error) {
	if archivePath == "" {
		found, err := locator.FindArchive(".")
		if err != nil {
			return nil, err
		}
		archivePath = found
		log.Info().Str("archive", archivePath).Msg("Using archive")
	}

	dir := filepath.Dir(archivePath)
	stem := strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath))
	outs := &allOutputs{
		Texts:      filepath.Join(dir, "texts.csv"),
		Translated: filepath.Join(dir, "texts_translated.csv"),
		Archive:    filepath.Join(dir, fmt.Sprintf("%s_%s%s", stem, strings.ToUpper(cfg.TargetLang), locator.ArchiveExt)),
	}

	rows, err := runExtract(archivePath, outs.Texts, table.FormatCSV)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no texts found in %s", archivePath)
	}

	translated, err := translateRows(ctx, cfg, rows)
	if err != nil {
		return nil, err
	}
	if err := table.WriteFile(outs.Translated, translated, table.FormatCSV, true); err != nil {
		return nil, fmt.Errorf("write table: %w", err)
	}

	if err := replaceRows(archivePath, translated, outs.Archive); err != nil {
		return nil, err
	}
	return outs, nil
}
