package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pencil-translator/internal/config"
	"pencil-translator/internal/table"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:           "pencil-translator",
		Short:         "Extract, translate and re-inject the texts of Pencil prototypes",
		Long:          "Round-trips the visible texts of a Pencil .epgz prototype through an editable table and rebuilds the archive with the new texts.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			*cfg = *config.Load()
			zerolog.SetGlobalLevel(cfg.LogLevel)
		},
	}

	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(translateCmd(cfg))
	rootCmd.AddCommand(replaceCmd())
	rootCmd.AddCommand(allCmd(cfg))

	return rootCmd
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <archive>",
		Short: "Extract every visible text of the archive into a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			format, err := tableFormat(cmd, out)
			if err != nil {
				return err
			}
			_, err = runExtract(args[0], out, format)
			return err
		},
	}

	cmd.Flags().String("out", "texts.csv", "Output table path")
	cmd.Flags().String("format", "", "Table format: csv or json (default from the file extension)")

	return cmd
}

func translateCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate <table>",
		Short: "Fill the new_text column of a table with machine translations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			applyTranslateFlags(cmd, cfg)
			out, _ := cmd.Flags().GetString("out")
			return runTranslate(ctx, cfg, args[0], out)
		},
	}

	cmd.Flags().String("out", "texts_translated.csv", "Output table path")
	addTranslateFlags(cmd)

	return cmd
}

func replaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replace <archive> <table>",
		Short: "Rebuild the archive with the new texts of a table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			return runReplace(args[0], args[1], out)
		},
	}

	cmd.Flags().String("out", "output.epgz", "Output archive path")

	return cmd
}

func allCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "all [archive]",
		Short: "Extract, translate and replace in one go",
		Long: `Runs extract, translate and replace on one archive. Without an argument the
single .epgz archive of the current directory is used. The tables and the
translated archive (<name>_<LANG>.epgz) are written next to the input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			applyTranslateFlags(cmd, cfg)
			var archivePath string
			if len(args) == 1 {
				archivePath = args[0]
			}
			_, err := runAll(ctx, cfg, archivePath)
			return err
		},
	}

	addTranslateFlags(cmd)

	return cmd
}

func addTranslateFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "Source language (default SOURCE_LANG)")
	cmd.Flags().String("to", "", "Target language (default TARGET_LANG)")
	cmd.Flags().String("backend", "", "Translation backend: google or gemini (default TRANSLATE_BACKEND)")
}

func applyTranslateFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("from"); v != "" {
		cfg.SourceLang = v
	}
	if v, _ := cmd.Flags().GetString("to"); v != "" {
		cfg.TargetLang = v
	}
	if v, _ := cmd.Flags().GetString("backend"); v != "" {
		cfg.Backend = v
	}
}

func tableFormat(cmd *cobra.Command, path string) (table.Format, error) {
	if v, _ := cmd.Flags().GetString("format"); v != "" {
		return table.ParseFormat(v)
	}
	return table.FormatFromPath(path), nil
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
