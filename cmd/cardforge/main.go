package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"cardforge/internal/apiclient"
	"cardforge/internal/config"
	"cardforge/internal/database"
	"cardforge/internal/generate"
	"cardforge/internal/llm"
	"cardforge/internal/model"
	"cardforge/internal/pipeline"
	"cardforge/internal/ratelimit"
	"cardforge/internal/render"
	"cardforge/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "cardforge",
	Short:   "Trading cards for social profiles",
	Long:    "Cardforge fetches a public profile and its timeline, derives card stats, and generates a character card with an LLM.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
		zerolog.SetGlobalLevel(zerolog.InfoLevel)

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level, err := zerolog.ParseLevel(cfg.Logging.Level)
		if err != nil {
			level = zerolog.InfoLevel
		}
		if verbose {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func openDB() (*database.DB, error) {
	return database.Open(filepath.Join(cfg.GetDataDir(), "cardforge.db"))
}

// buildRunner wires the fetch, store, and generation stages into a runner.
func buildRunner(db *database.DB) *pipeline.Runner {
	bucket := ratelimit.New(cfg.RateLimit.PerMinute)
	client := apiclient.New(cfg, bucket)
	provider := llm.CreateProvider(
		cfg.Generation.Provider,
		cfg.Generation.Model,
		cfg.Generation.OllamaURL,
		cfg.Generation.OpenAIModel,
		cfg.Generation.APIKeyEnv,
	)
	gen := generate.New(provider, cfg.Generation.MaxAttempts, cfg.Generation.RetryDelay)
	return pipeline.New(client, db, gen, cfg.Timeline.Pages)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("cardforge", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/cardforge/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the API endpoint, token env var, and LLM provider.")
		return nil
	},
}

// --- run command ---

var (
	submittedBy    string
	submissionNote string
)

var runCmd = &cobra.Command{
	Use:   "run [identifier]",
	Short: "Run the full pipeline for one subject: fetch -> store -> stats -> generate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var meta *model.SubmissionMeta
		if submittedBy != "" {
			meta = &model.SubmissionMeta{SubmittedBy: submittedBy, Note: submissionNote}
		}

		runner := buildRunner(db)
		result := runner.Run(context.Background(), args[0], meta)

		if result.Outcome != pipeline.OutcomeSuccess {
			return fmt.Errorf("pipeline failed at %s: %s", result.FailedStage, result.Message)
		}

		fmt.Println(result.Message)
		fmt.Printf("  Charisma:  %d\n", result.Stats.Charisma)
		fmt.Printf("  Influence: %d\n", result.Stats.Influence)
		fmt.Printf("  Energy:    %d\n", result.Stats.Energy)
		fmt.Printf("\nRun 'cardforge show %s' to see the card.\n", args[0])
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&submittedBy, "submitted-by", "", "Who requested this run")
	runCmd.Flags().StringVar(&submissionNote, "note", "", "Free-form note attached to the submission")
}

// --- show command ---

var showCmd = &cobra.Command{
	Use:   "show [identifier]",
	Short: "Print the card sheet for a stored subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		externalID, err := resolveSubject(db, args[0])
		if err != nil {
			return err
		}

		sheet, err := render.New(db).CardSheet(externalID)
		if err != nil {
			return err
		}
		fmt.Print(sheet)
		return nil
	},
}

// resolveSubject accepts either an external id or a handle.
func resolveSubject(db *database.DB, identifier string) (string, error) {
	p, err := db.FindProfileByExternalID(identifier)
	if err != nil {
		return "", err
	}
	if p != nil {
		return p.ExternalID, nil
	}

	profiles, err := db.ListProfiles()
	if err != nil {
		return "", err
	}
	for _, p := range profiles {
		if p.Handle == identifier {
			return p.ExternalID, nil
		}
	}
	return "", fmt.Errorf("no stored profile matches %q", identifier)
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Printf("  Profiles:  %d\n", stats.Profiles)
		fmt.Printf("  Posts:     %d\n", stats.Posts)
		fmt.Printf("  Snapshots: %d\n", stats.Snapshots)
		fmt.Printf("  Cards:     %d\n", stats.Cards)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, buildRunner(db), port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (defaults to config)")
}
