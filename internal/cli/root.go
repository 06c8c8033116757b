// Package cli provides the command-line interface for paragonbot.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/JacekAdamczyk/paragonBot/internal/config"
	"github.com/JacekAdamczyk/paragonBot/internal/db"
	"github.com/JacekAdamczyk/paragonBot/internal/enrich"
	"github.com/JacekAdamczyk/paragonBot/internal/index"
	"github.com/JacekAdamczyk/paragonBot/internal/ingest"
	"github.com/JacekAdamczyk/paragonBot/internal/llm"
	"github.com/JacekAdamczyk/paragonBot/internal/search"
	"github.com/JacekAdamczyk/paragonBot/internal/source"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and db client
	cfg      config.Config
	dbClient *db.Client
	closeLog func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "paragonbot",
	Short: "Discord knowledge base for community chat",
	Long: `Paragonbot turns a community's Discord chat history into a searchable
knowledge base. Conversations are segmented into materials, enriched with
AI-generated summaries and keywords, embedded, and served back through
semantic search.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		var logger *slog.Logger
		logger, closeLog = config.SetupLogger(cfg.LogFile, level)
		slog.SetDefault(logger)

		// Connect to database
		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, nil)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if closeLog != nil {
			_ = closeLog()
		}
	},
}

// services bundles everything the commands drive.
type services struct {
	session   *discordgo.Session
	ingestor  *ingest.Service
	retriever *search.Retriever
}

// getServices wires the model, embedder and Discord session into the
// ingestion and search services.
func getServices() (*services, error) {
	model, err := llm.NewModel(cfg)
	if err != nil {
		return nil, fmt.Errorf("init model: %w", err)
	}
	embedder, err := llm.NewEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	slog.Debug("models ready",
		"llm", model.Model(), "embedder", embedder.Model(), "dimension", embedder.Dimension())

	terms := enrich.DefaultTerms()
	if cfg.TermsFile != "" {
		if terms, err = enrich.LoadTerms(cfg.TermsFile); err != nil {
			return nil, fmt.Errorf("load terms file: %w", err)
		}
	}

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("init discord session: %w", err)
	}

	idx := index.New(dbClient, embedder)
	ingestor := ingest.New(
		dbClient,
		source.NewDiscord(session),
		enrich.New(model, terms),
		idx,
		cfg.MaterialGap,
		cfg.PageLimit,
		cfg.EnrichWorkers,
	)
	retriever := search.New(idx, dbClient, dbClient, model, cfg.GuildID)

	return &services{session: session, ingestor: ingestor, retriever: retriever}, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(searchCmd)
}
