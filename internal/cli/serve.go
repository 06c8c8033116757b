package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JacekAdamczyk/paragonBot/internal/bot"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Discord bot until interrupted",
	Long: `Connect to the Discord gateway and answer commands in the configured
guild. Stops cleanly on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	svcs, err := getServices()
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}

	b := bot.New(svcs.retriever, svcs.ingestor, dbClient, cfg.AdminIDs)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Bot running, press Ctrl+C to stop.")
	return b.Run(ctx, svcs.session)
}
