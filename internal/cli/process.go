package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process <channelID>",
	Short: "Ingest a channel's unprocessed history",
	Long: `Page through the channel's history, segment new messages into
materials, enrich and index them. Already processed messages are
skipped, so the command is safe to re-run.

Examples:
  paragonbot process 1122334455667788`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
	svcs, err := getServices()
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}

	res, err := svcs.ingestor.ProcessChannel(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Processed %d new messages into %d materials (%d enriched, %d failed).\n",
		res.Messages, res.Materials, res.Enriched, res.Failed)
	return nil
}
