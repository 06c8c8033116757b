package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reindexLedger bool

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Recompute the embedding of every stored material",
	Long: `Rebuild the embedding index from the stored materials, for example
after switching the embedding model or dimension.

With --ledger the processed-message ledger is also reconstructed from
the stored materials, for databases created before the ledger existed.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	reindexCmd.Flags().BoolVar(&reindexLedger, "ledger", false, "also rebuild the processed-message ledger")
}

func runReindex(cmd *cobra.Command, args []string) error {
	svcs, err := getServices()
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}

	if reindexLedger {
		total, err := svcs.ingestor.RebuildLedger(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Ledger rebuilt from %d messages.\n", total)
	}

	done, err := svcs.ingestor.ReindexAll(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Reindexed %d materials.\n", done)
	return nil
}
