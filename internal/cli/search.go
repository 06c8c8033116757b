package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search materials from the terminal",
	Long: `Run the same two-stage search the bot uses: vector similarity first,
then AI relevance filtering. No feedback entry is recorded.

Examples:
  paragonbot search "scalping lessons"`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	svcs, err := getServices()
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}

	res, err := svcs.retriever.Search(cmd.Context(), "", args[0])
	if err != nil {
		return err
	}

	fmt.Println(res.Text)
	return nil
}
