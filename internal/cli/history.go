package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wikicite/internal/store"
)

var historyLimit int

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history [article-url]",
	Short: "List past verification runs",
	Long: `History lists stored verification runs, newest first, with the number
of supported, partially supported and unsupported claims in each.

Example:
  wikicite history
  wikicite history https://en.wikipedia.org/wiki/Laksa --limit 5 -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to list (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Storage.Enabled {
		return errors.New("history storage is disabled (storage.enabled: false)")
	}
	renderer, err := newRenderer(cmd.OutOrStdout(), cfg)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer func() { _ = st.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	articleURL := ""
	if len(args) == 1 {
		articleURL = args[0]
	}
	checks, err := st.ListChecks(ctx, articleURL, historyLimit)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	return renderer.History(checks)
}
