package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/wikicite/internal/pipeline"
	"github.com/ppiankov/wikicite/internal/wikitext"
)

var (
	refsByPosition bool
	requestTimeout time.Duration
)

// refsCmd represents the refs command
var refsCmd = &cobra.Command{
	Use:   "refs <article-url>",
	Short: "List every footnote cited in an article",
	Long: `Refs lists the distinct footnotes of a Wikipedia article: named refs,
unnamed refs and {{sfn}} short-form citations, each with a preview and
whether a source URL was found.

Unnamed refs are listed as __unnamed_N together with their full markup,
which must be passed back with --markup to the claims and verify commands.

Example:
  wikicite refs https://en.wikipedia.org/wiki/Laksa
  wikicite refs https://en.wikipedia.org/wiki/Laksa --preview context --by-position
  wikicite refs https://en.wikipedia.org/wiki/Laksa -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runRefs,
}

func init() {
	rootCmd.AddCommand(refsCmd)

	refsCmd.Flags().String("preview", "", "preview mode: claim or context")
	refsCmd.Flags().BoolVar(&refsByPosition, "by-position", false, "order by first occurrence instead of by kind")
	refsCmd.Flags().StringVar(&wikitextFile, "wikitext-file", "", "read article wikitext from a local file instead of Wikipedia")
	refsCmd.Flags().DurationVar(&requestTimeout, "timeout", time.Minute, "overall command timeout")

	_ = viper.BindPFlag("output.preview", refsCmd.Flags().Lookup("preview"))
}

func runRefs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mode, err := previewMode(cfg.Output.Preview)
	if err != nil {
		return err
	}
	renderer, err := newRenderer(cmd.OutOrStdout(), cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	newLogger(cfg).Debug("listing references", "article", args[0], "preview", cfg.Output.Preview)

	service := pipeline.NewCatalogService(articleSource(cfg), wikitext.ListOptions{Preview: mode}, refsByPosition)
	catalog, err := service.Catalog(ctx, args[0])
	if err != nil {
		return fmt.Errorf("list references: %w", err)
	}

	return renderer.Catalog(catalog)
}
