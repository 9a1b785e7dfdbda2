package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wikicite/internal/wikitext"
)

// claimsCmd represents the claims command
var claimsCmd = &cobra.Command{
	Use:   "claims <article-url> <footnote-id>",
	Short: "Show the claims a footnote supports",
	Long: `Claims prints the sentence or sentences each use of a footnote is
attached to, cleaned of wiki markup, with the surrounding raw context.

The footnote id is a ref name, a {{sfn|...}} template, or __unnamed_N
from 'wikicite refs' together with --markup.

Example:
  wikicite claims https://en.wikipedia.org/wiki/Laksa smith2019
  wikicite claims https://en.wikipedia.org/wiki/Laksa "{{sfn|Hutton|2000|p=12}}"
  wikicite claims https://en.wikipedia.org/wiki/Laksa __unnamed_3 --markup '<ref>...</ref>'`,
	Args: cobra.ExactArgs(2),
	RunE: runClaims,
}

// urlCmd represents the url command
var urlCmd = &cobra.Command{
	Use:   "url <article-url> <footnote-id>",
	Short: "Print the source URL of a footnote",
	Long: `URL prints the URL verify would fetch for a footnote: the archive-url
parameter, then the url parameter, then the first bare link.`,
	Args: cobra.ExactArgs(2),
	RunE: runURL,
}

func init() {
	rootCmd.AddCommand(claimsCmd)
	rootCmd.AddCommand(urlCmd)

	for _, c := range []*cobra.Command{claimsCmd, urlCmd} {
		c.Flags().StringVar(&footnoteMarkup, "markup", "", "full markup of an unnamed ref")
		c.Flags().StringVar(&wikitextFile, "wikitext-file", "", "read article wikitext from a local file instead of Wikipedia")
		c.Flags().DurationVar(&requestTimeout, "timeout", time.Minute, "overall command timeout")
	}
}

func runClaims(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	renderer, err := newRenderer(cmd.OutOrStdout(), cfg)
	if err != nil {
		return err
	}
	id, err := wikitext.ParseFootnoteID(args[1], footnoteMarkup)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	article, err := articleSource(cfg).Fetch(ctx, args[0])
	if err != nil {
		return fmt.Errorf("fetch article: %w", err)
	}

	instances, err := wikitext.Resolve(article.Wikitext, id)
	if err != nil {
		return err
	}
	newLogger(cfg).Debug("resolved claims", "footnote", id.String(), "instances", len(instances))

	return renderer.Claims(id.String(), instances)
}

func runURL(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	id, err := wikitext.ParseFootnoteID(args[1], footnoteMarkup)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	article, err := articleSource(cfg).Fetch(ctx, args[0])
	if err != nil {
		return fmt.Errorf("fetch article: %w", err)
	}

	markup, found, err := wikitext.MarkupFor(article.Wikitext, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("footnote %q has no content in %s", id.String(), article.Title)
	}
	sourceURL, ok := wikitext.ExtractURL(markup)
	if !ok {
		return fmt.Errorf("footnote %q: no URL in citation", id.String())
	}

	fmt.Fprintln(cmd.OutOrStdout(), sourceURL)
	return nil
}
