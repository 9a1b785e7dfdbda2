package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/wikicite/internal/model"
	"github.com/ppiankov/wikicite/internal/pipeline"
)

var (
	sourceText    string
	sourceFile    string
	noHistory     bool
	preflight     bool
	verifyTimeout time.Duration
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <article-url> <footnote-id>",
	Short: "Check each claim citing a footnote against its source",
	Long: `Verify resolves every claim that cites the footnote, fetches the cited
source (or uses --source-text / --source-file) and asks the configured
LLM how well the source supports each claim.

Each claim gets a confidence score (0-100) and a status: supported,
partially_supported or not_supported. Runs are stored in the local
history database unless --no-history is given.

Example:
  wikicite verify https://en.wikipedia.org/wiki/Laksa smith2019
  wikicite verify https://en.wikipedia.org/wiki/Laksa smith2019 --provider anthropic
  wikicite verify https://en.wikipedia.org/wiki/Laksa book1 --source-file page12.txt -o json`,
	Args: cobra.ExactArgs(2),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&footnoteMarkup, "markup", "", "full markup of an unnamed ref")
	verifyCmd.Flags().StringVar(&wikitextFile, "wikitext-file", "", "read article wikitext from a local file instead of Wikipedia")
	verifyCmd.Flags().StringVar(&sourceText, "source-text", "", "source text to judge against (skips fetching the cited URL)")
	verifyCmd.Flags().StringVar(&sourceFile, "source-file", "", "read the source text from a file")
	verifyCmd.Flags().BoolVar(&noHistory, "no-history", false, "do not store this run in the history database")
	verifyCmd.Flags().BoolVar(&preflight, "preflight", false, "check the LLM provider is reachable before starting")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 5*time.Minute, "overall command timeout")

	// LLM flags
	verifyCmd.Flags().String("provider", "", "LLM provider (openai, publicai, anthropic, ollama)")
	verifyCmd.Flags().String("model", "", "LLM model name")
	verifyCmd.Flags().Int("workers", 0, "concurrent judge calls")
	_ = viper.BindPFlag("llm.provider", verifyCmd.Flags().Lookup("provider"))
	_ = viper.BindPFlag("llm.model", verifyCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("concurrency.judge_workers", verifyCmd.Flags().Lookup("workers"))
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	renderer, err := newRenderer(cmd.OutOrStdout(), cfg)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	text := sourceText
	if sourceFile != "" {
		data, err := os.ReadFile(sourceFile)
		if err != nil {
			return fmt.Errorf("read source file: %w", err)
		}
		text = string(data)
	}

	judge, err := newJudge(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), verifyTimeout)
	defer cancel()

	if preflight && !judge.IsAvailable(ctx) {
		return fmt.Errorf("LLM provider %s is not available", judge.Name())
	}

	opts := []pipeline.VerifierOption{
		pipeline.WithJudgeWorkers(cfg.Concurrency.JudgeWorkers),
		pipeline.WithLogger(logger),
	}
	if !noHistory {
		if st := openHistory(cfg, logger); st != nil {
			defer func() { _ = st.Close() }()
			opts = append(opts, pipeline.WithRecorder(st))
		}
	}

	verifier := pipeline.NewVerifier(articleSource(cfg), pipeline.NewFetcherFromConfig(cfg, logger), judge, opts...)

	logger.Debug("verifying", "article", args[0], "footnote", args[1], "provider", judge.Name())

	resp, err := verifier.Verify(ctx, model.VerifyRequest{
		ArticleURL: args[0],
		FootnoteID: args[1],
		FullMarkup: footnoteMarkup,
		SourceText: text,
		Provider:   judge.Name(),
	})
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}

	return renderer.Verification(resp)
}
