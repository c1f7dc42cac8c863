package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/voxtask/voxtask/internal/config"
	"github.com/voxtask/voxtask/internal/models"
	"github.com/voxtask/voxtask/internal/services/extraction"
	"go.uber.org/zap"
)

// NewExtractCmd creates the extract command
func NewExtractCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "extract <transcript>",
		Short: "Run task extraction on a transcript",
		Long:  "Run one extraction round trip against the configured oracle and print the outcome as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logger, err := newCLILogger(debug)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			vocab, err := extraction.LoadVocabulary(cfg.VocabularyFile)
			if err != nil {
				return fmt.Errorf("failed to load tag vocabulary: %w", err)
			}

			oracle := extraction.NewOpenAIClientWithLogger(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, logger, debug)
			orchestrator := extraction.NewOrchestrator(oracle, vocab, cfg.ExtractionTimeout, logger)

			outcome := orchestrator.Extract(context.Background(), args[0], nil)

			printable := struct {
				Kind                  models.OutcomeKind `json:"kind"`
				Tasks                 []models.TaskDraft `json:"tasks,omitempty"`
				Summary               string             `json:"summary,omitempty"`
				ClarificationQuestion string             `json:"clarificationQuestion,omitempty"`
				Fallback              bool               `json:"fallback,omitempty"`
			}{
				Kind:                  outcome.Kind,
				Tasks:                 outcome.Drafts,
				Summary:               outcome.Summary,
				ClarificationQuestion: outcome.Question,
				Fallback:              outcome.Fallback,
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(printable)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug mode for LLM API logging")
	return cmd
}

func newCLILogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewNop(), nil
}
