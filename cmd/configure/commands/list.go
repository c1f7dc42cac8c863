package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/voxtask/voxtask/internal/config"
	"github.com/voxtask/voxtask/internal/services/extraction"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the effective fallback tag vocabulary",
		Long:  "Show the keyword-to-tag vocabulary the heuristic fallback uses, including file overrides",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			vocab, err := extraction.LoadVocabulary(cfg.VocabularyFile)
			if err != nil {
				return fmt.Errorf("failed to load tag vocabulary: %w", err)
			}

			keywords := make([]string, 0, len(vocab))
			for keyword := range vocab {
				keywords = append(keywords, keyword)
			}
			sort.Strings(keywords)

			for _, keyword := range keywords {
				fmt.Printf("%-12s -> %s\n", keyword, vocab[keyword])
			}
			return nil
		},
	}

	return cmd
}
