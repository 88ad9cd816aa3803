package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/config"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/infra/opentdb"
	"trivia-quiz/internal/infra/postgres"
)

// NewSeedCmd fills the Postgres question bank from the Open Trivia DB.
func NewSeedCmd(configPath *string) *cobra.Command {
	var (
		amount       int
		difficulties string
		pause        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fetch questions from the Open Trivia DB into the Postgres question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			levels, err := parseDifficulties(difficulties)
			if err != nil {
				return err
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			cfg.Source.Kind = "postgres"
			rt, err := newRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			source := opentdb.NewClient(cfg.Source.URL, config.TTLDuration(cfg.Source.Timeout, 10*time.Second))
			added, err := app.SeedQuestions(cmd.Context(), source, postgres.NewQuestionBank(rt.pool), amount, levels, pause)
			fmt.Fprintf(cmd.OutOrStdout(), "added %d questions to the bank\n", added)
			return err
		},
	}
	cmd.Flags().IntVar(&amount, "amount", 50, "questions to fetch per difficulty")
	cmd.Flags().StringVar(&difficulties, "difficulty", "easy,medium,hard", "comma separated difficulties")
	// The public API allows one request per five seconds.
	cmd.Flags().DurationVar(&pause, "pause", 5*time.Second, "wait between fetches")
	return cmd
}

func parseDifficulties(raw string) ([]domain.Difficulty, error) {
	var out []domain.Difficulty
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := domain.ParseDifficulty(part)
		if err != nil {
			return nil, fmt.Errorf("difficulty %q: %w", part, err)
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no difficulty given")
	}
	return out, nil
}
