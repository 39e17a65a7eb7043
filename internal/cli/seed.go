package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"knowledge-race/internal/domain"
	"knowledge-race/internal/infra/postgres"
)

func newSeedCmd(opts *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load questions into the postgres question bank",
		Long:  "Loads questions from a JSON file into the question bank, or the built-in offline set when no file is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			questions := domain.FallbackQuestions()
			if file != "" {
				if questions, err = readQuestions(file); err != nil {
					return err
				}
			}

			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			db, err := openBunDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := postgres.SeedQuestions(cmd.Context(), db, questions)
			if err != nil {
				return err
			}
			log.Info().Int("questions", n).Msg("question bank seeded")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON array of questions to load")
	return cmd
}

func readQuestions(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return questions, nil
}
