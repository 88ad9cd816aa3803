package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 2026101403_unique_question_prompt.sql
var uniqueQuestionPromptSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, uniqueQuestionPromptSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP INDEX IF EXISTS question_bank_prompt_idx`)
			return err
		},
	)
}
