package server

import (
	"context"
	"log/slog"
)

type seedQuiz struct {
	question string
	answer   string
}

var demoQuizzes = []seedQuiz{
	{question: "Which country hosted the first modern Olympic Games?", answer: "Greece"},
	{question: "What is the largest planet in the solar system?", answer: "Jupiter"},
	{question: "Which country has the longest coastline in the world?", answer: "Canada"},
	{question: "In which year did the first website go online?", answer: "1991"},
	{question: "How many people are in this room right now?", answer: ""},
}

// SeedDemo inserts the demo quiz set when the quizzes table is empty.
// Idempotent: an already-seeded database is left alone. The last quiz ships
// without an answer: the presenter sets it live through the admin API.
func SeedDemo(ctx context.Context, logger *slog.Logger, store *SQLiteStore) error {
	var count int
	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quizzes`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for i, q := range demoQuizzes {
		if _, err := store.db.ExecContext(ctx, `
			INSERT INTO quizzes (id, question, correct_answer, position)
			VALUES (?, ?, ?, ?)
		`, i+1, q.question, q.answer, i+1); err != nil {
			return err
		}
	}

	logger.Info("demo quizzes seeded", "count", len(demoQuizzes))
	return nil
}
