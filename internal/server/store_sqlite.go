package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/quiznight/livequiz/internal/quiz"
)

type SQLiteStore struct {
	db    *sql.DB
	clock clockwork.Clock
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, clock: clockwork.NewRealClock()}
}

// NewSQLiteStoreWithClock is used by tests that need deterministic timestamps.
func NewSQLiteStoreWithClock(db *sql.DB, clock clockwork.Clock) *SQLiteStore {
	return &SQLiteStore{db: db, clock: clock}
}

func (s *SQLiteStore) now() string {
	return s.clock.Now().UTC().Format(time.RFC3339Nano)
}

func (s *SQLiteStore) GetQuiz(ctx context.Context, id int) (quiz.Quiz, error) {
	var q quiz.Quiz
	var custom sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, question, correct_answer, custom_answer, position
		FROM quizzes WHERE id = ?
	`, id).Scan(&q.ID, &q.Question, &q.CorrectAnswer, &custom, &q.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return q, ErrNotFound
	}
	q.CustomAnswer = custom.String
	return q, err
}

func (s *SQLiteStore) ListQuizzes(ctx context.Context) ([]quiz.Quiz, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question, correct_answer, custom_answer, position
		FROM quizzes ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quizzes []quiz.Quiz
	for rows.Next() {
		var q quiz.Quiz
		var custom sql.NullString
		if err := rows.Scan(&q.ID, &q.Question, &q.CorrectAnswer, &custom, &q.Position); err != nil {
			return nil, err
		}
		q.CustomAnswer = custom.String
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

func (s *SQLiteStore) CorrectAnswer(ctx context.Context, quizID int) (string, error) {
	var answer string
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(NULLIF(custom_answer, ''), correct_answer)
		FROM quizzes WHERE id = ?
	`, quizID).Scan(&answer)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return answer, err
}

func (s *SQLiteStore) SetCustomAnswer(ctx context.Context, quizID int, answer string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE quizzes SET custom_answer = ? WHERE id = ?
	`, answer, quizID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) UpsertPlayer(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, name, registered_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, id, name, s.now())
	return err
}

func (s *SQLiteStore) ListPlayers(ctx context.Context) ([]quiz.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, registered_at FROM players ORDER BY registered_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []quiz.Player
	for rows.Next() {
		var p quiz.Player
		var registered string
		if err := rows.Scan(&p.ID, &p.Name, &registered); err != nil {
			return nil, err
		}
		p.RegisteredAt, _ = time.Parse(time.RFC3339Nano, registered)
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *SQLiteStore) StartSession(ctx context.Context, quizID int) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("starting session for quiz %d: %w", quizID, err)
	}
	defer tx.Rollback()

	now := s.now()
	if _, err := tx.ExecContext(ctx, `
		UPDATE game_sessions SET ended_at = ? WHERE quiz_id = ? AND ended_at IS NULL
	`, now, quizID); err != nil {
		return "", fmt.Errorf("closing previous session for quiz %d: %w", quizID, err)
	}

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO game_sessions (id, quiz_id, started_at) VALUES (?, ?, ?)
	`, id, quizID, now); err != nil {
		return "", fmt.Errorf("opening session for quiz %d: %w", quizID, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("starting session for quiz %d: %w", quizID, err)
	}
	return id, nil
}

func (s *SQLiteStore) EndSession(ctx context.Context, quizID int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE game_sessions SET ended_at = ? WHERE quiz_id = ? AND ended_at IS NULL
	`, s.now(), quizID)
	return err
}

func (s *SQLiteStore) HasOpenSession(ctx context.Context, quizID int) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM game_sessions WHERE quiz_id = ? AND ended_at IS NULL
	`, quizID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteStore) OpenQuizID(ctx context.Context) (int, bool, error) {
	var quizID int
	err := s.db.QueryRowContext(ctx, `
		SELECT quiz_id FROM game_sessions WHERE ended_at IS NULL
		ORDER BY started_at DESC LIMIT 1
	`).Scan(&quizID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return quizID, true, nil
}

func (s *SQLiteStore) RecordAnswer(ctx context.Context, playerID string, quizID int, answer string, responseMS int64) (quiz.Answer, error) {
	var a quiz.Answer

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return a, fmt.Errorf("recording answer: %w", err)
	}
	defer tx.Rollback()

	var startedAt string
	err = tx.QueryRowContext(ctx, `
		SELECT started_at FROM game_sessions WHERE quiz_id = ? AND ended_at IS NULL
	`, quizID).Scan(&startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNoActiveSession
	}
	if err != nil {
		return a, fmt.Errorf("recording answer: %w", err)
	}

	var exists int
	err = tx.QueryRowContext(ctx, `
		SELECT 1 FROM answers WHERE player_id = ? AND quiz_id = ?
	`, playerID, quizID).Scan(&exists)
	if err == nil {
		return a, ErrDuplicateAnswer
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("recording answer: %w", err)
	}

	var correct string
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(NULLIF(custom_answer, ''), correct_answer)
		FROM quizzes WHERE id = ?
	`, quizID).Scan(&correct)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	if err != nil {
		return a, fmt.Errorf("recording answer: %w", err)
	}

	// Client-supplied elapsed time wins; otherwise derive it from the
	// session start. Either way the stored value is never negative.
	if responseMS < 0 {
		responseMS = 0
		if start, perr := time.Parse(time.RFC3339Nano, startedAt); perr == nil {
			responseMS = s.clock.Now().UTC().Sub(start).Milliseconds()
		}
	}
	if responseMS < 0 {
		responseMS = 0
	}

	a = quiz.Answer{
		ID:         uuid.NewString(),
		PlayerID:   playerID,
		QuizID:     quizID,
		Answer:     answer,
		IsCorrect:  answer == correct,
		ResponseMS: responseMS,
		AnsweredAt: s.clock.Now().UTC(),
	}

	isCorrectInt := 0
	if a.IsCorrect {
		isCorrectInt = 1
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO answers (id, player_id, quiz_id, answer, is_correct, response_ms, answered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.PlayerID, a.QuizID, a.Answer, isCorrectInt, a.ResponseMS, a.AnsweredAt.Format(time.RFC3339Nano)); err != nil {
		return quiz.Answer{}, fmt.Errorf("recording answer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return quiz.Answer{}, fmt.Errorf("recording answer: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) AnswersForQuiz(ctx context.Context, quizID int) ([]quiz.Answer, error) {
	return s.queryAnswers(ctx, `
		SELECT id, player_id, quiz_id, answer, is_correct, response_ms, answered_at
		FROM answers WHERE quiz_id = ? ORDER BY answered_at
	`, quizID)
}

func (s *SQLiteStore) AnswersForPlayer(ctx context.Context, playerID string) ([]quiz.Answer, error) {
	return s.queryAnswers(ctx, `
		SELECT id, player_id, quiz_id, answer, is_correct, response_ms, answered_at
		FROM answers WHERE player_id = ? ORDER BY quiz_id
	`, playerID)
}

func (s *SQLiteStore) queryAnswers(ctx context.Context, query string, arg any) ([]quiz.Answer, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []quiz.Answer
	for rows.Next() {
		var a quiz.Answer
		var isCorrect int
		var answeredAt string
		if err := rows.Scan(&a.ID, &a.PlayerID, &a.QuizID, &a.Answer, &isCorrect, &a.ResponseMS, &answeredAt); err != nil {
			return nil, err
		}
		a.IsCorrect = isCorrect == 1
		a.AnsweredAt, _ = time.Parse(time.RFC3339Nano, answeredAt)
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func (s *SQLiteStore) Ranking(ctx context.Context) ([]quiz.RankingEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name,
			COALESCE(SUM(a.is_correct), 0),
			COALESCE(SUM(a.response_ms), 0)
		FROM players p
		LEFT JOIN answers a ON a.player_id = p.id
		GROUP BY p.id, p.name
		ORDER BY SUM(a.is_correct) DESC, SUM(a.response_ms) ASC, p.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ranking []quiz.RankingEntry
	for rows.Next() {
		var e quiz.RankingEntry
		if err := rows.Scan(&e.PlayerID, &e.Name, &e.CorrectCount, &e.TotalResponseMS); err != nil {
			return nil, err
		}
		e.Rank = len(ranking) + 1
		ranking = append(ranking, e)
	}
	return ranking, rows.Err()
}

func (s *SQLiteStore) ResetAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("resetting game: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM answers`,
		`DELETE FROM game_sessions`,
		`DELETE FROM players`,
		`UPDATE quizzes SET custom_answer = NULL`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("resetting game: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("resetting game: %w", err)
	}
	return nil
}
