package server

import (
	"context"
	"errors"

	"github.com/quiznight/livequiz/internal/quiz"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrNoActiveSession = errors.New("no active session for quiz")
	ErrDuplicateAnswer = errors.New("answer already recorded")
)

// Store is the persistence collaborator consumed by the realtime core.
// Session and answer state is durable so that reconnecting clients can be
// resynced from it; everything else about the running show is in-memory.
type Store interface {
	GetQuiz(ctx context.Context, id int) (quiz.Quiz, error)
	ListQuizzes(ctx context.Context) ([]quiz.Quiz, error)

	// CorrectAnswer returns the grading answer for a quiz: the custom
	// answer when the presenter has set one, the stored answer otherwise.
	CorrectAnswer(ctx context.Context, quizID int) (string, error)
	SetCustomAnswer(ctx context.Context, quizID int, answer string) error

	UpsertPlayer(ctx context.Context, id, name string) error
	ListPlayers(ctx context.Context) ([]quiz.Player, error)

	// StartSession opens the answer window for a quiz. Any window still
	// open for the same quiz is closed first, in the same transaction.
	StartSession(ctx context.Context, quizID int) (string, error)
	// EndSession closes the open window for a quiz. A quiz with no open
	// window is a no-op, not an error.
	EndSession(ctx context.Context, quizID int) error
	HasOpenSession(ctx context.Context, quizID int) (bool, error)
	// OpenQuizID reports which quiz currently accepts answers, if any.
	OpenQuizID(ctx context.Context) (int, bool, error)

	// RecordAnswer grades and persists a submission. responseMS < 0 means
	// the client supplied no elapsed time and it is derived from the open
	// session's start instead. Fails with ErrNoActiveSession when the
	// quiz has no open window and ErrDuplicateAnswer when the player has
	// already answered this quiz.
	RecordAnswer(ctx context.Context, playerID string, quizID int, answer string, responseMS int64) (quiz.Answer, error)

	AnswersForQuiz(ctx context.Context, quizID int) ([]quiz.Answer, error)
	AnswersForPlayer(ctx context.Context, playerID string) ([]quiz.Answer, error)
	Ranking(ctx context.Context) ([]quiz.RankingEntry, error)

	// ResetAll wipes sessions, answers, players and the custom answer of
	// every quiz in a single transaction. A failure leaves everything
	// exactly as it was.
	ResetAll(ctx context.Context) error
}
