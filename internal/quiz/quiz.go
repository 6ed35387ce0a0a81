// Package quiz defines the core domain types for the live quiz show.
package quiz

import "time"

// Quiz is one question of the show, stored durably. CustomAnswer, when set,
// overrides CorrectAnswer for grading (the final question is answered live
// by the presenter).
type Quiz struct {
	ID            int
	Question      string
	CorrectAnswer string
	CustomAnswer  string
	Position      int
}

// Player is a registered participant, identified by a stable id that
// survives socket reconnects.
type Player struct {
	ID           string
	Name         string
	RegisteredAt time.Time
}

// Answer is a graded submission. At most one exists per (player, quiz).
type Answer struct {
	ID         string
	PlayerID   string
	QuizID     int
	Answer     string
	IsCorrect  bool
	ResponseMS int64
	AnsweredAt time.Time
}

// Session is an answer-acceptance window for one quiz. At most one session
// per quiz is open (EndedAt == nil) at any time.
type Session struct {
	ID        string
	QuizID    int
	StartedAt time.Time
	EndedAt   *time.Time
}

// RankingEntry is one row of the computed leaderboard: correct answers
// descending, then total response time ascending.
type RankingEntry struct {
	Rank            int    `json:"rank"`
	PlayerID        string `json:"playerId"`
	Name            string `json:"name"`
	CorrectCount    int    `json:"correctCount"`
	TotalResponseMS int64  `json:"totalResponseMs"`
}

// ConnectionStats is derived from the live connection registry, never stored.
type ConnectionStats struct {
	Total   int `json:"total"`
	Players int `json:"players"`
}
