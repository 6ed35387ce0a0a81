package server

import (
	"encoding/json"

	"github.com/quiznight/livequiz/internal/quiz"
)

// Envelope is the bidirectional wire format: an event name plus an optional
// JSON payload. Clients send commands in the same shape the server uses for
// broadcasts.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// clientMessage is an inbound envelope before its payload is decoded.
type clientMessage struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound payloads.

type RegisterPayload struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId,omitempty"`
	Name     string `json:"name,omitempty"`
}

type CommandPayload struct {
	Command  string `json:"command"`
	QuizID   int    `json:"quizId,omitempty"`
	Position string `json:"position,omitempty"`
}

type AnswerPayload struct {
	PlayerID     string `json:"playerId"`
	QuizID       int    `json:"quizId"`
	Answer       string `json:"answer"`
	ResponseTime *int64 `json:"responseTime,omitempty"`
}

// Outbound payloads.

type RegisteredPayload struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type RejectedPayload struct {
	Reason string `json:"reason"`
}

// QuizEventPayload carries one canonical broadcast event. The navigation
// events (next_slide, prev_slide) deliberately carry no quiz id or position:
// each client kind interprets them against its own local phase.
type QuizEventPayload struct {
	Event    string `json:"event"`
	QuizID   int    `json:"quizId,omitempty"`
	Position string `json:"position,omitempty"`
}

type AnswerUpdatePayload struct {
	PlayerID string `json:"playerId"`
	QuizID   int    `json:"quizId"`
	Answer   string `json:"answer"`
}

type AnswerSubmittedPayload struct {
	PlayerID string `json:"playerId"`
	QuizID   int    `json:"quizId"`
}

type AnswerResultPayload struct {
	PlayerID  string `json:"playerId"`
	QuizID    int    `json:"quizId"`
	IsCorrect bool   `json:"isCorrect"`
}

// StateSnapshot is the resync response: everything a late-joining or
// reconnecting client needs to render the current screen, derived from
// persisted state rather than replayed history.
type StateSnapshot struct {
	CurrentIndex int                  `json:"currentIndex"`
	CurrentStep  quiz.Step            `json:"currentStep"`
	Sequence     []quiz.Step          `json:"sequence"`
	OpenQuizID   int                  `json:"openQuizId,omitempty"`
	Stats        quiz.ConnectionStats `json:"stats"`
	// Answers holds the requesting player's own graded submissions. It is
	// empty for display and admin connections.
	Answers []quiz.Answer `json:"answers,omitempty"`
}

// Canonical quiz events, broadcast to every connection class.
const (
	eventQuizStarted  = "quiz_started"
	eventShowQuestion = "show_question"
	eventShowAnswer   = "show_answer"
	eventShowRanking  = "show_ranking"
	eventNextSlide    = "next_slide"
	eventPrevSlide    = "prev_slide"
	eventResetAll     = "reset_all"
)
