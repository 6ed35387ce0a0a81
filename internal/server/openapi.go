package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/quiznight/livequiz/internal/quiz"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "LiveQuiz API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("HTTP surface of the live quiz show server. " +
		"The show itself runs over the /ws realtime channel.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/ws")
	getWS.SetSummary("Realtime channel")
	getWS.SetDescription("Upgrades to the WebSocket event channel used by the display, " +
		"the admin console and player devices.")
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	// GET /qr
	getQR, _ := r.NewOperationContext(http.MethodGet, "/qr")
	getQR.SetSummary("Join QR code")
	getQR.SetDescription("PNG QR code of the public join URL, shown on the welcome screen.")
	getQR.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("image/png"))
	_ = r.AddOperation(getQR)

	// GET /api/state
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/state")
	getState.SetSummary("Current state snapshot")
	getState.SetDescription("Resync endpoint: the current sequence position, open answer " +
		"window and connection stats. Pass playerId to include that player's answers.")
	getState.AddRespStructure(StateSnapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	getState.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusInternalServerError))
	_ = r.AddOperation(getState)

	// GET /api/quizzes
	getQuizzes, _ := r.NewOperationContext(http.MethodGet, "/api/quizzes")
	getQuizzes.SetSummary("List quizzes")
	getQuizzes.SetDescription("Player-facing quiz list; correct answers are omitted.")
	getQuizzes.AddRespStructure([]QuizInfo{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getQuizzes)

	// GET /api/ranking
	getRanking, _ := r.NewOperationContext(http.MethodGet, "/api/ranking")
	getRanking.SetSummary("Leaderboard")
	getRanking.SetDescription("Players ordered by correct answers, ties broken by total response time.")
	getRanking.AddRespStructure([]quiz.RankingEntry{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getRanking)

	// POST /api/admin/reset
	postReset, _ := r.NewOperationContext(http.MethodPost, "/api/admin/reset")
	postReset.SetSummary("Reset the game")
	postReset.SetDescription("Transactionally wipes sessions, answers, players and custom answers, " +
		"rewinds the sequence and notifies all clients. Requires the admin key.")
	postReset.AddRespStructure(map[string]string{}, openapi.WithHTTPStatus(http.StatusOK))
	postReset.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postReset)

	// PUT /api/admin/quizzes/{quizID}/answer
	putAnswer, _ := r.NewOperationContext(http.MethodPut, "/api/admin/quizzes/{quizID}/answer")
	putAnswer.SetSummary("Set custom answer")
	putAnswer.SetDescription("Sets the live answer for a quiz, overriding the stored one for grading.")
	putAnswer.AddReqStructure(CustomAnswerRequest{})
	putAnswer.AddRespStructure(map[string]string{}, openapi.WithHTTPStatus(http.StatusOK))
	putAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	putAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(putAnswer)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(spec)
	}
}
