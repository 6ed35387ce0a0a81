package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// QuizInfo is the player-facing view of a quiz. Correct answers never leave
// the server through this endpoint.
type QuizInfo struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	Position int    `json:"position"`
}

func handleListQuizzes(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizzes, err := store.ListQuizzes(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		infos := make([]QuizInfo, 0, len(quizzes))
		for _, q := range quizzes {
			infos = append(infos, QuizInfo{ID: q.ID, Question: q.Question, Position: q.Position})
		}
		writeJSON(w, http.StatusOK, infos)
	}
}

type CustomAnswerRequest struct {
	Answer string `json:"answer"`
}

// handleSetCustomAnswer lets the presenter set the live answer for the final
// quiz. The value overrides the stored correct answer for grading and is
// cleared by reset.
func handleSetCustomAnswer(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, err := quizIDParam(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid quiz id")
			return
		}

		var req CustomAnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Answer == "" {
			writeError(w, http.StatusBadRequest, "answer is required")
			return
		}

		switch err := store.SetCustomAnswer(r.Context(), quizID, req.Answer); err {
		case nil:
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		case ErrNotFound:
			writeError(w, http.StatusNotFound, "quiz not found")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

func quizIDParam(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "quizID"))
}
