package server

import (
	"net/http"

	"github.com/quiznight/livequiz/internal/quiz"
)

// handleRanking computes the leaderboard on demand: correct answers first,
// ties broken by total response time. The reveal screens read this between
// show_ranking events.
func handleRanking(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ranking, err := store.Ranking(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if ranking == nil {
			ranking = []quiz.RankingEntry{}
		}
		writeJSON(w, http.StatusOK, ranking)
	}
}

func handleListPlayers(store Store) http.HandlerFunc {
	type playerItem struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		players, err := store.ListPlayers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		items := make([]playerItem, 0, len(players))
		for _, p := range players {
			items = append(items, playerItem{ID: p.ID, Name: p.Name})
		}
		writeJSON(w, http.StatusOK, items)
	}
}
