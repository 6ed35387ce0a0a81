package quiz

import "fmt"

// Phase is the sub-screen of a single quiz within the show sequence.
type Phase string

const (
	PhaseTitle    Phase = "title"
	PhaseQuestion Phase = "question"
	PhaseAnswer   Phase = "answer"
)

// RankingPositions are revealed in this order at the end of the show.
var RankingPositions = []string{"5", "4", "3", "2", "1", "all"}

// Step is one discrete presentation state. The full sequence is static
// configuration; only the current index is mutable, and it lives in the hub.
type Step struct {
	ID              string `json:"stepId"`
	Label           string `json:"label"`
	QuizID          int    `json:"quizId,omitempty"`
	Phase           Phase  `json:"phase,omitempty"`
	RankingPosition string `json:"rankingPosition,omitempty"`
}

// BuildSequence generates the show sequence for n quizzes:
// welcome, explanation, then title/question/answer per quiz, then the
// ranking reveal from 5th place up to 1st, then the full ranking.
func BuildSequence(n int) []Step {
	steps := []Step{
		{ID: "welcome", Label: "Welcome"},
		{ID: "explanation", Label: "How to play"},
	}

	phases := []Phase{PhaseTitle, PhaseQuestion, PhaseAnswer}
	labels := map[Phase]string{
		PhaseTitle:    "Title",
		PhaseQuestion: "Question",
		PhaseAnswer:   "Answer",
	}
	for q := 1; q <= n; q++ {
		for _, p := range phases {
			steps = append(steps, Step{
				ID:     stepID("quiz", q, string(p)),
				Label:  labels[p],
				QuizID: q,
				Phase:  p,
			})
		}
	}

	for _, pos := range RankingPositions {
		label := "Ranking " + pos
		if pos == "all" {
			label = "Final ranking"
		}
		steps = append(steps, Step{
			ID:              "ranking-" + pos,
			Label:           label,
			RankingPosition: pos,
		})
	}

	return steps
}

func stepID(kind string, q int, phase string) string {
	return fmt.Sprintf("%s-%d-%s", kind, q, phase)
}
