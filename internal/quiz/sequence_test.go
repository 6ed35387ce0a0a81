package quiz

import "testing"

func TestBuildSequenceLayout(t *testing.T) {
	steps := BuildSequence(5)

	// 2 intro steps, 3 per quiz, 6 ranking steps.
	if want := 2 + 5*3 + 6; len(steps) != want {
		t.Fatalf("expected %d steps, got %d", want, len(steps))
	}

	if steps[0].ID != "welcome" || steps[1].ID != "explanation" {
		t.Errorf("unexpected intro steps: %+v", steps[:2])
	}

	// Each quiz contributes title, question, answer in order.
	phases := []Phase{PhaseTitle, PhaseQuestion, PhaseAnswer}
	for q := 1; q <= 5; q++ {
		for i, p := range phases {
			step := steps[2+(q-1)*3+i]
			if step.QuizID != q || step.Phase != p {
				t.Errorf("step %d: expected quiz %d phase %s, got %+v", 2+(q-1)*3+i, q, p, step)
			}
		}
	}

	// Ranking reveal runs 5th place up to 1st, then the full ranking.
	tail := steps[len(steps)-6:]
	for i, pos := range RankingPositions {
		if tail[i].RankingPosition != pos {
			t.Errorf("ranking step %d: expected position %q, got %+v", i, pos, tail[i])
		}
		if tail[i].QuizID != 0 || tail[i].Phase != "" {
			t.Errorf("ranking step %d carries quiz fields: %+v", i, tail[i])
		}
	}
}

func TestBuildSequenceUniqueIDs(t *testing.T) {
	steps := BuildSequence(7)
	seen := make(map[string]bool, len(steps))
	for _, s := range steps {
		if s.ID == "" {
			t.Errorf("step %+v has no id", s)
		}
		if seen[s.ID] {
			t.Errorf("duplicate step id %q", s.ID)
		}
		seen[s.ID] = true
	}
}
