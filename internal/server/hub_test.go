package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/quiznight/livequiz/internal/quiz"
)

func newTestHub(t *testing.T) (*Hub, *SQLiteStore) {
	t.Helper()
	store, _ := setupStore(t)
	hub := NewHub(discardLogger(), store, quiz.BuildSequence(5))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub, store
}

func dispatch(t *testing.T, h *Hub, c *Client, event string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshaling %s payload: %v", event, err)
	}
	h.Dispatch(c, clientMessage{Event: event, Payload: raw})
}

// waitFor blocks until the client receives the named event, skipping
// anything else queued before it.
func waitFor(t *testing.T, c *Client, event string) Envelope {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-c.send:
			if msg.Event == event {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q on %s", event, c.id)
		}
	}
}

// waitForQuizEvent waits for a quiz_event broadcast carrying the named
// canonical event.
func waitForQuizEvent(t *testing.T, c *Client, name string) QuizEventPayload {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-c.send:
			p, ok := msg.Payload.(QuizEventPayload)
			if msg.Event == "quiz_event" && ok && p.Event == name {
				return p
			}
		case <-deadline:
			t.Fatalf("timed out waiting for quiz_event %q on %s", name, c.id)
		}
	}
}

func registerOn(t *testing.T, h *Hub, typ, playerID string) *Client {
	t.Helper()
	c := &Client{id: typ + ":" + playerID, send: make(chan Envelope, 64)}
	dispatch(t, h, c, "register", RegisterPayload{Type: typ, PlayerID: playerID})
	waitFor(t, c, "registered")
	return c
}

func snapshotIndex(t *testing.T, h *Hub) int {
	t.Helper()
	snap, err := h.Snapshot(context.Background(), "")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return snap.CurrentIndex
}

func TestHubGameFlow(t *testing.T) {
	hub, _ := newTestHub(t)
	ctx := context.Background()

	display := registerOn(t, hub, "display", "")
	admin := registerOn(t, hub, "admin", "")
	p1 := registerOn(t, hub, "player", "p1")
	p2 := registerOn(t, hub, "player", "p2")

	// start_quiz reaches every connection class.
	dispatch(t, hub, admin, "quiz_command", CommandPayload{Command: "start_quiz"})
	for _, c := range []*Client{display, admin, p1, p2} {
		waitForQuizEvent(t, c, "quiz_started")
	}

	// show_question opens the answer window before broadcasting.
	dispatch(t, hub, admin, "quiz_command", CommandPayload{Command: "show_question", QuizID: 1})
	ev := waitForQuizEvent(t, display, "show_question")
	if ev.QuizID != 1 {
		t.Errorf("expected quizId 1, got %d", ev.QuizID)
	}
	snap, err := hub.Snapshot(ctx, "")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.OpenQuizID != 1 {
		t.Errorf("expected open quiz 1, got %d", snap.OpenQuizID)
	}

	// A correct answer is graded, the submitter learns the verdict and the
	// admin sees what was answered.
	rt := int64(4200)
	dispatch(t, hub, p1, "submit_answer", AnswerPayload{
		PlayerID: "p1", QuizID: 1, Answer: "Greece", ResponseTime: &rt,
	})
	result := waitFor(t, p1, "answer_result").Payload.(AnswerResultPayload)
	if !result.IsCorrect {
		t.Error("expected Greece to be graded correct")
	}
	update := waitFor(t, admin, "answer_update").Payload.(AnswerUpdatePayload)
	if update.PlayerID != "p1" || update.Answer != "Greece" {
		t.Errorf("unexpected answer_update %+v", update)
	}
	submitted := waitFor(t, display, "answer_submitted").Payload.(AnswerSubmittedPayload)
	if submitted.PlayerID != "p1" || submitted.QuizID != 1 {
		t.Errorf("unexpected answer_submitted %+v", submitted)
	}

	// Resubmission is rejected and the first answer stands.
	dispatch(t, hub, p1, "submit_answer", AnswerPayload{PlayerID: "p1", QuizID: 1, Answer: "Italy"})
	waitFor(t, p1, "command_error")

	// show_answer closes the window; late answers are rejected.
	dispatch(t, hub, admin, "quiz_command", CommandPayload{Command: "show_answer", QuizID: 1})
	waitForQuizEvent(t, display, "show_answer")

	dispatch(t, hub, p2, "submit_answer", AnswerPayload{PlayerID: "p2", QuizID: 1, Answer: "Greece"})
	waitFor(t, p2, "command_error")

	snap, err = hub.Snapshot(ctx, "p1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.OpenQuizID != 0 {
		t.Errorf("expected no open quiz, got %d", snap.OpenQuizID)
	}
	if len(snap.Answers) != 1 || snap.Answers[0].Answer != "Greece" {
		t.Errorf("expected p1's original answer in snapshot, got %+v", snap.Answers)
	}

	// Ranking navigation.
	dispatch(t, hub, admin, "quiz_command", CommandPayload{Command: "show_ranking", Position: "5"})
	ev = waitForQuizEvent(t, display, "show_ranking")
	if ev.Position != "5" {
		t.Errorf("expected ranking position 5, got %q", ev.Position)
	}

	dispatch(t, hub, admin, "quiz_command", CommandPayload{Command: "show_ranking", Position: "7"})
	waitFor(t, admin, "command_error")

	// reset_all wipes storage, rewinds the sequence and tells everyone.
	dispatch(t, hub, admin, "quiz_command", CommandPayload{Command: "reset_all"})
	for _, c := range []*Client{display, admin, p1, p2} {
		waitForQuizEvent(t, c, "reset_all")
	}
	snap, err = hub.Snapshot(ctx, "p1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.CurrentIndex != 0 {
		t.Errorf("expected index 0 after reset, got %d", snap.CurrentIndex)
	}
	if len(snap.Answers) != 0 {
		t.Errorf("expected no answers after reset, got %+v", snap.Answers)
	}
}

func TestHubRejectsNonAdminCommands(t *testing.T) {
	hub, _ := newTestHub(t)

	display := registerOn(t, hub, "display", "")
	player := registerOn(t, hub, "player", "p1")

	for _, c := range []*Client{display, player} {
		dispatch(t, hub, c, "quiz_command", CommandPayload{Command: "start_quiz"})
		msg := waitFor(t, c, "command_error")
		if p := msg.Payload.(ErrorPayload); p.Message != "unauthorized: admin connection required" {
			t.Errorf("unexpected error message %q", p.Message)
		}
	}

	// The rejected command must not have leaked a broadcast to anyone.
	for _, c := range []*Client{display, player} {
		for _, msg := range drain(c) {
			if msg.Event == "quiz_event" {
				t.Errorf("%s received quiz_event from unauthorized command: %+v", c.id, msg)
			}
		}
	}
}

func TestHubUnknownCommandAndEvent(t *testing.T) {
	hub, _ := newTestHub(t)
	admin := registerOn(t, hub, "admin", "")

	dispatch(t, hub, admin, "quiz_command", CommandPayload{Command: "explode"})
	msg := waitFor(t, admin, "command_error")
	if p := msg.Payload.(ErrorPayload); p.Message != `unknown command "explode"` {
		t.Errorf("unexpected error message %q", p.Message)
	}

	dispatch(t, hub, admin, "bogus_event", struct{}{})
	waitFor(t, admin, "command_error")
}

func TestHubNavigationClamps(t *testing.T) {
	hub, _ := newTestHub(t)
	admin := registerOn(t, hub, "admin", "")

	// prev_slide at the start stays put.
	dispatch(t, hub, admin, "quiz_command", CommandPayload{Command: "prev_slide"})
	waitForQuizEvent(t, admin, "prev_slide")
	if idx := snapshotIndex(t, hub); idx != 0 {
		t.Errorf("expected index to stay 0, got %d", idx)
	}

	// next_slide never walks past the last step.
	last := len(quiz.BuildSequence(5)) - 1
	for i := 0; i < last+5; i++ {
		dispatch(t, hub, admin, "quiz_command", CommandPayload{Command: "next_slide"})
		waitForQuizEvent(t, admin, "next_slide")
	}
	if idx := snapshotIndex(t, hub); idx != last {
		t.Errorf("expected index clamped at %d, got %d", last, idx)
	}
}

func TestHubRegistrationErrors(t *testing.T) {
	hub, _ := newTestHub(t)

	c := &Client{id: "anon", send: make(chan Envelope, 8)}
	dispatch(t, hub, c, "register", RegisterPayload{Type: "player"})
	waitFor(t, c, "registration_error")

	dispatch(t, hub, c, "register", RegisterPayload{Type: "superuser"})
	waitFor(t, c, "registration_error")
}

func TestHubShowQuestionStorageFailure(t *testing.T) {
	hub, store := newTestHub(t)

	display := registerOn(t, hub, "display", "")
	admin := registerOn(t, hub, "admin", "")

	store.db.Close()

	dispatch(t, hub, admin, "quiz_command", CommandPayload{Command: "show_question", QuizID: 1})
	waitFor(t, admin, "command_error")

	// The failed command must not advance the sequence or reach the display.
	for _, msg := range drain(display) {
		if msg.Event == "quiz_event" {
			t.Errorf("display received quiz_event despite storage failure: %+v", msg)
		}
	}
}

func TestHubSyncState(t *testing.T) {
	hub, _ := newTestHub(t)

	admin := registerOn(t, hub, "admin", "")
	player := registerOn(t, hub, "player", "p1")

	dispatch(t, hub, admin, "quiz_command", CommandPayload{Command: "show_question", QuizID: 2})
	waitForQuizEvent(t, player, "show_question")

	rt := int64(1500)
	dispatch(t, hub, player, "submit_answer", AnswerPayload{
		PlayerID: "p1", QuizID: 2, Answer: "Jupiter", ResponseTime: &rt,
	})
	waitFor(t, player, "answer_result")

	hub.Dispatch(player, clientMessage{Event: "sync_state"})
	snap := waitFor(t, player, "sync_state").Payload.(StateSnapshot)
	if snap.OpenQuizID != 2 {
		t.Errorf("expected open quiz 2, got %d", snap.OpenQuizID)
	}
	if snap.CurrentStep.QuizID != 2 || snap.CurrentStep.Phase != quiz.PhaseQuestion {
		t.Errorf("unexpected current step %+v", snap.CurrentStep)
	}
	if len(snap.Answers) != 1 || snap.Answers[0].QuizID != 2 {
		t.Errorf("expected p1's answer for quiz 2, got %+v", snap.Answers)
	}
	if len(snap.Sequence) != len(quiz.BuildSequence(5)) {
		t.Errorf("expected the full sequence in the snapshot, got %d steps", len(snap.Sequence))
	}

	// The snapshot went to the requester only.
	for _, msg := range drain(admin) {
		if msg.Event == "sync_state" {
			t.Error("admin received another client's sync_state")
		}
	}
}

func TestHubGoHome(t *testing.T) {
	hub, _ := newTestHub(t)

	display := registerOn(t, hub, "display", "")
	admin := registerOn(t, hub, "admin", "")

	dispatch(t, hub, admin, "quiz_command", CommandPayload{Command: "next_slide"})
	waitForQuizEvent(t, display, "next_slide")

	hub.Dispatch(admin, clientMessage{Event: "go_home"})
	waitFor(t, display, "go_home_event")
	if idx := snapshotIndex(t, hub); idx != 0 {
		t.Errorf("expected index 0 after go_home, got %d", idx)
	}
}

func TestHubDropUpdatesStats(t *testing.T) {
	hub, _ := newTestHub(t)

	admin := registerOn(t, hub, "admin", "")
	player := registerOn(t, hub, "player", "p1")

	hub.Drop(player)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-admin.send:
			stats, ok := msg.Payload.(quiz.ConnectionStats)
			if msg.Event == "connection_stats" && ok && stats.Players == 0 {
				if stats.Total != 1 {
					t.Errorf("expected 1 remaining connection, got %d", stats.Total)
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for stats push after drop")
		}
	}
}
