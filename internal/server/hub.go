package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quiznight/livequiz/internal/quiz"
)

// Hub is the authoritative sequence/broadcast engine. A single goroutine
// (Run) consumes every connection event in order, so the registry and the
// sequence index are mutated without locks. Fan-out never blocks the loop:
// each client drains its own buffered channel through its write pump.
//
// The canonical event vocabulary is deliberately small and mostly
// payload-free. The display, the admin console and the player pages each
// keep their own mirrored copy of the sequence and interpret events like
// next_slide against their own local phase; the server-owned index exists so
// that resync has a single source of truth, not so the server can render.
type Hub struct {
	logger   *slog.Logger
	store    Store
	registry *Registry

	sequence []quiz.Step
	index    int

	// quizSteps[quizID][phase] and rankingSteps[position] map navigation
	// targets to sequence indices.
	quizSteps    map[int]map[quiz.Phase]int
	rankingSteps map[string]int

	inbound   chan inboundMessage
	dropped   chan *Client
	snapshots chan snapshotRequest
	resets    chan resetRequest
	done      chan struct{}
}

type inboundMessage struct {
	client *Client
	msg    clientMessage
}

type snapshotRequest struct {
	playerID string
	reply    chan snapshotResult
}

type snapshotResult struct {
	snap StateSnapshot
	err  error
}

type resetRequest struct {
	reply chan error
}

func NewHub(logger *slog.Logger, store Store, sequence []quiz.Step) *Hub {
	h := &Hub{
		logger:       logger,
		store:        store,
		registry:     NewRegistry(logger),
		sequence:     sequence,
		quizSteps:    make(map[int]map[quiz.Phase]int),
		rankingSteps: make(map[string]int),
		inbound:      make(chan inboundMessage, 64),
		dropped:      make(chan *Client, 16),
		snapshots:    make(chan snapshotRequest),
		resets:       make(chan resetRequest),
		done:         make(chan struct{}),
	}
	for i, step := range sequence {
		switch {
		case step.QuizID != 0:
			if h.quizSteps[step.QuizID] == nil {
				h.quizSteps[step.QuizID] = make(map[quiz.Phase]int)
			}
			h.quizSteps[step.QuizID][step.Phase] = i
		case step.RankingPosition != "":
			h.rankingSteps[step.RankingPosition] = i
		}
	}
	return h
}

// Run processes connection events until ctx is canceled. It is the only
// goroutine allowed to touch the registry or the sequence index.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	h.logger.Info("hub started", "steps", len(h.sequence))

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub shutting down")
			return
		case m := <-h.inbound:
			h.handleMessage(ctx, m.client, m.msg)
		case c := <-h.dropped:
			h.handleDrop(c)
		case req := <-h.snapshots:
			snap, err := h.buildSnapshot(ctx, req.playerID)
			req.reply <- snapshotResult{snap: snap, err: err}
		case req := <-h.resets:
			req.reply <- h.resetAll(ctx)
		}
	}
}

// Dispatch hands an inbound client message to the hub loop. Called from
// read pumps.
func (h *Hub) Dispatch(c *Client, msg clientMessage) {
	select {
	case h.inbound <- inboundMessage{client: c, msg: msg}:
	case <-h.done:
	}
}

// Drop removes a disconnected client. Called from read pumps on exit.
func (h *Hub) Drop(c *Client) {
	select {
	case h.dropped <- c:
	case <-h.done:
	}
}

// Snapshot answers an HTTP resync request with the current derived state.
func (h *Hub) Snapshot(ctx context.Context, playerID string) (StateSnapshot, error) {
	req := snapshotRequest{playerID: playerID, reply: make(chan snapshotResult, 1)}
	select {
	case h.snapshots <- req:
	case <-ctx.Done():
		return StateSnapshot{}, ctx.Err()
	case <-h.done:
		return StateSnapshot{}, errors.New("hub stopped")
	}
	select {
	case res := <-req.reply:
		return res.snap, res.err
	case <-ctx.Done():
		return StateSnapshot{}, ctx.Err()
	}
}

// Reset performs the same transactional wipe and broadcast as the reset_all
// admin command. Used by the admin HTTP endpoint.
func (h *Hub) Reset(ctx context.Context) error {
	req := resetRequest{reply: make(chan error, 1)}
	select {
	case h.resets <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return errors.New("hub stopped")
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) handleMessage(ctx context.Context, c *Client, msg clientMessage) {
	switch msg.Event {
	case "register":
		h.handleRegister(ctx, c, msg.Payload)
	case "quiz_command":
		h.handleCommand(ctx, c, msg.Payload)
	case "submit_answer":
		h.handleAnswer(ctx, c, msg.Payload)
	case "sync_state":
		h.handleSync(ctx, c)
	case "go_home":
		h.index = 0
		h.registry.BroadcastAll(Envelope{Event: "go_home_event"})
	default:
		h.commandError(c, fmt.Sprintf("unknown event %q", msg.Event))
	}
}

func (h *Hub) handleRegister(ctx context.Context, c *Client, raw json.RawMessage) {
	var p RegisterPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.registrationError(c, "invalid register payload")
		return
	}

	class := ConnClass(p.Type)
	if class == ClassPlayer {
		if p.PlayerID == "" {
			h.registrationError(c, "playerId is required for player connections")
			return
		}
		name := p.Name
		if name == "" {
			name = p.PlayerID
		}
		if err := h.store.UpsertPlayer(ctx, p.PlayerID, name); err != nil {
			h.logger.Error("persisting player failed", "player_id", p.PlayerID, "error", err)
			h.registrationError(c, "storage unavailable")
			return
		}
	}

	// A socket that registers twice switches roles; drop the old one first.
	h.registry.Unregister(c)

	if err := h.registry.Register(c, class, p.PlayerID); err != nil {
		h.registrationError(c, err.Error())
		return
	}

	c.deliver(Envelope{
		Event:   "registered",
		Payload: RegisteredPayload{Type: string(class), PlayerID: p.PlayerID},
	})
	h.registry.PushStats()
	h.logger.Info("connection registered",
		"connection_id", c.id, "class", class, "player_id", p.PlayerID)
}

func (h *Hub) handleCommand(ctx context.Context, c *Client, raw json.RawMessage) {
	if !h.registry.IsAdmin(c) {
		h.commandError(c, "unauthorized: admin connection required")
		return
	}

	var p CommandPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.commandError(c, "invalid command payload")
		return
	}

	switch p.Command {
	case "start_quiz":
		if idx, ok := h.quizSteps[1][quiz.PhaseTitle]; ok {
			h.index = idx
		}
		h.broadcastQuizEvent(QuizEventPayload{Event: eventQuizStarted})

	case "show_question":
		idx, ok := h.quizSteps[p.QuizID][quiz.PhaseQuestion]
		if !ok {
			h.commandError(c, fmt.Sprintf("unknown quiz %d", p.QuizID))
			return
		}
		// Open the answer window before anyone sees the question. On
		// storage failure the command fails and nothing is broadcast.
		if _, err := h.store.StartSession(ctx, p.QuizID); err != nil {
			h.logger.Error("starting session failed", "quiz_id", p.QuizID, "error", err)
			h.commandError(c, "storage unavailable, question not shown")
			return
		}
		h.index = idx
		h.broadcastQuizEvent(QuizEventPayload{Event: eventShowQuestion, QuizID: p.QuizID})

	case "show_answer":
		idx, ok := h.quizSteps[p.QuizID][quiz.PhaseAnswer]
		if !ok {
			h.commandError(c, fmt.Sprintf("unknown quiz %d", p.QuizID))
			return
		}
		if err := h.store.EndSession(ctx, p.QuizID); err != nil {
			h.logger.Error("ending session failed", "quiz_id", p.QuizID, "error", err)
			h.commandError(c, "storage unavailable, answer not shown")
			return
		}
		h.index = idx
		h.broadcastQuizEvent(QuizEventPayload{Event: eventShowAnswer, QuizID: p.QuizID})

	case "show_ranking":
		idx, ok := h.rankingSteps[p.Position]
		if !ok {
			h.commandError(c, fmt.Sprintf("unknown ranking position %q", p.Position))
			return
		}
		h.index = idx
		h.broadcastQuizEvent(QuizEventPayload{Event: eventShowRanking, Position: p.Position})

	case "next_slide":
		if h.index < len(h.sequence)-1 {
			h.index++
		}
		h.broadcastQuizEvent(QuizEventPayload{Event: eventNextSlide})

	case "prev_slide":
		if h.index > 0 {
			h.index--
		}
		h.broadcastQuizEvent(QuizEventPayload{Event: eventPrevSlide})

	case "reset_all":
		if err := h.resetAll(ctx); err != nil {
			h.commandError(c, "storage unavailable, reset aborted")
			return
		}

	default:
		h.commandError(c, fmt.Sprintf("unknown command %q", p.Command))
	}
}

// resetAll wipes the durable game state, rewinds the sequence and tells
// every client. The store call is all-or-nothing; on failure the sequence
// index stays put and nothing is broadcast.
func (h *Hub) resetAll(ctx context.Context) error {
	if err := h.store.ResetAll(ctx); err != nil {
		h.logger.Error("reset failed", "error", err)
		return err
	}
	h.index = 0
	h.broadcastQuizEvent(QuizEventPayload{Event: eventResetAll})
	return nil
}

func (h *Hub) handleAnswer(ctx context.Context, c *Client, raw json.RawMessage) {
	var p AnswerPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.commandError(c, "invalid answer payload")
		return
	}
	if p.PlayerID == "" || p.QuizID == 0 {
		h.commandError(c, "playerId and quizId are required")
		return
	}

	responseMS := int64(-1)
	if p.ResponseTime != nil {
		responseMS = max(*p.ResponseTime, 0)
	}

	answer, err := h.store.RecordAnswer(ctx, p.PlayerID, p.QuizID, p.Answer, responseMS)
	switch {
	case errors.Is(err, ErrNoActiveSession):
		h.commandError(c, fmt.Sprintf("no active session for quiz %d", p.QuizID))
		return
	case errors.Is(err, ErrDuplicateAnswer):
		h.commandError(c, "answer already submitted for this quiz")
		return
	case err != nil:
		h.logger.Error("recording answer failed",
			"player_id", p.PlayerID, "quiz_id", p.QuizID, "error", err)
		h.commandError(c, "storage unavailable")
		return
	}

	// The submitter learns the verdict, admins see what was answered,
	// everyone else just learns that this player is done.
	c.deliver(Envelope{
		Event: "answer_result",
		Payload: AnswerResultPayload{
			PlayerID:  answer.PlayerID,
			QuizID:    answer.QuizID,
			IsCorrect: answer.IsCorrect,
		},
	})
	h.registry.BroadcastToAdmins(Envelope{
		Event: "answer_update",
		Payload: AnswerUpdatePayload{
			PlayerID: answer.PlayerID,
			QuizID:   answer.QuizID,
			Answer:   answer.Answer,
		},
	})
	h.registry.BroadcastAll(Envelope{
		Event:   "answer_submitted",
		Payload: AnswerSubmittedPayload{PlayerID: answer.PlayerID, QuizID: answer.QuizID},
	})
}

func (h *Hub) handleSync(ctx context.Context, c *Client) {
	snap, err := h.buildSnapshot(ctx, c.playerID)
	if err != nil {
		h.logger.Error("building snapshot failed", "connection_id", c.id, "error", err)
		h.commandError(c, "storage unavailable")
		return
	}
	c.deliver(Envelope{Event: "sync_state", Payload: snap})
}

// buildSnapshot derives the current state from storage and the live
// registry. There is no event log to replay: a reconnecting client gets the
// present truth and nothing else.
func (h *Hub) buildSnapshot(ctx context.Context, playerID string) (StateSnapshot, error) {
	openQuiz, _, err := h.store.OpenQuizID(ctx)
	if err != nil {
		return StateSnapshot{}, fmt.Errorf("deriving open quiz: %w", err)
	}

	snap := StateSnapshot{
		CurrentIndex: h.index,
		CurrentStep:  h.sequence[h.index],
		Sequence:     h.sequence,
		OpenQuizID:   openQuiz,
		Stats:        h.registry.Stats(),
	}

	if playerID != "" {
		answers, err := h.store.AnswersForPlayer(ctx, playerID)
		if err != nil {
			return StateSnapshot{}, fmt.Errorf("loading player answers: %w", err)
		}
		snap.Answers = answers
	}
	return snap, nil
}

func (h *Hub) handleDrop(c *Client) {
	if h.registry.Unregister(c) {
		h.registry.PushStats()
		h.logger.Info("connection unregistered", "connection_id", c.id, "class", c.class)
	}
	close(c.send)
}

func (h *Hub) broadcastQuizEvent(p QuizEventPayload) {
	h.registry.BroadcastAll(Envelope{Event: "quiz_event", Payload: p})
}

func (h *Hub) commandError(c *Client, msg string) {
	c.deliver(Envelope{Event: "command_error", Payload: ErrorPayload{Message: msg}})
}

func (h *Hub) registrationError(c *Client, msg string) {
	c.deliver(Envelope{Event: "registration_error", Payload: ErrorPayload{Message: msg}})
}
