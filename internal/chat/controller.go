// Package chat drives one model generation at a time for the visible
// conversation and mirrors its progress into the session store.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Rrens/zara-ai/internal/domain"
	"github.com/Rrens/zara-ai/internal/llm"
	"github.com/Rrens/zara-ai/internal/offline"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrBusy         = errors.New("a reply is already being generated")
	ErrEmptyMessage = errors.New("message needs text or an attachment")
)

// State is the lifecycle of a generation
type State string

const (
	StateIdle        State = "idle"
	StateDispatching State = "dispatching"
	StateStreaming   State = "streaming"
	StateFinalized   State = "finalized"
	StateAborted     State = "aborted"
	StateErrored     State = "errored"
)

// SessionStore is the subset of the session store the controller writes through
type SessionStore interface {
	Create(msgs []domain.Message) (string, error)
	Update(id string, msgs []domain.Message) (string, error)
	Load(id string) ([]domain.Message, error)
	ClearActive()
}

// Connectivity reports whether the generation service is reachable
type Connectivity interface {
	Online() bool
}

// Fallback answers locally while offline
type Fallback interface {
	Respond(text string) string
}

// View is an immutable snapshot of the conversation being displayed.
// Seq increases with every published view.
type View struct {
	Seq       uint64           `json:"seq"`
	SessionID string           `json:"sessionId,omitempty"`
	Messages  []domain.Message `json:"messages"`
	Loading   bool             `json:"loading"`
	State     State            `json:"state"`
}

// Outcome is the terminal result of a Send
type Outcome struct {
	State     State          `json:"state"`
	SessionID string         `json:"sessionId"`
	Message   domain.Message `json:"message"`
}

// SendInput is a user turn. Provider and Model override the configured behavior.
type SendInput struct {
	Text        string
	Attachments []domain.Attachment
	Provider    string
	Model       string
}

type generation struct {
	token         *CancelToken
	placeholderID string
	cancel        context.CancelFunc
	state         State
	final         domain.Message
	sessionID     string
}

type streamResult struct {
	res *llm.ChatResult
	err error
}

// Option configures a Controller
type Option func(*Controller)

// WithBehavior sets the default model behavior for every send
func WithBehavior(cfg llm.BehaviorConfig) Option {
	return func(c *Controller) { c.behavior = cfg }
}

// WithTimeout bounds each generation; zero disables the bound
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithConnectivity routes sends to the fallback whenever conn reports offline
func WithConnectivity(conn Connectivity) Option {
	return func(c *Controller) { c.connectivity = conn }
}

// WithFallback replaces the offline responder
func WithFallback(f Fallback) Option {
	return func(c *Controller) { c.fallback = f }
}

// WithClock replaces the time source for message timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger sets the controller logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// Controller owns the authoritative message list of the visible conversation
type Controller struct {
	store        SessionStore
	streamer     llm.ChatStreamer
	connectivity Connectivity
	fallback     Fallback
	behavior     llm.BehaviorConfig
	timeout      time.Duration
	now          func() time.Time
	logger       zerolog.Logger

	mu        sync.Mutex
	sessionID string
	messages  []domain.Message
	state     State
	active    *generation
	seq       uint64

	subMu   sync.Mutex
	subs    map[int]func(View)
	nextSub int
}

// NewController creates a controller with an empty conversation
func NewController(store SessionStore, streamer llm.ChatStreamer, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		streamer: streamer,
		fallback: offline.NewResponder(),
		now:      time.Now,
		logger:   log.Logger,
		state:    StateIdle,
		subs:     make(map[int]func(View)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send appends the user message and a streaming placeholder, then blocks
// until the generation finalizes, fails, is aborted or ctx ends. Cancelling
// ctx aborts the generation.
func (c *Controller) Send(ctx context.Context, in SendInput) (*Outcome, error) {
	return c.send(ctx, in, nil)
}

// Stream is Send that also passes onView every view published while the
// turn runs. A rejected turn never calls onView.
func (c *Controller) Stream(ctx context.Context, in SendInput, onView func(View)) (*Outcome, error) {
	return c.send(ctx, in, onView)
}

func (c *Controller) send(ctx context.Context, in SendInput, onView func(View)) (*Outcome, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if onView != nil {
		unsubscribe := c.Subscribe(onView)
		defer unsubscribe()
	}

	now := c.now()
	user := domain.NewUserMessage(in.Text, in.Attachments, now)
	history := domain.CloneMessages(c.messages)

	if c.connectivity != nil && !c.connectivity.Online() {
		out := c.replyOfflineLocked(user, now)
		view := c.viewLocked()
		c.mu.Unlock()
		c.publish(view)
		return out, nil
	}

	placeholder := domain.NewModelPlaceholder(now)
	c.messages = append(c.messages, user, placeholder)

	base := context.WithoutCancel(ctx)
	var callCtx context.Context
	var cancel context.CancelFunc
	if c.timeout > 0 {
		callCtx, cancel = context.WithTimeout(base, c.timeout)
	} else {
		callCtx, cancel = context.WithCancel(base)
	}

	gen := &generation{
		token:         NewCancelToken(),
		placeholderID: placeholder.ID,
		cancel:        cancel,
		state:         StateDispatching,
	}
	c.active = gen
	c.state = StateDispatching
	c.persistStreamingLocked()
	view := c.viewLocked()
	c.mu.Unlock()
	c.publish(view)

	c.logger.Debug().
		Str("session_id", view.SessionID).
		Str("message_id", placeholder.ID).
		Msg("generation dispatched")

	req := llm.ChatRequest{
		History: history,
		Message: user,
		Config:  c.behaviorFor(in),
	}
	results := make(chan streamResult, 1)
	go func() {
		res, err := c.streamer.StreamChat(callCtx, req, func(text string) {
			c.applyToken(gen, text)
		})
		results <- streamResult{res: res, err: err}
	}()

	var timeout <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case r := <-results:
		switch {
		case r.err != nil:
			c.fail(gen, r.err)
		case r.res == nil:
			c.fail(gen, llm.ErrEmptyResponse)
		default:
			c.finalize(gen, r.res)
		}
	case <-gen.token.Done():
	case <-timeout:
		c.fail(gen, llm.ErrTimeout)
	case <-ctx.Done():
		c.abortGeneration(gen)
	}
	cancel()

	return c.outcome(gen), nil
}

// ValidateInput reports ErrEmptyMessage for a turn with neither text nor attachments
func ValidateInput(in SendInput) error {
	if strings.TrimSpace(in.Text) == "" && len(in.Attachments) == 0 {
		return ErrEmptyMessage
	}
	return nil
}

func (c *Controller) replyOfflineLocked(user domain.Message, now time.Time) *Outcome {
	reply := domain.NewModelPlaceholder(now)
	reply.IsStreaming = false
	reply.IsOffline = true
	reply.Text = c.fallback.Respond(user.Text)

	c.messages = append(c.messages, user, reply)
	c.state = StateFinalized
	c.persistFinalLocked()

	c.logger.Info().Str("session_id", c.sessionID).Msg("answered offline")
	return &Outcome{State: StateFinalized, SessionID: c.sessionID, Message: reply.Clone()}
}

func (c *Controller) behaviorFor(in SendInput) llm.BehaviorConfig {
	cfg := c.behavior
	if in.Provider != "" {
		cfg.Provider = in.Provider
	}
	if in.Model != "" {
		cfg.Model = in.Model
	}
	return cfg
}

// applyToken replaces the placeholder text with the cumulative text.
// Calls after the generation ended are ignored.
func (c *Controller) applyToken(gen *generation, text string) {
	if gen.token.Cancelled() {
		return
	}

	c.mu.Lock()
	if !c.ownsLocked(gen) {
		c.mu.Unlock()
		return
	}
	i := c.indexLocked(gen.placeholderID)
	if i < 0 {
		c.mu.Unlock()
		return
	}
	c.messages[i].Text = text
	gen.state = StateStreaming
	c.state = StateStreaming
	c.persistStreamingLocked()
	view := c.viewLocked()
	c.mu.Unlock()

	c.publish(view)
}

func (c *Controller) finalize(gen *generation, res *llm.ChatResult) {
	c.mu.Lock()
	if !c.ownsLocked(gen) {
		c.mu.Unlock()
		return
	}
	if i := c.indexLocked(gen.placeholderID); i >= 0 {
		c.messages[i].Text = res.Text
		c.messages[i].Sources = res.Sources
		c.messages[i].IsStreaming = false
	}
	c.endLocked(gen, StateFinalized)
	view := c.viewLocked()
	c.mu.Unlock()

	c.logger.Info().
		Str("session_id", view.SessionID).
		Str("model", res.Model).
		Int("tokens", res.TokensUsed).
		Int64("latency_ms", res.LatencyMs).
		Msg("generation finalized")
	c.publish(view)
}

// fail discards any partial text in favour of the user-facing error
func (c *Controller) fail(gen *generation, err error) {
	c.mu.Lock()
	if !c.ownsLocked(gen) {
		c.mu.Unlock()
		return
	}
	if i := c.indexLocked(gen.placeholderID); i >= 0 {
		c.messages[i].Text = llm.UserMessage(err)
		c.messages[i].IsError = true
		c.messages[i].IsStreaming = false
	}
	c.endLocked(gen, StateErrored)
	view := c.viewLocked()
	c.mu.Unlock()

	c.logger.Error().Err(err).Str("session_id", view.SessionID).Msg("generation failed")
	c.publish(view)
}

// Abort stops the in-flight generation, keeping its partial text.
// It reports false when nothing was in flight.
func (c *Controller) Abort() bool {
	c.mu.Lock()
	gen := c.active
	if gen == nil {
		c.mu.Unlock()
		return false
	}
	c.abortLocked(gen)
	view := c.viewLocked()
	c.mu.Unlock()

	c.logger.Info().Str("session_id", view.SessionID).Msg("generation aborted")
	c.publish(view)
	return true
}

func (c *Controller) abortGeneration(gen *generation) {
	c.mu.Lock()
	if c.active != gen {
		c.mu.Unlock()
		return
	}
	c.abortLocked(gen)
	view := c.viewLocked()
	c.mu.Unlock()

	c.logger.Info().Str("session_id", view.SessionID).Msg("generation abandoned by caller")
	c.publish(view)
}

func (c *Controller) abortLocked(gen *generation) {
	gen.token.Cancel()
	if i := c.indexLocked(gen.placeholderID); i >= 0 {
		c.messages[i].IsStreaming = false
	}
	c.endLocked(gen, StateAborted)
}

func (c *Controller) endLocked(gen *generation, state State) {
	gen.state = state
	gen.cancel()
	c.active = nil
	c.state = state
	c.persistFinalLocked()

	if i := c.indexLocked(gen.placeholderID); i >= 0 {
		gen.final = c.messages[i].Clone()
	}
	gen.sessionID = c.sessionID
}

func (c *Controller) ownsLocked(gen *generation) bool {
	return c.active == gen && !gen.token.Cancelled()
}

// persistStreamingLocked mirrors in-progress state into an existing session.
// New conversations are only created once the first exchange ends.
func (c *Controller) persistStreamingLocked() {
	if c.sessionID == "" {
		return
	}
	c.persistFinalLocked()
}

func (c *Controller) persistFinalLocked() {
	msgs := domain.CloneMessages(c.messages)
	if c.sessionID == "" {
		id, err := c.store.Create(msgs)
		if err != nil {
			c.logger.Warn().Err(err).Msg("failed to create session")
			return
		}
		c.sessionID = id
		return
	}

	id, err := c.store.Update(c.sessionID, msgs)
	if err != nil {
		c.logger.Warn().Err(err).Str("session_id", c.sessionID).Msg("failed to update session")
		return
	}
	c.sessionID = id
}

func (c *Controller) outcome(gen *generation) *Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &Outcome{
		State:     gen.state,
		SessionID: gen.sessionID,
		Message:   gen.final.Clone(),
	}
}

// NewChat aborts any generation and starts an empty conversation
func (c *Controller) NewChat() {
	c.mu.Lock()
	if c.active != nil {
		c.abortLocked(c.active)
	}
	c.store.ClearActive()
	c.sessionID = ""
	c.messages = nil
	c.state = StateIdle
	view := c.viewLocked()
	c.mu.Unlock()

	c.publish(view)
}

// Load switches the view to a saved session. Any generation is aborted and
// persisted first, so the store's active pointer ends on id.
func (c *Controller) Load(id string) error {
	c.mu.Lock()
	aborted := c.active != nil
	if aborted {
		c.abortLocked(c.active)
	}

	msgs, err := c.store.Load(id)
	if err != nil {
		var view View
		if aborted {
			view = c.viewLocked()
		}
		c.mu.Unlock()
		if aborted {
			c.publish(view)
		}
		return err
	}

	c.sessionID = id
	c.messages = msgs
	c.state = StateIdle
	view := c.viewLocked()
	c.mu.Unlock()

	c.publish(view)
	return nil
}

// SessionDeleted drops the view when it shows id. Any generation for it is
// cancelled without writing back, so the deleted session is not recreated.
func (c *Controller) SessionDeleted(id string) {
	c.mu.Lock()
	if id == "" || c.sessionID != id {
		c.mu.Unlock()
		return
	}
	if gen := c.active; gen != nil {
		gen.token.Cancel()
		gen.cancel()
		gen.state = StateAborted
		if i := c.indexLocked(gen.placeholderID); i >= 0 {
			gen.final = c.messages[i].Clone()
			gen.final.IsStreaming = false
		}
		gen.sessionID = id
		c.active = nil
	}
	c.sessionID = ""
	c.messages = nil
	c.state = StateIdle
	view := c.viewLocked()
	c.mu.Unlock()

	c.publish(view)
}

// Snapshot returns the current view
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Seq:       c.seq,
		SessionID: c.sessionID,
		Messages:  domain.CloneMessages(c.messages),
		Loading:   c.active != nil,
		State:     c.state,
	}
}

// Busy reports whether a generation is in flight
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Subscribe registers fn for every published view. The returned func unsubscribes.
// fn runs on the publishing goroutine; views can arrive out of order across
// goroutines, so consumers should drop any view whose Seq is not newer.
func (c *Controller) Subscribe(fn func(View)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) publish(v View) {
	c.subMu.Lock()
	subs := make([]func(View), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

func (c *Controller) viewLocked() View {
	c.seq++
	return View{
		Seq:       c.seq,
		SessionID: c.sessionID,
		Messages:  domain.CloneMessages(c.messages),
		Loading:   c.active != nil,
		State:     c.state,
	}
}

func (c *Controller) indexLocked(id string) int {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].ID == id {
			return i
		}
	}
	return -1
}
