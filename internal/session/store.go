// Package session keeps the ordered list of saved conversations and mirrors
// it to durable storage.
package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Rrens/zara-ai/internal/domain"
	"github.com/Rrens/zara-ai/internal/persistence"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoMessages = errors.New("session requires at least one message")
	ErrNotFound   = errors.New("session not found")
)

const (
	// DefaultKey is the storage key holding the whole session list
	DefaultKey = "zara_chat_sessions"
	// DefaultDebounce is the quiet period before a mutation is written
	DefaultDebounce = time.Second

	backgroundWriteTimeout = 10 * time.Second
)

// Options configures a Store
type Options struct {
	Key      string
	Debounce time.Duration
	Logger   *zerolog.Logger
	Now      func() time.Time
}

// Store is the in-memory, most-recently-updated-first list of sessions.
// Mutations are applied synchronously; persistence is debounced and runs
// off the caller's goroutine, except Delete which writes immediately.
type Store struct {
	persist  *persistence.Adapter
	key      string
	debounce time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	// writeMu serializes writes so the last write always carries the newest
	// snapshot. Acquire before mu, never after.
	writeMu sync.Mutex

	mu         sync.Mutex
	sessions   []domain.Session
	activeID   string
	dirty      bool
	timer      *time.Timer
	timerSeq   uint64
	persistErr error
	closed     bool
}

// Open loads the persisted list. A missing or unreadable value yields an
// empty store; the active pointer always starts empty.
func Open(ctx context.Context, persist *persistence.Adapter, opts Options) *Store {
	s := &Store{
		persist:  persist,
		key:      opts.Key,
		debounce: opts.Debounce,
		now:      opts.Now,
		logger:   log.Logger,
	}
	if s.key == "" {
		s.key = DefaultKey
	}
	if s.debounce < 0 {
		s.debounce = 0
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.Logger != nil {
		s.logger = *opts.Logger
	}

	var loaded []domain.Session
	if persist.Load(ctx, s.key, &loaded) {
		s.sessions = normalize(loaded)
	}

	s.logger.Debug().Int("sessions", len(s.sessions)).Str("key", s.key).Msg("session store opened")
	return s
}

// normalize drops empty sessions, clears streaming flags left over from an
// interrupted run and restores most-recent-first order.
func normalize(in []domain.Session) []domain.Session {
	out := make([]domain.Session, 0, len(in))
	for _, sess := range in {
		if sess.ID == "" || len(sess.Messages) == 0 {
			continue
		}
		for i := range sess.Messages {
			sess.Messages[i].IsStreaming = false
		}
		if sess.Title == "" {
			sess.Title = domain.DeriveTitle(sess.Messages)
		}
		out = append(out, sess)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// List returns summaries, most recently updated first
func (s *Store) List() []domain.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.SessionSummary, len(s.sessions))
	for i := range s.sessions {
		out[i] = s.sessions[i].Summary()
	}
	return out
}

// Get returns a copy of the session without changing the active pointer
func (s *Store) Get(id string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return domain.Session{}, false
	}
	return cloneSession(s.sessions[i]), true
}

// Create inserts a new session at the front and makes it active.
// The title is derived from the first user message.
func (s *Store) Create(msgs []domain.Message) (string, error) {
	if len(msgs) == 0 {
		return "", ErrNoMessages
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.createLocked(msgs)
	s.scheduleLocked()
	return id, nil
}

func (s *Store) createLocked(msgs []domain.Message) string {
	sess := domain.Session{
		ID:        uuid.New().String(),
		Title:     domain.DeriveTitle(msgs),
		Messages:  domain.CloneMessages(msgs),
		UpdatedAt: s.stampLocked(),
	}
	s.sessions = append([]domain.Session{sess}, s.sessions...)
	s.activeID = sess.ID
	return sess.ID
}

// Update replaces the messages of id and moves it to the front. The title is
// left alone. When id is unknown a new session is created instead and its
// id returned.
func (s *Store) Update(id string, msgs []domain.Message) (string, error) {
	if len(msgs) == 0 {
		return "", ErrNoMessages
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		s.logger.Debug().Str("session_id", id).Msg("update for unknown session, creating")
		newID := s.createLocked(msgs)
		s.scheduleLocked()
		return newID, nil
	}

	sess := s.sessions[i]
	sess.Messages = domain.CloneMessages(msgs)
	sess.UpdatedAt = s.stampLocked()
	s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
	s.sessions = append([]domain.Session{sess}, s.sessions...)
	s.scheduleLocked()
	return id, nil
}

// Rename changes the title only; ordering and updatedAt are unchanged
func (s *Store) Rename(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = domain.DefaultSessionTitle
	}
	s.sessions[i].Title = title
	s.scheduleLocked()
	return nil
}

// Delete removes id and writes the list before returning.
// Deleting the active session clears the active pointer.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
	if s.activeID == id {
		s.activeID = ""
	}
	s.dirty = true
	s.cancelTimerLocked()
	s.mu.Unlock()

	s.write(ctx)
	return nil
}

// Load makes id the active session and returns a copy of its messages
func (s *Store) Load(id string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	s.activeID = id
	return domain.CloneMessages(s.sessions[i].Messages), nil
}

// ClearActive resets the active pointer for a fresh conversation
func (s *Store) ClearActive() {
	s.mu.Lock()
	s.activeID = ""
	s.mu.Unlock()
}

// Active returns the active session id, or "" when none
func (s *Store) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// PersistError returns the error of the most recent write, if any
func (s *Store) PersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

// Flush writes any pending mutation now
func (s *Store) Flush(ctx context.Context) {
	s.mu.Lock()
	s.cancelTimerLocked()
	s.mu.Unlock()

	s.write(ctx)
}

// Close flushes pending state and stops scheduling further writes
func (s *Store) Close(ctx context.Context) {
	s.Flush(ctx)

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// stampLocked returns a timestamp no earlier than the current front so that
// the moved session sorts first even with a coarse clock.
func (s *Store) stampLocked() time.Time {
	now := s.now()
	if len(s.sessions) > 0 && s.sessions[0].UpdatedAt.After(now) {
		return s.sessions[0].UpdatedAt
	}
	return now
}

func (s *Store) scheduleLocked() {
	s.dirty = true
	if s.closed {
		return
	}
	s.cancelTimerLocked()
	seq := s.timerSeq
	s.timer = time.AfterFunc(s.debounce, func() { s.fire(seq) })
}

func (s *Store) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerSeq++
}

func (s *Store) fire(seq uint64) {
	s.mu.Lock()
	if seq != s.timerSeq {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), backgroundWriteTimeout)
	defer cancel()
	s.write(ctx)
}

// write stores the current list if it changed since the last write.
// Failures are logged and kept for PersistError; memory state is untouched.
func (s *Store) write(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	snapshot := make([]domain.Session, len(s.sessions))
	for i := range s.sessions {
		snapshot[i] = cloneSession(s.sessions[i])
	}
	s.dirty = false
	s.mu.Unlock()

	err := s.persist.Save(ctx, s.key, snapshot)

	s.mu.Lock()
	s.persistErr = err
	if err != nil {
		// retried by the next mutation or Flush
		s.dirty = true
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("failed to persist sessions")
		return
	}
	s.logger.Debug().Int("sessions", len(snapshot)).Msg("sessions persisted")
}

func cloneSession(sess domain.Session) domain.Session {
	sess.Messages = domain.CloneMessages(sess.Messages)
	return sess
}
