package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"yomiage/internal/deck"
	"yomiage/internal/models"
	"yomiage/internal/security"
	"yomiage/internal/session"
)

var (
	// ErrNoDeck is returned for session actions before any deck has loaded
	ErrNoDeck = errors.New("no deck loaded")
	// ErrStaleSession is returned when an action names a session that has
	// since been replaced by a reload or restart
	ErrStaleSession = errors.New("session has been replaced")
)

// ReaderOptions configures a ReaderService
type ReaderOptions struct {
	// DefaultDeck is the path loaded by LoadDefault
	DefaultDeck string
	// Language passed to the synthesizer
	Language string
	// Seed fixes the draw order of every session when non-zero
	Seed int64
	// Notifier is told when a session completes; may be nil
	Notifier Notifier
	Logger   *slog.Logger
	// Now is the clock used for session timestamps; defaults to time.Now
	Now func() time.Time
}

// View is what one render produced, ready for a surface to draw
type View struct {
	SessionID string
	DeckName  string
	HasDeck   bool
	Frame     session.Frame
	// LoadError is the most recent failed load, shown verbatim
	LoadError error
	// SpeechError is set when this render could not produce audio
	SpeechError error
}

// Snapshot is a side-effect free summary of the running session
type Snapshot struct {
	SessionID string
	DeckName  string
	HasDeck   bool
	Status    session.Status
	Read      int
	Total     int
	State     session.SessionState
}

// ReaderService owns the loaded deck and its session. Every trigger runs
// under one mutex, so each user action produces exactly one transition.
type ReaderService struct {
	mu sync.Mutex

	loader   deck.Loader
	synth    session.Synthesizer
	opts     ReaderOptions
	logger   *slog.Logger
	notifier Notifier

	ctrl      *session.Controller
	sessionID string
	startedAt time.Time
	notified  bool
	loadErr   error
}

// NewReaderService creates a service with no deck loaded
func NewReaderService(loader deck.Loader, synth session.Synthesizer, opts ReaderOptions) *ReaderService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ReaderService{
		loader:   loader,
		synth:    synth,
		opts:     opts,
		logger:   logger,
		notifier: opts.Notifier,
	}
}

// LoadDefault loads the configured default deck
func (s *ReaderService) LoadDefault(ctx context.Context) error {
	if s.opts.DefaultDeck == "" {
		return fmt.Errorf("no default deck configured")
	}
	return s.LoadSource(ctx, deck.FromPath(s.opts.DefaultDeck))
}

// LoadSource replaces the deck and starts a fresh session. On failure the
// previous session, if any, is left untouched and the error is kept for display.
func (s *ReaderService) LoadSource(ctx context.Context, src deck.Source) error {
	d, err := s.loader.Load(src)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.loadErr = err
		s.logger.ErrorContext(ctx, "failed to load deck", "source", src.Name, "error", err)
		return err
	}

	s.loadErr = nil
	s.beginLocked(d)
	s.logger.InfoContext(ctx, "deck loaded", "deck", d.Name(), "cards", d.Len(), "session", s.sessionID)
	return nil
}

// Restart begins a new pass over the current deck
func (s *ReaderService) Restart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl == nil {
		return ErrNoDeck
	}

	d := s.ctrl.Deck()
	s.beginLocked(d)
	s.logger.InfoContext(ctx, "session restarted", "deck", d.Name(), "session", s.sessionID)
	return nil
}

// beginLocked starts a new session over d. Caller holds s.mu.
func (s *ReaderService) beginLocked(d *models.Deck) {
	s.ctrl = session.NewController(d, s.newSelector(), s.synth, s.opts.Language, s.logger)
	s.sessionID = security.GenerateSessionID()
	s.startedAt = s.opts.Now()
	s.notified = false
}

// newSelector returns the card selector for a new session
func (s *ReaderService) newSelector() session.Selector {
	if s.opts.Seed != 0 {
		return session.NewRandomSelector(s.opts.Seed)
	}
	seed, err := session.NewSeed()
	if err != nil {
		s.logger.Warn("crypto seed unavailable, falling back to clock", "error", err)
		seed = s.opts.Now().UnixNano()
	}
	return session.NewRandomSelector(seed)
}

// Render runs one controller step and returns what to draw
func (s *ReaderService) Render(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := View{
		SessionID: s.sessionID,
		LoadError: s.loadErr,
	}
	if s.ctrl == nil {
		return view, nil
	}
	// With a session on screen a load error is shown once
	s.loadErr = nil

	view.HasDeck = true
	view.DeckName = s.ctrl.Deck().Name()

	frame, err := s.ctrl.Render(ctx)
	view.Frame = frame

	var synthErr *session.SynthesisError
	if errors.As(err, &synthErr) {
		view.SpeechError = synthErr
		return view, nil
	}
	return view, err
}

// RequestReplay queues a replay of the current first phrase for the next render
func (s *ReaderService) RequestReplay(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkSessionLocked(sessionID); err != nil {
		return err
	}
	return s.ctrl.RequestReplay()
}

// Advance retires the current card and draws the next. Reaching the end of
// the deck sends at most one completion notice per session.
func (s *ReaderService) Advance(ctx context.Context, sessionID string) (session.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkSessionLocked(sessionID); err != nil {
		return session.NotStarted, err
	}

	status, err := s.ctrl.Advance()
	if err != nil {
		return status, err
	}
	if status == session.Completed && !s.notified {
		s.notified = true
		s.notifyLocked(ctx)
	}
	return status, nil
}

func (s *ReaderService) notifyLocked(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	d := s.ctrl.Deck()
	summary := CompletionSummary{
		SessionID:   s.sessionID,
		DeckName:    d.Name(),
		Total:       d.Len(),
		StartedAt:   s.startedAt,
		CompletedAt: s.opts.Now(),
	}
	if err := s.notifier.SessionCompleted(ctx, summary); err != nil {
		s.logger.WarnContext(ctx, "completion notice failed", "session", s.sessionID, "error", err)
	}
}

func (s *ReaderService) checkSessionLocked(sessionID string) error {
	if s.ctrl == nil {
		return ErrNoDeck
	}
	if sessionID != s.sessionID {
		return ErrStaleSession
	}
	return nil
}

// Snapshot reports the session without advancing or speaking
func (s *ReaderService) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{SessionID: s.sessionID}
	if s.ctrl == nil {
		return snap
	}
	snap.HasDeck = true
	snap.DeckName = s.ctrl.Deck().Name()
	snap.Status = s.ctrl.Status()
	snap.Read, snap.Total = s.ctrl.Progress()
	snap.State = s.ctrl.State()
	return snap
}
