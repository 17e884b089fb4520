// Package session drives one pass over a deck: cards are drawn at random
// without replacement, the first phrase is spoken once automatically and
// can be replayed on demand, and the session completes when every card has
// been retired.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"yomiage/internal/models"
)

var (
	// ErrExhausted signals that no unread cards remain. It drives the move to
	// Completed and is never shown to the user.
	ErrExhausted = errors.New("no unread cards remain")
	// ErrNotShowing is returned by replay and advance when no card is on display
	ErrNotShowing = errors.New("no card is showing")
)

// SynthesisError reports that speech for the current card could not be produced.
// The session stays consistent and the next render retries.
type SynthesisError struct {
	CardID int
	Err    error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis failed for card %d: %v", e.CardID, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// Synthesizer turns text into playable audio
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// Status is the controller's position in the session lifecycle
type Status int

const (
	NotStarted Status = iota
	Showing
	Completed
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Showing:
		return "showing"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// SessionState is a snapshot of the mutable session.
// CurrentID is 0 when no card is active; card ids are always positive.
type SessionState struct {
	RemainingIDs  []int
	CurrentID     int
	HasPlayedOnce bool
	PendingReplay bool
}

// Complete reports whether every card has been drawn and retired
func (s SessionState) Complete() bool {
	return len(s.RemainingIDs) == 0 && s.CurrentID == 0
}

// Clip is audio produced during one controller step
type Clip struct {
	Audio    []byte
	Autoplay bool
	Replay   bool
}

// Frame is everything a surface needs to draw the current step
type Frame struct {
	Status Status
	Read   int
	Total  int
	Card   models.Card
	Clip   *Clip
}

// Controller owns the session state for one deck
type Controller struct {
	deck     *models.Deck
	selector Selector
	synth    Synthesizer
	language string
	logger   *slog.Logger

	state SessionState
}

// NewController starts a fresh session over deck with every card unread
func NewController(deck *models.Deck, selector Selector, synth Synthesizer, language string, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		deck:     deck,
		selector: selector,
		synth:    synth,
		language: language,
		logger:   logger,
		state: SessionState{
			RemainingIDs: deck.IDs(),
		},
	}
}

// Deck returns the deck the session runs over
func (c *Controller) Deck() *models.Deck {
	return c.deck
}

// Status derives the lifecycle position from the state
func (c *Controller) Status() Status {
	switch {
	case c.state.CurrentID != 0:
		return Showing
	case c.state.Complete():
		return Completed
	default:
		return NotStarted
	}
}

// State returns a copy of the session state
func (c *Controller) State() SessionState {
	s := c.state
	s.RemainingIDs = slices.Clone(c.state.RemainingIDs)
	return s
}

// Progress returns how many cards have been drawn, including the one on display
func (c *Controller) Progress() (read, total int) {
	total = c.deck.Len()
	return total - len(c.state.RemainingIDs), total
}

// Current returns the card on display
func (c *Controller) Current() (models.Card, bool) {
	if c.state.CurrentID == 0 {
		return models.Card{}, false
	}
	return c.deck.Card(c.state.CurrentID)
}

// EnsureCurrent draws a card when none is showing. With nothing left to draw
// the session is Completed.
func (c *Controller) EnsureCurrent() (Status, error) {
	if c.state.CurrentID != 0 {
		return Showing, nil
	}

	err := c.draw()
	switch {
	case errors.Is(err, ErrExhausted):
		return Completed, nil
	case err != nil:
		return c.Status(), err
	}
	return Showing, nil
}

// draw moves one unread id into CurrentID
func (c *Controller) draw() error {
	id, ok := c.selector.Select(c.state.RemainingIDs)
	if !ok {
		return ErrExhausted
	}

	idx := sort.SearchInts(c.state.RemainingIDs, id)
	if idx >= len(c.state.RemainingIDs) || c.state.RemainingIDs[idx] != id {
		return fmt.Errorf("selector returned id %d which is not unread", id)
	}

	c.state.RemainingIDs = slices.Delete(c.state.RemainingIDs, idx, idx+1)
	c.state.CurrentID = id
	c.state.HasPlayedOnce = false
	c.state.PendingReplay = false

	c.logger.Debug("card drawn", "id", id, "remaining", len(c.state.RemainingIDs))
	return nil
}

// AutoPlayIfNeeded speaks the current first phrase the first time the card is
// rendered. HasPlayedOnce is only set on success so a failure is retried on
// the next render.
func (c *Controller) AutoPlayIfNeeded(ctx context.Context) (*Clip, error) {
	if c.state.CurrentID == 0 || c.state.HasPlayedOnce {
		return nil, nil
	}

	audio, err := c.speak(ctx)
	if err != nil {
		return nil, err
	}
	c.state.HasPlayedOnce = true
	return &Clip{Audio: audio, Autoplay: true}, nil
}

// Replay speaks the current first phrase again. It never changes progress.
func (c *Controller) Replay(ctx context.Context) (*Clip, error) {
	if c.state.CurrentID == 0 {
		return nil, ErrNotShowing
	}

	audio, err := c.speak(ctx)
	if err != nil {
		return nil, err
	}
	return &Clip{Audio: audio, Autoplay: true, Replay: true}, nil
}

// RequestReplay marks a replay to be serviced by the next Render
func (c *Controller) RequestReplay() error {
	if c.state.CurrentID == 0 {
		return ErrNotShowing
	}
	c.state.PendingReplay = true
	return nil
}

// Advance retires the current card for good and draws the next one
func (c *Controller) Advance() (Status, error) {
	if c.state.CurrentID == 0 {
		return c.Status(), ErrNotShowing
	}

	c.logger.Debug("card retired", "id", c.state.CurrentID)
	c.state.CurrentID = 0
	c.state.HasPlayedOnce = false
	c.state.PendingReplay = false

	status, err := c.EnsureCurrent()
	if status == Completed {
		c.logger.Info("session completed", "deck", c.deck.Name(), "total", c.deck.Len())
	}
	return status, err
}

// Render runs one step: draw if needed, auto-play once, then service a
// pending replay. A *SynthesisError leaves the returned frame valid.
func (c *Controller) Render(ctx context.Context) (Frame, error) {
	status, err := c.EnsureCurrent()
	if err != nil {
		return c.frame(status, nil), err
	}
	if status != Showing {
		return c.frame(status, nil), nil
	}

	clip, err := c.AutoPlayIfNeeded(ctx)

	if c.state.PendingReplay {
		c.state.PendingReplay = false
		// A clip that was just auto-played already answers the request
		if clip == nil && err == nil {
			clip, err = c.Replay(ctx)
		}
	}

	return c.frame(status, clip), err
}

func (c *Controller) frame(status Status, clip *Clip) Frame {
	read, total := c.Progress()
	f := Frame{
		Status: status,
		Read:   read,
		Total:  total,
		Clip:   clip,
	}
	if card, ok := c.Current(); ok {
		f.Card = card
	}
	return f
}

func (c *Controller) speak(ctx context.Context) ([]byte, error) {
	card, ok := c.Current()
	if !ok {
		return nil, ErrNotShowing
	}

	audio, err := c.synth.Synthesize(ctx, card.FirstPhrase, c.language)
	if err != nil {
		c.logger.Warn("speech synthesis failed", "id", card.ID, "error", err)
		return nil, &SynthesisError{CardID: card.ID, Err: err}
	}
	return audio, nil
}
