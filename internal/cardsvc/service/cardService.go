package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avvvet/scratch-services/internal/cardsvc/models"
	"github.com/avvvet/scratch-services/internal/cardsvc/store"
	"github.com/avvvet/scratch-services/internal/cardsvc/verifier"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// ScratchDelay is how long the reveal suspension runs before a
	// scratch commits. Tests inject a shorter delay via the constructor.
	ScratchDelay = 2000 * time.Millisecond

	// ActivationThreshold is the version a code must strictly exceed
	// for activation to succeed.
	ActivationThreshold = 277028
)

var (
	ErrMissingCode     = errors.New("card has no code to activate")
	ErrThresholdNotMet = errors.New("card version did not pass the activation threshold")
	ErrScratchPending  = errors.New("a scratch is already in progress")
	ErrActivatePending = errors.New("an activation is already in progress")
)

// user facing failure text, transport and malformed-response failures
// share one generic message on purpose
const (
	msgVerifyFailed = "unable to verify card, please try again"
	msgNotEligible  = "card is not eligible for activation"
)

// TransitionListener receives the current card and the history entry
// produced by a committed transition.
type TransitionListener func(card models.Card, entry models.HistoryEntry)

// CardService owns the single current card and enforces its lifecycle:
// unscratched -> scratched -> activated, with cancelled as the terminal
// outcome of an aborted scratch attempt. Every committed transition
// appends exactly one history entry.
type CardService struct {
	history  *store.HistoryStore
	verifier verifier.ActivationVerifier
	delay    time.Duration

	mu            sync.Mutex
	card          models.Card
	errMsg        string
	activating    bool
	scratchCancel chan struct{} // non-nil while a reveal is pending

	listeners []TransitionListener
}

func NewCardService(history *store.HistoryStore, v verifier.ActivationVerifier, scratchDelay time.Duration) *CardService {
	return &CardService{
		history:  history,
		verifier: v,
		delay:    scratchDelay,
		card:     models.NewCard(),
	}
}

// AddListener registers a listener for committed transitions. Listeners
// are invoked outside the service lock.
func (s *CardService) AddListener(l TransitionListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Scratch runs the reveal suspension and, on natural completion, commits
// a new scratched card carrying a fresh unique code. Scratching is legal
// from any state, an activated card gets a brand new code. If the attempt
// is cancelled before the delay elapses the card is left untouched and a
// single cancelled entry is recorded instead. The returned entry is the
// outcome of the attempt.
func (s *CardService) Scratch(ctx context.Context) (models.HistoryEntry, error) {
	s.mu.Lock()
	if s.scratchCancel != nil {
		s.mu.Unlock()
		return models.HistoryEntry{}, ErrScratchPending
	}
	if s.activating {
		s.mu.Unlock()
		return models.HistoryEntry{}, ErrActivatePending
	}
	cancel := make(chan struct{})
	s.scratchCancel = cancel
	s.mu.Unlock()

	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-cancel:
		return s.recordCancelled(), nil

	case <-ctx.Done():
		// caller went away mid reveal, treat it like a cancelled attempt
		s.mu.Lock()
		if s.scratchCancel == cancel {
			s.scratchCancel = nil
		}
		s.mu.Unlock()
		return s.recordCancelled(), nil

	case <-timer.C:
		s.mu.Lock()
		select {
		case <-cancel:
			// cancellation was requested before we got here, it wins
			s.mu.Unlock()
			return s.recordCancelled(), nil
		default:
		}
		s.scratchCancel = nil

		now := time.Now()
		card := models.Card{
			Code:      uuid.New().String(),
			State:     models.StateScratched,
			Timestamp: now,
		}
		s.card = card
		entry := models.HistoryEntry{Code: card.Code, State: models.StateScratched, Timestamp: now}
		s.history.Append(entry)
		s.mu.Unlock()

		log.Infof("card scratched, code %s", card.Code)
		s.notify(card, entry)
		return entry, nil
	}
}

// CancelScratch cancels a pending reveal. It reports whether a pending
// attempt was actually cancelled; once a scratch has naturally resolved
// cancellation is a no-op.
func (s *CardService) CancelScratch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scratchCancel == nil {
		return false
	}
	close(s.scratchCancel)
	s.scratchCancel = nil
	return true
}

// recordCancelled appends the single cancelled entry for an aborted
// scratch attempt. The current card keeps its prior state.
func (s *CardService) recordCancelled() models.HistoryEntry {
	entry := models.HistoryEntry{State: models.StateCancelled, Timestamp: time.Now()}
	s.history.Append(entry)

	s.mu.Lock()
	card := s.card
	s.mu.Unlock()

	log.Info("scratch attempt cancelled")
	s.notify(card, entry)
	return entry
}

// Activate verifies the current code against the remote endpoint and, on
// success, commits the activated card. Verification failures of any kind
// leave the card and history untouched and surface a user facing message
// instead. Only one verification may be outstanding at a time.
func (s *CardService) Activate(ctx context.Context) (models.Card, error) {
	s.mu.Lock()
	if s.card.Code == "" {
		s.mu.Unlock()
		return models.Card{}, ErrMissingCode
	}
	if s.activating {
		s.mu.Unlock()
		return models.Card{}, ErrActivatePending
	}
	if s.scratchCancel != nil {
		s.mu.Unlock()
		return models.Card{}, ErrScratchPending
	}
	s.activating = true
	code := s.card.Code
	s.mu.Unlock()

	value, err := s.verifier.Verify(ctx, code)

	s.mu.Lock()
	s.activating = false

	if ctx.Err() != nil {
		// the caller is gone, discard whatever the verifier returned
		s.mu.Unlock()
		log.Warnf("activation result for code %s discarded: %v", code, ctx.Err())
		return models.Card{}, ctx.Err()
	}

	if err != nil {
		s.errMsg = msgVerifyFailed
		s.mu.Unlock()
		log.Errorf("verification failed for code %s: %v", code, err)
		return models.Card{}, err
	}

	if value <= ActivationThreshold {
		s.errMsg = msgNotEligible
		s.mu.Unlock()
		log.Infof("code %s rejected, version %d below threshold", code, value)
		return models.Card{}, fmt.Errorf("%w: version %d", ErrThresholdNotMet, value)
	}

	now := time.Now()
	card := models.Card{Code: code, State: models.StateActivated, Timestamp: now}
	s.card = card
	s.errMsg = ""
	entry := models.HistoryEntry{Code: code, State: models.StateActivated, Timestamp: now}
	s.history.Append(entry)
	s.mu.Unlock()

	log.Infof("card activated, code %s version %d", code, value)
	s.notify(card, entry)
	return card, nil
}

// ClearError dismisses the surfaced failure message. Calling it with no
// message present is a no-op.
func (s *CardService) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
}

func (s *CardService) Card() models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.card
}

func (s *CardService) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Status returns the current card, whether a verification is in flight
// and the surfaced error message, read under one lock.
func (s *CardService) Status() (models.Card, bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.card, s.activating, s.errMsg
}

func (s *CardService) History() []models.HistoryEntry {
	return s.history.Entries()
}

func (s *CardService) notify(card models.Card, entry models.HistoryEntry) {
	s.mu.Lock()
	listeners := append([]TransitionListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(card, entry)
	}
}
