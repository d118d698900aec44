package analysis

import (
	"context"
	"errors"
	"sync"

	"github.com/tuannvm/impactlens/internal/api"
	log "github.com/tuannvm/impactlens/internal/logging"
	"github.com/tuannvm/impactlens/internal/models"
)

// Phase is where the store is in its request lifecycle.
type Phase int

const (
	Idle Phase = iota
	Loading
	Success
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Failed:
		return "error"
	default:
		return "unknown"
	}
}

// Analyzer runs one analysis. *api.Client satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResponse, error)
}

// State is a copy of the store's contents at one point in time.
type State struct {
	Phase      Phase
	TicketID   string
	Result     *models.AnalysisResponse
	Err        string
	Generation uint64
}

// Loading reports whether a request is in flight.
func (s State) Loading() bool { return s.Phase == Loading }

// Store holds the outcome of the most recent analysis. Each Begin starts a new
// generation and cancels the one before it; outcomes of older generations are
// dropped.
type Store struct {
	analyzer Analyzer

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

func NewStore(analyzer Analyzer) *Store {
	return &Store{analyzer: analyzer}
}

// Submit runs req to completion and returns the resulting state. The error is
// the analyzer's own, so callers can still test for api.ErrUnauthorized.
func (s *Store) Submit(ctx context.Context, req models.AnalysisRequest) (State, error) {
	reqCtx, gen := s.Begin(ctx, req.TicketID)
	resp, err := s.analyzer.Analyze(reqCtx, req)
	s.Resolve(gen, resp, err)
	return s.Snapshot(), err
}

// Begin moves the store to loading, clears the previous result and error,
// and cancels whatever request was in flight. The returned context must be
// used for the new request.
func (s *Store) Begin(ctx context.Context, ticketID string) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = State{
		Phase:      Loading,
		TicketID:   ticketID,
		Generation: s.state.Generation + 1,
	}
	log.Debugf("Analysis %d started for %s", s.state.Generation, ticketID)
	return reqCtx, s.state.Generation
}

// Resolve applies the outcome of generation gen. It returns false and changes
// nothing when a newer request has started since.
func (s *Store) Resolve(gen uint64, resp *models.AnalysisResponse, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.state.Generation || s.state.Phase != Loading {
		log.Debugf("Dropping stale analysis result (generation %d, current %d)", gen, s.state.Generation)
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	switch {
	case err == nil:
		s.state.Phase = Success
		s.state.Result = resp
		s.state.Err = ""
	case errors.Is(err, api.ErrUnauthorized):
		// The navigator already moved the user to the login screen.
		s.state.Phase = Idle
		s.state.Result = nil
		s.state.Err = ""
	default:
		s.state.Phase = Failed
		s.state.Result = nil
		s.state.Err = api.ErrorMessage(err)
		log.Warnf("Analysis of %s failed: %v", s.state.TicketID, err)
	}
	return true
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reset cancels any in-flight request and returns to idle.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = State{Phase: Idle, Generation: s.state.Generation + 1}
}
