package signer

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"wallet-txcore/pkg/wallet/types"
)

// State is the sub-state of a signing attempt.
type State string

const (
	StateCreated   State = "created"
	StateAwaiting  State = "awaiting"
	StateCompleted State = "completed"
	StateRejected  State = "rejected"
)

// Session correlates one signing attempt with the backend serving it. It only
// lives for the duration of the attempt.
type Session struct {
	ID        string
	Mode      Mode
	Chain     string
	Address   string
	CreatedAt time.Time

	mu       sync.Mutex
	state    State
	envelope *types.SigningEnvelope

	scans      chan scan
	cancelled  chan struct{}
	cancelOnce sync.Once
}

// scan is a signature returned by an air-gapped signer.
type scan struct {
	signature []byte
	digest    string
}

// SessionInfo is the public view of a live session.
type SessionInfo struct {
	ID        string                 `json:"id"`
	Mode      Mode                   `json:"mode"`
	Chain     string                 `json:"chain"`
	Address   string                 `json:"address"`
	State     State                  `json:"state"`
	CreatedAt time.Time              `json:"created_at"`
	Envelope  *types.SigningEnvelope `json:"envelope,omitempty"`
}

func newSession(id string, req Request) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		ID:        id,
		Mode:      req.Mode,
		Chain:     req.Chain,
		Address:   req.Address,
		CreatedAt: time.Now(),
		state:     StateCreated,
		scans:     make(chan scan, 1),
		cancelled: make(chan struct{}),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Envelope returns the payload shown to an air-gapped signer, if any.
func (s *Session) Envelope() (types.SigningEnvelope, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.envelope == nil {
		return types.SigningEnvelope{}, false
	}
	return *s.envelope, true
}

func (s *Session) setEnvelope(env types.SigningEnvelope) {
	s.mu.Lock()
	s.envelope = &env
	s.mu.Unlock()
}

// Info snapshots the session.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := SessionInfo{
		ID:        s.ID,
		Mode:      s.Mode,
		Chain:     s.Chain,
		Address:   s.Address,
		State:     s.state,
		CreatedAt: s.CreatedAt,
	}
	if s.envelope != nil {
		env := *s.envelope
		info.Envelope = &env
	}
	return info
}

// Done is closed when the session is cancelled.
func (s *Session) Done() <-chan struct{} { return s.cancelled }

func (s *Session) cancel() {
	s.cancelOnce.Do(func() { close(s.cancelled) })
}

// deliver hands a scanned signature to the waiting backend. Only the first
// scan is accepted.
func (s *Session) deliver(sc scan) bool {
	select {
	case s.scans <- sc:
		return true
	default:
		return false
	}
}
