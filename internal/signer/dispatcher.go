// Package signer routes signing requests to the backend matching the
// account's signing mode and tracks each attempt as a session.
package signer

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/keyring"
	"wallet-txcore/pkg/errno"
	"wallet-txcore/pkg/logger"
	"wallet-txcore/pkg/monitor"
)

// Mode selects a signing backend.
type Mode string

const (
	ModePassword      Mode = "password"
	ModeLedger        Mode = "ledger"
	ModeLedgerGeneric Mode = "ledger_generic"
	ModeInjected      Mode = "injected"
	ModeQR            Mode = "qr"
)

// ModeForAccount picks the signing mode from account metadata.
func ModeForAccount(meta keyring.Meta) Mode {
	switch {
	case meta.IsQR:
		return ModeQR
	case meta.IsHardware && meta.IsGeneric:
		return ModeLedgerGeneric
	case meta.IsHardware:
		return ModeLedger
	case meta.IsInjected:
		return ModeInjected
	}
	return ModePassword
}

// Request is one signing attempt.
type Request struct {
	SessionID string
	Mode      Mode
	Chain     string
	Ledger    chain.LedgerModel
	Address   string

	// Payload is the extrinsic signing payload, or the message when Message is set.
	Payload []byte
	Message bool
	// Method overrides personal_sign for injected message signing.
	Method string

	EVMTx      *types.Transaction
	EVMChainID *big.Int

	AccountIndex  uint32
	AddressOffset uint32

	// Password unlocks a locked local pair for this attempt only.
	Password string
	// Display is UI metadata; it is never forwarded to a signer.
	Display map[string]string
}

// Result is what the broadcast step consumes. For account-based transactions
// SignedTx is set and Signature holds its binary encoding.
type Result struct {
	Signature []byte
	SignedTx  *types.Transaction
}

// Backend signs on behalf of one mode.
type Backend interface {
	Sign(ctx context.Context, s *Session, req Request) (Result, error)
}

// ErrUserRejected is returned by devices and signers when the user declines.
var ErrUserRejected = errors.New("rejected by user")

type Dispatcher struct {
	mu       sync.RWMutex
	backends map[Mode]Backend
	sessions map[string]*Session
	metrics  *monitor.TxMetrics
	log      *zap.Logger
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		backends: make(map[Mode]Backend),
		sessions: make(map[string]*Session),
		metrics:  monitor.Tx,
		log:      logger.Named("signer"),
	}
}

// WithMetrics swaps the metric set, mostly for tests.
func (d *Dispatcher) WithMetrics(m *monitor.TxMetrics) *Dispatcher {
	d.metrics = m
	return d
}

// Register binds a backend to mode, replacing any previous one.
func (d *Dispatcher) Register(mode Mode, b Backend) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.backends[mode] = b
}

// Sign runs one signing attempt. Every failure is a *errno.TxError of the
// signing category, except an unknown mode which is UNSUPPORTED.
func (d *Dispatcher) Sign(ctx context.Context, req Request) (Result, error) {
	d.mu.RLock()
	backend, ok := d.backends[req.Mode]
	d.mu.RUnlock()
	if !ok {
		return Result{}, errno.TxErrorf(errno.KindUnsupported, "Signing mode %q is not supported", req.Mode)
	}

	s := newSession(req.SessionID, req)
	d.mu.Lock()
	if _, dup := d.sessions[s.ID]; dup {
		d.mu.Unlock()
		return Result{}, errno.TxErrorf(errno.KindUnableToSign, "Signing session %s already exists", s.ID)
	}
	d.sessions[s.ID] = s
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.sessions, s.ID)
		d.mu.Unlock()
	}()

	start := time.Now()
	s.setState(StateAwaiting)
	res, err := backend.Sign(ctx, s, req)
	d.metrics.SigningDuration.WithLabelValues(string(req.Mode)).Observe(time.Since(start).Seconds())

	if err != nil {
		s.setState(StateRejected)
		txErr := signingError(err)
		d.log.Info("signing rejected",
			zap.String("session", s.ID),
			zap.String("mode", string(req.Mode)),
			zap.String("kind", txErr.Kind.String()),
			zap.String("reason", txErr.Message))
		return Result{}, txErr
	}
	s.setState(StateCompleted)
	d.log.Debug("signing completed", zap.String("session", s.ID), zap.String("mode", string(req.Mode)))
	return res, nil
}

func signingError(err error) *errno.TxError {
	if errors.Is(err, ErrUserRejected) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errno.NewTxError(errno.KindUserRejectRequest, "")
	}
	txErr := errno.Normalize(err, errno.KindUnableToSign)
	if txErr.Kind.Category() != errno.CategorySigning {
		return errno.NewTxError(errno.KindUnableToSign, txErr.Message)
	}
	return txErr
}

// Sessions lists live sessions, oldest first.
func (d *Dispatcher) Sessions() []SessionInfo {
	d.mu.RLock()
	out := make([]SessionInfo, 0, len(d.sessions))
	for _, s := range d.sessions {
		out = append(out, s.Info())
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Session returns a live session by id.
func (d *Dispatcher) Session(id string) (*Session, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.sessions[id]
	return s, ok
}

// Cancel rejects a pending session; its attempt ends with USER_REJECT_REQUEST.
func (d *Dispatcher) Cancel(id string) error {
	s, ok := d.Session(id)
	if !ok {
		return errno.ErrSessionNotFound
	}
	s.cancel()
	return nil
}

// Scan completes an air-gapped session with the scanned signature.
func (d *Dispatcher) Scan(id string, signature []byte, digest string) error {
	s, ok := d.Session(id)
	if !ok {
		return errno.ErrSessionNotFound
	}
	if s.Mode != ModeQR {
		return errno.TxErrorf(errno.KindInvalidParams, "Session %s does not accept scanned signatures", id)
	}
	if s.State() != StateAwaiting {
		return errno.TxErrorf(errno.KindInvalidParams, "Session %s is not awaiting a signature", id)
	}
	if !s.deliver(scan{signature: signature, digest: digest}) {
		return errno.TxErrorf(errno.KindInvalidParams, "Session %s already received a signature", id)
	}
	return nil
}
