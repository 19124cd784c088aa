package transaction

import (
	"sort"
	"sync"
	"time"

	"wallet-txcore/pkg/address"
	"wallet-txcore/pkg/errno"
)

// Store is the transaction registry. It is the only mutable state the
// manager shares between concurrent transactions.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
	subs    map[int]chan []Record
	nextSub int
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		records: make(map[string]*Record),
		subs:    make(map[int]chan []Record),
		now:     time.Now,
	}
}

// Insert registers rec. The duplicate check and the insert happen under one
// lock, so two concurrent inserts for the same account and chain cannot both
// succeed.
func (s *Store) Insert(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return errno.TxErrorf(errno.KindInternalError, "Transaction %s already exists", rec.ID)
	}
	if s.inFlightLocked(rec.Chain, rec.Address) {
		return errno.NewTxError(errno.KindDuplicateTransaction, "")
	}

	now := s.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	c := rec.clone()
	s.records[rec.ID] = &c
	s.publishLocked()
	return nil
}

// InFlight reports whether addr already has a pending or processing
// transaction on chain. The answer may be stale by the time it is used; only
// Insert decides.
func (s *Store) InFlight(chain, addr string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlightLocked(chain, addr)
}

func (s *Store) inFlightLocked(chain, addr string) bool {
	for _, r := range s.records {
		if r.Status.InFlight() && r.Chain == chain && address.Equal(r.Address, addr) {
			return true
		}
	}
	return false
}

// Update applies fn to a copy of the record and stores it if the status
// change is allowed. The id and creation time cannot be changed.
func (s *Store) Update(id string, fn func(*Record)) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[id]
	if !ok {
		return Record{}, errno.ErrTransactionNotFound
	}
	next := cur.clone()
	fn(&next)
	if !CanTransition(cur.Status, next.Status) {
		return cur.clone(), errno.TxErrorf(errno.KindInternalError,
			"Transaction %s cannot move from %s to %s", id, cur.Status, next.Status)
	}
	next.ID = cur.ID
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = s.now()
	s.records[id] = &next
	s.publishLocked()
	return next.clone(), nil
}

// Remove drops the record. It reports false when id is unknown.
func (s *Store) Remove(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	delete(s.records, id)
	s.publishLocked()
	return cur.clone(), true
}

func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return r.clone(), true
}

// Snapshot returns copies of all records, oldest first.
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Counts returns the number of records per status.
func (s *Store) Counts() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[Status]int{StatusPending: 0, StatusProcessing: 0, StatusSuccess: 0, StatusFail: 0}
	for _, r := range s.records {
		out[r.Status]++
	}
	return out
}

// Subscribe returns a channel carrying the latest snapshot after every
// change, starting with the current one. A slow reader skips intermediate
// snapshots. Call cancel to stop receiving.
func (s *Store) Subscribe() (<-chan []Record, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan []Record, 1)
	ch <- s.snapshotLocked()
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) snapshotLocked() []Record {
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// publishLocked replaces whatever snapshot a subscriber has not read yet.
func (s *Store) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- append([]Record(nil), snap...):
		default:
		}
	}
}
