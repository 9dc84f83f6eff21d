package memory

import (
	"context"
	"errors"

	"tasktrack/domain/shared"
	"tasktrack/infrastructure/outbox"
	"tasktrack/infrastructure/persistence"
)

var (
	ErrNoSession      = errors.New("memory: no unit of work session in context")
	ErrNotBegun       = errors.New("memory: transaction not begun")
	ErrAlreadyBegun   = errors.New("memory: transaction already begun")
	ErrForeignSession = errors.New("memory: session belongs to another store")
)

// versioned is what the session needs from an aggregate to write it optimistically.
type versioned interface {
	shared.EventSource
	Version() int
	PersistedVersion() int
}

type stagedAggregate struct {
	agg versioned
	// write stores the aggregate's current state. expected is the version the stored
	// row must have; zero means the row must not exist yet.
	write func(d *dataset, expected int) error
}

// Session stages aggregate saves and outbox messages and writes them inside a
// transaction on a private copy of the store's data.
type Session struct {
	store *Store

	staged []*stagedAggregate
	index  map[shared.IdentityKey]int

	messages        []outbox.Message
	messageIDs      map[string]struct{}
	flushedMessages int

	working *dataset
	// written holds the version each aggregate was last written at in this transaction.
	written map[shared.IdentityKey]int
}

func newSession(store *Store) *Session {
	return &Session{
		store:      store,
		index:      make(map[shared.IdentityKey]int),
		messageIDs: make(map[string]struct{}),
	}
}

func (s *Session) Begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.working != nil {
		return ErrAlreadyBegun
	}
	s.store.txMu.Lock()
	s.working = s.store.snapshot()
	s.written = make(map[shared.IdentityKey]int)
	return nil
}

// SaveChanges writes every staged aggregate whose version moved since it was loaded
// or last written, then appends outbox messages recorded since the previous call.
func (s *Session) SaveChanges(ctx context.Context) (bool, error) {
	if s.working == nil {
		return false, ErrNotBegun
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	changed := false
	for _, st := range s.staged {
		key := shared.KeyOf(st.agg)
		expected, ok := s.written[key]
		if !ok {
			expected = st.agg.PersistedVersion()
		}
		if st.agg.Version() == expected {
			continue
		}
		if err := st.write(s.working, expected); err != nil {
			return changed, err
		}
		s.written[key] = st.agg.Version()
		changed = true
	}

	for _, m := range s.messages[s.flushedMessages:] {
		if s.working.appendMessage(m) {
			changed = true
		}
	}
	s.flushedMessages = len(s.messages)
	return changed, nil
}

func (s *Session) Commit(ctx context.Context) error {
	if s.working == nil {
		return shared.NewTransactionError("commit", ErrNotBegun)
	}
	s.store.swap(s.working)
	s.staged = nil
	s.index = make(map[shared.IdentityKey]int)
	s.messages = nil
	s.messageIDs = make(map[string]struct{})
	s.end()
	return nil
}

// Rollback discards the transaction. Staged aggregates stay staged so the same
// unit of work can save again; recorded messages are dropped because dispatch
// records them again.
func (s *Session) Rollback(ctx context.Context) error {
	if s.working == nil {
		return nil
	}
	s.messages = nil
	s.messageIDs = make(map[string]struct{})
	s.end()
	return nil
}

func (s *Session) end() {
	s.working = nil
	s.written = nil
	s.flushedMessages = 0
	s.store.txMu.Unlock()
}

func (s *Session) stage(agg versioned, write func(d *dataset, expected int) error) {
	key := shared.KeyOf(agg)
	if i, ok := s.index[key]; ok {
		s.staged[i] = &stagedAggregate{agg: agg, write: write}
		return
	}
	s.index[key] = len(s.staged)
	s.staged = append(s.staged, &stagedAggregate{agg: agg, write: write})
}

func (s *Session) record(m outbox.Message) {
	if _, ok := s.messageIDs[m.ID]; ok {
		return
	}
	s.messageIDs[m.ID] = struct{}{}
	s.messages = append(s.messages, m)
}

var _ shared.Session = (*Session)(nil)

// sessionFor returns the session of this store bound to ctx.
func (s *Store) sessionFor(ctx context.Context) (*Session, error) {
	sess, ok := persistence.SessionAs[*Session](ctx)
	if !ok {
		return nil, ErrNoSession
	}
	if sess.store != s {
		return nil, ErrForeignSession
	}
	return sess, nil
}

// view runs fn against the running transaction's data when ctx carries a begun
// session of this store, otherwise against the committed data.
func (s *Store) view(ctx context.Context, fn func(d *dataset)) {
	if sess, err := s.sessionFor(ctx); err == nil && sess.working != nil {
		fn(sess.working)
		return
	}
	s.read(fn)
}
