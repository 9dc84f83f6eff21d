package gormstore

import (
	"context"
	"database/sql"
	"errors"

	"tasktrack/domain/shared"
	"tasktrack/infrastructure/outbox"
	"tasktrack/infrastructure/persistence"
	"tasktrack/infrastructure/persistence/gormstore/po"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNoSession    = errors.New("gormstore: no unit of work session in context")
	ErrNotBegun     = errors.New("gormstore: transaction not begun")
	ErrAlreadyBegun = errors.New("gormstore: transaction already begun")
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
	// row must have; zero means insert.
	write func(tx *gorm.DB, expected int) error
}

// Session stages repository saves and writes them inside one database transaction.
type Session struct {
	db *gorm.DB
	tx *gorm.DB

	staged []*stagedAggregate
	index  map[shared.IdentityKey]int

	messages        []outbox.Message
	messageIDs      map[string]struct{}
	flushedMessages int

	// written holds the version each aggregate was last written at in this transaction.
	written map[shared.IdentityKey]int
}

func newSession(db *gorm.DB) *Session {
	return &Session{
		db:         db,
		index:      make(map[shared.IdentityKey]int),
		messageIDs: make(map[string]struct{}),
	}
}

// SessionFactory opens sessions on one database.
type SessionFactory struct {
	db *gorm.DB
}

func NewSessionFactory(db *gorm.DB) *SessionFactory {
	return &SessionFactory{db: db}
}

func (f *SessionFactory) NewSession() shared.Session {
	return newSession(f.db)
}

var _ shared.SessionFactory = (*SessionFactory)(nil)

func (s *Session) Begin(ctx context.Context) error {
	if s.tx != nil {
		return ErrAlreadyBegun
	}
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return shared.NewTransactionError("begin", tx.Error)
	}
	s.tx = tx
	s.written = make(map[shared.IdentityKey]int)
	return nil
}

// SaveChanges writes every staged aggregate whose version moved since it was loaded
// or last written, then inserts outbox messages recorded since the previous call.
func (s *Session) SaveChanges(ctx context.Context) (bool, error) {
	if s.tx == nil {
		return false, ErrNotBegun
	}
	tx := s.tx.WithContext(ctx)

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
		if err := st.write(tx, expected); err != nil {
			return changed, err
		}
		s.written[key] = st.agg.Version()
		changed = true
	}

	pending := s.messages[s.flushedMessages:]
	if len(pending) > 0 {
		rows := make([]*po.OutboxMessagePO, len(pending))
		for i, m := range pending {
			rows[i] = po.FromOutboxMessage(m)
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return changed, err
		}
		s.flushedMessages = len(s.messages)
		changed = true
	}
	return changed, nil
}

func (s *Session) Commit(ctx context.Context) error {
	if s.tx == nil {
		return shared.NewTransactionError("commit", ErrNotBegun)
	}
	err := s.tx.Commit().Error
	s.end()
	if err != nil {
		return shared.NewTransactionError("commit", err)
	}
	s.staged = nil
	s.index = make(map[shared.IdentityKey]int)
	s.messages = nil
	s.messageIDs = make(map[string]struct{})
	return nil
}

// Rollback aborts the transaction. Staged aggregates stay staged; recorded messages
// are dropped because dispatch records them again.
func (s *Session) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback().Error
	s.end()
	s.messages = nil
	s.messageIDs = make(map[string]struct{})
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return shared.NewTransactionError("rollback", err)
	}
	return nil
}

func (s *Session) end() {
	s.tx = nil
	s.written = nil
	s.flushedMessages = 0
}

func (s *Session) stage(agg versioned, write func(tx *gorm.DB, expected int) error) {
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

// sessionFor returns the session bound to ctx.
func sessionFor(ctx context.Context) (*Session, error) {
	sess, ok := persistence.SessionAs[*Session](ctx)
	if !ok {
		return nil, ErrNoSession
	}
	return sess, nil
}

// getDB returns the running transaction when ctx carries a begun session, otherwise
// the default db.
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if sess, err := sessionFor(ctx); err == nil && sess.tx != nil {
		return sess.tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
