/*
Package memory is an in-process store for tasks, projects and outbox messages.

It keeps the transactional contract of the SQL store: a session stages changes, a
transaction works on a private copy of the data and commit swaps it in atomically.
Transactions are serialized, which stands in for row locks.
*/
package memory

import (
	"slices"
	"sync"

	"tasktrack/domain/project"
	"tasktrack/domain/shared"
	"tasktrack/domain/task"
	"tasktrack/infrastructure/outbox"
)

type dataset struct {
	tasks    map[string]task.ReconstructionDTO
	projects map[string]project.ReconstructionDTO
	outbox   []outbox.Message
	// outboxIndex maps message id to its position in outbox.
	outboxIndex map[string]int
}

func newDataset() *dataset {
	return &dataset{
		tasks:       make(map[string]task.ReconstructionDTO),
		projects:    make(map[string]project.ReconstructionDTO),
		outboxIndex: make(map[string]int),
	}
}

// clone copies the maps and the outbox slice. DTOs are replaced, never mutated in
// place, so their slices can be shared.
func (d *dataset) clone() *dataset {
	c := &dataset{
		tasks:       make(map[string]task.ReconstructionDTO, len(d.tasks)),
		projects:    make(map[string]project.ReconstructionDTO, len(d.projects)),
		outbox:      slices.Clone(d.outbox),
		outboxIndex: make(map[string]int, len(d.outboxIndex)),
	}
	for k, v := range d.tasks {
		c.tasks[k] = v
	}
	for k, v := range d.projects {
		c.projects[k] = v
	}
	for k, v := range d.outboxIndex {
		c.outboxIndex[k] = v
	}
	return c
}

func (d *dataset) appendMessage(m outbox.Message) bool {
	if _, ok := d.outboxIndex[m.ID]; ok {
		return false
	}
	d.outboxIndex[m.ID] = len(d.outbox)
	d.outbox = append(d.outbox, m)
	return true
}

// Store holds the committed data.
type Store struct {
	// txMu serializes writers: transactions and outbox relay updates.
	txMu sync.Mutex
	mu   sync.RWMutex
	data *dataset
}

func NewStore() *Store {
	return &Store{data: newDataset()}
}

// read runs fn against the committed data.
func (s *Store) read(fn func(d *dataset)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

// update runs fn against the committed data outside any transaction.
func (s *Store) update(fn func(d *dataset) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) snapshot() *dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.clone()
}

func (s *Store) swap(d *dataset) {
	s.mu.Lock()
	s.data = d
	s.mu.Unlock()
}

// NewSession starts an empty session over this store.
func (s *Store) NewSession() shared.Session {
	return newSession(s)
}

var _ shared.SessionFactory = (*Store)(nil)
