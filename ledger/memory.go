// Package ledger provides an embedded transactional key/value ledger with the
// same state and event surface as a chaincode stub.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("badgeregistry.ledger")

// ErrReadOnly is returned by writes attempted inside View.
var ErrReadOnly = errors.New("write attempted in read-only transaction")

// Event is a committed notification.
type Event struct {
	Seq     uint64
	TxID    string
	Name    string
	Payload []byte
}

// Memory is an in-process ledger. Update calls are serialized and commit
// atomically; View calls run concurrently against committed state.
type Memory struct {
	mu     sync.RWMutex
	state  map[string][]byte
	events []Event
	txSeq  uint64
}

// NewMemory returns an empty ledger.
func NewMemory() *Memory {
	return &Memory{state: make(map[string][]byte)}
}

// Update runs fn in an exclusive transaction. Writes and the event are applied
// only if fn returns nil.
func (m *Memory) Update(fn func(tx *Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txSeq++
	tx := &Tx{
		id:     fmt.Sprintf("tx-%d", m.txSeq),
		m:      m,
		writes: make(map[string][]byte),
	}
	if err := fn(tx); err != nil {
		logger.Debugf("Transaction %s rolled back: %v", tx.id, err)
		return err
	}

	for k, v := range tx.writes {
		m.state[k] = v
	}
	if tx.event != nil {
		tx.event.Seq = uint64(len(m.events)) + 1
		m.events = append(m.events, *tx.event)
	}
	logger.Debugf("Transaction %s committed %d writes", tx.id, len(tx.writes))
	return nil
}

// View runs fn in a read-only transaction.
func (m *Memory) View(fn func(tx *Tx) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&Tx{id: "view", m: m, readOnly: true})
}

// Events returns every committed event in commit order.
func (m *Memory) Events() []Event {
	return m.EventsSince(0)
}

// EventsSince returns committed events after the first offset ones.
func (m *Memory) EventsSince(offset int) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if offset < 0 {
		offset = 0
	}
	if offset >= len(m.events) {
		return []Event{}
	}
	out := make([]Event, len(m.events)-offset)
	copy(out, m.events[offset:])
	return out
}

// Tx is a single transaction against a Memory ledger.
type Tx struct {
	id       string
	m        *Memory
	writes   map[string][]byte
	event    *Event
	readOnly bool
}

// ID returns the transaction identifier.
func (tx *Tx) ID() string {
	return tx.id
}

// GetState returns the value of key as seen by this transaction, or nil.
func (tx *Tx) GetState(key string) ([]byte, error) {
	if v, ok := tx.writes[key]; ok {
		return cloneBytes(v), nil
	}
	if v, ok := tx.m.state[key]; ok {
		return cloneBytes(v), nil
	}
	return nil, nil
}

// PutState buffers a write until commit.
func (tx *Tx) PutState(key string, value []byte) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	if key == "" {
		return errors.New("key must not be an empty string")
	}
	tx.writes[key] = cloneBytes(value)
	return nil
}

// CreateCompositeKey uses the chaincode shim key encoding.
func (tx *Tx) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	return shim.CreateCompositeKey(objectType, attributes)
}

// SetEvent records the transaction's event. As on a peer, only the last
// event set in a transaction is kept.
func (tx *Tx) SetEvent(name string, payload []byte) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	if name == "" {
		return errors.New("event name can not be empty string")
	}
	tx.event = &Event{TxID: tx.id, Name: name, Payload: cloneBytes(payload)}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
