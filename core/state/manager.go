package state

import (
	"errors"
	"fmt"
	"reflect"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"wagerchain/storage"
)

// Manager reads and writes ledger records on top of a key-value database.
// Inside Atomic every write is staged in an overlay and lands as a single
// batch. Manager is not safe for concurrent use; callers serialise access.
type Manager struct {
	db      storage.Database
	overlay map[string]overlayEntry
}

type overlayEntry struct {
	value   []byte
	deleted bool
}

// NewManager creates a state manager over db.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var (
	accountPrefix = []byte("acct/")
	housePrefix   = []byte("house/")
	referPrefix   = []byte("referrer/")
	roundPrefix   = []byte("round/")
	betPrefix     = []byte("bet/")
	quotaPrefix   = []byte("quota/")
	kvPrefix      = []byte("kv/")
)

// recordKey keeps the namespace readable for prefix iteration and hashes
// the identifying parts with keccak256.
func recordKey(namespace []byte, parts ...[]byte) []byte {
	digest := ethcrypto.Keccak256(parts...)
	buf := make([]byte, 0, len(namespace)+len(digest))
	buf = append(buf, namespace...)
	return append(buf, digest...)
}

func kvKey(key []byte) []byte {
	return recordKey(kvPrefix, key)
}

func (m *Manager) read(key []byte) ([]byte, error) {
	if m.overlay != nil {
		if entry, ok := m.overlay[string(key)]; ok {
			if entry.deleted {
				return nil, nil
			}
			return entry.value, nil
		}
	}
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

func (m *Manager) write(key, value []byte) error {
	if m.overlay != nil {
		m.overlay[string(key)] = overlayEntry{value: append([]byte(nil), value...)}
		return nil
	}
	return m.db.Put(key, value)
}

func (m *Manager) delete(key []byte) error {
	if m.overlay != nil {
		m.overlay[string(key)] = overlayEntry{deleted: true}
		return nil
	}
	return m.db.Delete(key)
}

func (m *Manager) getRLP(key []byte, out interface{}) (bool, error) {
	data, err := m.read(key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) putRLP(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.write(key, encoded)
}

// Atomic runs fn with all writes staged. The overlay is committed as one
// batch when fn succeeds and dropped otherwise. Nested calls join the
// outer scope.
func (m *Manager) Atomic(fn func() error) error {
	if fn == nil {
		return nil
	}
	if m.overlay != nil {
		return fn()
	}
	m.overlay = make(map[string]overlayEntry)
	defer func() { m.overlay = nil }()
	if err := fn(); err != nil {
		return err
	}
	if len(m.overlay) == 0 {
		return nil
	}
	batch := m.db.NewBatch()
	for key, entry := range m.overlay {
		if entry.deleted {
			batch.Delete([]byte(key))
			continue
		}
		batch.Put([]byte(key), entry.value)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	return nil
}

// InAtomic reports whether writes are currently staged.
func (m *Manager) InAtomic() bool { return m.overlay != nil }

// KVPut stores the provided value under the supplied key using RLP encoding.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.putRLP(kvKey(key), value)
}

// KVGet decodes the value stored under key into out. The boolean reports
// whether the key existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	return m.getRLP(kvKey(key), out)
}

// KVDelete removes key.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.delete(kvKey(key))
}

// KVGetList decodes an RLP list stored under key into the slice pointed to
// by out. Missing keys yield an empty slice.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	val := reflect.ValueOf(out)
	if val.Kind() != reflect.Ptr || val.IsNil() || val.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("kv: destination must be a non-nil slice pointer")
	}
	ok, err := m.KVGet(key, out)
	if err != nil {
		return err
	}
	if !ok {
		val.Elem().Set(reflect.MakeSlice(val.Elem().Type(), 0, 0))
	}
	return nil
}
