package clock

import (
	"sync"
	"time"
)

// Source supplies the trusted time and sequence every wager is stamped with.
// Slot must never decrease.
type Source interface {
	Slot() uint64
	Unix() int64
}

// DefaultSlotDuration matches a 400ms block cadence.
const DefaultSlotDuration = 400 * time.Millisecond

// Genesis is the default slot origin.
var Genesis = time.Unix(1_700_000_000, 0).UTC()

// System derives slots from wall time elapsed since Genesis. Slot numbers
// are clamped so a wall clock stepping backwards never reissues one.
type System struct {
	Genesis      time.Time
	SlotDuration time.Duration
	NowFn        func() time.Time

	mu   sync.Mutex
	last uint64
}

// NewSystem starts a slot counter at genesis.
func NewSystem(genesis time.Time, slot time.Duration) *System {
	if slot <= 0 {
		slot = DefaultSlotDuration
	}
	return &System{Genesis: genesis, SlotDuration: slot, NowFn: time.Now}
}

func (s *System) now() time.Time {
	if s.NowFn == nil {
		return time.Now()
	}
	return s.NowFn()
}

// Slot returns the current slot number.
func (s *System) Slot() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := s.now().Sub(s.Genesis)
	var slot uint64
	if elapsed > 0 && s.SlotDuration > 0 {
		slot = uint64(elapsed / s.SlotDuration)
	}
	if slot < s.last {
		slot = s.last
	}
	s.last = slot
	return slot
}

// Unix returns wall time in seconds.
func (s *System) Unix() int64 { return s.now().Unix() }

// Manual is a hand-driven clock for tests and replays.
type Manual struct {
	mu   sync.Mutex
	slot uint64
	unix int64
}

func NewManual(slot uint64, unix int64) *Manual {
	return &Manual{slot: slot, unix: unix}
}

func (m *Manual) Slot() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slot
}

func (m *Manual) Unix() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unix
}

// Advance moves the clock forward by slots and seconds.
func (m *Manual) Advance(slots uint64, seconds int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slot += slots
	if seconds > 0 {
		m.unix += seconds
	}
}
