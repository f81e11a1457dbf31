package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"lukechampine.com/blake3"
)

// Source produces the raw draw a game resolves its outcome from.
type Source interface {
	Draw(in Input) (uint64, error)
}

// Weak folds the public wager inputs. Anyone who can predict the slot and
// timestamp can predict the draw, so it is only safe where the player cannot
// choose when a wager lands.
type Weak struct{}

// Draw implements Source.
func (Weak) Draw(in Input) (uint64, error) { return Generate(in), nil }

// Secure ignores the inputs and reads the operating system CSPRNG.
type Secure struct {
	Reader io.Reader
}

// Draw implements Source.
func (s Secure) Draw(Input) (uint64, error) {
	reader := s.Reader
	if reader == nil {
		reader = rand.Reader
	}
	var buf [8]byte
	if _, err := io.ReadFull(reader, buf[:]); err != nil {
		return 0, fmt.Errorf("entropy: read: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// Reveal discloses a retired server seed so past draws can be audited.
type Reveal struct {
	Epoch      uint64
	Seed       [32]byte
	Commitment [32]byte
}

// CommitReveal keys a blake3 hash of the wager inputs with a server seed whose
// digest is published before any wager of the epoch is accepted. Rotating
// reveals the seed so players can recompute every draw with Replay.
type CommitReveal struct {
	mu         sync.Mutex
	reader     io.Reader
	epoch      uint64
	seed       [32]byte
	commitment [32]byte
}

// NewCommitReveal starts epoch 1 with a seed read from the CSPRNG.
func NewCommitReveal() (*CommitReveal, error) {
	return newCommitRevealFrom(rand.Reader)
}

// NewCommitRevealWithSeed starts epoch 1 with a caller supplied seed.
func NewCommitRevealWithSeed(seed [32]byte) *CommitReveal {
	c := &CommitReveal{reader: rand.Reader, epoch: 1}
	c.install(seed)
	return c
}

func newCommitRevealFrom(reader io.Reader) (*CommitReveal, error) {
	var seed [32]byte
	if _, err := io.ReadFull(reader, seed[:]); err != nil {
		return nil, fmt.Errorf("entropy: seed: %w", err)
	}
	c := &CommitReveal{reader: reader, epoch: 1}
	c.install(seed)
	return c, nil
}

func (c *CommitReveal) install(seed [32]byte) {
	c.seed = seed
	c.commitment = Commit(seed)
}

// Commitment returns the current epoch and the digest of its seed.
func (c *CommitReveal) Commitment() (uint64, [32]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch, c.commitment
}

// Draw implements Source.
func (c *CommitReveal) Draw(in Input) (uint64, error) {
	c.mu.Lock()
	seed := c.seed
	c.mu.Unlock()
	return Replay(seed, in), nil
}

// Rotate retires the current seed, installs a fresh one and returns the
// reveal for the retired epoch.
func (c *CommitReveal) Rotate() (Reveal, error) {
	var next [32]byte
	reader := c.reader
	if reader == nil {
		reader = rand.Reader
	}
	if _, err := io.ReadFull(reader, next[:]); err != nil {
		return Reveal{}, fmt.Errorf("entropy: seed: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := Reveal{Epoch: c.epoch, Seed: c.seed, Commitment: c.commitment}
	c.epoch++
	c.install(next)
	return out, nil
}

// Commit returns the published digest for a seed.
func Commit(seed [32]byte) [32]byte { return blake3.Sum256(seed[:]) }

// Verify checks a revealed seed against its commitment.
func Verify(seed [32]byte, commitment [32]byte) bool { return Commit(seed) == commitment }

// Replay recomputes the draw a commit-reveal source produced for in.
func Replay(seed [32]byte, in Input) uint64 {
	h := blake3.New(32, seed[:])
	_, _ = h.Write(in.Bytes())
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}

// Mode names a configured entropy source.
type Mode string

const (
	ModeWeak         Mode = "weak"
	ModeSecure       Mode = "secure"
	ModeCommitReveal Mode = "commit-reveal"
)

var errUnknownMode = errors.New("entropy: unknown source mode")

// ParseMode normalises a configured mode. Empty selects the weak source.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeWeak:
		return ModeWeak, nil
	case ModeSecure:
		return ModeSecure, nil
	case ModeCommitReveal:
		return ModeCommitReveal, nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownMode, raw)
	}
}

// NewSource builds the source for a mode.
func NewSource(mode Mode) (Source, error) {
	switch mode {
	case "", ModeWeak:
		return Weak{}, nil
	case ModeSecure:
		return Secure{}, nil
	case ModeCommitReveal:
		return NewCommitReveal()
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownMode, mode)
	}
}
