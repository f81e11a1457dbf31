package entropy

import "encoding/binary"

const (
	// OffsetBasis is the 64-bit FNV offset basis the fold starts from.
	OffsetBasis uint64 = 14695981039346656037
	// Prime is the 64-bit FNV prime.
	Prime uint64 = 1099511628211
)

// Input carries everything a draw is derived from. Actor is the wagering
// identity, Sequence the host's monotonic slot and Timestamp the host clock.
// Nonce is a per-house counter so two wagers in the same slot still differ.
type Input struct {
	Actor     [20]byte
	Sequence  uint64
	Timestamp int64
	Nonce     uint64
	HasNonce  bool
}

// WithNonce returns a copy of the input bound to nonce.
func (in Input) WithNonce(nonce uint64) Input {
	in.Nonce = nonce
	in.HasNonce = true
	return in
}

// Bytes serialises the input in fold order: actor, sequence, timestamp and
// the optional nonce, integers little-endian.
func (in Input) Bytes() []byte {
	size := len(in.Actor) + 16
	if in.HasNonce {
		size += 8
	}
	buf := make([]byte, size)
	copy(buf, in.Actor[:])
	offset := len(in.Actor)
	binary.LittleEndian.PutUint64(buf[offset:], in.Sequence)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:], uint64(in.Timestamp))
	offset += 8
	if in.HasNonce {
		binary.LittleEndian.PutUint64(buf[offset:], in.Nonce)
	}
	return buf
}

// Fold runs the multiply-then-xor FNV fold over every part in order. All
// arithmetic wraps.
func Fold(parts ...[]byte) uint64 {
	hash := OffsetBasis
	for _, part := range parts {
		for _, b := range part {
			hash *= Prime
			hash ^= uint64(b)
		}
	}
	return hash
}

// Generate derives the outcome integer for an input. Identical inputs always
// produce identical outputs.
func Generate(in Input) uint64 {
	return Fold(in.Bytes())
}

// Percent reduces a draw onto 0..99.
func Percent(v uint64) uint64 { return v % 100 }

// Modulo reduces a draw onto 0..n-1. n must be positive.
func Modulo(v uint64, n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return v % n
}

// Field extracts the index-th bit field of width bits from v. Fields do not
// overlap, so a single draw can feed several independent reductions.
func Field(v uint64, index uint, bits uint) uint64 {
	if bits == 0 || bits >= 64 {
		return v
	}
	return (v >> (index * bits)) & (1<<bits - 1)
}
