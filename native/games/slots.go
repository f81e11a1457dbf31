package games

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Symbol is a slot reel face.
type Symbol uint8

const (
	Cherry Symbol = iota
	Lemon
	Orange
	Bar
	Seven
)

var symbolNames = [...]string{"cherry", "lemon", "orange", "bar", "seven"}

func (s Symbol) String() string {
	if int(s) < len(symbolNames) {
		return symbolNames[s]
	}
	return fmt.Sprintf("symbol(%d)", uint8(s))
}

func (s Symbol) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// reelFieldBits is the width of the draw slice each reel reads. Three fields
// fit in 64 bits and the modulo bias over 2^21 values is negligible.
const reelFieldBits = 21

const pairMultiplier = 1

var errBadReels = errors.New("slots: reel table invalid")

// ReelEntry is one row of the weighted reel table.
type ReelEntry struct {
	Symbol     Symbol
	Weight     uint64
	Multiplier uint64
}

// DefaultReels is the stock table: rarer symbols pay more.
func DefaultReels() []ReelEntry {
	return []ReelEntry{
		{Symbol: Cherry, Weight: 40, Multiplier: 2},
		{Symbol: Lemon, Weight: 25, Multiplier: 3},
		{Symbol: Orange, Weight: 20, Multiplier: 5},
		{Symbol: Bar, Weight: 12, Multiplier: 10},
		{Symbol: Seven, Weight: 3, Multiplier: 50},
	}
}

// SlotsGame spins three independent weighted reels.
type SlotsGame struct {
	reels       []ReelEntry
	totalWeight uint64
	maxMult     uint64
}

// NewSlots validates that weights strictly decrease while multipliers
// strictly increase down the table.
func NewSlots(reels []ReelEntry) (*SlotsGame, error) {
	if len(reels) == 0 {
		return nil, errBadReels
	}
	g := &SlotsGame{reels: append([]ReelEntry(nil), reels...)}
	for i, entry := range reels {
		if entry.Weight == 0 {
			return nil, fmt.Errorf("%w: zero weight for %s", errBadReels, entry.Symbol)
		}
		if i > 0 {
			prev := reels[i-1]
			if entry.Weight >= prev.Weight || entry.Multiplier <= prev.Multiplier {
				return nil, fmt.Errorf("%w: %s must be rarer and pay more than %s", errBadReels, entry.Symbol, prev.Symbol)
			}
		}
		g.totalWeight += entry.Weight
		if entry.Multiplier > g.maxMult {
			g.maxMult = entry.Multiplier
		}
	}
	return g, nil
}

// Reels returns a copy of the weight table.
func (g *SlotsGame) Reels() []ReelEntry { return append([]ReelEntry(nil), g.reels...) }

func (*SlotsGame) Name() string { return Slots }

func (*SlotsGame) Validate(Params) error { return nil }

// symbolAt maps a value in [0, totalWeight) onto the weighted table.
func (g *SlotsGame) symbolAt(v uint64) Symbol {
	for _, entry := range g.reels {
		if v < entry.Weight {
			return entry.Symbol
		}
		v -= entry.Weight
	}
	return g.reels[len(g.reels)-1].Symbol
}

func (g *SlotsGame) Resolve(draw uint64, _ Params) Outcome {
	var out Outcome
	for i := range out.Reels {
		field := (draw >> (uint(i) * reelFieldBits)) & (1<<reelFieldBits - 1)
		out.Reels[i] = g.symbolAt(field % g.totalWeight)
	}
	return out
}

func (g *SlotsGame) multiplier(s Symbol) uint64 {
	for _, entry := range g.reels {
		if entry.Symbol == s {
			return entry.Multiplier
		}
	}
	return 0
}

func (g *SlotsGame) Payout(stake uint64, o Outcome, _ Params) (Result, error) {
	a, b, c := o.Reels[0], o.Reels[1], o.Reels[2]
	var mult uint64
	switch {
	case a == b && b == c:
		mult = g.multiplier(a)
	case a == b || b == c || a == c:
		mult = pairMultiplier
	default:
		return Result{}, nil
	}
	payout, err := Multiply(stake, mult)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Win:           true,
		Payout:        payout,
		MultiplierBps: mult * BpsDenominator,
		JackpotHit:    a == Seven && b == Seven && c == Seven,
	}, nil
}

func (g *SlotsGame) MaxPayout(stake uint64, _ Params) (uint64, error) {
	return Multiply(stake, g.maxMult)
}
