package games

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Pockets on a single-zero wheel.
const Pockets = 37

// BetKind names a roulette wager type.
type BetKind uint8

const (
	BetNumber BetKind = iota + 1
	BetRed
	BetBlack
	BetGreen
	BetEven
	BetOdd
	BetLow
	BetHigh
	BetDozen
	BetColumn
)

var betKindNames = map[BetKind]string{
	BetNumber: "number",
	BetRed:    "red",
	BetBlack:  "black",
	BetGreen:  "green",
	BetEven:   "even",
	BetOdd:    "odd",
	BetLow:    "low",
	BetHigh:   "high",
	BetDozen:  "dozen",
	BetColumn: "column",
}

func (k BetKind) String() string { return betKindNames[k] }

func (k BetKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (k *BetKind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		*k = 0
		return nil
	}
	for kind, name := range betKindNames {
		if name == raw {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("%w: kind %q", ErrInvalidBet, raw)
}

// RouletteBet is a bet kind plus its selector: the number for BetNumber and
// the zero-based index for BetDozen and BetColumn.
type RouletteBet struct {
	Kind  BetKind `json:"kind,omitempty"`
	Value uint8   `json:"value,omitempty"`
}

var redPockets = map[uint64]struct{}{
	1: {}, 3: {}, 5: {}, 7: {}, 9: {}, 12: {}, 14: {}, 16: {}, 18: {},
	19: {}, 21: {}, 23: {}, 25: {}, 27: {}, 30: {}, 32: {}, 34: {}, 36: {},
}

// IsRed reports whether a pocket is red. Zero is neither red nor black.
func IsRed(pocket uint64) bool {
	_, ok := redPockets[pocket]
	return ok
}

// RouletteGame is a European wheel; the zero pocket carries the edge.
type RouletteGame struct{}

func NewRoulette() *RouletteGame { return &RouletteGame{} }

func (*RouletteGame) Name() string { return Roulette }

func (*RouletteGame) Validate(p Params) error {
	switch p.Bet.Kind {
	case BetNumber:
		if p.Bet.Value > 36 {
			return fmt.Errorf("%w: number %d", ErrInvalidBet, p.Bet.Value)
		}
	case BetDozen, BetColumn:
		if p.Bet.Value > 2 {
			return fmt.Errorf("%w: %s %d", ErrInvalidBet, p.Bet.Kind, p.Bet.Value)
		}
	case BetRed, BetBlack, BetGreen, BetEven, BetOdd, BetLow, BetHigh:
	default:
		return fmt.Errorf("%w: kind %d", ErrInvalidBet, p.Bet.Kind)
	}
	return nil
}

func (*RouletteGame) Resolve(draw uint64, _ Params) Outcome {
	return Outcome{Value: draw % Pockets}
}

// multiple is the gross payout multiple for a bet, stake included.
func multiple(kind BetKind) uint64 {
	switch kind {
	case BetNumber, BetGreen:
		return 36
	case BetDozen, BetColumn:
		return 3
	default:
		return 2
	}
}

func wins(bet RouletteBet, pocket uint64) bool {
	if pocket == 0 {
		return bet.Kind == BetGreen || (bet.Kind == BetNumber && bet.Value == 0)
	}
	switch bet.Kind {
	case BetNumber:
		return uint64(bet.Value) == pocket
	case BetRed:
		return IsRed(pocket)
	case BetBlack:
		return !IsRed(pocket)
	case BetEven:
		return pocket%2 == 0
	case BetOdd:
		return pocket%2 == 1
	case BetLow:
		return pocket <= 18
	case BetHigh:
		return pocket >= 19
	case BetDozen:
		return (pocket-1)/12 == uint64(bet.Value)
	case BetColumn:
		return (pocket-1)%3 == uint64(bet.Value)
	}
	return false
}

func (g *RouletteGame) Payout(stake uint64, o Outcome, p Params) (Result, error) {
	if err := g.Validate(p); err != nil {
		return Result{}, err
	}
	if !wins(p.Bet, o.Value) {
		return Result{}, nil
	}
	m := multiple(p.Bet.Kind)
	payout, err := Multiply(stake, m)
	if err != nil {
		return Result{}, err
	}
	return Result{Win: true, Payout: payout, MultiplierBps: m * BpsDenominator}, nil
}

func (g *RouletteGame) MaxPayout(stake uint64, p Params) (uint64, error) {
	if err := g.Validate(p); err != nil {
		return 0, err
	}
	return Multiply(stake, multiple(p.Bet.Kind))
}
