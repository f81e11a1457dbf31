package games

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	MinDiceTarget = 10
	MaxDiceTarget = 90
)

// DiceSide selects whether the roll must land under or over the target.
type DiceSide uint8

const (
	DiceUnder DiceSide = iota + 1
	DiceOver
)

func (s DiceSide) String() string {
	switch s {
	case DiceUnder:
		return "under"
	case DiceOver:
		return "over"
	default:
		return ""
	}
}

// ParseDiceSide accepts "under" or "over".
func ParseDiceSide(raw string) (DiceSide, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "under":
		return DiceUnder, nil
	case "over":
		return DiceOver, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSide, raw)
	}
}

func (s DiceSide) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *DiceSide) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = 0
		return nil
	}
	parsed, err := ParseDiceSide(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// DiceGame rolls 1..100 against a player chosen target.
type DiceGame struct {
	edgeBps uint64
}

func NewDice(edgeBps uint64) (*DiceGame, error) {
	if edgeBps >= BpsDenominator {
		return nil, fmt.Errorf("dice: edge %d bps out of range", edgeBps)
	}
	return &DiceGame{edgeBps: edgeBps}, nil
}

func (*DiceGame) Name() string { return Dice }

func (*DiceGame) Validate(p Params) error {
	if p.Side != DiceUnder && p.Side != DiceOver {
		return ErrInvalidSide
	}
	if p.Target < MinDiceTarget || p.Target > MaxDiceTarget {
		return fmt.Errorf("%w: %d", ErrInvalidTarget, p.Target)
	}
	return nil
}

func (*DiceGame) Resolve(draw uint64, _ Params) Outcome {
	return Outcome{Value: draw%100 + 1}
}

// MultiplierBps is the fair multiplier for the chosen side less the edge.
func (g *DiceGame) MultiplierBps(p Params) uint64 {
	chance := uint64(p.Target)
	if p.Side == DiceOver {
		chance = 100 - uint64(p.Target)
	}
	if chance == 0 {
		return 0
	}
	return 100 * (BpsDenominator - g.edgeBps) / chance
}

func (g *DiceGame) Payout(stake uint64, o Outcome, p Params) (Result, error) {
	if err := g.Validate(p); err != nil {
		return Result{}, err
	}
	target := uint64(p.Target)
	win := (p.Side == DiceUnder && o.Value < target) || (p.Side == DiceOver && o.Value > target)
	if !win {
		return Result{}, nil
	}
	mult := g.MultiplierBps(p)
	payout, err := ApplyBps(stake, mult)
	if err != nil {
		return Result{}, err
	}
	return Result{Win: true, Payout: payout, MultiplierBps: mult}, nil
}

func (g *DiceGame) MaxPayout(stake uint64, p Params) (uint64, error) {
	if err := g.Validate(p); err != nil {
		return 0, err
	}
	return ApplyBps(stake, g.MultiplierBps(p))
}
