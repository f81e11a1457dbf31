package games

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CoinFlip = "coinflip"
	Dice     = "dice"
	Slots    = "slots"
	Roulette = "roulette"
	Crash    = "crash"
)

var (
	ErrUnknownGame       = errors.New("games: unknown game")
	ErrInvalidTarget     = errors.New("games: dice target out of range")
	ErrInvalidSide       = errors.New("games: invalid dice side")
	ErrInvalidBet        = errors.New("games: invalid roulette bet")
	ErrInvalidMultiplier = errors.New("games: multiplier out of range")
	ErrCashOutTooLow     = errors.New("games: cash out multiplier must exceed 1.00x")
	ErrCashOutAboveCrash = errors.New("games: cash out multiplier above crash point")
)

// Params are the player's choices for a wager. Only the fields relevant to
// the game are read.
type Params struct {
	Side      DiceSide    `json:"side,omitempty"`
	Target    uint8       `json:"target,omitempty"`
	Bet       RouletteBet `json:"bet,omitempty"`
	TargetBps uint64      `json:"targetBps,omitempty"`
}

// Outcome is the resolved result of a draw. Value holds the coin roll, dice
// roll, roulette pocket or crash point depending on the game.
type Outcome struct {
	Value uint64
	Reels [3]Symbol
}

// Result is what a settled wager pays.
type Result struct {
	Win           bool
	Payout        uint64
	MultiplierBps uint64
	// JackpotHit is set when the outcome also wins the house jackpot. The
	// jackpot amount is not part of Payout.
	JackpotHit bool
}

// Game is implemented by every game family. Implementations are pure.
type Game interface {
	Name() string
	Validate(p Params) error
	Resolve(draw uint64, p Params) Outcome
	Payout(stake uint64, o Outcome, p Params) (Result, error)
	// MaxPayout is the most the wager can pay, excluding any jackpot.
	MaxPayout(stake uint64, p Params) (uint64, error)
}

// Options tune the per-house economics of a game.
type Options struct {
	EdgeBps          uint64
	MaxMultiplierBps uint64
}

// Default house edges per game.
const (
	DefaultCoinFlipEdgeBps  = 400
	DefaultDiceEdgeBps      = 300
	DefaultCrashEdgeBps     = 100
	DefaultMaxMultiplierBps = 1_000_000
)

// DefaultOptions returns the stock economics for a game.
func DefaultOptions(name string) Options {
	switch Normalize(name) {
	case CoinFlip:
		return Options{EdgeBps: DefaultCoinFlipEdgeBps}
	case Dice:
		return Options{EdgeBps: DefaultDiceEdgeBps}
	case Crash:
		return Options{EdgeBps: DefaultCrashEdgeBps, MaxMultiplierBps: DefaultMaxMultiplierBps}
	default:
		return Options{}
	}
}

// New builds the game registered under name.
func New(name string, opts Options) (Game, error) {
	switch Normalize(name) {
	case CoinFlip:
		return NewCoinFlip(opts.EdgeBps)
	case Dice:
		return NewDice(opts.EdgeBps)
	case Slots:
		return NewSlots(DefaultReels())
	case Roulette:
		return NewRoulette(), nil
	case Crash:
		return NewCrash(opts.EdgeBps, opts.MaxMultiplierBps)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, name)
	}
}

// Names lists every supported game.
func Names() []string { return []string{CoinFlip, Dice, Slots, Roulette, Crash} }

// Normalize lowercases and trims a game name.
func Normalize(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Known reports whether name is a supported game.
func Known(name string) bool {
	normalized := Normalize(name)
	for _, candidate := range Names() {
		if candidate == normalized {
			return true
		}
	}
	return false
}
