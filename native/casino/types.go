package casino

import (
	"encoding/json"
	"fmt"

	"wagerchain/native/games"
	"wagerchain/native/house"
)

// RoundStatus is the lifecycle position of a crash round.
type RoundStatus uint8

const (
	RoundPending RoundStatus = iota + 1
	RoundActive
	RoundEnded
)

func (s RoundStatus) String() string {
	switch s {
	case RoundPending:
		return "pending"
	case RoundActive:
		return "active"
	case RoundEnded:
		return "ended"
	default:
		return "unknown"
	}
}

func (s RoundStatus) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// Round is one crash round. The crash point is fixed when the round starts
// and must not be shown to players before it ends.
type Round struct {
	Game          string
	ID            uint64
	Status        RoundStatus
	CrashPointBps uint64
	TotalBets     uint64
	TotalPlayers  uint64
	StartedAt     int64
	ActivatedAt   int64
	EndedAt       int64
	Players       [][20]byte
}

// Clone returns a deep copy.
func (r *Round) Clone() *Round {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Players = append([][20]byte(nil), r.Players...)
	return &clone
}

// Public hides the crash point until the round has ended.
func (r *Round) Public() *Round {
	clone := r.Clone()
	if clone != nil && clone.Status != RoundEnded {
		clone.CrashPointBps = 0
	}
	return clone
}

// PlayerBet is a single player's stake in a crash round.
type PlayerBet struct {
	Game                 string
	RoundID              uint64
	Player               [20]byte
	Amount               uint64
	Referrer             [20]byte
	CashedOut            bool
	CashOutMultiplierBps uint64
	Payout               uint64
	Settled              bool
	PlacedAt             int64
}

// Clone returns a copy.
func (b *PlayerBet) Clone() *PlayerBet {
	if b == nil {
		return nil
	}
	clone := *b
	return &clone
}

// PlayRequest is one instant wager.
type PlayRequest struct {
	Player   [20]byte
	Game     string
	Amount   uint64
	Params   games.Params
	Referrer [20]byte
}

// Settlement reports everything one instant wager moved.
type Settlement struct {
	Game            string
	Player          [20]byte
	Stake           uint64
	Draw            uint64
	Outcome         games.Outcome
	Win             bool
	Payout          uint64
	MultiplierBps   uint64
	JackpotHit      bool
	JackpotPaid     uint64
	Contribution    uint64
	ReferralAccrual uint64
	Referrer        [20]byte
	Nonce           uint64
	Totals          house.Totals
}

// CashOutResult reports a successful crash cash-out.
type CashOutResult struct {
	Bet    *PlayerBet
	Totals house.Totals
}

// RoundSummary reports how EndRound finalised a round.
type RoundSummary struct {
	Round           *Round
	Losers          uint64
	LostVolume      uint64
	ReferralAccrual uint64
}

func roundLabel(game string, id uint64) string { return fmt.Sprintf("%s#%d", game, id) }
