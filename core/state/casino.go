package state

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"

	"wagerchain/native/casino"
	"wagerchain/native/common"
	"wagerchain/native/house"
	"wagerchain/native/referral"
)

// RLP has no signed integers, so records carrying profit or timestamps are
// persisted through these storage shapes.

type storedHouse struct {
	Game      string
	Authority [20]byte
	Vault     [20]byte

	MinBet                 uint64
	MaxBet                 uint64
	MaxBetCap              uint64
	HouseEdgeBps           uint64
	MaxBetHouseBps         uint64
	MaxMultiplierBps       uint64
	JackpotContributionBps uint64
	WithdrawLimitBps       uint64
	MinReserve             uint64

	TotalVolume    uint64
	ProfitNegative bool
	ProfitAbs      uint64
	TotalWithdrawn uint64
	TotalDeposited uint64
	Jackpot        uint64

	ReferralPool          uint64
	ReferralContributions uint64
	ReferrerCount         uint64
	LastDistribution      uint64

	EmergencyPause bool

	TotalWagers uint64
	TotalWins   uint64
	TotalLosses uint64
	TotalRounds uint64

	CreatedAt uint64
}

func toUnsigned(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

func fromUnsigned(v uint64) int64 {
	if v > 1<<63-1 {
		return 1<<63 - 1
	}
	return int64(v)
}

func newStoredHouse(h *house.House) *storedHouse {
	s := &storedHouse{
		Game:                   h.Game,
		Authority:              h.Authority,
		Vault:                  h.Vault,
		MinBet:                 h.MinBet,
		MaxBet:                 h.MaxBet,
		MaxBetCap:              h.MaxBetCap,
		HouseEdgeBps:           h.HouseEdgeBps,
		MaxBetHouseBps:         h.MaxBetHouseBps,
		MaxMultiplierBps:       h.MaxMultiplierBps,
		JackpotContributionBps: h.JackpotContributionBps,
		WithdrawLimitBps:       h.WithdrawLimitBps,
		MinReserve:             h.MinReserve,
		TotalVolume:            h.TotalVolume,
		TotalWithdrawn:         h.TotalWithdrawn,
		TotalDeposited:         h.TotalDeposited,
		Jackpot:                h.Jackpot,
		ReferralPool:           h.ReferralPool,
		ReferralContributions:  h.ReferralContributions,
		ReferrerCount:          h.ReferrerCount,
		LastDistribution:       toUnsigned(h.LastDistribution),
		EmergencyPause:         h.EmergencyPause,
		TotalWagers:            h.TotalWagers,
		TotalWins:              h.TotalWins,
		TotalLosses:            h.TotalLosses,
		TotalRounds:            h.TotalRounds,
		CreatedAt:              toUnsigned(h.CreatedAt),
	}
	if h.TotalProfit < 0 {
		s.ProfitNegative = true
		s.ProfitAbs = uint64(-(h.TotalProfit + 1)) + 1
	} else {
		s.ProfitAbs = uint64(h.TotalProfit)
	}
	return s
}

func (s *storedHouse) toHouse() *house.House {
	h := &house.House{
		Game:                   s.Game,
		Authority:              s.Authority,
		Vault:                  s.Vault,
		MinBet:                 s.MinBet,
		MaxBet:                 s.MaxBet,
		MaxBetCap:              s.MaxBetCap,
		HouseEdgeBps:           s.HouseEdgeBps,
		MaxBetHouseBps:         s.MaxBetHouseBps,
		MaxMultiplierBps:       s.MaxMultiplierBps,
		JackpotContributionBps: s.JackpotContributionBps,
		WithdrawLimitBps:       s.WithdrawLimitBps,
		MinReserve:             s.MinReserve,
		TotalVolume:            s.TotalVolume,
		TotalWithdrawn:         s.TotalWithdrawn,
		TotalDeposited:         s.TotalDeposited,
		Jackpot:                s.Jackpot,
		ReferralPool:           s.ReferralPool,
		ReferralContributions:  s.ReferralContributions,
		ReferrerCount:          s.ReferrerCount,
		LastDistribution:       fromUnsigned(s.LastDistribution),
		EmergencyPause:         s.EmergencyPause,
		TotalWagers:            s.TotalWagers,
		TotalWins:              s.TotalWins,
		TotalLosses:            s.TotalLosses,
		TotalRounds:            s.TotalRounds,
		CreatedAt:              fromUnsigned(s.CreatedAt),
	}
	if s.ProfitNegative {
		h.TotalProfit = -fromUnsigned(s.ProfitAbs-1) - 1
	} else {
		h.TotalProfit = fromUnsigned(s.ProfitAbs)
	}
	return h
}

type storedReferrer struct {
	Game                string
	Owner               [20]byte
	PendingRewards      uint64
	TotalEarned         uint64
	TotalReferredVolume uint64
	Contribution        uint64
	ClaimCount          uint64
	LastClaim           uint64
	CreatedAt           uint64
}

type storedRound struct {
	Game          string
	ID            uint64
	Status        uint8
	CrashPointBps uint64
	TotalBets     uint64
	TotalPlayers  uint64
	StartedAt     uint64
	ActivatedAt   uint64
	EndedAt       uint64
	Players       [][20]byte
}

type storedBet struct {
	Game                 string
	RoundID              uint64
	Player               [20]byte
	Amount               uint64
	Referrer             [20]byte
	CashedOut            bool
	CashOutMultiplierBps uint64
	Payout               uint64
	Settled              bool
	PlacedAt             uint64
}

func normalizeGame(game string) string { return strings.ToLower(strings.TrimSpace(game)) }

func houseKey(game string) []byte { return recordKey(housePrefix, []byte(normalizeGame(game))) }

func referrerKey(game string, owner [20]byte) []byte {
	return recordKey(referPrefix, []byte(normalizeGame(game)), owner[:])
}

func roundID(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return buf[:]
}

func roundKey(game string, id uint64) []byte {
	return recordKey(roundPrefix, []byte(normalizeGame(game)), roundID(id))
}

func betKey(game string, id uint64, player [20]byte) []byte {
	return recordKey(betPrefix, []byte(normalizeGame(game)), roundID(id), player[:])
}

func quotaKey(game string, player [20]byte) []byte {
	return recordKey(quotaPrefix, []byte(normalizeGame(game)), player[:])
}

// HouseGet loads the house of game.
func (m *Manager) HouseGet(game string) (*house.House, bool, error) {
	stored := new(storedHouse)
	ok, err := m.getRLP(houseKey(game), stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return stored.toHouse(), true, nil
}

// HousePut persists h under its game name.
func (m *Manager) HousePut(h *house.House) error {
	if h == nil || normalizeGame(h.Game) == "" {
		return fmt.Errorf("state: house game required")
	}
	return m.putRLP(houseKey(h.Game), newStoredHouse(h))
}

// Houses lists every committed house. Writes staged by an open Atomic scope
// are not visible to it.
func (m *Manager) Houses() ([]*house.House, error) {
	var out []*house.House
	err := m.db.Iterate(housePrefix, func(_, value []byte) error {
		stored := new(storedHouse)
		if err := rlp.DecodeBytes(value, stored); err != nil {
			return err
		}
		out = append(out, stored.toHouse())
		return nil
	})
	return out, err
}

func (m *Manager) ReferrerGet(game string, owner [20]byte) (*referral.Referrer, bool, error) {
	stored := new(storedReferrer)
	ok, err := m.getRLP(referrerKey(game, owner), stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &referral.Referrer{
		Game:                stored.Game,
		Owner:               stored.Owner,
		PendingRewards:      stored.PendingRewards,
		TotalEarned:         stored.TotalEarned,
		TotalReferredVolume: stored.TotalReferredVolume,
		Contribution:        stored.Contribution,
		ClaimCount:          stored.ClaimCount,
		LastClaim:           fromUnsigned(stored.LastClaim),
		CreatedAt:           fromUnsigned(stored.CreatedAt),
	}, true, nil
}

func (m *Manager) ReferrerPut(r *referral.Referrer) error {
	if r == nil {
		return fmt.Errorf("state: nil referrer")
	}
	return m.putRLP(referrerKey(r.Game, r.Owner), &storedReferrer{
		Game:                r.Game,
		Owner:               r.Owner,
		PendingRewards:      r.PendingRewards,
		TotalEarned:         r.TotalEarned,
		TotalReferredVolume: r.TotalReferredVolume,
		Contribution:        r.Contribution,
		ClaimCount:          r.ClaimCount,
		LastClaim:           toUnsigned(r.LastClaim),
		CreatedAt:           toUnsigned(r.CreatedAt),
	})
}

func (m *Manager) RoundGet(game string, id uint64) (*casino.Round, bool, error) {
	stored := new(storedRound)
	ok, err := m.getRLP(roundKey(game, id), stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &casino.Round{
		Game:          stored.Game,
		ID:            stored.ID,
		Status:        casino.RoundStatus(stored.Status),
		CrashPointBps: stored.CrashPointBps,
		TotalBets:     stored.TotalBets,
		TotalPlayers:  stored.TotalPlayers,
		StartedAt:     fromUnsigned(stored.StartedAt),
		ActivatedAt:   fromUnsigned(stored.ActivatedAt),
		EndedAt:       fromUnsigned(stored.EndedAt),
		Players:       stored.Players,
	}, true, nil
}

func (m *Manager) RoundPut(r *casino.Round) error {
	if r == nil {
		return fmt.Errorf("state: nil round")
	}
	return m.putRLP(roundKey(r.Game, r.ID), &storedRound{
		Game:          r.Game,
		ID:            r.ID,
		Status:        uint8(r.Status),
		CrashPointBps: r.CrashPointBps,
		TotalBets:     r.TotalBets,
		TotalPlayers:  r.TotalPlayers,
		StartedAt:     toUnsigned(r.StartedAt),
		ActivatedAt:   toUnsigned(r.ActivatedAt),
		EndedAt:       toUnsigned(r.EndedAt),
		Players:       r.Players,
	})
}

func (m *Manager) PlayerBetGet(game string, id uint64, player [20]byte) (*casino.PlayerBet, bool, error) {
	stored := new(storedBet)
	ok, err := m.getRLP(betKey(game, id, player), stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &casino.PlayerBet{
		Game:                 stored.Game,
		RoundID:              stored.RoundID,
		Player:               stored.Player,
		Amount:               stored.Amount,
		Referrer:             stored.Referrer,
		CashedOut:            stored.CashedOut,
		CashOutMultiplierBps: stored.CashOutMultiplierBps,
		Payout:               stored.Payout,
		Settled:              stored.Settled,
		PlacedAt:             fromUnsigned(stored.PlacedAt),
	}, true, nil
}

func (m *Manager) PlayerBetPut(b *casino.PlayerBet) error {
	if b == nil {
		return fmt.Errorf("state: nil bet")
	}
	return m.putRLP(betKey(b.Game, b.RoundID, b.Player), &storedBet{
		Game:                 b.Game,
		RoundID:              b.RoundID,
		Player:               b.Player,
		Amount:               b.Amount,
		Referrer:             b.Referrer,
		CashedOut:            b.CashedOut,
		CashOutMultiplierBps: b.CashOutMultiplierBps,
		Payout:               b.Payout,
		Settled:              b.Settled,
		PlacedAt:             toUnsigned(b.PlacedAt),
	})
}

// QuotaGet returns the player's usage counters; unknown players start empty.
func (m *Manager) QuotaGet(game string, player [20]byte) (common.QuotaNow, error) {
	var usage common.QuotaNow
	if _, err := m.getRLP(quotaKey(game, player), &usage); err != nil {
		return common.QuotaNow{}, err
	}
	return usage, nil
}

func (m *Manager) QuotaPut(game string, player [20]byte, usage common.QuotaNow) error {
	return m.putRLP(quotaKey(game, player), &usage)
}
