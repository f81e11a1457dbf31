package house

import (
	"strconv"

	"wagerchain/core/types"
	"wagerchain/crypto"
)

const (
	// EventTypeHouseInitialized is emitted once per game when its house is created.
	EventTypeHouseInitialized = "house.initialized"
	// EventTypeWagerSettled carries the settlement record of every ledger movement.
	EventTypeWagerSettled = "house.wager.settled"
	// EventTypeMaxBetUpdated is emitted when the authority changes the max bet.
	EventTypeMaxBetUpdated = "house.max_bet.updated"
	// EventTypeSettingsUpdated is emitted on a settings change.
	EventTypeSettingsUpdated = "house.settings.updated"
	// EventTypePauseToggled is emitted when the emergency switch flips.
	EventTypePauseToggled = "house.pause.toggled"
	// EventTypeProfitWithdrawn is emitted when the authority takes profit.
	EventTypeProfitWithdrawn = "house.profit.withdrawn"
	// EventTypeDeposit is emitted when the vault is funded.
	EventTypeDeposit = "house.deposit"
	// EventTypeJackpotSeeded is emitted when the authority tops up the jackpot.
	EventTypeJackpotSeeded = "house.jackpot.seeded"
)

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

func HouseInitializedEvent(h *House) *types.Event {
	return &types.Event{
		Type: EventTypeHouseInitialized,
		Attributes: map[string]string{
			"game":      h.Game,
			"authority": crypto.FormatIdentity(h.Authority),
			"vault":     crypto.FormatIdentity(h.Vault),
			"minBet":    u64(h.MinBet),
			"maxBet":    u64(h.MaxBet),
		},
	}
}

// WagerSettledEvent is the settlement record: who staked what, how it
// resolved and what the house booked.
func WagerSettledEvent(game string, w Wager, profitDelta int64) *types.Event {
	attrs := map[string]string{
		"game":        game,
		"player":      crypto.FormatIdentity(w.Player),
		"stake":       u64(w.Stake),
		"payout":      u64(w.Payout),
		"result":      w.Outcome.String(),
		"profitDelta": strconv.FormatInt(profitDelta, 10),
	}
	if w.Detail != "" {
		attrs["outcome"] = w.Detail
	}
	if w.JackpotPaid > 0 {
		attrs["jackpotPaid"] = u64(w.JackpotPaid)
	}
	if w.JackpotContribution > 0 {
		attrs["jackpotContribution"] = u64(w.JackpotContribution)
	}
	if w.ReferralAccrual > 0 {
		attrs["referralAccrual"] = u64(w.ReferralAccrual)
	}
	return &types.Event{Type: EventTypeWagerSettled, Attributes: attrs}
}

func MaxBetUpdatedEvent(game string, previous, next uint64) *types.Event {
	return &types.Event{
		Type: EventTypeMaxBetUpdated,
		Attributes: map[string]string{
			"game":     game,
			"previous": u64(previous),
			"maxBet":   u64(next),
		},
	}
}

func SettingsUpdatedEvent(h *House) *types.Event {
	return &types.Event{
		Type: EventTypeSettingsUpdated,
		Attributes: map[string]string{
			"game":                   h.Game,
			"minBet":                 u64(h.MinBet),
			"maxBet":                 u64(h.MaxBet),
			"jackpotContributionBps": u64(h.JackpotContributionBps),
			"minReserve":             u64(h.MinReserve),
		},
	}
}

func PauseToggledEvent(game string, paused bool) *types.Event {
	return &types.Event{
		Type:       EventTypePauseToggled,
		Attributes: map[string]string{"game": game, "paused": strconv.FormatBool(paused)},
	}
}

func ProfitWithdrawnEvent(game string, to [20]byte, amount uint64) *types.Event {
	return &types.Event{
		Type: EventTypeProfitWithdrawn,
		Attributes: map[string]string{
			"game":   game,
			"to":     crypto.FormatIdentity(to),
			"amount": u64(amount),
		},
	}
}

func DepositEvent(game string, from [20]byte, amount uint64) *types.Event {
	return &types.Event{
		Type: EventTypeDeposit,
		Attributes: map[string]string{
			"game":   game,
			"from":   crypto.FormatIdentity(from),
			"amount": u64(amount),
		},
	}
}

func JackpotSeededEvent(game string, from [20]byte, amount, jackpot uint64) *types.Event {
	return &types.Event{
		Type: EventTypeJackpotSeeded,
		Attributes: map[string]string{
			"game":    game,
			"from":    crypto.FormatIdentity(from),
			"amount":  u64(amount),
			"jackpot": u64(jackpot),
		},
	}
}
