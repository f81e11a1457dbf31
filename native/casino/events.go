package casino

import (
	"strconv"

	"wagerchain/core/types"
	"wagerchain/crypto"
)

const (
	EventTypePlayed         = "casino.played"
	EventTypeRoundStarted   = "casino.round.started"
	EventTypeBetPlaced      = "casino.round.bet"
	EventTypeRoundActivated = "casino.round.activated"
	EventTypeCashedOut      = "casino.round.cashout"
	EventTypeRoundEnded     = "casino.round.ended"
)

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

// PlayedEvent reports an instant wager. The draw is included so players can
// replay the outcome.
func PlayedEvent(s *Settlement) *types.Event {
	attrs := map[string]string{
		"game":          s.Game,
		"player":        crypto.FormatIdentity(s.Player),
		"stake":         u64(s.Stake),
		"draw":          u64(s.Draw),
		"nonce":         u64(s.Nonce),
		"result":        u64(s.Outcome.Value),
		"win":           strconv.FormatBool(s.Win),
		"payout":        u64(s.Payout),
		"multiplierBps": u64(s.MultiplierBps),
		"profitDelta":   strconv.FormatInt(s.Totals.ProfitDelta, 10),
	}
	if s.Game == "slots" {
		attrs["reels"] = s.Outcome.Reels[0].String() + "," + s.Outcome.Reels[1].String() + "," + s.Outcome.Reels[2].String()
		attrs["jackpot"] = u64(s.Totals.Jackpot)
		if s.JackpotHit {
			attrs["jackpotPaid"] = u64(s.JackpotPaid)
		}
	}
	if s.ReferralAccrual > 0 {
		attrs["referrer"] = crypto.FormatIdentity(s.Referrer)
		attrs["referralAccrual"] = u64(s.ReferralAccrual)
	}
	return &types.Event{Type: EventTypePlayed, Attributes: attrs}
}

func RoundStartedEvent(r *Round) *types.Event {
	return &types.Event{
		Type: EventTypeRoundStarted,
		Attributes: map[string]string{
			"game":    r.Game,
			"roundId": u64(r.ID),
			"startAt": strconv.FormatInt(r.StartedAt, 10),
		},
	}
}

func BetPlacedEvent(b *PlayerBet) *types.Event {
	return &types.Event{
		Type: EventTypeBetPlaced,
		Attributes: map[string]string{
			"game":    b.Game,
			"roundId": u64(b.RoundID),
			"player":  crypto.FormatIdentity(b.Player),
			"amount":  u64(b.Amount),
		},
	}
}

func RoundStatusEvent(eventType string, r *Round) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"game":    r.Game,
			"roundId": u64(r.ID),
			"status":  r.Status.String(),
			"players": u64(r.TotalPlayers),
			"bets":    u64(r.TotalBets),
		},
	}
}

func CashedOutEvent(b *PlayerBet) *types.Event {
	return &types.Event{
		Type: EventTypeCashedOut,
		Attributes: map[string]string{
			"game":          b.Game,
			"roundId":       u64(b.RoundID),
			"player":        crypto.FormatIdentity(b.Player),
			"multiplierBps": u64(b.CashOutMultiplierBps),
			"payout":        u64(b.Payout),
		},
	}
}

func RoundEndedEvent(r *Round, s *RoundSummary) *types.Event {
	return &types.Event{
		Type: EventTypeRoundEnded,
		Attributes: map[string]string{
			"game":            r.Game,
			"roundId":         u64(r.ID),
			"crashPointBps":   u64(r.CrashPointBps),
			"losers":          u64(s.Losers),
			"lostVolume":      u64(s.LostVolume),
			"referralAccrual": u64(s.ReferralAccrual),
		},
	}
}
