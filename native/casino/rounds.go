package casino

import (
	"fmt"

	coreerrors "wagerchain/core/errors"
	"wagerchain/native/games"
	"wagerchain/native/house"
	"wagerchain/native/referral"
)

func (e *Engine) crashHouse(game string) (*house.House, *games.CrashGame, error) {
	name := games.Normalize(game)
	if name != games.Crash {
		return nil, nil, fmt.Errorf("%w: %q", ErrNotRoundGame, game)
	}
	h, err := e.houses.Load(name)
	if err != nil {
		return nil, nil, err
	}
	g, err := gameFor(h)
	if err != nil {
		return nil, nil, err
	}
	crash, ok := g.(*games.CrashGame)
	if !ok {
		return nil, nil, ErrNotRoundGame
	}
	return h, crash, nil
}

func (e *Engine) loadRound(game string, id uint64) (*Round, error) {
	round, ok, err := e.state.RoundGet(game, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoundNotFound, roundLabel(game, id))
	}
	return round, nil
}

// StartRound opens the next crash round and fixes its crash point.
func (e *Engine) StartRound(game string, caller [20]byte) (*Round, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	h, crash, err := e.crashHouse(game)
	if err != nil {
		return nil, err
	}
	if caller != h.Authority {
		return nil, ErrUnauthorized
	}
	if h.TotalRounds > 0 {
		prev, ok, err := e.state.RoundGet(h.Game, h.TotalRounds)
		if err != nil {
			return nil, err
		}
		if ok && prev.Status != RoundEnded {
			return nil, fmt.Errorf("%w: %s", ErrRoundInProgress, roundLabel(h.Game, prev.ID))
		}
	}
	draw, err := e.draw(caller, h.TotalRounds)
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindResource, err)
	}
	id, err := e.houses.OpenRound(h.Game)
	if err != nil {
		return nil, err
	}
	round := &Round{
		Game:          h.Game,
		ID:            id,
		Status:        RoundPending,
		CrashPointBps: crash.CrashPoint(draw),
		StartedAt:     e.clock.Unix(),
	}
	if err := e.state.RoundPut(round); err != nil {
		return nil, err
	}
	e.emit(RoundStartedEvent(round))
	return round.Public(), nil
}

// PlaceBet stakes amount on a pending round. The stake is collected at
// once and counts toward house volume immediately.
func (e *Engine) PlaceBet(game string, roundID uint64, player [20]byte, amount uint64, referrer [20]byte) (*PlayerBet, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	h, crash, err := e.crashHouse(game)
	if err != nil {
		return nil, err
	}
	round, err := e.loadRound(h.Game, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status != RoundPending {
		return nil, ErrRoundNotPending
	}
	if _, ok, err := e.state.PlayerBetGet(h.Game, roundID, player); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyBet
	}
	ref, err := e.referrals.Bind(h.Game, player, referrer)
	if err != nil {
		return nil, err
	}
	worstCase, err := games.ApplyBps(amount, crash.MaxMultiplierBps())
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindValidation, err)
	}
	if err := e.houses.Precheck(h, player, amount, worstCase); err != nil {
		return nil, err
	}
	usage, limited, err := e.reserveQuota(h.Game, player, amount)
	if err != nil {
		return nil, err
	}

	if _, err := e.houses.Settle(h.Game, house.Wager{
		Player:  player,
		Stake:   amount,
		Outcome: house.OutcomePending,
		Detail:  roundLabel(h.Game, roundID),
	}); err != nil {
		return nil, err
	}
	bet := &PlayerBet{
		Game:     h.Game,
		RoundID:  roundID,
		Player:   player,
		Amount:   amount,
		PlacedAt: e.clock.Unix(),
	}
	if ref != nil {
		bet.Referrer = ref.Owner
	}
	if err := e.state.PlayerBetPut(bet); err != nil {
		return nil, err
	}
	round.TotalBets = saturatingAdd(round.TotalBets, amount)
	round.TotalPlayers++
	round.Players = append(round.Players, player)
	if err := e.state.RoundPut(round); err != nil {
		return nil, err
	}
	if limited {
		if err := e.state.QuotaPut(h.Game, player, usage); err != nil {
			return nil, err
		}
	}
	e.emit(BetPlacedEvent(bet))
	return bet.Clone(), nil
}

// ActivateRound closes betting and starts the multiplier climb.
func (e *Engine) ActivateRound(game string, roundID uint64, caller [20]byte) (*Round, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	h, _, err := e.crashHouse(game)
	if err != nil {
		return nil, err
	}
	if caller != h.Authority {
		return nil, ErrUnauthorized
	}
	round, err := e.loadRound(h.Game, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status != RoundPending {
		return nil, ErrRoundNotPending
	}
	round.Status = RoundActive
	round.ActivatedAt = e.clock.Unix()
	if err := e.state.RoundPut(round); err != nil {
		return nil, err
	}
	e.emit(RoundStatusEvent(EventTypeRoundActivated, round))
	return round.Public(), nil
}

// CashOut pays a bet at the live multiplier, derived from the time elapsed
// since activation. It fails once that multiplier passes the crash point.
// A non-zero minBps rejects the cash out while the live multiplier is still
// below it. A bet cashes out at most once.
func (e *Engine) CashOut(game string, roundID uint64, player [20]byte, minBps uint64) (*CashOutResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	h, crash, err := e.crashHouse(game)
	if err != nil {
		return nil, err
	}
	round, err := e.loadRound(h.Game, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status != RoundActive {
		return nil, ErrRoundNotActive
	}
	bet, ok, err := e.state.PlayerBetGet(h.Game, roundID, player)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBetNotFound
	}
	if bet.CashedOut || bet.Settled {
		return nil, ErrAlreadyCashedOut
	}
	multiplierBps := crash.MultiplierAt(e.clock.Unix() - round.ActivatedAt)
	if multiplierBps > round.CrashPointBps {
		return nil, ErrRoundCrashed
	}
	if multiplierBps < minBps {
		return nil, fmt.Errorf("%w: live %d bps, minimum %d bps", ErrBelowMinimum, multiplierBps, minBps)
	}
	payout, err := crash.CashOut(bet.Amount, multiplierBps, round.CrashPointBps)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWager, err)
	}
	totals, err := e.houses.Settle(h.Game, house.Wager{
		Player:  player,
		Payout:  payout,
		Outcome: house.OutcomeWin,
		Detail:  roundLabel(h.Game, roundID),
	})
	if err != nil {
		return nil, err
	}
	bet.CashedOut = true
	bet.Settled = true
	bet.CashOutMultiplierBps = multiplierBps
	bet.Payout = payout
	if err := e.state.PlayerBetPut(bet); err != nil {
		return nil, err
	}
	if !isZero(bet.Referrer) {
		// Winning bets still count toward the referrer's volume tier.
		if _, err := e.referrals.Accrue(h.Game, bet.Referrer, bet.Amount, 0); err != nil {
			return nil, err
		}
	}
	e.emit(CashedOutEvent(bet))
	return &CashOutResult{Bet: bet.Clone(), Totals: *totals}, nil
}

// EndRound finalises every bet that did not cash out as a loss and reveals
// the crash point. Lost stakes accrue to the bet's referrer, or straight to
// the shared pool when it has none.
func (e *Engine) EndRound(game string, roundID uint64, caller [20]byte) (*RoundSummary, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	h, _, err := e.crashHouse(game)
	if err != nil {
		return nil, err
	}
	if caller != h.Authority {
		return nil, ErrUnauthorized
	}
	round, err := e.loadRound(h.Game, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status != RoundActive {
		return nil, ErrRoundNotActive
	}

	summary := &RoundSummary{}
	for _, player := range round.Players {
		bet, ok, err := e.state.PlayerBetGet(h.Game, roundID, player)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: round %s lists a player without a bet", house.ErrLedgerInvariant, roundLabel(h.Game, roundID))
		}
		if bet.Settled {
			continue
		}
		var ref *referral.Referrer
		if !isZero(bet.Referrer) {
			ref, err = e.referrals.Lookup(h.Game, bet.Referrer)
			if err != nil {
				return nil, err
			}
		}
		accrual, err := e.referrals.Quote(ref, bet.Amount)
		if err != nil {
			return nil, err
		}
		if _, err := e.houses.Settle(h.Game, house.Wager{
			Player:          player,
			Outcome:         house.OutcomeLoss,
			Detail:          roundLabel(h.Game, roundID),
			ReferralAccrual: accrual,
		}); err != nil {
			return nil, err
		}
		if err := e.accrue(h.Game, ref, bet.Amount, accrual); err != nil {
			return nil, err
		}
		bet.Settled = true
		if err := e.state.PlayerBetPut(bet); err != nil {
			return nil, err
		}
		summary.Losers++
		summary.LostVolume = saturatingAdd(summary.LostVolume, bet.Amount)
		summary.ReferralAccrual = saturatingAdd(summary.ReferralAccrual, accrual)
	}

	round.Status = RoundEnded
	round.EndedAt = e.clock.Unix()
	if err := e.state.RoundPut(round); err != nil {
		return nil, err
	}
	summary.Round = round.Clone()
	e.emit(RoundEndedEvent(round, summary))
	return summary, nil
}

// Round returns the public view of a round.
func (e *Engine) Round(game string, roundID uint64) (*Round, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	round, err := e.loadRound(games.Normalize(game), roundID)
	if err != nil {
		return nil, err
	}
	return round.Public(), nil
}

// PlayerBet returns a player's bet in a round.
func (e *Engine) PlayerBet(game string, roundID uint64, player [20]byte) (*PlayerBet, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	bet, ok, err := e.state.PlayerBetGet(games.Normalize(game), roundID, player)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBetNotFound
	}
	return bet, nil
}

func isZero(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}
