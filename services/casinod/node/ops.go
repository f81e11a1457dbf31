package node

import (
	"wagerchain/native/casino"
	"wagerchain/native/house"
	"wagerchain/native/referral"
)

func (n *Node) StartRound(game string, caller [20]byte) (*casino.Round, error) {
	var out *casino.Round
	err := n.exec("start_round", func() error {
		r, err := n.casino.StartRound(game, caller)
		out = r
		return err
	})
	if err == nil {
		n.metrics.RecordRound(out.Game, out.Status.String())
	}
	return out, err
}

func (n *Node) PlaceBet(game string, roundID uint64, player [20]byte, amount uint64, referrer [20]byte) (*casino.PlayerBet, error) {
	var out *casino.PlayerBet
	err := n.exec("place_bet", func() error {
		b, err := n.casino.PlaceBet(game, roundID, player, amount, referrer)
		out = b
		return err
	})
	return out, err
}

func (n *Node) ActivateRound(game string, roundID uint64, caller [20]byte) (*casino.Round, error) {
	var out *casino.Round
	err := n.exec("activate_round", func() error {
		r, err := n.casino.ActivateRound(game, roundID, caller)
		out = r
		return err
	})
	if err == nil {
		n.metrics.RecordRound(out.Game, out.Status.String())
	}
	return out, err
}

func (n *Node) CashOut(game string, roundID uint64, player [20]byte, minBps uint64) (*casino.CashOutResult, error) {
	var out *casino.CashOutResult
	err := n.exec("cash_out", func() error {
		res, err := n.casino.CashOut(game, roundID, player, minBps)
		out = res
		return err
	})
	if err == nil {
		bet := out.Bet
		n.metrics.RecordSettlement(bet.Game, true, bet.Amount, bet.Payout, 0, false)
		n.metrics.SetVaultBalance(bet.Game, out.Totals.VaultBalance)
	}
	return out, err
}

func (n *Node) EndRound(game string, roundID uint64, caller [20]byte) (*casino.RoundSummary, error) {
	var out *casino.RoundSummary
	err := n.exec("end_round", func() error {
		s, err := n.casino.EndRound(game, roundID, caller)
		out = s
		return err
	})
	if err == nil && out.Round != nil {
		n.metrics.RecordRound(out.Round.Game, out.Round.Status.String())
	}
	return out, err
}

// Round returns the public view of a crash round.
func (n *Node) Round(game string, roundID uint64) (*casino.Round, error) {
	var out *casino.Round
	err := n.view(func() error {
		r, err := n.casino.Round(game, roundID)
		out = r
		return err
	})
	return out, err
}

func (n *Node) PlayerBet(game string, roundID uint64, player [20]byte) (*casino.PlayerBet, error) {
	var out *casino.PlayerBet
	err := n.view(func() error {
		b, err := n.casino.PlayerBet(game, roundID, player)
		out = b
		return err
	})
	return out, err
}

func (n *Node) RegisterReferrer(game string, owner [20]byte) (*referral.Referrer, error) {
	var out *referral.Referrer
	err := n.exec("register_referrer", func() error {
		r, err := n.referrals.Register(game, owner)
		out = r
		return err
	})
	return out, err
}

func (n *Node) ClaimReferral(game string, owner [20]byte) (uint64, error) {
	var out uint64
	err := n.exec("claim_referral", func() error {
		amount, err := n.referrals.Claim(game, owner)
		out = amount
		return err
	})
	return out, err
}

func (n *Node) ReferrerStats(game string, owner [20]byte) (*referral.Stats, error) {
	var out *referral.Stats
	err := n.view(func() error {
		s, err := n.referrals.Stats(game, owner)
		out = s
		return err
	})
	return out, err
}

func (n *Node) Distribute(game string, caller [20]byte) (*house.House, error) {
	return n.houseOp("distribute", func() (*house.House, error) { return n.referrals.Distribute(game, caller) })
}

func (n *Node) FundReferralPool(game string, caller [20]byte, amount uint64) (*house.House, error) {
	return n.houseOp("fund_pool", func() (*house.House, error) { return n.referrals.FundPool(game, caller, amount) })
}

func (n *Node) HouseStats(game string) (*house.Stats, error) {
	var out *house.Stats
	err := n.view(func() error {
		s, err := n.houses.Stats(game)
		out = s
		return err
	})
	return out, err
}

func (n *Node) Deposit(game string, from [20]byte, amount uint64) (*house.House, error) {
	return n.houseOp("deposit", func() (*house.House, error) { return n.houses.Deposit(game, from, amount) })
}

func (n *Node) UpdateMaxBet(game string, caller [20]byte, maxBet uint64) (*house.House, error) {
	return n.houseOp("update_max_bet", func() (*house.House, error) { return n.houses.UpdateMaxBet(game, caller, maxBet) })
}

func (n *Node) UpdateSettings(game string, caller [20]byte, s house.Settings) (*house.House, error) {
	return n.houseOp("update_settings", func() (*house.House, error) { return n.houses.UpdateSettings(game, caller, s) })
}

func (n *Node) WithdrawProfit(game string, caller [20]byte, amount uint64) (*house.House, error) {
	return n.houseOp("withdraw_profit", func() (*house.House, error) { return n.houses.WithdrawProfit(game, caller, amount) })
}

func (n *Node) SeedJackpot(game string, caller [20]byte, amount uint64) (*house.House, error) {
	return n.houseOp("seed_jackpot", func() (*house.House, error) { return n.houses.SeedJackpot(game, caller, amount) })
}

func (n *Node) TogglePause(game string, caller [20]byte) (bool, error) {
	var paused bool
	err := n.exec("toggle_pause", func() error {
		p, err := n.houses.TogglePause(game, caller)
		paused = p
		return err
	})
	return paused, err
}

func (n *Node) houseOp(op string, fn func() (*house.House, error)) (*house.House, error) {
	var out *house.House
	err := n.exec(op, func() error {
		h, err := fn()
		out = h
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
