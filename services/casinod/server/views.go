package server

import (
	"wagerchain/crypto"
	"wagerchain/native/casino"
	"wagerchain/native/house"
	"wagerchain/native/referral"
)

func identity(addr [20]byte) string {
	if addr == ([20]byte{}) {
		return ""
	}
	return crypto.FormatIdentity(addr)
}

type settlementView struct {
	Game            string   `json:"game"`
	Player          string   `json:"player"`
	Stake           uint64   `json:"stake"`
	Draw            uint64   `json:"draw"`
	Nonce           uint64   `json:"nonce"`
	Result          uint64   `json:"result"`
	Reels           []string `json:"reels,omitempty"`
	Win             bool     `json:"win"`
	Payout          uint64   `json:"payout"`
	MultiplierBps   uint64   `json:"multiplierBps"`
	JackpotHit      bool     `json:"jackpotHit"`
	JackpotPaid     uint64   `json:"jackpotPaid"`
	Contribution    uint64   `json:"jackpotContribution"`
	ReferralAccrual uint64   `json:"referralAccrual"`
	Referrer        string   `json:"referrer,omitempty"`
	ProfitDelta     int64    `json:"profitDelta"`
	TotalVolume     uint64   `json:"totalVolume"`
	TotalProfit     int64    `json:"totalProfit"`
	Jackpot         uint64   `json:"jackpot"`
	VaultBalance    uint64   `json:"vaultBalance"`
}

func newSettlementView(s *casino.Settlement) settlementView {
	v := settlementView{
		Game:            s.Game,
		Player:          identity(s.Player),
		Stake:           s.Stake,
		Draw:            s.Draw,
		Nonce:           s.Nonce,
		Result:          s.Outcome.Value,
		Win:             s.Win,
		Payout:          s.Payout,
		MultiplierBps:   s.MultiplierBps,
		JackpotHit:      s.JackpotHit,
		JackpotPaid:     s.JackpotPaid,
		Contribution:    s.Contribution,
		ReferralAccrual: s.ReferralAccrual,
		Referrer:        identity(s.Referrer),
		ProfitDelta:     s.Totals.ProfitDelta,
		TotalVolume:     s.Totals.TotalVolume,
		TotalProfit:     s.Totals.TotalProfit,
		Jackpot:         s.Totals.Jackpot,
		VaultBalance:    s.Totals.VaultBalance,
	}
	if s.Game == "slots" {
		for _, sym := range s.Outcome.Reels {
			v.Reels = append(v.Reels, sym.String())
		}
	}
	return v
}

type roundView struct {
	Game          string   `json:"game"`
	ID            uint64   `json:"id"`
	Status        string   `json:"status"`
	CrashPointBps uint64   `json:"crashPointBps,omitempty"`
	TotalBets     uint64   `json:"totalBets"`
	TotalPlayers  uint64   `json:"totalPlayers"`
	StartedAt     int64    `json:"startedAt"`
	ActivatedAt   int64    `json:"activatedAt,omitempty"`
	EndedAt       int64    `json:"endedAt,omitempty"`
	Players       []string `json:"players"`
}

func newRoundView(r *casino.Round) roundView {
	v := roundView{
		Game:          r.Game,
		ID:            r.ID,
		Status:        r.Status.String(),
		CrashPointBps: r.CrashPointBps,
		TotalBets:     r.TotalBets,
		TotalPlayers:  r.TotalPlayers,
		StartedAt:     r.StartedAt,
		ActivatedAt:   r.ActivatedAt,
		EndedAt:       r.EndedAt,
		Players:       make([]string, 0, len(r.Players)),
	}
	for _, p := range r.Players {
		v.Players = append(v.Players, identity(p))
	}
	return v
}

type betView struct {
	Game                 string `json:"game"`
	RoundID              uint64 `json:"roundId"`
	Player               string `json:"player"`
	Amount               uint64 `json:"amount"`
	Referrer             string `json:"referrer,omitempty"`
	CashedOut            bool   `json:"cashedOut"`
	CashOutMultiplierBps uint64 `json:"cashOutMultiplierBps,omitempty"`
	Payout               uint64 `json:"payout"`
	Settled              bool   `json:"settled"`
	PlacedAt             int64  `json:"placedAt"`
}

func newBetView(b *casino.PlayerBet) betView {
	return betView{
		Game:                 b.Game,
		RoundID:              b.RoundID,
		Player:               identity(b.Player),
		Amount:               b.Amount,
		Referrer:             identity(b.Referrer),
		CashedOut:            b.CashedOut,
		CashOutMultiplierBps: b.CashOutMultiplierBps,
		Payout:               b.Payout,
		Settled:              b.Settled,
		PlacedAt:             b.PlacedAt,
	}
}

type houseView struct {
	Game                   string `json:"game"`
	Authority              string `json:"authority"`
	Vault                  string `json:"vault"`
	VaultBalance           uint64 `json:"vaultBalance,omitempty"`
	Withdrawable           uint64 `json:"withdrawable,omitempty"`
	MinBet                 uint64 `json:"minBet"`
	MaxBet                 uint64 `json:"maxBet"`
	MaxBetCap              uint64 `json:"maxBetCap"`
	HouseEdgeBps           uint64 `json:"houseEdgeBps"`
	MaxBetHouseBps         uint64 `json:"maxBetHouseBps"`
	MaxMultiplierBps       uint64 `json:"maxMultiplierBps,omitempty"`
	JackpotContributionBps uint64 `json:"jackpotContributionBps"`
	WithdrawLimitBps       uint64 `json:"withdrawLimitBps"`
	MinReserve             uint64 `json:"minReserve"`
	TotalVolume            uint64 `json:"totalVolume"`
	TotalProfit            int64  `json:"totalProfit"`
	TotalWithdrawn         uint64 `json:"totalWithdrawn"`
	TotalDeposited         uint64 `json:"totalDeposited"`
	Jackpot                uint64 `json:"jackpot"`
	ReferralPool           uint64 `json:"referralPool"`
	ReferralContributions  uint64 `json:"referralContributions"`
	ReferrerCount          uint64 `json:"referrerCount"`
	LastDistribution       int64  `json:"lastDistribution"`
	EmergencyPause         bool   `json:"emergencyPause"`
	TotalWagers            uint64 `json:"totalWagers"`
	TotalWins              uint64 `json:"totalWins"`
	TotalLosses            uint64 `json:"totalLosses"`
	TotalRounds            uint64 `json:"totalRounds"`
	CreatedAt              int64  `json:"createdAt"`
}

func newHouseView(h *house.House) houseView {
	return houseView{
		Game:                   h.Game,
		Authority:              identity(h.Authority),
		Vault:                  identity(h.Vault),
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
		TotalProfit:            h.TotalProfit,
		TotalWithdrawn:         h.TotalWithdrawn,
		TotalDeposited:         h.TotalDeposited,
		Jackpot:                h.Jackpot,
		ReferralPool:           h.ReferralPool,
		ReferralContributions:  h.ReferralContributions,
		ReferrerCount:          h.ReferrerCount,
		LastDistribution:       h.LastDistribution,
		EmergencyPause:         h.EmergencyPause,
		TotalWagers:            h.TotalWagers,
		TotalWins:              h.TotalWins,
		TotalLosses:            h.TotalLosses,
		TotalRounds:            h.TotalRounds,
		CreatedAt:              h.CreatedAt,
	}
}

func newStatsView(s *house.Stats) houseView {
	v := newHouseView(s.House)
	v.VaultBalance = s.VaultBalance
	v.Withdrawable = s.Withdrawable
	return v
}

type referrerView struct {
	Game                string `json:"game"`
	Owner               string `json:"owner"`
	PendingRewards      uint64 `json:"pendingRewards"`
	TotalEarned         uint64 `json:"totalEarned"`
	TotalReferredVolume uint64 `json:"totalReferredVolume"`
	Contribution        uint64 `json:"contribution"`
	ClaimCount          uint64 `json:"claimCount"`
	LastClaim           int64  `json:"lastClaim"`
	CreatedAt           int64  `json:"createdAt"`
}

func newReferrerView(r *referral.Referrer) referrerView {
	return referrerView{
		Game:                r.Game,
		Owner:               identity(r.Owner),
		PendingRewards:      r.PendingRewards,
		TotalEarned:         r.TotalEarned,
		TotalReferredVolume: r.TotalReferredVolume,
		Contribution:        r.Contribution,
		ClaimCount:          r.ClaimCount,
		LastClaim:           r.LastClaim,
		CreatedAt:           r.CreatedAt,
	}
}

type referrerStatsView struct {
	Referrer       referrerView `json:"referrer"`
	Mode           string       `json:"mode"`
	RateBps        uint64       `json:"rateBps"`
	EstimatedShare uint64       `json:"estimatedShare"`
	Pool           uint64       `json:"pool"`
	Contributions  uint64       `json:"contributions"`
	ReferrerCount  uint64       `json:"referrerCount"`
	NextDistribute int64        `json:"nextDistribute"`
}

func newReferrerStatsView(s *referral.Stats) referrerStatsView {
	return referrerStatsView{
		Referrer:       newReferrerView(s.Referrer),
		Mode:           s.Mode.String(),
		RateBps:        s.RateBps,
		EstimatedShare: s.EstimatedShare,
		Pool:           s.Pool,
		Contributions:  s.Contributions,
		ReferrerCount:  s.ReferrerCount,
		NextDistribute: s.NextDistribute,
	}
}
