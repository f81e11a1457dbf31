package house

import "wagerchain/crypto"

// BpsDenominator is the basis point scale for every house ratio.
const BpsDenominator = 10_000

// House is the per-game ledger. The vault holds the backing balance; the
// jackpot and referral pool are liabilities reserved inside it.
type House struct {
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
	TotalProfit    int64
	TotalWithdrawn uint64
	TotalDeposited uint64
	Jackpot        uint64

	ReferralPool          uint64
	ReferralContributions uint64
	ReferrerCount         uint64
	LastDistribution      int64

	EmergencyPause bool

	TotalWagers uint64
	TotalWins   uint64
	TotalLosses uint64
	TotalRounds uint64

	CreatedAt int64
}

// Clone returns a deep copy.
func (h *House) Clone() *House {
	if h == nil {
		return nil
	}
	clone := *h
	return &clone
}

// Liabilities is what the vault already owes: the jackpot and the referral
// pool. Wager payouts may not draw on it.
func (h *House) Liabilities() uint64 {
	if h == nil {
		return 0
	}
	return saturatingAdd(h.Jackpot, h.ReferralPool)
}

// Reserved is the part of the vault no withdrawal may touch.
func (h *House) Reserved() uint64 {
	if h == nil {
		return 0
	}
	return saturatingAdd(h.Liabilities(), h.MinReserve)
}

// Params configure a house at initialisation.
type Params struct {
	MinBet                 uint64
	MaxBet                 uint64
	MaxBetCap              uint64
	HouseEdgeBps           uint64
	MaxBetHouseBps         uint64
	MaxMultiplierBps       uint64
	JackpotContributionBps uint64
	WithdrawLimitBps       uint64
	MinReserve             uint64
}

// Defaults used when a Params field is zero.
const (
	DefaultMinBet            = 1_000_000
	DefaultMaxBet            = 100_000_000
	DefaultMaxBetCap         = 500_000_000
	DefaultMaxBetHouseBps    = 1_000
	DefaultWithdrawLimitBps  = 5_000
	DefaultMinReserve        = 500_000_000
	MaxJackpotContribution   = 1_000
	DefaultJackpotContribBps = 10
)

// WithDefaults fills zero fields.
func (p Params) WithDefaults() Params {
	if p.MinBet == 0 {
		p.MinBet = DefaultMinBet
	}
	if p.MaxBet == 0 {
		p.MaxBet = DefaultMaxBet
	}
	if p.MaxBetCap == 0 {
		p.MaxBetCap = DefaultMaxBetCap
	}
	if p.MaxBetHouseBps == 0 {
		p.MaxBetHouseBps = DefaultMaxBetHouseBps
	}
	if p.WithdrawLimitBps == 0 {
		p.WithdrawLimitBps = DefaultWithdrawLimitBps
	}
	if p.MinReserve == 0 {
		p.MinReserve = DefaultMinReserve
	}
	return p
}

// Outcome classifies how a ledger movement counts in the win/loss tallies.
type Outcome uint8

const (
	// OutcomePending moves funds without deciding the wager, such as a crash
	// bet placed before its round resolves.
	OutcomePending Outcome = iota
	OutcomeWin
	OutcomeLoss
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeLoss:
		return "loss"
	default:
		return "pending"
	}
}

// Wager is one ledger movement. Payout includes JackpotPaid.
type Wager struct {
	Player              [20]byte
	Stake               uint64
	Payout              uint64
	Outcome             Outcome
	Detail              string
	JackpotContribution uint64
	JackpotPaid         uint64
	ReferralAccrual     uint64
}

// Totals is what a settlement reports back.
type Totals struct {
	ProfitDelta  int64
	TotalVolume  uint64
	TotalProfit  int64
	Jackpot      uint64
	VaultBalance uint64
}

// Stats is the public view of a house.
type Stats struct {
	House        *House
	VaultBalance uint64
	Withdrawable uint64
}

// VaultAddress derives the backing account of a game's house.
func VaultAddress(game string) [20]byte {
	return crypto.DeriveIdentity("wagerchain/house/" + game)
}

func saturatingAdd(a, b uint64) uint64 {
	if a+b < a {
		return ^uint64(0)
	}
	return a + b
}
