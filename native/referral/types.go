package referral

import (
	"fmt"
	"strings"
)

// Mode selects how accrued rewards become claimable.
type Mode uint8

const (
	// ModeDirect credits each referrer's pending rewards as wagers settle.
	ModeDirect Mode = iota + 1
	// ModeShared pools accruals and pays claims pro rata to contribution.
	ModeShared
)

func (m Mode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeShared:
		return "shared"
	default:
		return "unknown"
	}
}

// ParseMode accepts "direct" or "shared".
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "direct":
		return ModeDirect, nil
	case "shared", "":
		return ModeShared, nil
	default:
		return 0, fmt.Errorf("referral: unknown mode %q", raw)
	}
}

// Referrer is the per-game record of an identity that refers players.
type Referrer struct {
	Game                string
	Owner               [20]byte
	PendingRewards      uint64
	TotalEarned         uint64
	TotalReferredVolume uint64
	Contribution        uint64
	ClaimCount          uint64
	LastClaim           int64
	CreatedAt           int64
}

// Clone returns a copy of the record.
func (r *Referrer) Clone() *Referrer {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// Tier raises the accrual rate once a referrer's referred volume exceeds
// Above.
type Tier struct {
	Above    uint64
	BonusBps uint64
}

// Params configure the referral layer of a house.
type Params struct {
	Mode                 Mode
	RateBps              uint64
	DistributionInterval int64
	RequireDistribution  bool
	Tiers                []Tier
}

const (
	DefaultRateBps              = 500
	DefaultDistributionInterval = 7 * 24 * 60 * 60
	maxRateBps                  = 5_000
)

// DefaultTiers grant +1% above 25e9 referred and +2% above 100e9.
func DefaultTiers() []Tier {
	return []Tier{
		{Above: 25_000_000_000, BonusBps: 100},
		{Above: 100_000_000_000, BonusBps: 200},
	}
}

// DefaultParams is shared-pool mode at 5% of house profit.
func DefaultParams() Params {
	return Params{
		Mode:                 ModeShared,
		RateBps:              DefaultRateBps,
		DistributionInterval: DefaultDistributionInterval,
		Tiers:                DefaultTiers(),
	}
}

// Validate rejects inconsistent parameters.
func (p Params) Validate() error {
	if p.Mode != ModeDirect && p.Mode != ModeShared {
		return fmt.Errorf("referral: invalid mode %d", p.Mode)
	}
	if p.RateBps > maxRateBps {
		return fmt.Errorf("referral: rate %d bps above %d", p.RateBps, maxRateBps)
	}
	if p.DistributionInterval < 0 {
		return fmt.Errorf("referral: negative distribution interval")
	}
	for i, tier := range p.Tiers {
		if p.RateBps+tier.BonusBps > maxRateBps {
			return fmt.Errorf("referral: tier %d rate above %d bps", i, maxRateBps)
		}
		if i > 0 && tier.Above <= p.Tiers[i-1].Above {
			return fmt.Errorf("referral: tiers must ascend")
		}
	}
	return nil
}

// BonusFor returns the tier bonus earned at volume.
func (p Params) BonusFor(volume uint64) uint64 {
	var bonus uint64
	for _, tier := range p.Tiers {
		if volume > tier.Above && tier.BonusBps > bonus {
			bonus = tier.BonusBps
		}
	}
	return bonus
}

// Stats is the public view of a referrer.
type Stats struct {
	Referrer       *Referrer
	Mode           Mode
	RateBps        uint64
	EstimatedShare uint64
	Pool           uint64
	Contributions  uint64
	ReferrerCount  uint64
	NextDistribute int64
}
