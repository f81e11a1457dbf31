package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaWagersExceeded  = errors.New("quota wagers exceeded")
	ErrQuotaStakeCapHit     = errors.New("quota stake cap exceeded")
	ErrQuotaCounterOverflow = errors.New("quota counter overflow")
)

// QuotaNow captures a player's usage in the current epoch.
type QuotaNow struct {
	Wagers  uint32
	Staked  uint64
	EpochID uint64
}

// Quota limits how much a single player may wager per epoch. Zero fields
// are unlimited.
type Quota struct {
	MaxWagersPerEpoch uint32
	MaxStakePerEpoch  uint64
	EpochSeconds      uint32
}

// Enabled reports whether any limit is configured.
func (q Quota) Enabled() bool {
	return q.EpochSeconds > 0 && (q.MaxWagersPerEpoch > 0 || q.MaxStakePerEpoch > 0)
}

// EpochAt maps a unix timestamp onto the quota epoch.
func (q Quota) EpochAt(unix int64) uint64 {
	if q.EpochSeconds == 0 || unix <= 0 {
		return 0
	}
	return uint64(unix) / uint64(q.EpochSeconds)
}

// CheckQuota verifies the additional wager fits within the quota. The
// returned QuotaNow reflects the updated counters; on denial prev is returned
// unchanged.
func CheckQuota(q Quota, nowEpoch uint64, prev QuotaNow, addWagers uint32, addStake uint64) (QuotaNow, error) {
	next := prev
	if prev.EpochID != nowEpoch {
		next = QuotaNow{EpochID: nowEpoch}
	}

	if addWagers > 0 {
		if next.Wagers > math.MaxUint32-addWagers {
			return prev, ErrQuotaCounterOverflow
		}
		next.Wagers += addWagers
	}
	if q.MaxWagersPerEpoch > 0 && next.Wagers > q.MaxWagersPerEpoch {
		return prev, ErrQuotaWagersExceeded
	}

	if addStake > 0 {
		if next.Staked > math.MaxUint64-addStake {
			return prev, ErrQuotaCounterOverflow
		}
		next.Staked += addStake
	}
	if q.MaxStakePerEpoch > 0 && next.Staked > q.MaxStakePerEpoch {
		return prev, ErrQuotaStakeCapHit
	}

	return next, nil
}
