package referral

import (
	"strconv"

	"wagerchain/core/types"
	"wagerchain/crypto"
)

const (
	// EventTypeRegistered is emitted when a referrer signs up for a game.
	EventTypeRegistered = "referral.registered"
	// EventTypeAccrued is emitted when a house-favourable wager credits a referrer.
	EventTypeAccrued = "referral.accrued"
	// EventTypePoolFunded is emitted when the authority tops up the pool.
	EventTypePoolFunded = "referral.pool.funded"
	// EventTypeDistributed is emitted when a claim window opens.
	EventTypeDistributed = "referral.distributed"
	// EventTypeClaimed is emitted when a referrer is paid.
	EventTypeClaimed = "referral.claimed"
)

func RegisteredEvent(game string, owner [20]byte, count uint64) *types.Event {
	return &types.Event{
		Type: EventTypeRegistered,
		Attributes: map[string]string{
			"game":          game,
			"referrer":      crypto.FormatIdentity(owner),
			"referrerCount": strconv.FormatUint(count, 10),
		},
	}
}

func AccruedEvent(game string, owner [20]byte, volume, amount uint64, mode Mode) *types.Event {
	evt := &types.Event{
		Type: EventTypeAccrued,
		Attributes: map[string]string{
			"game":   game,
			"volume": strconv.FormatUint(volume, 10),
			"amount": strconv.FormatUint(amount, 10),
			"mode":   mode.String(),
		},
	}
	if !isZeroAddress(owner) {
		evt.Attributes["referrer"] = crypto.FormatIdentity(owner)
	}
	return evt
}

func PoolFundedEvent(game string, from [20]byte, amount, pool uint64) *types.Event {
	return &types.Event{
		Type: EventTypePoolFunded,
		Attributes: map[string]string{
			"game":   game,
			"from":   crypto.FormatIdentity(from),
			"amount": strconv.FormatUint(amount, 10),
			"pool":   strconv.FormatUint(pool, 10),
		},
	}
}

func DistributedEvent(game string, pool, contributions uint64, at int64) *types.Event {
	return &types.Event{
		Type: EventTypeDistributed,
		Attributes: map[string]string{
			"game":          game,
			"pool":          strconv.FormatUint(pool, 10),
			"contributions": strconv.FormatUint(contributions, 10),
			"at":            strconv.FormatInt(at, 10),
		},
	}
}

func ClaimedEvent(game string, owner [20]byte, amount, poolAfter uint64) *types.Event {
	return &types.Event{
		Type: EventTypeClaimed,
		Attributes: map[string]string{
			"game":      game,
			"referrer":  crypto.FormatIdentity(owner),
			"amount":    strconv.FormatUint(amount, 10),
			"poolAfter": strconv.FormatUint(poolAfter, 10),
		},
	}
}
