package config

import (
	"time"

	"wagerchain/core/clock"
	"wagerchain/native/common"
	"wagerchain/native/entropy"
	"wagerchain/native/house"
	"wagerchain/native/referral"
)

// HouseParams converts the configured economics of a game.
func (cfg *Config) HouseParams(game string) house.Params {
	h := cfg.Houses[game]
	return house.Params{
		MinBet:                 h.MinBet,
		MaxBet:                 h.MaxBet,
		MaxBetCap:              h.MaxBetCap,
		HouseEdgeBps:           h.EdgeBps,
		MaxBetHouseBps:         h.MaxBetHouseBps,
		MaxMultiplierBps:       h.MaxMultiplierBps,
		JackpotContributionBps: h.JackpotContributionBps,
		WithdrawLimitBps:       h.WithdrawLimitBps,
		MinReserve:             h.MinReserve,
	}
}

// ReferralParams converts the referral section, filling engine defaults.
func (cfg *Config) ReferralParams() (referral.Params, error) {
	params := referral.DefaultParams()
	mode, err := referral.ParseMode(cfg.Referral.Mode)
	if err != nil {
		return params, err
	}
	params.Mode = mode
	if cfg.Referral.RateBps > 0 {
		params.RateBps = cfg.Referral.RateBps
	}
	if cfg.Referral.DistributionIntervalSecs > 0 {
		params.DistributionInterval = cfg.Referral.DistributionIntervalSecs
	}
	params.RequireDistribution = cfg.Referral.RequireDistribution
	if len(cfg.Referral.Tiers) > 0 {
		params.Tiers = make([]referral.Tier, len(cfg.Referral.Tiers))
		for i, tier := range cfg.Referral.Tiers {
			params.Tiers[i] = referral.Tier{Above: tier.AboveVolume, BonusBps: tier.BonusBps}
		}
	}
	return params, nil
}

// EntropySource builds the configured outcome source.
func (cfg *Config) EntropySource() (entropy.Source, error) {
	mode, err := entropy.ParseMode(cfg.Entropy.Mode)
	if err != nil {
		return nil, err
	}
	return entropy.NewSource(mode)
}

// ClockSource builds the slot clock.
func (cfg *Config) ClockSource() *clock.System {
	genesis := clock.Genesis
	if cfg.Clock.GenesisUnix > 0 {
		genesis = time.Unix(cfg.Clock.GenesisUnix, 0).UTC()
	}
	return clock.NewSystem(genesis, time.Duration(cfg.Clock.SlotMillis)*time.Millisecond)
}

// QuotaParams converts the quota section.
func (cfg *Config) QuotaParams() common.Quota {
	return common.Quota{
		MaxWagersPerEpoch: cfg.Quota.MaxWagersPerEpoch,
		MaxStakePerEpoch:  cfg.Quota.MaxStakePerEpoch,
		EpochSeconds:      cfg.Quota.EpochSeconds,
	}
}

// PauseSet seeds the module switchboard.
func (cfg *Config) PauseSet() *common.PauseSet {
	return common.NewPauseSet(map[string]bool{
		"casino":   cfg.Pauses.Casino,
		"house":    cfg.Pauses.House,
		"referral": cfg.Pauses.Referral,
	})
}
