package config

import (
	"fmt"

	"wagerchain/native/entropy"
	"wagerchain/native/games"
	"wagerchain/native/house"
)

// Validate rejects configurations the engines would refuse at runtime.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}
	if _, err := entropy.ParseMode(cfg.Entropy.Mode); err != nil {
		return fmt.Errorf("entropy: %w", err)
	}
	referralParams, err := cfg.ReferralParams()
	if err != nil {
		return err
	}
	if err := referralParams.Validate(); err != nil {
		return err
	}
	for name, h := range cfg.Houses {
		if !games.Known(name) {
			return fmt.Errorf("houses: unknown game %q", name)
		}
		if h.MinBet > 0 && h.MaxBet > 0 && h.MinBet > h.MaxBet {
			return fmt.Errorf("houses.%s: MinBet above MaxBet", name)
		}
		if h.EdgeBps >= house.BpsDenominator {
			return fmt.Errorf("houses.%s: EdgeBps must be below %d", name, house.BpsDenominator)
		}
		if h.JackpotContributionBps > house.MaxJackpotContribution {
			return fmt.Errorf("houses.%s: JackpotContributionBps above %d", name, house.MaxJackpotContribution)
		}
		if h.MaxMultiplierBps != 0 && h.MaxMultiplierBps <= games.OneX {
			return fmt.Errorf("houses.%s: MaxMultiplierBps must exceed %d", name, games.OneX)
		}
	}
	if cfg.Quota.EpochSeconds == 0 && (cfg.Quota.MaxWagersPerEpoch > 0 || cfg.Quota.MaxStakePerEpoch > 0) {
		return fmt.Errorf("quota: EpochSeconds required when limits are set")
	}
	if cfg.Clock.GenesisUnix < 0 {
		return fmt.Errorf("clock: negative genesis")
	}
	return nil
}
