package config

// Entropy selects the outcome source.
type Entropy struct {
	// Mode is weak, secure or commit-reveal.
	Mode string `toml:"Mode"`
}

// Clock anchors slot numbering.
type Clock struct {
	GenesisUnix int64  `toml:"GenesisUnix"`
	SlotMillis  uint32 `toml:"SlotMillis"`
}

// Tier raises the referral rate above a referred volume.
type Tier struct {
	AboveVolume uint64 `toml:"AboveVolume"`
	BonusBps    uint64 `toml:"BonusBps"`
}

// Referral configures the referral pool shared by every house.
type Referral struct {
	Mode                     string `toml:"Mode"`
	RateBps                  uint64 `toml:"RateBps"`
	DistributionIntervalSecs int64  `toml:"DistributionIntervalSecs"`
	RequireDistribution      bool   `toml:"RequireDistribution"`
	Tiers                    []Tier `toml:"Tiers"`
}

// House holds the per-game economics applied when a house is opened.
// Zero values fall back to the engine defaults.
type House struct {
	MinBet                 uint64 `toml:"MinBet"`
	MaxBet                 uint64 `toml:"MaxBet"`
	MaxBetCap              uint64 `toml:"MaxBetCap"`
	EdgeBps                uint64 `toml:"EdgeBps"`
	MaxBetHouseBps         uint64 `toml:"MaxBetHouseBps"`
	MaxMultiplierBps       uint64 `toml:"MaxMultiplierBps"`
	JackpotContributionBps uint64 `toml:"JackpotContributionBps"`
	WithdrawLimitBps       uint64 `toml:"WithdrawLimitBps"`
	MinReserve             uint64 `toml:"MinReserve"`
	// InitialDeposit is minted into the vault at first start on dev networks.
	InitialDeposit uint64 `toml:"InitialDeposit"`
}

type Pauses struct {
	Casino   bool `toml:"Casino"`
	House    bool `toml:"House"`
	Referral bool `toml:"Referral"`
}

// Quota limits wagers per player and game within an epoch.
type Quota struct {
	MaxWagersPerEpoch uint32 `toml:"MaxWagersPerEpoch"`
	MaxStakePerEpoch  uint64 `toml:"MaxStakePerEpoch"` // in base units
	EpochSeconds      uint32 `toml:"EpochSeconds"`     // e.g., 3600
}
