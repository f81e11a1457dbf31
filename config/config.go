package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"wagerchain/crypto"
	"wagerchain/native/games"
)

type Config struct {
	DataDir                string           `toml:"DataDir"`
	NetworkName            string           `toml:"NetworkName"`
	AuthorityKeystorePath  string           `toml:"AuthorityKeystorePath"`
	AuthorityPassphraseEnv string           `toml:"AuthorityPassphraseEnv"`
	FaucetEnabled          bool             `toml:"FaucetEnabled"`
	FaucetMaxAmount        uint64           `toml:"FaucetMaxAmount"`
	Entropy                Entropy          `toml:"entropy"`
	Clock                  Clock            `toml:"clock"`
	Referral               Referral         `toml:"referral"`
	Houses                 map[string]House `toml:"houses"`
	Pauses                 Pauses           `toml:"pauses"`
	Quota                  Quota            `toml:"quota"`
}

// Load loads the configuration from the given path. A missing file is
// replaced by a persisted default with a freshly generated authority key.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown key %s", path, undecoded[0])
	}

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "wager-local"
	}
	if strings.TrimSpace(cfg.Entropy.Mode) == "" {
		cfg.Entropy.Mode = "weak"
	}
	if strings.TrimSpace(cfg.Referral.Mode) == "" {
		cfg.Referral.Mode = "shared"
	}
	if cfg.Houses == nil {
		cfg.Houses = map[string]House{}
	}
	normalized := make(map[string]House, len(cfg.Houses))
	for name, house := range cfg.Houses {
		normalized[games.Normalize(name)] = house
	}
	cfg.Houses = normalized
}

// Passphrase reads the authority keystore passphrase from the configured
// environment variable. An unset variable means an unencrypted dev key.
func (cfg *Config) Passphrase() string {
	if cfg.AuthorityPassphraseEnv == "" {
		return ""
	}
	return os.Getenv(cfg.AuthorityPassphraseEnv)
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.AuthorityKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveKeyFile(keystorePath, key, cfg.Passphrase(), crypto.LightScrypt); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.AuthorityKeystorePath != keystorePath {
		cfg.AuthorityKeystorePath = keystorePath
		return persist(configPath, cfg)
	}
	return nil
}

// createDefault creates and saves a default configuration file with one
// house per supported game.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir:         "./wager-data",
		NetworkName:     "wager-local",
		FaucetEnabled:   true,
		FaucetMaxAmount: 1_000_000_000,
		Entropy:         Entropy{Mode: "weak"},
		Clock:           Clock{GenesisUnix: 1_700_000_000, SlotMillis: 400},
		Referral: Referral{
			Mode:                     "shared",
			RateBps:                  500,
			DistributionIntervalSecs: 7 * 24 * 60 * 60,
			Tiers: []Tier{
				{AboveVolume: 25_000_000_000, BonusBps: 100},
				{AboveVolume: 100_000_000_000, BonusBps: 200},
			},
		},
		Houses: map[string]House{},
	}
	for _, name := range games.Names() {
		cfg.Houses[name] = House{InitialDeposit: 10_000_000_000}
	}
	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "authority.keystore")
}
