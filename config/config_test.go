package config

import (
	"os"
	"path/filepath"
	"testing"

	"wagerchain/crypto"
	"wagerchain/native/entropy"
	"wagerchain/native/games"
	"wagerchain/native/referral"
)

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "casino.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AuthorityKeystorePath != filepath.Join(dir, "authority.keystore") {
		t.Fatalf("unexpected keystore path %q", cfg.AuthorityKeystorePath)
	}
	if _, err := crypto.LoadKeyFile(cfg.AuthorityKeystorePath, ""); err != nil {
		t.Fatalf("generated keystore unreadable: %v", err)
	}
	if len(cfg.Houses) != len(games.Names()) {
		t.Fatalf("expected a house per game, got %d", len(cfg.Houses))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not persisted: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.AuthorityKeystorePath != cfg.AuthorityKeystorePath || reloaded.Referral.RateBps != 500 {
		t.Fatalf("reloaded config differs: %+v", reloaded)
	}
}

func TestLoadParsesSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "casino.toml")
	contents := `DataDir = "./data"
NetworkName = "wager-test"
AuthorityKeystorePath = "` + filepath.Join(dir, "auth.keystore") + `"

[entropy]
Mode = "commit-reveal"

[clock]
GenesisUnix = 1700000000
SlotMillis = 1000

[referral]
Mode = "direct"
RateBps = 700
DistributionIntervalSecs = 3600
RequireDistribution = true

[[referral.Tiers]]
AboveVolume = 1000
BonusBps = 50

[houses.Slots]
MinBet = 10
MaxBet = 1000
JackpotContributionBps = 25

[houses.crash]
MaxMultiplierBps = 500000

[pauses]
Referral = true

[quota]
MaxWagersPerEpoch = 10
EpochSeconds = 60
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.NetworkName != "wager-test" || cfg.Entropy.Mode != "commit-reveal" {
		t.Fatalf("unexpected top level %+v", cfg)
	}
	slots := cfg.HouseParams("slots")
	if slots.MinBet != 10 || slots.MaxBet != 1000 || slots.JackpotContributionBps != 25 {
		t.Fatalf("house names must normalise: %+v", slots)
	}
	if cfg.HouseParams("crash").MaxMultiplierBps != 500_000 {
		t.Fatalf("unexpected crash params")
	}

	params, err := cfg.ReferralParams()
	if err != nil {
		t.Fatalf("referral params: %v", err)
	}
	if params.Mode != referral.ModeDirect || params.RateBps != 700 || params.DistributionInterval != 3600 || !params.RequireDistribution {
		t.Fatalf("unexpected referral params %+v", params)
	}
	if len(params.Tiers) != 1 || params.Tiers[0].Above != 1000 {
		t.Fatalf("unexpected tiers %+v", params.Tiers)
	}

	source, err := cfg.EntropySource()
	if err != nil {
		t.Fatalf("entropy: %v", err)
	}
	if _, ok := source.(*entropy.CommitReveal); !ok {
		t.Fatalf("expected commit-reveal source, got %T", source)
	}
	if !cfg.PauseSet().IsPaused("referral") || cfg.PauseSet().IsPaused("casino") {
		t.Fatalf("unexpected pauses")
	}
	if q := cfg.QuotaParams(); !q.Enabled() || q.MaxWagersPerEpoch != 10 {
		t.Fatalf("unexpected quota %+v", q)
	}
	if cfg.ClockSource().SlotDuration.Seconds() != 1 {
		t.Fatalf("unexpected slot duration")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown key":  "Bogus = 1\n",
		"bad entropy":  "[entropy]\nMode = \"dice\"\n",
		"bad referral": "[referral]\nMode = \"pyramid\"\n",
		"unknown game": "[houses.poker]\nMinBet = 1\n",
		"quota epoch":  "[quota]\nMaxWagersPerEpoch = 5\n",
		"edge":         "[houses.dice]\nEdgeBps = 10000\n",
	}
	for name, contents := range cases {
		dir := t.TempDir()
		path := filepath.Join(dir, "casino.toml")
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatalf("%s: write: %v", name, err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
