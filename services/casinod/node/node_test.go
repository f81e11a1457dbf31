package node

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"wagerchain/config"
	"wagerchain/core/clock"
	"wagerchain/core/events"
	"wagerchain/native/casino"
	"wagerchain/native/entropy"
	"wagerchain/native/house"
	"wagerchain/storage"
)

var (
	authority = [20]byte{0xAA}
	player    = [20]byte{0x01}
)

type fixedSource struct {
	mu    sync.Mutex
	draws []uint64
}

func (s *fixedSource) Draw(entropy.Input) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.draws) == 0 {
		return 0, errors.New("script exhausted")
	}
	next := s.draws[0]
	s.draws = s.draws[1:]
	return next, nil
}

type captureSink struct {
	types []string
}

func (c *captureSink) Emit(evt events.Event) { c.types = append(c.types, evt.EventType()) }

func testConfig() *config.Config {
	return &config.Config{
		FaucetEnabled:   true,
		FaucetMaxAmount: 500_000_000,
		Entropy:         config.Entropy{Mode: "weak"},
		Referral:        config.Referral{Mode: "shared"},
		Houses: map[string]config.House{
			"coinflip": {InitialDeposit: 1_000_000_000},
			"crash":    {InitialDeposit: 2_000_000_000},
		},
	}
}

func newTestNode(t *testing.T, db storage.Database, opts ...Option) *Node {
	t.Helper()
	base := []Option{WithClock(clock.NewManual(10, 1_700_000_000))}
	n, err := New(testConfig(), db, authority, append(base, opts...)...)
	require.NoError(t, err)
	return n
}

func TestBootstrapOpensHousesOnce(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	n := newTestNode(t, db)

	stats, err := n.HouseStats("coinflip")
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000_000), stats.VaultBalance)
	require.Equal(t, uint64(1_000_000_000), stats.House.TotalDeposited)
	require.Equal(t, authority, stats.House.Authority)

	crash, err := n.HouseStats("crash")
	require.NoError(t, err)
	require.NotZero(t, crash.House.MaxMultiplierBps)

	bal, err := n.Balance(authority)
	require.NoError(t, err)
	require.Zero(t, bal)

	// A restart over the same database keeps the existing vaults.
	again := newTestNode(t, db)
	stats, err = again.HouseStats("coinflip")
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000_000), stats.VaultBalance)

	list, err := again.Houses()
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestPlayPublishesAfterCommit(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	sink := &captureSink{}
	source := &fixedSource{}
	n := newTestNode(t, db, WithSink(sink), WithSource(source))

	_, err := n.Faucet(player, 100_000_000)
	require.NoError(t, err)
	before := len(sink.types)

	source.draws = []uint64{47}
	s, err := n.Play(casino.PlayRequest{Player: player, Game: "coinflip", Amount: 10_000_000})
	require.NoError(t, err)
	require.True(t, s.Win)
	require.Equal(t, uint64(20_000_000), s.Payout)
	require.Contains(t, sink.types[before:], casino.EventTypePlayed)
	require.Contains(t, sink.types[before:], house.EventTypeWagerSettled)

	bal, err := n.Balance(player)
	require.NoError(t, err)
	require.Equal(t, uint64(110_000_000), bal)
}

func TestFailedOperationPublishesNothing(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	sink := &captureSink{}
	source := &fixedSource{draws: []uint64{47}}
	n := newTestNode(t, db, WithSink(sink), WithSource(source))
	before := len(sink.types)

	_, err := n.Play(casino.PlayRequest{Player: player, Game: "coinflip", Amount: 10_000_000})
	require.ErrorIs(t, err, house.ErrInsufficientFunds)
	require.Len(t, sink.types, before)
	require.Zero(t, n.buffer.Len())

	stats, err := n.HouseStats("coinflip")
	require.NoError(t, err)
	require.Zero(t, stats.House.TotalWagers)
}

func TestFaucetLimits(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	n := newTestNode(t, db)

	_, err := n.Faucet(player, 0)
	require.ErrorIs(t, err, ErrFaucetLimit)
	_, err = n.Faucet(player, 500_000_001)
	require.ErrorIs(t, err, ErrFaucetLimit)
	bal, err := n.Faucet(player, 500_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(500_000_000), bal)

	n.faucet.enabled = false
	_, err = n.Faucet(player, 1)
	require.ErrorIs(t, err, ErrFaucetDisabled)
}

func TestRotateSeedPersistsReveals(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	plain := newTestNode(t, db)
	_, _, err := plain.Commitment()
	require.ErrorIs(t, err, ErrNoCommitReveal)

	seed := [32]byte{7}
	n := newTestNode(t, db, WithSource(entropy.NewCommitRevealWithSeed(seed)))
	epoch, digest, err := n.Commitment()
	require.NoError(t, err)
	require.Equal(t, uint64(1), epoch)
	require.Equal(t, entropy.Commit(seed), digest)

	_, err = n.RotateSeed(player)
	require.ErrorIs(t, err, ErrUnauthorized)

	reveal, err := n.RotateSeed(authority)
	require.NoError(t, err)
	require.Equal(t, seed, reveal.Seed)
	require.True(t, entropy.Verify(reveal.Seed, reveal.Commitment))

	reveals, err := n.Reveals()
	require.NoError(t, err)
	require.Equal(t, []entropy.Reveal{reveal}, reveals)

	epoch, _, err = n.Commitment()
	require.NoError(t, err)
	require.Equal(t, uint64(2), epoch)
}

func TestCrashRoundThroughNode(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	source := &fixedSource{draws: []uint64{5050}}
	clk := clock.NewManual(10, 1_700_000_000)
	n := newTestNode(t, db, WithSource(source), WithClock(clk))
	_, err := n.Faucet(player, 100_000_000)
	require.NoError(t, err)

	round, err := n.StartRound("crash", authority)
	require.NoError(t, err)
	_, err = n.PlaceBet("crash", round.ID, player, 10_000_000, [20]byte{})
	require.NoError(t, err)
	_, err = n.ActivateRound("crash", round.ID, authority)
	require.NoError(t, err)
	_, err = n.CashOut("crash", round.ID, player, 0)
	require.ErrorIs(t, err, casino.ErrInvalidWager)

	clk.Advance(12, 5)
	_, err = n.CashOut("crash", round.ID, player, 16_000)
	require.ErrorIs(t, err, casino.ErrBelowMinimum)
	res, err := n.CashOut("crash", round.ID, player, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(15_000), res.Bet.CashOutMultiplierBps)
	require.Equal(t, uint64(15_000_000), res.Bet.Payout)
	summary, err := n.EndRound("crash", round.ID, authority)
	require.NoError(t, err)
	require.Zero(t, summary.Losers)

	bet, err := n.PlayerBet("crash", round.ID, player)
	require.NoError(t, err)
	require.True(t, bet.CashedOut)
	ended, err := n.Round("crash", round.ID)
	require.NoError(t, err)
	require.Equal(t, casino.RoundEnded, ended.Status)
}
