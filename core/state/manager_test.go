package state

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"wagerchain/native/bank"
	"wagerchain/native/casino"
	"wagerchain/native/common"
	"wagerchain/native/house"
	"wagerchain/native/referral"
	"wagerchain/storage"
)

func newTestManager(t *testing.T) (*Manager, *storage.MemDB) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewManager(db), db
}

func TestBalancesAndTransfer(t *testing.T) {
	mgr, _ := newTestManager(t)
	a, b := [20]byte{1}, [20]byte{2}

	require.NoError(t, mgr.Credit(a, 1_000))
	require.NoError(t, mgr.Transfer(a, b, 400))

	balA, err := mgr.Balance(a)
	require.NoError(t, err)
	balB, err := mgr.Balance(b)
	require.NoError(t, err)
	require.Equal(t, uint64(600), balA)
	require.Equal(t, uint64(400), balB)

	err = mgr.Transfer(a, b, 601)
	require.ErrorIs(t, err, bank.ErrInsufficientBalance)

	require.NoError(t, mgr.Transfer(a, b, 600))
	balA, err = mgr.Balance(a)
	require.NoError(t, err)
	require.Zero(t, balA)
}

func TestHouseRoundTripKeepsSignedProfit(t *testing.T) {
	mgr, _ := newTestManager(t)
	for _, profit := range []int64{0, 42, -10_000_000, math.MinInt64, math.MaxInt64} {
		h := &house.House{
			Game:             "Dice",
			Authority:        [20]byte{0xAA},
			Vault:            house.VaultAddress("dice"),
			MinBet:           1,
			MaxBet:           2,
			TotalProfit:      profit,
			LastDistribution: 1_700_000_000,
			EmergencyPause:   true,
			CreatedAt:        1_690_000_000,
		}
		require.NoError(t, mgr.HousePut(h))
		got, ok, err := mgr.HouseGet("dice")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, *h, *got)
	}
	_, ok, err := mgr.HouseGet("slots")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRecordsRoundTrip(t *testing.T) {
	mgr, _ := newTestManager(t)
	player := [20]byte{0x01}

	ref := &referral.Referrer{Game: "slots", Owner: [20]byte{0x0A}, Contribution: 300_000, LastClaim: 1_700_000_100, CreatedAt: 1_700_000_000}
	require.NoError(t, mgr.ReferrerPut(ref))
	gotRef, ok, err := mgr.ReferrerGet("slots", ref.Owner)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, *ref, *gotRef)

	round := &casino.Round{
		Game:          "crash",
		ID:            3,
		Status:        casino.RoundActive,
		CrashPointBps: 25_000,
		TotalBets:     10,
		TotalPlayers:  1,
		StartedAt:     1_700_000_000,
		Players:       [][20]byte{player},
	}
	require.NoError(t, mgr.RoundPut(round))
	gotRound, ok, err := mgr.RoundGet("crash", 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, round, gotRound)

	bet := &casino.PlayerBet{Game: "crash", RoundID: 3, Player: player, Amount: 10, CashedOut: true, CashOutMultiplierBps: 20_000, Payout: 20, Settled: true, PlacedAt: 1_700_000_001}
	require.NoError(t, mgr.PlayerBetPut(bet))
	gotBet, ok, err := mgr.PlayerBetGet("crash", 3, player)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, *bet, *gotBet)

	_, ok, err = mgr.PlayerBetGet("crash", 4, player)
	require.NoError(t, err)
	require.False(t, ok)

	usage := common.QuotaNow{Wagers: 3, Staked: 30, EpochID: 9}
	require.NoError(t, mgr.QuotaPut("dice", player, usage))
	gotUsage, err := mgr.QuotaGet("dice", player)
	require.NoError(t, err)
	require.Equal(t, usage, gotUsage)
}

func TestAtomicCommitsOrDiscards(t *testing.T) {
	mgr, db := newTestManager(t)
	a, b := [20]byte{1}, [20]byte{2}
	require.NoError(t, mgr.Credit(a, 100))

	boom := errors.New("boom")
	err := mgr.Atomic(func() error {
		if err := mgr.Transfer(a, b, 60); err != nil {
			return err
		}
		staged, err := mgr.Balance(b)
		require.NoError(t, err)
		require.Equal(t, uint64(60), staged)
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, mgr.InAtomic())

	balA, _ := mgr.Balance(a)
	balB, _ := mgr.Balance(b)
	require.Equal(t, uint64(100), balA)
	require.Zero(t, balB)

	err = mgr.Atomic(func() error {
		if err := mgr.Transfer(a, b, 100); err != nil {
			return err
		}
		// Nested scopes join the outer one.
		return mgr.Atomic(func() error { return mgr.Credit(b, 5) })
	})
	require.NoError(t, err)
	balA, _ = mgr.Balance(a)
	balB, _ = mgr.Balance(b)
	require.Zero(t, balA)
	require.Equal(t, uint64(105), balB)

	// The emptied account is deleted, not stored as zero.
	_, err = db.Get(balanceKey(a))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestHousesListsCommittedRecords(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.HousePut(&house.House{Game: "dice"}))
	require.NoError(t, mgr.Atomic(func() error {
		return mgr.HousePut(&house.House{Game: "slots", TotalProfit: -5})
	}))
	list, err := mgr.Houses()
	require.NoError(t, err)
	require.Len(t, list, 2)
	games := map[string]int64{}
	for _, h := range list {
		games[h.Game] = h.TotalProfit
	}
	require.Equal(t, map[string]int64{"dice": 0, "slots": -5}, games)
}

func TestKVHelpers(t *testing.T) {
	mgr, _ := newTestManager(t)
	var list []uint64
	require.NoError(t, mgr.KVGetList([]byte("missing"), &list))
	require.NotNil(t, list)
	require.Empty(t, list)

	require.NoError(t, mgr.KVPut([]byte("entropy/commitment"), []uint64{1, 2}))
	require.NoError(t, mgr.KVGetList([]byte("entropy/commitment"), &list))
	require.Equal(t, []uint64{1, 2}, list)

	require.NoError(t, mgr.KVDelete([]byte("entropy/commitment")))
	ok, err := mgr.KVGet([]byte("entropy/commitment"), nil)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = mgr.KVGet(nil, nil)
	require.Error(t, err)
}
