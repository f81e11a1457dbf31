package games

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func reelDraw(a, b, c uint64) uint64 {
	return a | b<<reelFieldBits | c<<(2*reelFieldBits)
}

func TestCoinFlipSettlesAtThreshold(t *testing.T) {
	g, err := NewCoinFlip(DefaultCoinFlipEdgeBps)
	if err != nil {
		t.Fatalf("new coinflip: %v", err)
	}
	if g.WinChance() != 48 {
		t.Fatalf("expected 48%% win chance, got %d", g.WinChance())
	}

	win, err := g.Payout(10_000_000, g.Resolve(1047, Params{}), Params{})
	if err != nil {
		t.Fatalf("payout: %v", err)
	}
	if !win.Win || win.Payout != 20_000_000 {
		t.Fatalf("expected 2x win, got %+v", win)
	}

	loss, err := g.Payout(10_000_000, g.Resolve(48, Params{}), Params{})
	if err != nil {
		t.Fatalf("payout: %v", err)
	}
	if loss.Win || loss.Payout != 0 {
		t.Fatalf("expected loss at threshold, got %+v", loss)
	}
}

func TestDiceMultiplierAndBounds(t *testing.T) {
	g, err := NewDice(DefaultDiceEdgeBps)
	if err != nil {
		t.Fatalf("new dice: %v", err)
	}
	under := Params{Side: DiceUnder, Target: 50}
	if got := g.MultiplierBps(under); got != 19_400 {
		t.Fatalf("expected 1.94x, got %d", got)
	}
	over := Params{Side: DiceOver, Target: 75}
	if got := g.MultiplierBps(over); got != 38_800 {
		t.Fatalf("expected 3.88x, got %d", got)
	}

	// draw 48 rolls 49, which is under 50.
	res, err := g.Payout(1_000_000, g.Resolve(48, under), under)
	if err != nil || !res.Win || res.Payout != 1_940_000 {
		t.Fatalf("unexpected under result %+v, %v", res, err)
	}
	// draw 49 rolls 50, which is not under 50.
	res, err = g.Payout(1_000_000, g.Resolve(49, under), under)
	if err != nil || res.Win {
		t.Fatalf("roll equal to target must lose: %+v, %v", res, err)
	}

	for _, target := range []uint8{9, 91} {
		if err := g.Validate(Params{Side: DiceUnder, Target: target}); !errors.Is(err, ErrInvalidTarget) {
			t.Fatalf("target %d: expected range error, got %v", target, err)
		}
	}
	if err := g.Validate(Params{Target: 50}); !errors.Is(err, ErrInvalidSide) {
		t.Fatalf("expected side error, got %v", err)
	}
}

func TestSlotsPayoutTable(t *testing.T) {
	g, err := NewSlots(DefaultReels())
	if err != nil {
		t.Fatalf("new slots: %v", err)
	}
	cases := []struct {
		name    string
		draw    uint64
		reels   [3]Symbol
		payout  uint64
		jackpot bool
	}{
		{"three sevens", reelDraw(97, 98, 99), [3]Symbol{Seven, Seven, Seven}, 50_000, true},
		{"three bars", reelDraw(85, 90, 96), [3]Symbol{Bar, Bar, Bar}, 10_000, false},
		{"three cherries", reelDraw(0, 39, 100), [3]Symbol{Cherry, Cherry, Cherry}, 2_000, false},
		{"pair", reelDraw(40, 64, 0), [3]Symbol{Lemon, Lemon, Cherry}, 1_000, false},
		{"split pair", reelDraw(70, 0, 84), [3]Symbol{Orange, Cherry, Orange}, 1_000, false},
		{"nothing", reelDraw(0, 40, 65), [3]Symbol{Cherry, Lemon, Orange}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := g.Resolve(tc.draw, Params{})
			if out.Reels != tc.reels {
				t.Fatalf("unexpected reels %v", out.Reels)
			}
			res, err := g.Payout(1_000, out, Params{})
			if err != nil {
				t.Fatalf("payout: %v", err)
			}
			if res.Payout != tc.payout || res.JackpotHit != tc.jackpot {
				t.Fatalf("unexpected result %+v", res)
			}
		})
	}
	maxPayout, err := g.MaxPayout(1_000, Params{})
	if err != nil || maxPayout != 50_000 {
		t.Fatalf("unexpected max payout %d, %v", maxPayout, err)
	}
}

func TestSlotsReelFrequenciesConverge(t *testing.T) {
	g, err := NewSlots(DefaultReels())
	if err != nil {
		t.Fatalf("new slots: %v", err)
	}
	rng := rand.New(rand.NewPCG(7, 11))
	const spins = 100_000
	counts := make(map[Symbol]int)
	for i := 0; i < spins; i++ {
		out := g.Resolve(rng.Uint64(), Params{})
		for _, s := range out.Reels {
			counts[s]++
		}
	}
	total := float64(spins * 3)
	for _, entry := range DefaultReels() {
		want := float64(entry.Weight) / 100
		got := float64(counts[entry.Symbol]) / total
		if math.Abs(got-want) > 0.01 {
			t.Fatalf("%s frequency %.4f, want %.2f", entry.Symbol, got, want)
		}
	}
}

func TestSlotsRejectsInvertedTable(t *testing.T) {
	reels := DefaultReels()
	reels[4].Weight = 50
	if _, err := NewSlots(reels); !errors.Is(err, errBadReels) {
		t.Fatalf("expected table error, got %v", err)
	}
}

func TestRouletteBets(t *testing.T) {
	g := NewRoulette()
	cases := []struct {
		bet    RouletteBet
		pocket uint64
		payout uint64
	}{
		{RouletteBet{Kind: BetNumber, Value: 17}, 17, 36_000},
		{RouletteBet{Kind: BetNumber, Value: 17}, 18, 0},
		{RouletteBet{Kind: BetNumber, Value: 0}, 0, 36_000},
		{RouletteBet{Kind: BetRed}, 1, 2_000},
		{RouletteBet{Kind: BetRed}, 2, 0},
		{RouletteBet{Kind: BetBlack}, 2, 2_000},
		{RouletteBet{Kind: BetBlack}, 0, 0},
		{RouletteBet{Kind: BetGreen}, 0, 36_000},
		{RouletteBet{Kind: BetEven}, 0, 0},
		{RouletteBet{Kind: BetEven}, 36, 2_000},
		{RouletteBet{Kind: BetOdd}, 35, 2_000},
		{RouletteBet{Kind: BetLow}, 18, 2_000},
		{RouletteBet{Kind: BetHigh}, 18, 0},
		{RouletteBet{Kind: BetDozen, Value: 2}, 25, 3_000},
		{RouletteBet{Kind: BetDozen, Value: 0}, 13, 0},
		{RouletteBet{Kind: BetColumn, Value: 0}, 34, 3_000},
		{RouletteBet{Kind: BetColumn, Value: 2}, 36, 3_000},
	}
	for _, tc := range cases {
		p := Params{Bet: tc.bet}
		res, err := g.Payout(1_000, Outcome{Value: tc.pocket}, p)
		if err != nil {
			t.Fatalf("%s on %d: %v", tc.bet.Kind, tc.pocket, err)
		}
		if res.Payout != tc.payout {
			t.Fatalf("%s(%d) on %d: payout %d, want %d", tc.bet.Kind, tc.bet.Value, tc.pocket, res.Payout, tc.payout)
		}
	}
	if g.Resolve(40, Params{}).Value != 3 {
		t.Fatalf("pocket must be draw mod 37")
	}
	for _, bad := range []RouletteBet{{Kind: BetNumber, Value: 37}, {Kind: BetDozen, Value: 3}, {}} {
		if err := g.Validate(Params{Bet: bad}); !errors.Is(err, ErrInvalidBet) {
			t.Fatalf("expected invalid bet for %+v, got %v", bad, err)
		}
	}
}

func TestCrashPointBounds(t *testing.T) {
	g, err := NewCrash(DefaultCrashEdgeBps, DefaultMaxMultiplierBps)
	if err != nil {
		t.Fatalf("new crash: %v", err)
	}
	if got := g.CrashPoint(0); got != OneX {
		t.Fatalf("r=0 must floor at 1.00x, got %d", got)
	}
	if got := g.CrashPoint(5_000); got != 19_800 {
		t.Fatalf("r=0.5 expected 1.98x, got %d", got)
	}
	if got := g.CrashPoint(9_999); got != DefaultMaxMultiplierBps {
		t.Fatalf("r->1 must clamp to max, got %d", got)
	}
	prev := uint64(0)
	for r := uint64(0); r < BpsDenominator; r += 37 {
		point := g.CrashPoint(r)
		if point < OneX || point > DefaultMaxMultiplierBps || point < prev {
			t.Fatalf("crash point %d for r=%d out of order", point, r)
		}
		prev = point
	}
}

func TestCrashCashOutRules(t *testing.T) {
	g, err := NewCrash(DefaultCrashEdgeBps, DefaultMaxMultiplierBps)
	if err != nil {
		t.Fatalf("new crash: %v", err)
	}
	if _, err := g.CashOut(1_000, OneX, 30_000); !errors.Is(err, ErrCashOutTooLow) {
		t.Fatalf("expected too-low error, got %v", err)
	}
	if _, err := g.CashOut(1_000, 30_001, 30_000); !errors.Is(err, ErrCashOutAboveCrash) {
		t.Fatalf("expected above-crash error, got %v", err)
	}
	payout, err := g.CashOut(1_000, 25_000, 30_000)
	if err != nil || payout != 2_500 {
		t.Fatalf("unexpected cash out %d, %v", payout, err)
	}

	p := Params{TargetBps: 20_000}
	res, err := g.Payout(1_000, Outcome{Value: 20_000}, p)
	if err != nil || !res.Win || res.Payout != 2_000 {
		t.Fatalf("auto cash out at crash point should win: %+v, %v", res, err)
	}
	res, err = g.Payout(1_000, Outcome{Value: 19_999}, p)
	if err != nil || res.Win {
		t.Fatalf("crash below target should lose: %+v, %v", res, err)
	}
	if err := g.Validate(Params{TargetBps: OneX}); !errors.Is(err, ErrInvalidMultiplier) {
		t.Fatalf("expected invalid multiplier, got %v", err)
	}
}

func TestCrashMultiplierClimbsWithTime(t *testing.T) {
	g, err := NewCrash(DefaultCrashEdgeBps, 50_000)
	if err != nil {
		t.Fatalf("new crash: %v", err)
	}
	cases := []struct {
		elapsed int64
		want    uint64
	}{
		{-3, OneX},
		{0, OneX},
		{1, 11_000},
		{5, 15_000},
		{40, 50_000},
		{41, 50_000},
		{1 << 40, 50_000},
	}
	for _, tc := range cases {
		if got := g.MultiplierAt(tc.elapsed); got != tc.want {
			t.Fatalf("elapsed %d: want %d, got %d", tc.elapsed, tc.want, got)
		}
	}
}

func TestMulDivWidens(t *testing.T) {
	got, err := MulDiv(math.MaxUint64, 5_000, BpsDenominator)
	if err != nil {
		t.Fatalf("muldiv: %v", err)
	}
	if got != math.MaxUint64/2 {
		t.Fatalf("unexpected %d", got)
	}
	if _, err := Multiply(math.MaxUint64, 2); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := MulDiv(1, 1, 0); !errors.Is(err, ErrDivideByZero) {
		t.Fatalf("expected divide by zero, got %v", err)
	}
}

func TestNewUnknownGame(t *testing.T) {
	if _, err := New("poker", Options{}); !errors.Is(err, ErrUnknownGame) {
		t.Fatalf("expected unknown game, got %v", err)
	}
	for _, name := range Names() {
		if _, err := New(name, DefaultOptions(name)); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
}
