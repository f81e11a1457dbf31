package games

import "fmt"

// OneX is a 1.00x multiplier in basis points.
const OneX = BpsDenominator

// CrashGrowthBpsPerSecond is how fast a live round's multiplier climbs.
const CrashGrowthBpsPerSecond = 1_000

// CrashGame computes crash points and cash-out payouts. Played directly
// through Payout it behaves as an auto cash-out at Params.TargetBps.
type CrashGame struct {
	edgeBps          uint64
	maxMultiplierBps uint64
}

func NewCrash(edgeBps, maxMultiplierBps uint64) (*CrashGame, error) {
	if edgeBps >= BpsDenominator {
		return nil, fmt.Errorf("crash: edge %d bps out of range", edgeBps)
	}
	if maxMultiplierBps <= OneX {
		return nil, fmt.Errorf("%w: max %d bps", ErrInvalidMultiplier, maxMultiplierBps)
	}
	return &CrashGame{edgeBps: edgeBps, maxMultiplierBps: maxMultiplierBps}, nil
}

// MaxMultiplierBps is the ceiling every crash point is clamped to.
func (g *CrashGame) MaxMultiplierBps() uint64 { return g.maxMultiplierBps }

// CrashPoint maps a draw to rtp/(1-r) with r = (draw mod 10000)/10000,
// clamped into [1.00x, max].
func (g *CrashGame) CrashPoint(draw uint64) uint64 {
	r := draw % BpsDenominator
	rtp := BpsDenominator - g.edgeBps
	point := rtp * BpsDenominator / (BpsDenominator - r)
	if point < OneX {
		point = OneX
	}
	if point > g.maxMultiplierBps {
		point = g.maxMultiplierBps
	}
	return point
}

// MultiplierAt is the live multiplier elapsedSeconds after a round went
// active: 1.00x plus a fixed linear climb, capped at the game maximum.
func (g *CrashGame) MultiplierAt(elapsedSeconds int64) uint64 {
	if elapsedSeconds <= 0 {
		return OneX
	}
	steps := (g.maxMultiplierBps - OneX) / CrashGrowthBpsPerSecond
	if uint64(elapsedSeconds) > steps {
		return g.maxMultiplierBps
	}
	return OneX + uint64(elapsedSeconds)*CrashGrowthBpsPerSecond
}

// CashOut pays stake at multiplierBps provided the round has not crashed
// below it.
func (g *CrashGame) CashOut(stake, multiplierBps, crashPointBps uint64) (uint64, error) {
	if multiplierBps <= OneX {
		return 0, ErrCashOutTooLow
	}
	if multiplierBps > crashPointBps {
		return 0, ErrCashOutAboveCrash
	}
	return ApplyBps(stake, multiplierBps)
}

func (*CrashGame) Name() string { return Crash }

func (g *CrashGame) Validate(p Params) error {
	if p.TargetBps <= OneX || p.TargetBps > g.maxMultiplierBps {
		return fmt.Errorf("%w: target %d bps", ErrInvalidMultiplier, p.TargetBps)
	}
	return nil
}

func (g *CrashGame) Resolve(draw uint64, _ Params) Outcome {
	return Outcome{Value: g.CrashPoint(draw)}
}

func (g *CrashGame) Payout(stake uint64, o Outcome, p Params) (Result, error) {
	if err := g.Validate(p); err != nil {
		return Result{}, err
	}
	if o.Value < p.TargetBps {
		return Result{}, nil
	}
	payout, err := g.CashOut(stake, p.TargetBps, o.Value)
	if err != nil {
		return Result{}, err
	}
	return Result{Win: true, Payout: payout, MultiplierBps: p.TargetBps}, nil
}

func (g *CrashGame) MaxPayout(stake uint64, p Params) (uint64, error) {
	target := p.TargetBps
	if target == 0 {
		target = g.maxMultiplierBps
	}
	return ApplyBps(stake, target)
}
