package games

import "fmt"

const coinFlipMultiplierBps = 2 * BpsDenominator

// CoinFlipGame wins when the draw lands under the win chance and pays 2x.
type CoinFlipGame struct {
	winChance uint64
}

// NewCoinFlip derives the win chance from the edge: 400 bps gives 48%.
func NewCoinFlip(edgeBps uint64) (*CoinFlipGame, error) {
	if edgeBps >= BpsDenominator {
		return nil, fmt.Errorf("coinflip: edge %d bps out of range", edgeBps)
	}
	return &CoinFlipGame{winChance: (BpsDenominator - edgeBps) / 200}, nil
}

// WinChance returns the winning threshold in percent.
func (g *CoinFlipGame) WinChance() uint64 { return g.winChance }

func (*CoinFlipGame) Name() string { return CoinFlip }

func (*CoinFlipGame) Validate(Params) error { return nil }

func (*CoinFlipGame) Resolve(draw uint64, _ Params) Outcome {
	return Outcome{Value: draw % 100}
}

func (g *CoinFlipGame) Payout(stake uint64, o Outcome, _ Params) (Result, error) {
	if o.Value >= g.winChance {
		return Result{}, nil
	}
	payout, err := ApplyBps(stake, coinFlipMultiplierBps)
	if err != nil {
		return Result{}, err
	}
	return Result{Win: true, Payout: payout, MultiplierBps: coinFlipMultiplierBps}, nil
}

func (*CoinFlipGame) MaxPayout(stake uint64, _ Params) (uint64, error) {
	return ApplyBps(stake, coinFlipMultiplierBps)
}
