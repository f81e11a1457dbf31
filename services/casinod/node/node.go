package node

import (
	"fmt"
	"sort"
	"sync"

	"wagerchain/config"
	"wagerchain/core/clock"
	coreerrors "wagerchain/core/errors"
	"wagerchain/core/events"
	"wagerchain/core/state"
	"wagerchain/native/casino"
	"wagerchain/native/common"
	"wagerchain/native/entropy"
	"wagerchain/native/house"
	"wagerchain/native/referral"
	"wagerchain/observability"
	"wagerchain/storage"
)

var (
	ErrFaucetDisabled = coreerrors.New(coreerrors.KindAuthorization, "casinod: faucet disabled")
	ErrFaucetLimit    = coreerrors.New(coreerrors.KindValidation, "casinod: faucet amount out of range")
	ErrUnauthorized   = coreerrors.New(coreerrors.KindAuthorization, "casinod: caller is not the authority")
	ErrNoCommitReveal = coreerrors.New(coreerrors.KindState, "casinod: entropy source is not commit-reveal")
)

var revealsKey = []byte("entropy/reveals")

// Node owns the state manager and every engine. All operations are
// serialised by one mutex and run inside a single atomic state scope; events
// reach the sink only after the scope commits.
type Node struct {
	mu sync.Mutex

	state     *state.Manager
	houses    *house.Engine
	referrals *referral.Engine
	casino    *casino.Engine

	buffer  *events.Buffer
	sink    events.Emitter
	metrics *observability.CasinoMetrics

	authority [20]byte
	clock     clock.Source
	source    entropy.Source
	pauses    *common.PauseSet
	faucet    faucet
}

type faucet struct {
	enabled bool
	max     uint64
}

// Option customises a Node.
type Option func(*Node)

// WithSink forwards committed events to sink.
func WithSink(sink events.Emitter) Option {
	return func(n *Node) {
		if sink != nil {
			n.sink = sink
		}
	}
}

// WithClock replaces the configured slot clock.
func WithClock(c clock.Source) Option {
	return func(n *Node) {
		if c != nil {
			n.clock = c
		}
	}
}

// WithSource replaces the configured entropy source.
func WithSource(s entropy.Source) Option {
	return func(n *Node) {
		if s != nil {
			n.source = s
		}
	}
}

// WithMetrics records settlements and rejections into m.
func WithMetrics(m *observability.CasinoMetrics) Option {
	return func(n *Node) { n.metrics = m }
}

// New wires the engines over db and opens every configured house that does
// not exist yet.
func New(cfg *config.Config, db storage.Database, authority [20]byte, opts ...Option) (*Node, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("casinod: config and database required")
	}
	source, err := cfg.EntropySource()
	if err != nil {
		return nil, fmt.Errorf("casinod: entropy: %w", err)
	}
	refParams, err := cfg.ReferralParams()
	if err != nil {
		return nil, fmt.Errorf("casinod: referral params: %w", err)
	}

	n := &Node{
		state:     state.NewManager(db),
		buffer:    &events.Buffer{},
		sink:      events.NoopEmitter{},
		authority: authority,
		clock:     cfg.ClockSource(),
		source:    source,
		pauses:    cfg.PauseSet(),
		faucet:    faucet{enabled: cfg.FaucetEnabled, max: cfg.FaucetMaxAmount},
	}
	for _, opt := range opts {
		opt(n)
	}

	n.houses = house.NewEngine()
	n.houses.SetState(n.state)
	n.houses.SetEmitter(n.buffer)
	n.houses.SetPauses(n.pauses)
	n.houses.SetNowFunc(n.clock.Unix)

	n.referrals = referral.NewEngine()
	n.referrals.SetState(n.state)
	n.referrals.SetEmitter(n.buffer)
	n.referrals.SetPauses(n.pauses)
	n.referrals.SetNowFunc(n.clock.Unix)
	if err := n.referrals.SetParams(refParams); err != nil {
		return nil, fmt.Errorf("casinod: referral params: %w", err)
	}

	n.casino = casino.NewEngine(n.houses, n.referrals)
	n.casino.SetState(n.state)
	n.casino.SetEmitter(n.buffer)
	n.casino.SetPauses(n.pauses)
	n.casino.SetSource(n.source)
	n.casino.SetClock(n.clock)
	n.casino.SetQuota(cfg.QuotaParams())

	if err := n.bootstrap(cfg); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Node) bootstrap(cfg *config.Config) error {
	names := make([]string, 0, len(cfg.Houses))
	for name := range cfg.Houses {
		names = append(names, name)
	}
	sort.Strings(names)
	return n.exec("bootstrap", func() error {
		for _, game := range names {
			if _, ok, err := n.state.HouseGet(game); err != nil {
				return err
			} else if ok {
				continue
			}
			if _, err := n.casino.OpenHouse(n.authority, game, cfg.HouseParams(game)); err != nil {
				return fmt.Errorf("casinod: open %s house: %w", game, err)
			}
			deposit := cfg.Houses[game].InitialDeposit
			if deposit == 0 {
				continue
			}
			if err := n.state.Credit(n.authority, deposit); err != nil {
				return err
			}
			if _, err := n.houses.Deposit(game, n.authority, deposit); err != nil {
				return fmt.Errorf("casinod: seed %s vault: %w", game, err)
			}
		}
		return nil
	})
}

// exec serialises fn, commits its writes atomically and publishes the events
// it produced. On failure nothing is written or published.
func (n *Node) exec(op string, fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.state.Atomic(fn); err != nil {
		n.buffer.Discard()
		n.metrics.RecordError(op, coreerrors.KindOf(err).String())
		return err
	}
	n.buffer.Flush(n.sink)
	return nil
}

func (n *Node) view(fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fn()
}

// Authority is the identity that administers every house.
func (n *Node) Authority() [20]byte { return n.authority }

// Pauses exposes the module switchboard.
func (n *Node) Pauses() *common.PauseSet { return n.pauses }

// Play settles one instant wager.
func (n *Node) Play(req casino.PlayRequest) (*casino.Settlement, error) {
	var out *casino.Settlement
	err := n.exec("play", func() error {
		s, err := n.casino.Play(req)
		out = s
		return err
	})
	if err != nil {
		return nil, err
	}
	n.metrics.RecordSettlement(out.Game, out.Win, out.Stake, out.Payout, out.ReferralAccrual, out.JackpotHit)
	n.metrics.SetVaultBalance(out.Game, out.Totals.VaultBalance)
	return out, nil
}

// Balance returns the spendable balance of addr.
func (n *Node) Balance(addr [20]byte) (uint64, error) {
	var out uint64
	err := n.view(func() error {
		bal, err := n.state.Balance(addr)
		out = bal
		return err
	})
	return out, err
}

// Faucet credits a development balance.
func (n *Node) Faucet(to [20]byte, amount uint64) (uint64, error) {
	if !n.faucet.enabled {
		return 0, ErrFaucetDisabled
	}
	if amount == 0 || (n.faucet.max > 0 && amount > n.faucet.max) {
		return 0, fmt.Errorf("%w: %d", ErrFaucetLimit, amount)
	}
	var balance uint64
	err := n.exec("faucet", func() error {
		if err := n.state.Credit(to, amount); err != nil {
			return err
		}
		bal, err := n.state.Balance(to)
		balance = bal
		return err
	})
	return balance, err
}

// Houses lists every house record.
func (n *Node) Houses() ([]*house.House, error) {
	var out []*house.House
	err := n.view(func() error {
		list, err := n.state.Houses()
		out = list
		return err
	})
	return out, err
}

// Commitment returns the epoch and published digest of the current server
// seed.
func (n *Node) Commitment() (uint64, [32]byte, error) {
	cr, ok := n.source.(*entropy.CommitReveal)
	if !ok {
		return 0, [32]byte{}, ErrNoCommitReveal
	}
	epoch, digest := cr.Commitment()
	return epoch, digest, nil
}

// RotateSeed retires the current server seed and appends its reveal to the
// persisted audit list.
func (n *Node) RotateSeed(caller [20]byte) (entropy.Reveal, error) {
	cr, ok := n.source.(*entropy.CommitReveal)
	if !ok {
		return entropy.Reveal{}, ErrNoCommitReveal
	}
	if caller != n.authority {
		return entropy.Reveal{}, ErrUnauthorized
	}
	var out entropy.Reveal
	err := n.exec("rotate_seed", func() error {
		var reveals []entropy.Reveal
		if err := n.state.KVGetList(revealsKey, &reveals); err != nil {
			return err
		}
		reveal, err := cr.Rotate()
		if err != nil {
			return err
		}
		out = reveal
		return n.state.KVPut(revealsKey, append(reveals, reveal))
	})
	return out, err
}

// Reveals lists every retired server seed.
func (n *Node) Reveals() ([]entropy.Reveal, error) {
	var out []entropy.Reveal
	err := n.view(func() error { return n.state.KVGetList(revealsKey, &out) })
	return out, err
}
