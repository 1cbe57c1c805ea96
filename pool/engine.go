// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"encoding/binary"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"

	"github.com/stakewell/stakewell/kv"
	"github.com/stakewell/stakewell/metrics"
	"github.com/stakewell/stakewell/stakewell"
	"github.com/stakewell/stakewell/state"
	"github.com/stakewell/stakewell/token"
)

var (
	metricOpCount        = metrics.LazyLoadCounterVec("pool_op_count", []string{"pool", "op"})
	metricPrincipalGauge = metrics.LazyLoadGaugeVec("pool_total_principal", []string{"pool"})
)

// engineAddr holds engine-level bookkeeping, the pool index.
var engineAddr = stakewell.NamedAddress("pool-engine")

var slotPoolCount = stakewell.Keccak256([]byte("pool-count"))

func poolIndexSlot(i uint64) stakewell.Bytes32 {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], i)
	return stakewell.Keccak256([]byte("pool-index"), b[:])
}

// Engine owns the ledger state and serializes every operation against it.
//
// Each operation runs inside a state checkpoint: on any error the whole
// write set is reverted, on success it is committed to the backing store
// in one batch and the buffered events are published. An observer can
// therefore never see the effects of a failed operation, partial or
// otherwise.
type Engine struct {
	mu       sync.Mutex
	db       kv.GetPutter
	st       *state.State
	store    *storage
	registry *Registry
	pools    map[stakewell.Address]*Pool
	order    []stakewell.Address

	feed    event.Feed
	scope   event.SubscriptionScope
	pending []Event
}

// NewEngine opens the ledger over the given store and reattaches every
// previously created pool. The registry is claimed for owner on first open.
func NewEngine(db kv.GetPutter, owner stakewell.Address) (*Engine, error) {
	st := state.New(db)
	e := &Engine{
		db:    db,
		st:    st,
		store: &storage{addr: engineAddr, state: st},
		pools: make(map[stakewell.Address]*Pool),
	}
	e.registry = newRegistry(st, e.collect)

	count, err := e.store.getUint64(slotPoolCount)
	if err != nil {
		return nil, errors.Wrap(err, "load pool index")
	}
	for i := uint64(0); i < count; i++ {
		addr, err := e.store.getAddress(poolIndexSlot(i))
		if err != nil {
			return nil, errors.Wrap(err, "load pool index")
		}
		if _, err := e.attach(addr); err != nil {
			return nil, err
		}
	}

	if err := e.run(func() error {
		return e.registry.initialize(owner)
	}); err != nil {
		return nil, err
	}
	logger.Info("engine opened", "pools", count)
	return e, nil
}

// attach rebuilds the in-memory handle of an existing pool from its
// self-describing slots.
func (e *Engine) attach(addr stakewell.Address) (*Pool, error) {
	pstore := &storage{addr: addr, state: e.st}
	acct, err := pstore.getUint64(slotAccounting)
	if err != nil {
		return nil, err
	}
	stakeAddr, err := pstore.getAddress(slotStakeToken)
	if err != nil {
		return nil, err
	}
	rewardAddr, err := pstore.getAddress(slotRewardToken)
	if err != nil {
		return nil, err
	}
	p := newPool(
		addr,
		e.st,
		token.New(stakeAddr, e.st),
		token.New(rewardAddr, e.st),
		Accounting(acct),
		e.collect,
	)
	e.pools[addr] = p
	e.order = append(e.order, addr)
	return p, nil
}

func (e *Engine) collect(ev Event) {
	e.pending = append(e.pending, ev)
}

// run executes fn inside a checkpoint, committing on success and
// reverting every write on failure. Events emitted by fn reach
// subscribers only after the commit. Caller must hold e.mu.
func (e *Engine) run(fn func() error) error {
	e.pending = e.pending[:0]
	cp := e.st.NewCheckpoint()
	if err := fn(); err != nil {
		e.st.RevertTo(cp)
		e.pending = e.pending[:0]
		return err
	}
	if err := e.st.CommitTo(e.db); err != nil {
		return errors.Wrap(err, "commit")
	}
	for _, ev := range e.pending {
		e.feed.Send(ev)
	}
	e.pending = e.pending[:0]
	return nil
}

func (e *Engine) pool(addr stakewell.Address) (*Pool, error) {
	p, ok := e.pools[addr]
	if !ok {
		return nil, configError("unknown pool %s", addr)
	}
	return p, nil
}

// exec runs one pool operation atomically and keeps the meters current.
func (e *Engine) exec(pool stakewell.Address, op string, fn func(*Pool) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.pool(pool)
	if err != nil {
		return err
	}
	if err := e.run(func() error { return fn(p) }); err != nil {
		return err
	}

	metricOpCount().AddWithLabel(1, map[string]string{"pool": pool.String(), "op": op})
	if total, err := p.TotalPrincipal(); err == nil && total.IsInt64() {
		metricPrincipalGauge().SetWithLabel(total.Int64(), map[string]string{"pool": pool.String()})
	}
	return nil
}

// CreatePool creates a pool at the given address with the given
// configuration and registers it in the pool index.
func (e *Engine) CreatePool(addr stakewell.Address, cfg *Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if addr.IsZero() {
		return configError("pool address must not be the zero address")
	}
	if _, ok := e.pools[addr]; ok {
		return configError("pool %s already exists", addr)
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	rewardAddr := cfg.RewardToken
	if cfg.Accounting == AccountingShares {
		rewardAddr = cfg.StakeToken
	}
	p := newPool(
		addr,
		e.st,
		token.New(cfg.StakeToken, e.st),
		token.New(rewardAddr, e.st),
		cfg.Accounting,
		e.collect,
	)
	if err := e.run(func() error {
		if err := p.initialize(cfg); err != nil {
			return err
		}
		count, err := e.store.getUint64(slotPoolCount)
		if err != nil {
			return err
		}
		e.store.setAddress(poolIndexSlot(count), addr)
		e.store.setUint64(slotPoolCount, count+1)
		return nil
	}); err != nil {
		return err
	}

	e.pools[addr] = p
	e.order = append(e.order, addr)
	logger.Info("pool created", "pool", addr, "accounting", cfg.Accounting)
	return nil
}

// Pools returns the addresses of all pools in creation order.
func (e *Engine) Pools() []stakewell.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]stakewell.Address, len(e.order))
	copy(out, e.order)
	return out
}

// View runs a read-only function against the pool under the engine lock.
// fn must not write state.
func (e *Engine) View(pool stakewell.Address, fn func(*Pool) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.pool(pool)
	if err != nil {
		return err
	}
	return fn(p)
}

// TokenBalance returns holder's balance on the given token ledger.
func (e *Engine) TokenBalance(tok, holder stakewell.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return token.New(tok, e.st).Balance(holder)
}

// TokenSupply returns the token ledger's total supply.
func (e *Engine) TokenSupply(tok stakewell.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return token.New(tok, e.st).TotalSupply()
}

// TokenAllowance returns spender's allowance over owner's balance.
func (e *Engine) TokenAllowance(tok, owner, spender stakewell.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return token.New(tok, e.st).Allowance(owner, spender)
}

// TokenMint credits amount to holder on the given token ledger. Minting
// is a bootstrap operation: it is reachable from genesis application
// only, never from the request surface.
func (e *Engine) TokenMint(tok, holder stakewell.Address, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if amount == nil || amount.Sign() < 0 {
		return configError("mint amount must be a non-negative integer")
	}
	return e.run(func() error {
		return token.New(tok, e.st).Mint(holder, amount)
	})
}

// TokenTransfer moves caller's own funds on the given token ledger.
func (e *Engine) TokenTransfer(tok, caller, to stakewell.Address, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if amount == nil || amount.Sign() < 0 {
		return configError("transfer amount must be a non-negative integer")
	}
	return e.run(func() error {
		if err := token.New(tok, e.st).Transfer(caller, to, amount); err != nil {
			return fundsError(err, "transfer of %s from %s", amount, caller)
		}
		return nil
	})
}

// TokenApprove sets spender's allowance over caller's balance.
func (e *Engine) TokenApprove(tok, caller, spender stakewell.Address, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if amount == nil || amount.Sign() < 0 {
		return configError("allowance must be a non-negative integer")
	}
	return e.run(func() error {
		return token.New(tok, e.st).Approve(caller, spender, amount)
	})
}

// RankOf returns the pool's migration rank, zero if unranked.
func (e *Engine) RankOf(pool stakewell.Address) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.RankOf(pool)
}

// RegistryOwner returns the rank registry's administrative owner.
func (e *Engine) RegistryOwner() (stakewell.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Owner()
}

// SetRank assigns the pool's migration rank. Registry owner only.
func (e *Engine) SetRank(caller, pool stakewell.Address, rank uint64, now uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.pool(pool); err != nil {
		return err
	}
	return e.run(func() error {
		return e.registry.SetRank(caller, pool, rank, now)
	})
}

// UpdatePool advances the pool clock to now.
func (e *Engine) UpdatePool(pool stakewell.Address, now uint64) error {
	return e.exec(pool, "update", func(p *Pool) error {
		return p.UpdatePool(now)
	})
}

// Deposit stakes amount from caller into beneficiary's position.
func (e *Engine) Deposit(pool, caller, beneficiary stakewell.Address, amount *big.Int, now uint64) error {
	return e.exec(pool, "deposit", func(p *Pool) error {
		return p.Deposit(caller, beneficiary, amount, now)
	})
}

// Withdraw pays out up to amount of caller's principal plus settled reward.
func (e *Engine) Withdraw(pool, caller, to stakewell.Address, amount *big.Int, now uint64) error {
	return e.exec(pool, "withdraw", func(p *Pool) error {
		return p.Withdraw(caller, to, amount, now)
	})
}

// Harvest pays out caller's settled reward, principal untouched.
func (e *Engine) Harvest(pool, caller, to stakewell.Address, now uint64) error {
	return e.exec(pool, "harvest", func(p *Pool) error {
		return p.Harvest(caller, to, now)
	})
}

// EmergencyWithdraw exits caller unconditionally, abandoning pending reward.
func (e *Engine) EmergencyWithdraw(pool, caller, to stakewell.Address, now uint64) error {
	return e.exec(pool, "emergency-withdraw", func(p *Pool) error {
		return p.EmergencyWithdraw(caller, to, now)
	})
}

// SetRewardRate changes the pool's emission rate. Pool owner only.
func (e *Engine) SetRewardRate(pool, caller stakewell.Address, rate *big.Int, now uint64) error {
	return e.exec(pool, "set-rate", func(p *Pool) error {
		return p.SetRewardRate(caller, rate, now)
	})
}

// SetPenalty changes the pool's early-withdrawal policy. Pool owner only.
func (e *Engine) SetPenalty(pool, caller stakewell.Address, window uint64, bps uint32, routing PenaltyRouting, base PenaltyBase, now uint64) error {
	return e.exec(pool, "set-penalty", func(p *Pool) error {
		return p.SetPenalty(caller, window, bps, routing, base, now)
	})
}

// SetStakeCap changes the pool's principal ceiling. Pool owner only.
func (e *Engine) SetStakeCap(pool, caller stakewell.Address, cap_ *big.Int, now uint64) error {
	return e.exec(pool, "set-cap", func(p *Pool) error {
		return p.SetStakeCap(caller, cap_, now)
	})
}

// SetTreasury changes the pool's reward treasury. Pool owner only.
func (e *Engine) SetTreasury(pool, caller, treasury stakewell.Address, now uint64) error {
	return e.exec(pool, "set-treasury", func(p *Pool) error {
		return p.SetTreasury(caller, treasury, now)
	})
}

// TransferOwnership hands the pool to a new owner. Pool owner only.
func (e *Engine) TransferOwnership(pool, caller, newOwner stakewell.Address, now uint64) error {
	return e.exec(pool, "transfer-ownership", func(p *Pool) error {
		return p.TransferOwnership(caller, newOwner, now)
	})
}

// RenounceOwnership always fails; the path is closed permanently.
func (e *Engine) RenounceOwnership(pool, caller stakewell.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.pool(pool)
	if err != nil {
		return err
	}
	return p.RenounceOwnership(caller)
}

// Migrate moves the caller's entire stake, reward included, from one
// pool to a strictly higher-ranked one in a single atomic operation.
// No early-withdrawal penalty applies on a migration; the target's
// deposit-time reset and stake cap do.
//
// A source pool with zero aggregate principal makes the call a
// documented silent no-op regardless of the target.
func (e *Engine) Migrate(caller, from, to stakewell.Address, now uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	src, err := e.pool(from)
	if err != nil {
		return err
	}
	dst, err := e.pool(to)
	if err != nil {
		return err
	}

	if err := e.run(func() error {
		srcRank, err := e.registry.RankOf(from)
		if err != nil {
			return err
		}
		if srcRank == 0 {
			return eligibilityError("source pool %s is not ranked for migration", from)
		}

		total, err := src.TotalPrincipal()
		if err != nil {
			return err
		}
		if total.Sign() == 0 {
			return nil
		}

		dstRank, err := e.registry.RankOf(to)
		if err != nil {
			return err
		}
		if dstRank == 0 {
			return eligibilityError("target pool %s is not ranked for migration", to)
		}
		if dstRank <= srcRank {
			return eligibilityError("target rank %d does not exceed source rank %d", dstRank, srcRank)
		}
		// the claim re-stakes as the target's principal, so all three
		// legs must settle in the same asset
		if src.stake.Address() != src.reward.Address() || src.stake.Address() != dst.stake.Address() {
			return configError("pools %s and %s do not share a stake asset", from, to)
		}

		if err := src.UpdatePool(now); err != nil {
			return err
		}
		pos, err := src.store.getPosition(caller)
		if err != nil {
			return err
		}
		principal := new(big.Int).Set(pos.Principal)
		reward, _, err := src.books.settle(pos, principal)
		if err != nil {
			return err
		}
		pos.decay()
		if err := src.store.setPosition(caller, pos); err != nil {
			return err
		}
		if err := src.store.subAmount(slotTotalPrincipal, principal); err != nil {
			return err
		}

		claim := new(big.Int).Add(principal, reward)
		if claim.Sign() == 0 {
			return nil
		}
		src.emit(EvMigrate, now, &MigrateData{Caller: caller, Target: to, Amount: claim})
		logger.Debug("migrate", "from", from, "to", to, "caller", caller, "amount", claim)

		if err := src.stake.Transfer(src.addr, caller, principal); err != nil {
			return fundsError(err, "principal payout of %s", principal)
		}
		if err := src.payReward(caller, reward); err != nil {
			return err
		}
		return dst.Deposit(caller, caller, claim, now)
	}); err != nil {
		return err
	}

	metricOpCount().AddWithLabel(1, map[string]string{"pool": from.String(), "op": "migrate"})
	return nil
}

// SubscribeEvents subscribes to committed ledger events.
func (e *Engine) SubscribeEvents(ch chan Event) event.Subscription {
	return e.scope.Track(e.feed.Subscribe(ch))
}

// Close unsubscribes all event subscribers.
func (e *Engine) Close() {
	e.scope.Close()
}
