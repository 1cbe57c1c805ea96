// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/stakewell/stakewell/log"
	"github.com/stakewell/stakewell/stakewell"
	"github.com/stakewell/stakewell/state"
	"github.com/stakewell/stakewell/token"
)

var (
	logger = log.WithContext("pkg", "pool")
	big0   = new(big.Int)
	big1   = big.NewInt(1)
)

// Pool is one staking pool: a ledger of principal positions accruing a
// per-second reward emission.
//
// Every operation advances the pool clock first, then mutates exactly
// one position, then performs the token transfers implied by the new
// state. Ledger writes strictly precede transfers so a reentrant
// transfer can never observe a half-updated ledger; the engine's
// checkpoint gives total rollback on any failure.
type Pool struct {
	addr   stakewell.Address
	store  *storage
	stake  *token.Token
	reward *token.Token
	books  accounting
	sink   Sink
}

// newPool binds a pool to its state. For share-proportional pools the
// stake and reward token are the same ledger.
func newPool(addr stakewell.Address, st *state.State, stake, reward *token.Token, acct Accounting, sink Sink) *Pool {
	store := &storage{addr: addr, state: st}
	p := &Pool{
		addr:   addr,
		store:  store,
		stake:  stake,
		reward: reward,
		sink:   sink,
	}
	switch acct {
	case AccountingShares:
		p.books = &shareBooks{store: store, asset: stake}
	default:
		p.books = &accumulatorBooks{store: store}
	}
	return p
}

// initialize writes the deployment-time configuration. Called once by
// the engine when the pool is created.
func (p *Pool) initialize(cfg *Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	p.store.setUint64(slotAccounting, uint64(cfg.Accounting))
	p.store.setAddress(slotStakeToken, p.stake.Address())
	p.store.setAddress(slotRewardToken, p.reward.Address())
	p.store.setAddress(slotOwner, cfg.Owner)
	p.store.setAddress(slotTreasury, cfg.Treasury)
	p.store.setAmount(slotRewardRate, cfg.RewardRatePerSecond)
	p.store.setUint64(slotPenaltyWindow, cfg.EarlyWithdrawWindow)
	p.store.setUint64(slotPenaltyBps, uint64(cfg.PenaltyRateBps))
	p.store.setUint64(slotPenaltyRouting, uint64(cfg.PenaltyRouting))
	p.store.setUint64(slotPenaltyBase, uint64(cfg.PenaltyBase))
	if cfg.StakeCap != nil {
		p.store.setUint64(slotCapped, 1)
		p.store.setAmount(slotStakeCap, cfg.StakeCap)
	}
	return nil
}

// Address returns the pool's ledger identity.
func (p *Pool) Address() stakewell.Address {
	return p.addr
}

// Accounting returns the pool's valuation strategy.
func (p *Pool) Accounting() (Accounting, error) {
	v, err := p.store.getUint64(slotAccounting)
	return Accounting(v), err
}

// Owner returns the pool's administrative owner.
func (p *Pool) Owner() (stakewell.Address, error) {
	return p.store.getAddress(slotOwner)
}

// Treasury returns the reward treasury account.
func (p *Pool) Treasury() (stakewell.Address, error) {
	return p.store.getAddress(slotTreasury)
}

// RewardRate returns reward units emitted per second.
func (p *Pool) RewardRate() (*big.Int, error) {
	return p.store.getAmount(slotRewardRate)
}

// LastAccrualTime returns the clock's last advance, monotone non-decreasing.
func (p *Pool) LastAccrualTime() (uint64, error) {
	return p.store.getUint64(slotLastAccrual)
}

// TotalPrincipal returns aggregate principal across all positions.
// It equals the sum of every position's principal exactly.
func (p *Pool) TotalPrincipal() (*big.Int, error) {
	return p.store.getAmount(slotTotalPrincipal)
}

// TotalShares returns outstanding shares (share-proportional pools only).
func (p *Pool) TotalShares() (*big.Int, error) {
	return p.store.getAmount(slotTotalShares)
}

// AccRewardPerUnit returns the scaled per-unit accumulator
// (accumulator pools only). Monotone non-decreasing.
func (p *Pool) AccRewardPerUnit() (*big.Int, error) {
	return p.store.getAmount(slotAccPerUnit)
}

// StakeCap returns the aggregate principal ceiling and whether one is set.
func (p *Pool) StakeCap() (*big.Int, bool, error) {
	capped, err := p.store.getUint64(slotCapped)
	if err != nil {
		return nil, false, err
	}
	if capped == 0 {
		return nil, false, nil
	}
	cap_, err := p.store.getAmount(slotStakeCap)
	return cap_, true, err
}

// Position returns the holder's ledger entry, the zero value if absent.
func (p *Pool) Position(holder stakewell.Address) (*Position, error) {
	return p.store.getPosition(holder)
}

// PendingReward returns the reward the holder could harvest at now,
// including emission the clock has not booked yet. Read-only.
func (p *Pool) PendingReward(holder stakewell.Address, now uint64) (*big.Int, error) {
	pos, err := p.store.getPosition(holder)
	if err != nil {
		return nil, err
	}
	extra, err := p.unbookedReward(now)
	if err != nil {
		return nil, err
	}
	return p.books.projected(pos, extra)
}

func (p *Pool) unbookedReward(now uint64) (*big.Int, error) {
	last, err := p.LastAccrualTime()
	if err != nil {
		return nil, err
	}
	if now <= last || last == 0 {
		return big0, nil
	}
	rate, err := p.RewardRate()
	if err != nil {
		return nil, err
	}
	elapsed := new(big.Int).SetUint64(now - last)
	return elapsed.Mul(elapsed, rate), nil
}

func (p *Pool) emit(name string, now uint64, data any) {
	p.sink.post(Event{Pool: p.addr, Time: now, Name: name, Data: data})
}

// UpdatePool advances accrued reward state to now. Idempotent: a second
// call at the same timestamp is a no-op. With a zero principal base the
// interval's emission is permanently lost, not deferred; the clock
// still advances.
func (p *Pool) UpdatePool(now uint64) error {
	last, err := p.LastAccrualTime()
	if err != nil {
		return err
	}
	if now <= last {
		return nil
	}

	newReward := big0
	if last > 0 {
		rate, err := p.RewardRate()
		if err != nil {
			return err
		}
		newReward = new(big.Int).SetUint64(now - last)
		newReward.Mul(newReward, rate)
	}

	accObs, err := p.books.accrue(newReward)
	if err != nil {
		return err
	}
	p.store.setUint64(slotLastAccrual, now)

	base, err := p.TotalPrincipal()
	if err != nil {
		return err
	}
	p.emit(EvPoolUpdate, now, &PoolUpdateData{
		PrincipalBase:    base,
		AccRewardPerUnit: accObs,
	})
	return nil
}

// Deposit credits amount of stake to beneficiary's position, pulling
// the tokens from caller. A zero amount is a valuation refresh but
// still resets the beneficiary's penalty window, as does every top-up
// of an already vested position.
func (p *Pool) Deposit(caller, beneficiary stakewell.Address, amount *big.Int, now uint64) error {
	if amount == nil || amount.Sign() < 0 {
		return configError("deposit amount must be a non-negative integer")
	}
	if err := p.UpdatePool(now); err != nil {
		return err
	}

	cap_, capped, err := p.StakeCap()
	if err != nil {
		return err
	}
	if capped {
		total, err := p.TotalPrincipal()
		if err != nil {
			return err
		}
		if new(big.Int).Add(total, amount).Cmp(cap_) > 0 {
			return capacityError("stake cap %s exceeded by deposit of %s", cap_, amount)
		}
	}

	pos, err := p.store.getPosition(beneficiary)
	if err != nil {
		return err
	}
	unit, err := p.books.credit(pos, amount)
	if err != nil {
		return err
	}
	pos.LastDepositTime = now
	if err := p.store.setPosition(beneficiary, pos); err != nil {
		return err
	}
	if err := p.store.addAmount(slotTotalPrincipal, amount); err != nil {
		return err
	}

	p.emit(EvDeposit, now, &DepositData{
		Caller:      caller,
		Amount:      amount,
		Unit:        unit,
		Beneficiary: beneficiary,
	})
	logger.Debug("deposit", "pool", p.addr, "caller", caller, "amount", amount, "unit", unit)

	if err := p.stake.Transfer(caller, p.addr, amount); err != nil {
		return fundsError(err, "stake pull of %s from %s", amount, caller)
	}
	return nil
}

// Withdraw pays out up to amount of the caller's principal plus all
// settled reward, minus any early-exit penalty. An amount above the
// position's principal clamps down to it; that is this implementation's
// documented choice, the safer of the two observed contracts.
//
// On a share-proportional pool with zero aggregate principal the call
// is a documented no-op.
func (p *Pool) Withdraw(caller, to stakewell.Address, amount *big.Int, now uint64) error {
	if amount == nil || amount.Sign() < 0 {
		return configError("withdraw amount must be a non-negative integer")
	}
	if err := p.UpdatePool(now); err != nil {
		return err
	}
	if noop, err := p.exitIsNoop(); err != nil || noop {
		return err
	}

	pos, err := p.store.getPosition(caller)
	if err != nil {
		return err
	}
	if amount.Cmp(pos.Principal) > 0 {
		amount = new(big.Int).Set(pos.Principal)
	}

	reward, unit, err := p.books.settle(pos, amount)
	if err != nil {
		return err
	}

	pc, err := p.penaltyConfig()
	if err != nil {
		return err
	}
	principalNet, rewardNet := new(big.Int).Set(amount), reward
	var penaltyFromPrincipal, penaltyFromReward *big.Int
	if pc.isEarly(pos, now) {
		base := reward
		if pc.base == BaseTotal {
			// the capped-variant compat mode taxes the combined
			// payout; reward absorbs the cut first, principal
			// covers the rest
			base = new(big.Int).Add(amount, reward)
		}
		penalty := pc.cut(base)
		penaltyFromReward = bigMin(penalty, reward)
		penaltyFromPrincipal = new(big.Int).Sub(penalty, penaltyFromReward)
		rewardNet = new(big.Int).Sub(reward, penaltyFromReward)
		principalNet.Sub(principalNet, penaltyFromPrincipal)
	}

	pos.decay()
	if err := p.store.setPosition(caller, pos); err != nil {
		return err
	}
	if err := p.store.subAmount(slotTotalPrincipal, amount); err != nil {
		return err
	}

	p.emit(EvWithdraw, now, &WithdrawData{
		Caller: caller,
		Amount: amount,
		Unit:   unit,
		To:     to,
	})
	logger.Debug("withdraw", "pool", p.addr, "caller", caller, "amount", amount, "reward", reward)

	if err := p.stake.Transfer(p.addr, to, principalNet); err != nil {
		return fundsError(err, "principal payout of %s", principalNet)
	}
	if err := p.payReward(to, rewardNet); err != nil {
		return err
	}
	if penaltyFromReward != nil {
		if err := p.routePenalty(p.reward, pc.routing, penaltyFromReward); err != nil {
			return err
		}
		if err := p.routePenalty(p.stake, pc.routing, penaltyFromPrincipal); err != nil {
			return err
		}
	}
	return nil
}

// Harvest pays out the caller's settled reward minus any early-exit
// penalty, leaving principal untouched.
//
// On a share-proportional pool with zero aggregate principal the call
// is a documented no-op.
func (p *Pool) Harvest(caller, to stakewell.Address, now uint64) error {
	if err := p.UpdatePool(now); err != nil {
		return err
	}
	if noop, err := p.exitIsNoop(); err != nil || noop {
		return err
	}

	pos, err := p.store.getPosition(caller)
	if err != nil {
		return err
	}
	reward, _, err := p.books.settle(pos, big0)
	if err != nil {
		return err
	}
	if err := p.store.setPosition(caller, pos); err != nil {
		return err
	}

	pc, err := p.penaltyConfig()
	if err != nil {
		return err
	}
	rewardNet := reward
	var penalty *big.Int
	if pc.isEarly(pos, now) {
		// no principal moves here, so the penalty base is always
		// the reward regardless of the configured base mode
		penalty = pc.cut(reward)
		rewardNet = new(big.Int).Sub(reward, penalty)
	}

	p.emit(EvHarvest, now, &HarvestData{Caller: caller, Reward: reward})
	logger.Debug("harvest", "pool", p.addr, "caller", caller, "reward", reward)

	if err := p.payReward(to, rewardNet); err != nil {
		return err
	}
	if penalty != nil {
		if err := p.routePenalty(p.reward, pc.routing, penalty); err != nil {
			return err
		}
	}
	return nil
}

// EmergencyWithdraw exits unconditionally: the position is zeroed, only
// the principal is paid out and all pending reward is abandoned to the
// remaining pool. A zero-amount payout is tolerated as a no-op.
func (p *Pool) EmergencyWithdraw(caller, to stakewell.Address, now uint64) error {
	if err := p.UpdatePool(now); err != nil {
		return err
	}

	pos, err := p.store.getPosition(caller)
	if err != nil {
		return err
	}
	amount := new(big.Int).Set(pos.Principal)
	unit, err := p.books.forfeit(pos)
	if err != nil {
		return err
	}
	pos.decay()
	if err := p.store.setPosition(caller, pos); err != nil {
		return err
	}
	if err := p.store.subAmount(slotTotalPrincipal, amount); err != nil {
		return err
	}

	p.emit(EvEmergencyWithdraw, now, &EmergencyWithdrawData{
		Caller: caller,
		Amount: amount,
		Unit:   unit,
		To:     to,
	})
	logger.Debug("emergency withdraw", "pool", p.addr, "caller", caller, "amount", amount)

	if err := p.stake.Transfer(p.addr, to, amount); err != nil {
		return fundsError(err, "principal payout of %s", amount)
	}
	return nil
}

// exitIsNoop reports the documented silent no-op: a share-proportional
// pool with zero aggregate principal has nothing to settle, and the
// caller's position is necessarily empty too.
func (p *Pool) exitIsNoop() (bool, error) {
	acct, err := p.Accounting()
	if err != nil {
		return false, err
	}
	if acct != AccountingShares {
		return false, nil
	}
	total, err := p.TotalPrincipal()
	if err != nil {
		return false, err
	}
	return total.Sign() == 0, nil
}

// payReward moves settled reward out of the pool's reserve. A shortfall
// is the reward source running dry, reported and rolled back.
func (p *Pool) payReward(to stakewell.Address, amount *big.Int) error {
	if err := p.reward.Transfer(p.addr, to, amount); err != nil {
		return fundsError(err, "reward payout of %s", amount)
	}
	return nil
}

func bigMin(a, b *big.Int) *big.Int {
	if a.Cmp(b) < 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
