// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/stakewell/stakewell/stakewell"
)

// accumulatorBooks values positions against a monotone per-unit reward
// accumulator scaled by stakewell.RewardPrecision, with per-position
// reward debt marking what was already attributed.
type accumulatorBooks struct {
	store *storage
}

var _ accounting = (*accumulatorBooks)(nil)

func (b *accumulatorBooks) kind() Accounting {
	return AccountingAccumulator
}

func (b *accumulatorBooks) accPerUnit() (*big.Int, error) {
	return b.store.getAmount(slotAccPerUnit)
}

// accrue spreads newReward over the current principal base.
// With a zero base the reward for the interval is permanently lost:
// nothing is carried forward, the accumulator stays put.
func (b *accumulatorBooks) accrue(newReward *big.Int) (*big.Int, error) {
	acc, err := b.accPerUnit()
	if err != nil {
		return nil, err
	}
	base, err := b.store.getAmount(slotTotalPrincipal)
	if err != nil {
		return nil, err
	}
	if base.Sign() == 0 || newReward.Sign() == 0 {
		return acc, nil
	}
	delta := new(big.Int).Mul(newReward, stakewell.RewardPrecision)
	delta.Div(delta, base)
	acc.Add(acc, delta)
	b.store.setAmount(slotAccPerUnit, acc)
	return acc, nil
}

// attributed returns principal * acc / PRECISION, the cumulative reward
// ever attributable to that principal at the current accumulator.
func attributed(principal, acc *big.Int) *big.Int {
	v := new(big.Int).Mul(principal, acc)
	return v.Div(v, stakewell.RewardPrecision)
}

func (b *accumulatorBooks) projected(pos *Position, extraReward *big.Int) (*big.Int, error) {
	acc, err := b.accPerUnit()
	if err != nil {
		return nil, err
	}
	if extraReward.Sign() > 0 {
		base, err := b.store.getAmount(slotTotalPrincipal)
		if err != nil {
			return nil, err
		}
		if base.Sign() > 0 {
			delta := new(big.Int).Mul(extraReward, stakewell.RewardPrecision)
			acc = new(big.Int).Add(acc, delta.Div(delta, base))
		}
	}
	pend := attributed(pos.Principal, acc)
	pend.Sub(pend, pos.RewardDebt)
	if pend.Sign() < 0 {
		// rounding dust only; the pool keeps it
		pend.SetInt64(0)
	}
	return pend, nil
}

func (b *accumulatorBooks) credit(pos *Position, amount *big.Int) (*big.Int, error) {
	acc, err := b.accPerUnit()
	if err != nil {
		return nil, err
	}
	pos.Principal = new(big.Int).Add(pos.Principal, amount)
	pos.RewardDebt = new(big.Int).Add(pos.RewardDebt, attributed(amount, acc))
	return new(big.Int).Set(amount), nil
}

func (b *accumulatorBooks) settle(pos *Position, principalOut *big.Int) (*big.Int, *big.Int, error) {
	pend, err := b.projected(pos, big0)
	if err != nil {
		return nil, nil, err
	}
	acc, err := b.accPerUnit()
	if err != nil {
		return nil, nil, err
	}
	pos.Principal = new(big.Int).Sub(pos.Principal, principalOut)
	// reset debt so pending reads zero immediately after settlement
	pos.RewardDebt = attributed(pos.Principal, acc)
	return pend, new(big.Int).Set(principalOut), nil
}

func (b *accumulatorBooks) forfeit(pos *Position) (*big.Int, error) {
	unit := new(big.Int).Set(pos.Principal)
	pos.Principal = new(big.Int)
	pos.RewardDebt = new(big.Int)
	return unit, nil
}
