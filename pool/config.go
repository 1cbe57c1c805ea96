// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/stakewell/stakewell/stakewell"
)

// requireOwner gates configuration-mutating entry points.
func (p *Pool) requireOwner(caller stakewell.Address) error {
	owner, err := p.Owner()
	if err != nil {
		return err
	}
	if caller != owner {
		return authError("%s is not the pool owner", caller)
	}
	return nil
}

// SetRewardRate changes the emission rate. The clock is advanced first,
// so the new rate only applies from now on; past intervals accrued at
// the old rate.
func (p *Pool) SetRewardRate(caller stakewell.Address, rate *big.Int, now uint64) error {
	if err := p.requireOwner(caller); err != nil {
		return err
	}
	if rate == nil || rate.Sign() < 0 {
		return configError("reward rate must be a non-negative integer")
	}
	if err := p.UpdatePool(now); err != nil {
		return err
	}
	p.store.setAmount(slotRewardRate, rate)
	p.emit(EvRateChange, now, &ConfigChangeData{Value: rate})
	logger.Info("reward rate changed", "pool", p.addr, "rate", rate)
	return nil
}

// SetPenalty changes the early-withdrawal policy.
func (p *Pool) SetPenalty(caller stakewell.Address, window uint64, bps uint32, routing PenaltyRouting, base PenaltyBase, now uint64) error {
	if err := p.requireOwner(caller); err != nil {
		return err
	}
	if bps > stakewell.MaxPenaltyBps {
		return configError("penalty rate %d exceeds %d bps", bps, stakewell.MaxPenaltyBps)
	}
	p.store.setUint64(slotPenaltyWindow, window)
	p.store.setUint64(slotPenaltyBps, uint64(bps))
	p.store.setUint64(slotPenaltyRouting, uint64(routing))
	p.store.setUint64(slotPenaltyBase, uint64(base))
	p.emit(EvPenaltyChange, now, &ConfigChangeData{Value: map[string]any{
		"window": window, "bps": bps, "routing": routing, "base": base,
	}})
	return nil
}

// SetStakeCap changes the aggregate principal ceiling. A nil cap removes
// it. The cap cannot be set below the principal already staked.
func (p *Pool) SetStakeCap(caller stakewell.Address, cap_ *big.Int, now uint64) error {
	if err := p.requireOwner(caller); err != nil {
		return err
	}
	if cap_ == nil {
		p.store.setUint64(slotCapped, 0)
		p.store.setAmount(slotStakeCap, big0)
		p.emit(EvCapChange, now, &ConfigChangeData{Value: nil})
		return nil
	}
	if cap_.Sign() < 0 {
		return configError("stake cap must not be negative")
	}
	total, err := p.TotalPrincipal()
	if err != nil {
		return err
	}
	if cap_.Cmp(total) < 0 {
		return configError("stake cap %s below staked principal %s", cap_, total)
	}
	p.store.setUint64(slotCapped, 1)
	p.store.setAmount(slotStakeCap, cap_)
	p.emit(EvCapChange, now, &ConfigChangeData{Value: cap_})
	return nil
}

// SetTreasury changes the reward treasury account.
func (p *Pool) SetTreasury(caller, treasury stakewell.Address, now uint64) error {
	if err := p.requireOwner(caller); err != nil {
		return err
	}
	if treasury.IsZero() {
		return configError("treasury must not be the zero address")
	}
	p.store.setAddress(slotTreasury, treasury)
	p.emit(EvTreasuryChange, now, &ConfigChangeData{Value: treasury})
	return nil
}

// TransferOwnership hands the pool to a new owner. The zero address is
// rejected: ownership can never be renounced.
func (p *Pool) TransferOwnership(caller, newOwner stakewell.Address, now uint64) error {
	if err := p.requireOwner(caller); err != nil {
		return err
	}
	if newOwner.IsZero() {
		return configError("new owner must not be the zero address")
	}
	p.store.setAddress(slotOwner, newOwner)
	p.emit(EvOwnerChange, now, &ConfigChangeData{Value: newOwner})
	logger.Info("ownership transferred", "pool", p.addr, "owner", newOwner)
	return nil
}

// RenounceOwnership always fails, for everyone including the owner.
// Losing administrative control irrevocably is a known footgun and the
// path is closed permanently.
func (p *Pool) RenounceOwnership(stakewell.Address) error {
	return authError("ownership renounce is permanently disabled")
}
