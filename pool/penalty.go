// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/stakewell/stakewell/stakewell"
	"github.com/stakewell/stakewell/token"
)

type penaltyConfig struct {
	window  uint64
	bps     uint64
	routing PenaltyRouting
	base    PenaltyBase
}

func (p *Pool) penaltyConfig() (penaltyConfig, error) {
	window, err := p.store.getUint64(slotPenaltyWindow)
	if err != nil {
		return penaltyConfig{}, err
	}
	bps, err := p.store.getUint64(slotPenaltyBps)
	if err != nil {
		return penaltyConfig{}, err
	}
	routing, err := p.store.getUint64(slotPenaltyRouting)
	if err != nil {
		return penaltyConfig{}, err
	}
	base, err := p.store.getUint64(slotPenaltyBase)
	if err != nil {
		return penaltyConfig{}, err
	}
	return penaltyConfig{
		window:  window,
		bps:     bps,
		routing: PenaltyRouting(routing),
		base:    PenaltyBase(base),
	}, nil
}

// PenaltyPolicy returns the early-withdrawal window and rate.
func (p *Pool) PenaltyPolicy() (window uint64, bps uint32, err error) {
	c, err := p.penaltyConfig()
	if err != nil {
		return 0, 0, err
	}
	return c.window, uint32(c.bps), nil
}

// isEarly reports whether an exit at now falls inside the penalty window
// opened by the position's last deposit. Fully exited positions decay to
// a zero deposit time, and an empty position pays out nothing to tax, so
// a deposit made at timestamp zero needs no special case.
func (c penaltyConfig) isEarly(pos *Position, now uint64) bool {
	if c.window == 0 || c.bps == 0 {
		return false
	}
	return now <= pos.LastDepositTime+c.window
}

// cut returns base * bps / 10000, rounded down.
func (c penaltyConfig) cut(base *big.Int) *big.Int {
	v := new(big.Int).Mul(base, new(big.Int).SetUint64(c.bps))
	return v.Div(v, stakewell.BpsDenominator)
}

// routePenalty moves the penalty out of the pool, either destroying it
// or paying it to the pool owner.
func (p *Pool) routePenalty(tok *token.Token, routing PenaltyRouting, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	switch routing {
	case RouteOwner:
		owner, err := p.store.getAddress(slotOwner)
		if err != nil {
			return err
		}
		if err := tok.Transfer(p.addr, owner, amount); err != nil {
			return fundsError(err, "penalty payout of %s", amount)
		}
	default:
		if err := tok.Burn(p.addr, amount); err != nil {
			return fundsError(err, "penalty burn of %s", amount)
		}
	}
	return nil
}
