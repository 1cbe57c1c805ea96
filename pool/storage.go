// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/stakewell/stakewell/stakewell"
	"github.com/stakewell/stakewell/state"
)

// Storage slots of pool-level fields. Position entries live at
// keccak-derived slots keyed by holder address.
var (
	slotOwner          = stakewell.Keccak256([]byte("owner"))
	slotTreasury       = stakewell.Keccak256([]byte("treasury"))
	slotRewardRate     = stakewell.Keccak256([]byte("reward-rate"))
	slotLastAccrual    = stakewell.Keccak256([]byte("last-accrual-time"))
	slotTotalPrincipal = stakewell.Keccak256([]byte("total-principal"))
	slotAccPerUnit     = stakewell.Keccak256([]byte("acc-reward-per-unit"))
	slotTotalShares    = stakewell.Keccak256([]byte("total-shares"))
	slotPenaltyWindow  = stakewell.Keccak256([]byte("penalty-window"))
	slotPenaltyBps     = stakewell.Keccak256([]byte("penalty-bps"))
	slotPenaltyRouting = stakewell.Keccak256([]byte("penalty-routing"))
	slotPenaltyBase    = stakewell.Keccak256([]byte("penalty-base"))
	slotStakeCap       = stakewell.Keccak256([]byte("stake-cap"))
	slotCapped         = stakewell.Keccak256([]byte("stake-capped"))
	slotAccounting     = stakewell.Keccak256([]byte("accounting"))
	slotStakeToken     = stakewell.Keccak256([]byte("stake-token"))
	slotRewardToken    = stakewell.Keccak256([]byte("reward-token"))
)

func positionSlot(holder stakewell.Address) stakewell.Bytes32 {
	return stakewell.Keccak256([]byte("position"), holder.Bytes())
}

// storage wraps typed access to one pool's slots.
type storage struct {
	addr  stakewell.Address
	state *state.State
}

func (s *storage) getAmount(slot stakewell.Bytes32) (*big.Int, error) {
	v, err := s.state.GetStorage(s.addr, slot)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(v.Bytes()), nil
}

func (s *storage) setAmount(slot stakewell.Bytes32, v *big.Int) {
	s.state.SetStorage(s.addr, slot, stakewell.BytesToBytes32(v.Bytes()))
}

func (s *storage) addAmount(slot stakewell.Bytes32, delta *big.Int) error {
	v, err := s.getAmount(slot)
	if err != nil {
		return err
	}
	s.setAmount(slot, v.Add(v, delta))
	return nil
}

func (s *storage) subAmount(slot stakewell.Bytes32, delta *big.Int) error {
	v, err := s.getAmount(slot)
	if err != nil {
		return err
	}
	s.setAmount(slot, v.Sub(v, delta))
	return nil
}

func (s *storage) getUint64(slot stakewell.Bytes32) (uint64, error) {
	v, err := s.getAmount(slot)
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

func (s *storage) setUint64(slot stakewell.Bytes32, v uint64) {
	s.setAmount(slot, new(big.Int).SetUint64(v))
}

func (s *storage) getAddress(slot stakewell.Bytes32) (stakewell.Address, error) {
	v, err := s.state.GetStorage(s.addr, slot)
	if err != nil {
		return stakewell.Address{}, err
	}
	return stakewell.BytesToAddress(v.Bytes()), nil
}

func (s *storage) setAddress(slot stakewell.Bytes32, addr stakewell.Address) {
	s.state.SetStorage(s.addr, slot, stakewell.BytesToBytes32(addr.Bytes()))
}

// getPosition loads the holder's ledger entry, the zero value if absent.
func (s *storage) getPosition(holder stakewell.Address) (*Position, error) {
	var pos Position
	if err := s.state.DecodeStorage(s.addr, positionSlot(holder), &pos); err != nil {
		return nil, err
	}
	return &pos, nil
}

// setPosition stores the holder's ledger entry; empty entries free the slot.
func (s *storage) setPosition(holder stakewell.Address, pos *Position) error {
	return s.state.EncodeStorage(s.addr, positionSlot(holder), pos)
}
