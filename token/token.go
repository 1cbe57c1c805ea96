// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"errors"
	"math/big"

	"github.com/stakewell/stakewell/stakewell"
	"github.com/stakewell/stakewell/state"
)

var (
	// ErrInsufficientBalance transfer or burn exceeding the holder's balance.
	ErrInsufficientBalance = errors.New("insufficient token balance")
	// ErrInsufficientAllowance allowance-gated pull exceeding the approved amount.
	ErrInsufficientAllowance = errors.New("insufficient token allowance")
)

var totalSupplySlot = stakewell.Keccak256([]byte("total-supply"))

func balanceSlot(holder stakewell.Address) stakewell.Bytes32 {
	return stakewell.Keccak256([]byte("balance"), holder.Bytes())
}

func allowanceSlot(owner, spender stakewell.Address) stakewell.Bytes32 {
	return stakewell.Keccak256([]byte("allowance"), owner.Bytes(), spender.Bytes())
}

// Token is a state-backed asset ledger identified by its own address.
// Transfers move exactly the requested amount or fail; there are no
// partial transfers and no transfer fees.
type Token struct {
	addr  stakewell.Address
	state *state.State
}

// New binds a token ledger to its address in state.
func New(addr stakewell.Address, st *state.State) *Token {
	return &Token{addr, st}
}

// Address returns the ledger identity of the token.
func (t *Token) Address() stakewell.Address {
	return t.addr
}

func (t *Token) getAmount(slot stakewell.Bytes32) (*big.Int, error) {
	v, err := t.state.GetStorage(t.addr, slot)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(v.Bytes()), nil
}

func (t *Token) setAmount(slot stakewell.Bytes32, v *big.Int) {
	t.state.SetStorage(t.addr, slot, stakewell.BytesToBytes32(v.Bytes()))
}

// Balance returns the holder's balance.
func (t *Token) Balance(holder stakewell.Address) (*big.Int, error) {
	return t.getAmount(balanceSlot(holder))
}

// TotalSupply returns total minted minus total burned.
func (t *Token) TotalSupply() (*big.Int, error) {
	return t.getAmount(totalSupplySlot)
}

// Mint credits amount to holder.
func (t *Token) Mint(holder stakewell.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	bal, err := t.Balance(holder)
	if err != nil {
		return err
	}
	t.setAmount(balanceSlot(holder), bal.Add(bal, amount))

	supply, err := t.TotalSupply()
	if err != nil {
		return err
	}
	t.setAmount(totalSupplySlot, supply.Add(supply, amount))
	return nil
}

// Burn debits amount from holder, shrinking total supply.
func (t *Token) Burn(holder stakewell.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	bal, err := t.Balance(holder)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	t.setAmount(balanceSlot(holder), bal.Sub(bal, amount))

	supply, err := t.TotalSupply()
	if err != nil {
		return err
	}
	t.setAmount(totalSupplySlot, supply.Sub(supply, amount))
	return nil
}

// Transfer moves amount from one holder to another.
// A zero amount is a successful no-op.
func (t *Token) Transfer(from, to stakewell.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	fromBal, err := t.Balance(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	t.setAmount(balanceSlot(from), fromBal.Sub(fromBal, amount))

	toBal, err := t.Balance(to)
	if err != nil {
		return err
	}
	t.setAmount(balanceSlot(to), toBal.Add(toBal, amount))
	return nil
}

// Approve sets spender's allowance over owner's balance.
func (t *Token) Approve(owner, spender stakewell.Address, amount *big.Int) error {
	t.setAmount(allowanceSlot(owner, spender), amount)
	return nil
}

// Allowance returns spender's remaining allowance over owner's balance.
func (t *Token) Allowance(owner, spender stakewell.Address) (*big.Int, error) {
	return t.getAmount(allowanceSlot(owner, spender))
}

// TransferFrom moves amount from owner to recipient, spending spender's allowance.
// A zero amount is a successful no-op and spends nothing.
func (t *Token) TransferFrom(owner, spender, to stakewell.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	allowance, err := t.Allowance(owner, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := t.Transfer(owner, to, amount); err != nil {
		return err
	}
	t.setAmount(allowanceSlot(owner, spender), allowance.Sub(allowance, amount))
	return nil
}
