// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stakewell/stakewell/kv"
	"github.com/stakewell/stakewell/stakewell"
	"github.com/stakewell/stakewell/state"
)

func M(a ...interface{}) []interface{} {
	return a
}

func newTestToken(t *testing.T) *Token {
	db, err := kv.NewMem()
	assert.Nil(t, err)
	t.Cleanup(func() { db.Close() })
	return New(stakewell.BytesToAddress([]byte("tok")), state.New(db))
}

func TestMintBurn(t *testing.T) {
	tok := newTestToken(t)
	holder := stakewell.BytesToAddress([]byte("a1"))

	assert.Equal(t, M(&big.Int{}, nil), M(tok.Balance(holder)))
	assert.Nil(t, tok.Mint(holder, big.NewInt(100)))
	assert.Equal(t, M(big.NewInt(100), nil), M(tok.Balance(holder)))
	assert.Equal(t, M(big.NewInt(100), nil), M(tok.TotalSupply()))

	assert.Nil(t, tok.Burn(holder, big.NewInt(40)))
	assert.Equal(t, M(big.NewInt(60), nil), M(tok.Balance(holder)))
	assert.Equal(t, M(big.NewInt(60), nil), M(tok.TotalSupply()))

	assert.Equal(t, ErrInsufficientBalance, tok.Burn(holder, big.NewInt(61)))
}

func TestTransfer(t *testing.T) {
	tok := newTestToken(t)
	a1 := stakewell.BytesToAddress([]byte("a1"))
	a2 := stakewell.BytesToAddress([]byte("a2"))

	assert.Nil(t, tok.Mint(a1, big.NewInt(100)))

	assert.Nil(t, tok.Transfer(a1, a2, big.NewInt(30)))
	assert.Equal(t, M(big.NewInt(70), nil), M(tok.Balance(a1)))
	assert.Equal(t, M(big.NewInt(30), nil), M(tok.Balance(a2)))

	assert.Equal(t, ErrInsufficientBalance, tok.Transfer(a1, a2, big.NewInt(71)))

	// zero transfer is a successful no-op
	assert.Nil(t, tok.Transfer(a2, a1, new(big.Int)))
	assert.Equal(t, M(big.NewInt(30), nil), M(tok.Balance(a2)))
}

func TestTransferFrom(t *testing.T) {
	tok := newTestToken(t)
	owner := stakewell.BytesToAddress([]byte("owner"))
	spender := stakewell.BytesToAddress([]byte("spender"))
	to := stakewell.BytesToAddress([]byte("to"))

	assert.Nil(t, tok.Mint(owner, big.NewInt(100)))

	assert.Equal(t, ErrInsufficientAllowance, tok.TransferFrom(owner, spender, to, big.NewInt(10)))

	assert.Nil(t, tok.Approve(owner, spender, big.NewInt(50)))
	assert.Equal(t, M(big.NewInt(50), nil), M(tok.Allowance(owner, spender)))

	assert.Nil(t, tok.TransferFrom(owner, spender, to, big.NewInt(20)))
	assert.Equal(t, M(big.NewInt(80), nil), M(tok.Balance(owner)))
	assert.Equal(t, M(big.NewInt(20), nil), M(tok.Balance(to)))
	assert.Equal(t, M(big.NewInt(30), nil), M(tok.Allowance(owner, spender)))

	assert.Equal(t, ErrInsufficientAllowance, tok.TransferFrom(owner, spender, to, big.NewInt(31)))
}
