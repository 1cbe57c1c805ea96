// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakewell/stakewell/kv"
	"github.com/stakewell/stakewell/stakewell"
)

func M(a ...interface{}) []interface{} {
	return a
}

var (
	testOwner    = stakewell.BytesToAddress([]byte("owner"))
	testTreasury = stakewell.BytesToAddress([]byte("treasury"))
	alice        = stakewell.BytesToAddress([]byte("alice"))
	bob          = stakewell.BytesToAddress([]byte("bob"))

	stakeTok  = stakewell.BytesToAddress([]byte("stake-tok"))
	rewardTok = stakewell.BytesToAddress([]byte("reward-tok"))

	poolA = stakewell.BytesToAddress([]byte("pool-a"))
	poolB = stakewell.BytesToAddress([]byte("pool-b"))
)

func newTestEngine(t *testing.T) *Engine {
	db, err := kv.NewMem()
	require.Nil(t, err)
	t.Cleanup(func() { db.Close() })

	engine, err := NewEngine(db, testOwner)
	require.Nil(t, err)
	t.Cleanup(engine.Close)
	return engine
}

// accumulatorConfig a plain accumulator pool with distinct stake and
// reward assets and no penalty.
func accumulatorConfig(rate int64) *Config {
	return &Config{
		Accounting:          AccountingAccumulator,
		Owner:               testOwner,
		StakeToken:          stakeTok,
		RewardToken:         rewardTok,
		Treasury:            testTreasury,
		RewardRatePerSecond: big.NewInt(rate),
	}
}

// sharesConfig a share-proportional pool; stake and reward are the same
// asset by construction.
func sharesConfig(rate int64) *Config {
	return &Config{
		Accounting:          AccountingShares,
		Owner:               testOwner,
		StakeToken:          stakeTok,
		Treasury:            testTreasury,
		RewardRatePerSecond: big.NewInt(rate),
	}
}

func mint(t *testing.T, e *Engine, tok, holder stakewell.Address, amount int64) {
	require.Nil(t, e.TokenMint(tok, holder, big.NewInt(amount)))
}

func balance(t *testing.T, e *Engine, tok, holder stakewell.Address) *big.Int {
	bal, err := e.TokenBalance(tok, holder)
	require.Nil(t, err)
	return bal
}

func position(t *testing.T, e *Engine, pool, holder stakewell.Address) *Position {
	var pos *Position
	require.Nil(t, e.View(pool, func(p *Pool) error {
		var err error
		pos, err = p.Position(holder)
		return err
	}))
	return pos
}

func pending(t *testing.T, e *Engine, pool, holder stakewell.Address, now uint64) *big.Int {
	var v *big.Int
	require.Nil(t, e.View(pool, func(p *Pool) error {
		var err error
		v, err = p.PendingReward(holder, now)
		return err
	}))
	return v
}

func totalPrincipal(t *testing.T, e *Engine, pool stakewell.Address) *big.Int {
	var v *big.Int
	require.Nil(t, e.View(pool, func(p *Pool) error {
		var err error
		v, err = p.TotalPrincipal()
		return err
	}))
	return v
}

func lastAccrual(t *testing.T, e *Engine, pool stakewell.Address) uint64 {
	var v uint64
	require.Nil(t, e.View(pool, func(p *Pool) error {
		var err error
		v, err = p.LastAccrualTime()
		return err
	}))
	return v
}

func accPerUnit(t *testing.T, e *Engine, pool stakewell.Address) *big.Int {
	var v *big.Int
	require.Nil(t, e.View(pool, func(p *Pool) error {
		var err error
		v, err = p.AccRewardPerUnit()
		return err
	}))
	return v
}

func ownerOf(t *testing.T, e *Engine, pool stakewell.Address) stakewell.Address {
	var owner stakewell.Address
	require.Nil(t, e.View(pool, func(p *Pool) error {
		var err error
		owner, err = p.Owner()
		return err
	}))
	return owner
}

// assertConservation checks that the token's supply equals the sum of
// the given holders' balances, i.e. the ops moved value but never
// created or destroyed it outside of explicit mints and burns.
func assertConservation(t *testing.T, e *Engine, tok stakewell.Address, holders ...stakewell.Address) {
	sum := new(big.Int)
	for _, h := range holders {
		sum.Add(sum, balance(t, e, tok, h))
	}
	supply, err := e.TokenSupply(tok)
	require.Nil(t, err)
	assert.Equal(t, supply, sum, "token %s conservation", tok)
}
