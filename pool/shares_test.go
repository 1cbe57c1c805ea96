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

	"github.com/stakewell/stakewell/stakewell"
)

func totalShares(t *testing.T, e *Engine, pool stakewell.Address) *big.Int {
	var v *big.Int
	require.Nil(t, e.View(pool, func(p *Pool) error {
		var err error
		v, err = p.TotalShares()
		return err
	}))
	return v
}

// fundTreasury endows the treasury and approves the pool to pull reward.
func fundTreasury(t *testing.T, e *Engine, pool stakewell.Address, amount int64) {
	mint(t, e, stakeTok, testTreasury, amount)
	require.Nil(t, e.TokenApprove(stakeTok, testTreasury, pool, big.NewInt(amount)))
}

func TestShareGenesisMint(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, sharesConfig(10)))
	mint(t, e, stakeTok, alice, 1000)

	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), 1000))

	pos := position(t, e, poolA, alice)
	assert.Equal(t, big.NewInt(1000), pos.Principal)
	assert.Equal(t, big.NewInt(1000), pos.ShareBalance)
	assert.Equal(t, big.NewInt(1000), totalShares(t, e, poolA))
	assert.Equal(t, new(big.Int), pending(t, e, poolA, alice, 1000))
}

func TestShareAppreciation(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, sharesConfig(10)))
	mint(t, e, stakeTok, alice, 1000)
	mint(t, e, stakeTok, bob, 2000)
	fundTreasury(t, e, poolA, 1e6)

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))

	// the clock pulls emitted reward from the treasury into the pool
	require.Nil(t, e.UpdatePool(poolA, t0+100))
	assert.Equal(t, big.NewInt(2000), balance(t, e, stakeTok, poolA))
	assert.Equal(t, big.NewInt(1000), pending(t, e, poolA, alice, t0+100))

	// a later deposit buys shares at the appreciated rate
	require.Nil(t, e.Deposit(poolA, bob, bob, big.NewInt(2000), t0+100))
	assert.Equal(t, big.NewInt(1000), position(t, e, poolA, bob).ShareBalance)
	assert.Equal(t, new(big.Int), pending(t, e, poolA, bob, t0+100))

	// the next interval splits by share, not by principal
	require.Nil(t, e.UpdatePool(poolA, t0+200))
	assert.Equal(t, big.NewInt(1500), pending(t, e, poolA, alice, t0+200))
	assert.Equal(t, big.NewInt(500), pending(t, e, poolA, bob, t0+200))
}

func TestShareFullExit(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, sharesConfig(10)))
	mint(t, e, stakeTok, alice, 1000)
	mint(t, e, stakeTok, bob, 2000)
	fundTreasury(t, e, poolA, 1e6)

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))
	require.Nil(t, e.UpdatePool(poolA, t0+100))
	require.Nil(t, e.Deposit(poolA, bob, bob, big.NewInt(2000), t0+100))

	require.Nil(t, e.Withdraw(poolA, alice, alice, big.NewInt(1000), t0+200))

	// principal plus the full share of appreciation
	assert.Equal(t, big.NewInt(2500), balance(t, e, stakeTok, alice))
	assert.True(t, position(t, e, poolA, alice).IsEmpty())

	// bob's claim is untouched by alice's exit
	assert.Equal(t, big.NewInt(500), pending(t, e, poolA, bob, t0+200))
	assert.Equal(t, big.NewInt(2000), position(t, e, poolA, bob).Principal)
}

func TestShareExitOnEmptyPoolIsNoop(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, sharesConfig(10)))
	mint(t, e, stakeTok, alice, 1000)

	// with zero aggregate principal both exits are documented no-ops
	assert.Nil(t, e.Withdraw(poolA, alice, alice, big.NewInt(1000), 2000))
	assert.Nil(t, e.Harvest(poolA, alice, alice, 2000))
	assert.Equal(t, big.NewInt(1000), balance(t, e, stakeTok, alice))
	assert.True(t, position(t, e, poolA, alice).IsEmpty())
}

func TestShareDonationAppreciates(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, sharesConfig(0)))
	mint(t, e, stakeTok, alice, 1000)
	mint(t, e, stakeTok, bob, 500)

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))

	// a direct transfer donates to all holders instead of diluting them
	require.Nil(t, e.TokenTransfer(stakeTok, bob, poolA, big.NewInt(500)))
	assert.Equal(t, big.NewInt(500), pending(t, e, poolA, alice, t0+1))
}

func TestShareTreasuryShortfallRollsBack(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, sharesConfig(10)))
	mint(t, e, stakeTok, alice, 1000)
	// treasury neither funded nor approved

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))

	err := e.UpdatePool(poolA, t0+100)
	assert.True(t, IsFundsError(err))
	// the whole accrual reverted, clock included
	assert.Equal(t, t0, lastAccrual(t, e, poolA))
	assert.Equal(t, big.NewInt(1000), balance(t, e, stakeTok, poolA))
}

func TestShareEmergencyWithdraw(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, sharesConfig(10)))
	mint(t, e, stakeTok, alice, 1000)
	mint(t, e, stakeTok, bob, 1000)
	fundTreasury(t, e, poolA, 1e6)

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))
	require.Nil(t, e.Deposit(poolA, bob, bob, big.NewInt(1000), t0))
	require.Nil(t, e.UpdatePool(poolA, t0+100))

	require.Nil(t, e.EmergencyWithdraw(poolA, alice, alice, t0+100))

	// principal only; alice's abandoned reward accrues to bob
	assert.Equal(t, big.NewInt(1000), balance(t, e, stakeTok, alice))
	assert.True(t, position(t, e, poolA, alice).IsEmpty())
	assert.Equal(t, big.NewInt(1000), totalShares(t, e, poolA))
	assert.Equal(t, big.NewInt(1000), pending(t, e, poolA, bob, t0+100))
}

func TestShareHarvestLeavesSiblingWhole(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, sharesConfig(10)))
	mint(t, e, stakeTok, alice, 1000)
	mint(t, e, stakeTok, bob, 1000)
	fundTreasury(t, e, poolA, 1e6)

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))
	require.Nil(t, e.Deposit(poolA, bob, bob, big.NewInt(1000), t0))
	require.Nil(t, e.UpdatePool(poolA, t0+100))
	assert.Equal(t, big.NewInt(500), pending(t, e, poolA, alice, t0+100))
	assert.Equal(t, big.NewInt(500), pending(t, e, poolA, bob, t0+100))

	require.Nil(t, e.Harvest(poolA, alice, alice, t0+100))
	assert.Equal(t, big.NewInt(500), balance(t, e, stakeTok, alice))
	assert.Equal(t, new(big.Int), pending(t, e, poolA, alice, t0+100))

	// alice settling her reward must not move bob's claim
	assert.Equal(t, big.NewInt(500), pending(t, e, poolA, bob, t0+100))

	require.Nil(t, e.Harvest(poolA, bob, bob, t0+100))
	assert.Equal(t, big.NewInt(500), balance(t, e, stakeTok, bob))

	// both rewards paid, the pool still backs all principal in full
	assert.Equal(t, big.NewInt(2000), balance(t, e, stakeTok, poolA))
	assert.Equal(t, big.NewInt(2000), totalPrincipal(t, e, poolA))

	require.Nil(t, e.Withdraw(poolA, alice, alice, big.NewInt(1000), t0+100))
	require.Nil(t, e.Withdraw(poolA, bob, bob, big.NewInt(1000), t0+100))
	assert.Equal(t, big.NewInt(1500), balance(t, e, stakeTok, alice))
	assert.Equal(t, big.NewInt(1500), balance(t, e, stakeTok, bob))
	assert.Equal(t, new(big.Int), balance(t, e, stakeTok, poolA))
	assertConservation(t, e, stakeTok, alice, bob, poolA, testTreasury)
}

func TestSharePartialWithdrawKeepsSiblingWhole(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, sharesConfig(10)))
	mint(t, e, stakeTok, alice, 1000)
	mint(t, e, stakeTok, bob, 1000)
	fundTreasury(t, e, poolA, 1e6)

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))
	require.Nil(t, e.Deposit(poolA, bob, bob, big.NewInt(1000), t0))
	require.Nil(t, e.UpdatePool(poolA, t0+100))

	// partial exit: 400 principal plus the full 500 reward
	require.Nil(t, e.Withdraw(poolA, alice, alice, big.NewInt(400), t0+100))
	assert.Equal(t, big.NewInt(900), balance(t, e, stakeTok, alice))
	assert.Equal(t, big.NewInt(600), position(t, e, poolA, alice).Principal)
	assert.Equal(t, new(big.Int), pending(t, e, poolA, alice, t0+100))

	// bob's claim is exactly where it was
	assert.Equal(t, big.NewInt(500), pending(t, e, poolA, bob, t0+100))

	// outstanding principal and bob's reward remain fully backed
	assert.Equal(t, big.NewInt(2100), balance(t, e, stakeTok, poolA))
	assert.Equal(t, big.NewInt(1600), totalPrincipal(t, e, poolA))

	require.Nil(t, e.Withdraw(poolA, bob, bob, big.NewInt(1000), t0+100))
	assert.Equal(t, big.NewInt(1500), balance(t, e, stakeTok, bob))

	require.Nil(t, e.Withdraw(poolA, alice, alice, big.NewInt(600), t0+100))
	assert.Equal(t, big.NewInt(1500), balance(t, e, stakeTok, alice))
	assert.Equal(t, new(big.Int), balance(t, e, stakeTok, poolA))
	assert.True(t, position(t, e, poolA, alice).IsEmpty())
}

func TestSharePoolConfigValidation(t *testing.T) {
	e := newTestEngine(t)

	cfg := sharesConfig(10)
	cfg.Treasury = stakewell.Address{}
	assert.True(t, IsConfigError(e.CreatePool(poolA, cfg)))

	cfg = sharesConfig(10)
	cfg.RewardToken = rewardTok
	assert.True(t, IsConfigError(e.CreatePool(poolA, cfg)))

	// the stake token doubles as the reward token when left implicit
	require.Nil(t, e.CreatePool(poolA, sharesConfig(10)))
}
