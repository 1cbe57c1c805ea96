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
)

const day = uint64(86400)

func TestRewardLinearity(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, accumulatorConfig(1e12)))
	mint(t, e, stakeTok, alice, 1000)
	mint(t, e, rewardTok, poolA, 1e18)

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))
	require.Nil(t, e.UpdatePool(poolA, t0+day))

	// a sole staker earns exactly rate * elapsed
	expected := new(big.Int).Mul(big.NewInt(1e12), new(big.Int).SetUint64(day))
	assert.Equal(t, expected, pending(t, e, poolA, alice, t0+day))

	require.Nil(t, e.Harvest(poolA, alice, alice, t0+day))
	assert.Equal(t, expected, balance(t, e, rewardTok, alice))
	assert.Equal(t, new(big.Int), pending(t, e, poolA, alice, t0+day))
}

func TestClockIdempotent(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, accumulatorConfig(1e12)))
	mint(t, e, stakeTok, alice, 1000)

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))
	require.Nil(t, e.UpdatePool(poolA, t0+100))

	acc := accPerUnit(t, e, poolA)
	require.Nil(t, e.UpdatePool(poolA, t0+100))
	assert.Equal(t, acc, accPerUnit(t, e, poolA))
	assert.Equal(t, t0+100, lastAccrual(t, e, poolA))

	// a stale timestamp is swallowed, the clock never goes back
	require.Nil(t, e.UpdatePool(poolA, t0+50))
	assert.Equal(t, t0+100, lastAccrual(t, e, poolA))
}

func TestZeroBaseRewardLost(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, accumulatorConfig(1e12)))
	mint(t, e, stakeTok, alice, 1000)

	// the clock advances over an empty pool but books nothing
	require.Nil(t, e.UpdatePool(poolA, 5000))
	assert.Equal(t, uint64(5000), lastAccrual(t, e, poolA))
	assert.Equal(t, new(big.Int), accPerUnit(t, e, poolA))

	// the empty interval is not paid out retroactively to later stakers
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), 6000))
	assert.Equal(t, new(big.Int), accPerUnit(t, e, poolA))
	assert.Equal(t, new(big.Int), pending(t, e, poolA, alice, 6000))

	require.Nil(t, e.UpdatePool(poolA, 6100))
	expected := new(big.Int).Mul(big.NewInt(1e12), big.NewInt(100))
	assert.Equal(t, expected, pending(t, e, poolA, alice, 6100))
}

func TestProportionalAttribution(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, accumulatorConfig(4000)))
	mint(t, e, stakeTok, alice, 1000)
	mint(t, e, stakeTok, bob, 3000)

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))
	require.Nil(t, e.Deposit(poolA, bob, bob, big.NewInt(3000), t0+100))
	require.Nil(t, e.UpdatePool(poolA, t0+200))

	// alice alone for 100s, then a quarter of the base for 100s
	assert.Equal(t, big.NewInt(100*4000+100*1000), pending(t, e, poolA, alice, t0+200))
	// bob gets three quarters of the second interval, nothing before
	assert.Equal(t, big.NewInt(100*3000), pending(t, e, poolA, bob, t0+200))
	// a late joiner is never attributed reward from before its deposit
	sum := new(big.Int).Add(pending(t, e, poolA, alice, t0+200), pending(t, e, poolA, bob, t0+200))
	assert.Equal(t, big.NewInt(200*4000), sum)
}

func TestAccumulatorMonotone(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, accumulatorConfig(1000)))
	mint(t, e, stakeTok, alice, 10000)
	mint(t, e, rewardTok, poolA, 1e15)

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))

	prev := new(big.Int)
	now := t0
	for i := 0; i < 5; i++ {
		now += 37
		require.Nil(t, e.UpdatePool(poolA, now))
		acc := accPerUnit(t, e, poolA)
		assert.True(t, acc.Cmp(prev) >= 0, "accumulator must never decrease")
		prev = acc
	}
	// withdrawing does not wind the accumulator back
	require.Nil(t, e.Withdraw(poolA, alice, alice, big.NewInt(1000), now+10))
	assert.True(t, accPerUnit(t, e, poolA).Cmp(prev) >= 0)
}

func TestWithdrawClampsDown(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, accumulatorConfig(1000)))
	mint(t, e, stakeTok, alice, 1000)
	mint(t, e, rewardTok, poolA, 1e15)

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))

	// asking for more than the position holds pays out the position, no more
	require.Nil(t, e.Withdraw(poolA, alice, alice, big.NewInt(999999), t0+100))
	assert.Equal(t, big.NewInt(1000), balance(t, e, stakeTok, alice))
	assert.Equal(t, big.NewInt(100*1000), balance(t, e, rewardTok, alice))

	pos := position(t, e, poolA, alice)
	assert.Equal(t, new(big.Int), pos.Principal)
	assert.Equal(t, new(big.Int), totalPrincipal(t, e, poolA))
	assertConservation(t, e, stakeTok, alice, poolA)
}

func TestDepositResetsPenaltyWindow(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, accumulatorConfig(1000)))
	mint(t, e, stakeTok, alice, 2000)

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))
	assert.Equal(t, t0, position(t, e, poolA, alice).LastDepositTime)

	// every top-up resets, vested or not
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(500), t0+50))
	assert.Equal(t, t0+50, position(t, e, poolA, alice).LastDepositTime)

	// even a zero-amount deposit does
	require.Nil(t, e.Deposit(poolA, alice, alice, new(big.Int), t0+80))
	assert.Equal(t, t0+80, position(t, e, poolA, alice).LastDepositTime)
}

func TestEarlyHarvestPenalty(t *testing.T) {
	e := newTestEngine(t)
	cfg := accumulatorConfig(1e12)
	cfg.EarlyWithdrawWindow = 20 * day
	cfg.PenaltyRateBps = 1000
	require.Nil(t, e.CreatePool(poolA, cfg))
	mint(t, e, stakeTok, alice, 1000)
	mint(t, e, rewardTok, poolA, 1e18)

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))

	// harvesting halfway through the window keeps 9/10 of the reward
	require.Nil(t, e.Harvest(poolA, alice, alice, t0+10*day))
	reward := new(big.Int).Mul(big.NewInt(1e12), new(big.Int).SetUint64(10*day))
	cut := new(big.Int).Div(reward, big.NewInt(10))
	net := new(big.Int).Sub(reward, cut)
	assert.Equal(t, net, balance(t, e, rewardTok, alice))

	// the burned cut shrank the reward supply
	supply, err := e.TokenSupply(rewardTok)
	require.Nil(t, err)
	assert.Equal(t, new(big.Int).Sub(big.NewInt(1e18), cut), supply)
}

func TestVestedHarvestNoPenalty(t *testing.T) {
	e := newTestEngine(t)
	cfg := accumulatorConfig(1000)
	cfg.EarlyWithdrawWindow = 20 * day
	cfg.PenaltyRateBps = 1000
	require.Nil(t, e.CreatePool(poolA, cfg))
	mint(t, e, stakeTok, alice, 1000)
	mint(t, e, rewardTok, poolA, 1e18)

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))
	require.Nil(t, e.Harvest(poolA, alice, alice, t0+21*day))

	reward := new(big.Int).Mul(big.NewInt(1000), new(big.Int).SetUint64(21*day))
	assert.Equal(t, reward, balance(t, e, rewardTok, alice))
}

func TestPenaltyOnTotalRoutedToOwner(t *testing.T) {
	e := newTestEngine(t)
	cfg := accumulatorConfig(1)
	cfg.EarlyWithdrawWindow = 1000
	cfg.PenaltyRateBps = 1000
	cfg.PenaltyRouting = RouteOwner
	cfg.PenaltyBase = BaseTotal
	require.Nil(t, e.CreatePool(poolA, cfg))
	mint(t, e, stakeTok, alice, 1000)
	mint(t, e, rewardTok, poolA, 1e15)

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))
	require.Nil(t, e.Withdraw(poolA, alice, alice, big.NewInt(1000), t0+100))

	// penalty = 10% of (1000 principal + 100 reward) = 110;
	// the reward absorbs 100 of it, the principal the remaining 10
	assert.Equal(t, big.NewInt(990), balance(t, e, stakeTok, alice))
	assert.Equal(t, new(big.Int), balance(t, e, rewardTok, alice))
	assert.Equal(t, big.NewInt(10), balance(t, e, stakeTok, testOwner))
	assert.Equal(t, big.NewInt(100), balance(t, e, rewardTok, testOwner))
	assertConservation(t, e, stakeTok, alice, testOwner, poolA)
}

func TestPenaltyWindowFromEpochStart(t *testing.T) {
	e := newTestEngine(t)
	cfg := accumulatorConfig(0)
	cfg.EarlyWithdrawWindow = 1000
	cfg.PenaltyRateBps = 1000
	cfg.PenaltyBase = BaseTotal
	require.Nil(t, e.CreatePool(poolA, cfg))
	mint(t, e, stakeTok, alice, 1000)

	// a deposit at timestamp zero opens the window like any other
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), 0))
	require.Nil(t, e.Withdraw(poolA, alice, alice, big.NewInt(1000), 500))

	assert.Equal(t, big.NewInt(900), balance(t, e, stakeTok, alice))
	supply, err := e.TokenSupply(stakeTok)
	require.Nil(t, err)
	assert.Equal(t, big.NewInt(900), supply)
}

func TestEmergencyWithdrawForfeitsReward(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, accumulatorConfig(1000)))
	mint(t, e, stakeTok, alice, 1000)
	mint(t, e, rewardTok, poolA, 1e15)

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))
	require.Nil(t, e.EmergencyWithdraw(poolA, alice, alice, t0+100))

	// principal back, reward abandoned, position gone
	assert.Equal(t, big.NewInt(1000), balance(t, e, stakeTok, alice))
	assert.Equal(t, new(big.Int), balance(t, e, rewardTok, alice))
	assert.True(t, position(t, e, poolA, alice).IsEmpty())
	assert.Equal(t, new(big.Int), totalPrincipal(t, e, poolA))

	// an empty position tolerates the call
	require.Nil(t, e.EmergencyWithdraw(poolA, alice, alice, t0+200))
}

func TestStakeCap(t *testing.T) {
	e := newTestEngine(t)
	cfg := accumulatorConfig(1000)
	cfg.StakeCap = big.NewInt(1500)
	require.Nil(t, e.CreatePool(poolA, cfg))
	mint(t, e, stakeTok, alice, 5000)

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))

	err := e.Deposit(poolA, alice, alice, big.NewInt(600), t0+10)
	assert.True(t, IsCapacityError(err))
	// the rejected deposit left nothing behind
	assert.Equal(t, big.NewInt(1000), totalPrincipal(t, e, poolA))
	assert.Equal(t, t0, position(t, e, poolA, alice).LastDepositTime)

	// filling the cap exactly is allowed
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(500), t0+20))

	// the cap cannot be pushed below what is already staked
	assert.True(t, IsConfigError(e.SetStakeCap(poolA, testOwner, big.NewInt(1000), t0+30)))
	// removing it works
	require.Nil(t, e.SetStakeCap(poolA, testOwner, nil, t0+40))
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(3000), t0+50))
}

func TestRateChangeProspective(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, accumulatorConfig(1000)))
	mint(t, e, stakeTok, alice, 1000)

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))
	require.Nil(t, e.SetRewardRate(poolA, testOwner, big.NewInt(2000), t0+100))
	require.Nil(t, e.UpdatePool(poolA, t0+200))

	// 100s at the old rate, 100s at the new one
	assert.Equal(t, big.NewInt(100*1000+100*2000), pending(t, e, poolA, alice, t0+200))
}

func TestConfigAuthorization(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, accumulatorConfig(1000)))

	assert.True(t, IsAuthError(e.SetRewardRate(poolA, bob, big.NewInt(1), 100)))
	assert.True(t, IsAuthError(e.SetPenalty(poolA, bob, 100, 100, RouteBurn, BaseReward, 100)))
	assert.True(t, IsAuthError(e.SetStakeCap(poolA, bob, big.NewInt(1), 100)))
	assert.True(t, IsAuthError(e.SetTreasury(poolA, bob, testTreasury, 100)))
	assert.True(t, IsAuthError(e.TransferOwnership(poolA, bob, alice, 100)))

	require.Nil(t, e.TransferOwnership(poolA, testOwner, alice, 100))
	require.Nil(t, e.SetRewardRate(poolA, alice, big.NewInt(5), 200))
	assert.True(t, IsAuthError(e.SetRewardRate(poolA, testOwner, big.NewInt(6), 300)))
}

func TestRenounceOwnershipAlwaysFails(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, accumulatorConfig(1000)))

	// nobody can renounce, not even the owner
	assert.True(t, IsAuthError(e.RenounceOwnership(poolA, testOwner)))
	assert.True(t, IsAuthError(e.RenounceOwnership(poolA, bob)))

	assert.Equal(t, testOwner, ownerOf(t, e, poolA))
}

func TestHarvestShortfallRollsBack(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, accumulatorConfig(1000)))
	mint(t, e, stakeTok, alice, 1000)
	// no reward reserve minted to the pool on purpose

	t0 := uint64(1000)
	require.Nil(t, e.Deposit(poolA, alice, alice, big.NewInt(1000), t0))
	require.Nil(t, e.UpdatePool(poolA, t0+100))

	before := pending(t, e, poolA, alice, t0+100)
	err := e.Harvest(poolA, alice, alice, t0+100)
	assert.True(t, IsFundsError(err))

	// total rollback: the failed harvest settled nothing
	assert.Equal(t, before, pending(t, e, poolA, alice, t0+100))
	assert.Equal(t, new(big.Int), balance(t, e, rewardTok, alice))
}

func TestDepositWithoutFundsRollsBack(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, accumulatorConfig(1000)))
	// alice owns nothing

	err := e.Deposit(poolA, alice, alice, big.NewInt(1000), 1000)
	assert.True(t, IsFundsError(err))
	assert.True(t, position(t, e, poolA, alice).IsEmpty())
	assert.Equal(t, new(big.Int), totalPrincipal(t, e, poolA))
	// the clock advance inside the failed call is rolled back too
	assert.Equal(t, uint64(0), lastAccrual(t, e, poolA))
}

func TestDepositToBeneficiary(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, accumulatorConfig(1000)))
	mint(t, e, stakeTok, alice, 1000)

	// alice funds bob's position
	require.Nil(t, e.Deposit(poolA, alice, bob, big.NewInt(1000), 1000))
	assert.True(t, position(t, e, poolA, alice).IsEmpty())
	assert.Equal(t, big.NewInt(1000), position(t, e, poolA, bob).Principal)
	assert.Equal(t, new(big.Int), balance(t, e, stakeTok, alice))
}

func TestInvalidAmounts(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.CreatePool(poolA, accumulatorConfig(1000)))

	assert.True(t, IsConfigError(e.Deposit(poolA, alice, alice, nil, 1000)))
	assert.True(t, IsConfigError(e.Deposit(poolA, alice, alice, big.NewInt(-1), 1000)))
	assert.True(t, IsConfigError(e.Withdraw(poolA, alice, alice, nil, 1000)))
	assert.True(t, IsConfigError(e.Withdraw(poolA, alice, alice, big.NewInt(-1), 1000)))
	assert.True(t, IsConfigError(e.SetRewardRate(poolA, testOwner, big.NewInt(-1), 1000)))
}
