// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/stakewell/stakewell/stakewell"
	"github.com/stakewell/stakewell/state"
)

// Accounting selects the position valuation strategy of a pool.
// The two strategies are mutually exclusive per pool and are never
// unified: their rounding and zero-liquidity behavior differ on purpose.
type Accounting uint8

const (
	// AccountingAccumulator values positions against a monotone
	// per-unit reward accumulator and per-position reward debt.
	AccountingAccumulator = Accounting(iota)
	// AccountingShares values positions as a share of the pool's
	// observable token balance.
	AccountingShares
)

func (a Accounting) String() string {
	switch a {
	case AccountingAccumulator:
		return "accumulator"
	case AccountingShares:
		return "shares"
	default:
		return "unknown"
	}
}

// PenaltyRouting selects where early-withdrawal penalties go.
type PenaltyRouting uint8

const (
	// RouteBurn destroys the penalty (supply shrinks).
	RouteBurn = PenaltyRouting(iota)
	// RouteOwner pays the penalty to the pool owner.
	RouteOwner
)

// PenaltyBase selects what amount the penalty rate applies to.
type PenaltyBase uint8

const (
	// BaseReward taxes the reward portion only; principal is always whole.
	BaseReward = PenaltyBase(iota)
	// BaseTotal taxes principal plus reward on early exit.
	BaseTotal
)

// Position is one account's ledger entry in a pool.
// It is created lazily on first deposit and decays to the zero value;
// it is never explicitly destroyed.
type Position struct {
	Principal *big.Int
	// ShareBalance is used by the share-proportional strategy.
	ShareBalance *big.Int
	// RewardDebt is used by the accumulator strategy. Signed: it may dip
	// negative transiently to represent reward counted before this
	// deposit existed.
	RewardDebt *big.Int
	// LastDepositTime resets on every deposit, including top-ups of an
	// already vested position. Withdraw and harvest never touch it.
	LastDepositTime uint64
}

// storedPosition is the persisted form; rlp has no signed big.Int,
// so the debt sign is carried separately.
type storedPosition struct {
	Principal       *big.Int
	ShareBalance    *big.Int
	RewardDebtAbs   *big.Int
	RewardDebtNeg   bool
	LastDepositTime uint64
}

var (
	_ state.StorageEncoder = (*Position)(nil)
	_ state.StorageDecoder = (*Position)(nil)
)

func emptyPosition() *Position {
	return &Position{
		Principal:    new(big.Int),
		ShareBalance: new(big.Int),
		RewardDebt:   new(big.Int),
	}
}

// IsEmpty returns whether the entry can be treated as absent.
func (p *Position) IsEmpty() bool {
	return p.Principal.Sign() == 0 &&
		p.ShareBalance.Sign() == 0 &&
		p.RewardDebt.Sign() == 0 &&
		p.LastDepositTime == 0
}

// decay collapses a fully exited entry back to the zero value: with
// principal, shares and debt all gone the deposit timestamp guards
// nothing, and dropping it releases the storage slot.
func (p *Position) decay() {
	if p.Principal.Sign() == 0 && p.ShareBalance.Sign() == 0 && p.RewardDebt.Sign() == 0 {
		p.LastDepositTime = 0
	}
}

// Encode implements state.StorageEncoder. Empty positions collapse to
// no storage at all.
func (p *Position) Encode() ([]byte, error) {
	if p.IsEmpty() {
		return nil, nil
	}
	return rlp.EncodeToBytes(&storedPosition{
		Principal:       p.Principal,
		ShareBalance:    p.ShareBalance,
		RewardDebtAbs:   new(big.Int).Abs(p.RewardDebt),
		RewardDebtNeg:   p.RewardDebt.Sign() < 0,
		LastDepositTime: p.LastDepositTime,
	})
}

// Decode implements state.StorageDecoder.
func (p *Position) Decode(data []byte) error {
	if len(data) == 0 {
		*p = *emptyPosition()
		return nil
	}
	var stored storedPosition
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return err
	}
	debt := stored.RewardDebtAbs
	if stored.RewardDebtNeg {
		debt = new(big.Int).Neg(debt)
	}
	*p = Position{
		Principal:       stored.Principal,
		ShareBalance:    stored.ShareBalance,
		RewardDebt:      debt,
		LastDepositTime: stored.LastDepositTime,
	}
	return nil
}

// Config is the deployment-time shape of a pool.
type Config struct {
	Accounting Accounting
	Owner      stakewell.Address
	// StakeToken is the staked asset's ledger.
	StakeToken stakewell.Address
	// RewardToken is the reward asset's ledger. Share-proportional
	// pools are single-asset: leave zero to default to StakeToken.
	RewardToken stakewell.Address
	// Treasury funds reward pulls of the share-proportional clock.
	Treasury stakewell.Address
	// RewardRatePerSecond reward units emitted per second.
	RewardRatePerSecond *big.Int
	// EarlyWithdrawWindow seconds after a deposit during which exits
	// are penalized. Zero disables the penalty.
	EarlyWithdrawWindow uint64
	// PenaltyRateBps penalty rate in basis points, [0, 10000].
	PenaltyRateBps uint32
	PenaltyRouting PenaltyRouting
	PenaltyBase    PenaltyBase
	// StakeCap ceiling on aggregate principal; nil means uncapped.
	StakeCap *big.Int
}

func (c *Config) validate() error {
	if c.Owner.IsZero() {
		return configError("pool owner must not be the zero address")
	}
	if c.RewardRatePerSecond == nil || c.RewardRatePerSecond.Sign() < 0 {
		return configError("reward rate must be a non-negative integer")
	}
	if c.PenaltyRateBps > stakewell.MaxPenaltyBps {
		return configError("penalty rate %d exceeds %d bps", c.PenaltyRateBps, stakewell.MaxPenaltyBps)
	}
	if c.StakeToken.IsZero() {
		return configError("stake token must not be the zero address")
	}
	if c.Accounting == AccountingShares {
		if c.Treasury.IsZero() {
			return configError("share-proportional pool requires a treasury")
		}
		if !c.RewardToken.IsZero() && c.RewardToken != c.StakeToken {
			return configError("share-proportional pool is single-asset")
		}
	} else if c.RewardToken.IsZero() {
		return configError("reward token must not be the zero address")
	}
	if c.StakeCap != nil && c.StakeCap.Sign() < 0 {
		return configError("stake cap must not be negative")
	}
	return nil
}
