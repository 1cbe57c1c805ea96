// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pools

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/stakewell/stakewell/stakewell"
)

// Summary is the external view of one pool.
type Summary struct {
	Address             stakewell.Address     `json:"address"`
	Accounting          string                `json:"accounting"`
	Owner               stakewell.Address     `json:"owner"`
	Treasury            stakewell.Address     `json:"treasury"`
	RewardRatePerSecond *math.HexOrDecimal256 `json:"rewardRatePerSecond"`
	LastAccrualTime     uint64                `json:"lastAccrualTime"`
	TotalPrincipal      *math.HexOrDecimal256 `json:"totalPrincipal"`
	TotalShares         *math.HexOrDecimal256 `json:"totalShares,omitempty"`
	AccRewardPerUnit    *math.HexOrDecimal256 `json:"accRewardPerUnit,omitempty"`
	StakeCap            *math.HexOrDecimal256 `json:"stakeCap,omitempty"`
	EarlyWithdrawWindow uint64                `json:"earlyWithdrawWindow"`
	PenaltyRateBps      uint32                `json:"penaltyRateBps"`
	Rank                uint64                `json:"rank"`
}

// PositionView is the external view of one holder's position.
type PositionView struct {
	Holder          stakewell.Address     `json:"holder"`
	Principal       *math.HexOrDecimal256 `json:"principal"`
	ShareBalance    *math.HexOrDecimal256 `json:"shareBalance,omitempty"`
	LastDepositTime uint64                `json:"lastDepositTime"`
	PendingReward   *math.HexOrDecimal256 `json:"pendingReward"`
}

// DepositRequest stakes Amount from Caller. Beneficiary defaults to Caller.
type DepositRequest struct {
	Caller      stakewell.Address     `json:"caller"`
	Beneficiary *stakewell.Address    `json:"beneficiary,omitempty"`
	Amount      *math.HexOrDecimal256 `json:"amount"`
	Now         uint64                `json:"now,omitempty"`
}

// WithdrawRequest pays out up to Amount of principal plus settled reward.
// To defaults to Caller.
type WithdrawRequest struct {
	Caller stakewell.Address     `json:"caller"`
	To     *stakewell.Address    `json:"to,omitempty"`
	Amount *math.HexOrDecimal256 `json:"amount"`
	Now    uint64                `json:"now,omitempty"`
}

// HarvestRequest pays out settled reward. To defaults to Caller.
type HarvestRequest struct {
	Caller stakewell.Address  `json:"caller"`
	To     *stakewell.Address `json:"to,omitempty"`
	Now    uint64             `json:"now,omitempty"`
}

// MigrateRequest moves the caller's whole stake to the target pool.
type MigrateRequest struct {
	Caller stakewell.Address `json:"caller"`
	Target stakewell.Address `json:"target"`
	Now    uint64            `json:"now,omitempty"`
}

// RewardRateRequest changes the emission rate. Pool owner only.
type RewardRateRequest struct {
	Caller stakewell.Address     `json:"caller"`
	Rate   *math.HexOrDecimal256 `json:"rate"`
	Now    uint64                `json:"now,omitempty"`
}

// PenaltyRequest changes the early-withdrawal policy. Pool owner only.
type PenaltyRequest struct {
	Caller  stakewell.Address `json:"caller"`
	Window  uint64            `json:"window"`
	Bps     uint32            `json:"bps"`
	Routing string            `json:"routing"`
	Base    string            `json:"base"`
	Now     uint64            `json:"now,omitempty"`
}

// StakeCapRequest changes the principal ceiling; a nil cap removes it.
type StakeCapRequest struct {
	Caller stakewell.Address     `json:"caller"`
	Cap    *math.HexOrDecimal256 `json:"cap,omitempty"`
	Now    uint64                `json:"now,omitempty"`
}

// TreasuryRequest changes the reward treasury. Pool owner only.
type TreasuryRequest struct {
	Caller   stakewell.Address `json:"caller"`
	Treasury stakewell.Address `json:"treasury"`
	Now      uint64            `json:"now,omitempty"`
}

// OwnerRequest hands the pool to NewOwner. Leaving NewOwner absent asks
// for a renounce, which is permanently disabled and always fails.
type OwnerRequest struct {
	Caller   stakewell.Address  `json:"caller"`
	NewOwner *stakewell.Address `json:"newOwner,omitempty"`
	Now      uint64             `json:"now,omitempty"`
}

// RankRequest assigns the pool's migration rank. Registry owner only.
type RankRequest struct {
	Caller stakewell.Address `json:"caller"`
	Rank   uint64            `json:"rank"`
	Now    uint64            `json:"now,omitempty"`
}

func toHexOrDecimal(v *big.Int) *math.HexOrDecimal256 {
	if v == nil {
		return nil
	}
	return (*math.HexOrDecimal256)(v)
}

func fromHexOrDecimal(v *math.HexOrDecimal256) *big.Int {
	if v == nil {
		return nil
	}
	return (*big.Int)(v)
}
