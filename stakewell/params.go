// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakewell

import "math/big"

// Constants of the reward accrual arithmetic.
var (
	// RewardPrecision is the fixed-point scale applied to per-unit reward
	// accumulators. Shared by accrual and valuation, never redefined elsewhere.
	RewardPrecision = big.NewInt(1e12)

	// BpsDenominator is the basis-point denominator for penalty rates.
	BpsDenominator = big.NewInt(10000)
)

// MaxPenaltyBps is the upper bound of a penalty rate, 100%.
const MaxPenaltyBps = 10000
