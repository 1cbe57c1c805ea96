// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import "math/big"

// accounting is the position valuation capability behind the lifecycle
// operations. Given a position and current pool state it answers "what
// reward is pending" and books deposits, settlements and exits.
//
// All divisions round down; value lost to rounding stays in the pool.
type accounting interface {
	kind() Accounting

	// accrue books newReward emitted over an elapsed interval and
	// returns the per-unit accumulator observation, nil where the
	// strategy has none.
	accrue(newReward *big.Int) (*big.Int, error)

	// projected returns the reward claimable by pos once extraReward
	// (emission not yet booked by the clock) has been accrued; pass a
	// zero extraReward for the settled view. Never negative.
	projected(pos *Position, extraReward *big.Int) (*big.Int, error)

	// credit books a deposit of amount for pos and returns the
	// entitlement unit derived from it (shares minted, or the amount
	// itself for the accumulator strategy).
	credit(pos *Position, amount *big.Int) (unit *big.Int, err error)

	// settle books a full reward settlement plus a principal
	// withdrawal of principalOut. It returns the settled reward and
	// the entitlement unit released. After settle, pending is zero.
	settle(pos *Position, principalOut *big.Int) (reward, unit *big.Int, err error)

	// forfeit clears the position's entitlement without settling
	// reward; the abandoned reward stays in the pool. It returns the
	// entitlement unit released.
	forfeit(pos *Position) (unit *big.Int, err error)
}
