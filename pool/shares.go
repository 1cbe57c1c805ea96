// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/stakewell/stakewell/token"
)

// shareBooks values positions as shares of the pool's observable token
// balance. The pool clock pulls emitted reward from the treasury into
// that balance, so every position appreciates without its ledger entry
// being touched.
//
// Share minting and share-to-amount conversion both round down and are
// min-clamped against total shares and the pool balance, so a position
// can never be assigned more than is mathematically available. Direct
// token transfers to the pool therefore donate to all holders instead
// of diluting anyone.
type shareBooks struct {
	store *storage
	asset *token.Token
}

var _ accounting = (*shareBooks)(nil)

func (b *shareBooks) kind() Accounting {
	return AccountingShares
}

func (b *shareBooks) totalShares() (*big.Int, error) {
	return b.store.getAmount(slotTotalShares)
}

func (b *shareBooks) poolBalance() (*big.Int, error) {
	// always a fresh read; caching across the clock boundary would
	// value positions against a stale balance
	return b.asset.Balance(b.store.addr)
}

// accrue pulls newReward from the treasury into the pool balance.
// With zero shares outstanding nothing is pulled and the interval's
// reward is permanently lost.
func (b *shareBooks) accrue(newReward *big.Int) (*big.Int, error) {
	ts, err := b.totalShares()
	if err != nil {
		return nil, err
	}
	if ts.Sign() == 0 || newReward.Sign() == 0 {
		return nil, nil
	}
	treasury, err := b.store.getAddress(slotTreasury)
	if err != nil {
		return nil, err
	}
	if err := b.asset.TransferFrom(treasury, b.store.addr, b.store.addr, newReward); err != nil {
		return nil, fundsError(err, "treasury reward pull of %s", newReward)
	}
	return nil, nil
}

// claim returns the floored token amount the position's shares stand
// for, valued against the pool balance plus extraReward.
func (b *shareBooks) claim(pos *Position, extraReward *big.Int) (*big.Int, error) {
	ts, err := b.totalShares()
	if err != nil {
		return nil, err
	}
	if ts.Sign() == 0 {
		return new(big.Int), nil
	}
	bal, err := b.poolBalance()
	if err != nil {
		return nil, err
	}
	if extraReward.Sign() > 0 {
		bal = new(big.Int).Add(bal, extraReward)
	}
	shares := pos.ShareBalance
	if shares.Cmp(ts) > 0 {
		shares = ts
	}
	c := new(big.Int).Mul(shares, bal)
	c.Div(c, ts)
	if c.Cmp(bal) > 0 {
		c.Set(bal)
	}
	return c, nil
}

func (b *shareBooks) projected(pos *Position, extraReward *big.Int) (*big.Int, error) {
	c, err := b.claim(pos, extraReward)
	if err != nil {
		return nil, err
	}
	pend := c.Sub(c, pos.Principal)
	if pend.Sign() < 0 {
		pend.SetInt64(0)
	}
	return pend, nil
}

// credit mints shares for a deposit at the pre-transfer pool balance:
// the deposited tokens arrive only after the ledger mutation.
func (b *shareBooks) credit(pos *Position, amount *big.Int) (*big.Int, error) {
	ts, err := b.totalShares()
	if err != nil {
		return nil, err
	}
	bal, err := b.poolBalance()
	if err != nil {
		return nil, err
	}
	var minted *big.Int
	if ts.Sign() == 0 || bal.Sign() == 0 {
		// genesis rate 1:1
		minted = new(big.Int).Set(amount)
	} else {
		minted = new(big.Int).Mul(amount, ts)
		minted.Div(minted, bal)
	}
	pos.Principal = new(big.Int).Add(pos.Principal, amount)
	pos.ShareBalance = new(big.Int).Add(pos.ShareBalance, minted)
	b.store.setAmount(slotTotalShares, ts.Add(ts, minted))
	return minted, nil
}

// settle burns only the shares backing the payout, the pending reward
// plus the principal leaving. The burn rounds up so pending reads zero
// immediately after; shares backing the principal that stays are left
// untouched, so sibling positions keep their exact claim. A full
// principal exit burns the whole share balance, dust included.
func (b *shareBooks) settle(pos *Position, principalOut *big.Int) (*big.Int, *big.Int, error) {
	c, err := b.claim(pos, big0)
	if err != nil {
		return nil, nil, err
	}
	ts, err := b.totalShares()
	if err != nil {
		return nil, nil, err
	}
	bal, err := b.poolBalance()
	if err != nil {
		return nil, nil, err
	}

	pend := new(big.Int).Sub(c, pos.Principal)
	if pend.Sign() < 0 {
		pend.SetInt64(0)
	}

	remaining := new(big.Int).Sub(pos.Principal, principalOut)
	payout := new(big.Int).Add(principalOut, pend)

	burned := new(big.Int).Set(pos.ShareBalance)
	if remaining.Sign() > 0 && payout.Cmp(bal) < 0 {
		burned.Mul(payout, ts)
		burned.Add(burned, bal).Sub(burned, big1)
		burned.Div(burned, bal)
		if burned.Cmp(pos.ShareBalance) > 0 {
			burned.Set(pos.ShareBalance)
		}
	}
	if burned.Cmp(ts) > 0 {
		burned.Set(ts)
	}

	pos.Principal = remaining
	pos.ShareBalance = new(big.Int).Sub(pos.ShareBalance, burned)
	b.store.setAmount(slotTotalShares, ts.Sub(ts, burned))
	return pend, burned, nil
}

func (b *shareBooks) forfeit(pos *Position) (*big.Int, error) {
	ts, err := b.totalShares()
	if err != nil {
		return nil, err
	}
	burned := pos.ShareBalance
	if burned.Cmp(ts) > 0 {
		burned = new(big.Int).Set(ts)
	}
	b.store.setAmount(slotTotalShares, ts.Sub(ts, burned))
	pos.Principal = new(big.Int)
	pos.ShareBalance = new(big.Int)
	return burned, nil
}
