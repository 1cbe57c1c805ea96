// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/stakewell/stakewell/stakewell"
)

// Event is an observation produced by a ledger operation.
// Exactly one lifecycle event is emitted per triggering call, plus one
// pool-update event each time the clock actually advances.
type Event struct {
	Pool stakewell.Address `json:"pool"`
	Time uint64            `json:"time"`
	Name string            `json:"name"`
	Data any               `json:"data"`
}

// Event names.
const (
	EvPoolUpdate        = "pool-update"
	EvDeposit           = "deposit"
	EvWithdraw          = "withdraw"
	EvHarvest           = "harvest"
	EvEmergencyWithdraw = "emergency-withdraw"
	EvMigrate           = "migrate"
	EvRateChange        = "rate-change"
	EvPenaltyChange     = "penalty-change"
	EvCapChange         = "cap-change"
	EvTreasuryChange    = "treasury-change"
	EvRankChange        = "rank-change"
	EvOwnerChange       = "owner-change"
)

// PoolUpdateData pool clock observation.
// AccRewardPerUnit is nil for share-proportional pools.
type PoolUpdateData struct {
	PrincipalBase    *big.Int `json:"principalBase"`
	AccRewardPerUnit *big.Int `json:"accRewardPerUnit,omitempty"`
}

// DepositData deposit observation.
type DepositData struct {
	Caller      stakewell.Address `json:"caller"`
	Amount      *big.Int          `json:"amount"`
	Unit        *big.Int          `json:"unit"`
	Beneficiary stakewell.Address `json:"beneficiary"`
}

// WithdrawData withdraw observation.
type WithdrawData struct {
	Caller stakewell.Address `json:"caller"`
	Amount *big.Int          `json:"amount"`
	Unit   *big.Int          `json:"unit"`
	To     stakewell.Address `json:"to"`
}

// HarvestData harvest observation.
type HarvestData struct {
	Caller stakewell.Address `json:"caller"`
	Reward *big.Int          `json:"reward"`
}

// EmergencyWithdrawData emergency exit observation.
type EmergencyWithdrawData struct {
	Caller stakewell.Address `json:"caller"`
	Amount *big.Int          `json:"amount"`
	Unit   *big.Int          `json:"unit"`
	To     stakewell.Address `json:"to"`
}

// MigrateData migration observation.
type MigrateData struct {
	Caller stakewell.Address `json:"caller"`
	Target stakewell.Address `json:"target"`
	Amount *big.Int          `json:"amount"`
}

// ConfigChangeData configuration mutation observation.
type ConfigChangeData struct {
	Value any `json:"value"`
}

// Sink receives emitted events. A nil sink drops them.
type Sink func(Event)

func (s Sink) post(ev Event) {
	if s != nil {
		s(ev)
	}
}
