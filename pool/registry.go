// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"github.com/stakewell/stakewell/stakewell"
	"github.com/stakewell/stakewell/state"
)

// registryAddr is the fixed ledger identity of the pool rank registry.
var registryAddr = stakewell.NamedAddress("pool-registry")

func rankSlot(pool stakewell.Address) stakewell.Bytes32 {
	return stakewell.Keccak256([]byte("rank"), pool.Bytes())
}

// Registry is the owner-configured ranking over pools that authorizes
// migration targets. Rank zero means "not eligible for migration".
type Registry struct {
	store *storage
	sink  Sink
}

func newRegistry(st *state.State, sink Sink) *Registry {
	return &Registry{
		store: &storage{addr: registryAddr, state: st},
		sink:  sink,
	}
}

// Owner returns the registry's administrative owner.
func (r *Registry) Owner() (stakewell.Address, error) {
	return r.store.getAddress(slotOwner)
}

// initialize claims the registry for owner if not claimed yet.
func (r *Registry) initialize(owner stakewell.Address) error {
	current, err := r.Owner()
	if err != nil {
		return err
	}
	if !current.IsZero() {
		return nil
	}
	if owner.IsZero() {
		return configError("registry owner must not be the zero address")
	}
	r.store.setAddress(slotOwner, owner)
	return nil
}

// RankOf returns the pool's migration rank, zero if unranked.
func (r *Registry) RankOf(pool stakewell.Address) (uint64, error) {
	return r.store.getUint64(rankSlot(pool))
}

// SetRank assigns the pool's migration rank. Owner only.
func (r *Registry) SetRank(caller, pool stakewell.Address, rank uint64, now uint64) error {
	owner, err := r.Owner()
	if err != nil {
		return err
	}
	if caller != owner {
		return authError("%s is not the registry owner", caller)
	}
	r.store.setUint64(rankSlot(pool), rank)
	r.sink.post(Event{Pool: pool, Time: now, Name: EvRankChange, Data: &ConfigChangeData{Value: rank}})
	return nil
}
