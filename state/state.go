// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/pkg/errors"

	"github.com/stakewell/stakewell/kv"
	"github.com/stakewell/stakewell/stakewell"
)

// storagePrefix namespaces persisted storage entries in the backing kv store.
var storagePrefix = []byte("sto")

// StorageEncoder defines the interface of custom storage encoding.
type StorageEncoder interface {
	Encode() ([]byte, error)
}

// StorageDecoder defines the interface of custom storage decoding.
type StorageDecoder interface {
	Decode(data []byte) error
}

// State manages addressed storage slots over a backing kv store,
// with checkpoint/revert and staged commits.
//
// All ledger mutations go through State, so reverting to a checkpoint
// rolls back every effect of an operation at once.
type State struct {
	store kv.Getter
	j     *journal
}

// New creates a state instance over the given store.
func New(store kv.Getter) *State {
	s := &State{
		store: store,
		j:     newJournal(),
	}
	// base level holds writes outside any checkpoint
	s.j.push()
	return s
}

func persistKey(key storageKey) []byte {
	b := make([]byte, 0, len(storagePrefix)+stakewell.AddressLength+32)
	b = append(b, storagePrefix...)
	b = append(b, key.addr.Bytes()...)
	b = append(b, key.slot.Bytes()...)
	return b
}

// GetRawStorage returns the raw stored value of the slot.
// An absent slot yields an empty value.
func (s *State) GetRawStorage(addr stakewell.Address, slot stakewell.Bytes32) ([]byte, error) {
	key := storageKey{addr, slot}
	if v, written := s.j.get(key); written {
		return v, nil
	}
	v, err := s.store.Get(persistKey(key))
	if err != nil {
		if s.store.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get storage")
	}
	return v, nil
}

// SetRawStorage sets the raw value of the slot. An empty value clears the slot.
func (s *State) SetRawStorage(addr stakewell.Address, slot stakewell.Bytes32, raw []byte) {
	s.j.put(storageKey{addr, slot}, raw)
}

// GetStorage returns the 32-byte value of the slot, zero if absent.
func (s *State) GetStorage(addr stakewell.Address, slot stakewell.Bytes32) (stakewell.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, slot)
	if err != nil {
		return stakewell.Bytes32{}, err
	}
	return stakewell.BytesToBytes32(raw), nil
}

// SetStorage sets the 32-byte value of the slot. A zero value clears the slot.
func (s *State) SetStorage(addr stakewell.Address, slot stakewell.Bytes32, value stakewell.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, slot, nil)
		return
	}
	// strip leading zeros so empty and zero collapse to the same form
	b := value.Bytes()
	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}
	s.SetRawStorage(addr, slot, b)
}

// EncodeStorage encodes a structured value into the slot.
// The encoder returning an empty slice clears the slot.
func (s *State) EncodeStorage(addr stakewell.Address, slot stakewell.Bytes32, enc StorageEncoder) error {
	raw, err := enc.Encode()
	if err != nil {
		return errors.Wrap(err, "encode storage")
	}
	s.SetRawStorage(addr, slot, raw)
	return nil
}

// DecodeStorage decodes the slot's value into a structured value.
// The decoder receives an empty slice for an absent slot.
func (s *State) DecodeStorage(addr stakewell.Address, slot stakewell.Bytes32, dec StorageDecoder) error {
	raw, err := s.GetRawStorage(addr, slot)
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return errors.Wrap(err, "decode storage")
	}
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns a checkpoint id to revert to.
func (s *State) NewCheckpoint() int {
	return s.j.push()
}

// RevertTo reverts state to the checkpoint, dropping all writes since.
func (s *State) RevertTo(checkpoint int) {
	s.j.popTo(checkpoint)
}

// Stage collects all accumulated writes ready to be committed.
type Stage struct {
	changes map[storageKey][]byte
}

// Stage makes a stage of the current state.
func (s *State) Stage() *Stage {
	return &Stage{changes: s.j.changes()}
}

// CommitTo persists all accumulated writes into the putter and resets
// the journal; reads keep falling through to the now-updated store.
func (s *State) CommitTo(p kv.Putter) error {
	if err := s.Stage().Commit(p); err != nil {
		return err
	}
	s.j = newJournal()
	s.j.push()
	return nil
}

// Commit persists staged writes into the putter in one batch.
func (stg *Stage) Commit(p kv.Putter) error {
	batch := p.NewBatch()
	for key, val := range stg.changes {
		if len(val) == 0 {
			if err := batch.Delete(persistKey(key)); err != nil {
				return errors.Wrap(err, "stage delete")
			}
			continue
		}
		if err := batch.Put(persistKey(key), val); err != nil {
			return errors.Wrap(err, "stage put")
		}
	}
	return errors.Wrap(batch.Write(), "stage commit")
}
