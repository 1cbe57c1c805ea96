// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import "github.com/stakewell/stakewell/stakewell"

type storageKey struct {
	addr stakewell.Address
	slot stakewell.Bytes32
}

// journal maintains storage writes in a stack of levels.
// Each level inherits key/value of levels below it, giving
// save-restore/checkpoint-revert semantics.
type journal struct {
	levels []*level
	// per-key stack of level indexes holding a write, for fast lookup
	keyRevisions map[storageKey][]int
}

type level struct {
	kvs map[storageKey][]byte
}

func newJournal() *journal {
	return &journal{
		keyRevisions: make(map[storageKey][]int),
	}
}

// depth returns the count of pushed levels.
func (j *journal) depth() int {
	return len(j.levels)
}

// push pushes a new level and returns the depth before push.
func (j *journal) push() int {
	j.levels = append(j.levels, &level{kvs: make(map[storageKey][]byte)})
	return len(j.levels) - 1
}

// pop drops the topmost level, reverting all writes since the matching push.
func (j *journal) pop() {
	top := j.levels[len(j.levels)-1]
	for key := range top.kvs {
		revs := j.keyRevisions[key]
		revs = revs[:len(revs)-1]
		if len(revs) == 0 {
			delete(j.keyRevisions, key)
		} else {
			j.keyRevisions[key] = revs
		}
	}
	j.levels = j.levels[:len(j.levels)-1]
}

// popTo pops levels until depth reaches the given depth.
func (j *journal) popTo(depth int) {
	for len(j.levels) > depth {
		j.pop()
	}
}

// get returns the latest written value for key.
// The second return value indicates whether key was ever written.
func (j *journal) get(key storageKey) ([]byte, bool) {
	if revs, ok := j.keyRevisions[key]; ok {
		lvl := j.levels[revs[len(revs)-1]]
		if v, ok := lvl.kvs[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// put writes key value into the topmost level.
// It panics if no level was pushed.
func (j *journal) put(key storageKey, value []byte) {
	rev := len(j.levels) - 1
	top := j.levels[rev]
	if _, exist := top.kvs[key]; !exist {
		j.keyRevisions[key] = append(j.keyRevisions[key], rev)
	}
	top.kvs[key] = value
}

// changes collects the final value of every written key, bottom-up so that
// later levels win.
func (j *journal) changes() map[storageKey][]byte {
	out := make(map[storageKey][]byte)
	for _, lvl := range j.levels {
		for k, v := range lvl.kvs {
			out[k] = v
		}
	}
	return out
}
