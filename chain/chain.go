// Copyright 2024 The kod Authors
// This file is part of the kod library.
//
// The kod library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The kod library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the kod library. If not, see <http://www.gnu.org/licenses/>.

// Package chain is a minimal stand-in for the block-source selector and
// block importer spec.md §1 and §4.1 treat as external collaborators:
// "a best-chain selector" and "a block importer that accepts {origin =
// Own, header, body, fork_choice = LongestChain, state_action =
// ApplyChanges(storage_changes)}". It exists so miner.Miner is unit
// testable end to end without a full node.
//
// Per spec.md's Open Question #2, Import never verifies the header's PoW
// — it accepts any block and applies the longest-chain rule by length
// alone. This is flagged, not fixed: a production design must verify the
// PoW commitment on import.
package chain

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/kod-network/kod/common"
)

// Header is the minimal block header the miner reasons about.
type Header struct {
	ParentHash common.Hash
	Number     uint64
	Time       uint64 // unix millis
}

// Block pairs a header with an opaque body the proposer produced.
type Block struct {
	Header Header
	Body   interface{}
}

// ImportOrigin distinguishes self-produced blocks from ones received over
// the network (only Own is modeled here; network import is out of scope
// per spec.md §1).
type ImportOrigin int

const (
	OriginOwn ImportOrigin = iota
)

// ImportRequest is the narrow contract the block importer consumes.
type ImportRequest struct {
	Origin         ImportOrigin
	Header         Header
	Body           interface{}
	StorageChanges interface{}
}

// Chain is an in-memory header chain implementing the longest-chain rule.
// It is the concrete BestChainSelector + BlockImporter the miner drives.
type Chain struct {
	mu     sync.RWMutex
	blocks map[common.Hash]*Block
	best   *Block
}

// New returns a Chain seeded with a genesis header at number 0.
func New(genesis Header) *Chain {
	b := &Block{Header: genesis}
	h := hashHeader(genesis)
	return &Chain{
		blocks: map[common.Hash]*Block{h: b},
		best:   b,
	}
}

// hashHeader is a content hash good enough to key the in-memory block map;
// it is not the PoW digest (see miner.PreimageHash for that).
func hashHeader(h Header) common.Hash {
	buf := make([]byte, 0, 48)
	buf = append(buf, h.ParentHash[:]...)
	var num [8]byte
	for i := 0; i < 8; i++ {
		num[i] = byte(h.Number >> (8 * (7 - i)))
	}
	buf = append(buf, num[:]...)
	return common.Hash(sha256.Sum256(buf))
}

// BestHeader returns the current chain head.
func (c *Chain) BestHeader() Header {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.best.Header
}

// HeaderHash returns the content hash of h, exported so callers outside
// this package (e.g. the miner's preimage construction) can key off it.
func HeaderHash(h Header) common.Hash { return hashHeader(h) }

// Import applies req unconditionally: no PoW check, ForkChoice =
// LongestChain decided purely by header.Number (spec.md Open Question #2).
func (c *Chain) Import(req ImportRequest) error {
	if req.Header.Number == 0 {
		return fmt.Errorf("chain: cannot import genesis")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	b := &Block{Header: req.Header, Body: req.Body}
	c.blocks[hashHeader(req.Header)] = b
	if req.Header.Number > c.best.Header.Number {
		c.best = b
	}
	return nil
}
