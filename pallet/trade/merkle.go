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

package trade

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/kod-network/kod/common"
)

// blake2hash256 is the hash primitive every commitment in this pallet uses,
// per the external-interfaces layout.
func blake2hash256(parts ...[]byte) common.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic("trade: blake2b.New256 with nil key cannot fail: " + err.Error())
	}
	for _, p := range parts {
		h.Write(p)
	}
	var out common.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// contractHash computes conditions_root || buyer || le_u64(block_number) || "accepted".
func contractHash(conditionsRoot common.Hash, buyer common.AccountId, blockNumber uint64) common.Hash {
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], blockNumber)
	return blake2hash256(conditionsRoot[:], buyer.Bytes(), le[:], []byte("accepted"))
}

// finalHash computes contract_hash || delivery_hash_or_zero || diag_report_hash_or_zero || "completed_with_diagnostics".
func finalHash(contract common.Hash, delivery, diagReport *common.Hash) common.Hash {
	d := common.ZeroHash
	if delivery != nil {
		d = *delivery
	}
	r := common.ZeroHash
	if diagReport != nil {
		r = *diagReport
	}
	return blake2hash256(contract[:], d[:], r[:], []byte("completed_with_diagnostics"))
}

// merkleNode hashes a binary tree node: blake2hash256(left || right).
func merkleNode(left, right common.Hash) common.Hash {
	return blake2hash256(left[:], right[:])
}

// verifyMerkleProof implements spec.md §4.4's leaf-to-root proof walk:
// for each sibling in proof order, combine (h||s) when the current index
// is even (left child), else (s||h); hash; shift index right by one.
// Accepts iff the final hash equals root.
func verifyMerkleProof(root, leaf common.Hash, proof []common.Hash, index uint64) bool {
	h := leaf
	i := index
	for _, s := range proof {
		if i%2 == 0 {
			h = merkleNode(h, s)
		} else {
			h = merkleNode(s, h)
		}
		i >>= 1
	}
	return h == root
}
