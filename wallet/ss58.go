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

package wallet

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/kod-network/kod/common"
)

// Network selects the address prefix byte, the way tosalign picks between
// its mainnet/testnet bech32 HRPs.
type Network byte

const (
	Mainnet Network = 0x2a
	Testnet Network = 0x4b
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var (
	errAddressInvalidPrefix  = errors.New("wallet: invalid address network prefix")
	errAddressInvalidLength  = errors.New("wallet: invalid address payload length")
	errAddressInvalidChar    = errors.New("wallet: invalid base58 character")
	errAddressChecksumFailed = errors.New("wallet: address checksum mismatch")
)

// checksum is the first 2 bytes of sha256(sha256(prefix || payload)), the
// same double-hash-then-truncate shape as Bitcoin base58check, standing in
// for SS58's blake2b-keyed checksum (blake2b isn't reused here: the chain
// has no need to verify these checksums on-chain).
func checksum(prefix byte, payload []byte) [2]byte {
	buf := make([]byte, 0, 1+len(payload))
	buf = append(buf, prefix)
	buf = append(buf, payload...)
	first := sha256.Sum256(buf)
	second := sha256.Sum256(first[:])
	var out [2]byte
	copy(out[:], second[:2])
	return out
}

// EncodeAddress renders an AccountId as a base58check string under the
// given network prefix: prefix || account || checksum(prefix, account).
func EncodeAddress(net Network, id common.AccountId) string {
	cs := checksum(byte(net), id[:])
	raw := make([]byte, 0, 1+common.AccountIdLength+2)
	raw = append(raw, byte(net))
	raw = append(raw, id[:]...)
	raw = append(raw, cs[:]...)
	return base58Encode(raw)
}

// DecodeAddress parses a base58check address string back into an AccountId,
// verifying its network prefix and checksum. SS58Decoder.DecodeSS58 wraps
// it to implement pallet/reward.AddressDecoder.
func DecodeAddress(net Network, s string) (common.AccountId, error) {
	raw, err := base58Decode(s)
	if err != nil {
		return common.AccountId{}, err
	}
	if len(raw) != 1+common.AccountIdLength+2 {
		return common.AccountId{}, errAddressInvalidLength
	}
	if raw[0] != byte(net) {
		return common.AccountId{}, fmt.Errorf("%w: got 0x%02x, want 0x%02x", errAddressInvalidPrefix, raw[0], byte(net))
	}
	payload := raw[1 : 1+common.AccountIdLength]
	wantCS := raw[1+common.AccountIdLength:]
	gotCS := checksum(raw[0], payload)
	if gotCS[0] != wantCS[0] || gotCS[1] != wantCS[1] {
		return common.AccountId{}, errAddressChecksumFailed
	}
	return common.BytesToAccountId(payload), nil
}

// SS58Decoder implements pallet/reward.AddressDecoder against its Network prefix.
type SS58Decoder struct{ Network Network }

func (d SS58Decoder) DecodeSS58(s string) (common.AccountId, error) {
	return DecodeAddress(d.Network, s)
}

func base58Encode(input []byte) string {
	zeros := 0
	for zeros < len(input) && input[zeros] == 0 {
		zeros++
	}

	num := new(big.Int).SetBytes(input)
	base := big.NewInt(58)
	mod := new(big.Int)
	var out []byte
	for num.Sign() > 0 {
		num.DivMod(num, base, mod)
		out = append(out, base58Alphabet[mod.Int64()])
	}
	for i := 0; i < zeros; i++ {
		out = append(out, base58Alphabet[0])
	}
	// reverse
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return string(out)
}

func base58Decode(s string) ([]byte, error) {
	num := new(big.Int)
	base := big.NewInt(58)
	for _, c := range s {
		idx := indexOfBase58(byte(c))
		if idx < 0 {
			return nil, errAddressInvalidChar
		}
		num.Mul(num, base)
		num.Add(num, big.NewInt(int64(idx)))
	}
	decoded := num.Bytes()

	zeros := 0
	for zeros < len(s) && s[zeros] == base58Alphabet[0] {
		zeros++
	}
	out := make([]byte, zeros+len(decoded))
	copy(out[zeros:], decoded)
	return out, nil
}

func indexOfBase58(c byte) int {
	for i := 0; i < len(base58Alphabet); i++ {
		if base58Alphabet[i] == c {
			return i
		}
	}
	return -1
}
