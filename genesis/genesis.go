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

// Package genesis builds KOD Chain's starting ledger state: the mining
// reserve the reward pallet pays out of, plus any foundation allocations.
// Mirrors core.DefaultGenesisBlock's role as the canonical
// one-function-builds-the-starting-state entry point, narrowed from a
// full EVM genesis block (extra data, difficulty, gas limit, per-address
// EVM account state) to KOD Chain's ledger-only state.
package genesis

import (
	"math/big"

	"github.com/kod-network/kod/common"
	"github.com/kod-network/kod/ledger"
)

// mineReserveTag is the 8-byte tag the mining-reserve account id is
// derived from, the way spec.md's genesis section names it.
const mineReserveTag = "mineresv"

// MiningReserveAccount returns the well-known account the reward pallet
// treats as its payout source: the ASCII tag "mineresv" left-padded with
// zero bytes into an AccountId (the tag fills the trailing bytes), the same BytesToAccountId truncation/pad convention
// common.BytesToAccountId documents for deriving well-known ids from short
// tags.
func MiningReserveAccount() common.AccountId {
	return common.BytesToAccountId([]byte(mineReserveTag))
}

// Allocation is one named genesis balance, e.g. a foundation or ecosystem
// account funded at network start.
type Allocation struct {
	Name    string
	Account common.AccountId
	Amount  *big.Int
}

// Config is the full genesis allocation plan: the mining reserve plus any
// number of named foundation allocations, summing to TotalSupply.
type Config struct {
	TotalSupply        *big.Int
	MiningReserveShare *big.Int // amount credited to MiningReserveAccount()
	Foundation         []Allocation
}

// Apply credits every allocation in cfg to led, returning an error if the
// allocations do not sum to TotalSupply (a misconfigured genesis is a
// build-time bug, not a runtime condition to tolerate).
func Apply(led *ledger.Ledger, cfg Config) error {
	sum := new(big.Int).Set(cfg.MiningReserveShare)
	for _, a := range cfg.Foundation {
		sum.Add(sum, a.Amount)
	}
	if cfg.TotalSupply != nil && sum.Cmp(cfg.TotalSupply) != 0 {
		return &AllocationMismatchError{Want: cfg.TotalSupply, Got: sum}
	}

	led.AddBalance(MiningReserveAccount(), cfg.MiningReserveShare)
	for _, a := range cfg.Foundation {
		led.AddBalance(a.Account, a.Amount)
	}
	return nil
}

// AllocationMismatchError reports a genesis config whose allocations don't
// sum to its declared total supply.
type AllocationMismatchError struct {
	Want *big.Int
	Got  *big.Int
}

func (e *AllocationMismatchError) Error() string {
	return "genesis: allocations sum to " + e.Got.String() + ", want total supply " + e.Want.String()
}
