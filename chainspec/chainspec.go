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

// Package chainspec holds the named sets of economic constants KOD Chain
// can start from, the way params.MainnetChainConfig/TestnetChainConfig
// select a protocol parameter set by network name. Every bound spec.md
// Design Note #4 calls "configuration, not a compiled literal" lives here.
package chainspec

import (
	"fmt"
	"math/big"
	"time"

	"github.com/kod-network/kod/common"
	"github.com/kod-network/kod/consensus/difficulty"
	"github.com/kod-network/kod/pallet/reward"
	"github.com/kod-network/kod/pallet/trade"
)

// Unit is the smallest on-chain fractional unit, 10^18, matching the
// "UNIT" constant spec.md's economic section names.
var Unit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ChainSpec is one named, complete set of KOD Chain's economic and
// protocol constants.
type ChainSpec struct {
	Name string

	TargetBlockTime time.Duration
	Difficulty      difficulty.Config

	InitialReward      *big.Int // in Unit
	HalvingInterval    uint64
	ExistentialDeposit *big.Int

	KodOnlyBlock uint64

	MinTradeBond       *big.Int
	MaxListingsPerUser uint32

	MaxMerkleProofDepth int
	MaxDiagnosticTests  int
	MaxContractClauses  int
	MaxContractBlobLen  int
	MaxKeyEnvelopeLen   int
}

func kod(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Unit)
}

// Mainnet is KOD Chain's canonical production constant set (spec.md §4,
// Design Note #4): 6s target blocks, 50 KOD initial reward, a 10.5M-block
// halving interval, and the 21M-block KOD-only activation height.
var Mainnet = ChainSpec{
	Name:            "mainnet",
	TargetBlockTime: 6 * time.Second,
	Difficulty: difficulty.Config{
		Initial:      1_000_000,
		Min:          1,
		Max:          1 << 40,
		Window:       2016,
		TargetTimeMs: 6000,
	},
	InitialReward:       kod(50),
	HalvingInterval:     10_500_000,
	ExistentialDeposit:  new(big.Int).Div(Unit, big.NewInt(1000)), // 10^15
	KodOnlyBlock:        21_000_000,
	MinTradeBond:        kod(1),
	MaxListingsPerUser:  50,
	MaxMerkleProofDepth: 16,
	MaxDiagnosticTests:  16,
	MaxContractClauses:  20,
	MaxContractBlobLen:  8192,
	MaxKeyEnvelopeLen:   256,
}

// Local is a fast-iteration development spec: short halving, low KOD-only
// block, and a trivial difficulty window so a single node can retarget and
// halve within a short manual test run.
var Local = ChainSpec{
	Name:            "local",
	TargetBlockTime: 1 * time.Second,
	Difficulty: difficulty.Config{
		Initial:      16,
		Min:          1,
		Max:          1 << 32,
		Window:       8,
		TargetTimeMs: 1000,
	},
	InitialReward:       kod(50),
	HalvingInterval:     200,
	ExistentialDeposit:  big.NewInt(1),
	KodOnlyBlock:        1_000_000,
	MinTradeBond:        big.NewInt(100),
	MaxListingsPerUser:  50,
	MaxMerkleProofDepth: 16,
	MaxDiagnosticTests:  16,
	MaxContractClauses:  20,
	MaxContractBlobLen:  8192,
	MaxKeyEnvelopeLen:   256,
}

// Dev is Local's single-node sibling: difficulty starts at its floor of 1
// and TargetBlockTime is zero, so `--mine` produces blocks immediately. The
// 8-block retarget window can still move difficulty up to Max.
var Dev = ChainSpec{
	Name:            "dev",
	TargetBlockTime: 0,
	Difficulty: difficulty.Config{
		Initial:      1,
		Min:          1,
		Max:          1 << 32,
		Window:       8,
		TargetTimeMs: 1000,
	},
	InitialReward:       kod(50),
	HalvingInterval:     200,
	ExistentialDeposit:  big.NewInt(1),
	KodOnlyBlock:        1_000_000,
	MinTradeBond:        big.NewInt(100),
	MaxListingsPerUser:  50,
	MaxMerkleProofDepth: 16,
	MaxDiagnosticTests:  16,
	MaxContractClauses:  20,
	MaxContractBlobLen:  8192,
	MaxKeyEnvelopeLen:   256,
}

// ByName resolves a chain spec from a CLI selector: "mainnet" (also the
// empty string), "local" or "dev". Any other name, including a path to a
// JSON spec file, is rejected with an error; no spec is loaded from a file.
func ByName(name string) (ChainSpec, error) {
	switch name {
	case "", "mainnet":
		return Mainnet, nil
	case "local":
		return Local, nil
	case "dev":
		return Dev, nil
	default:
		return ChainSpec{}, fmt.Errorf("chainspec: unknown chain %q", name)
	}
}

// RewardConfig builds the pallet/reward.Config this spec implies, given the
// account reserve rewards are paid out of.
func (c ChainSpec) RewardConfig(reserveAccount common.AccountId) reward.Config {
	return reward.Config{
		InitialReward:   new(big.Int).Set(c.InitialReward),
		HalvingInterval: c.HalvingInterval,
		ReserveAccount:  reserveAccount,
	}
}

// TradeConfig builds the pallet/trade.Config this spec implies.
func (c ChainSpec) TradeConfig() trade.Config {
	return trade.Config{
		MinBond:            new(big.Int).Set(c.MinTradeBond),
		MaxListingsPerUser: c.MaxListingsPerUser,
		KodOnlyBlock:       c.KodOnlyBlock,
	}
}

// ApplyBounds overrides the trade package's bound vars to match this spec,
// the way a chain spec's constants override compiled-in defaults.
func (c ChainSpec) ApplyBounds() {
	trade.MaxMerkleProofDepth = c.MaxMerkleProofDepth
	trade.MaxDiagnosticTests = c.MaxDiagnosticTests
	trade.MaxClauseTypes = c.MaxContractClauses
	trade.MaxContractBlobLen = c.MaxContractBlobLen
	trade.MaxKeyEnvelopeLen = c.MaxKeyEnvelopeLen
}
