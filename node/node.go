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

// Package node wires the chain, ledger, runtime registry, and the two
// pallets into the single block-author/importer miner.Miner drives. It
// plays the role the teacher's miner/worker.go plays against a full
// tosconfig.Config-backed node: the one place that knows how to turn an
// inherent plus the current chain head into an imported block.
package node

import (
	"context"
	"fmt"
	"time"

	"github.com/kod-network/kod/chain"
	"github.com/kod-network/kod/chainspec"
	"github.com/kod-network/kod/common"
	"github.com/kod-network/kod/consensus/difficulty"
	"github.com/kod-network/kod/genesis"
	"github.com/kod-network/kod/ledger"
	"github.com/kod-network/kod/log"
	"github.com/kod-network/kod/miner"
	"github.com/kod-network/kod/pallet/reward"
	"github.com/kod-network/kod/pallet/trade"
	"github.com/kod-network/kod/runtime"
	"github.com/kod-network/kod/tradeidx"
)

// Node bundles the in-memory chain state a single kod process drives:
// the header chain, the reservable-currency ledger, the runtime pallet
// registry, and the off-chain trade indexer. It implements
// miner.BestChainSelector, miner.BlockImporter and miner.Proposer so a
// miner.Miner can be built directly against it.
type Node struct {
	Spec chainspec.ChainSpec

	Chain      *chain.Chain
	Ledger     *ledger.Ledger
	Difficulty *difficulty.Controller
	Registry   *runtime.Registry
	Reward     *reward.Pallet
	Trade      *trade.Pallet
	Indexer    *tradeidx.Indexer
}

// Config is everything New needs beyond the chain spec itself.
type Config struct {
	Spec        chainspec.ChainSpec
	Genesis     genesis.Config
	SS58Decoder reward.AddressDecoder
}

// New assembles a Node: applies genesis allocations, registers both
// pallets with the runtime, and starts the off-chain trade indexer.
func New(cfg Config) (*Node, error) {
	cfg.Spec.ApplyBounds()

	led := ledger.New(cfg.Spec.ExistentialDeposit)
	if err := genesis.Apply(led, cfg.Genesis); err != nil {
		return nil, fmt.Errorf("node: genesis: %w", err)
	}

	rewardPallet := reward.New(cfg.Spec.RewardConfig(genesis.MiningReserveAccount()), led, cfg.SS58Decoder)
	tradePallet := trade.New(cfg.Spec.TradeConfig(), led)

	registry := runtime.NewRegistry()
	registry.RegisterPallet(rewardPallet)
	registry.RegisterPallet(tradePallet)
	registry.RegisterHandler(rewardPallet)
	registry.RegisterHandler(tradePallet)

	idx := tradeidx.NewIndexer()
	idx.Start()

	genesisHeader := chain.Header{Number: 0, Time: uint64(time.Now().UnixMilli())}

	return &Node{
		Spec:       cfg.Spec,
		Chain:      chain.New(genesisHeader),
		Ledger:     led,
		Difficulty: difficulty.New(cfg.Spec.Difficulty),
		Registry:   registry,
		Reward:     rewardPallet,
		Trade:      tradePallet,
		Indexer:    idx,
	}, nil
}

// Close stops background work the Node started (currently just the trade
// indexer's consumer goroutine).
func (n *Node) Close() {
	n.Indexer.Stop()
}

// BestHeader implements miner.BestChainSelector.
func (n *Node) BestHeader() chain.Header { return n.Chain.BestHeader() }

// Import implements miner.BlockImporter.
func (n *Node) Import(req chain.ImportRequest) error { return n.Chain.Import(req) }

// Current implements miner.DifficultyReader.
func (n *Node) Current() uint64 { return n.Difficulty.Current() }

// RecordBlock implements miner.DifficultyReader.
func (n *Node) RecordBlock(blockNumber uint64, blockTimeMs uint64) {
	n.Difficulty.RecordBlock(blockNumber, blockTimeMs)
}

// Propose implements miner.Proposer: it runs one block's on_initialize /
// beneficiary-inherent / on_finalize cycle against parent+1, the way
// spec.md §5's per-block pipeline is ordered, and returns the resulting
// header plus that block's drained events as its opaque Body.
func (n *Node) Propose(ctx context.Context, parent chain.Header, inherents miner.InherentData, budget time.Duration) (*miner.ProposedBlock, error) {
	next := common.BlockNumber(parent.Number + 1)
	bus := runtime.NewEventBus()

	n.Registry.OnInitialize(next, bus)

	if len(inherents.Beneficiary) > 0 {
		data := reward.MinerInherentData{MinerAddress: inherents.Beneficiary}
		if err := n.Reward.CreateInherent(data, bus, n.Registry.Dispatch); err != nil {
			log.Warn("node: beneficiary inherent rejected", "block", next, "err", err)
		}
	}

	n.Registry.OnFinalize(next, bus)

	events := bus.Drain()
	n.Indexer.Submit(tradeidx.BlockEvents{BlockNumber: next, Events: events})

	header := chain.Header{
		ParentHash: chain.HeaderHash(parent),
		Number:     uint64(next),
		Time:       inherents.Timestamp,
	}
	return &miner.ProposedBlock{Header: header, Body: events}, nil
}

// Dispatch runs a signed or root-origin extrinsic against the node's
// runtime registry, draining and indexing any events it emits. CLI
// subcommands and RPC handlers both go through this single entry point
// rather than touching a pallet directly, mirroring spec.md §5's "all
// state transitions happen through dispatched calls" rule.
func (n *Node) Dispatch(call *runtime.Call) ([]runtime.Event, error) {
	bus := runtime.NewEventBus()
	if err := n.Registry.Dispatch(call, bus); err != nil {
		return nil, err
	}
	events := bus.Drain()
	n.Indexer.Submit(tradeidx.BlockEvents{BlockNumber: call.BlockNumber, Events: events})
	return events, nil
}
