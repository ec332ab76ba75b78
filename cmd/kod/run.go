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

package main

import (
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kod-network/kod/chainspec"
	"github.com/kod-network/kod/cmd/utils"
	"github.com/kod-network/kod/genesis"
	"github.com/kod-network/kod/log"
	"github.com/kod-network/kod/miner"
	"github.com/kod-network/kod/node"
	"github.com/kod-network/kod/wallet"
)

var (
	chainFlag = &cli.StringFlag{
		Name:  "chain",
		Usage: "Chain spec to run: mainnet, local, or dev",
		Value: "mainnet",
	}
	mineFlag = &cli.BoolFlag{
		Name:  "mine",
		Usage: "Enable mining",
	}
	miningThreadsFlag = &cli.IntFlag{
		Name:  "mining-threads",
		Usage: "Number of parallel mining loops to run",
		Value: 1,
	}
	rewardAddressFlag = &cli.StringFlag{
		Name:  "reward-address",
		Usage: "SS58 address that receives block rewards when mining",
	}
)

var nodeFlags = []cli.Flag{
	chainFlag,
	mineFlag,
	miningThreadsFlag,
	rewardAddressFlag,
}

// runNode is the default action: it assembles a Node for the selected
// chain spec, optionally starts one or more mining loops against it, and
// blocks until interrupted.
func runNode(ctx *cli.Context) error {
	spec, err := chainspec.ByName(ctx.String(chainFlag.Name))
	if err != nil {
		utils.Fatalf("%v", err)
	}

	n, err := node.New(node.Config{
		Spec:        spec,
		Genesis:     devGenesisConfig(spec),
		SS58Decoder: wallet.SS58Decoder{Network: wallet.Mainnet},
	})
	if err != nil {
		utils.Fatalf("failed to start node: %v", err)
	}
	defer n.Close()

	log.Info("kod: node started", "chain", spec.Name)

	if ctx.Bool(mineFlag.Name) {
		startMining(ctx, n, spec)
	}

	waitForShutdown()
	return nil
}

// devGenesisConfig builds a single-node development genesis: the entire
// total supply credited to the mining reserve, no foundation allocations.
// The same genesis is built for every chain spec; no allocations are read
// from a file.
func devGenesisConfig(spec chainspec.ChainSpec) genesis.Config {
	totalSupply := new(big.Int).Mul(big.NewInt(21_000_000), chainspec.Unit)
	return genesis.Config{
		TotalSupply:        totalSupply,
		MiningReserveShare: totalSupply,
	}
}

func startMining(ctx *cli.Context, n *node.Node, spec chainspec.ChainSpec) {
	cfg := miner.DefaultConfig()
	cfg.TargetBlockTime = spec.TargetBlockTime

	if addr := ctx.String(rewardAddressFlag.Name); addr != "" {
		accountID, err := wallet.DecodeAddress(wallet.Mainnet, addr)
		if err != nil {
			utils.Fatalf("invalid --reward-address: %v", err)
		}
		cfg.RewardAddress = accountID
		cfg.HasRewardAddr = true
	}

	threads := ctx.Int(miningThreadsFlag.Name)
	if threads < 1 {
		threads = 1
	}
	for i := 0; i < threads; i++ {
		m := miner.New(cfg, n, n, n, n)
		m.Start()
		log.Info("kod: mining loop started", "thread", i)
	}
}

func waitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	fmt.Println()
	log.Info("kod: shutting down")
	time.Sleep(100 * time.Millisecond)
}
