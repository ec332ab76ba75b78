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
	"github.com/urfave/cli/v2"

	"github.com/kod-network/kod/chainspec"
	"github.com/kod-network/kod/cmd/utils"
	"github.com/kod-network/kod/genesis"
	"github.com/kod-network/kod/node"
	"github.com/kod-network/kod/wallet"
)

var chainInfoCommand = &cli.Command{
	Name:  "chain-info",
	Usage: "print genesis and runtime bounds for a chain spec without starting a node",
	Flags: []cli.Flag{chainFlag},
	Action: func(ctx *cli.Context) error {
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
			utils.Fatalf("failed to build node: %v", err)
		}
		defer n.Close()

		best := n.BestHeader()
		out := struct {
			Chain              string `json:"chain"`
			GenesisBlockNumber uint64 `json:"genesis_block_number"`
			MiningReserve      string `json:"mining_reserve_account"`
			MiningReserveFree  string `json:"mining_reserve_free"`
			InitialDifficulty  uint64 `json:"initial_difficulty"`
			KodOnlyBlock       uint64 `json:"kod_only_block"`
		}{
			Chain:              spec.Name,
			GenesisBlockNumber: best.Number,
			MiningReserve:      genesis.MiningReserveAccount().Hex(),
			MiningReserveFree:  n.Ledger.FreeBalance(genesis.MiningReserveAccount()).String(),
			InitialDifficulty:  n.Current(),
			KodOnlyBlock:       spec.KodOnlyBlock,
		}
		mustPrintJSON(out)
		return nil
	},
}
