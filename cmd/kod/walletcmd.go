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
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/kod-network/kod/cmd/utils"
	"github.com/kod-network/kod/wallet"
)

var (
	walletPathFlag = &cli.StringFlag{
		Name:  "wallet-file",
		Usage: "path to the wallet file (default ~/.kod/wallet.json)",
	}
	walletJSONFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "output JSON instead of human-readable format",
	}
	walletMnemonicFlag = &cli.StringFlag{
		Name:  "mnemonic",
		Usage: "derive from an existing BIP-39 mnemonic instead of generating one",
	}
	walletIndexFlag = &cli.UintFlag{
		Name:  "index",
		Usage: "hardened sub-account index to derive",
		Value: 0,
	}
)

var walletCommand = &cli.Command{
	Name:  "wallet",
	Usage: "manage a KOD Chain keypair",
	Subcommands: []*cli.Command{
		walletNewCommand,
		walletInfoCommand,
		walletExportSeedCommand,
		walletDeriveAccountCommand,
	},
}

var walletDeriveAccountCommand = &cli.Command{
	Name:      "derive-account",
	Usage:     "derive a hardened sub-account address from the wallet's seed phrase",
	ArgsUsage: "--index <n>",
	Flags:     []cli.Flag{walletPathFlag, walletJSONFlag, walletIndexFlag},
	Action: func(ctx *cli.Context) error {
		f, err := wallet.Load(walletPath(ctx))
		if err != nil {
			utils.Fatalf("failed to load wallet file: %v", err)
		}
		kp, err := wallet.DeriveChildAccount(wallet.Mainnet, f.SeedPhrase, "", uint32(ctx.Uint(walletIndexFlag.Name)))
		if err != nil {
			utils.Fatalf("failed to derive sub-account: %v", err)
		}
		if ctx.Bool(walletJSONFlag.Name) {
			mustPrintJSON(struct {
				Index   uint   `json:"index"`
				Address string `json:"address"`
			}{ctx.Uint(walletIndexFlag.Name), kp.Address})
			return nil
		}
		fmt.Println("Address:", kp.Address)
		return nil
	},
}

var walletNewCommand = &cli.Command{
	Name:  "new",
	Usage: "generate a new keypair and save it to the wallet file",
	Flags: []cli.Flag{walletPathFlag, walletJSONFlag, walletMnemonicFlag},
	Action: func(ctx *cli.Context) error {
		path := walletPath(ctx)
		if _, err := os.Stat(path); err == nil {
			utils.Fatalf("wallet file already exists at %s", path)
		}

		var (
			kp       *wallet.KeyPair
			mnemonic string
			err      error
		)
		if m := ctx.String(walletMnemonicFlag.Name); m != "" {
			mnemonic = m
			kp, err = wallet.DeriveKeyPair(wallet.Mainnet, mnemonic, "")
		} else {
			kp, mnemonic, err = wallet.GenerateKeyPair(wallet.Mainnet)
		}
		if err != nil {
			utils.Fatalf("failed to derive keypair: %v", err)
		}

		f := wallet.NewFile(wallet.Mainnet, kp, mnemonic)
		if err := wallet.Save(path, f); err != nil {
			utils.Fatalf("failed to save wallet file: %v", err)
		}

		printWalletFile(ctx, f)
		return nil
	},
}

var walletInfoCommand = &cli.Command{
	Name:  "info",
	Usage: "print the address stored in the wallet file",
	Flags: []cli.Flag{walletPathFlag, walletJSONFlag},
	Action: func(ctx *cli.Context) error {
		f, err := wallet.Load(walletPath(ctx))
		if err != nil {
			utils.Fatalf("failed to load wallet file: %v", err)
		}
		if ctx.Bool(walletJSONFlag.Name) {
			out := struct {
				Address   string `json:"address"`
				Network   string `json:"network"`
				CreatedAt string `json:"created_at"`
			}{f.Address, f.Network, f.CreatedAt.Format("2006-01-02T15:04:05Z07:00")}
			b, _ := json.MarshalIndent(out, "", "  ")
			fmt.Println(string(b))
			return nil
		}
		fmt.Println("Address:", f.Address)
		fmt.Println("Network:", f.Network)
		return nil
	},
}

var walletExportSeedCommand = &cli.Command{
	Name:  "export-seed",
	Usage: "print the wallet's BIP-39 seed phrase (sensitive: enables full key recovery)",
	Flags: []cli.Flag{walletPathFlag},
	Action: func(ctx *cli.Context) error {
		f, err := wallet.Load(walletPath(ctx))
		if err != nil {
			utils.Fatalf("failed to load wallet file: %v", err)
		}
		fmt.Println(f.SeedPhrase)
		return nil
	},
}

func walletPath(ctx *cli.Context) string {
	if p := ctx.String(walletPathFlag.Name); p != "" {
		return p
	}
	path, err := wallet.DefaultPath()
	if err != nil {
		utils.Fatalf("could not determine default wallet path: %v", err)
	}
	return path
}

func printWalletFile(ctx *cli.Context, f wallet.File) {
	if ctx.Bool(walletJSONFlag.Name) {
		mustPrintJSON(f)
		return
	}
	fmt.Println("Address:", f.Address)
	fmt.Println("Seed phrase:", f.SeedPhrase)
	fmt.Println()
	fmt.Println("Write this phrase down. It is the only way to recover this key.")
}

func mustPrintJSON(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		utils.Fatalf("failed to marshal JSON: %v", err)
	}
	fmt.Println(string(b))
}
