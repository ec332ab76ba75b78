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
)

var buildSpecCommand = &cli.Command{
	Name:      "build-spec",
	Usage:     "print a named chain spec's constants as JSON",
	ArgsUsage: "<mainnet|local|dev>",
	Action: func(ctx *cli.Context) error {
		name := ctx.Args().First()
		spec, err := chainspec.ByName(name)
		if err != nil {
			utils.Fatalf("%v", err)
		}
		mustPrintJSON(spec)
		return nil
	},
}
