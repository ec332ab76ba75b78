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

package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// NewApp creates an urfave/cli App with the metadata every kod command line
// tool shares, the single construction point cmd/kod's package-level app
// var builds from.
func NewApp(gitCommit, gitDate, usage string) *cli.App {
	app := cli.NewApp()
	app.EnableBashCompletion = true
	app.Name = "kod"
	app.Author = ""
	app.Usage = usage
	app.Copyright = "Copyright 2024 The kod Authors"
	if gitCommit != "" {
		app.Version = fmt.Sprintf("%s-%s", gitCommit, gitDate)
	}
	app.CommandNotFound = commandNotFound
	return app
}

func commandNotFound(ctx *cli.Context, cmd string) {
	fmt.Fprintf(ctx.App.Writer, "No such command: %s\n", cmd)
}
