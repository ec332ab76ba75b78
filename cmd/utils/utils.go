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

package utils

import (
	"fmt"
	"os"
)

// Fatalf formats a message to stderr and exits the process. Command actions
// use it instead of returning an error so urfave/cli doesn't also print its
// own usage text for an operator-facing failure.
func Fatalf(format string, args ...interface{}) {
	w := os.Stderr
	if len(format) > 0 && format[len(format)-1] != '\n' {
		format += "\n"
	}
	fmt.Fprintf(w, "Fatal: "+format, args...)
	os.Exit(1)
}
