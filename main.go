// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/stagecraft/stagecraft/cmd/stagecraft"

func main() {
	cmd.Execute()
}
