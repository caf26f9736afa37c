// Command dexcfg is a CLI front end over the dex control-flow-graph core.
package main

import (
	"fmt"
	"os"

	"github.com/dexcfg/dexcfg/cmd/dexcfg/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dexcfg:", err)
		os.Exit(1)
	}
}
