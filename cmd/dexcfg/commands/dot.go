package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dexcfg/dexcfg/internal/dex"
)

var dotOut string

var dotCmd = &cobra.Command{
	Use:   "dot <fixture.yaml>",
	Short: "Render a fixture's CFG as Graphviz DOT",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, regs, err := loadFixture(args[0])
		if err != nil {
			return err
		}

		c := dex.Build(list, regs, true)
		dex.CalculateExitBlock(c)

		w := os.Stdout
		if dotOut != "" {
			f, err := os.Create(dotOut)
			if err != nil {
				return fmt.Errorf("creating dot output: %w", err)
			}
			defer f.Close()
			return c.WriteDOT(f)
		}
		return c.WriteDOT(w)
	},
}

func init() {
	dotCmd.Flags().StringVarP(&dotOut, "out", "o", "", "write the DOT graph here instead of stdout")
}
