package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dexcfg/dexcfg/internal/dex"
	"github.com/dexcfg/dexcfg/internal/fixture"
)

var linearizeOut string

var linearizeCmd = &cobra.Command{
	Use:   "linearize <fixture.yaml>",
	Short: "Build, simplify, and linearize a fixture back into a flat instruction list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, regs, err := loadFixture(args[0])
		if err != nil {
			return err
		}

		c := dex.Build(list, regs, true)
		dex.CalculateExitBlock(c)
		out := dex.Linearize(c)

		Log.Debug().Int("items", out.Len()).Msg("linearized")

		if linearizeOut == "" {
			return fixture.WriteYAML(os.Stdout, out, c.RegistersSize())
		}
		f, err := os.Create(linearizeOut)
		if err != nil {
			return fmt.Errorf("creating output fixture: %w", err)
		}
		defer f.Close()
		return fixture.WriteYAML(f, out, c.RegistersSize())
	},
}

func init() {
	linearizeCmd.Flags().StringVarP(&linearizeOut, "out", "o", "", "write the linearized fixture here instead of stdout")
}
