package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dexcfg/dexcfg/internal/dex"
	"github.com/dexcfg/dexcfg/internal/fixture"
)

var buildCmd = &cobra.Command{
	Use:   "build <fixture.yaml>",
	Short: "Build a CFG from a fixture and report its block/edge shape",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, regs, err := loadFixture(args[0])
		if err != nil {
			return err
		}

		Log.Debug().Int("items", list.Len()).Int("registers", regs).Msg("parsed fixture")

		c := dex.Build(list, regs, true)
		dex.CalculateExitBlock(c)

		fmt.Printf("blocks: %d\n", c.NumBlocks())
		if e := c.Entry(); e != nil {
			fmt.Printf("entry: b%d\n", e.ID())
		}
		if e := c.Exit(); e != nil {
			fmt.Printf("exit: b%d\n", e.ID())
		}
		fmt.Printf("registers_size: %d\n", c.RegistersSize())
		blocksAllocated, edgesAllocated := c.ArenaStats()
		Log.Debug().Int("blocks_allocated", blocksAllocated).Int("edges_allocated", edgesAllocated).Msg("arena usage")
		for _, blk := range c.Blocks() {
			fmt.Printf("  b%d: %d items, %d preds, %d succs\n", blk.ID(), blk.Len(), blk.NumPreds(), blk.NumSuccs())
		}
		return nil
	},
}

func loadFixture(path string) (*dex.ItemList, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening fixture: %w", err)
	}
	defer f.Close()
	return fixture.ReadYAML(f)
}
