package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dexcfg/dexcfg/internal/dex"
	"github.com/dexcfg/dexcfg/internal/fixture"
)

var doctorDumpDir string

var doctorCmd = &cobra.Command{
	Use:   "doctor <fixture.yaml>",
	Short: "Build a fixture and report whether it satisfies every structural invariant",
	Long: `doctor runs dex.Build (which runs Verify internally) against a fixture.
The core reports invariant violations by panicking, per its fail-fast design;
doctor recovers that panic at this CLI boundary, writes a MessagePack repro
dump into the --dump-dir directory, and reports a clean diagnostic instead of
a raw stack trace.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		list, regs, readErr := loadFixture(args[0])
		if readErr != nil {
			return readErr
		}
		pristine := fixture.ToDocument(list, regs)

		defer func() {
			if r := recover(); r != nil {
				replay, registersSize, convErr := fixture.FromDocument(pristine)
				if convErr != nil {
					err = fmt.Errorf("internal invariant violation: %v (could not capture repro: %w)", r, convErr)
					return
				}
				path, dumpErr := fixture.DumpCrash(doctorDumpDir, replay, registersSize)
				if dumpErr != nil {
					err = fmt.Errorf("internal invariant violation: %v (could not write repro dump: %w)", r, dumpErr)
					return
				}
				Log.Error().Str("dump", path).Msg("structural invariant violated")
				err = fmt.Errorf("internal invariant violation: %v (repro dumped to %s)", r, path)
			}
		}()

		c := dex.Build(list, regs, true)
		dex.CalculateExitBlock(c)
		fmt.Printf("ok: %d blocks, registers_size=%d\n", c.NumBlocks(), c.RegistersSize())
		return nil
	},
}

func init() {
	doctorCmd.Flags().StringVar(&doctorDumpDir, "dump-dir", "dexcfg-crashes", "directory to write crash repro dumps into")
}
