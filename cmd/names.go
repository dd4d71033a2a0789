package cmd

import (
	"github.com/spf13/cobra"

	"github.com/doodlemint/doodlemint/internal/output"
	"github.com/doodlemint/doodlemint/pkg/metadata/names"
)

var namesCmd = &cobra.Command{
	Use:   "names",
	Short: "Generate token names and descriptions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		count, _ := cmd.Flags().GetInt("count")
		words, _ := cmd.Flags().GetInt("words")
		opts := []names.Option{names.WithWords(words)}
		if cmd.Flags().Changed("seed") {
			seed, _ := cmd.Flags().GetUint64("seed")
			opts = append(opts, names.WithSeed(seed))
		}
		gen := names.New(opts...)

		rows := [][]string{{"NAME", "DESCRIPTION"}}
		for range count {
			name, description := gen.Pair()
			rows = append(rows, []string{name, description})
		}
		output.Printer{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}.Table(rows)
	},
}

func init() {
	namesCmd.Flags().IntP("count", "n", 1, "Number of pairs to generate")
	namesCmd.Flags().Int("words", names.DefaultWords, "Words per name")
	namesCmd.Flags().Uint64("seed", 0, "Seed for reproducible output")
	rootCmd.AddCommand(namesCmd)
}
