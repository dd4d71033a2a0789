package cmd

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"

	"github.com/doodlemint/doodlemint/internal/cmdutil"
	"github.com/doodlemint/doodlemint/internal/output"
	"github.com/doodlemint/doodlemint/pkg/config"
	"github.com/doodlemint/doodlemint/pkg/gallery"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery [owner]",
	Short: "List the tokens an account owns",
	Long: wordwrap.WrapString(
		"Lists the tokens owned by an address, or by the configured account when "+
			"none is given, with the name, description and image from each "+
			"token's metadata. Tokens whose metadata cannot be fetched are "+
			"reported and skipped.",
		80),
	Example: fmt.Sprintf("  %s gallery 0x5FbDB2315678afecb367f032d93F642f64180aa3", rootCmd.Name()),
	Args:    cobra.MaximumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := output.Printer{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg, err := config.Load[config.Config]()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		backend, err := cmdutil.NewContent(cfg.Content)
		if err != nil {
			return err
		}
		l, err := cmdutil.DialLedger(ctx, cfg.Ledger)
		if err != nil {
			return err
		}

		var owner common.Address
		if len(args) == 1 {
			if !common.IsHexAddress(args[0]) {
				cmd.SilenceUsage = false
				return fmt.Errorf("invalid owner address: %q", args[0])
			}
			owner = common.HexToAddress(args[0])
		} else if owner, err = l.Account(ctx); err != nil {
			return cmdutil.TranslateError(err)
		}

		g := gallery.New(backend.Fetcher, gallery.WithConcurrency(cfg.Gallery.Concurrency))
		r, err := gallery.NewSyncer(l, g).Sync(ctx, owner)
		if err != nil {
			return err
		}
		failed := r.Wait()

		if asJSON {
			return out.JSON(g.Snapshot())
		}
		printGallery(out, g, failed)
		return nil
	},
}

func init() {
	galleryCmd.Flags().Bool("json", false, "Print the tokens as JSON")
	rootCmd.AddCommand(galleryCmd)
}

// printGallery prints the loaded tokens as a table followed by the tokens
// that failed to load.
func printGallery(out output.Printer, g *gallery.Gallery, failed error) {
	items := g.Snapshot()
	if len(items) == 0 && failed == nil {
		out.Success("no tokens yet")
		return
	}
	rows := [][]string{{"ID", "NAME", "DESCRIPTION", "IMAGE"}}
	for _, it := range items {
		rows = append(rows, []string{it.ID.String(), it.Metadata.Name, it.Metadata.Description, it.Metadata.Image.String()})
	}
	out.Table(rows)

	var fe *gallery.FetchError
	if errors.As(failed, &fe) {
		for _, f := range g.Failures() {
			out.Warning("token %s: %v", f.TokenID, f.Err)
		}
	}
}
