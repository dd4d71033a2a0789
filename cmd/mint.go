package cmd

import (
	"context"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mattn/go-isatty"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"

	"github.com/doodlemint/doodlemint/internal/cmdutil"
	"github.com/doodlemint/doodlemint/internal/output"
	"github.com/doodlemint/doodlemint/pkg/bus"
	"github.com/doodlemint/doodlemint/pkg/config"
	"github.com/doodlemint/doodlemint/pkg/gallery"
	"github.com/doodlemint/doodlemint/pkg/metadata/names"
	"github.com/doodlemint/doodlemint/pkg/mint"
	"github.com/doodlemint/doodlemint/pkg/status"
	"github.com/doodlemint/doodlemint/pkg/surface"
)

var mintCmd = &cobra.Command{
	Use:   "mint <image.png>",
	Short: "Publish a drawing and mint it as a token",
	Long: wordwrap.WrapString(
		"Publishes the PNG drawing and a metadata document describing it to the "+
			"content store, then mints a token pointing at the metadata for the "+
			"configured account. A blank drawing is rejected before anything is "+
			"uploaded. When --name or --description are omitted, random ones are "+
			"generated.",
		80),
	Example: fmt.Sprintf("  %s mint doodle.png --name mossy_violet_otter", rootCmd.Name()),
	Args:    cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := output.Printer{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}

		name, _ := cmd.Flags().GetString("name")
		description, _ := cmd.Flags().GetString("description")
		showGallery, _ := cmd.Flags().GetBool("gallery")
		asJSON, _ := cmd.Flags().GetBool("json")

		canvas, size, err := loadDrawing(args[0])
		if err != nil {
			return err
		}

		gen := names.New()
		if name == "" {
			name = gen.Name()
		}
		if description == "" {
			description = gen.Name()
		}

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

		b := bus.New()
		opts := []mint.Option{mint.WithBus(b)}
		var (
			g       *gallery.Gallery
			pending *gallery.Refresh
		)
		if showGallery {
			g = gallery.New(backend.Fetcher,
				gallery.WithBus(b),
				gallery.WithConcurrency(cfg.Gallery.Concurrency),
			)
			syncer := gallery.NewSyncer(l, g)
			opts = append(opts, mint.WithRefresher(mint.RefreshFunc(func(ctx context.Context, owner common.Address) error {
				r, err := syncer.Sync(ctx, owner)
				pending = r
				return err
			})))
		}
		p := mint.New(backend.Publisher, l, l, opts...)

		stopProgress, err := showProgress(cmd, p.Status(), out)
		if err != nil {
			return err
		}
		log.Infow("minting", "file", args[0], "size", humanize.Bytes(uint64(size)), "name", name)
		res, err := p.Mint(ctx, canvas, name, description)
		stopProgress()
		if err != nil {
			return cmdutil.TranslateError(err)
		}

		if asJSON {
			return out.JSON(res)
		}
		out.Success("minted token %s for %s", res.Receipt.TokenID, res.Owner.Hex())
		out.Table([][]string{
			{"name", res.Record.Name},
			{"description", res.Record.Description},
			{"image", res.ImageLocator.String()},
			{"metadata", res.MetadataLocator.String()},
			{"transaction", res.Receipt.TxHash.Hex()},
			{"block", fmt.Sprint(res.Receipt.BlockNumber)},
		})

		if pending != nil {
			printGallery(out, g, pending.Wait())
		}
		return nil
	},
}

func init() {
	mintCmd.Flags().String("name", "", "Token name (generated when empty)")
	mintCmd.Flags().String("description", "", "Token description (generated when empty)")
	mintCmd.Flags().Bool("gallery", false, "List the account's tokens after minting")
	mintCmd.Flags().Bool("json", false, "Print the result as JSON")
	rootCmd.AddCommand(mintCmd)
}

// loadDrawing decodes a PNG file into a canvas.
func loadDrawing(path string) (*surface.Canvas, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening drawing: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("reading drawing: %w", err)
	}
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, fmt.Errorf("decoding drawing: %w", err)
	}
	return surface.FromImage(img), info.Size(), nil
}

// showProgress reports status changes, with a spinner when stderr is a
// terminal. The returned func stops reporting.
func showProgress(cmd *cobra.Command, st status.Reader, out output.Printer) (func(), error) {
	w := cmd.ErrOrStderr()
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w)) // Spinner: ⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏
		unsubscribe, err := st.Subscribe(func(next status.Status) {
			s.Lock()
			s.Suffix = " " + next.Message
			s.Unlock()
		})
		if err != nil {
			return nil, fmt.Errorf("subscribing to status: %w", err)
		}
		s.Start()
		return func() {
			unsubscribe()
			s.Stop()
		}, nil
	}

	unsubscribe, err := st.Subscribe(func(next status.Status) {
		if next.InFlight() {
			fmt.Fprintf(w, "%s...\n", next.Message)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to status: %w", err)
	}
	return unsubscribe, nil
}
