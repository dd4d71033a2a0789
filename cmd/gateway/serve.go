package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/doodlemint/doodlemint/internal/cmdutil"
	"github.com/doodlemint/doodlemint/pkg/build"
	"github.com/doodlemint/doodlemint/pkg/config"
	"github.com/doodlemint/doodlemint/pkg/content/localstore"
)

var log = logging.Logger("cmd/gateway")

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local content store",
	Long: wordwrap.WrapString(
		"Start an HTTP gateway that serves the objects of the local content "+
			"store at /ipfs/<cid>, so that locators published with "+
			"content.backend=local resolve. Prometheus metrics are served at "+
			"/metrics. Settings are taken from flags first, then DOODLEMINT_ "+
			"env vars, then the config file, then defaults.",
		80),
	Example: `  doodlemint gateway serve
  doodlemint gateway serve --port 8080
  doodlemint gateway serve --data-dir ./doodles --log-level debug`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load[config.Config]()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg.Gateway.LogLevel != "" {
			cobra.CheckErr(logging.SetLogLevel("cmd/gateway", cfg.Gateway.LogLevel))
		}
		if cfg.Content.DataDir == "" {
			return cmdutil.NewHandledCliError(errors.New("content.data_dir is not set"))
		}

		store, err := localstore.NewOS(cfg.Content.StoreDir(), cfg.Content.GatewayURL)
		if err != nil {
			return fmt.Errorf("opening local store: %w", err)
		}
		e := NewServer(store)

		// print banner after short delay to ensure it only appears if no errors
		// occurred during startup
		timer := time.NewTimer(time.Second)
		defer timer.Stop()
		go func() {
			<-timer.C
			cmd.Println(banner(build.Version, cfg.Gateway.Port, cfg.Content.StoreDir(), cfg.Content.GatewayURL))
		}()

		// shut down the server gracefully on context cancellation
		go func() {
			<-cmd.Context().Done()
			cmd.Println("\nShutting down server...")
			ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			if err := e.Shutdown(ctx); err != nil {
				cmd.PrintErrf("shutting down server: %s", err.Error())
			}
		}()

		addr := fmt.Sprintf(":%d", cfg.Gateway.Port)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("closing server: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", config.DefaultGatewayPort, "Port to run the HTTP server on")
	cobra.CheckErr(viper.BindPFlag("gateway.port", serveCmd.Flags().Lookup("port")))

	serveCmd.Flags().String("log-level", "warn", "Logging level for the gateway server (debug, info, warn, error)")
	cobra.CheckErr(viper.BindPFlag("gateway.log_level", serveCmd.Flags().Lookup("log-level")))
}
