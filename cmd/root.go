package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/doodlemint/doodlemint/cmd/gateway"
	"github.com/doodlemint/doodlemint/internal/telemetry"
	"github.com/doodlemint/doodlemint/pkg/config"
)

var (
	log    = logging.Logger("cmd")
	tracer = otel.Tracer("cmd")
)

var rootCmd = &cobra.Command{
	Use:   "doodlemint",
	Short: "Publish drawings to IPFS and mint them as tokens",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := readConfig(); err != nil {
			return err
		}
		if lvl := viper.GetString("log_level"); lvl != "" {
			level, err := logging.LevelFromString(lvl)
			if err != nil {
				return fmt.Errorf("parsing log level: %w", err)
			}
			logging.SetAllLoggers(level)
		}
		return startTelemetry(cmd)
	},
	// We handle errors ourselves when they're returned from ExecuteContext.
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	cobra.EnableTraverseRunHooks = true
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	config.SetDefaults(viper.GetViper())
	initRootFlags()
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(gateway.Cmd)
}

var cfgFilePath string

func initRootFlags() {
	// default data dir: ~/.doodlemint
	homedir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("failed to get user home directory: %w", err))
	}

	rootCmd.PersistentFlags().StringVar(
		&cfgFilePath,
		"config",
		"",
		"Path to the config file",
	)

	rootCmd.PersistentFlags().String(
		"data-dir",
		filepath.Join(homedir, ".doodlemint"),
		"Directory holding the local content store",
	)
	cobra.CheckErr(viper.BindPFlag("content.data_dir", rootCmd.PersistentFlags().Lookup("data-dir")))

	rootCmd.PersistentFlags().String(
		"backend",
		config.BackendKubo,
		"Content backend to publish to (kubo, local)",
	)
	cobra.CheckErr(viper.BindPFlag("content.backend", rootCmd.PersistentFlags().Lookup("backend")))

	rootCmd.PersistentFlags().String(
		"log-level",
		"warn",
		"Logging level (debug, info, warn, error)",
	)
	cobra.CheckErr(viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level")))

	rootCmd.PersistentFlags().String("rpc-url", "", "URL of the ledger's JSON-RPC endpoint")
	cobra.CheckErr(viper.BindPFlag("ledger.rpc_url", rootCmd.PersistentFlags().Lookup("rpc-url")))

	rootCmd.PersistentFlags().String("contract", "", "Address of the token contract")
	cobra.CheckErr(viper.BindPFlag("ledger.contract", rootCmd.PersistentFlags().Lookup("contract")))
}

func initConfig() {
	// check if environment variables match any of the existing keys
	// as an example a key is 'content.data_dir'
	viper.AutomaticEnv()
	// when checking for env vars, rename keys searched for from 'content.data_dir' to 'content_data_dir'
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// when checking for env vars, search for keys prefixed with DOODLEMINT
	viper.SetEnvPrefix("DOODLEMINT")

	// when searching for a config file look for files names "doodlemint-config.yaml"
	viper.SetConfigName("doodlemint-config")
	viper.SetConfigType("yaml")

	// if no config file was provided, first look in the current directory _then_ look in
	// $XDG_CONFIG_HOME/doodlemint/
	if cfgFilePath == "" {
		viper.AddConfigPath(".")
		if configDir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(filepath.Join(configDir, "doodlemint"))
		}
	} else {
		// else a config was provided over the cli via a flag, read it in directly
		viper.SetConfigFile(cfgFilePath)
	}
}

// readConfig reads the config file, if there is one. A missing file is only
// an error when it was named with --config.
func readConfig() error {
	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || (errors.As(err, &notFound) && cfgFilePath == "") {
		return nil
	}
	return fmt.Errorf("reading config file: %w", err)
}

var (
	cliSpan           trace.Span
	telemetryShutdown func(context.Context) error
)

// startTelemetry sets up tracing from the loaded config and starts the span
// the command runs in.
func startTelemetry(cmd *cobra.Command) error {
	var tc config.TelemetryConfig
	if err := viper.UnmarshalKey("telemetry", &tc); err != nil {
		return fmt.Errorf("decoding telemetry config: %w", err)
	}
	shutdown, err := telemetry.Setup(cmd.Context(), telemetry.Config{
		Enabled:     tc.Enabled,
		Endpoint:    tc.Endpoint,
		Insecure:    tc.Insecure,
		SampleRatio: tc.SampleRatio,
		Headers:     tc.Headers,
	})
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	telemetryShutdown = shutdown

	ctx, span := tracer.Start(cmd.Context(), "cli")
	cliSpan = span
	cmd.SetContext(ctx)
	setSpanAttributes(cmd, span)
	return nil
}

// ExecuteContext adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if cliSpan != nil {
		if err != nil {
			cliSpan.RecordError(err)
			cliSpan.SetStatus(codes.Error, err.Error())
		}
		cliSpan.End()
	}
	if telemetryShutdown != nil {
		err = errors.Join(err, telemetryShutdown(context.Background()))
	}
	return err
}

// commandPath returns the command path for a `cobra.Command`. Where
// `cmd.CommandPath()` returns a concatenated string, this returns a slice of
// the individual commands in the path.
func commandPath(c *cobra.Command) []string {
	var path []string
	if c.HasParent() {
		path = commandPath(c.Parent())
	}
	path = append(path, c.Name())
	return path
}

// setSpanAttributes sets attributes on the provided span based on the command
// and its flags. It will set:
//   - command.path: the full path of the command as a string slice
//   - command.flag.<flag-name>: the value of each flag, as the appropriate type
func setSpanAttributes(cmd *cobra.Command, span trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.StringSlice("command.path", commandPath(cmd)),
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		var err error
		k := "command.flag." + f.Name

		var attr attribute.KeyValue
		switch f.Value.Type() {
		case "bool":
			var v bool
			v, err = cmd.Flags().GetBool(f.Name)
			attr = attribute.Bool(k, v)
		case "boolSlice":
			var v []bool
			v, err = cmd.Flags().GetBoolSlice(f.Name)
			attr = attribute.BoolSlice(k, v)
		case "int":
			var v int
			v, err = cmd.Flags().GetInt(f.Name)
			attr = attribute.Int(k, v)
		case "intSlice":
			var v []int
			v, err = cmd.Flags().GetIntSlice(f.Name)
			attr = attribute.IntSlice(k, v)
		case "int64":
			var v int64
			v, err = cmd.Flags().GetInt64(f.Name)
			attr = attribute.Int64(k, v)
		case "int64Slice":
			var v []int64
			v, err = cmd.Flags().GetInt64Slice(f.Name)
			attr = attribute.Int64Slice(k, v)
		case "float64":
			var v float64
			v, err = cmd.Flags().GetFloat64(f.Name)
			attr = attribute.Float64(k, v)
		case "float64Slice":
			var v []float64
			v, err = cmd.Flags().GetFloat64Slice(f.Name)
			attr = attribute.Float64Slice(k, v)
		case "string":
			var v string
			v, err = cmd.Flags().GetString(f.Name)
			attr = attribute.String(k, v)
		case "stringSlice":
			var v []string
			v, err = cmd.Flags().GetStringSlice(f.Name)
			attr = attribute.StringSlice(k, v)
		default:
			attr = attribute.String(k, f.Value.String())
		}
		if err != nil {
			log.Warnf("getting flag %q value %v for telemetry: %v", f.Name, f.Value, err)
			return
		}

		attrs = append(attrs, attr)
	})

	span.SetAttributes(attrs...)
}
