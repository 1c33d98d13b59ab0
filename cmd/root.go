package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/Mohsinsiddi/w3market/internal/config"
	"github.com/Mohsinsiddi/w3market/internal/storage"
	"github.com/Mohsinsiddi/w3market/internal/ui"
	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/w3market/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir      string
	cfg         *config.Config
	logger      *slog.Logger
	verbose     bool
	networkFlag string
	walletFlag  string
	assumeYes   bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "w3market",
	Short: "On-chain marketplace client",
	Long: `w3market lists, buys and transfers items on an EVM marketplace contract.

  Connect a wallet, browse the catalog, list new items, buy what others
  listed and hand items you own to another address. Purchases are kept in
  a local history.

Global flags --network and --wallet override the configured values for a
single invocation. Persist with: w3market config set-network <name>`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		config.LoadDotEnv()

		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if networkFlag != "" {
			cfg.Network = networkFlag
		}
		if walletFlag != "" {
			cfg.DefaultWallet = walletFlag
		}

		logger = newLogger(cmd.ErrOrStderr(), verbose)
		ui.SetTheme(storage.NewThemes(storage.NewLocal(cfg.StatePath())).Current())
		return nil
	},
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		stop()
		os.Exit(1)
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func init() {
	if envDir := os.Getenv(config.EnvConfigDir); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.w3market)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
	rootCmd.PersistentFlags().StringVarP(&networkFlag, "network", "n", "", "network to use (flow-testnet, flow-mainnet, localhost)")
	rootCmd.PersistentFlags().StringVarP(&walletFlag, "wallet", "w", "", "wallet to use instead of the default")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "approve connection and transaction prompts")

	rootCmd.AddCommand(
		connectCmd,
		itemsCmd,
		listCmd,
		buyCmd,
		transferCmd,
		historyCmd,
		themeCmd,
		walletCmd,
		configCmd,
	)
}
