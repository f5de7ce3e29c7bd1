package main

import (
	"fmt"
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"

	"github.com/harrylevesque/qrgen/internal/config"
	"github.com/harrylevesque/qrgen/internal/utils"
)

var log = logging.Logger("qrgen")

var rootCmd = &cobra.Command{
	Use:   "qrgen",
	Short: "Encode, render and scan QR codes",
	Long: `qrgen turns structured intents (website, contact card, WiFi network, email,
SMS, phone call, social profile, calendar event, location) into QR payloads and
images, scans images back into payloads, and manages codes saved on a qrgen server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		opts := cfg.LogOptions()
		if debug {
			opts.Level = "debug"
		}
		return utils.SetupLogging(opts)
	},
}

var (
	configPath string
	debug      bool
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	rootCmd.AddCommand(encodeCmd, renderCmd, previewCmd, scanCmd, kindsCmd)
	rootCmd.AddCommand(createCmd, getCmd, listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
