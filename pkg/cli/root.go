// Package cli provides the command-line interface for Asset Forge
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/assetforge/assetforge/pkg/config"
	"github.com/assetforge/assetforge/pkg/logger"
	"github.com/assetforge/assetforge/pkg/types"
)

var (
	cfgFile   string
	verbosity string
	version   string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "asset-forge",
	Short: "Incremental build pipeline for game assets",
	Long: `⚒ Asset Forge - Content-addressed incremental asset builds

Asset Forge scans your asset tree, resolves a processing pipeline per file
from glob rules and platform presets, and rebuilds only what changed.
Textures, sprite atlases, models, and audio come out build-ready.`,

	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("⚒ Asset Forge v%s\n", version)
			return
		}
		cmd.Help()
	},
}

// Execute runs the CLI
func Execute(v string) error {
	version = v

	initializeRootCommand()

	return rootCmd.Execute()
}

// initializeRootCommand sets up the root command and its flags.
// This replaces the init() function to make initialization explicit and testable.
func initializeRootCommand() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: asset-forge.toml, searched upward)")
	rootCmd.PersistentFlags().StringVarP(&verbosity, "verbosity", "v", "info", "log level (debug, info, warn, error)")

	rootCmd.Flags().Bool("version", false, "Print version information and quit")

	// Add subcommands
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newOptimizeCmd())
	rootCmd.AddCommand(newAtlasCmd())
	rootCmd.AddCommand(newModelCmd())
	rootCmd.AddCommand(newAudioCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newCleanCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("asset-forge")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("ASSET_FORGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbosity == "debug" {
			fmt.Println("Using config file:", viper.ConfigFileUsed())
		}
	}
}

// loadProjectConfig resolves the effective config: the --config file if
// given, otherwise the nearest asset-forge.toml above baseDir, otherwise
// the built-in defaults.
func loadProjectConfig(baseDir string) (*types.Config, error) {
	manager := config.NewManager()
	if cfgFile != "" {
		return manager.Load(cfgFile)
	}
	cfg, err := manager.FindAndLoad(baseDir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

func newLogger() logger.Logger {
	return logger.CreateLogger("", verbosity)
}

// Helper functions

func printSuccess(message string) {
	fmt.Printf("⚒ %s %s\n", color.GreenString("[asset-forge]"), message)
}

func printError(message string) {
	fmt.Fprintf(os.Stderr, "⚒ %s %s\n", color.RedString("[asset-forge]"), message)
}

func printInfo(message string) {
	fmt.Printf("⚒ %s %s\n", color.CyanString("[asset-forge]"), message)
}

func printWarning(message string) {
	fmt.Printf("⚒ %s %s\n", color.YellowString("[asset-forge]"), message)
}
