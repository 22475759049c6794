package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"mediagate/pkg/config"
	"mediagate/pkg/logger"
	"mediagate/pkg/ui"
)

var (
	// Version information, set with -ldflags at build time
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "mediagate",
	Short: "YouTube channel data API and Instagram media downloader",
	Long: `mediagate is an HTTP service with two faces:

  - POST /fetch_channel_data returns profile data for a YouTube channel URL,
    limited to a few requests per client per day
  - /instagram is a small web page that downloads Instagram posts, reels,
    stories and IGTV videos with yt-dlp and streams progress to the browser

Run 'mediagate serve' to start the server.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(os.Stderr, "Error", err)
		os.Exit(1)
	}
}

func init() {
	logger.Version = version

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.mediagate.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`mediagate {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads configuration with the global flags applied on top.
// extra carries command specific flag overrides.
func loadConfig(extra map[string]interface{}) (*config.Config, error) {
	flags := map[string]interface{}{"log-level": logLevel}
	for k, v := range extra {
		flags[k] = v
	}
	return config.Load(configFile, flags)
}
