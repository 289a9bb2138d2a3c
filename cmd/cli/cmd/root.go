package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dicom-triage/pkg/config"
	"github.com/dicom-triage/pkg/telemetry"
	"github.com/dicom-triage/pkg/utils"
)

var (
	// Global flags
	configPath string
	verbose    bool
	logLevel   string
	logFormat  string

	cfg      *config.Config
	logger   utils.Logger
	shutdown telemetry.ShutdownFunc
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dtriage",
	Short: "Triage medical imaging exports into a study manifest",
	Long: `dtriage scans folders and zip exports of DICOM files, keeps the
records, and groups them into a Study -> Series -> Instance manifest.

Files that are not records, cannot be parsed, or exceed size limits are
reported with a reason instead of failing the scan.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		flags := cmd.Flags()
		if flags.Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if flags.Changed("log-format") {
			cfg.Log.Format = logFormat
		}
		if verbose {
			cfg.Log.Level = "debug"
		}

		format, err := utils.ParseLogFormat(cfg.Log.Format)
		if err != nil {
			return err
		}
		logger = utils.NewLogger(utils.ParseLogLevel(cfg.Log.Level), os.Stderr, format)
		utils.SetGlobalLogger(logger)

		shutdown, err = telemetry.Init(cmd.Context(), telemetry.LoadFromEnv())
		if err != nil {
			logger.Warn("Trace export disabled: %v", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdown != nil {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("Failed to flush traces: %v", err)
			}
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./dtriage.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format: console or json")

	binName := BinName()
	rootCmd.Example = `  # Build a manifest from a folder and a zip export
  ` + binName + ` scan ./incoming ./export.zip

  # Print the manifest as tables and write thumbnails
  ` + binName + ` scan ./incoming --format table --thumbnails ./thumbs

  # Write a zstd-compressed JSON report
  ` + binName + ` scan ./incoming -o report.json.zst --compress zstd

  # Check whether files look like records
  ` + binName + ` probe ./incoming/IM0001 ./notes.txt

  # Render one thumbnail
  ` + binName + ` thumb ./incoming/IM0001 -o preview.png`
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	return utils.OrNull(logger)
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}
