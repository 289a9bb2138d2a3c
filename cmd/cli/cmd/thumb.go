package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dicom-triage/internal/deepparse"
	"github.com/dicom-triage/internal/thumbnail"
	"github.com/dicom-triage/pkg/model"
)

var (
	thumbOutput string
	thumbSize   int
)

var thumbCmd = &cobra.Command{
	Use:   "thumb <file>",
	Short: "Render a PNG thumbnail of one record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := args[0]
		info, err := os.Stat(p)
		if err != nil {
			return err
		}
		size := cfg.Thumbnail.Size
		if cmd.Flags().Changed("size") {
			size = thumbSize
		}
		out := thumbOutput
		if out == "" {
			out = strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)) + ".png"
		}

		renderer := thumbnail.NewRenderer(deepparse.New(logger),
			thumbnail.WithSize(size),
			thumbnail.WithLogger(logger),
		)
		data, err := renderer.Render(cmd.Context(), model.NewLocalFile(p, filepath.Base(p), info.Size()))
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			return err
		}
		logger.Info("Thumbnail written to %s", out)
		return nil
	},
}

func init() {
	thumbCmd.Flags().StringVarP(&thumbOutput, "output", "o", "", "Output PNG path (default: <name>.png)")
	thumbCmd.Flags().IntVarP(&thumbSize, "size", "s", thumbnail.DefaultSize, "Edge length in pixels")
	rootCmd.AddCommand(thumbCmd)
}
