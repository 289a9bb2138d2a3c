package cmd

import (
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dicom-triage/internal/filename"
	"github.com/dicom-triage/internal/probe"
	"github.com/dicom-triage/pkg/model"
	"github.com/dicom-triage/pkg/writer"
)

var probeCmd = &cobra.Command{
	Use:   "probe <file>...",
	Short: "Report whether files look like records",
	Long: `Probe reads the head of each file and reports whether it carries the
record preamble or a recognizable UID, and whether its name follows the
study-<uid>_series-<uid>_inst-<uid> convention.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := writer.Table{
			Header:  []string{"File", "Size", "Record", "Name Identity"},
			Numeric: []int{1},
		}
		for _, p := range args {
			info, err := os.Stat(p)
			if err != nil {
				return err
			}
			f := model.NewLocalFile(p, filepath.Base(p), info.Size())
			head, err := f.ReadPrefix(probe.ScanLimit)
			if err != nil {
				return err
			}

			identity := "-"
			if id, ok := filename.ParseName(f.Name); ok {
				identity = id.Study + " / " + id.Series + " / " + id.Instance
			}
			verdict := "no"
			switch {
			case probe.HasMagic(head):
				verdict = "yes (preamble)"
			case probe.Probe(head):
				verdict = "yes (uid scan)"
			}
			table.Rows = append(table.Rows, []any{p, humanize.Bytes(uint64(info.Size())), verdict, identity})
			GetLogger().WithField("file", p).Debug("probe: %s", verdict)
		}
		table.Render(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
