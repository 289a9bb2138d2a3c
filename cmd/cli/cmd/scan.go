package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dicom-triage/internal/archive"
	"github.com/dicom-triage/internal/deepparse"
	"github.com/dicom-triage/internal/manifest"
	"github.com/dicom-triage/internal/metrics"
	"github.com/dicom-triage/internal/pixel"
	"github.com/dicom-triage/internal/source"
	"github.com/dicom-triage/internal/storage"
	"github.com/dicom-triage/internal/thumbnail"
	"github.com/dicom-triage/pkg/compression"
	"github.com/dicom-triage/pkg/model"
	"github.com/dicom-triage/pkg/writer"
)

var (
	scanMaxEntryBytes string
	scanMaxFileBytes  string
	scanWorkers       int
	scanNoDeepParse   bool
	scanFormat        string
	scanOutput        string
	scanCompress      string
	scanThumbnails    string
	scanMetrics       string
	scanTimeout       time.Duration
)

// scanReport is the document written by scan.
type scanReport struct {
	*manifest.Result
	Containers     int                `json:"containers"`
	ArchiveSkipped []model.SkipRecord `json:"archiveSkipped,omitempty"`
	Thumbnails     map[string]string  `json:"thumbnails,omitempty"`
}

var scanCmd = &cobra.Command{
	Use:   "scan <path>...",
	Short: "Build a manifest from files, folders and zip archives",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScan,
}

func init() {
	f := scanCmd.Flags()
	f.StringVar(&scanMaxEntryBytes, "max-entry-bytes", "", "Skip archive members larger than this (e.g. 512MiB)")
	f.StringVar(&scanMaxFileBytes, "max-file-bytes", "", "Skip input files larger than this (default 100MiB)")
	f.IntVarP(&scanWorkers, "workers", "w", 0, "Files read and parsed concurrently")
	f.BoolVar(&scanNoDeepParse, "no-deep-parse", false, "Use file names only; skip dataset parsing")
	f.StringVarP(&scanFormat, "format", "f", "", "Output format: json or table")
	f.StringVarP(&scanOutput, "output", "o", "", "Write the report to this file instead of stdout")
	f.StringVar(&scanCompress, "compress", "", "Report compression: none, gzip or zstd")
	f.StringVar(&scanThumbnails, "thumbnails", "", "Render one PNG per series into this directory")
	f.StringVar(&scanMetrics, "metrics", "", "Write Prometheus metrics to this file (- for stderr)")
	f.DurationVar(&scanTimeout, "timeout", 0, "Abort the scan after this long")
	rootCmd.AddCommand(scanCmd)
}

// applyScanFlags overlays explicitly set flags on the loaded config.
func applyScanFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("max-entry-bytes") {
		n, err := humanize.ParseBytes(scanMaxEntryBytes)
		if err != nil {
			return fmt.Errorf("invalid --max-entry-bytes: %w", err)
		}
		cfg.Archive.MaxEntryBytes = int64(n)
	}
	if flags.Changed("max-file-bytes") {
		n, err := humanize.ParseBytes(scanMaxFileBytes)
		if err != nil {
			return fmt.Errorf("invalid --max-file-bytes: %w", err)
		}
		cfg.Ingest.MaxFileBytes = int64(n)
	}
	if flags.Changed("workers") {
		cfg.Ingest.Workers = scanWorkers
	}
	if scanNoDeepParse {
		cfg.Ingest.DeepParse = false
	}
	if flags.Changed("format") {
		cfg.Output.Format = scanFormat
	}
	if flags.Changed("output") {
		cfg.Output.Path = scanOutput
	}
	if flags.Changed("compress") {
		cfg.Output.Compression = scanCompress
	}
	if flags.Changed("thumbnails") {
		cfg.Thumbnail.Enabled = scanThumbnails != ""
		cfg.Thumbnail.Dir = scanThumbnails
	}
	return cfg.Validate()
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := applyScanFlags(cmd); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if scanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, scanTimeout)
		defer cancel()
	}

	m := metrics.New()
	start := time.Now()

	expander := source.NewExpander(source.Options{
		Archive: archive.Options{
			MaxEntryBytes: cfg.Archive.MaxEntryBytes,
			Buffer:        cfg.Archive.Buffer,
			ProgressEvery: cfg.Archive.ProgressEvery,
			Logger:        logger,
			Observer:      m,
			OnProgress: func(p archive.Progress) {
				logger.Debug("archive progress: %d entries seen, %d kept", p.EntriesSeen, p.Kept)
			},
		},
		Concurrency: cfg.Archive.Concurrency,
		Logger:      logger,
	})
	expansion, err := expander.Expand(ctx, args)
	if err != nil {
		return err
	}
	for _, s := range expansion.Skipped {
		m.ObserveSkip(string(s.Reason))
	}

	var parser deepparse.Parser
	if cfg.Ingest.DeepParse {
		parser = deepparse.New(logger)
	}
	builder := manifest.NewBuilder(manifest.Config{
		MaxFileBytes:         cfg.Ingest.MaxFileBytes,
		AcceptedContentTypes: cfg.Ingest.AcceptedContentTypes,
		Workers:              cfg.Ingest.Workers,
	}, manifest.WithParser(parser), manifest.WithLogger(logger), manifest.WithMetrics(m))

	result, err := builder.Build(ctx, expansion.Files)
	if err != nil {
		return err
	}

	report := &scanReport{
		Result:         result,
		Containers:     expansion.Containers,
		ArchiveSkipped: expansion.Skipped,
	}

	if cfg.Thumbnail.Enabled {
		thumbs, err := renderThumbnails(ctx, result, parser, m)
		if err != nil {
			return err
		}
		report.Thumbnails = thumbs
	}

	if err := writeReport(cmd.OutOrStdout(), report, totalBytes(expansion.Files)); err != nil {
		return err
	}
	if scanMetrics != "" {
		if err := writeMetrics(m); err != nil {
			return err
		}
	}

	logger.WithField("build", result.BuildID).Info("Scan finished in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

func renderThumbnails(ctx context.Context, result *manifest.Result, parser deepparse.Parser, m *metrics.Metrics) (map[string]string, error) {
	if parser == nil {
		parser = deepparse.New(logger)
	}
	if err := cfg.EnsureThumbnailDir(); err != nil {
		return nil, err
	}
	store, err := storage.NewLocalStorage(cfg.Thumbnail.Dir)
	if err != nil {
		return nil, err
	}
	registry := pixel.NewRegistry(
		pixel.WithLogger(logger),
		pixel.WithObserver(m),
		pixel.WithDecoders(pixel.Named("native", pixel.NativeDecoder{})),
	)
	renderer := thumbnail.NewRenderer(parser,
		thumbnail.WithSize(cfg.Thumbnail.Size),
		thumbnail.WithRegistry(registry),
		thumbnail.WithLogger(logger),
	)
	written, err := renderer.RenderIndex(ctx, result.Index, store)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(written))
	for k, key := range written {
		out[k.StudyUID+"/"+k.SeriesUID] = store.Path(key)
	}
	return out, nil
}

func writeReport(stdout io.Writer, report *scanReport, inputBytes int64) error {
	comp, err := compression.ParseType(cfg.Output.Compression)
	if err != nil {
		return err
	}

	if cfg.Output.Format == "table" {
		if cfg.Output.Path == "" {
			renderTables(stdout, report, inputBytes)
			return nil
		}
		f, err := os.Create(cfg.Output.Path)
		if err != nil {
			return err
		}
		defer f.Close()
		w, err := compression.NewWriter(f, comp, compression.LevelDefault)
		if err != nil {
			return err
		}
		renderTables(w, report, inputBytes)
		if err := w.Close(); err != nil {
			return err
		}
		return f.Close()
	}

	jw := writer.NewPrettyJSONWriter[*scanReport]().WithCompression(comp)
	if cfg.Output.Path == "" {
		return jw.Write(report, stdout)
	}
	res, err := jw.WriteToFile(report, cfg.Output.Path)
	if err != nil {
		return err
	}
	logger.Info("Report written to %s (%s)", cfg.Output.Path, humanize.Bytes(uint64(res.WrittenSize)))
	return nil
}

func renderTables(w io.Writer, report *scanReport, inputBytes int64) {
	s := report.Stats
	fmt.Fprintf(w, "Build %s: %s files (%s), %s accepted, %s skipped\n\n",
		report.BuildID,
		humanize.Comma(int64(s.InputFiles)), humanize.Bytes(uint64(inputBytes)),
		humanize.Comma(int64(s.AcceptedFiles)), humanize.Comma(int64(s.SkippedFiles)))

	series := writer.Table{
		Title:   "Series",
		Header:  []string{"Study", "Patient ID", "Patient Name", "Series", "Modality", "Instances", "Frames"},
		Numeric: []int{5, 6},
	}
	for _, study := range report.Studies {
		for _, se := range study.Series {
			frames := 0
			for _, inst := range se.Instances {
				frames += inst.FrameCount
			}
			series.Rows = append(series.Rows, []any{
				study.StudyUID, study.PatientID, study.PatientName,
				se.SeriesUID, se.Modality, len(se.Instances), frames,
			})
		}
	}
	series.Footer = []any{fmt.Sprintf("%d studies", s.Studies), "", "", fmt.Sprintf("%d series", s.Series), "", s.Instances, ""}
	series.Render(w)

	skips := append(append([]model.SkipRecord(nil), report.Skipped...), report.ArchiveSkipped...)
	if len(skips) > 0 {
		source.SortSkips(skips)
		table := writer.Table{Title: "Skipped", Header: []string{"Name", "Reason", "Detail"}}
		for _, sk := range skips {
			table.Rows = append(table.Rows, []any{sk.Name, sk.Reason, sk.Detail})
		}
		fmt.Fprintln(w)
		table.Render(w)
	}

	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "\nwarning: %s\n", warning.Message)
	}

	if len(report.Thumbnails) > 0 {
		keys := make([]string, 0, len(report.Thumbnails))
		for k := range report.Thumbnails {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		table := writer.Table{Title: "Thumbnails", Header: []string{"Series", "Path"}}
		for _, k := range keys {
			table.Rows = append(table.Rows, []any{k, report.Thumbnails[k]})
		}
		fmt.Fprintln(w)
		table.Render(w)
	}
}

func writeMetrics(m *metrics.Metrics) error {
	if scanMetrics == "-" {
		return m.WriteText(os.Stderr)
	}
	f, err := os.Create(scanMetrics)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := m.WriteText(f); err != nil {
		return err
	}
	return f.Close()
}

func totalBytes(files []*model.File) int64 {
	var n int64
	for _, f := range files {
		n += f.Size
	}
	return n
}
