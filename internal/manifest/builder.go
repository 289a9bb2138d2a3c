// Package manifest classifies an input file set and groups accepted records
// into a deterministic Study -> Series -> Instance hierarchy.
package manifest

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dicom-triage/internal/deepparse"
	"github.com/dicom-triage/internal/filename"
	"github.com/dicom-triage/internal/metrics"
	"github.com/dicom-triage/internal/probe"
	apperrors "github.com/dicom-triage/pkg/errors"
	"github.com/dicom-triage/pkg/model"
	"github.com/dicom-triage/pkg/parallel"
	"github.com/dicom-triage/pkg/utils"
)

var tracer = otel.Tracer("github.com/dicom-triage/internal/manifest")

// DefaultMaxFileBytes is the default per-file size ceiling.
const DefaultMaxFileBytes int64 = 100 << 20

// DefaultContentTypes are the declared content types accepted by the cheap filter.
var DefaultContentTypes = []string{"", "application/dicom", "application/octet-stream"}

// Config configures a Builder.
type Config struct {
	// MaxFileBytes rejects larger files before any byte inspection.
	MaxFileBytes int64
	// AcceptedContentTypes lists declared content types that pass the filter.
	AcceptedContentTypes []string
	// Workers bounds how many files are read and parsed at once.
	Workers int
}

// DefaultConfig returns the default builder configuration.
func DefaultConfig() Config {
	return Config{
		MaxFileBytes:         DefaultMaxFileBytes,
		AcceptedContentTypes: DefaultContentTypes,
		Workers:              parallel.DefaultPoolConfig().MaxWorkers,
	}
}

// Warning is a non-fatal notification raised during a build.
type Warning struct {
	StudyUID string `json:"studyUid,omitempty"`
	Message  string `json:"message"`
}

// Notifier receives warnings as they are raised.
type Notifier func(Warning)

// Result is the outcome of one build.
type Result struct {
	BuildID   string                  `json:"buildId"`
	Studies   []*model.Study          `json:"studies"`
	Stats     model.BuildStats        `json:"stats"`
	Skipped   []model.SkipRecord      `json:"skipped"`
	Conflicts []model.PatientConflict `json:"conflicts,omitempty"`
	Warnings  []Warning               `json:"warnings,omitempty"`
	Index     *RepresentativeIndex    `json:"-"`
}

// Builder builds manifests. A Builder holds no per-build state and may be
// used for several builds, including concurrently.
type Builder struct {
	cfg      Config
	accepted map[string]bool
	parser   deepparse.Parser
	logger   utils.Logger
	metrics  *metrics.Metrics
	notify   Notifier
}

// Option configures a Builder.
type Option func(*Builder)

// WithParser sets the deep-parse collaborator. Without one, identity comes
// from file names only and patient fields stay empty.
func WithParser(p deepparse.Parser) Option {
	return func(b *Builder) { b.parser = p }
}

// WithLogger sets the builder logger.
func WithLogger(l utils.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithNotifier sets a warning callback.
func WithNotifier(n Notifier) Option {
	return func(b *Builder) { b.notify = n }
}

// NewBuilder creates a Builder.
func NewBuilder(cfg Config, opts ...Option) *Builder {
	def := DefaultConfig()
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = def.MaxFileBytes
	}
	if cfg.AcceptedContentTypes == nil {
		cfg.AcceptedContentTypes = def.AcceptedContentTypes
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	b := &Builder{cfg: cfg, accepted: make(map[string]bool)}
	for _, ct := range cfg.AcceptedContentTypes {
		b.accepted[normalizeContentType(ct)] = true
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = utils.OrNull(b.logger)
	return b
}

// Build classifies files and groups the accepted ones. Per-file problems
// become skip records; only cancellation of ctx fails the build.
func (b *Builder) Build(ctx context.Context, files []*model.File) (*Result, error) {
	ctx, span := tracer.Start(ctx, "manifest.build",
		trace.WithAttributes(attribute.Int("manifest.input_files", len(files))))
	defer span.End()
	start := time.Now()

	pool := parallel.NewWorkerPool[*model.File, classified](parallel.DefaultPoolConfig().WithWorkers(b.cfg.Workers))
	results := pool.ExecuteFunc(ctx, files, func(ctx context.Context, f *model.File) (classified, error) {
		return b.classify(ctx, f), nil
	})
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, apperrors.Wrap(apperrors.CodeCancelled, "manifest build", err)
	}

	records := make([]classified, len(results))
	for i, r := range results {
		records[i] = r.Result
	}
	res := b.aggregate(records)
	res.BuildID = uuid.NewString()

	for _, w := range res.Warnings {
		b.logger.WithField("study", w.StudyUID).Warn("%s", w.Message)
		if b.notify != nil {
			b.notify(w)
		}
	}
	b.metrics.ObserveBuild(time.Since(start), res.Stats.Studies)
	span.SetAttributes(
		attribute.Int("manifest.accepted_files", res.Stats.AcceptedFiles),
		attribute.Int("manifest.skipped_files", res.Stats.SkippedFiles),
		attribute.Int("manifest.studies", res.Stats.Studies),
	)
	b.logger.Info("import complete: %d series / %d instances from %d/%d files",
		res.Stats.Series, res.Stats.Instances, res.Stats.AcceptedFiles, res.Stats.InputFiles)
	return res, nil
}

// classified is the per-file outcome of classification.
type classified struct {
	file        *model.File
	identity    model.ParsedIdentity
	patientID   string
	patientName string
	skip        *model.SkipRecord
}

func (b *Builder) classify(ctx context.Context, f *model.File) classified {
	rec := classified{file: f}
	skip := func(reason model.SkipReason, detail string) classified {
		rec.skip = &model.SkipRecord{Name: f.Name, Reason: reason, Detail: detail}
		b.metrics.ObserveFile("skipped")
		b.metrics.ObserveSkip(string(reason))
		b.logger.WithFields(map[string]interface{}{
			"file":   f.Name,
			"reason": reason,
		}).Debug("skipped: %s", detail)
		return rec
	}

	if reason := b.filter(f); reason != "" {
		return skip(model.SkipNotRecord, "filtered: "+reason)
	}

	nameID, nameOK := filename.ParseName(f.Name)
	var data []byte
	if !nameOK && !filename.HasRecordSuffix(f.Name) {
		head, err := f.ReadPrefix(probe.ScanLimit)
		if err != nil {
			return skip(model.SkipParseFailed, "read: "+err.Error())
		}
		if !probe.Probe(head) {
			return skip(model.SkipNotRecord, "no record signature")
		}
		if len(head) < probe.ScanLimit {
			data = head
		}
	}

	var ds model.Dataset
	var parseErr error
	if b.parser != nil {
		if data == nil {
			full, err := b.readCapped(f)
			if err != nil {
				return skip(model.SkipParseFailed, "read: "+err.Error())
			}
			data = full
		}
		ds, parseErr = b.parser.Parse(ctx, data, deepparse.WithoutPixelData())
		if parseErr != nil {
			b.logger.WithField("file", f.Name).Debug("deep parse failed: %v", parseErr)
			ds = nil
		}
	}

	id := nameID
	if !nameOK {
		var ok bool
		if id, ok = ds.Identity(); !ok {
			detail := "no identity in name or dataset"
			if parseErr != nil {
				detail = parseErr.Error()
			}
			return skip(model.SkipParseFailed, detail)
		}
	} else if id.Modality == "" {
		id.Modality = strings.ToUpper(ds.String(model.FieldModality))
	}

	rec.identity = id
	rec.patientID = ds.String(model.FieldPatientID)
	rec.patientName = ds.String(model.FieldPatientName)
	b.metrics.ObserveFile("accepted")
	return rec
}

// filter applies the cheap size and content-type checks. It returns a
// non-empty reason when f must be rejected.
func (b *Builder) filter(f *model.File) string {
	if f.Size > b.cfg.MaxFileBytes {
		return fmt.Sprintf("size %d exceeds %d", f.Size, b.cfg.MaxFileBytes)
	}
	if ct := normalizeContentType(f.ContentType); !b.accepted[ct] {
		return "content type " + ct
	}
	return ""
}

// readCapped reads f, failing if it turns out larger than MaxFileBytes.
func (b *Builder) readCapped(f *model.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, b.cfg.MaxFileBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > b.cfg.MaxFileBytes {
		return nil, apperrors.ErrEntryTooLarge
	}
	return data, nil
}

func normalizeContentType(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return strings.ToLower(ct)
}
