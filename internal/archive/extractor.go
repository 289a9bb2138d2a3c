// Package archive streams members out of compressed containers without
// materializing the whole archive.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"sync/atomic"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "github.com/dicom-triage/pkg/errors"
	"github.com/dicom-triage/pkg/model"
	"github.com/dicom-triage/pkg/utils"
)

const (
	// DefaultBuffer is the default capacity of the worker message channel.
	DefaultBuffer = 16
	// DefaultProgressEvery is the default entry interval between progress reports.
	DefaultProgressEvery = 16
)

var tracer = otel.Tracer("github.com/dicom-triage/internal/archive")

// Item is one element of an extraction sequence: exactly one field is set.
type Item struct {
	Entry *model.RawEntry
	Skip  *model.SkipRecord
}

// Progress carries extraction counters.
type Progress struct {
	EntriesSeen int
	Kept        int
}

// Entry outcomes passed to an Observer.
const (
	OutcomeKept = "kept"
)

// Observer receives one outcome per archive member, or per container failure.
// Outcomes are OutcomeKept or a model.SkipReason string.
type Observer interface {
	ObserveEntry(outcome string)
}

// Options configures an Extractor.
type Options struct {
	// MaxEntryBytes skips members whose decompressed size exceeds it. Zero disables the cap.
	MaxEntryBytes int64
	// OnProgress is called on the consumer side with running counters.
	OnProgress func(Progress)
	// OnSkip is called on the consumer side for every skip record, before it is yielded.
	OnSkip func(model.SkipRecord)
	// Buffer is the worker channel capacity.
	Buffer int
	// ProgressEvery is the member interval between progress reports.
	ProgressEvery int
	Logger        utils.Logger
	Observer      Observer
}

// Extractor extracts one archive at a time. Use separate instances to
// extract several archives concurrently; instances share no state.
type Extractor struct {
	opts Options
	busy atomic.Bool
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	opts.Logger = utils.OrNull(opts.Logger)
	return &Extractor{opts: opts}
}

// ExtractBytes extracts an in-memory archive.
func (e *Extractor) ExtractBytes(ctx context.Context, data []byte) iter.Seq[Item] {
	return e.Extract(ctx, bytes.NewReader(data), int64(len(data)))
}

// ExtractFile extracts the archive at path. The file is opened when
// iteration starts and closed when it ends.
func (e *Extractor) ExtractFile(ctx context.Context, path string) iter.Seq[Item] {
	return e.sequence(ctx, func() (io.ReaderAt, int64, func(), error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, nil, err
		}
		st, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, 0, nil, err
		}
		return f, st.Size(), func() { f.Close() }, nil
	})
}

// Extract returns a lazy, forward-only sequence over the members of the
// archive in src. Members are yielded in directory order. The sequence may
// be ranged over once; later iterations yield nothing.
func (e *Extractor) Extract(ctx context.Context, src io.ReaderAt, size int64) iter.Seq[Item] {
	return e.sequence(ctx, func() (io.ReaderAt, int64, func(), error) {
		return src, size, func() {}, nil
	})
}

type opener func() (io.ReaderAt, int64, func(), error)

func (e *Extractor) sequence(ctx context.Context, open opener) iter.Seq[Item] {
	var consumed atomic.Bool
	return func(yield func(Item) bool) {
		if !consumed.CompareAndSwap(false, true) {
			return
		}
		if !e.busy.CompareAndSwap(false, true) {
			e.containerError(yield, "extractor busy")
			return
		}
		defer e.busy.Store(false)

		src, size, closeFn, err := open()
		if err != nil {
			e.containerError(yield, err.Error())
			return
		}
		defer closeFn()
		e.consume(ctx, src, size, yield)
	}
}

// consume starts the worker and relays its messages to yield.
func (e *Extractor) consume(ctx context.Context, src io.ReaderAt, size int64, yield func(Item) bool) {
	ctx, span := tracer.Start(ctx, "archive.extract")
	defer span.End()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	msgs := make(chan message, e.opts.Buffer)
	go newWorker(e.opts, msgs).run(ctx, src, size)

	stop := func() {
		cancel()
		for range msgs {
		}
	}

	var last Progress
	for m := range msgs {
		switch m.kind {
		case msgProgress:
			last = m.progress
			if e.opts.OnProgress != nil {
				e.opts.OnProgress(m.progress)
			}
		case msgEntry:
			e.observe(OutcomeKept)
			if !yield(Item{Entry: m.entry}) {
				stop()
				return
			}
		case msgWarn:
			e.observe(string(m.skip.Reason))
			if !e.emitSkip(yield, *m.skip) {
				stop()
				return
			}
		case msgError:
			span.SetStatus(codes.Error, m.skip.Detail)
			e.observe(string(m.skip.Reason))
			e.emitSkip(yield, *m.skip)
			stop()
			return
		case msgDone:
			span.SetAttributes(
				attribute.Int("archive.entries_seen", last.EntriesSeen),
				attribute.Int("archive.kept", last.Kept),
			)
			stop()
			return
		}
	}

	// The worker closed the channel without finishing: it was cancelled.
	detail := "extraction cancelled"
	if err := ctx.Err(); err != nil {
		detail = err.Error()
	}
	span.SetStatus(codes.Error, detail)
	e.containerError(yield, detail)
}

func (e *Extractor) emitSkip(yield func(Item) bool, rec model.SkipRecord) bool {
	e.opts.Logger.WithFields(map[string]interface{}{
		"entry":  rec.Name,
		"reason": rec.Reason,
	}).Debug("archive entry skipped: %s", rec.Detail)
	if e.opts.OnSkip != nil {
		e.opts.OnSkip(rec)
	}
	return yield(Item{Skip: &rec})
}

func (e *Extractor) containerError(yield func(Item) bool, detail string) {
	e.observe(string(model.SkipContainerError))
	e.opts.Logger.Warn("archive unreadable: %s", detail)
	e.emitSkip(yield, model.SkipRecord{
		Name:   model.ContainerEntryName,
		Reason: model.SkipContainerError,
		Detail: detail,
	})
}

func (e *Extractor) observe(outcome string) {
	if e.opts.Observer != nil {
		e.opts.Observer.ObserveEntry(outcome)
	}
}

type msgKind int

const (
	msgProgress msgKind = iota
	msgEntry
	msgWarn
	msgError
	msgDone
)

type message struct {
	kind     msgKind
	progress Progress
	entry    *model.RawEntry
	skip     *model.SkipRecord
}

type worker struct {
	maxEntry      int64
	progressEvery int
	out           chan<- message
}

func newWorker(opts Options, out chan<- message) *worker {
	return &worker{
		maxEntry:      opts.MaxEntryBytes,
		progressEvery: opts.ProgressEvery,
		out:           out,
	}
}

func (w *worker) send(ctx context.Context, m message) bool {
	select {
	case w.out <- m:
		return true
	case <-ctx.Done():
		return false
	}
}

func (w *worker) run(ctx context.Context, src io.ReaderAt, size int64) {
	defer close(w.out)

	zr, err := openZip(src, size)
	if err != nil {
		w.send(ctx, message{kind: msgError, skip: &model.SkipRecord{
			Name:   model.ContainerEntryName,
			Reason: model.SkipContainerError,
			Detail: err.Error(),
		}})
		return
	}

	var p Progress
	for _, f := range zr.File {
		if ctx.Err() != nil {
			return
		}
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		p.EntriesSeen++

		data, err := w.readMember(f)
		var m message
		switch {
		case apperrors.IsEntryTooLarge(err):
			m = message{kind: msgWarn, skip: &model.SkipRecord{
				Name:   f.Name,
				Reason: model.SkipSizeCap,
				Detail: fmt.Sprintf("%d", f.UncompressedSize64),
			}}
		case err != nil:
			m = message{kind: msgWarn, skip: &model.SkipRecord{
				Name:   f.Name,
				Reason: model.SkipParseFailed,
				Detail: err.Error(),
			}}
		default:
			p.Kept++
			m = message{kind: msgEntry, entry: &model.RawEntry{Name: f.Name, Bytes: data}}
		}
		if !w.send(ctx, m) {
			return
		}
		if m.kind == msgEntry || p.EntriesSeen%w.progressEvery == 0 {
			if !w.send(ctx, message{kind: msgProgress, progress: p}) {
				return
			}
		}
	}

	if w.send(ctx, message{kind: msgProgress, progress: p}) {
		w.send(ctx, message{kind: msgDone})
	}
}

// readMember decompresses f, reading at most one byte past the cap.
func (w *worker) readMember(f *zip.File) ([]byte, error) {
	if w.maxEntry > 0 && f.UncompressedSize64 > uint64(w.maxEntry) {
		return nil, apperrors.ErrEntryTooLarge
	}
	rc, err := f.Open()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeParseFailed, "open member", err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if w.maxEntry > 0 {
		r = io.LimitReader(rc, w.maxEntry+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeParseFailed, "decompress member", err)
	}
	if w.maxEntry > 0 && int64(len(data)) > w.maxEntry {
		return nil, apperrors.ErrEntryTooLarge
	}
	return data, nil
}

func openZip(src io.ReaderAt, size int64) (zr *zip.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			zr, err = nil, fmt.Errorf("corrupt container: %v", p)
		}
	}()
	zr, err = zip.NewReader(src, size)
	if err != nil {
		return nil, err
	}
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
	return zr, nil
}

// Collect drains seq into entries and skip records.
func Collect(seq iter.Seq[Item]) ([]model.RawEntry, []model.SkipRecord) {
	var entries []model.RawEntry
	var skips []model.SkipRecord
	for it := range seq {
		if it.Entry != nil {
			entries = append(entries, *it.Entry)
		}
		if it.Skip != nil {
			skips = append(skips, *it.Skip)
		}
	}
	return entries, skips
}
