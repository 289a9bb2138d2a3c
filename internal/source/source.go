// Package source turns command-line paths into build inputs, expanding
// directories and zip containers.
package source

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dicom-triage/internal/archive"
	apperrors "github.com/dicom-triage/pkg/errors"
	"github.com/dicom-triage/pkg/model"
	"github.com/dicom-triage/pkg/utils"
)

var zipMagic = []byte("PK\x03\x04")

// Expansion is the outcome of expanding a set of paths.
type Expansion struct {
	// Files are build inputs in a stable order: plain files by walk order,
	// then archive members by container order.
	Files []*model.File
	// Skipped are extraction skip records. They are not build inputs.
	Skipped    []model.SkipRecord
	Containers int
}

// Options configures an Expander.
type Options struct {
	Archive archive.Options
	// Concurrency bounds how many containers are extracted at once.
	Concurrency int
	Logger      utils.Logger
}

// Expander expands paths.
type Expander struct {
	opts   Options
	logger utils.Logger
}

// NewExpander creates an Expander.
func NewExpander(opts Options) *Expander {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	return &Expander{opts: opts, logger: utils.OrNull(opts.Logger)}
}

type candidate struct {
	path string
	name string
	size int64
}

// Expand walks paths in lexical order. Regular files become inputs as-is and
// containers are extracted into in-memory inputs. A path that does not exist
// fails the expansion; problems below it become skip records.
func (e *Expander) Expand(ctx context.Context, paths []string) (*Expansion, error) {
	var plain, containers []candidate
	out := &Expansion{}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "input path "+root, err)
		}
		if !info.IsDir() {
			c := candidate{path: root, name: filepath.Base(root), size: info.Size()}
			if isContainer(root) {
				containers = append(containers, c)
			} else {
				plain = append(plain, c)
			}
			continue
		}
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				out.Skipped = append(out.Skipped, model.SkipRecord{
					Name: p, Reason: model.SkipParseFailed, Detail: "read: " + err.Error(),
				})
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			rel, _ := filepath.Rel(root, p)
			c := candidate{path: p, name: filepath.ToSlash(rel), size: info.Size()}
			if isContainer(p) {
				containers = append(containers, c)
			} else {
				plain = append(plain, c)
			}
			return nil
		})
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeCancelled, "walk "+root, err)
		}
	}

	for _, c := range plain {
		out.Files = append(out.Files, model.NewLocalFile(c.path, c.name, c.size))
	}

	extracted, err := e.extractAll(ctx, containers)
	if err != nil {
		return nil, err
	}
	for _, x := range extracted {
		out.Files = append(out.Files, x.files...)
		out.Skipped = append(out.Skipped, x.skipped...)
	}
	out.Containers = len(containers)
	e.logger.Debug("expanded %d paths into %d files from %d containers",
		len(paths), len(out.Files), len(containers))
	return out, nil
}

type extraction struct {
	files   []*model.File
	skipped []model.SkipRecord
}

// extractAll extracts containers concurrently, one Extractor each, keeping
// results in container order.
func (e *Expander) extractAll(ctx context.Context, containers []candidate) ([]extraction, error) {
	results := make([]extraction, len(containers))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for i, c := range containers {
		g.Go(func() error {
			ex := archive.New(e.opts.Archive)
			var res extraction
			for item := range ex.ExtractFile(ctx, c.path) {
				switch {
				case item.Entry != nil:
					res.files = append(res.files, model.NewMemoryFile(path.Join(c.name, item.Entry.Name), item.Entry.Bytes))
				case item.Skip != nil:
					rec := *item.Skip
					if rec.Name == model.ContainerEntryName {
						rec.Detail = c.name + ": " + rec.Detail
					} else {
						rec.Name = path.Join(c.name, rec.Name)
					}
					res.skipped = append(res.skipped, rec)
				}
			}
			results[i] = res
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCancelled, "extract containers", err)
	}
	return results, nil
}

// isContainer reports whether the file at p is a zip container, by
// extension or by its leading signature.
func isContainer(p string) bool {
	if strings.EqualFold(filepath.Ext(p), ".zip") {
		return true
	}
	f, err := os.Open(p)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, len(zipMagic))
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	return bytes.Equal(head, zipMagic)
}

// SortSkips orders skip records by name then reason.
func SortSkips(skips []model.SkipRecord) {
	sort.SliceStable(skips, func(i, j int) bool {
		if skips[i].Name != skips[j].Name {
			return skips[i].Name < skips[j].Name
		}
		return skips[i].Reason < skips[j].Reason
	})
}
