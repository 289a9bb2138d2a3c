// Package thumbnail renders small PNG previews of representative series files.
package thumbnail

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"

	"github.com/dicom-triage/internal/deepparse"
	"github.com/dicom-triage/internal/manifest"
	"github.com/dicom-triage/internal/pixel"
	"github.com/dicom-triage/internal/storage"
	"github.com/dicom-triage/pkg/model"
	"github.com/dicom-triage/pkg/utils"
)

// DefaultSize is the default edge length of a thumbnail.
const DefaultSize = 64

var placeholderColor = color.Gray{Y: 0x40}

// Renderer renders thumbnails. Data problems never surface as errors: they
// produce the placeholder image instead.
type Renderer struct {
	parser   deepparse.Parser
	registry *pixel.Registry
	size     int
	logger   utils.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSize sets the thumbnail edge length.
func WithSize(size int) Option {
	return func(r *Renderer) {
		if size > 0 {
			r.size = size
		}
	}
}

// WithRegistry replaces the decoder registry.
func WithRegistry(reg *pixel.Registry) Option {
	return func(r *Renderer) { r.registry = reg }
}

// WithLogger sets the renderer logger.
func WithLogger(l utils.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// NewRenderer creates a Renderer. The default registry decodes run-length
// and uncompressed pixel data.
func NewRenderer(parser deepparse.Parser, opts ...Option) *Renderer {
	r := &Renderer{parser: parser, size: DefaultSize}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = utils.OrNull(r.logger)
	if r.registry == nil {
		r.registry = pixel.NewRegistry(
			pixel.WithLogger(r.logger),
			pixel.WithDecoders(pixel.Named("native", pixel.NativeDecoder{})),
		)
	}
	return r
}

// Size returns the thumbnail edge length.
func (r *Renderer) Size() int {
	return r.size
}

// Render returns PNG bytes for f. Only a cancelled ctx or a PNG encoding
// failure produce an error.
func (r *Renderer) Render(ctx context.Context, f *model.File) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return encode(r.Image(ctx, f))
}

// Image renders f to a size x size image.
func (r *Renderer) Image(ctx context.Context, f *model.File) image.Image {
	log := r.logger.WithField("file", f.Name)
	data, err := f.ReadAll()
	if err != nil {
		log.Debug("thumbnail read failed: %v", err)
		return r.placeholder()
	}
	ds, err := r.parser.Parse(ctx, data)
	if err != nil {
		log.Debug("thumbnail parse failed: %v", err)
		return r.placeholder()
	}
	return r.ImageOf(data, ds)
}

// ImageOf renders an already parsed dataset. raw is the file the dataset
// was parsed from and is handed to the decoders unchanged.
func (r *Renderer) ImageOf(raw []byte, ds model.Dataset) image.Image {
	buf := r.registry.Decode(raw, ds)
	src := toImage(buf, ds)
	if src == nil {
		return r.placeholder()
	}
	return r.fit(src)
}

// fit scales src to fit a size x size square, centered on black.
func (r *Renderer) fit(src image.Image) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, r.size, r.size))
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)

	sb := src.Bounds()
	w, h := r.size, r.size
	if sb.Dx() > sb.Dy() {
		h = max(1, sb.Dy()*r.size/sb.Dx())
	} else if sb.Dy() > sb.Dx() {
		w = max(1, sb.Dx()*r.size/sb.Dy())
	}
	x0, y0 := (r.size-w)/2, (r.size-h)/2
	draw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+w, y0+h), src, sb, draw.Src, nil)
	return dst
}

func (r *Renderer) placeholder() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, r.size, r.size))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: placeholderColor}, image.Point{}, draw.Src)
	return img
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Key returns the storage key of a series thumbnail.
func Key(k model.SeriesKey) string {
	return storage.SanitizeKey(k.StudyUID) + "/" + storage.SanitizeKey(k.SeriesUID) + ".png"
}

// RenderIndex renders one thumbnail per indexed series into store and
// returns the written keys by series.
func (r *Renderer) RenderIndex(ctx context.Context, idx *manifest.RepresentativeIndex, store storage.Storage) (map[model.SeriesKey]string, error) {
	written := make(map[model.SeriesKey]string, idx.Len())
	for _, k := range idx.Keys() {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		f, _ := idx.Get(k.StudyUID, k.SeriesUID)
		data, err := r.Render(ctx, f)
		if err != nil {
			return written, err
		}
		key := Key(k)
		if err := store.Put(ctx, key, bytes.NewReader(data)); err != nil {
			return written, err
		}
		written[k] = key
	}
	r.logger.Info("rendered %d thumbnails", len(written))
	return written, nil
}
