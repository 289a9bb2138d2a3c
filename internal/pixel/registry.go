// Package pixel turns encoded pixel payloads into flat DecodedPixelBuffers
// through an ordered chain of pluggable decoders.
package pixel

import (
	"errors"
	"fmt"
	"sync"

	apperrors "github.com/dicom-triage/pkg/errors"
	"github.com/dicom-triage/pkg/model"
	"github.com/dicom-triage/pkg/utils"
)

// Decoder attempts to produce a pixel buffer from a record. A nil buffer
// with a nil error means the decoder does not apply.
type Decoder interface {
	Decode(raw []byte, ds model.Dataset) (*model.DecodedPixelBuffer, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(raw []byte, ds model.Dataset) (*model.DecodedPixelBuffer, error)

// Decode calls f.
func (f DecoderFunc) Decode(raw []byte, ds model.Dataset) (*model.DecodedPixelBuffer, error) {
	return f(raw, ds)
}

// Named returns a Decoder that reports name in logs.
func Named(name string, d Decoder) Decoder {
	return namedDecoder{name: name, Decoder: d}
}

type namedDecoder struct {
	name string
	Decoder
}

func (n namedDecoder) String() string { return n.name }

// Decode outcomes passed to an Observer.
const (
	ResultDecoded = "decoded"
	ResultFailed  = "failed"
	ResultNone    = "none"
)

// Observer receives one outcome per decoder attempt and per Decode call.
type Observer interface {
	ObserveDecode(result string)
}

// Registry is an ordered decoder chain. The zero value is ready to use and
// always starts with the built-in run-length decoder.
type Registry struct {
	mu       sync.RWMutex
	builtins sync.Once
	decoders []Decoder
	logger   utils.Logger
	observer Observer
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger utils.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithDecoders appends externally supplied decoders after the built-ins.
func WithDecoders(decoders ...Decoder) Option {
	return func(r *Registry) { r.decoders = append(r.decoders, decoders...) }
}

// WithObserver sets an outcome observer.
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// NewRegistry creates a Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) ensureBuiltins() {
	r.builtins.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.decoders = append([]Decoder{Named("rle", RLEDecoder{})}, r.decoders...)
	})
}

// Register appends a decoder to the chain.
func (r *Registry) Register(d Decoder) {
	if d == nil {
		return
	}
	r.ensureBuiltins()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders = append(r.decoders, d)
}

// Len returns the number of registered decoders, built-ins included.
func (r *Registry) Len() int {
	r.ensureBuiltins()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.decoders)
}

// Decode tries each decoder in registration order and returns the first
// well-formed buffer. Decoder errors and panics are logged and skipped;
// a nil result means no decoder could handle the input.
func (r *Registry) Decode(raw []byte, ds model.Dataset) *model.DecodedPixelBuffer {
	r.ensureBuiltins()
	r.mu.RLock()
	chain := make([]Decoder, len(r.decoders))
	copy(chain, r.decoders)
	r.mu.RUnlock()

	log := utils.OrNull(r.logger)
	for _, d := range chain {
		buf, err := safeDecode(d, raw, ds)
		switch {
		case err != nil:
			r.observe(ResultFailed)
			if errors.Is(err, apperrors.ErrUnsupportedLayout) {
				log.Warn("decoder %s: %v", decoderName(d), err)
			} else {
				log.Debug("decoder %s: %v", decoderName(d), err)
			}
		case buf.Valid():
			r.observe(ResultDecoded)
			return buf
		}
	}
	r.observe(ResultNone)
	return nil
}

func (r *Registry) observe(result string) {
	if r.observer != nil {
		r.observer.ObserveDecode(result)
	}
}

func safeDecode(d Decoder, raw []byte, ds model.Dataset) (buf *model.DecodedPixelBuffer, err error) {
	defer func() {
		if p := recover(); p != nil {
			buf = nil
			err = apperrors.Wrap(apperrors.CodeDecodeFailed, "decoder panicked", fmt.Errorf("%v", p))
		}
	}()
	return d.Decode(raw, ds)
}

func decoderName(d Decoder) string {
	if s, ok := d.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", d)
}

// RLEDecoder is the built-in decoder for the run-length transfer syntax.
type RLEDecoder struct{}

// Decode implements Decoder. Datasets in any other transfer syntax are ignored.
func (RLEDecoder) Decode(_ []byte, ds model.Dataset) (*model.DecodedPixelBuffer, error) {
	if ds.String(model.FieldTransferSyntaxUID) != RLELossless {
		return nil, nil
	}
	return DecodeRLE(ds)
}
