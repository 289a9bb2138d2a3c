// Package writer writes reports as JSON or as text tables.
package writer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dicom-triage/pkg/compression"
)

// JSONWriter writes data as JSON, optionally compressed.
type JSONWriter[T any] struct {
	// Indent specifies the indentation for pretty printing.
	// Empty string means compact output.
	Indent string
	// Compression wraps the output stream.
	Compression compression.Type
	Level       compression.Level
}

// NewJSONWriter creates a new JSON writer with compact output.
func NewJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Level: compression.LevelDefault}
}

// NewPrettyJSONWriter creates a JSON writer with pretty printing.
func NewPrettyJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Indent: "  ", Level: compression.LevelDefault}
}

// WithCompression returns a copy of w that compresses its output.
func (w *JSONWriter[T]) WithCompression(t compression.Type) *JSONWriter[T] {
	c := *w
	c.Compression = t
	return &c
}

// Write writes the data as JSON to the writer.
func (w *JSONWriter[T]) Write(data T, writer io.Writer) error {
	cw, err := compression.NewWriter(writer, w.Compression, w.Level)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(cw)
	if w.Indent != "" {
		encoder.SetIndent("", w.Indent)
	}
	if err := encoder.Encode(data); err != nil {
		cw.Close()
		return fmt.Errorf("failed to encode data: %w", err)
	}
	return cw.Close()
}

// WriteResult contains statistics about the written file.
type WriteResult struct {
	JSONSize       int64
	WrittenSize    int64
	CompressionPct float64
}

// WriteToFile writes the data to a file and returns size statistics.
func (w *JSONWriter[T]) WriteToFile(data T, filepath string) (*WriteResult, error) {
	file, err := os.Create(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	counter := &countingWriter{}
	if err := w.Write(data, io.MultiWriter(file, counter)); err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data: %w", err)
	}
	res := &WriteResult{JSONSize: int64(len(jsonData)), WrittenSize: counter.n}
	if res.JSONSize > 0 {
		res.CompressionPct = float64(res.WrittenSize) / float64(res.JSONSize) * 100
	}
	return res, file.Close()
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
