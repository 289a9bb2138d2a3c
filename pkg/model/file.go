package model

import (
	"bytes"
	"io"
	"os"
)

// File is an input to a manifest build. It holds how to open the content,
// never an open handle, so a File may be retained without leaking descriptors.
type File struct {
	Name        string
	Size        int64
	ContentType string

	open func() (io.ReadCloser, error)
	data []byte
}

// NewFile creates a File backed by an opener.
func NewFile(name string, size int64, contentType string, open func() (io.ReadCloser, error)) *File {
	return &File{Name: name, Size: size, ContentType: contentType, open: open}
}

// NewMemoryFile creates a File over an in-memory buffer.
func NewMemoryFile(name string, data []byte) *File {
	return &File{Name: name, Size: int64(len(data)), data: data}
}

// NewLocalFile creates a File reading from path on disk.
func NewLocalFile(path, name string, size int64) *File {
	return NewFile(name, size, "", func() (io.ReadCloser, error) {
		return os.Open(path)
	})
}

// Open returns a reader over the file content.
func (f *File) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return io.NopCloser(bytes.NewReader(f.data)), nil
	}
	return f.open()
}

// ReadAll reads the whole file.
func (f *File) ReadAll() ([]byte, error) {
	if f.open == nil {
		return f.data, nil
	}
	rc, err := f.open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ReadPrefix reads at most n bytes from the start of the file.
func (f *File) ReadPrefix(n int) ([]byte, error) {
	if f.open == nil {
		if len(f.data) > n {
			return f.data[:n], nil
		}
		return f.data, nil
	}
	rc, err := f.open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, int64(n)))
}
