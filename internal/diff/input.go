package diff

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Encoding identifies how a diff stream is compressed.
type Encoding string

const (
	EncodingNone Encoding = ""
	EncodingGzip Encoding = "gzip"
	EncodingZstd Encoding = "zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// ParseEncoding maps a Content-Encoding value to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "", "identity":
		return EncodingNone, nil
	case "gzip", "x-gzip":
		return EncodingGzip, nil
	case "zstd":
		return EncodingZstd, nil
	}
	return EncodingNone, fmt.Errorf("unsupported encoding %q", s)
}

// sniff detects the encoding from the stream's magic bytes without consuming them.
func sniff(br *bufio.Reader) Encoding {
	head, _ := br.Peek(len(zstdMagic))
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return EncodingGzip
	case bytes.HasPrefix(head, zstdMagic):
		return EncodingZstd
	}
	return EncodingNone
}

// NewReader wraps r so it yields plain diff text. When enc is EncodingNone
// the encoding is detected from the stream itself.
func NewReader(r io.Reader, enc Encoding) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	if enc == EncodingNone {
		enc = sniff(br)
	}

	switch enc {
	case EncodingGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		return zr, nil
	case EncodingZstd:
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		return dec.IOReadCloser(), nil
	}
	return io.NopCloser(br), nil
}

// ReadAll reads a possibly compressed diff, refusing more than limit bytes of
// decompressed text when limit is positive.
func ReadAll(r io.Reader, enc Encoding, limit int64) ([]byte, error) {
	rc, err := NewReader(r, enc)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var src io.Reader = rc
	if limit > 0 {
		src = io.LimitReader(rc, limit+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read diff: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("diff exceeds %d bytes", limit)
	}
	return data, nil
}
