package transport

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// maxBodyBytes caps a decoded page body.
const maxBodyBytes = 16 << 20

// decodeBody reads a response body according to its Content-Encoding. The
// Accept-Encoding header is set explicitly, so net/http leaves bodies encoded.
// "deflate" is tried as zlib first and as a raw stream second.
func decodeBody(body io.Reader, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return readLimited(body)
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		defer zr.Close()
		return readLimited(zr)
	case "deflate":
		raw, err := readLimited(body)
		if err != nil {
			return nil, err
		}
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			out, rerr := readLimited(zr)
			zr.Close()
			if rerr == nil {
				return out, nil
			}
		}
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		return readLimited(fr)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

func readLimited(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	return b, nil
}
