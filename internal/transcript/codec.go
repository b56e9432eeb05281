package transcript

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
)

var ErrDecode = errors.New("transcript decode failed")

// Encode serializes doc as base64(gzip(json)).
func Encode(doc Document) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("compress transcript: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress transcript: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode. Any failing stage yields an error wrapping
// ErrDecode and a zero Document.
func Decode(payload string) (Document, error) {
	compressed, err := base64.StdEncoding.Strict().DecodeString(payload)
	if err != nil {
		return Document{}, fmt.Errorf("%w: base64: %v", ErrDecode, err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return Document{}, fmt.Errorf("%w: gzip header: %v", ErrDecode, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return Document{}, fmt.Errorf("%w: gzip: %v", ErrDecode, err)
	}
	if !utf8.Valid(raw) {
		return Document{}, fmt.Errorf("%w: payload is not valid UTF-8", ErrDecode)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: json: %v", ErrDecode, err)
	}
	return doc, nil
}
