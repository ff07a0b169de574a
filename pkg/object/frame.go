package object

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// IsLooseFrame reports whether buf starts like a zlib-deflated loose
// object: first byte 0x78 and the leading big-endian uint16 divisible by
// 31 (the zlib header checksum property). A false result means "not a
// loose object encoding", not corruption; callers fall back to pack
// lookup.
func IsLooseFrame(buf []byte) bool {
	if len(buf) < 2 || buf[0] != 0x78 {
		return false
	}
	return (uint16(buf[0])<<8|uint16(buf[1]))%31 == 0
}

// EncodeLoose deflates the envelope "type len\0content" into the loose
// object on-disk form.
func EncodeLoose(objType ObjectType, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := fmt.Fprintf(zw, "%s %d\x00", objType, len(data)); err != nil {
		_ = zw.Close()
		return nil, fmt.Errorf("encode loose: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		_ = zw.Close()
		return nil, fmt.Errorf("encode loose: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("encode loose: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeLoose inflates a loose object buffer and validates its envelope.
// Any framing, header, or length failure is ErrCorrupt: a loose file that
// exists but cannot be decoded is data loss, never "not found".
func DecodeLoose(buf []byte) (ObjectType, []byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(buf))
	if err != nil {
		return "", nil, fmt.Errorf("%w: zlib header: %v", ErrCorrupt, err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		_ = zr.Close()
		return "", nil, fmt.Errorf("%w: inflate: %v", ErrCorrupt, err)
	}
	if err := zr.Close(); err != nil {
		return "", nil, fmt.Errorf("%w: zlib checksum: %v", ErrCorrupt, err)
	}
	return parseEnvelope(raw)
}

// parseEnvelope splits "type len\0content" and enforces the declared
// length against the actual payload size.
func parseEnvelope(raw []byte) (ObjectType, []byte, error) {
	nulIdx := bytes.IndexByte(raw, 0)
	if nulIdx < 0 {
		return "", nil, fmt.Errorf("%w: envelope missing NUL", ErrCorrupt)
	}
	header := string(raw[:nulIdx])
	content := raw[nulIdx+1:]

	tag, lenStr, ok := strings.Cut(header, " ")
	if !ok {
		return "", nil, fmt.Errorf("%w: invalid envelope header %q", ErrCorrupt, header)
	}
	objType, err := ParseObjectType(tag)
	if err != nil {
		return "", nil, err
	}
	length, err := strconv.Atoi(lenStr)
	if err != nil {
		return "", nil, fmt.Errorf("%w: invalid envelope length %q", ErrCorrupt, lenStr)
	}
	if len(content) != length {
		return "", nil, fmt.Errorf("%w: length mismatch (header=%d, actual=%d)", ErrCorrupt, length, len(content))
	}
	return objType, content, nil
}
