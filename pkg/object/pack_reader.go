package object

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// maxDeltaDepth bounds base-chain resolution. Git's own writers stay far
// below this; exceeding it means a cycle or garbage offsets.
const maxDeltaDepth = 64

// PackReader provides random-access decode of one immutable pack archive.
// It loads the pack and its sibling .idx on open, verifies both
// checksums, and owns a prefix trie mapping every contained digest to its
// byte offset. A PackReader is safe for concurrent read-only use.
type PackReader struct {
	path  string
	data  []byte
	index *PackIndex
	trie  *Trie[uint64]
}

// OpenPackReader opens the archive at packPath together with the index
// file alongside it (same name, .idx extension).
func OpenPackReader(packPath string) (*PackReader, error) {
	data, err := os.ReadFile(packPath)
	if err != nil {
		return nil, fmt.Errorf("open pack %s: %w", packPath, err)
	}
	if len(data) < packHeaderSize+sha1.Size {
		return nil, fmt.Errorf("%w: pack %s too short: %d bytes", ErrCorrupt, packPath, len(data))
	}
	if _, err := UnmarshalPackHeader(data[:packHeaderSize]); err != nil {
		return nil, fmt.Errorf("%w: pack %s: %v", ErrCorrupt, packPath, err)
	}

	payload := data[:len(data)-sha1.Size]
	trailer := data[len(data)-sha1.Size:]
	sum := sha1.Sum(payload)
	if !bytes.Equal(sum[:], trailer) {
		return nil, fmt.Errorf("%w: pack %s checksum mismatch", ErrCorrupt, packPath)
	}

	idxPath := strings.TrimSuffix(packPath, ".pack") + ".idx"
	idxData, err := os.ReadFile(idxPath)
	if err != nil {
		return nil, fmt.Errorf("open pack index %s: %w", idxPath, err)
	}
	index, err := ReadPackIndex(idxData)
	if err != nil {
		return nil, fmt.Errorf("%w: pack index %s: %v", ErrCorrupt, idxPath, err)
	}
	if index.PackChecksum != hashFromRaw(trailer) {
		return nil, fmt.Errorf("%w: pack index %s does not describe %s", ErrCorrupt, idxPath, packPath)
	}

	trie := NewTrie[uint64]()
	for _, entry := range index.entries {
		trie.Insert(entry.Hash, entry.Offset)
	}

	return &PackReader{
		path:  packPath,
		data:  data,
		index: index,
		trie:  trie,
	}, nil
}

// Path returns the archive file path the reader was opened from.
func (p *PackReader) Path() string { return p.path }

// Entries returns every contained digest with its byte offset.
func (p *PackReader) Entries() []PackIndexEntry {
	return p.index.Entries()
}

// Find returns the digests in this archive sharing the given prefix.
func (p *PackReader) Find(prefix string) []TrieEntry[uint64] {
	return p.trie.Find(prefix)
}

// ObjectAt decodes the object stored at the given pack byte offset,
// transparently resolving OFS_DELTA and REF_DELTA base chains. An offset
// with no valid entry, or an unresolvable base, is a corruption error —
// never "not found".
func (p *PackReader) ObjectAt(offset uint64) (ObjectType, []byte, error) {
	packType, raw, err := p.resolveAt(offset, 0)
	if err != nil {
		return "", nil, err
	}
	objType, ok := packType.ObjectType()
	if !ok {
		return "", nil, fmt.Errorf("%w: pack %s offset %d: entry type %d", ErrCorrupt, p.path, offset, packType)
	}
	return objType, raw, nil
}

// resolveAt returns the fully reconstructed bytes and the concrete
// (non-delta) type of the entry at offset.
func (p *PackReader) resolveAt(offset uint64, depth int) (PackObjectType, []byte, error) {
	if depth > maxDeltaDepth {
		return 0, nil, fmt.Errorf("%w: pack %s offset %d: delta chain too deep", ErrCorrupt, p.path, offset)
	}

	payloadEnd := uint64(len(p.data) - sha1.Size)
	if offset < packHeaderSize || offset >= payloadEnd {
		return 0, nil, fmt.Errorf("%w: pack %s: offset %d out of range", ErrCorrupt, p.path, offset)
	}

	entry := p.data[offset:payloadEnd]
	packType, size, headerLen, err := decodePackEntryHeader(entry)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: pack %s offset %d: %v", ErrCorrupt, p.path, offset, err)
	}
	entry = entry[headerLen:]

	var (
		baseOffset uint64
		baseHash   Hash
	)
	switch packType {
	case PackOfsDelta:
		distance, n, err := decodeOfsDeltaDistance(entry)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: pack %s offset %d: %v", ErrCorrupt, p.path, offset, err)
		}
		if distance == 0 || distance > offset {
			return 0, nil, fmt.Errorf("%w: pack %s offset %d: ofs-delta distance %d out of range", ErrCorrupt, p.path, offset, distance)
		}
		baseOffset = offset - distance
		entry = entry[n:]
	case PackRefDelta:
		if len(entry) < sha1.Size {
			return 0, nil, fmt.Errorf("%w: pack %s offset %d: ref-delta base truncated", ErrCorrupt, p.path, offset)
		}
		baseHash = hashFromRaw(entry[:sha1.Size])
		entry = entry[sha1.Size:]
	}

	raw, err := inflatePackPayload(entry, size)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: pack %s offset %d: %v", ErrCorrupt, p.path, offset, err)
	}

	switch packType {
	case PackCommit, PackTree, PackBlob, PackTag:
		return packType, raw, nil
	case PackOfsDelta:
		baseType, base, err := p.resolveAt(baseOffset, depth+1)
		if err != nil {
			return 0, nil, err
		}
		result, err := applyDelta(base, raw)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: pack %s offset %d: %v", ErrCorrupt, p.path, offset, err)
		}
		return baseType, result, nil
	case PackRefDelta:
		baseEntry, ok := p.index.Find(baseHash)
		if !ok {
			return 0, nil, fmt.Errorf("%w: pack %s offset %d: delta base %s not in archive", ErrCorrupt, p.path, offset, baseHash)
		}
		baseType, base, err := p.resolveAt(baseEntry.Offset, depth+1)
		if err != nil {
			return 0, nil, err
		}
		result, err := applyDelta(base, raw)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: pack %s offset %d: %v", ErrCorrupt, p.path, offset, err)
		}
		return baseType, result, nil
	default:
		return 0, nil, fmt.Errorf("%w: pack %s offset %d: unknown entry type %d", ErrCorrupt, p.path, offset, packType)
	}
}

// inflatePackPayload decompresses one entry payload and enforces the size
// declared in its header.
func inflatePackPayload(compressed []byte, size uint64) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("zlib reader: %v", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		_ = zr.Close()
		return nil, fmt.Errorf("decompress: %v", err)
	}
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("close zlib stream: %v", err)
	}
	if uint64(len(raw)) != size {
		return nil, fmt.Errorf("size mismatch header=%d decoded=%d", size, len(raw))
	}
	return raw, nil
}
