// Package segment persists named posting lists in a single binary file so
// large replicated lists do not have to be re-parsed from text.
//
// Layout: a 64-byte header, one lz4-compressed block per list, a JSON
// dictionary sorted by list name and a 32-byte footer carrying a CRC32 of the
// dictionary.
package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pierrec/lz4/v4"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/posting"
)

// MagicBytes identifies a valid .pseg segment file.
const (
	MagicBytes    uint32 = 0x50534547
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 32
	Extension            = ".pseg"
)

const (
	blockRaw byte = iota
	blockLZ4
)

// Header is the fixed-size header written at the start of every segment.
type Header struct {
	Magic         uint32
	Version       uint32
	ListCount     uint32
	TotalPostings uint64
	CreatedAt     int64
	DictOffset    int64
	DictSize      int64
	BlockOffset   int64
	BlockSize     int64
}

// DictEntry maps a list name to its block within the segment.
type DictEntry struct {
	Name   string `json:"n"`
	Offset int64  `json:"o"`
	Length int    `json:"l"`
	RawLen int    `json:"r"`
	Count  int    `json:"c"`
}

// Entry is a named list handed to the Writer.
type Entry struct {
	Name string
	List posting.List
}

// Writer serialises named posting lists into new segment files.
type Writer struct {
	dataDir string
}

// NewWriter creates a Writer that writes segments into the given directory.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// Write atomically creates a new segment holding entries. It writes to a .tmp
// file first and renames on success. Duplicate names are rejected.
func (w *Writer) Write(entries []Entry) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("cannot write empty segment")
	}
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Name == sorted[i-1].Name {
			return "", fmt.Errorf("duplicate list name %q in segment", sorted[i].Name)
		}
	}

	segmentName := fmt.Sprintf("seg_%d%s", time.Now().UnixNano(), Extension)
	finalPath := filepath.Join(w.dataDir, segmentName)
	tmpPath := finalPath + ".tmp"

	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp segment file: %w", err)
	}
	defer f.Close()

	header := Header{
		Magic:     MagicBytes,
		Version:   FormatVersion,
		ListCount: uint32(len(sorted)),
		CreatedAt: time.Now().Unix(),
	}
	if _, err := f.Write(make([]byte, HeaderSize)); err != nil {
		return "", fmt.Errorf("writing header placeholder: %w", err)
	}

	blockStart := int64(HeaderSize)
	offset := blockStart
	dict := make([]DictEntry, 0, len(sorted))
	for _, entry := range sorted {
		raw := encodeList(entry.List)
		block := compressBlock(raw)
		if _, err := f.Write(block); err != nil {
			return "", fmt.Errorf("writing block for list %q: %w", entry.Name, err)
		}
		dict = append(dict, DictEntry{
			Name:   entry.Name,
			Offset: offset - blockStart,
			Length: len(block),
			RawLen: len(raw),
			Count:  entry.List.Len(),
		})
		offset += int64(len(block))
		header.TotalPostings += uint64(entry.List.Len())
	}

	dictData, err := json.Marshal(dict)
	if err != nil {
		return "", fmt.Errorf("marshaling dictionary: %w", err)
	}
	if _, err := f.Write(dictData); err != nil {
		return "", fmt.Errorf("writing dictionary: %w", err)
	}
	header.BlockOffset = blockStart
	header.BlockSize = offset - blockStart
	header.DictOffset = offset
	header.DictSize = int64(len(dictData))

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(dictData))
	binary.LittleEndian.PutUint32(footer[4:8], header.ListCount)
	binary.LittleEndian.PutUint64(footer[8:16], uint64(header.DictOffset))
	binary.LittleEndian.PutUint64(footer[16:24], uint64(header.DictSize))
	binary.LittleEndian.PutUint64(footer[24:32], uint64(header.BlockSize))
	if _, err := f.Write(footer); err != nil {
		return "", fmt.Errorf("writing footer: %w", err)
	}
	if _, err := f.WriteAt(encodeHeader(header), 0); err != nil {
		return "", fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing segment file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming segment file: %w", err)
	}
	return segmentName, nil
}

func encodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.ListCount)
	binary.LittleEndian.PutUint64(buf[12:20], h.TotalPostings)
	binary.LittleEndian.PutUint64(buf[20:28], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(buf[28:36], uint64(h.DictOffset))
	binary.LittleEndian.PutUint64(buf[36:44], uint64(h.DictSize))
	binary.LittleEndian.PutUint64(buf[44:52], uint64(h.BlockOffset))
	binary.LittleEndian.PutUint64(buf[52:60], uint64(h.BlockSize))
	return buf
}

func decodeHeader(buf []byte) Header {
	return Header{
		Magic:         binary.LittleEndian.Uint32(buf[0:4]),
		Version:       binary.LittleEndian.Uint32(buf[4:8]),
		ListCount:     binary.LittleEndian.Uint32(buf[8:12]),
		TotalPostings: binary.LittleEndian.Uint64(buf[12:20]),
		CreatedAt:     int64(binary.LittleEndian.Uint64(buf[20:28])),
		DictOffset:    int64(binary.LittleEndian.Uint64(buf[28:36])),
		DictSize:      int64(binary.LittleEndian.Uint64(buf[36:44])),
		BlockOffset:   int64(binary.LittleEndian.Uint64(buf[44:52])),
		BlockSize:     int64(binary.LittleEndian.Uint64(buf[52:60])),
	}
}

// encodeList writes the count, the ids as varint deltas and the scores as
// varints.
func encodeList(l posting.List) []byte {
	buf := make([]byte, 0, binary.MaxVarintLen64*(1+2*l.Len()))
	buf = binary.AppendUvarint(buf, uint64(l.Len()))
	prev := 0
	for _, id := range l.IDs {
		buf = binary.AppendVarint(buf, int64(id-prev))
		prev = id
	}
	for _, score := range l.Scores {
		buf = binary.AppendVarint(buf, int64(score))
	}
	return buf
}

func decodeList(buf []byte) (posting.List, error) {
	n, read := binary.Uvarint(buf)
	if read <= 0 {
		return posting.List{}, fmt.Errorf("reading posting count")
	}
	buf = buf[read:]
	if n > uint64(len(buf)) {
		return posting.List{}, fmt.Errorf("posting count %d exceeds block size", n)
	}
	l := posting.List{IDs: make([]int, n), Scores: make([]int, n)}
	prev := 0
	for i := range l.IDs {
		delta, read := binary.Varint(buf)
		if read <= 0 {
			return posting.List{}, fmt.Errorf("reading id %d: %w", i, io.ErrUnexpectedEOF)
		}
		buf = buf[read:]
		prev += int(delta)
		l.IDs[i] = prev
	}
	for i := range l.Scores {
		score, read := binary.Varint(buf)
		if read <= 0 {
			return posting.List{}, fmt.Errorf("reading score %d: %w", i, io.ErrUnexpectedEOF)
		}
		buf = buf[read:]
		l.Scores[i] = int(score)
	}
	return l, nil
}

// compressBlock prefixes the payload with a one-byte kind. Payloads lz4
// cannot shrink are stored raw.
func compressBlock(raw []byte) []byte {
	dst := make([]byte, 1+lz4.CompressBlockBound(len(raw)))
	n, err := lz4.CompressBlock(raw, dst[1:], nil)
	if err != nil || n == 0 || n >= len(raw) {
		out := make([]byte, 1+len(raw))
		out[0] = blockRaw
		copy(out[1:], raw)
		return out
	}
	dst[0] = blockLZ4
	return dst[:1+n]
}

// maxRawLen bounds the decoded size of a block; lz4 cannot expand a byte of
// input to more than 255 bytes of output.
func maxRawLen(blockLen int) int {
	return blockLen * 255
}

func decompressBlock(block []byte, rawLen int) ([]byte, error) {
	if len(block) == 0 {
		return nil, fmt.Errorf("empty block")
	}
	if rawLen < 0 || rawLen > maxRawLen(len(block)) {
		return nil, fmt.Errorf("raw length %d for %d byte block", rawLen, len(block))
	}
	switch block[0] {
	case blockRaw:
		return block[1:], nil
	case blockLZ4:
		raw := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(block[1:], raw)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if n != rawLen {
			return nil, fmt.Errorf("lz4 decompressed %d bytes, want %d", n, rawLen)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown block kind %d", block[0])
	}
}
