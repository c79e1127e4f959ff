package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/posting"
	apperrors "github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/errors"
)

type Reader struct {
	file     *os.File
	filePath string
	header   Header
	dict     []DictEntry
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	r, err := open(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func open(f *os.File, path string) (*Reader, error) {
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("%w: reading header of %s: %v", apperrors.ErrCorruptSegment, path, err)
	}
	header := decodeHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, fmt.Errorf("%w: bad magic bytes %x", apperrors.ErrCorruptSegment, header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", apperrors.ErrCorruptSegment, header.Version)
	}
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat segment file: %w", err)
	}
	if err := checkLayout(header, info.Size()); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrCorruptSegment, path, err)
	}
	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		return nil, fmt.Errorf("%w: reading dictionary: %v", apperrors.ErrCorruptSegment, err)
	}
	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, header.DictOffset+header.DictSize); err != nil {
		return nil, fmt.Errorf("%w: reading footer: %v", apperrors.ErrCorruptSegment, err)
	}
	if want, got := binary.LittleEndian.Uint32(footer[0:4]), crc32.ChecksumIEEE(dictBytes); want != got {
		return nil, fmt.Errorf("%w: dictionary checksum %08x, want %08x", apperrors.ErrCorruptSegment, got, want)
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, fmt.Errorf("%w: parsing dictionary: %v", apperrors.ErrCorruptSegment, err)
	}
	blockSize := header.DictOffset - header.BlockOffset
	for _, e := range dict {
		if err := checkEntry(e, blockSize); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrCorruptSegment, path, err)
		}
	}
	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		dict:     dict,
	}, nil
}

// checkLayout rejects headers whose regions fall outside a file of size bytes.
func checkLayout(h Header, size int64) error {
	switch {
	case h.BlockOffset < int64(HeaderSize) || h.DictOffset < h.BlockOffset:
		return fmt.Errorf("block offset %d, dictionary offset %d", h.BlockOffset, h.DictOffset)
	case h.DictSize < 0 || h.DictSize > size:
		return fmt.Errorf("dictionary size %d in %d byte file", h.DictSize, size)
	case h.DictOffset > size-h.DictSize-int64(FooterSize):
		return fmt.Errorf("dictionary [%d, +%d) overruns %d byte file", h.DictOffset, h.DictSize, size)
	}
	return nil
}

// checkEntry rejects dictionary entries that point outside the block region.
func checkEntry(e DictEntry, blockSize int64) error {
	switch {
	case e.Offset < 0 || e.Length < 1 || int64(e.Length) > blockSize-e.Offset:
		return fmt.Errorf("list %q block [%d, +%d) outside %d byte region", e.Name, e.Offset, e.Length, blockSize)
	case e.RawLen < 0 || e.RawLen > maxRawLen(e.Length):
		return fmt.Errorf("list %q raw length %d for %d byte block", e.Name, e.RawLen, e.Length)
	}
	return nil
}

// Load decodes the list stored under name. The second result is false when
// the segment has no such list.
func (r *Reader) Load(name string) (posting.List, bool, error) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Name >= name
	})
	if idx >= len(r.dict) || r.dict[idx].Name != name {
		return posting.List{}, false, nil
	}
	entry := r.dict[idx]
	block := make([]byte, entry.Length)
	if _, err := r.file.ReadAt(block, r.header.BlockOffset+entry.Offset); err != nil {
		return posting.List{}, false, fmt.Errorf("reading block for %q: %w", name, err)
	}
	raw, err := decompressBlock(block, entry.RawLen)
	if err != nil {
		return posting.List{}, false, fmt.Errorf("%w: list %q: %v", apperrors.ErrCorruptSegment, name, err)
	}
	list, err := decodeList(raw)
	if err != nil {
		return posting.List{}, false, fmt.Errorf("%w: list %q: %v", apperrors.ErrCorruptSegment, name, err)
	}
	return list, true, nil
}

// Names returns the list names in the segment, sorted.
func (r *Reader) Names() []string {
	names := make([]string, len(r.dict))
	for i, e := range r.dict {
		names[i] = e.Name
	}
	return names
}

func (r *Reader) Header() Header {
	return r.header
}

func (r *Reader) Path() string {
	return r.filePath
}

func (r *Reader) Close() error {
	return r.file.Close()
}
