// Package loader reads posting lists from text files. Each line holds an id
// and a score separated by any run of non-word characters ("10 1", "10\t1",
// "10,1"). Files ending in .gz are decompressed on the fly.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/posting"
	apperrors "github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/errors"
)

// LineError reports a line that could not be parsed.
type LineError struct {
	File string
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	src := e.File
	if src == "" {
		src = "input"
	}
	return fmt.Sprintf("%s:%d: %q: %v", src, e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error {
	return apperrors.ErrMalformedLine
}

// ReadFile loads a posting list from path and replicates it numRepeats times
// with the given id offset.
func ReadFile(path string, numRepeats, offset int) (posting.List, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return posting.List{}, fmt.Errorf("%w: %s", apperrors.ErrFileNotFound, path)
		}
		return posting.List{}, fmt.Errorf("opening posting list %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return posting.List{}, fmt.Errorf("opening gzip stream %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	list, err := read(r, path, numRepeats, offset)
	if err != nil {
		return posting.List{}, err
	}
	slog.Debug("posting list loaded", "path", path, "size", list.Len(), "repeats", numRepeats)
	return list, nil
}

// Read parses a posting list from r.
func Read(r io.Reader, numRepeats, offset int) (posting.List, error) {
	return read(r, "", numRepeats, offset)
}

func read(r io.Reader, name string, numRepeats, offset int) (posting.List, error) {
	var ids, scores []int
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, score, err := parseLine(line)
		if err != nil {
			return posting.List{}, &LineError{File: name, Line: lineNo, Text: line, Err: err}
		}
		ids = append(ids, id)
		scores = append(scores, score)
	}
	if err := scanner.Err(); err != nil {
		return posting.List{}, fmt.Errorf("reading posting list %s: %w", name, err)
	}
	return posting.NewRepeated(ids, scores, numRepeats, offset), nil
}

func parseLine(line string) (int, int, error) {
	parts := fields(line)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("expected id and score, got %d field(s)", len(parts))
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parsing id: %w", err)
	}
	score, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parsing score: %w", err)
	}
	return id, score, nil
}

// fields splits line on runs of separators. A '-' that opens a field and is
// followed by a digit is kept as the sign of that field.
func fields(line string) []string {
	var parts []string
	start := -1
	for i, r := range line {
		if !isSeparator(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			parts = append(parts, line[start:i])
			start = -1
			continue
		}
		if r == '-' && i+1 < len(line) && line[i+1] >= '0' && line[i+1] <= '9' {
			start = i
		}
	}
	if start >= 0 {
		parts = append(parts, line[start:])
	}
	return parts
}

// isSeparator matches the complement of [A-Za-z0-9_].
func isSeparator(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return false
	}
	return true
}

// WriteFile stores list in the text format, gzip-compressed when path ends
// in .gz.
func WriteFile(path string, list posting.List) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}
	if err := Write(w, list); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("closing gzip stream %s: %w", path, err)
		}
	}
	return f.Close()
}

// Write emits one "id\tscore" line per posting.
func Write(w io.Writer, list posting.List) error {
	bw := bufio.NewWriter(w)
	for i, id := range list.IDs {
		bw.WriteString(strconv.Itoa(id))
		bw.WriteByte('\t')
		bw.WriteString(strconv.Itoa(list.Scores[i]))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
