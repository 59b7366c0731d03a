package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/internal/watcher"
)

// maxLineSize bounds one JSON Lines record.
const maxLineSize = 16 << 20

// Record is one raw document read from a file.
type Record struct {
	// Path is the file the record came from.
	Path string
	// Line is the 1-based line of a JSON Lines record, or the 1-based
	// position within a JSON array.
	Line int
	Data json.RawMessage
}

// Scan lists the document files under root in lexical order, skipping
// hidden files and directories and paths excluded by opts.Ignore.
func Scan(root string, opts watcher.Options) ([]string, error) {
	opts = opts.WithDefaults()
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.StorageError("cannot read document directory", err).WithDetail("path", root)
	}
	if !info.IsDir() {
		if !opts.Accepts(filepath.Base(root)) {
			return nil, errors.InvalidArgument("%s is not a document file", root)
		}
		return []string{root}, nil
	}

	var files []string
	err = opts.Walk(root, func(rel string, _ fs.DirEntry) error {
		files = append(files, filepath.Join(root, rel))
		return nil
	})
	if err != nil {
		return nil, errors.StorageError("failed to scan document directory", err).WithDetail("path", root)
	}
	return files, nil
}

// ReadFile reads every record of a document file.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.StorageError("cannot open document file", err).WithDetail("path", path)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return readLines(path, f)
	default:
		return readJSON(path, f)
	}
}

func readLines(path string, r io.Reader) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)

	var records []Record
	line := 0
	for sc.Scan() {
		line++
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 {
			continue
		}
		records = append(records, Record{Path: path, Line: line, Data: bytes.Clone(data)})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.StorageError("failed to read document file", err).WithDetail("path", path)
	}
	return records, nil
}

func readJSON(path string, r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.StorageError("failed to read document file", err).WithDetail("path", path)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] != '[' {
		return []Record{{Path: path, Line: 1, Data: data}}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.New(errors.ErrCodeDocumentParse, "document file is not a JSON array", err).WithDetail("path", path)
	}
	records := make([]Record, len(items))
	for i, item := range items {
		records[i] = Record{Path: path, Line: i + 1, Data: item}
	}
	return records, nil
}
