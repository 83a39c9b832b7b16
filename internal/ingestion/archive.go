package ingestion

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/jonathan/resume-rag/internal/types"
)

// ArchiveLimits bounds what a single ZIP upload may expand to.
type ArchiveLimits struct {
	MaxEntries    int
	MaxEntryBytes int64
	MaxTotalBytes int64
}

// DefaultArchiveLimits are used when the caller passes a zero value.
var DefaultArchiveLimits = ArchiveLimits{
	MaxEntries:    200,
	MaxEntryBytes: 10 << 20,
	MaxTotalBytes: 100 << 20,
}

// ArchiveEntry is one file extracted from a ZIP upload.
type ArchiveEntry struct {
	Filename string
	Content  []byte
}

// ExpandArchive returns the resume files in a ZIP upload in name order.
// Entries that are directories, hidden, nested archives or of an unknown
// type are reported as skipped rather than failing the upload.
func ExpandArchive(content []byte, limits ArchiveLimits) ([]ArchiveEntry, []types.SkippedFile, error) {
	if limits == (ArchiveLimits{}) {
		limits = DefaultArchiveLimits
	}

	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, nil, types.NewInvalidArgument("file", "not a valid ZIP archive: %v", err)
	}

	files := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || isHiddenEntry(f.Name) {
			continue
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	if len(files) > limits.MaxEntries {
		return nil, nil, types.NewInvalidArgument("file", "archive has %d files, at most %d allowed", len(files), limits.MaxEntries)
	}

	var (
		entries []ArchiveEntry
		skipped []types.SkippedFile
		total   int64
	)
	for _, f := range files {
		name := f.Name
		data, err := readEntry(f, limits.MaxEntryBytes)
		if err != nil {
			skipped = append(skipped, types.SkippedFile{Filename: name, Reason: err.Error()})
			continue
		}
		format, err := DetectFormat(name, data)
		if err != nil {
			skipped = append(skipped, types.SkippedFile{Filename: name, Reason: err.Error()})
			continue
		}
		if format == FormatZIP {
			skipped = append(skipped, types.SkippedFile{Filename: name, Reason: "nested archives are not supported"})
			continue
		}
		total += int64(len(data))
		if total > limits.MaxTotalBytes {
			return nil, nil, types.NewInvalidArgument("file", "archive expands beyond %d bytes", limits.MaxTotalBytes)
		}
		entries = append(entries, ArchiveEntry{Filename: name, Content: data})
	}
	return entries, skipped, nil
}

// readEntry reads at most limit bytes, failing rather than truncating. The
// declared size is not trusted.
func readEntry(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry: %w", err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read entry: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("entry exceeds %d bytes", limit)
	}
	return data, nil
}

func isHiddenEntry(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	return strings.HasPrefix(path.Base(name), ".")
}
