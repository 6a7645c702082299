package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sort"

	"fortio.org/safecast"
)

// FileSet manages a collection of source files.
type FileSet struct {
	files []File
	index map[string]FileID // path -> latest id
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 0),
		index: make(map[string]FileID),
	}
}

// Add stores a file from normalized bytes, computes LineIdx and Hash, and returns a new FileID.
// It always creates a new FileID even if a file with the same path already exists.
func (fileSet *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	hash := sha256.Sum256(content)
	lineIdx := buildLineIndex(content)
	normalizedPath := normalizePath(path)

	lenFiles, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	id := FileID(lenFiles)
	fileSet.files = append(fileSet.files, File{
		ID:      id,
		Path:    normalizedPath,
		Content: content,
		LineIdx: lineIdx,
		Hash:    hash,
		Flags:   flags,
	})
	fileSet.index[normalizedPath] = id
	return id
}

// Load reads a file from disk, normalizes BOM, encoding and CRLF, and calls Add.
func (fileSet *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if _, err := safecast.Conv[uint32](len(content)); err != nil {
		return 0, fmt.Errorf("%s: file too large: %w", path, err)
	}

	content, flags, err := decodeBOM(content)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	content, breaks := normalizeCRLF(content)
	if len(breaks) > 0 {
		flags |= FileNormalizedCRLF
	}
	id := fileSet.Add(path, content, flags)
	f := &fileSet.files[id]
	f.crlf = breaks
	if flags&FileHadBOM != 0 && flags&FileUTF16 == 0 {
		f.bom = uint32(len(bomUTF8))
	}
	return id, nil
}

// AddVirtual adds a virtual file (stdin, test, or generated) with the FileVirtual flag.
func (fileSet *FileSet) AddVirtual(name string, content []byte) FileID {
	return fileSet.Add(name, content, FileVirtual)
}

// Get returns the file metadata for the given ID.
func (fileSet *FileSet) Get(id FileID) *File {
	return &fileSet.files[id]
}

// Len returns the number of files added so far.
func (fileSet *FileSet) Len() int {
	return len(fileSet.files)
}

// GetLatest returns the latest file ID for the given path, if it exists.
func (fileSet *FileSet) GetLatest(path string) (FileID, bool) {
	id, ok := fileSet.index[normalizePath(path)]
	return id, ok
}

// GetByPath returns the latest *File loaded for path.
func (fileSet *FileSet) GetByPath(path string) (*File, bool) {
	if id, ok := fileSet.index[normalizePath(path)]; ok {
		return &fileSet.files[id], true
	}
	return nil, false
}

// Resolve converts a span into line and column positions.
func (fileSet *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fileSet.files[span.File]
	return toLineCol(f.LineIdx, span.Start), toLineCol(f.LineIdx, span.End)
}

// Encode converts content back to the on-disk form f was read from.
func (f *File) Encode(content []byte) ([]byte, error) {
	return encodeAs(content, f.Flags)
}

// Offset converts a 1-based line and column to a byte offset.
func (f *File) Offset(lc LineCol) (uint32, bool) {
	if lc.Line == 0 || lc.Col == 0 {
		return 0, false
	}
	var start uint32
	if lc.Line > 1 {
		if int(lc.Line-2) >= len(f.LineIdx) {
			return 0, false
		}
		start = f.LineIdx[lc.Line-2] + 1
	}
	off := start + lc.Col - 1
	if int(off) > len(f.Content) {
		return 0, false
	}
	return off, true
}

// FromDisk converts a byte offset into the file as stored on disk to an
// offset into Content. It fails for offsets inside the byte order mark, past
// the end, or in transcoded UTF-16 files, whose byte offsets do not map onto
// UTF-8 content.
func (f *File) FromDisk(off uint32) (uint32, bool) {
	if f.Flags&FileUTF16 != 0 || off < f.bom {
		return 0, false
	}
	off -= f.bom
	// breaks[i]+i+1 is the on-disk offset of the i-th \n.
	n := sort.Search(len(f.crlf), func(i int) bool {
		return f.crlf[i]+uint32(i)+1 > off
	})
	norm := off - uint32(n)
	if int(norm) > len(f.Content) {
		return 0, false
	}
	return norm, true
}

// Position converts a byte offset to a line and column.
func (f *File) Position(off uint32) LineCol {
	return toLineCol(f.LineIdx, off)
}
