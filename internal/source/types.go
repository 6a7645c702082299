package source

type (
	// FileID uniquely identifies a source file within a FileSet.
	FileID uint32
	// FileFlags encodes how a file was read.
	FileFlags uint8
)

const (
	// FileVirtual indicates the file was added from memory (test, stdin, etc.).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
	// FileUTF16 marks content transcoded from UTF-16 (big or little endian,
	// see FileBigEndian) to UTF-8.
	FileUTF16
	FileBigEndian
)

// File captures metadata and content for a single source file.
// Content is always UTF-8. Line endings are LF unless the file mixed LF and
// CRLF, in which case they are kept as read.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags

	// crlf holds the Content offsets of line breaks that were \r\n on disk.
	crlf []uint32
	bom  uint32
}

// LineCol represents a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}
