package source

import (
	"bytes"
	"path/filepath"
	"slices"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

// normalizeCRLF replaces every \r\n with \n when all line breaks are \r\n
// and returns the normalized offset of each replaced break. Files with mixed
// endings come back unchanged so that Encode never touches lines nobody
// edited. Lone \r is left alone.
func normalizeCRLF(content []byte) ([]byte, []uint32) {
	if !slices.Contains(content, '\r') {
		return content, nil
	}
	for i, b := range content {
		if b == '\n' && (i == 0 || content[i-1] != '\r') {
			return content, nil
		}
	}

	out := make([]byte, 0, len(content))
	var breaks []uint32
	i := 0
	for i < len(content) {
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			breaks = append(breaks, uint32(len(out)))
			out = append(out, '\n')
			i += 2
		} else {
			out = append(out, content[i])
			i++
		}
	}
	return out, breaks
}

func restoreCRLF(content []byte) []byte {
	return bytes.ReplaceAll(content, []byte("\n"), []byte("\r\n"))
}

// decodeBOM strips a byte order mark. UTF-16 input is transcoded to UTF-8.
func decodeBOM(content []byte) ([]byte, FileFlags, error) {
	switch {
	case bytes.HasPrefix(content, bomUTF8):
		return content[len(bomUTF8):], FileHadBOM, nil
	case bytes.HasPrefix(content, bomUTF16BE), bytes.HasPrefix(content, bomUTF16LE):
		flags := FileHadBOM | FileUTF16
		if bytes.HasPrefix(content, bomUTF16BE) {
			flags |= FileBigEndian
		}
		dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		out, _, err := transform.Bytes(dec, content)
		if err != nil {
			return nil, 0, err
		}
		return out, flags, nil
	}
	return content, 0, nil
}

// encodeAs converts UTF-8 LF content back to the encoding and line endings
// recorded in flags.
func encodeAs(content []byte, flags FileFlags) ([]byte, error) {
	if flags&FileNormalizedCRLF != 0 {
		content = restoreCRLF(content)
	}
	if flags&FileUTF16 != 0 {
		order := unicode.LittleEndian
		if flags&FileBigEndian != 0 {
			order = unicode.BigEndian
		}
		out, _, err := transform.Bytes(unicode.UTF16(order, unicode.UseBOM).NewEncoder(), content)
		return out, err
	}
	if flags&FileHadBOM != 0 {
		return append(append([]byte(nil), bomUTF8...), content...), nil
	}
	return content, nil
}

func buildLineIndex(content []byte) []uint32 {
	out := make([]uint32, 0, len(content)/32)
	for i, b := range content {
		if b == '\n' {
			out = append(out, uint32(i))
		}
	}
	return out
}

func toLineCol(lineIdx []uint32, off uint32) LineCol {
	if len(lineIdx) == 0 {
		return LineCol{Line: 1, Col: off + 1}
	}

	// largest i with lineIdx[i] < off
	lo, hi := 0, len(lineIdx)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		if lineIdx[mid] < off {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	line := hi + 1 // 0-based line containing off

	var startOff uint32
	if line > 0 {
		startOff = lineIdx[line-1] + 1
	}
	return LineCol{Line: uint32(line + 1), Col: off - startOff + 1}
}

func normalizePath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
