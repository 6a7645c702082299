package source

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadNormalizesAndEncodeRestores(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name  string
		raw   []byte
		flags FileFlags
	}{
		{"plain", []byte("class A {}\n"), 0},
		{"crlf", []byte("class A {\r\n}\r\n"), FileNormalizedCRLF},
		{"mixed", []byte("class A {\r\n    int x;\n}\n"), 0},
		{"bom", append([]byte{0xEF, 0xBB, 0xBF}, "class A {}\n"...), FileHadBOM},
		{"utf16le", []byte{0xFF, 0xFE, 'c', 0, '\n', 0}, FileHadBOM | FileUTF16},
		{"utf16be", []byte{0xFE, 0xFF, 0, 'c', 0, '\r', 0, '\n'}, FileHadBOM | FileUTF16 | FileBigEndian | FileNormalizedCRLF},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".java")
			if err := os.WriteFile(path, tc.raw, 0o644); err != nil {
				t.Fatal(err)
			}
			fs := NewFileSet()
			id, err := fs.Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			f := fs.Get(id)
			if f.Flags != tc.flags {
				t.Fatalf("flags = %b, want %b", f.Flags, tc.flags)
			}
			if (tc.flags&FileNormalizedCRLF != 0 && bytes.Contains(f.Content, []byte("\r\n"))) || bytes.HasPrefix(f.Content, []byte{0xEF}) {
				t.Fatalf("content not normalized: %q", f.Content)
			}
			back, err := f.Encode(f.Content)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(back, tc.raw) {
				t.Fatalf("Encode = % x, want % x", back, tc.raw)
			}
		})
	}
}

func TestResolveAndOffset(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("A.java", []byte("ab\ncd\n\nx"))
	f := fs.Get(id)

	cases := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 1}},
		{2, LineCol{1, 3}},
		{3, LineCol{2, 1}},
		{6, LineCol{3, 1}},
		{7, LineCol{4, 1}},
	}
	for _, tc := range cases {
		start, _ := fs.Resolve(Span{File: id, Start: tc.off, End: tc.off})
		if start != tc.want {
			t.Errorf("Resolve(%d) = %+v, want %+v", tc.off, start, tc.want)
		}
		if off, ok := f.Offset(tc.want); !ok || off != tc.off {
			t.Errorf("Offset(%+v) = %d, %v; want %d", tc.want, off, ok, tc.off)
		}
	}
	if _, ok := f.Offset(LineCol{9, 1}); ok {
		t.Error("Offset past the last line succeeded")
	}
}

func TestGetLatestTracksReloads(t *testing.T) {
	fs := NewFileSet()
	first := fs.AddVirtual("./src/A.java", []byte("a"))
	second := fs.AddVirtual("src/A.java", []byte("b"))
	if first == second {
		t.Fatal("Add reused an id")
	}
	got, ok := fs.GetLatest("src//A.java")
	if !ok || got != second {
		t.Fatalf("GetLatest = %d, %v; want %d", got, ok, second)
	}
}

func TestSpanCoverContains(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 8}
	b := Span{File: 1, Start: 2, End: 5}
	if got := a.Cover(b); got != (Span{File: 1, Start: 2, End: 8}) {
		t.Errorf("Cover = %v", got)
	}
	if !a.Contains(Span{File: 1, Start: 5, End: 8}) || a.Contains(b) {
		t.Error("Contains wrong")
	}
	if got := a.Cover(Span{File: 2, Start: 0, End: 100}); got != a {
		t.Errorf("Cover across files = %v", got)
	}
}

func TestFromDiskMapsRawOffsets(t *testing.T) {
	dir := t.TempDir()
	raw := append([]byte{0xEF, 0xBB, 0xBF}, "ab\r\ncd\r\n\r\nx"...)
	path := filepath.Join(dir, "A.java")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	f := fs.Get(id)
	if string(f.Content) != "ab\ncd\n\nx" {
		t.Fatalf("content = %q", f.Content)
	}

	cases := []struct {
		disk uint32
		want uint32
	}{
		{3, 0},  // a
		{5, 2},  // \r of the first break
		{6, 2},  // its \n
		{7, 3},  // c
		{11, 6}, // \r of the empty line
		{13, 7}, // x
		{14, 8}, // end of file
	}
	for _, tc := range cases {
		got, ok := f.FromDisk(tc.disk)
		if !ok || got != tc.want {
			t.Errorf("FromDisk(%d) = %d, %v; want %d", tc.disk, got, ok, tc.want)
		}
		if ok && got < uint32(len(f.Content)) && f.Content[got] != raw[tc.disk] && raw[tc.disk] != '\r' {
			t.Errorf("FromDisk(%d) points at %q, disk has %q", tc.disk, f.Content[got], raw[tc.disk])
		}
	}
	for _, off := range []uint32{1, 15} {
		if _, ok := f.FromDisk(off); ok {
			t.Errorf("FromDisk(%d) should fail", off)
		}
	}
}
