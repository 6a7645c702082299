// Package archive rewrites selected modules inside a module archive.
//
// Entries without a route are copied with their compressed bytes and headers
// untouched. Routed entries are patched on a worker pool, then a single writer
// emits every entry in input order, so output is byte-for-byte reproducible
// for a given input and variant.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"suppressible/internal/patch"
	"suppressible/internal/trace"
)

// Transformer patches module archives.
type Transformer struct {
	Routes []Route
	Prefix string // only archives whose base name starts with Prefix are transformed
	Jobs   int    // worker count; <= 0 uses GOMAXPROCS
}

// New returns a Transformer with the default routes and prefix.
func New(t Targets) *Transformer {
	return &Transformer{Routes: DefaultRoutes(t), Prefix: DefaultPrefix}
}

// Result summarises one transform.
type Result struct {
	Output  string
	Entries int
	Patched []string // names of entries whose bytes changed
}

// Select reports whether the archive at path should be transformed at all.
func (t *Transformer) Select(path string) bool {
	return strings.HasPrefix(filepath.Base(path), t.Prefix)
}

func (t *Transformer) edits(name string, v Variant) []patch.Edit {
	var out []patch.Edit
	for _, r := range t.Routes {
		if r.Entry == name && r.appliesTo(v) {
			out = append(out, r.Edits...)
		}
	}
	return out
}

type slot struct {
	data    []byte
	patched bool
}

// Transform writes a patched copy of in to out. The input is never modified.
// Output appears at out only if every routed entry was patched successfully.
func (t *Transformer) Transform(ctx context.Context, in, out string, v Variant) (Result, error) {
	ctx, span := trace.Start(ctx, trace.ScopeArchive, "transform")
	span.WithExtra("archive", filepath.Base(in)).WithExtra("variant", v.String())
	defer span.End("")

	r, err := zip.OpenReader(in)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", in, err)
	}
	defer r.Close()

	slots, err := t.patchEntries(ctx, r.File, v)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", in, err)
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return Result{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(out), ".tmp-*.jar")
	if err != nil {
		return Result{}, err
	}
	published := false
	defer func() {
		if !published {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	res := Result{Output: out, Entries: len(r.File)}
	if err := writeArchive(tmp, r, slots); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", out, err)
	}
	for i, f := range r.File {
		if slots[i].patched {
			res.Patched = append(res.Patched, f.Name)
		}
	}
	if err := tmp.Close(); err != nil {
		return Result{}, err
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return Result{}, err
	}
	published = true
	span.WithExtra("patched", strconv.Itoa(len(res.Patched)))
	return res, nil
}

// patchEntries runs every routed entry through its edits. Results go to
// index-addressed slots, so workers never share state.
func (t *Transformer) patchEntries(ctx context.Context, files []*zip.File, v Variant) ([]slot, error) {
	tr := trace.FromContext(ctx)
	parent := trace.ParentID(ctx)
	slots := make([]slot, len(files))

	jobs := t.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, f := range files {
		edits := t.edits(f.Name, v)
		if len(edits) == 0 {
			continue
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			sp := trace.Begin(tr, trace.ScopeEntry, f.Name, parent)
			data, err := readEntry(f)
			if err != nil {
				sp.End("read failed")
				return fmt.Errorf("entry %s: %w", f.Name, err)
			}
			patched, changed, err := patch.Module(data, edits...)
			if err != nil {
				sp.End("patch failed")
				return fmt.Errorf("entry %s: %w", f.Name, err)
			}
			if changed {
				slots[i] = slot{data: patched, patched: true}
			}
			sp.WithExtra("changed", strconv.FormatBool(changed)).End("")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slots, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// writeArchive emits entries in input order. Untouched entries are copied raw;
// patched entries keep their name, method, timestamp and extra fields while the
// writer recomputes CRC and both sizes.
func writeArchive(dst io.Writer, r *zip.ReadCloser, slots []slot) error {
	w := zip.NewWriter(dst)
	if err := w.SetComment(r.Comment); err != nil {
		return err
	}
	for i, f := range r.File {
		if !slots[i].patched {
			if err := w.Copy(f); err != nil {
				return fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		hdr := f.FileHeader
		// A zero Modified keeps the original DOS time and extra fields as is.
		hdr.Modified = time.Time{}
		hdr.CRC32 = 0
		hdr.CompressedSize64 = 0
		hdr.UncompressedSize64 = uint64(len(slots[i].data))
		fw, err := w.CreateHeader(&hdr)
		if err != nil {
			return fmt.Errorf("create %s: %w", f.Name, err)
		}
		if _, err := fw.Write(slots[i].data); err != nil {
			return fmt.Errorf("write %s: %w", f.Name, err)
		}
	}
	return w.Close()
}
