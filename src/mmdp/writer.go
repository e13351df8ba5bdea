package mmdp

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
)

// WriteResult describes one written instance file.
type WriteResult struct {
	Path        string
	WeightsPath string // arrow format only
	Lines       int
	Bytes       int64
	SHA256      string
}

// Writer serialises instances of one variant into Dir.
type Writer struct {
	Dir          string
	Variant      Variant
	Mode         WriteMode
	Format       Format
	PrintN       bool
	PrintWeights bool
}

func NewWriter(cfg *GenerationConfig) *Writer {
	return &Writer{
		Dir:          cfg.OutDir,
		Variant:      cfg.Variant,
		Mode:         cfg.Mode,
		Format:       cfg.Format,
		PrintN:       cfg.PrintN,
		PrintWeights: cfg.PrintWeights,
	}
}

// Path returns where trial t of an instance of size n is written.
func (w *Writer) Path(n, trial int) string {
	name := w.Variant.FileName(n, trial)
	if w.Format == FormatArrow {
		name = name[:len(name)-len(filepath.Ext(name))] + ".arrow"
	}
	return filepath.Join(w.Dir, name)
}

// headerLines reports whether the size line and the weight block are written.
func (w *Writer) headerLines() (size, weights bool) {
	switch layouts[w.Variant].header {
	case headerAlways:
		return true, true
	case headerOptional:
		return w.PrintN, w.PrintWeights
	}
	return false, false
}

// Write stores inst as trial t and returns what was written.
func (w *Writer) Write(inst *Instance, trial int) (WriteResult, error) {
	if w.Format == FormatArrow {
		return w.writeArrow(inst, trial)
	}
	return w.writeText(inst, trial)
}

func (w *Writer) openFlags() int {
	if w.Mode == Append {
		return os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	return os.O_CREATE | os.O_WRONLY | os.O_TRUNC
}

func (w *Writer) writeText(inst *Instance, trial int) (res WriteResult, err error) {
	res.Path = w.Path(inst.N, trial)
	f, err := os.OpenFile(res.Path, w.openFlags(), 0644)
	if err != nil {
		return res, &WriteFailureError{Path: res.Path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &WriteFailureError{Path: res.Path, Err: cerr}
		}
	}()

	cw := newDigestWriter(f)
	lines, err := w.encodeText(cw, inst)
	if err != nil {
		return res, &WriteFailureError{Path: res.Path, Err: err}
	}
	res.Lines = lines
	res.Bytes = cw.n
	res.SHA256 = cw.Sum()
	return res, nil
}

// encodeText writes the line-oriented layout of the variant to out.
func (w *Writer) encodeText(out io.Writer, inst *Instance) (int, error) {
	bw := bufio.NewWriterSize(out, 1<<16)
	lines := 0
	size, weights := w.headerLines()
	if size {
		fmt.Fprintf(bw, sizeLineFormat, inst.N)
		lines++
	}
	if weights && inst.Weighted() {
		for i := range inst.N {
			fmt.Fprintf(bw, weightLineFormat, i+1, inst.Weight(i))
		}
		lines += inst.N
	}
	pairFormat := layouts[w.Variant].pairFormat
	inst.Pairs(func(i, j int, d float64) bool {
		fmt.Fprintf(bw, pairFormat, i+1, j+1, d)
		return true
	})
	lines += inst.NumPairs()
	return lines, bw.Flush()
}

type digestWriter struct {
	w io.Writer
	h hash.Hash
	n int64
}

func newDigestWriter(w io.Writer) *digestWriter {
	return &digestWriter{w: w, h: sha256.New()}
}

func (d *digestWriter) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	d.h.Write(p[:n])
	d.n += int64(n)
	return n, err
}

// Seek only reports the current offset. Moving it would leave bytes out of
// the digest.
func (d *digestWriter) Seek(offset int64, whence int) (int64, error) {
	if offset != 0 || whence != io.SeekCurrent {
		return 0, errors.New("digest writer: only the current offset can be queried")
	}
	if s, ok := d.w.(io.Seeker); ok {
		return s.Seek(0, io.SeekCurrent)
	}
	return d.n, nil
}

func (d *digestWriter) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}
