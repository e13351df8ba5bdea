package mmdp

import (
	"os"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

const arrowBatchRows = 1 << 16

var (
	pairFields = []arrow.Field{
		{Name: "i", Type: arrow.PrimitiveTypes.Int32},
		{Name: "j", Type: arrow.PrimitiveTypes.Int32},
		{Name: "d", Type: arrow.PrimitiveTypes.Float64},
	}
	weightFields = []arrow.Field{
		{Name: "node", Type: arrow.PrimitiveTypes.Int32},
		{Name: "w", Type: arrow.PrimitiveTypes.Float64},
	}
)

func (w *Writer) arrowMetadata(n, trial int) arrow.Metadata {
	return arrow.NewMetadata(
		[]string{"variant", "n", "trial"},
		[]string{w.Variant.String(), strconv.Itoa(n), strconv.Itoa(trial)},
	)
}

// writeArrow stores the pairs of inst as an Arrow IPC file with columns
// (i, j, d), 1-based like the text layout. Weights, when the layout has them,
// go to a sibling ".weights.arrow" file.
func (w *Writer) writeArrow(inst *Instance, trial int) (WriteResult, error) {
	var res WriteResult
	res.Path = w.Path(inst.N, trial)
	md := w.arrowMetadata(inst.N, trial)

	schema := arrow.NewSchema(pairFields, &md)
	digest, bytes, err := writeArrowFile(res.Path, schema, func(b *array.RecordBuilder, flush func() error) error {
		is := b.Field(0).(*array.Int32Builder)
		js := b.Field(1).(*array.Int32Builder)
		ds := b.Field(2).(*array.Float64Builder)
		var ferr error
		inst.Pairs(func(i, j int, d float64) bool {
			is.Append(int32(i + 1))
			js.Append(int32(j + 1))
			ds.Append(d)
			if is.Len() == arrowBatchRows {
				ferr = flush()
			}
			return ferr == nil
		})
		return ferr
	})
	if err != nil {
		return res, err
	}
	res.SHA256 = digest
	res.Bytes = bytes
	res.Lines = inst.NumPairs()

	if _, weights := w.headerLines(); !weights || !inst.Weighted() {
		return res, nil
	}
	res.WeightsPath = strings.TrimSuffix(res.Path, ".arrow") + ".weights.arrow"
	schema = arrow.NewSchema(weightFields, &md)
	_, bytes, err = writeArrowFile(res.WeightsPath, schema, func(b *array.RecordBuilder, flush func() error) error {
		nodes := b.Field(0).(*array.Int32Builder)
		ws := b.Field(1).(*array.Float64Builder)
		for i := range inst.N {
			nodes.Append(int32(i + 1))
			ws.Append(inst.Weight(i))
			if nodes.Len() == arrowBatchRows {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	res.Bytes += bytes
	res.Lines += inst.N
	return res, nil
}

func writeArrowFile(path string, schema *arrow.Schema, fill func(*array.RecordBuilder, func() error) error) (digest string, size int64, err error) {
	f, err := os.Create(path)
	if err != nil {
		return "", 0, &WriteFailureError{Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &WriteFailureError{Path: path, Err: cerr}
		}
	}()

	mem := memory.NewGoAllocator()
	dw := newDigestWriter(f)
	iw, err := ipc.NewFileWriter(dw, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return "", 0, &WriteFailureError{Path: path, Err: err}
	}

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	flush := func() error {
		rec := b.NewRecord()
		defer rec.Release()
		return iw.Write(rec)
	}
	if err := fill(b, flush); err != nil {
		iw.Close()
		return "", 0, &WriteFailureError{Path: path, Err: err}
	}
	if b.Field(0).Len() > 0 {
		if err := flush(); err != nil {
			iw.Close()
			return "", 0, &WriteFailureError{Path: path, Err: err}
		}
	}
	if err := iw.Close(); err != nil {
		return "", 0, &WriteFailureError{Path: path, Err: err}
	}
	return dw.Sum(), dw.n, nil
}

// ReadArrowPairs loads the (i, j, d) columns of an Arrow instance file into an
// instance of size n.
func ReadArrowPairs(r ipc.ReadAtSeeker, n int) (*Instance, error) {
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	inst := NewInstance(n, false)
	for k := 0; k < fr.NumRecords(); k++ {
		rec, err := fr.Record(k)
		if err != nil {
			return nil, err
		}
		is := rec.Column(0).(*array.Int32)
		js := rec.Column(1).(*array.Int32)
		ds := rec.Column(2).(*array.Float64)
		for row := 0; row < int(rec.NumRows()); row++ {
			i, j := int(is.Value(row))-1, int(js.Value(row))-1
			if i < 0 || j < 0 || i >= n || j >= n || i == j {
				return nil, invalidInput("pair", [2]int{i + 1, j + 1}, "index out of range")
			}
			inst.D.SetSym(i, j, ds.Value(row))
		}
	}
	return inst, nil
}
