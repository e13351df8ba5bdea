package mmdp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Pair is an unordered node pair with 1-based indices, I < J.
type Pair struct {
	I, J int
}

type ReadResult struct {
	Instance *Instance
	// HeaderN is the value of the size line, 0 when the file has none.
	HeaderN int
	Lines   int
	// Duplicates lists pairs that occur more than once, in order of their
	// second occurrence. Files written in append mode repeat every pair.
	Duplicates []Pair
}

type pairLine struct {
	Pair
	d float64
}

type weightLine struct {
	node int
	w    float64
}

type parsedFile struct {
	headerN int
	lines   int
	pairs   []pairLine
	weights []weightLine
	maxNode int
}

func errorCoalesce(args ...error) error {
	for _, e := range args {
		if e != nil {
			return e
		}
	}
	return nil
}

// DefaultReadLimit caps the matrix a file may declare when no memory limit is
// given to the reader.
const DefaultReadLimit = 2 << 30

type readOptions struct {
	memoryLimit uint64
}

type ReadOption func(*readOptions)

// WithMemoryLimit sets the largest instance buffer the reader allocates. Zero
// only rejects sizes whose buffer cannot be addressed at all.
func WithMemoryLimit(limit uint64) ReadOption {
	return func(o *readOptions) {
		o.memoryLimit = limit
	}
}

// ReadInstance loads any of the three text layouts. Lines are told apart by
// their number of fields: "n", "node weight" or "i j d".
func ReadInstance(filename string, opts ...ReadOption) (*ReadResult, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParseInstance(file, opts...)
}

func ParseInstance(r io.Reader, opts ...ReadOption) (*ReadResult, error) {
	o := readOptions{memoryLimit: DefaultReadLimit}
	for _, opt := range opts {
		opt(&o)
	}
	p := new(parsedFile)
	res := new(ReadResult)
	err := errorCoalesce(
		p.scan(bufio.NewScanner(r)),
		p.checkBounds(),
		p.checkSize(o.memoryLimit),
	)
	if err != nil {
		return nil, err
	}
	res.HeaderN = p.headerN
	res.Lines = p.lines
	res.Instance, res.Duplicates = p.build()
	return res, nil
}

func (p *parsedFile) scan(scanner *bufio.Scanner) error {
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		p.lines++
		var err error
		switch len(fields) {
		case 1:
			err = p.parseSizeLine(fields)
		case 2:
			err = p.parseWeightLine(fields)
		case 3:
			err = p.parsePairLine(fields)
		default:
			err = fmt.Errorf("expected 1 to 3 fields, got %d", len(fields))
		}
		if err != nil {
			return fmt.Errorf("parsing line %d: %w", lineNo, err)
		}
	}
	return scanner.Err()
}

func (p *parsedFile) parseSizeLine(fields []string) error {
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return err
	}
	if n < 0 || (p.headerN != 0 && n != p.headerN) {
		return fmt.Errorf("unexpected size line %d", n)
	}
	p.headerN = n
	return nil
}

func (p *parsedFile) parseWeightLine(fields []string) error {
	node, err := strconv.Atoi(fields[0])
	if err != nil {
		return err
	}
	w, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return err
	}
	if node < 1 {
		return fmt.Errorf("node index %d out of range", node)
	}
	p.weights = append(p.weights, weightLine{node: node, w: w})
	p.maxNode = max(p.maxNode, node)
	return nil
}

func (p *parsedFile) parsePairLine(fields []string) error {
	i, err := strconv.Atoi(fields[0])
	if err != nil {
		return err
	}
	j, err := strconv.Atoi(fields[1])
	if err != nil {
		return err
	}
	d, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return err
	}
	if i < 1 || j < 1 || i == j {
		return fmt.Errorf("invalid pair (%d, %d)", i, j)
	}
	if i > j {
		i, j = j, i
	}
	p.pairs = append(p.pairs, pairLine{Pair: Pair{I: i, J: j}, d: d})
	p.maxNode = max(p.maxNode, j)
	return nil
}

func (p *parsedFile) checkBounds() error {
	if p.headerN != 0 && p.maxNode > p.headerN {
		return fmt.Errorf("node %d exceeds declared size %d", p.maxNode, p.headerN)
	}
	return nil
}

// checkSize fails before allocation when the size implied by the file needs
// more than limit bytes.
func (p *parsedFile) checkSize(limit uint64) error {
	n := max(p.headerN, p.maxNode)
	required := EstimateBytes(n, len(p.weights) > 0)
	if required == math.MaxUint64 || (limit > 0 && required > limit) {
		return &ResourceLimitError{N: n, Workers: 1, Required: required, Limit: limit}
	}
	return nil
}

func (p *parsedFile) build() (*Instance, []Pair) {
	n := max(p.headerN, p.maxNode)
	inst := NewInstance(n, len(p.weights) > 0)
	for _, wl := range p.weights {
		inst.W.SetVec(wl.node-1, wl.w)
	}

	seen := mapset.NewThreadUnsafeSet[Pair]()
	var dups []Pair
	for _, pl := range p.pairs {
		if seen.Contains(pl.Pair) {
			dups = append(dups, pl.Pair)
		}
		seen.Add(pl.Pair)
		inst.D.SetSym(pl.I-1, pl.J-1, pl.d)
	}
	return inst, dups
}
