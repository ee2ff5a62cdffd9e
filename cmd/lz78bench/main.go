// Command lz78bench compares the lz78 codec against klauspost/compress's
// flate and ulikunitz/xz on compression ratio, encode rate, and decode
// rate, adapted from the teacher's internal/tool/bench command-line
// driver (internal/tool/bench/main.go) but narrowed to the one format
// this repository implements.
//
// Example usage:
//	$ go run ./cmd/lz78bench -tests ratio,encRate -sizes 1e4,1e5,1e6
package main

import (
	"flag"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dsnet/golib/strconv"

	"github.com/dsnet/lz78/internal/lz78bench"
	"github.com/dsnet/lz78/internal/testutil"
)

const (
	defaultCodecs = "lz78,flate,xz"
	defaultTests  = "ratio,encRate,decRate"
	defaultSizes  = "1e4,1e5,1e6"
)

// encRefs picks which codec's output to feed every decoder under test,
// in priority order, the same role the teacher's encRefs slice plays.
var encRefs = []string{"lz78", "flate", "xz"}

func main() {
	f1 := flag.String("codecs", defaultCodecs, "comma-separated list of codecs to benchmark")
	f2 := flag.String("tests", defaultTests, "comma-separated list of: ratio,encRate,decRate")
	f3 := flag.String("sizes", defaultSizes, "comma-separated list of input sizes (K/M suffixes allowed)")
	f4 := flag.Uint("dict", 0, "dictionary size passed to the lz78 encoder (0 means the default)")
	flag.Parse()

	sep := regexp.MustCompile("[,:]")
	codecs := sep.Split(*f1, -1)
	var tests []string
	for _, s := range sep.Split(*f2, -1) {
		switch s {
		case "ratio", "encRate", "decRate":
			tests = append(tests, s)
		default:
			panic("invalid test: " + s)
		}
	}
	var sizes []int
	for _, s := range sep.Split(*f3, -1) {
		n, err := strconv.ParsePrefix(s, strconv.AutoParse)
		if err != nil {
			panic("invalid size: " + s)
		}
		sizes = append(sizes, int(n))
	}

	rnd := testutil.NewRand(0)
	inputs := make([][]byte, len(sizes))
	names := make([]string, len(sizes))
	for i, n := range sizes {
		inputs[i] = generate(rnd, n)
		names[i] = formatSize(n)
	}

	ts := time.Now()
	for _, test := range tests {
		fmt.Printf("BENCHMARK: %s\n", test)
		var results [][]lz78bench.Result
		var cols []string
		var suffix string
		switch test {
		case "ratio":
			cols = intersectEncoders(codecs)
			results = lz78bench.BenchmarkRatioSuite(cols, inputs, int(*f4), nil)
			suffix = "x"
		case "encRate":
			cols = intersectEncoders(codecs)
			results = lz78bench.BenchmarkEncoderSuite(cols, inputs, int(*f4), nil)
			suffix = "MB/s"
		case "decRate":
			cols = intersectDecoders(codecs)
			ref := referenceEncoder(cols)
			results = lz78bench.BenchmarkDecoderSuite(cols, inputs, int(*f4), ref, nil)
			suffix = "MB/s"
		}
		printResults(results, names, cols, suffix)
		fmt.Println()
	}
	fmt.Printf("RUNTIME: %v\n", time.Since(ts))
}

// generate produces a pseudo-random but partially repetitive payload of n
// bytes: half of it is random (exercises the incompressible path), half is
// a short repeated pattern (exercises the compressible path), matching the
// spirit of the teacher's twain.txt-style corpus without depending on a
// checked-in test corpus.
func generate(rnd *testutil.Rand, n int) []byte {
	if n <= 0 {
		return nil
	}
	out := make([]byte, 0, n)
	out = append(out, rnd.Bytes(n/2)...)
	pattern := rnd.Bytes(64)
	for len(out) < n {
		out = append(out, pattern...)
	}
	return out[:n]
}

func formatSize(n int) string {
	return strconv.FormatPrefix(float64(n), strconv.Base1024, 2)
}

func intersectEncoders(want []string) []string {
	var out []string
	for _, c := range want {
		if _, ok := lz78bench.Encoders[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

func intersectDecoders(want []string) []string {
	var out []string
	for _, c := range want {
		if _, ok := lz78bench.Decoders[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

func referenceEncoder(codecs []string) lz78bench.Encoder {
	for _, c := range encRefs {
		if enc, ok := lz78bench.Encoders[c]; ok {
			return enc
		}
	}
	for _, c := range codecs {
		if enc, ok := lz78bench.Encoders[c]; ok {
			return enc
		}
	}
	return nil
}

func printResults(results [][]lz78bench.Result, names, codecs []string, suffix string) {
	for i, row := range results {
		name := "result"
		if i < len(names) {
			name = names[i]
		}
		var cells []string
		for j, c := range codecs {
			cells = append(cells, fmt.Sprintf("%s=%.3f%s (%.2fx)", c, row[j].R, suffix, row[j].D))
		}
		fmt.Printf("\t%-12s %s\n", name, strings.Join(cells, "  "))
	}
}
