// Package lz78bench compares the performance of the lz78 codec against
// other compression implementations with respect to encode speed, decode
// speed, and compression ratio. It is adapted from the teacher library's
// internal/tool/bench package, narrowed from that package's four-format,
// multi-codec comparison matrix down to a single format (this repo only
// implements one), with the level parameter repurposed as a dictionary
// size knob for lz78's own encoder.
package lz78bench

import (
	"bufio"
	"bytes"
	"io"
	"io/ioutil"
	"runtime"
	"testing"
)

// Encoder constructs a fresh compressing io.WriteCloser around w. The
// integer argument is level for klauspost/compress/flate, ignored by
// xz, and a dictionary size (DictSizeDefault when zero) for lz78.
type Encoder func(w io.Writer, param int) io.WriteCloser

// Decoder constructs a fresh decompressing io.ReadCloser around r.
type Decoder func(r io.Reader) io.ReadCloser

var (
	Encoders = make(map[string]Encoder)
	Decoders = make(map[string]Decoder)
)

// RegisterEncoder adds enc to the set of encoders the benchmark suite can
// exercise under name.
func RegisterEncoder(name string, enc Encoder) { Encoders[name] = enc }

// RegisterDecoder adds dec to the set of decoders the benchmark suite can
// exercise under name.
func RegisterDecoder(name string, dec Decoder) { Decoders[name] = dec }

// Result reports one benchmark measurement: a rate in MB/s or a
// compression ratio (R), and its value relative to the first codec in the
// suite (D), mirroring the teacher's own Result shape.
type Result struct {
	R float64
	D float64
}

// BenchmarkEncoder benchmarks a single encoder on input and reports the
// raw testing.BenchmarkResult.
func BenchmarkEncoder(input []byte, enc Encoder, param int) testing.BenchmarkResult {
	return testing.Benchmark(func(b *testing.B) {
		b.StopTimer()
		if enc == nil {
			b.Fatalf("unexpected error: nil Encoder")
		}
		runtime.GC()
		b.StartTimer()
		for i := 0; i < b.N; i++ {
			wr := enc(ioutil.Discard, param)
			_, err := io.Copy(wr, bytes.NewReader(input))
			if cerr := wr.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				b.Fatalf("unexpected error: %v", err)
			}
			b.SetBytes(int64(len(input)))
		}
	})
}

// BenchmarkDecoder benchmarks a single decoder on pre-compressed input and
// reports the raw testing.BenchmarkResult.
func BenchmarkDecoder(input []byte, dec Decoder) testing.BenchmarkResult {
	return testing.Benchmark(func(b *testing.B) {
		b.StopTimer()
		if dec == nil {
			b.Fatalf("unexpected error: nil Decoder")
		}
		runtime.GC()
		b.StartTimer()
		for i := 0; i < b.N; i++ {
			rd := dec(bufio.NewReader(bytes.NewReader(input)))
			cnt, err := io.Copy(ioutil.Discard, rd)
			if cerr := rd.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				b.Fatalf("unexpected error: %v", err)
			}
			b.SetBytes(cnt)
		}
	})
}

type benchFunc func(input []byte, codec string, param int) Result

// BenchmarkEncoderSuite runs BenchmarkEncoder across codecs and inputs,
// reporting one Result row per input and one column per codec.
func BenchmarkEncoderSuite(codecs []string, inputs [][]byte, param int, tick func()) [][]Result {
	return benchmarkSuite(codecs, inputs, tick, func(input []byte, c string, p int) Result {
		res := BenchmarkEncoder(input, Encoders[c], p)
		if res.N == 0 {
			return Result{}
		}
		us := (float64(res.T.Nanoseconds()) / 1e3) / float64(res.N)
		return Result{R: float64(res.Bytes) / us}
	}, param)
}

// BenchmarkDecoderSuite runs BenchmarkDecoder across codecs and inputs.
// ref encodes each input once so every decoder under test decompresses
// the exact same bytes.
func BenchmarkDecoderSuite(codecs []string, inputs [][]byte, param int, ref Encoder, tick func()) [][]Result {
	return benchmarkSuite(codecs, inputs, tick, func(input []byte, c string, p int) Result {
		buf := new(bytes.Buffer)
		wr := ref(buf, p)
		if _, err := io.Copy(wr, bytes.NewReader(input)); err != nil {
			return Result{}
		}
		if wr.Close() != nil {
			return Result{}
		}
		res := BenchmarkDecoder(buf.Bytes(), Decoders[c])
		if res.N == 0 {
			return Result{}
		}
		us := (float64(res.T.Nanoseconds()) / 1e3) / float64(res.N)
		return Result{R: float64(res.Bytes) / us}
	}, param)
}

// BenchmarkRatioSuite reports len(input)/len(compressed) for each codec
// and input.
func BenchmarkRatioSuite(codecs []string, inputs [][]byte, param int, tick func()) [][]Result {
	return benchmarkSuite(codecs, inputs, tick, func(input []byte, c string, p int) Result {
		buf := new(bytes.Buffer)
		wr := Encoders[c](buf, p)
		if _, err := io.Copy(wr, bytes.NewReader(input)); err != nil {
			return Result{}
		}
		if wr.Close() != nil {
			return Result{}
		}
		return Result{R: float64(len(input)) / float64(buf.Len())}
	}, param)
}

// benchmarkSuite runs run once per (input, codec) pair, filling in each
// row's D field relative to the first codec's R.
func benchmarkSuite(codecs []string, inputs [][]byte, tick func(), run benchFunc, param int) [][]Result {
	results := make([][]Result, len(inputs))
	for i, input := range inputs {
		row := make([]Result, len(codecs))
		for j, c := range codecs {
			if tick != nil {
				tick()
			}
			row[j] = run(input, c, param)
			if row[0].R != 0 {
				row[j].D = row[j].R / row[0].R
			}
		}
		results[i] = row
	}
	return results
}
