// Command lz78c compresses or decompresses a stream using the lz78 codec,
// adapted from wrapper.c's fd-pair CLI semantics in the original C
// implementation this codec was translated from: -i/-o select input and
// output (defaulting to stdin/stdout), -d switches to decompress mode,
// -t names the algorithm (only "lz78" is recognized), -b sizes the bit
// stream's buffer, and -a sizes the dictionary.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dsnet/golib/strconv"

	"github.com/dsnet/lz78/lz78"
)

// Exit codes, mirroring the distinct LZ78_ERROR_* values the original
// wrapper.c/main.c propagate as the process exit status instead of
// collapsing every failure to 1.
const (
	exitSuccess = 0
	exitUsage   = 1
	exitFileIn  = 2
	exitFileOut = 3
	exitRead    = 4
	exitWrite   = 5
	exitCodec   = 6
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		inPath  = flag.String("i", "", "input file (defaults to stdin)")
		outPath = flag.String("o", "", "output file (defaults to stdout)")
		decode  = flag.Bool("d", false, "decompress instead of compress")
		algo    = flag.String("t", "lz78", "compression algorithm (only \"lz78\" is valid)")
		bufSize = flag.String("b", "", "bit stream buffer size, e.g. 64K (defaults to the codec's own default)")
		dictArg = flag.String("a", "", "dictionary size, e.g. 4096 or 1M (compress mode only)")
	)
	flag.Parse()

	if *algo != "lz78" {
		fmt.Fprintf(os.Stderr, "lz78c: unrecognized compression algorithm: %s\n", *algo)
		return exitUsage
	}

	var dictSize uint32
	if *dictArg != "" {
		n, err := strconv.ParsePrefix(*dictArg, strconv.AutoParse)
		if err != nil || n < 0 {
			fmt.Fprintf(os.Stderr, "lz78c: invalid dictionary size: %s\n", *dictArg)
			return exitUsage
		}
		dictSize = uint32(n)
	}
	var bufferBits uint32
	if *bufSize != "" {
		n, err := strconv.ParsePrefix(*bufSize, strconv.AutoParse)
		if err != nil || n < 0 {
			fmt.Fprintf(os.Stderr, "lz78c: invalid buffer size: %s\n", *bufSize)
			return exitUsage
		}
		bufferBits = uint32(n) * 8
	}

	in := os.Stdin
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lz78c: unable to read input file: %v\n", err)
			return exitFileIn
		}
		defer f.Close()
		in = f
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lz78c: unable to write output file: %v\n", err)
			return exitFileOut
		}
		defer f.Close()
		out = f
	}

	var err error
	if *decode {
		err = runDecompress(in, out, bufferBits)
	} else {
		err = runCompress(in, out, dictSize, bufferBits)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "lz78c: %v\n", err)
		return exitCode(err)
	}
	return exitSuccess
}

func runCompress(in io.Reader, out io.Writer, dictSize, bufferBits uint32) error {
	zw, err := lz78.NewWriterBuffer(out, dictSize, bufferBits)
	if err != nil {
		return err
	}
	if _, err := io.Copy(zw, in); err != nil {
		return err
	}
	return zw.Close()
}

func runDecompress(in io.Reader, out io.Writer, bufferBits uint32) error {
	zr := lz78.NewReaderBuffer(in, bufferBits)
	defer zr.Close()
	_, err := io.Copy(out, zr)
	return err
}

// exitCode maps an error to a process exit status, the same role
// wrapper_return plays against the original's LZ78_ERROR_* values. All four
// lz78.Error kinds share exitCodec; end-of-input errors map to exitRead and
// every other error to exitWrite.
func exitCode(err error) int {
	switch {
	case errors.Is(err, lz78.ErrDictionary):
		return exitCodec
	case errors.Is(err, lz78.ErrCorrupt):
		return exitCodec
	case errors.Is(err, lz78.ErrMode), errors.Is(err, lz78.ErrClosed):
		return exitCodec
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return exitRead
	default:
		return exitWrite
	}
}
