package lz78bench

import (
	"io"

	kflate "github.com/klauspost/compress/flate"
	"github.com/ulikunitz/xz"

	"github.com/dsnet/lz78/lz78"
)

// init registers every codec this benchmark tool knows how to compare,
// mirroring the teacher's ds_lib.go, which registers its own codec
// implementations under the "ds" name. Here, "lz78" is the codec this
// repository implements; "flate" and "xz" are the two comparison codecs
// the domain stack wires in (see the repository's DESIGN.md for why these
// two specifically).
func init() {
	RegisterEncoder("lz78", func(w io.Writer, param int) io.WriteCloser {
		dictSize := uint32(param)
		zw, err := lz78.NewWriterSize(w, dictSize)
		if err != nil {
			panic(err)
		}
		return zw
	})
	RegisterDecoder("lz78", func(r io.Reader) io.ReadCloser {
		return lz78.NewReader(r)
	})

	RegisterEncoder("flate", func(w io.Writer, param int) io.WriteCloser {
		lvl := param
		if lvl == 0 {
			lvl = kflate.DefaultCompression
		}
		zw, err := kflate.NewWriter(w, lvl)
		if err != nil {
			panic(err)
		}
		return zw
	})
	RegisterDecoder("flate", func(r io.Reader) io.ReadCloser {
		return kflate.NewReader(r)
	})

	RegisterEncoder("xz", func(w io.Writer, param int) io.WriteCloser {
		zw, err := xz.NewWriter(w)
		if err != nil {
			panic(err)
		}
		return zw
	})
	RegisterDecoder("xz", func(r io.Reader) io.ReadCloser {
		zr, err := xz.NewReader(r)
		if err != nil {
			panic(err)
		}
		return io.NopCloser(zr)
	})
}
