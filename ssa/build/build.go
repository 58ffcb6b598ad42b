// Package build is a helper package for building SSA IR in the parent
// directory.
//
// There are two ways of building SSA IR from source code: from a list of
// source files (the normal usage, where the files are considered part of
// the same package), or from an io.Reader (mostly for testing, where the
// input source is read from the given reader).
package build

import (
	"bufio"
	"bytes"
	"io"
	"io/ioutil"
	"log"
	"os"

	"github.com/pkg/errors"
)

// srcReader is a wrapper for source code which can be read through a
// NewReader.
type srcReader interface {
	NewReader() io.Reader
}

// FileSrc is a set of filenames.
type FileSrc struct {
	Files []string
}

// FromFiles returns a non-nil Configurer from a slice of filenames.
func FromFiles(files ...string) Configurer {
	return newConfig(&FileSrc{Files: files})
}

// Reader returns an io.Reader for file[i].
func (s *FileSrc) Reader(i int) io.Reader {
	if i < len(s.Files) {
		f, err := os.Open(s.Files[i])
		defer f.Close()
		if err != nil {
			log.Fatal(errors.Wrapf(err, "failed to read from file: %s", s.Files[i]))
		}
		return bufio.NewReader(f)
	}
	return nil
}

// NewReader returns an io.Reader for reading all files.
func (s *FileSrc) NewReader() io.Reader {
	var rds []io.Reader
	for i := range s.Files {
		rds = append(rds, s.Reader(i))
	}
	return io.MultiReader(rds...)
}

// CachedSrc is source file from a reader.
type CachedSrc struct {
	cached []byte
}

// FromReader returns a non-nil Configurer for a reader.
func FromReader(r io.Reader) Configurer {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to read from reader"))
	}
	return newConfig(&CachedSrc{cached: b})
}

// NewReader returns a reader for reading the string content.
func (s *CachedSrc) NewReader() io.Reader {
	return bytes.NewReader(s.cached)
}
