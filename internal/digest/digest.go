package digest

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
)

// DefaultBufferSize is the read chunk used when a Digester has no explicit size.
const DefaultBufferSize = 8 * 1024

// MaxBufferSize caps the read chunk. Every worker holds one buffer.
const MaxBufferSize = 64 << 20

// DefaultAlgorithm is used when no algorithm is configured.
const DefaultAlgorithm = "md5"

// Algorithm describes a hash function usable for content digests.
type Algorithm struct {
	Name string
	// Size is the digest length in bytes.
	Size int
	New  func() hash.Hash
}

var algorithms = []Algorithm{
	{Name: "md5", Size: md5.Size, New: md5.New},
	{Name: "sha1", Size: sha1.Size, New: sha1.New},
	{Name: "sha256", Size: sha256.Size, New: sha256.New},
	{Name: "sha512", Size: sha512.Size, New: sha512.New},
	{Name: "xxh64", Size: 8, New: func() hash.Hash { return xxhash.New() }},
}

// LookupAlgorithm returns the algorithm registered under name (case-insensitive).
// An empty name selects DefaultAlgorithm.
func LookupAlgorithm(name string) (Algorithm, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultAlgorithm
	}
	for _, alg := range algorithms {
		if alg.Name == name {
			return alg, nil
		}
	}
	return Algorithm{}, fmt.Errorf("unsupported hash algorithm %q (supported: %s)", name, strings.Join(Names(), ", "))
}

// Names lists the supported algorithm names.
func Names() []string {
	names := make([]string, 0, len(algorithms))
	for _, alg := range algorithms {
		names = append(names, alg.Name)
	}
	return names
}

// IOError reports a file that could not be read to completion.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Digester streams file contents through a hash in fixed-size chunks.
// The zero value uses DefaultAlgorithm and DefaultBufferSize.
type Digester struct {
	Algorithm  Algorithm
	BufferSize int
}

// New returns a Digester for the named algorithm.
func New(name string, bufferSize int) (*Digester, error) {
	alg, err := LookupAlgorithm(name)
	if err != nil {
		return nil, err
	}
	if bufferSize > MaxBufferSize {
		return nil, fmt.Errorf("buffer size %d exceeds the %d byte limit", bufferSize, MaxBufferSize)
	}
	return &Digester{Algorithm: alg, BufferSize: bufferSize}, nil
}

func (d *Digester) newHash() hash.Hash {
	if d.Algorithm.New == nil {
		alg, _ := LookupAlgorithm(DefaultAlgorithm)
		return alg.New()
	}
	return d.Algorithm.New()
}

func (d *Digester) bufferSize() int {
	switch {
	case d.BufferSize <= 0:
		return DefaultBufferSize
	case d.BufferSize > MaxBufferSize:
		return MaxBufferSize
	}
	return d.BufferSize
}

// SumReader digests r until EOF and returns the hex-encoded result.
// The context is checked before every read.
func (d *Digester) SumReader(ctx context.Context, r io.Reader) (string, error) {
	h := d.newHash()
	buf := make([]byte, d.bufferSize())

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumFile digests the file at path on fs. Read failures are returned as *IOError;
// cancellation is returned as the context error.
func (d *Digester) SumFile(ctx context.Context, fs afero.Fs, path string) (sum string, err error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", &IOError{Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &IOError{Path: path, Err: cerr}
		}
	}()

	sum, err = d.SumReader(ctx, f)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return "", err
		}
		return "", &IOError{Path: path, Err: err}
	}
	return sum, nil
}

// SumBytes digests an in-memory value.
func (d *Digester) SumBytes(data []byte) string {
	h := d.newHash()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
