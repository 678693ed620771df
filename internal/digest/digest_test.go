package digest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupAlgorithm(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		size    int
		wantErr bool
	}{
		{name: "", want: "md5", size: 16},
		{name: "MD5", want: "md5", size: 16},
		{name: "sha256", want: "sha256", size: 32},
		{name: " Sha512 ", want: "sha512", size: 64},
		{name: "xxh64", want: "xxh64", size: 8},
		{name: "crc32", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			alg, err := LookupAlgorithm(tc.name)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "sha256")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, alg.Name)
			assert.Equal(t, tc.size, alg.Size)
			assert.Equal(t, tc.size, alg.New().Size())
		})
	}
}

func TestSumReader_KnownDigests(t *testing.T) {
	tests := []struct {
		alg  string
		data string
		want string
	}{
		{alg: "md5", data: "hello", want: "5d41402abc4b2a76b9719d911017c592"},
		{alg: "md5", data: "", want: "d41d8cd98f00b204e9800998ecf8427e"},
		{alg: "sha256", data: "hello", want: "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
		{alg: "sha256", data: "", want: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
	}

	for _, tc := range tests {
		d, err := New(tc.alg, 0)
		require.NoError(t, err)
		got, err := d.SumReader(context.Background(), strings.NewReader(tc.data))
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s(%q)", tc.alg, tc.data)
		assert.Equal(t, tc.want, d.SumBytes([]byte(tc.data)))
	}
}

func TestSumReader_BufferSizeDoesNotChangeDigest(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789abcdef"), 4096+3)

	var sums []string
	for _, size := range []int{1, 7, 512, DefaultBufferSize, 1 << 20} {
		d := &Digester{BufferSize: size}
		sum, err := d.SumReader(context.Background(), bytes.NewReader(data))
		require.NoError(t, err)
		sums = append(sums, sum)
	}
	for _, s := range sums[1:] {
		assert.Equal(t, sums[0], s)
	}
}

func TestSumReader_ReadsInBoundedChunks(t *testing.T) {
	r := &maxReadRecorder{r: bytes.NewReader(make([]byte, 100_000))}
	d := &Digester{BufferSize: 4096}
	_, err := d.SumReader(context.Background(), r)
	require.NoError(t, err)
	assert.LessOrEqual(t, r.max, 4096)
}

func TestBufferSizeIsCapped(t *testing.T) {
	_, err := New("md5", MaxBufferSize+1)
	assert.Error(t, err)

	d, err := New("md5", MaxBufferSize)
	require.NoError(t, err)
	assert.Equal(t, MaxBufferSize, d.bufferSize())

	assert.Equal(t, MaxBufferSize, (&Digester{BufferSize: 4 * MaxBufferSize}).bufferSize())
	assert.Equal(t, DefaultBufferSize, (&Digester{}).bufferSize())
}

func TestSumReader_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &Digester{}
	_, err := d.SumReader(ctx, strings.NewReader("data"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSumFile_MissingFileIsIOError(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := &Digester{}

	_, err := d.SumFile(context.Background(), fs, "/nope.txt")
	require.Error(t, err)

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "/nope.txt", ioErr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSumFile_ReadFailureIsIOError(t *testing.T) {
	boom := errors.New("device went away")
	fs := &failingFs{Fs: afero.NewMemMapFs(), readErr: boom}
	require.NoError(t, afero.WriteFile(fs.Fs, "/f.bin", []byte("abc"), 0o644))

	d := &Digester{}
	sum, err := d.SumFile(context.Background(), fs, "/f.bin")
	assert.Empty(t, sum)

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "/f.bin", ioErr.Path)
	assert.ErrorIs(t, err, boom)
}

func TestSumFile_MatchesSumBytes(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.txt", []byte("hello"), 0o644))

	d, err := New("sha256", 3)
	require.NoError(t, err)
	sum, err := d.SumFile(context.Background(), fs, "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, d.SumBytes([]byte("hello")), sum)
}

func TestSumFile_OSFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + string(os.PathSeparator) + "x.txt"
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	d := &Digester{}
	sum, err := d.SumFile(context.Background(), afero.NewOsFs(), path)
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", sum)
}

type maxReadRecorder struct {
	r   io.Reader
	max int
}

func (m *maxReadRecorder) Read(p []byte) (int, error) {
	if len(p) > m.max {
		m.max = len(p)
	}
	return m.r.Read(p)
}

type failingFs struct {
	afero.Fs
	readErr error
}

func (f *failingFs) Open(name string) (afero.File, error) {
	file, err := f.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	return &failingFile{File: file, err: f.readErr}, nil
}

type failingFile struct {
	afero.File
	err error
}

func (f *failingFile) Read([]byte) (int, error) { return 0, f.err }
