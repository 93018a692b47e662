package blockgz

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	starts []int64
	total  int64
}

func (l *recordingListener) BlockStart(bitOffset int64) { l.starts = append(l.starts, bitOffset) }
func (l *recordingListener) Finish(totalBits int64)     { l.total = totalBits }

func TestWriterBlocks(t *testing.T) {
	var out bytes.Buffer
	l := &recordingListener{}
	w, err := NewWriter(&out, 64, gzip.BestSpeed, l)
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, l.starts)

	var want strings.Builder
	for i := 0; i < 20; i++ {
		rec := strings.Repeat(string(rune('a'+i)), 30) + "\n"
		want.WriteString(rec)
		_, err := io.WriteString(w, rec)
		require.NoError(t, err)
		require.NoError(t, w.Flush())
	}
	require.NoError(t, w.Close())

	// 31 bytes per record and a 64 byte block size cut a block every third record.
	require.Len(t, l.starts, 7)
	for i := 1; i < len(l.starts); i++ {
		assert.Greater(t, l.starts[i], l.starts[i-1])
		assert.Zero(t, l.starts[i]%8)
	}
	assert.Equal(t, int64(out.Len())*8, l.total)

	zr, err := gzip.NewReader(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, want.String(), string(got))
}

func TestReaderAtBlockStart(t *testing.T) {
	var out bytes.Buffer
	l := &recordingListener{}
	w, err := NewWriter(&out, 10, gzip.DefaultCompression, l)
	require.NoError(t, err)

	for _, s := range []string{"first-block\n", "second-block\n", "third-block\n"} {
		_, err := io.WriteString(w, s)
		require.NoError(t, err)
		require.NoError(t, w.Flush())
	}
	require.NoError(t, w.Close())
	require.Len(t, l.starts, 4)

	zr, err := NewReaderAt(bytes.NewReader(out.Bytes()), l.starts[1])
	require.NoError(t, err)
	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "second-block\nthird-block\n", string(got))

	_, err = NewReaderAt(bytes.NewReader(out.Bytes()), 3)
	assert.Error(t, err)
}

func TestWriterWithoutListener(t *testing.T) {
	var out bytes.Buffer
	w, err := NewWriter(&out, 0, gzip.DefaultCompression, nil)
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	assert.Zero(t, w.BytesWritten())
	require.NoError(t, w.Close())
	assert.NotZero(t, w.BytesWritten())

	_, err = w.Write([]byte("y"))
	assert.Error(t, err)
}
