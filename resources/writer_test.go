package resources

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flowbase/flowbase"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdfio/rdfprep/bysubject"
)

const outDir = "/out/part-r-00000"

func newTestWriter(t *testing.T, opts Options) (afero.Fs, *ResourceRecordWriter) {
	flowbase.InitLogWarning()
	fs := afero.NewMemMapFs()
	w, err := NewResourceRecordWriter(fs, outDir, opts)
	require.NoError(t, err)
	return fs, w
}

func readFile(t *testing.T, fs afero.Fs, name string) string {
	b, err := afero.ReadFile(fs, filepath.Join(outDir, name))
	require.NoError(t, err)
	return string(b)
}

func TestNewResourceRecordWriterExistingDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(outDir, 0o755))

	_, err := NewResourceRecordWriter(fs, outDir, DefaultOptions())
	assert.ErrorIs(t, err, ErrOutputExists)

	require.NoError(t, afero.WriteFile(fs, filepath.Join(outDir, "all"), []byte("x\n"), 0o644))
	_, err = NewResourceRecordWriter(fs, outDir, DefaultOptions())
	assert.ErrorIs(t, err, ErrOutputExists)
}

func TestNewResourceRecordWriterCreatesFiles(t *testing.T) {
	fs, w := newTestWriter(t, DefaultOptions())
	require.NoError(t, w.Close())

	for _, name := range []string{"all", "contexts", "objects", "predicates", "subjects", bysubject.StoreFileName, bysubject.OffsetsFileName} {
		exists, err := afero.Exists(fs, filepath.Join(outDir, name))
		require.NoError(t, err)
		assert.True(t, exists, name)
	}
}

func TestWriteDictionaries(t *testing.T) {
	fs, w := newTestWriter(t, DefaultOptions())

	require.NoError(t, w.Write("http://c/", OutputCount{Output: All, Count: 2}))
	require.NoError(t, w.Write("http://c/", OutputCount{Output: Context, Count: 2}))
	require.NoError(t, w.Write("http://o/", OutputCount{Output: All, Count: 1}))
	require.NoError(t, w.Write("http://o/", &OutputCount{Output: Object, Count: 1}))
	require.NoError(t, w.Write("http://p/", OutputCount{Output: All, Count: 3}))
	require.NoError(t, w.Write("http://p/", OutputCount{Output: Predicate, Count: 3}))
	require.NoError(t, w.Close())

	assert.Equal(t, "http://c/\nhttp://o/\nhttp://p/\n", readFile(t, fs, "all"))
	assert.Equal(t, "http://c/\n", readFile(t, fs, "contexts"))
	assert.Equal(t, "http://o/\n", readFile(t, fs, "objects"))
	assert.Equal(t, "3\thttp://p/\n", readFile(t, fs, "predicates"))
	assert.Equal(t, "", readFile(t, fs, "subjects"))
	assert.Equal(t, int64(3), w.AllCount())
	assert.Equal(t, int64(3), w.Offsets().AllCount)
	assert.Equal(t, int64(0), w.Offsets().DocCount)
}

func TestWriteInvalidValue(t *testing.T) {
	_, w := newTestWriter(t, DefaultOptions())

	assert.ErrorIs(t, w.Write("k", "PREDICATE"), ErrInvalidValue)
	assert.ErrorIs(t, w.Write("k", OutputCount{Output: Output(42)}), ErrInvalidValue)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Write("k", OutputCount{Output: All}), ErrClosed)
}

func TestWriteDocumentOrder(t *testing.T) {
	_, w := newTestWriter(t, DefaultOptions())

	require.NoError(t, w.Write("http://a/", &bysubject.Record{ID: 4, Subject: "http://a/"}))
	assert.ErrorIs(t, w.Write("http://b/", &bysubject.Record{ID: 4, Subject: "http://b/"}), ErrDocumentOrder)
	assert.ErrorIs(t, w.Write("http://b/", &bysubject.Record{ID: 2, Subject: "http://b/"}), ErrDocumentOrder)
	require.NoError(t, w.Write("http://b/", &bysubject.Record{ID: 5, Subject: "http://b/"}))
	require.NoError(t, w.Close())
	assert.Equal(t, int64(2), w.DocCount())
}

func testRecords(n int) []*bysubject.Record {
	records := make([]*bysubject.Record, n)
	for i := range records {
		subject := fmt.Sprintf("http://example.org/s%05d", i)
		records[i] = &bysubject.Record{
			ID:      int64(i),
			Subject: subject,
			Relations: []string{
				fmt.Sprintf("<http://example.org/p%d> <http://example.org/o%d> .", i%7, i),
				fmt.Sprintf(`<http://example.org/label> "label of %d" <http://example.org/c> .`, i),
			},
		}
	}
	return records
}

func TestStoreRoundTrip(t *testing.T) {
	opts := DefaultOptions()
	opts.BlockSize = 512
	fs, w := newTestWriter(t, opts)

	records := testRecords(300)
	for _, rec := range records {
		require.NoError(t, w.Write(rec.Subject, OutputCount{Output: All, Count: 2}))
		require.NoError(t, w.Write(rec.Subject, rec))
	}
	require.NoError(t, w.Close())

	offsets := w.Offsets()
	require.NotNil(t, offsets)
	assert.Equal(t, int64(300), offsets.DocCount)
	assert.Equal(t, int64(300), offsets.AllCount)
	require.Greater(t, len(offsets.Boundaries), 10)
	assert.Equal(t, int64(0), offsets.Boundaries[0].BitOffset)
	assert.Equal(t, int64(0), offsets.Boundaries[0].FirstDocID)
	for i := 1; i < len(offsets.Boundaries); i++ {
		assert.Greater(t, offsets.Boundaries[i].BitOffset, offsets.Boundaries[i-1].BitOffset)
		assert.Greater(t, offsets.Boundaries[i].FirstDocID, offsets.Boundaries[i-1].FirstDocID)
	}

	r, err := bysubject.OpenReader(fs, outDir)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, offsets, r.Offsets())

	for _, want := range records {
		got, err := r.Get(want.ID)
		require.NoError(t, err, "document %d", want.ID)
		assert.Equal(t, want, got)
	}
	_, err = r.Get(300)
	assert.ErrorIs(t, err, bysubject.ErrNotFound)

	var ids []int64
	require.NoError(t, r.Scan(func(rec *bysubject.Record) bool {
		ids = append(ids, rec.ID)
		return true
	}))
	assert.Len(t, ids, 300)

	subjects := readFile(t, fs, "subjects")
	assert.Equal(t, 300, strings.Count(subjects, "\n"))
	assert.True(t, strings.HasPrefix(subjects, "http://example.org/s00000\nhttp://example.org/s00001\n"))
}

func TestStoreIsOneGzipStream(t *testing.T) {
	opts := DefaultOptions()
	opts.BlockSize = 128
	fs, w := newTestWriter(t, opts)

	records := testRecords(20)
	var want strings.Builder
	for i, rec := range records {
		require.NoError(t, w.Write(rec.Subject, rec))
		if i > 0 {
			want.WriteByte(bysubject.RecordDelimiter)
		}
		want.WriteString(rec.String())
	}
	want.WriteByte(bysubject.RecordDelimiter)
	require.NoError(t, w.Close())

	zr, err := gzip.NewReader(strings.NewReader(readFile(t, fs, bysubject.StoreFileName)))
	require.NoError(t, err)
	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, want.String(), string(got))
}

func TestCompressedDictionaries(t *testing.T) {
	for _, codec := range []Codec{Gzip, Zstd} {
		t.Run(codec.String(), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Codec = codec
			fs, w := newTestWriter(t, opts)

			require.NoError(t, w.Write("http://p/", OutputCount{Output: Predicate, Count: 12}))
			require.NoError(t, w.Close())

			raw := readFile(t, fs, "predicates"+codec.Extension())
			zr, err := codec.NewReader(bytes.NewReader([]byte(raw)))
			require.NoError(t, err)
			got, err := io.ReadAll(zr)
			require.NoError(t, err)
			require.NoError(t, zr.Close())
			assert.Equal(t, "12\thttp://p/\n", string(got))
		})
	}
}

func TestParseCodec(t *testing.T) {
	for in, want := range map[string]Codec{"": NoCodec, "none": NoCodec, "GZIP": Gzip, "zst": Zstd} {
		got, err := ParseCodec(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCodec("bzip2")
	assert.Error(t, err)
}

func TestOutputNames(t *testing.T) {
	assert.Equal(t, "predicates", Predicate.FileName())
	assert.True(t, Predicate.IncludeCounts())
	assert.False(t, All.IncludeCounts())
	assert.Equal(t, "SUBJECT", Subject.String())
	assert.Equal(t, "OBJECT(3)", OutputCount{Output: Object, Count: 3}.String())
}

func TestCloseWithoutLoggers(t *testing.T) {
	info := flowbase.Info
	flowbase.Info = nil
	defer func() { flowbase.Info = info }()

	fs := afero.NewMemMapFs()
	w, err := NewResourceRecordWriter(fs, outDir, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, w.Write("http://s/", OutputCount{Output: All, Count: 1}))
	require.NoError(t, w.Write("http://s/", &bysubject.Record{ID: 0, Subject: "http://s/", Relations: []string{"<http://p/> <http://o/> ."}}))
	require.NoError(t, w.Close())
	assert.Equal(t, int64(1), w.Offsets().DocCount)
}
