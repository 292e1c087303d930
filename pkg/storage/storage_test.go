package storage

import (
	"encoding/binary"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/datalogger/pkg/columnar"
	"github.com/ajitpratap0/datalogger/pkg/compression"
	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
)

var testColumns = []columnar.ColumnSpec{
	{Name: "x", Type: columnar.TypeFloat64},
	{Name: "ok", Type: columnar.TypeBool},
	{Name: "name", Type: columnar.TypeString},
}

func testBatch(t *testing.T, start, rows int) *columnar.Batch {
	t.Helper()
	b, err := columnar.NewBatch(testColumns, rows)
	require.NoError(t, err)
	for i := start; i < start+rows; i++ {
		b.Column(0).(*columnar.Float64Column).Append(float64(i) + 0.5)
		b.Column(1).(*columnar.BoolColumn).Append(i%2 == 0)
		b.Column(2).(*columnar.StringColumn).Append("row")
	}
	return b
}

func createWriter(t *testing.T, dir string, alg compression.Algorithm) *Writer {
	t.Helper()
	w, err := Create(dir, Header{Group: "G", Columns: testColumns}, WriterOptions{
		Compression: &compression.Config{Algorithm: alg, Level: compression.Fastest},
	})
	require.NoError(t, err)
	return w
}

func TestWriteAndDecode(t *testing.T) {
	for _, alg := range compression.Algorithms {
		t.Run(string(alg), func(t *testing.T) {
			dir := t.TempDir()
			w := createWriter(t, dir, alg)

			_, err := w.WriteBatch(testBatch(t, 0, 3))
			require.NoError(t, err)
			_, err = w.WriteBatch(testBatch(t, 3, 0))
			require.NoError(t, err)
			info, err := w.WriteBatch(testBatch(t, 3, 4))
			require.NoError(t, err)
			assert.Equal(t, 4, info.Rows)
			require.NoError(t, w.Close())
			require.NoError(t, w.Close())

			stats := w.Stats()
			assert.Equal(t, 2, stats.Frames)
			assert.Equal(t, int64(7), stats.Rows)

			a, err := ReadFile(ArtifactPath(dir, "G"), DecodeOptions{})
			require.NoError(t, err)
			assert.Equal(t, "G", a.Header.Group)
			assert.Equal(t, alg, a.Header.Codec)
			assert.Equal(t, testColumns, a.Header.Columns)
			assert.Len(t, a.Frames, 2)
			assert.Equal(t, 7, a.Rows())
			assert.Equal(t, []string{"0.5", "1.5", "2.5", "3.5", "4.5", "5.5", "6.5"}, a.Batch.Text(0))
			assert.Equal(t, []string{"1", "0", "1", "0", "1", "0", "1"}, a.Batch.Text(1))
		})
	}
}

func TestHeaderOnlyArtifact(t *testing.T) {
	dir := t.TempDir()
	w := createWriter(t, dir, compression.LZ4)
	require.NoError(t, w.Close())

	a, err := ReadFile(w.Path(), DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, a.Rows())
	assert.Len(t, a.Batch.Columns(), len(testColumns))
}

func TestCreateRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	w := createWriter(t, dir, compression.None)
	require.NoError(t, w.Close())

	_, err := Create(dir, Header{Group: "G", Columns: testColumns}, WriterOptions{})
	require.Error(t, err)
	assert.True(t, dlerrors.IsType(err, dlerrors.ErrorTypeIO))
}

func TestWriteAfterClose(t *testing.T) {
	w := createWriter(t, t.TempDir(), compression.None)
	require.NoError(t, w.Close())
	_, err := w.WriteBatch(testBatch(t, 0, 1))
	assert.True(t, dlerrors.IsType(err, dlerrors.ErrorTypeState))
}

func TestCorruption(t *testing.T) {
	dir := t.TempDir()
	w := createWriter(t, dir, compression.Snappy)
	_, err := w.WriteBatch(testBatch(t, 0, 5))
	require.NoError(t, err)
	second, err := w.WriteBatch(testBatch(t, 5, 5))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(w.Path())
	require.NoError(t, err)

	t.Run("truncated tail", func(t *testing.T) {
		cut := data[:len(data)-3]
		_, err := Decode(cut, DecodeOptions{})
		require.Error(t, err)
		assert.True(t, dlerrors.IsType(err, dlerrors.ErrorTypeRead))

		a, err := Decode(cut, DecodeOptions{Salvage: true})
		require.NoError(t, err)
		assert.Equal(t, 5, a.Rows())
		assert.Error(t, a.Damage)
	})

	t.Run("flipped payload byte", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[second.Offset+frameHeaderSize] ^= 0xff
		_, err := Decode(bad, DecodeOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "checksum mismatch")
	})

	t.Run("inflated frame lengths", func(t *testing.T) {
		for name, field := range map[string]int64{"rows": 4, "raw": 8} {
			t.Run(name, func(t *testing.T) {
				bad := append([]byte(nil), data...)
				binary.LittleEndian.PutUint32(bad[second.Offset+field:], math.MaxUint32)
				_, err := Decode(bad, DecodeOptions{})
				require.Error(t, err)
				assert.True(t, dlerrors.IsType(err, dlerrors.ErrorTypeRead))
				assert.Contains(t, err.Error(), "checksum mismatch")

				a, err := Decode(bad, DecodeOptions{Salvage: true})
				require.NoError(t, err)
				assert.Equal(t, 5, a.Rows())
				assert.Error(t, a.Damage)
			})
		}
	})

	t.Run("flipped header byte", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[10] ^= 0xff
		_, err := Decode(bad, DecodeOptions{})
		require.Error(t, err)
		assert.True(t, dlerrors.IsType(err, dlerrors.ErrorTypeRead))
	})

	t.Run("not an artifact", func(t *testing.T) {
		_, err := Decode([]byte("x,y\n1,2\n"), DecodeOptions{})
		assert.True(t, dlerrors.IsType(err, dlerrors.ErrorTypeRead))
	})

	t.Run("scan", func(t *testing.T) {
		h, frames, err := Scan(data)
		require.NoError(t, err)
		assert.Equal(t, "G", h.Group)
		require.Len(t, frames, 2)
		assert.Equal(t, second.Offset, frames[1].Offset)
	})
}
