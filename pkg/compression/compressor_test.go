package compression

import (
	"bytes"
	"io"
	"testing"
)

func testPayload() []byte {
	return bytes.Repeat([]byte("life=1.5;mana=4.2;name=hello;rot=1,0,0,0,1,0,0,0,1;"), 200)
}

func TestCompressors(t *testing.T) {
	original := testPayload()

	for _, algorithm := range Algorithms {
		t.Run(string(algorithm), func(t *testing.T) {
			compressor, err := NewCompressor(&Config{Algorithm: algorithm, Level: Default})
			if err != nil {
				t.Fatalf("Failed to create %s compressor: %v", algorithm, err)
			}
			if compressor.Algorithm() != algorithm {
				t.Errorf("Algorithm() = %s, want %s", compressor.Algorithm(), algorithm)
			}

			prefix := []byte("hdr")
			block, err := compressor.Compress(append([]byte(nil), prefix...), original)
			if err != nil {
				t.Fatalf("Failed to compress: %v", err)
			}
			if !bytes.HasPrefix(block, prefix) {
				t.Fatalf("Compress did not append to dst")
			}
			block = block[len(prefix):]

			if algorithm != None && len(block) >= len(original) {
				t.Errorf("Compressed size (%d) is not smaller than original (%d)", len(block), len(original))
			}

			decompressed, err := compressor.Decompress(nil, block, len(original))
			if err != nil {
				t.Fatalf("Failed to decompress: %v", err)
			}
			if !bytes.Equal(original, decompressed) {
				t.Errorf("Decompressed data doesn't match original")
			}

			if _, err := compressor.Decompress(nil, block, len(original)-1); err == nil {
				t.Errorf("Expected size mismatch error for short raw size")
			}
			if _, err := compressor.Decompress(nil, block, len(original)+1); err == nil {
				t.Errorf("Expected size mismatch error for long raw size")
			}
		})
	}
}

func TestCompressionStreams(t *testing.T) {
	original := testPayload()

	for _, algorithm := range Algorithms {
		t.Run(string(algorithm), func(t *testing.T) {
			compressor, err := NewCompressor(&Config{Algorithm: algorithm, Level: Fastest})
			if err != nil {
				t.Fatalf("Failed to create compressor: %v", err)
			}

			var compressed bytes.Buffer
			w, err := compressor.CompressStream(&compressed)
			if err != nil {
				t.Fatalf("Failed to open stream: %v", err)
			}
			if _, err := w.Write(original); err != nil {
				t.Fatalf("Failed to write stream: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Failed to close stream: %v", err)
			}

			r, err := compressor.DecompressStream(&compressed)
			if err != nil {
				t.Fatalf("Failed to open reader: %v", err)
			}
			defer r.Close()
			decompressed, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("Failed to read stream: %v", err)
			}
			if !bytes.Equal(original, decompressed) {
				t.Errorf("Stream decompressed data doesn't match original")
			}
		})
	}
}

func TestLZ4CompressionLevels(t *testing.T) {
	testData := bytes.Repeat([]byte("test data for compression "), 100)

	for _, level := range []Level{Fastest, Default, Better, Best} {
		t.Run(level.String(), func(t *testing.T) {
			compressor, err := NewCompressor(&Config{Algorithm: LZ4, Level: level})
			if err != nil {
				t.Fatalf("Failed to create compressor: %v", err)
			}

			compressed, err := compressor.Compress(nil, testData)
			if err != nil {
				t.Fatalf("Failed to compress: %v", err)
			}
			decompressed, err := compressor.Decompress(nil, compressed, len(testData))
			if err != nil {
				t.Fatalf("Failed to decompress: %v", err)
			}
			if !bytes.Equal(testData, decompressed) {
				t.Errorf("Decompressed data doesn't match original for level %v", level)
			}
		})
	}
}

func TestParse(t *testing.T) {
	if a, err := ParseAlgorithm(""); err != nil || a != LZ4 {
		t.Errorf("ParseAlgorithm(\"\") = %s, %v", a, err)
	}
	if a, err := ParseAlgorithm("zstd"); err != nil || a != Zstd {
		t.Errorf("ParseAlgorithm(zstd) = %s, %v", a, err)
	}
	if _, err := ParseAlgorithm("brotli"); err == nil {
		t.Errorf("expected error for brotli")
	}
	if l, err := ParseLevel("best"); err != nil || l != Best {
		t.Errorf("ParseLevel(best) = %v, %v", l, err)
	}
	if l, err := ParseLevel("7"); err != nil || l != Better {
		t.Errorf("ParseLevel(7) = %v, %v", l, err)
	}
	if _, err := ParseLevel("11"); err == nil {
		t.Errorf("expected error for level 11")
	}
	if _, err := NewCompressor(&Config{Algorithm: "brotli"}); err == nil {
		t.Errorf("expected error for unknown algorithm")
	}
}

func BenchmarkFrameCompression(b *testing.B) {
	payload := testPayload()
	for _, algorithm := range []Algorithm{LZ4, Snappy, S2, Zstd} {
		compressor, err := NewCompressor(&Config{Algorithm: algorithm, Level: Fastest})
		if err != nil {
			b.Fatal(err)
		}
		b.Run(string(algorithm), func(b *testing.B) {
			b.SetBytes(int64(len(payload)))
			b.ReportAllocs()
			var dst []byte
			for i := 0; i < b.N; i++ {
				dst, err = compressor.Compress(dst[:0], payload)
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
