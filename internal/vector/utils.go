package vector

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Float32SliceToBytes converts a slice of float32 to a byte slice.
// The encoding is a little-endian length prefix followed by the values,
// which is the on-disk format of the embedding BLOB column.
func Float32SliceToBytes(floats []float32) ([]byte, error) {
	buf := new(bytes.Buffer)

	// First write the length of the slice
	err := binary.Write(buf, binary.LittleEndian, int32(len(floats)))
	if err != nil {
		return nil, fmt.Errorf("failed to write vector length: %w", err)
	}

	// Then write the float32 values
	err = binary.Write(buf, binary.LittleEndian, floats)
	if err != nil {
		return nil, fmt.Errorf("failed to write vector values: %w", err)
	}

	return buf.Bytes(), nil
}

// BytesToFloat32Slice converts a byte slice back to a slice of float32.
func BytesToFloat32Slice(data []byte) ([]float32, error) {
	buf := bytes.NewReader(data)

	// First read the length of the slice
	var length int32
	err := binary.Read(buf, binary.LittleEndian, &length)
	if err != nil {
		return nil, fmt.Errorf("failed to read vector length: %w", err)
	}

	// A corrupted row must surface as an error, not a panic or a bogus
	// allocation, so the prefix has to agree with the remaining bytes.
	if length < 0 {
		return nil, fmt.Errorf("invalid vector length %d", length)
	}
	if buf.Len() != int(length)*4 {
		return nil, fmt.Errorf("vector length %d does not match %d value bytes", length, buf.Len())
	}

	// Then read the float32 values
	floats := make([]float32, length)
	err = binary.Read(buf, binary.LittleEndian, floats)
	if err != nil {
		return nil, fmt.Errorf("failed to read vector values: %w", err)
	}

	return floats, nil
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// The result is a value between -1 and 1, where 1 means the vectors are
// identical, 0 means they are orthogonal, and -1 means they are opposite.
// For normalized embeddings the effective range is about [0, 1].
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same dimension: %d != %d", len(a), len(b))
	}

	var dotProduct float32
	var normA float32
	var normB float32

	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("one or both vectors have zero magnitude")
	}

	similarity := float64(dotProduct) / (math.Sqrt(float64(normA)) * math.Sqrt(float64(normB)))

	return similarity, nil
}
