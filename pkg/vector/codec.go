package vector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

var indexMagic = [4]byte{'P', 'Q', 'I', 'X'}

const (
	indexVersion uint32 = 1
	chunksVersion       = 1

	// MaxIndexDimension bounds the dimension accepted from an index header.
	MaxIndexDimension = 1 << 16
)

// EncodeIndex writes idx to w in the binary index format:
//
//	[4B magic "PQIX"] [4B version] [4B dim] [8B count]
//	[count × dim × 4B float32, little-endian]
//	[8B xxhash64 of every preceding byte]
func EncodeIndex(w io.Writer, idx *FlatIndex) error {
	bw := bufio.NewWriter(w)
	digest := xxhash.New()
	mw := io.MultiWriter(bw, digest)

	le := binary.LittleEndian
	header := make([]byte, 0, 20)
	header = append(header, indexMagic[:]...)
	header = le.AppendUint32(header, indexVersion)
	header = le.AppendUint32(header, uint32(idx.Dimension()))
	header = le.AppendUint64(header, uint64(idx.Len()))
	if _, err := mw.Write(header); err != nil {
		return fmt.Errorf("writing index header: %w", err)
	}

	row := make([]byte, idx.Dimension()*4)
	for i := range idx.Len() {
		for j, f := range idx.Row(i) {
			le.PutUint32(row[j*4:], math.Float32bits(f))
		}
		if _, err := mw.Write(row); err != nil {
			return fmt.Errorf("writing index row %d: %w", i, err)
		}
	}

	if err := binary.Write(bw, le, digest.Sum64()); err != nil {
		return fmt.Errorf("writing index checksum: %w", err)
	}

	return bw.Flush()
}

// DecodeIndex reads an index written by EncodeIndex.
func DecodeIndex(r io.Reader) (*FlatIndex, error) {
	br := bufio.NewReader(r)
	digest := xxhash.New()
	tr := io.TeeReader(br, digest)

	le := binary.LittleEndian
	header := make([]byte, 20)
	if _, err := io.ReadFull(tr, header); err != nil {
		return nil, fmt.Errorf("%w: reading index header: %v", ErrCorruptSnapshot, err)
	}
	if !bytes.Equal(header[:4], indexMagic[:]) {
		return nil, fmt.Errorf("%w: bad index magic %q", ErrCorruptSnapshot, header[:4])
	}
	if v := le.Uint32(header[4:]); v != indexVersion {
		return nil, fmt.Errorf("%w: unsupported index version %d", ErrCorruptSnapshot, v)
	}

	dim := int(le.Uint32(header[8:]))
	count := le.Uint64(header[12:])
	if dim == 0 && count > 0 {
		return nil, fmt.Errorf("%w: %d rows with zero dimension", ErrCorruptSnapshot, count)
	}
	if dim > MaxIndexDimension {
		return nil, fmt.Errorf("%w: index dimension %d exceeds %d", ErrCorruptSnapshot, dim, MaxIndexDimension)
	}

	idx := NewFlatIndex(dim)
	row := make([]byte, dim*4)
	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(tr, row); err != nil {
			return nil, fmt.Errorf("%w: reading index row %d: %v", ErrCorruptSnapshot, i, err)
		}
		for j := range dim {
			idx.data = append(idx.data, math.Float32frombits(le.Uint32(row[j*4:])))
		}
	}

	var sum uint64
	if err := binary.Read(br, le, &sum); err != nil {
		return nil, fmt.Errorf("%w: reading index checksum: %v", ErrCorruptSnapshot, err)
	}
	if sum != digest.Sum64() {
		return nil, fmt.Errorf("%w: index checksum mismatch", ErrCorruptSnapshot)
	}

	return idx, nil
}

type chunksEnvelope struct {
	Version int     `msgpack:"version"`
	Chunks  []Chunk `msgpack:"chunks"`
}

// EncodeChunks writes the ordered chunk sequence to w with msgpack.
func EncodeChunks(w io.Writer, chunks []Chunk) error {
	if chunks == nil {
		chunks = []Chunk{}
	}
	return msgpack.NewEncoder(w).Encode(&chunksEnvelope{
		Version: chunksVersion,
		Chunks:  chunks,
	})
}

// DecodeChunks reads a chunk sequence written by EncodeChunks.
func DecodeChunks(r io.Reader) ([]Chunk, error) {
	var env chunksEnvelope
	if err := msgpack.NewDecoder(r).Decode(&env); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty chunk file", ErrCorruptSnapshot)
		}
		return nil, fmt.Errorf("%w: decoding chunks: %v", ErrCorruptSnapshot, err)
	}
	if env.Version != chunksVersion {
		return nil, fmt.Errorf("%w: unsupported chunk file version %d", ErrCorruptSnapshot, env.Version)
	}
	if env.Chunks == nil {
		env.Chunks = []Chunk{}
	}
	return env.Chunks, nil
}
