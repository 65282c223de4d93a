package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/born-ml/accel/internal/tensor"
)

const metadataKey = "__metadata__"

// TensorHeader describes one tensor in the SafeTensors header.
type TensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// File is the decoded content of a SafeTensors file.
type File struct {
	Tensors  map[string]*tensor.Blob
	Metadata map[string]string
}

// Names returns the tensor names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Tensors))
	for name := range f.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteFile writes tensors to a SafeTensors file at path.
func WriteFile(path string, tensors map[string]*tensor.Blob, metadata map[string]string) error {
	//nolint:gosec // G304: File path comes from user input, which is expected for weight saving
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := Write(f, tensors, metadata); err != nil {
		_ = f.Close() // Best effort close on error
		return err
	}
	return f.Close()
}

// Write encodes tensors (their data, not their diffs) in SafeTensors format.
//
// Tensors are written in alphabetical order by name.
func Write(w io.Writer, tensors map[string]*tensor.Blob, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var data bytes.Buffer
	header := make(map[string]any, len(names)+1)
	for _, name := range names {
		blob := tensors[name]
		begin := int64(data.Len())
		if err := binary.Write(&data, binary.LittleEndian, blob.Data()); err != nil {
			return fmt.Errorf("failed to encode tensor %s: %w", name, err)
		}

		shape := make([]int64, len(blob.Shape()))
		for i, dim := range blob.Shape() {
			shape[i] = int64(dim)
		}
		header[name] = TensorHeader{
			DType:       "F32",
			Shape:       shape,
			DataOffsets: [2]int64{begin, int64(data.Len())},
		}
	}

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[checksumKey] = ComputeChecksum(data.Bytes())
	header[metadataKey] = meta

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	// Write header size (8 bytes, little-endian uint64)
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(data.Bytes()); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

// ReadFile reads a SafeTensors file from path.
func ReadFile(path string) (*File, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for weight loading
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = f.Close() // Best effort close
	}()
	return Read(f)
}

// Read decodes a SafeTensors stream into blobs.
func Read(r io.Reader) (*File, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	file := &File{Tensors: make(map[string]*tensor.Blob, len(raw))}
	if msg, ok := raw[metadataKey]; ok {
		if err := json.Unmarshal(msg, &file.Metadata); err != nil {
			return nil, fmt.Errorf("failed to parse metadata: %w", err)
		}
		delete(raw, metadataKey)
	}
	if sum, ok := file.Metadata[checksumKey]; ok {
		if err := ValidateChecksum(data, sum); err != nil {
			return nil, err
		}
	}

	headers := make(map[string]TensorHeader, len(raw))
	spans := make([]span, 0, len(raw))
	for name, msg := range raw {
		if err := ValidateTensorName(name); err != nil {
			return nil, err
		}
		var h TensorHeader
		if err := json.Unmarshal(msg, &h); err != nil {
			return nil, fmt.Errorf("failed to parse header of tensor %s: %w", name, err)
		}
		if h.DType != "F32" {
			return nil, fmt.Errorf("tensor %s: %w %q", name, ErrUnsupportedDType, h.DType)
		}
		headers[name] = h
		spans = append(spans, span{name: name, begin: h.DataOffsets[0], end: h.DataOffsets[1]})
	}
	if err := validateSpans(spans, int64(len(data))); err != nil {
		return nil, err
	}

	for name, h := range headers {
		blob, err := decodeF32(name, h, data[h.DataOffsets[0]:h.DataOffsets[1]])
		if err != nil {
			return nil, err
		}
		file.Tensors[name] = blob
	}
	return file, nil
}

func decodeF32(name string, h TensorHeader, raw []byte) (*tensor.Blob, error) {
	shape := make([]int, len(h.Shape))
	for i, dim := range h.Shape {
		shape[i] = int(dim)
	}
	blob, err := tensor.NewBlob(shape...)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	if want := blob.Count() * 4; len(raw) != want {
		return nil, &ValidationError{
			Err:     ErrOutOfBounds,
			Tensor:  name,
			Details: fmt.Sprintf("%d bytes for shape %v, want %d", len(raw), shape, want),
		}
	}
	values := blob.Data()
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return blob, nil
}
