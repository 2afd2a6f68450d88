package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedValue indicates a value cannot be represented in the
// active codec's format (for example a channel or function under JSON).
var ErrUnsupportedValue = errors.New("value not representable in codec format")

// Codec encodes and decodes one record at a time.
// It is injected into backends and iterators so serialization format is
// independent of iteration behavior.
type Codec interface {
	// Encode serializes a single value.
	// Returns an error wrapping ErrUnsupportedValue if the value cannot
	// be represented in the codec's format.
	Encode(v any) ([]byte, error)

	// Decode deserializes data into v, which must be a pointer.
	Decode(data []byte, v any) error
}

// JSONCodec encodes records as compact JSON, one value per record.
// This is the line format of streaming checkpoints.
type JSONCodec struct{}

// Compile-time interface checks.
var (
	_ Codec = JSONCodec{}
	_ Codec = YAMLCodec{}
)

// Encode implements Codec.
func (JSONCodec) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}
	return data, nil
}

// Decode implements Codec.
func (JSONCodec) Decode(data []byte, v any) error {
	if err := json.Unmarshal(bytes.TrimSpace(data), v); err != nil {
		return fmt.Errorf("decode json record: %w", err)
	}
	return nil
}

// YAMLCodec encodes records as YAML documents.
// YAML records may span multiple lines, so this codec suits whole-file
// mapping backends rather than streaming checkpoints.
type YAMLCodec struct{}

// Encode implements Codec.
func (YAMLCodec) Encode(v any) ([]byte, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}
	return data, nil
}

// Decode implements Codec.
func (YAMLCodec) Decode(data []byte, v any) error {
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode yaml record: %w", err)
	}
	return nil
}
