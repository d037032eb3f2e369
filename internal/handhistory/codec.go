package handhistory

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Marshal encodes h with stable, indented field order.
func Marshal(h *Hand) ([]byte, error) {
	b, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal hand %s: %w", h.Metadata.HandID, err)
	}
	return b, nil
}

// Unmarshal decodes a single hand without validating it.
func Unmarshal(data []byte) (*Hand, error) {
	var h Hand
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: decode hand: %v", ErrMalformed, err)
	}
	return &h, nil
}

// Parse decodes and validates a single hand.
func Parse(data []byte) (*Hand, error) {
	h, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(h); err != nil {
		return nil, err
	}
	return h, nil
}

// ToDict converts h into its generic JSON-shaped form.
func (h *Hand) ToDict() (map[string]any, error) {
	b, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshal hand: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("to dict: %w", err)
	}
	return out, nil
}

// FromDict rebuilds a hand from the form produced by ToDict.
func FromDict(d map[string]any) (*Hand, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("%w: encode dict: %v", ErrMalformed, err)
	}
	return Unmarshal(b)
}

// DecodeAll reads every hand in r. It accepts a single JSON object, a JSON
// array of objects, or one object per line. Hands are not validated.
func DecodeAll(r io.Reader) ([]*Hand, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read hands: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var hands []*Hand
		if err := json.Unmarshal(trimmed, &hands); err != nil {
			return nil, fmt.Errorf("%w: decode hand array: %v", ErrMalformed, err)
		}
		return hands, nil
	}

	if h, err := Unmarshal(trimmed); err == nil {
		return []*Hand{h}, nil
	}

	var hands []*Hand
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		h, err := Unmarshal(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		hands = append(hands, h)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan hands: %w", err)
	}
	return hands, nil
}

// ReadFile decodes every hand in path.
func ReadFile(path string) ([]*Hand, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	hands, err := DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return hands, nil
}

// WriteFile writes h as an indented JSON document.
func WriteFile(path string, h *Hand) error {
	b, err := Marshal(h)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
