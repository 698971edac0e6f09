package pagination

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one key of a Config.
type Field struct {
	Key   string
	Value any
}

// Config is a pagination config that keeps its keys in authored order when
// rendered as JSON.
type Config []Field

// MarshalJSON implements json.Marshaler.
func (c Config) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, f := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(f.Key); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
		buf.WriteByte(':')
		if err := enc.Encode(f.Value); err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.Key, err)
		}
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the value stored under key.
func (c Config) Get(key string) (any, bool) {
	for _, f := range c {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// DecodeConfig decodes a JSON object keeping its top-level key order.
// Values are kept as json.RawMessage so nested objects keep theirs too.
func DecodeConfig(data []byte) (Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	c := Config{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		c = append(c, Field{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return c, nil
}

// storedPaginationConfig extracts pagination_config from a stored full
// config, keeping the stored key order. A pagination_config held as a JSON
// string is decoded.
func storedPaginationConfig(fullConfig string) (Config, bool) {
	full, err := DecodeConfig([]byte(fullConfig))
	if err != nil {
		return nil, false
	}
	v, ok := full.Get("pagination_config")
	if !ok {
		return nil, false
	}
	raw, _ := v.(json.RawMessage)

	var s string
	if json.Unmarshal(raw, &s) == nil {
		raw = json.RawMessage(s)
	}
	c, err := DecodeConfig(raw)
	if err != nil {
		return nil, false
	}
	return c, true
}
