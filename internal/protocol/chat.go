package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

func (m ChatMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.fields())
}

func (m *ChatMessage) UnmarshalJSON(b []byte) error {
	var in map[string]any
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	return m.setFields(in)
}

func (m ChatMessage) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(m.fields())
}

func (m *ChatMessage) DecodeMsgpack(dec *msgpack.Decoder) error {
	var in map[string]any
	if err := dec.Decode(&in); err != nil {
		return err
	}
	return m.setFields(in)
}

// TypeHint is the kind the web client announces in its type field, if any.
func (m ChatMessage) TypeHint() string {
	t, _ := m.Extra["type"].(string)
	return t
}

func (m ChatMessage) fields() map[string]any {
	out := make(map[string]any, len(m.Extra)+5)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["sender"] = m.Sender
	out["content"] = m.Content
	if m.ID != "" {
		out["id"] = m.ID
	}
	if m.Timestamp != "" {
		out["timestamp"] = m.Timestamp
	}
	if m.Kind != "" {
		out["kind"] = m.Kind
	}
	return out
}

func (m *ChatMessage) setFields(in map[string]any) error {
	var err error
	*m = ChatMessage{}
	for key, dst := range map[string]*string{
		"id":        &m.ID,
		"sender":    &m.Sender,
		"content":   &m.Content,
		"timestamp": &m.Timestamp,
		"kind":      &m.Kind,
	} {
		if *dst, err = stringField(in[key]); err != nil {
			return fmt.Errorf("message %s: %w", key, err)
		}
		delete(in, key)
	}
	if len(in) > 0 {
		m.Extra = in
	}
	return nil
}

// stringField reads a scalar as a string. Numbers are accepted because web
// clients send Date.now() ids.
func stringField(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return formatFloat(v), nil
	case float32:
		return formatFloat(float64(v)), nil
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	}
	return "", fmt.Errorf("unsupported value of type %T", v)
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
