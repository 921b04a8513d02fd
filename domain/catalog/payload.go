package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"strings"
)

// Payload is the body of a successful response. JSON bodies are decoded
// into Value; anything else is kept verbatim in Text. Payloads are shared
// between cache readers and must be treated as read-only.
type Payload struct {
	ContentType string
	Value       any
	Text        string
	JSON        bool
	raw         []byte
}

// IsJSONContentType reports whether a Content-Type header denotes JSON.
func IsJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "application/json")
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// NewPayload builds a payload from a response body, decoding it as JSON
// when the content type says so.
func NewPayload(contentType string, body []byte) (Payload, error) {
	if !IsJSONContentType(contentType) {
		return TextPayload(contentType, string(body)), nil
	}
	return JSONPayload(contentType, body)
}

// JSONPayload decodes body as a JSON document. An empty body decodes to null.
func JSONPayload(contentType string, body []byte) (Payload, error) {
	var v any
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &v); err != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}
	raw := make([]byte, len(body))
	copy(raw, body)
	return Payload{ContentType: contentType, Value: v, JSON: true, raw: raw}, nil
}

// TextPayload wraps a non-JSON body.
func TextPayload(contentType, text string) Payload {
	return Payload{ContentType: contentType, Text: text}
}

// ValuePayload wraps an already decoded JSON value.
func ValuePayload(v any) Payload {
	return Payload{ContentType: "application/json", Value: v, JSON: true}
}

// Decode unmarshals a JSON payload into v.
func (p Payload) Decode(v any) error {
	if !p.JSON {
		return fmt.Errorf("%w: payload is %q, not JSON", ErrDecode, p.ContentType)
	}
	raw := p.raw
	if len(bytes.TrimSpace(raw)) == 0 {
		b, err := json.Marshal(p.Value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		raw = b
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// Size returns the approximate size of the payload in bytes.
func (p Payload) Size() int {
	if p.JSON {
		return len(p.raw)
	}
	return len(p.Text)
}
