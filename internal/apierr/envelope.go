package apierr

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed envelope.yaml
var envelopeDoc []byte

const errorEnvelopeName = "ErrorEnvelope"

var loadErrorSchema = sync.OnceValues(func() (*openapi3.Schema, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(envelopeDoc)
	if err != nil {
		return nil, fmt.Errorf("failed to load envelope schema: %w", err)
	}
	ref, ok := doc.Components.Schemas[errorEnvelopeName]
	if !ok || ref.Value == nil {
		return nil, fmt.Errorf("envelope schema %q not defined", errorEnvelopeName)
	}
	return ref.Value, nil
})

// Envelope is the decoded form of an API response body: either a successful
// payload (OK) or a business failure reported by the server (Err).
type Envelope struct {
	OK  json.RawMessage
	Err string
}

// IsError reports whether the server signalled a business failure.
func (e Envelope) IsError() bool {
	return e.Err != ""
}

type errorBody struct {
	Error string `json:"error"`
}

// DecodeEnvelope parses body and classifies it against the error envelope
// schema. It fails only when body is not JSON.
func DecodeEnvelope(body []byte) (Envelope, error) {
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return Envelope{}, err
	}

	schema, err := loadErrorSchema()
	if err != nil {
		return Envelope{}, err
	}

	if schema.VisitJSON(value) == nil {
		var eb errorBody
		if err := json.Unmarshal(body, &eb); err != nil {
			return Envelope{}, err
		}
		return Envelope{Err: eb.Error}, nil
	}

	return Envelope{OK: json.RawMessage(body)}, nil
}

// Decode unmarshals a successful payload into T.
func Decode[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}
