package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
)

// Decision is the decoded result of a structured completion: Parsed or ParseError.
type Decision interface {
	decision()
}

// Parsed is a completion that matched the schema.
type Parsed struct {
	Reply         string
	Memory        string
	GenerateImage bool
}

// ParseError is a completion that did not match the schema.
type ParseError struct {
	Raw   string
	Cause error
}

func (Parsed) decision()     {}
func (ParseError) decision() {}

func (e ParseError) Error() string {
	return fmt.Sprintf("invalid structured response: %v", e.Cause)
}

func (e ParseError) Unwrap() error {
	return e.Cause
}

var (
	// ErrTrailingData is the cause when the payload holds more than one JSON value.
	ErrTrailingData = errors.New("unexpected data after JSON object")
	// ErrNotObject is the cause when the payload is not a JSON object.
	ErrNotObject = errors.New("expected a JSON object")
	// ErrUnknownField is the cause when a key is not part of the schema.
	ErrUnknownField = errors.New("unknown field")
	// ErrDuplicateField is the cause when a key appears more than once.
	ErrDuplicateField = errors.New("duplicate field")
)

// Field names of the decision schema, shared with the backends.
const (
	FieldReplyText           = "replyText"
	FieldMemoryText          = "memoryText"
	FieldShouldGenerateImage = "shouldGenerateImage"
)

type wireDecision struct {
	ReplyText           *string `json:"replyText" validate:"required"`
	MemoryText          *string `json:"memoryText" validate:"required"`
	ShouldGenerateImage *bool   `json:"shouldGenerateImage" validate:"required"`
}

var decisionValidator = validator.New(validator.WithRequiredStructEnabled())

// ParseDecision decodes raw strictly: exactly the three schema keys, matched
// case-sensitively and each once, and nothing after the object.
func ParseDecision(raw string) Decision {
	fields, err := decodeObject(raw)
	if err != nil {
		return ParseError{Raw: raw, Cause: err}
	}

	var wire wireDecision
	targets := map[string]any{
		FieldReplyText:           &wire.ReplyText,
		FieldMemoryText:          &wire.MemoryText,
		FieldShouldGenerateImage: &wire.ShouldGenerateImage,
	}
	for name, value := range fields {
		target, ok := targets[name]
		if !ok {
			return ParseError{Raw: raw, Cause: fmt.Errorf("%w: %q", ErrUnknownField, name)}
		}
		if err := json.Unmarshal(value, target); err != nil {
			return ParseError{Raw: raw, Cause: fmt.Errorf("field %q: %w", name, err)}
		}
	}
	if err := decisionValidator.Struct(wire); err != nil {
		return ParseError{Raw: raw, Cause: err}
	}

	return Parsed{
		Reply:         *wire.ReplyText,
		Memory:        *wire.MemoryText,
		GenerateImage: *wire.ShouldGenerateImage,
	}
}

// decodeObject splits a single top-level JSON object into its raw members.
// encoding/json folds key case and keeps the last duplicate, so keys are read
// token by token instead.
func decodeObject(raw string) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimSpace([]byte(raw))))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotObject
	}

	fields := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, ErrNotObject
		}
		if _, dup := fields[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, name)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		fields[name] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	return fields, nil
}
