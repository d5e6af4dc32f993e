// Package schema provides the two schema-facing concerns the domain layer
// above the protocol engine needs: reflecting a Go request type into a JSON
// Schema document (so a tools/list-style response can publish one without
// hand-writing it) and validating an arbitrary payload against an
// already-known schema document (so a request handler can reject malformed
// params before touching domain logic). Grounded on the gogentic schema
// reflector and the codegen tool's gojsonschema validation pass.
package schema

import (
	"encoding/json"
	"reflect"
	"strconv"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

var (
	cacheMu sync.RWMutex
	cache   = make(map[reflect.Type]*jsonschema.Schema)
)

// Reflect builds (and caches) a JSON Schema document for the Go type of v.
// Pass a nil pointer of the target type, e.g. Reflect((*MyParams)(nil)).
func Reflect(v any) *jsonschema.Schema {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	cacheMu.RLock()
	if s, ok := cache[t]; ok {
		cacheMu.RUnlock()
		return s
	}
	cacheMu.RUnlock()

	r := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	s := r.ReflectFromType(t)

	cacheMu.Lock()
	cache[t] = s
	cacheMu.Unlock()
	return s
}

// Validator checks a raw JSON payload against a schema document. Request
// handlers that want strict params validation ahead of their own decode can
// use one to turn a malformed payload into an InvalidParams error before any
// domain code runs.
type Validator interface {
	Validate(schema *jsonschema.Schema, payload json.RawMessage) error
}

// gojsonschemaValidator is the default Validator, backed by gojsonschema.
type gojsonschemaValidator struct{}

// NewValidator builds the default gojsonschema-backed Validator.
func NewValidator() Validator { return gojsonschemaValidator{} }

func (gojsonschemaValidator) Validate(schema *jsonschema.Schema, payload json.RawMessage) error {
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return errors.Wrap(err, "schema: marshal schema document")
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaBytes)
	documentLoader := gojsonschema.NewBytesLoader([]byte(payload))

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.Wrap(err, "schema: validate")
	}
	if result.Valid() {
		return nil
	}

	errs := result.Errors()
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.String())
	}
	return &ValidationError{Violations: msgs}
}

// ValidationError reports every schema violation found, not just the first.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "schema: validation failed"
	}
	msg := e.Violations[0]
	if len(e.Violations) > 1 {
		msg += " (+" + strconv.Itoa(len(e.Violations)-1) + " more)"
	}
	return msg
}
