// Package jsonrpc implements the JSON-RPC 2.0 envelope encode/decode used by
// the MCP protocol engine: request/notification/response discrimination,
// batches, and the tagged string-or-integer identifiers the protocol carries.
package jsonrpc

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// IDKind discriminates the two legal wire representations of RequestID and
// ProgressToken.
type IDKind int

const (
	// IDKindString marks an id/token whose wire form is a JSON string.
	IDKindString IDKind = iota
	// IDKindInt marks an id/token whose wire form is a JSON number.
	IDKindInt
)

// RequestID is a tagged sum of string or signed integer, per spec §3. The
// zero value is the empty string id; it is never produced by the engine's id
// generator and is
// rejected on the request path (null ids are a protocol violation, not a
// valid identity to correlate against).
type RequestID struct {
	kind IDKind
	str  string
	num  int64
}

// NewStringID builds a string-flavored RequestID.
func NewStringID(s string) RequestID { return RequestID{kind: IDKindString, str: s} }

// NewIntID builds an integer-flavored RequestID.
func NewIntID(n int64) RequestID { return RequestID{kind: IDKindInt, num: n} }

// IsZero reports whether this is the forbidden empty/null id.
func (id RequestID) IsZero() bool {
	return id.kind == IDKindString && id.str == ""
}

// Kind reports which wire variant this id carries.
func (id RequestID) Kind() IDKind { return id.kind }

// String renders the id for logging and map keys. String and integer ids
// never collide because the kind is folded into the key ("s:foo" vs "i:12").
func (id RequestID) String() string {
	if id.kind == IDKindInt {
		return "i:" + strconv.FormatInt(id.num, 10)
	}
	return "s:" + id.str
}

// MarshalJSON renders the id as a bare JSON string or number.
func (id RequestID) MarshalJSON() ([]byte, error) {
	if id.kind == IDKindInt {
		return json.Marshal(id.num)
	}
	return json.Marshal(id.str)
}

// UnmarshalJSON accepts a JSON string or number. A JSON null decodes to the
// empty string id rather than erroring, per spec §9 open question; callers on
// the request path must still reject IsZero ids explicitly.
func (id *RequestID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = RequestID{kind: IDKindString, str: ""}
		return nil
	}
	if len(data) > 0 && data[0] != '"' {
		var asNum json.Number
		if err := json.Unmarshal(data, &asNum); err == nil {
			if n, err := asNum.Int64(); err == nil {
				*id = RequestID{kind: IDKindInt, num: n}
				return nil
			}
		}
	}
	var asStr string
	if err := json.Unmarshal(data, &asStr); err != nil {
		return errors.Wrap(err, "request id must be a string or integer")
	}
	*id = RequestID{kind: IDKindString, str: asStr}
	return nil
}

// ProgressToken is a tagged sum of string or integer, carried in request
// metadata (_meta.progressToken) independently of the request id.
type ProgressToken struct {
	kind IDKind
	str  string
	num  int64
}

// NewStringToken builds a string-flavored ProgressToken.
func NewStringToken(s string) ProgressToken { return ProgressToken{kind: IDKindString, str: s} }

// NewIntToken builds an integer-flavored ProgressToken.
func NewIntToken(n int64) ProgressToken { return ProgressToken{kind: IDKindInt, num: n} }

// Kind reports which wire variant this token carries.
func (t ProgressToken) Kind() IDKind { return t.kind }

// String renders the token for map keys, folding the kind into the key so
// string and integer tokens never collide.
func (t ProgressToken) String() string {
	if t.kind == IDKindInt {
		return "i:" + strconv.FormatInt(t.num, 10)
	}
	return "s:" + t.str
}

func (t ProgressToken) MarshalJSON() ([]byte, error) {
	if t.kind == IDKindInt {
		return json.Marshal(t.num)
	}
	return json.Marshal(t.str)
}

func (t *ProgressToken) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] != '"' {
		var asNum json.Number
		if err := json.Unmarshal(data, &asNum); err == nil {
			if n, err := asNum.Int64(); err == nil {
				*t = ProgressToken{kind: IDKindInt, num: n}
				return nil
			}
		}
	}
	var asStr string
	if err := json.Unmarshal(data, &asStr); err != nil {
		return errors.Wrap(err, "progress token must be a string or integer")
	}
	*t = ProgressToken{kind: IDKindString, str: asStr}
	return nil
}
