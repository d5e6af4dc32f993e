package jsonrpc

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/valyala/bytebufferpool"
)

// envelopeProbe is unmarshaled first to discriminate the frame shape without
// committing to a concrete type, mirroring the teacher's deserializeMessage
// switch on "id"/"method"/"error" presence.
type envelopeProbe struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  json.RawMessage `json:"method"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

// Codec decodes and encodes JSON-RPC 2.0 frames. It is safe for concurrent
// use; it holds no mutable state of its own.
type Codec struct{}

// NewCodec constructs a Codec. It exists for symmetry with the rest of the
// engine's constructors and to leave room for future options.
func NewCodec() *Codec { return &Codec{} }

// Decode parses a single wire frame (object or array) into a Message. A
// top-level JSON array decodes to KindBatch; anything that fails the version
// check or matches none of the envelope shapes decodes to KindUnrecognized
// rather than erroring, so the caller (the engine's receive loop) can log and
// drop it per spec §7.
func (c *Codec) Decode(data []byte) (Message, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Message{}, errors.New("empty frame")
	}
	if trimmed[0] == '[' {
		var raws []json.RawMessage
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return Message{}, errors.Wrap(err, "decode batch")
		}
		batch := make([]Message, 0, len(raws))
		for _, raw := range raws {
			m, err := c.Decode(raw)
			if err != nil {
				return Message{}, err
			}
			batch = append(batch, m)
		}
		return Message{Kind: KindBatch, Batch: batch}, nil
	}

	var probe envelopeProbe
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return Message{Kind: KindUnrecognized, Raw: json.RawMessage(trimmed)}, nil
	}
	if probe.JSONRPC != Version {
		return Message{}, errors.Errorf("unsupported jsonrpc version %q", probe.JSONRPC)
	}

	switch {
	case len(probe.Method) > 0 && len(probe.ID) > 0:
		var req Request
		if err := json.Unmarshal(trimmed, &req); err != nil {
			return Message{}, errors.Wrap(err, "decode request")
		}
		return Message{Kind: KindRequest, Request: &req}, nil
	case len(probe.Method) > 0:
		var notif Notification
		if err := json.Unmarshal(trimmed, &notif); err != nil {
			return Message{}, errors.Wrap(err, "decode notification")
		}
		return Message{Kind: KindNotification, Notification: &notif}, nil
	case len(probe.Result) > 0 || len(probe.Error) > 0:
		var resp Response
		if err := json.Unmarshal(trimmed, &resp); err != nil {
			return Message{}, errors.Wrap(err, "decode response")
		}
		return Message{Kind: KindResponse, Response: &resp}, nil
	default:
		return Message{Kind: KindUnrecognized, Raw: json.RawMessage(trimmed)}, nil
	}
}

// EncodeRequest renders a request envelope as canonical JSON.
func (c *Codec) EncodeRequest(r *Request) ([]byte, error) {
	r.JSONRPC = Version
	return marshal(r)
}

// EncodeNotification renders a notification envelope.
func (c *Codec) EncodeNotification(n *Notification) ([]byte, error) {
	n.JSONRPC = Version
	return marshal(n)
}

// EncodeResponse renders a response envelope. When extraFields is non-nil it
// is merged onto the encoded object's result payload via sjson so unknown
// top-level result fields decoded earlier survive re-encoding unchanged
// (spec §4.1 forward compatibility); extraFields keys are JSON pointer-style
// paths rooted at "result.".
func (c *Codec) EncodeResponse(r *Response, extraFields map[string]json.RawMessage) ([]byte, error) {
	r.JSONRPC = Version
	buf, err := marshal(r)
	if err != nil {
		return nil, err
	}
	if len(extraFields) == 0 {
		return buf, nil
	}
	out := buf
	var setErr error
	for path, raw := range extraFields {
		out, setErr = sjson.SetRawBytes(out, "result."+path, raw)
		if setErr != nil {
			return nil, errors.Wrapf(setErr, "merge forward-compat field %q", path)
		}
	}
	return out, nil
}

// ExtractUnknownResultFields returns the top-level keys of a decoded result
// object that are not named in known, so the caller can stash them and
// re-attach them with EncodeResponse's extraFields on a later re-encode.
func ExtractUnknownResultFields(result json.RawMessage, known map[string]struct{}) map[string]json.RawMessage {
	if len(result) == 0 {
		return nil
	}
	parsed := gjson.ParseBytes(result)
	if !parsed.IsObject() {
		return nil
	}
	var unknown map[string]json.RawMessage
	parsed.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if _, ok := known[k]; ok {
			return true
		}
		if unknown == nil {
			unknown = make(map[string]json.RawMessage)
		}
		unknown[k] = json.RawMessage(value.Raw)
		return true
	})
	return unknown
}

func marshal(v any) ([]byte, error) {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	enc := json.NewEncoder(bb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "marshal envelope")
	}
	out := make([]byte, bb.Len())
	copy(out, bb.Bytes())
	return bytes.TrimRight(out, "\n"), nil
}
