package dispatch

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the business-level outcome reported back to the coordinator.
type Status string

const (
	StatusAccept Status = "accept"
	StatusReject Status = "reject"
)

// Kind is the coordinator instruction type as a closed set. Anything the
// coordinator sends outside the two known types parses to KindUnknown and
// is rejected; there is no silent fall-through.
type Kind int

const (
	KindUnknown Kind = iota
	KindAdvance
	KindInspect
)

// ParseKind maps the wire request_type to a Kind.
func ParseKind(requestType string) Kind {
	switch requestType {
	case "advance_state":
		return KindAdvance
	case "inspect_state":
		return KindInspect
	default:
		return KindUnknown
	}
}

// Request is one coordinator instruction after wire decoding.
type Request struct {
	Kind    Kind
	RawKind string // original request_type, kept for logging
	Payload []byte // hex-decoded payload bytes
}

// action is the advance envelope's action as a closed set.
type action int

const (
	actionUnknown action = iota
	actionRegister
	actionSubmit
)

func parseAction(s string) action {
	switch s {
	case "register":
		return actionRegister
	case "submit":
		return actionSubmit
	default:
		return actionUnknown
	}
}

// advanceEnvelope is the hex-decoded UTF-8 JSON body of an advance request.
type advanceEnvelope struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// registerPayload is the payload of action "register".
type registerPayload struct {
	DeviceID    string `json:"device_id"`
	DIDDocument string `json:"did_document"`
	PublicKey   string `json:"public_key"`
}

// submitPayload is the payload of action "submit". JWS may be empty; Data
// is hex-encoded raw sensor bytes.
type submitPayload struct {
	DeviceID string `json:"device_id"`
	JWS      string `json:"jws"`
	Data     string `json:"data"`
}

// DecodeHex decodes a hex string, tolerating a "0x" prefix.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return b, nil
}

// inspectQueryPrefix introduces the only supported inspect query form:
// "get_latest:<device_id>".
const inspectQueryPrefix = "get_latest:"

// parseInspectQuery extracts the device id from an inspect query. Returns
// false for any other query shape.
func parseInspectQuery(query string) (string, bool) {
	deviceID, ok := strings.CutPrefix(query, inspectQueryPrefix)
	if !ok || deviceID == "" {
		return "", false
	}
	return deviceID, true
}
