package wire

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeRequest serializes a request envelope with two-space indent.
// Indented output keeps the files inspectable on the shared mount.
func EncodeRequest(req *Request) ([]byte, error) {
	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode request %s: %w", req.RequestID, err)
	}
	return data, nil
}

// DecodeRequest parses and validates a request envelope.
// The payload is left raw; use DecodePayload for the typed form.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if req.RequestID == "" {
		return nil, fmt.Errorf("decode request: missing request_id")
	}
	if req.ClientID == "" {
		return nil, fmt.Errorf("decode request: missing client_id")
	}
	if !req.Operation.Valid() {
		return nil, fmt.Errorf("decode request %s: unsupported operation type: %q", req.RequestID, req.Operation)
	}
	return &req, nil
}

// EncodeResponse serializes a response envelope with two-space indent.
func EncodeResponse(resp *Response) ([]byte, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode response %s: %w", resp.RequestID, err)
	}
	return data, nil
}

// DecodeResponse parses and validates a response envelope.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.RequestID == "" {
		return nil, fmt.Errorf("decode response: missing request_id")
	}
	switch resp.Result.Status {
	case StatusSuccess, StatusError:
	default:
		return nil, fmt.Errorf("decode response %s: invalid result status %q", resp.RequestID, resp.Result.Status)
	}
	return &resp, nil
}

// FileName returns the envelope filename for a client/request pair.
// The same name is used in the requests and responses folders.
func FileName(clientID, requestID string) string {
	return clientID + "_" + requestID + ".json"
}

// ParseFileName splits an envelope filename into its client and
// request IDs. Generated client IDs never contain underscores, so the
// first underscore is the separator; request IDs may contain more
// (batch_import IDs do). Used as the last-resort identity source when
// an envelope body is unreadable.
func ParseFileName(name string) (clientID, requestID string, ok bool) {
	name = strings.TrimSuffix(name, ".json")
	clientID, requestID, ok = strings.Cut(name, "_")
	if !ok || clientID == "" || requestID == "" {
		return "", "", false
	}
	return clientID, requestID, true
}
