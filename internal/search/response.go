package search

import "encoding/json"

// BlockedCode is the top-level API code returned when anti-bot protection
// rejected the request.
const BlockedCode = -412

// missingCode is reported when the body has no usable code field.
const missingCode = -1

// Response is a decoded search response body.
//
// Body is whatever the JSON decoded to; it is normally a map with "code",
// "message" and "data" keys. Use the parser package to extract records.
type Response struct {
	Body any
}

// Code returns the top-level status code. A missing or non-numeric code
// is reported as -1, which callers treat like any other non-zero code.
func (r *Response) Code() int {
	m, ok := r.Body.(map[string]any)
	if !ok {
		return missingCode
	}
	switch v := m["code"].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return missingCode
		}
		return int(n)
	case float64:
		return int(v)
	default:
		return missingCode
	}
}

// Message returns the top-level message, or "" if absent.
func (r *Response) Message() string {
	m, ok := r.Body.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := m["message"].(string)
	return s
}

// IsBlocked reports whether the response carries BlockedCode.
func (r *Response) IsBlocked() bool {
	return r.Code() == BlockedCode
}
