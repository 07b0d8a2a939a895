package rest

import (
	"encoding/json"
)

// The backend wraps responses inconsistently: sometimes `{"data":{"list":[…]}}`,
// sometimes `{"data":[…]}`, sometimes `{"list":[…]}`, sometimes a bare array
// or object. decodeList and decodeObject try each shape in turn.

type listEnvelope struct {
	Data json.RawMessage `json:"data"`
	List json.RawMessage `json:"list"`
}

// decodeList unmarshals a list payload out of any known envelope shape into
// out (a pointer to a slice).
func decodeList(data []byte, out any) error {
	// Bare array.
	if err := json.Unmarshal(data, out); err == nil {
		return nil
	}

	var env listEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ErrBadEnvelope
	}

	if len(env.List) > 0 {
		if err := json.Unmarshal(env.List, out); err == nil {
			return nil
		}
	}
	if len(env.Data) > 0 {
		// `data` may itself be the list, or a nested `{"list":[…]}`.
		if err := json.Unmarshal(env.Data, out); err == nil {
			return nil
		}
		var inner listEnvelope
		if err := json.Unmarshal(env.Data, &inner); err == nil && len(inner.List) > 0 {
			if err := json.Unmarshal(inner.List, out); err == nil {
				return nil
			}
		}
	}
	return ErrBadEnvelope
}

// decodeObject unmarshals a single object, tolerating a `data` wrapper.
func decodeObject(data []byte, out any) error {
	var env listEnvelope
	if err := json.Unmarshal(data, &env); err == nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err == nil {
			return nil
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return ErrBadEnvelope
	}
	return nil
}
