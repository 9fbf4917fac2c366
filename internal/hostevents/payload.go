package hostevents

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// connectError normalizes a connect_error event into an error. The
// handler runs inside the socket library's callback goroutine, so an
// empty or oddly typed payload must not panic.
func connectError(errs ...any) error {
	if len(errs) == 0 {
		return errors.New("connect_error with no payload")
	}
	if err, ok := errs[0].(error); ok {
		return err
	}
	return fmt.Errorf("connect_error: %v", errs[0])
}

// decodePayload normalizes a socket event argument into a map. Hosts
// deliver either a decoded object or a raw JSON string depending on
// transport.
func decodePayload(args ...any) (map[string]any, bool) {
	if len(args) == 0 {
		return nil, false
	}
	switch v := args[0].(type) {
	case map[string]any:
		return v, true
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, false
		}
		return m, true
	case []byte:
		var m map[string]any
		if err := json.Unmarshal(v, &m); err != nil {
			return nil, false
		}
		return m, true
	default:
		return nil, false
	}
}

// executingNode extracts the node identifier from an executing event.
// A null node means the round finished; that returns ok=false.
func executingNode(args ...any) (string, bool) {
	payload, ok := decodePayload(args...)
	if !ok {
		return "", false
	}
	switch v := payload["node"].(type) {
	case string:
		return v, v != ""
	case float64:
		return strconv.FormatInt(int64(v), 10), true
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}
