package repo

import (
	"encoding/json"
	"fmt"
)

// marshalJSON сериализует map в JSONB; nil остаётся NULL.
func marshalJSON(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return data, nil
}

// unmarshalJSON разбирает JSONB; NULL даёт nil.
func unmarshalJSON(data []byte) (map[string]any, error) {
	if data == nil {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal json: %w", err)
	}
	return m, nil
}
