package cache

import (
	"encoding/json"
	"fmt"

	"github.com/pitabwire/sdui/model"
)

func encode(data *model.CachedMicroappData) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal microapp %q: %w", data.MicroappCode, err)
	}
	return raw, nil
}

func decode(code string, raw []byte) (*model.CachedMicroappData, error) {
	var data model.CachedMicroappData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshal microapp %q: %w", code, err)
	}
	return &data, nil
}
