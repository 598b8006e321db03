package pointcache

import (
	"encoding/json"
	"fmt"
)

// BodyState is the transform of one index map slot.
type BodyState struct {
	// Active is false for slots without a live body, their transform is not
	// meaningful
	Active      bool       `json:"active"`
	Position    [3]float64 `json:"position"`
	Orientation [4]float64 `json:"orientation"`
}

// Snapshot is the state of every slot at one frame.
type Snapshot struct {
	Frame  int         `json:"frame"`
	Bodies []BodyState `json:"bodies"`
}

func marshalBodies(bodies []BodyState) (string, error) {
	if bodies == nil {
		bodies = []BodyState{}
	}
	data, err := json.Marshal(bodies)
	if err != nil {
		return "", fmt.Errorf("marshal bodies: %w", err)
	}
	return string(data), nil
}

func unmarshalBodies(data string) ([]BodyState, error) {
	var bodies []BodyState
	if err := json.Unmarshal([]byte(data), &bodies); err != nil {
		return nil, fmt.Errorf("unmarshal bodies: %w", err)
	}
	return bodies, nil
}
