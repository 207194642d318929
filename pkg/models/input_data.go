package models

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// InputData is the ordered key/value payload handed to a sub-workflow run.
type InputData = orderedmap.OrderedMap[string, any]

// NewInputData builds input data from alternating key/value pairs, keeping their order.
func NewInputData(pairs ...orderedmap.Pair[string, any]) *InputData {
	return orderedmap.New[string, any](orderedmap.WithInitialData(pairs...))
}

// InputDataFromMap converts a plain map. Go maps carry no order, so keys keep the iteration order of m.
func InputDataFromMap(m map[string]any) *InputData {
	data := orderedmap.New[string, any](len(m))
	for key, value := range m {
		data.Set(key, value)
	}

	return data
}

// CloneInputData returns a shallow copy so callers never share an ordered map across runs.
func CloneInputData(data *InputData) *InputData {
	if data == nil {
		return orderedmap.New[string, any]()
	}

	clone := orderedmap.New[string, any](data.Len())
	for pair := data.Oldest(); pair != nil; pair = pair.Next() {
		clone.Set(pair.Key, pair.Value)
	}

	return clone
}

// InputDataToMap flattens ordered input data into a plain map.
func InputDataToMap(data *InputData) map[string]any {
	if data == nil {
		return map[string]any{}
	}

	result := make(map[string]any, data.Len())
	for pair := data.Oldest(); pair != nil; pair = pair.Next() {
		result[pair.Key] = pair.Value
	}

	return result
}
