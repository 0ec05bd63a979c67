package comparator

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
)

const defaultTolerance = 1e-6

// compareExact is deep structural equality after JSON normalization, so
// key order and number formatting differences do not matter. Outputs that
// are not valid JSON fall back to a trimmed string comparison.
func compareExact(actual, expected json.RawMessage, _ Options) (bool, error) {
	actualVal, actualErr := decodeValue(actual)
	expectedVal, expectedErr := decodeValue(expected)
	if actualErr != nil || expectedErr != nil {
		return strings.TrimSpace(string(actual)) == strings.TrimSpace(string(expected)), nil
	}
	return reflect.DeepEqual(actualVal, expectedVal), nil
}

// compareUnordered treats both values as multisets: equal when they hold
// the same elements with the same multiplicities, in any order.
func compareUnordered(actual, expected json.RawMessage, _ Options) (bool, error) {
	actualItems, err := decodeArray(actual)
	if err != nil {
		return false, nil
	}
	expectedItems, err := decodeArray(expected)
	if err != nil {
		return false, fmt.Errorf("expected value is not an array: %w", err)
	}
	if len(actualItems) != len(expectedItems) {
		return false, nil
	}

	counts := make(map[string]int, len(expectedItems))
	for _, item := range expectedItems {
		key, err := canonicalKey(item)
		if err != nil {
			return false, err
		}
		counts[key]++
	}
	for _, item := range actualItems {
		key, err := canonicalKey(item)
		if err != nil {
			return false, err
		}
		counts[key]--
		if counts[key] < 0 {
			return false, nil
		}
	}
	return true, nil
}

// compareTolerance compares numbers within an absolute tolerance,
// recursing through arrays and objects. Non-numeric leaves must match
// exactly.
func compareTolerance(actual, expected json.RawMessage, opts Options) (bool, error) {
	tolerance := opts.Tolerance
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	actualVal, err := decodeValue(actual)
	if err != nil {
		return false, nil
	}
	expectedVal, err := decodeValue(expected)
	if err != nil {
		return false, fmt.Errorf("expected value is not valid JSON: %w", err)
	}
	return equalWithin(actualVal, expectedVal, tolerance), nil
}

func equalWithin(actual, expected any, tolerance float64) bool {
	switch exp := expected.(type) {
	case float64:
		act, ok := actual.(float64)
		if !ok {
			return false
		}
		return math.Abs(act-exp) <= tolerance
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !equalWithin(act[i], exp[i], tolerance) {
				return false
			}
		}
		return true
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for key, expItem := range exp {
			actItem, ok := act[key]
			if !ok || !equalWithin(actItem, expItem, tolerance) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(actual, expected)
	}
}

func decodeValue(raw json.RawMessage) (any, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return value, nil
}

func decodeArray(raw json.RawMessage) ([]any, error) {
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// canonicalKey renders a decoded value back to JSON, which sorts object
// keys and normalizes number formatting, giving a stable multiset key.
func canonicalKey(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("canonicalize element: %w", err)
	}
	return string(data), nil
}
