package fuzz

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/sanity-io/odm"
)

func Fuzz(data []byte) int {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var left, right map[string]interface{}

	err := dec.Decode(&left)
	if err != nil {
		return -1
	}

	err = dec.Decode(&right)
	if err != nil {
		return -1
	}

	odm.Normalize(left)
	odm.Normalize(right)

	// Field paths cannot address these keys.
	if !addressable(left) || !addressable(right) {
		return -1
	}

	// Array removals drop every occurrence of an item.
	if !distinct(left) {
		return 0
	}

	check(left, right, true)

	// Float increments are subject to rounding.
	if integral(left) && integral(right) {
		check(left, right, false)
	}

	return 1
}

func check(left, right map[string]interface{}, noTransform bool) {
	updates, err := odm.GenerateUpdates(left, right, noTransform)
	if err != nil {
		panic(err)
	}

	result, err := odm.ApplyUpdates(left, updates)
	if err != nil {
		panic(err)
	}

	if !odm.Equal(result, right) {
		if noTransform {
			panic("updates are incorrect")
		}
		panic("transformed updates are incorrect")
	}
}

func addressable(v interface{}) bool {
	switch v := v.(type) {
	case map[string]interface{}:
		for key, child := range v {
			if key == "" || strings.Contains(key, odm.PathSeparator) || !addressable(child) {
				return false
			}
		}
	case []interface{}:
		for _, child := range v {
			if !addressable(child) {
				return false
			}
		}
	}
	return true
}

func distinct(v interface{}) bool {
	switch v := v.(type) {
	case map[string]interface{}:
		for _, child := range v {
			if !distinct(child) {
				return false
			}
		}
	case []interface{}:
		for i, child := range v {
			if !distinct(child) {
				return false
			}
			for _, other := range v[:i] {
				if odm.Equal(child, other) {
					return false
				}
			}
		}
	}
	return true
}

func integral(v interface{}) bool {
	switch v := v.(type) {
	case float64:
		return false
	case int64:
		return v > -1<<52 && v < 1<<52
	case map[string]interface{}:
		for _, child := range v {
			if !integral(child) {
				return false
			}
		}
	case []interface{}:
		for _, child := range v {
			if !integral(child) {
				return false
			}
		}
	}
	return true
}
