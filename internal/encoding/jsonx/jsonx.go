//go:build !hclshfastjson

// Package jsonx selects the JSON codec. Build with -tags hclshfastjson to use
// sonic.
package jsonx

import "encoding/json"

func Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

// MarshalIndent is used for files meant to be read by people.
func MarshalIndent(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }
