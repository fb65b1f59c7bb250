//go:build hclshfastjson

package jsonx

import "github.com/bytedance/sonic"

func Unmarshal(b []byte, v any) error { return sonic.Unmarshal(b, v) }

func MarshalIndent(v any) ([]byte, error) { return sonic.MarshalIndent(v, "", "  ") }
