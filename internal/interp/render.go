package interp

import (
	"strings"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// render formats v as HCL source, the way results are echoed.
func render(v cty.Value) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = v.GoString()
		}
	}()
	if !v.IsWhollyKnown() {
		return "(unknown)"
	}
	src := hclwrite.TokensForValue(v).Bytes()
	return strings.TrimSpace(string(hclwrite.Format(src)))
}

// display is render except that strings come out bare.
func display(v cty.Value) string {
	if v.IsKnown() && !v.IsNull() && v.Type() == cty.String {
		return v.AsString()
	}
	return render(v)
}
