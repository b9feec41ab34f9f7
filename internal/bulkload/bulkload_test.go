package bulkload

import (
	"testing"

	"github.com/launix-de/lumadb/internal/ir"
)

func TestParseCSVLiteral(t *testing.T) {
	cases := []struct {
		in   string
		kind ir.Kind
	}{
		{"", ir.KindNull},
		{"42", ir.KindInt},
		{"-7", ir.KindInt},
		{"3.14", ir.KindFloat},
		{"hello", ir.KindText},
		{"007x", ir.KindText},
	}
	for _, c := range cases {
		v := parseCSVLiteral(c.in)
		if v.Kind() != c.kind {
			t.Errorf("parseCSVLiteral(%q).Kind() = %v, want %v", c.in, v.Kind(), c.kind)
		}
	}

	if parseCSVLiteral("42").Int() != 42 {
		t.Error("parseCSVLiteral(\"42\") should carry the int value 42")
	}
	if parseCSVLiteral("3.14").Float() != 3.14 {
		t.Error("parseCSVLiteral(\"3.14\") should carry the float value 3.14")
	}
}

func TestJSONToIR(t *testing.T) {
	if jsonToIR(nil).Kind() != ir.KindNull {
		t.Error("jsonToIR(nil) should produce KindNull")
	}
	if v := jsonToIR(true); v.Kind() != ir.KindBool || !v.Bool() {
		t.Error("jsonToIR(true) should produce KindBool carrying true")
	}
	if v := jsonToIR(2.5); v.Kind() != ir.KindFloat || v.Float() != 2.5 {
		t.Error("jsonToIR(2.5) should produce KindFloat carrying 2.5")
	}
	if v := jsonToIR("x"); v.Kind() != ir.KindText || v.Text() != "x" {
		t.Error("jsonToIR(\"x\") should produce KindText carrying \"x\"")
	}

	// Arrays/objects round-trip through raw JSON text rather than a
	// recursively-built ir.List/ir.Map.
	arr := []interface{}{"a", float64(1)}
	v := jsonToIR(arr)
	if v.Kind() != ir.KindJSON {
		t.Fatalf("jsonToIR(array).Kind() = %v, want KindJSON", v.Kind())
	}
	if v.JSON() != `["a",1]` {
		t.Errorf("jsonToIR(array).JSON() = %q, want %q", v.JSON(), `["a",1]`)
	}
}

func TestImportFileMissingFileReturnsError(t *testing.T) {
	if err := ImportFile(nil, "/nonexistent/path.csv", "t"); err == nil {
		t.Error("ImportFile on a missing file should return an error before ever touching the engine")
	}
}
