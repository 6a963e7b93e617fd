package generator

import (
	"reflect"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/getkin/kin-openapi/openapi3"
)

func fixedGenerator() *Generator {
	return New(gofakeit.New(42))
}

func TestGenerateDeterministic(t *testing.T) {
	schema := &openapi3.Schema{
		Type: &openapi3.Types{"object"},
		Properties: openapi3.Schemas{
			"name":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
			"email": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
			"age":   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}},
		},
	}
	a := New(gofakeit.New(7)).Generate(schema)
	b := New(gofakeit.New(7)).Generate(schema)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed produced different output:\n%v\n%v", a, b)
	}
}

func TestGenerateDefaultAndEnumWin(t *testing.T) {
	g := fixedGenerator()
	withDefault := &openapi3.Schema{Type: &openapi3.Types{"string"}, Default: "fixed"}
	if got := g.Generate(withDefault); got != "fixed" {
		t.Errorf("default ignored: got %v", got)
	}
	withEnum := &openapi3.Schema{Type: &openapi3.Types{"string"}, Enum: []any{"red", "blue"}}
	if got := g.Generate(withEnum); got != "red" {
		t.Errorf("enum first value not used: got %v", got)
	}
}

func TestGenerateStringFormats(t *testing.T) {
	g := fixedGenerator()
	tests := []struct {
		format string
		check  func(string) bool
	}{
		{"email", func(s string) bool { return strings.Contains(s, "@") }},
		{"uuid", func(s string) bool { return len(s) == 36 }},
		{"date", func(s string) bool { return len(s) == 10 && s[4] == '-' }},
		{"ipv4", func(s string) bool { return strings.Count(s, ".") == 3 }},
		{"uri", func(s string) bool { return strings.HasPrefix(s, "http") }},
	}
	for _, tt := range tests {
		schema := &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: tt.format}
		got, ok := g.Generate(schema).(string)
		if !ok || !tt.check(got) {
			t.Errorf("format %q produced %q", tt.format, got)
		}
	}
}

func TestGenerateNameHeuristics(t *testing.T) {
	g := fixedGenerator()
	schema := &openapi3.Schema{
		Type: &openapi3.Types{"object"},
		Properties: openapi3.Schemas{
			"email":       &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
			"avatarImage": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
			"price":       &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}}},
			"userId":      &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}},
		},
	}
	out, ok := g.Generate(schema).(map[string]any)
	if !ok {
		t.Fatalf("object schema produced %T", g.Generate(schema))
	}
	if email, _ := out["email"].(string); !strings.Contains(email, "@") {
		t.Errorf("email field = %v", out["email"])
	}
	if img, _ := out["avatarImage"].(string); !strings.HasPrefix(img, "http") {
		t.Errorf("avatarImage field = %v", out["avatarImage"])
	}
	if price, ok := out["price"].(float64); !ok || price <= 0 {
		t.Errorf("price field = %v", out["price"])
	}
	if id, ok := out["userId"].(int); !ok || id < 1 || id > 999999 {
		t.Errorf("userId field = %v", out["userId"])
	}
}

func TestIdentifierNameMatching(t *testing.T) {
	g := fixedGenerator()
	numberSchema := func() *openapi3.Schema {
		return &openapi3.Schema{Type: &openapi3.Types{"number"}}
	}

	for _, name := range []string{"id", "ID", "userId", "orderID", "user_id"} {
		got, ok := g.generate(numberSchema(), name).(int)
		if !ok || got < 1 || got > 999999 {
			t.Errorf("%q = %v, want an identifier integer", name, got)
		}
	}

	// Names that merely end in "id" are ordinary numbers, not identifiers.
	for _, name := range []string{"paid", "valid", "grid", "bid"} {
		if _, ok := g.generate(numberSchema(), name).(float64); !ok {
			t.Errorf("%q generated as an identifier, want a plain number", name)
		}
	}
}

func TestGenerateNumberBounds(t *testing.T) {
	g := fixedGenerator()
	min, max := 10.0, 20.0
	schema := &openapi3.Schema{Type: &openapi3.Types{"integer"}, Min: &min, Max: &max}
	for i := 0; i < 50; i++ {
		got, ok := g.Generate(schema).(int)
		if !ok || got < 10 || got > 20 {
			t.Fatalf("bounded integer = %v, want within [10, 20]", got)
		}
	}
}

func TestGenerateArrayAndBoolean(t *testing.T) {
	g := fixedGenerator()
	arr := &openapi3.Schema{
		Type:  &openapi3.Types{"array"},
		Items: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
	}
	got, ok := g.Generate(arr).([]any)
	if !ok || len(got) != 1 {
		t.Fatalf("array schema produced %v", got)
	}
	if got[0] != true {
		t.Errorf("boolean element = %v, want true", got[0])
	}

	empty := &openapi3.Schema{Type: &openapi3.Types{"array"}}
	if got, _ := g.Generate(empty).([]any); len(got) != 0 {
		t.Errorf("itemless array schema produced %v, want empty slice", got)
	}
}

func TestGenerateNilAndUnknown(t *testing.T) {
	g := fixedGenerator()
	if got := g.Generate(nil); got != nil {
		t.Errorf("nil schema produced %v", got)
	}
	if got := g.Generate(&openapi3.Schema{}); got != nil {
		t.Errorf("untyped empty schema produced %v", got)
	}
}
