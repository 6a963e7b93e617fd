// Package generator produces representative values from schema fragments. It
// is the last-resort response source when no handler, seed or example applies.
package generator

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/getkin/kin-openapi/openapi3"
)

// Generator derives synthetic values from schemas using format and
// property-name heuristics. Output is deterministic for a fixed faker seed.
type Generator struct {
	faker *gofakeit.Faker
}

// New creates a generator backed by the given fake-data source.
func New(faker *gofakeit.Faker) *Generator {
	if faker == nil {
		faker = gofakeit.New(0)
	}
	return &Generator{faker: faker}
}

// Generate produces a value for a schema. It never fails; unrecognized shapes
// degrade to nil.
func (g *Generator) Generate(schema *openapi3.Schema) any {
	return g.generate(schema, "")
}

func (g *Generator) generate(schema *openapi3.Schema, name string) any {
	if schema == nil {
		return nil
	}
	if schema.Default != nil {
		return schema.Default
	}
	if len(schema.Enum) > 0 {
		return schema.Enum[0]
	}

	switch {
	case typeIs(schema, "array"):
		if schema.Items == nil || schema.Items.Value == nil {
			return []any{}
		}
		return []any{g.generate(schema.Items.Value, name)}
	case typeIs(schema, "object") || (schema.Type == nil && len(schema.Properties) > 0):
		return g.generateObject(schema)
	case typeIs(schema, "string"):
		return g.generateString(schema, name)
	case typeIs(schema, "integer"), typeIs(schema, "number"):
		return g.generateNumber(schema, name)
	case typeIs(schema, "boolean"):
		return true
	default:
		return nil
	}
}

func (g *Generator) generateObject(schema *openapi3.Schema) map[string]any {
	out := make(map[string]any, len(schema.Properties))
	names := make([]string, 0, len(schema.Properties))
	for prop := range schema.Properties {
		names = append(names, prop)
	}
	// Stable property order keeps generation reproducible for a fixed seed.
	sort.Strings(names)
	for _, prop := range names {
		ref := schema.Properties[prop]
		if ref == nil {
			out[prop] = nil
			continue
		}
		out[prop] = g.generate(ref.Value, prop)
	}
	return out
}

func (g *Generator) generateString(schema *openapi3.Schema, name string) string {
	switch schema.Format {
	case "date":
		return g.faker.Date().Format("2006-01-02")
	case "date-time":
		return g.faker.Date().Format(time.RFC3339)
	case "email":
		return g.faker.Email()
	case "uri", "url":
		return g.faker.URL()
	case "uuid":
		return g.faker.UUID()
	case "hostname":
		return g.faker.DomainName()
	case "ipv4":
		return g.faker.IPv4Address()
	case "ipv6":
		return g.faker.IPv6Address()
	case "password":
		return g.faker.Password(true, true, true, false, false, 12)
	}

	lower := strings.ToLower(name)
	contains := func(subs ...string) bool {
		for _, sub := range subs {
			if strings.Contains(lower, sub) {
				return true
			}
		}
		return false
	}
	switch {
	case contains("email"):
		return g.faker.Email()
	case contains("phone"):
		return g.faker.Phone()
	case contains("name"):
		return g.faker.Name()
	case contains("address"):
		return g.faker.Street()
	case contains("city"):
		return g.faker.City()
	case contains("country"):
		return g.faker.Country()
	case contains("description"):
		return g.faker.Sentence(8)
	case contains("title"):
		return g.faker.Sentence(3)
	case contains("image", "photo", "avatar"):
		return fmt.Sprintf("https://picsum.photos/%d/%d", 640, 480)
	case contains("url", "link"):
		return g.faker.URL()
	default:
		return g.faker.Word() + " " + g.faker.Word()
	}
}

// isIdentifierName reports whether a property name denotes an identifier.
// Only id-shaped suffixes count; names like "paid" or "valid" do not.
func isIdentifierName(name string) bool {
	lower := strings.ToLower(name)
	return lower == "id" ||
		strings.HasSuffix(name, "Id") ||
		strings.HasSuffix(name, "ID") ||
		strings.HasSuffix(lower, "_id")
}

func (g *Generator) generateNumber(schema *openapi3.Schema, name string) any {
	lower := strings.ToLower(name)
	switch {
	case isIdentifierName(name):
		return g.faker.Number(1, 999999)
	case strings.Contains(lower, "price") || strings.Contains(lower, "amount"):
		return round2(g.faker.Price(1, 1000))
	case strings.Contains(lower, "quantity") || strings.Contains(lower, "count"):
		return g.faker.Number(1, 100)
	case strings.Contains(lower, "age"):
		return g.faker.Number(1, 100)
	}

	min, max := 1.0, 1000.0
	if schema.Min != nil {
		min = *schema.Min
	}
	if schema.Max != nil {
		max = *schema.Max
	}
	if max < min {
		max = min
	}
	if typeIs(schema, "integer") {
		return g.faker.Number(int(min), int(max))
	}
	return round2(g.faker.Float64Range(min, max))
}

func typeIs(schema *openapi3.Schema, t string) bool {
	return schema.Type != nil && schema.Type.Is(t)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
