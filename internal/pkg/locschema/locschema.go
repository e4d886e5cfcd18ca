// Package locschema holds the JSON schema for map location records and the
// relaxed variant applied at file-ingestion time. Ingestion happens before a
// record is associated with a map and possibly before it has an identifier,
// so the relaxed schema drops the map and location properties and the guid
// requirement; the full schema is enforced again at write time through the
// persistence contract check.
package locschema

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Canonical returns the full map-location schema as required at write time.
// A fresh value is built on every call so callers may mutate it freely.
func Canonical() *openapi3.Schema {
	coordinate := openapi3.NewOneOfSchema(
		openapi3.NewFloat64Schema(),
		openapi3.NewStringSchema().WithPattern(`^-?\d+(\.\d+)?$`),
	)

	location := openapi3.NewObjectSchema().
		WithProperty("lat", coordinate).
		WithProperty("lng", coordinate).
		WithProperty("description", openapi3.NewStringSchema())
	location.Required = []string{"lat", "lng"}

	entity := openapi3.NewObjectSchema().
		WithProperty("guid", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("type", openapi3.NewStringSchema()).
		WithProperty("alertSeverity", openapi3.NewStringSchema())
	entity.Required = []string{"guid"}

	schema := openapi3.NewObjectSchema().
		WithProperty("guid", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("title", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("externalId", openapi3.NewStringSchema()).
		WithProperty("map", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("query", openapi3.NewStringSchema()).
		WithProperty("location", location).
		WithProperty("entities", openapi3.NewArraySchema().WithItems(entity))
	schema.Required = []string{"guid", "title", "externalId", "map", "location"}

	return schema
}

// Relaxed derives the ingestion-time schema from Canonical: the map and
// location properties are removed, and guid/map/location are no longer
// required.
func Relaxed() *openapi3.Schema {
	schema := Canonical()

	delete(schema.Properties, "map")
	delete(schema.Properties, "location")

	required := schema.Required[:0]
	for _, field := range schema.Required {
		if field == "guid" || field == "map" || field == "location" {
			continue
		}
		required = append(required, field)
	}
	schema.Required = required

	return schema
}

// Validate checks a decoded JSON record against the schema and returns the
// individual violations. An empty slice means the record is valid.
func Validate(schema *openapi3.Schema, record any) []string {
	err := schema.VisitJSON(record, openapi3.MultiErrors())
	if err == nil {
		return nil
	}

	if multi, ok := err.(openapi3.MultiError); ok {
		violations := make([]string, 0, len(multi))
		for _, e := range multi {
			violations = append(violations, e.Error())
		}
		return violations
	}
	return []string{err.Error()}
}
