package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"mapmarks/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	positionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPosition",
		Fields: graphql.Fields{
			"lat":         &graphql.Field{Type: graphql.Float},
			"lng":         &graphql.Field{Type: graphql.Float},
			"description": &graphql.Field{Type: graphql.String},
		},
	})

	entityType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LinkedEntity",
		Fields: graphql.Fields{
			"guid":          &graphql.Field{Type: graphql.String},
			"name":          &graphql.Field{Type: graphql.String},
			"type":          &graphql.Field{Type: graphql.String},
			"alertSeverity": &graphql.Field{Type: graphql.String},
		},
	})

	mapType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Map",
		Fields: graphql.Fields{
			"guid":      &graphql.Field{Type: graphql.String},
			"title":     &graphql.Field{Type: graphql.String},
			"accountId": &graphql.Field{Type: graphql.Int},
			"lat":       &graphql.Field{Type: graphql.Float},
			"lng":       &graphql.Field{Type: graphql.Float},
			"zoom":      &graphql.Field{Type: graphql.Int},
		},
	})

	locationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MapLocation",
		Fields: graphql.Fields{
			"guid":       &graphql.Field{Type: graphql.String},
			"title":      &graphql.Field{Type: graphql.String},
			"externalId": &graphql.Field{Type: graphql.String},
			"map":        &graphql.Field{Type: graphql.String},
			"query":      &graphql.Field{Type: graphql.String},
			"location":   &graphql.Field{Type: positionType},
			"entities":   &graphql.Field{Type: graphql.NewList(entityType)},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Marker",
		Fields: graphql.Fields{
			"guid":        &graphql.Field{Type: graphql.String},
			"title":       &graphql.Field{Type: graphql.String},
			"statusColor": &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"selected":    &graphql.Field{Type: graphql.Boolean},
			"lat":         &graphql.Field{Type: graphql.Float},
			"lng":         &graphql.Field{Type: graphql.Float},
			"workload":    &graphql.Field{Type: entityType},
			"comparison": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if m, ok := p.Source.(domain.MarkerView); ok {
						return m.Comparison.Display(), nil
					}
					return domain.ComparisonNotAvailable, nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"maps": &graphql.Field{
				Type:        graphql.NewList(mapType),
				Description: "List all maps",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Maps.ListMaps(p.Context)
				},
			},
			"map": &graphql.Field{
				Type:        mapType,
				Description: "Get a map by guid",
				Args: graphql.FieldConfigArgument{
					"guid": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Maps.GetMap(p.Context, p.Args["guid"].(string))
				},
			},
			"locations": &graphql.Field{
				Type:        graphql.NewList(locationType),
				Description: "List locations owned by a map",
				Args: graphql.FieldConfigArgument{
					"mapGuid": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Maps.LocationsByMap(p.Context, p.Args["mapGuid"].(string))
				},
			},
			"location": &graphql.Field{
				Type:        locationType,
				Description: "Get a location by guid",
				Args: graphql.FieldConfigArgument{
					"guid": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Maps.GetLocation(p.Context, p.Args["guid"].(string))
				},
			},
			"markers": &graphql.Field{
				Type:        graphql.NewList(markerType),
				Description: "Render markers for a map viewport",
				Args: graphql.FieldConfigArgument{
					"mapGuid": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"south":   &graphql.ArgumentConfig{Type: graphql.Float},
					"west":    &graphql.ArgumentConfig{Type: graphql.Float},
					"north":   &graphql.ArgumentConfig{Type: graphql.Float},
					"east":    &graphql.ArgumentConfig{Type: graphql.Float},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					locations, err := deps.Maps.LocationsByMap(p.Context, p.Args["mapGuid"].(string))
					if err != nil {
						return nil, err
					}

					var bounds *domain.Bounds
					south, sOK := p.Args["south"].(float64)
					west, wOK := p.Args["west"].(float64)
					north, nOK := p.Args["north"].(float64)
					east, eOK := p.Args["east"].(float64)
					if sOK && wOK && nOK && eOK {
						bounds = &domain.Bounds{South: south, West: west, North: north, East: east}
					}

					return deps.Markers.RenderMarkers(
						p.Context, deps.AccountID, locations, bounds, deps.Selection.Selected())
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
