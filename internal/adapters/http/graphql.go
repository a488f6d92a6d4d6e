package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/lookoutar/lookout/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	poiType := graphql.NewObject(graphql.ObjectConfig{
		Name: "POI",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"name":            &graphql.Field{Type: graphql.String},
			"location":        &graphql.Field{Type: geoPointType},
			"distance_meters": &graphql.Field{Type: graphql.Float},
			"bearing_degrees": &graphql.Field{Type: graphql.Float},
			"external_ref":    &graphql.Field{Type: graphql.String},
		},
	})

	articleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Article",
		Fields: graphql.Fields{
			"title":         &graphql.Field{Type: graphql.String},
			"summary":       &graphql.Field{Type: graphql.String},
			"image_url":     &graphql.Field{Type: graphql.String},
			"canonical_url": &graphql.Field{Type: graphql.String},
			"coordinates":   &graphql.Field{Type: geoPointType},
		},
	})

	placementType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Placement",
		Fields: graphql.Fields{
			"poi":      &graphql.Field{Type: poiType},
			"screen_x": &graphql.Field{Type: graphql.Float},
			"screen_y": &graphql.Field{Type: graphql.Float},
			"scale":    &graphql.Field{Type: graphql.Float},
			"z_rank":   &graphql.Field{Type: graphql.Int},
		},
	})

	frameType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Frame",
		Fields: graphql.Fields{
			"session_id": &graphql.Field{Type: graphql.String},
			"tick":       &graphql.Field{Type: graphql.Int},
			"candidates": &graphql.Field{Type: graphql.Int},
			"placements": &graphql.Field{Type: graphql.NewList(placementType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"nearbyPois": &graphql.Field{
				Type:        graphql.NewList(poiType),
				Description: "Points of interest around a location, nearest first",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 2000.0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					pois, err := deps.POIs.FetchNearby(p.Context, domain.GeoPoint{Lat: lat, Lon: lon}, radius)
					if err != nil && len(pois) == 0 {
						return nil, err
					}
					return pois, nil
				},
			},
			"article": &graphql.Field{
				Type:        articleType,
				Description: "Encyclopedia summary for a POI reference",
				Args: graphql.FieldConfigArgument{
					"ref": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Articles.Lookup(p.Context, p.Args["ref"].(string))
				},
			},
			"frame": &graphql.Field{
				Type:        frameType,
				Description: "Latest composed overlay frame for a session",
				Args: graphql.FieldConfigArgument{
					"session": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					s, err := deps.Sessions.Get(p.Args["session"].(string))
					if err != nil {
						return nil, err
					}
					return s.LatestFrame(), nil
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
