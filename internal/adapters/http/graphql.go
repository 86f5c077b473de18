package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/isoview/internal/core/domain"
)

func coordinateMap(c domain.Coordinate) map[string]interface{} {
	return map[string]interface{}{"lng": c.Lng, "lat": c.Lat}
}

func placeMap(p domain.PlaceCandidate) map[string]interface{} {
	return map[string]interface{}{
		"id":       p.ID,
		"name":     p.Name,
		"location": coordinateMap(p.Location),
	}
}

func placeList(places []domain.PlaceCandidate) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(places))
	for _, p := range places {
		out = append(out, placeMap(p))
	}
	return out
}

// buildSchema creates the read-only GraphQL schema over the view controller.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lng": &graphql.Field{Type: graphql.Float},
			"lat": &graphql.Field{Type: graphql.Float},
		},
	})

	placeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Place",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: coordinateType},
		},
	})

	queryStateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "QueryState",
		Fields: graphql.Fields{
			"location":        &graphql.Field{Type: coordinateType},
			"time":            &graphql.Field{Type: graphql.String},
			"cutoff_text":     &graphql.Field{Type: graphql.String},
			"cutoffs":         &graphql.Field{Type: graphql.NewList(graphql.String)},
			"fetching":        &graphql.Field{Type: graphql.Boolean},
			"last_fetched_at": &graphql.Field{Type: graphql.String},
			"mounted":         &graphql.Field{Type: graphql.Boolean},
		},
	})

	isochroneType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Isochrone",
		Fields: graphql.Fields{
			"time":          &graphql.Field{Type: graphql.Float},
			"geometry_type": &graphql.Field{Type: graphql.String},
		},
	})

	reachType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Reach",
		Fields: graphql.Fields{
			"point":      &graphql.Field{Type: coordinateType},
			"reachable":  &graphql.Field{Type: graphql.Boolean},
			"time":       &graphql.Field{Type: graphql.Float},
			"distance_m": &graphql.Field{Type: graphql.Float},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"query": &graphql.Field{
				Type:        queryStateType,
				Description: "Current isochrone query and fetch state",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					st := deps.Controller.State()
					m := map[string]interface{}{
						"location":    coordinateMap(st.Location),
						"time":        st.Time.UTC().Format(domain.ISOTimeLayout),
						"cutoff_text": st.CutoffText,
						"cutoffs":     st.Cutoffs,
						"fetching":    st.Fetching,
						"mounted":     st.Mounted,
					}
					if st.LastFetchedAt != nil {
						m["last_fetched_at"] = st.LastFetchedAt.UTC().Format(time.RFC3339)
					}
					return m, nil
				},
			},
			"isochrones": &graphql.Field{
				Type:        graphql.NewList(isochroneType),
				Description: "Polygons currently shown on the isochrone layer",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					fc := deps.Controller.Isochrones()
					var result []map[string]interface{}
					for _, f := range fc.Features {
						m := map[string]interface{}{"geometry_type": f.Geometry.Type}
						if t, ok := f.Time(); ok {
							m["time"] = t
						}
						result = append(result, m)
					}
					return result, nil
				},
			},
			"places": &graphql.Field{
				Type:        graphql.NewList(placeType),
				Description: "Autocomplete candidates for the current search text",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return placeList(deps.Controller.Candidates()), nil
				},
			},
			"selectedPlace": &graphql.Field{
				Type:        placeType,
				Description: "The last selected place, if any",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					st := deps.Controller.State()
					if st.Selected == nil {
						return nil, nil
					}
					return placeMap(*st.Selected), nil
				},
			},
			"reach": &graphql.Field{
				Type:        reachType,
				Description: "Smallest isochrone time containing a point",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					res, err := deps.Controller.Reach(domain.Coordinate{Lng: lon, Lat: lat})
					if err != nil {
						return nil, err
					}
					m := map[string]interface{}{
						"point":      coordinateMap(res.Point),
						"reachable":  res.Reachable,
						"distance_m": res.Distance,
					}
					if res.Reachable {
						m["time"] = res.Time
					}
					return m, nil
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
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
