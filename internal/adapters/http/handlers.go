package http

import (
	"math"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/isoview/internal/core/domain"
)

type coordinateRequest struct {
	Lng *float64 `json:"lng"`
	Lat *float64 `json:"lat"`
}

func (r coordinateRequest) coordinate() (domain.Coordinate, bool) {
	if r.Lng == nil || r.Lat == nil {
		return domain.Coordinate{}, false
	}
	return domain.Coordinate{Lng: *r.Lng, Lat: *r.Lat}, true
}

type timeRequest struct {
	Time string `json:"time"`
}

type cutoffsRequest struct {
	Cutoffs *string `json:"cutoffs"`
}

type searchRequest struct {
	Text string `json:"text"`
}

// TimeUpdate reports whether a submitted time was accepted.
type TimeUpdate struct {
	Applied bool             `json:"applied"`
	State   domain.ViewState `json:"state"`
}

// PlacesResponse is the autocomplete panel state.
type PlacesResponse struct {
	SearchText string                  `json:"search_text"`
	Candidates []domain.PlaceCandidate `json:"candidates"`
	Selected   *domain.PlaceCandidate  `json:"selected,omitempty"`
}

// MapSetupHandler returns what the map widget needs to build itself.
func MapSetupHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Controller.MapSetup())
	}
}

// QueryStateHandler returns the current query and fetch state.
func QueryStateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Controller.State())
	}
}

// SetLocationHandler moves the query origin and the marker.
func SetLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req coordinateRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		coord, ok := req.coordinate()
		if !ok {
			return errBadRequest(c, "lng and lat are required")
		}
		if err := deps.Controller.SetLocation(c.UserContext(), coord); err != nil {
			return controllerError(c, err)
		}
		return c.JSON(deps.Controller.State())
	}
}

// MarkerDragEndHandler records the end of a marker drag.
func MarkerDragEndHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req coordinateRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		coord, ok := req.coordinate()
		if !ok {
			return errBadRequest(c, "lng and lat are required")
		}
		if err := deps.Controller.MarkerDragEnd(coord); err != nil {
			return controllerError(c, err)
		}
		return c.JSON(deps.Controller.State())
	}
}

// SetTimeHandler applies a departure time. Unparseable input is not an
// error: the previous time is kept and applied is false.
func SetTimeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req timeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		applied := deps.Controller.SetTime(req.Time)
		return c.JSON(TimeUpdate{Applied: applied, State: deps.Controller.State()})
	}
}

// SetCutoffsHandler stores the raw cutoff text.
func SetCutoffsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req cutoffsRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Cutoffs == nil {
			return errBadRequest(c, "cutoffs is required")
		}
		deps.Controller.SetCutoffs(*req.Cutoffs)
		return c.JSON(deps.Controller.State())
	}
}

// RefreshHandler re-runs the fetch pipeline.
func RefreshHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.Controller.Refresh()
		return c.Status(fiber.StatusAccepted).JSON(deps.Controller.State())
	}
}

// IsochronesHandler returns the isochrone layer's current FeatureCollection.
func IsochronesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Controller.Isochrones())
	}
}

// ReachHandler reports whether a point lies inside the current isochrones.
func ReachHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
		if errLat != nil || errLon != nil || math.IsNaN(lat) || math.IsNaN(lon) {
			return errBadRequest(c, "lat and lon are required")
		}
		res, err := deps.Controller.Reach(domain.Coordinate{Lng: lon, Lat: lat})
		if err != nil {
			return controllerError(c, err)
		}
		return c.JSON(res)
	}
}

// SearchPlacesHandler records a keystroke; the search itself runs after
// the debounce quiet period.
func SearchPlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req searchRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.Text) > 200 {
			return errBadRequest(c, "text too long (max 200 characters)")
		}
		deps.Controller.Search(req.Text)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"search_text": req.Text})
	}
}

// PlacesHandler returns the current candidates and selection.
func PlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st := deps.Controller.State()
		return c.JSON(PlacesResponse{
			SearchText: st.SearchText,
			Candidates: st.Candidates,
			Selected:   st.Selected,
		})
	}
}

// SelectPlaceHandler selects a candidate by its (path-escaped) ID.
func SelectPlaceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := url.PathUnescape(c.Params("id"))
		if err != nil || id == "" {
			return errBadRequest(c, "place id is required")
		}
		place, err := deps.Controller.SelectPlace(c.UserContext(), id)
		if err != nil {
			return controllerError(c, err)
		}
		LoggerFromCtx(c.UserContext()).Info("place selected", "id", place.ID, "name", place.Name)
		return c.JSON(place)
	}
}

// ClearSelectionHandler resets the autocomplete panel.
func ClearSelectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.Controller.ClearSelection(c.UserContext())
		return c.SendStatus(fiber.StatusNoContent)
	}
}
