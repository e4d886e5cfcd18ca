package http

import (
	"errors"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"mapmarks/internal/core/domain"
	"mapmarks/internal/pkg/geospatial"
	"mapmarks/internal/pkg/metrics"
)

// ListMapsHandler returns all maps.
func ListMapsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		maps, err := deps.Maps.ListMaps(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(maps)
	}
}

// GetMapHandler returns one map with its effective center and zoom.
func GetMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := deps.Maps.GetMap(c.Context(), c.Params("guid"))
		if err != nil {
			return errInternal(c, err.Error())
		}
		if m == nil {
			return errNotFound(c, "map not found")
		}

		lat, lng := m.Center()
		return c.JSON(fiber.Map{
			"map":  m,
			"lat":  lat,
			"lng":  lng,
			"zoom": m.ZoomOrDefault(),
		})
	}
}

// UpsertMapHandler creates or updates a map.
func UpsertMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var m domain.Map
		if err := c.BodyParser(&m); err != nil {
			return errBadRequest(c, "invalid map payload")
		}
		if m.AccountID == 0 {
			m.AccountID = deps.AccountID
		}
		if err := deps.Maps.UpsertMap(c.Context(), &m); err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	}
}

// ListLocationsHandler returns every location owned by a map.
func ListLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		locs, err := deps.Maps.LocationsByMap(c.Context(), c.Params("guid"))
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(locs)
	}
}

// GetLocationHandler returns one location by guid.
func GetLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		loc, err := deps.Maps.GetLocation(c.Context(), c.Params("guid"))
		if err != nil {
			return errInternal(c, err.Error())
		}
		if loc == nil {
			return errNotFound(c, "location not found")
		}
		return c.JSON(loc)
	}
}

// DeleteLocationHandler removes one location.
func DeleteLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Maps.DeleteLocation(c.Context(), c.Params("guid")); err != nil {
			return errInternal(c, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// parseBounds reads viewport corners from the query string. The viewport is
// considered present only when all four corners are supplied; a partial set
// is an error rather than a guess.
func parseBounds(c *fiber.Ctx) (*domain.Bounds, error) {
	params := []string{"south", "west", "north", "east"}
	present := 0
	for _, p := range params {
		if c.Query(p) != "" {
			present++
		}
	}
	if present == 0 {
		return nil, nil
	}
	if present != len(params) {
		return nil, errors.New("south, west, north and east must be supplied together")
	}

	return &domain.Bounds{
		South: c.QueryFloat("south"),
		West:  c.QueryFloat("west"),
		North: c.QueryFloat("north"),
		East:  c.QueryFloat("east"),
	}, nil
}

// MarkersHandler renders the markers visible in the requested viewport,
// resolving comparison values through one batched query dispatch. The
// viewport arrives either as four corners or as a center point plus radius.
func MarkersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mapGuid := c.Params("guid")

		bounds, err := parseBounds(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		var centerLat, centerLng, radius float64
		if bounds == nil && c.Query("radius") != "" {
			centerLat, centerLng, radius = c.QueryFloat("lat"), c.QueryFloat("lng"), c.QueryFloat("radius")
			b := geospatial.BoundsAround(centerLat, centerLng, radius)
			bounds = &b
		}

		locations, err := deps.Maps.LocationsByMap(c.Context(), mapGuid)
		if err != nil {
			return errInternal(c, err.Error())
		}

		accountID := c.QueryInt("account_id", deps.AccountID)
		markers, err := deps.Markers.RenderMarkers(
			c.Context(), accountID, locations, bounds, deps.Selection.Selected())
		if err != nil {
			var dispatchErr *domain.QueryDispatchError
			if errors.As(err, &dispatchErr) {
				LoggerFromCtx(c.UserContext()).Error("comparison dispatch failed",
					"map", mapGuid, "error", dispatchErr)
				return errBadGateway(c, dispatchErr.Error())
			}
			return errInternal(c, err.Error())
		}

		// The bounding box around a radius query is a square; trim it to
		// the true circle.
		if radius > 0 {
			markers = withinRadius(markers, centerLat, centerLng, radius)
		}

		return c.JSON(fiber.Map{
			"markers": markers,
			"count":   len(markers),
		})
	}
}

func withinRadius(markers []domain.MarkerView, lat, lng, radius float64) []domain.MarkerView {
	out := make([]domain.MarkerView, 0, len(markers))
	for _, m := range markers {
		if geospatial.Haversine(lat, lng, m.Lat, m.Lng) <= radius {
			out = append(out, m)
		}
	}
	return out
}

// multipartSources adapts uploaded form files to ingestion file sources.
func multipartSources(files []*multipart.FileHeader) []domain.FileSource {
	sources := make([]domain.FileSource, 0, len(files))
	for _, fh := range files {
		fh := fh
		sources = append(sources, domain.FileSource{
			Name: fh.Filename,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return sources
}

// PreviewLocationsHandler parses and validates uploaded files without
// persisting anything, returning accepted records and per-file failures so
// the caller can review before committing.
func PreviewLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return errBadRequest(c, "multipart form with a files field is required")
		}
		files := form.File["files"]
		if len(files) == 0 {
			return errBadRequest(c, "no files uploaded")
		}

		result := deps.Ingestion.LoadFiles(c.Context(), multipartSources(files))

		metrics.FilesParsed.Add(float64(len(files) - len(result.FileErrors)))
		for _, fe := range result.FileErrors {
			metrics.FilesRejected.WithLabelValues(rejectionReason(fe.Err)).Inc()
		}
		metrics.LocationsIngested.Add(float64(len(result.FileData)))

		return c.JSON(result)
	}
}

func rejectionReason(err error) string {
	var schemaErr *domain.SchemaValidationError
	if errors.As(err, &schemaErr) {
		return "schema"
	}
	return "parse"
}

// CommitLocationsHandler persists previously previewed records. Every record
// is written independently; the response carries both partitions so a partial
// failure is visible per record.
func CommitLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mapGuid := c.Params("guid")

		var body struct {
			AccountID int                  `json:"accountId"`
			Locations []domain.MapLocation `json:"locations"`
		}
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid commit payload")
		}
		if len(body.Locations) == 0 {
			return errBadRequest(c, "locations must not be empty")
		}
		if body.AccountID == 0 {
			body.AccountID = deps.AccountID
		}

		partition, err := deps.Ingestion.PersistAll(c.Context(), body.AccountID, mapGuid, body.Locations)
		if err != nil {
			var contractErr *domain.ContractError
			if errors.As(err, &contractErr) {
				return errUnprocessable(c, contractErr.Error())
			}
			return errInternal(c, err.Error())
		}

		successes, failures := partition.Counts()
		metrics.LocationWrites.WithLabelValues("ok").Add(float64(successes))
		metrics.LocationWrites.WithLabelValues("error").Add(float64(failures))

		LoggerFromCtx(c.UserContext()).Info("locations committed",
			"map", mapGuid, "successes", successes, "errors", failures)

		deps.Maps.InvalidateMapLocations(c.Context(), mapGuid)

		status := fiber.StatusCreated
		if failures > 0 {
			status = fiber.StatusMultiStatus
		}
		return c.Status(status).JSON(fiber.Map{
			"successCount": successes,
			"errorCount":   failures,
			"successes":    partition.Successes(),
			"errors":       partition.Errors(),
		})
	}
}

// SelectMarkerHandler sets the active location and broadcasts the change.
func SelectMarkerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			MapGuid      string `json:"mapGuid"`
			LocationGuid string `json:"locationGuid"`
		}
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid selection payload")
		}

		deps.Selection.Select(body.LocationGuid)

		if deps.Publisher != nil {
			_ = deps.Publisher.PublishMarkerSelected(c.Context(), body.MapGuid, body.LocationGuid)
		}
		return c.JSON(fiber.Map{"selected": body.LocationGuid})
	}
}

// SelectionHandler reports the current selection and hover state.
func SelectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"selected": deps.Selection.Selected(),
			"hovered":  deps.Selection.Hovered(),
		})
	}
}

// HoverHandler drives the hover state machine. action is one of marker-enter,
// marker-leave, popup-enter, popup-leave; marker-enter requires locationGuid.
func HoverHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Action       string `json:"action"`
			LocationGuid string `json:"locationGuid"`
		}
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid hover payload")
		}

		switch body.Action {
		case "marker-enter":
			if body.LocationGuid == "" {
				return errBadRequest(c, "locationGuid is required for marker-enter")
			}
			deps.Selection.HoverMarker(body.LocationGuid)
		case "marker-leave":
			deps.Selection.LeaveMarker()
		case "popup-enter":
			deps.Selection.EnterPopup()
		case "popup-leave":
			deps.Selection.LeavePopup()
		default:
			return errBadRequest(c, "unknown hover action")
		}

		return c.JSON(fiber.Map{"hovered": deps.Selection.Hovered()})
	}
}
