package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/isoview/internal/core/domain"
	"github.com/samirrijal/isoview/internal/core/ports"
	"github.com/samirrijal/isoview/internal/pkg/geospatial"
	"github.com/samirrijal/isoview/internal/pkg/metrics"
	"github.com/samirrijal/isoview/internal/pkg/telemetry"
)

var (
	ErrInvalidCoordinate = errors.New("coordinate must be finite and within WGS 84 bounds")
	ErrPlaceNotFound     = errors.New("place candidate not found")
	ErrAlreadyMounted    = errors.New("view controller already mounted")
	ErrDisposed          = errors.New("view controller disposed")
)

// DragPrecision is the number of decimal places kept from a marker drag.
const DragPrecision = 4

// ControllerConfig configures a ViewController.
type ControllerConfig struct {
	Style          string
	Center         domain.Coordinate
	Zoom           float64
	SourceID       string
	LayerID        string
	DefaultCutoffs string
	Debounce       time.Duration
	// Now supplies the initial departure time. Defaults to time.Now.
	Now func() time.Time
}

// fetchState is the re-entrancy latch of the fetch pipeline.
type fetchState int

const (
	fetchIdle fetchState = iota
	fetchInFlight
)

type lifecycle int

const (
	lifecycleCreated lifecycle = iota
	lifecycleMounted
	lifecycleDisposed
)

// ReachResult answers whether a point lies inside the current isochrones.
type ReachResult struct {
	Point     domain.Coordinate `json:"point"`
	Reachable bool              `json:"reachable"`
	Time      float64           `json:"time,omitempty"`
	Distance  float64           `json:"distance_m"`
}

// ViewController binds the query state to the isochrone fetch pipeline and
// the map widget. Every field below mu is guarded by it; network calls and
// map commands always run with mu released.
type ViewController struct {
	fetcher ports.IsochroneFetcher
	places  ports.PlaceSearcher
	view    ports.MapView
	cfg     ControllerConfig
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	phase         lifecycle
	state         QueryState
	fetch         fetchState
	dirty         bool
	current       *domain.FeatureCollection
	reach         *geospatial.ReachIndex
	lastFetchedAt time.Time
	searchText    string
	searchSeq     uint64
	candidates    []domain.PlaceCandidate
	selected      *domain.PlaceCandidate
	debounce      *debouncer
	markerGen     uint64

	// viewMu orders marker commands. It is never acquired while mu is held.
	viewMu sync.Mutex
}

// NewViewController creates an unmounted controller. The marker starts at
// the map center with the current time and the default cutoffs.
func NewViewController(fetcher ports.IsochroneFetcher, places ports.PlaceSearcher, view ports.MapView, cfg ControllerConfig) *ViewController {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SourceID == "" {
		cfg.SourceID = "isochrones"
	}
	if cfg.LayerID == "" {
		cfg.LayerID = "isochrones-fill"
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	if view == nil {
		view = NopMapView{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ViewController{
		fetcher:  fetcher,
		places:   places,
		view:     view,
		cfg:      cfg,
		logger:   slog.Default().With("component", "view_controller"),
		ctx:      ctx,
		cancel:   cancel,
		state:    NewQueryState(cfg.Center, cfg.Now(), cfg.DefaultCutoffs),
		current:  domain.NewFeatureCollection(),
		debounce: newDebouncer(cfg.Debounce),
	}
}

// MapSetup describes the map the widget should build.
func (c *ViewController) MapSetup() domain.MapSetup {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mapSetupLocked()
}

func (c *ViewController) mapSetupLocked() domain.MapSetup {
	return domain.MapSetup{
		Style:    c.cfg.Style,
		Center:   c.cfg.Center,
		Zoom:     c.cfg.Zoom,
		SourceID: c.cfg.SourceID,
		LayerID:  c.cfg.LayerID,
		Marker:   c.state.Location(),
	}
}

// Mount creates the map, marker and isochrone layer, then starts the first fetch.
func (c *ViewController) Mount(ctx context.Context) error {
	c.mu.Lock()
	switch c.phase {
	case lifecycleMounted:
		c.mu.Unlock()
		return ErrAlreadyMounted
	case lifecycleDisposed:
		c.mu.Unlock()
		return ErrDisposed
	}
	setup := c.mapSetupLocked()
	c.mu.Unlock()

	if err := c.view.Create(ctx, setup); err != nil {
		return fmt.Errorf("create map: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != lifecycleCreated {
		return ErrDisposed
	}
	c.phase = lifecycleMounted
	c.logger.Info("map mounted", "center", setup.Center, "zoom", setup.Zoom)
	c.requestFetchLocked()
	return nil
}

// Unmount stops the debounce timer, cancels outstanding network calls,
// waits for them to settle and disposes the map. It is idempotent.
func (c *ViewController) Unmount(ctx context.Context) error {
	c.mu.Lock()
	if c.phase == lifecycleDisposed {
		c.mu.Unlock()
		return nil
	}
	wasMounted := c.phase == lifecycleMounted
	c.phase = lifecycleDisposed
	c.debounce.Stop()
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()

	if !wasMounted {
		return nil
	}
	c.logger.Info("map unmounted")
	return c.view.Dispose(ctx)
}

// ---------------------------------------------------------------------------
// Query state
// ---------------------------------------------------------------------------

// SetLocation moves the query origin and the marker.
func (c *ViewController) SetLocation(ctx context.Context, loc domain.Coordinate) error {
	if !loc.Valid() {
		return ErrInvalidCoordinate
	}
	c.mu.Lock()
	if c.phase == lifecycleDisposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	changed := c.state.SetLocation(loc)
	if !changed {
		c.mu.Unlock()
		return nil
	}
	c.markerGen++
	gen := c.markerGen
	c.requestFetchLocked()
	c.mu.Unlock()

	c.moveMarker(ctx, gen, loc, false)
	return nil
}

// MarkerDragEnd records the marker's new position, rounded to DragPrecision
// decimal places. The widget already shows the marker there.
func (c *ViewController) MarkerDragEnd(loc domain.Coordinate) error {
	if !loc.Valid() {
		return ErrInvalidCoordinate
	}
	loc = loc.Round(DragPrecision)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == lifecycleDisposed {
		return ErrDisposed
	}
	if c.state.SetLocation(loc) {
		c.markerGen++
		c.requestFetchLocked()
	}
	return nil
}

// SetTime applies raw when it parses as a date-time; otherwise the current
// time is kept and false is returned.
func (c *ViewController) SetTime(raw string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == lifecycleDisposed {
		return false
	}
	applied, changed := c.state.SetTime(raw)
	if changed {
		c.requestFetchLocked()
	}
	return applied
}

// SetCutoffs stores the raw cutoff text verbatim.
func (c *ViewController) SetCutoffs(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == lifecycleDisposed {
		return
	}
	if c.state.SetCutoffText(raw) {
		c.requestFetchLocked()
	}
}

// Refresh re-runs the fetch pipeline for the current state.
func (c *ViewController) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestFetchLocked()
}

// State returns a snapshot of the controller state.
func (c *ViewController) State() domain.ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := domain.ViewState{
		Location:   c.state.Location(),
		Time:       c.state.Time(),
		CutoffText: c.state.CutoffText(),
		Cutoffs:    c.state.Cutoffs(),
		Fetching:   c.fetch == fetchInFlight,
		SearchText: c.searchText,
		Candidates: append([]domain.PlaceCandidate{}, c.candidates...),
		Mounted:    c.phase == lifecycleMounted,
	}
	if !c.lastFetchedAt.IsZero() {
		t := c.lastFetchedAt
		s.LastFetchedAt = &t
	}
	if c.selected != nil {
		sel := *c.selected
		s.Selected = &sel
	}
	return s
}

// Isochrones returns the current collection. Collections are replaced
// wholesale, never mutated, so callers must treat the result as read-only.
func (c *ViewController) Isochrones() *domain.FeatureCollection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Reach reports the smallest cutoff time whose isochrone contains p, and
// the great-circle distance from the marker to p.
func (c *ViewController) Reach(p domain.Coordinate) (ReachResult, error) {
	if !p.Valid() {
		return ReachResult{}, ErrInvalidCoordinate
	}
	c.mu.Lock()
	idx := c.reach
	origin := c.state.Location()
	c.mu.Unlock()

	res := ReachResult{Point: p, Distance: geospatial.Distance(origin, p)}
	if idx != nil {
		res.Time, res.Reachable = idx.Lookup(p)
	}
	return res, nil
}

// ---------------------------------------------------------------------------
// Fetch pipeline
// ---------------------------------------------------------------------------

// requestFetchLocked starts a fetch unless one is in flight, in which case
// the state is marked dirty and the settling fetch issues one follow-up.
func (c *ViewController) requestFetchLocked() {
	if c.phase != lifecycleMounted {
		return
	}
	if c.fetch == fetchInFlight {
		c.dirty = true
		metrics.IsochroneFetchesSkipped.Inc()
		c.logger.Debug("fetch in flight, deferring")
		return
	}

	c.fetch = fetchInFlight
	c.dirty = false
	q := c.state.Query()
	c.wg.Add(1)
	go c.runFetch(q)
}

func (c *ViewController) runFetch(q domain.IsochroneQuery) {
	defer c.wg.Done()
	defer c.settle()
	defer func() {
		if r := recover(); r != nil {
			metrics.IsochroneFetches.WithLabelValues("error").Inc()
			c.logger.Error("isochrone fetch panicked", "panic", r)
		}
	}()

	ctx, span := otel.Tracer("isoview/controller").Start(c.ctx, telemetry.SpanControllerRun)
	defer span.End()
	span.SetAttributes(attribute.Int(telemetry.AttrCutoffCount, len(q.Cutoffs)))

	start := time.Now()
	fc, err := c.fetcher.FetchIsochrones(ctx, q)
	metrics.IsochroneFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.IsochroneFetches.WithLabelValues("error").Inc()
		span.RecordError(err)
		if errors.Is(err, context.Canceled) {
			c.logger.Debug("isochrone fetch cancelled")
			return
		}
		c.logger.Warn("isochrone fetch failed, keeping previous isochrones",
			"error", err, "location", q.Location.LatLng(), "cutoffs", q.Cutoffs)
		return
	}
	metrics.IsochroneFetches.WithLabelValues("success").Inc()

	idx, err := geospatial.NewReachIndex(fc)
	if err != nil {
		c.logger.Warn("isochrone reach index unavailable", "error", err)
		idx = nil
	}

	c.mu.Lock()
	if c.phase != lifecycleMounted {
		c.mu.Unlock()
		return
	}
	c.current = fc
	c.reach = idx
	c.lastFetchedAt = time.Now()
	sourceID := c.cfg.SourceID
	c.mu.Unlock()

	c.viewCall("set_source_data", c.view.SetSourceData(ctx, sourceID, fc))
}

// settle releases the latch and issues the follow-up fetch when state
// changed while the previous fetch was in flight.
func (c *ViewController) settle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fetch = fetchIdle
	if c.dirty {
		c.dirty = false
		metrics.IsochroneFollowUps.Inc()
		c.requestFetchLocked()
	}
}

// ---------------------------------------------------------------------------
// Place autocomplete
// ---------------------------------------------------------------------------

// Search records text and, after the debounce quiet period, searches for
// it. Blank text clears the candidates without a request.
func (c *ViewController) Search(text string) {
	metrics.SearchKeystrokes.Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == lifecycleDisposed {
		return
	}
	c.searchText = text
	// Any keystroke supersedes a search already in flight.
	c.searchSeq++
	if strings.TrimSpace(text) == "" {
		c.debounce.Stop()
		c.candidates = nil
		return
	}
	c.debounce.Trigger(c.runSearch)
}

func (c *ViewController) runSearch() {
	c.mu.Lock()
	if c.phase == lifecycleDisposed {
		c.mu.Unlock()
		return
	}
	c.searchSeq++
	seq := c.searchSeq
	text := c.searchText
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	places, err := c.places.SearchPlaces(c.ctx, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.searchSeq {
		metrics.PlaceSearches.WithLabelValues("stale").Inc()
		return
	}
	if err != nil {
		metrics.PlaceSearches.WithLabelValues("error").Inc()
		if !errors.Is(err, context.Canceled) {
			c.logger.Warn("place search failed", "error", err, "text", text)
		}
		return
	}
	metrics.PlaceSearches.WithLabelValues("success").Inc()
	c.candidates = places
}

// Candidates returns the current search results.
func (c *ViewController) Candidates() []domain.PlaceCandidate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.PlaceCandidate{}, c.candidates...)
}

// SelectPlace moves the query origin to the candidate's coordinates, clears
// the candidate list and recenters the map and marker.
func (c *ViewController) SelectPlace(ctx context.Context, id string) (domain.PlaceCandidate, error) {
	c.mu.Lock()
	if c.phase == lifecycleDisposed {
		c.mu.Unlock()
		return domain.PlaceCandidate{}, ErrDisposed
	}
	var (
		place domain.PlaceCandidate
		found bool
	)
	for _, p := range c.candidates {
		if p.ID == id {
			place, found = p, true
			break
		}
	}
	if !found {
		c.mu.Unlock()
		return domain.PlaceCandidate{}, ErrPlaceNotFound
	}

	c.debounce.Stop()
	c.searchSeq++
	c.candidates = nil
	c.selected = &place
	c.searchText = place.Name
	if c.state.SetLocation(place.Location) {
		c.requestFetchLocked()
	}
	c.markerGen++
	gen := c.markerGen
	c.mu.Unlock()

	c.moveMarker(ctx, gen, place.Location, true)
	return place, nil
}

// ClearSelection returns to the empty search state and refocuses the input.
func (c *ViewController) ClearSelection(ctx context.Context) {
	c.mu.Lock()
	if c.phase == lifecycleDisposed {
		c.mu.Unlock()
		return
	}
	c.debounce.Stop()
	c.searchSeq++
	c.searchText = ""
	c.candidates = nil
	c.selected = nil
	mounted := c.phase == lifecycleMounted
	c.mu.Unlock()

	if mounted {
		c.viewCall("focus_search", c.view.FocusSearch(ctx))
	}
}

// moveMarker sends the marker (and optionally fly-to) command for the
// location change numbered gen. Commands are serialized, and one whose
// location has since been replaced is dropped, so the widget's marker
// always ends at the query origin.
func (c *ViewController) moveMarker(ctx context.Context, gen uint64, loc domain.Coordinate, fly bool) {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()

	c.mu.Lock()
	current := gen == c.markerGen && c.phase == lifecycleMounted
	c.mu.Unlock()
	if !current {
		return
	}
	if fly {
		c.viewCall("fly_to", c.view.FlyTo(ctx, loc))
	}
	c.viewCall("set_marker", c.view.SetMarker(ctx, loc))
}

func (c *ViewController) viewCall(command string, err error) {
	if err != nil {
		c.logger.Warn("map command failed", "command", command, "error", err)
	}
}
