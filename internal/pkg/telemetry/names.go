package telemetry

// Span names used for instrumentation.
const (
	SpanIsochroneFetch = "traveltime.fetch_isochrones"
	SpanPlaceSearch    = "geocoding.search_places"
	SpanControllerRun  = "controller.fetch_pipeline"
)

// Attribute keys recorded on spans.
const (
	AttrCutoffCount    = "isoview.cutoff_count"
	AttrFeatureCount   = "isoview.feature_count"
	AttrCandidateCount = "isoview.candidate_count"
	AttrHTTPStatus     = "http.status_code"
)
