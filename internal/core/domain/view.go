package domain

import "time"

// MapSetup describes the map instance the widget creates on mount.
type MapSetup struct {
	Style    string     `json:"style"`
	Center   Coordinate `json:"center"`
	Zoom     float64    `json:"zoom"`
	SourceID string     `json:"source_id"`
	LayerID  string     `json:"layer_id"`
	Marker   Coordinate `json:"marker"`
}

// ViewState is a point-in-time copy of the controller's query and fetch state.
type ViewState struct {
	Location      Coordinate       `json:"location"`
	Time          time.Time        `json:"time"`
	CutoffText    string           `json:"cutoff_text"`
	Cutoffs       []string         `json:"cutoffs"`
	Fetching      bool             `json:"fetching"`
	LastFetchedAt *time.Time       `json:"last_fetched_at,omitempty"`
	SearchText    string           `json:"search_text"`
	Candidates    []PlaceCandidate `json:"candidates"`
	Selected      *PlaceCandidate  `json:"selected,omitempty"`
	Mounted       bool             `json:"mounted"`
}

// Map commands carried by MapEvent.
const (
	MapCommandCreate      = "create"
	MapCommandSourceData  = "set_source_data"
	MapCommandMarker      = "set_marker"
	MapCommandFlyTo       = "fly_to"
	MapCommandFocusSearch = "focus_search"
	MapCommandDispose     = "dispose"
)

// MapEvent is one command sent to map widgets.
type MapEvent struct {
	Command    string             `json:"command"`
	Setup      *MapSetup          `json:"setup,omitempty"`
	SourceID   string             `json:"source_id,omitempty"`
	Data       *FeatureCollection `json:"data,omitempty"`
	Coordinate *Coordinate        `json:"coordinate,omitempty"`
	At         time.Time          `json:"at"`
}
