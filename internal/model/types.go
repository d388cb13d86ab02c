package model

// Core domain types shared by the store, the draft engine and the API.

type RoutePoint struct {
	ID         string  `json:"id"`
	Title      string  `json:"title,omitempty"`
	Lat        float64 `json:"latitude"`
	Lon        float64 `json:"longitude"`
	OrderIndex int     `json:"orderIndex"`
	// Ambiguous is set when both axis readings were in range and the order
	// could not be confirmed against a trusted source.
	Ambiguous bool `json:"ambiguous,omitempty"`
}

// Favorite is a trusted point kept in the user's favorites registry.
type Favorite struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Lat      float64 `json:"latitude"`
	Lon      float64 `json:"longitude"`
	Category string  `json:"category,omitempty"`
	Address  string  `json:"address,omitempty"`
}

// Waypoint references a favorite by id instead of embedding coordinates.
type Waypoint struct {
	MarkerID   string `json:"markerId"`
	OrderIndex int    `json:"orderIndex"`
	Notes      string `json:"notes,omitempty"`
}

// StoredRoute is a saved route as kept by the store. Points with (0,0)
// coordinates are treated as missing and re-hydrated from favorites.
type StoredRoute struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Points        []RoutePoint `json:"points,omitempty"`
	Waypoints     []Waypoint   `json:"waypoints,omitempty"`
	Polyline      [][2]float64 `json:"polyline,omitempty"` // [lat, lon]
	Profile       string       `json:"profile,omitempty"`
	Outcome       string       `json:"outcome,omitempty"`
	DistanceKm    float64      `json:"distanceKm"`
	DurationHours float64      `json:"durationHours"`
	CostCurrency  int64        `json:"costCurrency"`
	CreatedAt     string       `json:"createdAt,omitempty"`
}

// PointCount is the number of points the route is made of, embedded or referenced.
func (r StoredRoute) PointCount() int {
	if len(r.Points) > 0 {
		return len(r.Points)
	}
	return len(r.Waypoints)
}

// DuplicateReport summarises duplicates among favorites.
type DuplicateReport struct {
	HasDuplicates bool     `json:"hasDuplicates"`
	Duplicates    int      `json:"duplicates"`
	UniqueCount   int      `json:"uniqueCount"`
	Total         int      `json:"total"`
	DuplicateIDs  []string `json:"duplicateIds,omitempty"`
}

// InvalidFavorite is a favorite flagged by the hygiene scan.
type InvalidFavorite struct {
	Favorite Favorite `json:"favorite"`
	Reason   string   `json:"reason"`
}
