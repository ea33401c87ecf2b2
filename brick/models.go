package brick

// Building is a brick:Building entity.
type Building struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// Floor is a brick:Floor that a building directly has as a part.
type Floor struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	BuildingID string `json:"building_id"`
}

// Device is an entity whose type descends from brick:Equipment.
type Device struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Name     string   `json:"name"`
	Location *string  `json:"location"`
	Points   []string `json:"points"`
}

// Point is a brick:Point attached to a device with brick:hasPoint.
// CurrentValue stays nil: no timeseries backend is wired.
type Point struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Name         string         `json:"name"`
	Device       *string        `json:"device"`
	CurrentValue map[string]any `json:"current_value"`
}

// RawResult is the JSON-safe rendering of an arbitrary query: every bound
// value as a string, unbound values as nil.
type RawResult struct {
	Results []map[string]any `json:"results"`
}
