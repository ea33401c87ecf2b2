package logger

// Standard field names for structured logging across brick-api.
const (
	FieldRequestID = "request_id"
	FieldQueryID   = "query_id"
	FieldComponent = "component"

	FieldMethod = "method"
	FieldPath   = "path"
	FieldRoute  = "route"
	FieldQuery  = "query"

	FieldDurationMS = "duration_ms"
	FieldStatus     = "status"
	FieldError      = "error"

	FieldCount   = "count"
	FieldTriples = "triples"
	FieldFile    = "file"
	FieldFiles   = "files"
	FieldAddress = "address"

	FieldBuilding = "building"
	FieldFloor    = "floor"
	FieldDevice   = "device"
)
