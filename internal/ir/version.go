package ir

// Version constants for the wire schema and engine.
const (
	// SchemaVersion is the request/response schema version.
	SchemaVersion = "1"

	// EngineVersion is the simulator engine version recorded with each run.
	EngineVersion = "0.1.0"
)
