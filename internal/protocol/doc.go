// Package protocol is the JSON wire codec of the simulator.
//
// Request documents are first checked against the embedded CUE schema
// (schema.cue), which catches malformed structure: wrong field types,
// unknown fields, missing coordinates. Failures there are ParseErrors. The
// structurally valid document is then converted to facade types, where
// unknown block types, invalid facings and fields that do not belong to a
// block type are ValidationErrors.
//
// Response documents are plain structs. Diff changes carry only the
// observable fields of their block type; see recorder.Change.
package protocol
