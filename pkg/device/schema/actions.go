package schema

import (
	"encoding/json"

	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

// Action schemas for the commandable categories. The gateway validates
// REST command bodies against these before dispatching to a device.

var lightLampActionSchema = json.RawMessage(`{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"turn_on": {"type": "boolean"},
		"brightness": {"type": "integer", "minimum": 0, "maximum": 100},
		"color": {"type": "integer", "minimum": 0, "maximum": 16777215}
	},
	"additionalProperties": false
}`)

var sinkActionSchema = json.RawMessage(`{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"turn_on": {"type": "boolean"}
	},
	"additionalProperties": false
}`)

// ActionSchema returns the JSON schema for a category's actions, or nil
// when the category is not commandable.
func ActionSchema(category wire.DeviceCategory) json.RawMessage {
	switch category {
	case wire.CategoryLightLamp:
		return lightLampActionSchema
	case wire.CategorySink:
		return sinkActionSchema
	default:
		return nil
	}
}
