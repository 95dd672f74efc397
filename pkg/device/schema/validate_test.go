package schema

import (
	"encoding/json"
	"testing"

	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

func TestValidate_ValidLightAction(t *testing.T) {
	v := NewValidator()
	schema := ActionSchema(wire.CategoryLightLamp)

	err := v.Validate(schema, map[string]any{
		"turn_on":    true,
		"brightness": float64(75),
	})
	if err != nil {
		t.Errorf("expected valid payload, got: %v", err)
	}
}

func TestValidate_TurnOnOnly(t *testing.T) {
	v := NewValidator()
	schema := ActionSchema(wire.CategoryLightLamp)

	err := v.Validate(schema, map[string]any{
		"turn_on": false,
	})
	if err != nil {
		t.Errorf("expected valid payload, got: %v", err)
	}
}

func TestValidate_BrightnessOutOfRange(t *testing.T) {
	v := NewValidator()
	schema := ActionSchema(wire.CategoryLightLamp)

	err := v.Validate(schema, map[string]any{
		"brightness": float64(101),
	})
	if err == nil {
		t.Error("expected validation error for out-of-range brightness")
	}
}

func TestValidate_NegativeColor(t *testing.T) {
	v := NewValidator()
	schema := ActionSchema(wire.CategoryLightLamp)

	err := v.Validate(schema, map[string]any{
		"color": float64(-1),
	})
	if err == nil {
		t.Error("expected validation error for negative color")
	}
}

func TestValidate_UnknownProperty(t *testing.T) {
	v := NewValidator()
	schema := ActionSchema(wire.CategorySink)

	err := v.Validate(schema, map[string]any{
		"turn_on": true,
		"unknown": "value",
	})
	if err == nil {
		t.Error("expected validation error for unknown property")
	}
}

func TestValidate_WrongType(t *testing.T) {
	v := NewValidator()
	schema := ActionSchema(wire.CategorySink)

	err := v.Validate(schema, map[string]any{
		"turn_on": "yes",
	})
	if err == nil {
		t.Error("expected validation error for wrong type")
	}
}

func TestValidate_NilSchema(t *testing.T) {
	v := NewValidator()

	// Sensors have no action schema; no schema means no validation.
	err := v.Validate(ActionSchema(wire.CategoryToilet), map[string]any{
		"anything": "goes",
	})
	if err != nil {
		t.Errorf("nil schema should skip validation, got: %v", err)
	}
}

func TestValidate_CachesSchema(t *testing.T) {
	v := NewValidator()
	schema := ActionSchema(wire.CategoryLightLamp)

	err := v.Validate(schema, map[string]any{"turn_on": true})
	if err != nil {
		t.Fatal(err)
	}

	err = v.Validate(schema, map[string]any{"turn_on": false})
	if err != nil {
		t.Fatal(err)
	}

	v.mu.RLock()
	cacheSize := len(v.cache)
	v.mu.RUnlock()
	if cacheSize != 1 {
		t.Errorf("expected 1 cached schema, got %d", cacheSize)
	}
}

func TestActionSchema_CommandableCategories(t *testing.T) {
	tests := []struct {
		category wire.DeviceCategory
		want     bool
	}{
		{wire.CategoryLightLamp, true},
		{wire.CategorySink, true},
		{wire.CategoryToilet, false},
		{wire.CategoryFartDetector, false},
		{wire.CategoryWaterLeak, false},
		{wire.CategoryUnknown, false},
	}

	for _, tt := range tests {
		got := ActionSchema(tt.category)
		if (got != nil) != tt.want {
			t.Errorf("ActionSchema(%s): got schema=%v, want %v", tt.category, got != nil, tt.want)
		}
	}
}

func TestActionSchema_IsValidJSON(t *testing.T) {
	for _, category := range []wire.DeviceCategory{wire.CategoryLightLamp, wire.CategorySink} {
		var doc map[string]any
		if err := json.Unmarshal(ActionSchema(category), &doc); err != nil {
			t.Errorf("schema for %s is not valid JSON: %v", category, err)
		}
	}
}
