package logfields

import (
	"errors"
	"testing"
	"time"
)

func TestHelpers(t *testing.T) {
	if a := Resource("pump"); a.Key != KeyResource || a.Value.String() != "pump" {
		t.Errorf("unexpected attr %v", a)
	}
	if a := Attribute("speed"); a.Key != KeyAttribute || a.Value.String() != "speed" {
		t.Errorf("unexpected attr %v", a)
	}
	if a := Duration(1500 * time.Microsecond); a.Value.Float64() != 1.5 {
		t.Errorf("expected 1.5ms, got %v", a.Value)
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Errorf("unexpected error attr %v", a)
	}
	if a := Error(nil); a.Value.String() != "" {
		t.Errorf("expected empty error attr, got %v", a)
	}
}
