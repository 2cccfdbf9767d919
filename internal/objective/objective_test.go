package objective

import (
	"math"
	"testing"
)

func TestLookupKnownFunctions(t *testing.T) {
	for _, name := range []string{"sphere", "rosenbrock", "ackley", "rastrigin"} {
		fn, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q) failed: %v", name, err)
		}
		if fn.Eval == nil {
			t.Errorf("Lookup(%q) returned nil Eval", name)
		}
		if fn.Bounds.Min >= fn.Bounds.Max {
			t.Errorf("Lookup(%q) has invalid bounds: %+v", name, fn.Bounds)
		}
		if len(fn.ContourLevels) == 0 {
			t.Errorf("Lookup(%q) has no contour levels", name)
		}
		for _, level := range fn.ContourLevels {
			if level <= 0 {
				t.Errorf("Lookup(%q) has non-positive contour level %f", name, level)
			}
		}
	}
}

func TestLookupUnknownFunction(t *testing.T) {
	_, err := Lookup("himmelblau")
	if err == nil {
		t.Error("Lookup should fail for unregistered function")
	}
}

func TestSphereValues(t *testing.T) {
	fn, _ := Lookup("sphere")

	if got := fn.Eval(3, 4); got != 25 {
		t.Errorf("sphere(3,4) = %f, want 25", got)
	}
	if got := fn.Eval(0, 0); got != 0 {
		t.Errorf("sphere(0,0) = %f, want 0", got)
	}
	if fn.Bounds != (Bounds{Min: -10, Max: 10}) {
		t.Errorf("sphere bounds = %+v, want [-10,10]", fn.Bounds)
	}
}

func TestRosenbrockValues(t *testing.T) {
	fn, _ := Lookup("rosenbrock")

	if got := fn.Eval(1, 1); got != 0 {
		t.Errorf("rosenbrock(1,1) = %f, want 0", got)
	}
	// (1-0)^2 + 100*(0-0)^2 = 1
	if got := fn.Eval(0, 0); got != 1 {
		t.Errorf("rosenbrock(0,0) = %f, want 1", got)
	}
	if fn.Bounds != (Bounds{Min: -2, Max: 2}) {
		t.Errorf("rosenbrock bounds = %+v, want [-2,2]", fn.Bounds)
	}
}

func TestAckleyValues(t *testing.T) {
	fn, _ := Lookup("ackley")

	if got := fn.Eval(0, 0); math.Abs(got) > 1e-12 {
		t.Errorf("ackley(0,0) = %g, want ~0", got)
	}
	// Away from the origin the value must be strictly positive
	if got := fn.Eval(1, 1); got <= 0 {
		t.Errorf("ackley(1,1) = %f, want > 0", got)
	}
	if fn.Bounds != (Bounds{Min: -5, Max: 5}) {
		t.Errorf("ackley bounds = %+v, want [-5,5]", fn.Bounds)
	}
}

func TestRastriginValues(t *testing.T) {
	fn, _ := Lookup("rastrigin")

	if got := fn.Eval(0, 0); got != 0 {
		t.Errorf("rastrigin(0,0) = %f, want 0", got)
	}
	if fn.Bounds != (Bounds{Min: -5.12, Max: 5.12}) {
		t.Errorf("rastrigin bounds = %+v, want [-5.12,5.12]", fn.Bounds)
	}
}

func TestNames(t *testing.T) {
	names := Names()

	if len(names) != 4 {
		t.Fatalf("Expected 4 registered functions, got %d", len(names))
	}

	// Sorted order
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("Names not sorted: %v", names)
		}
	}

	if _, err := Lookup(DefaultFunction); err != nil {
		t.Errorf("DefaultFunction %q is not registered", DefaultFunction)
	}
}

func TestBoundsClamp(t *testing.T) {
	b := Bounds{Min: -5, Max: 5}

	if got := b.Clamp(7); got != 5 {
		t.Errorf("Clamp(7) = %f, want 5", got)
	}
	if got := b.Clamp(-7); got != -5 {
		t.Errorf("Clamp(-7) = %f, want -5", got)
	}
	if got := b.Clamp(3); got != 3 {
		t.Errorf("Clamp(3) = %f, want 3", got)
	}
	if got := b.Width(); got != 10 {
		t.Errorf("Width() = %f, want 10", got)
	}
}
