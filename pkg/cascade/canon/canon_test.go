package canon

import "testing"

func TestCanonicalizeStable(t *testing.T) {
	a := map[string]interface{}{"state": "CA", "city": "LA", "pop": 100}
	b := map[string]interface{}{"pop": 999, "city": "LA", "state": "CA"}

	if Canonicalize(a, []string{"state", "city"}) != Canonicalize(b, []string{"state", "city"}) {
		t.Fatalf("expected canonicalization to ignore map order and extra fields")
	}
}

func TestCanonicalizeDistinguishesValues(t *testing.T) {
	a := map[string]interface{}{"state": "CA"}
	b := map[string]interface{}{"state": "NY"}

	if Canonicalize(a, []string{"state"}) == Canonicalize(b, []string{"state"}) {
		t.Fatalf("expected different values to canonicalize differently")
	}
}

func TestCanonicalizeMissingField(t *testing.T) {
	a := map[string]interface{}{"state": "CA"}
	b := map[string]interface{}{"state": "CA", "city": nil}

	if Canonicalize(a, []string{"state", "city"}) != Canonicalize(b, []string{"state", "city"}) {
		t.Fatalf("expected a missing field to canonicalize the same as an explicit nil")
	}
}
