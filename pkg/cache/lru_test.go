package cache

import (
	"testing"
)

type planKey struct {
	Topic   string `json:"topic"`
	Goal    string `json:"goal,omitempty"`
	Breadth int    `json:"breadth,omitempty"`
	Digest  string `json:"digest,omitempty"`
}

func TestStoreGetSet(t *testing.T) {
	s := New[[]string](10)

	key := planKey{Topic: "solar power", Breadth: 4}
	if _, ok := s.Get(key); ok {
		t.Fatal("expected miss on empty cache")
	}

	s.Set(key, []string{"a", "b"})
	got, ok := s.Get(key)
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Get returned %v, want [a b]", got)
	}
}

func TestStoreEvictsLeastRecentlyUsed(t *testing.T) {
	s := New[int](2)

	s.Set(planKey{Topic: "one"}, 1)
	s.Set(planKey{Topic: "two"}, 2)

	// Touch "one" so "two" becomes the eviction candidate.
	if _, ok := s.Get(planKey{Topic: "one"}); !ok {
		t.Fatal("expected hit for one")
	}

	s.Set(planKey{Topic: "three"}, 3)

	if _, ok := s.Get(planKey{Topic: "two"}); ok {
		t.Error("expected two to be evicted")
	}
	if _, ok := s.Get(planKey{Topic: "one"}); !ok {
		t.Error("expected one to survive eviction")
	}
	if _, ok := s.Get(planKey{Topic: "three"}); !ok {
		t.Error("expected three to be present")
	}
}

func TestStoreUnserializableKeyIsAdvisory(t *testing.T) {
	s := New[string](2)

	// Channels cannot be JSON-serialized; both operations must degrade
	// silently instead of erroring.
	bad := map[string]interface{}{"ch": make(chan int)}
	s.Set(bad, "value")
	if _, ok := s.Get(bad); ok {
		t.Error("expected miss for unserializable key")
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestFingerprintOmitsDefaults(t *testing.T) {
	// A zero breadth/goal/digest must normalize identically to a key that
	// never set them.
	a, err := Fingerprint(planKey{Topic: "t"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Fingerprint(planKey{Topic: "t", Goal: "", Breadth: 0, Digest: ""})
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("fingerprints differ for equivalent keys: %s vs %s", a, b)
	}

	c, err := Fingerprint(planKey{Topic: "t", Breadth: 4})
	if err != nil {
		t.Fatal(err)
	}
	if a == c {
		t.Error("fingerprints must differ when breadth differs")
	}
}

func TestDigest(t *testing.T) {
	tests := []struct {
		name  string
		a, b  []string
		equal bool
	}{
		{"both empty", nil, []string{}, true},
		{"same items", []string{"x", "y"}, []string{"x", "y"}, true},
		{"different items", []string{"x"}, []string{"y"}, false},
		{"order matters", []string{"x", "y"}, []string{"y", "x"}, false},
		{"join ambiguity", []string{"ab", "c"}, []string{"a", "bc"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Digest(tt.a) == Digest(tt.b); got != tt.equal {
				t.Errorf("Digest(%v) == Digest(%v) is %v, want %v", tt.a, tt.b, got, tt.equal)
			}
		})
	}

	if Digest(nil) != "" {
		t.Error("empty digest must be the empty string so it is omitted from keys")
	}
}

func TestStoreCapacityFloor(t *testing.T) {
	s := New[string](0)
	s.Set(planKey{Topic: "t"}, "v")
	if got := s.Len(); got != 1 {
		t.Errorf("Len = %d, want 1", got)
	}
}

func BenchmarkFingerprint(b *testing.B) {
	key := planKey{Topic: "benchmark topic", Goal: "goal", Breadth: 4, Digest: Digest([]string{"l1", "l2"})}
	for i := 0; i < b.N; i++ {
		if _, err := Fingerprint(key); err != nil {
			b.Fatal(err)
		}
	}
}
