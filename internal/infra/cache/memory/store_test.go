package memory

import (
	"reflect"
	"testing"
)

func TestStoreSetGetRemove(t *testing.T) {
	s := New()
	if _, ok, err := s.Get("missing"); ok || err != nil {
		t.Fatalf("expected miss without error, got ok=%v err=%v", ok, err)
	}
	if err := s.Set("b", "2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set("a", "1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set("a", "3"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v, ok, _ := s.Get("a"); !ok || v != "3" {
		t.Fatalf("expected overwritten value 3, got %q ok=%v", v, ok)
	}
	if got := s.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected keys %v", got)
	}
	if err := s.Remove("a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove("a"); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
	if _, ok, _ := s.Get("a"); ok {
		t.Fatalf("expected a removed")
	}
}
