package storage

import "testing"

func TestNullStorageGetSetDel(t *testing.T) {
	s := NewNullStorage()
	if _, ok := s.Get("missing"); ok {
		t.Fatal("expected miss on empty storage")
	}
	s.Set("k", []byte("v"))
	v, ok := s.Get("k")
	if !ok || string(v) != "v" {
		t.Fatalf("expected hit with v, got %q ok=%v", v, ok)
	}
	s.Del("k")
	if _, ok := s.Get("k"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestKeyFormats(t *testing.T) {
	if StatesKey(1) != "states_1" {
		t.Errorf("StatesKey(1) = %q", StatesKey(1))
	}
	if SyncKey(1, 42) != "sync_1_42" {
		t.Errorf("SyncKey(1, 42) = %q", SyncKey(1, 42))
	}
}
