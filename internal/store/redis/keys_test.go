package redis

import "testing"

func TestRevisionKey(t *testing.T) {
	if got := RevisionKey(DefaultDocumentKey); got != "bitscreen:local_database:rev" {
		t.Fatalf("RevisionKey() = %q", got)
	}
}

func TestNewBackendDefaultKey(t *testing.T) {
	b := NewBackend(nil, "")
	if b.key != DefaultDocumentKey {
		t.Fatalf("key = %q, want %q", b.key, DefaultDocumentKey)
	}
	if b.Name() != "redis" {
		t.Fatalf("Name() = %q", b.Name())
	}
}
