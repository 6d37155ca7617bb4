package httpmiddleware

import "testing"

func TestTokenBucket_AllowsUpToCapacity(t *testing.T) {
	l := NewSimpleTokenBucket(3, 60)

	for i := 0; i < 3; i++ {
		if !l.allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.allow("1.2.3.4") {
		t.Error("request over capacity should be denied")
	}
}

func TestTokenBucket_KeysAreIndependent(t *testing.T) {
	l := NewSimpleTokenBucket(1, 60)

	if !l.allow("1.1.1.1") {
		t.Fatal("first key should be allowed")
	}
	if !l.allow("2.2.2.2") {
		t.Error("a different key should have its own bucket")
	}
	if l.allow("1.1.1.1") {
		t.Error("exhausted key should be denied")
	}
}

func TestTokenBucket_DefaultCapacity(t *testing.T) {
	l := NewSimpleTokenBucket(0, 10)
	if l.capacity != 10 {
		t.Errorf("expected capacity to default to rate, got %d", l.capacity)
	}
}
