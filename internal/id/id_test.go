package id

import "testing"

func TestNewLocalID(t *testing.T) {
	a := NewLocalID()
	b := NewLocalID()
	if a == b {
		t.Fatal("expected distinct ids")
	}
	if !IsUUID(a) {
		t.Errorf("expected UUID, got %q", a)
	}
}

func TestRemoteLocalIDRoundTrip(t *testing.T) {
	got := FormatRemoteLocalID(42)
	if got != "srv-42" {
		t.Fatalf("expected srv-42, got %s", got)
	}
	n, ok := ParseRemoteLocalID(got)
	if !ok || n != 42 {
		t.Errorf("ParseRemoteLocalID(%q) = %d, %v", got, n, ok)
	}
}

func TestParseRemoteLocalID_Invalid(t *testing.T) {
	tests := []string{"", "srv-", "srv-abc", "42", "T-00001"}
	for _, tt := range tests {
		if _, ok := ParseRemoteLocalID(tt); ok {
			t.Errorf("ParseRemoteLocalID(%q) should fail", tt)
		}
	}
}

func TestShort(t *testing.T) {
	if got := Short("550e8400-e29b-41d4-a716-446655440000"); got != "550e8400" {
		t.Errorf("expected 550e8400, got %s", got)
	}
	if got := Short("srv-7"); got != "srv-7" {
		t.Errorf("expected srv-7, got %s", got)
	}
}
