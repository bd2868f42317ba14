package selectors

import (
	"errors"
	"strings"
	"testing"

	"github.com/lherron/quotesync/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input     string
		wantType  Type
		wantToken string
	}{
		{"#0", TypeIndex, "0"},
		{"r:42", TypeRemote, "42"},
		{"abcd1234", TypeID, "abcd1234"},
		{"  #3 ", TypeIndex, "3"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Parse(tt.input)
			if got.Type != tt.wantType || got.Token != tt.wantToken {
				t.Errorf("Parse(%q) = %+v", tt.input, got)
			}
		})
	}
}

func TestResolveConflict(t *testing.T) {
	list := []domain.Conflict{
		{ID: "aaaa1111-0000-4000-8000-000000000001", RemoteID: 7},
		{ID: "aaaa2222-0000-4000-8000-000000000002", RemoteID: 9},
		{ID: "bbbb3333-0000-4000-8000-000000000003", RemoteID: 7},
	}

	tests := []struct {
		selector string
		wantID   string
		wantErr  string
	}{
		{"#1", list[1].ID, ""},
		{"#3", "", "not found"},
		{"#x", "", "invalid index"},
		{"r:7", list[0].ID, ""},
		{"r:8", "", "not found"},
		{list[2].ID, list[2].ID, ""},
		{"BBBB", list[2].ID, ""},
		{"aaaa", "", "ambiguous"},
		{"aaaa2", list[1].ID, ""},
		{"ab", "", "too short"},
		{"cccc", "", "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			got, err := ResolveConflict(list, tt.selector)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil || got.ID != tt.wantID {
				t.Fatalf("ResolveConflict(%q) = %s, %v", tt.selector, got.ID, err)
			}
		})
	}

	if _, err := ResolveConflict(list, "#5"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("out of range index should be ErrNotFound, got %v", err)
	}
}
