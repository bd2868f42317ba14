// Package selectors turns user-supplied conflict references into conflict
// identities.
package selectors

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lherron/quotesync/internal/domain"
)

// Type represents how a selector addresses a conflict
type Type string

const (
	TypeIndex  Type = "index"  // #N, position in the current listing
	TypeRemote Type = "remote" // r:N, remote id of the affected record
	TypeID     Type = "id"     // full conflict id or a unique prefix
)

// MinPrefixLen is the shortest id prefix accepted.
const MinPrefixLen = 4

// Selector represents a parsed conflict selector
type Selector struct {
	Type  Type
	Token string
}

// Parse parses a selector string. Supports #<index>, r:<remote id>, or a
// plain id or id prefix.
func Parse(selector string) Selector {
	selector = strings.TrimSpace(selector)
	switch {
	case strings.HasPrefix(selector, "#"):
		return Selector{Type: TypeIndex, Token: strings.TrimPrefix(selector, "#")}
	case strings.HasPrefix(selector, "r:"):
		return Selector{Type: TypeRemote, Token: strings.TrimPrefix(selector, "r:")}
	default:
		return Selector{Type: TypeID, Token: selector}
	}
}

// ResolveConflict finds the conflict a selector refers to within list.
// Positional selectors are only a lookup: callers should resolve by the
// returned conflict's ID.
func ResolveConflict(list []domain.Conflict, selector string) (domain.Conflict, error) {
	parsed := Parse(selector)

	switch parsed.Type {
	case TypeIndex:
		idx, err := strconv.Atoi(parsed.Token)
		if err != nil {
			return domain.Conflict{}, fmt.Errorf("invalid index %q", parsed.Token)
		}
		if idx < 0 || idx >= len(list) {
			return domain.Conflict{}, &domain.NotFoundError{Resource: "conflict", ID: selector}
		}
		return list[idx], nil

	case TypeRemote:
		remoteID, err := strconv.ParseInt(parsed.Token, 10, 64)
		if err != nil {
			return domain.Conflict{}, fmt.Errorf("invalid remote id %q", parsed.Token)
		}
		for _, c := range list {
			if c.RemoteID == remoteID {
				return c, nil
			}
		}
		return domain.Conflict{}, &domain.NotFoundError{Resource: "conflict", ID: selector}
	}

	token := strings.ToLower(parsed.Token)
	if token == "" {
		return domain.Conflict{}, fmt.Errorf("empty selector")
	}
	for _, c := range list {
		if c.ID == token {
			return c, nil
		}
	}
	if len(token) < MinPrefixLen {
		return domain.Conflict{}, fmt.Errorf("id prefix %q too short (need %d characters)", token, MinPrefixLen)
	}

	var matches []domain.Conflict
	for _, c := range list {
		if strings.HasPrefix(c.ID, token) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return domain.Conflict{}, &domain.NotFoundError{Resource: "conflict", ID: selector}
	case 1:
		return matches[0], nil
	default:
		return domain.Conflict{}, fmt.Errorf("ambiguous selector %q matches %d conflicts", selector, len(matches))
	}
}
