package email

import (
	"fmt"
	"net/mail"
	"strings"
)

// ParseAddressList splits raw on commas and parses every fragment as a single
// address. Fragments are not trimmed; any invalid fragment fails the whole list.
// An empty raw string yields an empty list.
func ParseAddressList(raw string) ([]*mail.Address, error) {
	if raw == "" {
		return nil, nil
	}

	fragments := strings.Split(raw, ",")
	out := make([]*mail.Address, 0, len(fragments))
	for i, fragment := range fragments {
		addr, err := mail.ParseAddress(fragment)
		if err != nil {
			return nil, fmt.Errorf("%w: fragment %d %q: %v", ErrInvalidAddress, i, fragment, err)
		}
		out = append(out, addr)
	}
	return out, nil
}
