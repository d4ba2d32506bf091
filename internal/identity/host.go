// Package identity decides who is using the mini-app. It trusts the user
// supplied by the host container, checks the account row and gates access
// until the user is known and has set a password.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var ErrNoIdentity = errors.New("no host identity")

// HostIdentity is the user the host container reports for this session.
type HostIdentity struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
}

// Key is the account row key: the ID in decimal.
func (h HostIdentity) Key() string {
	return strconv.FormatInt(h.ID, 10)
}

// MockIdentity stands in for the host user during local development.
var MockIdentity = HostIdentity{
	ID:        123456789,
	Username:  "Samuel_Melis",
	FirstName: "Samuel",
	LastName:  "Melis",
}

// ParseInitData reads the user out of the host's init data, a URL-encoded
// query string whose "user" field holds a JSON object.
func ParseInitData(raw string) (HostIdentity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return HostIdentity{}, ErrNoIdentity
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return HostIdentity{}, fmt.Errorf("%w: %v", ErrNoIdentity, err)
	}
	user := values.Get("user")
	if user == "" {
		return HostIdentity{}, ErrNoIdentity
	}
	var h HostIdentity
	if err := json.Unmarshal([]byte(user), &h); err != nil {
		return HostIdentity{}, fmt.Errorf("%w: decode user: %v", ErrNoIdentity, err)
	}
	if h.ID == 0 {
		return HostIdentity{}, fmt.Errorf("%w: missing user id", ErrNoIdentity)
	}
	return h, nil
}

// Resolver turns init data into an identity, substituting MockIdentity in
// dev mode when the host supplied nothing usable.
type Resolver struct {
	DevMode bool
}

func (r Resolver) Resolve(initData string) (HostIdentity, error) {
	h, err := ParseInitData(initData)
	if err == nil {
		return h, nil
	}
	if r.DevMode {
		return MockIdentity, nil
	}
	return HostIdentity{}, err
}
