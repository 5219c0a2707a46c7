package supervisor

import (
	"fmt"
	"time"
)

// Role is the connectivity role the node is currently serving.
type Role int

const (
	// RoleLocalAP: only the configuration access point is serving.
	RoleLocalAP Role = iota
	// RoleAttaching: an upstream attach is in flight; the AP may stay up alongside.
	RoleAttaching
	// RoleAttached: the upstream link is up.
	RoleAttached
	// RoleFallback: an attach timed out and the local AP was brought back.
	RoleFallback
)

func (r Role) String() string {
	switch r {
	case RoleLocalAP:
		return "local_ap"
	case RoleAttaching:
		return "attaching"
	case RoleAttached:
		return "attached"
	case RoleFallback:
		return "fallback"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Role) UnmarshalText(text []byte) error {
	for _, candidate := range []Role{RoleLocalAP, RoleAttaching, RoleAttached, RoleFallback} {
		if candidate.String() == string(text) {
			*r = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown role %q", text)
}

// ErrorKind is the last connectivity error, reported through status only.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrNoCredentials
	ErrTimeout
	ErrLinkLost
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNone:
		return "none"
	case ErrNoCredentials:
		return "no_credentials"
	case ErrTimeout:
		return "timeout"
	case ErrLinkLost:
		return "link_lost"
	default:
		return fmt.Sprintf("error_kind(%d)", int(k))
	}
}

func (k ErrorKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *ErrorKind) UnmarshalText(text []byte) error {
	for _, candidate := range []ErrorKind{ErrNone, ErrNoCredentials, ErrTimeout, ErrLinkLost} {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", text)
}

// State is a read-only snapshot of the connectivity record.
// AttachDeadline is non-zero iff Role is RoleAttaching.
type State struct {
	Role           Role
	AttachDeadline time.Time
	LastError      ErrorKind
}

// Status is what operators see through the portal and the CLI.
type Status struct {
	Role             Role       `json:"role"`
	LastError        ErrorKind  `json:"last_error"`
	ReadinessPending bool       `json:"readiness_pending"`
	AttachDeadline   *time.Time `json:"attach_deadline,omitempty"`
	SSID             string     `json:"ssid,omitempty"`
	AccessPoint      string     `json:"access_point"`
	AccessPointOpen  bool       `json:"access_point_open"`
}

// Credentials identify the upstream network. An empty Secret means an open network.
type Credentials struct {
	SSID   string `json:"ssid"`
	Secret string `json:"secret"`
}

// AccessPointSettings configure the local access point.
type AccessPointSettings struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}
