package entity

import "ecospectre-be/pkg/scan"

type IdentityKind int

const (
	IdentityGuest IdentityKind = iota
	// IdentityClaimed is a user id taken from the request body, unverified.
	IdentityClaimed
	IdentityAuthenticated
)

func (k IdentityKind) String() string {
	switch k {
	case IdentityAuthenticated:
		return "authenticated"
	case IdentityClaimed:
		return "claimed"
	default:
		return "guest"
	}
}

// Identity is who a request acts for. Only an authenticated identity scopes reads.
type Identity struct {
	Kind   IdentityKind
	UserID string
	Email  string
}

func Guest() Identity {
	return Identity{Kind: IdentityGuest, UserID: scan.GuestUserID}
}

func Authenticated(userID, email string) Identity {
	return Identity{Kind: IdentityAuthenticated, UserID: userID, Email: email}
}

func (i Identity) IsAuthenticated() bool {
	return i.Kind == IdentityAuthenticated && i.UserID != ""
}

// ResolveOwner picks the owner of a new record: authenticated id, then claimed id, then guest.
func (i Identity) ResolveOwner(claimed string) Identity {
	if i.IsAuthenticated() {
		return i
	}
	if claimed != "" {
		return Identity{Kind: IdentityClaimed, UserID: claimed}
	}
	return Guest()
}
