package codebytes

import "context"

type identityKind int

const (
	kindAnonymous identityKind = iota
	kindUser
	kindSystem
)

// Identity is the acting user of a single request. The zero value is anonymous.
type Identity struct {
	user string
	kind identityKind
}

var (
	// Anonymous acts without a user identity.
	Anonymous = Identity{kind: kindAnonymous}
	// System acts as the administrative system user.
	System = Identity{kind: kindSystem}
)

// User returns an identity for the named user. An empty name is anonymous.
func User(name string) Identity {
	if name == "" {
		return Anonymous
	}
	return Identity{user: name, kind: kindUser}
}

// Name returns the user identifier, or "" for the anonymous and system identities.
func (i Identity) Name() string { return i.user }

// IsAnonymous reports whether the identity carries no user.
func (i Identity) IsAnonymous() bool { return i.kind == kindAnonymous }

// IsSystem reports whether the identity is the system identity.
func (i Identity) IsSystem() bool { return i.kind == kindSystem }

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id. It is called once at the
// start of every request.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored in ctx, or Anonymous when none was set.
func IdentityFrom(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey{}).(Identity); ok {
		return id
	}
	return Anonymous
}
