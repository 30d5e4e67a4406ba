package codebytes

import (
	"fmt"
	"slices"
)

// Permission is an operation a user may be granted on a document.
type Permission string

const (
	PermissionRead    Permission = "read"
	PermissionWrite   Permission = "write"
	PermissionExecute Permission = "execute"
)

// Grant is one entry of a document's permission list.
type Grant struct {
	User    string `dynamodbav:"user" json:"user"`
	Read    bool   `dynamodbav:"read" json:"read"`
	Write   bool   `dynamodbav:"write" json:"write"`
	Execute bool   `dynamodbav:"execute" json:"execute"`
}

// Allows reports whether the grant carries perm.
func (g Grant) Allows(perm Permission) bool {
	switch perm {
	case PermissionRead:
		return g.Read
	case PermissionWrite:
		return g.Write
	case PermissionExecute:
		return g.Execute
	}
	return false
}

// GrantMap indexes grants by user. When a user appears more than once the
// last entry wins.
func GrantMap(grants []Grant) map[string]Grant {
	m := make(map[string]Grant, len(grants))
	for _, g := range grants {
		m[g.User] = g
	}
	return m
}

// Authorize decides whether actor may perform perm on doc. It returns nil on
// success and an error wrapping ErrNotAuthorized otherwise.
//
// The checks run in order: the owner always passes; an explicit grant
// passes when its flag is set; public documents and documents stored in one
// of publicPartitions pass for reads.
func Authorize(doc *Document, perm Permission, actor string, publicPartitions []string) error {
	if actor != "" && doc.User() == actor {
		return nil
	}

	if g, ok := GrantMap(doc.Grants())[actor]; ok && actor != "" && g.Allows(perm) {
		return nil
	}

	if perm == PermissionRead {
		if doc.Bool(AttributeNamePublic) {
			return nil
		}
		if slices.Contains(publicPartitions, doc.PartitionKey()) {
			return nil
		}
	}

	return fmt.Errorf("%w: %s may not %s %s", ErrNotAuthorized, actor, perm, doc.SortKey())
}
