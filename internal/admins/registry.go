// Package admins holds the set of identities allowed to use the bot in
// direct chats and to run privileged commands.
package admins

import (
	"errors"
	"sort"
	"sync"
)

var (
	// ErrNotAuthorized is returned when the requester is not an admin.
	ErrNotAuthorized = errors.New("requester is not an admin")

	// ErrSuperAdmin is returned on attempts to revoke the super admin.
	ErrSuperAdmin = errors.New("super admin cannot be revoked")
)

// Registry is the mutable admin set. The super admin is always a member and
// can never be revoked. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	superAdmin string
	members    map[string]bool
}

// NewRegistry creates a Registry seeded from config. superAdmin is always
// included regardless of the seed list.
func NewRegistry(superAdmin string, seed []string) *Registry {
	members := make(map[string]bool, len(seed)+1)
	members[superAdmin] = true
	for _, id := range seed {
		if id != "" {
			members[id] = true
		}
	}
	return &Registry{superAdmin: superAdmin, members: members}
}

// SuperAdmin returns the distinguished super admin identity.
func (r *Registry) SuperAdmin() string { return r.superAdmin }

// IsAdmin reports whether id is a member.
func (r *Registry) IsAdmin(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members[id]
}

// Grant adds target to the set. Granting an existing member is an
// idempotent success. Only admins may grant.
func (r *Registry) Grant(requester, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.members[requester] {
		return ErrNotAuthorized
	}
	r.members[target] = true
	return nil
}

// Revoke removes target from the set. Revoking a non-member is an
// idempotent success, mirroring Grant. The super admin is never removable,
// not even by themselves.
func (r *Registry) Revoke(requester, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.members[requester] {
		return ErrNotAuthorized
	}
	if target == r.superAdmin {
		return ErrSuperAdmin
	}
	delete(r.members, target)
	return nil
}

// Members returns a sorted snapshot of the current admin identities.
func (r *Registry) Members() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.members))
	for id := range r.members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
