// Package visibility holds the pure access-control policy for memories.
// It performs no I/O; callers fetch the record first and ask the policy
// whether the asserted actor may read or mutate it.
package visibility

import "github.com/geoffjay/berry/internal/model"

// DefaultAdminActor is the reserved identity of the human administrator.
// Services may override it from configuration.
const DefaultAdminActor = "human"

// CanAccess reports whether actor may read m.
//
// Decision order: admin override, legacy records (absent visibility reads as
// public), public, private (owner only), shared (owner or member). Unknown
// visibility values deny.
func CanAccess(m *model.Memory, actor string, adminOverride bool, admin string) bool {
	if adminOverride && actor == admin {
		return true
	}
	switch m.Visibility {
	case "", model.VisibilityPublic:
		return true
	case model.VisibilityPrivate:
		return actor != "" && actor == m.ResolvedOwner()
	case model.VisibilityShared:
		if actor != "" && actor == m.ResolvedOwner() {
			return true
		}
		for _, s := range m.SharedWith {
			if actor != "" && actor == s {
				return true
			}
		}
		return false
	}
	return false
}

// CanMutate reports whether actor may delete m or change its visibility.
// Only ownership matters here; the visibility level is irrelevant. A record
// whose owner cannot be resolved is mutable only via admin override.
func CanMutate(m *model.Memory, actor string, adminOverride bool, admin string) bool {
	if adminOverride && actor == admin {
		return true
	}
	owner := m.ResolvedOwner()
	return owner != "" && actor == owner
}
