// Package authz answers permission checks for acting users. Effective
// permissions come from the role tables and are memoised in a bounded-TTL
// cache owned by this package, not by the accounting core.
package authz

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Service resolves effective permissions for users.
type Service struct {
	pool  *pgxpool.Pool
	cache *Cache
}

// NewService constructs a Service backed by the provided pool. cache may
// be nil, in which case every check hits the database.
func NewService(pool *pgxpool.Pool, cache *Cache) *Service {
	return &Service{pool: pool, cache: cache}
}

// EffectivePermissions returns deduplicated permission names for a user.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	if perms, ok := s.cache.Get(ctx, userID); ok {
		return perms, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT p.name
FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
JOIN user_roles ur ON ur.role_id = rp.role_id
WHERE ur.user_id = $1
ORDER BY p.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		perms = append(perms, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	s.cache.Set(ctx, userID, perms)
	return perms, nil
}

// Allows reports whether the user holds the named permission.
func (s *Service) Allows(ctx context.Context, userID int64, permission string) (bool, error) {
	if userID == 0 || permission == "" {
		return false, nil
	}
	granted, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	want := strings.ToLower(strings.TrimSpace(permission))
	for _, p := range granted {
		if strings.ToLower(p) == want {
			return true, nil
		}
	}
	return false, nil
}

// Invalidate drops the cached permission set for a user, e.g. after a
// role assignment change.
func (s *Service) Invalidate(ctx context.Context, userID int64) {
	s.cache.Drop(ctx, userID)
}
