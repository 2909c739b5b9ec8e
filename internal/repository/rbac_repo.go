package repository

import (
	"context"
	"fmt"

	"go-user-auth/internal/database"
	"go-user-auth/internal/model"
)

// RBACRepository answers permission lookups from the roles,
// role_permissions and permissions tables.
type RBACRepository struct {
	db database.DBTX
}

func NewRBACRepository(db database.DBTX) *RBACRepository {
	return &RBACRepository{db: db}
}

func (r *RBACRepository) GetUserPermissions(ctx context.Context, userID string) ([]model.Permission, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT p.code
		 FROM users u
		 JOIN role_permissions rp ON rp.role_id = u.role_id
		 JOIN permissions p ON p.id = rp.permission_id
		 WHERE u.id = $1
		 ORDER BY p.code`, userID)
	if err != nil {
		return nil, fmt.Errorf("get user permissions: %w", err)
	}
	defer rows.Close()

	permissions := make([]model.Permission, 0)
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.Code); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		permissions = append(permissions, p)
	}
	return permissions, rows.Err()
}
