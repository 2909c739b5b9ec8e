package service

import (
	"context"
	"fmt"
	"slices"
)

// PermissionResolver turns the RBAC lookup into permission codes. Results
// are never cached, so role changes show up on the next call.
type PermissionResolver struct {
	store PermissionStore
}

func NewPermissionResolver(store PermissionStore) *PermissionResolver {
	return &PermissionResolver{store: store}
}

// Permissions returns the sorted, de-duplicated codes granted to userID.
func (r *PermissionResolver) Permissions(ctx context.Context, userID string) ([]string, error) {
	perms, err := r.store.GetUserPermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: %w", err)
	}

	codes := make([]string, 0, len(perms))
	for _, p := range perms {
		if p.Code != "" {
			codes = append(codes, p.Code)
		}
	}
	slices.Sort(codes)
	return slices.Compact(codes), nil
}

func (r *PermissionResolver) HasPermission(ctx context.Context, userID string, code string) (bool, error) {
	codes, err := r.Permissions(ctx, userID)
	if err != nil {
		return false, err
	}
	_, found := slices.BinarySearch(codes, code)
	return found, nil
}
