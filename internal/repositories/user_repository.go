package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"broiler-backend/internal/models"
	"broiler-backend/internal/store"
)

const usersNode = "users"

// UserRepository stores operator accounts keyed by email. Emails contain
// dots, which are path separators for nested listing, so the key is
// sanitized the same way on every access.
type UserRepository struct {
	Store store.DocumentStore
}

func NewUserRepository(s store.DocumentStore) *UserRepository {
	return &UserRepository{Store: s}
}

func userKey(email string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(email)), ".", ",")
}

func userPath(email string) string {
	return usersNode + "/" + userKey(email)
}

// Get returns the account for an email, or store.ErrNotFound.
func (r *UserRepository) Get(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.Store.Get(ctx, userPath(email), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Put(ctx context.Context, user *models.User) error {
	return r.Store.Set(ctx, userPath(user.Email), user)
}

func (r *UserRepository) Delete(ctx context.Context, email string) error {
	return r.Store.Delete(ctx, userPath(email))
}

func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	children, err := r.Store.List(ctx, usersNode)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]*models.User, 0, len(children))
	for key, raw := range children {
		var user models.User
		if err := json.Unmarshal(raw, &user); err != nil {
			return nil, fmt.Errorf("decode user %s: %w", key, err)
		}
		users = append(users, &user)
	}
	return users, nil
}

// Count returns the number of registered accounts. Used by the one-time
// admin bootstrap to tell whether setup is still open.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	children, err := r.Store.List(ctx, usersNode)
	if err != nil {
		return 0, err
	}
	return len(children), nil
}
