package identity

import (
	"context"

	"murmur/internal/models"
)

// Resolver maps a provider subject id to the local user row. Implementations
// return models.NewUserNotFoundError when no row exists yet, which happens
// when a request races the user.created webhook.
type Resolver interface {
	Resolve(ctx context.Context, externalID string) (*models.User, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, externalID string) (*models.User, error)

func (f ResolverFunc) Resolve(ctx context.Context, externalID string) (*models.User, error) {
	return f(ctx, externalID)
}

// UserLookup is the read the resolver needs from user storage.
type UserLookup interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
}

type lookupResolver struct {
	users UserLookup
}

// NewResolver returns a Resolver backed by user storage.
func NewResolver(users UserLookup) Resolver {
	return &lookupResolver{users: users}
}

func (r *lookupResolver) Resolve(ctx context.Context, externalID string) (*models.User, error) {
	if externalID == "" {
		return nil, models.NewUnauthenticatedError("Missing identity")
	}
	user, err := r.users.GetByExternalID(ctx, externalID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewUserNotFoundError()
		}
		return nil, err
	}
	if user == nil || user.IsDeleted {
		return nil, models.NewUserNotFoundError()
	}
	return user, nil
}
