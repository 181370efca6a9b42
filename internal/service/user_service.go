package service

import (
	"context"
	"log/slog"
	"strings"

	"murmur/internal/middleware"
	"murmur/internal/models"
	"murmur/internal/observability"
	"murmur/internal/repository"
	"murmur/internal/webhook"
)

type UserService struct {
	users         repository.UserRepository
	relationships repository.RelationshipRepository
	follows       *repository.Toggle[models.Follow]
	blocks        *repository.Toggle[models.Block]
}

// UpdateProfileInput carries a partial profile edit. Nil fields are left
// unchanged.
type UpdateProfileInput struct {
	UserID      uint    `validate:"-"`
	Username    *string `validate:"omitempty,min=3,max=30,username"`
	DisplayName *string `validate:"omitempty,max=50"`
	Bio         *string `validate:"omitempty,max=160"`
}

func NewUserService(
	users repository.UserRepository,
	relationships repository.RelationshipRepository,
	follows *repository.Toggle[models.Follow],
	blocks *repository.Toggle[models.Block],
) *UserService {
	return &UserService{users: users, relationships: relationships, follows: follows, blocks: blocks}
}

func (s *UserService) profile(ctx context.Context, viewerID uint, user *models.User) (*models.Profile, error) {
	followers, err := s.follows.CountTarget(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	following, err := s.follows.CountActor(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	p := &models.Profile{User: *user, FollowerCount: followers, FollowingCount: following}
	if viewerID == user.ID {
		return p, nil
	}
	if p.IsFollowing, err = s.follows.IsActive(ctx, viewerID, user.ID); err != nil {
		return nil, err
	}
	if p.IsBlocked, err = s.blocks.IsActive(ctx, viewerID, user.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProfile returns another user's profile. Users hidden from the viewer
// are reported as not found.
func (s *UserService) GetProfile(ctx context.Context, viewerID, id uint) (*models.Profile, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if id != viewerID {
		ex, err := s.relationships.Exclusions(ctx, viewerID, false)
		if err != nil {
			return nil, err
		}
		if ex.Excludes(id) {
			return nil, models.NewNotFoundError("User", id)
		}
	}
	return s.profile(ctx, viewerID, user)
}

func (s *UserService) Me(ctx context.Context, viewer *models.User) (*models.Profile, error) {
	return s.profile(ctx, viewer.ID, viewer)
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.Profile, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.Username != nil && *in.Username != user.Username {
		taken, err := s.users.GetByUsername(ctx, *in.Username)
		if err != nil {
			return nil, err
		}
		if taken != nil && taken.ID != user.ID {
			return nil, models.NewConflictError("Username is already taken")
		}
		fields["username"] = *in.Username
	}
	if in.DisplayName != nil {
		fields["display_name"] = strings.TrimSpace(*in.DisplayName)
	}
	if in.Bio != nil {
		fields["bio"] = strings.TrimSpace(*in.Bio)
	}
	if err := s.users.UpdateProfile(ctx, user, fields); err != nil {
		return nil, err
	}

	updated, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, user.ID, updated)
}

// fallbackUsername derives a stable username from the provider id.
func fallbackUsername(externalID string) string {
	id := strings.Map(func(r rune) rune {
		if usernamePattern.MatchString(string(r)) {
			return r
		}
		return -1
	}, externalID)
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return "user_" + id
}

func webhookOutcome(eventType, outcome string) {
	observability.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// HandleWebhook applies a verified identity event. Unknown event types are
// acknowledged and ignored.
func (s *UserService) HandleWebhook(ctx context.Context, ev *webhook.Event) error {
	switch ev.Type {
	case webhook.EventUserCreated, webhook.EventUserUpdated:
		data, err := ev.User()
		if err != nil {
			webhookOutcome(ev.Type, "invalid")
			return models.NewValidationError(err.Error())
		}
		if err := s.syncUser(ctx, data); err != nil {
			webhookOutcome(ev.Type, "error")
			return err
		}
		webhookOutcome(ev.Type, "synced")
		return nil
	case webhook.EventUserDeleted:
		data, err := ev.User()
		if err != nil {
			webhookOutcome(ev.Type, "invalid")
			return models.NewValidationError(err.Error())
		}
		user, err := s.users.GetByExternalID(ctx, data.ID)
		if models.IsCode(err, models.CodeNotFound) {
			webhookOutcome(ev.Type, "ignored")
			return nil
		}
		if err != nil {
			webhookOutcome(ev.Type, "error")
			return err
		}
		if err := s.users.SoftDelete(ctx, user); err != nil {
			webhookOutcome(ev.Type, "error")
			return err
		}
		webhookOutcome(ev.Type, "deleted")
		return nil
	default:
		webhookOutcome(ev.Type, "ignored")
		return nil
	}
}

func (s *UserService) syncUser(ctx context.Context, data *webhook.UserData) error {
	username := strings.TrimSpace(data.Username)
	if username == "" || !usernamePattern.MatchString(username) {
		username = fallbackUsername(data.ID)
	}
	user := &models.User{
		ExternalID:  data.ID,
		Username:    username,
		DisplayName: data.DisplayName(),
		AvatarURL:   data.ImageURL,
	}
	err := s.users.Upsert(ctx, user)
	if models.IsCode(err, models.CodeConflict) && username != fallbackUsername(data.ID) {
		middleware.Logger.WarnContext(ctx, "webhook username taken, using fallback",
			slog.String("external_id", data.ID),
			slog.String("username", username),
		)
		user.Username = fallbackUsername(data.ID)
		err = s.users.Upsert(ctx, user)
	}
	return err
}
