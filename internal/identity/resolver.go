// Package identity resolves who is acting and in which family. Identity is
// self-declared; nothing here authenticates anyone.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/repository"
)

// Input carries the candidate values of one interaction. Empty strings are
// treated as absent.
type Input struct {
	SessionUser   string
	SessionFamily string
	QueryUser     string
	QueryFamily   string
}

// Resolver picks the acting identity and makes saved identities sticky
type Resolver struct {
	settings repository.SettingRepository
	logger   *logrus.Logger
}

// NewResolver creates a resolver persisting through settings
func NewResolver(settings repository.SettingRepository, logger *logrus.Logger) *Resolver {
	return &Resolver{settings: settings, logger: logger}
}

// Resolve takes the family from the session, then the query, then the
// default. The user follows the same order and then falls back to the
// family's last active user before the default.
func (r *Resolver) Resolve(ctx context.Context, in Input) (models.Identity, error) {
	id := models.Identity{
		Family: firstNonEmpty(in.SessionFamily, in.QueryFamily, models.DefaultFamily),
		User:   firstNonEmpty(in.SessionUser, in.QueryUser),
	}

	if id.User == "" {
		last, ok, err := r.settings.Get(ctx, id.Family, models.SettingLastActiveUser)
		if err != nil {
			return models.Identity{}, fmt.Errorf("failed to load last active user: %w", err)
		}
		if ok {
			id.User = strings.TrimSpace(last)
		}
	}
	if id.User == "" {
		id.User = models.DefaultUser
	}

	return id, nil
}

// Save persists id as the family's last active user and returns the
// normalised identity along with its shareable reference.
func (r *Resolver) Save(ctx context.Context, id models.Identity) (models.Identity, string, error) {
	id = Normalize(id)

	if err := r.settings.Set(ctx, id.Family, models.SettingLastActiveUser, id.User); err != nil {
		return models.Identity{}, "", fmt.Errorf("failed to save last active user: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"user":   id.User,
		"family": id.Family,
	}).Info("Saved identity")

	return id, id.Query(), nil
}

// Normalize trims both fields and fills in defaults
func Normalize(id models.Identity) models.Identity {
	return models.Identity{
		User:   firstNonEmpty(id.User, models.DefaultUser),
		Family: firstNonEmpty(id.Family, models.DefaultFamily),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
