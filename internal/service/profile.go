package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/identity"
	"github.com/Kerhoff/hive/internal/media"
	"github.com/Kerhoff/hive/internal/models"
)

// ProfileInput holds the editable profile fields. A nil Avatar keeps the
// current one.
type ProfileInput struct {
	FirstName string
	LastName  string
	Avatar    *media.Upload
}

// ResolveIdentity picks the acting identity for one interaction
func (s *Service) ResolveIdentity(ctx context.Context, in identity.Input) (models.Identity, error) {
	return s.identity.Resolve(ctx, in)
}

// SaveIdentity makes id the family's last active user and returns the
// normalised identity with its shareable reference.
func (s *Service) SaveIdentity(ctx context.Context, id models.Identity) (models.Identity, string, error) {
	return s.identity.Save(ctx, id)
}

// GetProfile returns the acting user's profile, creating an empty one
func (s *Service) GetProfile(ctx context.Context, id models.Identity) (*models.UserProfile, error) {
	return s.store.Profiles().GetOrCreate(ctx, id.Family, id.User)
}

// SaveProfile stores names and an optional image avatar, then makes the
// identity sticky. Only one file is kept per avatar: the thumbnail when one
// was made, the original otherwise.
func (s *Service) SaveProfile(ctx context.Context, id models.Identity, in ProfileInput) (*models.UserProfile, string, error) {
	id = identity.Normalize(id)

	var stored *media.Stored
	if in.Avatar != nil {
		c, err := s.media.Validate(*in.Avatar, true)
		if err != nil {
			return nil, "", invalid("avatar", err.Error())
		}
		if stored, err = s.media.Save(ctx, *in.Avatar, c); err != nil {
			return nil, "", err
		}
	}

	profile, err := s.store.Profiles().GetOrCreate(ctx, id.Family, id.User)
	if err != nil {
		s.discard(stored)
		return nil, "", err
	}

	oldAvatar := profile.AvatarPath
	profile.FirstName = strings.TrimSpace(in.FirstName)
	profile.LastName = strings.TrimSpace(in.LastName)
	if stored != nil {
		profile.AvatarPath = stored.DisplayPath()
	}

	if err := s.store.Profiles().Update(ctx, profile); err != nil {
		s.discard(stored)
		return nil, "", err
	}

	if stored != nil {
		if stored.ThumbPath != "" {
			s.media.Remove(stored.Path)
		}
		if oldAvatar != "" && oldAvatar != profile.AvatarPath {
			s.media.Remove(oldAvatar)
		}
	}

	_, ref, err := s.identity.Save(ctx, id)
	if err != nil {
		return nil, "", err
	}

	s.logger.WithFields(logrus.Fields{
		"family": id.Family,
		"user":   id.User,
		"avatar": stored != nil,
	}).Info("Saved profile")

	return profile, ref, nil
}

func (s *Service) discard(stored *media.Stored) {
	if stored != nil {
		s.media.Remove(stored.Path, stored.ThumbPath)
	}
}
