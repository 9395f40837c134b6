package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ResetConfirmation must be typed to run a factory reset
const ResetConfirmation = "RESET"

// ResetEnabled reports whether an operator configured a reset secret
func (s *Service) ResetEnabled() bool {
	return s.adminSecret != ""
}

// CheckResetSecret unlocks the reset prompt
func (s *Service) CheckResetSecret(secret string) error {
	if !s.ResetEnabled() {
		return ErrResetDisabled
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.adminSecret)) != 1 {
		return ErrForbidden
	}
	return nil
}

// FactoryReset empties every table in one transaction, then clears the
// upload directory, then compacts the database file. The blob step runs
// after the commit, so a failure there leaves empty tables with stray files.
func (s *Service) FactoryReset(ctx context.Context, secret, confirm string) error {
	if err := s.CheckResetSecret(secret); err != nil {
		return err
	}
	if strings.TrimSpace(confirm) != ResetConfirmation {
		return invalid("confirm", fmt.Sprintf("type %s to confirm", ResetConfirmation))
	}

	s.logger.Warn("Factory reset requested")

	if err := s.store.Purge(ctx); err != nil {
		return fmt.Errorf("failed to purge tables: %w", err)
	}

	var result *multierror.Error
	if err := s.media.Blobs().Purge(); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to purge uploads: %w", err))
	}
	if err := s.store.Vacuum(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to vacuum: %w", err))
	}
	if err := result.ErrorOrNil(); err != nil {
		s.logger.WithError(err).Error("Factory reset incomplete")
		return err
	}

	s.logger.Warn("Factory reset completed")
	return nil
}
