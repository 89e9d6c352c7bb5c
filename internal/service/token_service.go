package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tokensmith/internal/entity"
	"tokensmith/internal/repository"
	"tokensmith/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TokenService is the token lifecycle engine: issuance behind a per-user
// rate limit, limited-use consumption, and an audit trail for both.
type TokenService struct {
	db      *gorm.DB
	users   repository.UserRepository
	tokens  repository.TokenRepository
	rates   repository.RateLimitRepository
	audits  repository.AuditRepository
	limiter *IssuanceLimiter

	emailSender EmailSender
	logger      *logrus.Logger
	clock       Clock
	config      Config
}

type IssueResult struct {
	Token *entity.Token
	// Raw is the secret handed to the user. It is never persisted and never
	// written to the audit trail.
	Raw string
}

func NewTokenService(
	db *gorm.DB,
	users repository.UserRepository,
	tokens repository.TokenRepository,
	rates repository.RateLimitRepository,
	audits repository.AuditRepository,
	emailSender EmailSender,
	logger *logrus.Logger,
	clock Clock,
	config Config,
) *TokenService {
	s := &TokenService{
		db:          db,
		users:       users,
		tokens:      tokens,
		rates:       rates,
		audits:      audits,
		emailSender: emailSender,
		logger:      logger,
		clock:       clock,
		config:      config,
	}
	s.limiter = NewIssuanceLimiter(rates, config.RateLimitMax, config.RateLimitWindow)
	return s
}

// Issue creates a fresh token for the user, or returns ErrRateLimited when
// the issuance window is exhausted. Token insert, user flag reset, audit
// entry and rate record commit as one transaction.
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID, kind entity.TokenKind) (*IssueResult, error) {
	now := s.now()

	rawToken, err := utils.GenerateRandomToken(32)
	if err != nil {
		return nil, err
	}

	token := &entity.Token{
		UserID:    userID,
		TokenHash: utils.HashToken(rawToken),
		Kind:      kind,
		ExpiresAt: now.Add(s.tokenTTL()),
		MaxUses:   s.tokenMaxUses(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allowed, err := s.limiter.withRecords(s.rates.WithTx(tx)).Allow(ctx, userID, kind, now)
		if err != nil {
			return err
		}
		if !allowed {
			return ErrRateLimited
		}

		if err := s.tokens.WithTx(tx).Create(ctx, token); err != nil {
			return err
		}

		// Issuing a verification token re-opens verification for the user.
		if kind == entity.KindEmailVerify {
			if err := s.users.WithTx(tx).SetVerified(ctx, userID, nil); err != nil {
				return err
			}
		}

		if err := s.appendAudit(ctx, s.audits.WithTx(tx), &userID, entity.TokenIssued,
			fmt.Sprintf("issued %s token %s", kind, token.ID),
			map[string]any{"token_id": token.ID, "kind": kind},
		); err != nil {
			return err
		}

		return s.rates.WithTx(tx).Record(ctx, &entity.RateLimitRecord{
			UserID:      userID,
			Kind:        kind,
			RequestedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	return &IssueResult{Token: token, Raw: rawToken}, nil
}

// RequestEmailVerification resolves the user by email, issues a verification
// token and mails the link. Unknown addresses and rate-limited requests both
// come back nil so the HTTP layer answers identically in every case.
func (s *TokenService) RequestEmailVerification(ctx context.Context, email string) error {
	return s.request(ctx, email, entity.KindEmailVerify)
}

// RequestPasswordReset behaves like RequestEmailVerification for reset
// tokens, with one extra gate: only verified accounts can start a reset.
func (s *TokenService) RequestPasswordReset(ctx context.Context, email string) error {
	return s.request(ctx, email, entity.KindPasswordReset)
}

func (s *TokenService) request(ctx context.Context, email string, kind entity.TokenKind) error {
	if strings.TrimSpace(email) == "" {
		return ErrInvalidInput
	}

	user, err := s.users.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	if kind == entity.KindPasswordReset && user.VerifiedAt == nil {
		return nil
	}

	result, err := s.Issue(ctx, user.ID, kind)
	if errors.Is(err, ErrRateLimited) {
		s.log().WithFields(logrus.Fields{"user_id": user.ID, "kind": kind}).
			Info("token issuance denied by rate limit")
		return nil
	}
	if err != nil {
		return err
	}

	if s.emailSender == nil {
		return nil
	}
	// Delivery is decoupled from issuance: a failed send never rolls the
	// token back.
	var sendErr error
	switch kind {
	case entity.KindEmailVerify:
		sendErr = s.emailSender.SendVerificationEmail(ctx, user.Email, result.Raw)
	case entity.KindPasswordReset:
		sendErr = s.emailSender.SendPasswordResetEmail(ctx, user.Email, result.Raw)
	}
	if sendErr != nil {
		s.log().WithError(sendErr).WithField("user_id", user.ID).Warn("token email delivery failed")
	}
	return nil
}

// VerifyEmail consumes one use of an email-verification token and marks the
// owning user verified. Consumption, flag update and audit entry are a
// single transaction; an unknown, expired or exhausted token is
// ErrInvalidToken with no state change.
func (s *TokenService) VerifyEmail(ctx context.Context, rawToken string) error {
	if strings.TrimSpace(rawToken) == "" {
		return ErrInvalidInput
	}

	return s.consume(ctx, rawToken, entity.KindEmailVerify, func(tx *gorm.DB, token *entity.Token) error {
		now := s.now()
		if err := s.users.WithTx(tx).SetVerified(ctx, token.UserID, &now); err != nil {
			return err
		}
		return s.appendAudit(ctx, s.audits.WithTx(tx), &token.UserID, entity.EmailVerified,
			fmt.Sprintf("consumed %s token %s (use %d/%d)", token.Kind, token.ID, token.UseCount, token.MaxUses),
			map[string]any{"token_id": token.ID, "use_count": token.UseCount},
		)
	})
}

// ResetPassword consumes one use of a password-reset token and stores the
// given secret verbatim. The caller must hash the new password first; this
// engine never sees plaintext credentials.
func (s *TokenService) ResetPassword(ctx context.Context, rawToken string, hashedSecret string) error {
	if strings.TrimSpace(rawToken) == "" || strings.TrimSpace(hashedSecret) == "" {
		return ErrInvalidInput
	}

	return s.consume(ctx, rawToken, entity.KindPasswordReset, func(tx *gorm.DB, token *entity.Token) error {
		if err := s.users.WithTx(tx).SetPassword(ctx, token.UserID, hashedSecret); err != nil {
			return err
		}
		return s.appendAudit(ctx, s.audits.WithTx(tx), &token.UserID, entity.PasswordReset,
			fmt.Sprintf("consumed %s token %s (use %d/%d)", token.Kind, token.ID, token.UseCount, token.MaxUses),
			map[string]any{"token_id": token.ID, "use_count": token.UseCount},
		)
	})
}

func (s *TokenService) consume(
	ctx context.Context,
	rawToken string,
	kind entity.TokenKind,
	apply func(tx *gorm.DB, token *entity.Token) error,
) error {
	tokenHash := utils.HashToken(rawToken)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		token, err := s.tokens.WithTx(tx).Consume(ctx, tokenHash, kind, s.now())
		if err != nil {
			return err
		}
		if token == nil {
			return ErrInvalidToken
		}
		return apply(tx, token)
	})
}

func (s *TokenService) appendAudit(
	ctx context.Context,
	audits repository.AuditRepository,
	userID *uuid.UUID,
	action entity.AuditAction,
	description string,
	metadata map[string]any,
) error {
	var payload datatypes.JSON
	if metadata != nil {
		bytes, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		payload = datatypes.JSON(bytes)
	}

	return audits.Append(ctx, &entity.AuditLog{
		UserID:      userID,
		Action:      action,
		Description: description,
		Metadata:    payload,
	})
}

func (s *TokenService) log() *logrus.Logger {
	if s.logger == nil {
		return logrus.StandardLogger()
	}
	return s.logger
}

func (s *TokenService) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}

func (s *TokenService) tokenTTL() time.Duration {
	if s.config.TokenTTL > 0 {
		return s.config.TokenTTL
	}
	return 30 * time.Minute
}

func (s *TokenService) tokenMaxUses() int {
	if s.config.TokenMaxUses > 0 {
		return s.config.TokenMaxUses
	}
	return 3
}
