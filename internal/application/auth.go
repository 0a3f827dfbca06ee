package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)

func (s *Service) LoginWithSession(ctx context.Context, accountOrEmail, password string, ttl time.Duration) (domain.Principal, string, error) {
	p, err := s.authenticatePassword(ctx, accountOrEmail, password)
	if err != nil {
		return domain.Principal{}, "", err
	}

	plain, hash, err := newTokenPair()
	if err != nil {
		return domain.Principal{}, "", err
	}

	_, err = s.repo.CreateSession(ctx, domain.AuthSession{
		PersonID:  p.ID,
		TokenHash: hash,
		ExpiresAt: s.now().Add(ttl),
	})
	if err != nil {
		return domain.Principal{}, "", err
	}

	s.WriteAudit(ctx, &p.ID, "auth.login.session", "person", &p.ID, "session login")
	principal, err := s.principalFor(ctx, p)
	return principal, plain, err
}

func (s *Service) LoginWithAPIToken(ctx context.Context, accountOrEmail, password, tokenName string, ttl *time.Duration) (domain.Principal, string, error) {
	p, err := s.authenticatePassword(ctx, accountOrEmail, password)
	if err != nil {
		return domain.Principal{}, "", err
	}

	plain, hash, err := newTokenPair()
	if err != nil {
		return domain.Principal{}, "", err
	}

	var expiresAt *time.Time
	if ttl != nil {
		t := s.now().Add(*ttl)
		expiresAt = &t
	}

	_, err = s.repo.CreateAPIToken(ctx, domain.APIToken{
		PersonID:  p.ID,
		Name:      defaultString(tokenName, "cli"),
		TokenHash: hash,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return domain.Principal{}, "", err
	}

	s.WriteAudit(ctx, &p.ID, "auth.login.api_token", "person", &p.ID, "api token issued")
	principal, err := s.principalFor(ctx, p)
	return principal, plain, err
}

func (s *Service) AuthenticateSession(ctx context.Context, token string) (domain.Principal, error) {
	hash := hashToken(token)
	session, err := s.repo.GetSessionByTokenHash(ctx, hash)
	if err != nil {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	if session.ExpiresAt.Before(s.now()) {
		_ = s.repo.DeleteSessionByTokenHash(ctx, hash)
		return domain.Principal{}, fmt.Errorf("%w: session expired", domain.ErrUnauthorized)
	}
	return s.principalByPersonID(ctx, session.PersonID)
}

func (s *Service) AuthenticateBearerToken(ctx context.Context, token string) (domain.Principal, error) {
	apit, err := s.repo.GetAPITokenByTokenHash(ctx, hashToken(token))
	if err != nil {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	if apit.ExpiresAt != nil && apit.ExpiresAt.Before(s.now()) {
		return domain.Principal{}, fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
	}
	return s.principalByPersonID(ctx, apit.PersonID)
}

func (s *Service) LogoutSession(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.repo.DeleteSessionByTokenHash(ctx, hashToken(token))
}

// PrincipalForAccount loads a principal without a password check. Used by trusted local tooling.
func (s *Service) PrincipalForAccount(ctx context.Context, accountID string) (domain.Principal, error) {
	p, err := s.repo.GetPersonByAccountID(ctx, accountID)
	if err != nil {
		return domain.Principal{}, err
	}
	return s.principalFor(ctx, p)
}

func (s *Service) WriteAudit(ctx context.Context, actorPersonID *int64, action, targetType string, targetID *int64, metadata string) {
	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ActorPersonID: actorPersonID,
		Action:        action,
		TargetType:    targetType,
		TargetID:      targetID,
		Metadata:      metadata,
	}); err != nil {
		s.log.WithError(err).WithField("action", action).Warn("audit write failed")
	}
}

func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	return s.repo.ListAuditLogs(ctx, clamp(limit, 200, 1, 2000))
}

func (s *Service) authenticatePassword(ctx context.Context, accountOrEmail, password string) (domain.Person, error) {
	login := strings.ToLower(strings.TrimSpace(accountOrEmail))
	var (
		p   domain.Person
		err error
	)
	if strings.Contains(login, "@") {
		p, err = s.repo.GetPersonByEmail(ctx, login)
	} else {
		p, err = s.repo.GetPersonByAccountID(ctx, login)
	}
	if err != nil || p.PasswordHash == "" {
		return domain.Person{}, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return domain.Person{}, errInvalidCredentials
	}
	if p.AccountLocked || p.AccountDeactivated {
		return domain.Person{}, fmt.Errorf("%w: account locked", domain.ErrUnauthorized)
	}
	return p, nil
}

func (s *Service) principalByPersonID(ctx context.Context, personID int64) (domain.Principal, error) {
	p, err := s.repo.GetPersonByID(ctx, personID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Principal{}, domain.ErrUnauthorized
		}
		return domain.Principal{}, err
	}
	if p.AccountLocked || p.AccountDeactivated {
		return domain.Principal{}, fmt.Errorf("%w: account locked", domain.ErrUnauthorized)
	}
	return s.principalFor(ctx, p)
}

func (s *Service) principalFor(ctx context.Context, p domain.Person) (domain.Principal, error) {
	permList, err := s.repo.GetPermissionsByPersonID(ctx, p.ID)
	if err != nil {
		return domain.Principal{}, err
	}
	permMap := make(map[string]struct{}, len(permList))
	for _, perm := range permList {
		permMap[perm] = struct{}{}
	}
	return domain.Principal{
		PersonID:     p.ID,
		AccountID:    p.AccountID,
		OpenSocialID: p.OpenSocialID,
		Permissions:  permMap,
	}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func newTokenPair() (string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	plain := base64.RawURLEncoding.EncodeToString(raw)
	return plain, hashToken(plain), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", sum[:])
}

func newOpenSocialID() string {
	return uuid.NewString()
}
