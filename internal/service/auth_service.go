package service

import (
	"context"
	"errors"
	"time"

	"e2ee-chat/internal/domain"
	"e2ee-chat/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// AuthService owns accounts and sessions. It is the credential store the
// relay consumes: a session token either resolves to a user or the
// connection dies.
type AuthService struct {
	store  *store.Store
	tokens *TokenService
	cost   int
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(st *store.Store, tokens *TokenService, bcryptCost int, sessionTTL time.Duration) *AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{store: st, tokens: tokens, cost: bcryptCost, ttl: sessionTTL, now: time.Now}
}

func (a *AuthService) Signup(ctx context.Context, username, password, ip, ua string) (*domain.User, string, error) {
	if username == "" || password == "" {
		return nil, "", domain.ErrInvalidCredentials
	}
	if len(password) < 8 {
		return nil, "", domain.ErrInvalidCredentials
	}

	if _, err := a.store.Users().GetByUsername(ctx, username); err == nil {
		return nil, "", domain.ErrUsernameTaken
	} else if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, "", err
	}

	now := a.now().UTC()
	usr := &domain.User{Username: username, PasswordHash: hash, CreatedAt: now}
	if err := a.store.Users().Create(ctx, usr); err != nil {
		// The unique index wins races this method's pre-check loses.
		return nil, "", domain.ErrUsernameTaken
	}

	token, err := a.openSession(ctx, usr.ID, ip, ua, now)
	if err != nil {
		return nil, "", err
	}
	return usr, token, nil
}

func (a *AuthService) Login(ctx context.Context, username, password, ip, ua string) (*domain.User, string, error) {
	if username == "" || password == "" {
		return nil, "", domain.ErrInvalidCredentials
	}

	usr, err := a.store.Users().GetByUsername(ctx, username)
	if err != nil {
		// Uniform failure; don't leak whether the user exists.
		return nil, "", domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(usr.PasswordHash, []byte(password)); err != nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := a.openSession(ctx, usr.ID, ip, ua, a.now().UTC())
	if err != nil {
		return nil, "", err
	}
	return usr, token, nil
}

func (a *AuthService) openSession(ctx context.Context, userID domain.UserID, ip, ua string, now time.Time) (string, error) {
	sess := &domain.Session{
		UserID:    userID,
		ExpiresAt: now.Add(a.ttl),
		CreatedAt: now,
		IP:        ip,
		UserAgent: ua,
	}
	if err := a.store.Sessions().Create(ctx, sess); err != nil {
		return "", err
	}
	return a.tokens.Sign(sess.ID, now)
}

// ResolveSession authenticates a session token to a user. Any failure is
// reported as invalid credentials; callers terminate the connection.
func (a *AuthService) ResolveSession(ctx context.Context, token string) (*domain.User, error) {
	sid, err := a.tokens.Parse(token)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	sess, err := a.store.Sessions().Get(ctx, sid)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !sess.Usable(a.now().UTC()) {
		return nil, domain.ErrSessionExpired
	}
	usr, err := a.store.Users().GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return usr, nil
}

func (a *AuthService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	_, err := a.store.Users().GetByUsername(ctx, username)
	if errors.Is(err, store.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (a *AuthService) UserIDForUsername(ctx context.Context, username string) (domain.UserID, error) {
	usr, err := a.store.Users().GetByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	return usr.ID, nil
}
