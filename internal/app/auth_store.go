package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"trivia-quiz/internal/domain"
)

// AuthGate decides whether the quiz screen may be entered.
type AuthGate interface {
	IsLoggedIn() bool
}

// AuthStore keeps the login record, persisted separately from the quiz session.
type AuthStore struct {
	repo StateRepository

	mu   sync.RWMutex
	user domain.AuthUser
}

func NewAuthStore(ctx context.Context, repo StateRepository) *AuthStore {
	s := &AuthStore{repo: repo}
	if repo == nil {
		return s
	}
	data, err := repo.Load(ctx, AuthStateKey)
	switch {
	case errors.Is(err, domain.ErrStateNotFound):
	case err != nil:
		log.Printf("load auth state: %v", err)
	default:
		var user domain.AuthUser
		if err := decodeRecord(data, AuthStateVersion, &user); err != nil {
			log.Printf("discarding auth state: %v", err)
			discardAuthState(ctx, repo)
			return s
		}
		if user.IsLoggedIn && user.Username == "" {
			log.Printf("discarding auth state: logged in without username")
			discardAuthState(ctx, repo)
			return s
		}
		s.user = user
	}
	return s
}

func discardAuthState(ctx context.Context, repo StateRepository) {
	if err := repo.Delete(ctx, AuthStateKey); err != nil {
		log.Printf("delete malformed auth state: %v", err)
	}
}

// Login marks username as logged in.
func (s *AuthStore) Login(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.ErrInvalidUsername
	}
	return s.set(ctx, domain.AuthUser{Username: username, IsLoggedIn: true})
}

// Logout clears the login record.
func (s *AuthStore) Logout(ctx context.Context) error {
	return s.set(ctx, domain.AuthUser{})
}

func (s *AuthStore) set(ctx context.Context, user domain.AuthUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	if s.repo == nil {
		return nil
	}
	data, err := encodeRecord(AuthStateVersion, user)
	if err != nil {
		return err
	}
	return s.repo.Save(ctx, AuthStateKey, data)
}

// User returns the current login record.
func (s *AuthStore) User() domain.AuthUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *AuthStore) IsLoggedIn() bool {
	return s.User().IsLoggedIn
}
