// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/ifscenter-tui/internal/api"
)

var (
	errEmailTaken         = errors.New("Email already exists")
	errInvalidCredentials = errors.New("Invalid email or password")
	errUnknownUser        = errors.New("User profile not found")
)

type user struct {
	ID        string
	Username  string
	Email     string
	FirstName string
	Hash      []byte
	Confirmed bool
	CreatedAt time.Time
}

func (u *user) public() api.User {
	return api.User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// system is the per-user record GET /system returns.
type system struct {
	ID     string          `json:"id"`
	UserID string          `json:"user_id"`
	Parts  map[string]part `json:"parts"`
	Count  int             `json:"parts_count"`
}

type part struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Description string   `json:"description"`
	Feelings    []string `json:"feelings"`
	Beliefs     []string `json:"beliefs"`
}

func newSystem(userID string) *system {
	self := part{
		ID:          uuid.NewString(),
		Name:        "Self",
		Role:        "Self",
		Description: "The centered, compassionate Self that is the goal of IFS therapy.",
		Feelings:    []string{"Calm", "curious", "compassionate", "connected", "clear", "confident", "creative", "courageous"},
		Beliefs:     []string{"All parts are welcome. I can hold space for all experiences."},
	}
	return &system{
		ID:     uuid.NewString(),
		UserID: userID,
		Parts:  map[string]part{self.ID: self},
		Count:  1,
	}
}

// userStore is an in-memory user table.
type userStore struct {
	cost int

	mu      sync.RWMutex
	byID    map[string]*user
	byEmail map[string]*user
	byName  map[string]*user
	systems map[string]*system
}

func newUserStore(cost int) *userStore {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &userStore{
		cost:    cost,
		byID:    make(map[string]*user),
		byEmail: make(map[string]*user),
		byName:  make(map[string]*user),
		systems: make(map[string]*system),
	}
}

func (s *userStore) count() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return float64(len(s.byID))
}

// create adds a user. The username is the e-mail local part, suffixed with
// a counter until unique.
func (s *userStore) create(email, firstName, password string, confirmed bool, now time.Time) (*user, error) {
	email = api.NormalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return nil, errEmailTaken
	}

	base := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		base = email[:i]
	}
	username := base
	for n := 1; s.byName[username] != nil; n++ {
		username = fmt.Sprintf("%s%d", base, n)
	}

	u := &user{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		FirstName: strings.TrimSpace(firstName),
		Hash:      hash,
		Confirmed: confirmed,
		CreatedAt: now,
	}
	s.byID[u.ID] = u
	s.byEmail[u.Email] = u
	s.byName[u.Username] = u
	return u, nil
}

// authenticate looks the identity up as a username, then as an e-mail.
func (s *userStore) authenticate(identity, password string) (*user, error) {
	identity = api.NormalizeIdentity(identity)
	s.mu.RLock()
	u := s.byName[identity]
	if u == nil {
		u = s.byEmail[api.NormalizeEmail(identity)]
	}
	s.mu.RUnlock()

	if u == nil {
		// keep the timing close to a real comparison
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.Hash, []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	if !u.Confirmed {
		return nil, errors.New("Invalid email or password, or account requires confirmation.")
	}
	return u, nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("ifscenter-dummy"), bcrypt.MinCost)

func (s *userStore) get(id string) (*user, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, errUnknownUser
	}
	cp := *u
	return &cp, nil
}

func (s *userStore) setFirstName(id, firstName string) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, errUnknownUser
	}
	u.FirstName = strings.TrimSpace(firstName)
	cp := *u
	return &cp, nil
}

func (s *userStore) confirm(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byEmail[api.NormalizeEmail(email)]
	if ok {
		u.Confirmed = true
	}
	return ok
}

// system returns the user's system, creating it on first access.
func (s *userStore) system(userID string) *system {
	s.mu.Lock()
	defer s.mu.Unlock()
	sys, ok := s.systems[userID]
	if !ok {
		sys = newSystem(userID)
		s.systems[userID] = sys
	}
	return sys
}

// =============================================================================
// VALIDATION
// =============================================================================

// passwordProblem returns the complaint for a weak password, or "".
func passwordProblem(password string) string {
	if len(password) < 8 {
		return "Password must be at least 8 characters long"
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return "Password must contain uppercase, lowercase, and numeric characters"
	}
	return ""
}

// firstNameProblem returns the complaint for a profile name, or "".
func firstNameProblem(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Name cannot be empty."
	}
	if len([]rune(name)) > 100 {
		return "Name is too long (max 100 characters)."
	}
	return ""
}
