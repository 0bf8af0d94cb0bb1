// Package academy registers tenants and authenticates their administrators.
package academy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"classcaptain/internal/ident"
	"classcaptain/internal/validate"
)

var (
	ErrNotFound           = errors.New("academy not found")
	ErrExists             = errors.New("academy already exists")
	ErrInvalidCredentials = errors.New("invalid academy key or password")
)

// Academy is one registered tenant. Key is the academy_id every record of the
// tenant carries.
type Academy struct {
	Key          string    `json:"academy_key"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists academies. Insert returns ErrExists on a duplicate key,
// ByKey returns ErrNotFound.
type Store interface {
	Insert(ctx context.Context, a Academy) error
	ByKey(ctx context.Context, key string) (Academy, error)
}

// RegisterRequest is the body of an academy sign up.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

const keyAttempts = 8

// Registry issues academy keys and checks admin passwords.
type Registry struct {
	store     Store
	validator *validate.Validator
	gen       ident.Generator
	log       *slog.Logger
}

func NewRegistry(store Store, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{store: store, validator: validate.New(), gen: ident.Default, log: log}
}

// NormalizeKey trims and upper-cases an academy key as typed by a user.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Register validates req, stores the academy under a fresh key and returns it.
func (r *Registry) Register(ctx context.Context, req RegisterRequest) (Academy, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := r.validator.Struct(req); err != nil {
		return Academy{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Academy{}, err
	}
	a := Academy{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	for i := 0; i < keyAttempts; i++ {
		a.Key = r.gen.AcademyKey()
		err = r.store.Insert(ctx, a)
		if err == nil {
			r.log.Info("academy registered", "academy_id", a.Key)
			return a, nil
		}
		if !errors.Is(err, ErrExists) {
			return Academy{}, fmt.Errorf("register academy: %w", err)
		}
	}
	return Academy{}, fmt.Errorf("register academy: no free key after %d attempts: %w", keyAttempts, err)
}

// Seed stores an academy under a fixed key. An existing key is left untouched.
func (r *Registry) Seed(ctx context.Context, key, name, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	err = r.store.Insert(ctx, Academy{
		Key:          NormalizeKey(key),
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil && !errors.Is(err, ErrExists) {
		return err
	}
	return nil
}

// Login checks the admin password of the academy.
func (r *Registry) Login(ctx context.Context, key, password string) (Academy, error) {
	a, err := r.store.ByKey(ctx, NormalizeKey(key))
	if errors.Is(err, ErrNotFound) {
		return Academy{}, ErrInvalidCredentials
	}
	if err != nil {
		return Academy{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return Academy{}, ErrInvalidCredentials
	}
	return a, nil
}

// Lookup returns the academy or ErrNotFound.
func (r *Registry) Lookup(ctx context.Context, key string) (Academy, error) {
	return r.store.ByKey(ctx, NormalizeKey(key))
}
