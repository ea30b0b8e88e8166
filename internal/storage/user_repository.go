package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/smart-lock-service/backend/internal/storage/models"
)

// ErrEmailTaken is returned when an account already exists for an email.
var ErrEmailTaken = fmt.Errorf("email already registered")

// UserRepository provides data access for owning accounts.
type UserRepository struct {
	BaseRepository
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{BaseRepository: NewBaseRepository(db)}
}

// Create inserts a new user. The ID and CreatedAt are assigned here.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = GenerateID()
	user.CreatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, whatsapp_number, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, user.ID, user.Email, user.PasswordHash, user.WhatsAppNumber, user.CreatedAt)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrEmailTaken
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID. Returns (nil, nil) when no user exists.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, "SELECT id, email, password_hash, whatsapp_number, created_at FROM users WHERE id = ?", id)
}

// GetByEmail retrieves a user by email. Returns (nil, nil) when no user exists.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "SELECT id, email, password_hash, whatsapp_number, created_at FROM users WHERE email = ?", email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.DB().QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.WhatsAppNumber, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return user, nil
}

// UpdateWhatsAppNumber sets the WhatsApp delivery number for a user.
func (r *UserRepository) UpdateWhatsAppNumber(ctx context.Context, id, number string) error {
	result, err := r.DB().ExecContext(ctx,
		"UPDATE users SET whatsapp_number = ? WHERE id = ?", number, id)
	if err != nil {
		return fmt.Errorf("updating whatsapp number: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
