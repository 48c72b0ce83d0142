package repository

import (
	"database/sql"
	"time"

	"linguaquest/internal/database"
	"linguaquest/internal/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, created_at)
		VALUES (?, ?, ?, ?)
	`
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(query, user.ID, user.Email, user.Name, user.CreatedAt)
	return err
}

// GetByID retrieves a user by id; nil without error when absent
func (r *UserRepository) GetByID(id string) (*models.User, error) {
	query := `
		SELECT id, email, name, created_at
		FROM users
		WHERE id = ?
	`

	user := &models.User{}
	err := r.db.QueryRow(query, id).Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// List retrieves all users ordered by creation time
func (r *UserRepository) List() ([]models.User, error) {
	query := `
		SELECT id, email, name, created_at
		FROM users
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}
