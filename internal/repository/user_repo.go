package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"curatorhub/internal/model"
	"curatorhub/pkg/otel"
)

type UserRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUserRepository(db *pgxpool.Pool, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

// Create inserts a new user and fills in its id and creation time.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (email, password_hash, name, role)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	err := otel.DB(ctx, "insert", "users", query, func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, u.Email, u.PasswordHash, u.Name, u.Role).Scan(&u.ID, &u.CreatedAt)
	})
	if err != nil {
		err = translate(err)
		if err != ErrConflict {
			r.logger.Error("Failed to insert user", zap.Error(err))
		}
		return err
	}

	r.logger.Info("User created", zap.Int("user_id", u.ID))
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
        SELECT id, email, password_hash, name, role, created_at
        FROM users
        WHERE email = $1
    `
	return r.findOne(ctx, query, email)
}

func (r *UserRepository) FindByID(ctx context.Context, id int) (*model.User, error) {
	query := `
        SELECT id, email, password_hash, name, role, created_at
        FROM users
        WHERE id = $1
    `
	return r.findOne(ctx, query, id)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User
	err := otel.DB(ctx, "select", "users", query, func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, arg).Scan(
			&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt,
		)
	})
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}
