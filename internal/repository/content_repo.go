package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"curatorhub/internal/model"
	"curatorhub/pkg/otel"
)

type ContentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewContentRepository(db *pgxpool.Pool, logger *zap.Logger) *ContentRepository {
	return &ContentRepository{db: db, logger: logger}
}

const contentSelect = `
        SELECT id, user_id, task_id, kind, prompt, body, image_url, provider, model, fallback, created_at
        FROM content_drafts
`

func scanContent(row pgx.Row) (*model.ContentDraft, error) {
	var d model.ContentDraft
	err := row.Scan(
		&d.ID, &d.UserID, &d.TaskID, &d.Kind, &d.Prompt, &d.Body,
		&d.ImageURL, &d.Provider, &d.Model, &d.Fallback, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *ContentRepository) Insert(ctx context.Context, d *model.ContentDraft) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	query := `
        INSERT INTO content_drafts (id, user_id, task_id, kind, prompt, body, image_url, provider, model, fallback)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING created_at
    `
	err := otel.DB(ctx, "insert", "content_drafts", query, func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query,
			d.ID, d.UserID, d.TaskID, d.Kind, d.Prompt, d.Body, d.ImageURL, d.Provider, d.Model, d.Fallback,
		).Scan(&d.CreatedAt)
	})
	if err != nil {
		r.logger.Error("Failed to insert content draft", zap.Int("user_id", d.UserID), zap.Error(err))
		return translate(err)
	}

	r.logger.Info("Content draft saved",
		zap.String("id", d.ID.String()),
		zap.String("kind", string(d.Kind)),
		zap.Bool("fallback", d.Fallback),
	)
	return nil
}

// ListByUser returns the newest drafts first, at most limit of them.
func (r *ContentRepository) ListByUser(ctx context.Context, userID, limit int) ([]model.ContentDraft, error) {
	query := contentSelect + `
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	var drafts []model.ContentDraft
	err := otel.DB(ctx, "select", "content_drafts", query, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			d, err := scanContent(rows)
			if err != nil {
				return err
			}
			drafts = append(drafts, *d)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to list content drafts", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}
	return drafts, nil
}

func (r *ContentRepository) Get(ctx context.Context, userID int, id uuid.UUID) (*model.ContentDraft, error) {
	query := contentSelect + `WHERE user_id = $1 AND id = $2`

	var d *model.ContentDraft
	err := otel.DB(ctx, "select", "content_drafts", query, func(ctx context.Context) error {
		var err error
		d, err = scanContent(r.db.QueryRow(ctx, query, userID, id))
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return d, nil
}
