package repository

import (
	"context"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"curatorhub/internal/model"
	"curatorhub/pkg/otel"
)

type ProjectRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{db: db, logger: logger}
}

const projectSelect = `
        SELECT p.id, p.user_id, p.title, p.description, p.category,
               p.start_date, p.target_date, p.status, p.created_at, p.updated_at,
               COUNT(t.id) AS task_count,
               COUNT(t.id) FILTER (WHERE t.status = 'completed') AS completed_count
        FROM projects p
        LEFT JOIN tasks t ON t.project_id = p.id AND t.status <> 'cancelled'
`

func scanProject(row pgx.Row) (*model.Project, error) {
	var p model.Project
	err := row.Scan(
		&p.ID, &p.UserID, &p.Title, &p.Description, &p.Category,
		&p.StartDate, &p.TargetDate, &p.Status, &p.CreatedAt, &p.UpdatedAt,
		&p.TaskCount, &p.CompletedCount,
	)
	if err != nil {
		return nil, err
	}
	p.Progress = progress(p.CompletedCount, p.TaskCount)
	return &p, nil
}

// progress is the completed share in [0,1], rounded to two decimals.
func progress(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(done)/float64(total)*100) / 100
}

func (r *ProjectRepository) Insert(ctx context.Context, p *model.Project) error {
	query := `
        INSERT INTO projects (user_id, title, description, category, start_date, target_date, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at
    `
	err := otel.DB(ctx, "insert", "projects", query, func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query,
			p.UserID, p.Title, p.Description, p.Category, p.StartDate, p.TargetDate, p.Status,
		).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	})
	if err != nil {
		r.logger.Error("Failed to insert project", zap.Int("user_id", p.UserID), zap.Error(err))
		return translate(err)
	}

	r.logger.Info("Project created", zap.Int("project_id", p.ID), zap.Int("user_id", p.UserID))
	return nil
}

// ListByUser returns the user's projects with task counts, newest first.
func (r *ProjectRepository) ListByUser(ctx context.Context, userID int) ([]model.Project, error) {
	query := projectSelect + `
        WHERE p.user_id = $1
        GROUP BY p.id
        ORDER BY p.created_at DESC
    `
	var projects []model.Project
	err := otel.DB(ctx, "select", "projects", query, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProject(rows)
			if err != nil {
				return err
			}
			projects = append(projects, *p)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to list projects", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}

	r.logger.Debug("Projects listed", zap.Int("user_id", userID), zap.Int("count", len(projects)))
	return projects, nil
}

func (r *ProjectRepository) Get(ctx context.Context, userID, id int) (*model.Project, error) {
	query := projectSelect + `
        WHERE p.user_id = $1 AND p.id = $2
        GROUP BY p.id
    `
	var p *model.Project
	err := otel.DB(ctx, "select", "projects", query, func(ctx context.Context) error {
		var err error
		p, err = scanProject(r.db.QueryRow(ctx, query, userID, id))
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

func (r *ProjectRepository) UpdateStatus(ctx context.Context, userID, id int, status model.ProjectStatus) error {
	query := `
        UPDATE projects SET status = $3, updated_at = NOW()
        WHERE user_id = $1 AND id = $2
    `
	var affected int64
	err := otel.DB(ctx, "update", "projects", query, func(ctx context.Context) error {
		tag, err := r.db.Exec(ctx, query, userID, id, status)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		r.logger.Error("Failed to update project status", zap.Int("project_id", id), zap.Error(err))
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	r.logger.Info("Project status updated", zap.Int("project_id", id), zap.String("status", string(status)))
	return nil
}
