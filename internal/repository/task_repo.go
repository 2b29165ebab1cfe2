package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	contractmq "curatorhub/contracts/mq"
	"curatorhub/internal/model"
	"curatorhub/pkg/mq"
	"curatorhub/pkg/otel"
	"curatorhub/pkg/outbox"
)

// TaskRepository stores tasks. Every mutation writes a task.changed event to
// the outbox in the same transaction.
type TaskRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, outbox: outbox.NewRepository(db), logger: logger}
}

const taskSelect = `
        SELECT t.id, t.user_id, t.project_id, t.title, t.description, t.category, t.status,
               t.due_date, t.estimated_hours, t.created_at, t.updated_at,
               (SELECT COUNT(*)
                  FROM task_dependencies d
                  JOIN tasks w ON w.id = d.task_id
                 WHERE d.depends_on_task_id = t.id
                   AND w.status IN ('pending', 'in_progress')) AS blocked_count
        FROM tasks t
`

func scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID, &t.UserID, &t.ProjectID, &t.Title, &t.Description, &t.Category, &t.Status,
		&t.DueDate, &t.EstimatedHours, &t.CreatedAt, &t.UpdatedAt, &t.BlockedCount,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) list(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	var tasks []model.Task
	err := otel.DB(ctx, "select", "tasks", query, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return err
			}
			tasks = append(tasks, *t)
		}
		return rows.Err()
	})
	return tasks, err
}

// inTx runs fn and records a task.changed event before committing.
func (r *TaskRepository) inTx(ctx context.Context, change string, fn func(tx pgx.Tx) (*model.Task, error)) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	t, err := fn(tx)
	if err != nil {
		return err
	}

	aggID := int64(t.ID)
	payload := changedPayload(t, change)
	if err := outbox.InsertEventInTx(ctx, tx, r.outbox, "task", &aggID, mq.RoutingTaskChanged, payload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	return tx.Commit(ctx)
}

func changedPayload(t *model.Task, change string) contractmq.TaskChangedPayload {
	return contractmq.TaskChangedPayload{
		TaskID: t.ID,
		UserID: t.UserID,
		Change: change,
		Status: string(t.Status),
	}
}

// Insert stores t and fills in its id and timestamps.
func (r *TaskRepository) Insert(ctx context.Context, t *model.Task) error {
	query := `
        INSERT INTO tasks (user_id, project_id, title, description, category, status, due_date, estimated_hours)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at
    `
	err := r.inTx(ctx, contractmq.ChangeCreated, func(tx pgx.Tx) (*model.Task, error) {
		err := otel.DB(ctx, "insert", "tasks", query, func(ctx context.Context) error {
			return tx.QueryRow(ctx, query,
				t.UserID, t.ProjectID, t.Title, t.Description, t.Category, t.Status, t.DueDate, t.EstimatedHours,
			).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
		})
		return t, err
	})
	if err != nil {
		r.logger.Error("Failed to insert task", zap.Int("user_id", t.UserID), zap.Error(err))
		return translate(err)
	}

	r.logger.Info("Task created", zap.Int("task_id", t.ID), zap.Int("user_id", t.UserID))
	return nil
}

func (r *TaskRepository) Get(ctx context.Context, userID, id int) (*model.Task, error) {
	query := taskSelect + `WHERE t.user_id = $1 AND t.id = $2`

	var t *model.Task
	err := otel.DB(ctx, "select", "tasks", query, func(ctx context.Context) error {
		var err error
		t, err = scanTask(r.db.QueryRow(ctx, query, userID, id))
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return t, nil
}

// ListByUser returns all of the user's tasks, soonest due first.
func (r *TaskRepository) ListByUser(ctx context.Context, userID int) ([]model.Task, error) {
	query := taskSelect + `
        WHERE t.user_id = $1
        ORDER BY t.due_date ASC NULLS LAST, t.id ASC
    `
	tasks, err := r.list(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list tasks", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}

	r.logger.Debug("Tasks listed", zap.Int("user_id", userID), zap.Int("count", len(tasks)))
	return tasks, nil
}

// ListEligibleByUser returns the user's pending and in-progress tasks.
func (r *TaskRepository) ListEligibleByUser(ctx context.Context, userID int) ([]model.Task, error) {
	query := taskSelect + `
        WHERE t.user_id = $1 AND t.status IN ('pending', 'in_progress')
        ORDER BY t.id ASC
    `
	tasks, err := r.list(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list eligible tasks", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}
	return tasks, nil
}

// ListOverdue returns eligible tasks across all users due before today.
func (r *TaskRepository) ListOverdue(ctx context.Context, today time.Time) ([]model.Task, error) {
	query := taskSelect + `
        WHERE t.status IN ('pending', 'in_progress') AND t.due_date < $1
        ORDER BY t.due_date ASC, t.id ASC
    `
	tasks, err := r.list(ctx, query, today)
	if err != nil {
		r.logger.Error("Failed to list overdue tasks", zap.Error(err))
		return nil, err
	}
	return tasks, nil
}

// ListActiveUserIDs returns users holding at least one eligible task.
func (r *TaskRepository) ListActiveUserIDs(ctx context.Context) ([]int, error) {
	query := `
        SELECT DISTINCT user_id FROM tasks
        WHERE status IN ('pending', 'in_progress')
        ORDER BY user_id
    `
	var ids []int
	err := otel.DB(ctx, "select", "tasks", query, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var id int
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to list active users", zap.Error(err))
		return nil, err
	}
	return ids, nil
}

// Update writes the editable fields of t. Status changes go through UpdateStatusTx.
func (r *TaskRepository) Update(ctx context.Context, t *model.Task) error {
	query := `
        UPDATE tasks
           SET project_id = $3, title = $4, description = $5, category = $6,
               due_date = $7, estimated_hours = $8, updated_at = NOW()
         WHERE user_id = $1 AND id = $2
     RETURNING status, updated_at
    `
	err := r.inTx(ctx, contractmq.ChangeUpdated, func(tx pgx.Tx) (*model.Task, error) {
		err := otel.DB(ctx, "update", "tasks", query, func(ctx context.Context) error {
			return tx.QueryRow(ctx, query,
				t.UserID, t.ID, t.ProjectID, t.Title, t.Description, t.Category, t.DueDate, t.EstimatedHours,
			).Scan(&t.Status, &t.UpdatedAt)
		})
		return t, err
	})
	if err != nil {
		err = translate(err)
		if err != ErrNotFound {
			r.logger.Error("Failed to update task", zap.Int("task_id", t.ID), zap.Error(err))
		}
		return err
	}

	r.logger.Info("Task updated", zap.Int("task_id", t.ID))
	return nil
}

// UpdateStatusTx changes the status of one task and returns the stored row.
func (r *TaskRepository) UpdateStatusTx(ctx context.Context, userID, id int, status model.Status) (*model.Task, error) {
	query := `
        UPDATE tasks SET status = $3, updated_at = NOW()
         WHERE user_id = $1 AND id = $2
     RETURNING id
    `
	err := r.inTx(ctx, contractmq.ChangeStatus, func(tx pgx.Tx) (*model.Task, error) {
		err := otel.DB(ctx, "update", "tasks", query, func(ctx context.Context) error {
			var ignored int
			return tx.QueryRow(ctx, query, userID, id, status).Scan(&ignored)
		})
		return &model.Task{ID: id, UserID: userID, Status: status}, err
	})
	if err != nil {
		err = translate(err)
		if err != ErrNotFound {
			r.logger.Error("Failed to update task status", zap.Int("task_id", id), zap.Error(err))
		}
		return nil, err
	}

	r.logger.Info("Task status updated", zap.Int("task_id", id), zap.String("status", string(status)))
	return r.Get(ctx, userID, id)
}

func (r *TaskRepository) Delete(ctx context.Context, userID, id int) error {
	query := `DELETE FROM tasks WHERE user_id = $1 AND id = $2 RETURNING status`

	err := r.inTx(ctx, contractmq.ChangeDeleted, func(tx pgx.Tx) (*model.Task, error) {
		t := &model.Task{ID: id, UserID: userID}
		err := otel.DB(ctx, "delete", "tasks", query, func(ctx context.Context) error {
			return tx.QueryRow(ctx, query, userID, id).Scan(&t.Status)
		})
		return t, err
	})
	if err != nil {
		err = translate(err)
		if err != ErrNotFound {
			r.logger.Error("Failed to delete task", zap.Int("task_id", id), zap.Error(err))
		}
		return err
	}

	r.logger.Info("Task deleted", zap.Int("task_id", id))
	return nil
}

// InsertDependency records that taskID waits on dependsOn. Ownership is
// checked by the caller. The event is raised on dependsOn because its
// blocked count is what changes.
func (r *TaskRepository) InsertDependency(ctx context.Context, userID, taskID, dependsOn int) error {
	insert := `
        INSERT INTO task_dependencies (task_id, depends_on_task_id)
        VALUES ($1, $2)
    `
	lookup := `SELECT status FROM tasks WHERE user_id = $1 AND id = $2`

	err := r.inTx(ctx, contractmq.ChangeDependency, func(tx pgx.Tx) (*model.Task, error) {
		err := otel.DB(ctx, "insert", "task_dependencies", insert, func(ctx context.Context) error {
			_, err := tx.Exec(ctx, insert, taskID, dependsOn)
			return err
		})
		if err != nil {
			return nil, err
		}

		t := &model.Task{ID: dependsOn, UserID: userID}
		err = otel.DB(ctx, "select", "tasks", lookup, func(ctx context.Context) error {
			return tx.QueryRow(ctx, lookup, userID, dependsOn).Scan(&t.Status)
		})
		return t, err
	})
	if err != nil {
		err = translate(err)
		if err != ErrConflict {
			r.logger.Error("Failed to insert dependency", zap.Int("task_id", taskID), zap.Error(err))
		}
		return err
	}

	r.logger.Info("Dependency added", zap.Int("task_id", taskID), zap.Int("depends_on", dependsOn))
	return nil
}

// ListDependencies returns the tasks taskID waits on.
func (r *TaskRepository) ListDependencies(ctx context.Context, taskID int) ([]model.TaskDependency, error) {
	query := `
        SELECT task_id, depends_on_task_id
        FROM task_dependencies
        WHERE task_id = $1
        ORDER BY depends_on_task_id
    `
	var deps []model.TaskDependency
	err := otel.DB(ctx, "select", "task_dependencies", query, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, taskID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var d model.TaskDependency
			if err := rows.Scan(&d.TaskID, &d.DependsOnTaskID); err != nil {
				return err
			}
			deps = append(deps, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return deps, nil
}
