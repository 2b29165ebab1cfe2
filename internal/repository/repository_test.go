package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	contractmq "curatorhub/contracts/mq"
	"curatorhub/internal/model"
)

func TestTranslate(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, ErrConflict},
		{"other pg error", &pgconn.PgError{Code: "23503"}, nil},
		{"other", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.in)
			if tt.want == nil {
				if tt.in == nil && got != nil {
					t.Fatalf("translate(nil) = %v, want nil", got)
				}
				if tt.in != nil && (errors.Is(got, ErrNotFound) || errors.Is(got, ErrConflict)) {
					t.Fatalf("translate(%v) = %v, want passthrough", tt.in, got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Fatalf("translate(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		done, total int
		want        float64
	}{
		{0, 0, 0},
		{0, 4, 0},
		{1, 3, 0.33},
		{2, 3, 0.67},
		{5, 5, 1},
	}

	for _, tt := range tests {
		if got := progress(tt.done, tt.total); got != tt.want {
			t.Fatalf("progress(%d, %d) = %v, want %v", tt.done, tt.total, got, tt.want)
		}
	}
}

func TestChangedPayload(t *testing.T) {
	tests := []struct {
		change string
		task   model.Task
	}{
		{contractmq.ChangeCreated, model.Task{ID: 3, UserID: 9, Status: model.StatusPending}},
		{contractmq.ChangeDependency, model.Task{ID: 12, UserID: 9, Status: model.StatusInProgress}},
		{contractmq.ChangeDeleted, model.Task{ID: 5, UserID: 2, Status: model.StatusCompleted}},
	}

	for _, tt := range tests {
		t.Run(tt.change, func(t *testing.T) {
			got := changedPayload(&tt.task, tt.change)
			want := contractmq.TaskChangedPayload{
				TaskID: tt.task.ID,
				UserID: tt.task.UserID,
				Change: tt.change,
				Status: string(tt.task.Status),
			}
			if got != want {
				t.Fatalf("changedPayload() = %+v, want %+v", got, want)
			}
		})
	}
}
