package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	contractmq "curatorhub/contracts/mq"
	"curatorhub/internal/model"
	"curatorhub/internal/repository"
)

type fakeTasks struct {
	tasks  map[int]*model.Task
	deps   []model.TaskDependency
	nextID int

	// changes mirrors the outbox rows the repository writes for dependency edges.
	changes []contractmq.TaskChangedPayload
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{tasks: map[int]*model.Task{}, nextID: 1}
}

func (f *fakeTasks) Insert(ctx context.Context, t *model.Task) error {
	t.ID = f.nextID
	f.nextID++
	cp := *t
	f.tasks[t.ID] = &cp
	return nil
}

func (f *fakeTasks) Get(ctx context.Context, userID, id int) (*model.Task, error) {
	t, ok := f.tasks[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTasks) ListByUser(ctx context.Context, userID int) ([]model.Task, error) {
	var out []model.Task
	for _, t := range f.tasks {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTasks) Update(ctx context.Context, t *model.Task) error {
	cur, ok := f.tasks[t.ID]
	if !ok || cur.UserID != t.UserID {
		return repository.ErrNotFound
	}
	t.Status = cur.Status
	cp := *t
	f.tasks[t.ID] = &cp
	return nil
}

func (f *fakeTasks) UpdateStatusTx(ctx context.Context, userID, id int, status model.Status) (*model.Task, error) {
	t, ok := f.tasks[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrNotFound
	}
	t.Status = status
	cp := *t
	return &cp, nil
}

func (f *fakeTasks) Delete(ctx context.Context, userID, id int) error {
	if _, err := f.Get(ctx, userID, id); err != nil {
		return err
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeTasks) InsertDependency(ctx context.Context, userID, taskID, dependsOn int) error {
	for _, d := range f.deps {
		if d.TaskID == taskID && d.DependsOnTaskID == dependsOn {
			return repository.ErrConflict
		}
	}
	f.deps = append(f.deps, model.TaskDependency{TaskID: taskID, DependsOnTaskID: dependsOn})
	f.changes = append(f.changes, contractmq.TaskChangedPayload{
		TaskID: dependsOn,
		UserID: userID,
		Change: contractmq.ChangeDependency,
		Status: string(f.tasks[dependsOn].Status),
	})
	return nil
}

func (f *fakeTasks) ListDependencies(ctx context.Context, taskID int) ([]model.TaskDependency, error) {
	var out []model.TaskDependency
	for _, d := range f.deps {
		if d.TaskID == taskID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeProjects struct {
	projects map[int]*model.Project
}

func (f *fakeProjects) Insert(ctx context.Context, p *model.Project) error {
	p.ID = len(f.projects) + 1
	cp := *p
	f.projects[p.ID] = &cp
	return nil
}

func (f *fakeProjects) Get(ctx context.Context, userID, id int) (*model.Project, error) {
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjects) ListByUser(ctx context.Context, userID int) ([]model.Project, error) {
	var out []model.Project
	for _, p := range f.projects {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProjects) UpdateStatus(ctx context.Context, userID, id int, status model.ProjectStatus) error {
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return repository.ErrNotFound
	}
	p.Status = status
	return nil
}

func newTestService() (*Service, *fakeTasks, *fakeProjects) {
	tasks := newFakeTasks()
	projects := &fakeProjects{projects: map[int]*model.Project{}}
	return NewService(tasks, projects, zap.NewNop()), tasks, projects
}

func ptr[T any](v T) *T { return &v }

func TestCreate(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	got, err := s.Create(ctx, 1, Input{Title: "  Hang the prints ", Category: model.CategoryExhibition, EstimatedHours: ptr(2.0)})
	if err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	if got.ID == 0 || got.Title != "Hang the prints" || got.Status != model.StatusPending {
		t.Fatalf("Create() = %+v", got)
	}
}

func TestCreate_Validation(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		in   Input
		want error
	}{
		{"missing title", Input{Category: model.CategoryAdmin}, ErrInvalidInput},
		{"unknown category", Input{Title: "x", Category: "gardening"}, ErrInvalidInput},
		{"zero hours", Input{Title: "x", Category: model.CategoryAdmin, EstimatedHours: ptr(0.0)}, ErrInvalidInput},
		{"bad status", Input{Title: "x", Category: model.CategoryAdmin, Status: "done"}, ErrInvalidStatus},
		{"foreign project", Input{Title: "x", Category: model.CategoryAdmin, ProjectID: ptr(42)}, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Create(ctx, 1, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("Create() err=%v, want %v", err, tt.want)
			}
		})
	}
}

func TestUpdateAndSetStatus(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	created, _ := s.Create(ctx, 1, Input{Title: "Draft catalogue", Category: model.CategoryPublication})

	updated, err := s.Update(ctx, 1, created.ID, Input{Title: "Draft catalogue essay", Category: model.CategoryPublication})
	if err != nil {
		t.Fatalf("Update() err=%v", err)
	}
	if updated.Title != "Draft catalogue essay" || updated.Status != model.StatusPending {
		t.Fatalf("Update() = %+v", updated)
	}

	if _, err := s.Update(ctx, 2, created.ID, Input{Title: "x", Category: model.CategoryAdmin}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Update(other user) err=%v, want ErrNotFound", err)
	}

	got, err := s.SetStatus(ctx, 1, created.ID, model.StatusInProgress)
	if err != nil || got.Status != model.StatusInProgress {
		t.Fatalf("SetStatus() = %+v, %v", got, err)
	}
	if _, err := s.SetStatus(ctx, 1, created.ID, "archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("SetStatus(archived) err=%v, want ErrInvalidStatus", err)
	}
}

func TestAddDependency(t *testing.T) {
	s, tasks, _ := newTestService()
	ctx := context.Background()

	a, _ := s.Create(ctx, 1, Input{Title: "a", Category: model.CategoryAdmin})
	b, _ := s.Create(ctx, 1, Input{Title: "b", Category: model.CategoryAdmin})
	c, _ := s.Create(ctx, 1, Input{Title: "c", Category: model.CategoryAdmin})
	other, _ := s.Create(ctx, 2, Input{Title: "other", Category: model.CategoryAdmin})

	if err := s.AddDependency(ctx, 1, a.ID, b.ID); err != nil {
		t.Fatalf("AddDependency(a->b) err=%v", err)
	}
	if err := s.AddDependency(ctx, 1, b.ID, c.ID); err != nil {
		t.Fatalf("AddDependency(b->c) err=%v", err)
	}
	if err := s.AddDependency(ctx, 1, a.ID, b.ID); err != nil {
		t.Fatalf("AddDependency(duplicate) err=%v, want nil", err)
	}

	if err := s.AddDependency(ctx, 1, c.ID, a.ID); !errors.Is(err, ErrDependencyCycle) {
		t.Fatalf("AddDependency(c->a) err=%v, want ErrDependencyCycle", err)
	}
	if err := s.AddDependency(ctx, 1, a.ID, a.ID); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("AddDependency(self) err=%v, want ErrInvalidInput", err)
	}
	if err := s.AddDependency(ctx, 1, a.ID, other.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("AddDependency(foreign) err=%v, want ErrNotFound", err)
	}
	if len(tasks.deps) != 2 {
		t.Fatalf("deps=%d, want 2", len(tasks.deps))
	}
}

func TestAddDependency_RaisesChangeOnBlocker(t *testing.T) {
	s, tasks, _ := newTestService()
	ctx := context.Background()

	waiting, _ := s.Create(ctx, 4, Input{Title: "hang gallery 3", Category: model.CategoryExhibition})
	blocker, _ := s.Create(ctx, 4, Input{Title: "condition report", Category: model.CategoryCollection})

	if err := s.AddDependency(ctx, 4, waiting.ID, blocker.ID); err != nil {
		t.Fatalf("AddDependency() err=%v", err)
	}
	if err := s.AddDependency(ctx, 4, waiting.ID, blocker.ID); err != nil {
		t.Fatalf("AddDependency(duplicate) err=%v", err)
	}
	if err := s.AddDependency(ctx, 4, blocker.ID, waiting.ID); !errors.Is(err, ErrDependencyCycle) {
		t.Fatalf("AddDependency(cycle) err=%v, want ErrDependencyCycle", err)
	}

	if len(tasks.changes) != 1 {
		t.Fatalf("changes=%d, want 1", len(tasks.changes))
	}
	got := tasks.changes[0]
	if got.TaskID != blocker.ID || got.UserID != 4 || got.Change != contractmq.ChangeDependency {
		t.Fatalf("change = %+v, want dependency change on task %d for user 4", got, blocker.ID)
	}
}

func TestProjects(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	start := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	before := start.AddDate(0, 0, -1)
	if _, err := s.CreateProject(ctx, 1, ProjectInput{Title: "Late Works", StartDate: &start, TargetDate: &before}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("CreateProject(target before start) err=%v, want ErrInvalidInput", err)
	}

	p, err := s.CreateProject(ctx, 1, ProjectInput{Title: "Late Works"})
	if err != nil {
		t.Fatalf("CreateProject() err=%v", err)
	}
	if p.Status != model.ProjectPlanning || p.Category != model.CategoryExhibition {
		t.Fatalf("CreateProject() = %+v, want planning exhibition defaults", p)
	}

	got, err := s.SetProjectStatus(ctx, 1, p.ID, model.ProjectActive)
	if err != nil || got.Status != model.ProjectActive {
		t.Fatalf("SetProjectStatus() = %+v, %v", got, err)
	}
	if _, err := s.SetProjectStatus(ctx, 1, p.ID, "paused"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("SetProjectStatus(paused) err=%v, want ErrInvalidStatus", err)
	}

	list, _ := s.ListProjects(ctx, 3)
	if list == nil || len(list) != 0 {
		t.Fatalf("ListProjects(empty) = %#v, want empty slice", list)
	}
}
