package content

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"curatorhub/internal/ai"
	"curatorhub/internal/model"
	"curatorhub/internal/repository"
	"curatorhub/pkg/rbac"
)

type fakeGenerator struct {
	text     *ai.TextResult
	imageErr error
	lastText ai.TextRequest
	calls    int
}

func (g *fakeGenerator) GenerateText(ctx context.Context, req ai.TextRequest) (*ai.TextResult, error) {
	g.calls++
	g.lastText = req
	if g.text != nil {
		return g.text, nil
	}
	return &ai.TextResult{Text: "draft for " + req.Input.Title, Prompt: "p", Provider: "test", Model: "m"}, nil
}

func (g *fakeGenerator) GenerateImage(ctx context.Context, req ai.ImageRequest) (*ai.ImageResult, error) {
	g.calls++
	if g.imageErr != nil {
		return nil, g.imageErr
	}
	return &ai.ImageResult{URL: "https://img.example/x.png", Prompt: "p", Provider: "test", Model: "img"}, nil
}

type fakeStore struct {
	drafts []model.ContentDraft
	err    error
}

func (s *fakeStore) Insert(ctx context.Context, d *model.ContentDraft) error {
	if s.err != nil {
		return s.err
	}
	s.drafts = append(s.drafts, *d)
	return nil
}

func (s *fakeStore) ListByUser(ctx context.Context, userID, limit int) ([]model.ContentDraft, error) {
	if len(s.drafts) > limit {
		return s.drafts[:limit], nil
	}
	return s.drafts, nil
}

func (s *fakeStore) Get(ctx context.Context, userID int, id uuid.UUID) (*model.ContentDraft, error) {
	for i := range s.drafts {
		if s.drafts[i].ID == id && s.drafts[i].UserID == userID {
			return &s.drafts[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeTasks struct{}

func (fakeTasks) Get(ctx context.Context, userID, id int) (*model.Task, error) {
	if id != 3 || userID != 1 {
		return nil, repository.ErrNotFound
	}
	return &model.Task{ID: 3, UserID: 1, Title: "Textile gallery", Description: "Rehang in spring"}, nil
}

type fakeDeduper struct {
	seen     map[string]bool
	released []string
}

func (d *fakeDeduper) AcquireOnce(ctx context.Context, handler, id string) bool {
	k := handler + ":" + id
	if d.seen[k] {
		return false
	}
	d.seen[k] = true
	return true
}

func (d *fakeDeduper) Release(ctx context.Context, handler, id string) {
	k := handler + ":" + id
	delete(d.seen, k)
	d.released = append(d.released, k)
}

var curator = Caller{UserID: 1, Role: rbac.RoleCurator}

func newTestService(gen *fakeGenerator, store *fakeStore) (*Service, *fakeDeduper) {
	dd := &fakeDeduper{seen: map[string]bool{}}
	return NewService(gen, store, fakeTasks{}, dd, zap.NewNop()), dd
}

func TestDraft(t *testing.T) {
	gen := &fakeGenerator{}
	store := &fakeStore{}
	s, _ := newTestService(gen, store)

	taskID := 3
	got, err := s.Draft(context.Background(), curator, DraftRequest{Kind: model.ContentLabel, TaskID: &taskID})
	if err != nil {
		t.Fatalf("Draft() err=%v", err)
	}
	if got.Body != "draft for Textile gallery" || got.Kind != model.ContentLabel {
		t.Fatalf("Draft() = %+v", got)
	}
	if gen.lastText.Input.Description != "Rehang in spring" {
		t.Fatalf("input=%+v, want task description filled in", gen.lastText.Input)
	}
	if got.ID.String() == "" || len(store.drafts) != 1 {
		t.Fatalf("draft not stored: %+v", store.drafts)
	}
}

func TestDraft_Rejections(t *testing.T) {
	s, _ := newTestService(&fakeGenerator{}, &fakeStore{})
	ctx := context.Background()
	missing := 99

	tests := []struct {
		name   string
		caller Caller
		req    DraftRequest
		check  func(error) bool
	}{
		{"viewer", Caller{UserID: 1, Role: rbac.RoleViewer}, DraftRequest{Kind: model.ContentLabel, Input: ai.PromptInput{Title: "x"}},
			func(err error) bool { var pe *rbac.PermissionDeniedError; return errors.As(err, &pe) }},
		{"image kind", curator, DraftRequest{Kind: model.ContentImage, Input: ai.PromptInput{Title: "x"}},
			func(err error) bool { return errors.Is(err, ErrInvalidInput) }},
		{"no title", curator, DraftRequest{Kind: model.ContentSocial},
			func(err error) bool { return errors.Is(err, ErrInvalidInput) }},
		{"unknown task", curator, DraftRequest{Kind: model.ContentSocial, TaskID: &missing},
			func(err error) bool { return errors.Is(err, repository.ErrNotFound) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Draft(ctx, tt.caller, tt.req); !tt.check(err) {
				t.Fatalf("Draft() err=%v", err)
			}
		})
	}
}

func TestDraft_Idempotency(t *testing.T) {
	gen := &fakeGenerator{}
	s, dd := newTestService(gen, &fakeStore{})
	ctx := context.Background()
	req := DraftRequest{Kind: model.ContentSocial, Input: ai.PromptInput{Title: "Open late"}, IdempotencyKey: "abc"}

	if _, err := s.Draft(ctx, curator, req); err != nil {
		t.Fatalf("Draft() err=%v", err)
	}
	if _, err := s.Draft(ctx, curator, req); !errors.Is(err, ErrDuplicateRequest) {
		t.Fatalf("Draft(repeat) err=%v, want ErrDuplicateRequest", err)
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls=%d, want 1", gen.calls)
	}

	other := Caller{UserID: 2, Role: rbac.RoleCurator}
	if _, err := s.Draft(ctx, other, req); err != nil {
		t.Fatalf("Draft(other user, same key) err=%v", err)
	}
	if len(dd.released) != 0 {
		t.Fatalf("released=%v, want none", dd.released)
	}
}

func TestDraft_ReleasesKeyOnFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	s, dd := newTestService(&fakeGenerator{}, store)
	req := DraftRequest{Kind: model.ContentSocial, Input: ai.PromptInput{Title: "Open late"}, IdempotencyKey: "k1"}

	if _, err := s.Draft(context.Background(), curator, req); err == nil {
		t.Fatalf("Draft() err=nil, want store error")
	}
	if len(dd.released) != 1 {
		t.Fatalf("released=%v, want the key freed", dd.released)
	}

	store.err = nil
	if _, err := s.Draft(context.Background(), curator, req); err != nil {
		t.Fatalf("Draft(retry) err=%v", err)
	}
}

func TestImage(t *testing.T) {
	store := &fakeStore{}
	s, _ := newTestService(&fakeGenerator{}, store)

	got, err := s.Image(context.Background(), curator, ImageRequest{Input: ai.PromptInput{Title: "Harbour at dusk"}, Size: "1024x1024"})
	if err != nil {
		t.Fatalf("Image() err=%v", err)
	}
	if got.Kind != model.ContentImage || got.ImageURL == "" {
		t.Fatalf("Image() = %+v", got)
	}

	if _, err := s.Image(context.Background(), curator, ImageRequest{Input: ai.PromptInput{Title: "x"}, Size: "3x3"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Image(bad size) err=%v, want ErrInvalidInput", err)
	}
}

func TestImage_ProviderUnavailable(t *testing.T) {
	gen := &fakeGenerator{imageErr: ai.ErrProviderUnavailable}
	store := &fakeStore{}
	s, _ := newTestService(gen, store)

	_, err := s.Image(context.Background(), curator, ImageRequest{Input: ai.PromptInput{Title: "x"}})
	if !errors.Is(err, ai.ErrProviderUnavailable) {
		t.Fatalf("Image() err=%v, want ErrProviderUnavailable", err)
	}
	if len(store.drafts) != 0 {
		t.Fatalf("drafts=%d, want none stored", len(store.drafts))
	}
}

func TestList(t *testing.T) {
	s, _ := newTestService(&fakeGenerator{}, &fakeStore{})

	got, err := s.List(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("List() err=%v", err)
	}
	if got == nil {
		t.Fatalf("List() = nil, want empty slice")
	}
}

func TestGet_OwnerOnly(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{drafts: []model.ContentDraft{{ID: id, UserID: 1, Kind: model.ContentLabel}}}
	s, _ := newTestService(&fakeGenerator{}, store)

	got, err := s.Get(context.Background(), 1, id)
	if err != nil || got.ID != id {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if _, err := s.Get(context.Background(), 2, id); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Get() by another user err=%v, want ErrNotFound", err)
	}
}
