package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"taskboard-backend/pkg/cache"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/mailer"
	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/utils"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (r *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingSender) to(addr string) []mailer.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []mailer.Message
	for _, m := range r.sent {
		if m.To == addr {
			out = append(out, m)
		}
	}
	return out
}

// countingCache records deletes on top of the in-memory cache.
type countingCache struct {
	*cache.Memory
	mu      sync.Mutex
	deletes map[string]int
	failDel bool
}

func (c *countingCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		c.deletes[k]++
	}
	fail := c.failDel
	c.mu.Unlock()
	if fail {
		return errors.New("cache unavailable")
	}
	return c.Memory.Delete(ctx, keys...)
}

func (c *countingCache) deleted(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deletes[key]
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    database.DatabaseInterface
	svc   *Service
	mail  *recordingSender
	cache *countingCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewSQLiteDatabase(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDatabase: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return newFixtureWithDB(t, db)
}

func newFixtureWithDB(t *testing.T, db database.DatabaseInterface) *fixture {
	t.Helper()
	rec := &recordingSender{}
	cc := &countingCache{Memory: cache.NewMemory(), deletes: map[string]int{}}

	// strictly increasing clock keeps creation order observable
	var mu sync.Mutex
	tick := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(time.Second)
		return tick
	}

	svc := New(Deps{
		DB:       db,
		Cache:    cc,
		Mailer:   mailer.NewDispatcher(rec, nil, true),
		JWT:      utils.NewJWTService("test-secret", time.Minute, time.Hour),
		BaseURL:  "http://localhost:3000",
		CacheTTL: time.Minute,
		Now:      now,
	})
	return &fixture{t: t, ctx: context.Background(), db: db, svc: svc, mail: rec, cache: cc}
}

func (f *fixture) user(name string) *models.User {
	f.t.Helper()
	resp, err := f.svc.Register(f.ctx, models.UserRegisterRequest{
		Name:     name,
		Email:    name + "@example.com",
		Password: "password123",
	})
	if err != nil {
		f.t.Fatalf("Register(%s): %v", name, err)
	}
	u := resp.User
	return &u
}

func (f *fixture) project(owner *models.User, title string) *models.Project {
	f.t.Helper()
	p, err := f.svc.CreateProject(f.ctx, owner.ID, models.CreateProjectRequest{Title: title})
	if err != nil {
		f.t.Fatalf("CreateProject: %v", err)
	}
	return p
}

// join invites u by id and accepts on their behalf.
func (f *fixture) join(p *models.Project, owner, u *models.User, access models.ProjectRole) {
	f.t.Helper()
	inv, err := f.svc.AddMember(f.ctx, p.ID, owner.ID, models.AddMemberRequest{UserID: u.ID, Access: access})
	if err != nil {
		f.t.Fatalf("AddMember: %v", err)
	}
	if _, err := f.svc.RespondToInvitation(f.ctx, inv.ID, u.ID, models.InvitationAccept); err != nil {
		f.t.Fatalf("RespondToInvitation: %v", err)
	}
}

func (f *fixture) phase(p *models.Project, actor *models.User, name string) *models.Phase {
	f.t.Helper()
	ph, err := f.svc.CreatePhase(f.ctx, p.ID, actor.ID, models.PhaseRequest{Name: name})
	if err != nil {
		f.t.Fatalf("CreatePhase: %v", err)
	}
	return ph
}

func (f *fixture) role(p *models.Project, u *models.User) models.ProjectRole {
	f.t.Helper()
	_, role, err := f.svc.ResolveRole(f.ctx, p.ID, u.ID)
	if err != nil {
		f.t.Fatalf("ResolveRole: %v", err)
	}
	return role
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", status)
	}
	if got := StatusOf(err); got != status {
		t.Fatalf("status = %d (%v), want %d", got, err, status)
	}
}
