package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/models"
)

type envelope struct {
	Success bool            `json:"success"`
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewSQLiteDatabase(ctx, filepath.Join(t.TempDir(), "router.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDatabase: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Environment:     "test",
		BaseURL:         "http://localhost:3000",
		DatabaseDriver:  "sqlite",
		JWTSecret:       "router-test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		CacheTTL:        time.Minute,
		AllowedOrigins:  []string{"*"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := BuildWithDB(ctx, cfg, logger, db)
	if err != nil {
		t.Fatalf("BuildWithDB: %v", err)
	}
	t.Cleanup(func() { _ = app.Mailer.Wait(context.Background()) })
	return &testServer{t: t, handler: app.Router}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			s.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, env
}

// must performs the request and decodes data into out, failing on any other status.
func (s *testServer) must(want int, method, path, token string, body, out interface{}) {
	s.t.Helper()
	status, env := s.do(method, path, token, body)
	if status != want {
		s.t.Fatalf("%s %s: status %d, want %d (%+v)", method, path, status, want, env.Error)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			s.t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
}

func (s *testServer) register(name, email string) *models.UserLoginResponse {
	s.t.Helper()
	var resp models.UserLoginResponse
	s.must(http.StatusCreated, http.MethodPost, "/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "password123",
	}, &resp)
	return &resp
}

func TestHealthAndNotFound(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(http.MethodGet, "/", "", nil)
	if status != http.StatusOK || !env.Success {
		t.Fatalf("health = %d %+v", status, env)
	}

	status, env = s.do(http.MethodGet, "/no/such/route", "", nil)
	if status != http.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("not found = %d %+v", status, env)
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	ann := s.register("Ann", "ann@example.com")

	status, env := s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Ann", "email": "ann@example.com", "password": "password123",
	})
	if status != http.StatusConflict || env.Error.Code != "CONFLICT" {
		t.Fatalf("duplicate register = %d %+v", status, env.Error)
	}

	status, env = s.do(http.MethodPost, "/auth/register", "", map[string]string{"email": "not-an-email"})
	if status != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("invalid register = %d %+v", status, env.Error)
	}

	status, _ = s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "ann@example.com", "password": "nope-nope"})
	if status != http.StatusUnauthorized {
		t.Fatalf("bad login = %d", status)
	}

	var refreshed models.UserLoginResponse
	s.must(http.StatusOK, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": ann.RefreshToken}, &refreshed)
	if refreshed.AccessToken == "" {
		t.Fatal("no access token after refresh")
	}

	status, _ = s.do(http.MethodGet, "/user/me", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("anonymous /user/me = %d", status)
	}
	status, _ = s.do(http.MethodGet, "/user/me", ann.RefreshToken, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("refresh token on /user/me = %d", status)
	}

	var me struct {
		User models.User `json:"user"`
	}
	s.must(http.StatusOK, http.MethodPatch, "/user/me", refreshed.AccessToken, map[string]string{"name": "Ann Lee"}, &me)
	if me.User.Name != "Ann Lee" || me.User.Email != "ann@example.com" {
		t.Errorf("profile = %+v", me.User)
	}
}

func TestLaunchOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("Alice", "alice@example.com")
	a := alice.AccessToken

	var created struct {
		Project models.Project `json:"project"`
	}
	s.must(http.StatusCreated, http.MethodPost, "/project", a, map[string]string{"title": "Launch", "description": "Q1 launch"}, &created)
	pid := created.Project.ID

	s.must(http.StatusCreated, http.MethodPost, "/project/member/"+pid, a, map[string]string{"email": "bob@x.com", "access": "member"}, nil)

	bob := s.register("Bob", "bob@x.com")
	b := bob.AccessToken

	var mine struct {
		Invitations []models.ProjectInvitation `json:"invitations"`
	}
	s.must(http.StatusOK, http.MethodGet, "/project/invitations", b, nil, &mine)
	if len(mine.Invitations) != 1 || mine.Invitations[0].ProjectTitle != "Launch" {
		t.Fatalf("bob's invitations = %+v", mine.Invitations)
	}
	s.must(http.StatusOK, http.MethodPatch, "/project/invitations/"+mine.Invitations[0].ID, b, map[string]string{"action": "accept"}, nil)

	var buckets models.UserProjects
	s.must(http.StatusOK, http.MethodGet, "/project", b, nil, &buckets)
	if len(buckets.Member) != 1 || buckets.Member[0].ID != pid {
		t.Fatalf("bob's projects = %+v", buckets)
	}

	var phase struct {
		Phase models.Phase `json:"phase"`
	}
	s.must(http.StatusCreated, http.MethodPost, "/phase/"+pid, a, map[string]string{"name": "Backend"}, &phase)

	var task struct {
		Task models.Task `json:"task"`
	}
	s.must(http.StatusCreated, http.MethodPost, "/task/"+pid+"/"+phase.Phase.ID, a, map[string]string{
		"title": "Build API", "assignedTo": bob.User.ID,
	}, &task)
	tid := task.Task.ID

	status, env := s.do(http.MethodPatch, "/task/"+pid+"/"+tid, b, map[string]string{"status": "complete"})
	if status != http.StatusForbidden || env.Error.Code != "FORBIDDEN" {
		t.Fatalf("member direct update = %d %+v", status, env.Error)
	}

	var requested struct {
		PendingUpdate models.PendingUpdate `json:"pending_update"`
	}
	s.must(http.StatusCreated, http.MethodPost, "/task/request-update/"+pid+"/"+tid, b, map[string]string{
		"updateDescription": "done", "newStatus": "complete",
	}, &requested)

	var listing struct {
		Phases []models.PhaseWithTasks `json:"phases"`
	}
	s.must(http.StatusOK, http.MethodGet, "/phase/"+pid, b, nil, &listing)
	if got := listing.Phases[0].Tasks[0]; got.Status != models.TaskActive || got.PendingUpdate == nil {
		t.Fatalf("task before review = %+v", got)
	}

	s.must(http.StatusOK, http.MethodPatch, "/task/accept-update/"+pid+"/"+requested.PendingUpdate.ID, a,
		map[string]string{"newStatus": "complete"}, &task)
	if task.Task.Status != models.TaskComplete {
		t.Fatalf("status after accept = %q", task.Task.Status)
	}

	s.must(http.StatusOK, http.MethodGet, "/phase/"+pid, b, nil, &listing)
	if got := listing.Phases[0].Tasks[0]; got.Status != models.TaskComplete || got.PendingUpdate != nil {
		t.Fatalf("task after review = %+v", got)
	}

	status, _ = s.do(http.MethodPatch, "/task/accept-update/"+pid+"/"+requested.PendingUpdate.ID, a, nil)
	if status != http.StatusNotFound {
		t.Fatalf("second accept = %d", status)
	}
}

func TestAccessErrorsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("Owner", "owner@example.com")
	stranger := s.register("Stranger", "stranger@example.com")

	var created struct {
		Project models.Project `json:"project"`
	}
	s.must(http.StatusCreated, http.MethodPost, "/project", owner.AccessToken, map[string]string{"title": "Private"}, &created)
	pid := created.Project.ID

	status, env := s.do(http.MethodGet, "/project/"+pid, stranger.AccessToken, nil)
	if status != http.StatusForbidden || env.Error.Message != "You are not a member of this project" {
		t.Fatalf("stranger get = %d %+v", status, env.Error)
	}

	status, _ = s.do(http.MethodGet, "/project/missing-id", owner.AccessToken, nil)
	if status != http.StatusNotFound {
		t.Fatalf("missing project = %d", status)
	}

	status, _ = s.do(http.MethodDelete, "/project/member/"+pid+"/"+owner.User.ID, owner.AccessToken, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("owner removal = %d", status)
	}

	status, _ = s.do(http.MethodGet, "/admin/stats", owner.AccessToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("non-admin stats = %d", status)
	}

	status, _ = s.do(http.MethodPost, "/project", owner.AccessToken, map[string]string{"description": "untitled"})
	if status != http.StatusBadRequest {
		t.Fatalf("untitled project = %d", status)
	}
}

func TestProjectListETag(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("Owner", "owner@example.com")
	s.must(http.StatusCreated, http.MethodPost, "/project", owner.AccessToken, map[string]string{"title": "P"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/project", nil)
	req.Header.Set("Authorization", "Bearer "+owner.AccessToken)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	etag := rec.Header().Get("ETag")
	if rec.Code != http.StatusOK || etag == "" {
		t.Fatalf("first list = %d etag %q", rec.Code, etag)
	}

	req = httptest.NewRequest(http.MethodGet, "/project", nil)
	req.Header.Set("Authorization", "Bearer "+owner.AccessToken)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("conditional list = %d", rec.Code)
	}
}
