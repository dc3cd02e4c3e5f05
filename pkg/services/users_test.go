package services

import (
	"net/http"
	"testing"

	"taskboard-backend/pkg/models"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Register(f.ctx, models.UserRegisterRequest{Name: "Ann", Email: " Ann@Example.com ", Password: "password123"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.User.Email != "ann@example.com" || resp.User.Role != models.UserRoleUser || resp.AccessToken == "" {
		t.Errorf("register response = %+v", resp)
	}
	if resp.User.Password == "password123" {
		t.Error("password stored in clear")
	}

	_, err = f.svc.Register(f.ctx, models.UserRegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "password123"})
	wantStatus(t, err, http.StatusConflict)

	_, err = f.svc.Register(f.ctx, models.UserRegisterRequest{Name: "Short", Email: "s@example.com", Password: "short"})
	wantStatus(t, err, http.StatusBadRequest)

	if _, err := f.svc.Login(f.ctx, models.UserLoginRequest{Email: "ANN@example.com", Password: "password123"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	_, err = f.svc.Login(f.ctx, models.UserLoginRequest{Email: "ann@example.com", Password: "wrong-password"})
	wantStatus(t, err, http.StatusUnauthorized)
	_, err = f.svc.Login(f.ctx, models.UserLoginRequest{Email: "nobody@example.com", Password: "password123"})
	wantStatus(t, err, http.StatusUnauthorized)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.Register(f.ctx, models.UserRegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	refreshed, err := f.svc.Refresh(f.ctx, resp.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.User.ID != resp.User.ID || refreshed.AccessToken == "" {
		t.Errorf("refreshed = %+v", refreshed)
	}

	_, err = f.svc.Refresh(f.ctx, resp.AccessToken)
	wantStatus(t, err, http.StatusUnauthorized)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	u := f.user("ann")

	got, err := f.svc.UpdateProfile(f.ctx, u.ID, models.UpdateProfileRequest{Name: "  Ann B  "})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.Name != "Ann B" {
		t.Errorf("name = %q", got.Name)
	}
	me, _ := f.svc.Me(f.ctx, u.ID)
	if me.Name != "Ann B" {
		t.Errorf("stored name = %q", me.Name)
	}
}

func TestAdminOperations(t *testing.T) {
	f := newFixture(t)
	root := f.user("root")
	admin := f.user("admin")
	plain := f.user("plain")
	if err := f.db.UpdateUserRole(f.ctx, root.ID, models.UserRoleSuperAdmin); err != nil {
		t.Fatalf("seed super-admin: %v", err)
	}

	_, err := f.svc.ListUsers(f.ctx, plain.ID)
	wantStatus(t, err, http.StatusForbidden)

	promoted, err := f.svc.ChangeUserRole(f.ctx, root.ID, admin.ID, models.UserRoleAdmin)
	if err != nil {
		t.Fatalf("ChangeUserRole: %v", err)
	}
	if promoted.Role != models.UserRoleAdmin {
		t.Errorf("role = %q", promoted.Role)
	}

	users, err := f.svc.ListUsers(f.ctx, admin.ID)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 3 {
		t.Errorf("users = %d", len(users))
	}

	_, err = f.svc.ChangeUserRole(f.ctx, admin.ID, plain.ID, models.UserRoleAdmin)
	wantStatus(t, err, http.StatusForbidden)
	_, err = f.svc.ChangeUserRole(f.ctx, root.ID, root.ID, models.UserRoleUser)
	wantStatus(t, err, http.StatusBadRequest)
	_, err = f.svc.ChangeUserRole(f.ctx, root.ID, plain.ID, models.UserRole("god"))
	wantStatus(t, err, http.StatusBadRequest)
	_, err = f.svc.ChangeUserRole(f.ctx, root.ID, "ghost", models.UserRoleAdmin)
	wantStatus(t, err, http.StatusNotFound)

	p := f.project(plain, "P")
	ph := f.phase(p, plain, "Todo")
	if _, err := f.svc.CreateTask(f.ctx, p.ID, ph.ID, plain.ID, models.CreateTaskRequest{Title: "t", AssignedTo: plain.ID}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	stats, err := f.svc.Stats(f.ctx, admin.ID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Users != 3 || stats.Projects != 1 || stats.Tasks != 1 || stats.TasksByStatus["active"] != 1 {
		t.Errorf("stats = %+v", stats)
	}

	// demotion takes effect on the next call
	if _, err := f.svc.ChangeUserRole(f.ctx, root.ID, admin.ID, models.UserRoleUser); err != nil {
		t.Fatalf("demote: %v", err)
	}
	_, err = f.svc.Stats(f.ctx, admin.ID)
	wantStatus(t, err, http.StatusForbidden)
}
