package services

import (
	"net/http"
	"testing"

	"taskboard-backend/pkg/cache"
	"taskboard-backend/pkg/models"
)

type board struct {
	owner, admin, member *models.User
	project              *models.Project
	phase                *models.Phase
	task                 *models.Task
}

func newBoard(t *testing.T, f *fixture) *board {
	t.Helper()
	b := &board{owner: f.user("owner"), admin: f.user("admin"), member: f.user("member")}
	b.project = f.project(b.owner, "Board")
	f.join(b.project, b.owner, b.admin, models.RoleAdmin)
	f.join(b.project, b.owner, b.member, models.RoleMember)
	b.phase = f.phase(b.project, b.owner, "Todo")

	task, err := f.svc.CreateTask(f.ctx, b.project.ID, b.phase.ID, b.admin.ID, models.CreateTaskRequest{
		Title: "Write docs", AssignedTo: b.member.ID,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	b.task = task
	return b
}

func statusPtr(s models.TaskStatus) *models.TaskStatus { return &s }

func TestLaunchScenario(t *testing.T) {
	f := newFixture(t)
	a := f.user("alice")

	p, err := f.svc.CreateProject(f.ctx, a.ID, models.CreateProjectRequest{Title: "Launch", Description: "Q1 launch"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if f.role(p, a) != models.RoleOwner {
		t.Fatal("creator is not owner")
	}

	inv, err := f.svc.AddMember(f.ctx, p.ID, a.ID, models.AddMemberRequest{Email: "bob@x.com", Access: models.RoleMember})
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if inv.Status != models.InvitationPending {
		t.Fatalf("invitation status = %q", inv.Status)
	}

	reg, err := f.svc.Register(f.ctx, models.UserRegisterRequest{Name: "Bob", Email: "bob@x.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Register(bob): %v", err)
	}
	bob := reg.User
	if _, err := f.svc.RespondToInvitation(f.ctx, inv.ID, bob.ID, models.InvitationAccept); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if f.role(p, &bob) != models.RoleMember {
		t.Fatal("bob is not a member")
	}

	backend := f.phase(p, a, "Backend")
	task, err := f.svc.CreateTask(f.ctx, p.ID, backend.ID, a.ID, models.CreateTaskRequest{Title: "Build API", AssignedTo: bob.ID})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Status != models.TaskActive {
		t.Fatalf("initial status = %q", task.Status)
	}
	if len(f.mail.to("bob@x.com")) != 2 {
		t.Errorf("bob should have an invitation and a task email, got %d", len(f.mail.to("bob@x.com")))
	}

	pu, err := f.svc.RequestTaskUpdate(f.ctx, p.ID, task.ID, bob.ID, models.RequestUpdateRequest{
		UpdateDescription: "done", NewStatus: models.TaskComplete,
	})
	if err != nil {
		t.Fatalf("RequestTaskUpdate: %v", err)
	}
	stored, _ := f.db.GetTask(f.ctx, task.ID)
	if stored.Status != models.TaskActive {
		t.Fatalf("status changed before review: %q", stored.Status)
	}

	done, err := f.svc.AcceptPendingUpdate(f.ctx, p.ID, pu.ID, a.ID, models.TaskComplete)
	if err != nil {
		t.Fatalf("AcceptPendingUpdate: %v", err)
	}
	stored, _ = f.db.GetTask(f.ctx, task.ID)
	if done.Status != models.TaskComplete || stored.Status != models.TaskComplete {
		t.Fatalf("final status = %q / %q", done.Status, stored.Status)
	}
	if _, err := f.db.GetPendingUpdate(f.ctx, pu.ID); err == nil {
		t.Fatal("pending update still present")
	}
	remaining, _ := f.svc.ListPendingUpdates(f.ctx, p.ID, task.ID, a.ID)
	if len(remaining) != 0 {
		t.Fatalf("pending updates left: %d", len(remaining))
	}
}

func TestRoleGate(t *testing.T) {
	f := newFixture(t)
	b := newBoard(t, f)

	_, err := f.svc.UpdateTask(f.ctx, b.project.ID, b.task.ID, b.member.ID, models.UpdateTaskRequest{Status: statusPtr(models.TaskComplete)})
	wantStatus(t, err, http.StatusForbidden)

	if _, err := f.svc.RequestTaskUpdate(f.ctx, b.project.ID, b.task.ID, b.member.ID, models.RequestUpdateRequest{
		UpdateDescription: "finished", NewStatus: models.TaskComplete,
	}); err != nil {
		t.Fatalf("RequestTaskUpdate: %v", err)
	}
	stored, _ := f.db.GetTask(f.ctx, b.task.ID)
	if stored.Status != models.TaskActive {
		t.Fatalf("status = %q, want active until accepted", stored.Status)
	}

	// admins write directly
	updated, err := f.svc.UpdateTask(f.ctx, b.project.ID, b.task.ID, b.admin.ID, models.UpdateTaskRequest{Status: statusPtr(models.TaskCanceled)})
	if err != nil {
		t.Fatalf("UpdateTask(admin): %v", err)
	}
	if updated.Status != models.TaskCanceled {
		t.Errorf("status = %q", updated.Status)
	}
}

func TestCrossProjectPhaseRejected(t *testing.T) {
	f := newFixture(t)
	b := newBoard(t, f)
	other := f.project(b.owner, "Other")
	foreign := f.phase(other, b.owner, "Elsewhere")

	before, _ := f.db.ListTasks(f.ctx, b.project.ID)
	_, err := f.svc.CreateTask(f.ctx, b.project.ID, foreign.ID, b.owner.ID, models.CreateTaskRequest{Title: "Sneaky", AssignedTo: b.member.ID})
	wantStatus(t, err, http.StatusForbidden)

	after, _ := f.db.ListTasks(f.ctx, b.project.ID)
	otherTasks, _ := f.db.ListTasks(f.ctx, other.ID)
	if len(after) != len(before) || len(otherTasks) != 0 {
		t.Fatalf("task row created: %d -> %d, other %d", len(before), len(after), len(otherTasks))
	}

	moved := foreign.ID
	_, err = f.svc.UpdateTask(f.ctx, b.project.ID, b.task.ID, b.owner.ID, models.UpdateTaskRequest{PhaseID: &moved})
	wantStatus(t, err, http.StatusForbidden)
}

func TestCreateTaskValidation(t *testing.T) {
	f := newFixture(t)
	b := newBoard(t, f)
	outsider := f.user("outsider")

	tests := []struct {
		name   string
		actor  *models.User
		req    models.CreateTaskRequest
		status int
	}{
		{"member cannot create", b.member, models.CreateTaskRequest{Title: "x", AssignedTo: b.member.ID}, http.StatusForbidden},
		{"assignee not a member", b.owner, models.CreateTaskRequest{Title: "x", AssignedTo: outsider.ID}, http.StatusBadRequest},
		{"blank title", b.owner, models.CreateTaskRequest{Title: " ", AssignedTo: b.member.ID}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateTask(f.ctx, b.project.ID, b.phase.ID, tt.actor.ID, tt.req)
			wantStatus(t, err, tt.status)
		})
	}

	_, err := f.svc.CreateTask(f.ctx, b.project.ID, "missing", b.owner.ID, models.CreateTaskRequest{Title: "x", AssignedTo: b.member.ID})
	wantStatus(t, err, http.StatusNotFound)
}

func TestUpdateTaskValidation(t *testing.T) {
	f := newFixture(t)
	b := newBoard(t, f)

	_, err := f.svc.UpdateTask(f.ctx, b.project.ID, b.task.ID, b.owner.ID, models.UpdateTaskRequest{Status: statusPtr("done")})
	wantStatus(t, err, http.StatusBadRequest)

	other := f.project(b.owner, "Other")
	_, err = f.svc.UpdateTask(f.ctx, other.ID, b.task.ID, b.owner.ID, models.UpdateTaskRequest{Status: statusPtr(models.TaskComplete)})
	wantStatus(t, err, http.StatusNotFound)

	// status moves freely between all three states
	for _, s := range []models.TaskStatus{models.TaskComplete, models.TaskActive, models.TaskCanceled, models.TaskActive} {
		got, err := f.svc.UpdateTask(f.ctx, b.project.ID, b.task.ID, b.owner.ID, models.UpdateTaskRequest{Status: statusPtr(s)})
		if err != nil || got.Status != s {
			t.Fatalf("UpdateTask(%s) = %v, %v", s, got, err)
		}
	}
}

func TestPendingUpdatesAccumulate(t *testing.T) {
	f := newFixture(t)
	b := newBoard(t, f)

	var ids []string
	for _, s := range []models.TaskStatus{models.TaskComplete, models.TaskCanceled, models.TaskComplete} {
		pu, err := f.svc.RequestTaskUpdate(f.ctx, b.project.ID, b.task.ID, b.member.ID, models.RequestUpdateRequest{
			UpdateDescription: "update", NewStatus: s,
		})
		if err != nil {
			t.Fatalf("RequestTaskUpdate: %v", err)
		}
		ids = append(ids, pu.ID)
	}

	list, err := f.svc.ListPendingUpdates(f.ctx, b.project.ID, b.task.ID, b.member.ID)
	if err != nil {
		t.Fatalf("ListPendingUpdates: %v", err)
	}
	if len(list) != 3 || list[0].ID != ids[0] || list[2].ID != ids[2] {
		t.Fatalf("list order = %+v", list)
	}

	// accepting an older proposal leaves its siblings alone
	task, err := f.svc.AcceptPendingUpdate(f.ctx, b.project.ID, ids[1], b.admin.ID, "")
	if err != nil {
		t.Fatalf("AcceptPendingUpdate: %v", err)
	}
	if task.Status != models.TaskCanceled {
		t.Errorf("status = %q, want the proposal's canceled", task.Status)
	}
	list, _ = f.svc.ListPendingUpdates(f.ctx, b.project.ID, b.task.ID, b.member.ID)
	if len(list) != 2 {
		t.Fatalf("remaining = %d, want 2", len(list))
	}

	_, err = f.svc.AcceptPendingUpdate(f.ctx, b.project.ID, ids[1], b.admin.ID, "")
	wantStatus(t, err, http.StatusNotFound)
}

func TestAcceptOverridesProposedStatus(t *testing.T) {
	f := newFixture(t)
	b := newBoard(t, f)

	pu, _ := f.svc.RequestTaskUpdate(f.ctx, b.project.ID, b.task.ID, b.member.ID, models.RequestUpdateRequest{
		UpdateDescription: "done", NewStatus: models.TaskComplete,
	})
	_, err := f.svc.AcceptPendingUpdate(f.ctx, b.project.ID, pu.ID, b.member.ID, "")
	wantStatus(t, err, http.StatusForbidden)

	_, err = f.svc.AcceptPendingUpdate(f.ctx, b.project.ID, pu.ID, b.owner.ID, "finished")
	wantStatus(t, err, http.StatusBadRequest)

	task, err := f.svc.AcceptPendingUpdate(f.ctx, b.project.ID, pu.ID, b.owner.ID, models.TaskCanceled)
	if err != nil {
		t.Fatalf("AcceptPendingUpdate: %v", err)
	}
	if task.Status != models.TaskCanceled {
		t.Errorf("status = %q, want caller's canceled", task.Status)
	}
}

func TestRejectPendingUpdate(t *testing.T) {
	f := newFixture(t)
	b := newBoard(t, f)

	pu, _ := f.svc.RequestTaskUpdate(f.ctx, b.project.ID, b.task.ID, b.member.ID, models.RequestUpdateRequest{
		UpdateDescription: "done", NewStatus: models.TaskComplete,
	})
	wantStatus(t, f.svc.RejectPendingUpdate(f.ctx, b.project.ID, pu.ID, b.member.ID), http.StatusForbidden)

	if err := f.svc.RejectPendingUpdate(f.ctx, b.project.ID, pu.ID, b.admin.ID); err != nil {
		t.Fatalf("RejectPendingUpdate: %v", err)
	}
	stored, _ := f.db.GetTask(f.ctx, b.task.ID)
	if stored.Status != models.TaskActive {
		t.Errorf("reject changed status to %q", stored.Status)
	}
	wantStatus(t, f.svc.RejectPendingUpdate(f.ctx, b.project.ID, pu.ID, b.admin.ID), http.StatusNotFound)
}

func TestPendingUpdateProjectMismatch(t *testing.T) {
	f := newFixture(t)
	b := newBoard(t, f)
	other := f.project(b.owner, "Other")

	pu, _ := f.svc.RequestTaskUpdate(f.ctx, b.project.ID, b.task.ID, b.member.ID, models.RequestUpdateRequest{
		UpdateDescription: "done", NewStatus: models.TaskComplete,
	})
	_, err := f.svc.AcceptPendingUpdate(f.ctx, other.ID, pu.ID, b.owner.ID, models.TaskComplete)
	wantStatus(t, err, http.StatusNotFound)
	wantStatus(t, f.svc.RejectPendingUpdate(f.ctx, other.ID, pu.ID, b.owner.ID), http.StatusNotFound)

	if _, err := f.db.GetPendingUpdate(f.ctx, pu.ID); err != nil {
		t.Fatalf("proposal removed by mismatched call: %v", err)
	}
}

func TestTaskMutationsInvalidateCache(t *testing.T) {
	f := newFixture(t)
	b := newBoard(t, f)
	key := cache.PhasesKey(b.project.ID)

	steps := []struct {
		name string
		run  func() error
	}{
		{"update", func() error {
			_, err := f.svc.UpdateTask(f.ctx, b.project.ID, b.task.ID, b.owner.ID, models.UpdateTaskRequest{Status: statusPtr(models.TaskComplete)})
			return err
		}},
		{"request", func() error {
			_, err := f.svc.RequestTaskUpdate(f.ctx, b.project.ID, b.task.ID, b.member.ID, models.RequestUpdateRequest{UpdateDescription: "u", NewStatus: models.TaskActive})
			return err
		}},
		{"accept", func() error {
			list, _ := f.db.ListPendingUpdates(f.ctx, b.task.ID)
			_, err := f.svc.AcceptPendingUpdate(f.ctx, b.project.ID, list[0].ID, b.owner.ID, "")
			return err
		}},
		{"delete", func() error {
			return f.svc.DeleteTask(f.ctx, b.project.ID, b.task.ID, b.owner.ID)
		}},
	}
	for _, step := range steps {
		before := f.cache.deleted(key)
		if err := step.run(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if f.cache.deleted(key) != before+1 {
			t.Errorf("%s did not invalidate %s", step.name, key)
		}
	}
}

func TestListPhasesReadThrough(t *testing.T) {
	f := newFixture(t)
	b := newBoard(t, f)
	key := cache.PhasesKey(b.project.ID)

	pu, _ := f.svc.RequestTaskUpdate(f.ctx, b.project.ID, b.task.ID, b.member.ID, models.RequestUpdateRequest{
		UpdateDescription: "done", NewStatus: models.TaskComplete,
	})

	phases, err := f.svc.ListPhases(f.ctx, b.project.ID, b.member.ID)
	if err != nil {
		t.Fatalf("ListPhases: %v", err)
	}
	if len(phases) != 1 || len(phases[0].Tasks) != 1 {
		t.Fatalf("listing = %+v", phases)
	}
	view := phases[0].Tasks[0]
	if view.PendingCount != 1 || view.PendingUpdate == nil || view.PendingUpdate.ID != pu.ID {
		t.Errorf("task view = %+v", view)
	}
	if _, ok, _ := f.cache.Get(f.ctx, key); !ok {
		t.Fatal("listing not cached")
	}

	// a direct store write bypasses invalidation, so the cached copy is served
	stored, _ := f.db.GetTask(f.ctx, b.task.ID)
	stored.Title = "changed behind the cache"
	_ = f.db.UpdateTask(f.ctx, stored)
	cached, _ := f.svc.ListPhases(f.ctx, b.project.ID, b.member.ID)
	if cached[0].Tasks[0].Title != "Write docs" {
		t.Errorf("expected cached title, got %q", cached[0].Tasks[0].Title)
	}

	outsider := f.user("outsider")
	_, err = f.svc.ListPhases(f.ctx, b.project.ID, outsider.ID)
	wantStatus(t, err, http.StatusForbidden)
}

func TestCacheFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	b := newBoard(t, f)
	f.cache.failDel = true

	updated, err := f.svc.UpdateTask(f.ctx, b.project.ID, b.task.ID, b.owner.ID, models.UpdateTaskRequest{Status: statusPtr(models.TaskComplete)})
	if err != nil {
		t.Fatalf("UpdateTask with failing cache: %v", err)
	}
	if updated.Status != models.TaskComplete {
		t.Errorf("status = %q", updated.Status)
	}
}

func TestPhaseLifecycle(t *testing.T) {
	f := newFixture(t)
	b := newBoard(t, f)

	_, err := f.svc.CreatePhase(f.ctx, b.project.ID, b.member.ID, models.PhaseRequest{Name: "Nope"})
	wantStatus(t, err, http.StatusForbidden)

	renamed, err := f.svc.UpdatePhase(f.ctx, b.project.ID, b.phase.ID, b.admin.ID, models.PhaseRequest{Name: "Doing"})
	if err != nil || renamed.Name != "Doing" {
		t.Fatalf("UpdatePhase = %+v, %v", renamed, err)
	}

	if err := f.svc.DeletePhase(f.ctx, b.project.ID, b.phase.ID, b.admin.ID); err != nil {
		t.Fatalf("DeletePhase: %v", err)
	}
	if _, err := f.db.GetTask(f.ctx, b.task.ID); err == nil {
		t.Error("task survived phase deletion")
	}
	phases, _ := f.svc.ListPhases(f.ctx, b.project.ID, b.owner.ID)
	if len(phases) != 0 {
		t.Errorf("phases = %d", len(phases))
	}
}
