package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

var invitationTmpl = template.Must(template.New("invitation").Parse(
	`<p>{{.InviterName}} invited you to join <strong>{{.ProjectTitle}}</strong> as {{.Access}}.</p>` +
		`<p><a href="{{.Link}}">Open your invitations</a></p>` +
		`<p>If you don't have an account yet, sign up with this email address to see the invitation.</p>`))

var taskAssignedTmpl = template.Must(template.New("task").Parse(
	`<p>{{.AssignerName}} assigned you a task in <strong>{{.ProjectTitle}}</strong>:</p>` +
		`<p><strong>{{.TaskTitle}}</strong></p>` +
		`{{if .Description}}<p>{{.Description}}</p>{{end}}` +
		`<p><a href="{{.Link}}">Open the project</a></p>`))

// InvitationData fills the invitation email.
type InvitationData struct {
	InviterName  string
	ProjectTitle string
	Access       string
	Link         string
}

// TaskAssignedData fills the task-assigned email.
type TaskAssignedData struct {
	AssignerName string
	ProjectTitle string
	TaskTitle    string
	Description  string
	Link         string
}

// InvitationMessage renders the email sent when a user is invited to a project.
func InvitationMessage(to string, data InvitationData) (Message, error) {
	var buf bytes.Buffer
	if err := invitationTmpl.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render invitation email: %w", err)
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("You're invited to %s", data.ProjectTitle),
		HTML:    buf.String(),
	}, nil
}

// TaskAssignedMessage renders the email sent to a task's assignee.
func TaskAssignedMessage(to string, data TaskAssignedData) (Message, error) {
	var buf bytes.Buffer
	if err := taskAssignedTmpl.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render task email: %w", err)
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("New task: %s", data.TaskTitle),
		HTML:    buf.String(),
	}, nil
}
