package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/fpachisa/marathon-training-app/internal/model"
)

func testUser() *model.User {
	return &model.User{ID: "user-1", Email: "runner@example.com", DisplayName: "Test Runner"}
}

func testTask() *model.TaskTemplate {
	return &model.TaskTemplate{ID: "task-1", Number: 3, Title: "Long Run", Description: "Complete a 10K long run"}
}

func testSubmission(status model.SubmissionStatus) *model.Submission {
	now := time.Now()
	return &model.Submission{
		ID: "sub-1", TaskID: "task-1", UserID: "user-1",
		Completed: true, EvidenceURL: "/uploads/123-run.png", CompletedAt: &now,
		Status: status,
	}
}

func TestSubmissionCreated_SendsToAdmin(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg string

	n := NewSMTPNotifier("smtp.example.com", "587", "mailer", "secret", "noreply@example.com", "coach@example.com")
	n.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	n.SubmissionCreated(context.Background(), testUser(), testTask(), testSubmission(model.StatusPending))

	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %q, want smtp.example.com:587", gotAddr)
	}
	if gotFrom != "noreply@example.com" {
		t.Errorf("from = %q", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "coach@example.com" {
		t.Errorf("to = %v, want [coach@example.com]", gotTo)
	}
	if !strings.Contains(gotMsg, "Task 3") || !strings.Contains(gotMsg, "Long Run") {
		t.Errorf("message should mention the task: %q", gotMsg)
	}
	if !strings.Contains(gotMsg, "/uploads/123-run.png") {
		t.Errorf("message should include the evidence URL: %q", gotMsg)
	}
}

func TestSubmissionCreated_NoAdminAddress_Skips(t *testing.T) {
	called := false
	n := NewSMTPNotifier("smtp.example.com", "587", "", "", "noreply@example.com", "")
	n.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		called = true
		return nil
	}

	n.SubmissionCreated(context.Background(), testUser(), testTask(), testSubmission(model.StatusPending))

	if called {
		t.Error("no mail should be sent without an admin address")
	}
}

func TestSubmissionReviewed_SendsToSubmitterWithFeedback(t *testing.T) {
	var gotTo []string
	var gotMsg string

	n := NewSMTPNotifier("smtp.example.com", "587", "", "", "noreply@example.com", "coach@example.com")
	n.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotTo, gotMsg = to, string(msg)
		return nil
	}

	sub := testSubmission(model.StatusRejected)
	feedback := "Pace too slow, retry next week"
	sub.Feedback = &feedback

	n.SubmissionReviewed(context.Background(), testUser(), testTask(), sub)

	if len(gotTo) != 1 || gotTo[0] != "runner@example.com" {
		t.Errorf("to = %v, want the submitter address", gotTo)
	}
	if !strings.Contains(gotMsg, "rejected") {
		t.Errorf("message should mention the review status: %q", gotMsg)
	}
	if !strings.Contains(gotMsg, feedback) {
		t.Errorf("message should include the feedback: %q", gotMsg)
	}
}

func TestSend_FailureIsSwallowed(t *testing.T) {
	n := NewSMTPNotifier("smtp.example.com", "587", "", "", "noreply@example.com", "coach@example.com")
	n.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return errors.New("connection refused")
	}

	// 送信失敗してもpanicやエラー伝播は起こらないこと
	n.SubmissionCreated(context.Background(), testUser(), testTask(), testSubmission(model.StatusPending))
	n.SubmissionReviewed(context.Background(), testUser(), testTask(), testSubmission(model.StatusApproved))
}
