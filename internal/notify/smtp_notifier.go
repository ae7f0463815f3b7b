package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"

	"github.com/fpachisa/marathon-training-app/internal/model"
)

// SendMailFunc はメール送信関数のシグネチャ。テストでの差し替え用。
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier はSMTP経由でメール通知を送信する実装。
// 送信失敗はログに記録するのみで、エラーを呼び出し元に伝播しない。
type SMTPNotifier struct {
	host     string
	port     string
	username string
	password string
	from     string
	adminTo  string
	sendMail SendMailFunc
}

// NewSMTPNotifier はSMTPNotifierを生成する。
func NewSMTPNotifier(host, port, username, password, from, adminTo string) *SMTPNotifier {
	return &SMTPNotifier{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		adminTo:  adminTo,
		sendMail: smtp.SendMail,
	}
}

// SubmissionCreated は新規提出を管理者に通知する。
func (n *SMTPNotifier) SubmissionCreated(ctx context.Context, user *model.User, task *model.TaskTemplate, submission *model.Submission) {
	if n.adminTo == "" {
		return
	}
	subject := fmt.Sprintf("New submission: Task %d - %s", task.Number, task.Title)
	body := fmt.Sprintf(
		"%s (%s) submitted evidence for task %d (%s).\n\nEvidence: %s\n",
		user.DisplayName, user.Email, task.Number, task.Title, evidenceURL(submission),
	)
	n.send(ctx, []string{n.adminTo}, subject, body)
}

// SubmissionReviewed はレビュー結果を提出者に通知する。
func (n *SMTPNotifier) SubmissionReviewed(ctx context.Context, user *model.User, task *model.TaskTemplate, submission *model.Submission) {
	if user.Email == "" {
		return
	}
	subject := fmt.Sprintf("Your submission was %s: Task %d - %s", submission.Status, task.Number, task.Title)
	var b strings.Builder
	fmt.Fprintf(&b, "Your submission for task %d (%s) has been %s.\n", task.Number, task.Title, submission.Status)
	if submission.Feedback != nil && *submission.Feedback != "" {
		fmt.Fprintf(&b, "\nFeedback: %s\n", *submission.Feedback)
	}
	n.send(ctx, []string{user.Email}, subject, b.String())
}

// send はメールを組み立てて送信する。失敗はログに記録するのみ。
func (n *SMTPNotifier) send(ctx context.Context, to []string, subject, body string) {
	addr := net.JoinHostPort(n.host, n.port)
	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		n.from, strings.Join(to, ", "), subject, body,
	)

	if err := n.sendMail(addr, auth, n.from, to, []byte(msg)); err != nil {
		slog.Warn("failed to send notification mail",
			slog.String("to", strings.Join(to, ", ")),
			slog.String("subject", subject),
			slog.String("error", err.Error()),
		)
		return
	}

	slog.Info("notification mail sent",
		slog.String("to", strings.Join(to, ", ")),
		slog.String("subject", subject),
	)
}

func evidenceURL(submission *model.Submission) string {
	if submission.EvidenceURL != "" {
		return submission.EvidenceURL
	}
	return "(none)"
}

// compile-time interface check
var _ Notifier = (*SMTPNotifier)(nil)
