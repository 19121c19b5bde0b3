package notifier

import (
	"context"
	"errors"
	"log/slog"
	"net/smtp"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/starford/raido/internal/models"
)

var memoNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func sampleDirective() *models.Directive {
	end := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	return &models.Directive{
		ID:           "d-1",
		Ref:          "CG/JAN/1/2026",
		Source:       models.SourceCouncil,
		Subject:      "Water meter procurement",
		Particulars:  "Replace all prepaid meters across the municipality.",
		Owner:        "Water Services",
		PrimaryEmail: "ws@example.org",
		Reminders:    1,

		ImplementationEndDate: &end,
		Outcomes: []models.Outcome{
			{Text: "Tender issued", Status: models.OutcomeCompleted, CompletionDetails: "Closed in Feb"},
			{Text: "Contract awarded", Status: models.OutcomeDelayed, DelayReason: "Appeal lodged"},
		},
	}
}

func TestRenderMemo(t *testing.T) {
	body, err := RenderMemo(sampleDirective(), memoNow)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"COMPLIANCE WITH COUNCIL OF GOVERNORS DECISIONS",
		"To:   Water Services",
		"Ref:  CG/JAN/1/2026",
		"Date: 10 Mar 2026",
		"SUBJECT: Water meter procurement",
		"1. Tender issued",
		"Completed: Closed in Feb",
		"2. Contract awarded",
		"Delay reason: Appeal lodged",
		"to 30 Jun 2026",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("memo missing %q\n%s", want, body)
		}
	}
}

func TestRenderMemoBoardSource(t *testing.T) {
	d := sampleDirective()
	d.Source = models.SourceBoard
	body, err := RenderMemo(d, memoNow)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, "BOARD OF DIRECTORS") {
		t.Error("board memo should name the board")
	}
}

func TestRenderMemoNoTimelineOmitsSection(t *testing.T) {
	d := sampleDirective()
	d.ImplementationEndDate = nil
	body, err := RenderMemo(d, memoNow)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(body, "Implementation timeline") {
		t.Error("memo without dates should omit the timeline section")
	}
}

func TestSMTPSend(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	n := NewSMTP("mail.example.org", 587, "", "", "noreply@example.org", testLogger())
	n.now = func() time.Time { return memoNow }
	n.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	d := sampleDirective()
	d.SecondaryEmail = "backup@example.org"
	if err := n.Send(context.Background(), d); err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotAddr != "mail.example.org:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if gotFrom != "noreply@example.org" {
		t.Errorf("from = %q", gotFrom)
	}
	if len(gotTo) != 2 || gotTo[0] != "ws@example.org" || gotTo[1] != "backup@example.org" {
		t.Errorf("to = %v", gotTo)
	}
	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: Reminder 2/3: Status Update Required - CG/JAN/1/2026\r\n") {
		t.Errorf("subject line missing:\n%s", msg)
	}
	if !strings.Contains(msg, "Content-Type: text/plain") {
		t.Error("memo should be plain text")
	}
}

func TestSMTPSendNoPrimaryEmail(t *testing.T) {
	n := NewSMTP("mail.example.org", 587, "", "", "noreply@example.org", testLogger())
	n.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("sendMail should not be called")
		return nil
	}

	d := sampleDirective()
	d.PrimaryEmail = ""
	if err := n.Send(context.Background(), d); err == nil {
		t.Fatal("send without primary email should fail")
	}
}

func TestSMTPSendPropagatesServerError(t *testing.T) {
	n := NewSMTP("mail.example.org", 587, "", "", "noreply@example.org", testLogger())
	n.now = func() time.Time { return memoNow }
	n.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	if err := n.Send(context.Background(), sampleDirective()); err == nil {
		t.Fatal("server error should propagate")
	}
}

func TestSMTPSendContextTimeout(t *testing.T) {
	n := NewSMTP("mail.example.org", 587, "", "", "noreply@example.org", testLogger())
	n.now = func() time.Time { return memoNow }
	block := make(chan struct{})
	n.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		<-block
		return nil
	}
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := n.Send(ctx, sampleDirective())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestNoopSend(t *testing.T) {
	n := Noop{Logger: testLogger()}
	if err := n.Send(context.Background(), sampleDirective()); err != nil {
		t.Fatalf("noop send: %v", err)
	}
}
