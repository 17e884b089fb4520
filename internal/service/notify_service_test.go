package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSummary() CompletionSummary {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return CompletionSummary{
		SessionID:   "session-1",
		DeckName:    "百人一首.xlsx",
		Total:       100,
		StartedAt:   start,
		CompletedAt: start.Add(42 * time.Minute),
	}
}

func TestNotifyServiceDisabled(t *testing.T) {
	s, err := NewNotifyService(context.Background(), "ap-northeast-1", "", "yomiage", "", nil)
	if err != nil {
		t.Fatalf("NewNotifyService() error = %v", err)
	}
	if s.IsEnabled() {
		t.Error("service should be disabled without addresses")
	}
	if err := s.SessionCompleted(context.Background(), testSummary()); err != nil {
		t.Errorf("SessionCompleted() on a disabled service error = %v", err)
	}
}

func TestNotifyServiceSends(t *testing.T) {
	ses := &fakeSES{}
	s := newNotifyService(ses, "reader@example.com", "yomiage", "me@example.com", testLogger())

	if err := s.SessionCompleted(context.Background(), testSummary()); err != nil {
		t.Fatalf("SessionCompleted() error = %v", err)
	}

	in := ses.input
	if in == nil {
		t.Fatal("SendEmail was not called")
	}
	if got := aws.ToString(in.FromEmailAddress); got != "yomiage <reader@example.com>" {
		t.Errorf("From = %q", got)
	}
	if len(in.Destination.ToAddresses) != 1 || in.Destination.ToAddresses[0] != "me@example.com" {
		t.Errorf("To = %v", in.Destination.ToAddresses)
	}
	subject := aws.ToString(in.Content.Simple.Subject.Data)
	if !strings.Contains(subject, "百人一首.xlsx") || !strings.Contains(subject, "100") {
		t.Errorf("Subject = %q", subject)
	}
	if text := aws.ToString(in.Content.Simple.Body.Text.Data); !strings.Contains(text, "42m0s") {
		t.Errorf("text body missing duration: %q", text)
	}
}

func TestNotifyServiceSendError(t *testing.T) {
	boom := errors.New("throttled")
	s := newNotifyService(&fakeSES{err: boom}, "reader@example.com", "", "me@example.com", testLogger())

	if err := s.SessionCompleted(context.Background(), testSummary()); !errors.Is(err, boom) {
		t.Errorf("SessionCompleted() error = %v, want wrapped throttled", err)
	}
}
