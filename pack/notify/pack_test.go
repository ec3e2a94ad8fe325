package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/felixgeelhaar/dbmcp/domain/notification"
	"github.com/felixgeelhaar/dbmcp/domain/tool"
)

type fakeSender struct {
	emails []notification.Email
	sms    []notification.SMS
	pushes []notification.Push
	err    error
}

func (s *fakeSender) SendEmail(_ context.Context, msg notification.Email) (notification.Receipt, error) {
	s.emails = append(s.emails, msg)
	return notification.Receipt{Channel: notification.ChannelEmail, Status: 200, Response: `{"ok":true}`}, s.err
}

func (s *fakeSender) SendSMS(_ context.Context, msg notification.SMS) (notification.Receipt, error) {
	s.sms = append(s.sms, msg)
	return notification.Receipt{Channel: notification.ChannelSMS, Status: 200, Response: "queued"}, s.err
}

func (s *fakeSender) SendPush(_ context.Context, msg notification.Push) (notification.Receipt, error) {
	s.pushes = append(s.pushes, msg)
	return notification.Receipt{Channel: notification.ChannelPush, Status: 200, Response: "delivered"}, s.err
}

func mustTool(t *testing.T, sender notification.Sender, name string) tool.Tool {
	t.Helper()
	p, err := New(sender)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	tl, ok := p.GetTool(name)
	if !ok {
		t.Fatalf("tool %s not in pack", name)
	}
	return tl
}

func TestNew(t *testing.T) {
	t.Parallel()

	if _, err := New(nil); err == nil {
		t.Error("expected error without sender")
	}

	p, err := New(&fakeSender{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.Name != "notify" {
		t.Errorf("Name = %s", p.Name)
	}
	for _, tl := range p.Tools {
		a := tl.Annotations()
		if a.ReadOnly || !a.OpenWorld || a.Category != tool.CategoryNotification {
			t.Errorf("%s annotations = %+v", tl.Name(), a)
		}
	}
}

func TestSendEmail(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	res, err := mustTool(t, sender, "send_email").Execute(context.Background(), json.RawMessage(`{
		"to": "ada@example.com", "subject": "Report", "body": "Numbers attached", "body_extra": "Thanks", "name": "Ada"
	}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got, want := res.OutputString(), `Email sent successfully. Response: {"ok":true}`; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}

	want := notification.Email{To: "ada@example.com", Subject: "Report", Body: "Numbers attached", BodyExtra: "Thanks", Name: "Ada"}
	if len(sender.emails) != 1 || sender.emails[0] != want {
		t.Errorf("emails = %+v", sender.emails)
	}
}

func TestSendSMS(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	res, err := mustTool(t, sender, "send_sms").Execute(context.Background(), json.RawMessage(`{"to": "08031234567", "body": "hi"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := res.OutputString(); got != "SMS sent successfully. Response: queued" {
		t.Errorf("output = %q", got)
	}
	if len(sender.sms) != 1 || sender.sms[0].To != "08031234567" {
		t.Errorf("sms = %+v", sender.sms)
	}
}

func TestSendPush(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	res, err := mustTool(t, sender, "send_push").Execute(context.Background(), json.RawMessage(`{
		"message": "Order shipped", "one_signal_ids": ["a", "b"], "action_name": "open_order"
	}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := res.OutputString(); got != "Push notification sent successfully. Response: delivered" {
		t.Errorf("output = %q", got)
	}
	if len(sender.pushes) != 1 || len(sender.pushes[0].OneSignalIDs) != 2 {
		t.Errorf("pushes = %+v", sender.pushes)
	}
}

func TestSend_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tool    string
		input   string
		err     error
		wantErr error
	}{
		{name: "unknown field", tool: "send_email", input: `{"recipient": "x"}`, wantErr: tool.ErrInvalidInput},
		{name: "ids not a list", tool: "send_push", input: `{"one_signal_ids": "a"}`, wantErr: tool.ErrInvalidInput},
		{name: "sender rejects payload", tool: "send_sms", input: `{"to": "123", "body": "x"}`, err: notification.ErrInvalidPayload, wantErr: notification.ErrInvalidPayload},
		{name: "gateway down", tool: "send_email", input: `{"to": "a@b.co", "subject": "s", "body": "b"}`, err: notification.ErrGatewayUnavailable, wantErr: notification.ErrGatewayUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sender := &fakeSender{err: tt.err}
			_, err := mustTool(t, sender, tt.tool).Execute(context.Background(), json.RawMessage(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Execute() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
