package notification_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/dbmcp/domain/notification"
)

func newValidator(t *testing.T, pattern string) *notification.Validator {
	t.Helper()
	v, err := notification.NewValidator(pattern)
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}
	return v
}

func TestValidator_Email(t *testing.T) {
	t.Parallel()

	v := newValidator(t, "")
	tests := []struct {
		name    string
		msg     notification.Email
		wantErr string
	}{
		{name: "valid", msg: notification.Email{To: "ada@example.com", Subject: "Hi", Body: "Hello"}},
		{name: "bad address", msg: notification.Email{To: "not-an-email", Subject: "Hi", Body: "Hello"}, wantErr: "email must be a valid email address"},
		{name: "missing subject", msg: notification.Email{To: "ada@example.com", Body: "Hello"}, wantErr: "subject is required"},
		{name: "blank body after trim", msg: notification.Email{To: "ada@example.com", Subject: "Hi", Body: "   "}.Trim(), wantErr: "message1 is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := v.Validate(tt.msg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, notification.ErrInvalidPayload) {
				t.Fatalf("Validate() error = %v, want ErrInvalidPayload", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidator_SMS(t *testing.T) {
	t.Parallel()

	v := newValidator(t, "")
	valid := []string{"+2348031234567", "08031234567", "09121234567", "07011234567"}
	for _, phone := range valid {
		if err := v.Validate(notification.SMS{Body: "hi", To: phone}); err != nil {
			t.Errorf("Validate(%s) error = %v", phone, err)
		}
	}

	invalid := []string{"", "12345", "+14155550100", "08231234567", "0803123456", "080312345678"}
	for _, phone := range invalid {
		err := v.Validate(notification.SMS{Body: "hi", To: phone})
		if !errors.Is(err, notification.ErrInvalidPayload) {
			t.Errorf("Validate(%q) error = %v, want ErrInvalidPayload", phone, err)
		}
	}

	if err := v.Validate(notification.SMS{To: "08031234567"}); err == nil || !strings.Contains(err.Error(), "message is required") {
		t.Errorf("missing body error = %v", err)
	}
}

func TestValidator_CustomPhonePattern(t *testing.T) {
	t.Parallel()

	v := newValidator(t, `^\+1\d{10}$`)
	if err := v.Validate(notification.SMS{Body: "hi", To: "+14155550100"}); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := v.Validate(notification.SMS{Body: "hi", To: "08031234567"}); err == nil {
		t.Error("Nigerian number should fail a US pattern")
	}

	if _, err := notification.NewValidator("("); err == nil {
		t.Error("NewValidator should reject an invalid pattern")
	}
}

func TestValidator_Push(t *testing.T) {
	t.Parallel()

	v := newValidator(t, "")
	if err := v.Validate(notification.Push{Message: "m", OneSignalIDs: []string{"a"}, ActionName: "open"}); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	err := v.Validate(notification.Push{Message: "m", ActionName: "open"})
	if !errors.Is(err, notification.ErrInvalidPayload) {
		t.Errorf("empty ids error = %v", err)
	}

	err = v.Validate(notification.Push{Message: "m", OneSignalIDs: []string{" "}, ActionName: "open"}.Trim())
	if !errors.Is(err, notification.ErrInvalidPayload) {
		t.Errorf("blank id error = %v", err)
	}

	err = v.Validate(notification.Push{OneSignalIDs: []string{"a"}})
	if err == nil || !strings.Contains(err.Error(), "message is required") || !strings.Contains(err.Error(), "actionName is required") {
		t.Errorf("missing fields error = %v", err)
	}
}

func TestActivityMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		channel notification.Channel
		success string
		failure string
	}{
		{notification.ChannelEmail, "Email sent successfully. Response: ok", "Failed to send email. Error: boom"},
		{notification.ChannelSMS, "SMS sent successfully. Response: ok", "Failed to send SMS. Error: boom"},
		{notification.ChannelPush, "Push notification sent successfully. Response: ok", "Failed to send push notification. Error: boom"},
	}

	for _, tt := range tests {
		if got := notification.SuccessMessage(tt.channel, "ok"); got != tt.success {
			t.Errorf("SuccessMessage(%s) = %q, want %q", tt.channel, got, tt.success)
		}
		if got := notification.FailureMessage(tt.channel, errors.New("boom")); got != tt.failure {
			t.Errorf("FailureMessage(%s) = %q, want %q", tt.channel, got, tt.failure)
		}
	}
}
