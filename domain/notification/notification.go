// Package notification provides the outbound email, SMS and push payloads
// and the Sender contract that delivers them.
package notification

import (
	"context"
	"fmt"
	"strings"
)

// Channel names a delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// noun is the channel as it reads in an activity message.
func (c Channel) noun() string {
	switch c {
	case ChannelEmail:
		return "email"
	case ChannelSMS:
		return "SMS"
	case ChannelPush:
		return "push notification"
	default:
		return string(c)
	}
}

// SuccessMessage is the activity line for a delivered notification.
func SuccessMessage(c Channel, response string) string {
	noun := c.noun()
	if noun != "" && noun != "SMS" {
		noun = strings.ToUpper(noun[:1]) + noun[1:]
	}
	return fmt.Sprintf("%s sent successfully. Response: %s", noun, response)
}

// FailureMessage is the activity line for a failed delivery.
func FailureMessage(c Channel, err error) string {
	return fmt.Sprintf("Failed to send %s. Error: %v", c.noun(), err)
}

// Email is a message for one recipient. The JSON names are the gateway's
// wire format.
type Email struct {
	To        string `json:"email" validate:"required,email"`
	Subject   string `json:"subject" validate:"required"`
	Body      string `json:"message1" validate:"required"`
	BodyExtra string `json:"message2,omitempty"`
	Name      string `json:"name,omitempty"`
}

// Trim returns a copy with surrounding whitespace removed from every field.
func (e Email) Trim() Email {
	e.To = strings.TrimSpace(e.To)
	e.Subject = strings.TrimSpace(e.Subject)
	e.Body = strings.TrimSpace(e.Body)
	e.BodyExtra = strings.TrimSpace(e.BodyExtra)
	e.Name = strings.TrimSpace(e.Name)
	return e
}

// SMS is a text message for one phone number.
type SMS struct {
	Body string `json:"message" validate:"required"`
	To   string `json:"phoneNumber" validate:"required,phone"`
}

// Trim returns a copy with surrounding whitespace removed from every field.
func (s SMS) Trim() SMS {
	s.Body = strings.TrimSpace(s.Body)
	s.To = strings.TrimSpace(s.To)
	return s
}

// Push is a push notification for one or more OneSignal subscribers.
type Push struct {
	Message      string   `json:"message" validate:"required"`
	OneSignalIDs []string `json:"oneSignalIds" validate:"required,min=1,dive,required"`
	ActionName   string   `json:"actionName" validate:"required"`
}

// Trim returns a copy with surrounding whitespace removed from every field.
func (p Push) Trim() Push {
	p.Message = strings.TrimSpace(p.Message)
	p.ActionName = strings.TrimSpace(p.ActionName)
	ids := make([]string, len(p.OneSignalIDs))
	for i, id := range p.OneSignalIDs {
		ids[i] = strings.TrimSpace(id)
	}
	p.OneSignalIDs = ids
	return p
}

// Receipt is the gateway's answer to a delivered notification.
type Receipt struct {
	Channel  Channel `json:"channel"`
	Status   int     `json:"status"`
	Response string  `json:"response,omitempty"`
}

// Sender delivers notifications. Implementations validate payloads before
// any network call and never retry.
type Sender interface {
	SendEmail(ctx context.Context, msg Email) (Receipt, error)
	SendSMS(ctx context.Context, msg SMS) (Receipt, error)
	SendPush(ctx context.Context, msg Push) (Receipt, error)
}
