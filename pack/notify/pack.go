// Package notify provides the outbound notification tools: send_email,
// send_sms and send_push.
package notify

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/felixgeelhaar/dbmcp/domain/notification"
	"github.com/felixgeelhaar/dbmcp/domain/pack"
	"github.com/felixgeelhaar/dbmcp/domain/tool"
)

// New creates the notify pack around sender.
func New(sender notification.Sender) (*pack.Pack, error) {
	if sender == nil {
		return nil, errors.New("sender is required")
	}

	return pack.NewBuilder("notify").
		WithDescription("Email, SMS and push notifications").
		AddTools(
			emailTool(sender),
			smsTool(sender),
			pushTool(sender),
		).
		Build(), nil
}

type emailInput struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	BodyExtra string `json:"body_extra,omitempty"`
	Name      string `json:"name,omitempty"`
}

func emailTool(sender notification.Sender) tool.Tool {
	return tool.NewBuilder("send_email").
		WithDescription("Send an email to a single recipient.").
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"to":         tool.String("Recipient email address"),
			"subject":    tool.String("Email subject"),
			"body":       tool.String("Main message"),
			"body_extra": tool.String("Optional second paragraph"),
			"name":       tool.String("Optional recipient name"),
		}, "to", "subject", "body")).
		OpenWorld().
		InCategory(tool.CategoryNotification).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			in, err := tool.DecodeInput[emailInput](input)
			if err != nil {
				return tool.Result{}, err
			}
			receipt, err := sender.SendEmail(ctx, notification.Email{
				To:        in.To,
				Subject:   in.Subject,
				Body:      in.Body,
				BodyExtra: in.BodyExtra,
				Name:      in.Name,
			})
			return reply(notification.ChannelEmail, receipt, err)
		}).
		MustBuild()
}

type smsInput struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

func smsTool(sender notification.Sender) tool.Tool {
	return tool.NewBuilder("send_sms").
		WithDescription("Send an SMS to a phone number.").
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"to":   tool.String("Recipient phone number"),
			"body": tool.String("Message text"),
		}, "to", "body")).
		OpenWorld().
		InCategory(tool.CategoryNotification).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			in, err := tool.DecodeInput[smsInput](input)
			if err != nil {
				return tool.Result{}, err
			}
			receipt, err := sender.SendSMS(ctx, notification.SMS{To: in.To, Body: in.Body})
			return reply(notification.ChannelSMS, receipt, err)
		}).
		MustBuild()
}

type pushInput struct {
	Message      string   `json:"message"`
	OneSignalIDs []string `json:"one_signal_ids"`
	ActionName   string   `json:"action_name"`
}

func pushTool(sender notification.Sender) tool.Tool {
	return tool.NewBuilder("send_push").
		WithDescription("Send a push notification to OneSignal subscribers.").
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"message":        tool.String("Notification text"),
			"one_signal_ids": tool.Array("OneSignal subscriber ids", tool.String("Subscriber id")),
			"action_name":    tool.String("Action the notification triggers"),
		}, "message", "one_signal_ids", "action_name")).
		OpenWorld().
		InCategory(tool.CategoryNotification).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			in, err := tool.DecodeInput[pushInput](input)
			if err != nil {
				return tool.Result{}, err
			}
			receipt, err := sender.SendPush(ctx, notification.Push{
				Message:      in.Message,
				OneSignalIDs: in.OneSignalIDs,
				ActionName:   in.ActionName,
			})
			return reply(notification.ChannelPush, receipt, err)
		}).
		MustBuild()
}

func reply(c notification.Channel, receipt notification.Receipt, err error) (tool.Result, error) {
	if err != nil {
		return tool.Result{}, err
	}
	return tool.TextResult(notification.SuccessMessage(c, receipt.Response)), nil
}
