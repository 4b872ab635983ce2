package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/davidebenetti/artpay-checkout/pkg/config"
	pkgerrors "github.com/davidebenetti/artpay-checkout/pkg/errors"
)

// Sender dispatches a transactional template email. Fire-and-confirm: the
// call resolves once the mail service has accepted the message.
type Sender interface {
	Send(ctx context.Context, toEmail, toName string, params map[string]string) error
}

// Client talks to the template-mail HTTP API.
type Client struct {
	http       *resty.Client
	serviceID  string
	templateID string
	publicKey  string
}

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

// NewClient builds a mail client from configuration.
func NewClient(cfg config.MailConfig) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("mail base url is required")
	}

	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout)

	return &Client{
		http:       http,
		serviceID:  cfg.ServiceID,
		templateID: cfg.TemplateID,
		publicKey:  cfg.PublicKey,
	}, nil
}

// Send posts the template payload. Recipient fields travel inside the
// template params so one template serves every notification.
func (c *Client) Send(ctx context.Context, toEmail, toName string, params map[string]string) error {
	if strings.TrimSpace(toEmail) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient email is required")
	}

	merged := make(map[string]string, len(params)+2)
	for k, v := range params {
		merged[k] = v
	}
	merged["to_email"] = toEmail
	merged["to_name"] = toName

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sendRequest{
			ServiceID:      c.serviceID,
			TemplateID:     c.templateID,
			UserID:         c.publicKey,
			TemplateParams: merged,
		}).
		Post("/api/v1.0/email/send")
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, &pkgerrors.RemoteError{
			Service:  "mail",
			Endpoint: "/api/v1.0/email/send",
			Err:      err,
		}, "send notification email")
	}
	if resp.IsError() {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, &pkgerrors.RemoteError{
			Service:    "mail",
			Endpoint:   "/api/v1.0/email/send",
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
		}, "send notification email")
	}
	return nil
}
