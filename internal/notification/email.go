package notification

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/shaiso/autoanalysis/internal/config"
)

//go:embed templates/analysis_complete_email.html
var templatesFS embed.FS

var emailTemplate = template.Must(
	template.ParseFS(templatesFS, "templates/analysis_complete_email.html"),
)

// EmailRequest — тело запроса к email-сервису.
type EmailRequest struct {
	MessageID string       `json:"messageId"`
	From      string       `json:"from"`
	Email     EmailMessage `json:"email"`
}

// EmailMessage — само письмо.
type EmailMessage struct {
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	BodyType string   `json:"bodyType"`
	Body     string   `json:"body"`
}

// EmailDispatcher отправляет HTML-письмо о завершении анализа.
type EmailDispatcher struct {
	client *http.Client
	logger *slog.Logger
	newID  func() string
}

// NewEmailDispatcher создаёт EmailDispatcher.
// client используется и для получения токена, и для отправки письма.
func NewEmailDispatcher(client *http.Client, logger *slog.Logger) *EmailDispatcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailDispatcher{
		client: client,
		logger: logger,
		newID:  func() string { return uuid.New().String() },
	}
}

// Notify реализует Dispatcher.
func (d *EmailDispatcher) Notify(ctx context.Context, outputDir string, cfg *config.Config) error {
	var n *config.NotificationConfig
	if cfg != nil {
		n = cfg.Notification
	}
	if !n.Enabled() {
		return ErrNotConfigured
	}

	data, err := CollectEmailData(outputDir)
	if err != nil {
		return fmt.Errorf("collect email data: %w", err)
	}

	body, err := d.BuildRequest(data, n)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.EmailURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	if n.AuthURL != "" {
		token, err := d.token(ctx, n)
		if err != nil {
			return err
		}
		token.SetAuthHeader(req)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: status %d: %s", ErrDeliveryFailed, resp.StatusCode, bytes.TrimSpace(msg))
	}

	d.logger.Debug("notification email sent",
		"run_id", data.RunID,
		"message_id", body.MessageID,
		"recipients", len(body.Email.To),
	)
	return nil
}

// token получает access token по client credentials.
// client_id дублируется в теле формы: сервис авторизации требует его там
// вместе с basic auth.
func (d *EmailDispatcher) token(ctx context.Context, n *config.NotificationConfig) (*oauth2.Token, error) {
	cc := clientcredentials.Config{
		ClientID:       n.ClientID,
		ClientSecret:   n.ClientSecret,
		TokenURL:       n.AuthURL,
		AuthStyle:      oauth2.AuthStyleInHeader,
		EndpointParams: url.Values{"client_id": {n.ClientID}},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, d.client)
	token, err := cc.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	return token, nil
}

// BuildRequest формирует тело запроса к email-сервису.
func (d *EmailDispatcher) BuildRequest(data *EmailData, n *config.NotificationConfig) (*EmailRequest, error) {
	body, err := RenderEmailBody(data)
	if err != nil {
		return nil, err
	}

	to := n.RecipientEmailAddresses
	if to == nil {
		to = []string{}
	}

	return &EmailRequest{
		MessageID: d.newID(),
		From:      n.SenderEmail,
		Email: EmailMessage{
			To:       to,
			Subject:  Subject(n.Tag(), data.RunID),
			BodyType: "html",
			Body:     body,
		},
	}, nil
}

// Subject возвращает тему письма.
func Subject(tag, runID string) string {
	return fmt.Sprintf("[%s] Analysis Complete: %s", tag, runID)
}

// RenderEmailBody рендерит HTML-тело письма.
func RenderEmailBody(data *EmailData) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email body: %w", err)
	}
	return buf.String(), nil
}
