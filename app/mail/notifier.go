package mail

import (
	"bytes"
	"context"
	"net/url"
	"text/template"

	"github.com/vibast-solutions/ms-go-signup/app/entity"
)

const (
	VerificationSubject = "Please verify your account"
	ConfirmationSubject = "Your account is ready"

	verifyPath = "/sign-up/verify"
)

var (
	verificationTemplate = template.Must(template.New("verification").Parse(
		`Hello {{.Username}},

Thanks for signing up. Please confirm your email address by opening the link below:

{{.Link}}

If you did not create an account you can ignore this message.
`))

	confirmationTemplate = template.Must(template.New("confirmation").Parse(
		`Hello {{.Username}},

Your account has been verified and is now active.
`))
)

type templateData struct {
	Username string
	Link     string
}

// Notifier renders and sends sign-up emails.
type Notifier struct {
	sender  Sender
	from    string
	baseURL string
}

func NewNotifier(sender Sender, from, baseURL string) *Notifier {
	return &Notifier{sender: sender, from: from, baseURL: baseURL}
}

func (n *Notifier) SendVerificationEmail(ctx context.Context, user *entity.User, encodedToken string) error {
	body, err := render(verificationTemplate, templateData{
		Username: user.Username,
		Link:     n.VerificationLink(encodedToken),
	})
	if err != nil {
		return err
	}

	return n.sender.Send(ctx, Message{
		From:    n.from,
		To:      user.Email,
		Subject: VerificationSubject,
		Body:    body,
	})
}

func (n *Notifier) SendConfirmationEmail(ctx context.Context, user *entity.User) error {
	body, err := render(confirmationTemplate, templateData{Username: user.Username})
	if err != nil {
		return err
	}

	return n.sender.Send(ctx, Message{
		From:    n.from,
		To:      user.Email,
		Subject: ConfirmationSubject,
		Body:    body,
	})
}

func (n *Notifier) VerificationLink(encodedToken string) string {
	return n.baseURL + verifyPath + "?" + url.Values{"token": {encodedToken}}.Encode()
}

func render(tmpl *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
