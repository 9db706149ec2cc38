// Package mailer sends account mail: the verification link after
// registration and a welcome note once the address is confirmed.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
)

type Mailer interface {
	SendVerification(ctx context.Context, to, name, link string) error
	SendWelcome(ctx context.Context, to, name string) error
}

// Message is a rendered plain-text mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

var (
	verificationTmpl = template.Must(template.New("verify").Parse(
		`Hi {{if .Name}}{{.Name}}{{else}}there{{end}},

Please verify your FieldFusion account by opening the link below:

{{.Link}}

If you did not sign up, ignore this message.
`))

	welcomeTmpl = template.Must(template.New("welcome").Parse(
		`Hi {{.Name}},

Your email is verified and your FieldFusion account is ready.
You can now log in and run field analyses.
`))
)

func VerificationMessage(to, name, link string) (Message, error) {
	var buf bytes.Buffer
	if err := verificationTmpl.Execute(&buf, map[string]string{"Name": name, "Link": link}); err != nil {
		return Message{}, fmt.Errorf("render verification mail: %w", err)
	}
	return Message{To: to, Subject: "Verify your FieldFusion account", Body: buf.String()}, nil
}

func WelcomeMessage(to, name string) (Message, error) {
	var buf bytes.Buffer
	if err := welcomeTmpl.Execute(&buf, map[string]string{"Name": name}); err != nil {
		return Message{}, fmt.Errorf("render welcome mail: %w", err)
	}
	return Message{To: to, Subject: "Welcome to FieldFusion", Body: buf.String()}, nil
}
