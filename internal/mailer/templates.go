package mailer

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"

	"go-user-auth/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	verificationText = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/verification.txt.tmpl"))
	verificationHTML = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/verification.html.tmpl"))
)

const verificationSubject = "Verify your email address"

type VerificationData struct {
	AppURL    string
	Token     string
	Name      string
	Username  string
	ExpiresIn time.Duration
}

type verificationView struct {
	Name      string
	Username  string
	Link      string
	ExpiresIn string
}

// VerificationLink builds {appURL}/verify-email?token=...
func VerificationLink(appURL string, token string) string {
	return strings.TrimRight(appURL, "/") + "/verify-email?token=" + url.QueryEscape(token)
}

// BuildVerificationEmail renders the text and HTML bodies of the
// verification message addressed to "to".
func BuildVerificationEmail(to string, data VerificationData) (model.Email, error) {
	view := verificationView{
		Name:      data.Name,
		Username:  data.Username,
		Link:      VerificationLink(data.AppURL, data.Token),
		ExpiresIn: data.ExpiresIn.String(),
	}

	var text, html bytes.Buffer
	if err := verificationText.Execute(&text, view); err != nil {
		return model.Email{}, err
	}
	if err := verificationHTML.Execute(&html, view); err != nil {
		return model.Email{}, err
	}

	return model.Email{
		To:       to,
		Subject:  verificationSubject,
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}
