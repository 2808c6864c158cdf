package allotments

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"path/filepath"
	"strings"
	texttemplate "text/template"
)

// LetterData feeds the allotment e-mail templates.
type LetterData struct {
	ApplicantName string
	ApplicationNo string
	PostCode      string
	PostTitle     string
}

// Letter is a rendered allotment e-mail.
type Letter struct {
	Subject  string
	HTMLBody string
	TextBody string
}

const letterHTML = `<p>Dear {{.ApplicantName}},</p>
<p>We are pleased to inform you that you have been selected for the post of
<strong>{{.PostTitle}}</strong> ({{.PostCode}}) against application
<strong>{{.ApplicationNo}}</strong>.</p>
<p>Your allotment letter is attached to this e-mail. Please read it carefully
and follow the joining instructions it contains.</p>
<p>Regards,<br>Recruitment Cell</p>
`

const letterText = `Dear {{.ApplicantName}},

We are pleased to inform you that you have been selected for the post of
{{.PostTitle}} ({{.PostCode}}) against application {{.ApplicationNo}}.

Your allotment letter is attached to this e-mail. Please read it carefully
and follow the joining instructions it contains.

Regards,
Recruitment Cell
`

var (
	letterHTMLTemplate = htmltemplate.Must(htmltemplate.New("allotment_html").Parse(letterHTML))
	letterTextTemplate = texttemplate.Must(texttemplate.New("allotment_text").Parse(letterText))
)

// RenderLetter builds the subject and both bodies for one recipient.
func RenderLetter(data LetterData) (Letter, error) {
	if strings.TrimSpace(data.ApplicantName) == "" {
		data.ApplicantName = "Candidate"
	}
	var html, text bytes.Buffer
	if err := letterHTMLTemplate.Execute(&html, data); err != nil {
		return Letter{}, fmt.Errorf("render html letter: %w", err)
	}
	if err := letterTextTemplate.Execute(&text, data); err != nil {
		return Letter{}, fmt.Errorf("render text letter: %w", err)
	}
	return Letter{
		Subject:  fmt.Sprintf("Allotment letter for %s (%s)", data.PostTitle, data.PostCode),
		HTMLBody: html.String(),
		TextBody: text.String(),
	}, nil
}

// attachmentName is the filename shown to the recipient.
func attachmentName(postCode, applicationNo, storedPath string) string {
	ext := filepath.Ext(storedPath)
	if ext == "" {
		ext = ".pdf"
	}
	return fmt.Sprintf("allotment_%s_%s%s", postCode, applicationNo, ext)
}
