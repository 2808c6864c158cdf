package allotments

import (
	"strings"
	"testing"
)

func TestRenderLetterEscapesHTML(t *testing.T) {
	letter, err := RenderLetter(LetterData{
		ApplicantName: "<b>Asha</b>",
		ApplicationNo: "APP-000001",
		PostCode:      "POST-001",
		PostTitle:     "Junior Engineer",
	})
	if err != nil {
		t.Fatalf("RenderLetter returned error: %v", err)
	}
	if strings.Contains(letter.HTMLBody, "<b>Asha</b>") {
		t.Fatalf("html body must escape applicant name: %s", letter.HTMLBody)
	}
	if !strings.Contains(letter.HTMLBody, "&lt;b&gt;Asha&lt;/b&gt;") {
		t.Fatalf("escaped name missing from html body: %s", letter.HTMLBody)
	}
	if !strings.Contains(letter.TextBody, "<b>Asha</b>") {
		t.Fatalf("text body should keep the raw name: %s", letter.TextBody)
	}
	if letter.Subject != "Allotment letter for Junior Engineer (POST-001)" {
		t.Fatalf("unexpected subject %q", letter.Subject)
	}
}

func TestRenderLetterDefaultsName(t *testing.T) {
	letter, err := RenderLetter(LetterData{ApplicationNo: "APP-1"})
	if err != nil {
		t.Fatalf("RenderLetter returned error: %v", err)
	}
	if !strings.HasPrefix(letter.TextBody, "Dear Candidate,") {
		t.Fatalf("expected default salutation, got %q", letter.TextBody)
	}
}

func TestAttachmentNameKeepsExtension(t *testing.T) {
	if got := attachmentName("POST-001", "APP-7", "letters/a.PDF"); got != "allotment_POST-001_APP-7.PDF" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := attachmentName("POST-001", "APP-7", "letters/a"); got != "allotment_POST-001_APP-7.pdf" {
		t.Fatalf("unexpected name %q", got)
	}
}
