package utils

import "testing"

func TestValidateLinkURL(t *testing.T) {
	valid := []string{
		"https://docs.google.com/document/d/abc123",
		"http://design.example.org/file/9",
		"  https://docs.example/x  ",
	}
	for _, raw := range valid {
		if !ValidateLinkURL(raw) {
			t.Errorf("ValidateLinkURL(%q) = false, want true", raw)
		}
	}

	invalid := []string{
		"",
		"   ",
		"not a url",
		"ftp://files.example.org/doc",
		"javascript:alert(1)",
		"https://",
		"/relative/path",
	}
	for _, raw := range invalid {
		if ValidateLinkURL(raw) {
			t.Errorf("ValidateLinkURL(%q) = true, want false", raw)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	if !ValidateEmail("editor@example.org") {
		t.Error("rejected a valid email")
	}
	if ValidateEmail("not-an-email") {
		t.Error("accepted an invalid email")
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := SanitizeInput("  title\x00 "); got != "title" {
		t.Errorf("SanitizeInput = %q", got)
	}
}
