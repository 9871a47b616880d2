package facematch

import (
	"errors"
	"testing"
)

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Honza", "Honza"},
		{"Jiří", "Jiri"},
		{"café", "cafe"},
		{"naïve", "naive"},
		{"Žluťoučký kůň", "Zlutoucky kun"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := RemoveDiacritics(tt.input)
			if result != tt.expected {
				t.Errorf("RemoveDiacritics(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSanitizeFolder(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"jan@example.com", "jan_example_com"},
		{"jiří.novák@example.cz", "jiri_novak_example_cz"},
		{"plain", "plain"},
		{"a b-c", "a_b_c"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := SanitizeFolder(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeFolder(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestScope_Keys(t *testing.T) {
	s := Scope{Owner: "jan@example.com", EventID: "wedding-2024"}

	if got := s.ImagesPrefix(); got != "events/jan@example.com/wedding-2024/images/" {
		t.Errorf("ImagesPrefix() = %q", got)
	}
	if got := s.SelfieKey("", "me.jpg"); got != "user/jan_example_com/selfies/me.jpg" {
		t.Errorf("SelfieKey() = %q", got)
	}
	if got := s.SelfieKey("admin", "me.jpg"); got != "admin/jan_example_com/selfies/me.jpg" {
		t.Errorf("SelfieKey(admin) = %q", got)
	}
}

func TestScope_Validate(t *testing.T) {
	tests := []struct {
		name    string
		scope   Scope
		wantErr bool
	}{
		{"valid", Scope{Owner: "jan@example.com", EventID: "e1"}, false},
		{"missing owner", Scope{EventID: "e1"}, true},
		{"missing event", Scope{Owner: "jan@example.com"}, true},
		{"blank event", Scope{Owner: "jan@example.com", EventID: "  "}, true},
		{"slash in event", Scope{Owner: "jan@example.com", EventID: "a/b"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scope.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("Validate() = %v, want ErrInvalidInput", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}
