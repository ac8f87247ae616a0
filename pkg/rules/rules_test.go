package rules

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var signupRules = []FieldRule{
	{Field: "user_id", Required: true, MinLength: 3, MaxLength: 50},
	{Field: "email", Required: true, Email: true},
	{Field: "password", Required: true, MinLength: 8},
	{Field: "confirm_password", Required: true, Matches: "password"},
}

func messages(rules []FieldRule, values Values) []string {
	var out []string
	for _, v := range Validate(rules, values) {
		out = append(out, v.Message)
	}
	return out
}

func TestValidate_ShortPasswordAndMismatch(t *testing.T) {
	values := Map{
		"user_id":          "ada",
		"email":            "ada@example.com",
		"password":         "abc",
		"confirm_password": "abd",
	}

	got := Validate(signupRules, values)
	want := []string{
		"password must be at least 8 characters.",
		MatchMessage,
	}
	if diff := cmp.Diff(want, messages(signupRules, values)); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if got[0].Field != "password" || got[1].Field != "confirm_password" {
		t.Fatalf("violations attached to wrong fields: %#v", got)
	}
}

func TestValidate_EmptyValuesOnlyFailRequired(t *testing.T) {
	rules := []FieldRule{
		{Field: "required", Required: true, MinLength: 3, Email: true, Pattern: `^\d+$`},
		{Field: "optional", MinLength: 3, Email: true, Matches: "other"},
	}
	got := messages(rules, Map{"other": "x"})
	if diff := cmp.Diff([]string{"required is required."}, got); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_ReportsEveryFailingRuleInOrder(t *testing.T) {
	rules := []FieldRule{
		{Field: "code", MaxLength: 3, Email: true, Pattern: `^\d+$`, Matches: "other"},
	}
	got := messages(rules, Map{"code": "abcd", "other": "x"})
	want := []string{
		"code must be at most 3 characters.",
		"code must be a valid email address.",
		"code has an invalid format.",
		MatchMessage,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_PatternIsUnanchored(t *testing.T) {
	rules := []FieldRule{{Field: "slug", Pattern: `[a-z]+`}}
	if got := Validate(rules, Map{"slug": "ABC-def-123"}); !got.Valid() {
		t.Fatalf("expected partial match to pass, got %v", got.Lines())
	}
	if got := Validate(rules, Map{"slug": "123"}); got.Valid() {
		t.Fatalf("expected no match to fail")
	}
}

func TestValidate_LengthCountsRunes(t *testing.T) {
	rules := []FieldRule{{Field: "name", MinLength: 3, MaxLength: 3}}
	if got := Validate(rules, Map{"name": "héé"}); !got.Valid() {
		t.Fatalf("expected three runes to pass, got %v", got.Lines())
	}
}

func TestValidate_Email(t *testing.T) {
	rules := []FieldRule{{Field: "email", Email: true}}
	cases := map[string]bool{
		"ada@example.com":  true,
		"a@b.c":            true,
		"ada@example":      false,
		"ada example@x.io": false,
		"@example.com":     false,
	}
	for value, ok := range cases {
		if got := Validate(rules, Map{"email": value}).Valid(); got != ok {
			t.Errorf("email %q valid=%v, want %v", value, got, ok)
		}
	}
}

func TestValidate_IdempotentAndNoStateKept(t *testing.T) {
	values := Map{"user_id": "a", "password": "short"}
	first := Validate(signupRules, values)
	second := Validate(signupRules, values)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated runs differ (-first +second):\n%s", diff)
	}

	fixed := Map{
		"user_id":          "ada",
		"email":            "ada@example.com",
		"password":         "long enough",
		"confirm_password": "long enough",
	}
	if got := Validate(signupRules, fixed); !got.Valid() {
		t.Fatalf("corrected values still fail: %v", got.Lines())
	}
}

func TestCompile_RejectsBadPattern(t *testing.T) {
	err := Compile([]FieldRule{{Field: "code", Pattern: "("}})
	if err == nil || !strings.Contains(err.Error(), `field "code"`) {
		t.Fatalf("expected invalid pattern error, got %v", err)
	}
	if err := Compile(signupRules); err != nil {
		t.Fatalf("Compile: %v", err)
	}
}
