package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formgate/pkg/render"
	"github.com/goliatone/go-formgate/pkg/validation"
)

func TestMapErrorPayload_PointerAndDottedPaths(t *testing.T) {
	fields := []string{"title", "body", "author", "tag", "permalink"}

	payload := map[string][]string{
		"/title":                     {"Title is taken"},
		"data.permalink":             {"Permalink in use"},
		"$.body":                     {"Body is empty"},
		"request/payload/author":     {"Unknown author"},
		"non_field_errors":           {"Form level error"},
		"request/body/unknown-field": {"Should fall back to form errors"},
		"":                           {"Unscoped form error"},
	}

	mapped := render.MapErrorPayload(fields, payload)

	wantFields := map[string][]string{
		"title":     {"Title is taken"},
		"permalink": {"Permalink in use"},
		"body":      {"Body is empty"},
		"author":    {"Unknown author"},
	}
	if diff := cmp.Diff(wantFields, mapped.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}

	wantForm := []string{"Form level error", "Should fall back to form errors", "Unscoped form error"}
	if diff := cmp.Diff(wantForm, mapped.Form, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestMapViolations(t *testing.T) {
	violations := validation.Violations{
		{Path: "/email", Field: "email", Message: "string doesn't match the format \"email\""},
		{Path: "password", Field: "password", Message: "password must be at least 8 characters."},
		{Path: "password", Field: "password", Message: "password is weak."},
		{Message: "value must be an object"},
	}

	mapped := render.MapViolations(violations)
	want := render.ErrorMapping{
		Fields: map[string][]string{
			"email":    {"string doesn't match the format \"email\""},
			"password": {"password must be at least 8 characters.", "password is weak."},
		},
		Form: []string{"value must be an object"},
	}
	if diff := cmp.Diff(want, mapped); diff != "" {
		t.Fatalf("mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestServerErrorText_FormMessage(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		want        string
	}{
		{name: "plain", body: "duplicate tag name\n", contentType: "text/plain", want: "duplicate tag name"},
		{name: "json verbatim", body: `{"error":"bad"}`, contentType: "application/json", want: `{"error":"bad"}`},
		{
			name:        "html stripped",
			body:        "<html><body><h1>500</h1>\n<p>Server &amp; database down</p><script>alert(1)</script></body></html>",
			contentType: "text/html; charset=utf-8",
			want:        "500 Server & database down",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render.ServerErrorText([]byte(tt.body), tt.contentType)
			if got != tt.want {
				t.Fatalf("ServerErrorText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeErrorPayload(t *testing.T) {
	got, ok := render.DecodeErrorPayload([]byte(`{"errors":{"/name":["taken"]}}`))
	if !ok {
		t.Fatalf("expected envelope payload to decode")
	}
	if diff := cmp.Diff(map[string][]string{"/name": {"taken"}}, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}

	if _, ok := render.DecodeErrorPayload([]byte("tag exists")); ok {
		t.Fatalf("plain text must not decode")
	}
}
