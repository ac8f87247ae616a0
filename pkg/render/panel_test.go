package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formgate/pkg/render"
	"github.com/goliatone/go-formgate/pkg/validation"
)

func TestPanel_ShowReplacesPreviousRun(t *testing.T) {
	panel := render.NewPanel("name", "description")

	panel.Show(validation.Violations{
		{Path: "/name", Field: "name", Message: "minimum string length is 1"},
		{Path: "/description", Field: "description", Message: "value is required"},
	})
	if !panel.Visible() {
		t.Fatalf("panel should be visible after violations")
	}

	panel.Show(validation.Violations{
		{Path: "/name", Field: "name", Message: "maximum string length is 64"},
	})
	want := []string{"/name maximum string length is 64"}
	if diff := cmp.Diff(want, panel.Lines()); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}

	panel.Show(nil)
	if panel.Visible() || len(panel.Lines()) != 0 {
		t.Fatalf("empty run should leave the panel empty and hidden, got %v", panel.Lines())
	}
}

func TestPanel_ShowServerError(t *testing.T) {
	panel := render.NewPanel("name", "description")
	panel.Show(validation.Violations{{Path: "/name", Message: "stale"}})

	panel.ShowServerError([]byte(`{"errors":{"/name":["already exists"]}}`), "application/json")

	want := []string{`{"errors":{"/name":["already exists"]}}`}
	if diff := cmp.Diff(want, panel.Lines()); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
	mapping := panel.Mapping()
	if diff := cmp.Diff(map[string][]string{"name": {"already exists"}}, mapping.Fields); diff != "" {
		t.Fatalf("field mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestPanel_ShowServerErrorKeepsHTMLBodyVerbatim(t *testing.T) {
	panel := render.NewPanel("name")
	body := "<p>tag <b>name</b>   already exists</p>\n"

	panel.ShowServerError([]byte(body), "text/html; charset=utf-8")

	if diff := cmp.Diff([]string{body}, panel.Lines()); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"tag name already exists"}, panel.Mapping().Form); diff != "" {
		t.Fatalf("form message mismatch (-want +got):\n%s", diff)
	}
}

func TestPanel_Hide(t *testing.T) {
	panel := render.NewPanel()
	panel.ShowServerError([]byte("boom"), "text/plain")
	panel.Hide()

	view := panel.Snapshot()
	if view.Visible || len(view.Lines) != 0 {
		t.Fatalf("hidden panel should be empty, got %+v", view)
	}
}
