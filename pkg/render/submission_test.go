package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formgate/pkg/render"
)

func TestMergeHidden(t *testing.T) {
	payload := map[string]any{"name": "tech", "_csrf": "from-form"}

	merged := render.MergeHidden(payload,
		render.CSRFToken("_csrf", "ignored"),
		render.Hidden(" version ", 4),
		render.Hidden("  ", "skip"),
	)

	want := map[string]any{
		"name":    "tech",
		"_csrf":   "from-form",
		"version": "4",
	}
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Fatalf("merged payload mismatch (-want +got):\n%s", diff)
	}
	if _, ok := payload["version"]; ok {
		t.Fatalf("MergeHidden must not mutate its input")
	}
}

func TestSortedHiddenFields(t *testing.T) {
	sorted := render.SortedHiddenFields(map[string]string{
		"photo_url":       "/media/a.jpg",
		"hero_image_url":  "/media/h.jpg",
		"":                "ignored",
		"more_photos_url": "/media/1.jpg,/media/2.jpg",
	})
	want := []render.HiddenField{
		{Name: "hero_image_url", Value: "/media/h.jpg"},
		{Name: "more_photos_url", Value: "/media/1.jpg,/media/2.jpg"},
		{Name: "photo_url", Value: "/media/a.jpg"},
	}
	if diff := cmp.Diff(want, sorted); diff != "" {
		t.Fatalf("sorted hidden fields mismatch (-want +got):\n%s", diff)
	}
}
