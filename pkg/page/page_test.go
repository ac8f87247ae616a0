package page_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-formgate/internal/logging"
	"github.com/goliatone/go-formgate/pkg/form"
	"github.com/goliatone/go-formgate/pkg/page"
	"github.com/goliatone/go-formgate/pkg/render"
	"github.com/goliatone/go-formgate/pkg/submit"
	"github.com/goliatone/go-formgate/pkg/upload"
)

func mount(t *testing.T, kind form.Kind, options ...page.Option) *page.Page {
	t.Helper()
	registry, err := form.LoadDefaults()
	require.NoError(t, err)
	def, ok := registry.Definition(kind)
	require.True(t, ok, "definition %q", kind)

	p, err := page.New(def, options...)
	require.NoError(t, err)
	return p
}

func file(name string, size int64) upload.FileCandidate {
	return upload.FileCandidate{
		Name:      name,
		SizeBytes: size,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("content of " + name)), nil
		},
	}
}

func TestSelect_NameTooLongKeepsCommitDisabled(t *testing.T) {
	p := mount(t, form.KindAuthor)

	state, err := p.Select("photo", []upload.FileCandidate{file(strings.Repeat("a", 66)+".jpg", 1024)})
	require.NoError(t, err)

	slot, err := p.Group().Slot("photo")
	require.NoError(t, err)
	assert.Equal(t, upload.StateInvalid, state)
	assert.Equal(t, []string{"File name exceeds 64 characters."}, slot.Errors())
	assert.False(t, p.CommitEnabled("photo"))
}

func TestSelect_OversizedThenValidImage(t *testing.T) {
	p := mount(t, form.KindAuthor)
	slot, err := p.Group().Slot("photo")
	require.NoError(t, err)

	_, err = p.Select("photo", []upload.FileCandidate{file("big.jpg", 3_000_000)})
	require.NoError(t, err)
	assert.Equal(t, []string{"File size exceeds 2 MB."}, slot.Errors())
	assert.False(t, p.CommitEnabled("photo"))

	state, err := p.Select("photo", []upload.FileCandidate{file("small.jpg", 1_000_000)})
	require.NoError(t, err)
	assert.Equal(t, upload.StateReadyToCommit, state)
	assert.Empty(t, slot.Errors())
	assert.True(t, p.CommitEnabled("photo"))
}

func TestSelect_GalleryDiscardsWholeSelection(t *testing.T) {
	p := mount(t, form.KindPost)

	state, err := p.Select("gallery", []upload.FileCandidate{
		file("one.jpg", 1024),
		file("two.jpg", 3<<20),
		file("three.jpg", 2048),
	})
	require.NoError(t, err)

	slot, err := p.Group().Slot("gallery")
	require.NoError(t, err)
	assert.Equal(t, upload.StateInvalid, state)
	assert.Empty(t, slot.Selection())
	assert.Equal(t, []string{"File size exceeds 2 MB: two.jpg"}, slot.Errors())
	assert.False(t, p.CommitEnabled("gallery"))
}

func TestCommit_AuthorPhotoFillsPayloadField(t *testing.T) {
	var (
		mu    sync.Mutex
		field string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		mu.Lock()
		for name := range r.MultipartForm.File {
			field = name
		}
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"paths":{"Original":"/media/o.jpg","Thumbnail":"/media/t.jpg"}}]`)
	}))
	t.Cleanup(server.Close)

	p := mount(t, form.KindAuthor, page.WithUploadClient(upload.NewClient(upload.WithBaseURL(server.URL))))
	_, err := p.Select("photo", []upload.FileCandidate{file("ada.jpg", 2048)})
	require.NoError(t, err)

	results, err := p.Commit(context.Background(), "photo")
	require.NoError(t, err)
	require.Len(t, results, 1)

	mu.Lock()
	assert.Equal(t, "photo", field)
	mu.Unlock()
	assert.Equal(t, "/media/o.jpg", p.State().String("photo_url"))
	assert.Equal(t, "/media/t.jpg", p.State().String("profile_photo"))
	assert.Equal(t, map[string]string{"photo_url": "/media/o.jpg"}, p.HiddenValues())

	slot, err := p.Group().Slot("photo")
	require.NoError(t, err)
	assert.Equal(t, upload.StateCommitted, slot.State())
	assert.False(t, p.CommitEnabled("photo"))
}

func TestCommit_FailureIsLoggedNotShown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage offline", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	var logs bytes.Buffer
	p := mount(t, form.KindAuthor,
		page.WithLogger(logging.NewWithWriter(&logs, zapcore.DebugLevel)),
		page.WithPrefill(map[string]any{"photo_url": "/media/old.jpg"}),
		page.WithUploadClient(upload.NewClient(upload.WithBaseURL(server.URL))),
	)
	_, err := p.Select("photo", []upload.FileCandidate{file("ada.jpg", 2048)})
	require.NoError(t, err)

	_, err = p.Commit(context.Background(), "photo")
	var statusErr *upload.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)

	slot, err := p.Group().Slot("photo")
	require.NoError(t, err)
	assert.Equal(t, upload.StateCommitted, slot.State())
	assert.True(t, slot.Failed())
	assert.False(t, p.CommitEnabled("photo"))
	assert.Equal(t, "/media/old.jpg", p.State().String("photo_url"))
	assert.Empty(t, p.Panel().Lines())
	assert.Contains(t, logs.String(), `"message":"upload failed"`)

	state, err := p.Select("photo", []upload.FileCandidate{file("retry.jpg", 2048)})
	require.NoError(t, err)
	assert.Equal(t, upload.StateReadyToCommit, state)
}

func TestCommitAsync_DisablesSiblingsAndSubmit(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		_, _ = io.WriteString(w, `[{"paths":{"Original":"/media/h.jpg","Hero":"/media/h-hero.jpg"}}]`)
	}))
	t.Cleanup(server.Close)

	p := mount(t, form.KindPost, page.WithUploadClient(upload.NewClient(upload.WithBaseURL(server.URL))))
	_, err := p.Select("hero", []upload.FileCandidate{file("hero.jpg", 4096)})
	require.NoError(t, err)
	_, err = p.Select("gallery", []upload.FileCandidate{file("a.jpg", 1024), file("b.jpg", 1024)})
	require.NoError(t, err)
	require.True(t, p.CommitEnabled("gallery"))

	outcome, err := p.CommitAsync(context.Background(), "hero")
	require.NoError(t, err)

	assert.False(t, p.CommitEnabled("hero"))
	assert.False(t, p.CommitEnabled("gallery"))
	assert.False(t, p.SubmitEnabled())
	_, err = p.Submit(context.Background())
	assert.ErrorIs(t, err, page.ErrSubmitDisabled)
	_, err = p.Commit(context.Background(), "gallery")
	assert.ErrorIs(t, err, upload.ErrNotReady)

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("upload never reached the server")
	}
	close(release)

	done := <-outcome
	require.NoError(t, done.Err)
	assert.Equal(t, "hero", done.SlotID)
	assert.Equal(t, "/media/h.jpg", p.State().String("hero_image_url"))
	assert.Equal(t, []string{"/media/h-hero.jpg"}, p.State().Strings("hero_info"))
	assert.True(t, p.SubmitEnabled())
	assert.True(t, p.CommitEnabled("gallery"))
}

func TestCommit_BodySendsExistingKey(t *testing.T) {
	var (
		mu  sync.Mutex
		key string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		mu.Lock()
		key = r.FormValue("existing_key")
		mu.Unlock()
		_, _ = io.WriteString(w, `[{"paths":{"markdown":"posts/hello.md"}}]`)
	}))
	t.Cleanup(server.Close)

	p := mount(t, form.KindPost,
		page.WithPrefill(map[string]any{"body_url": "posts/old.md"}),
		page.WithUploadClient(upload.NewClient(upload.WithBaseURL(server.URL))),
	)
	_, err := p.Select("body", []upload.FileCandidate{file("hello.md", 600*1024)})
	require.NoError(t, err)
	slot, err := p.Group().Slot("body")
	require.NoError(t, err)
	assert.Equal(t, []string{"File size exceeds 500 KB."}, slot.Errors())

	_, err = p.Select("body", []upload.FileCandidate{file("hello.md", 4096)})
	require.NoError(t, err)
	_, err = p.Commit(context.Background(), "body")
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, "posts/old.md", key)
	mu.Unlock()
	assert.Equal(t, "posts/hello.md", p.State().String("body_url"))
	assert.Equal(t, "posts/hello.md", form.Assemble(p.Definition(), p.State())["body"])
}

func TestNew_AppliesRelationshipDefaults(t *testing.T) {
	p := mount(t, form.KindPost, page.WithPrefill(map[string]any{
		"author_id": "7",
		"tag_id":    "3",
		"tag":       "9",
	}))

	assert.Equal(t, "7", p.State().String("author"))
	assert.Equal(t, "9", p.State().String("tag"))
}

func TestSubmit_TagRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(server.Close)

	p := mount(t, form.KindTag, page.WithSubmitOptions(submit.WithBaseURL(server.URL)))
	require.NoError(t, p.SetField("name", "tech"))
	require.NoError(t, p.SetField("description", "tech posts"))

	result, err := p.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Submitted)
	assert.Equal(t, "/admin/tags", result.Redirect)
	assert.False(t, p.Panel().Visible())
}

func TestRender_WritesSlotsHiddenAndPanel(t *testing.T) {
	p := mount(t, form.KindAuthor, page.WithPrefill(map[string]any{"photo_url": "/media/a.jpg"}))
	renderer, err := render.NewHTMLRenderer(nil)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, p.Render(context.Background(), renderer, &out, render.RenderOptions{}))

	html := out.String()
	assert.Contains(t, html, `data-slot="photo"`)
	assert.Contains(t, html, `name="photo_url" value="/media/a.jpg"`)
	assert.Contains(t, html, `class="formgate-panel"`)
}

func TestView_JSONRendererLocalizes(t *testing.T) {
	p := mount(t, form.KindAuthor)
	_, err := p.Select("photo", []upload.FileCandidate{file("big.jpg", 3_000_000)})
	require.NoError(t, err)

	view := p.View()
	assert.Equal(t, "author", view.Form)
	require.Len(t, view.Slots, 1)
	assert.Equal(t, "invalid", view.Slots[0].State)

	var out bytes.Buffer
	err = p.Render(context.Background(), render.NewJSONRenderer(), &out, render.RenderOptions{
		Locale: "es",
		Translator: render.Catalog{"es": {
			"Profile photo":           "Foto de perfil",
			"File size exceeds 2 MB.": "El archivo supera 2 MB.",
		}},
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"label":"Foto de perfil"`)
	assert.Contains(t, out.String(), `"errors":["El archivo supera 2 MB."]`)
	assert.Contains(t, out.String(), `"hidden":{"photo_url":""}`)
}

func TestValidate_ShowsViolationsWithoutSending(t *testing.T) {
	p := mount(t, form.KindSignup)
	require.NoError(t, p.SetField("user_id", "ada"))
	require.NoError(t, p.SetField("display_name", "Ada"))
	require.NoError(t, p.SetField("email", "ada@example.com"))
	require.NoError(t, p.SetField("password", "abc"))
	require.NoError(t, p.SetField("confirm_password", "abd"))

	violations, err := p.Validate(context.Background())
	require.NoError(t, err)
	assert.Len(t, violations, 2)
	assert.True(t, p.Panel().Visible())
	assert.Equal(t, []string{
		"password password must be at least 8 characters.",
		"confirm_password Confirm password must match the password.",
	}, p.Panel().Lines())

	require.NoError(t, p.SetField("password", "abcdefgh"))
	require.NoError(t, p.SetField("confirm_password", "abcdefgh"))
	violations, err = p.Validate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, violations)
	assert.False(t, p.Panel().Visible())
}

func TestValidate_CancelledContextClearsPanel(t *testing.T) {
	p := mount(t, form.KindTag)
	_, err := p.Validate(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, p.Panel().Lines())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Validate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.Panel().Lines())
}
