package page

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/goliatone/go-formgate/internal/logging"
	"github.com/goliatone/go-formgate/pkg/form"
	"github.com/goliatone/go-formgate/pkg/render"
	"github.com/goliatone/go-formgate/pkg/submit"
	"github.com/goliatone/go-formgate/pkg/upload"
	"github.com/goliatone/go-formgate/pkg/validation"
)

// ErrSubmitDisabled is returned by Submit while an upload is in flight.
var ErrSubmitDisabled = errors.New("page: submit is disabled while an upload is in flight")

// Option configures a Page.
type Option func(*config)

type config struct {
	prefill       map[string]any
	logger        *zap.Logger
	uploadClient  *upload.Client
	submitOptions []submit.Option
}

// WithPrefill seeds the form state, as a server-rendered edit page would.
func WithPrefill(values map[string]any) Option {
	return func(cfg *config) {
		cfg.prefill = values
	}
}

// WithLogger sets the diagnostics sink shared by the page's controllers.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithUploadClient overrides the upload client.
func WithUploadClient(client *upload.Client) Option {
	return func(cfg *config) {
		cfg.uploadClient = client
	}
}

// WithSubmitOptions forwards options to the submission controller. The page
// always installs its own panel as the reporter.
func WithSubmitOptions(options ...submit.Option) Option {
	return func(cfg *config) {
		cfg.submitOptions = append(cfg.submitOptions, options...)
	}
}

// Page wires one form's controllers together for the lifetime of a mounted
// page. The UI layer translates user events into calls on Page and renders
// from State, Panel and SlotViews.
type Page struct {
	def       form.Definition
	state     *form.State
	group     *upload.Group
	uploader  *upload.Uploader
	submitter *submit.Controller
	panel     *render.Panel
	logger    *zap.Logger
}

// New mounts def.
func New(def form.Definition, options ...Option) (*Page, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	cfg := &config{}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}
	logger := logging.OrNop(cfg.logger).With(zap.String("form", string(def.Kind)))

	state := form.NewState(cfg.prefill)
	if err := form.ApplyDefaults(def, state); err != nil {
		return nil, fmt.Errorf("page: apply defaults: %w", err)
	}

	group, err := upload.NewGroup()
	if err != nil {
		return nil, err
	}
	for _, decl := range def.Slots {
		if err := group.Add(upload.NewSlot(decl.ID, decl.Kind, decl.ResolvedLimits())); err != nil {
			return nil, fmt.Errorf("page: %w", err)
		}
	}

	client := cfg.uploadClient
	if client == nil {
		client = upload.NewClient(upload.WithLogger(logger))
	}

	panel := render.NewPanel(def.FieldNames()...)
	submitOptions := append([]submit.Option{submit.WithLogger(logger)}, cfg.submitOptions...)
	submitOptions = append(submitOptions, submit.WithReporter(panel))

	return &Page{
		def:       def,
		state:     state,
		group:     group,
		uploader:  upload.NewUploader(client, logger),
		submitter: submit.New(submitOptions...),
		panel:     panel,
		logger:    logger,
	}, nil
}

// Definition returns the mounted form.
func (p *Page) Definition() form.Definition { return p.def }

// State returns the live form state.
func (p *Page) State() *form.State { return p.state }

// Panel returns the violation panel.
func (p *Page) Panel() *render.Panel { return p.panel }

// Group returns the page's upload slots.
func (p *Page) Group() *upload.Group { return p.group }

// SetField records a typed value.
func (p *Page) SetField(name string, value any) error {
	return p.state.Set(name, value)
}

// Select runs the file guard over a new selection for slot id.
func (p *Page) Select(id string, candidates []upload.FileCandidate) (upload.State, error) {
	slot, err := p.group.Slot(id)
	if err != nil {
		return upload.StateEmpty, err
	}
	state, err := slot.Select(candidates)
	if err != nil {
		return state, err
	}
	if state == upload.StateInvalid {
		p.logger.Info("file selection rejected",
			zap.String("slot", id),
			zap.Strings("errors", slot.Errors()),
		)
	}
	return state, nil
}

// Commit uploads the selection held by slot id and writes the results into
// the form state.
func (p *Page) Commit(ctx context.Context, id string) ([]upload.Result, error) {
	slot, decl, err := p.slot(id)
	if err != nil {
		return nil, err
	}
	return p.uploader.Commit(ctx, slot, decl.Endpoint, decl.Binding, p.state)
}

// CommitAsync starts the upload for slot id and returns once the slot, its
// siblings and the submit control are disabled.
func (p *Page) CommitAsync(ctx context.Context, id string) (<-chan upload.Outcome, error) {
	slot, decl, err := p.slot(id)
	if err != nil {
		return nil, err
	}
	return p.uploader.CommitAsync(ctx, slot, decl.Endpoint, decl.Binding, p.state)
}

// CommitEnabled reports whether slot id's upload control is enabled.
func (p *Page) CommitEnabled(id string) bool {
	return p.group.CommitEnabled(id)
}

// SubmitEnabled reports whether the submit control is enabled.
func (p *Page) SubmitEnabled() bool {
	return p.group.SubmitEnabled() && !p.submitter.InFlight()
}

// Submit validates and sends the form. Callers navigate to Result.Redirect
// when Result.Submitted is set.
func (p *Page) Submit(ctx context.Context) (submit.Result, error) {
	if !p.group.SubmitEnabled() {
		return submit.Result{}, ErrSubmitDisabled
	}
	return p.submitter.Submit(ctx, p.def, p.state)
}

// Validate runs the form's validator over the current state and shows the
// result on the panel without sending anything.
func (p *Page) Validate(ctx context.Context) (validation.Violations, error) {
	p.panel.Clear()
	violations, err := p.submitter.Validate(ctx, p.def, p.state)
	if err != nil {
		return nil, err
	}
	p.panel.Show(violations)
	return violations, nil
}

// SlotViews snapshots every slot for rendering, in declaration order.
func (p *Page) SlotViews() []render.SlotView {
	out := make([]render.SlotView, 0, len(p.def.Slots))
	for _, decl := range p.def.Slots {
		slot, err := p.group.Slot(decl.ID)
		if err != nil {
			continue
		}
		var info []string
		if decl.Binding.Info != "" {
			info = p.state.Strings(decl.Binding.Info)
		}
		out = append(out, render.NewSlotView(slot, decl.Label, info...))
	}
	return out
}

// HiddenValues returns the current values of hidden payload fields.
func (p *Page) HiddenValues() map[string]string {
	out := make(map[string]string)
	for _, field := range p.def.Fields {
		if field.Type != form.FieldHidden {
			continue
		}
		name := field.StateKey()
		out[name] = p.state.String(name)
	}
	return out
}

// View snapshots the slots, hidden inputs and panel for a renderer.
func (p *Page) View() render.PageView {
	return render.PageView{
		Form:   string(p.def.Kind),
		Title:  p.def.Title,
		Slots:  p.SlotViews(),
		Hidden: p.HiddenValues(),
		Panel:  p.panel.Snapshot(),
	}
}

// Render writes the page view through renderer.
func (p *Page) Render(ctx context.Context, renderer render.Renderer, w io.Writer, options render.RenderOptions) error {
	out, err := renderer.Render(ctx, p.View(), options)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func (p *Page) slot(id string) (*upload.Slot, form.Slot, error) {
	decl, ok := p.def.Slot(id)
	if !ok {
		return nil, form.Slot{}, fmt.Errorf("%w: %q", upload.ErrSlotNotFound, id)
	}
	slot, err := p.group.Slot(id)
	if err != nil {
		return nil, form.Slot{}, err
	}
	return slot, decl, nil
}
