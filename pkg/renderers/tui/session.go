package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/goliatone/go-formgate/pkg/form"
	"github.com/goliatone/go-formgate/pkg/page"
	"github.com/goliatone/go-formgate/pkg/rules"
	"github.com/goliatone/go-formgate/pkg/submit"
	"github.com/goliatone/go-formgate/pkg/upload"
)

// Session drives a mounted page from a terminal: it prompts for every visible
// field, offers each upload slot, then submits. Violations and server errors
// are printed and the user can edit and retry.
type Session struct {
	page       *page.Page
	driver     PromptDriver
	out        io.Writer
	httpClient *http.Client
	baseURL    string
	open       FileOpener
	theme      Theme

	lookups map[string][]lookupOption
}

// NewSession builds a session over p using the survey driver unless another
// driver is supplied.
func NewSession(p *page.Page, options ...Option) (*Session, error) {
	if p == nil {
		return nil, ErrNoPage
	}
	s := &Session{
		page:    p,
		out:     os.Stdout,
		open:    upload.CandidateFromPath,
		lookups: make(map[string][]lookupOption),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.driver == nil {
		s.driver = newSurveyDriver(s.out)
	}
	return s, nil
}

// Run prompts, uploads and submits until the form is accepted or the user
// stops retrying. The returned error is the last submission failure, if any.
func (s *Session) Run(ctx context.Context) (submit.Result, error) {
	if ctx == nil {
		return submit.Result{}, errors.New("tui: context is required")
	}
	for {
		if err := s.promptFields(ctx); err != nil {
			return submit.Result{}, err
		}
		if err := s.promptSlots(ctx); err != nil {
			return submit.Result{}, err
		}

		result, submitErr := s.page.Submit(ctx)
		if submitErr == nil && result.Submitted {
			if err := s.info(ctx, fmt.Sprintf("Saved. Continue at %s", result.Redirect)); err != nil {
				return result, err
			}
			return result, nil
		}

		var serverErr *submit.ServerError
		if submitErr != nil && !errors.As(submitErr, &serverErr) {
			return result, submitErr
		}
		for _, line := range s.page.Panel().Lines() {
			if err := s.errorLine(ctx, line); err != nil {
				return result, err
			}
		}

		retry, err := s.driver.Confirm(ctx, ConfirmConfig{
			Message: "Edit and submit again?",
			Default: true,
		})
		if err != nil {
			return result, err
		}
		if !retry {
			return result, submitErr
		}
	}
}

func (s *Session) promptFields(ctx context.Context) error {
	def := s.page.Definition()
	state := s.page.State()

	for _, field := range def.Fields {
		if field.Type == form.FieldHidden {
			continue
		}
		key := field.StateKey()

		if opts := s.lookupOptions(ctx, field.Lookup); len(opts) > 0 {
			idx, err := s.driver.Select(ctx, SelectConfig{
				Message:      field.DisplayLabel(),
				Options:      optionLabels(opts),
				DefaultIndex: optionIndex(opts, state.String(key)),
			})
			if err != nil {
				return err
			}
			if idx < 0 || idx >= len(opts) {
				return fmt.Errorf("tui: invalid selection for %s", field.Name)
			}
			if err := state.Set(key, opts[idx].Value); err != nil {
				return err
			}
			continue
		}

		cfg := InputConfig{
			Message:   field.DisplayLabel(),
			Validator: s.fieldValidator(def, field),
		}
		if field.Type == form.FieldDate {
			cfg.Help = "YYYY-MM-DD or an RFC 3339 timestamp"
		}

		var (
			value string
			err   error
		)
		if field.Secret {
			value, err = s.driver.Password(ctx, cfg)
		} else {
			cfg.Default = state.String(key)
			value, err = s.driver.Input(ctx, cfg)
		}
		if err != nil {
			return err
		}
		if err := state.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// fieldValidator checks one answer as it is typed. It runs the rules declared
// for that input only; the full exhaustive run happens on submit.
func (s *Session) fieldValidator(def form.Definition, field form.Field) func(string) error {
	if field.Type == form.FieldDate {
		return func(value string) error {
			if strings.TrimSpace(value) == "" {
				return nil
			}
			if _, ok := form.ParseEpochSeconds(value); !ok {
				return fmt.Errorf("%s is not a date", field.DisplayLabel())
			}
			return nil
		}
	}
	if def.Validation != form.ValidateRules {
		return nil
	}

	var own []rules.FieldRule
	for _, rule := range def.Rules {
		if rule.Field == field.Name {
			own = append(own, rule)
		}
	}
	if len(own) == 0 {
		return nil
	}
	state := s.page.State()
	return func(value string) error {
		violations := rules.Validate(own, overlay{base: state, name: field.Name, value: value})
		if len(violations) == 0 {
			return nil
		}
		return errors.New(violations[0].Message)
	}
}

type overlay struct {
	base  rules.Values
	name  string
	value string
}

func (o overlay) String(name string) string {
	if name == o.name {
		return o.value
	}
	return o.base.String(name)
}

func (s *Session) promptSlots(ctx context.Context) error {
	for _, decl := range s.page.Definition().Slots {
		label := decl.Label
		if label == "" {
			label = decl.ID
		}

		wanted, err := s.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Upload %s?", label)})
		if err != nil {
			return err
		}
		if !wanted {
			continue
		}
		if err := s.promptSlot(ctx, decl, label); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) promptSlot(ctx context.Context, decl form.Slot, label string) error {
	help := "Path to the file"
	if decl.Kind == upload.KindMultiple {
		help = "Comma separated paths"
	}

	for {
		raw, err := s.driver.Input(ctx, InputConfig{Message: label, Help: help})
		if err != nil {
			return err
		}

		candidates, err := s.candidates(raw)
		if err != nil {
			if err := s.errorLine(ctx, err.Error()); err != nil {
				return err
			}
			continue
		}

		state, err := s.page.Select(decl.ID, candidates)
		if err != nil {
			return err
		}
		if state == upload.StateInvalid {
			slot, err := s.page.Group().Slot(decl.ID)
			if err != nil {
				return err
			}
			for _, message := range slot.Errors() {
				if err := s.errorLine(ctx, message); err != nil {
					return err
				}
			}
			again, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Choose another file?", Default: true})
			if err != nil {
				return err
			}
			if !again {
				return nil
			}
			continue
		}
		if state != upload.StateReadyToCommit {
			return nil
		}

		// Upload failures are logged by the uploader; the slot stays disabled
		// until a new selection.
		if _, err := s.page.Commit(ctx, decl.ID); err != nil {
			return s.info(ctx, fmt.Sprintf("%s: not uploaded", label))
		}
		if decl.Binding.Info != "" {
			for _, line := range s.page.State().Strings(decl.Binding.Info) {
				if err := s.info(ctx, fmt.Sprintf("%s: %s", label, line)); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

func (s *Session) candidates(raw string) ([]upload.FileCandidate, error) {
	var out []upload.FileCandidate
	for _, part := range strings.Split(raw, ",") {
		path := strings.TrimSpace(part)
		if path == "" {
			continue
		}
		candidate, err := s.open(path)
		if err != nil {
			return nil, err
		}
		out = append(out, candidate)
	}
	return out, nil
}

func (s *Session) info(ctx context.Context, msg string) error {
	return s.driver.Info(ctx, s.theme.InfoPrefix+msg)
}

func (s *Session) errorLine(ctx context.Context, msg string) error {
	return s.driver.Info(ctx, s.theme.ErrorPrefix+msg)
}
