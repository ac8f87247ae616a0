package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-formgate/internal/logging"
	"github.com/goliatone/go-formgate/pkg/form"
	"github.com/goliatone/go-formgate/pkg/render"
	"github.com/goliatone/go-formgate/pkg/rules"
	"github.com/goliatone/go-formgate/pkg/validation"
)

// ErrSubmitInFlight is returned when Submit is called while an earlier
// submission has not returned yet.
var ErrSubmitInFlight = errors.New("submit: a submission is already in flight")

// Reporter is the violation display a controller writes to. render.Panel
// implements it.
type Reporter interface {
	Clear()
	Show(violations validation.Violations)
	ShowServerError(body []byte, contentType string)
	Hide()
}

// ServerError is returned when the submission endpoint answers with a
// non-2xx status. Body is the raw response.
type ServerError struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

func (e *ServerError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return fmt.Sprintf("submit: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("submit: unexpected status %d: %s", e.StatusCode, body)
}

// Result describes one submission attempt.
type Result struct {
	Payload    form.Payload
	Violations validation.Violations
	Submitted  bool
	StatusCode int
	// Redirect is where the page navigates after a successful submission.
	Redirect string
}

// Controller validates assembled payloads and posts the valid ones.
type Controller struct {
	http      *http.Client
	baseURL   string
	timeout   time.Duration
	logger    *zap.Logger
	validator validation.Validator
	reporter  Reporter
	hidden    []render.HiddenField

	inFlight atomic.Bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) {
		if client != nil {
			c.http = client
		}
	}
}

// WithBaseURL prefixes relative target URLs.
func WithBaseURL(base string) Option {
	return func(c *Controller) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// WithTimeout bounds each submission request. Zero keeps the transport
// default.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Controller) {
		c.timeout = timeout
	}
}

// WithLogger sets the diagnostics sink.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithValidator swaps the schema engine.
func WithValidator(validator validation.Validator) Option {
	return func(c *Controller) {
		if validator != nil {
			c.validator = validator
		}
	}
}

// WithReporter sets the violation display.
func WithReporter(reporter Reporter) Option {
	return func(c *Controller) {
		c.reporter = reporter
	}
}

// WithHiddenFields adds values (CSRF tokens and the like) to every payload
// that passes validation.
func WithHiddenFields(fields ...render.HiddenField) Option {
	return func(c *Controller) {
		c.hidden = append(c.hidden, fields...)
	}
}

// New constructs a controller backed by the kin-openapi schema validator.
func New(options ...Option) *Controller {
	c := &Controller{
		http:      http.DefaultClient,
		validator: validation.NewSchemaValidator(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = logging.OrNop(c.logger)
	if c.reporter == nil {
		c.reporter = render.NewPanel()
	}
	return c
}

// Submit assembles the payload from state, validates it and, when valid,
// sends it to the form's target. Violations are reported and returned in the
// Result without a network call. A rejected submission reports the raw
// response body and returns a *ServerError.
func (c *Controller) Submit(ctx context.Context, def form.Definition, state *form.State) (Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrSubmitInFlight
	}
	defer c.inFlight.Store(false)

	payload := form.Assemble(def, state)
	result := Result{Payload: payload}

	c.reporter.Clear()
	violations, err := c.validate(ctx, def, payload)
	if err != nil {
		return result, fmt.Errorf("submit: validate %s: %w", def.Kind, err)
	}
	if !violations.Valid() {
		c.reporter.Show(violations)
		c.logger.Info("submission blocked by validation",
			zap.String("form", string(def.Kind)),
			zap.Int("violations", len(violations)),
		)
		result.Violations = violations
		return result, nil
	}

	status, err := c.send(ctx, def, payload)
	result.StatusCode = status
	if err != nil {
		var serverErr *ServerError
		if errors.As(err, &serverErr) {
			c.reporter.ShowServerError(serverErr.Body, serverErr.ContentType)
		} else {
			c.reporter.ShowServerError([]byte(err.Error()), "text/plain")
		}
		c.logger.Error("submission failed",
			zap.String("form", string(def.Kind)),
			zap.Int("status", status),
			zap.Error(err),
		)
		return result, err
	}

	c.reporter.Hide()
	result.Submitted = true
	result.Redirect = def.Redirect
	c.logger.Info("submission accepted",
		zap.String("form", string(def.Kind)),
		zap.Int("status", status),
		zap.String("redirect", def.Redirect),
	)
	return result, nil
}

// InFlight reports whether a submission is running.
func (c *Controller) InFlight() bool {
	return c.inFlight.Load()
}

// Validate runs the form's validator without submitting.
func (c *Controller) Validate(ctx context.Context, def form.Definition, state *form.State) (validation.Violations, error) {
	return c.validate(ctx, def, form.Assemble(def, state))
}

func (c *Controller) validate(ctx context.Context, def form.Definition, payload form.Payload) (validation.Violations, error) {
	switch def.Validation {
	case form.ValidateRules:
		return rules.Validate(def.Rules, payload), nil
	case form.ValidateSchema:
		return c.validator.Validate(ctx, payload, def.SchemaDocument)
	default:
		return nil, fmt.Errorf("unknown validation mode %q", def.Validation)
	}
}

func (c *Controller) send(ctx context.Context, def form.Definition, payload form.Payload) (int, error) {
	body, contentType, err := encode(def.Target.Encoding, render.MergeHidden(payload, c.hidden...))
	if err != nil {
		return 0, err
	}

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	requestID := uuid.NewString()
	req, err := http.NewRequestWithContext(reqCtx, def.Target.ResolvedMethod(), c.resolve(def.Target.URL), body)
	if err != nil {
		return 0, fmt.Errorf("submit: request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	c.logger.Debug("submission started",
		zap.String("form", string(def.Kind)),
		zap.String("url", req.URL.String()),
		zap.String("request_id", requestID),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("submit: do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("submit: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &ServerError{
			StatusCode:  resp.StatusCode,
			Body:        raw,
			ContentType: resp.Header.Get("Content-Type"),
		}
	}
	return resp.StatusCode, nil
}

func (c *Controller) resolve(target string) string {
	if c.baseURL == "" || strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	return c.baseURL + target
}

func encode(encoding form.Encoding, payload map[string]any) (io.Reader, string, error) {
	if encoding == form.EncodingForm {
		values := url.Values{}
		for key, value := range form.Payload(payload).Strings() {
			values.Set(key, value)
		}
		return strings.NewReader(values.Encode()), "application/x-www-form-urlencoded", nil
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("submit: encode payload: %w", err)
	}
	return bytes.NewReader(encoded), "application/json", nil
}
