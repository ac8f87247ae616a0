package upload

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formgate/internal/logging"
)

// DefaultCanonicalVariant names the variant stored in the payload when a
// binding does not say otherwise.
const DefaultCanonicalVariant = "Original"

// Fields is the slice of form state an upload reads from and writes to.
type Fields interface {
	Set(name string, value any) error
	String(name string) string
}

// Binding maps upload results back into form fields.
//
// Target receives the canonical variant and becomes part of the payload.
// Preview receives the preview variant (an image src). Info receives the text
// shown under the control: the preview path for single slots, the list of
// preview paths for batch slots.
type Binding struct {
	CanonicalVariant string `json:"canonical,omitempty" yaml:"canonical,omitempty"`
	PreviewVariant   string `json:"preview,omitempty" yaml:"preview,omitempty"`
	Target           string `json:"target" yaml:"target"`
	Preview          string `json:"preview_field,omitempty" yaml:"preview_field,omitempty"`
	Info             string `json:"info_field,omitempty" yaml:"info_field,omitempty"`
}

func (b Binding) canonical() string {
	if b.CanonicalVariant != "" {
		return b.CanonicalVariant
	}
	return DefaultCanonicalVariant
}

// Apply writes results into fields. Single slots take the values of the last
// result; batch slots join canonical paths with "," in response order.
func (b Binding) Apply(kind Kind, results []Result, fields Fields) error {
	if len(results) == 0 {
		return nil
	}
	if kind == KindMultiple {
		return b.applyBatch(results, fields)
	}

	for _, result := range results {
		if err := b.set(fields, b.Preview, result.Path(b.PreviewVariant)); err != nil {
			return err
		}
		if err := b.set(fields, b.Target, result.Path(b.canonical())); err != nil {
			return err
		}
		if err := b.set(fields, b.Info, result.Path(b.PreviewVariant)); err != nil {
			return err
		}
	}
	return nil
}

func (b Binding) applyBatch(results []Result, fields Fields) error {
	canonical := make([]string, 0, len(results))
	previews := make([]string, 0, len(results))
	for _, result := range results {
		canonical = append(canonical, result.Path(b.canonical()))
		if b.PreviewVariant != "" {
			previews = append(previews, result.Path(b.PreviewVariant))
		}
	}
	if err := b.set(fields, b.Target, strings.Join(canonical, ",")); err != nil {
		return err
	}
	if b.Info != "" {
		if err := fields.Set(b.Info, previews); err != nil {
			return fmt.Errorf("upload: set %q: %w", b.Info, err)
		}
	}
	return nil
}

func (b Binding) set(fields Fields, name, value string) error {
	if name == "" {
		return nil
	}
	if err := fields.Set(name, value); err != nil {
		return fmt.Errorf("upload: set %q: %w", name, err)
	}
	return nil
}

// Uploader runs the commit sequence for a slot: disable, upload, complete,
// bind.
type Uploader struct {
	client *Client
	logger *zap.Logger
}

// NewUploader wires a client and a log sink.
func NewUploader(client *Client, logger *zap.Logger) *Uploader {
	if client == nil {
		client = NewClient(WithLogger(logger))
	}
	return &Uploader{
		client: client,
		logger: logging.OrNop(logger),
	}
}

// Commit uploads the slot's selection. The slot leaves StateReadyToCommit
// before the request is issued and is completed only once the request
// returns. Failures are logged and returned; fields are left untouched.
func (u *Uploader) Commit(ctx context.Context, slot *Slot, endpoint Endpoint, binding Binding, fields Fields) ([]Result, error) {
	files, err := slot.BeginCommit()
	if err != nil {
		return nil, err
	}
	return u.finish(ctx, slot, files, endpoint, binding, fields)
}

// Outcome is the completion of an asynchronous commit.
type Outcome struct {
	SlotID  string
	Results []Result
	Err     error
}

// CommitAsync disables the slot before returning and runs the upload in the
// background. The channel receives exactly one Outcome and is then closed.
func (u *Uploader) CommitAsync(ctx context.Context, slot *Slot, endpoint Endpoint, binding Binding, fields Fields) (<-chan Outcome, error) {
	files, err := slot.BeginCommit()
	if err != nil {
		return nil, err
	}

	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		results, err := u.finish(ctx, slot, files, endpoint, binding, fields)
		out <- Outcome{SlotID: slot.ID(), Results: results, Err: err}
	}()
	return out, nil
}

func (u *Uploader) finish(ctx context.Context, slot *Slot, files []FileCandidate, endpoint Endpoint, binding Binding, fields Fields) ([]Result, error) {
	extra := resolveExtra(endpoint, fields)
	results, uploadErr := u.client.Upload(ctx, endpoint, files, extra)
	if err := slot.Complete(uploadErr); err != nil {
		return nil, err
	}

	if uploadErr != nil {
		u.logger.Error("upload failed",
			zap.String("slot", slot.ID()),
			zap.String("url", endpoint.URL),
			zap.Error(uploadErr),
		)
		return nil, uploadErr
	}

	for _, result := range results {
		u.logger.Info("upload successful",
			zap.String("slot", slot.ID()),
			zap.Any("paths", result.Paths),
		)
	}

	if err := binding.Apply(slot.Kind(), results, fields); err != nil {
		return results, err
	}
	return results, nil
}

func resolveExtra(endpoint Endpoint, fields Fields) map[string]string {
	if len(endpoint.Extra) == 0 && len(endpoint.ExtraFrom) == 0 {
		return nil
	}
	out := make(map[string]string, len(endpoint.Extra)+len(endpoint.ExtraFrom))
	for key, value := range endpoint.Extra {
		out[key] = value
	}
	if fields != nil {
		for key, source := range endpoint.ExtraFrom {
			out[key] = fields.String(source)
		}
	}
	return out
}

func sortedKeys(values map[string]string) []string {
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
