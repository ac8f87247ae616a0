package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formgate/internal/logging"
	"github.com/goliatone/go-formgate/pkg/form"
	"github.com/goliatone/go-formgate/pkg/page"
	"github.com/goliatone/go-formgate/pkg/render"
	"github.com/goliatone/go-formgate/pkg/submit"
	"github.com/goliatone/go-formgate/pkg/upload"
)

// app holds what every subcommand shares once flags are parsed.
type app struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer
	logger *zap.Logger
}

func (a *app) setupLogger() error {
	level, err := zapcore.ParseLevel(a.v.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	a.logger = logging.NewWithWriter(a.errOut, level)
	return nil
}

func (a *app) sync() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) registry() (*form.Registry, error) {
	dir := a.v.GetString("forms-dir")
	if dir == "" {
		return form.LoadDefaults()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("forms dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("forms dir: %s is not a directory", dir)
	}
	return form.LoadFS(os.DirFS(dir))
}

func (a *app) definition(kind string) (form.Definition, error) {
	reg, err := a.registry()
	if err != nil {
		return form.Definition{}, err
	}
	def, ok := reg.Definition(form.Kind(kind))
	if !ok {
		return form.Definition{}, fmt.Errorf("unknown form %q (known: %s)", kind, joinKinds(reg.Kinds()))
	}
	return def, nil
}

func (a *app) httpClient() *http.Client {
	return &http.Client{Timeout: a.v.GetDuration("timeout")}
}

// mount builds a page for kind wired to the configured backend.
func (a *app) mount(kind string, prefill map[string]any) (*page.Page, error) {
	def, err := a.definition(kind)
	if err != nil {
		return nil, err
	}

	base := a.v.GetString("base-url")
	client := a.httpClient()
	submitOptions := []submit.Option{
		submit.WithHTTPClient(client),
		submit.WithBaseURL(base),
	}
	if token := a.v.GetString("csrf-token"); token != "" {
		submitOptions = append(submitOptions, submit.WithHiddenFields(render.CSRFToken(a.v.GetString("csrf-field"), token)))
	}

	return page.New(def,
		page.WithPrefill(prefill),
		page.WithLogger(a.logger),
		page.WithUploadClient(upload.NewClient(
			upload.WithHTTPClient(client),
			upload.WithBaseURL(base),
			upload.WithLogger(a.logger),
		)),
		page.WithSubmitOptions(submitOptions...),
	)
}

// readValues loads field values from a YAML or JSON file; "-" reads stdin.
// Values given with --set win over the file.
func readValues(path string, sets []string, stdin io.Reader) (map[string]any, error) {
	values := map[string]any{}
	if path != "" {
		var (
			raw []byte
			err error
		)
		if path == "-" {
			raw, err = io.ReadAll(stdin)
		} else {
			raw, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("read values: %w", err)
		}
		if err := yaml.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("parse values %s: %w", path, err)
		}
		if values == nil {
			values = map[string]any{}
		}
	}
	for _, set := range sets {
		name, value, ok := strings.Cut(set, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --set %q, expected name=value", set)
		}
		values[strings.TrimSpace(name)] = value
	}
	return values, nil
}

func readCatalog(path string) (render.Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	var catalog render.Catalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("parse messages %s: %w", path, err)
	}
	return catalog, nil
}

func joinKinds(kinds []form.Kind) string {
	names := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		names = append(names, string(kind))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func printLines(w io.Writer, prefix string, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(w, prefix+line)
	}
}
