package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formgate/pkg/page"
	"github.com/goliatone/go-formgate/pkg/render"
	"github.com/goliatone/go-formgate/pkg/renderers/tui"
	"github.com/goliatone/go-formgate/pkg/submit"
	"github.com/goliatone/go-formgate/pkg/upload"
)

func addValueFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("values", "f", "", "YAML or JSON file of field values (- for stdin)")
	cmd.Flags().StringArray("set", nil, "field value as name=value (repeatable)")
}

func (a *app) mountWithValues(cmd *cobra.Command, kind string) (*page.Page, error) {
	path, _ := cmd.Flags().GetString("values")
	sets, _ := cmd.Flags().GetStringArray("set")
	values, err := readValues(path, sets, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	return a.mount(kind, values)
}

func (a *app) formsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forms",
		Short: "List the available forms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tVALIDATION\tTARGET\tSLOTS")
			for _, kind := range reg.Kinds() {
				def, _ := reg.Definition(kind)
				slots := make([]string, 0, len(def.Slots))
				for _, slot := range def.Slots {
					slots = append(slots, slot.ID)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", def.Kind, def.Validation, def.Target.URL, strings.Join(slots, ","))
			}
			return w.Flush()
		},
	}
}

func (a *app) validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <form>",
		Short: "Validate field values without submitting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.mountWithValues(cmd, args[0])
			if err != nil {
				return err
			}
			violations, err := p.Validate(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(p.Panel().Snapshot()); err != nil {
					return err
				}
			} else if violations.Valid() {
				fmt.Fprintln(a.out, "valid")
			} else {
				printLines(a.out, "", p.Panel().Lines())
			}
			if !violations.Valid() {
				return invalid()
			}
			return nil
		},
	}
	addValueFlags(cmd)
	cmd.Flags().Bool("json", false, "print the panel as JSON")
	return cmd
}

func (a *app) uploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <form> <slot> <path>...",
		Short: "Check files against a slot's limits and upload them",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.mountWithValues(cmd, args[0])
			if err != nil {
				return err
			}
			id := args[1]
			state, err := a.selectFiles(p, id, args[2:])
			if err != nil {
				return err
			}
			if check, _ := cmd.Flags().GetBool("check"); check {
				fmt.Fprintf(a.out, "%s: %s\n", id, state)
				return nil
			}
			results, err := p.Commit(cmd.Context(), id)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Results []upload.Result   `json:"results"`
				Hidden  map[string]string `json:"hidden"`
			}{results, p.HiddenValues()})
		},
	}
	addValueFlags(cmd)
	cmd.Flags().Bool("check", false, "only check the files, do not upload")
	return cmd
}

// selectFiles runs the guard over paths for slot id. A rejected selection
// prints the slot's messages and returns an invalid-input error.
func (a *app) selectFiles(p *page.Page, id string, paths []string) (upload.State, error) {
	candidates := make([]upload.FileCandidate, 0, len(paths))
	for _, path := range paths {
		candidate, err := upload.CandidateFromPath(path)
		if err != nil {
			return upload.StateEmpty, err
		}
		candidates = append(candidates, candidate)
	}

	state, err := p.Select(id, candidates)
	if err != nil {
		return state, err
	}
	if state == upload.StateInvalid {
		slot, err := p.Group().Slot(id)
		if err != nil {
			return state, err
		}
		printLines(a.errOut, "", slot.Errors())
		return state, invalid()
	}
	return state, nil
}

func (a *app) submitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <form>",
		Short: "Upload files, validate and submit a form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.mountWithValues(cmd, args[0])
			if err != nil {
				return err
			}

			files, _ := cmd.Flags().GetStringArray("file")
			for _, entry := range files {
				id, list, ok := strings.Cut(entry, "=")
				if !ok || id == "" || list == "" {
					return fmt.Errorf("invalid --file %q, expected slot=path[,path]", entry)
				}
				if _, err := a.selectFiles(p, id, strings.Split(list, ",")); err != nil {
					return err
				}
				if _, err := p.Commit(cmd.Context(), id); err != nil {
					return err
				}
			}

			result, err := p.Submit(cmd.Context())
			var serverErr *submit.ServerError
			switch {
			case err == nil && result.Submitted:
				fmt.Fprintf(a.out, "submitted (%d), continue at %s\n", result.StatusCode, result.Redirect)
				return nil
			case err == nil, errors.As(err, &serverErr):
				printLines(a.out, "", p.Panel().Lines())
				return invalid()
			default:
				return err
			}
		},
	}
	addValueFlags(cmd)
	cmd.Flags().StringArray("file", nil, "files for a slot as slot=path[,path] (repeatable)")
	return cmd
}

func (a *app) renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <form>",
		Short: "Render the slot controls, hidden inputs and panel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.mountWithValues(cmd, args[0])
			if err != nil {
				return err
			}
			if validate, _ := cmd.Flags().GetBool("validate"); validate {
				if _, err := p.Validate(cmd.Context()); err != nil {
					return err
				}
			}

			registry, err := render.NewDefaultRegistry(render.WithTemplateDir(a.v.GetString("templates")))
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			renderer, err := registry.Get(format)
			if err != nil {
				return err
			}

			options := render.RenderOptions{Locale: a.v.GetString("locale")}
			options.Indent, _ = cmd.Flags().GetBool("indent")
			if path := a.v.GetString("messages"); path != "" {
				catalog, err := readCatalog(path)
				if err != nil {
					return err
				}
				options.Translator = catalog
			}
			return p.Render(cmd.Context(), renderer, a.out, options)
		},
	}
	addValueFlags(cmd)
	cmd.Flags().Bool("validate", false, "validate first so the panel shows violations")
	cmd.Flags().String("format", "html", "output format (html, json)")
	cmd.Flags().Bool("indent", false, "pretty-print structured output")
	cmd.Flags().String("locale", "", "locale used to translate labels and messages")
	cmd.Flags().String("messages", "", "YAML message catalogue: locale -> message -> translation")
	cmd.Flags().String("templates", "", "directory of slot.tpl, hidden.tpl and panel.tpl overriding the bundled html templates")
	return cmd
}

func (a *app) fillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fill <form>",
		Short: "Fill in and submit a form interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.mountWithValues(cmd, args[0])
			if err != nil {
				return err
			}
			session, err := tui.NewSession(p,
				tui.WithOutput(a.out),
				tui.WithHTTPClient(a.httpClient()),
				tui.WithBaseURL(a.v.GetString("base-url")),
				tui.WithTheme(tui.Theme{ErrorPrefix: "! "}),
			)
			if err != nil {
				return err
			}

			result, err := session.Run(cmd.Context())
			var serverErr *submit.ServerError
			switch {
			case errors.Is(err, tui.ErrAborted):
				return &ExitError{Code: ExitCodeFailure}
			case errors.As(err, &serverErr):
				return invalid()
			case err != nil:
				return err
			case !result.Submitted:
				return invalid()
			}
			return nil
		},
	}
	addValueFlags(cmd)
	return cmd
}
