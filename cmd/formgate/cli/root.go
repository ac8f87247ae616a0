package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "FORMGATE"

// RootCmd builds the formgate command tree. Every flag can also be set
// through a FORMGATE_* environment variable or a config file.
func RootCmd() *cobra.Command {
	v := viper.New()
	app := &app{v: v}

	cmd := &cobra.Command{
		Use:           "formgate",
		Short:         "Validate, upload and submit forms from the terminal",
		Long:          "Drive the author, post, tag and signup forms against a backend: check files, upload them, validate payloads and submit.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v.SetEnvPrefix(envPrefix)
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if file := v.GetString("config"); file != "" {
				v.SetConfigFile(file)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config: %w", err)
				}
			}
			app.out = cmd.OutOrStdout()
			app.errOut = cmd.ErrOrStderr()
			return app.setupLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.sync()
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file (yaml, json or toml)")
	flags.String("base-url", "", "backend origin prefixed to relative upload and submit URLs")
	flags.String("forms-dir", "", "directory of form definitions; the bundled forms are used when empty")
	flags.Duration("timeout", 30*time.Second, "per-request timeout")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("csrf-token", "", "CSRF token added to every submitted payload")
	flags.String("csrf-field", "_csrf", "payload field carrying the CSRF token")

	cmd.AddCommand(
		app.formsCmd(),
		app.validateCmd(),
		app.uploadCmd(),
		app.submitCmd(),
		app.renderCmd(),
		app.fillCmd(),
		versionCmd(),
	)
	return cmd
}

// InitAndExecute runs the root command and exits with the command's status.
func InitAndExecute() {
	os.Exit(execute(RootCmd(), os.Args[1:], os.Stderr))
}

func execute(cmd *cobra.Command, args []string, errOut io.Writer) int {
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintln(errOut, "Error:", exitErr.Err.Error())
		}
		return exitErr.Code
	}
	fmt.Fprintln(errOut, "Error:", err.Error())
	return ExitCodeFailure
}
