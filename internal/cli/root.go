// Package cli implements the mailsend command.
package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	mailsender "github.com/shineum/mailsender-lite"
)

// Config holds the process-level settings of the command.
type Config struct {
	// ConfigPath is the default for --config.
	ConfigPath string
	// OutputWriter receives the stdout transport output.
	OutputWriter io.Writer
	// LogWriter receives JSON logs.
	LogWriter io.Writer
	// EnvFile is loaded into the environment before the configuration when it
	// exists. Empty disables it.
	EnvFile string
}

// DefaultConfig returns the settings used by the mailsend binary.
func DefaultConfig() Config {
	return Config{
		ConfigPath:   "email.properties",
		OutputWriter: os.Stdout,
		LogWriter:    os.Stderr,
		EnvFile:      ".env",
	}
}

type sendOptions struct {
	configPath  string
	to          string
	cc          string
	personal    string
	subject     string
	body        string
	bodyFile    string
	html        bool
	attachments []string
	logLevel    string
}

// NewRootCommand builds the mailsend command.
func NewRootCommand(cfg Config) *cobra.Command {
	opts := &sendOptions{configPath: cfg.ConfigPath}
	if cfg.OutputWriter == nil {
		cfg.OutputWriter = os.Stdout
	}
	if cfg.LogWriter == nil {
		cfg.LogWriter = os.Stderr
	}

	root := &cobra.Command{
		Use:   "mailsend",
		Short: "Send one email using a mail properties file",
		Example: `  mailsend --config email.properties --to a@example.com,b@example.com \
    --subject "Nightly build" --body-file report.html --html --attach build.log`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return loadEnvFile(cfg.EnvFile)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(cfg.LogWriter, opts.logLevel)

			body, err := opts.readBody(cmd.InOrStdin())
			if err != nil {
				return err
			}

			props, err := mailsender.LoadConfig(opts.configPath)
			if err != nil {
				logger.Error("failed to load configuration", "path", opts.configPath, "error", err)
				return fmt.Errorf("load configuration: %w", err)
			}

			m := mailsender.New(props,
				mailsender.WithLogger(logger),
				mailsender.WithOutput(cfg.OutputWriter),
			)
			return m.SendMail(cmd.Context(),
				opts.to, opts.cc, opts.personal, opts.subject, body, opts.html, opts.attachments)
		},
	}

	f := root.Flags()
	f.StringVar(&opts.configPath, "config", opts.configPath, "Path to the .properties or .yaml mail configuration")
	f.StringVar(&opts.to, "to", "", "Comma-separated To recipients")
	f.StringVar(&opts.cc, "cc", "", "Comma-separated Cc recipients")
	f.StringVar(&opts.personal, "personal", "", "Sender display name (defaults to email.from.personal)")
	f.StringVar(&opts.subject, "subject", "", "Message subject")
	f.StringVar(&opts.body, "body", "", "Message body")
	f.StringVar(&opts.bodyFile, "body-file", "", "Read the message body from a file, or - for stdin")
	f.BoolVar(&opts.html, "html", false, "Send the body as text/html")
	f.StringArrayVar(&opts.attachments, "attach", nil, "File to attach (repeatable)")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	root.MarkFlagsMutuallyExclusive("body", "body-file")

	return root
}

func (o *sendOptions) readBody(stdin io.Reader) (string, error) {
	switch o.bodyFile {
	case "":
		return o.body, nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read body from stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(o.bodyFile)
		if err != nil {
			return "", fmt.Errorf("read body file: %w", err)
		}
		return string(data), nil
	}
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// newLogger returns a JSON logger writing to w at the given level.
func newLogger(w io.Writer, level string) *slog.Logger {
	var logLevel slog.Level

	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel}))
}
