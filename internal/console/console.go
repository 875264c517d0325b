// Package console is the interactive, line-oriented front end of the
// client. It renders menus, collects form input and prints the outcome of
// each workflow.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Naveen474/fake-product-detection/internal/auth"
	"github.com/Naveen474/fake-product-detection/internal/files"
	"github.com/Naveen474/fake-product-detection/internal/models"
	"github.com/Naveen474/fake-product-detection/internal/scan"
	"github.com/Naveen474/fake-product-detection/internal/utils"
	"github.com/Naveen474/fake-product-detection/internal/workflow"
)

// PasswordReader prompts for a secret without echo.
type PasswordReader func(prompt string) (string, error)

// LabelLister lists generated product labels.
type LabelLister interface {
	GetAll() ([]files.Label, error)
}

type Config struct {
	In  io.Reader
	Out io.Writer

	Session    *auth.Manager
	Verifier   *workflow.Verifier
	Transferer *workflow.Transferer
	Registrar  *workflow.Registrar
	// Labels may be nil when labels are disabled.
	Labels LabelLister
	// ReadPassword is used for password fields when set; otherwise they
	// are read as ordinary lines.
	ReadPassword PasswordReader
	Logger       *slog.Logger
}

type styles struct {
	genuine lipgloss.Style
	fake    lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	label   lipgloss.Style
	dim     lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		genuine: r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		fake:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		success: r.NewStyle().Foreground(lipgloss.Color("10")),
		warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		failure: r.NewStyle().Foreground(lipgloss.Color("9")),
		label:   r.NewStyle().Bold(true),
		dim:     r.NewStyle().Faint(true),
	}
}

// Session is one interactive run of the client.
type Session struct {
	out          io.Writer
	input        *lineReader
	readPassword PasswordReader
	session      *auth.Manager
	verifier     *workflow.Verifier
	transferer   *workflow.Transferer
	registrar    *workflow.Registrar
	labels       LabelLister
	logger       *slog.Logger
	styles       styles
}

func New(config Config) *Session {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		out:          config.Out,
		input:        newLineReader(config.In),
		readPassword: config.ReadPassword,
		session:      config.Session,
		verifier:     config.Verifier,
		transferer:   config.Transferer,
		registrar:    config.Registrar,
		labels:       config.Labels,
		logger:       logger.With("component", "console"),
		styles:       newStyles(config.Out),
	}
}

type command struct {
	name   string
	help   string
	action auth.Action
	// gated commands are listed only when the session may run them
	gated bool
	run   func(s *Session, ctx context.Context, args []string)
}

var commands []command

func init() {
	commands = []command{
		{name: "verify", help: "scan a product code and check it", action: auth.ActionVerifyProduct, run: (*Session).verify},
		{name: "verify-id", help: "check a product by typing its ID", action: auth.ActionVerifyProduct, run: (*Session).verifyID},
		{name: "login", help: "log in", run: (*Session).login},
		{name: "register", help: "create a Manufacturer or Customer account", run: (*Session).register},
		{name: "register-product", help: "register a new product", action: auth.ActionRegisterProduct, gated: true, run: (*Session).registerProduct},
		{name: "sell", help: "transfer a product to a seller or customer", action: auth.ActionSellProduct, gated: true, run: (*Session).sell},
		{name: "add-seller", help: "create a seller account", action: auth.ActionAddSeller, gated: true, run: (*Session).addSeller},
		{name: "labels", help: "list generated product labels", run: (*Session).listLabels},
		{name: "whoami", help: "show the current session", run: (*Session).whoami},
		{name: "logout", help: "log out", run: (*Session).logout},
		{name: "help", help: "show this list", run: (*Session).help},
		{name: "quit", help: "exit"},
	}
}

// Run reads commands until the input ends, "quit" is entered or ctx is
// cancelled.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, s.styles.label.Render("Fake Product Detection"))
	s.help(ctx, nil)
	for {
		text, err := s.readLine(ctx, s.prompt())
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}
		if err != nil {
			return err
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		name, args := strings.ToLower(fields[0]), fields[1:]
		if name == "quit" || name == "exit" {
			return nil
		}
		cmd, ok := lookup(name)
		if !ok {
			s.printError(fmt.Sprintf("Unknown command %q. Type help for the list.", name))
			continue
		}
		cmd.run(s, ctx, args)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name && c.run != nil {
			return c, true
		}
	}
	return command{}, false
}

func (s *Session) prompt() string {
	if identity, ok := s.session.Current(); ok {
		return identity.String() + "> "
	}
	return "> "
}

func (s *Session) help(context.Context, []string) {
	for _, c := range commands {
		if c.gated && !s.session.Can(c.action) {
			continue
		}
		fmt.Fprintf(s.out, "  %-17s %s\n", c.name, s.styles.dim.Render(c.help))
	}
}

func (s *Session) whoami(context.Context, []string) {
	if identity, ok := s.session.Current(); ok {
		fmt.Fprintf(s.out, "Logged in as %s\n", identity)
		return
	}
	fmt.Fprintln(s.out, "Not logged in.")
}

// readLine prints prompt and waits for one line of input.
func (s *Session) readLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l := <-s.input.next():
		s.input.received()
		return strings.TrimSpace(l.text), l.err
	}
}

func (s *Session) readSecret(ctx context.Context, prompt string) (string, error) {
	if s.readPassword == nil || s.input.pending {
		return s.readLine(ctx, prompt)
	}
	return s.readPassword(prompt)
}

// readFields prompts for each field in order and stops at the first
// input error.
func (s *Session) readFields(ctx context.Context, fields []models.Field) (map[string]string, error) {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		v, err := s.readLine(ctx, f.Label+": ")
		if err != nil {
			return nil, err
		}
		values[f.Key] = v
	}
	return values, nil
}

func (s *Session) printError(message string) {
	fmt.Fprintln(s.out, s.styles.failure.Render(message))
}

func (s *Session) printSuccess(message string) {
	fmt.Fprintln(s.out, s.styles.success.Render(message))
}

func (s *Session) printWarning(message string) {
	fmt.Fprintln(s.out, s.styles.warning.Render(message))
}

// fail reports err to the user, using fallback when err carries no
// message of its own.
func (s *Session) fail(err error, fallback string) {
	switch {
	case errors.Is(err, context.Canceled):
		s.printWarning("Cancelled.")
		return
	case errors.Is(err, io.EOF):
		return
	case errors.Is(err, scan.ErrCameraUnavailable):
		s.logger.Warn("camera unavailable", "error", err)
		s.printError("Camera unavailable.")
		return
	case errors.Is(err, scan.ErrNoPayload):
		s.printError("No product code detected.")
		return
	}
	s.printError(utils.UserMessage(err, fallback))
}
