package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/opus-domini/alertd/internal/alerts"
	"github.com/opus-domini/alertd/internal/config"
)

var (
	serveFn          = serve
	loadConfigFn     = config.Load
	currentVersionFn = currentVersion
	newClientFn      = func(baseURL string) alertsClient { return newAlertClient(baseURL) }
)

type alertsClient interface {
	List(ctx context.Context) ([]alerts.Alert, error)
	Get(ctx context.Context, id int64) (alerts.Alert, error)
	Create(ctx context.Context, write alerts.AlertWrite) (alerts.Alert, error)
	Patch(ctx context.Context, id int64, fields map[string]any) (alerts.Alert, error)
}

const (
	cmdHelp       = "help"
	flagHelpShort = "-h"
	flagHelpLong  = "--help"
)

func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func writeln(w io.Writer, args ...any) {
	_, _ = fmt.Fprintln(w, args...)
}

func runCLI(args []string, stdout, stderr io.Writer) int {
	ctx := commandContext{stdout: stdout, stderr: stderr}

	if len(args) == 0 {
		return serveFn()
	}

	switch args[0] {
	case "-v", "--version", "version":
		writef(stdout, "alertd version %s\n", currentVersionFn())
		return 0
	case "serve":
		return runServeCommand(ctx, args[1:])
	case "config":
		return runConfigCommand(ctx, args[1:])
	case "alerts":
		return runAlertsCommand(ctx, args[1:])
	case cmdHelp, flagHelpShort, flagHelpLong:
		printRootHelp(stdout)
		return 0
	default:
		writef(stderr, "unknown command: %s\n\n", args[0])
		printRootHelp(stderr)
		return 2
	}
}

func runServeCommand(ctx commandContext, args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(ctx.stderr)
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		printServeHelp(ctx.stdout)
		return 0
	}
	if fs.NArg() > 0 {
		writef(ctx.stderr, "unexpected argument(s): %s\n", strings.Join(fs.Args(), " "))
		printServeHelp(ctx.stderr)
		return 2
	}
	return serveFn()
}

func runConfigCommand(ctx commandContext, args []string) int {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(ctx.stderr)
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		printConfigHelp(ctx.stdout)
		return 0
	}
	cfg, err := loadConfigFn()
	if err != nil {
		writef(ctx.stderr, "config load failed: %v\n", err)
		return 1
	}
	valid := "ok"
	if err := cfg.Validate(); err != nil {
		valid = "error: " + err.Error()
	}
	unknown := "-"
	if len(cfg.UnknownKeys) > 0 {
		unknown = strings.Join(cfg.UnknownKeys, ", ")
	}

	printHeading(ctx.stdout, "alertd configuration")
	printRows(ctx.stdout, []outputRow{
		{Key: "config file", Value: cfg.ConfigPath},
		{Key: "listen", Value: cfg.ListenAddr},
		{Key: "log level", Value: cfg.LogLevel},
		{Key: "seed alerts", Value: strconv.Itoa(len(cfg.Alerts))},
		{Key: "unknown keys", Value: unknown},
		{Key: "status", Value: valid},
	})
	if valid != "ok" {
		return 1
	}
	return 0
}

func runAlertsCommand(ctx commandContext, args []string) int {
	if len(args) == 0 {
		printAlertsHelp(ctx.stderr)
		return 2
	}

	switch args[0] {
	case "list":
		return runAlertsListCommand(ctx, args[1:])
	case "get":
		return runAlertsGetCommand(ctx, args[1:])
	case "create":
		return runAlertsCreateCommand(ctx, args[1:])
	case "patch":
		return runAlertsPatchCommand(ctx, args[1:])
	case cmdHelp, flagHelpShort, flagHelpLong:
		printAlertsHelp(ctx.stdout)
		return 0
	default:
		writef(ctx.stderr, "unknown alerts command: %s\n\n", args[0])
		printAlertsHelp(ctx.stderr)
		return 2
	}
}

// serverFlag registers -server. An empty value resolves to the configured
// listen address.
func serverFlag(fs *flag.FlagSet) *string {
	return fs.String("server", "", "alertd base URL (defaults to http://<listen>)")
}

func resolveServer(ctx commandContext, raw string) (string, bool) {
	if v := strings.TrimSpace(raw); v != "" {
		return v, true
	}
	cfg, err := loadConfigFn()
	if err != nil {
		writef(ctx.stderr, "config load failed: %v\n", err)
		return "", false
	}
	return "http://" + cfg.ListenAddr, true
}

func parseAlertID(ctx commandContext, fs *flag.FlagSet, usage func(io.Writer)) (int64, bool) {
	if fs.NArg() != 1 {
		writeln(ctx.stderr, "exactly one alert id is required")
		usage(ctx.stderr)
		return 0, false
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		writef(ctx.stderr, "invalid alert id: %s\n", fs.Arg(0))
		return 0, false
	}
	return id, true
}

func runAlertsListCommand(ctx commandContext, args []string) int {
	fs := flag.NewFlagSet("alerts list", flag.ContinueOnError)
	fs.SetOutput(ctx.stderr)
	server := serverFlag(fs)
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		printAlertsHelp(ctx.stdout)
		return 0
	}
	if fs.NArg() > 0 {
		writef(ctx.stderr, "unexpected argument(s): %s\n", strings.Join(fs.Args(), " "))
		printAlertsHelp(ctx.stderr)
		return 2
	}
	baseURL, ok := resolveServer(ctx, *server)
	if !ok {
		return 1
	}

	list, err := newClientFn(baseURL).List(context.Background())
	if err != nil {
		writef(ctx.stderr, "failed to list alerts: %v\n", err)
		return 1
	}
	if len(list) == 0 {
		writeln(ctx.stdout, "no alerts found")
		return 0
	}
	printAlertTable(ctx.stdout, list)
	return 0
}

func runAlertsGetCommand(ctx commandContext, args []string) int {
	fs := flag.NewFlagSet("alerts get", flag.ContinueOnError)
	fs.SetOutput(ctx.stderr)
	server := serverFlag(fs)
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		printAlertsHelp(ctx.stdout)
		return 0
	}
	id, ok := parseAlertID(ctx, fs, printAlertsHelp)
	if !ok {
		return 2
	}
	baseURL, ok := resolveServer(ctx, *server)
	if !ok {
		return 1
	}

	alert, err := newClientFn(baseURL).Get(context.Background(), id)
	if err != nil {
		writef(ctx.stderr, "failed to get alert: %v\n", err)
		return 1
	}
	printAlert(ctx.stdout, alert)
	return 0
}

func runAlertsCreateCommand(ctx commandContext, args []string) int {
	fs := flag.NewFlagSet("alerts create", flag.ContinueOnError)
	fs.SetOutput(ctx.stderr)
	server := serverFlag(fs)
	name := fs.String("name", "", "alert name (required)")
	frequency := fs.Float64("frequency", 0, "alert frequency")
	active := fs.Bool("active", true, "whether the alert is active")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		printAlertsHelp(ctx.stdout)
		return 0
	}
	if fs.NArg() > 0 {
		writef(ctx.stderr, "unexpected argument(s): %s\n", strings.Join(fs.Args(), " "))
		printAlertsHelp(ctx.stderr)
		return 2
	}
	if strings.TrimSpace(*name) == "" {
		writeln(ctx.stderr, "alert name is required")
		return 2
	}
	baseURL, ok := resolveServer(ctx, *server)
	if !ok {
		return 1
	}

	alert, err := newClientFn(baseURL).Create(context.Background(), alerts.AlertWrite{
		Name:      name,
		Frequency: frequency,
		Active:    active,
	})
	if err != nil {
		writef(ctx.stderr, "failed to create alert: %v\n", err)
		return 1
	}
	printNotice(ctx.stdout, fmt.Sprintf("alert %d created", alert.ID))
	printAlert(ctx.stdout, alert)
	return 0
}

func runAlertsPatchCommand(ctx commandContext, args []string) int {
	fs := flag.NewFlagSet("alerts patch", flag.ContinueOnError)
	fs.SetOutput(ctx.stderr)
	server := serverFlag(fs)
	name := fs.String("name", "", "new alert name")
	frequency := fs.Float64("frequency", 0, "new alert frequency")
	active := fs.Bool("active", false, "new active state")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		printAlertsHelp(ctx.stdout)
		return 0
	}
	id, ok := parseAlertID(ctx, fs, printAlertsHelp)
	if !ok {
		return 2
	}

	fields := map[string]any{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			fields["name"] = *name
		case "frequency":
			fields["frequency"] = *frequency
		case "active":
			fields["active"] = *active
		}
	})
	if len(fields) == 0 {
		writeln(ctx.stderr, "nothing to patch: set -name, -frequency or -active")
		return 2
	}
	baseURL, ok := resolveServer(ctx, *server)
	if !ok {
		return 1
	}

	alert, err := newClientFn(baseURL).Patch(context.Background(), id, fields)
	if err != nil {
		writef(ctx.stderr, "failed to patch alert: %v\n", err)
		return 1
	}
	printAlert(ctx.stdout, alert)
	return 0
}

func printRootHelp(w io.Writer) {
	writeln(w, "Usage:")
	writeln(w, "  alertd [command]")
	writeln(w, "")
	writeln(w, "Commands:")
	writeln(w, "  serve      Start the alerts API server (default)")
	writeln(w, "  config     Show the resolved configuration")
	writeln(w, "  alerts     Query and edit alerts on a running server")
	writeln(w, "  version    Print the version")
}

func printServeHelp(w io.Writer) {
	writeln(w, "Usage:")
	writeln(w, "  alertd serve")
	writeln(w, "")
	writeln(w, "Starts the alertd server using config file/env defaults.")
}

func printConfigHelp(w io.Writer) {
	writeln(w, "Usage:")
	writeln(w, "  alertd config")
}

func printAlertsHelp(w io.Writer) {
	writeln(w, "Usage:")
	writeln(w, "  alertd alerts list [-server URL]")
	writeln(w, "  alertd alerts get [-server URL] ID")
	writeln(w, "  alertd alerts create [-server URL] -name NAME [-frequency F] [-active=true]")
	writeln(w, "  alertd alerts patch [-server URL] [-name NAME] [-frequency F] [-active=BOOL] ID")
}

func currentVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok {
		if strings.TrimSpace(bi.Main.Version) != "" && bi.Main.Version != "(devel)" {
			return bi.Main.Version
		}
	}
	return "dev"
}
