package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/oshokin/yale-alarm/internal/logger"
	"github.com/oshokin/yale-alarm/internal/service/common"
	"github.com/oshokin/yale-alarm/yale"
)

// Report kinds.
const (
	KindDevices   = "devices"
	KindContacts  = "contacts"
	KindHealth    = "health"
	KindOnline    = "online"
	KindHistory   = "history"
	KindInfo      = "info"
	KindCycle     = "cycle"
	KindAuthCheck = "auth-check"
)

// Options configures the report command.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// Output receives the report, stdout if nil.
	Output io.Writer
	// Kind selects the report.
	Kind string
}

// errUnknownKind is returned for an unsupported report kind.
var errUnknownKind = errors.New("unknown report kind")

// rawReports maps the schemaless report kinds to their panel calls.
func rawReports(panel *yale.PanelService) map[string]func(context.Context) (json.RawMessage, error) {
	return map[string]func(context.Context) (json.RawMessage, error){
		KindOnline:    panel.Online,
		KindHistory:   panel.History,
		KindInfo:      panel.PanelInfo,
		KindCycle:     panel.Cycle,
		KindAuthCheck: panel.AuthCheck,
	}
}

// Kinds lists every supported report kind.
func Kinds() []string {
	return []string{
		KindDevices, KindContacts, KindHealth,
		KindOnline, KindHistory, KindInfo, KindCycle, KindAuthCheck,
	}
}

// Run fetches and prints the selected report.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithKV(logger.WithName(ctx, "report"), "kind", opts.Kind)

	if !slices.Contains(Kinds(), opts.Kind) {
		return fmt.Errorf("%w: %q", errUnknownKind, opts.Kind)
	}

	session, err := common.Open(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	panel := session.Client.Panel
	w := output(opts)

	switch opts.Kind {
	case KindDevices:
		return printDevices(ctx, panel, w)
	case KindContacts:
		return printContacts(ctx, panel, w)
	case KindHealth:
		return printHealth(ctx, panel, w)
	default:
		raw, err := rawReports(panel)[opts.Kind](ctx)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", opts.Kind, err)
		}

		return printJSON(w, raw)
	}
}

func printDevices(ctx context.Context, panel *yale.PanelService, w io.Writer) error {
	devices, err := panel.Devices(ctx)
	if err != nil {
		return fmt.Errorf("fetch devices: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tTYPE\tAREA\tZONE\tSTATUS")

	for _, d := range devices {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.Type, d.Area, d.Zone, d.Status)
	}

	return tw.Flush()
}

func printContacts(ctx context.Context, panel *yale.PanelService, w io.Writer) error {
	contacts, err := panel.DoorContacts(ctx)
	if err != nil {
		return fmt.Errorf("fetch door contacts: %w", err)
	}

	for _, name := range slices.Sorted(maps.Keys(contacts)) {
		if _, err := fmt.Fprintf(w, "%s: %s\n", name, contacts[name]); err != nil {
			return err
		}
	}

	return nil
}

func printHealth(ctx context.Context, panel *yale.PanelService, w io.Writer) error {
	health, err := panel.Health(ctx)
	if err != nil {
		return fmt.Errorf("fetch health: %w", err)
	}

	_, err = fmt.Fprintf(w, "ac: %s\nbattery: %s\ntamper: %s\njam: %s\nok: %t\n",
		health.ACFail, health.Battery, health.Tamper, health.Jam, health.OK())

	return err
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("format report: %w", err)
	}

	buf.WriteByte('\n')

	_, err := buf.WriteTo(w)

	return err
}

func output(opts *Options) io.Writer {
	if opts.Output != nil {
		return opts.Output
	}

	return os.Stdout
}
