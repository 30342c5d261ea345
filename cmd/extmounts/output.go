package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/marmos91/extmounts/pkg/mount"
	"gopkg.in/yaml.v3"
)

const maskedSecret = "********"

// printer renders mounts in one output format.
type printer struct {
	format       string
	secretFields []string
	out          io.Writer

	// owner is set for personal scopes, whose records carry no applicables.
	owner string
}

func newPrinter(format string, secretFields []string) (*printer, error) {
	switch format {
	case "table", "json", "yaml":
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
	return &printer{format: format, secretFields: secretFields, out: os.Stdout}, nil
}

// mask hides non-empty secret options.
func (p *printer) mask(cfg *mount.MountConfig) *mount.MountConfig {
	if len(p.secretFields) == 0 {
		return cfg
	}
	masked := cfg.Clone()
	for _, field := range p.secretFields {
		if v, ok := masked.BackendOptions[field].(string); ok && v != "" {
			masked.BackendOptions[field] = maskedSecret
		}
	}
	return masked
}

func (p *printer) printMounts(configs []*mount.MountConfig) error {
	masked := make([]*mount.MountConfig, 0, len(configs))
	for _, cfg := range configs {
		masked = append(masked, p.mask(cfg))
	}

	switch p.format {
	case "json":
		return p.json(masked)
	case "yaml":
		return p.yaml(masked)
	default:
		return p.table(masked)
	}
}

func (p *printer) printMount(cfg *mount.MountConfig) error {
	masked := p.mask(cfg)

	switch p.format {
	case "json":
		return p.json(masked)
	case "yaml":
		return p.yaml(masked)
	default:
		if err := p.table([]*mount.MountConfig{masked}); err != nil {
			return err
		}
		return p.options(masked)
	}
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) yaml(v any) error {
	enc := yaml.NewEncoder(p.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (p *printer) table(configs []*mount.MountConfig) error {
	w := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMOUNT POINT\tBACKEND\tAPPLICABLE\tPRIORITY\tSTATUS")
	for _, cfg := range configs {
		fmt.Fprintf(w, "%d\t/%s\t%s\t%s\t%s\t%s\n",
			cfg.ID, cfg.MountPoint, cfg.BackendClass, p.applicableColumn(cfg), priorityColumn(cfg), statusColumn(cfg))
	}
	return w.Flush()
}

func (p *printer) options(cfg *mount.MountConfig) error {
	if len(cfg.BackendOptions) == 0 {
		return nil
	}
	w := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nOPTION\tVALUE")
	for _, key := range slices.Sorted(maps.Keys(cfg.BackendOptions)) {
		fmt.Fprintf(w, "%s\t%v\n", key, cfg.BackendOptions[key])
	}
	return w.Flush()
}

func (p *printer) applicableColumn(cfg *mount.MountConfig) string {
	if p.owner != "" {
		return "user:" + p.owner
	}
	if cfg.AppliesToAll() {
		return mount.ApplicableAll
	}
	parts := make([]string, 0, len(cfg.ApplicableUsers)+len(cfg.ApplicableGroups))
	for _, user := range cfg.ApplicableUsers {
		parts = append(parts, "user:"+user)
	}
	for _, group := range cfg.ApplicableGroups {
		parts = append(parts, "group:"+group)
	}
	return strings.Join(parts, ",")
}

func priorityColumn(cfg *mount.MountConfig) string {
	if cfg.Priority == nil {
		return "-"
	}
	return strconv.Itoa(*cfg.Priority)
}

func statusColumn(cfg *mount.MountConfig) string {
	if cfg.Status == nil {
		return "-"
	}
	return cfg.Status.String()
}
