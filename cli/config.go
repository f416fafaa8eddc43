package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/compozy/groupops/pkg/config"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))

// ConfigCmd returns the config command
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration inspection",
	}
	cmd.AddCommand(configShowCmd(), configValidateCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	var (
		format      string
		showSources bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration values and their sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, service, err := loadConfig(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			values := flattenConfig(cfg)
			sources := make(map[string]config.SourceType, len(values))
			for key := range values {
				sources[key] = service.GetSource(key)
			}
			return formatConfigOutput(cmd.OutOrStdout(), values, sources, format, showSources)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (json, yaml, table)")
	cmd.Flags().BoolVarP(&showSources, "sources", "s", false, "Show configuration sources")
	return cmd
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, _, err := loadConfig(cmd.Context(), cmd); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "✅ Configuration is valid")
			return err
		},
	}
}

func formatConfigOutput(
	w io.Writer,
	values map[string]string,
	sources map[string]config.SourceType,
	format string,
	showSources bool,
) error {
	output := map[string]any{"config": values}
	if showSources {
		output["sources"] = sources
	}
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(output)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		return encoder.Encode(output)
	case "table":
		return outputTable(w, values, sources, showSources)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func outputTable(out io.Writer, values map[string]string, sources map[string]config.SourceType, showSources bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if showSources {
		fmt.Fprintln(w, headerStyle.Render("KEY")+"\t"+headerStyle.Render("VALUE")+"\t"+headerStyle.Render("SOURCE"))
	} else {
		fmt.Fprintln(w, headerStyle.Render("KEY")+"\t"+headerStyle.Render("VALUE"))
	}
	for _, key := range keys {
		if showSources {
			fmt.Fprintf(w, "%s\t%s\t%s\n", key, values[key], sources[key])
		} else {
			fmt.Fprintf(w, "%s\t%s\n", key, values[key])
		}
	}
	return w.Flush()
}

// flattenConfig renders every leaf under its koanf path. Sensitive values
// go through their String method and stay redacted.
func flattenConfig(cfg *config.Config) map[string]string {
	out := make(map[string]string)
	flattenValue("", reflect.ValueOf(cfg).Elem(), out)
	return out
}

var durationType = reflect.TypeOf(time.Duration(0))

func flattenValue(prefix string, val reflect.Value, out map[string]string) {
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("koanf")
		if !field.IsExported() || tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		fieldVal := val.Field(i)
		if fieldVal.Kind() == reflect.Struct && field.Type != durationType {
			flattenValue(key, fieldVal, out)
			continue
		}
		if s, ok := fieldVal.Interface().(fmt.Stringer); ok {
			out[key] = s.String()
			continue
		}
		out[key] = fmt.Sprintf("%v", fieldVal.Interface())
	}
}
