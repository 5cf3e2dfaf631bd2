package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/breakbot/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	validateDump bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the BreakBot configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with defaults highlighted")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	// Check for unknown keys (always, not just with --dump)
	unknownKeys, err := config.UnknownKeys(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "⚠️  Warning: Could not check for unknown keys: %v\n", err)
	}

	source := configPath
	if source == "" {
		source = "(default search path)"
	}
	_, _ = fmt.Fprintf(os.Stdout, "✅ Configuration is valid: %s\n", source)

	if err := cfg.RequireTelegram(); err != nil {
		yellow := color.New(color.FgYellow)
		_, _ = yellow.Fprintf(os.Stdout, "⚠️  %v\n", err)
	}

	// Warn about unknown keys
	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		fmt.Fprintln(os.Stdout)
		_, _ = red.Fprintf(os.Stdout, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			_, _ = red.Fprintf(os.Stdout, "   - %s\n", key)
		}
		fmt.Fprintln(os.Stdout, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	if validateDump {
		_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
		_, _ = fmt.Fprintln(os.Stdout, "FULL CONFIGURATION (values different from defaults are highlighted)")
		_, _ = fmt.Fprintln(os.Stdout, strings.Repeat("=", 80))

		if err := dumpConfig(cfg, config.Defaults()); err != nil {
			return err
		}

		_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
	}

	return nil
}

// dumpConfig prints every setting, highlighting the ones changed from default
func dumpConfig(cfg, defaultCfg *config.Config) error {
	current, err := flattenConfig(redacted(cfg))
	if err != nil {
		return err
	}
	defaults, err := flattenConfig(redacted(defaultCfg))
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)

	keys := make([]string, 0, len(current))
	for key := range current {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	section := ""
	for _, key := range keys {
		top, _, _ := strings.Cut(key, ".")
		if top != section {
			section = top
			_, _ = cyan.Printf("\n[%s]\n", section)
		}

		value := current[key]
		def, known := defaults[key]
		switch {
		case !known:
			_, _ = yellow.Printf("  %s = %s  (not set by default)\n", key, value)
		case value != def:
			_, _ = yellow.Printf("  %s = %s  (modified from default: %s)\n", key, value, def)
		default:
			_, _ = green.Printf("  %s = %s\n", key, value)
		}
	}

	return nil
}

// flattenConfig renders cfg as dotted keys mapped to their YAML scalar values
func flattenConfig(cfg *config.Config) (map[string]string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	out := make(map[string]string)
	flatten("", tree, out)
	return out, nil
}

func flatten(prefix string, node any, out map[string]string) {
	switch v := node.(type) {
	case map[string]any:
		for key, child := range v {
			name := key
			if prefix != "" {
				name = prefix + "." + key
			}
			flatten(name, child, out)
		}
	default:
		out[prefix] = fmt.Sprintf("%v", v)
	}
}

// redacted returns a copy of cfg with secrets masked
func redacted(cfg *config.Config) *config.Config {
	c := *cfg
	c.Telegram.Token = redactSecret(c.Telegram.Token)
	c.Storage.Redis.Password = redactSecret(c.Storage.Redis.Password)
	return &c
}

// redactSecret redacts a secret if not empty
func redactSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return "***REDACTED***"
}
