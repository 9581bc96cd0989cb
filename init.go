package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const (
	sentinelStart = "# funclens:start"
	sentinelEnd   = "# funclens:end"
)

// newInitCmd implements `funclens init`, which writes (or updates) the
// default profile block in a funclens.toml file.
func newInitCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default config file",
		Long: `Write the default profile to a funclens.toml file. The block is
wrapped in sentinel comments so it can be updated in place on
subsequent runs without touching surrounding content. Creates the
file if it does not exist.

path defaults to the user config location.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			section := defaultConfigSection()

			// --dry-run with no path: just print the block itself.
			if dryRun && len(args) == 0 {
				fmt.Println(section)
				return nil
			}

			path := defaultConfigPath()
			if len(args) > 0 {
				path = args[0]
			}

			existing, _ := os.ReadFile(path)
			updated := applySection(string(existing), section)

			if dryRun {
				fmt.Print(updated)
				return nil
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
			}
			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			fmt.Fprintf(os.Stderr, "wrote default profile to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

// defaultConfigSection returns the sentinel-wrapped default profile in
// TOML form, matching config.DefaultProfile.
func defaultConfigSection() string {
	body := `[[profiles]]
name = "default"
debounce_ms = 500
provider_timeout_ms = 5000

[profiles.style]
placement = "above"       # above | inline
separator = " • "
prefix = ""
highlight = "comment"
use_nerdfont = false

[profiles.limits]
max_lines = 1000
max_lenses = 70
exclude_patterns = []
exclude_gitignored = false

[[profiles.providers]]
name = "references"

[[profiles.providers]]
name = "last_author"`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing
// sentinel block if present or appending if not. It is a pure function
// for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
