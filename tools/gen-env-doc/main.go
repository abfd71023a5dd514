//go:build ignore
// +build ignore

// Renders docs/environment.md out of config.EnvSpecs. Run through go generate
// from internal/config.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cfg "github.com/ArkLabsHQ/lnwatch/internal/config"
)

const outFile = "../../docs/environment.md"

func main() {
	var b strings.Builder

	b.WriteString("# Environment Variables\n\n")
	b.WriteString("lnwatch is configured only through `LNWATCH_` prefixed environment variables, ")
	b.WriteString("optionally loaded from a `.env` file in the working directory.\n\n")
	b.WriteString("Generated from `config.EnvSpecs()`. **Do not edit manually.**\n\n")
	b.WriteString("| Variable | Default | Type | Description | Notes |\n")
	b.WriteString("|----------|---------|------|-------------|-------|\n")

	for _, s := range cfg.EnvSpecs() {
		def := "-"
		if s.Default != "" {
			def = "`" + s.Default + "`"
		}
		fmt.Fprintf(
			&b, "| `%s` | %s | %s | %s | %s |\n",
			s.FullName, def, s.Type, s.Description, escape(s.Notes),
		)
	}

	if err := os.MkdirAll(filepath.Dir(outFile), 0o755); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := os.WriteFile(outFile, []byte(b.String()), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
