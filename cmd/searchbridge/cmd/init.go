package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/searchbridge/configs"
)

func newInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a starter configuration and schema",
		Long: `Write searchbridge.yaml and schema.json into dir (default: the current
directory). Existing files are kept unless --force is given.`,
		Example: `  searchbridge init
  searchbridge init ./project --force`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{annotationNoConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd, a, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	return cmd
}

type initResult struct {
	Written []string `json:"written"`
	Skipped []string `json:"skipped"`
}

func runInit(cmd *cobra.Command, a *app, dir string, force bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	files := []struct{ name, content string }{
		{"searchbridge.yaml", configs.ProjectConfigTemplate},
		{"schema.json", configs.SchemaTemplate},
	}
	res := initResult{Written: []string{}, Skipped: []string{}}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); err == nil && !force {
			res.Skipped = append(res.Skipped, path)
			continue
		}
		if err := os.WriteFile(path, []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		res.Written = append(res.Written, path)
	}

	out := a.out(cmd)
	if out.JSON() {
		return out.Encode(res)
	}
	for _, p := range res.Written {
		out.Successf("Created %s", p)
	}
	for _, p := range res.Skipped {
		out.Warningf("%s exists, use --force to overwrite", p)
	}
	if len(res.Written) > 0 {
		out.Status("📋", "Next: edit schema.json, then run 'searchbridge index <dir>'")
	}
	return nil
}
