// Package cli provides the command-line interface for seano. It is ambient
// wiring around the query engine (spec.md's non-goals) and carries no
// invariants of its own.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/relicta-tech/seano/internal/domain/seano"
	"github.com/relicta-tech/seano/internal/infrastructure/gitprobe"
	"github.com/relicta-tech/seano/internal/infrastructure/notesfs"
	"github.com/relicta-tech/seano/internal/infrastructure/yamlconfig"
	"github.com/relicta-tech/seano/internal/infrastructure/yamlnotes"
)

var (
	dbPath          string
	annexPath       string
	includeModified bool
	logLevel        string

	logger *log.Logger
)

// rootCmd is seano's base command.
var rootCmd = &cobra.Command{
	Use:   "seano",
	Short: "Query the release-notes database",
	Long: `seano reads a release-notes database — a configuration document, a
tree of note files, and optionally a version-control history — and prints
the resulting document describing every release, its ancestry, and the
notes attached to it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = log.NewWithOptions(os.Stderr, log.Options{Level: parseLevel(logLevel)})
		viper.SetEnvPrefix("SEANO")
		viper.AutomaticEnv()
		return nil
	},
}

func parseLevel(s string) log.Level {
	lvl, err := log.ParseLevel(s)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", ".", "path to the release-notes database")
	rootCmd.PersistentFlags().StringVar(&annexPath, "annex", "", "path to an optional annex configuration")
	rootCmd.PersistentFlags().BoolVar(&includeModified, "include-modified", false, "emit note events for modified note files")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run the query engine and print the resulting document as YAML",
	RunE:  runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	configPath := filepath.Join(dbPath, "seano-config.yaml")
	notesRoot := filepath.Join(dbPath, "v1")

	loader := yamlconfig.New()
	if annexPath != "" {
		loader = loader.WithAnnex(annexPath)
	}
	docs, err := loader.LoadConfig(ctx, configPath)
	if err != nil {
		return err
	}

	merged, err := seano.MergeConfigDocs(docs...)
	if err != nil {
		return err
	}
	cfg, err := seano.NormalizeConfig(merged)
	if err != nil {
		return err
	}

	noteLoader := yamlnotes.New()
	in := seano.QueryInput{
		ConfigDocs: docs,
		NoteLoader: noteLoader,
		Log:        slog.Default(),
	}

	probe := gitprobe.New(dbPath)
	if ok, _ := probe.IsRepository(ctx, dbPath); ok {
		logger.Debug("repository detected, using gitprobe scanner", "path", dbPath)
		in.Repository = gitprobe.NewScanner(probe, dbPath, cfg.RefParsers, cfg.DeletedReleases, includeModified)
	} else {
		logger.Debug("no repository detected, falling back to filesystem scanner", "path", notesRoot)
		in.Notes = notesfs.New(notesRoot)
	}

	doc, err := seano.Query(ctx, in)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(documentToYAML(doc))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

func documentToYAML(doc *seano.Document) map[string]any {
	out := map[string]any{}
	for k, v := range doc.Extra {
		out[k] = v
	}
	out["current_version"] = doc.CurrentVersion
	releases := make([]map[string]any, 0, len(doc.Releases))
	for _, r := range doc.Releases {
		releases = append(releases, releaseViewToYAML(r))
	}
	out["releases"] = releases
	return out
}

func releaseViewToYAML(r *seano.ReleaseView) map[string]any {
	out := map[string]any{}
	for k, v := range r.Extra {
		out[k] = v
	}
	out["name"] = r.Name
	out["before"] = ancestryToYAML(r.Before)
	out["after"] = ancestryToYAML(r.After)
	if r.Commit != nil {
		out["commit"] = *r.Commit
	}
	notes := make([]map[string]any, 0, len(r.Notes))
	for _, n := range r.Notes {
		notes = append(notes, noteViewToYAML(n))
	}
	out["notes"] = notes
	return out
}

func ancestryToYAML(refs []seano.AncestryRefView) []map[string]any {
	out := make([]map[string]any, 0, len(refs))
	for _, ref := range refs {
		entry := map[string]any{"name": ref.Name}
		for k, v := range ref.Extra {
			entry[k] = v
		}
		out = append(out, entry)
	}
	return out
}

func noteViewToYAML(n *seano.NoteView) map[string]any {
	out := map[string]any{}
	for k, v := range n.Extra {
		out[k] = v
	}
	out["id"] = n.ID
	out["releases"] = n.Releases
	if len(n.Commits) > 0 {
		out["commits"] = n.Commits
	}
	return out
}
