package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillhost/quill/internal/config"
	"github.com/quillhost/quill/internal/errors"
	"github.com/quillhost/quill/internal/syndication"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Push posts to the syndication service",
	Long: `Publish every local post to the configured AT Protocol record
collection, keyed by slug, and delete remote records whose post no longer
exists locally. A post that fails to publish is reported and skipped.

Requires syndication.service_url and syndication.did in config, or the
QUILL_SYNDICATION_SERVICE_URL and QUILL_SYNDICATION_DID variables.`,
	RunE: runPublish,
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fetch syndicated posts back into the posts directory",
	Long: `Fetch every record from the syndication collection and write each one
back as a markdown post file. Existing files are kept unless --overwrite
is set.`,
	RunE: runPull,
}

func init() {
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(pullCmd)

	publishCmd.Flags().String("service-url", "", "Syndication service base URL")
	publishCmd.Flags().String("did", "", "Repository DID to publish under")

	pullCmd.Flags().Bool("overwrite", false, "Overwrite existing post files")
	pullCmd.Flags().String("service-url", "", "Syndication service base URL")
	pullCmd.Flags().String("did", "", "Repository DID to pull from")
}

// applySyndicationFlags lets per-command flags override the loaded config.
// These flags are not viper-bound because both commands share the keys.
func applySyndicationFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("service-url"); v != "" {
		cfg.Syndication.ServiceURL = v
	}
	if v, _ := cmd.Flags().GetString("did"); v != "" {
		cfg.Syndication.DID = v
	}
}

func newSyncer(cfg *config.Config) (*syndication.Syncer, error) {
	if cfg.Syndication.ServiceURL == "" || cfg.Syndication.DID == "" {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			"syndication requires service_url and did")
	}

	logger := newLogger(cfg)
	client := syndication.NewClient(cfg.Syndication.ServiceURL, cfg.Syndication.Timeout, logger)
	if cfg.Syndication.AccessToken != "" {
		client = client.WithToken(cfg.Syndication.AccessToken)
	}

	return syndication.NewSyncer(client, cfg.Syndication.DID, cfg.Syndication.Collection,
		cfg.Content.PostsDir, logger), nil
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applySyndicationFlags(cmd, cfg)

	syncer, err := newSyncer(cfg)
	if err != nil {
		return err
	}

	result, err := syncer.Publish(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Published %d post(s), deleted %d orphaned record(s)\n",
		result.Published, result.Deleted)

	return reportSyncErrors(cmd, result)
}

func runPull(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applySyndicationFlags(cmd, cfg)

	syncer, err := newSyncer(cfg)
	if err != nil {
		return err
	}

	overwrite, _ := cmd.Flags().GetBool("overwrite")

	result, err := syncer.Pull(cmd.Context(), cfg.Content.PostsDir, overwrite)
	if err != nil {
		return err
	}

	fmt.Printf("Pulled %d post(s), skipped %d existing file(s)\n",
		result.Pulled, result.Skipped)

	return reportSyncErrors(cmd, result)
}

// reportSyncErrors prints every per-record failure and returns a non-nil
// error so partial failures exit non-zero.
func reportSyncErrors(cmd *cobra.Command, result *syndication.SyncResult) error {
	if !result.Failed() {
		return nil
	}

	fmt.Printf("%d record(s) failed:\n", len(result.Errors))
	for _, le := range result.Errors {
		fmt.Printf("  %s: %v\n", le.Slug, le.Err)
	}

	cmd.SilenceUsage = true

	return fmt.Errorf("%d record(s) failed to sync", len(result.Errors))
}
