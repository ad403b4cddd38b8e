// Package cmd provides the quill command-line interface.
//
// Configuration is layered, highest priority first:
//  1. Command-line flags (--port, --posts-dir, ...)
//  2. QUILL_<SECTION>_<OPTION> environment variables
//  3. A .quill.yml config file in the working directory
//  4. Built-in defaults
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "A file-backed personal blog engine",
	Long: `Quill serves a directory of markdown posts as a blog, with tiered
caching, file-watch invalidation, tag topics, search, feeds, and view
counts. It can also render the whole site to static files and syndicate
posts to an AT Protocol record service.

Quick start:
  quill serve                     Serve the blog
  quill build                     Render the site to static files
  quill publish                   Push posts to the syndication service
  quill version                   Show build information`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .quill.yml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("QUILL_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".quill")
	}

	viper.SetEnvPrefix("QUILL")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
