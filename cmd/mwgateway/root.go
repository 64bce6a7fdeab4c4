package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/olgasafonova/mediawiki-gateway/wiki"
	"github.com/spf13/cobra"
)

// DefaultSummary is the edit summary used when --summary is not given.
const DefaultSummary = "Automated edit via mediawiki-gateway"

// rootOptions holds the global flags.
type rootOptions struct {
	URL       string
	Host      string
	HostsFile string
	Username  string
	Password  string
	Domain    string
	Summary   string
	LogLevel  string
}

// app carries the gateway built in PersistentPreRunE to the subcommands.
type app struct {
	opts    rootOptions
	gateway *wiki.Gateway
	logger  *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "mwgateway",
		Short: "Command line client for MediaWiki wikis",
		Long: `mwgateway talks to a MediaWiki wiki through its XML API.

The wiki is selected with --url or with a profile from config/hosts.yml
(--host). When a username is given the session logs in first.

Examples:
  mwgateway -u https://wiki.example.org/w/api.php get "Main Page"
  mwgateway -h production -s "Fix typo" create Sandbox < page.wiki
  mwgateway -u http://localhost/api.php search --limit 10 kittens`,
		Version:       wiki.LibraryVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.opts.URL, "url", "u", "", "MediaWiki API URL")
	pf.StringVarP(&a.opts.Host, "host", "h", "", "use preconfigured HOST from the hosts file")
	pf.StringVar(&a.opts.HostsFile, "hosts-file", DefaultHostsFile, "hosts file for --host")
	pf.StringVarP(&a.opts.Username, "username", "n", "", "username for login")
	pf.StringVarP(&a.opts.Password, "password", "p", "", "password for login")
	pf.StringVar(&a.opts.Domain, "domain", "", "login domain (LDAP wikis)")
	pf.StringVarP(&a.opts.Summary, "summary", "s", DefaultSummary, "edit summary for this change")
	pf.StringVar(&a.opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		a.newGetCmd(),
		a.newCreateCmd(),
		a.newDeleteCmd(),
		a.newUndeleteCmd(),
		a.newListCmd(),
		a.newSearchCmd(),
		a.newExportCmd(),
		a.newImportCmd(),
		a.newUploadCmd(),
		a.newEmailCmd(),
		a.newSemanticQueryCmd(),
		a.newSiteinfoCmd(),
	)
	return cmd
}

// setup resolves the host profile, builds the gateway and logs in.
func (a *app) setup(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if a.opts.Host != "" {
		host, err := loadHost(a.opts.HostsFile, a.opts.Host)
		if err != nil {
			return err
		}
		if !flags.Changed("url") {
			a.opts.URL = host.URL
		}
		if !flags.Changed("username") {
			a.opts.Username = host.User
		}
		if !flags.Changed("password") {
			a.opts.Password = host.Password
		}
	}
	if a.opts.URL == "" {
		return errors.New("URL (-u) or valid host (-h) is mandatory")
	}

	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: parseLevel(a.opts.LogLevel),
	}))
	a.gateway = wiki.NewGateway(wiki.DefaultConfig(a.opts.URL), a.logger)

	if a.opts.Username != "" {
		if err := a.gateway.Login(cmd.Context(), a.opts.Username, a.opts.Password, a.opts.Domain); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
	}
	return nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelWarn
	}
	return level
}

// readInput returns all of the command's stdin.
func readInput(cmd *cobra.Command) (string, error) {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(data), nil
}
