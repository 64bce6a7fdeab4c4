package main

import (
	"fmt"
	"sort"

	"github.com/olgasafonova/mediawiki-gateway/wiki"
	"github.com/spf13/cobra"
)

func (a *app) newGetCmd() *cobra.Command {
	var (
		html    bool
		section string
	)
	cmd := &cobra.Command{
		Use:   "get TITLE",
		Short: "Print a page's current wikitext",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				content string
				ok      bool
				err     error
			)
			if html {
				content, ok, err = a.gateway.Render(cmd.Context(), args[0], wiki.RenderOptions{NoEditSections: true})
			} else {
				var extra *wiki.Params
				if section != "" {
					extra = wiki.NewParams("rvsection", section)
				}
				content, ok, err = a.gateway.Get(cmd.Context(), args[0], extra)
			}
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("page %q does not exist", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), content)
			return nil
		},
	}
	cmd.Flags().BoolVar(&html, "html", false, "print rendered HTML instead of wikitext")
	cmd.Flags().StringVar(&section, "section", "", "only fetch this section number")
	return cmd
}

func (a *app) newCreateCmd() *cobra.Command {
	var createOnly bool
	cmd := &cobra.Command{
		Use:   "create TITLE",
		Short: "Create or overwrite a page with wikitext read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(cmd)
			if err != nil {
				return err
			}
			doc, err := a.gateway.Create(cmd.Context(), args[0], content, wiki.CreateOptions{
				Overwrite: !createOnly,
				Summary:   a.opts.Summary,
			})
			if err != nil {
				return err
			}
			edit := doc.Child("edit")
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (revision %s)\n", args[0], edit.AttrValue("result"), edit.AttrValue("newrevid"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&createOnly, "create-only", false, "fail if the page already exists")
	return cmd
}

func (a *app) newDeleteCmd() *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "delete [TITLE...]",
		Short: "Delete pages by title or by title prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			titles := args
			if prefix != "" {
				listed, err := a.gateway.List(cmd.Context(), prefix, nil)
				if err != nil {
					return err
				}
				titles = append(titles, listed...)
			}
			if len(titles) == 0 {
				return fmt.Errorf("no pages to delete")
			}
			for _, title := range titles {
				if _, err := a.gateway.Delete(cmd.Context(), title, wiki.DeleteOptions{Reason: a.opts.Summary}); err != nil {
					return fmt.Errorf("failed to delete %s: %w", title, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", title)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "also delete every page starting with this prefix")
	return cmd
}

func (a *app) newUndeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undelete TITLE...",
		Short: "Restore deleted revisions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, title := range args {
				n, err := a.gateway.Undelete(cmd.Context(), title, wiki.UndeleteOptions{Reason: a.opts.Summary})
				if err != nil {
					return fmt.Errorf("failed to undelete %s: %w", title, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d revisions restored\n", title, n)
			}
			return nil
		},
	}
}

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [PREFIX]",
		Short: "List page titles starting with PREFIX (may include a namespace)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) > 0 {
				prefix = args[0]
			}
			titles, err := a.gateway.List(cmd.Context(), prefix, nil)
			if err != nil {
				return err
			}
			printLines(cmd, titles)
			return nil
		},
	}
}

func (a *app) newSearchCmd() *cobra.Command {
	var (
		namespaces []string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "search KEY",
		Short: "Search page contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			titles, err := a.gateway.Search(cmd.Context(), args[0], wiki.SearchOptions{
				Namespaces: namespaces,
				Limit:      limit,
				MaxResults: limit,
			})
			if err != nil {
				return err
			}
			printLines(cmd, titles)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&namespaces, "namespace", nil, "namespace names to search (default main)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of hits")
	return cmd
}

func (a *app) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export TITLE...",
		Short: "Print an XML dump of pages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.gateway.Export(cmd.Context(), args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), doc.XML())
			return nil
		},
	}
}

func (a *app) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a MediaWiki XML dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.gateway.Import(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, page := range doc.PathAll("import/page") {
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s revisions)\n", page.AttrValue("title"), page.AttrValue("revisions"))
			}
			return nil
		},
	}
}

func (a *app) newUploadCmd() *cobra.Command {
	var (
		target      string
		description string
		force       bool
	)
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.gateway.Upload(cmd.Context(), args[0], wiki.UploadOptions{
				Filename:       target,
				Text:           description,
				Comment:        a.opts.Summary,
				IgnoreWarnings: force,
			})
			if err != nil {
				return err
			}
			upload := doc.Child("upload")
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", upload.AttrValue("filename"), upload.AttrValue("result"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "target-file", "t", "", "target file name (default: base name of FILE)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "description page text")
	cmd.Flags().BoolVar(&force, "ignore-warnings", false, "overwrite an existing file")
	return cmd
}

func (a *app) newEmailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "email USER SUBJECT",
		Short: "Email a registered user; the body is read from stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readInput(cmd)
			if err != nil {
				return err
			}
			sent, err := a.gateway.EmailUser(cmd.Context(), args[0], args[1], body)
			if err != nil {
				return err
			}
			if !sent {
				return fmt.Errorf("email to %s was not sent", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent email to %s\n", args[0])
			return nil
		},
	}
}

func (a *app) newSemanticQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "semantic-query QUERY [PRINTOUT...]",
		Short: "Run a Semantic MediaWiki #ask query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.gateway.SemanticQuery(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func (a *app) newSiteinfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "siteinfo",
		Short: "Print general site information and installed extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			general, err := a.gateway.Siteinfo(cmd.Context(), nil)
			if err != nil {
				return err
			}
			extensions, err := a.gateway.Extensions(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, key := range sortedKeys(general) {
				fmt.Fprintf(out, "%s: %s\n", key, general[key])
			}
			for _, name := range sortedKeys(extensions) {
				fmt.Fprintf(out, "extension %s: %s\n", name, extensions[name])
			}
			return nil
		},
	}
}

func printLines(cmd *cobra.Command, lines []string) {
	out := cmd.OutOrStdout()
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
