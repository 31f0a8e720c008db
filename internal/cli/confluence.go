package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dverbeek/agent-skills/internal/atlassian/confluence"
	"github.com/dverbeek/agent-skills/internal/output"
)

var confluenceCmd = &cobra.Command{
	Use:   "confluence",
	Short: "Search, read and update Confluence pages",
}

var (
	confSearchCQL   string
	confSearchSpace string
	confSearchLimit int

	confViewComments bool

	confCreateSpace  string
	confCreateTitle  string
	confCreateBody   string
	confCreateParent string

	confUpdateTitle string
	confUpdateBody  string

	confCommentBody string

	confSpacesLimit int

	confAPIHeaders []string
	confAPIBody    string
)

var confluenceSearchCmd = &cobra.Command{
	Use:   "search [TEXT]",
	Short: "Search pages by free text or CQL",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := confluenceService(cmd.Context())
		if err != nil {
			return err
		}

		opts := confluence.SearchOptions{
			CQL:   confSearchCQL,
			Space: confSearchSpace,
			Limit: confSearchLimit,
		}
		if len(args) == 1 {
			opts.Text = args[0]
		}

		result, err := svc.Search(cmd.Context(), opts)
		if err != nil {
			return err
		}
		return renderPageList(printer, result)
	},
}

var confluenceViewCmd = &cobra.Command{
	Use:   "view PAGE_ID",
	Short: "Show a page as plain text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := confluenceService(cmd.Context())
		if err != nil {
			return err
		}

		page, err := svc.Get(cmd.Context(), args[0], confluence.GetOptions{Comments: confViewComments})
		if err != nil {
			return err
		}
		return renderPage(printer, page)
	},
}

var confluenceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a page",
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := confluenceService(cmd.Context())
		if err != nil {
			return err
		}

		page, err := svc.Create(cmd.Context(), confluence.CreateInput{
			Space:    confCreateSpace,
			Title:    confCreateTitle,
			Body:     confCreateBody,
			ParentID: confCreateParent,
		})
		if err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(page)
		}
		printer.Line("Created page %s (%s)", page.ID, page.Title)
		return nil
	},
}

var confluenceUpdateCmd = &cobra.Command{
	Use:   "update PAGE_ID",
	Short: "Replace a page's body or title",
	Long: `Updates are read-modify-write: the current version is fetched and
incremented. A concurrent edit fails with a version conflict naming
the now-current version; re-read the page before retrying.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := confluenceService(cmd.Context())
		if err != nil {
			return err
		}

		page, err := svc.Update(cmd.Context(), args[0], confluence.UpdateInput{
			Title: confUpdateTitle,
			Body:  confUpdateBody,
		})
		if err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(page)
		}
		version := 0
		if page.Version != nil {
			version = page.Version.Number
		}
		printer.Line("Updated page %s to version %d", page.ID, version)
		return nil
	},
}

var confluenceCommentCmd = &cobra.Command{
	Use:   "comment PAGE_ID",
	Short: "Add a footer comment to a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := confluenceService(cmd.Context())
		if err != nil {
			return err
		}

		comment, err := svc.Comment(cmd.Context(), args[0], confCommentBody)
		if err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(comment)
		}
		printer.Line("Commented on page %s", args[0])
		return nil
	},
}

var confluenceSpacesCmd = &cobra.Command{
	Use:   "spaces",
	Short: "List visible spaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := confluenceService(cmd.Context())
		if err != nil {
			return err
		}

		spaces, err := svc.Spaces(cmd.Context(), confSpacesLimit, 0)
		if err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(spaces)
		}
		rows := make([][]string, 0, len(spaces.Results))
		for _, s := range spaces.Results {
			rows = append(rows, []string{s.Key, s.Name, s.Type})
		}
		printer.Table([]string{"KEY", "NAME", "TYPE"}, rows)
		return nil
	},
}

var confluenceAPICmd = &cobra.Command{
	Use:   "api METHOD PATH",
	Short: "Call the Confluence REST API directly",
	Long: `Forwards a request to the site. The path is relative to the detected
REST root (/wiki/rest/api on Cloud, /rest/api on Server), so the same
invocation works against both deployments.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := confluenceService(cmd.Context())
		if err != nil {
			return err
		}

		header, err := parseHeaders(confAPIHeaders)
		if err != nil {
			return err
		}

		var body []byte
		if confAPIBody != "" {
			body = []byte(confAPIBody)
		}

		method := strings.ToUpper(args[0])
		path := svc.APIPath(normalizeAPIPath(args[1]))
		resp, err := svc.Raw(cmd.Context(), method, path, header, body)
		if err != nil {
			return err
		}
		if len(resp.Body) == 0 {
			printer.Line("%d (no content)", resp.StatusCode)
			return nil
		}
		return printer.RawJSON(resp.Body)
	},
}

// renderPageList prints search results as a table, or raw JSON.
func renderPageList(p *output.Printer, result *confluence.SearchResult) error {
	if p.IsJSON() {
		return p.JSON(result)
	}

	if len(result.Results) == 0 {
		p.Line("No pages found.")
		return nil
	}

	rows := make([][]string, 0, len(result.Results))
	for _, page := range result.Results {
		space := ""
		if page.Space != nil {
			space = page.Space.Key
		}
		version := ""
		if page.Version != nil {
			version = fmt.Sprint(page.Version.Number)
		}
		rows = append(rows, []string{page.ID, space, version, page.Title})
	}
	p.Table([]string{"ID", "SPACE", "VERSION", "TITLE"}, rows)
	return nil
}

// renderPage prints one page with its body flattened to text.
func renderPage(p *output.Printer, page *confluence.Page) error {
	if p.IsJSON() {
		return p.JSON(page)
	}

	p.Title(page.Title)
	if page.Space != nil {
		p.Field("Space", page.Space.Key)
	}
	if page.Version != nil {
		p.Field("Version", fmt.Sprint(page.Version.Number))
	}
	if link := page.WebLink(); link != "" {
		p.Field("Link", link)
	}

	if body := page.BodyText(); body != "" {
		p.Blank()
		p.Line("%s", body)
	}

	if page.Children != nil && page.Children.Comment != nil && len(page.Children.Comment.Results) > 0 {
		p.Blank()
		p.Title("Comments")
		for _, c := range page.Children.Comment.Results {
			if text := c.BodyText(); text != "" {
				p.Line("- %s", strings.ReplaceAll(text, "\n", " "))
			}
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(confluenceCmd)
	confluenceCmd.AddCommand(confluenceSearchCmd)
	confluenceCmd.AddCommand(confluenceViewCmd)
	confluenceCmd.AddCommand(confluenceCreateCmd)
	confluenceCmd.AddCommand(confluenceUpdateCmd)
	confluenceCmd.AddCommand(confluenceCommentCmd)
	confluenceCmd.AddCommand(confluenceSpacesCmd)
	confluenceCmd.AddCommand(confluenceAPICmd)

	confluenceSearchCmd.Flags().StringVar(&confSearchCQL, "cql", "", "raw CQL query")
	confluenceSearchCmd.Flags().StringVar(&confSearchSpace, "space", "", "restrict to a space key")
	confluenceSearchCmd.Flags().IntVar(&confSearchLimit, "limit", 20, "maximum pages to return")

	confluenceViewCmd.Flags().BoolVar(&confViewComments, "comments", false, "include page comments")

	confluenceCreateCmd.Flags().StringVar(&confCreateSpace, "space", "", "space key")
	confluenceCreateCmd.Flags().StringVar(&confCreateTitle, "title", "", "page title")
	confluenceCreateCmd.Flags().StringVar(&confCreateBody, "body", "", "page body text")
	confluenceCreateCmd.Flags().StringVar(&confCreateParent, "parent", "", "parent page id")
	_ = confluenceCreateCmd.MarkFlagRequired("space")
	_ = confluenceCreateCmd.MarkFlagRequired("title")

	confluenceUpdateCmd.Flags().StringVar(&confUpdateTitle, "title", "", "new title")
	confluenceUpdateCmd.Flags().StringVar(&confUpdateBody, "body", "", "replacement body text")

	confluenceCommentCmd.Flags().StringVar(&confCommentBody, "body", "", "comment text")
	_ = confluenceCommentCmd.MarkFlagRequired("body")

	confluenceSpacesCmd.Flags().IntVar(&confSpacesLimit, "limit", 25, "maximum spaces to return")

	confluenceAPICmd.Flags().StringArrayVar(&confAPIHeaders, "header", nil, `extra header "Name: value" (repeatable)`)
	confluenceAPICmd.Flags().StringVar(&confAPIBody, "body", "", "JSON request body")
}
