package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dverbeek/agent-skills/internal/atlassian/jira"
	"github.com/dverbeek/agent-skills/internal/output"
)

var jiraCmd = &cobra.Command{
	Use:   "jira",
	Short: "Search, read and update Jira issues",
}

var (
	jiraSearchJQL   string
	jiraSearchLimit int

	jiraCreateProject  string
	jiraCreateType     string
	jiraCreateSummary  string
	jiraCreateDesc     string
	jiraCreatePriority string
	jiraCreateAssignee string
	jiraCreateLabels   []string

	jiraUpdateSummary string
	jiraUpdateDesc    string
	jiraUpdateLabels  []string

	jiraCommentBody  string
	jiraTransitionTo string
	jiraAssignUser   string

	jiraAPIHeaders []string
	jiraAPIBody    string
)

var jiraSearchCmd = &cobra.Command{
	Use:   "search [TEXT]",
	Short: "Search issues by free text or JQL",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := jiraService(cmd.Context())
		if err != nil {
			return err
		}

		opts := jira.SearchOptions{
			JQL:        jiraSearchJQL,
			MaxResults: jiraSearchLimit,
		}
		if len(args) == 1 {
			opts.Text = args[0]
		}

		result, err := svc.Search(cmd.Context(), opts)
		if err != nil {
			return err
		}
		return renderIssueList(printer, result)
	},
}

var jiraViewCmd = &cobra.Command{
	Use:   "view ISSUE",
	Short: "Show one issue with description and comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := jiraService(cmd.Context())
		if err != nil {
			return err
		}

		issue, err := svc.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return renderIssue(printer, issue)
	},
}

var jiraCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an issue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := jiraService(cmd.Context())
		if err != nil {
			return err
		}

		issue, err := svc.Create(cmd.Context(), jira.CreateInput{
			Project:     jiraCreateProject,
			Type:        jiraCreateType,
			Summary:     jiraCreateSummary,
			Description: jiraCreateDesc,
			Priority:    jiraCreatePriority,
			Assignee:    jiraCreateAssignee,
			Labels:      jiraCreateLabels,
		})
		if err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(issue)
		}
		printer.Line("Created %s", issue.Key)
		return nil
	},
}

var jiraUpdateCmd = &cobra.Command{
	Use:   "update ISSUE",
	Short: "Edit an issue's summary, description or labels",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := jiraService(cmd.Context())
		if err != nil {
			return err
		}

		var input jira.UpdateInput
		if cmd.Flags().Changed("summary") {
			input.Summary = &jiraUpdateSummary
		}
		if cmd.Flags().Changed("description") {
			input.Description = &jiraUpdateDesc
		}
		if cmd.Flags().Changed("label") {
			input.Labels = jiraUpdateLabels
		}

		if err := svc.Update(cmd.Context(), args[0], input); err != nil {
			return err
		}
		printer.Line("Updated %s", args[0])
		return nil
	},
}

var jiraCommentCmd = &cobra.Command{
	Use:   "comment ISSUE",
	Short: "Add a comment to an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := jiraService(cmd.Context())
		if err != nil {
			return err
		}

		comment, err := svc.Comment(cmd.Context(), args[0], jiraCommentBody)
		if err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(comment)
		}
		printer.Line("Commented on %s", args[0])
		return nil
	},
}

var jiraTransitionsCmd = &cobra.Command{
	Use:   "transitions ISSUE",
	Short: "List the transitions available on an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := jiraService(cmd.Context())
		if err != nil {
			return err
		}

		transitions, err := svc.Transitions(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(transitions)
		}
		rows := make([][]string, 0, len(transitions))
		for _, t := range transitions {
			rows = append(rows, []string{t.ID, t.Name, t.To.Name})
		}
		printer.Table([]string{"ID", "NAME", "TO STATUS"}, rows)
		return nil
	},
}

var jiraTransitionCmd = &cobra.Command{
	Use:   "transition ISSUE",
	Short: "Move an issue to another status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := jiraService(cmd.Context())
		if err != nil {
			return err
		}

		applied, err := svc.Transition(cmd.Context(), args[0], jiraTransitionTo)
		if err != nil {
			return err
		}
		printer.Line("Moved %s to %s", args[0], applied.To.Name)
		return nil
	},
}

var jiraAssignCmd = &cobra.Command{
	Use:   "assign ISSUE",
	Short: "Assign an issue to a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := jiraService(cmd.Context())
		if err != nil {
			return err
		}

		if err := svc.Assign(cmd.Context(), args[0], jiraAssignUser); err != nil {
			return err
		}
		printer.Line("Assigned %s to %s", args[0], jiraAssignUser)
		return nil
	},
}

var jiraMeCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the authenticated user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := jiraService(cmd.Context())
		if err != nil {
			return err
		}

		me, err := svc.Myself(cmd.Context())
		if err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(me)
		}
		printer.Field("Name", me.DisplayName)
		printer.Field("Email", me.EmailAddress)
		printer.Field("Deployment", string(svc.Deployment()))
		return nil
	},
}

var jiraAPICmd = &cobra.Command{
	Use:   "api METHOD PATH",
	Short: "Call the Jira REST API directly",
	Long: `Forwards a request to the site. The path is relative to the detected
REST root (/rest/api/3 on Cloud, /rest/api/2 on Server), so the same
invocation works against both deployments.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := jiraService(cmd.Context())
		if err != nil {
			return err
		}

		header, err := parseHeaders(jiraAPIHeaders)
		if err != nil {
			return err
		}

		var body []byte
		if jiraAPIBody != "" {
			body = []byte(jiraAPIBody)
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

// renderIssueList prints a search result as a table, or the raw
// result as JSON.
func renderIssueList(p *output.Printer, result *jira.SearchResult) error {
	if p.IsJSON() {
		return p.JSON(result)
	}

	if len(result.Issues) == 0 {
		p.Line("No issues found.")
		return nil
	}

	rows := make([][]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		assignee := ""
		if issue.Fields.Assignee != nil {
			assignee = issue.Fields.Assignee.DisplayName
		}
		rows = append(rows, []string{
			issue.Key,
			issue.Fields.IssueType.Name,
			p.Status(issue.Fields.Status.Name),
			assignee,
			issue.Fields.Summary,
		})
	}
	p.Table([]string{"KEY", "TYPE", "STATUS", "ASSIGNEE", "SUMMARY"}, rows)

	if result.Total > len(result.Issues) {
		p.Hint(fmt.Sprintf("showing %d of %d issues", len(result.Issues), result.Total))
	}
	if result.NextPageToken != "" {
		p.Hint("more results available; narrow the query")
	}
	return nil
}

// renderIssue prints one issue in detail.
func renderIssue(p *output.Printer, issue *jira.Issue) error {
	if p.IsJSON() {
		return p.JSON(issue)
	}

	p.Title(issue.Key + ": " + issue.Fields.Summary)
	p.Field("Status", p.Status(issue.Fields.Status.Name))
	p.Field("Type", issue.Fields.IssueType.Name)
	if issue.Fields.Priority.Name != "" {
		p.Field("Priority", issue.Fields.Priority.Name)
	}
	if issue.Fields.Assignee != nil {
		p.Field("Assignee", issue.Fields.Assignee.DisplayName)
	}
	if issue.Fields.Reporter != nil {
		p.Field("Reporter", issue.Fields.Reporter.DisplayName)
	}
	if len(issue.Fields.Labels) > 0 {
		p.Field("Labels", strings.Join(issue.Fields.Labels, ", "))
	}
	if issue.Fields.Updated != "" {
		p.Field("Updated", issue.Fields.Updated)
	}

	if desc := issue.Fields.DescriptionText(); desc != "" {
		p.Blank()
		p.Line("%s", desc)
	}

	if issue.Fields.Comment != nil && len(issue.Fields.Comment.Comments) > 0 {
		p.Blank()
		p.Title("Comments")
		for _, c := range issue.Fields.Comment.Comments {
			p.Line("%s (%s):", c.Author.DisplayName, c.Created)
			p.Line("%s", c.BodyText())
			p.Blank()
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(jiraCmd)
	jiraCmd.AddCommand(jiraSearchCmd)
	jiraCmd.AddCommand(jiraViewCmd)
	jiraCmd.AddCommand(jiraCreateCmd)
	jiraCmd.AddCommand(jiraUpdateCmd)
	jiraCmd.AddCommand(jiraCommentCmd)
	jiraCmd.AddCommand(jiraTransitionsCmd)
	jiraCmd.AddCommand(jiraTransitionCmd)
	jiraCmd.AddCommand(jiraAssignCmd)
	jiraCmd.AddCommand(jiraMeCmd)
	jiraCmd.AddCommand(jiraAPICmd)

	jiraSearchCmd.Flags().StringVar(&jiraSearchJQL, "jql", "", "raw JQL query")
	jiraSearchCmd.Flags().IntVar(&jiraSearchLimit, "limit", 20, "maximum issues to return")

	jiraCreateCmd.Flags().StringVar(&jiraCreateProject, "project", "", "project key")
	jiraCreateCmd.Flags().StringVar(&jiraCreateType, "type", "Task", "issue type name")
	jiraCreateCmd.Flags().StringVar(&jiraCreateSummary, "summary", "", "issue summary")
	jiraCreateCmd.Flags().StringVar(&jiraCreateDesc, "description", "", "issue description")
	jiraCreateCmd.Flags().StringVar(&jiraCreatePriority, "priority", "", "priority name")
	jiraCreateCmd.Flags().StringVar(&jiraCreateAssignee, "assignee", "", "assignee email or name")
	jiraCreateCmd.Flags().StringArrayVar(&jiraCreateLabels, "label", nil, "label (repeatable)")
	_ = jiraCreateCmd.MarkFlagRequired("project")
	_ = jiraCreateCmd.MarkFlagRequired("summary")

	jiraUpdateCmd.Flags().StringVar(&jiraUpdateSummary, "summary", "", "new summary")
	jiraUpdateCmd.Flags().StringVar(&jiraUpdateDesc, "description", "", "new description")
	jiraUpdateCmd.Flags().StringArrayVar(&jiraUpdateLabels, "label", nil, "replacement label (repeatable)")

	jiraCommentCmd.Flags().StringVar(&jiraCommentBody, "body", "", "comment text")
	_ = jiraCommentCmd.MarkFlagRequired("body")

	jiraTransitionCmd.Flags().StringVar(&jiraTransitionTo, "to", "", "transition or target status name")
	_ = jiraTransitionCmd.MarkFlagRequired("to")

	jiraAssignCmd.Flags().StringVar(&jiraAssignUser, "user", "", "assignee email or display name")
	_ = jiraAssignCmd.MarkFlagRequired("user")

	jiraAPICmd.Flags().StringArrayVar(&jiraAPIHeaders, "header", nil, `extra header "Name: value" (repeatable)`)
	jiraAPICmd.Flags().StringVar(&jiraAPIBody, "body", "", "JSON request body")
}
