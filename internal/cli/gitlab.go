package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dverbeek/agent-skills/internal/crossref"
	"github.com/dverbeek/agent-skills/internal/gitlab"
	"github.com/dverbeek/agent-skills/internal/output"
)

var gitlabRepo string

var gitlabCmd = &cobra.Command{
	Use:   "gitlab",
	Short: "Work with GitLab merge requests and pipelines via glab",
	Long: `Wraps the glab CLI, which holds its own authentication (run glab auth
login once). Without --repo, commands operate on the repository of the
current directory.`,
}

var (
	glMRState  string
	glMRLimit  int
	glIssState string
	glIssLimit int

	glPipeStatus string
	glPipeLimit  int

	glAPIHeaders []string
	glAPIBody    string
)

var gitlabMRCmd = &cobra.Command{
	Use:   "mr",
	Short: "Merge request commands",
}

var gitlabMRListCmd = &cobra.Command{
	Use:   "list",
	Short: "List merge requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		gl := gitlab.NewClient(gitlabRepo)
		mrs, err := gl.MRs(cmd.Context(), glMRState, glMRLimit)
		if err != nil {
			return err
		}
		return renderMRList(printer, mrs)
	},
}

var gitlabMRViewCmd = &cobra.Command{
	Use:   "view IID",
	Short: "Show a merge request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		iid, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid merge request iid %q", args[0])
		}

		gl := gitlab.NewClient(gitlabRepo)
		mr, err := gl.MR(cmd.Context(), iid)
		if err != nil {
			return err
		}
		return renderMR(printer, mr)
	},
}

var gitlabIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue commands",
}

var gitlabIssueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		gl := gitlab.NewClient(gitlabRepo)
		issues, err := gl.Issues(cmd.Context(), glIssState, glIssLimit)
		if err != nil {
			return err
		}
		return renderGitLabIssues(printer, issues)
	},
}

var gitlabIssueViewCmd = &cobra.Command{
	Use:   "view IID",
	Short: "Show an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		iid, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid issue iid %q", args[0])
		}

		gl := gitlab.NewClient(gitlabRepo)
		issue, err := gl.Issue(cmd.Context(), iid)
		if err != nil {
			return err
		}
		return renderGitLabIssue(printer, issue)
	},
}

var gitlabPipelinesCmd = &cobra.Command{
	Use:   "pipelines",
	Short: "List recent CI pipelines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		gl := gitlab.NewClient(gitlabRepo)
		pipelines, err := gl.Pipelines(cmd.Context(), glPipeStatus, glPipeLimit)
		if err != nil {
			return err
		}
		return renderPipelines(printer, pipelines)
	},
}

var gitlabAPICmd = &cobra.Command{
	Use:   "api METHOD PATH",
	Short: "Call the GitLab REST API through glab api",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		headers, err := headerStrings(glAPIHeaders)
		if err != nil {
			return err
		}

		gl := gitlab.NewClient(gitlabRepo)
		method := strings.ToUpper(args[0])
		out, err := gl.API(cmd.Context(), method, strings.TrimPrefix(args[1], "/"), headers, glAPIBody)
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			printer.Line("(no content)")
			return nil
		}
		return printer.RawJSON([]byte(out))
	},
}

func renderMRList(p *output.Printer, mrs []gitlab.MergeRequest) error {
	if p.IsJSON() {
		return p.JSON(mrs)
	}

	if len(mrs) == 0 {
		p.Line("No merge requests found.")
		return nil
	}

	rows := make([][]string, 0, len(mrs))
	for _, mr := range mrs {
		title := mr.Title
		if mr.Draft {
			title = "[draft] " + title
		}
		rows = append(rows, []string{
			fmt.Sprintf("!%d", mr.IID),
			p.Status(mr.State),
			mr.Author.Username,
			mr.SourceBranch,
			title,
		})
	}
	p.Table([]string{"MR", "STATE", "AUTHOR", "BRANCH", "TITLE"}, rows)
	return nil
}

func renderMR(p *output.Printer, mr *gitlab.MergeRequest) error {
	if p.IsJSON() {
		return p.JSON(mr)
	}

	p.Title(fmt.Sprintf("!%d: %s", mr.IID, mr.Title))
	p.Field("State", p.Status(mr.State))
	p.Field("Author", mr.Author.Username)
	p.Field("Branch", fmt.Sprintf("%s -> %s", mr.SourceBranch, mr.TargetBranch))
	if keys := crossref.FromReview(mr.SourceBranch, mr.Title, mr.Description); len(keys) > 0 {
		p.Field("Issues", strings.Join(keys, ", "))
	}
	p.Field("Link", mr.WebURL)

	if mr.Description != "" {
		p.Blank()
		p.Line("%s", mr.Description)
	}
	return nil
}

func renderGitLabIssues(p *output.Printer, issues []gitlab.Issue) error {
	if p.IsJSON() {
		return p.JSON(issues)
	}

	if len(issues) == 0 {
		p.Line("No issues found.")
		return nil
	}

	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, []string{
			fmt.Sprintf("#%d", issue.IID),
			p.Status(issue.State),
			strings.Join(issue.Labels, ","),
			issue.Title,
		})
	}
	p.Table([]string{"ISSUE", "STATE", "LABELS", "TITLE"}, rows)
	return nil
}

func renderGitLabIssue(p *output.Printer, issue *gitlab.Issue) error {
	if p.IsJSON() {
		return p.JSON(issue)
	}

	p.Title(fmt.Sprintf("#%d: %s", issue.IID, issue.Title))
	p.Field("State", p.Status(issue.State))
	p.Field("Author", issue.Author.Username)
	if len(issue.Labels) > 0 {
		p.Field("Labels", strings.Join(issue.Labels, ", "))
	}
	p.Field("Link", issue.WebURL)

	if issue.Description != "" {
		p.Blank()
		p.Line("%s", issue.Description)
	}
	return nil
}

func renderPipelines(p *output.Printer, pipelines []gitlab.Pipeline) error {
	if p.IsJSON() {
		return p.JSON(pipelines)
	}

	if len(pipelines) == 0 {
		p.Line("No pipelines found.")
		return nil
	}

	rows := make([][]string, 0, len(pipelines))
	for _, pl := range pipelines {
		sha := pl.SHA
		if len(sha) > 8 {
			sha = sha[:8]
		}
		rows = append(rows, []string{
			fmt.Sprint(pl.ID),
			p.Status(pl.Status),
			pl.Ref,
			sha,
			pl.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}
	p.Table([]string{"ID", "STATUS", "REF", "COMMIT", "UPDATED"}, rows)
	return nil
}

func init() {
	rootCmd.AddCommand(gitlabCmd)
	gitlabCmd.PersistentFlags().StringVar(&gitlabRepo, "repo", "", "target OWNER/REPO instead of the current directory")

	gitlabCmd.AddCommand(gitlabMRCmd)
	gitlabMRCmd.AddCommand(gitlabMRListCmd)
	gitlabMRCmd.AddCommand(gitlabMRViewCmd)

	gitlabCmd.AddCommand(gitlabIssueCmd)
	gitlabIssueCmd.AddCommand(gitlabIssueListCmd)
	gitlabIssueCmd.AddCommand(gitlabIssueViewCmd)

	gitlabCmd.AddCommand(gitlabPipelinesCmd)
	gitlabCmd.AddCommand(gitlabAPICmd)

	gitlabMRListCmd.Flags().StringVar(&glMRState, "state", "opened", "filter by state (opened, closed, merged, all)")
	gitlabMRListCmd.Flags().IntVar(&glMRLimit, "limit", 30, "maximum merge requests to return")

	gitlabIssueListCmd.Flags().StringVar(&glIssState, "state", "opened", "filter by state (opened, closed, all)")
	gitlabIssueListCmd.Flags().IntVar(&glIssLimit, "limit", 30, "maximum issues to return")

	gitlabPipelinesCmd.Flags().StringVar(&glPipeStatus, "status", "", "filter by status (running, success, failed, canceled)")
	gitlabPipelinesCmd.Flags().IntVar(&glPipeLimit, "limit", 20, "maximum pipelines to return")

	gitlabAPICmd.Flags().StringArrayVar(&glAPIHeaders, "header", nil, `extra header "Name: value" (repeatable)`)
	gitlabAPICmd.Flags().StringVar(&glAPIBody, "body", "", "JSON request body")
}
