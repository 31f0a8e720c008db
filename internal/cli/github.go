package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dverbeek/agent-skills/internal/crossref"
	"github.com/dverbeek/agent-skills/internal/github"
	"github.com/dverbeek/agent-skills/internal/output"
)

var githubRepo string

var githubCmd = &cobra.Command{
	Use:   "github",
	Short: "Work with GitHub pull requests and issues via gh",
	Long: `Wraps the gh CLI, which holds its own authentication (run gh auth
login once). Without --repo, commands operate on the repository of the
current directory.`,
}

var (
	ghPRState  string
	ghPRLimit  int
	ghIssState string
	ghIssLimit int

	ghAPIHeaders []string
	ghAPIBody    string
)

var githubPRCmd = &cobra.Command{
	Use:   "pr",
	Short: "Pull request commands",
}

var githubPRListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pull requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		gh := github.NewClient(githubRepo)
		prs, err := gh.PRs(cmd.Context(), ghPRState, ghPRLimit)
		if err != nil {
			return err
		}
		return renderPRList(printer, prs)
	},
}

var githubPRViewCmd = &cobra.Command{
	Use:   "view NUMBER",
	Short: "Show a pull request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid pull request number %q", args[0])
		}

		gh := github.NewClient(githubRepo)
		pr, err := gh.PR(cmd.Context(), number)
		if err != nil {
			return err
		}
		return renderPR(printer, pr)
	},
}

var githubPRDiffCmd = &cobra.Command{
	Use:   "diff NUMBER",
	Short: "Show a pull request's diff",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid pull request number %q", args[0])
		}

		gh := github.NewClient(githubRepo)
		diff, err := gh.PRDiff(cmd.Context(), number)
		if err != nil {
			return err
		}
		printer.Line("%s", strings.TrimRight(diff, "\n"))
		return nil
	},
}

var githubPRChecksCmd = &cobra.Command{
	Use:   "checks NUMBER",
	Short: "Show CI checks for a pull request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid pull request number %q", args[0])
		}

		gh := github.NewClient(githubRepo)
		checks, err := gh.PRChecks(cmd.Context(), number)
		if err != nil {
			return err
		}
		return renderChecks(printer, checks)
	},
}

var githubIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue commands",
}

var githubIssueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		gh := github.NewClient(githubRepo)
		issues, err := gh.Issues(cmd.Context(), ghIssState, ghIssLimit)
		if err != nil {
			return err
		}
		return renderIssueTable(printer, issues)
	},
}

var githubIssueViewCmd = &cobra.Command{
	Use:   "view NUMBER",
	Short: "Show an issue with its comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid issue number %q", args[0])
		}

		gh := github.NewClient(githubRepo)
		issue, err := gh.Issue(cmd.Context(), number)
		if err != nil {
			return err
		}
		return renderGitHubIssue(printer, issue)
	},
}

var githubRepoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Describe the repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		gh := github.NewClient(githubRepo)
		repo, err := gh.Repo(cmd.Context())
		if err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(repo)
		}
		printer.Title(fmt.Sprintf("%s/%s", repo.Owner.Login, repo.Name))
		if repo.Description != "" {
			printer.Field("Description", repo.Description)
		}
		printer.Field("Default branch", repo.DefaultBranchRef.Name)
		visibility := "public"
		if repo.IsPrivate {
			visibility = "private"
		}
		printer.Field("Visibility", visibility)
		printer.Field("Stars", fmt.Sprint(repo.StargazerCount))
		printer.Field("Link", repo.URL)
		return nil
	},
}

var githubAPICmd = &cobra.Command{
	Use:   "api METHOD PATH",
	Short: "Call the GitHub REST API through gh api",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		headers, err := headerStrings(ghAPIHeaders)
		if err != nil {
			return err
		}

		gh := github.NewClient(githubRepo)
		method := strings.ToUpper(args[0])
		out, err := gh.API(cmd.Context(), method, strings.TrimPrefix(args[1], "/"), headers, ghAPIBody)
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

func renderPRList(p *output.Printer, prs []github.PullRequest) error {
	if p.IsJSON() {
		return p.JSON(prs)
	}

	if len(prs) == 0 {
		p.Line("No pull requests found.")
		return nil
	}

	rows := make([][]string, 0, len(prs))
	for _, pr := range prs {
		rows = append(rows, []string{
			fmt.Sprintf("#%d", pr.Number),
			p.Status(pr.State),
			pr.Author.Login,
			pr.HeadRefName,
			pr.Title,
		})
	}
	p.Table([]string{"PR", "STATE", "AUTHOR", "BRANCH", "TITLE"}, rows)
	return nil
}

func renderPR(p *output.Printer, pr *github.PullRequest) error {
	if p.IsJSON() {
		return p.JSON(pr)
	}

	p.Title(fmt.Sprintf("#%d: %s", pr.Number, pr.Title))
	p.Field("State", p.Status(pr.State))
	p.Field("Author", pr.Author.Login)
	p.Field("Branch", fmt.Sprintf("%s -> %s", pr.HeadRefName, pr.BaseRefName))
	if pr.ReviewDecision != "" {
		p.Field("Review", p.Status(pr.ReviewDecision))
	}
	p.Field("Changes", fmt.Sprintf("+%d -%d", pr.Additions, pr.Deletions))
	if keys := crossref.FromReview(pr.HeadRefName, pr.Title, pr.Body); len(keys) > 0 {
		p.Field("Issues", strings.Join(keys, ", "))
	}
	p.Field("Link", pr.URL)

	if pr.Body != "" {
		p.Blank()
		p.Line("%s", pr.Body)
	}
	return nil
}

func renderChecks(p *output.Printer, checks []github.Check) error {
	if p.IsJSON() {
		return p.JSON(checks)
	}

	if len(checks) == 0 {
		p.Line("No checks reported.")
		return nil
	}

	rows := make([][]string, 0, len(checks))
	for _, c := range checks {
		conclusion := c.Conclusion
		if conclusion == "" {
			conclusion = c.Status
		}
		rows = append(rows, []string{c.Name, p.Status(conclusion)})
	}
	p.Table([]string{"CHECK", "RESULT"}, rows)
	return nil
}

func renderIssueTable(p *output.Printer, issues []github.Issue) error {
	if p.IsJSON() {
		return p.JSON(issues)
	}

	if len(issues) == 0 {
		p.Line("No issues found.")
		return nil
	}

	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		labels := make([]string, 0, len(issue.Labels))
		for _, l := range issue.Labels {
			labels = append(labels, l.Name)
		}
		rows = append(rows, []string{
			fmt.Sprintf("#%d", issue.Number),
			p.Status(issue.State),
			strings.Join(labels, ","),
			issue.Title,
		})
	}
	p.Table([]string{"ISSUE", "STATE", "LABELS", "TITLE"}, rows)
	return nil
}

func renderGitHubIssue(p *output.Printer, issue *github.Issue) error {
	if p.IsJSON() {
		return p.JSON(issue)
	}

	p.Title(fmt.Sprintf("#%d: %s", issue.Number, issue.Title))
	p.Field("State", p.Status(issue.State))
	p.Field("Author", issue.Author.Login)
	if len(issue.Labels) > 0 {
		labels := make([]string, 0, len(issue.Labels))
		for _, l := range issue.Labels {
			labels = append(labels, l.Name)
		}
		p.Field("Labels", strings.Join(labels, ", "))
	}
	p.Field("Link", issue.URL)

	if issue.Body != "" {
		p.Blank()
		p.Line("%s", issue.Body)
	}
	for _, c := range issue.Comments {
		p.Blank()
		p.Line("%s (%s):", c.Author.Login, c.CreatedAt.Format("2006-01-02 15:04"))
		p.Line("%s", c.Body)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(githubCmd)
	githubCmd.PersistentFlags().StringVar(&githubRepo, "repo", "", "target OWNER/REPO instead of the current directory")

	githubCmd.AddCommand(githubPRCmd)
	githubPRCmd.AddCommand(githubPRListCmd)
	githubPRCmd.AddCommand(githubPRViewCmd)
	githubPRCmd.AddCommand(githubPRDiffCmd)
	githubPRCmd.AddCommand(githubPRChecksCmd)

	githubCmd.AddCommand(githubIssueCmd)
	githubIssueCmd.AddCommand(githubIssueListCmd)
	githubIssueCmd.AddCommand(githubIssueViewCmd)

	githubCmd.AddCommand(githubRepoCmd)
	githubCmd.AddCommand(githubAPICmd)

	githubPRListCmd.Flags().StringVar(&ghPRState, "state", "open", "filter by state (open, closed, merged, all)")
	githubPRListCmd.Flags().IntVar(&ghPRLimit, "limit", 30, "maximum pull requests to return")

	githubIssueListCmd.Flags().StringVar(&ghIssState, "state", "open", "filter by state (open, closed, all)")
	githubIssueListCmd.Flags().IntVar(&ghIssLimit, "limit", 30, "maximum issues to return")

	githubAPICmd.Flags().StringArrayVar(&ghAPIHeaders, "header", nil, `extra header "Name: value" (repeatable)`)
	githubAPICmd.Flags().StringVar(&ghAPIBody, "body", "", "JSON request body")
}
