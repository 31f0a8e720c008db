package cli

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dverbeek/agent-skills/internal/credential"
	"github.com/dverbeek/agent-skills/internal/gerrit"
	"github.com/dverbeek/agent-skills/internal/output"
)

var gerritCmd = &cobra.Command{
	Use:   "gerrit",
	Short: "Query and review Gerrit changes",
}

var (
	gerritQueryLimit int

	gerritReviewMessage string
	gerritReviewLabels  []string

	gerritAbandonMessage string

	gerritSSHPort int
)

var gerritQueryCmd = &cobra.Command{
	Use:   "query QUERY...",
	Short: "Search changes with a Gerrit query",
	Long: `Runs a change query such as "status:open project:tools owner:self".
Multiple arguments are joined with spaces.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := gerritClient()
		if err != nil {
			return err
		}

		changes, err := client.Query(cmd.Context(), strings.Join(args, " "), gerritQueryLimit)
		if err != nil {
			return err
		}
		return renderChangeList(printer, changes)
	},
}

var gerritViewCmd = &cobra.Command{
	Use:   "view CHANGE",
	Short: "Show a change with votes and messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := gerritClient()
		if err != nil {
			return err
		}

		change, err := client.Change(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return renderChange(printer, change)
	},
}

var gerritReviewCmd = &cobra.Command{
	Use:   "review CHANGE",
	Short: "Post a review on the current revision",
	Long: `Posts a review message and label votes, e.g.

  skills gerrit review 12345 --message "LGTM" --label Code-Review=+2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		labels, err := parseLabelVotes(gerritReviewLabels)
		if err != nil {
			return err
		}
		if gerritReviewMessage == "" && len(labels) == 0 {
			return fmt.Errorf("nothing to post; pass --message or --label")
		}

		client, err := gerritClient()
		if err != nil {
			return err
		}

		result, err := client.Review(cmd.Context(), args[0], gerrit.ReviewInput{
			Message: gerritReviewMessage,
			Labels:  labels,
		})
		if err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(result)
		}
		printer.Line("Reviewed change %s", args[0])
		for _, name := range sortedLabelNames(result.Labels) {
			printer.Line("  %s %+d", name, result.Labels[name])
		}
		return nil
	},
}

var gerritAbandonCmd = &cobra.Command{
	Use:   "abandon CHANGE",
	Short: "Abandon a change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := gerritClient()
		if err != nil {
			return err
		}

		change, err := client.Abandon(cmd.Context(), args[0], gerritAbandonMessage)
		if err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(change)
		}
		printer.Line("Abandoned change %d (%s)", change.Number, change.Subject)
		return nil
	},
}

var gerritSSHCmd = &cobra.Command{
	Use:   "ssh -- COMMAND [ARGS...]",
	Short: "Run a gerrit command over SSH",
	Long: `Runs the Gerrit SSH command suite on the configured server, e.g.

  skills gerrit ssh -- query --format=JSON status:open

The host and login come from the configured base URL and username.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credential.Resolve("gerrit", cfg)
		if err != nil {
			return err
		}
		host := sshHost(creds.BaseURL)
		if host == "" {
			return fmt.Errorf("gerrit: no base URL configured; run `skills setup` or set SKILLS_GERRIT_BASE_URL")
		}

		runner := gerrit.NewSSHRunner(host, gerritSSHPort, creds.Username)
		out, err := runner.Gerrit(cmd.Context(), args...)
		if err != nil {
			return err
		}
		printer.Line("%s", strings.TrimRight(out, "\n"))
		return nil
	},
}

// sshHost extracts the bare hostname from a configured base URL, which
// may or may not carry a scheme.
func sshHost(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	u, err := url.Parse(baseURL)
	if err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	host := baseURL
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	host = strings.TrimSuffix(host, "/")
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}

// parseLabelVotes converts repeated NAME=VALUE flags into a vote map.
// Values accept an explicit sign, as in Code-Review=+2.
func parseLabelVotes(pairs []string) (map[string]int, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	labels := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid label %q (expected NAME=VALUE)", pair)
		}
		vote, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid vote %q for label %s", value, name)
		}
		labels[name] = vote
	}
	return labels, nil
}

func sortedLabelNames(labels map[string]int) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func renderChangeList(p *output.Printer, changes []gerrit.ChangeInfo) error {
	if p.IsJSON() {
		return p.JSON(changes)
	}

	if len(changes) == 0 {
		p.Line("No changes found.")
		return nil
	}

	rows := make([][]string, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, []string{
			strconv.Itoa(c.Number),
			p.Status(c.Status),
			c.Project,
			c.Owner.Name,
			c.Subject,
		})
	}
	p.Table([]string{"CHANGE", "STATUS", "PROJECT", "OWNER", "SUBJECT"}, rows)
	return nil
}

func renderChange(p *output.Printer, change *gerrit.ChangeInfo) error {
	if p.IsJSON() {
		return p.JSON(change)
	}

	p.Title(fmt.Sprintf("%d: %s", change.Number, change.Subject))
	p.Field("Project", change.Project)
	p.Field("Branch", change.Branch)
	p.Field("Status", p.Status(change.Status))
	owner := change.Owner.Name
	if owner == "" {
		owner = change.Owner.Username
	}
	p.Field("Owner", owner)
	if !change.Updated.IsZero() {
		p.Field("Updated", change.Updated.Format("2006-01-02 15:04"))
	}

	if len(change.Labels) > 0 {
		names := make([]string, 0, len(change.Labels))
		for name := range change.Labels {
			names = append(names, name)
		}
		sort.Strings(names)
		votes := make([]string, 0, len(names))
		for _, name := range names {
			info := change.Labels[name]
			switch {
			case info.Approved != nil:
				votes = append(votes, fmt.Sprintf("%s:+%d", name, maxVote(info)))
			case info.Rejected != nil:
				votes = append(votes, fmt.Sprintf("%s:%d", name, minVote(info)))
			default:
				votes = append(votes, fmt.Sprintf("%s:%+d", name, info.Value))
			}
		}
		p.Field("Labels", strings.Join(votes, " "))
	}

	for _, msg := range change.Messages {
		p.Blank()
		p.Line("%s (%s):", msg.Author.Name, msg.Date.Format("2006-01-02 15:04"))
		p.Line("%s", strings.TrimSpace(msg.Message))
	}
	return nil
}

// maxVote and minVote fall back to the conventional +-2 range when the
// server omits the numeric value alongside approved and rejected.
func maxVote(info gerrit.LabelInfo) int {
	if info.Value != 0 {
		return info.Value
	}
	return 2
}

func minVote(info gerrit.LabelInfo) int {
	if info.Value != 0 {
		return info.Value
	}
	return -2
}

func init() {
	rootCmd.AddCommand(gerritCmd)
	gerritCmd.AddCommand(gerritQueryCmd)
	gerritCmd.AddCommand(gerritViewCmd)
	gerritCmd.AddCommand(gerritReviewCmd)
	gerritCmd.AddCommand(gerritAbandonCmd)
	gerritCmd.AddCommand(gerritSSHCmd)

	gerritQueryCmd.Flags().IntVar(&gerritQueryLimit, "limit", 20, "maximum changes to return")

	gerritReviewCmd.Flags().StringVar(&gerritReviewMessage, "message", "", "review message")
	gerritReviewCmd.Flags().StringArrayVar(&gerritReviewLabels, "label", nil, "label vote NAME=VALUE (repeatable)")

	gerritAbandonCmd.Flags().StringVar(&gerritAbandonMessage, "message", "", "abandon reason")

	gerritSSHCmd.Flags().IntVar(&gerritSSHPort, "port", 29418, "gerrit SSH port")
}
