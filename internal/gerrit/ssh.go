package gerrit

import (
	"context"
	"strconv"

	"github.com/dverbeek/agent-skills/internal/executor"
)

// defaultSSHPort is Gerrit's standard SSH listener port.
const defaultSSHPort = 29418

// sshRunFunc executes ssh and returns its stdout.
type sshRunFunc func(ctx context.Context, args []string, stdin string) (string, error)

// SSHRunner drives the gerrit command suite over SSH for servers that
// do not expose the REST API.
type SSHRunner struct {
	host string
	port int
	user string
	run  sshRunFunc
}

// NewSSHRunner wraps the ssh binary for host. A port of zero uses the
// Gerrit default; user, when set, becomes the login name.
func NewSSHRunner(host string, port int, user string) *SSHRunner {
	if port <= 0 {
		port = defaultSSHPort
	}
	var r executor.Runner
	return &SSHRunner{
		host: host,
		port: port,
		user: user,
		run: func(ctx context.Context, args []string, stdin string) (string, error) {
			return r.Output(ctx, "ssh", args, executor.Options{Stdin: stdin})
		},
	}
}

// Gerrit runs `gerrit <argv>` on the remote server and returns its
// output, e.g. Gerrit(ctx, "query", "--format=JSON", "status:open").
func (s *SSHRunner) Gerrit(ctx context.Context, argv ...string) (string, error) {
	target := s.host
	if s.user != "" {
		target = s.user + "@" + s.host
	}

	args := []string{"-p", strconv.Itoa(s.port), target, "gerrit"}
	args = append(args, argv...)
	return s.run(ctx, args, "")
}
