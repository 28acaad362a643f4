package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"hostlink/internal/domain"
	"hostlink/internal/server"
)

// Operator is what the console drives. *server.Server implements it.
type Operator interface {
	Sessions() []server.Info
	Ping(ctx context.Context, id uint64) (domain.ResponseCode, time.Duration, error)
	SendCommand(ctx context.Context, id uint64, cmd domain.Message) (domain.Message, error)
	Broadcast(cmd domain.Message) int
	Kick(id uint64) error
	KickAll() int
}

const prompt = "(hostlink) > "

// Console reads operator commands and prints results.
type Console struct {
	op  Operator
	out io.Writer
}

// New returns a console writing to out.
func New(op Operator, out io.Writer) *Console { return &Console{op: op, out: out} }

// Run reads lines from in until quit, EOF or ctx ends. A terminal stdin is
// switched to raw mode for line editing.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return c.runTerminal(ctx, f)
	}
	return c.runLines(ctx, in)
}

func (c *Console) runLines(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-stop:
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line := <-lines:
			if c.Execute(ctx, line) {
				return nil
			}
		}
	}
}

func (c *Console) runTerminal(ctx context.Context, f *os.File) error {
	old, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		return c.runLines(ctx, f)
	}
	defer term.Restore(int(f.Fd()), old)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{f, c.out}, prompt)
	c.out = t

	for ctx.Err() == nil {
		line, err := t.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if c.Execute(ctx, line) {
			return nil
		}
	}
	return nil
}

// Execute runs one command line and reports whether the console should
// exit.
func (c *Console) Execute(ctx context.Context, line string) (quit bool) {
	fields, payload := splitPayload(strings.TrimSpace(line))
	if len(fields) == 0 {
		return false
	}
	var err error
	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return true
	case "help", "?":
		c.help()
	case "list", "ls":
		c.list()
	case "ping":
		err = c.ping(ctx, fields[1:])
	case "send":
		err = c.send(ctx, fields[1:], payload)
	case "kick":
		err = c.kick(fields[1:])
	default:
		err = fmt.Errorf("unknown command %q, try help", fields[0])
	}
	if err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
	}
	return false
}

func (c *Console) help() {
	fmt.Fprint(c.out, `commands:
  list
  ping <id>
  send <id|0> <action> [FLAG...] [-- payload]
  kick <id|0>
  quit
flags: RESPOND_WITH_STATUS PACKET_IS_A_COMMAND BROADCAST
`)
}

func (c *Console) list() {
	infos := c.op.Sessions()
	if len(infos) == 0 {
		fmt.Fprintln(c.out, "no sessions")
		return
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tADDRESS\tHOST\tMACHINE\tPHASE\tLAST SEEN")
	for _, s := range infos {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Addr, orDash(s.HostName), orDash(s.MachineID), s.Phase, s.LastSeen.Format(time.TimeOnly))
	}
	_ = tw.Flush()
}

func (c *Console) ping(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: ping <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	code, rtt, err := c.op.Ping(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d: %s in %s\n", id, code, rtt.Round(time.Microsecond))
	return nil
}

func (c *Console) send(ctx context.Context, args []string, payload []byte) error {
	if len(args) < 2 {
		return errors.New("usage: send <id|0> <action> [FLAG...] [-- payload]")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	action, err := ParseAction(args[1])
	if err != nil {
		return err
	}
	flags, err := ParseFlags(args[2:])
	if err != nil {
		return err
	}
	cmd := domain.NewCommand(action, flags, payload)

	if id == 0 || flags.Has(domain.FlagBroadcast) {
		n := c.op.Broadcast(cmd)
		fmt.Fprintf(c.out, "sent %s to %d sessions\n", action, n)
		return nil
	}
	resp, err := c.op.SendCommand(ctx, id, cmd)
	if err != nil {
		return err
	}
	if flags.Has(domain.FlagRespondWithStatus) {
		fmt.Fprintf(c.out, "%d: %s %s\n", id, action, resp.Code)
	} else {
		fmt.Fprintf(c.out, "sent %s to %d\n", action, id)
	}
	return nil
}

func (c *Console) kick(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: kick <id|0>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if id == 0 {
		fmt.Fprintf(c.out, "kicked %d sessions\n", c.op.KickAll())
		return nil
	}
	if err := c.op.Kick(id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "kicked %d\n", id)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var _ Operator = (*server.Server)(nil)
