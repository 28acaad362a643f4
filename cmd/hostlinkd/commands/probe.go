package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"hostlink/internal/crypto"
	"hostlink/internal/domain"
	"hostlink/internal/peer"
)

func probeCmd() *cobra.Command {
	var (
		server    string
		hostName  string
		machineID string
		timeout   time.Duration
		stay      bool
	)
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Discover a server over UDP, connect as a host and query it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			out := cmd.OutOrStdout()
			if server == "" {
				server = net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Server.UDPPort))
			}
			if hostName == "" {
				hostName, _ = os.Hostname()
			}
			if machineID == "" {
				machineID = uuid.NewString()
			}

			ep, err := peer.Discover(ctx, nil, server, timeout)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "endpoint: %s\n", ep)

			p, err := peer.Dial(ctx, ep.String(), peer.Config{HostName: hostName, MachineID: machineID, Timeout: timeout})
			if err != nil {
				return err
			}
			defer p.Close()
			fmt.Fprintf(out, "server key: %s\n", crypto.Fingerprint(p.ServerKey()))

			sctx, cancel := context.WithCancel(ctx)
			defer cancel()
			served := make(chan error, 1)
			go func() { served <- p.Serve(sctx) }()

			for _, a := range []domain.Action{domain.ActionRequestPublicKey, domain.ActionQueryStatus, domain.ActionRequestEnrollmentID} {
				resp, err := p.Request(ctx, a, nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %s", a, resp.Code)
				if a == domain.ActionRequestEnrollmentID && resp.Code == domain.CodeOK {
					fmt.Fprintf(out, " %s", resp.Payload)
				}
				fmt.Fprintln(out)
			}

			if stay {
				fmt.Fprintln(out, "serving; interrupt to leave")
				select {
				case err := <-served:
					return err
				case <-ctx.Done():
				}
			}
			return p.Send(domain.NewRequest(domain.ActionDisconnect, 0, nil))
		},
	}
	f := cmd.Flags()
	f.StringVar(&server, "server", "", "UDP discovery address (default 127.0.0.1:<udp_port>)")
	f.StringVar(&hostName, "host-name", "", "host name to report (default os hostname)")
	f.StringVar(&machineID, "machine-id", "", "machine ID to report (default random)")
	f.DurationVar(&timeout, "timeout", 5*time.Second, "per-step timeout")
	f.BoolVar(&stay, "stay", false, "keep the session open and answer keep-alives")
	return cmd
}
