package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hostlink/internal/crypto"
	"hostlink/internal/store"
)

func stateCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the persisted server state",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.NewStateFileStore(cfg.Storage.StatePath).Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}

			info := st.ServerInfo
			fmt.Fprintf(out, "state file: %s\n", cfg.Storage.StatePath)
			fmt.Fprintf(out, "tcp %d  udp %d  connections %d/%d\n",
				info.TCPPort, info.UDPPort, info.Connections, info.MaxConnections)

			ids := make([]string, 0, len(st.ClientList))
			for id := range st.ClientList {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MACHINE\tHOST\tENROLLMENT\tKEY\tLAST SESSION\tLAST SEEN")
			for _, id := range ids {
				r := st.ClientList[id]
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
					r.MachineID, r.DisplayName, r.EnrollmentID, keyFingerprint(r.Keys.PublicKey), r.SessionID, r.LastSeen.Local().Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw document")
	return cmd
}

// keyFingerprint shortens a stored base64 host key for display.
func keyFingerprint(b64 string) string {
	raw, err := crypto.FromB64(b64)
	if err != nil || len(raw) == 0 {
		return "-"
	}
	pub, err := crypto.ParsePublicKey(raw)
	if err != nil {
		return "invalid"
	}
	return crypto.Fingerprint(pub)
}
