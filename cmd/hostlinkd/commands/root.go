package commands

import (
	"github.com/spf13/cobra"

	"hostlink/internal/app"
)

var (
	configPath string
	cfg        app.Config

	tcpPort   int
	udpPort   int
	statePath string
	keyFile   string
	logLevel  string
)

// Execute runs the root command.
func Execute() error {
	root := &cobra.Command{
		Use:          "hostlinkd",
		Short:        "Session server for enrolled remote hosts",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = app.DefaultConfigFile
			}
			loaded, err := app.LoadConfig(path, configPath != "")
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("tcp-port") {
				loaded.Server.TCPPort = tcpPort
			}
			if flags.Changed("udp-port") {
				loaded.Server.UDPPort = udpPort
			}
			if flags.Changed("state") {
				loaded.Storage.StatePath = statePath
			}
			if flags.Changed("key-file") {
				loaded.Storage.KeyFile = keyFile
			}
			if flags.Changed("log-level") {
				loaded.Log.Level = logLevel
			}
			cfg = loaded
			return cfg.Validate()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "config file (default ./"+app.DefaultConfigFile+" if present)")
	pf.IntVar(&tcpPort, "tcp-port", 0, "TCP session port")
	pf.IntVar(&udpPort, "udp-port", 0, "UDP discovery port")
	pf.StringVar(&statePath, "state", "", "state file path")
	pf.StringVar(&keyFile, "key-file", "", "sealed server key file (passphrase from $"+app.PassphraseEnv+")")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd(), stateCmd(), keyCmd(), probeCmd())
	return root.Execute()
}
