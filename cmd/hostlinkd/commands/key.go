package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"hostlink/internal/app"
	"hostlink/internal/services/identity"
	"hostlink/internal/store"
)

func keyCmd() *cobra.Command {
	var rotate bool
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Create, rotate or fingerprint the persistent server key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Storage.KeyFile == "" {
				return fmt.Errorf("key file required (--key-file or storage.key_file)")
			}
			if cfg.Passphrase == "" {
				return fmt.Errorf("passphrase required ($%s)", app.PassphraseEnv)
			}
			svc := identity.New(store.NewKeyFileStore(cfg.Storage.KeyFile))

			if rotate {
				kp, err := svc.Rotate(cfg.Passphrase)
				if err != nil {
					return err
				}
				defer kp.Wipe()
				fmt.Fprintf(cmd.OutOrStdout(), "Key rotated.\nFingerprint: %s\n", identity.Fingerprint(kp))
				return nil
			}

			kp, created, err := svc.LoadOrGenerate(cfg.Passphrase)
			if err != nil {
				return err
			}
			defer kp.Wipe()
			if created {
				fmt.Fprintln(cmd.OutOrStdout(), "Key created.")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", identity.Fingerprint(kp))
			return nil
		},
	}
	cmd.Flags().BoolVar(&rotate, "rotate", false, "replace the stored key")
	return cmd
}
