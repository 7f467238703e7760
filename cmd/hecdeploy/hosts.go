package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ruffel/hecdeploy/providers/ssh"
	"github.com/spf13/cobra"
)

func newHostsCmd() *cobra.Command {
	hostsCmd := &cobra.Command{
		Use:   "hosts",
		Short: "Manage trusted cluster host keys",
	}

	var knownHosts string

	addCmd := &cobra.Command{
		Use:     "add <host[:port]> <key-type> <base64-key>",
		Short:   "Trust a host key, as printed by ssh-keyscan",
		Example: "  hecdeploy hosts add login.hec.example.org ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAA...",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := ssh.ParsePublicKey(args[1], args[2])
			if err != nil {
				return err
			}

			path := knownHosts
			if path == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("failed to locate home directory: %w", err)
				}

				path = filepath.Join(home, ".ssh", "known_hosts")
			}

			if err := ssh.AddKnownHost(path, args[0], key); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), checkStyle.Render(fmt.Sprintf("Trusted %s key for %s in %s", key.Type(), args[0], path)))

			return nil
		},
	}

	addCmd.Flags().StringVar(&knownHosts, "known-hosts", "", "known_hosts file to update (default: ~/.ssh/known_hosts)")

	hostsCmd.AddCommand(addCmd)

	return hostsCmd
}
