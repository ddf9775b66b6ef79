package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newRevokeCmd creates the revoke command.
func newRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Detach your apartment and delete your account",
		Long: `Delete your user record from the SenseHel server, detaching the
apartment and ending all data sharing. This cannot be undone.`,
		RunE: runRevoke,
	}
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func runRevoke(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		ok, err := confirm(cmd, "This deletes your account and stops all data sharing. Continue")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Revoke cancelled")
			return nil
		}
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.gateway.RevokeUser(cmd.Context()); err != nil {
		return err
	}
	// the server-side account is gone; drop the local session as well
	if err := a.gateway.Logout(); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]string{"status": "success"})
	} else {
		okLabel.Println("✓ Account revoked")
	}
	return nil
}
