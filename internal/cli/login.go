package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newLoginCmd creates and returns a new login command
func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the SenseHel server",
		Long: `Login to the SenseHel server to start a session.
On success the session is persisted, so subsequent commands run
authenticated until you log out or the session expires.

Example:
  sensehel login --username pauli --password secret`,
		RunE: runLogin,
	}

	cmd.Flags().String("username", "", "Username for authentication")
	cmd.Flags().String("password", "", "Password for authentication")
	return cmd
}

// runLogin handles the login command execution
func runLogin(cmd *cobra.Command, args []string) error {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	if username == "" || password == "" {
		return fmt.Errorf("both --username and --password are required")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	user, err := a.gateway.Login(cmd.Context(), username, password)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]any{
			"status":   "success",
			"username": user.Username,
		})
	} else {
		okLabel.Println("✓ Login successful")
		fmt.Printf("Welcome, %s %s\n", user.FirstName, user.LastName)
	}
	return nil
}

// newLogoutCmd creates and returns a new logout command
func newLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Long: `End the current session. The persisted session is cleared and the
credential reset; you will need to log in again to use authenticated
commands.`,
		RunE: runLogout,
	}
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func runLogout(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		ok, err := confirm(cmd, "Are you sure you want to logout? You will be redirected to the login screen")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Logout cancelled")
			return nil
		}
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.gateway.Logout(); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]string{"status": "success"})
	} else {
		okLabel.Println("✓ Logged out")
	}
	return nil
}

// confirm prompts on the command's input stream and accepts y/yes.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
