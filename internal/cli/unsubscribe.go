package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/VekotinVerstas/sensehel/internal/subscription"
	"github.com/VekotinVerstas/sensehel/pkg/api"
)

// newUnsubscribeCmd creates the unsubscribe command.
func newUnsubscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unsubscribe SERVICE_ID [flags]",
		Short: "Unsubscribe from a service, revoking its consents",
		Long: `Unsubscribe from a service. This revokes all consents granted to the
service; it asks for confirmation before doing so.

Example:
  sensehel unsubscribe 3`,
		Args: cobra.ExactArgs(1),
		RunE: runUnsubscribe,
	}
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func runUnsubscribe(cmd *cobra.Command, args []string) error {
	serviceID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid service id %q", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	subs, err := a.gateway.ListSubscriptions(ctx)
	if err != nil {
		return err
	}

	var matched *api.Subscription
	for i := range subs {
		if subs[i].Service.ID == serviceID {
			matched = &subs[i]
			break
		}
	}
	if matched == nil {
		return fmt.Errorf("you are not subscribed to service %d", serviceID)
	}

	w := newSubscribeWorkflow(a, matched.Service, true, matched.ID)
	w.RequestUnsubscribe()

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		ok, err := confirm(cmd, subscription.ConfirmUnsubscribeText+"\nConfirm unsubscribe")
		if err != nil {
			return err
		}
		if !ok {
			w.CancelUnsubscribe()
			fmt.Println("Unsubscribe cancelled")
			return nil
		}
	}

	if err := w.ConfirmUnsubscribe(ctx); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]string{"status": "success", "service": matched.Service.Name})
	} else {
		okLabel.Printf("✓ Unsubscribed from %s\n", matched.Service.Name)
	}
	return nil
}
