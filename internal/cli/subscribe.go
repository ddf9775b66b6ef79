package cli

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// newSubscribeCmd creates the subscribe command.
func newSubscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribe SERVICE_ID [flags]",
		Short: "Subscribe to a service, sharing selected sensor data",
		Long: `Subscribe to an offered service. You choose which of the service's
required sensor attributes to share, whether to include past data, and you
must consent to the service's terms and conditions.

Examples:
  # See which attributes a service can use
  sensehel subscribe 3

  # Subscribe sharing one attribute
  sensehel subscribe 3 --attr sensehel/temperature --consent

  # Share everything the service asks for, including past data
  sensehel subscribe 3 --all --history --consent`,
		Args: cobra.ExactArgs(1),
		RunE: runSubscribe,
	}

	cmd.Flags().StringArray("attr", nil, "Attribute URI to share (repeatable)")
	cmd.Flags().Bool("all", false, "Share every required attribute your apartment provides")
	cmd.Flags().Bool("history", false, "Also share past data")
	cmd.Flags().Bool("consent", false, "Confirm you have read the terms and conditions")
	return cmd
}

func runSubscribe(cmd *cobra.Command, args []string) error {
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
	svc, err := findService(ctx, a, serviceID)
	if err != nil {
		return err
	}
	subscribed, err := subscribedServiceIDs(ctx, a)
	if err != nil {
		return err
	}
	if subscribed[svc.ID] {
		fmt.Printf("Already subscribed to %s. Use \"sensehel unsubscribe %d\" first to change the selection.\n", svc.Name, svc.ID)
		return nil
	}

	// attributes the apartment can actually provide for this service
	sharable, err := a.cache.SensorAttributes(ctx, svc.Requires)
	if err != nil {
		return errors.Wrap(err, "failed to resolve sensor attributes")
	}
	if len(sharable) == 0 {
		fmt.Printf("Your apartment has no sensor data that %s can use.\n", svc.Name)
		return nil
	}

	attrURIs, _ := cmd.Flags().GetStringArray("attr")
	all, _ := cmd.Flags().GetBool("all")
	history, _ := cmd.Flags().GetBool("history")
	consent, _ := cmd.Flags().GetBool("consent")

	if all {
		attrURIs = attrURIs[:0]
		for _, attr := range sharable {
			attrURIs = append(attrURIs, attr.URI)
		}
	}

	if len(attrURIs) == 0 {
		fmt.Printf("Select data to share with %s (--attr, repeatable):\n", svc.Name)
		for _, attr := range sharable {
			fmt.Printf("  %-32s %s (sensor %s)\n", attr.URI, attr.Description, attr.Sensor.Identifier)
		}
		fmt.Printf("\nTerms and conditions: %s\n", svc.EulaURL)
		return nil
	}

	valid := make(map[string]bool, len(sharable))
	for _, attr := range sharable {
		valid[attr.URI] = true
	}
	for _, uri := range attrURIs {
		if !valid[uri] {
			return fmt.Errorf("attribute %q is not provided by your apartment or not used by %s", uri, svc.Name)
		}
	}

	if !consent {
		return fmt.Errorf("subscribing requires consent: read the terms at %s and pass --consent", svc.EulaURL)
	}

	w := newSubscribeWorkflow(a, *svc, false, 0)
	for _, uri := range attrURIs {
		w.ToggleAttribute(uri)
	}
	if history {
		w.ToggleIncludeHistory()
	}
	w.SetConsent(true)

	if err := w.Subscribe(ctx); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]any{
			"status":     "success",
			"service":    svc.Name,
			"attributes": attrURIs,
			"history":    history,
		})
	} else {
		okLabel.Printf("✓ Subscribed to %s\n", svc.Name)
	}
	return nil
}
