package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VekotinVerstas/sensehel/internal/subscription"
	"github.com/VekotinVerstas/sensehel/pkg/api"
)

// newServicesCmd lists the services offered to the resident.
func newServicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List services offered for your apartment data",
		RunE:  runServices,
	}
}

func runServices(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	services, err := a.gateway.ListAvailableServices(cmd.Context())
	if err != nil {
		return err
	}
	subscribed, err := subscribedServiceIDs(cmd.Context(), a)
	if err != nil {
		return err
	}

	if jsonOutput {
		type entry struct {
			api.Service
			Subscribed bool `json:"subscribed"`
		}
		out := make([]entry, 0, len(services))
		for _, svc := range services {
			out = append(out, entry{Service: svc, Subscribed: subscribed[svc.ID]})
		}
		printJSON(out)
		return nil
	}

	if len(services) == 0 {
		fmt.Println("No services available.")
		return nil
	}
	for _, svc := range services {
		marker := " "
		if subscribed[svc.ID] {
			marker = "*"
		}
		fmt.Printf("%s %3d  %-24s %s\n", marker, svc.ID, svc.Name, svc.Description)
		if len(svc.Requires) > 0 {
			fmt.Printf("       requires: %v\n", svc.Requires)
		}
	}
	fmt.Println("\n* = subscribed")
	return nil
}

// newSubscriptionsCmd lists the resident's active subscriptions.
func newSubscriptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subscriptions",
		Short: "List your active service subscriptions",
		RunE:  runSubscriptions,
	}
}

func runSubscriptions(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	subs, err := a.gateway.ListSubscriptions(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(subs)
		return nil
	}

	if len(subs) == 0 {
		fmt.Println("You have no subscriptions.")
		return nil
	}
	for _, sub := range subs {
		fmt.Printf("%3d  %-24s since %s\n", sub.Service.ID, sub.Service.Name, sub.CreatedAt.Format("2006-01-02"))
	}
	return nil
}

// subscribedServiceIDs fetches the subscription listing and indexes it by
// service id. The listing call also refreshes the persisted snapshot.
func subscribedServiceIDs(ctx context.Context, a *app) (map[int]bool, error) {
	subs, err := a.gateway.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int]bool, len(subs))
	for _, sub := range subs {
		out[sub.Service.ID] = true
	}
	return out, nil
}

// findService locates a service by id in the offered listing.
func findService(ctx context.Context, a *app, id int) (*api.Service, error) {
	services, err := a.gateway.ListAvailableServices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range services {
		if services[i].ID == id {
			return &services[i], nil
		}
	}
	return nil, fmt.Errorf("no service with id %d", id)
}

// newSubscribeWorkflow builds the workflow for a service card, wiring the
// mutation callbacks to the gateway. Selected attribute URIs are resolved
// to apartment sensor attribute ids through the cache right before the
// create call.
func newSubscribeWorkflow(a *app, svc api.Service, subscribed bool, subscriptionID int) *subscription.Workflow {
	subscribeFn := func(ctx context.Context, selectedURIs []string, includeHistory bool) error {
		attrs, err := a.cache.SensorAttributes(ctx, selectedURIs)
		if err != nil {
			return err
		}
		ids := make([]int, 0, len(attrs))
		for _, attr := range attrs {
			ids = append(ids, attr.ID)
		}
		_, err = a.gateway.CreateSubscription(ctx, svc.ID, ids, includeHistory)
		return err
	}
	unsubscribeFn := func(ctx context.Context) error {
		return a.gateway.DeleteSubscription(ctx, subscriptionID)
	}
	return subscription.NewWorkflow(svc, subscribed, subscribeFn, unsubscribeFn)
}
