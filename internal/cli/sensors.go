package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VekotinVerstas/sensehel/internal/apartment"
)

// newSensorsCmd creates the sensors command showing current readings.
func newSensorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sensors",
		Short: "Show current sensor readings for your apartment",
		RunE:  runSensors,
	}
}

func runSensors(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ap, err := a.cache.Apartment(cmd.Context())
	if err != nil {
		if errors.Is(err, apartment.ErrNoApartmentRegistered) {
			fmt.Println("No apartment registered to you.")
			return nil
		}
		return err
	}

	values, err := a.cache.SensorValues(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]any{
			"street":  ap.Street,
			"city":    ap.City,
			"sensors": values,
		})
		return nil
	}

	fmt.Printf("%s, %s\n\n", ap.Street, ap.City)
	if len(values) == 0 {
		fmt.Println("No sensor readings available yet.")
		return nil
	}
	for _, v := range values {
		fmt.Printf("%-20s %8s %-10s sensor %s, updated %s\n",
			v.Description, v.Value, v.UIType, v.Identifier, v.UpdatedAt)
	}
	return nil
}
