package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yeremiapane/restaurant-ordering/services"
)

func NewPrintTestCommand(rootOpts *RootOptions) *cobra.Command {
	var device string

	cmd := &cobra.Command{
		Use:   "print-test",
		Short: "Print a test page on a receipt printer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if device == "" {
				device = rootOpts.load().PrinterDevice
			}
			if device == "" {
				return errors.New("no printer device: pass --device or set PRINTER_DEVICE")
			}

			p := services.NewPrinterService(services.OpenDeviceFile)
			defer p.Close()
			if err := p.Connect(device); err != nil {
				return err
			}
			if err := p.PrintTestPage(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "test page sent to %s\n", device)
			return nil
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", "printer device path, overrides PRINTER_DEVICE")
	return cmd
}
