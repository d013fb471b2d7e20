package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yeremiapane/restaurant-ordering/services"
)

type qrOptions struct {
	ShortCode string
	Table     int
	Output    string
	BaseURL   string
}

func NewQRCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &qrOptions{}

	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Write a guest ordering QR code as PNG",
		Long: `Write a PNG QR code that opens the guest ordering page of a restaurant,
or of one of its tables when --table is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.BaseURL == "" {
				opts.BaseURL = rootOpts.load().PublicBaseURL
			}
			return runQR(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ShortCode, "short-code", "", "restaurant short code")
	cmd.Flags().IntVar(&opts.Table, "table", 0, "table number (optional)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "qr.png", "output PNG file")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "public base URL, overrides PUBLIC_BASE_URL")
	_ = cmd.MarkFlagRequired("short-code")
	return cmd
}

func runQR(cmd *cobra.Command, opts *qrOptions) error {
	code := strings.ToUpper(strings.TrimSpace(opts.ShortCode))
	if code == "" {
		return errors.New("short code is required")
	}
	if opts.Table < 0 {
		return errors.New("table must be positive")
	}

	url := services.NewGuestLinks(opts.BaseURL).For(code, opts.Table)
	png, err := services.QRCode(url)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.Output, png, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", url, opts.Output)
	return nil
}
