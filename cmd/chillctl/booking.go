package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/staychill/booking-backend/internal/models"
)

func bookingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "booking",
		Short: "Inspect and manage individual bookings",
	}

	cmd.AddCommand(bookingStatusCmd())
	cmd.AddCommand(bookingCancelCmd())
	cmd.AddCommand(bookingAuditCmd())
	cmd.AddCommand(bookingReconcileCmd())

	return cmd
}

func parseBookingID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("booking id must be a positive integer, got %q", arg)
	}
	return id, nil
}

func bookingStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [booking-id]",
		Short: "Show a booking's payment status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBookingID(args[0])
			if err != nil {
				return err
			}

			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			status, err := a.Lifecycle.GetPaymentStatus(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(status)
		},
	}
}

func bookingCancelCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "cancel [booking-id]",
		Short: "Cancel a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBookingID(args[0])
			if err != nil {
				return err
			}

			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			booking, err := a.Bookings.CancelBooking(cmd.Context(), id, reason, models.PaymentSourceCLI)
			if err != nil {
				return err
			}
			return printJSON(booking)
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "reason recorded in the audit trail")
	return cmd
}

func bookingAuditCmd() *cobra.Command {
	var intentID string

	cmd := &cobra.Command{
		Use:   "audit [booking-id]",
		Short: "Print a booking's payment audit trail",
		Long:  "Print a booking's payment audit trail. With --intent, print every entry recorded for that payment intent instead.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if intentID == "" && len(args) == 0 {
				return fmt.Errorf("a booking id or --intent is required")
			}

			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if intentID != "" {
				audits, err := a.Audit.ListByIntent(cmd.Context(), intentID)
				if err != nil {
					return err
				}
				return printJSON(audits)
			}

			id, err := parseBookingID(args[0])
			if err != nil {
				return err
			}
			audits, err := a.Audit.ListByBooking(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(audits)
		},
	}
	cmd.Flags().StringVar(&intentID, "intent", "", "payment intent id to look up instead of a booking")
	return cmd
}

func bookingReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [booking-id]",
		Short: "Resolve one booking against the payment provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBookingID(args[0])
			if err != nil {
				return err
			}

			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			booking, err := a.Bookings.GetBooking(cmd.Context(), id)
			if err != nil {
				return err
			}
			changed, err := a.Lifecycle.ReconcileBooking(cmd.Context(), booking, models.PaymentSourceCLI)
			if err != nil {
				return err
			}

			status, err := a.Lifecycle.GetPaymentStatus(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "changed: %t\n", changed)
			return printJSON(status)
		},
	}
}
