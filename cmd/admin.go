package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"libseat-cli/model"
	"libseat-cli/service"
)

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Staff tools: occupancy analytics and check-in",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			if err := a.requireSignIn(); err != nil {
				return err
			}
			if !a.sess.IsAdmin() {
				return errors.New("admin access required")
			}
			return nil
		},
	}

	analyticsCmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show today's occupancy figures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.RequestTimeout)
			defer cancel()
			stats, err := a.client.GetAnalytics(ctx)
			if err != nil {
				a.logger.Error("get analytics", zap.Error(err))
				return fmt.Errorf("get analytics: %w", err)
			}
			renderAnalytics(cmd.OutOrStdout(), stats)
			return nil
		},
	}

	checkInCmd := &cobra.Command{
		Use:   "checkin <qr-token>",
		Short: "Check a student in from their booking QR token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.RequestTimeout)
			defer cancel()
			result, err := a.client.CheckIn(ctx, args[0])
			if err != nil {
				a.logger.Warn("check-in failed", zap.Error(err))
				var apiErr *service.APIError
				if errors.As(err, &apiErr) {
					return fmt.Errorf("check-in rejected: %s", apiErr.Message())
				}
				return fmt.Errorf("check-in: %w", err)
			}
			a.logger.Info("checked in", zap.Int("booking_id", result.BookingId))
			fmt.Fprintln(cmd.OutOrStdout(), checkInSummary(result))
			return nil
		},
	}

	cmd.AddCommand(analyticsCmd, checkInCmd)
	return cmd
}

func renderAnalytics(out io.Writer, stats model.Analytics) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Total seats", stats.TotalSeats},
		{"Occupied seats", stats.OccupiedSeats},
		{"Occupancy rate", fmt.Sprintf("%.1f%%", stats.OccupancyRate)},
		{"Bookings today", stats.BookingsToday},
		{"No-show rate", fmt.Sprintf("%.1f%%", stats.NoShowRate)},
	})
	t.Render()
}

func checkInSummary(c model.CheckIn) string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		name = "Student"
	}
	where := c.SeatNumber
	if c.SectionName != "" {
		where += ", " + c.SectionName
	}
	msg := fmt.Sprintf("Checked in: %s at seat %s", name, where)
	if c.BookingId != 0 {
		msg += fmt.Sprintf(" (booking #%d)", c.BookingId)
	}
	return msg
}
