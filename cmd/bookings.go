package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"libseat-cli/model"
)

func newBookingsCmd(a *app) *cobra.Command {
	var showPast bool
	var showQR bool

	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List your seat bookings",
		Long:  `List your upcoming bookings, or every booking with --all, grouped by whether they have ended.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSignIn(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.RequestTimeout)
			defer cancel()

			bookings, err := a.client.ListBookings(ctx)
			if err != nil {
				a.logger.Error("list bookings", zap.Error(err))
				return fmt.Errorf("list bookings: %w", err)
			}
			renderBookings(cmd.OutOrStdout(), bookings, time.Now(), showPast, showQR)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showPast, "all", "a", false, "include bookings that have ended")
	cmd.Flags().BoolVar(&showQR, "qr", false, "show the check-in QR token column")
	return cmd
}

func renderBookings(out io.Writer, bookings []model.Booking, now time.Time, showPast bool, showQR bool) {
	upcoming, past := splitBookings(bookings, now)
	if !showPast {
		past = nil
	}
	if len(upcoming) == 0 && len(past) == 0 {
		fmt.Fprintln(out, "No bookings found.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	rowConfigAutoMerge := table.RowConfig{AutoMerge: true}

	header := table.Row{"When", "ID", "Seat", "Section", "Date", "Time", "Status"}
	if showQR {
		header = append(header, "QR token")
	}
	t.AppendHeader(header, rowConfigAutoMerge)

	appendGroup := func(label string, group []model.Booking) {
		for _, b := range group {
			row := table.Row{
				label,
				b.Id,
				b.SeatNumber,
				b.SectionName,
				b.StartTime.Format("Mon 02 Jan"),
				b.StartTime.Format("15:04") + "-" + b.EndTime.Format("15:04"),
				b.Status,
			}
			if showQR {
				qr := ""
				if b.IsConfirmed() {
					qr = b.QRCodeToken
				}
				row = append(row, qr)
			}
			t.AppendRow(row, rowConfigAutoMerge)
		}
	}
	appendGroup("Upcoming", upcoming)
	appendGroup("Past", past)

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
	})
	t.Style().Options.SeparateRows = true
	t.Render()
}

// splitBookings orders upcoming bookings soonest first and past ones most
// recent first.
func splitBookings(bookings []model.Booking, now time.Time) (upcoming []model.Booking, past []model.Booking) {
	for _, b := range bookings {
		if b.IsUpcoming(now) {
			upcoming = append(upcoming, b)
		} else {
			past = append(past, b)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].StartTime.Before(upcoming[j].StartTime)
	})
	sort.SliceStable(past, func(i, j int) bool {
		return past[i].StartTime.After(past[j].StartTime)
	})
	return upcoming, past
}
