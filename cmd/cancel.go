package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"libseat-cli/model"
	"libseat-cli/service"
)

func newCancelCmd(a *app) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "cancel [booking-id]",
		Short: "Cancel one of your bookings",
		Long:  `Cancel a booking by id. Without an id, pick one of your upcoming confirmed bookings.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSignIn(); err != nil {
				return err
			}

			var bookingID int
			if len(args) == 1 {
				id, err := strconv.Atoi(args[0])
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid booking id %q", args[0])
				}
				bookingID = id
			} else {
				ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.RequestTimeout)
				bookings, err := a.client.ListBookings(ctx)
				cancel()
				if err != nil {
					return fmt.Errorf("list bookings: %w", err)
				}
				bookingID, err = promptSelectBooking(bookings, time.Now())
				if err != nil {
					return err
				}
			}

			if !assumeYes {
				confirm := promptui.Prompt{
					Label:     fmt.Sprintf("Cancel booking #%d", bookingID),
					IsConfirm: true,
				}
				if _, err := confirm.Run(); err != nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing cancelled.")
					return nil
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.RequestTimeout)
			defer cancel()
			if err := a.client.CancelBooking(ctx, bookingID); err != nil {
				a.logger.Error("cancel booking", zap.Int("booking_id", bookingID), zap.Error(err))
				if service.IsNotFound(err) {
					return fmt.Errorf("booking #%d not found", bookingID)
				}
				return fmt.Errorf("cancel booking: %w", err)
			}
			a.logger.Info("booking cancelled", zap.Int("booking_id", bookingID))
			fmt.Fprintf(cmd.OutOrStdout(), "Booking #%d cancelled.\n", bookingID)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// cancellable keys upcoming confirmed bookings by the label shown in the picker.
func cancellable(bookings []model.Booking, now time.Time) map[string]int {
	bookingIdByLabel := make(map[string]int)
	for _, b := range bookings {
		if !b.IsConfirmed() || !b.IsUpcoming(now) {
			continue
		}
		label := fmt.Sprintf("%s %s-%s  seat %s, %s  (#%d)",
			b.StartTime.Format("Mon 02 Jan"),
			b.StartTime.Format("15:04"),
			b.EndTime.Format("15:04"),
			b.SeatNumber,
			b.SectionName,
			b.Id,
		)
		bookingIdByLabel[label] = b.Id
	}
	return bookingIdByLabel
}

func promptSelectBooking(bookings []model.Booking, now time.Time) (int, error) {
	bookingIdByLabel := cancellable(bookings, now)
	if len(bookingIdByLabel) == 0 {
		return 0, errors.New("no upcoming bookings to cancel")
	}
	labels := maps.Keys(bookingIdByLabel)
	sort.Strings(labels)

	searcher := func(input string, index int) bool {
		return strings.Contains(strings.ToLower(labels[index]), strings.ToLower(input))
	}

	selectBooking := promptui.Select{
		Label:    "Select Booking",
		Items:    labels,
		Size:     10,
		Searcher: searcher,
	}
	_, label, err := selectBooking.Run()
	if err != nil {
		return 0, err
	}
	bookingID, ok := bookingIdByLabel[label]
	if !ok {
		return 0, errors.New("invalid booking")
	}
	return bookingID, nil
}
