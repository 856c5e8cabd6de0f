package notify

import (
	"context"
	"encoding/json"
	"fmt"

	ridekafka "github.com/avdonin/ridepool/internal/kafka"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Notifier turns booking lifecycle events into user-facing notifications.
// Delivery is a log line for now; the payload shape is final.
type Notifier struct {
	log *logrus.Logger
}

func NewNotifier(log *logrus.Logger) *Notifier {
	return &Notifier{log: log}
}

// Handle is plugged into the Kafka consumer loop. Malformed messages are
// dropped with a warning instead of wedging the consumer group.
func (n *Notifier) Handle(ctx context.Context, msg kafka.Message) error {
	var event ridekafka.BookingEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		n.log.WithError(err).WithField("offset", msg.Offset).Warn("dropping malformed notification")
		return nil
	}

	recipient, text := render(event)
	if recipient == 0 {
		return nil
	}

	n.log.WithFields(logrus.Fields{
		"recipient": recipient,
		"event":     event.Type,
		"trip_id":   event.TripID,
		"booking":   event.Token,
	}).Info(text)
	return nil
}

// render picks who gets told what. Created events go to the driver, the rest
// to the passenger.
func render(event ridekafka.BookingEvent) (int64, string) {
	switch event.Type {
	case ridekafka.EventBookingCreated:
		return event.DriverID, fmt.Sprintf("new booking request for %d seat(s) on trip %d", event.Seats, event.TripID)
	case ridekafka.EventBookingApproved:
		return event.PassengerID, fmt.Sprintf("your booking on trip %d was approved", event.TripID)
	case ridekafka.EventBookingRejected:
		if event.Reason != "" {
			return event.PassengerID, fmt.Sprintf("your booking on trip %d was rejected: %s", event.TripID, event.Reason)
		}
		return event.PassengerID, fmt.Sprintf("your booking on trip %d was rejected", event.TripID)
	case ridekafka.EventBookingCancelled:
		return event.PassengerID, fmt.Sprintf("your booking on trip %d was cancelled", event.TripID)
	case ridekafka.EventBookingCompleted:
		return event.PassengerID, fmt.Sprintf("trip %d is complete, you can rate your ride", event.TripID)
	default:
		return 0, ""
	}
}
