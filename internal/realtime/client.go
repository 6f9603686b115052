// Package realtime overlays GTFS-RT trip update delays on scheduled wave events.
package realtime

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"github.com/pfederi/Next-Wave-sub001/internal/waves"
)

// DefaultTimeout bounds a single feed download
const DefaultTimeout = 15 * time.Second

// Client downloads GTFS-RT TripUpdates feeds
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a client. A nil httpClient uses DefaultTimeout.
func NewClient(httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{http: httpClient, logger: logger}
}

// FetchDelays downloads a TripUpdates feed and indexes its stop time updates
func (c *Client) FetchDelays(ctx context.Context, url string) (map[DelayKey]Delay, error) {
	feed, err := c.fetchFeed(ctx, url)
	if err != nil {
		return nil, err
	}

	delays := make(map[DelayKey]Delay)
	for _, entity := range feed.GetEntity() {
		tu := entity.GetTripUpdate()
		tripID := tu.GetTrip().GetTripId()
		if tu == nil || tripID == "" {
			continue
		}
		tripCanceled := tu.GetTrip().GetScheduleRelationship() == gtfs.TripDescriptor_CANCELED

		for _, stu := range tu.GetStopTimeUpdate() {
			if stu.GetStopId() == "" {
				continue
			}

			var d Delay
			if stu.GetArrival() != nil && stu.GetArrival().Delay != nil {
				v := int(stu.GetArrival().GetDelay())
				d.ArrivalDelay = &v
			}
			if stu.GetDeparture() != nil && stu.GetDeparture().Delay != nil {
				v := int(stu.GetDeparture().GetDelay())
				d.DepartureDelay = &v
			}
			rel := stu.GetScheduleRelationship()
			d.Skipped = tripCanceled || rel == gtfs.TripUpdate_StopTimeUpdate_SKIPPED
			if d.Skipped {
				c.logger.Debug("stop time skipped",
					zap.String("trip", tripID),
					zap.String("stop", stu.GetStopId()),
					zap.String("relationship", scheduleRelationshipNames[int32(rel)]),
					zap.Bool("trip_canceled", tripCanceled))
			}

			delays[DelayKey{TripID: tripID, StopID: stu.GetStopId()}] = d
		}
	}

	return delays, nil
}

func (c *Client) fetchFeed(ctx context.Context, url string) (*gtfs.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("failed to parse protobuf: %w", err)
	}
	return feed, nil
}

// ApplyDelays returns a copy of events shifted by their realtime delays.
// Events without provenance or without a matching update are kept as
// scheduled; skipped stop times are dropped.
func ApplyDelays(events []waves.WaveEvent, delays map[DelayKey]Delay) []waves.WaveEvent {
	out := make([]waves.WaveEvent, 0, len(events))
	for _, e := range events {
		d, ok := delays[DelayKey{TripID: e.TripID, StopID: e.StopID}]
		if !ok || e.TripID == "" {
			out = append(out, e)
			continue
		}
		if d.Skipped {
			continue
		}

		shift := d.DepartureDelay
		if e.IsArrival {
			shift = d.ArrivalDelay
		}
		if shift == nil {
			// GTFS-RT propagates the arrival delay when departure is absent
			shift = d.ArrivalDelay
		}
		if shift != nil {
			e.Time = e.Time.Add(time.Duration(*shift) * time.Second)
		}
		out = append(out, e)
	}
	return out
}
