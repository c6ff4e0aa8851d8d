package respeecher

import (
	"context"
	"fmt"
	"time"

	"github.com/nadzzz/respeecher/pkg/api"
)

type conversion struct {
	recording *api.Recording
	polls     int
	elapsed   time.Duration
}

// Wait polls a converted recording until it is done. It returns a
// *ConversionError if the backend reports an error and a *TimeoutError once
// the timeout is exceeded. It can be used to pick up a conversion that an
// earlier Synthesize call gave up on.
func (s *Synthesizer) Wait(ctx context.Context, conversionID string) (*api.Recording, error) {
	conv, err := s.wait(ctx, conversionID)
	if err != nil {
		return nil, err
	}
	return conv.recording, nil
}

// wait sleeps, fetches, then checks the state. The elapsed time is only
// compared after a non-terminal fetch, so a conversion can finish up to one
// interval past the timeout and still succeed.
func (s *Synthesizer) wait(ctx context.Context, conversionID string) (*conversion, error) {
	start := s.clock.Now()
	polls := 0

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.clock.After(s.pollInterval):
		}

		rec, err := s.client.GetRecording(ctx, conversionID)
		if err != nil {
			return nil, err
		}
		polls++
		elapsed := s.clock.Now().Sub(start)

		switch rec.State {
		case api.StateDone:
			if rec.URL == nil || *rec.URL == "" {
				return nil, fmt.Errorf("conversion %s: %w", conversionID, ErrMissingURL)
			}
			s.logf("conversion finished", "conversion_id", conversionID,
				"elapsed", elapsed, "polls", polls)
			return &conversion{recording: rec, polls: polls, elapsed: elapsed}, nil
		case api.StateError:
			return nil, &ConversionError{ConversionID: conversionID, Message: rec.ErrorString()}
		}

		if elapsed > s.timeout {
			return nil, &TimeoutError{
				ConversionID: conversionID,
				LastState:    rec.State,
				Elapsed:      elapsed,
				Timeout:      s.timeout,
			}
		}
		s.logger.Debug("conversion pending", "conversion_id", conversionID,
			"state", rec.State, "elapsed", elapsed)
	}
}
