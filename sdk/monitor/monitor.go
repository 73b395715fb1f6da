package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/rnative/rnative-client/sdk/httputils"
	"github.com/rnative/rnative-client/sdk/models"
)

// DefaultInterval is the delay between two status polls
const DefaultInterval = 5 * time.Second

// StatusPoller reads the current status of a task
type StatusPoller interface {
	PollStatus(ctx context.Context, taskID string) (*models.TaskStatus, error)
}

// PollFunc is called with every status observed while waiting
type PollFunc func(status *models.TaskStatus)

// WaitTask blocks the caller till the task reaches COMPLETED or FAILED. Polls
// are spaced by interval; the first one is sent immediately.
//
// On FAILED the final status is returned together with a
// *httputils.TaskFailedError carrying the server message. If ctx expires
// first, the error is a *httputils.TimeoutError; if it is cancelled, the
// error is ctx.Err(). Poll errors abort the wait.
func WaitTask(ctx context.Context, poller StatusPoller, taskID string, interval time.Duration, onPoll PollFunc) (*models.TaskStatus, error) {
	logrus.Infof("Begin monitoring task %s ...", taskID)

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	begin := time.Now()
	var last *models.TaskStatus

	for {
		if err := pace(ctx, limiter); err != nil {
			return last, waitError(ctx, taskID, begin, last, err)
		}

		status, err := poller.PollStatus(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return last, waitError(ctx, taskID, begin, last, err)
			}
			return last, err
		}
		last = status

		if onPoll != nil {
			onPoll(status)
		}

		switch status.Status {
		case models.StatusCompleted:
			logrus.Infof("Task %s completed after %s.", taskID, time.Since(begin).Round(time.Second))
			return status, nil
		case models.StatusFailed:
			logrus.Warnf("Task %s failed: %s", taskID, status.Message)
			return status, &httputils.TaskFailedError{TaskID: taskID, Message: status.Message}
		default:
			logrus.Debugf("Task %s: %s.", taskID, status.Status)
		}
	}
}

// pace blocks until the limiter allows the next poll or ctx is done. It keeps
// waiting when the next poll falls past the deadline; the wait only ends on
// ctx expiry.
func pace(ctx context.Context, limiter *rate.Limiter) error {
	r := limiter.Reserve()
	delay := r.Delay()
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// waitError maps an interrupted wait to the error the caller sees.
func waitError(ctx context.Context, taskID string, begin time.Time, last *models.TaskStatus, err error) error {
	if ctx.Err() == nil {
		return err
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}

	lastStatus := "none"
	if last != nil {
		lastStatus = string(last.Status)
	}

	return &httputils.TimeoutError{
		TaskID:     taskID,
		Waited:     time.Since(begin),
		LastStatus: lastStatus,
		Err:        ctx.Err(),
	}
}
