// Package retrydrive periodically re-dispatches retry-queue items that have
// become ready, the background half of the circuit breaker / retry queue
// story that the one-shot `dcp run` CLI path never needs to run.
//
// Grounded on the teacher's AddTickerWorker pattern
// (infrastructure/service/base.go): a background loop that fires on an
// interval, logs its own errors, and stops cleanly when told to. Built on
// robfig/cron/v3 instead of a bare time.Ticker, since cron is already a
// dependency the teacher carries but never exercises.
package retrydrive

import (
	"errors"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/dcpsystems/dcp/internal/model"
	"github.com/dcpsystems/dcp/internal/registry"
	"github.com/dcpsystems/dcp/internal/resilience"
)

// DefaultSchedule re-drives the queue every 30 seconds.
const DefaultSchedule = "*/30 * * * * *"

// Driver periodically dequeues ready retry items and re-dispatches them
// through an adapter registry.
type Driver struct {
	queue    *resilience.RetryQueue
	registry *registry.Registry
	schedule string
	log      *logrus.Entry

	cron *cron.Cron
}

// New builds a Driver. schedule is a 6-field (seconds-enabled) cron
// expression; an empty string falls back to DefaultSchedule.
func New(queue *resilience.RetryQueue, reg *registry.Registry, schedule string, log *logrus.Entry) *Driver {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Driver{
		queue:    queue,
		registry: reg,
		schedule: schedule,
		log:      log,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start schedules the re-drive job and begins running it in the
// background. Call Stop to shut it down.
func (d *Driver) Start() error {
	_, err := d.cron.AddFunc(d.schedule, d.driveOnce)
	if err != nil {
		return err
	}
	d.cron.Start()
	return nil
}

// Stop halts the cron scheduler, waiting for any in-flight run to finish.
func (d *Driver) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
}

// driveOnce dequeues every ready item and re-dispatches it. Project root,
// environment and module path are read from the item's params under
// "_project_root", "_environment" and "_module_path", with "." and "dev"
// as the fallbacks for the first two; engine.BuildActions sets only
// "_module_path".
func (d *Driver) driveOnce() {
	ready := d.queue.DequeueReady()
	for _, item := range ready {
		action := model.Action{
			ID:      item.ActionID,
			Adapter: item.Adapter,
			Params:  item.Params,
		}

		projectRoot, _ := item.Params["_project_root"].(string)
		if projectRoot == "" {
			projectRoot = "."
		}
		environment, _ := item.Params["_environment"].(string)
		if environment == "" {
			environment = "dev"
		}
		modulePath, _ := item.Params["_module_path"].(string)

		receipt := d.registry.Dispatch(action, registry.DispatchOptions{
			ProjectRoot: projectRoot,
			Environment: environment,
			ModulePath:  modulePath,
		})

		if receipt.Ok() {
			if err := d.queue.Complete(item.ID); err != nil {
				d.log.WithError(err).WithField("item", item.ID).Warn("failed to mark retry item complete")
			}
			continue
		}

		backoff := resilience.DefaultRetryConfig()
		if err := d.queue.Fail(item.ID, backoff.InitialDelay, backoff.MaxDelay, receipt.Error); err != nil {
			d.log.WithError(err).WithField("item", item.ID).Warn("failed to reschedule retry item")
		}
	}

	exhausted, err := d.queue.RemoveExhausted()
	if err != nil {
		d.log.WithError(err).Warn("failed to drain exhausted retry items")
		return
	}
	for _, item := range exhausted {
		receipt := resilience.ReceiptForExhausted(item)
		entry := d.log.WithFields(logrus.Fields{
			"action_id": item.ActionID,
			"adapter":   item.Adapter,
			"attempts":  item.Attempt,
		})
		if receipt.Error != "" {
			entry = entry.WithError(errors.New(receipt.Error))
		}
		entry.Error("retry item exhausted its attempts")
	}
}
