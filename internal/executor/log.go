package executor

import (
	"github.com/sirupsen/logrus"
)

// LogProgress returns a progress callback that writes one structured log
// line per migration outcome.
func LogProgress(log logrus.FieldLogger) func(ProgressEvent) {
	return func(ev ProgressEvent) {
		fields := logrus.Fields{
			"run_id": ev.RunID,
		}

		if ev.Migration != nil {
			fields["version"] = ev.Migration.Version
			fields["name"] = ev.Migration.Name
		}

		entry := log.WithFields(fields)

		switch ev.Status {
		case StatusSkipped:
			entry.WithField("action", "skipped").Info("migration already applied")
		case StatusPending:
			entry.WithField("action", "pending").Info("migration would be applied")
		case StatusStarting:
			entry.WithField("action", "applying").Debug("applying migration")
		case StatusCompleted:
			entry.WithFields(logrus.Fields{
				"action":      "applied",
				"duration_ms": ev.Duration.Milliseconds(),
			}).Info("migration applied")
		case StatusRolledBack:
			entry.WithFields(logrus.Fields{
				"action":      "rolled_back",
				"duration_ms": ev.Duration.Milliseconds(),
			}).Info("migration rolled back")
		case StatusFailed:
			entry.WithFields(logrus.Fields{
				"action":      "failed",
				"duration_ms": ev.Duration.Milliseconds(),
			}).WithError(ev.Error).Error("migration failed")
		}
	}
}
