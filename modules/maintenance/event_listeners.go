package maintenance

import (
	"github.com/sirupsen/logrus"

	"github.com/helmline/pms/modules/maintenance/domain/events"
	"github.com/helmline/pms/pkg/eventbus"
)

// registerEventListeners wires the module's audit logging: every lifecycle
// event lands in the application log with enough fields to reconstruct who
// did what to which record.
func registerEventListeners(bus eventbus.EventBus, log *logrus.Logger) {
	bus.Subscribe(func(e events.ChangeRequestSubmitted) {
		log.WithFields(logrus.Fields{
			"requestId":   e.RequestID,
			"vesselId":    e.VesselID,
			"targetId":    e.TargetID,
			"requestedBy": e.RequestedBy,
			"title":       e.Title,
		}).Info("change request submitted")
	})
	bus.Subscribe(func(e events.ChangeRequestDecided) {
		log.WithFields(logrus.Fields{
			"requestId":  e.RequestID,
			"vesselId":   e.VesselID,
			"targetId":   e.TargetID,
			"reviewerId": e.ReviewerID,
			"decision":   e.Decision,
		}).Info("change request decided")
	})
	bus.Subscribe(func(e events.ComponentsImported) {
		log.WithFields(logrus.Fields{
			"vesselId":   e.VesselID,
			"fileName":   e.FileName,
			"imported":   e.Imported,
			"skipped":    e.Skipped,
			"importedBy": e.ImportedBy,
		}).Info("components imported")
	})
}
