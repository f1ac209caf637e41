// Package maintenance is the planned-maintenance module: vessel components,
// the change-request workflow over their data, and spreadsheet imports.
package maintenance

import (
	"embed"

	"github.com/helmline/pms/modules/maintenance/infrastructure/persistence"
	"github.com/helmline/pms/modules/maintenance/presentation/controllers"
	"github.com/helmline/pms/modules/maintenance/services"
	"github.com/helmline/pms/pkg/application"
	"github.com/helmline/pms/pkg/configuration"
)

//go:embed infrastructure/persistence/schema/pms-schema.sql
var migrationFiles embed.FS

type Module struct{}

func NewModule() *Module {
	return &Module{}
}

func (m *Module) Name() string {
	return "maintenance"
}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()

	componentRepo := persistence.NewComponentRepository()
	changeRequestRepo := persistence.NewChangeRequestRepository()
	importLogRepo := persistence.NewImportLogRepository()

	app.RegisterServices(
		services.NewComponentService(componentRepo, nil),
		services.NewChangeRequestService(changeRequestRepo, componentRepo, app.EventPublisher(), nil),
		services.NewImportService(componentRepo, importLogRepo, app.EventPublisher(), nil, conf.Import.SheetName),
	)
	app.RegisterControllers(
		controllers.NewChangeRequestController(app),
		controllers.NewModifyPMSController(app),
		controllers.NewComponentController(app),
		controllers.NewImportController(app),
	)
	registerEventListeners(app.EventPublisher(), conf.Logger())
	app.Migrations().RegisterSchema(&migrationFiles)
	return nil
}
