package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/helmline/pms/modules/maintenance/domain/component"
	"github.com/helmline/pms/modules/maintenance/domain/events"
	"github.com/helmline/pms/modules/maintenance/domain/importlog"
	"github.com/helmline/pms/pkg/composables"
	"github.com/helmline/pms/pkg/constants"
	"github.com/helmline/pms/pkg/eventbus"
)

// importColumns is the required header row, in order. Extra columns to the
// right are ignored.
var importColumns = []string{
	"Code", "Name", "Maker", "Model", "SerialNo",
	"Location", "Department", "Criticality", "RunningHours", "Remarks",
}

// maxImportErrors caps how many per-row messages one run records.
const maxImportErrors = 20

// ImportService loads component registers from xlsx workbooks. Rows upsert
// by vessel+code; rejected rows are skipped and reported, they never abort
// the run.
type ImportService struct {
	components component.Repository
	history    importlog.Repository
	publisher  eventbus.EventBus
	inTx       TxRunner
	sheetName  string
}

func NewImportService(
	components component.Repository,
	history importlog.Repository,
	publisher eventbus.EventBus,
	inTx TxRunner,
	sheetName string,
) *ImportService {
	if inTx == nil {
		inTx = DefaultTx
	}
	if sheetName == "" {
		sheetName = "Components"
	}
	return &ImportService{
		components: components,
		history:    history,
		publisher:  publisher,
		inTx:       inTx,
		sheetName:  sheetName,
	}
}

type importRow struct {
	Code         string  `validate:"required,max=50"`
	Name         string  `validate:"required,max=200"`
	Maker        string  `validate:"max=200"`
	Model        string  `validate:"max=200"`
	SerialNo     string  `validate:"max=100"`
	Location     string  `validate:"max=200"`
	Department   string  `validate:"max=100"`
	Criticality  string  `validate:"omitempty,oneof=high medium low"`
	RunningHours float64 `validate:"gte=0"`
	Remarks      string  `validate:"max=2000"`
}

// ImportComponents parses the workbook and upserts one component per valid
// row, all inside a single transaction so a crashed run leaves nothing
// half-imported. The history row is written in the same transaction.
func (s *ImportService) ImportComponents(ctx context.Context, fileName string, r io.Reader) (*importlog.ImportLog, error) {
	user, err := composables.UseUser(ctx)
	if err != nil {
		return nil, forbiddenError("no authenticated user")
	}

	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, validationError("file is not a readable xlsx workbook", err)
	}
	defer workbook.Close()

	rows, err := workbook.GetRows(s.sheetName)
	if err != nil {
		return nil, validationError(fmt.Sprintf("workbook has no %q sheet", s.sheetName), err)
	}
	if len(rows) == 0 {
		return nil, validationError("sheet is empty", nil)
	}
	if err := checkHeader(rows[0]); err != nil {
		return nil, validationError(err.Error(), nil)
	}

	log := &importlog.ImportLog{
		ID:         uuid.New(),
		VesselID:   user.VesselID,
		FileName:   fileName,
		RowCount:   len(rows) - 1,
		ImportedBy: user.ID,
		CreatedAt:  time.Now().UTC(),
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		for i, cells := range rows[1:] {
			rowNum := i + 2
			row, rowErr := parseRow(cells)
			if rowErr == nil {
				rowErr = constants.Validate.Struct(row)
			}
			if rowErr != nil {
				log.Skipped++
				if len(log.Errors) < maxImportErrors {
					log.Errors = append(log.Errors, fmt.Sprintf("row %d: %v", rowNum, rowErr))
				}
				continue
			}
			if upsertErr := s.upsertRow(ctx, user.VesselID, row); upsertErr != nil {
				return upsertErr
			}
			log.Imported++
		}
		return s.history.Create(ctx, log)
	})
	if err != nil {
		return nil, asServiceError(err, "component not found")
	}

	s.publisher.Publish(events.ComponentsImported{
		VesselID:   user.VesselID,
		FileName:   fileName,
		Imported:   log.Imported,
		Skipped:    log.Skipped,
		ImportedBy: user.ID,
		FinishedAt: time.Now().UTC(),
	})
	return log, nil
}

func (s *ImportService) History(ctx context.Context, limit int) ([]*importlog.ImportLog, error) {
	vesselID, err := composables.UseVesselID(ctx)
	if err != nil {
		return nil, forbiddenError("no vessel scope on request")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := s.history.ListByVessel(ctx, vesselID, limit)
	if err != nil {
		return nil, mapRepositoryError(err, "import history not found")
	}
	return list, nil
}

func (s *ImportService) upsertRow(ctx context.Context, vesselID uuid.UUID, row importRow) error {
	data, err := json.Marshal(map[string]any{
		"maker":        row.Maker,
		"model":        row.Model,
		"serialNo":     row.SerialNo,
		"location":     row.Location,
		"department":   row.Department,
		"criticality":  row.Criticality,
		"runningHours": row.RunningHours,
		"remarks":      row.Remarks,
	})
	if err != nil {
		return internalError("encoding component data failed", err)
	}

	now := time.Now().UTC()
	return s.components.Upsert(ctx, &component.Component{
		ID:        uuid.New(),
		VesselID:  vesselID,
		Code:      row.Code,
		Name:      row.Name,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func checkHeader(header []string) error {
	if len(header) < len(importColumns) {
		return fmt.Errorf("header has %d columns, expected at least %d", len(header), len(importColumns))
	}
	for i, want := range importColumns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return fmt.Errorf("header column %d is %q, expected %q", i+1, header[i], want)
		}
	}
	return nil
}

func parseRow(cells []string) (importRow, error) {
	cell := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}

	row := importRow{
		Code:        cell(0),
		Name:        cell(1),
		Maker:       cell(2),
		Model:       cell(3),
		SerialNo:    cell(4),
		Location:    cell(5),
		Department:  cell(6),
		Criticality: strings.ToLower(cell(7)),
		Remarks:     cell(9),
	}
	if raw := cell(8); raw != "" {
		hours, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return row, fmt.Errorf("runningHours %q is not a number", raw)
		}
		row.RunningHours = hours
	}
	return row, nil
}
