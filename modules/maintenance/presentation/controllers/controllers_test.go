package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/helmline/pms/modules/maintenance/domain/component"
	"github.com/helmline/pms/modules/maintenance/infrastructure/persistence/memory"
	"github.com/helmline/pms/modules/maintenance/services"
	"github.com/helmline/pms/pkg/application"
	"github.com/helmline/pms/pkg/composables"
	"github.com/helmline/pms/pkg/configuration"
	"github.com/helmline/pms/pkg/eventbus"
	"github.com/helmline/pms/pkg/middleware"
)

type apiFixture struct {
	router   *mux.Router
	vesselID uuid.UUID
	crew     composables.User
	reviewer composables.User
	admin    composables.User
	target   *component.Component
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	vesselID := uuid.New()
	components := memory.NewComponentRepository()
	target := &component.Component{
		ID:       uuid.New(),
		VesselID: vesselID,
		Code:     "601.001",
		Name:     "Main Engine",
		Data:     json.RawMessage(`{"maker": "MAN B&W", "model": "6S60MC"}`),
	}
	require.NoError(t, components.Create(context.Background(), target))

	bus := eventbus.NewEventPublisher(logrus.New())
	app := application.New(&application.ApplicationOptions{EventBus: bus})
	app.RegisterServices(
		services.NewComponentService(components, services.PassthroughTx),
		services.NewChangeRequestService(
			memory.NewChangeRequestRepository(), components, bus, services.PassthroughTx),
		services.NewImportService(
			components, memory.NewImportLogRepository(), bus, services.PassthroughTx, "Components"),
	)

	router := mux.NewRouter()
	router.Use(middleware.Authorize())
	for _, ctrl := range []application.Controller{
		NewChangeRequestController(app),
		NewModifyPMSController(app),
		NewComponentController(app),
		NewImportController(app),
	} {
		ctrl.Register(router)
	}

	return &apiFixture{
		router:   router,
		vesselID: vesselID,
		crew:     composables.User{ID: uuid.New(), Name: "Chief Engineer", Role: composables.RoleCrew, VesselID: vesselID},
		reviewer: composables.User{ID: uuid.New(), Name: "Superintendent", Role: composables.RoleReviewer, VesselID: vesselID},
		admin:    composables.User{ID: uuid.New(), Name: "Fleet Admin", Role: composables.RoleAdmin, VesselID: vesselID},
		target:   target,
	}
}

func (f *apiFixture) do(t *testing.T, u composables.User, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	token, err := middleware.IssueToken(u, configuration.Use().Auth.JWTSecret, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) doJSON(t *testing.T, u composables.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	return f.do(t, u, method, path, buf, "application/json")
}

func (f *apiFixture) requestBody() map[string]any {
	return map[string]any{
		"targetId": f.target.ID,
		"title":    "Correct maker",
		"category": "componentUpdate",
		"reason":   "Wrong maker recorded",
		"proposed": map[string]any{"maker": "Wartsila", "model": "6S60MC"},
	}
}

func (f *apiFixture) createDraft(t *testing.T) uuid.UUID {
	t.Helper()
	rec := f.doJSON(t, f.crew, http.MethodPost, "/api/modify-pms/requests", f.requestBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ID
}

func TestAPI_RequiresAuth(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/change-requests", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_OneShotCreateIsSubmitted(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.doJSON(t, f.crew, http.MethodPost, "/api/change-requests", f.requestBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Status      string          `json:"status"`
		ChangeCount int             `json:"diffSummaryCount"`
		Payload     json.RawMessage `json:"payload"`
		MovePreview json.RawMessage `json:"movePreview"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "submitted", resp.Status)
	require.Equal(t, 1, resp.ChangeCount)
	require.Contains(t, string(resp.Payload), `"A.maker"`)
	require.NotEmpty(t, resp.MovePreview)
}

func TestAPI_OneShotCreate_AcceptsClientEnvelope(t *testing.T) {
	f := newAPIFixture(t)

	body := f.requestBody()
	body["targetType"] = "component"
	body["targetPath"] = "/components/601.001"
	body["original"] = map[string]any{"maker": "MAN B&W", "model": "6S60MC"}
	body["diff"] = map[string]any{
		"A.maker": map[string]any{"from": "MAN B&W", "to": "Wartsila"},
	}
	body["submittedBy"] = f.crew.ID
	body["submittedAt"] = time.Now().UTC()
	body["status"] = "submitted"

	rec := f.doJSON(t, f.crew, http.MethodPost, "/api/change-requests", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Status      string `json:"status"`
		ChangeCount int    `json:"diffSummaryCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "submitted", resp.Status)
	require.Equal(t, 1, resp.ChangeCount)
}

func TestAPI_ListFiltersByTargetType(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.doJSON(t, f.crew, http.MethodPost, "/api/change-requests", f.requestBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Items []json.RawMessage `json:"items"`
	}
	rec = f.do(t, f.reviewer, http.MethodGet, "/api/change-requests?targetType=component", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)

	rec = f.do(t, f.reviewer, http.MethodGet, "/api/change-requests?targetType=workOrder", nil, "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Items)
}

func TestAPI_OneShotCreate_NoChangesRejected(t *testing.T) {
	f := newAPIFixture(t)

	body := f.requestBody()
	body["proposed"] = map[string]any{"maker": "MAN B&W", "model": "6S60MC"}
	rec := f.doJSON(t, f.crew, http.MethodPost, "/api/change-requests", body)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "PMS_NO_CHANGES")
}

func TestAPI_CreateDraft(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.doJSON(t, f.crew, http.MethodPost, "/api/modify-pms/requests", f.requestBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Status      string          `json:"status"`
		ChangeCount int             `json:"diffSummaryCount"`
		Payload     json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "draft", resp.Status)
	require.Equal(t, 1, resp.ChangeCount)
	require.Contains(t, string(resp.Payload), `"A.maker"`)
}

func TestAPI_CreateDraft_UnknownFieldRejected(t *testing.T) {
	f := newAPIFixture(t)

	body := f.requestBody()
	body["tittle"] = "typo"
	rec := f.doJSON(t, f.crew, http.MethodPost, "/api/modify-pms/requests", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "PMS_VALIDATION")
}

func TestAPI_MalformedBodyRejected(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, f.crew, http.MethodPost, "/api/change-requests",
		bytes.NewBufferString("{not json"), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "PMS_INVALID_BODY")
}

func TestAPI_UpdateProposedRecomputesPayload(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createDraft(t)

	rec := f.doJSON(t, f.crew, http.MethodPut, fmt.Sprintf("/api/modify-pms/requests/%s/proposed", id),
		map[string]any{"proposed": map[string]any{"maker": "MAN B&W", "model": "7S60MC"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, string(resp.Payload), `"A.model"`)
	require.NotContains(t, string(resp.Payload), `"A.maker"`)
}

func TestAPI_UpdateTargetResetsDocuments(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createDraft(t)

	rec := f.doJSON(t, f.crew, http.MethodPut, fmt.Sprintf("/api/modify-pms/requests/%s/target", id),
		map[string]any{
			"targetId": f.target.ID,
			"title":    "Retitled",
			"category": "generalCorrection",
			"reason":   "Starting over",
		})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Title       string `json:"title"`
		Category    string `json:"category"`
		ChangeCount int    `json:"diffSummaryCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Retitled", resp.Title)
	require.Equal(t, "generalCorrection", resp.Category)
	require.Zero(t, resp.ChangeCount)
}

func TestAPI_SubmitAndApprove(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createDraft(t)

	rec := f.doJSON(t, f.crew, http.MethodPut, fmt.Sprintf("/api/modify-pms/requests/%s/submit", id), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"status":"submitted"`)

	rec = f.doJSON(t, f.reviewer, http.MethodPut, fmt.Sprintf("/api/modify-pms/requests/%s/approve", id), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "PMS_VALIDATION")

	rec = f.doJSON(t, f.reviewer, http.MethodPut, fmt.Sprintf("/api/modify-pms/requests/%s/approve", id),
		map[string]any{"comment": "checked against the maker plate"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"status":"approved"`)

	rec = f.do(t, f.crew, http.MethodGet, "/api/components/"+f.target.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Wartsila")
}

func TestAPI_PatchStatusDecides(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.doJSON(t, f.crew, http.MethodPost, "/api/change-requests", f.requestBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = f.doJSON(t, f.reviewer, http.MethodPatch,
		fmt.Sprintf("/api/change-requests/%s/status", created.ID),
		map[string]any{"status": "Approved", "comment": "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"status":"approved"`)

	rec = f.doJSON(t, f.reviewer, http.MethodPatch,
		fmt.Sprintf("/api/change-requests/%s/status", created.ID),
		map[string]any{"status": "Approved", "comment": "again"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "PMS_INVALID_STATE")
}

func TestAPI_PatchStatus_UnknownStatus(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.doJSON(t, f.reviewer, http.MethodPatch,
		fmt.Sprintf("/api/change-requests/%s/status", uuid.New()),
		map[string]any{"status": "parked"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "PMS_VALIDATION")
}

func TestAPI_RejectNeedsComment(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createDraft(t)
	rec := f.doJSON(t, f.crew, http.MethodPut, fmt.Sprintf("/api/modify-pms/requests/%s/submit", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.doJSON(t, f.reviewer, http.MethodPut, fmt.Sprintf("/api/modify-pms/requests/%s/reject", id), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.doJSON(t, f.reviewer, http.MethodPut, fmt.Sprintf("/api/modify-pms/requests/%s/reject", id),
		map[string]any{"comment": "duplicate"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAPI_CrewCannotApprove(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createDraft(t)
	rec := f.doJSON(t, f.crew, http.MethodPut, fmt.Sprintf("/api/modify-pms/requests/%s/submit", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	otherCrew := composables.User{ID: uuid.New(), Role: composables.RoleCrew, VesselID: f.vesselID}
	rec = f.doJSON(t, otherCrew, http.MethodPut, fmt.Sprintf("/api/modify-pms/requests/%s/approve", id), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "PMS_FORBIDDEN")
}

func TestAPI_ListFiltersByStatus(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createDraft(t)
	rec := f.doJSON(t, f.crew, http.MethodPut, fmt.Sprintf("/api/modify-pms/requests/%s/submit", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, f.reviewer, http.MethodGet, "/api/change-requests?status=submitted", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Items []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)

	rec = f.do(t, f.reviewer, http.MethodGet, "/api/change-requests?status=draft", nil, "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Items)
}

func TestAPI_ListPagination(t *testing.T) {
	f := newAPIFixture(t)
	for i := 0; i < 3; i++ {
		f.createDraft(t)
	}

	var page struct {
		Items      []json.RawMessage `json:"items"`
		NextCursor string            `json:"nextCursor"`
	}
	rec := f.do(t, f.crew, http.MethodGet, "/api/change-requests?status=draft&limit=2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	rec = f.do(t, f.crew, http.MethodGet,
		"/api/change-requests?status=draft&limit=2&cursor="+page.NextCursor, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
}

func TestListParams_DefaultLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/change-requests", nil)
	params, err := listParams(req)
	require.NoError(t, err)
	require.Equal(t, 50, params.Limit)

	req = httptest.NewRequest(http.MethodGet, "/api/change-requests?limit=500", nil)
	params, err = listParams(req)
	require.NoError(t, err)
	require.Equal(t, 50, params.Limit)
}

func TestAPI_DeleteDraft(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createDraft(t)

	rec := f.do(t, f.crew, http.MethodDelete, "/api/modify-pms/requests/"+id.String(), nil, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, f.crew, http.MethodGet, "/api/modify-pms/requests/"+id.String(), nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ImportForbiddenForCrew(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, f.crew, http.MethodPost, "/api/imports", bytes.NewBufferString(""), "multipart/form-data")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "PMS_FORBIDDEN")

	rec = f.doJSON(t, f.crew, http.MethodPost, "/api/components",
		map[string]any{"code": "700.001", "name": "Steering Gear"})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPI_ImportUpload(t *testing.T) {
	f := newAPIFixture(t)

	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetName("Sheet1", "Components"))
	header := []any{
		"Code", "Name", "Maker", "Model", "SerialNo",
		"Location", "Department", "Criticality", "RunningHours", "Remarks",
	}
	require.NoError(t, wb.SetSheetRow("Components", "A1", &header))
	row := []any{"602.001", "Aux Boiler", "Aalborg", "", "", "", "", "", "", ""}
	require.NoError(t, wb.SetSheetRow("Components", "A2", &row))
	content, err := wb.WriteToBuffer()
	require.NoError(t, err)

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("file", "components.xlsx")
	require.NoError(t, err)
	_, err = part.Write(content.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	rec := f.do(t, f.admin, http.MethodPost, "/api/imports", &form, writer.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"imported":1`)

	rec = f.do(t, f.admin, http.MethodGet, "/api/imports", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "components.xlsx")
}
