package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/domain/workflow"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field string `json:"field"`
			Rule  string `json:"rule"`
		} `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("тело ошибки не JSON: %v (%s)", err, rec.Body.String())
	}
	return body
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// TestMembers_ValidationError проверяет 400 со списком нарушенных полей.
func TestMembers_ValidationError(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(jsonRequest(http.MethodPost, "/api/v1/members", `{"name":"","membershipType":"Gold"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("статус = %d, ожидался 400 (%s)", rec.Code, rec.Body.String())
	}
	body := decodeError(t, rec)
	if body.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, ожидался VALIDATION_ERROR", body.Error.Code)
	}
	fields := map[string]bool{}
	for _, d := range body.Error.Details {
		fields[d.Field] = true
	}
	for _, want := range []string{"name", "address", "membershipType"} {
		if !fields[want] {
			t.Errorf("в details нет поля %q: %+v", want, body.Error.Details)
		}
	}
}

// TestMembers_Lifecycle проверяет create → get → patch → delete → 404.
func TestMembers_Lifecycle(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(jsonRequest(http.MethodPost, "/api/v1/members",
		`{"name":" Asha Rao ","address":"12 MG Road","membershipType":"Life"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: статус = %d (%s)", rec.Code, rec.Body.String())
	}
	var m model.Member
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("ответ не JSON: %v", err)
	}
	if m.ID == "" || m.Name != "Asha Rao" || m.Status != model.MemberActive {
		t.Fatalf("member = %+v, ожидались id, обрезанное имя и статус Active", m)
	}

	rec = api.do(jsonRequest(http.MethodPatch, "/api/v1/members/"+m.ID, `{"status":"Inactive"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: статус = %d (%s)", rec.Code, rec.Body.String())
	}
	var updated model.Member
	_ = json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.Status != model.MemberInactive || updated.Name != "Asha Rao" {
		t.Errorf("после patch = %+v", updated)
	}

	rec = api.do(httptest.NewRequest(http.MethodGet, "/api/v1/members/"+m.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get: статус = %d", rec.Code)
	}

	rec = api.do(httptest.NewRequest(http.MethodDelete, "/api/v1/members/"+m.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: статус = %d", rec.Code)
	}

	rec = api.do(httptest.NewRequest(http.MethodGet, "/api/v1/members/"+m.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get после delete: статус = %d, ожидался 404", rec.Code)
	}
	if body := decodeError(t, rec); body.Error.Code != "NOT_FOUND" {
		t.Errorf("code = %q, ожидался NOT_FOUND", body.Error.Code)
	}
}

// TestMembers_InvalidJSON проверяет 400 на некорректное тело.
func TestMembers_InvalidJSON(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(jsonRequest(http.MethodPost, "/api/v1/members", `{"name":`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("статус = %d, ожидался 400", rec.Code)
	}
}

// TestList_InvalidParams проверяет разбор limit и order.
func TestList_InvalidParams(t *testing.T) {
	api := newTestAPI(t)
	for _, target := range []string{
		"/api/v1/members?limit=abc",
		"/api/v1/members?offset=x",
		"/api/v1/members?order=sideways",
	} {
		rec := api.do(httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: статус = %d, ожидался 400", target, rec.Code)
		}
	}

	rec := api.do(httptest.NewRequest(http.MethodGet, "/api/v1/members?limit=5&order=desc", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200 (%s)", rec.Code, rec.Body.String())
	}
	var page struct {
		Items []model.Member `json:"items"`
		Limit int            `json:"limit"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &page)
	if page.Limit != 5 {
		t.Errorf("limit = %d, ожидалось 5", page.Limit)
	}
}

// TestGallery_MultipartCreate проверяет создание записи с файлом и его раздачу.
func TestGallery_MultipartCreate(t *testing.T) {
	api := newTestAPI(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("data", `{"title":"Annual picnic"}`)
	part, _ := mw.CreateFormFile("file", "picnic.jpg")
	_, _ = part.Write([]byte("jpeg-bytes"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/gallery", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := api.do(req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("статус = %d (%s)", rec.Code, rec.Body.String())
	}

	var g model.GalleryItem
	if err := json.Unmarshal(rec.Body.Bytes(), &g); err != nil {
		t.Fatalf("ответ не JSON: %v", err)
	}
	if !strings.HasPrefix(g.ImageURL, "society/gallery/") {
		t.Errorf("imageUrl = %q, ожидалась папка галереи", g.ImageURL)
	}
	if g.ImageViewURL != "http://localhost:8080/storage/"+g.ImageURL {
		t.Errorf("imageViewUrl = %q", g.ImageViewURL)
	}

	rec = api.do(httptest.NewRequest(http.MethodGet, "/storage/"+g.ImageURL, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("раздача: статус = %d", rec.Code)
	}
	if rec.Body.String() != "jpeg-bytes" {
		t.Errorf("тело = %q", rec.Body.String())
	}

	rec = api.do(httptest.NewRequest(http.MethodGet, "/storage/"+g.ImageURL+"?download=1", nil))
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") {
		t.Errorf("Content-Disposition = %q, ожидался attachment", cd)
	}
}

// TestGallery_MissingImage проверяет, что запись без файла не создаётся.
func TestGallery_MissingImage(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(jsonRequest(http.MethodPost, "/api/v1/gallery", `{"title":"No image"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("статус = %d, ожидался 400", rec.Code)
	}
}

// TestLocalStorage_NotPublic проверяет 404 для непубличных и чужих ключей.
func TestLocalStorage_NotPublic(t *testing.T) {
	api := newTestAPI(t)
	ctx := t.Context()
	if err := api.provider.Put(ctx, "society/private.pdf", strings.NewReader("x"), 1, "application/pdf", "private.pdf"); err != nil {
		t.Fatalf("Put() ошибка: %v", err)
	}

	for _, target := range []string{"/storage/society/private.pdf", "/storage/society/missing.pdf"} {
		rec := api.do(httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: статус = %d, ожидался 404", target, rec.Code)
		}
	}
}

func seedApplication(api *testAPI, id string) {
	api.applications.rows[id] = model.MembershipApplication{
		Base:           model.Base{ID: id},
		Name:           "Ravi Kumar",
		MembershipType: model.MembershipAnnual,
		Status:         workflow.ApplicationPending,
		SubmittedAt:    time.Now().UTC(),
	}
}

// TestApplications_Decisions проверяет approve, повторное решение и reject без причины.
func TestApplications_Decisions(t *testing.T) {
	api := newTestAPI(t)
	const approved = "11111111-1111-1111-1111-111111111111"
	const pending = "22222222-2222-2222-2222-222222222222"
	seedApplication(api, approved)
	seedApplication(api, pending)

	rec := api.do(jsonRequest(http.MethodPost, "/api/v1/applications/"+approved+"/approve", `{"processedBy":"secretary"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: статус = %d (%s)", rec.Code, rec.Body.String())
	}
	var a model.MembershipApplication
	_ = json.Unmarshal(rec.Body.Bytes(), &a)
	if a.Status != workflow.ApplicationApproved {
		t.Errorf("status = %q, ожидался Approved", a.Status)
	}

	rec = api.do(jsonRequest(http.MethodPost, "/api/v1/applications/"+approved+"/reject",
		`{"processedBy":"secretary","reason":"late"}`))
	if rec.Code != http.StatusConflict {
		t.Fatalf("reject после approve: статус = %d, ожидался 409", rec.Code)
	}
	if body := decodeError(t, rec); body.Error.Code != "INVALID_TRANSITION" {
		t.Errorf("code = %q, ожидался INVALID_TRANSITION", body.Error.Code)
	}

	rec = api.do(jsonRequest(http.MethodPost, "/api/v1/applications/"+pending+"/reject", `{"processedBy":"secretary","reason":"  "}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("reject без причины: статус = %d, ожидался 400", rec.Code)
	}

	rec = api.do(jsonRequest(http.MethodPost, "/api/v1/applications/"+pending+"/approve", `{}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("approve без processedBy: статус = %d, ожидался 400", rec.Code)
	}

	rec = api.do(jsonRequest(http.MethodPost, "/api/v1/applications/33333333-3333-3333-3333-333333333333/approve",
		`{"processedBy":"secretary"}`))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("approve несуществующей: статус = %d, ожидался 404", rec.Code)
	}
}

// TestInquiries_Respond проверяет New → Responded и повторный ответ.
func TestInquiries_Respond(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(jsonRequest(http.MethodPost, "/api/v1/inquiries",
		`{"name":"Meera","email":"meera@example.com","message":"When is the next meeting?"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: статус = %d (%s)", rec.Code, rec.Body.String())
	}
	var c model.ContactInquiry
	_ = json.Unmarshal(rec.Body.Bytes(), &c)
	if c.Status != string(workflow.InquiryNew) {
		t.Errorf("status = %q, ожидался New", c.Status)
	}

	rec = api.do(httptest.NewRequest(http.MethodPost, "/api/v1/inquiries/"+c.ID+"/respond", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("respond: статус = %d (%s)", rec.Code, rec.Body.String())
	}
	rec = api.do(httptest.NewRequest(http.MethodPost, "/api/v1/inquiries/"+c.ID+"/respond", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("повторный respond: статус = %d, ожидался 409", rec.Code)
	}
}

// TestFiles_UploadAndURLs проверяет загрузку, метаданные, ссылки и удаление файла.
func TestFiles_UploadAndURLs(t *testing.T) {
	api := newTestAPI(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("category", model.CategoryPaymentScreenshot)
	part, _ := mw.CreateFormFile("file", "receipt.png")
	_, _ = part.Write([]byte("png"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := api.do(req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: статус = %d (%s)", rec.Code, rec.Body.String())
	}
	var res model.UploadResult
	_ = json.Unmarshal(rec.Body.Bytes(), &res)
	if !strings.HasPrefix(res.ID, "society/payments/") {
		t.Fatalf("id = %q, ожидалась папка скриншотов оплаты", res.ID)
	}

	rec = api.do(httptest.NewRequest(http.MethodGet, "/api/v1/files/"+res.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metadata: статус = %d (%s)", rec.Code, rec.Body.String())
	}

	rec = api.do(httptest.NewRequest(http.MethodGet, "/api/v1/files/urls/"+res.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("urls: статус = %d", rec.Code)
	}
	var links model.FileLinks
	_ = json.Unmarshal(rec.Body.Bytes(), &links)
	if links.DownloadLink != "http://localhost:8080/storage/"+res.ID+"?download=1" {
		t.Errorf("downloadLink = %q", links.DownloadLink)
	}

	rec = api.do(httptest.NewRequest(http.MethodDelete, "/api/v1/files/"+res.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: статус = %d", rec.Code)
	}
	rec = api.do(httptest.NewRequest(http.MethodDelete, "/api/v1/files/"+res.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("повторный delete: статус = %d, ожидался 404", rec.Code)
	}
}

// TestFiles_UploadWithoutFile проверяет обязательность части file.
func TestFiles_UploadWithoutFile(t *testing.T) {
	api := newTestAPI(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("category", "gallery")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if rec := api.do(req); rec.Code != http.StatusBadRequest {
		t.Fatalf("статус = %d, ожидался 400", rec.Code)
	}
}

// TestFiles_InvalidID проверяет отказ для идентификатора с обходом каталога.
func TestFiles_InvalidID(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(httptest.NewRequest(http.MethodGet, "/api/v1/files/urls/society/..%2F..%2Fetc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("статус = %d, ожидался 400", rec.Code)
	}
}

// TestImageProxy_InvalidParams проверяет проверку параметров до обращения к хранилищу.
func TestImageProxy_InvalidParams(t *testing.T) {
	api := newTestAPI(t)
	for _, target := range []string{
		"/api/image-proxy",
		"/api/image-proxy?id=../etc/passwd",
		"/api/image-proxy?id=society/a.jpg&w=abc",
		"/api/image-proxy?id=society/a.jpg&w=0",
		"/api/image-proxy?id=society/a.jpg&h=5000",
		"/api/image-proxy?id=society/a.jpg&variant=huge",
	} {
		rec := api.do(httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: статус = %d, ожидался 400", target, rec.Code)
		}
	}
}

// TestOrphanSweep_DryRun проверяет ручной запуск очистки в режиме dry-run.
func TestOrphanSweep_DryRun(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(jsonRequest(http.MethodPost, "/api/v1/sweeps/orphans", `{"dryRun":true}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d (%s)", rec.Code, rec.Body.String())
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `"dryRun":true`) {
		t.Errorf("ответ = %s, ожидался dryRun=true", body)
	}
}

// TestHealth проверяет liveness и readiness.
func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("live: статус = %d", rec.Code)
	}

	rec = api.do(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ready: статус = %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("ready = %s", rec.Body.String())
	}
}

// TestHealthReady_Statuses проверяет сведение статусов зависимостей.
func TestHealthReady_Statuses(t *testing.T) {
	tests := []struct {
		name     string
		pg       ReadinessChecker
		storage  ReadinessChecker
		wantCode int
		want     string
	}{
		{"всё доступно", readyStub{status: "ok"}, readyStub{status: "ok"}, http.StatusOK, "ok"},
		{"хранилище недоступно", readyStub{status: "ok"}, readyStub{status: "fail"}, http.StatusOK, "degraded"},
		{"БД недоступна", readyStub{status: "fail"}, readyStub{status: "ok"}, http.StatusServiceUnavailable, "fail"},
		{"БД не инициализирована", nil, nil, http.StatusServiceUnavailable, "fail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.pg, tt.storage)
			rec := httptest.NewRecorder()
			h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if rec.Code != tt.wantCode {
				t.Errorf("статус = %d, ожидался %d", rec.Code, tt.wantCode)
			}
			var resp healthReadyResponse
			_ = json.Unmarshal(rec.Body.Bytes(), &resp)
			if resp.Status != tt.want {
				t.Errorf("status = %q, ожидался %q", resp.Status, tt.want)
			}
		})
	}
}
