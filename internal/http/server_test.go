package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"bukukas/internal/amqp"
	"bukukas/internal/core"
	"bukukas/internal/metrics"
	"bukukas/internal/services"
	"bukukas/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.ReportExportMessage
}

func (p *fakePublisher) PublishReportExport(_ context.Context, msg *amqp.ReportExportMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

type testServer struct {
	*Server
	publisher *fakePublisher
}

func newTestServer(t *testing.T, withPublisher bool, ready func(context.Context) error) *testServer {
	t.Helper()
	repo := storage.NewMemoryRepository()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	deps := services.Deps{Repo: repo, Exports: repo, Metrics: m}
	var pub *fakePublisher
	if withPublisher {
		pub = &fakePublisher{}
		deps.Publisher = pub
	}
	svc := services.NewBookkeeping(deps)
	s := NewServer(":0", svc, Options{
		RateLimit:   1000,
		CORSOrigins: []string{"*"},
		Ready:       ready,
		Metrics:     m,
		Gatherer:    reg,
	})
	ts := &testServer{Server: s, publisher: pub}
	for _, body := range []string{
		`{"id":"s1","name":"Cukur","price":50000}`,
		`{"id":"b1","name":"Cuci Rambut","price":"Rp 20.000","bonusable":true}`,
	} {
		ts.mustDo(t, http.MethodPut, "/api/services", body, http.StatusOK)
	}
	for _, body := range []string{
		`{"id":"o1","name":"Joko","role":"Owner"}`,
		`{"id":"e1","name":"Budi","role":"Karyawan"}`,
	} {
		ts.mustDo(t, http.MethodPut, "/api/employees", body, http.StatusOK)
	}
	return ts
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) mustDo(t *testing.T, method, path, body string, want int) *httptest.ResponseRecorder {
	t.Helper()
	rec := ts.do(method, path, body)
	if rec.Code != want {
		t.Fatalf("%s %s: status = %d, want %d (body %s)", method, path, rec.Code, want, rec.Body.String())
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

const budiEntry = `{
	"date": "2025-01-02",
	"employeeId": "e1",
	"serviceQuantities": {"s1": 2},
	"bonusSelections": {"s1": {"b1": true}},
	"bonusQuantities": {"s1": {"b1": 1}},
	"gajiDiterima": "999999"
}`

func TestHealthAndReadiness(t *testing.T) {
	ts := newTestServer(t, false, nil)
	rec := ts.mustDo(t, http.MethodGet, "/healthz", "", http.StatusOK)
	if rec.Body.String() != "ok" {
		t.Errorf("healthz body = %q", rec.Body.String())
	}
	ts.mustDo(t, http.MethodGet, "/readyz", "", http.StatusOK)

	down := newTestServer(t, false, func(context.Context) error { return errors.New("db down") })
	down.mustDo(t, http.MethodGet, "/readyz", "", http.StatusServiceUnavailable)
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t, false, nil)
	rec := ts.mustDo(t, http.MethodGet, "/api/services", "", http.StatusOK)
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	ts := newTestServer(t, false, nil)

	var catalog []core.Service
	rec := ts.mustDo(t, http.MethodGet, "/api/services", "", http.StatusOK)
	if err := json.Unmarshal(rec.Body.Bytes(), &catalog); err != nil {
		t.Fatal(err)
	}
	if len(catalog) != 2 {
		t.Fatalf("services = %d, want 2", len(catalog))
	}
	if catalog[1].Price.IntPart() != 20000 {
		t.Errorf("formatted price decoded as %s, want 20000", catalog[1].Price)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"bad amount", http.MethodPut, "/api/services", `{"name":"X","price":"lima ribu"}`, http.StatusUnprocessableEntity},
		{"negative price", http.MethodPut, "/api/services", `{"name":"X","price":-1}`, http.StatusUnprocessableEntity},
		{"unknown field", http.MethodPut, "/api/services", `{"name":"X","price":1,"colour":"red"}`, http.StatusBadRequest},
		{"empty body", http.MethodPut, "/api/services", ``, http.StatusBadRequest},
		{"unknown role", http.MethodPut, "/api/employees", `{"name":"X","role":"Boss"}`, http.StatusUnprocessableEntity},
		{"delete missing service", http.MethodDelete, "/api/services/nope", "", http.StatusNotFound},
		{"delete employee", http.MethodDelete, "/api/employees/o1", "", http.StatusNoContent},
		{"delete employee twice", http.MethodDelete, "/api/employees/o1", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts.mustDo(t, tt.method, tt.path, tt.body, tt.want)
		})
	}
}

func TestEntryEndpoints(t *testing.T) {
	ts := newTestServer(t, false, nil)

	line := decode(t, ts.mustDo(t, http.MethodPut, "/api/entries", budiEntry, http.StatusOK))
	if line["gajiDiterima"] != "80000" {
		t.Errorf("gajiDiterima = %v, want 80000", line["gajiDiterima"])
	}

	recap := decode(t, ts.mustDo(t, http.MethodGet, "/api/days/2025-01-02", "", http.StatusOK))
	lines, _ := recap["lines"].([]any)
	if len(lines) != 1 {
		t.Fatalf("recap lines = %d, want 1", len(lines))
	}

	payroll := decode(t, ts.mustDo(t, http.MethodPost, "/api/days/2025-01-02/recompute", "", http.StatusOK))
	if lines, _ := payroll["lines"].([]any); len(lines) != 1 {
		t.Errorf("recompute lines = %d, want 1", len(lines))
	}

	rec := ts.mustDo(t, http.MethodGet, "/api/days/2025-01-02/export.csv", "", http.StatusOK)
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "bukukas-2025-01-02.csv") {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown employee", http.MethodPut, "/api/entries", `{"date":"2025-01-02","employeeId":"ghost"}`, http.StatusNotFound},
		{"bad date", http.MethodPut, "/api/entries", `{"date":"02/01/2025","employeeId":"e1"}`, http.StatusUnprocessableEntity},
		{"bad path date", http.MethodGet, "/api/days/2025-13-40", "", http.StatusUnprocessableEntity},
		{"delete entry", http.MethodDelete, "/api/entries/2025-01-02/e1", "", http.StatusNoContent},
		{"delete entry twice", http.MethodDelete, "/api/entries/2025-01-02/e1", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts.mustDo(t, tt.method, tt.path, tt.body, tt.want)
		})
	}
}

func TestRecordAndOverrideEndpoints(t *testing.T) {
	ts := newTestServer(t, false, nil)

	tx := decode(t, ts.mustDo(t, http.MethodPost, "/api/transactions",
		`{"date":"2025-01-05","type":"Expense","description":"Listrik","amount":"Rp 150.000"}`, http.StatusCreated))
	id, _ := tx["id"].(string)
	if id == "" {
		t.Fatal("transaction id not assigned")
	}
	ts.mustDo(t, http.MethodPost, "/api/transactions",
		`{"date":"2025-01-05","type":"Refund","amount":1}`, http.StatusUnprocessableEntity)
	ts.mustDo(t, http.MethodPost, "/api/transactions",
		fmt.Sprintf(`{"date":"2025-01-05","type":"Expense","description":%q,"amount":1}`, strings.Repeat("x", 201)),
		http.StatusUnprocessableEntity)

	sale := decode(t, ts.mustDo(t, http.MethodPost, "/api/product-sales", `{"date":"2025-01-05","total":75000}`, http.StatusCreated))
	saleID, _ := sale["id"].(string)

	rep := decode(t, ts.mustDo(t, http.MethodGet, "/api/months/2025-01", "", http.StatusOK))
	if rep["totalExpenses"] != "150000" {
		t.Errorf("totalExpenses = %v, want 150000", rep["totalExpenses"])
	}
	if rep["productRevenue"] != "75000" {
		t.Errorf("productRevenue = %v, want 75000", rep["productRevenue"])
	}

	ts.mustDo(t, http.MethodPut, "/api/overrides/2025-01-31", `{}`, http.StatusBadRequest)
	o := decode(t, ts.mustDo(t, http.MethodPut, "/api/overrides/2025-01-31", `{"totalRevenue":"1.000.000"}`, http.StatusOK))
	if o["totalRevenue"] != "1000000" {
		t.Errorf("override totalRevenue = %v", o["totalRevenue"])
	}

	rep = decode(t, ts.mustDo(t, http.MethodGet, "/api/months/2025-01", "", http.StatusOK))
	if rep["totalRevenue"] != "1000000" {
		t.Errorf("overridden totalRevenue = %v, want 1000000", rep["totalRevenue"])
	}

	var list []core.Override
	if err := json.Unmarshal(ts.mustDo(t, http.MethodGet, "/api/overrides", "", http.StatusOK).Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Date != "2025-01-31" {
		t.Errorf("overrides = %+v", list)
	}

	ts.mustDo(t, http.MethodDelete, "/api/overrides/2025-01-31", "", http.StatusNoContent)
	ts.mustDo(t, http.MethodDelete, "/api/overrides/2025-01-31", "", http.StatusNotFound)
	ts.mustDo(t, http.MethodDelete, "/api/transactions/"+id, "", http.StatusNoContent)
	ts.mustDo(t, http.MethodDelete, "/api/product-sales/"+saleID, "", http.StatusNoContent)
	ts.mustDo(t, http.MethodDelete, "/api/product-sales/"+saleID, "", http.StatusNotFound)
}

func TestMonthExports(t *testing.T) {
	ts := newTestServer(t, false, nil)
	ts.mustDo(t, http.MethodPut, "/api/entries", budiEntry, http.StatusOK)

	rec := ts.mustDo(t, http.MethodGet, "/api/months/2025-01/export.csv?table=gaji", "", http.StatusOK)
	if !strings.HasPrefix(rec.Body.String(), "Karyawan,Role,Hari Kerja") {
		t.Errorf("csv = %q", rec.Body.String())
	}

	rec = ts.mustDo(t, http.MethodGet, "/api/months/2025-01/export.xlsx", "", http.StatusOK)
	if rec.Header().Get("Content-Type") != xlsxContentType {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rec.Body.String(), "PK") {
		t.Error("xlsx body is not a zip archive")
	}

	ts.mustDo(t, http.MethodGet, "/api/months/2025-01/export.csv?table=nope", "", http.StatusUnprocessableEntity)
	ts.mustDo(t, http.MethodGet, "/api/months/2025-1", "", http.StatusUnprocessableEntity)
}

func TestRequestExport(t *testing.T) {
	t.Run("no queue", func(t *testing.T) {
		ts := newTestServer(t, false, nil)
		ts.mustDo(t, http.MethodPost, "/api/exports", `{"kind":"monthly","period":"2025-01"}`, http.StatusServiceUnavailable)
	})

	t.Run("queued", func(t *testing.T) {
		ts := newTestServer(t, true, nil)
		msg := decode(t, ts.mustDo(t, http.MethodPost, "/api/exports", `{"period":"2025-01"}`, http.StatusAccepted))
		if msg["kind"] != "monthly" {
			t.Errorf("kind = %v, want monthly default", msg["kind"])
		}
		if len(ts.publisher.msgs) != 1 {
			t.Fatalf("published %d messages, want 1", len(ts.publisher.msgs))
		}
		if ts.publisher.msgs[0].Version == 0 {
			t.Error("message should carry the document version")
		}
		ts.mustDo(t, http.MethodPost, "/api/exports", `{"kind":"weekly","period":"2025-01"}`, http.StatusUnprocessableEntity)
		ts.mustDo(t, http.MethodPost, "/api/exports", `{"kind":"daily","period":"2025-01"}`, http.StatusUnprocessableEntity)

		rec := ts.mustDo(t, http.MethodGet, "/api/exports?period=2025-01", "", http.StatusOK)
		if strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Errorf("history = %s, want []", rec.Body.String())
		}
	})
}

func TestDocumentEndpoints(t *testing.T) {
	ts := newTestServer(t, false, nil)
	ts.mustDo(t, http.MethodPut, "/api/entries", budiEntry, http.StatusOK)

	body := ts.mustDo(t, http.MethodGet, "/api/document", "", http.StatusOK).Body.String()
	if !strings.Contains(body, `"2025-01-02_e1"`) {
		t.Errorf("document missing entry key: %s", body)
	}

	ts.mustDo(t, http.MethodPut, "/api/document", `{"services":[{"id":"","name":"x"}]}`, http.StatusBadRequest)
	ts.mustDo(t, http.MethodPut, "/api/document", `not json`, http.StatusBadRequest)

	saved := decode(t, ts.mustDo(t, http.MethodPut, "/api/document", body, http.StatusOK))
	if v, _ := saved["version"].(float64); v < 2 {
		t.Errorf("version after import = %v", saved["version"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, false, nil)
	ts.mustDo(t, http.MethodGet, "/api/days/2025-01-02", "", http.StatusOK)

	body := ts.mustDo(t, http.MethodGet, "/metrics", "", http.StatusOK).Body.String()
	if !strings.Contains(body, `bukukas_http_requests_total{method="GET",route="/api/days/{date}",status="200"} 1`) {
		t.Errorf("route metric missing from:\n%s", body)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("employee %q: %w", "x", core.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("save document: %w", storage.ErrVersionConflict), http.StatusConflict},
		{core.ErrMalformedDocument, http.StatusBadRequest},
		{services.ErrExportUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("publish export: %w", amqp.ErrCircuitOpen), http.StatusServiceUnavailable},
		{core.ErrInvalidMonth, http.StatusUnprocessableEntity},
		{services.ErrUnknownTable, http.StatusUnprocessableEntity},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}

	rec := httptest.NewRecorder()
	ServiceError(errors.New("secret path /var/db")).Write(rec)
	if strings.Contains(rec.Body.String(), "secret") {
		t.Error("internal error text leaked to client")
	}
}
