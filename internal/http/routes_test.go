package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/d0ggzi/celery-clinic/internal/domain/model"
	"github.com/d0ggzi/celery-clinic/internal/mocks"
	"github.com/d0ggzi/celery-clinic/internal/service"
)

const testRecordID = "5b1e6c2a-9d3f-4a7b-8c1e-2f3a4b5c6d7e"

type routerFixture struct {
	queue   *mocks.MockTaskQueue
	states  *mocks.MockTaskStateStore
	records *mocks.MockRecordStore
	handler http.Handler
}

func newRouterFixture(t *testing.T, mutate func(*RouterServices)) routerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := routerFixture{
		queue:   mocks.NewMockTaskQueue(ctrl),
		states:  mocks.NewMockTaskStateStore(ctrl),
		records: mocks.NewMockRecordStore(ctrl),
	}
	tasks := service.MustNewTaskService(service.TaskServiceOptions{
		Queue:  f.queue,
		States: f.states,
		NewID:  func() string { return testRecordID },
	})
	appts := service.MustNewAppointmentService(service.AppointmentServiceOptions{
		Tasks:   tasks,
		Records: f.records,
	})
	svcs := RouterServices{Appointments: appts}
	if mutate != nil {
		mutate(&svcs)
	}
	f.handler = NewRouter(svcs)
	return f
}

func (f routerFixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestSubmit_ReturnsRecordID(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *model.TaskMessage) error {
			assert.Equal(t, model.TaskNameCreateRecord, msg.Name)
			assert.JSONEq(t, `{"doctor":"Лор"}`, string(msg.Args))
			return nil
		})

	rec := f.do(http.MethodPost, "/records", `{"doctor":"Лор"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"record_id":"`+testRecordID+`"}`, rec.Body.String())
}

func TestSubmit_ClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		errCode string
	}{
		{name: "malformed json", body: `{"doctor":`, errCode: "invalid_json"},
		{name: "missing doctor", body: `{}`, errCode: "validation"},
		{name: "null doctor", body: `{"doctor":null}`, errCode: "validation"},
		{name: "wrong type", body: `{"doctor":42}`, errCode: "invalid_json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t, nil)

			rec := f.do(http.MethodPost, "/records", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.errCode, body["error"])
			assert.NotEmpty(t, body["message"])
			if tt.errCode == "validation" {
				assert.Equal(t, "doctor", body["field"])
			} else {
				assert.NotContains(t, body, "field")
			}
		})
	}
}

func TestSubmit_AcceptsAnyDoctorString(t *testing.T) {
	for _, doctor := range []string{`""`, `"   "`} {
		t.Run(doctor, func(t *testing.T) {
			f := newRouterFixture(t, nil)
			f.queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, msg *model.TaskMessage) error {
					assert.JSONEq(t, `{"doctor":`+doctor+`}`, string(msg.Args))
					return nil
				})

			rec := f.do(http.MethodPost, "/records", `{"doctor":`+doctor+`}`)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"record_id":"`+testRecordID+`"}`, rec.Body.String())
		})
	}
}

func TestSubmit_BrokerUnavailable(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(errors.New("dial tcp: connection refused"))

	rec := f.do(http.MethodPost, "/records", `{"doctor":"Хирург"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestStatus_UnknownIDIsPending(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.states.EXPECT().GetState(gomock.Any(), "unknown").Return(model.PendingState("unknown"), nil)

	rec := f.do(http.MethodGet, "/records/unknown", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"record_id":"unknown","doctor":null,"record_status":"PENDING"}`, rec.Body.String())
}

func TestStatus_ReportsPhaseAndDoctor(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.states.EXPECT().GetState(gomock.Any(), testRecordID).Return(&model.TaskState{
		TaskID: testRecordID,
		Status: "Запись...",
		Meta:   json.RawMessage(`"Окулист"`),
	}, nil)

	rec := f.do(http.MethodGet, "/records/"+testRecordID, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"record_id":"`+testRecordID+`","doctor":"Окулист","record_status":"Запись..."}`,
		rec.Body.String())
}

func TestStatus_FailureHasNullDoctor(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.states.EXPECT().GetState(gomock.Any(), testRecordID).Return(&model.TaskState{
		TaskID: testRecordID,
		Status: model.TaskStatusFailure,
		Meta:   json.RawMessage(`{"error":"boom","error_class":"errors_errorstring"}`),
	}, nil)

	rec := f.do(http.MethodGet, "/records/"+testRecordID, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"record_id":"`+testRecordID+`","doctor":null,"record_status":"FAILURE"}`,
		rec.Body.String())
}

func sampleRecords() []model.Record {
	return []model.Record{
		{ID: "b", Doctor: "Хирург", Date: "2024-05-09 10:00:00"},
		{ID: "a", Doctor: "Лор", Date: "2024-05-02 10:00:00"},
		{ID: "c", Doctor: "Лор", Date: "2024-05-05 10:00:00"},
	}
}

func TestAllRecords_RendersSortedByDate(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.records.EXPECT().Scan(gomock.Any()).Return(sampleRecords(), nil)

	rec := f.do(http.MethodGet, "/allRecords", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	first := strings.Index(body, "2024-05-02 10:00:00")
	second := strings.Index(body, "2024-05-05 10:00:00")
	third := strings.Index(body, "2024-05-09 10:00:00")
	require.True(t, first >= 0 && second >= 0 && third >= 0, body)
	assert.Less(t, first, second)
	assert.Less(t, second, third)
}

func TestAllRecords_Empty(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.records.EXPECT().Scan(gomock.Any()).Return(nil, nil)

	rec := f.do(http.MethodGet, "/allRecords", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Записей пока нет")
}

func TestAllRecords_StoreFailure(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.records.EXPECT().Scan(gomock.Any()).Return(nil, errors.New("redis down"))

	rec := f.do(http.MethodGet, "/allRecords", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAPIRecords_ListAndQuery(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.records.EXPECT().Scan(gomock.Any()).Return(sampleRecords(), nil).Times(2)

	rec := f.do(http.MethodGet, "/api/records", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []model.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "c", "b"}, []string{all[0].ID, all[1].ID, all[2].ID})

	rec = f.do(http.MethodGet, "/api/records?query=[?doctor=='%D0%9B%D0%BE%D1%80'].record_id", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["a","c"]`, rec.Body.String())
}

func TestAPIRecords_EmptyListIsArray(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.records.EXPECT().Scan(gomock.Any()).Return(nil, nil)

	rec := f.do(http.MethodGet, "/api/records", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAPIRecords_InvalidQuery(t *testing.T) {
	f := newRouterFixture(t, nil)

	rec := f.do(http.MethodGet, "/api/records?query=%5B%5B", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIRecord_GetAndNotFound(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.records.EXPECT().Get(gomock.Any(), testRecordID).
		Return(&model.Record{ID: testRecordID, Doctor: "Лор", Date: "2024-05-02 10:00:00"}, nil)
	f.records.EXPECT().Get(gomock.Any(), "missing").Return(nil, model.ErrRecordNotFound)

	rec := f.do(http.MethodGet, "/api/records/"+testRecordID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"record_id":"`+testRecordID+`","doctor":"Лор","date":"2024-05-02 10:00:00"}`,
		rec.Body.String())

	rec = f.do(http.MethodGet, "/api/records/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndex_RendersForm(t *testing.T) {
	f := newRouterFixture(t, nil)

	rec := f.do(http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/static/js/main.js")
	assert.Contains(t, rec.Body.String(), `id="records"`)
}

func TestStatic_ServesScript(t *testing.T) {
	f := newRouterFixture(t, nil)

	rec := f.do(http.MethodGet, "/static/js/main.js", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "getStatus")
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
}

func TestHealthz(t *testing.T) {
	f := newRouterFixture(t, nil)

	rec := f.do(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, healthResponse, rec.Body.String())

	rec = f.do(http.MethodHead, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	healthy := ReadinessCheck{Name: "redis", Ping: func(context.Context) error { return nil }}
	broken := ReadinessCheck{Name: "postgres", Ping: func(context.Context) error { return errors.New("refused") }}

	f := newRouterFixture(t, func(s *RouterServices) { s.Readiness = []ReadinessCheck{healthy} })
	rec := f.do(http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"redis":"ok"}}`, rec.Body.String())

	f = newRouterFixture(t, func(s *RouterServices) { s.Readiness = []ReadinessCheck{healthy, broken} })
	rec = f.do(http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","checks":{"redis":"ok","postgres":"refused"}}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	called := false
	f := newRouterFixture(t, func(s *RouterServices) {
		s.MetricsPath = "/internal/metrics"
		s.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		})
	})

	rec := f.do(http.MethodGet, "/internal/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

type recordingSink struct {
	counts  map[string]map[string]string
	timings int
}

func (s *recordingSink) Count(name string, _ int64, tags map[string]string) {
	if s.counts == nil {
		s.counts = map[string]map[string]string{}
	}
	s.counts[name] = tags
}

func (s *recordingSink) Timing(string, time.Duration, map[string]string) { s.timings++ }

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	sink := &recordingSink{}
	f := newRouterFixture(t, func(s *RouterServices) { s.Metrics = sink })
	f.states.EXPECT().GetState(gomock.Any(), "abc").Return(model.PendingState("abc"), nil)

	f.do(http.MethodGet, "/records/abc", "")

	tags := sink.counts["http.request"]
	require.NotNil(t, tags)
	assert.Equal(t, "GET /records/{record_id}", tags["route"])
	assert.Equal(t, "200", tags["status"])
	assert.Equal(t, 1, sink.timings)
}

func TestRecover_Returns500(t *testing.T) {
	h := Recover(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
