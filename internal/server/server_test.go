package server

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/config"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/export"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/ingest"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/storage"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/telegram"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/verdict"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type failingRepo struct{}

func (failingRepo) Load() (map[string]verdict.Verdict, error) {
	return map[string]verdict.Verdict{}, nil
}

func (failingRepo) Save(map[string]verdict.Verdict) error {
	return errors.New("read-only filesystem")
}

func testConfig() *config.Config {
	return &config.Config{
		Locale:            "prayagraj",
		PageSize:          10,
		HeaderScanRows:    20,
		FallbackHeaderRow: 5,
		MaxUploadMB:       5,
		WorkerPoolSize:    2,
	}
}

func newTestServer(t *testing.T, repo verdict.Repository) *Server {
	t.Helper()
	return New(Deps{Config: testConfig(), Repo: repo})
}

func complaintsCSV(t *testing.T, n int, columns []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(columns))
	for i := 1; i <= n; i++ {
		row := make([]string, len(columns))
		for c, col := range columns {
			switch col {
			case ingest.ColComplaintNumber:
				row[c] = fmt.Sprintf("C%d", i)
			case ingest.ColZone:
				row[c] = fmt.Sprintf("Zone %d", i%2)
			default:
				row[c] = fmt.Sprintf("%s %d", col, i)
			}
		}
		require.NoError(t, w.Write(row))
	}
	w.Flush()
	return buf.Bytes()
}

func upload(t *testing.T, s *Server, name string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func openSession(t *testing.T, s *Server, rows int) string {
	t.Helper()
	resp := upload(t, s, "complaints.csv", complaintsCSV(t, rows, ingest.RequiredColumns))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created sessionResponse
	decode(t, resp, &created)
	require.NotEmpty(t, created.SessionID)
	return created.SessionID
}

func TestHealthAndReasons(t *testing.T) {
	s := newTestServer(t, failingRepo{})

	resp := do(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status map[string]interface{}
	decode(t, resp, &status)
	assert.Equal(t, "healthy", status["status"])

	resp = do(t, s, http.MethodGet, "/api/reasons", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reasons struct {
		Qualities []string `json:"qualities"`
		Reasons   []string `json:"reasons"`
	}
	decode(t, resp, &reasons)
	assert.Equal(t, verdict.Reasons, reasons.Reasons)
	assert.Contains(t, reasons.Qualities, verdict.LabelNotReviewed)
}

func TestUploadRejectsMissingColumn(t *testing.T) {
	s := newTestServer(t, failingRepo{})

	var columns []string
	for _, c := range ingest.RequiredColumns {
		if c != ingest.ColWard {
			columns = append(columns, c)
		}
	}

	resp := upload(t, s, "complaints.csv", complaintsCSV(t, 3, columns))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, []string{ingest.ColWard}, body.Missing)
}

func TestUploadRejectsUnreadableSpreadsheet(t *testing.T) {
	s := newTestServer(t, failingRepo{})

	resp := upload(t, s, "complaints.xlsx", []byte("definitely not a zip"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestUploadWithoutFile(t *testing.T) {
	s := newTestServer(t, failingRepo{})

	resp := do(t, s, http.MethodPost, "/api/sessions", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownSession(t *testing.T) {
	s := newTestServer(t, failingRepo{})

	resp := do(t, s, http.MethodGet, "/api/sessions/2b1e7c1a-4f61-4c4b-9b55-0d6a1c1f0e11/page", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, s, http.MethodGet, "/api/sessions/not-a-uuid/page", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReviewFlow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	repo := storage.NewJSONFile(path, nil)
	require.NoError(t, repo.Init())
	s := newTestServer(t, repo)

	id := openSession(t, s, 25)
	base := "/api/sessions/" + id

	// Page navigation
	resp := do(t, s, http.MethodGet, base+"/page", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page pageResponse
	decode(t, resp, &page)
	assert.Equal(t, 3, page.PageCount)
	assert.Len(t, page.Records, 10)
	assert.Equal(t, "C1", page.Records[0].ComplaintNumber)

	resp = do(t, s, http.MethodPost, base+"/page/next", nil)
	decode(t, resp, &page)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, "C11", page.Records[0].ComplaintNumber)

	resp = do(t, s, http.MethodPut, base+"/page/7", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, s, http.MethodPut, base+"/page/2", nil)
	decode(t, resp, &page)
	assert.Len(t, page.Records, 5)

	// Verdicts
	resp = do(t, s, http.MethodPut, base+"/verdicts", verdictRequest{ComplaintNumber: "C1", Quality: "Incorrect", Reason: "After Photo-Missing"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, s, http.MethodPut, base+"/verdicts", verdictRequest{ComplaintNumber: "C2", Quality: "Maybe"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, s, http.MethodPut, base+"/verdicts", verdictRequest{ComplaintNumber: "C2", Quality: "Incorrect", Reason: "looks off"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, s, http.MethodPut, base+"/verdicts", verdictRequest{ComplaintNumber: "C999", Quality: "Correct"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, s, http.MethodPut, base+"/verdicts", verdictRequest{ComplaintNumber: "C2", Quality: "Correct", Reason: "After Photo-Missing"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var set struct {
		Verdict verdict.Verdict `json:"verdict"`
	}
	decode(t, resp, &set)
	assert.Equal(t, verdict.Verdict{Quality: verdict.Correct}, set.Verdict)

	// Filter resets the out-of-range page
	resp = do(t, s, http.MethodPut, base+"/filter", filterRequest{Zone: "Zone 1"})
	decode(t, resp, &page)
	assert.Equal(t, 13, page.Matching)
	assert.Equal(t, 2, page.PageCount)
	assert.Equal(t, 0, page.Page, "page 2 no longer exists")

	resp = do(t, s, http.MethodPut, base+"/filter", filterRequest{Zone: "Zone 1", Ward: "nowhere"})
	decode(t, resp, &page)
	assert.Equal(t, 0, page.Matching)
	assert.Equal(t, 1, page.PageCount)
	assert.Equal(t, 0, page.Page)

	resp = do(t, s, http.MethodPut, base+"/filter", filterRequest{Zone: "All"})
	decode(t, resp, &page)
	assert.Equal(t, 25, page.Matching)

	// Summary
	resp = do(t, s, http.MethodGet, base+"/summary", nil)
	var report struct {
		Total  int `json:"total"`
		QCDone int `json:"qc_done"`
	}
	decode(t, resp, &report)
	assert.Equal(t, 25, report.Total)
	assert.Equal(t, 2, report.QCDone)

	// Save and reload through the durable file
	resp = do(t, s, http.MethodPost, base+"/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reloaded, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, verdict.Verdict{Quality: verdict.Incorrect, Comment: "After Photo-Missing"}, reloaded["C1"])

	// A second session sees the saved verdicts
	other := openSession(t, s, 25)
	resp = do(t, s, http.MethodGet, "/api/sessions/"+other+"/page", nil)
	decode(t, resp, &page)
	assert.Equal(t, verdict.Incorrect, page.Records[0].Verdict.Quality)

	// Export
	resp = do(t, s, http.MethodGet, base+"/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, export.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "qc_log_prayagraj.xlsx")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 26)
	assert.Equal(t, []string{"Incorrect", "After Photo-Missing"}, rows[1][len(rows[1])-2:])
}

func TestSaveFailureIsServerError(t *testing.T) {
	s := newTestServer(t, failingRepo{})
	id := openSession(t, s, 3)

	resp := do(t, s, http.MethodPut, "/api/sessions/"+id+"/verdicts", verdictRequest{ComplaintNumber: "C1", Quality: "Correct"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, s, http.MethodPost, "/api/sessions/"+id+"/save", nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var body ErrorResponse
	decode(t, resp, &body)
	assert.True(t, strings.Contains(body.Error, "read-only filesystem"), body.Error)

	resp = do(t, s, http.MethodGet, "/health", nil)
	var status map[string]interface{}
	decode(t, resp, &status)
	assert.Equal(t, "degraded", status["status"])

	resp = do(t, s, http.MethodGet, "/api/sessions/"+id+"/summary", nil)
	var report struct {
		QCDone int `json:"qc_done"`
	}
	decode(t, resp, &report)
	assert.Equal(t, 1, report.QCDone, "verdicts survive a failed save")
}

func TestOptionsAndPhotos(t *testing.T) {
	s := newTestServer(t, failingRepo{})
	id := openSession(t, s, 4)

	resp := do(t, s, http.MethodGet, "/api/sessions/"+id+"/options", nil)
	var opts map[string][]string
	decode(t, resp, &opts)
	assert.Equal(t, []string{"All", "Zone 1", "Zone 0"}, opts["zones"])

	resp = do(t, s, http.MethodGet, "/api/sessions/"+id+"/photos", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var checked struct {
		Results []map[string]interface{} `json:"results"`
	}
	decode(t, resp, &checked)
	require.Len(t, checked.Results, 8)
	// Generated cells are not http links.
	assert.Equal(t, "broken", checked.Results[0]["status"])
}

func TestReportImage(t *testing.T) {
	s := newTestServer(t, failingRepo{})
	id := openSession(t, s, 3)

	resp := do(t, s, http.MethodGet, "/api/sessions/"+id+"/report.png", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestVerdictOpaqueComplaintNumbers(t *testing.T) {
	s := newTestServer(t, failingRepo{})

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(ingest.RequiredColumns))
	ids := []string{"PRJ 101", "PRJ/102", "PRJ%103"}
	for _, complaint := range ids {
		row := make([]string, len(ingest.RequiredColumns))
		for c, col := range ingest.RequiredColumns {
			row[c] = col + " value"
			if col == ingest.ColComplaintNumber {
				row[c] = complaint
			}
		}
		require.NoError(t, w.Write(row))
	}
	w.Flush()

	resp := upload(t, s, "complaints.csv", buf.Bytes())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created sessionResponse
	decode(t, resp, &created)
	base := "/api/sessions/" + created.SessionID

	for _, complaint := range ids {
		t.Run(complaint, func(t *testing.T) {
			resp := do(t, s, http.MethodPut, base+"/verdicts", verdictRequest{ComplaintNumber: complaint, Quality: "Correct"})
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var set struct {
				ComplaintNumber string          `json:"complaint_number"`
				Verdict         verdict.Verdict `json:"verdict"`
			}
			decode(t, resp, &set)
			assert.Equal(t, complaint, set.ComplaintNumber)
			assert.Equal(t, verdict.Correct, set.Verdict.Quality)
		})
	}

	resp = do(t, s, http.MethodPut, base+"/verdicts", verdictRequest{Quality: "Correct"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "complaint number is required")

	resp = do(t, s, http.MethodGet, base+"/summary", nil)
	var report struct {
		QCDone int `json:"qc_done"`
	}
	decode(t, resp, &report)
	assert.Equal(t, len(ids), report.QCDone)
}

func TestSaveDoesNotWaitForTelegram(t *testing.T) {
	release := make(chan struct{})
	received := make(chan string, 1)
	bot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.URL.Path
		<-release
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer bot.Close()

	tg := telegram.NewClient("token", "chat", false, nil)
	tg.APIBase = bot.URL

	path := filepath.Join(t.TempDir(), "feedback.json")
	s := New(Deps{Config: testConfig(), Repo: storage.NewJSONFile(path, nil), Telegram: tg})
	id := openSession(t, s, 3)
	base := "/api/sessions/" + id

	done := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, base+"/save", nil)
		resp, err := s.App().Test(req, -1)
		if err != nil {
			done <- 0
			return
		}
		done <- resp.StatusCode
	}()

	select {
	case code := <-done:
		assert.Equal(t, http.StatusOK, code)
	case <-time.After(5 * time.Second):
		close(release)
		t.Fatal("save blocked on the Telegram send")
	}

	assert.Equal(t, "/bottoken/sendMessage", <-received)

	// The session lock is free while the message is still in flight.
	resp := do(t, s, http.MethodGet, base+"/summary", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	close(release)
	s.notifications.Wait()
}
