package server

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/export"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/ingest"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/review"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/summary"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/verdict"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const notifyTimeout = 30 * time.Second

// recordView is one complaint as shown on a review page.
type recordView struct {
	ComplaintNumber      string          `json:"complaint_number"`
	Subtype              string          `json:"subtype"`
	Zone                 string          `json:"zone"`
	Ward                 string          `json:"ward"`
	Address              string          `json:"address"`
	Surveyor             string          `json:"surveyor"`
	Description          string          `json:"description"`
	RegistrationLocation string          `json:"registration_location"`
	BeforePhoto          string          `json:"before_photo"`
	AfterPhoto           string          `json:"after_photo"`
	Verdict              verdict.Verdict `json:"verdict"`
}

type pageResponse struct {
	SessionID string        `json:"session_id"`
	Filter    review.Filter `json:"filter"`
	Page      int           `json:"page"`
	PageCount int           `json:"page_count"`
	PageSize  int           `json:"page_size"`
	Matching  int           `json:"matching"`
	Records   []recordView  `json:"records"`
	Summary   review.Report `json:"summary"`
}

type sessionResponse struct {
	SessionID string   `json:"session_id"`
	File      string   `json:"file"`
	Rows      int      `json:"rows"`
	HeaderRow int      `json:"header_row"`
	Columns   []string `json:"columns"`
	PageCount int      `json:"page_count"`
}

func (s *Server) pageState(c *fiber.Ctx, e *entry) pageResponse {
	sess := e.session
	page := sess.Page()

	records := make([]recordView, 0, len(page))
	for _, r := range page {
		records = append(records, recordView{
			ComplaintNumber:      r.ID(),
			Subtype:              r.Get(ingest.ColSubtype),
			Zone:                 r.Get(ingest.ColZone),
			Ward:                 r.Get(ingest.ColWard),
			Address:              r.Get(ingest.ColAddress),
			Surveyor:             r.Get(ingest.ColSurveyor),
			Description:          r.Get(ingest.ColDescription),
			RegistrationLocation: r.Get(ingest.ColRegistrationLocation),
			BeforePhoto:          r.Get(ingest.ColUploadDocuments),
			AfterPhoto:           r.Get(ingest.ColResolvedDocuments),
			Verdict:              sess.Store().Get(r.ID()),
		})
	}

	return pageResponse{
		SessionID: c.Params("id"),
		Filter:    sess.Filter(),
		Page:      sess.PageIndex(),
		PageCount: sess.PageCount(),
		PageSize:  sess.PageSize(),
		Matching:  len(sess.View()),
		Records:   records,
		Summary:   sess.Summary().Report(),
	}
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(s.monitor.GetStatus(s.sessions.len()))
}

func (s *Server) reasons(c *fiber.Ctx) error {
	labels := make([]string, 0, len(verdict.Qualities))
	for _, q := range verdict.Qualities {
		labels = append(labels, q.String())
	}
	return c.JSON(fiber.Map{
		"qualities": labels,
		"reasons":   verdict.Reasons,
	})
}

// createSession ingests the uploaded file and opens a session over it with
// verdicts loaded from the durable store.
func (s *Server) createSession(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file provided. Please upload a spreadsheet or CSV file.")
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Could not read upload: "+err.Error())
	}
	defer f.Close()

	table, err := s.reader.Read(f, fh.Filename)
	if err != nil {
		return err
	}

	s.evictIdle()

	store := verdict.Open(s.repo, s.logger)
	sess := review.NewSession(table, store, s.cfg.PageSize)
	id := s.sessions.add(sess, fh.Filename)

	s.logger.Info("📋 Review session opened",
		zap.String("session", id),
		zap.String("file", fh.Filename),
		zap.Int("rows", table.Len()))

	return c.Status(fiber.StatusCreated).JSON(sessionResponse{
		SessionID: id,
		File:      fh.Filename,
		Rows:      table.Len(),
		HeaderRow: table.HeaderRow,
		Columns:   table.Columns,
		PageCount: sess.PageCount(),
	})
}

// options lists picker values from the full table, each led by "All".
func (s *Server) options(c *fiber.Ctx) error {
	t := current(c).session.Table()
	withAll := func(col string) []string {
		return append([]string{review.All}, t.Options(col)...)
	}
	return c.JSON(fiber.Map{
		"zones":    withAll(ingest.ColZone),
		"wards":    withAll(ingest.ColWard),
		"subtypes": withAll(ingest.ColSubtype),
	})
}

func (s *Server) setFilter(c *fiber.Ctx) error {
	var req filterRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	e := current(c)
	e.session.SetFilter(req.filter())
	return c.JSON(s.pageState(c, e))
}

func (s *Server) page(c *fiber.Ctx) error {
	return c.JSON(s.pageState(c, current(c)))
}

func (s *Server) nextPage(c *fiber.Ctx) error {
	e := current(c)
	e.session.Next()
	return c.JSON(s.pageState(c, e))
}

func (s *Server) prevPage(c *fiber.Ctx) error {
	e := current(c)
	e.session.Prev()
	return c.JSON(s.pageState(c, e))
}

func (s *Server) gotoPage(c *fiber.Ctx) error {
	n, err := strconv.Atoi(c.Params("n"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "page must be an integer")
	}
	e := current(c)
	if err := e.session.Goto(n); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(s.pageState(c, e))
}

func (s *Server) setVerdict(c *fiber.Ctx) error {
	var req verdictRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	e := current(c)
	id := req.ComplaintNumber
	if !hasRecord(e.session.Table(), id) {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("complaint %s not in this upload", id))
	}

	q, _ := verdict.ParseQuality(req.Quality)
	v := e.session.SetVerdict(id, q, req.Reason)
	return c.JSON(fiber.Map{
		"complaint_number": id,
		"verdict":          v,
		"summary":          e.session.Summary().Report(),
	})
}

func hasRecord(t *ingest.Table, id string) bool {
	for _, r := range t.Rows {
		if r.ID() == id {
			return true
		}
	}
	return false
}

func (s *Server) summary(c *fiber.Ctx) error {
	return c.JSON(current(c).session.Summary().Report())
}

// report renders the current page as a PNG. With ?send=true it is also
// posted to Telegram.
func (s *Server) report(c *fiber.Ctx) error {
	e := current(c)
	sess := e.session

	rows := summary.RowsFor(sess.Page(), sess.Store())
	if len(rows) == 0 {
		return fiber.NewError(fiber.StatusNotFound, "no records match the current filter")
	}
	counts := sess.Summary()
	title := fmt.Sprintf("QC Progress %s (page %d of %d)", s.cfg.Locale, sess.PageIndex()+1, sess.PageCount())

	png, err := summary.RenderReport(title, rows, counts)
	if err != nil {
		return err
	}

	if c.Query("send") == "true" {
		caption := summary.Footer(counts)
		s.notify("report", func(ctx context.Context) error {
			return s.tg.SendReport(ctx, caption, png)
		})
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

// save flushes the session's verdicts. A failed save keeps them in memory so
// the reviewer can retry.
func (s *Server) save(c *fiber.Ctx) error {
	e := current(c)
	store := e.session.Store()

	err := store.Flush(s.repo)
	s.monitor.RecordSave(err)
	if err != nil {
		return err
	}

	counts := e.session.Summary()
	s.logger.Info("💾 Verdicts saved", zap.Int("count", store.Len()), zap.String("file", e.name))

	msg := fmt.Sprintf("💾 <b>QC verdicts saved</b> (%s)\n%s", e.name, summary.Footer(counts))
	s.notify("save", func(ctx context.Context) error {
		return s.tg.SendMessage(ctx, msg)
	})

	return c.JSON(fiber.Map{
		"success": true,
		"saved":   store.Len(),
		"summary": counts.Report(),
	})
}

// notify runs a Telegram send in the background so a slow Bot API never
// holds the session lock. Failures are only logged.
func (s *Server) notify(kind string, send func(ctx context.Context) error) {
	if s.tg == nil {
		return
	}
	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			s.logger.Warn("⚠️  Failed to notify Telegram", zap.String("kind", kind), zap.Error(err))
		}
	}()
}

// export downloads the current filtered view as the QC log workbook.
func (s *Server) export(c *fiber.Ctx) error {
	e := current(c)
	sess := e.session

	data, err := export.Bytes(sess.Table().Columns, sess.View(), sess.Store())
	s.monitor.RecordExport(err)
	if err != nil {
		return err
	}

	c.Attachment(export.FileName(s.cfg.Locale))
	c.Set(fiber.HeaderContentType, export.ContentType)
	return c.Send(data)
}

// photos checks the photo links on the current page, or the whole view with
// ?scope=view.
func (s *Server) photos(c *fiber.Ctx) error {
	sess := current(c).session

	records := sess.Page()
	if c.Query("scope") == "view" {
		records = sess.View()
	}

	results := s.checker.Check(c.UserContext(), records)
	return c.JSON(fiber.Map{"results": results})
}
