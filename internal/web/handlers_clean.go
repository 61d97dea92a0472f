package web

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/shopclean/internal/core"
	"github.com/JonMunkholm/shopclean/internal/csvio"
	"github.com/JonMunkholm/shopclean/internal/logging"
	"github.com/JonMunkholm/shopclean/internal/report"
)

const (
	// multipartMemory is held in memory before parts spill to disk.
	multipartMemory = 32 << 20

	// formOverhead allows for multipart boundaries and part headers.
	formOverhead = 1 << 20
)

// records are the cleaned tables, included on request.
type records struct {
	Customers []core.RawRow `json:"customers"`
	Products  []core.RawRow `json:"products"`
	Orders    []core.RawRow `json:"orders"`
}

type cleanResponse struct {
	report.Summary
	Records *records `json:"records,omitempty"`
}

// handleClean runs the pipeline on three uploaded CSV files.
//
// Form files: customers, products, orders.
// Query: region, top, months, format (json|yaml|text), include=records.
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	limit := 3*s.cfg.Upload.MaxFileSize + formOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, http.StatusRequestEntityTooLarge,
				fmt.Errorf("file too large: request exceeds %d bytes", limit))
			return
		}
		s.respondError(w, r, http.StatusBadRequest, fmt.Errorf("invalid upload: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	format := report.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		parsed, err := report.ParseFormat(f)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, fmt.Errorf("invalid options: %w", err))
			return
		}
		format = parsed
	}

	opts, err := cleanOptions(r, s.cfg.Pipeline.Options())
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err)
		return
	}
	opts.Logger = logging.FromContext(r.Context())

	if err := s.runs.Acquire(r.Context()); err != nil {
		s.respondError(w, r, statusFor(err), err)
		return
	}
	defer s.runs.Release()

	ds, err := s.readUploads(r.Context(), r.MultipartForm)
	if err != nil {
		status := statusFor(err)
		if errors.Is(err, errUploadTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.respondError(w, r, status, err)
		return
	}

	res, err := core.Run(r.Context(), ds, opts)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RunFailed()
		}
		s.respondError(w, r, statusFor(err), err)
		return
	}
	if s.metrics != nil {
		s.metrics.Observe(res)
	}

	if format != report.FormatJSON {
		w.Header().Set("Content-Type", contentType(format))
		if err := report.Write(w, res, format); err != nil {
			opts.Logger.Error("write report", "error", err)
		}
		return
	}

	resp := cleanResponse{Summary: report.NewSummary(res)}
	if wantsRecords(r) {
		resp.Records = &records{
			Customers: csvio.CustomerRows(res.Customers),
			Products:  csvio.ProductRows(res.Products),
			Orders:    csvio.OrderRows(res.Orders),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

var errUploadTooLarge = errors.New("file too large")

// readUploads parses the three form files concurrently.
func (s *Server) readUploads(ctx context.Context, form *multipart.Form) (core.Dataset, error) {
	var ds core.Dataset

	g, gctx := errgroup.WithContext(ctx)
	read := func(key string, dst *[]core.RawRow) {
		g.Go(func() error {
			files := form.File[key]
			if len(files) == 0 {
				return fmt.Errorf("%s: no file provided", key)
			}
			fh := files[0]
			if fh.Size > s.cfg.Upload.MaxFileSize {
				return fmt.Errorf("%s: %w: %d bytes exceeds %d", key, errUploadTooLarge, fh.Size, s.cfg.Upload.MaxFileSize)
			}

			f, err := fh.Open()
			if err != nil {
				return fmt.Errorf("%s: invalid upload: %w", key, err)
			}
			defer f.Close()

			t, err := csvio.ReadTable(gctx, f, key)
			if err != nil {
				return err
			}
			*dst = t.Rows
			return nil
		})
	}
	read(core.TableCustomers, &ds.Customers)
	read(core.TableProducts, &ds.Products)
	read(core.TableOrders, &ds.Orders)

	if err := g.Wait(); err != nil {
		return core.Dataset{}, err
	}
	return ds, nil
}

// statusFor maps a pipeline or read error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrTooManyRuns):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func contentType(f report.Format) string {
	switch f {
	case report.FormatYAML:
		return "application/yaml"
	case report.FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}
