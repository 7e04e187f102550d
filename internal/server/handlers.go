package server

import (
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/datamanager"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/errors"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/json"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/logger"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/molecule"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/render"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/render/threedmol"
)

// uploadField is the multipart form field carrying parquet uploads.
const uploadField = "files"

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.Write(w, v); err != nil {
		s.logger.With(logger.Fields(r.Context())...).Warn("failed to encode response", zap.Error(err))
	}
}

func statusFor(err error) int {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeConnection, errors.ErrorTypeCapability:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := s.logger.With(logger.Fields(r.Context())...).With(errors.Fields(err)...)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", r.URL.Path))
	} else {
		log.Info("request rejected", zap.String("path", r.URL.Path))
	}
	s.writeJSON(w, r, status, errorResponse{Error: err.Error(), Type: string(errors.TypeOf(err))})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":       "ok",
		"files":        len(s.data.Paths()),
		"capabilities": s.caps,
	})
}

func (s *Server) handleFingerprint(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"fingerprint": s.data.Fingerprint(),
		"files":       s.data.Paths(),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	fp := s.data.Fingerprint()
	summary, err := s.data.Summary(logger.WithFingerprint(r.Context(), fp), fp)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"fingerprint": fp,
		"summary":     summary,
	})
}

// handleMolecules filters on every query parameter: ?formula=H2O&opt_converged=true
func (s *Server) handleMolecules(w http.ResponseWriter, r *http.Request) {
	filters := datamanager.Filters{}
	for col, raw := range r.URL.Query() {
		if len(raw) == 0 || raw[0] == "" {
			continue
		}
		v, err := molecule.ParseValue(col, raw[0])
		if err != nil {
			s.fail(w, r, errors.Wrap(err, errors.ErrorTypeValidation, "invalid filter value"))
			return
		}
		filters[col] = v
	}

	res, err := s.data.FilteredData(r.Context(), filters)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleMoleculeByName(w http.ResponseWriter, r *http.Request) {
	rec, err := s.data.MoleculeByName(r.Context(), r.PathValue("name"))
	s.writeRecord(w, r, rec, err)
}

func (s *Server) handleMoleculeByIndex(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(r.PathValue("i"))
	if err != nil {
		s.fail(w, r, errors.Newf(errors.ErrorTypeValidation, "invalid molecule index %q", r.PathValue("i")))
		return
	}
	rec, err := s.data.MoleculeByIndex(r.Context(), i)
	s.writeRecord(w, r, rec, err)
}

func (s *Server) writeRecord(w http.ResponseWriter, r *http.Request, rec *molecule.Record, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rec == nil {
		s.writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "molecule not found", Type: "not_found"})
		return
	}
	s.writeJSON(w, r, http.StatusOK, rec)
}

func (s *Server) handleValues(w http.ResponseWriter, r *http.Request) {
	fp := s.data.Fingerprint()
	values, err := s.data.UniqueValues(logger.WithFingerprint(r.Context(), fp), r.PathValue("column"), fp)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, values)
}

func (s *Server) handleNames(w http.ResponseWriter, r *http.Request) {
	fp := s.data.Fingerprint()
	names, err := s.data.AllMoleculeNames(logger.WithFingerprint(r.Context(), fp), fp)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, names)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Server.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.fail(w, r, errors.Wrap(err, errors.ErrorTypeValidation, "invalid multipart upload"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[uploadField]
	uploads := make([]*datamanager.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.fail(w, r, errors.Wrap(err, errors.ErrorTypeFile, "failed to read upload").
				WithDetail("name", fh.Filename))
			return
		}
		defer f.Close()
		uploads = append(uploads, &datamanager.Upload{Name: fh.Filename, Body: f})
	}

	paths, err := s.data.AddFiles(uploads)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, map[string]any{
		"paths":       paths,
		"fingerprint": s.data.Fingerprint(),
	})
}

// handleView renders a molecule page: ?style=stick|sphere|cartoon and
// ?geometry=initial|optimized (optimized by default).
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	rec, err := s.data.MoleculeByName(r.Context(), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	style := r.URL.Query().Get("style")
	if style == "" {
		style = s.cfg.Viewer.DefaultStyle
	}
	optimized := r.URL.Query().Get("geometry") != "initial"

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if rec == nil {
		w.WriteHeader(http.StatusNotFound)
	}
	page := threedmol.NewPage(w, s.script)
	_ = page.Begin(name)

	if rec == nil {
		page.Warning(fmt.Sprintf("Molecule %q not found", name))
	} else {
		_ = page.Properties(properties(rec))
		renderer := render.New(s.caps, s.views, page, page,
			render.WithSize(s.cfg.Viewer.Width, s.cfg.Viewer.Height),
			render.WithLogger(s.logger.With(logger.Fields(r.Context())...)))
		renderer.Render(rec.XYZ(optimized), style, fmt.Sprintf("%s (%s)", rec.UniqueName, rec.Formula))
	}

	if err := page.End(); err != nil {
		s.logger.With(logger.Fields(r.Context())...).Warn("failed to write view page", zap.Error(err))
	}
}

func properties(rec *molecule.Record) []threedmol.Property {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	props := []threedmol.Property{
		{Name: "Formula", Value: rec.Formula},
		{Name: "Atoms", Value: strconv.FormatInt(rec.NumberOfAtoms, 10)},
		{Name: "Electrons", Value: strconv.FormatInt(rec.NumberOfElectrons, 10)},
		{Name: "Spin", Value: f(rec.Spin)},
		{Name: "Calculator", Value: rec.Calculator},
		{Name: "Task", Value: rec.Task},
		{Name: "Model", Value: rec.Model},
		{Name: "Initial energy (eV)", Value: f(rec.InitialEnergyEV)},
		{Name: "Optimized energy (eV)", Value: f(rec.OptEnergyEV)},
		{Name: "Converged", Value: strconv.FormatBool(rec.OptConverged)},
		{Name: "Optimization steps", Value: strconv.FormatInt(rec.OptSteps, 10)},
	}
	if rec.GibbsEV != nil {
		props = append(props, threedmol.Property{Name: "G (eV)", Value: f(*rec.GibbsEV)})
	}
	if rec.EnthalpyEV != nil {
		props = append(props, threedmol.Property{Name: "H (eV)", Value: f(*rec.EnthalpyEV)})
	}
	if rec.EntropyEVPerK != nil {
		props = append(props, threedmol.Property{Name: "S (eV/K)", Value: f(*rec.EntropyEVPerK)})
	}
	return props
}
