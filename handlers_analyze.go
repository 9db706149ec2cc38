package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"fieldfusion/fusion"
	"fieldfusion/models"
	"fieldfusion/pipeline"
)

// multipart framing allowance on top of the photo limit
const formOverhead = 1 << 20

// handleAnalyze runs an analysis from a JSON body.
func (a *App) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body analyzeReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req, err := body.toModel()
	if err != nil {
		a.writeAnalyzeError(w, err)
		return
	}
	a.analyze(w, r, req, nil)
}

// handleAnalyzeWithImage runs an analysis from a multipart form carrying an
// optional "image" file.
func (a *App) handleAnalyzeWithImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.ImageMaxBytes+formOverhead)
	if err := r.ParseMultipartForm(formOverhead); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, fusion.ErrImageTooLarge.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "bad multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	body, err := formRequest(r)
	if err != nil {
		a.writeAnalyzeError(w, err)
		return
	}
	req, err := body.toModel()
	if err != nil {
		a.writeAnalyzeError(w, err)
		return
	}

	var image io.Reader
	file, _, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		image = file
	case !errors.Is(err, http.ErrMissingFile):
		http.Error(w, "bad image upload", http.StatusBadRequest)
		return
	}
	a.analyze(w, r, req, image)
}

func (a *App) analyze(w http.ResponseWriter, r *http.Request, req models.AnalysisRequest, image io.Reader) {
	ctx, cancel := context.WithTimeout(r.Context(), a.cfg.AnalyzeTimeout)
	defer cancel()

	an, err := a.analyzer.Analyze(ctx, req, image)
	if err != nil {
		a.writeAnalyzeError(w, err)
		return
	}

	if uid := mustUserID(r); !uid.IsZero() {
		rep := pipeline.BuildReport(uid, req, an, a.clock.Now())
		if err := a.store.SaveReport(ctx, &rep); err != nil {
			a.log.Error("save report failed", "user", uid.Hex(), "err", err)
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		an.Response.ReportID = rep.ID.Hex()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(an.Response)
}

func (a *App) writeAnalyzeError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, fusion.ErrImageTooLarge):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, pipeline.ErrUpstream):
		a.log.Warn("analysis upstream failure", "err", err)
		http.Error(w, "weather provider unavailable", http.StatusBadGateway)
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "analysis timed out", http.StatusGatewayTimeout)
	default:
		a.log.Error("analysis failed", "err", err)
		http.Error(w, "analysis failed", http.StatusInternalServerError)
	}
}

// formRequest reads the analysis fields of a multipart form. Empty fields
// are treated as omitted.
func formRequest(r *http.Request) (analyzeReq, error) {
	var out analyzeReq
	var err error
	if out.Lat, err = formFloat(r, "lat"); err != nil {
		return out, err
	}
	if out.Lon, err = formFloat(r, "lon"); err != nil {
		return out, err
	}
	if out.AOIRadiusM, err = formInt(r, "aoi_radius_m"); err != nil {
		return out, err
	}
	if out.IncludeForecastDays, err = formInt(r, "include_forecast_days"); err != nil {
		return out, err
	}
	out.Notes = r.FormValue("notes")
	return out, nil
}

func formFloat(r *http.Request, key string) (*float64, error) {
	s := r.FormValue(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &models.ValidationError{Field: key, Message: "must be a number"}
	}
	return &v, nil
}

func formInt(r *http.Request, key string) (*int, error) {
	s := r.FormValue(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, &models.ValidationError{Field: key, Message: "must be an integer"}
	}
	return &v, nil
}
