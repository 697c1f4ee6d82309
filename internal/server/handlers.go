package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"clipmark/internal/catalog"
	"clipmark/internal/gateway"
	"clipmark/internal/logging"
	"clipmark/internal/scoring"
	"clipmark/internal/services"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status          string `json:"status"`
	Clips           int    `json:"clips"`
	Blocks          int    `json:"blocks"`
	ValidationClips int    `json:"validationClips"`
	Annotations     int    `json:"annotations"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := HealthResponse{
		Status:      "ok",
		Clips:       s.clips.Len(),
		Blocks:      s.assigner.Blocks(),
		Annotations: stats.Annotations,
	}
	if s.validation != nil {
		resp.ValidationClips = s.validation.Len()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnnotatorID(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id, issued := s.identity.resolve(w, r)
	if issued {
		logging.WithContext(services.WithAnnotatorID(r.Context(), id), s.logger).Info("annotator id issued")
	}
	s.writeJSON(w, http.StatusOK, gateway.AnnotatorIdentity{AnnotatorID: id})
}

func (s *Server) handleClips(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id, _ := s.identity.resolve(w, r)
	ctx := services.WithAnnotatorID(r.Context(), id)

	assignment, err := s.assigner.Assign(ctx, id)
	if err != nil {
		s.writeServiceError(w, r.WithContext(ctx), err)
		return
	}
	logging.WithContext(ctx, s.logger).Info("clips assigned",
		slog.Int("block", assignment.Block),
		slog.Int("start_index", assignment.StartIndex),
		slog.Int("clips", len(assignment.Clips)),
		slog.Bool("resumed", assignment.Resumed),
	)
	s.writeJSON(w, http.StatusOK, toClipList(assignment))
}

func (s *Server) handleValidationClips(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.identity.resolve(w, r)
	if s.validation == nil {
		s.writeServiceError(w, r, errValidationDisabled)
		return
	}
	assignment, err := s.assigner.PickOne(s.validation)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	list := toClipList(assignment)
	list.StartIndex = 0
	s.writeJSON(w, http.StatusOK, list)
}

func toClipList(a catalog.Assignment) gateway.ClipList {
	clips := make([]gateway.Clip, 0, len(a.Clips))
	for _, c := range a.Clips {
		clips = append(clips, gateway.Clip{Index: c.Index, Folder: c.Folder, Frames: c.Frames})
	}
	return gateway.ClipList{StartIndex: a.StartIndex, Clips: clips, TotalClips: len(clips)}
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	s.serveFrame(w, r, p, s.clips)
}

func (s *Server) handleValidationFrame(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if s.validation == nil {
		s.writeServiceError(w, r, errValidationDisabled)
		return
	}
	s.serveFrame(w, r, p, s.validation)
}

func (s *Server) serveFrame(w http.ResponseWriter, r *http.Request, p httprouter.Params, cat *catalog.Catalog) {
	clipIndex, err := pathInt(p, "clip")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	frameIndex, err := pathInt(p, "frame")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	opts, err := s.frameOptions(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	path, err := cat.FramePath(clipIndex, frameIndex)
	if err != nil {
		s.writeError(w, services.HTTPStatus(err), "Frame not found")
		return
	}
	frame, err := catalog.LoadFrame(path, opts)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", frame.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(frame.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frame.Data)
}

// frameOptions combines ?width= and ?format= with the configured width cap.
func (s *Server) frameOptions(r *http.Request) (catalog.FrameOptions, error) {
	query := r.URL.Query()
	opts := catalog.FrameOptions{MaxWidth: s.cfg.Server.MaxFrameWidth}
	if raw := query.Get("width"); raw != "" {
		width, err := strconv.Atoi(raw)
		if err != nil || width <= 0 {
			return opts, services.Wrap(services.ErrValidation, "server", "frame options",
				fmt.Sprintf("width %q must be a positive integer", raw), nil)
		}
		if opts.MaxWidth == 0 || width < opts.MaxWidth {
			opts.MaxWidth = width
		}
	}
	format, err := catalog.ParseFormat(query.Get("format"))
	if err != nil {
		return opts, err
	}
	opts.Format = format
	return opts, nil
}

func (s *Server) handleAnnotation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id, _ := s.identity.resolve(w, r)
	var record gateway.AnnotationRecord
	if err := decodeJSON(w, r, maxRecordBytes, &record); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	ctx := services.WithClip(services.WithAnnotatorID(r.Context(), id), record.ClipFolder)

	saved, err := s.store.Insert(ctx, id, record)
	if err != nil {
		s.writeServiceError(w, r.WithContext(ctx), err)
		return
	}
	logging.WithContext(ctx, s.logger).Info("annotation stored",
		slog.Int64("annotation_id", saved.ID),
		slog.Int("global_index", record.GlobalIndex),
		slog.Int("groups", record.GroupCount),
	)
	s.writeJSON(w, http.StatusOK, gateway.Ack{
		Success:      true,
		AnnotationID: saved.ID,
		Message:      "Annotation saved",
	})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id, _ := s.identity.resolve(w, r)
	var summary gateway.SessionSummary
	if err := decodeJSON(w, r, maxSummaryBytes, &summary); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	ctx := services.WithAnnotatorID(r.Context(), id)

	batchID, ids, err := s.store.InsertBatch(ctx, id, summary.Annotations)
	if err != nil {
		s.writeServiceError(w, r.WithContext(ctx), err)
		return
	}
	logging.WithContext(ctx, s.logger).Info("session summary stored",
		slog.String("batch_id", batchID),
		slog.Int("annotations", len(ids)),
		slog.Int("total_clips", summary.TotalClips),
	)
	s.writeJSON(w, http.StatusOK, gateway.Ack{
		Success:      true,
		AnnotationID: ids[len(ids)-1],
		Stored:       len(ids),
		Message:      "All annotations saved",
	})
}

func (s *Server) handleValidationAnnotation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id, _ := s.identity.resolve(w, r)
	var record gateway.AnnotationRecord
	if err := decodeJSON(w, r, maxRecordBytes, &record); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := record.Validate(); err != nil {
		s.writeServiceError(w, r, services.Wrap(services.ErrValidation, "server", "validation annotation", "invalid annotation", err))
		return
	}
	if s.validation == nil || s.cfg.Paths.ValidationGTsDir == "" {
		s.writeServiceError(w, r, errValidationDisabled)
		return
	}
	ctx := services.WithClip(services.WithAnnotatorID(r.Context(), id), record.ClipFolder)

	truth, err := scoring.LoadGroundTruth(s.cfg.Paths.ValidationGTsDir, record.ClipFolder)
	if err != nil {
		s.writeServiceError(w, r.WithContext(ctx), err)
		return
	}
	predicted := make([]scoring.Box, 0, len(record.Groups))
	for _, g := range record.Groups {
		predicted = append(predicted, g.BBox)
	}
	result := scoring.Grade(truth, predicted, scoring.DefaultThreshold)

	logging.WithContext(ctx, s.logger).Info("validation scored",
		slog.Int("matches", result.Matches),
		slog.Int("ground_truth", result.GroundTruth),
		slog.Int("predictions", result.Predictions),
		slog.Float64("score", result.Score),
	)
	score := result.Score
	s.writeJSON(w, http.StatusOK, gateway.Ack{
		Success: true,
		Score:   &score,
		Message: "Annotation compared to ground truth",
	})
}

var errValidationDisabled = services.Wrap(services.ErrNotFound, "server", "validation",
	"validation clips are not configured", nil)

func pathInt(p httprouter.Params, name string) (int, error) {
	raw := p.ByName(name)
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "server", "parse path",
			fmt.Sprintf("%s %q is not an integer", name, raw), nil)
	}
	return v, nil
}
