package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/upgraph/pkg/artifact"
	"github.com/matzehuels/upgraph/pkg/buildinfo"
	"github.com/matzehuels/upgraph/pkg/errors"
	"github.com/matzehuels/upgraph/pkg/pipeline"
	"github.com/matzehuels/upgraph/pkg/render"
	"github.com/matzehuels/upgraph/pkg/session"
	"github.com/matzehuels/upgraph/pkg/store"
	"github.com/matzehuels/upgraph/pkg/upg"
)

// RenderRequest is the body of POST /v1/render.
type RenderRequest struct {
	SessionID string           `json:"sessionId,omitempty"`
	Caller    *upg.Caller      `json:"caller"`
	Tags      upg.TagTable     `json:"tags,omitempty"`
	Options   pipeline.Options `json:"options"`
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId,omitempty"`
	} `json:"error"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"build":  buildinfo.Get(),
	})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeMalformedInput, err, "decode request"))
		return
	}
	if err := req.Caller.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	var sess *session.Session
	if req.SessionID == "" {
		sess = s.sessions.Create()
	} else {
		var err error
		if sess, err = s.sessions.Get(r.Context(), req.SessionID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	ctx := r.Context()
	if s.opts.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RenderTimeout)
		defer cancel()
	}
	opts := mergeOptions(s.opts.Defaults, req.Options)
	opts.Logger = s.logger

	snap, err := sess.Render(ctx, session.Request{Caller: req.Caller, Tags: req.Tags, Options: opts})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = errors.Wrap(errors.ErrCodeTimeout, err, "render timed out")
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.current(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	f, err := parseFormat(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, ok := s.current(w, r)
	if !ok {
		return
	}
	data, err := s.renderExport(r.Context(), snap, f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) storeArtifact(w http.ResponseWriter, r *http.Request) {
	if s.opts.Sink == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "artifact storage is not configured"))
		return
	}
	f, err := parseFormat(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, ok := s.current(w, r)
	if !ok {
		return
	}
	loc, err := artifact.Export(r.Context(), s.opts.Sink, snap, f, render.Options{})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"key":      artifact.Key(snap.SessionID, snap.Seq, f),
		"location": loc,
	})
}

// current writes an error and returns false when the session is unknown
// or has nothing committed.
func (s *Server) current(w http.ResponseWriter, r *http.Request) (*store.Snapshot, bool) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	snap := sess.Current()
	if snap == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "session %s has no committed diagram", sess.ID))
		return nil, false
	}
	return snap, true
}

func parseFormat(r *http.Request) (render.Format, error) {
	name := r.URL.Query().Get("format")
	if name == "" {
		return render.FormatJSON, nil
	}
	return render.ParseFormat(name)
}

// mergeOptions fills the options a request left unset from defaults.
func mergeOptions(defaults, req pipeline.Options) pipeline.Options {
	out := req
	if out.Layout == "" {
		out.Layout = defaults.Layout
	}
	if out.EdgeStyle == "" {
		out.EdgeStyle = defaults.EdgeStyle
	}
	if len(out.Views) == 0 {
		out.Views = defaults.Views
	}
	if out.FieldView == "" {
		out.FieldView = defaults.FieldView
	}
	if out.CharWidth == 0 {
		out.CharWidth = defaults.CharWidth
	}
	if out.NestedEngine == "" {
		out.NestedEngine = defaults.NestedEngine
	}
	if out.TreeEngine == "" {
		out.TreeEngine = defaults.TreeEngine
	}
	out.FitView = out.FitView || defaults.FitView
	out.TagArgs = out.TagArgs || defaults.TagArgs
	return out
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "err", err)
	}
	var body errorBody
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	body.Error.Code = string(code)
	body.Error.Message = errors.UserMessage(err)
	body.Error.RequestID = RequestID(r.Context())
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
