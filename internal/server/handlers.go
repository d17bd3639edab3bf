package server

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/jonathan/coldmail/internal/render"
	"github.com/jonathan/coldmail/internal/session"
	"github.com/jonathan/coldmail/internal/types"
	"go.uber.org/zap"
)

// ComposerRequest updates the composer. Omitted fields are left unchanged.
type ComposerRequest struct {
	Mode  *string `json:"mode,omitempty"`
	Input *string `json:"input,omitempty"`
}

// ComposerResponse describes the composer.
type ComposerResponse struct {
	Mode           types.Mode `json:"mode"`
	URL            string     `json:"url"`
	JobDescription string     `json:"job_description"`
	CanSubmit      bool       `json:"can_submit"`
}

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	SubmissionID string     `json:"submission_id"`
	Mode         types.Mode `json:"mode"`
}

func (s *Server) composerResponse() ComposerResponse {
	return ComposerResponse{
		Mode:           s.composer.Mode(),
		URL:            s.composer.Input(types.ModeURL),
		JobDescription: s.composer.Input(types.ModeDescription),
		CanSubmit:      s.composer.CanSubmit(),
	}
}

func (s *Server) handleGetComposer(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.composerResponse())
}

func (s *Server) handleUpdateComposer(w http.ResponseWriter, r *http.Request) {
	var req ComposerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := s.applyComposer(req); err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.composerResponse())
}

// applyComposer switches mode first so Input lands on the requested mode.
func (s *Server) applyComposer(req ComposerRequest) error {
	if req.Mode != nil {
		mode, err := types.ParseMode(*req.Mode)
		if err != nil {
			return &ErrValidation{Field: "mode", Message: err.Error()}
		}
		if err := s.composer.SetMode(mode); err != nil {
			return &ErrValidation{Field: "mode", Message: err.Error()}
		}
	}
	if req.Input != nil {
		if err := s.composer.SetInput(s.composer.Mode(), *req.Input); err != nil {
			return &ErrValidation{Field: "input", Message: err.Error()}
		}
	}
	return nil
}

func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.controller.State())
}

// handleSubmit accepts an optional composer update in the body, then submits the
// active input. The call runs in the background; progress is reported on /events.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req ComposerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		s.errorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := s.applyComposer(req); err != nil {
		s.errorFrom(w, err)
		return
	}

	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	s.submission = nil
	genReq, err := s.composer.Submit()
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	if s.submission == nil {
		s.errorResponse(w, http.StatusInternalServerError, "submission was not started")
		return
	}

	s.logger.Info("submission accepted",
		zap.String("submission_id", s.submission.ID),
		zap.String("mode", string(genReq.Mode())),
	)
	s.jsonResponse(w, http.StatusAccepted, SubmitResponse{
		SubmissionID: s.submission.ID,
		Mode:         genReq.Mode(),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.composer.Reset()
	s.jsonResponse(w, http.StatusOK, s.controller.State())
}

// handleEvents streams every session state change as a "state" event.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	states, unsubscribe := s.controller.Subscribe(16)
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if err := sse.WriteEvent("state", st); err != nil {
				s.logger.Debug("event stream closed", zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	st := s.controller.State()
	page := render.PageState{Status: string(st.Status), Error: st.Error, Response: st.Response}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.WriteHTML(w, page, s.viewerFor(st)); err != nil {
		s.logger.Warn("error rendering view", zap.Error(err))
	}
}

func (s *Server) handleToggleEmail(w http.ResponseWriter, r *http.Request) {
	v, index, err := s.emailTarget(r)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	expanded, err := v.Toggle(index)
	if err != nil {
		s.errorFrom(w, &ErrEmailNotFound{Index: index})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"index": index, "expanded": expanded})
}

func (s *Server) handleCopyEmail(w http.ResponseWriter, r *http.Request) {
	v, index, err := s.emailTarget(r)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	if err := v.Copy(index); err != nil {
		s.logger.Warn("copy to clipboard failed", zap.Int("index", index), zap.Error(err))
		s.errorResponse(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"index": index, "copied": true})
}

func (s *Server) handleDownloadEmail(w http.ResponseWriter, r *http.Request) {
	v, index, err := s.emailTarget(r)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	email, _ := v.Email(index)
	s.attachment(w, render.EmailFilename(email, index), email.EmailContent)
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	st := s.controller.State()
	if st.Status != session.StatusSuccess || !render.HasEmails(st.Response) {
		s.errorFrom(w, &ErrNoResults{Status: st.Status})
		return
	}
	s.attachment(w, render.AggregateFilename(s.now()), render.AggregateContent(st.Response.Emails))
}

func (s *Server) attachment(w http.ResponseWriter, filename, content string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if disposition == "" {
		disposition = "attachment"
	}
	w.Header().Set("Content-Disposition", disposition)
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, content); err != nil {
		s.logger.Warn("error writing attachment", zap.String("filename", filename), zap.Error(err))
	}
}

// emailTarget resolves the {index} path value against the displayed results.
func (s *Server) emailTarget(r *http.Request) (*render.Viewer, int, error) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		return nil, 0, &ErrValidation{Field: "index", Message: "must be an integer"}
	}

	st := s.controller.State()
	if st.Status != session.StatusSuccess {
		return nil, 0, &ErrNoResults{Status: st.Status}
	}
	v := s.viewerFor(st)
	if _, err := v.Email(index); err != nil {
		return nil, 0, &ErrEmailNotFound{Index: index}
	}
	return v, index, nil
}

// viewerFor returns the viewer of a successful state, creating a fresh one when
// the displayed response changed. Other states have none.
func (s *Server) viewerFor(st session.State) *render.Viewer {
	if st.Status != session.StatusSuccess {
		return nil
	}
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	if s.viewer == nil || s.viewerID != st.SubmissionID {
		s.viewer = render.NewViewer(st.Response, s.clipboard)
		s.viewerID = st.SubmissionID
	}
	return s.viewer
}
