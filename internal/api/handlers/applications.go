// applications.go — заявки на вступление и обращения обратной связи.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/domain/validate"
)

// decisionRequest — тело запросов approve/reject.
type decisionRequest struct {
	ProcessedBy string `json:"processedBy"`
	Reason      string `json:"reason"`
}

// SubmitApplication — POST /api/v1/applications.
// JSON или multipart: data, paymentScreenshot, applicationPdf.
func (h *APIHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	p, err := h.readPayload(w, r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer p.close()

	var in model.MembershipApplication
	if err := p.decode(&in); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	screenshot, err := p.attachment("paymentScreenshot")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	pdf, err := p.attachment("applicationPdf")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	a, err := h.svc.Applications.Submit(r.Context(), &in, screenshot, pdf)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// ListApplications — GET /api/v1/applications.
func (h *APIHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	page, err := h.svc.Applications.List(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetApplication — GET /api/v1/applications/{id}.
func (h *APIHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Applications.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeleteApplication — DELETE /api/v1/applications/{id}.
func (h *APIHandler) DeleteApplication(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Applications.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApproveApplication — POST /api/v1/applications/{id}/approve.
func (h *APIHandler) ApproveApplication(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDecision(w, r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	a, err := h.svc.Applications.Approve(r.Context(), chi.URLParam(r, "id"), req.ProcessedBy)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// RejectApplication — POST /api/v1/applications/{id}/reject.
func (h *APIHandler) RejectApplication(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDecision(w, r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	a, err := h.svc.Applications.Reject(r.Context(), chi.URLParam(r, "id"), req.ProcessedBy, req.Reason)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func decodeDecision(w http.ResponseWriter, r *http.Request) (decisionRequest, error) {
	var req decisionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		return req, validate.Field("body", "json", "ожидается JSON с полями processedBy и reason")
	}
	return req, nil
}

// SubmitInquiry — POST /api/v1/inquiries.
func (h *APIHandler) SubmitInquiry(w http.ResponseWriter, r *http.Request) {
	p, err := h.readPayload(w, r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer p.close()

	var in model.ContactInquiry
	if err := p.decode(&in); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	c, err := h.svc.Inquiries.Submit(r.Context(), &in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListInquiries — GET /api/v1/inquiries.
func (h *APIHandler) ListInquiries(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	page, err := h.svc.Inquiries.List(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetInquiry — GET /api/v1/inquiries/{id}.
func (h *APIHandler) GetInquiry(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Inquiries.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteInquiry — DELETE /api/v1/inquiries/{id}.
func (h *APIHandler) DeleteInquiry(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Inquiries.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RespondInquiry — POST /api/v1/inquiries/{id}/respond.
func (h *APIHandler) RespondInquiry(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Inquiries.Respond(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
