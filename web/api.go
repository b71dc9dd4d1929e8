// ABOUTME: JSON handlers for companies, contacts, deals, pipeline and dashboard
// ABOUTME: Each handler decodes, calls the CRM service and encodes the result
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/models"
)

type companyRequest struct {
	Name     string `json:"name"`
	Industry string `json:"industry"`
	Website  string `json:"website"`
	Notes    string `json:"notes"`
}

type contactRequest struct {
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Role      string  `json:"role"`
	CompanyID *string `json:"company_id"`
}

// contactPatchRequest is models.ContactPatch with company_id as text so
// "none" can clear the link.
type contactPatchRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Role      *string `json:"role"`
	CompanyID *string `json:"company_id"`
}

type dealRequest struct {
	Title      string      `json:"title"`
	Value      int64       `json:"value"`
	Stage      string      `json:"stage"`
	CompanyID  *string     `json:"company_id"`
	ContactIDs []uuid.UUID `json:"contact_ids"`
	Notes      string      `json:"notes"`
}

// dealPatchRequest is models.DealPatch without closed_at, which the
// server owns.
type dealPatchRequest struct {
	Title      *string      `json:"title"`
	Value      *int64       `json:"value"`
	Stage      *string      `json:"stage"`
	CompanyID  *string      `json:"company_id"`
	ContactIDs *[]uuid.UUID `json:"contact_ids"`
	Notes      *string      `json:"notes"`
}

type moveRequest struct {
	Stage string `json:"stage"`
}

// Companies

func (s *Server) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.svc.ListCompanies(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

func (s *Server) createCompany(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	company, err := s.svc.CreateCompany(r.Context(), &models.Company{
		Name:     req.Name,
		Industry: req.Industry,
		Website:  req.Website,
		Notes:    req.Notes,
	})
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, company)
}

func (s *Server) getCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	detail, err := s.svc.CompanyDetail(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) updateCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var patch models.CompanyPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	company, err := s.svc.UpdateCompany(r.Context(), id, patch)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (s *Server) deleteCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := s.svc.DeleteCompany(r.Context(), id); err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Contacts

func (s *Server) listContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.svc.ListContacts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (s *Server) createContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !decodeBody(w, r, &req) {
		return
	}
	companyID, ok := parseRef(w, "company_id", req.CompanyID)
	if !ok {
		return
	}
	contact, err := s.svc.CreateContact(r.Context(), &models.Contact{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Role:      req.Role,
		CompanyID: companyID,
	})
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, contact)
}

func (s *Server) getContact(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	detail, err := s.svc.ContactDetail(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) updateContact(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req contactPatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	companyID, ok := parseRef(w, "company_id", req.CompanyID)
	if !ok {
		return
	}
	contact, err := s.svc.UpdateContact(r.Context(), id, models.ContactPatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Role:      req.Role,
		CompanyID: companyID,
	})
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

func (s *Server) deleteContact(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := s.svc.DeleteContact(r.Context(), id); err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Deals

func (s *Server) listDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := s.svc.ListDeals(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	if raw := r.URL.Query().Get("stage"); raw != "" {
		stage, err := models.ParseStage(raw)
		if err != nil {
			s.handleServiceError(w, r, err)
			return
		}
		filtered := deals[:0]
		for _, d := range deals {
			if d.Stage == stage {
				filtered = append(filtered, d)
			}
		}
		deals = filtered
	}
	writeJSON(w, http.StatusOK, deals)
}

func (s *Server) createDeal(w http.ResponseWriter, r *http.Request) {
	var req dealRequest
	if !decodeBody(w, r, &req) {
		return
	}
	companyID, ok := parseRef(w, "company_id", req.CompanyID)
	if !ok {
		return
	}
	deal := &models.Deal{
		Title:      req.Title,
		Value:      req.Value,
		CompanyID:  companyID,
		ContactIDs: req.ContactIDs,
		Notes:      req.Notes,
	}
	if req.Stage != "" {
		stage, err := models.ParseStage(req.Stage)
		if err != nil {
			s.handleServiceError(w, r, err)
			return
		}
		deal.Stage = stage
	}

	created, err := s.svc.CreateDeal(r.Context(), deal)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	detail, err := s.svc.DealDetail(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) updateDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req dealPatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	companyID, ok := parseRef(w, "company_id", req.CompanyID)
	if !ok {
		return
	}
	patch := models.DealPatch{
		Title:      req.Title,
		Value:      req.Value,
		CompanyID:  companyID,
		ContactIDs: req.ContactIDs,
		Notes:      req.Notes,
	}
	if req.Stage != nil {
		stage, err := models.ParseStage(*req.Stage)
		if err != nil {
			s.handleServiceError(w, r, err)
			return
		}
		patch.Stage = &stage
	}

	deal, err := s.svc.UpdateDeal(r.Context(), id, patch)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

func (s *Server) moveDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req moveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	stage, err := models.ParseStage(req.Stage)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	deal, err := s.svc.MoveDeal(r.Context(), id, stage)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

func (s *Server) deleteDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := s.svc.DeleteDeal(r.Context(), id); err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Views

func (s *Server) getPipeline(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Pipeline(r.Context())
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.svc.Dashboard(r.Context())
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	results, err := s.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
