package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pa-workflow-server/internal/domain"
)

type coverageCheckRequest struct {
	PatientID string `json:"patient_id" binding:"required"`
	Drug      string `json:"drug" binding:"required"`
}

type coverageCheckPlanRequest struct {
	Plan string `json:"plan" binding:"required"`
	Drug string `json:"drug" binding:"required"`
}

type eligibilityCheckRequest struct {
	PatientID      string `json:"patient_id" binding:"required"`
	Drug           string `json:"drug" binding:"required"`
	PolicyCriteria string `json:"policy_criteria"`
	UseRAG         *bool  `json:"use_rag"`
}

type paFormRequest struct {
	PatientID    string                     `json:"patient_id" binding:"required"`
	Drug         string                     `json:"drug" binding:"required"`
	ProviderName string                     `json:"provider_name"`
	NPI          string                     `json:"npi"`
	Eligibility  *domain.EligibilityVerdict `json:"eligibility_result"`
	Markdown     bool                       `json:"markdown"`
}

type policyDocumentRequest struct {
	ID        string                `json:"id" binding:"required"`
	Text      string                `json:"text" binding:"required"`
	Metadata  domain.PolicyMetadata `json:"metadata"`
	ChunkSize int                   `json:"chunk_size"`
	Overlap   int                   `json:"overlap"`
}

type workflowRequest struct {
	PatientID    string `json:"patient_id" binding:"required"`
	Drug         string `json:"drug" binding:"required"`
	ProviderName string `json:"provider_name"`
	NPI          string `json:"npi"`
}

func (s *Server) handleCheckCoverage(c *gin.Context) {
	var req coverageCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.coverage.CheckCoverage(c.Request.Context(), req.PatientID, req.Drug)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCheckCoverageByPlan(c *gin.Context) {
	var req coverageCheckPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.coverage.CheckCoverageByPlan(c.Request.Context(), req.Plan, req.Drug)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListPlans(c *gin.Context) {
	plans, err := s.coverage.ListPlans(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (s *Server) handleListDrugs(c *gin.Context) {
	plan := c.Param("plan")

	drugs, err := s.coverage.ListDrugs(c.Request.Context(), plan)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": plan, "drugs": drugs})
}

func (s *Server) handleListAlternatives(c *gin.Context) {
	plan := c.Param("plan")

	alternatives, err := s.coverage.GetCoveredAlternatives(c.Request.Context(), plan)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": plan, "alternatives": alternatives})
}

func (s *Server) handleInsuranceInfo(c *gin.Context) {
	info, err := s.coverage.GetPatientInsuranceInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

func (s *Server) handlePolicySearch(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter is required"})
		return
	}

	topK := 3
	if v, err := strconv.Atoi(c.DefaultQuery("top_k", "3")); err == nil {
		topK = v
	}
	minSimilarity := 0.0
	if v, err := strconv.ParseFloat(c.DefaultQuery("min_similarity", "0"), 64); err == nil {
		minSimilarity = v
	}

	chunks, err := s.retriever.Search(c.Request.Context(), query, topK, minSimilarity)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"matches": len(chunks),
		"results": chunks,
	})
}

func (s *Server) handlePolicyStats(c *gin.Context) {
	stats, err := s.retriever.Stats(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleIndexPolicyDocument(c *gin.Context) {
	var req policyDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc := domain.PolicyDocument{
		ID:       req.ID,
		Text:     req.Text,
		Metadata: req.Metadata,
	}
	if err := s.retriever.IndexPolicyDocument(c.Request.Context(), doc, req.ChunkSize, req.Overlap); err != nil {
		s.renderError(c, err)
		return
	}

	stats, err := s.retriever.Stats(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"document": req.ID,
		"index":    stats,
	})
}

func (s *Server) handleCheckEligibility(c *gin.Context) {
	var req eligibilityCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	useRAG := true
	if req.UseRAG != nil {
		useRAG = *req.UseRAG
	}
	criteria := req.PolicyCriteria
	if criteria == "" {
		criteria = "Standard medical necessity criteria"
	}

	verdict, err := s.eligibility.CheckEligibility(c.Request.Context(), req.PatientID, req.Drug, criteria, useRAG)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, verdict)
}

func (s *Server) handleGeneratePAForm(c *gin.Context) {
	var req paFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form, err := s.forms.GeneratePAForm(c.Request.Context(), req.PatientID, req.Drug, req.Eligibility, req.ProviderName, req.NPI)
	if err != nil {
		s.renderError(c, err)
		return
	}

	if req.Markdown {
		c.JSON(http.StatusOK, gin.H{
			"form":     form,
			"markdown": s.forms.RenderMarkdown(form),
		})
		return
	}

	c.JSON(http.StatusOK, form)
}

func (s *Server) handleProcessPrescription(c *gin.Context) {
	var req workflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := s.orchestrator.ProcessPrescription(c.Request.Context(), req.PatientID, req.Drug, req.ProviderName, req.NPI)

	c.JSON(http.StatusOK, result)
}

// renderError maps domain errors onto HTTP statuses. Errors render as JSON,
// never stack traces.
func (s *Server) renderError(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	switch {
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.log.WithField("error", err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
