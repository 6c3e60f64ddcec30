package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/gitnar/internal/gitnar/biz"
	"github.com/kart-io/gitnar/internal/pkg/httputils"
	apierrors "github.com/kart-io/gitnar/pkg/errors"
)

// RepoHandler handles repository management requests.
type RepoHandler struct {
	service *biz.Service
}

// NewRepoHandler creates a new RepoHandler.
func NewRepoHandler(service *biz.Service) *RepoHandler {
	return &RepoHandler{service: service}
}

// RegisterRepoRequest is the repository registration payload.
type RegisterRepoRequest struct {
	ID          string `json:"id" binding:"required"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url" binding:"required"`
	Branch      string `json:"branch"`
}

// Register registers a repository and builds its index.
func (h *RepoHandler) Register(c *gin.Context) {
	var req RegisterRepoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, apierrors.ErrQAInvalidArgument.WithCause(err), nil)
		return
	}

	repo, err := h.service.RegisterRepo(c.Request.Context(), &biz.AddRepoRequest{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		URL:         req.URL,
		Branch:      req.Branch,
	})
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, repo)
}

// ListResponse wraps paginated list results.
type ListResponse struct {
	Total int64 `json:"total"`
	Items any   `json:"items"`
}

// List lists registered repositories.
func (h *RepoHandler) List(c *gin.Context) {
	offset, limit := pagination(c)

	total, repos, err := h.service.Store().Repos().List(c.Request.Context(), offset, limit)
	if err != nil {
		httputils.WriteResponse(c, apierrors.ErrQADatabase.WithCause(err), nil)
		return
	}
	httputils.WriteResponse(c, nil, &ListResponse{Total: total, Items: repos})
}

// Get returns one repository.
func (h *RepoHandler) Get(c *gin.Context) {
	repo, err := h.service.Store().Repos().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputils.WriteResponse(c, apierrors.ErrQARepoNotFound.WithCause(err), nil)
		return
	}
	httputils.WriteResponse(c, nil, repo)
}

// Delete removes a repository and its index data.
func (h *RepoHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteRepo(c.Request.Context(), c.Param("id")); err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, nil)
}

// Reindex re-syncs and rebuilds a repository index.
func (h *RepoHandler) Reindex(c *gin.Context) {
	repo, err := h.service.ReindexRepo(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, repo)
}

// Outline returns a structural overview of a repository.
func (h *RepoHandler) Outline(c *gin.Context) {
	outline, err := h.service.RepoOutline(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, gin.H{"outline": outline})
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if offset < 0 {
		offset = 0
	}
	if limit < 1 || limit > 200 {
		limit = 20
	}
	return offset, limit
}
