package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/gitnar/internal/gitnar/biz"
	"github.com/kart-io/gitnar/internal/model"
	"github.com/kart-io/gitnar/internal/pkg/httputils"
	apierrors "github.com/kart-io/gitnar/pkg/errors"
)

// GroupHandler handles repository group requests.
type GroupHandler struct {
	service *biz.Service
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(service *biz.Service) *GroupHandler {
	return &GroupHandler{service: service}
}

// CreateGroupRequest is the group creation payload.
type CreateGroupRequest struct {
	ID          string   `json:"id" binding:"required"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	RepoIDs     []string `json:"repo_ids" binding:"required"`
}

// Create creates a repository group.
func (h *GroupHandler) Create(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, apierrors.ErrQAInvalidArgument.WithCause(err), nil)
		return
	}

	group := &model.RepoGroup{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		RepoIDs:     req.RepoIDs,
	}
	if err := h.service.CreateGroup(c.Request.Context(), group); err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, group)
}

// List lists repository groups.
func (h *GroupHandler) List(c *gin.Context) {
	offset, limit := pagination(c)

	total, groups, err := h.service.Store().Groups().List(c.Request.Context(), offset, limit)
	if err != nil {
		httputils.WriteResponse(c, apierrors.ErrQADatabase.WithCause(err), nil)
		return
	}
	httputils.WriteResponse(c, nil, &ListResponse{Total: total, Items: groups})
}

// Get returns one repository group.
func (h *GroupHandler) Get(c *gin.Context) {
	group, err := h.service.Store().Groups().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputils.WriteResponse(c, apierrors.ErrQAGroupNotFound.WithCause(err), nil)
		return
	}
	httputils.WriteResponse(c, nil, group)
}

// Delete removes a repository group. Member repositories are untouched.
func (h *GroupHandler) Delete(c *gin.Context) {
	if err := h.service.Store().Groups().Delete(c.Request.Context(), c.Param("id")); err != nil {
		httputils.WriteResponse(c, apierrors.ErrQADatabase.WithCause(err), nil)
		return
	}
	httputils.WriteResponse(c, nil, nil)
}
