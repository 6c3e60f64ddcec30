// Package handler provides HTTP handlers for the gitnar service.
package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/gitnar/internal/gitnar/biz"
	"github.com/kart-io/gitnar/internal/pkg/httputils"
	apierrors "github.com/kart-io/gitnar/pkg/errors"
)

// queryTimeout bounds a full ask cycle including both provider calls.
const queryTimeout = 60 * time.Second

// QAHandler handles question answering requests.
type QAHandler struct {
	service *biz.Service
}

// NewQAHandler creates a new QAHandler.
func NewQAHandler(service *biz.Service) *QAHandler {
	return &QAHandler{service: service}
}

// AskRepoRequest is the single-repository ask payload.
type AskRepoRequest struct {
	RepositoryID string `json:"repository_id" binding:"required"`
	Question     string `json:"question" binding:"required"`
	TopK         int    `json:"top_k"`
	SessionID    string `json:"session_id"`
	LinkHistory  *bool  `json:"link_history"`
}

// AskRepo answers a question against one repository.
func (h *QAHandler) AskRepo(c *gin.Context) {
	var req AskRepoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, apierrors.ErrQAInvalidArgument.WithCause(err), nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	answer, err := h.service.AskRepo(ctx, &biz.AskRepoRequest{
		RepoID:      req.RepositoryID,
		Question:    req.Question,
		TopK:        req.TopK,
		SessionID:   req.SessionID,
		LinkHistory: linkHistory(req.LinkHistory),
	})
	if err != nil {
		httputils.WriteResponse(c, timeoutError(ctx, err), nil)
		return
	}

	httputils.WriteResponse(c, nil, answer)
}

// AskGroupRequest is the group ask payload.
type AskGroupRequest struct {
	GroupID     string `json:"group_id" binding:"required"`
	Question    string `json:"question" binding:"required"`
	TopKPerRepo int    `json:"top_k_per_repo"`
	SessionID   string `json:"session_id"`
	LinkHistory *bool  `json:"link_history"`
}

// AskGroup answers a question against a repository group.
func (h *QAHandler) AskGroup(c *gin.Context) {
	var req AskGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, apierrors.ErrQAInvalidArgument.WithCause(err), nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	answer, err := h.service.AskGroup(ctx, &biz.AskGroupRequest{
		GroupID:     req.GroupID,
		Question:    req.Question,
		TopKPerRepo: req.TopKPerRepo,
		SessionID:   req.SessionID,
		LinkHistory: linkHistory(req.LinkHistory),
	})
	if err != nil {
		httputils.WriteResponse(c, timeoutError(ctx, err), nil)
		return
	}

	httputils.WriteResponse(c, nil, answer)
}

// History listing for a session.
func (h *QAHandler) History(c *gin.Context) {
	sessionID := c.Param("id")
	limit := 50

	msgs, err := h.service.Sessions().Recent(c.Request.Context(), sessionID, limit)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, msgs)
}

// link_history 缺省为 true
func linkHistory(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}

// timeoutError maps a deadline hit to the timeout errno.
func timeoutError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apierrors.ErrTimeout.WithCause(err)
	}
	return err
}
