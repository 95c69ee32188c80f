package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/storefront-api/internal/dto"
	"github.com/prperemyshlev/storefront-api/internal/service"
	"go.uber.org/zap"
)

// FeedbackHandler serves product comments and reviews
type FeedbackHandler struct {
	feedback service.FeedbackService
	logger   *zap.Logger
}

func NewFeedbackHandler(feedback service.FeedbackService, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback, logger: logger}
}

func (h *FeedbackHandler) ListComments(c *gin.Context) {
	threads, err := h.feedback.ListComments(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	out := make([]dto.CommentThreadResponse, 0, len(threads))
	for _, t := range threads {
		out = append(out, dto.CommentThreadResponse{Comment: t.Comment, Replies: t.Replies})
	}
	respond(c, http.StatusOK, "OK", gin.H{"comments": out})
}

func (h *FeedbackHandler) AddComment(c *gin.Context) {
	var req dto.CommentRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	comment, err := h.feedback.AddComment(c.Request.Context(), currentAccount(c), c.Param("slug"), service.CommentInput{
		Body:     req.Body,
		ParentID: req.ParentID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	message := "Comment submitted for moderation"
	if comment.IsApproved {
		message = "Comment posted"
	}
	respond(c, http.StatusCreated, message, gin.H{"comment": comment})
}

func (h *FeedbackHandler) DeleteOwnComment(c *gin.Context) {
	if err := h.feedback.DeleteOwnComment(c.Request.Context(), currentAccount(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Comment deleted", nil)
}

func (h *FeedbackHandler) ListPendingComments(c *gin.Context) {
	var q dto.PageQuery
	if err := bindQuery(c, &q); err != nil {
		respondError(c, h.logger, err)
		return
	}

	comments, err := h.feedback.ListPendingComments(c.Request.Context(), q.Page, q.Limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "OK", gin.H{"comments": comments})
}

func (h *FeedbackHandler) ApproveComment(c *gin.Context) {
	if err := h.feedback.ApproveComment(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Comment approved", nil)
}

func (h *FeedbackHandler) DeleteComment(c *gin.Context) {
	if err := h.feedback.DeleteComment(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Comment deleted", nil)
}

func (h *FeedbackHandler) ListReviews(c *gin.Context) {
	summary, err := h.feedback.ListReviews(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "OK", gin.H{
		"reviews":       summary.Reviews,
		"averageRating": summary.AverageRating,
		"count":         summary.Count,
	})
}

func (h *FeedbackHandler) AddReview(c *gin.Context) {
	var req dto.ReviewRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	review, err := h.feedback.AddReview(c.Request.Context(), currentAccount(c), c.Param("slug"), reviewInput(req))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "Review submitted", gin.H{"review": review})
}

func (h *FeedbackHandler) UpdateOwnReview(c *gin.Context) {
	var req dto.ReviewRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	review, err := h.feedback.UpdateOwnReview(c.Request.Context(), currentAccount(c), c.Param("id"), reviewInput(req))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Review updated", gin.H{"review": review})
}

func (h *FeedbackHandler) DeleteOwnReview(c *gin.Context) {
	if err := h.feedback.DeleteOwnReview(c.Request.Context(), currentAccount(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Review deleted", nil)
}

func (h *FeedbackHandler) ListPendingReviews(c *gin.Context) {
	var q dto.PageQuery
	if err := bindQuery(c, &q); err != nil {
		respondError(c, h.logger, err)
		return
	}

	reviews, err := h.feedback.ListPendingReviews(c.Request.Context(), q.Page, q.Limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "OK", gin.H{"reviews": reviews})
}

func (h *FeedbackHandler) ApproveReview(c *gin.Context) {
	if err := h.feedback.ApproveReview(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Review approved", nil)
}

func (h *FeedbackHandler) DeleteReview(c *gin.Context) {
	if err := h.feedback.DeleteReview(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Review deleted", nil)
}

func reviewInput(req dto.ReviewRequest) service.ReviewInput {
	return service.ReviewInput{Rating: req.Rating, Title: req.Title, Body: req.Body}
}
