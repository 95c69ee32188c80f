package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/storefront-api/internal/apperror"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubFeedback struct {
	service.FeedbackService
	autoApprove bool
	gotActor    *domain.Account
	gotInput    service.CommentInput
}

func (s *stubFeedback) AddComment(_ context.Context, actor *domain.Account, productSlug string, in service.CommentInput) (*domain.Comment, error) {
	if productSlug != "lamp" {
		return nil, apperror.NotFound("Product")
	}
	s.gotActor = actor
	s.gotInput = in
	return &domain.Comment{ID: "c1", Body: in.Body, ParentID: in.ParentID, UserID: actor.ID, IsApproved: s.autoApprove}, nil
}

func (s *stubFeedback) ListComments(context.Context, string) ([]*service.CommentThread, error) {
	return []*service.CommentThread{{
		Comment: &domain.Comment{ID: "c1", Body: "Bright enough?", IsApproved: true},
		Replies: []*domain.Comment{{ID: "c2", Body: "Yes", IsApproved: true}},
	}}, nil
}

func (s *stubFeedback) ListReviews(context.Context, string) (*service.ReviewSummary, error) {
	return &service.ReviewSummary{
		Reviews:       []*domain.Review{{ID: "r1", Rating: 5}, {ID: "r2", Rating: 4}},
		AverageRating: 4.5,
		Count:         2,
	}, nil
}

// withAccount stands in for RequireAccount
func withAccount(account *domain.Account) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxAccount, account)
		c.Next()
	}
}

func newFeedbackRouter(feedback service.FeedbackService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	RegisterValidation()

	h := NewFeedbackHandler(feedback, zap.NewNop())
	r := gin.New()
	r.GET("/products/:slug/comments", h.ListComments)
	r.GET("/products/:slug/reviews", h.ListReviews)
	r.POST("/user/products/:slug/comments", withAccount(customer(true)), h.AddComment)
	return r
}

func TestAddComment_PendingModeration(t *testing.T) {
	feedback := &stubFeedback{}
	w, body := serve(newFeedbackRouter(feedback), http.MethodPost, "/user/products/lamp/comments", "", map[string]string{"body": "Nice lamp"})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Comment submitted for moderation", body["message"])
	assert.Equal(t, "ana", feedback.gotActor.Username)
	assert.Nil(t, feedback.gotInput.ParentID)
}

func TestAddComment_AutoApproved(t *testing.T) {
	w, body := serve(newFeedbackRouter(&stubFeedback{autoApprove: true}), http.MethodPost, "/user/products/lamp/comments", "", map[string]string{"body": "Nice lamp"})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Comment posted", body["message"])
}

func TestAddComment_ParentMustBeUUID(t *testing.T) {
	w, body := serve(newFeedbackRouter(&stubFeedback{}), http.MethodPost, "/user/products/lamp/comments", "", map[string]string{
		"body":     "Agreed",
		"parentId": "not-a-uuid",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Must be a valid UUID", body["details"].(map[string]any)["parentId"])
}

func TestAddComment_UnknownProduct(t *testing.T) {
	w, _ := serve(newFeedbackRouter(&stubFeedback{}), http.MethodPost, "/user/products/ghost/comments", "", map[string]string{"body": "Hello"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListComments_Threads(t *testing.T) {
	w, body := serve(newFeedbackRouter(&stubFeedback{}), http.MethodGet, "/products/lamp/comments", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	threads := body["comments"].([]any)
	require.Len(t, threads, 1)
	thread := threads[0].(map[string]any)
	assert.Equal(t, "Bright enough?", thread["body"])
	assert.Len(t, thread["replies"], 1)
}

func TestListReviews_Summary(t *testing.T) {
	w, body := serve(newFeedbackRouter(&stubFeedback{}), http.MethodGet, "/products/lamp/reviews", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4.5, body["averageRating"])
	assert.Equal(t, float64(2), body["count"])
	assert.Len(t, body["reviews"], 2)
}
