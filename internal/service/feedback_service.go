package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/prperemyshlev/storefront-api/internal/apperror"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/internal/repository"
	"go.uber.org/zap"
)

const (
	maxCommentLength = 2000
	maxReviewLength  = 5000
	maxTitleLength   = 200
)

type CommentInput struct {
	Body     string
	ParentID *string
}

type ReviewInput struct {
	Rating int
	Title  string
	Body   string
}

// CommentThread is a top-level comment with its approved replies
type CommentThread struct {
	Comment *domain.Comment
	Replies []*domain.Comment
}

// ReviewSummary lists approved reviews with their average rating
type ReviewSummary struct {
	Reviews       []*domain.Review
	AverageRating float64
	Count         int
}

type feedbackService struct {
	products    repository.ProductRepository
	comments    repository.CommentRepository
	reviews     repository.ReviewRepository
	logger      *zap.Logger
	autoApprove bool
}

// NewFeedbackService creates the comments and reviews service
func NewFeedbackService(
	products repository.ProductRepository,
	comments repository.CommentRepository,
	reviews repository.ReviewRepository,
	logger *zap.Logger,
	autoApprove bool,
) FeedbackService {
	return &feedbackService{
		products:    products,
		comments:    comments,
		reviews:     reviews,
		logger:      logger,
		autoApprove: autoApprove,
	}
}

func (s *feedbackService) AddComment(ctx context.Context, actor *domain.Account, productSlug string, in CommentInput) (*domain.Comment, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" || utf8.RuneCountInString(body) > maxCommentLength {
		return nil, apperror.Validation("Comment must be between 1 and 2000 characters")
	}

	product, err := s.activeProduct(ctx, productSlug)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		ProductID:  product.ID,
		UserID:     actor.ID,
		Body:       body,
		IsApproved: s.autoApprove,
	}

	if in.ParentID != nil && *in.ParentID != "" {
		parent, err := s.comments.GetByID(ctx, *in.ParentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperror.Validation("Parent comment does not exist")
			}
			return nil, err
		}
		if parent.ProductID != product.ID {
			return nil, apperror.Validation("Parent comment belongs to another product")
		}
		if parent.ParentID != nil {
			return nil, apperror.Validation("Replies cannot be nested")
		}
		comment.ParentID = &parent.ID
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	return comment, nil
}

func (s *feedbackService) DeleteOwnComment(ctx context.Context, actor *domain.Account, commentID string) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return mapFeedbackError(err, "Comment")
	}
	if comment.UserID != actor.ID {
		return apperror.ErrForbidden
	}
	return mapFeedbackError(s.comments.Delete(ctx, commentID), "Comment")
}

// ListComments groups approved comments into threads, oldest first.
// Replies whose parent is not approved are hidden.
func (s *feedbackService) ListComments(ctx context.Context, productSlug string) ([]*CommentThread, error) {
	product, err := s.activeProduct(ctx, productSlug)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.ListApprovedByProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	threads := make([]*CommentThread, 0)
	byID := make(map[string]*CommentThread)
	for _, c := range comments {
		if c.ParentID == nil {
			thread := &CommentThread{Comment: c, Replies: []*domain.Comment{}}
			threads = append(threads, thread)
			byID[c.ID] = thread
		}
	}
	for _, c := range comments {
		if c.ParentID == nil {
			continue
		}
		if thread, ok := byID[*c.ParentID]; ok {
			thread.Replies = append(thread.Replies, c)
		}
	}

	return threads, nil
}

func (s *feedbackService) ListPendingComments(ctx context.Context, page, limit int) ([]*domain.Comment, error) {
	limit, offset := pageBounds(page, limit)
	return s.comments.ListPending(ctx, limit, offset)
}

func (s *feedbackService) ApproveComment(ctx context.Context, commentID string) error {
	if err := s.comments.Approve(ctx, commentID); err != nil {
		return mapFeedbackError(err, "Comment")
	}
	s.logger.Info("Comment approved", zap.String("comment_id", commentID))
	return nil
}

func (s *feedbackService) DeleteComment(ctx context.Context, commentID string) error {
	return mapFeedbackError(s.comments.Delete(ctx, commentID), "Comment")
}

func (s *feedbackService) AddReview(ctx context.Context, actor *domain.Account, productSlug string, in ReviewInput) (*domain.Review, error) {
	if err := validateReview(in); err != nil {
		return nil, err
	}

	product, err := s.activeProduct(ctx, productSlug)
	if err != nil {
		return nil, err
	}

	review := &domain.Review{
		ProductID:  product.ID,
		UserID:     actor.ID,
		Rating:     in.Rating,
		Title:      strings.TrimSpace(in.Title),
		Body:       strings.TrimSpace(in.Body),
		IsApproved: s.autoApprove,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicateReview) {
			return nil, apperror.ErrDuplicateReview
		}
		return nil, err
	}

	return review, nil
}

// UpdateOwnReview edits a review; edited reviews go back through moderation
func (s *feedbackService) UpdateOwnReview(ctx context.Context, actor *domain.Account, reviewID string, in ReviewInput) (*domain.Review, error) {
	if err := validateReview(in); err != nil {
		return nil, err
	}

	review, err := s.ownReview(ctx, actor, reviewID)
	if err != nil {
		return nil, err
	}

	review.Rating = in.Rating
	review.Title = strings.TrimSpace(in.Title)
	review.Body = strings.TrimSpace(in.Body)
	review.IsApproved = s.autoApprove

	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, mapFeedbackError(err, "Review")
	}

	return review, nil
}

func (s *feedbackService) DeleteOwnReview(ctx context.Context, actor *domain.Account, reviewID string) error {
	if _, err := s.ownReview(ctx, actor, reviewID); err != nil {
		return err
	}
	return mapFeedbackError(s.reviews.Delete(ctx, reviewID), "Review")
}

func (s *feedbackService) ListReviews(ctx context.Context, productSlug string) (*ReviewSummary, error) {
	product, err := s.activeProduct(ctx, productSlug)
	if err != nil {
		return nil, err
	}

	reviews, err := s.reviews.ListApprovedByProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	avg, count, err := s.reviews.AverageRating(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	if reviews == nil {
		reviews = []*domain.Review{}
	}

	return &ReviewSummary{
		Reviews:       reviews,
		AverageRating: avg,
		Count:         count,
	}, nil
}

func (s *feedbackService) ListPendingReviews(ctx context.Context, page, limit int) ([]*domain.Review, error) {
	limit, offset := pageBounds(page, limit)
	return s.reviews.ListPending(ctx, limit, offset)
}

func (s *feedbackService) ApproveReview(ctx context.Context, reviewID string) error {
	if err := s.reviews.Approve(ctx, reviewID); err != nil {
		return mapFeedbackError(err, "Review")
	}
	s.logger.Info("Review approved", zap.String("review_id", reviewID))
	return nil
}

func (s *feedbackService) DeleteReview(ctx context.Context, reviewID string) error {
	return mapFeedbackError(s.reviews.Delete(ctx, reviewID), "Review")
}

func (s *feedbackService) activeProduct(ctx context.Context, slug string) (*domain.Product, error) {
	product, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		return nil, mapFeedbackError(err, "Product")
	}
	if !product.IsActive {
		return nil, apperror.NotFound("Product")
	}
	return product, nil
}

func (s *feedbackService) ownReview(ctx context.Context, actor *domain.Account, reviewID string) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, mapFeedbackError(err, "Review")
	}
	if review.UserID != actor.ID {
		return nil, apperror.ErrForbidden
	}
	return review, nil
}

func validateReview(in ReviewInput) error {
	if in.Rating < 1 || in.Rating > 5 {
		return apperror.Validation("Rating must be between 1 and 5")
	}
	if utf8.RuneCountInString(in.Title) > maxTitleLength {
		return apperror.Validation("Title must be at most 200 characters")
	}
	if utf8.RuneCountInString(in.Body) > maxReviewLength {
		return apperror.Validation("Review must be at most 5000 characters")
	}
	return nil
}

func mapFeedbackError(err error, resource string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound(resource)
	}
	return err
}
