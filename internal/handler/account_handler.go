package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/internal/dto"
	"github.com/prperemyshlev/storefront-api/internal/service"
	"go.uber.org/zap"
)

const defaultListLimit = 20

// AccountHandler lets administrators manage accounts
type AccountHandler struct {
	accounts service.AccountService
	logger   *zap.Logger
}

func NewAccountHandler(accounts service.AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

func (h *AccountHandler) List(c *gin.Context) {
	var q dto.PageQuery
	if err := bindQuery(c, &q); err != nil {
		respondError(c, h.logger, err)
		return
	}

	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = defaultListLimit
	}

	accounts, total, err := h.accounts.List(c.Request.Context(), q.Page, q.Limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "OK", gin.H{
		"users":      dto.NewUserResponses(accounts),
		"pagination": dto.Pagination{Page: q.Page, Limit: q.Limit, Total: total},
	})
}

func (h *AccountHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	account, err := h.accounts.Create(c.Request.Context(), service.CreateAccountInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, "Account created", gin.H{"user": dto.NewUserResponse(account)})
}

func (h *AccountHandler) SetStatus(c *gin.Context) {
	var req dto.SetStatusRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	account, err := h.accounts.SetActive(c.Request.Context(), c.Param("id"), *req.IsActive)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "Account status updated", gin.H{"user": dto.NewUserResponse(account)})
}
