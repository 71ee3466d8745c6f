package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dshuvalov/jumper-challenge/adapters/cookiesession"
	"github.com/dshuvalov/jumper-challenge/core"
	"github.com/dshuvalov/jumper-challenge/service"
	"github.com/gin-gonic/gin"
)

const pageKeyQuery = "tokensPageKey"

// WalletHandlers contains HTTP handlers for wallet endpoints
type WalletHandlers struct {
	walletService *service.WalletService
	logger        *slog.Logger
}

// NewWalletHandlers creates new wallet handlers
func NewWalletHandlers(walletService *service.WalletService, logger *slog.Logger) *WalletHandlers {
	return &WalletHandlers{
		walletService: walletService,
		logger:        logger,
	}
}

// MyTokens lists tokens of the wallet bound to the session
//
// @Summary      List my tokens
// @Description  Fetch ERC20 token balances associated with the authorized Ethereum address.
// @Tags         wallets
// @Produce      json
// @Param        tokensPageKey  query     string  false  "Page key returned by the previous page"
// @Success      200            {object}  ServiceResponse{responseObject=core.WalletTokens}
// @Failure      401            {object}  ServiceResponse
// @Router       /wallets/me/tokens [get]
func (h *WalletHandlers) MyTokens(c *gin.Context, sess *cookiesession.Session) {
	h.list(c, sess.Values().WalletAddress)
}

// Tokens lists tokens of the wallet in the path
//
// @Summary      List wallet tokens
// @Description  Fetch ERC20 token balances associated with the provided Ethereum address.
// @Tags         wallets
// @Produce      json
// @Param        address        path      string  true   "Wallet address"
// @Param        tokensPageKey  query     string  false  "Page key returned by the previous page"
// @Success      200            {object}  ServiceResponse{responseObject=core.WalletTokens}
// @Failure      401            {object}  ServiceResponse
// @Failure      404            {object}  ServiceResponse
// @Router       /wallets/{address}/tokens [get]
func (h *WalletHandlers) Tokens(c *gin.Context, _ *cookiesession.Session) {
	h.list(c, c.Param("address"))
}

func (h *WalletHandlers) list(c *gin.Context, address string) {
	wallet, err := h.walletService.ListTokens(c.Request.Context(), address, c.Query(pageKeyQuery))
	if err != nil {
		if errors.Is(err, core.ErrWalletNotFound) {
			respond(c, http.StatusNotFound, "Wallet Not Found", nil)
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "failed to list tokens", "address", address, "error", err)
		respond(c, http.StatusInternalServerError, msgInternalError, nil)
		return
	}

	respond(c, http.StatusOK, "Success", wallet)
}
