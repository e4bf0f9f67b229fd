package httpservice

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"
	"github.com/mmna-launch/crowdsale/internal/core/application"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	"github.com/mmna-launch/crowdsale/pkg/units"
)

type adminHandler struct {
	svc application.AdminService
}

func (h *adminHandler) initialize(c *gin.Context) {
	var req initRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBadRequest(c, err)
		return
	}
	if len(req.Prices) != domain.NumOfRounds {
		abortWithBadRequest(
			c, fmt.Errorf("expected %d prices, got %d", domain.NumOfRounds, len(req.Prices)),
		)
		return
	}

	var prices [domain.NumOfRounds]*uint256.Int
	for i, p := range req.Prices {
		price, err := units.Parse(p, domain.QuoteDecimals)
		if err != nil {
			abortWithBadRequest(c, err)
			return
		}
		prices[i] = price
	}

	if err := h.svc.Initialize(c.Request.Context(), prices); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *adminHandler) addToWhitelist(c *gin.Context) {
	var req whitelistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBadRequest(c, err)
		return
	}
	participants := make([]common.Address, 0, len(req.Addresses))
	for _, a := range req.Addresses {
		addr, err := parseAddress(a)
		if err != nil {
			abortWithError(c, err)
			return
		}
		participants = append(participants, addr)
	}

	added, err := h.svc.AddToWhitelist(c.Request.Context(), participants...)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, whitelistResponse{added})
}

func (h *adminHandler) publishRoot(c *gin.Context) {
	var req merkleRootRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBadRequest(c, err)
		return
	}
	buf, err := hexutil.Decode(req.Root)
	if err != nil || len(buf) != common.HashLength {
		abortWithError(c, fmt.Errorf("%w: %q", domain.ErrInvalidRoot, req.Root))
		return
	}

	if err := h.svc.PublishRoot(c.Request.Context(), common.BytesToHash(buf)); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *adminHandler) collect(c *gin.Context) {
	receipt, err := h.svc.CollectUnsoldAndWithdraw(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sweepResponse{
		Unsold:   units.Format(receipt.Unsold, domain.TokenDecimals),
		Proceeds: units.Format(receipt.Proceeds, domain.QuoteDecimals),
	})
}

func (h *adminHandler) mintQuote(c *gin.Context) {
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBadRequest(c, err)
		return
	}
	to, err := parseAddress(req.To)
	if err != nil {
		abortWithError(c, err)
		return
	}
	amount, err := units.Parse(req.Amount, domain.QuoteDecimals)
	if err != nil {
		abortWithBadRequest(c, err)
		return
	}

	if err := h.svc.MintQuote(c.Request.Context(), to, amount); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *adminHandler) getStats(c *gin.Context) {
	stats, err := h.svc.GetStats(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStatsResponse(*stats))
}
