package httpservice

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/mmna-launch/crowdsale/internal/core/application"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	"github.com/mmna-launch/crowdsale/pkg/merkle"
	"github.com/mmna-launch/crowdsale/pkg/units"
)

type handler struct {
	svc      application.Service
	verifier *signatureVerifier
	upgrader websocket.Upgrader
}

func newHandler(svc application.Service, c clock.Clock) *handler {
	return &handler{
		svc:      svc,
		verifier: newSignatureVerifier(c),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *handler) getInfo(c *gin.Context) {
	info, err := h.svc.GetInfo(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInfoResponse(*info))
}

func (h *handler) getRound(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("round"))
	if err != nil {
		abortWithBadRequest(c, fmt.Errorf("invalid round %q", c.Param("round")))
		return
	}
	round, err := domain.ParseRound(n)
	if err != nil {
		abortWithError(c, err)
		return
	}

	data, err := h.svc.GetRoundData(c.Request.Context(), round)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRoundResponse(*data))
}

func (h *handler) getBalance(c *gin.Context) {
	addr, err := parseAddress(c.Param("address"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	balance, err := h.svc.BalanceOf(c.Request.Context(), addr)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{
		Address: addr.Hex(),
		Balance: units.Format(balance, domain.TokenDecimals),
	})
}

func (h *handler) checkEligibility(c *gin.Context) {
	var req eligibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBadRequest(c, err)
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		abortWithError(c, err)
		return
	}
	proof, err := merkle.ParseProof(req.Proof)
	if err != nil {
		abortWithBadRequest(c, fmt.Errorf("invalid proof: %s", err))
		return
	}

	eligible, err := h.svc.CanBuy(c.Request.Context(), addr, proof)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, eligibilityResponse{eligible})
}

func (h *handler) buy(c *gin.Context) {
	var req buyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBadRequest(c, err)
		return
	}
	buyer, err := parseAddress(req.Buyer)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := h.verifier.verify(buyer, req.message(), req.signedRequest); err != nil {
		abortWithError(c, err)
		return
	}
	proof, err := merkle.ParseProof(req.Proof)
	if err != nil {
		abortWithBadRequest(c, fmt.Errorf("invalid proof: %s", err))
		return
	}

	receipt, err := h.svc.Buy(c.Request.Context(), buyer, req.Quantity, proof)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReceiptResponse(*receipt))
}

func (h *handler) switchRound(c *gin.Context) {
	round, err := h.svc.SwitchRound(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, switchRoundResponse{int(round), round.String()})
}

func (h *handler) transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBadRequest(c, err)
		return
	}
	from, err := parseAddress(req.From)
	if err != nil {
		abortWithError(c, err)
		return
	}
	to, err := parseAddress(req.To)
	if err != nil {
		abortWithError(c, err)
		return
	}
	amount, err := units.Parse(req.Amount, domain.TokenDecimals)
	if err != nil {
		abortWithBadRequest(c, err)
		return
	}
	if err := h.verifier.verify(from, req.message(), req.signedRequest); err != nil {
		abortWithError(c, err)
		return
	}

	if err := h.svc.Transfer(c.Request.Context(), from, to, amount); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) getPurchases(c *gin.Context) {
	var round domain.Round
	if r := c.Query("round"); r != "" {
		n, err := strconv.Atoi(r)
		if err != nil {
			abortWithBadRequest(c, fmt.Errorf("invalid round %q", r))
			return
		}
		if round, err = domain.ParseRound(n); err != nil {
			abortWithError(c, err)
			return
		}
	}

	purchases, err := h.svc.GetPurchases(c.Request.Context(), c.Query("buyer"), round)
	if err != nil {
		abortWithError(c, err)
		return
	}
	resp := make([]purchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		resp = append(resp, toPurchaseResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"purchases": resp})
}

func (h *handler) approveQuote(c *gin.Context) {
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBadRequest(c, err)
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		abortWithError(c, err)
		return
	}
	amount, err := units.Parse(req.Amount, domain.QuoteDecimals)
	if err != nil {
		abortWithBadRequest(c, err)
		return
	}
	if err := h.verifier.verify(owner, req.message(), req.signedRequest); err != nil {
		abortWithError(c, err)
		return
	}

	if err := h.svc.ApproveQuote(c.Request.Context(), owner, amount); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) getQuoteBalance(c *gin.Context) {
	addr, err := parseAddress(c.Param("address"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	balance, err := h.svc.GetQuoteBalance(c.Request.Context(), addr)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, quoteBalanceResponse{
		Address:   addr.Hex(),
		Balance:   units.Format(balance.Balance, domain.QuoteDecimals),
		Allowance: units.Format(balance.Allowance, domain.QuoteDecimals),
	})
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}
