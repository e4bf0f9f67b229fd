package httpservice

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

var errStatusCodes = []struct {
	err  error
	code int
}{
	{domain.ErrInvalidPrice, http.StatusBadRequest},
	{domain.ErrInvalidAmount, http.StatusBadRequest},
	{domain.ErrInvalidAddress, http.StatusBadRequest},
	{domain.ErrInvalidRoot, http.StatusBadRequest},
	{domain.ErrUnknownRound, http.StatusBadRequest},
	{errInvalidSignature, http.StatusUnauthorized},
	{errExpiredSignature, http.StatusUnauthorized},
	{errReplayedSignature, http.StatusUnauthorized},
	{domain.ErrNotIssuer, http.StatusForbidden},
	{domain.ErrBuyNotAllowed, http.StatusForbidden},
	{domain.ErrSaleNotFound, http.StatusNotFound},
	{domain.ErrAlreadyInitialized, http.StatusConflict},
	{domain.ErrAlreadySwept, http.StatusConflict},
	{domain.ErrWhitelistClosed, http.StatusConflict},
	{domain.ErrRoundCapExceeded, http.StatusConflict},
	{domain.ErrInsufficientBalance, http.StatusConflict},
	{domain.ErrInsufficientFunds, http.StatusConflict},
	{domain.ErrInsufficientAllowance, http.StatusConflict},
	{domain.ErrSaleNotActive, http.StatusPreconditionFailed},
	{domain.ErrRoundNotClosable, http.StatusPreconditionFailed},
	{domain.ErrSaleNotEnded, http.StatusPreconditionFailed},
	{domain.ErrTransferLocked, http.StatusLocked},
}

func statusCode(err error) int {
	for _, e := range errStatusCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		log.WithError(err).Errorf("%s %s failed", c.Request.Method, c.FullPath())
	}
	c.AbortWithStatusJSON(code, errorResponse{err.Error()})
}

func abortWithBadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{err.Error()})
}
