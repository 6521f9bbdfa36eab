package handler

import (
	"net/http"

	"github.com/RovierrHQ/rovierr/internal/ledger"
	"github.com/RovierrHQ/rovierr/internal/util"

	"github.com/gin-gonic/gin"
)

// ledgerError translates a typed ledger error into the uniform envelope.
// The error kind is stable contract surface, carried alongside the message.
func ledgerError(c *gin.Context, err error) {
	kind := ledger.KindOf(err)

	status := http.StatusInternalServerError
	code := util.CodeServerErr
	switch kind {
	case ledger.KindDoubleEntryMismatch, ledger.KindInvalidAmount,
		ledger.KindInvalidAccount, ledger.KindInvalidAccounts,
		ledger.KindInvalidOwner, ledger.KindInvalidClub:
		status = http.StatusBadRequest
		code = util.CodeInvalidParam
	case ledger.KindTransactionNotFound:
		status = http.StatusNotFound
		code = util.CodeNotFound
	case ledger.KindInvalidState:
		status = http.StatusConflict
		code = util.CodeConflict
	}

	c.JSON(status, gin.H{
		"code":    code,
		"kind":    string(kind),
		"message": err.Error(),
	})
}
