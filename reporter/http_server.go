// This is a http type of reporter.
// It fetches data from the internal ledger
// and publishes on the http routes.

package reporter

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zecbridge/bridge-go/common"
	"github.com/zecbridge/bridge-go/ledger"
)

const (
	ROUTE_HELLO      = "/hello"
	ROUTE_CHECKPOINT = "/checkpoint"
	ROUTE_WITHDRAWAL = "/withdrawal"
	ROUTE_PENDING    = "/pending"
	ROUTE_COUNTERS   = "/counters"
	ROUTE_AUDIT      = "/audit"
)

const defaultAuditLimit = 50

type HttpReporter struct {
	serverIP   string // listen ip
	serverPort string // listen port

	// upstream data source
	ledger *ledger.Ledger
}

func NewHttpReporter(serverIP string, serverPort string, l *ledger.Ledger) *HttpReporter {
	return &HttpReporter{
		serverIP:   serverIP,
		serverPort: serverPort,
		ledger:     l,
	}
}

// Hook up routes & handlers
func (h *HttpReporter) SetupRouter() *gin.Engine {
	router := gin.Default()

	// Define routes & handlers
	router.GET(ROUTE_HELLO, Hello)
	router.GET(ROUTE_CHECKPOINT, h.Checkpoint)
	router.GET(ROUTE_WITHDRAWAL, h.Withdrawal)
	router.GET(ROUTE_PENDING, h.Pending)
	router.GET(ROUTE_COUNTERS, h.Counters)
	router.GET(ROUTE_AUDIT, h.Audit)

	return router
}

// Hook up router & ip:port
func (h *HttpReporter) Run() {
	router := h.SetupRouter()
	address := h.serverIP + ":" + h.serverPort
	if err := router.Run(address); err != nil {
		panic(err)
	}
}

// Example route.
func Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "world",
	})
}

// Latest accepted checkpoint, or genesis=true if none yet.
func (h *HttpReporter) Checkpoint(c *gin.Context) {
	cp, ok, err := h.ledger.LatestCheckpoint()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"genesis": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cp.JSON()})
}

// Fetch a single withdrawal request by its id.
func (h *HttpReporter) Withdrawal(c *gin.Context) {
	rawId := c.Query("id")
	if rawId == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be provided"})
		return
	}
	id, err := strconv.ParseUint(rawId, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a decimal number"})
		return
	}

	w, ok, err := h.ledger.GetWithdrawalRequest(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no withdrawal found"})
		return
	}

	resp := gin.H{"data": w.JSON()}
	if addr, aerr := common.EncodeTransparentAddr(w.Destination, common.ZecMainNetP2PKH); aerr == nil {
		resp["destinationAddr"] = addr
	}
	c.JSON(http.StatusOK, resp)
}

// Count of withdrawal requests with the given amount and destination
// that have been escrowed and not yet released.
func (h *HttpReporter) Pending(c *gin.Context) {
	rawAmount := c.Query("amount")
	rawDest := c.Query("destination")
	if rawAmount == "" || rawDest == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount and destination must be provided"})
		return
	}

	amount, ok := new(big.Int).SetString(rawAmount, 10)
	if !ok || amount.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive decimal number"})
		return
	}
	// destination is either a transparent address or a hex pubkey hash
	var destination []byte
	if common.IsValidTransparentAddr(rawDest) {
		_, destination, _ = common.DecodeTransparentAddr(rawDest)
	} else {
		destination = common.HexStrToByteSlice(rawDest)
	}
	if len(destination) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "destination must be a t-addr or hex string"})
		return
	}

	count, err := h.ledger.PendingWithdrawalCount(amount, destination)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"key":     ledger.ComputeWithdrawalKey(amount, destination).Hex(),
		"pending": count,
	}})
}

// Running totals of escrowed, minted and burned value.
func (h *HttpReporter) Counters(c *gin.Context) {
	locked, err := h.ledger.TotalLocked()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	minted, err := h.ledger.TotalMinted()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	burned, err := h.ledger.TotalBurned()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"totalLocked": locked.String(),
		"totalMinted": minted.String(),
		"totalBurned": burned.String(),
	}})
}

// Most recent audit records, newest first.
func (h *HttpReporter) Audit(c *gin.Context) {
	limit := uint64(defaultAuditLimit)
	if rawLimit := c.Query("limit"); rawLimit != "" {
		parsed, err := strconv.ParseUint(rawLimit, 10, 64)
		if err != nil || parsed == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive decimal number"})
			return
		}
		limit = parsed
	}

	records, err := h.ledger.AuditLog(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}
