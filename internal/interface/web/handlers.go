package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ArkLabsHQ/lnwatch/internal/core/application"
	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/ArkLabsHQ/lnwatch/internal/interface/web/types"
	"github.com/ArkLabsHQ/lnwatch/utils"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

const qrCodeSize = 256

var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, application.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrNotInitialized),
		errors.Is(err, application.ErrAlreadyConnected),
		errors.Is(err, application.ErrTickInFlight):
		return http.StatusConflict
	case errors.Is(err, application.ErrEmptyResult),
		errors.Is(err, application.ErrConnectionFailed):
		return http.StatusBadGateway
	case errors.Is(err, application.ErrNotSupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	// nolint:errcheck
	c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), types.ErrorResponse{Error: err.Error()})
}

func badRequest(c *gin.Context, format string, args ...any) {
	fail(c, fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...)))
}

func (s *service) connect(c *gin.Context) {
	var req types.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "%s", err)
		return
	}

	var network domain.Network
	if req.Network != "" {
		n, err := domain.ParseNetwork(req.Network)
		if err != nil {
			badRequest(c, "%s", err)
			return
		}
		network = n
	}

	if err := s.session.Connect(c.Request.Context(), domain.ConnectionConfig{
		Mnemonic:   req.Mnemonic,
		ApiKey:     req.ApiKey,
		Network:    network,
		StorageDir: req.StorageDir,
	}); err != nil {
		fail(c, err)
		return
	}
	if s.exporter != nil {
		s.exporter.SetBalance(s.session.LastKnownBalance())
	}

	c.JSON(http.StatusOK, s.currentStatus())
}

func (s *service) disconnect(c *gin.Context) {
	s.session.Disconnect()
	c.JSON(http.StatusOK, s.currentStatus())
}

func (s *service) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.currentStatus())
}

func (s *service) currentStatus() types.Status {
	return types.Status{
		Connected:        s.session.IsConnected(),
		Monitoring:       s.session.IsMonitoring(),
		LastKnownBalance: s.session.LastKnownBalance(),
		CheckInterval:    s.session.MonitorOptions().CheckInterval.String(),
		Version:          s.session.BuildInfo.Version,
	}
}

func (s *service) balance(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"balance": s.session.Balance(c.Request.Context())})
}

func (s *service) createInvoice(c *gin.Context) {
	var req types.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "%s", err)
		return
	}

	invoice, err := s.session.CreateInvoice(c.Request.Context(), req.Amount, req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": invoice, "amount": req.Amount})
}

func (s *service) invoiceQR(c *gin.Context) {
	invoice := c.Query("invoice")
	if !utils.IsValidInvoice(invoice) {
		badRequest(c, "invalid invoice")
		return
	}

	png, err := qrcode.Encode(invoice, qrcode.Medium, qrCodeSize)
	if err != nil {
		fail(c, fmt.Errorf("failed to encode qr code: %w", err))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *service) pay(c *gin.Context) {
	var req types.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "%s", err)
		return
	}

	timeout := s.cfg.PayTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	result, err := s.session.Pay(c.Request.Context(), req.Invoice, timeout)
	if err != nil {
		// nolint:errcheck
		c.Error(err)
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error(), "result": result})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *service) address(c *gin.Context) {
	addr, err := s.session.Address(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr})
}

func (s *service) sparkAddress(c *gin.Context) {
	addr, err := s.session.SparkAddress(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr})
}

func (s *service) startMonitoring(c *gin.Context) {
	if err := s.session.StartMonitoring(); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.currentStatus())
}

func (s *service) stopMonitoring(c *gin.Context) {
	s.session.StopMonitoring()
	c.JSON(http.StatusOK, s.currentStatus())
}

func (s *service) checkNow(c *gin.Context) {
	if err := s.session.CheckNow(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.currentStatus())
}

func (s *service) syncWallet(c *gin.Context) {
	if err := s.session.SyncWallet(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *service) listPayments(c *gin.Context) {
	offset, err := intQuery(c, "offset")
	if err != nil {
		badRequest(c, "%s", err)
		return
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		badRequest(c, "%s", err)
		return
	}

	payments, err := s.session.ListPayments(c.Request.Context(), offset, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": toPayments(payments)})
}

func (s *service) listDeposits(c *gin.Context) {
	deposits, err := s.session.ListUnclaimedDeposits(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if deposits == nil {
		deposits = []domain.Deposit{}
	}
	c.JSON(http.StatusOK, gin.H{"deposits": deposits})
}

func (s *service) claimDeposit(c *gin.Context) {
	var req types.ClaimDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "%s", err)
		return
	}

	txid, err := s.session.ClaimDeposit(c.Request.Context(), req.Txid, req.Vout, req.MaxFee)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"txid": txid})
}

func (s *service) listEvents(c *gin.Context) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		badRequest(c, "%s", err)
		return
	}

	var events []domain.Event
	if eventType := c.Query("type"); eventType != "" {
		events, err = s.journal.EventsByType(c.Request.Context(), domain.EventType(eventType))
		if err != nil {
			badRequest(c, "%s", err)
			return
		}
		if limit > 0 && len(events) > limit {
			events = events[len(events)-limit:]
		}
	} else {
		events, err = s.journal.LatestEvents(c.Request.Context(), limit)
		if err != nil {
			fail(c, err)
			return
		}
	}
	if events == nil {
		events = []domain.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *service) recentEvents(c *gin.Context) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		badRequest(c, "%s", err)
		return
	}

	events, err := s.history.Recent(c.Request.Context(), int64(limit))
	if err != nil {
		fail(c, err)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *service) journalPayments(c *gin.Context) {
	payments, err := s.journal.Payments(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": toPayments(payments)})
}

func (s *service) eventStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	log.Debugf("event stream client connected: %s", c.ClientIP())
	client := s.stream.add(conn)

	go func() {
		defer func() {
			s.stream.remove(client)
			log.Debugf("event stream client disconnected: %s", c.ClientIP())
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func intQuery(c *gin.Context, key string) (int, error) {
	value := c.Query(key)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, value)
	}
	return n, nil
}

func toPayments(payments []domain.Payment) []types.Payment {
	list := make([]types.Payment, 0, len(payments))
	for _, p := range payments {
		list = append(list, types.Payment{
			Id:          p.Id,
			Kind:        p.Type.String(),
			Status:      p.Status.String(),
			Amount:      p.Amount,
			Fee:         p.Fee,
			Timestamp:   p.Timestamp,
			Invoice:     p.Invoice,
			Description: p.Description,
		})
	}
	return list
}
