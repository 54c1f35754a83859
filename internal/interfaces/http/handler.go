package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmanzanog/market-aggregator/internal/application"
	"github.com/jmanzanog/market-aggregator/internal/domain"
)

// MarketDataService is the aggregator as seen by the handlers.
type MarketDataService interface {
	Search(ctx context.Context, query string) *application.SearchResponse
	SearchByISIN(ctx context.Context, isin string) *application.SearchResponse
	GetQuote(ctx context.Context, symbol string) *application.QuoteResponse
	GetHistoricalData(ctx context.Context, symbol string, period domain.Period) *application.HistoryResponse
	GetInstrumentDetails(ctx context.Context, symbol string) *application.DetailResponse
	HealthCheck(ctx context.Context) *application.HealthReport
}

type CatalogService interface {
	Bonds(f application.BondFilter) (*application.Page[domain.Bond], error)
	Certificates(f application.CertificateFilter) (*application.Page[domain.Certificate], error)
}

// HealthSnapshot serves the last background health report.
type HealthSnapshot interface {
	Latest() *application.HealthReport
}

type Handler struct {
	market  MarketDataService
	catalog CatalogService
	health  HealthSnapshot
}

// NewHandler builds the handler set. health may be nil when no background
// monitor runs.
func NewHandler(market MarketDataService, catalog CatalogService, health HealthSnapshot) *Handler {
	return &Handler{
		market:  market,
		catalog: catalog,
		health:  health,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9.\-^=:]{1,20}$`)

var errInvalidSymbol = errors.New("invalid symbol")

func validSymbol(raw string) (string, error) {
	symbol := strings.TrimSpace(raw)
	if symbol == "" {
		return "", domain.ErrEmptySymbol
	}
	if !symbolPattern.MatchString(symbol) {
		return "", errInvalidSymbol
	}
	return symbol, nil
}

func (h *Handler) Liveness(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.health != nil {
		if report := h.health.Latest(); report != nil {
			body["providers"] = report.Status
			body["checked_at"] = report.CheckedAt
		}
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) ProviderHealth(c *gin.Context) {
	var report *application.HealthReport
	if h.health != nil && c.Query("cached") == "true" {
		report = h.health.Latest()
	}
	if report == nil {
		report = h.market.HealthCheck(c.Request.Context())
	}

	status := http.StatusOK
	if !report.Healthy() {
		slog.ErrorContext(c.Request.Context(), "All providers failed health check")
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func (h *Handler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: domain.ErrEmptyQuery.Error()})
		return
	}

	resp := h.market.Search(c.Request.Context(), query)
	if !resp.Success {
		slog.ErrorContext(c.Request.Context(), "Search failed", "query", query, "error", resp.Error)
		c.JSON(http.StatusNotFound, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) SearchByISIN(c *gin.Context) {
	isin, err := domain.NormalizeISIN(c.Param("isin"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	resp := h.market.SearchByISIN(c.Request.Context(), isin)
	if !resp.Success {
		slog.ErrorContext(c.Request.Context(), "ISIN lookup failed", "isin", isin, "error", resp.Error)
		c.JSON(http.StatusNotFound, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetQuote(c *gin.Context) {
	symbol, err := validSymbol(c.Param("symbol"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	resp := h.market.GetQuote(c.Request.Context(), symbol)
	if !resp.Success {
		slog.ErrorContext(c.Request.Context(), "Failed to get quote", "symbol", symbol, "error", resp.Error)
		c.JSON(http.StatusNotFound, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetHistory(c *gin.Context) {
	symbol, err := validSymbol(c.Param("symbol"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	period, err := domain.ParsePeriod(c.Query("period"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	resp := h.market.GetHistoricalData(c.Request.Context(), symbol, period)
	if !resp.Success {
		slog.ErrorContext(c.Request.Context(), "Failed to get history", "symbol", symbol, "period", period, "error", resp.Error)
		c.JSON(http.StatusNotFound, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetInstrument(c *gin.Context) {
	symbol, err := validSymbol(c.Param("symbol"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.market.GetInstrumentDetails(c.Request.Context(), symbol))
}

func (h *Handler) ListBonds(c *gin.Context) {
	f, err := bondFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	page, err := h.catalog.Bonds(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) ListCertificates(c *gin.Context) {
	f, err := certificateFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	page, err := h.catalog.Certificates(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, page)
}

func bondFilter(c *gin.Context) (application.BondFilter, error) {
	f := application.BondFilter{
		Type:     c.Query("type"),
		Currency: c.Query("currency"),
		Country:  c.Query("country"),
		Issuer:   c.Query("issuer"),
		Sort:     c.Query("sort"),
		Order:    c.Query("order"),
	}
	var err error
	if f.MinYield, err = floatParam(c, "min_yield"); err != nil {
		return f, err
	}
	if f.MaturityFrom, err = dateParam(c, "maturity_from"); err != nil {
		return f, err
	}
	if f.MaturityTo, err = dateParam(c, "maturity_to"); err != nil {
		return f, err
	}
	f.Limit, f.Offset, err = pageParams(c)
	return f, err
}

func certificateFilter(c *gin.Context) (application.CertificateFilter, error) {
	f := application.CertificateFilter{
		Type:       c.Query("type"),
		Issuer:     c.Query("issuer"),
		Underlying: c.Query("underlying"),
		Currency:   c.Query("currency"),
		Sort:       c.Query("sort"),
		Order:      c.Query("order"),
	}
	var err error
	if f.MaturityFrom, err = dateParam(c, "maturity_from"); err != nil {
		return f, err
	}
	if f.MaturityTo, err = dateParam(c, "maturity_to"); err != nil {
		return f, err
	}
	f.Limit, f.Offset, err = pageParams(c)
	return f, err
}

func floatParam(c *gin.Context, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New("invalid " + name + ": " + raw)
	}
	return &v, nil
}

func dateParam(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return nil, errors.New("invalid " + name + ": expected YYYY-MM-DD")
	}
	return &t, nil
}

func pageParams(c *gin.Context) (int, int, error) {
	limit, offset := 0, 0
	var err error
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			return 0, 0, errors.New("invalid limit: " + raw)
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil || offset < 0 {
			return 0, 0, errors.New("invalid offset: " + raw)
		}
	}
	return limit, offset, nil
}
