package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const (
	dayLayout            = "2006-01-02"
	defaultRangeDays     = 365
	defaultDashboardDays = 30
)

var log = logger.GetOrCreate("api")

// ArgsWebServer defines the web server arguments
type ArgsWebServer struct {
	ListenAddress string
	Storage       Storage
}

// server exposes the stored analytics read-only over HTTP for dashboards
type server struct {
	router     *gin.Engine
	httpServer *http.Server
	storage    Storage
	listenAddr string
	wg         sync.WaitGroup
}

// NewServer initializes the Gin engine and mounts all routes
func NewServer(args ArgsWebServer) (*server, error) {
	if check.IfNil(args.Storage) {
		return nil, errors.New("nil storage")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &server{
		router:     router,
		storage:    args.Storage,
		listenAddr: args.ListenAddress,
	}

	s.setupRoutes()

	return s, nil
}

func (s *server) setupRoutes() {
	repos := s.router.Group("/api/repos/:owner/:repo")

	repos.GET("/summary", s.handleSummary)
	repos.GET("/daily", s.handleDaily)
	repos.GET("/monthly/:year", s.handleMonthly)
	repos.GET("/referrers", s.handleReferrers)
	repos.GET("/dashboard", s.handleDashboard)
	repos.GET("/export.csv", s.handleExportCSV)
}

// Start listens and serves connections
func (s *server) Start() {
	s.httpServer = &http.Server{
		Addr:    s.listenAddr,
		Handler: s.router,
	}

	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		log.Error("failed to listen", "error", err)
		return
	}
	s.listenAddr = ln.Addr().String()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Info("starting HTTP server", "address", s.listenAddr)

		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
		}
	}()
}

// Address returns the actual listen address
func (s *server) Address() string {
	return s.listenAddr
}

// Close gracefully stops the server
func (s *server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		err := s.httpServer.Shutdown(ctx)
		if err != nil {
			return err
		}
	}
	s.wg.Wait()

	return nil
}

// --- Handlers ---

func (s *server) handleSummary(c *gin.Context) {
	start, end, err := parseRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := s.storage.SummaryStatistics(c.Param("owner"), c.Param("repo"), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *server) handleDaily(c *gin.Context) {
	start, end, err := parseRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	metrics, err := s.storage.GetDailyRange(c.Param("owner"), c.Param("repo"), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"daily": metrics})
}

func (s *server) handleMonthly(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}

	aggregates, err := s.storage.MonthlyAggregates(c.Param("owner"), c.Param("repo"), year)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"monthly": aggregates})
}

func (s *server) handleReferrers(c *gin.Context) {
	referrers, err := s.storage.GetReferrers(c.Param("owner"), c.Param("repo"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"referrers": referrers})
}

func (s *server) handleDashboard(c *gin.Context) {
	days := defaultDashboardDays
	daysParam := c.Query("days")
	if len(daysParam) > 0 {
		parsed, err := strconv.Atoi(daysParam)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days parameter"})
			return
		}
		days = parsed
	}

	data, err := s.storage.DashboardData(c.Param("owner"), c.Param("repo"), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, data)
}

func (s *server) handleExportCSV(c *gin.Context) {
	start, end, err := parseRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	csvData, err := s.storage.ExportCSV(c.Param("owner"), c.Param("repo"), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=traffic.csv")
	c.Data(http.StatusOK, "text/csv", []byte(csvData))
}

// parseRange reads the optional start/end query parameters (YYYY-MM-DD) and
// defaults to the trailing year ending today
func parseRange(c *gin.Context) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -defaultRangeDays)

	var err error
	if startParam := c.Query("start"); len(startParam) > 0 {
		start, err = time.Parse(dayLayout, startParam)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid start date, expected YYYY-MM-DD")
		}
	}
	if endParam := c.Query("end"); len(endParam) > 0 {
		end, err = time.Parse(dayLayout, endParam)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid end date, expected YYYY-MM-DD")
		}
	}

	return start, end, nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (s *server) IsInterfaceNil() bool {
	return s == nil
}
