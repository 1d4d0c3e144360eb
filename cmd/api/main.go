package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"schoolsync/internal/attendance"
	"schoolsync/internal/auth"
	"schoolsync/internal/config"
	"schoolsync/internal/finance"
	"schoolsync/internal/httpmiddleware"
	"schoolsync/internal/queue"
	"schoolsync/internal/realtime"
	"schoolsync/internal/record"
	"schoolsync/internal/results"
	"schoolsync/internal/roster"
	"schoolsync/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()
	if db != nil {
		if err := db.EnsureSchema(context.Background()); err != nil {
			log.Printf("warning: schema ensure failed: %v", err)
		}
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	docs := store.New(db, redisClient)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "schoolsync:jobs")
	}

	att := attendance.NewService(docs, q)
	res := results.NewService(docs)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db != nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	// Guardian accounts authenticate with the external identity provider;
	// this endpoint only exchanges the verified contact identifiers for API
	// tokens, so the matcher can resolve children on later calls.
	r.POST("/v1/guardians/login", func(c *gin.Context) {
		var req struct {
			Phone string `json:"phone"`
			Email string `json:"email"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Phone == "" && req.Email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "phone or email required"})
			return
		}
		subject := req.Phone
		if subject == "" {
			subject = req.Email
		}
		issueTokens(c, cfg, subject, auth.RoleGuardian, req.Phone, req.Email, docs)
	})

	r.POST("/v1/staff/login", func(c *gin.Context) {
		var req struct {
			StaffID string `json:"staff_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		issueTokens(c, cfg, req.StaffID, auth.RoleStaff, "", "", docs)
	})

	guardianGroup := r.Group("/v1/guardians", auth.Require(cfg.JWTSigningKey, cfg.JWTIssuer, auth.RoleGuardian))

	guardianGroup.GET("/children", func(c *gin.Context) {
		claims := auth.FromContext(c)
		children, err := findChildren(c.Request.Context(), docs, claims)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"children": children})
	})

	anyRole := r.Group("/v1", auth.Require(cfg.JWTSigningKey, cfg.JWTIssuer))

	anyRole.GET("/students/:id/performance", func(c *gin.Context) {
		studentID := c.Param("id")
		claims := auth.FromContext(c)
		if claims.Role == auth.RoleGuardian {
			ok, err := guardianOwns(c.Request.Context(), docs, claims, studentID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if !ok {
				c.JSON(http.StatusForbidden, gin.H{"error": "not your student"})
				return
			}
		}
		summary, err := res.StudentSummary(c.Request.Context(), studentID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	})

	staffGroup := r.Group("/v1", auth.Require(cfg.JWTSigningKey, cfg.JWTIssuer, auth.RoleStaff))

	staffGroup.POST("/attendance", func(c *gin.Context) {
		var req struct {
			StudentID string `json:"student_id" binding:"required"`
			Date      string `json:"date" binding:"required"`
			Status    string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claims := auth.FromContext(c)
		entry, err := att.Mark(c.Request.Context(), req.StudentID, req.Date, req.Status, claims.Subject)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"entry": entry})
	})

	staffGroup.GET("/attendance/summary", func(c *gin.Context) {
		date := c.Query("date")
		if date == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date required"})
			return
		}
		summary, entries, err := att.DaySummary(c.Request.Context(), date)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"summary": summary, "entries": entries})
	})

	staffGroup.POST("/exam-results", func(c *gin.Context) {
		var req struct {
			StudentID string  `json:"student_id" binding:"required"`
			ExamID    string  `json:"exam_id"`
			ExamName  string  `json:"exam_name"`
			Subject   string  `json:"subject" binding:"required"`
			Obtained  float64 `json:"obtained_marks"`
			Total     float64 `json:"total_marks"`
			IsAbsent  bool    `json:"is_absent"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := res.Enter(c.Request.Context(), results.EntryInput{
			StudentID: req.StudentID,
			ExamID:    req.ExamID,
			ExamName:  req.ExamName,
			Subject:   req.Subject,
			Obtained:  req.Obtained,
			Total:     req.Total,
			IsAbsent:  req.IsAbsent,
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"result": result})
	})

	staffGroup.GET("/finance/summary", func(c *gin.Context) {
		recs, err := docs.GetAll(c.Request.Context(), "transactions")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		txs := make([]record.Transaction, 0, len(recs))
		for _, r := range recs {
			txs = append(txs, record.TransactionFrom(r))
		}
		c.JSON(http.StatusOK, finance.Summarize(txs))
	})

	staffGroup.POST("/reports", func(c *gin.Context) {
		var req struct {
			StudentID string `json:"student_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := q.Publish(c.Request.Context(), queue.Job{Type: queue.JobReport, StudentID: req.StudentID}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"queued": true})
	})

	// Live attendance summary for one date. The ordered query needs a
	// composite index on the backing store; the adapter degrades to
	// client-side filtering when it is missing.
	anyRole.GET("/attendance/stream", func(c *gin.Context) {
		date := c.Query("date")
		if date == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date required"})
			return
		}
		streamAttendance(c, docs, date)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

func issueTokens(c *gin.Context, cfg config.App, subject, role, phone, email string, docs *store.Store) {
	tokens, err := auth.Issue(subject, role, phone, email, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	_, _ = docs.Insert(c.Request.Context(), "refresh_tokens", record.Record{
		"subject":   subject,
		"token":     tokens.RefreshToken,
		"expiresAt": tokens.RefreshExp.Format(time.RFC3339),
	})
	c.JSON(http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

func findChildren(ctx context.Context, docs *store.Store, claims auth.Claims) ([]record.Student, error) {
	recs, err := docs.GetAll(ctx, "students")
	if err != nil {
		return nil, err
	}
	students := make([]record.Student, 0, len(recs))
	for _, r := range recs {
		students = append(students, record.StudentFrom(r))
	}
	return roster.FindChildren(claims.Email, claims.Phone, students), nil
}

func guardianOwns(ctx context.Context, docs *store.Store, claims auth.Claims, studentID string) (bool, error) {
	children, err := findChildren(ctx, docs, claims)
	if err != nil {
		return false, err
	}
	for _, child := range children {
		if child.ID == studentID || child.UID == studentID {
			return true, nil
		}
	}
	return false, nil
}

// streamAttendance pushes a recomputed day summary over SSE on every change
// to the attendance collection. The subscription is cancelled when the
// client disconnects.
func streamAttendance(c *gin.Context, docs *store.Store, date string) {
	updates := make(chan attendance.Summary, 8)
	errs := make(chan error, 1)

	cancel := realtime.Subscribe(c.Request.Context(), docs, store.Query{
		Collection: attendance.Collection,
		Predicates: []store.Predicate{{Field: "date", Op: "==", Value: date}},
		Order:      &store.OrderBy{Field: "timestamp"},
	}, func(recs []record.Record) {
		entries := make([]record.AttendanceEntry, 0, len(recs))
		for _, r := range recs {
			entries = append(entries, record.AttendanceFrom(r))
		}
		select {
		case updates <- attendance.Summarize(entries):
		default: // client is slow; drop, the next change resends the full view
		}
	}, func(err error) {
		select {
		case errs <- err:
		default:
		}
	})
	defer cancel()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case summary := <-updates:
			c.SSEvent("summary", summary)
			return true
		case err := <-errs:
			c.SSEvent("error", gin.H{"error": err.Error()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
