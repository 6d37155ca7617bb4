package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attendance/internal/attendance"
	"attendance/internal/auth"
	"attendance/internal/config"
	"attendance/internal/faceclient"
	"attendance/internal/httpmiddleware"
	"attendance/internal/queue"
	"attendance/internal/store"
	"attendance/internal/teacher"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
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
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	face := faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip)
	if !cfg.FaceSkip {
		if err := face.Health(context.Background()); err != nil {
			log.Printf("warning: face service not reachable: %v", err)
		} else {
			log.Println("Face service connected:", cfg.FaceServiceURL)
		}
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendance:photos")
	}

	repo := attendance.NewRepository(db.Client)
	svc := attendance.NewService(face, repo, repo, cfg.MatchThreshold)

	teacherRepo := teacher.NewRepository(db.Client)
	accounts := teacher.NewService(teacherRepo)

	// The worker does the actual uploads; the API only stashes photos.
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured, photo archival disabled")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/teacher/signup", func(c *gin.Context) {
		var req struct {
			Email    string `form:"email" binding:"required,email"`
			Password string `form:"password" binding:"required"`
		}
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		t, err := accounts.SignUp(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "signup failed: " + err.Error()})
			return
		}

		tokens, err := auth.Issue(t.ID, "teacher", cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message":       "Teacher registered successfully",
			"teacher":       t,
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	r.POST("/teacher/login", func(c *gin.Context) {
		var req struct {
			Email    string `form:"email" binding:"required"`
			Password string `form:"password" binding:"required"`
		}
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		t, err := accounts.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, teacher.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "login failed"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		tokens, err := auth.Issue(t.ID, "teacher", cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":       "Login successful",
			"teacher":       t,
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	authGroup := r.Group("", auth.TeacherAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	authGroup.POST("/register-student", func(c *gin.Context) {
		var req struct {
			Name       string `form:"name" binding:"required"`
			RollNumber string `form:"roll_number" binding:"required"`
		}
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		image, ok := readImage(c)
		if !ok {
			return
		}

		st, err := svc.RegisterStudent(c.Request.Context(), req.Name, req.RollNumber, image)
		if err != nil {
			writeWorkflowError(c, err)
			return
		}

		archivePhoto(c.Request.Context(), redisClient, q, cfg.PhotoStashTTL, queue.TypeStudentPhoto, st.ID, image)

		c.JSON(http.StatusCreated, gin.H{
			"message":    "Student registered successfully",
			"student_id": st.ID,
			"student":    st,
		})
	})

	authGroup.POST("/take-attendance", func(c *gin.Context) {
		var req struct {
			Subject   string `form:"subject" binding:"required"`
			TeacherID string `form:"teacher_id"`
		}
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		claims := mustClaims(c)
		if req.TeacherID == "" {
			req.TeacherID = claims.Subject
		} else if claims.Subject != "" && claims.Subject != req.TeacherID {
			c.JSON(http.StatusForbidden, gin.H{"error": "teacher mismatch"})
			return
		}

		image, ok := readImage(c)
		if !ok {
			return
		}

		result, err := svc.TakeAttendance(c.Request.Context(), req.Subject, req.TeacherID, image)
		if err != nil {
			writeWorkflowError(c, err)
			return
		}

		archivePhoto(c.Request.Context(), redisClient, q, cfg.PhotoStashTTL, queue.TypeSessionPhoto, result.SessionID, image)

		c.JSON(http.StatusOK, gin.H{
			"message":       "Attendance marked",
			"session_id":    result.SessionID,
			"present_count": result.PresentCount,
		})
	})

	authGroup.GET("/students", func(c *gin.Context) {
		students, err := repo.ListStudents(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if students == nil {
			students = []attendance.Student{}
		}
		c.JSON(http.StatusOK, students)
	})

	authGroup.GET("/attendance-history", func(c *gin.Context) {
		claims := mustClaims(c)
		sessions, err := repo.ListSessions(c.Request.Context(), claims.Subject)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if sessions == nil {
			sessions = []attendance.SessionSummary{}
		}
		c.JSON(http.StatusOK, sessions)
	})

	authGroup.GET("/attendance-history/:id", func(c *gin.Context) {
		records, err := repo.SessionRecords(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if records == nil {
			records = []attendance.Record{}
		}
		c.JSON(http.StatusOK, records)
	})

	// Graceful shutdown
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

// readImage pulls the multipart "image" file into memory, writing the error
// response itself when the field is missing or unreadable.
func readImage(c *gin.Context) ([]byte, bool) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return nil, false
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		return nil, false
	}
	return data, true
}

// mustClaims fetches the claims set by the auth middleware.
func mustClaims(c *gin.Context) auth.Claims {
	claimsAny, _ := c.Get("claims")
	claims, _ := claimsAny.(auth.Claims)
	return claims
}

// writeWorkflowError maps the orchestrator's error kinds onto HTTP statuses:
// validation failures are the caller's fault, everything else is a 500 with
// the underlying message.
func writeWorkflowError(c *gin.Context, err error) {
	if attendance.IsValidation(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// archivePhoto stashes the photo bytes and notifies the worker. Best effort:
// the synchronous request already succeeded, so failures only log.
func archivePhoto(ctx context.Context, r *store.Redis, q queue.Queue, ttl time.Duration, msgType, id string, image []byte) {
	if err := r.StashPhoto(ctx, id, image, ttl); err != nil {
		log.Printf("photo stash failed for %s %s: %v", msgType, id, err)
		return
	}
	if err := q.Publish(ctx, queue.Message{Type: msgType, Body: id}); err != nil {
		log.Printf("queue publish failed for %s %s: %v", msgType, id, err)
	}
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
