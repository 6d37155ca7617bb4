package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"attendance/internal/attendance"
	"attendance/internal/cloudinary"
	"attendance/internal/config"
	"attendance/internal/queue"
	"attendance/internal/store"
)

// Worker consumes photo archival messages: it pulls stashed photo bytes from
// Redis, uploads them to Cloudinary, and writes the resulting URL back onto
// the student or session row. Archival is best effort and never blocks the
// API request path.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendance:photos")
	}

	repo := attendance.NewRepository(db.Client)

	var cdn *cloudinary.Client
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cdn = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured; stashed photos will be dropped")
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != queue.TypeStudentPhoto && msg.Type != queue.TypeSessionPhoto {
			continue
		}

		id := msg.Body
		data, err := redisClient.FetchPhoto(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrPhotoExpired) {
				log.Printf("photo for %s %s expired before archival", msg.Type, id)
			} else {
				log.Printf("fetch photo for %s %s failed: %v", msg.Type, id, err)
			}
			continue
		}

		if cdn == nil {
			_ = redisClient.DropPhoto(ctx, id)
			continue
		}

		result, err := cdn.UploadBytes(data, id+".jpg")
		if err != nil {
			log.Printf("cloudinary upload failed for %s %s: %v", msg.Type, id, err)
			continue
		}

		switch msg.Type {
		case queue.TypeStudentPhoto:
			err = repo.UpdateStudentPhotoURL(ctx, id, result.SecureURL)
		case queue.TypeSessionPhoto:
			err = repo.UpdateSessionPhotoURL(ctx, id, result.SecureURL)
		}
		if err != nil {
			log.Printf("photo url update failed for %s %s: %v", msg.Type, id, err)
			continue
		}

		_ = redisClient.DropPhoto(ctx, id)
		log.Printf("archived %s %s -> %s", msg.Type, id, result.SecureURL)
	}

	log.Println("worker stopped")
}
