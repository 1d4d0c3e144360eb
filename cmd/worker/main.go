package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"schoolsync/internal/config"
	"schoolsync/internal/metrics"
	"schoolsync/internal/notify"
	"schoolsync/internal/queue"
	"schoolsync/internal/record"
	"schoolsync/internal/results"
	"schoolsync/internal/roster"
	"schoolsync/internal/store"
)

// Worker consumes queue jobs: absence alerts to guardians and performance
// report builds.
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
	if err := db.EnsureSchema(ctx); err != nil {
		log.Printf("warning: schema ensure failed: %v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	docs := store.New(db, redisClient)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "schoolsync:jobs")
	}

	gateway := notify.New(cfg.NotifyURL, cfg.NotifySkip)
	res := results.NewService(docs)

	if !cfg.NotifySkip {
		if err := gateway.Health(ctx); err != nil {
			log.Printf("WARNING: notify gateway not available: %v", err)
		} else {
			log.Println("notify gateway connected")
		}
	}

	jobs, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for jobs...")
	for job := range jobs {
		switch job.Type {
		case queue.JobAbsenceAlert:
			handleAbsence(ctx, docs, gateway, job)
		case queue.JobReport:
			handleReport(ctx, docs, res, job)
		default:
			log.Printf("skipping unknown job type %q", job.Type)
		}
	}

	log.Println("worker stopped")
}

// handleAbsence looks up the student's guardian phone (guardian, father,
// mother fallback order) and sends the absence SMS. Students with no phone
// on file are unreachable; the job is dropped with a log line.
func handleAbsence(ctx context.Context, docs *store.Store, gateway *notify.Client, job queue.Job) {
	student, ok := findStudent(ctx, docs, job.StudentID)
	if !ok {
		log.Printf("absence alert: student %s not found", job.StudentID)
		return
	}
	phone := roster.ContactPhone(student)
	if phone == "" {
		log.Printf("absence alert: student %s has no guardian phone", job.StudentID)
		return
	}
	name := student.Name
	if name == "" {
		name = job.StudentID
	}
	msg := name + " was marked absent on " + job.Date + "."
	if _, err := gateway.Send(ctx, phone, msg); err != nil {
		log.Printf("absence alert for %s failed: %v", job.StudentID, err)
		return
	}
	metrics.NotificationsSent.Inc()
	log.Printf("absence alert sent for %s", job.StudentID)
}

// handleReport recomputes the student's performance summary and stores it
// in the reports collection, replacing any previous report.
func handleReport(ctx context.Context, docs *store.Store, res *results.Service, job queue.Job) {
	summary, err := res.StudentSummary(ctx, job.StudentID)
	if err != nil {
		log.Printf("report for %s failed: %v", job.StudentID, err)
		return
	}
	doc := record.Record{"studentId": job.StudentID}
	data, err := json.Marshal(summary)
	if err == nil {
		var fields map[string]any
		if json.Unmarshal(data, &fields) == nil {
			for k, v := range fields {
				doc[k] = v
			}
		}
	}
	if err := docs.Put(ctx, "reports", job.StudentID, doc); err != nil {
		log.Printf("report store for %s failed: %v", job.StudentID, err)
		return
	}
	log.Printf("report stored for %s", job.StudentID)
}

func findStudent(ctx context.Context, docs *store.Store, studentID string) (record.Student, bool) {
	recs, err := docs.Query(ctx, store.Query{
		Collection: "students",
		Predicates: []store.Predicate{{Field: "studentId", Op: "==", Value: studentID}},
	})
	if err != nil || len(recs) == 0 {
		return record.Student{}, false
	}
	return record.StudentFrom(recs[0]), true
}
