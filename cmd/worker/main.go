package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/orangecountyai/clem/internal/ai"
	"github.com/orangecountyai/clem/internal/config"
	"github.com/orangecountyai/clem/internal/db"
	"github.com/orangecountyai/clem/internal/gen"
	"github.com/orangecountyai/clem/internal/store"
	"github.com/orangecountyai/clem/internal/store/rabbitmq"
	"github.com/orangecountyai/clem/internal/summarize"
)

// maxTaskAttempts bounds retry-queue passes per task; after that the task is
// rejected into the DLQ.
const maxTaskAttempts = 3

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

// summarizer executes one summary job end to end.
type summarizer struct {
	repo    *store.Repo
	client  *summarize.Client
	gen     gen.Generator
	session *discordgo.Session
	model   string
	botName string
	botID   string
}

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	repo := store.NewRepo(gdb)

	reg := ai.NewRegistry()
	reg.Register("openrouter", func(model string) (ai.Provider, error) {
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, model), nil
	})
	reg.Register("ollama", func(model string) (ai.Provider, error) {
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, model), nil
	})

	provider, err := reg.New(cfg.AIProvider, cfg.Model)
	if err != nil {
		log.Fatalf("ai provider: %v", err)
	}

	// REST-only session; the worker never opens the gateway
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		log.Fatalf("discord session: %v", err)
	}
	me, err := session.User("@me")
	if err != nil {
		log.Fatalf("discord identity: %v", err)
	}

	s := &summarizer{
		repo:    repo,
		client:  summarize.NewClient(cfg.TranscriptAPIURL, cfg.TranscriptAPIToken, cfg.WebSummaryAPIURL, cfg.WebSummaryAPIToken),
		gen:     gen.WithRetry(gen.NewSummary(provider), 3, time.Second),
		session: session,
		model:   cfg.Model,
		botName: me.Username,
		botID:   me.ID,
	}

	queue, err := rabbitmq.Dial(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer queue.Close()

	concurrency := workerConcurrency()

	msgs, err := queue.Consume(concurrency)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				handleDelivery(ctx, workerID, s, queue, d)
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

// handleDelivery runs one task. A failed task goes back through the retry
// queue until its attempts are spent, then it is rejected into the DLQ and
// the job row is marked failed.
func handleDelivery(ctx context.Context, workerID int, s *summarizer, queue *rabbitmq.Queue, d amqp.Delivery) {
	t, err := rabbitmq.DecodeTask(d.Body)
	if err != nil {
		log.Printf("worker=%d bad task: %v", workerID, err)
		_ = d.Nack(false, false)
		return
	}

	start := time.Now()
	err = s.handleJob(ctx, t.JobID)
	if err == nil {
		if err := d.Ack(false); err != nil {
			log.Printf("worker=%d ack failed job=%s err=%v", workerID, t.JobID, err)
		}
		return
	}

	if t.Attempt+1 < maxTaskAttempts {
		log.Printf("worker=%d job %s attempt=%d cost=%s err=%v (requeueing)",
			workerID, t.JobID, t.Attempt+1, time.Since(start), err)
		if rerr := queue.Requeue(ctx, t); rerr != nil {
			log.Printf("worker=%d requeue job=%s err=%v", workerID, t.JobID, rerr)
			_ = d.Nack(false, false)
			return
		}
		_ = d.Ack(false)
		return
	}

	log.Printf("worker=%d job %s failed after %d attempts cost=%s err=%v",
		workerID, t.JobID, t.Attempt+1, time.Since(start), err)
	_ = s.repo.MarkJobFailed(ctx, t.JobID, err.Error())
	_ = d.Nack(false, false)
}

func (s *summarizer) handleJob(ctx context.Context, jobID string) error {
	_ = s.repo.UpdateJobStatusRunning(ctx, jobID)

	j, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}

	summary, err := s.summarize(ctx, j)
	if err != nil {
		return err
	}

	if _, err := s.session.ChannelMessageSendReply(j.ChannelID, summary, &discordgo.MessageReference{
		MessageID: j.MessageID,
		ChannelID: j.ChannelID,
	}); err != nil {
		return err
	}

	if err := s.repo.AppendMessage(ctx, &store.Message{
		Author:    s.botName,
		AuthorID:  s.botID,
		Content:   summary,
		ChannelID: j.ChannelID,
		Model:     s.model,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		log.Printf("log outbound job=%s err=%v", jobID, err)
	}

	return s.repo.MarkJobSucceeded(ctx, jobID)
}

func (s *summarizer) summarize(ctx context.Context, j *store.SummaryJob) (string, error) {
	switch j.Kind {
	case store.LinkVideo:
		tr, err := s.client.Transcript(ctx, j.URL)
		if err != nil {
			return "", err
		}
		return s.gen.Generate(ctx, gen.Context{Transcript: tr.Text})
	case store.LinkWeb:
		return s.client.WebSummary(ctx, j.URL)
	}
	return "", fmt.Errorf("unknown link kind %q", j.Kind)
}
