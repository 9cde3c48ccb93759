package workers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/zenbanez/docuvoice-ai/internal/events"
	"github.com/zenbanez/docuvoice-ai/internal/services"
	"github.com/zenbanez/docuvoice-ai/internal/utils"
)

const (
	SummaryStream = "documents:summarize"
	SummaryGroup  = "summary-workers"
)

// SummaryWorkerPool consumes summary jobs from a Redis stream consumer group.
type SummaryWorkerPool struct {
	Redis      *redis.Client
	Documents  services.DocumentService
	Status     events.Publisher
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *SummaryWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Documents == nil || p.Status == nil {
		return errors.New("SummaryWorkerPool missing dependency: Redis/Documents/Status must be set")
	}
	p.defaults()

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	p.Logger.WithFields(logrus.Fields{"stream": p.Stream, "workers": p.NumWorkers}).Info("summary workers started")
	return nil
}

func (p *SummaryWorkerPool) defaults() {
	if p.Stream == "" {
		p.Stream = SummaryStream
	}
	if p.Group == "" {
		p.Group = SummaryGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
}

func (p *SummaryWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    4,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("xreadgroup failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *SummaryWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	documentID, _ := msg.Values["document_id"].(string)
	if documentID == "" {
		return
	}
	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":    msg.ID,
		"document_id": documentID,
	})

	p.publish(ctx, log, documentID, events.StatusProcessing, "generating summary")

	start := time.Now()
	if _, err := p.Documents.Summarize(ctx, documentID); err != nil {
		log.WithError(err).Error("summary failed")
		p.publish(ctx, log, documentID, events.StatusFailed, utils.Message(err))
		return
	}
	log.WithField("elapsed_ms", time.Since(start).Milliseconds()).Info("summary ready")
	p.publish(ctx, log, documentID, events.StatusDone, "summary ready")
}

func (p *SummaryWorkerPool) publish(ctx context.Context, log logrus.FieldLogger, documentID, status, message string) {
	if err := p.Status.Publish(ctx, documentID, status, message); err != nil {
		log.WithError(err).WithField("status", status).Warn("publish status")
	}
}

// RedisSummaryQueue enqueues summary jobs on the worker stream.
type RedisSummaryQueue struct {
	rdb    *redis.Client
	stream string
	status events.Publisher
}

func NewRedisSummaryQueue(rdb *redis.Client, status events.Publisher) *RedisSummaryQueue {
	return &RedisSummaryQueue{rdb: rdb, stream: SummaryStream, status: status}
}

func (q *RedisSummaryQueue) Enqueue(ctx context.Context, documentID string) error {
	err := q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{"document_id": documentID},
	}).Err()
	if err != nil {
		return err
	}
	if q.status != nil {
		_ = q.status.Publish(ctx, documentID, events.StatusQueued, "summary queued")
	}
	return nil
}
