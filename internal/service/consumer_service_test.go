package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ai-interview-be/internal/dto"
	"ai-interview-be/internal/entity"
	"ai-interview-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCVSummaryJob(t *testing.T) {
	repo := newMemInterviewRepo()
	id, userID := uuid.New(), uuid.New()
	repo.rows[id] = entity.Interview{Id: id, UserId: userID, CVText: "Go engineer at Acme since 2019."}

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	bus := &capturePublisher{}
	oracle := NewOracleService(&stubLLM{out: "Six years of Go at Acme."}, logger.NewNopLogger())
	consumer := NewConsumerService(pubSub, "SUMMARIZE_CV", &memFactory{uow: &memUow{interviews: repo}}, oracle, bus, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService("SUMMARIZE_CV", pubSub)
	require.NoError(t, publisher.SendMessage(ctx, dto.SummarizeCVMessage{InterviewId: id}))

	assert.Eventually(t, func() bool {
		row, _ := repo.FindOne(ctx)
		return row != nil && row.CVSummary == "Six years of Go at Acme."
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		return len(bus.events) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCVSummaryJobSkipsOnOracleFailure(t *testing.T) {
	repo := newMemInterviewRepo()
	id := uuid.New()
	repo.rows[id] = entity.Interview{Id: id, UserId: uuid.New(), CVText: "text"}

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	oracle := NewOracleService(&stubLLM{err: errors.New("quota")}, logger.NewNopLogger())
	consumer := NewConsumerService(pubSub, "SUMMARIZE_CV", &memFactory{uow: &memUow{interviews: repo}}, oracle, nil, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, consumer.Consume(ctx))

	payload, _ := json.Marshal(dto.SummarizeCVMessage{InterviewId: id})
	require.NoError(t, NewPublisherService("SUMMARIZE_CV", pubSub).SendMessage(ctx, json.RawMessage(payload)))

	time.Sleep(50 * time.Millisecond)
	row, _ := repo.FindOne(ctx)
	assert.Empty(t, row.CVSummary)
}
