package scheduler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL string
	queue    string
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestEstimateJobPayloadRoundTrip(t *testing.T) {
	payload := EstimateJobPayload{
		EstimateID: uuid.NewString(),
		TenantID:   uuid.NewString(),
	}

	task, err := NewEstimateJobTask(payload)
	if err != nil {
		t.Fatalf("NewEstimateJobTask: %v", err)
	}
	if task.Type() != TaskEstimateJob {
		t.Fatalf("task type = %q, want %q", task.Type(), TaskEstimateJob)
	}

	got, err := ParseEstimateJobPayload(task)
	if err != nil {
		t.Fatalf("ParseEstimateJobPayload: %v", err)
	}
	if got != payload {
		t.Fatalf("payload = %+v, want %+v", got, payload)
	}
}

func TestParseEstimateJobPayloadRejectsGarbage(t *testing.T) {
	task := asynq.NewTask(TaskEstimateJob, []byte("{not json"))
	if _, err := ParseEstimateJobPayload(task); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestRedisClientOptParsesURL(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@localhost:6380/2", false)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.Addr != "localhost:6380" {
		t.Fatalf("addr = %q", opt.Addr)
	}
	if opt.Password != "secret" {
		t.Fatalf("password = %q", opt.Password)
	}
	if opt.DB != 2 {
		t.Fatalf("db = %d", opt.DB)
	}
	if opt.TLSConfig != nil {
		t.Fatal("plain redis url must not carry tls config")
	}
}

func TestRedisClientOptTLSInsecure(t *testing.T) {
	opt, err := redisClientOpt("rediss://localhost:6380", true)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected insecure tls config")
	}
}

func TestRedisClientOptRejectsBadURL(t *testing.T) {
	if _, err := redisClientOpt("not a url", false); err == nil {
		t.Fatal("expected error for malformed redis url")
	}
}

func TestClientEnqueuesToConfiguredQueue(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{
		redisURL: "redis://" + mr.Addr(),
		queue:    "estimates",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	if err := client.EnqueueEstimateJob(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("EnqueueEstimateJob: %v", err)
	}

	pending, err := mr.List("asynq:{estimates}:pending")
	if err != nil {
		t.Fatalf("reading pending list: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending tasks = %d, want 1", len(pending))
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatal("expected error without redis url")
	}
}
