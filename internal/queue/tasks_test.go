package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dujiao-next/checkout/internal/config"
)

func TestNewOrderPaymentTimeoutTask(t *testing.T) {
	task, err := NewOrderPaymentTimeoutTask(OrderPaymentTimeoutPayload{OrderID: 42})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if task.Type() != TaskOrderPaymentTimeout {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	var payload OrderPaymentTimeoutPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if payload.OrderID != 42 {
		t.Fatalf("order id want 42 got %d", payload.OrderID)
	}
}

func TestNewReservationCleanupTask(t *testing.T) {
	task, err := NewReservationCleanupTask(ReservationCleanupPayload{Trigger: "manual"})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if task.Type() != TaskReservationCleanup {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	if string(task.Payload()) != `{"trigger":"manual"}` {
		t.Fatalf("unexpected payload: %s", task.Payload())
	}
}

func TestDisabledClientIsNoop(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	if err := client.EnqueueOrderPaymentTimeout(OrderPaymentTimeoutPayload{OrderID: 1}, time.Minute); err != nil {
		t.Fatalf("disabled enqueue should be a no-op: %v", err)
	}
	if err := client.EnqueueReservationCleanup("manual"); err != nil {
		t.Fatalf("disabled enqueue should be a no-op: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatalf("nil client must report disabled")
	}
}

func TestBuildServerConfig(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: " redis ", Port: 6380, DB: 2, Concurrency: 4})
	if opt.Addr != "redis:6380" || opt.DB != 2 {
		t.Fatalf("unexpected redis opt: %+v", opt)
	}
	if cfg.Concurrency != 4 || cfg.Queues[DefaultQueue] != 1 {
		t.Fatalf("unexpected server config: %+v", cfg)
	}

	opt, cfg = BuildServerConfig(nil)
	if opt.Addr != "127.0.0.1:6379" || cfg.Concurrency != 10 {
		t.Fatalf("unexpected defaults: %+v %+v", opt, cfg)
	}
}
