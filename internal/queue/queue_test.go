package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
)

type declared struct {
	name    string
	durable bool
	args    amqp091.Table
}

type fakeDeclarer struct {
	queues []declared
	failOn string
}

func (d *fakeDeclarer) QueueDeclare(name string, durable, _, _, _ bool, args amqp091.Table) (amqp091.Queue, error) {
	if name == d.failOn {
		return amqp091.Queue{}, errors.New("access refused")
	}
	d.queues = append(d.queues, declared{name: name, durable: durable, args: args})
	return amqp091.Queue{Name: name}, nil
}

func TestSetupQueues(t *testing.T) {
	d := &fakeDeclarer{}
	if err := SetupQueues(d, []string{TaxonomyQueue}); err != nil {
		t.Fatalf("SetupQueues: %v", err)
	}

	if len(d.queues) != 3 {
		t.Fatalf("declared %d queues, want 3", len(d.queues))
	}
	names := []string{d.queues[0].name, d.queues[1].name, d.queues[2].name}
	want := []string{"taxonomy_queue", "taxonomy_queue_dlq", "taxonomy_queue_retry"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("queues = %v, want %v", names, want)
		}
		if !d.queues[i].durable {
			t.Fatalf("%s is not durable", names[i])
		}
	}

	retry := d.queues[2].args
	if retry["x-dead-letter-routing-key"] != TaxonomyQueue {
		t.Fatalf("retry queue dead-letters to %v", retry["x-dead-letter-routing-key"])
	}
	if retry["x-message-ttl"] != int32(10000) {
		t.Fatalf("retry ttl = %#v", retry["x-message-ttl"])
	}
}

func TestSetupQueuesReturnsErrors(t *testing.T) {
	d := &fakeDeclarer{failOn: "taxonomy_queue_dlq"}
	if err := SetupQueues(d, []string{TaxonomyQueue}); err == nil {
		t.Fatal("expected error")
	}
}

func TestPublishFIFO(t *testing.T) {
	pub := &fakePublisher{}
	msg := NewTaxonomyJobMsg("tax1", "taxonomies/tax1/upload.csv", "", []string{"Class"})
	data, _ := json.Marshal(msg)

	if err := PublishFIFO(context.Background(), pub, TaxonomyQueue, data, nil); err != nil {
		t.Fatalf("PublishFIFO: %v", err)
	}
	got := pub.sent[0]
	if got.queue != TaxonomyQueue || got.msg.DeliveryMode != amqp091.Persistent {
		t.Fatalf("published %+v", got)
	}

	parsed, err := ParseTaxonomyJobMsg(got.msg.Body)
	if err != nil {
		t.Fatalf("ParseTaxonomyJobMsg: %v", err)
	}
	if parsed.CorrelationID == "" || parsed.CorrelationID != msg.CorrelationID {
		t.Fatalf("correlation id = %q", parsed.CorrelationID)
	}
}

func TestParseTaxonomyJobMsg(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"valid", `{"taxonomy_id":"t","file_path":"f.csv","labelsets":["A"]}`, true},
		{"malformed", `{`, false},
		{"missing id", `{"file_path":"f.csv","labelsets":["A"]}`, false},
		{"missing labelsets", `{"taxonomy_id":"t","file_path":"f.csv"}`, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTaxonomyJobMsg([]byte(tc.body))
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidMessage) {
				t.Fatalf("expected ErrInvalidMessage, got %v", err)
			}
		})
	}
}
