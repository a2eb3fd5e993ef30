package queue

import (
	"reflect"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		want    Message
		wantErr bool
	}{
		{
			name: "full message",
			values: map[string]any{
				"ticket_id":  "123",
				"event_type": "ticket.created",
				"attempt":    "2",
				"trace_id":   "abc123",
			},
			want: Message{ID: "1-0", TicketID: 123, EventType: "ticket.created", Attempt: 2, TraceID: "abc123"},
		},
		{
			name: "attempt defaults to 1",
			values: map[string]any{
				"ticket_id":  "7",
				"event_type": "ticket.updated",
			},
			want: Message{ID: "1-0", TicketID: 7, EventType: "ticket.updated", Attempt: 1},
		},
		{
			name:    "missing ticket_id",
			values:  map[string]any{"event_type": "ticket.created"},
			wantErr: true,
		},
		{
			name:    "missing event_type",
			values:  map[string]any{"ticket_id": "5"},
			wantErr: true,
		},
		{
			name: "non-numeric ticket_id",
			values: map[string]any{
				"ticket_id":  "abc",
				"event_type": "ticket.created",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := redis.XMessage{ID: "1-0", Values: tt.values}
			got, err := ParseMessage(raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ParseMessage() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMessage() error = %v", err)
			}
			got.Raw = redis.XMessage{}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseMessage() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
