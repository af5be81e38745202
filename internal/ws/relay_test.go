package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/wooahyo/internal/service"
)

func TestRelayCrossInstanceDelivery(t *testing.T) {
	mr := miniredis.RunT(t)

	rdbA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rdbB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdbA.Close()
		rdbB.Close()
	})

	misdelivered := make(chan struct{}, 1)
	relayA := NewRelay(rdbA, func([]string, OutgoingMessage) {
		select {
		case misdelivered <- struct{}{}:
		default:
		}
	})
	received := make(chan OutgoingMessage, 8)
	relayB := NewRelay(rdbB, func(users []string, out OutgoingMessage) {
		received <- out
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relayA.Run(ctx)
	go relayB.Run(ctx)

	out := OutgoingMessage{Type: EventTyping, Payload: TypingPayload{RoomID: "r1", UserID: "buyer"}}

	// Subscribers connect asynchronously; retry until B sees the event.
	deadline := time.After(5 * time.Second)
	var got OutgoingMessage
loop:
	for {
		if err := relayA.Publish(ctx, "r1", []string{"buyer", "seller"}, out); err != nil {
			t.Fatalf("publish: %v", err)
		}
		select {
		case got = <-received:
			break loop
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("remote instance never received the event")
		}
	}

	if got.Type != EventTyping {
		t.Fatalf("wrong event type: %s", got.Type)
	}
	raw, ok := got.Payload.(json.RawMessage)
	if !ok {
		t.Fatalf("remote payload should arrive raw, got %T", got.Payload)
	}
	var p TypingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.RoomID != "r1" || p.UserID != "buyer" {
		t.Fatalf("payload mangled in transit: %+v", p)
	}

	// The publishing instance must skip its own events.
	select {
	case <-misdelivered:
		t.Fatal("publisher delivered its own event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRelayHandleFiltersOrigin(t *testing.T) {
	var delivered []OutgoingMessage
	r := &Relay{instanceID: "me", deliver: func(_ []string, out OutgoingMessage) {
		delivered = append(delivered, out)
	}}

	mk := func(origin string) string {
		data, err := json.Marshal(envelope{
			Origin: origin, RoomID: "r1", Users: []string{"u1"},
			Type: EventRead, Payload: json.RawMessage(`{}`),
		})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return string(data)
	}

	r.handle(&redis.Message{Channel: "room:r1", Payload: mk("me")})
	if len(delivered) != 0 {
		t.Fatal("own-origin event delivered")
	}
	r.handle(&redis.Message{Channel: "room:r1", Payload: mk("other")})
	if len(delivered) != 1 {
		t.Fatalf("remote event not delivered: %d", len(delivered))
	}
	r.handle(&redis.Message{Channel: "room:r1", Payload: "{broken"})
	if len(delivered) != 1 {
		t.Fatal("malformed payload should be dropped")
	}
}

func TestUserFacingErrorText(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&service.ValidationError{Msg: "내용을 입력해주세요"}, "내용을 입력해주세요"},
		{service.ErrForbidden, "not a participant"},
		{service.ErrNotFound, "room not found"},
		{context.DeadlineExceeded, "internal error"},
	}
	for _, tc := range cases {
		if got := userFacing(tc.err); got != tc.want {
			t.Errorf("userFacing(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
