package service_test

import (
	"context"
	"errors"
	"testing"

	"e2ee-chat/internal/dto"
	"e2ee-chat/internal/service"
)

func TestSendPersistsAndBroadcasts(t *testing.T) {
	st := setupStore(t)
	pub := &fakePublisher{}
	svc := service.NewMessageService(st, pub)

	alice := &fakePeer{id: 5}
	err := svc.Send(context.Background(), alice, dto.SendMessage{
		ChatID:     "5:9",
		Sender:     5,
		Receiver:   9,
		Ciphertext: "c1",
		IV:         "n1",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	msgs, err := st.Messages().ListByChatID(context.Background(), "5:9")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Ciphertext != "c1" || msgs[0].IV != "n1" {
		t.Fatalf("unexpected ledger contents: %+v", msgs)
	}

	events := pub.byEvent(dto.EventNewMessage)
	if len(events) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(events))
	}
	if events[0].Room != "chat:5:9" {
		t.Fatalf("broadcast went to %s, want chat:5:9", events[0].Room)
	}
	payload := events[0].Payload.(dto.NewMessage)
	if payload.Sender != 5 || payload.Receiver != 9 || payload.Ciphertext != "c1" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Timestamp != msgs[0].Timestamp.UnixMilli() {
		t.Fatalf("broadcast timestamp %d does not match ledger %d", payload.Timestamp, msgs[0].Timestamp.UnixMilli())
	}
}

func TestSendRejectsSpoofedSender(t *testing.T) {
	st := setupStore(t)
	pub := &fakePublisher{}
	svc := service.NewMessageService(st, pub)

	// Bob is a member of 5:9 but claims to be Alice.
	bob := &fakePeer{id: 9}
	err := svc.Send(context.Background(), bob, dto.SendMessage{
		ChatID:     "5:9",
		Sender:     5,
		Receiver:   9,
		Ciphertext: "forged",
		IV:         "n1",
	})
	if !errors.Is(err, service.ErrSenderMismatch) {
		t.Fatalf("expected ErrSenderMismatch, got %v", err)
	}

	n, err := st.Messages().CountByChatID(context.Background(), "5:9")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("forged message reached the ledger")
	}
	if len(pub.all()) != 0 {
		t.Fatalf("forged message was broadcast")
	}
}

func TestSendRejectsNonMember(t *testing.T) {
	st := setupStore(t)
	pub := &fakePublisher{}
	svc := service.NewMessageService(st, pub)

	mallory := &fakePeer{id: 7}
	err := svc.Send(context.Background(), mallory, dto.SendMessage{
		ChatID:     "5:9",
		Sender:     7,
		Receiver:   9,
		Ciphertext: "c1",
		IV:         "n1",
	})
	if !errors.Is(err, service.ErrNotChatMember) {
		t.Fatalf("expected ErrNotChatMember, got %v", err)
	}
	if len(pub.all()) != 0 {
		t.Fatalf("non-member message was broadcast")
	}
}

func TestSendMissingFields(t *testing.T) {
	st := setupStore(t)
	pub := &fakePublisher{}
	svc := service.NewMessageService(st, pub)

	alice := &fakePeer{id: 5}
	for _, req := range []dto.SendMessage{
		{Sender: 5, Receiver: 9, Ciphertext: "c", IV: "n"},
		{ChatID: "5:9", Receiver: 9, Ciphertext: "c", IV: "n"},
		{ChatID: "5:9", Sender: 5, Ciphertext: "c", IV: "n"},
		{ChatID: "5:9", Sender: 5, Receiver: 9, IV: "n"},
		{ChatID: "5:9", Sender: 5, Receiver: 9, Ciphertext: "c"},
	} {
		if err := svc.Send(context.Background(), alice, req); !errors.Is(err, service.ErrMalformedRequest) {
			t.Fatalf("expected ErrMalformedRequest for %+v, got %v", req, err)
		}
	}
	if n, _ := st.Messages().CountByChatID(context.Background(), "5:9"); n != 0 {
		t.Fatalf("malformed sends reached the ledger")
	}
}

func TestSendTimestampsStrictlyIncrease(t *testing.T) {
	st := setupStore(t)
	pub := &fakePublisher{}
	svc := service.NewMessageService(st, pub)

	alice := &fakePeer{id: 5}
	for i := 0; i < 50; i++ {
		err := svc.Send(context.Background(), alice, dto.SendMessage{
			ChatID:     "5:9",
			Sender:     5,
			Receiver:   9,
			Ciphertext: "c",
			IV:         "n",
		})
		if err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	// Several of those sends land inside the same millisecond; the clock
	// guard must still hand out distinct, increasing stamps.
	events := pub.byEvent(dto.EventNewMessage)
	if len(events) != 50 {
		t.Fatalf("expected 50 broadcasts, got %d", len(events))
	}
	var prev int64
	for i, e := range events {
		ts := e.Payload.(dto.NewMessage).Timestamp
		if ts <= prev {
			t.Fatalf("timestamp %d at index %d not after %d", ts, i, prev)
		}
		prev = ts
	}
}

func TestHistoryOrderedOldestFirst(t *testing.T) {
	st := setupStore(t)
	pub := &fakePublisher{}
	svc := service.NewMessageService(st, pub)

	alice := &fakePeer{id: 5}
	bob := &fakePeer{id: 9}
	for _, m := range []dto.SendMessage{
		{ChatID: "5:9", Sender: 5, Receiver: 9, Ciphertext: "c1", IV: "n1"},
		{ChatID: "5:9", Sender: 9, Receiver: 5, Ciphertext: "c2", IV: "n2"},
		{ChatID: "5:9", Sender: 5, Receiver: 9, Ciphertext: "c3", IV: "n3"},
	} {
		peer := alice
		if m.Sender == 9 {
			peer = bob
		}
		if err := svc.Send(context.Background(), peer, m); err != nil {
			t.Fatalf("send %s: %v", m.Ciphertext, err)
		}
	}

	hist, err := svc.History(context.Background(), bob, "5:9")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(hist.Messages))
	}
	for i, want := range []string{"c1", "c2", "c3"} {
		if hist.Messages[i].Ciphertext != want {
			t.Fatalf("position %d: got %s, want %s", i, hist.Messages[i].Ciphertext, want)
		}
	}
	for i := 1; i < len(hist.Messages); i++ {
		if hist.Messages[i].Timestamp <= hist.Messages[i-1].Timestamp {
			t.Fatalf("history timestamps not increasing at %d", i)
		}
	}
}

func TestHistoryRejectsNonMember(t *testing.T) {
	st := setupStore(t)
	pub := &fakePublisher{}
	svc := service.NewMessageService(st, pub)

	alice := &fakePeer{id: 5}
	if err := svc.Send(context.Background(), alice, dto.SendMessage{
		ChatID: "5:9", Sender: 5, Receiver: 9, Ciphertext: "c1", IV: "n1",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	mallory := &fakePeer{id: 7}
	if _, err := svc.History(context.Background(), mallory, "5:9"); !errors.Is(err, service.ErrNotChatMember) {
		t.Fatalf("expected ErrNotChatMember, got %v", err)
	}
}

func TestHistoryEmptyChat(t *testing.T) {
	st := setupStore(t)
	svc := service.NewMessageService(st, &fakePublisher{})

	alice := &fakePeer{id: 5}
	hist, err := svc.History(context.Background(), alice, "5:9")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist.Messages) != 0 {
		t.Fatalf("expected empty history, got %+v", hist.Messages)
	}
}
