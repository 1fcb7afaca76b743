package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"e2ee-chat/internal/domain"
	"e2ee-chat/internal/store"
)

func exchange(chatID domain.ChatID, sender, receiver domain.UserID, key string) *domain.KeyExchange {
	return &domain.KeyExchange{
		ChatID:     chatID,
		SenderID:   sender,
		ReceiverID: receiver,
		PublicKey:  key,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestInsertIfAbsent(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	inserted, err := st.KeyExchanges().InsertIfAbsent(ctx, exchange("5:9", 5, 9, "PK_A"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !inserted {
		t.Fatalf("expected first insert to win")
	}

	inserted, err = st.KeyExchanges().InsertIfAbsent(ctx, exchange("5:9", 9, 5, "PK_OTHER"))
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate insert to be a no-op")
	}

	rec, err := st.KeyExchanges().FindByChatID(ctx, "5:9")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec.SenderID != 5 || rec.PublicKey != "PK_A" {
		t.Fatalf("duplicate insert overwrote the record: %+v", rec)
	}
}

func TestInsertIfAbsentConcurrentDuplicates(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := st.KeyExchanges().InsertIfAbsent(ctx, exchange("5:9", 5, 9, "PK_A"))
			if err != nil {
				t.Errorf("insert: %v", err)
				return
			}
			results <- inserted
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for inserted := range results {
		if inserted {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winning insert, got %d", winners)
	}

	recs, err := st.KeyExchanges().FindByReceiver(ctx, 9)
	if err != nil {
		t.Fatalf("find by receiver: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected a single record, got %d", len(recs))
	}
}

func TestMarkAccepted(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	if _, err := st.KeyExchanges().InsertIfAbsent(ctx, exchange("5:9", 5, 9, "PK_A")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Wrong receiver flips nothing.
	updated, err := st.KeyExchanges().MarkAccepted(ctx, "5:9", 5)
	if err != nil {
		t.Fatalf("mark accepted: %v", err)
	}
	if updated {
		t.Fatalf("sender must not be able to accept its own request")
	}

	updated, err = st.KeyExchanges().MarkAccepted(ctx, "5:9", 9)
	if err != nil {
		t.Fatalf("mark accepted: %v", err)
	}
	if !updated {
		t.Fatalf("expected pending record to flip")
	}

	// Second accept is a no-op.
	updated, err = st.KeyExchanges().MarkAccepted(ctx, "5:9", 9)
	if err != nil {
		t.Fatalf("mark accepted again: %v", err)
	}
	if updated {
		t.Fatalf("expected second accept to change nothing")
	}

	rec, err := st.KeyExchanges().FindByChatID(ctx, "5:9")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !rec.Accepted {
		t.Fatalf("record not accepted: %+v", rec)
	}
}

func TestMarkAcceptedWithoutRecord(t *testing.T) {
	st := setupStore(t)

	updated, err := st.KeyExchanges().MarkAccepted(context.Background(), "5:9", 9)
	if err != nil {
		t.Fatalf("mark accepted: %v", err)
	}
	if updated {
		t.Fatalf("nothing to accept, nothing should change")
	}
}

func TestFindByReceiverAndAcceptedByUser(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	seed := []*domain.KeyExchange{
		exchange("5:9", 5, 9, "PK_A"),
		exchange("7:9", 7, 9, "PK_B"),
		exchange("5:7", 5, 7, "PK_C"),
	}
	for _, rec := range seed {
		if _, err := st.KeyExchanges().InsertIfAbsent(ctx, rec); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if _, err := st.KeyExchanges().MarkAccepted(ctx, "7:9", 9); err != nil {
		t.Fatalf("accept: %v", err)
	}

	pending, err := st.KeyExchanges().FindByReceiver(ctx, 9)
	if err != nil {
		t.Fatalf("find by receiver: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 records addressed to user 9, got %d", len(pending))
	}

	accepted, err := st.KeyExchanges().FindAcceptedByUser(ctx, 7)
	if err != nil {
		t.Fatalf("find accepted: %v", err)
	}
	if len(accepted) != 1 || accepted[0].ChatID != "7:9" {
		t.Fatalf("expected the accepted 7:9 exchange, got %+v", accepted)
	}

	accepted, err = st.KeyExchanges().FindAcceptedByUser(ctx, 5)
	if err != nil {
		t.Fatalf("find accepted: %v", err)
	}
	if len(accepted) != 0 {
		t.Fatalf("user 5 has no accepted chats, got %+v", accepted)
	}
}

func TestFindByChatIDMissing(t *testing.T) {
	st := setupStore(t)

	_, err := st.KeyExchanges().FindByChatID(context.Background(), "1:2")
	if !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}
