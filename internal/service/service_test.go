package service_test

import (
	"context"
	"sync"
	"testing"

	"e2ee-chat/internal/domain"
	"e2ee-chat/internal/store"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	st := store.New(db)
	if err := st.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return st
}

type fakePeer struct {
	id    domain.UserID
	rooms []string
}

func (p *fakePeer) UserID() domain.UserID { return p.id }

func (p *fakePeer) Join(room string) { p.rooms = append(p.rooms, room) }

func (p *fakePeer) joined(room string) bool {
	for _, r := range p.rooms {
		if r == room {
			return true
		}
	}
	return false
}

type publishedEvent struct {
	Room    string
	Event   string
	Payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakePublisher) Publish(room, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{Room: room, Event: event, Payload: payload})
}

func (f *fakePublisher) all() []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]publishedEvent, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakePublisher) byEvent(event string) []publishedEvent {
	var out []publishedEvent
	for _, e := range f.all() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
