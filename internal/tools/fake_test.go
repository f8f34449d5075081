package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// fakeGateway is an in-memory Gateway
type fakeGateway struct {
	mu         sync.Mutex
	containers []Container
	history    map[string][]Item // locationID -> newest first
	sent       map[string][]string
	nextID     int
	failList   error
	failSend   error
	lastCount  int
}

func newFakeGateway(containers ...Container) *fakeGateway {
	return &fakeGateway{
		containers: containers,
		history:    make(map[string][]Item),
		sent:       make(map[string][]string),
		nextID:     9000,
	}
}

func (f *fakeGateway) Containers(ctx context.Context) ([]Container, error) {
	if f.failList != nil {
		return nil, f.failList
	}
	return f.containers, nil
}

func (f *fakeGateway) FetchRecent(ctx context.Context, locationID string, count int, beforeID string) ([]Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCount = count
	items := f.history[locationID]
	if len(items) > count {
		items = items[:count]
	}
	return items, nil
}

func (f *fakeGateway) Deliver(ctx context.Context, locationID, text string) (string, error) {
	if f.failSend != nil {
		return "", f.failSend
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent[locationID] = append(f.sent[locationID], text)
	return fmt.Sprintf("%d", f.nextID), nil
}

var errGatewayDown = errors.New("gateway down")

func singleServer() Container {
	return Container{
		ID:   "100",
		Name: "Alpha",
		Locations: []Location{
			{ID: "101", Name: "general"},
			{ID: "102", Name: "random"},
		},
	}
}

func secondServer() Container {
	return Container{
		ID:   "200",
		Name: "Beta",
		Locations: []Location{
			{ID: "201", Name: "general"},
			{ID: "202", Name: "dev"},
		},
	}
}

func ts(minute int) time.Time {
	return time.Date(2026, 3, 1, 12, minute, 0, 0, time.UTC)
}
