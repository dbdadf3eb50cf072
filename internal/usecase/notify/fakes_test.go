package notify

import (
	"context"
	"errors"
	"sync"

	"carlet-notify/internal/domain/entity"
)

/* ─────────────────────────── fakes ─────────────────────────── */

type fakeUsers struct {
	mu       sync.Mutex
	users    []*entity.UserProfile
	byID     map[string]*entity.UserProfile
	listErr  error
	getErr   error
	listHits int
	getHits  int
}

func (f *fakeUsers) Get(_ context.Context, id string) (*entity.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getHits++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.byID[id], nil
}

func (f *fakeUsers) List(_ context.Context) ([]*entity.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listHits++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.users, nil
}

func (f *fakeUsers) Upsert(_ context.Context, user *entity.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byID == nil {
		f.byID = map[string]*entity.UserProfile{}
	}
	f.byID[user.ID] = user
	return nil
}

type fakeMessenger struct {
	mu sync.Mutex

	sent   []*entity.NotificationIntent
	chunks [][]*entity.NotificationIntent

	sendErr error
	// chunkErr returns the transport error for the n-th SendEach call (0-based), if any.
	chunkErr func(n int) error
	// failToken marks messages to this token as failed.
	failToken string
}

func (f *fakeMessenger) Send(_ context.Context, intent *entity.NotificationIntent) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, intent)
	return "msg-" + intent.Token, nil
}

func (f *fakeMessenger) SendEach(_ context.Context, intents []*entity.NotificationIntent) (*entity.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.chunks)
	f.chunks = append(f.chunks, intents)
	if f.chunkErr != nil {
		if err := f.chunkErr(n); err != nil {
			return nil, err
		}
	}

	result := &entity.BatchResult{}
	for _, intent := range intents {
		if f.failToken != "" && intent.Token == f.failToken {
			result.FailureCount++
			result.Responses = append(result.Responses, entity.SendResult{Error: errors.New("unregistered")})
			continue
		}
		result.SuccessCount++
		result.Responses = append(result.Responses, entity.SendResult{MessageID: "msg-" + intent.Token})
	}
	return result, nil
}

func (f *fakeMessenger) chunkSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	sizes := make([]int, len(f.chunks))
	for i, c := range f.chunks {
		sizes[i] = len(c)
	}
	return sizes
}

func ptr(v float64) *float64 { return &v }
