package state

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitQueued(t *testing.T, r *refresher, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for r.waiting() < n {
		if time.Now().After(deadline) {
			t.Fatalf("only %d callers queued, want %d", r.waiting(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRefresherSequentialCallsEachRun(t *testing.T) {
	var runs atomic.Int32
	r := newRefresher(func(context.Context) error {
		runs.Add(1)
		return nil
	})
	for i := 0; i < 3; i++ {
		if err := r.Do(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := runs.Load(); got != 3 {
		t.Errorf("runs = %d, want 3", got)
	}
}

func TestRefresherFoldsCallsDuringFlight(t *testing.T) {
	var runs atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 8)
	trailingErr := errors.New("trailing failed")

	r := newRefresher(func(context.Context) error {
		n := runs.Add(1)
		started <- struct{}{}
		if n == 1 {
			<-release
			return nil
		}
		return trailingErr
	})

	leader := make(chan error, 1)
	go func() { leader <- r.Do(context.Background()) }()
	<-started

	const followers = 5
	results := make(chan error, followers)
	for i := 0; i < followers; i++ {
		go func() { results <- r.Do(context.Background()) }()
	}
	waitQueued(t, r, followers)
	close(release)

	for i := 0; i < followers; i++ {
		if err := <-results; !errors.Is(err, trailingErr) {
			t.Errorf("follower err = %v, want the trailing run's error", err)
		}
	}
	if err := <-leader; err != nil {
		t.Errorf("leader err = %v, want nil", err)
	}
	if got := runs.Load(); got != 2 {
		t.Errorf("runs = %d, want 2 (one in flight, one trailing)", got)
	}
}

func TestRefresherWaiterHonorsContext(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	r := newRefresher(func(context.Context) error {
		started <- struct{}{}
		<-release
		return nil
	})

	leader := make(chan error, 1)
	go func() { leader <- r.Do(context.Background()) }()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	waiter := make(chan error, 1)
	go func() { waiter <- r.Do(ctx) }()
	waitQueued(t, r, 1)
	cancel()

	if err := <-waiter; !errors.Is(err, context.Canceled) {
		t.Errorf("waiter err = %v, want context.Canceled", err)
	}
	// Leader still runs the trailing load for the abandoned waiter.
	close(release)
	if err := <-leader; err != nil {
		t.Errorf("leader err = %v", err)
	}
}
