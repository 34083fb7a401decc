package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/trackhub/internal/app/store/audit"
	"github.com/dalemusser/trackhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	event := audit.Event{
		Category:     audit.CategoryAuth,
		EventType:    audit.EventLoginSuccess,
		UserID:       &userID,
		ResourceKind: "user",
		ResourceID:   &userID,
		Success:      true,
	}
	if err := store.Log(ctx, event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByResource(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByResource failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be auto-generated")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestStore_Query_ByCategoryAndType(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, e := range []audit.Event{
		{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, Success: true},
		{Category: audit.CategoryAuth, EventType: audit.EventLoginFailed, FailureReason: "bad password"},
		{Category: audit.CategoryAdmin, EventType: audit.EventProjectDeleted, Success: true},
	} {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	auth, err := store.Query(ctx, audit.QueryFilter{Category: audit.CategoryAuth})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(auth) != 2 {
		t.Errorf("auth events: got %d, want 2", len(auth))
	}

	failed, err := store.CountByFilter(ctx, audit.QueryFilter{EventType: audit.EventLoginFailed})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if failed != 1 {
		t.Errorf("failed logins: got %d, want 1", failed)
	}
}

func TestStore_Query_ByActor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := primitive.NewObjectID()
	other := primitive.NewObjectID()
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAdmin, EventType: audit.EventUserDeleted, ActorID: &admin, Success: true})
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAdmin, EventType: audit.EventUserDeleted, ActorID: &other, Success: true})

	events, err := store.Query(ctx, audit.QueryFilter{ActorID: &admin})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 || *events[0].ActorID != admin {
		t.Errorf("expected exactly the admin's event, got %+v", events)
	}
}

func TestStore_Query_TimeRangeAndOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		err := store.Log(ctx, audit.Event{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Category:  audit.CategoryAuth,
			EventType: audit.EventLoginSuccess,
			Success:   true,
		})
		if err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	start := base.Add(30 * time.Minute)
	events, err := store.Query(ctx, audit.QueryFilter{StartTime: &start})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if !events[0].Timestamp.After(events[1].Timestamp) {
		t.Error("expected newest first")
	}

	recent, err := store.GetRecent(ctx, 1)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(recent) != 1 || !recent[0].Timestamp.Equal(base.Add(2*time.Hour)) {
		t.Errorf("GetRecent returned %+v", recent)
	}
}

func TestStore_EnsureIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}
	// Idempotent.
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("second EnsureIndexes failed: %v", err)
	}
}
