package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateEventValidatesWindow(t *testing.T) {
	t.Parallel()

	testStore := openTestStore(t)
	opensAt := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	if _, err := testStore.CreateEvent(context.Background(), Event{
		Title:     "Inverted window",
		StartDate: opensAt,
		EndDate:   opensAt.Add(-time.Hour),
	}); !errors.Is(err, ErrEventWindowInverted) {
		t.Fatalf("expected ErrEventWindowInverted, got %v", err)
	}

	created, createErr := testStore.CreateEvent(context.Background(), Event{
		Title:     "Spring reading week",
		StartDate: opensAt,
		EndDate:   opensAt.AddDate(0, 0, 7),
	})
	if createErr != nil {
		t.Fatalf("expected create to succeed, got %v", createErr)
	}
	if created.ID == 0 {
		t.Fatalf("expected an assigned identifier")
	}

	found, findErr := testStore.FindEventByID(context.Background(), created.ID)
	if findErr != nil || found.Title != "Spring reading week" {
		t.Fatalf("expected lookup to resolve the event, got %+v / %v", found, findErr)
	}
	if _, err := testStore.FindEventByID(context.Background(), 987654); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestListEventsPaginatesNewestFirst(t *testing.T) {
	t.Parallel()

	testStore := openTestStore(t)
	opensAt := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)

	var createdIDs []uint64
	for _, title := range []string{"Page event one", "Page event two", "Page event three"} {
		created, createErr := testStore.CreateEvent(context.Background(), Event{
			Title:     title,
			StartDate: opensAt,
			EndDate:   opensAt.AddDate(0, 0, 3),
		})
		if createErr != nil {
			t.Fatalf("expected create to succeed, got %v", createErr)
		}
		createdIDs = append(createdIDs, created.ID)
	}

	firstPage, totalCount, listErr := testStore.ListEvents(context.Background(), 1, 2)
	if listErr != nil {
		t.Fatalf("expected listing to succeed, got %v", listErr)
	}
	if totalCount < 3 {
		t.Fatalf("expected at least the three created events counted, got %d", totalCount)
	}
	if len(firstPage) != 2 {
		t.Fatalf("expected a page of two events, got %d", len(firstPage))
	}
	if firstPage[0].ID < createdIDs[2] {
		t.Fatalf("expected the newest event first, got id %d", firstPage[0].ID)
	}
	if firstPage[0].ID < firstPage[1].ID {
		t.Fatalf("expected descending order, got %d before %d", firstPage[0].ID, firstPage[1].ID)
	}
}

func TestListEventsNormalizesPaging(t *testing.T) {
	t.Parallel()

	testStore := openTestStore(t)
	if _, _, err := testStore.ListEvents(context.Background(), 0, -5); err != nil {
		t.Fatalf("expected out-of-range paging to be normalized, got %v", err)
	}
}
