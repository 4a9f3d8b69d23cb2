package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrEventNotFound indicates no event matched the identifier.
var ErrEventNotFound = errors.New("store.event_not_found")

// ErrEventWindowInverted indicates the event ends before it starts.
var ErrEventWindowInverted = errors.New("store.event_window_inverted")

// CreateEvent validates the display window and inserts the event.
func (store *Store) CreateEvent(ctx context.Context, event Event) (Event, error) {
	if !event.EndDate.After(event.StartDate) {
		return Event{}, fmt.Errorf("store.create_event: %w", ErrEventWindowInverted)
	}
	if err := store.db.WithContext(ctx).Create(&event).Error; err != nil {
		return Event{}, fmt.Errorf("store.create_event.%s: %w", store.driverLabel, err)
	}
	return event, nil
}

// ListEvents returns one page of events, newest first, with the total count.
func (store *Store) ListEvents(ctx context.Context, page int, take int) ([]Event, int64, error) {
	if page < 1 {
		page = 1
	}
	if take < 1 {
		take = 10
	}
	var totalCount int64
	if err := store.db.WithContext(ctx).Model(&Event{}).Count(&totalCount).Error; err != nil {
		return nil, 0, fmt.Errorf("store.list_events.%s: %w", store.driverLabel, err)
	}
	var events []Event
	err := store.db.WithContext(ctx).
		Order("id DESC").
		Offset((page - 1) * take).
		Limit(take).
		Find(&events).Error
	if err != nil {
		return nil, 0, fmt.Errorf("store.list_events.%s: %w", store.driverLabel, err)
	}
	return events, totalCount, nil
}

// FindEventByID returns the event with the given identifier.
func (store *Store) FindEventByID(ctx context.Context, eventID uint64) (Event, error) {
	var event Event
	err := store.db.WithContext(ctx).Take(&event, eventID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Event{}, fmt.Errorf("store.find_event.%s: %w", store.driverLabel, ErrEventNotFound)
		}
		return Event{}, fmt.Errorf("store.find_event.%s: %w", store.driverLabel, err)
	}
	return event, nil
}
