package models

import (
	"testing"
	"time"
)

func TestEventIsActive(t *testing.T) {
	now := time.Now()
	e := Event{StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour)}

	if !e.IsActive(now) {
		t.Errorf("event spanning now should be active")
	}
	if e.IsActive(now.Add(-2 * time.Hour)) {
		t.Errorf("event should not be active before start_time")
	}
	if e.IsActive(now.Add(2 * time.Hour)) {
		t.Errorf("event should not be active after end_time")
	}
	if !e.IsActive(e.StartTime) || !e.IsActive(e.EndTime) {
		t.Errorf("the window boundaries are inclusive")
	}
}

func TestEventIsFull(t *testing.T) {
	unlimited := Event{Capacity: 0}
	if unlimited.IsFull(1_000_000) {
		t.Errorf("capacity 0 means unlimited, never full")
	}

	e := Event{Capacity: 10}
	if e.IsFull(9) {
		t.Errorf("9/10 should not be full")
	}
	if !e.IsFull(10) {
		t.Errorf("10/10 should be full")
	}
	if !e.IsFull(11) {
		t.Errorf("over capacity should be full")
	}
}
