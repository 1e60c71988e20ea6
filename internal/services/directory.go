package services

import (
	"context"
	"fmt"

	"github.com/Martyparty1988/PichackaTracker/internal/core"
)

// DirectoryStore is the storage surface the directory loads from.
type DirectoryStore interface {
	ListPersons(ctx context.Context) ([]core.Person, error)
	ListActivities(ctx context.Context) ([]core.Activity, error)
}

// Directory holds the person and activity catalogs in memory. Both
// are seeded by migration and read-only at runtime, so one load at
// startup is enough. Implements timer.RateSource.
type Directory struct {
	persons    map[int64]core.Person
	activities map[int64]core.Activity

	personList   []core.Person
	activityList []core.Activity
}

// LoadDirectory reads the catalogs from storage.
func LoadDirectory(ctx context.Context, store DirectoryStore) (*Directory, error) {
	persons, err := store.ListPersons(ctx)
	if err != nil {
		return nil, fmt.Errorf("load persons: %w", err)
	}
	activities, err := store.ListActivities(ctx)
	if err != nil {
		return nil, fmt.Errorf("load activities: %w", err)
	}
	return NewDirectory(persons, activities), nil
}

// NewDirectory builds a directory from explicit catalogs.
func NewDirectory(persons []core.Person, activities []core.Activity) *Directory {
	d := &Directory{
		persons:      make(map[int64]core.Person, len(persons)),
		activities:   make(map[int64]core.Activity, len(activities)),
		personList:   persons,
		activityList: activities,
	}
	for _, p := range persons {
		d.persons[p.ID] = p
	}
	for _, a := range activities {
		d.activities[a.ID] = a
	}
	return d
}

// Person implements timer.RateSource.
func (d *Directory) Person(id int64) (core.Person, bool) {
	p, ok := d.persons[id]
	return p, ok
}

// Activity looks up one activity.
func (d *Directory) Activity(id int64) (core.Activity, bool) {
	a, ok := d.activities[id]
	return a, ok
}

// Persons returns the person catalog in id order.
func (d *Directory) Persons() []core.Person {
	return d.personList
}

// Activities returns the activity catalog in id order.
func (d *Directory) Activities() []core.Activity {
	return d.activityList
}
