package dummydb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/assessment"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/batch"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/calendar"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/onboarding"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

type (
	memberKey   struct{ batchID, userID string }
	progressKey struct{ itemID, traineeID string }

	tables struct {
		users       map[string]user.User
		courses     map[string]course.Course
		modules     map[string]course.Module
		lectures    map[string]course.Lecture
		assessments map[string]assessment.Assessment
		grades      map[string]assessment.Grade
		batches     map[string]batch.Batch
		members     map[memberKey]batch.Member
		quarters    map[string]batch.Quarter
		schedules   map[string]batch.Schedule
		events      map[string]calendar.Event
		items       map[string]onboarding.Item
		progress    map[progressKey]onboarding.Progress
	}

	// DB is an in-memory database emulating the constraints and cascades of the SQL schema.
	DB struct {
		sync.RWMutex
		tables

		txMu sync.Mutex // transactions run one at a time
	}
)

var _ core.TxRunner = (*DB)(nil) // interface compliance check

func Open() (*DB, error) {
	return &DB{tables: newTables()}, nil
}

func newTables() tables {
	return tables{
		users:       make(map[string]user.User),
		courses:     make(map[string]course.Course),
		modules:     make(map[string]course.Module),
		lectures:    make(map[string]course.Lecture),
		assessments: make(map[string]assessment.Assessment),
		grades:      make(map[string]assessment.Grade),
		batches:     make(map[string]batch.Batch),
		members:     make(map[memberKey]batch.Member),
		quarters:    make(map[string]batch.Quarter),
		schedules:   make(map[string]batch.Schedule),
		events:      make(map[string]calendar.Event),
		items:       make(map[string]onboarding.Item),
		progress:    make(map[progressKey]onboarding.Progress),
	}
}

func (t tables) clone() tables {
	c := newTables()
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.courses {
		c.courses[k] = v
	}
	for k, v := range t.modules {
		c.modules[k] = v
	}
	for k, v := range t.lectures {
		c.lectures[k] = v
	}
	for k, v := range t.assessments {
		c.assessments[k] = v
	}
	for k, v := range t.grades {
		c.grades[k] = v
	}
	for k, v := range t.batches {
		c.batches[k] = v
	}
	for k, v := range t.members {
		c.members[k] = v
	}
	for k, v := range t.quarters {
		c.quarters[k] = v
	}
	for k, v := range t.schedules {
		c.schedules[k] = v
	}
	for k, v := range t.events {
		c.events[k] = v
	}
	for k, v := range t.items {
		c.items[k] = v
	}
	for k, v := range t.progress {
		c.progress[k] = v
	}
	return c
}

// RunInTx restores the tables as they were before fn if it fails.
// Transactions are serialized. Writes made outside a transaction during fn are lost on rollback.
func (db *DB) RunInTx(_ context.Context, fn func(tx core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.RLock()
	snapshot := db.tables.clone()
	db.RUnlock()

	if err := fn(nil); err != nil {
		db.Lock()
		db.tables = snapshot
		db.Unlock()
		return err
	}
	return nil
}

// Flush empties every table.
func (db *DB) Flush() {
	db.Lock()
	defer db.Unlock()
	db.tables = newTables()
}

// sortByOrdering sorts items by the given orderings, falling back to less.
// field returns the value of an ordering field: a string, int, float64, bool, time.Time or core.Date.
func sortByOrdering[T any](items []T, ordering []core.DBOrdering, field func(T, string) interface{}, less func(a, b T) bool) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range ordering {
			c := compare(field(items[i], ord.Field), field(items[j], ord.Field))
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return less(items[i], items[j])
	})
}

func compare(a, b interface{}) int {
	switch av := a.(type) {
	case string:
		return strings.Compare(strings.ToLower(av), strings.ToLower(b.(string)))
	case int:
		bv := b.(int)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	case bool:
		bv := b.(bool)
		switch {
		case !av && bv:
			return -1
		case av && !bv:
			return 1
		}
	case time.Time:
		bv := b.(time.Time)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		}
	case core.Date:
		bv := b.(core.Date)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		}
	}
	return 0
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
