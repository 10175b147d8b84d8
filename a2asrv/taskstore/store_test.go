// Copyright 2025 The A2A Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package taskstore

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/google/go-cmp/cmp"

	_ "modernc.org/sqlite"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type storeFactory func(t *testing.T) Store

func newInMemoryStore(t *testing.T) Store {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	return NewInMemory(&InMemoryStoreConfig{TimeProvider: clock.Now})
}

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewSQL(t.Context(), db, DialectSQLite)
	if err != nil {
		t.Fatalf("NewSQL() error = %v", err)
	}
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	store.now = clock.Now
	return store
}

var factories = map[string]storeFactory{
	"in-memory": newInMemoryStore,
	"sqlite":    newSQLiteStore,
}

func newTask(t *testing.T, id a2a.TaskID, text string) *a2a.Task {
	t.Helper()
	msg, err := a2a.NewMessage(a2a.AgentUser, "orchestrator", text)
	if err != nil {
		t.Fatalf("a2a.NewMessage() error = %v", err)
	}
	return a2a.NewSubmittedTask(a2a.TaskInfo{TaskID: id, ContextID: "ctx-" + string(id)}, msg)
}

func mustSave(t *testing.T, store Store, tasks ...*a2a.Task) {
	t.Helper()
	for _, task := range tasks {
		if err := store.Save(t.Context(), task); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
}

func mustGet(t *testing.T, store Store, id a2a.TaskID) *a2a.Task {
	t.Helper()
	got, found, err := store.Get(t.Context(), id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatalf("Get() found = false for task %s", id)
	}
	return got
}

func TestStore_GetSaved(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			task := newTask(t, "t1", "I want to buy a laptop")
			task.Context.SetIfAbsent("product", "laptop")
			task.Metadata = map[string]any{"k1": "v1"}
			mustSave(t, store, task)

			got := mustGet(t, store, task.ID)
			if diff := cmp.Diff(task, got); diff != "" {
				t.Fatalf("Get() wrong result (+got,-want) diff = %s", diff)
			}
		})
	}
}

func TestStore_GetMissingIsNotAnError(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			got, found, err := store.Get(t.Context(), "missing")
			if err != nil || found || got != nil {
				t.Fatalf("Get(missing) = (%v, %v, %v), want (nil, false, nil)", got, found, err)
			}
		})
	}
}

func TestStore_LastWriteWins(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			task := newTask(t, "t1", "hello")
			mustSave(t, store, task)

			task.Status = a2a.TaskStatus{State: a2a.TaskStateWorking}
			mustSave(t, store, task)
			task.Status = a2a.TaskStatus{State: a2a.TaskStateCompleted}
			mustSave(t, store, task)

			if got := mustGet(t, store, task.ID); got.Status.State != a2a.TaskStateCompleted {
				t.Fatalf("Get().Status.State = %q, want %q", got.Status.State, a2a.TaskStateCompleted)
			}
		})
	}
}

func TestStore_StoredTaskIsolated(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			task := newTask(t, "t1", "hello")
			mustSave(t, store, task)

			task.History = append(task.History, task.History[0])
			got := mustGet(t, store, task.ID)
			if len(got.History) != 1 {
				t.Fatalf("len(History) = %d, want 1: stored task was modified through the saved pointer", len(got.History))
			}

			got.Status.State = a2a.TaskStateFailed
			if again := mustGet(t, store, task.ID); again.Status.State != a2a.TaskStateSubmitted {
				t.Fatalf("Status.State = %q, stored task was modified through the returned pointer", again.Status.State)
			}
		})
	}
}

func TestStore_SaveValidation(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			for _, task := range []*a2a.Task{nil, {}, {ID: "t1"}} {
				if err := store.Save(t.Context(), task); !errors.Is(err, a2a.ErrInvalidParams) {
					t.Errorf("Save(%v) error = %v, want %v", task, err, a2a.ErrInvalidParams)
				}
			}
		})
	}
}

func TestStore_List(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			mustSave(t, store, newTask(t, "t1", "a"), newTask(t, "t2", "b"), newTask(t, "t3", "c"))
			mustSave(t, store, mustGet(t, store, "t1"))

			tasks, err := store.List(t.Context())
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			var got []a2a.TaskID
			for _, task := range tasks {
				got = append(got, task.ID)
			}
			if diff := cmp.Diff([]a2a.TaskID{"t1", "t3", "t2"}, got); diff != "" {
				t.Fatalf("List() wrong order (+got,-want) diff = %s", diff)
			}
		})
	}
}

func TestStore_ConcurrentAccessAcrossTasks(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			var wg sync.WaitGroup
			errs := make(chan error, 20)
			for i := range 20 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					id := a2a.TaskID(fmt.Sprintf("task-%d", i))
					task := &a2a.Task{ID: id, ContextID: "c", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}}
					if err := store.Save(t.Context(), task); err != nil {
						errs <- err
						return
					}
					if _, found, err := store.Get(t.Context(), id); err != nil || !found {
						errs <- fmt.Errorf("Get(%s) = %v, %v", id, found, err)
					}
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				t.Error(err)
			}
		})
	}
}

func TestNewSQL_UnknownDialect(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()
	if _, err := NewSQL(t.Context(), db, "oracle"); err == nil {
		t.Fatal("NewSQL(oracle) error = nil, want error")
	}
}
