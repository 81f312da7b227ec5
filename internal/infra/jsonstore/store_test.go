package jsonstore

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/runoshun/label-crew/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := New(filepath.Join(t.TempDir(), "tasks.json"))
	if _, err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return store
}

func TestStore_Initialize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "tasks.json")

	store := New(path)
	if store.IsInitialized() {
		t.Fatal("IsInitialized() = true before Initialize")
	}

	// Initialize should create the file
	repaired, err := store.Initialize()
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if repaired {
		t.Error("Initialize() reported repair on a fresh store")
	}

	// File should exist
	if _, err := os.Stat(path); err != nil {
		t.Errorf("store file not created: %v", err)
	}
	if !store.IsInitialized() {
		t.Error("IsInitialized() = false after Initialize")
	}

	// Initialize again should be idempotent
	repaired, err = store.Initialize()
	if err != nil {
		t.Fatalf("Initialize() second call error = %v", err)
	}
	if repaired {
		t.Error("Initialize() second call reported repair")
	}
}

func TestStore_InitializeRepairsCounters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	content := `{"tasks":{"4":{"data":{"text":"x"},"annotations":[{"id":"9","result":[]}]}},"meta":{"nextTaskID":1,"nextAnnotationID":1}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	store := New(path)
	repaired, err := store.Initialize()
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !repaired {
		t.Error("Initialize() repaired = false, want true")
	}

	id, err := store.NextID()
	if err != nil {
		t.Fatalf("NextID() error = %v", err)
	}
	if id != 5 {
		t.Errorf("NextID() = %d, want 5", id)
	}
	annID, err := store.NextAnnotationID()
	if err != nil {
		t.Fatalf("NextAnnotationID() error = %v", err)
	}
	if annID != 10 {
		t.Errorf("NextAnnotationID() = %d, want 10", annID)
	}
}

func TestStore_NotInitialized(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "tasks.json"))

	if _, err := store.Get(1); !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("Get() error = %v, want ErrNotInitialized", err)
	}
	if _, err := store.NextID(); !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("NextID() error = %v, want ErrNotInitialized", err)
	}
}

func TestStore_NextID(t *testing.T) {
	store := newTestStore(t)

	id1, err := store.NextID()
	if err != nil {
		t.Fatalf("NextID() error = %v", err)
	}
	if id1 != 1 {
		t.Errorf("NextID() = %d, want 1", id1)
	}

	id2, err := store.NextID()
	if err != nil {
		t.Fatalf("NextID() error = %v", err)
	}
	if id2 != 2 {
		t.Errorf("NextID() = %d, want 2", id2)
	}
}

func TestStore_NextAnnotationIDIndependent(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.NextID(); err != nil {
		t.Fatal(err)
	}
	id, err := store.NextAnnotationID()
	if err != nil {
		t.Fatalf("NextAnnotationID() error = %v", err)
	}
	if id != 1 {
		t.Errorf("NextAnnotationID() = %d, want 1", id)
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)

	now := time.Now().Truncate(time.Second) // JSON loses nanoseconds
	task := &domain.Task{
		ID:      1,
		Created: now,
		Data:    map[string]any{"text": "great movie"},
		Annotations: []domain.Annotation{{
			PK:        "3",
			CreatedBy: "alice",
			Result:    domain.Result{{"from_name": "sentiment", "type": "choices"}},
			LeadTime:  2.5,
		}},
		Predictions: []domain.Prediction{{ID: "p1", Score: 0.7}},
	}

	if err := store.Save(task); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Get(1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() returned nil")
	}

	if got.ID != task.ID {
		t.Errorf("ID = %d, want %d", got.ID, task.ID)
	}
	if got.Data["text"] != "great movie" {
		t.Errorf("Data = %v, want text", got.Data)
	}
	if !got.Created.Equal(now) {
		t.Errorf("Created = %v, want %v", got.Created, now)
	}
	if len(got.Annotations) != 1 || got.Annotations[0].PK != "3" {
		t.Fatalf("Annotations = %+v", got.Annotations)
	}
	if got.Annotations[0].LeadTime != 2.5 {
		t.Errorf("LeadTime = %v, want 2.5", got.Annotations[0].LeadTime)
	}
	if len(got.Predictions) != 1 || got.Predictions[0].ID != "p1" {
		t.Errorf("Predictions = %+v", got.Predictions)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Get(999)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Errorf("Get() = %v, want nil", got)
	}
}

func TestStore_SaveAdvancesNextID(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(&domain.Task{ID: 7}); err != nil {
		t.Fatal(err)
	}
	id, err := store.NextID()
	if err != nil {
		t.Fatal(err)
	}
	if id != 8 {
		t.Errorf("NextID() = %d, want 8", id)
	}
}

func TestStore_List(t *testing.T) {
	store := newTestStore(t)

	tasks := []*domain.Task{
		{ID: 3, Annotations: []domain.Annotation{{PK: "1", WasCancelled: true}}},
		{ID: 1},
		{ID: 2, Annotations: []domain.Annotation{{PK: "2"}}},
	}
	for _, task := range tasks {
		if err := store.Save(task); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter domain.TaskFilter
		want   []int
	}{
		{"all", domain.TaskFilter{}, []int{1, 2, 3}},
		{"new", domain.TaskFilter{Status: domain.TaskStatusNew}, []int{1}},
		{"labeled", domain.TaskFilter{Status: domain.TaskStatusLabeled}, []int{2}},
		{"skipped", domain.TaskFilter{Status: domain.TaskStatusSkipped}, []int{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() len = %d, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("List()[%d].ID = %d, want %d", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(&domain.Task{ID: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(1); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, err := store.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("task still exists after Delete")
	}
}

func TestStore_Project(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.GetProject(); !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("GetProject() error = %v, want ErrNotInitialized", err)
	}

	project := &domain.Project{Title: "reviews", LabelConfig: domain.DefaultLabelConfig}
	if err := store.SaveProject(project); err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}

	got, err := store.GetProject()
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got.Title != "reviews" || got.LabelConfig != domain.DefaultLabelConfig {
		t.Errorf("GetProject() = %+v", got)
	}
}

func TestStore_ConcurrentNextAnnotationID(t *testing.T) {
	store := newTestStore(t)

	const n = 10
	ids := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := store.NextAnnotationID()
			if err != nil {
				t.Error(err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate id %d", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("got %d unique ids, want %d", len(seen), n)
	}
}
