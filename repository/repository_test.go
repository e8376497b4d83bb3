package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"party-planner/domain"
	"party-planner/storage"
)

func ptrString(s string) *string { return &s }

// sequence returns ids id-1, id-2, ...
func sequence() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newRepos(t *testing.T) (*Repositories, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(storage.New(storage.NewRedis(client)), WithIDGenerator(sequence())), mr
}

func TestAddThenListRoundTrip(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()

	event := domain.Event{Title: "BBQ", Datetime: "2025-06-01T16:00:00.000Z", UsePartyDate: true}
	if _, err := repos.Events.Add(ctx, event); err != nil {
		t.Fatalf("add event: %v", err)
	}
	events, err := repos.Events.List(ctx)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	event.ID = "id-1"
	if !reflect.DeepEqual(events, []domain.Event{event}) {
		t.Fatalf("events: expected %v, got %v", event, events)
	}

	task := domain.Task{Text: "Pack bags", Date: ptrString("2025-06-01T09:00:00Z")}
	if _, err := repos.Tasks.Add(ctx, task); err != nil {
		t.Fatalf("add task: %v", err)
	}
	tasks, _ := repos.Tasks.List(ctx)
	task.ID = "id-2"
	if !reflect.DeepEqual(tasks, []domain.Task{task}) {
		t.Fatalf("tasks: expected %v, got %v", task, tasks)
	}

	guest := domain.Guest{FirstName: "Ann", LastName: "Lee", Phone: "+1555", Email: "ann@example.com", DietaryRestrictions: domain.Restriction("vegan")}
	if _, err := repos.Guests.Add(ctx, guest); err != nil {
		t.Fatalf("add guest: %v", err)
	}
	guests, _ := repos.Guests.List(ctx)
	guest.ID = "id-3"
	if !reflect.DeepEqual(guests, []domain.Guest{guest}) {
		t.Fatalf("guests: expected %v, got %v", guest, guests)
	}

	invitation := domain.Invitation{Text: "Come!"}
	if _, err := repos.Invitations.Add(ctx, invitation); err != nil {
		t.Fatalf("add invitation: %v", err)
	}
	invitations, _ := repos.Invitations.List(ctx)
	invitation.ID = "id-4"
	if !reflect.DeepEqual(invitations, []domain.Invitation{invitation}) {
		t.Fatalf("invitations: expected %v, got %v", invitation, invitations)
	}

	item := domain.ShoppingItem{Name: "Chips", Price: 2.5, Quantity: 4}
	if _, err := repos.Shopping.Add(ctx, item); err != nil {
		t.Fatalf("add item: %v", err)
	}
	items, _ := repos.Shopping.List(ctx)
	item.ID = "id-5"
	item.Total = 10
	if !reflect.DeepEqual(items, []domain.ShoppingItem{item}) {
		t.Fatalf("shopping: expected %v, got %v", item, items)
	}
}

func TestGuestWithoutRestrictionPersistsNo(t *testing.T) {
	repos, mr := newRepos(t)
	if _, err := repos.Guests.Add(context.Background(), domain.Guest{FirstName: "Bo"}); err != nil {
		t.Fatalf("add guest: %v", err)
	}
	raw, err := mr.Get("guests")
	if err != nil {
		t.Fatalf("get raw: %v", err)
	}
	want := `[{"id":"id-1","firstName":"Bo","lastName":"","phone":"","email":"","dietaryRestrictions":"No"}]`
	if raw != want {
		t.Fatalf("expected %s, got %s", want, raw)
	}
}

func TestShoppingTotalIsRecomputed(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()
	cases := []struct{ price, quantity float64 }{{0, 5}, {1.1, 3}, {19.99, 0.5}, {1e6, 1e3}}
	for _, tc := range cases {
		items, err := repos.Shopping.Add(ctx, domain.ShoppingItem{Name: "x", Price: tc.price, Quantity: tc.quantity, Total: -1})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		last := items[len(items)-1]
		if last.Total != tc.price*tc.quantity {
			t.Fatalf("add total: expected %v, got %v", tc.price*tc.quantity, last.Total)
		}
		items, err = repos.Shopping.Update(ctx, last.ID, domain.ShoppingItem{Name: "x", Price: tc.price + 1, Quantity: tc.quantity, Total: 999})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		for _, it := range items {
			if it.ID == last.ID && it.Total != (tc.price+1)*tc.quantity {
				t.Fatalf("update total: expected %v, got %v", (tc.price+1)*tc.quantity, it.Total)
			}
		}
	}
	items, _ := repos.Shopping.List(ctx)
	items, err := repos.Shopping.Toggle(ctx, items[0].ID)
	if err != nil || !items[0].Completed {
		t.Fatalf("toggle: %v %v", items, err)
	}
	if Totals([]domain.ShoppingItem{{Total: 1.5}, {Total: 2}}) != 3.5 {
		t.Fatalf("unexpected totals")
	}
}

func TestRemoveUnknownIDLeavesCollection(t *testing.T) {
	repos, mr := newRepos(t)
	ctx := context.Background()
	if _, err := repos.Notes.Add(ctx, domain.Note{Text: "call mum"}); err != nil {
		t.Fatalf("add note: %v", err)
	}
	before, _ := mr.Get("notes")

	notes, err := repos.Notes.Remove(ctx, "missing")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected untouched collection, got %v", notes)
	}
	after, _ := mr.Get("notes")
	if before != after {
		t.Fatalf("document changed: %s -> %s", before, after)
	}

	for name, remove := range map[string]func() error{
		"events":      func() error { _, err := repos.Events.Remove(ctx, "x"); return err },
		"tasks":       func() error { _, err := repos.Tasks.Remove(ctx, "x"); return err },
		"guests":      func() error { _, err := repos.Guests.Remove(ctx, "x"); return err },
		"invitations": func() error { _, err := repos.Invitations.Remove(ctx, "x"); return err },
		"shopping":    func() error { _, err := repos.Shopping.Remove(ctx, "x"); return err },
	} {
		if err := remove(); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
	if mr.Exists("events") || mr.Exists("tasks") {
		t.Fatalf("removing from an empty collection should not write")
	}
}

func TestRemoveDeletesItem(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()
	_, _ = repos.Invitations.Add(ctx, domain.Invitation{Text: "one"})
	_, _ = repos.Invitations.Add(ctx, domain.Invitation{Text: "two"})
	left, err := repos.Invitations.Remove(ctx, "id-1")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(left) != 1 || left[0].Text != "two" {
		t.Fatalf("unexpected collection %v", left)
	}
}

func TestUpdateUnknownIDIsNotFound(t *testing.T) {
	repos, mr := newRepos(t)
	_, err := repos.Events.Update(context.Background(), "nope", domain.Event{Title: "x", Datetime: "2025-01-01T00:00:00Z"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if mr.Exists("events") {
		t.Fatalf("update of unknown id should not write")
	}
}

func TestValidationFailureWritesNothing(t *testing.T) {
	repos, mr := newRepos(t)
	ctx := context.Background()
	if _, err := repos.Events.Add(ctx, domain.Event{Title: "  ", Datetime: "later"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := repos.Shopping.Add(ctx, domain.ShoppingItem{Name: "Ice", Price: -2}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := repos.Party.Save(ctx, domain.PartyInfo{PartyName: "x"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected no writes, got keys %v", keys)
	}
}

func TestGuestsSortedCaseInsensitiveAndStable(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()
	drafts := []domain.Guest{
		{FirstName: "zoe", LastName: "smith"},
		{FirstName: "Adam", LastName: "Smith"},
		{FirstName: "Bea", LastName: "adams"},
		{FirstName: "adam", LastName: "SMITH"},
	}
	for _, g := range drafts {
		if _, err := repos.Guests.Add(ctx, g); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	guests, err := repos.Guests.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var order []string
	for _, g := range guests {
		order = append(order, g.ID)
	}
	want := []string{"id-3", "id-2", "id-4", "id-1"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
}

func TestGuestUpdateKeepsSentinelContract(t *testing.T) {
	repos, mr := newRepos(t)
	ctx := context.Background()
	_, _ = repos.Guests.Add(ctx, domain.Guest{FirstName: "Cy", DietaryRestrictions: domain.Restriction("nuts")})
	if _, err := repos.Guests.Update(ctx, "id-1", domain.Guest{FirstName: "Cy", DietaryRestrictions: domain.DietaryFromToggle(false, "nuts")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	g, err := repos.Guests.Get(ctx, "id-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := g.DietaryRestrictions.Restricted(); ok {
		t.Fatalf("expected no restriction, got %v", g.DietaryRestrictions)
	}
	raw, _ := mr.Get("guests")
	if want := `"dietaryRestrictions":"No"`; !strings.Contains(raw, want) {
		t.Fatalf("expected %s in %s", want, raw)
	}
}

func TestTaskToggleAndReorder(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()
	for _, text := range []string{"a", "b", "c"} {
		if _, err := repos.Tasks.Add(ctx, domain.Task{Text: text}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	tasks, err := repos.Tasks.Toggle(ctx, "id-1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if got := texts(tasks); !reflect.DeepEqual(got, []string{"b", "c", "a"}) || !tasks[2].Completed {
		t.Fatalf("unexpected order after toggle %v", got)
	}

	tasks, err = repos.Tasks.Add(ctx, domain.Task{Text: "d"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := texts(tasks); !reflect.DeepEqual(got, []string{"b", "c", "d", "a"}) {
		t.Fatalf("new task should join the active partition, got %v", got)
	}

	tasks, err = repos.Tasks.Reorder(ctx, []string{"id-4", "id-1", "unknown", "id-2"})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if got := texts(tasks); !reflect.DeepEqual(got, []string{"d", "b", "c", "a"}) {
		t.Fatalf("unexpected order after reorder %v", got)
	}

	tasks, err = repos.Tasks.Toggle(ctx, "id-1")
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if got := texts(tasks); !reflect.DeepEqual(got, []string{"d", "b", "c", "a"}) || tasks[3].Completed {
		t.Fatalf("reopened task should end the active partition, got %v", got)
	}

	if _, err := repos.Tasks.Toggle(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTaskUpdateKeepsPartitions(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()
	_, _ = repos.Tasks.Add(ctx, domain.Task{Text: "a"})
	_, _ = repos.Tasks.Add(ctx, domain.Task{Text: "b"})
	tasks, err := repos.Tasks.Update(ctx, "id-1", domain.Task{Text: "a!", Completed: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := texts(tasks); !reflect.DeepEqual(got, []string{"b", "a!"}) {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestCorruptCollectionReadsEmpty(t *testing.T) {
	repos, mr := newRepos(t)
	ctx := context.Background()
	if err := mr.Set("tasks", "not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	tasks, err := repos.Tasks.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected empty list, got %v", tasks)
	}

	doc := `[{"id":"a","title":"A","datetime":"2025-06-01T10:00:00Z"},{"id":7,"title":"B"}]`
	if err := mr.Set("events", doc); err != nil {
		t.Fatalf("seed: %v", err)
	}
	events, err := repos.Events.List(ctx)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events from a mistyped document, got %+v", events)
	}
	events, err = repos.Events.Add(ctx, domain.Event{Title: "fresh", Datetime: "2025-06-01T12:00:00Z"})
	if err != nil {
		t.Fatalf("add event: %v", err)
	}
	if len(events) != 1 || events[0].Title != "fresh" {
		t.Fatalf("expected only the new event, got %+v", events)
	}
}

// flakyGet fails the next Get when armed.
type flakyGet struct {
	storage.Backend
	fail bool
}

func (f *flakyGet) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.fail {
		f.fail = false
		return nil, false, errors.New("connection reset")
	}
	return f.Backend.Get(ctx, key)
}

func TestBackendReadFailureDoesNotOverwrite(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backend := &flakyGet{Backend: storage.NewRedis(client)}
	repos := New(storage.New(backend), WithIDGenerator(sequence()))
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		if _, err := repos.Events.Add(ctx, domain.Event{Title: title, Datetime: "2025-06-01T10:00:00Z"}); err != nil {
			t.Fatalf("add %s: %v", title, err)
		}
	}
	before, err := mr.Get("events")
	if err != nil {
		t.Fatalf("get stored events: %v", err)
	}

	backend.fail = true
	events, err := repos.Events.Add(ctx, domain.Event{Title: "d", Datetime: "2025-06-01T10:00:00Z"})
	if !storage.IsReadError(err) {
		t.Fatalf("expected read error, got %v (events %+v)", err, events)
	}
	after, err := mr.Get("events")
	if err != nil {
		t.Fatalf("get stored events: %v", err)
	}
	if after != before {
		t.Fatalf("stored collection changed after failed read:\nbefore %s\nafter  %s", before, after)
	}

	listed, err := repos.Events.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := len(listed); got != 3 {
		t.Fatalf("expected 3 events, got %d", got)
	}
}

func TestPartyInfoLifecycle(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()
	info, err := repos.Party.Get(ctx)
	if err != nil || info != nil {
		t.Fatalf("expected no party info, got %v %v", info, err)
	}
	saved, err := repos.Party.Save(ctx, domain.PartyInfo{
		PartyName: " Picnic ",
		Date:      "2025-06-01T00:00:00.000Z",
		StartTime: "2025-06-01T12:00:00.000Z",
		EndTime:   "2025-06-01T15:00:00.000Z",
		Venue:     "Park",
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.PartyName != "Picnic" {
		t.Fatalf("expected trimmed name, got %q", saved.PartyName)
	}
	got, err := repos.Party.Get(ctx)
	if err != nil || !reflect.DeepEqual(got, saved) {
		t.Fatalf("expected %v, got %v (%v)", saved, got, err)
	}
	if err := repos.Party.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if info, _ := repos.Party.Get(ctx); info != nil {
		t.Fatalf("expected cleared party info, got %v", info)
	}
}

func TestInvitationFromTemplate(t *testing.T) {
	repos, _ := newRepos(t)
	invitations, err := repos.Invitations.AddFromTemplate(context.Background(), 2, nil)
	if err != nil {
		t.Fatalf("add from template: %v", err)
	}
	if invitations[0].Text != "Party info not available" {
		t.Fatalf("unexpected text %q", invitations[0].Text)
	}
}

type failingStore struct{ Store }

func (failingStore) ReadOrEmpty(context.Context, storage.Key, any) (bool, error) { return false, nil }

func (failingStore) Write(_ context.Context, key storage.Key, _ any) error {
	return &storage.WriteError{Key: key, Err: errors.New("disk full")}
}

func TestWriteFailureSurfaces(t *testing.T) {
	repos := New(failingStore{})
	_, err := repos.Notes.Add(context.Background(), domain.Note{})
	if !storage.IsWriteError(err) {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestMonotonicIDsIncrease(t *testing.T) {
	next := Monotonic()
	prev := next()
	for i := 0; i < 1000; i++ {
		id := next()
		if len(id) < len(prev) || (len(id) == len(prev) && id <= prev) {
			t.Fatalf("id %s not greater than %s", id, prev)
		}
		prev = id
	}
	if _, ok := IDStrategy("sequential"); ok {
		t.Fatalf("unknown strategy accepted")
	}
}

func texts(tasks []domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Text
	}
	return out
}
