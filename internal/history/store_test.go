package history_test

import (
	"context"
	"testing"
	"time"

	"chapters/internal/history"
	"chapters/internal/testsupport"
)

func TestRecordAndList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, title := range []string{"First", "Second", "Third"} {
		_, err := store.Record(ctx, history.Episode{
			RunID:         "run",
			PodcastTitle:  "Show",
			EpisodeNumber: i + 1,
			EpisodeTitle:  title,
			SourcePath:    "/in/" + title + ".wav",
			OutputPath:    "/out/" + title + ".mp3",
			SizeBytes:     int64(1000 * (i + 1)),
			ChapterCount:  i,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].EpisodeTitle != "Third" || all[2].EpisodeTitle != "First" {
		t.Fatalf("unexpected order: %+v", all)
	}
	if !all[2].CreatedAt.Equal(base) {
		t.Fatalf("created_at round trip: %v", all[2].CreatedAt)
	}

	limited, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 episodes, got %d", len(limited))
	}
}

func TestListOrdersSubSecondTimestamps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	for _, ep := range []struct {
		title string
		at    time.Time
	}{
		{"Earlier", base.Add(100 * time.Millisecond)},
		{"Later", base.Add(120 * time.Millisecond)},
	} {
		if _, err := store.Record(ctx, history.Episode{
			SourcePath:   "/in/" + ep.title + ".wav",
			OutputPath:   "/out/" + ep.title + ".mp3",
			EpisodeTitle: ep.title,
			CreatedAt:    ep.at,
		}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].EpisodeTitle != "Later" {
		t.Fatalf("expected newest first, got %+v", all)
	}
	if !all[1].CreatedAt.Equal(base.Add(100 * time.Millisecond)) {
		t.Fatalf("created_at round trip: %v", all[1].CreatedAt)
	}
}

func TestSuggestNext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	if next, err := store.SuggestNext(ctx, "Show"); err != nil || next != 0 {
		t.Fatalf("empty history suggest = %d, %v", next, err)
	}
	for _, n := range []int{4, 9, 7} {
		if _, err := store.Record(ctx, history.Episode{PodcastTitle: "Show", EpisodeNumber: n, SourcePath: "a.wav", OutputPath: "a.mp3"}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if _, err := store.Record(ctx, history.Episode{PodcastTitle: "Other", EpisodeNumber: 50, SourcePath: "b.wav", OutputPath: "b.mp3"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	next, err := store.SuggestNext(ctx, "show")
	if err != nil {
		t.Fatalf("SuggestNext: %v", err)
	}
	if next != 10 {
		t.Fatalf("expected 10, got %d", next)
	}
	last, err := store.LastForPodcast(ctx, "Missing")
	if err != nil || last != nil {
		t.Fatalf("expected nil for unknown podcast, got %+v %v", last, err)
	}
	if next, _ := store.SuggestNext(ctx, ""); next != 0 {
		t.Fatalf("blank title should not suggest, got %d", next)
	}
}

func TestRecordRequiresPaths(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	if _, err := store.Record(context.Background(), history.Episode{PodcastTitle: "x"}); err == nil {
		t.Fatal("expected error without paths")
	}
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Record(context.Background(), history.Episode{SourcePath: "a", OutputPath: "b"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenHistory(t, cfg)
	list, err := reopened.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected persisted episode, got %d", len(list))
	}
	if reopened.Path() != cfg.HistoryPath() {
		t.Fatalf("unexpected path %s", reopened.Path())
	}
}
