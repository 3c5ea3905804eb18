package storage

import (
	"context"
	"testing"

	"github.com/kotaehq/kotae/internal/models"
)

func testMetas() []*models.ChunkMeta {
	return []*models.ChunkMeta{
		{Text: "hero text", SectionTitle: "Hero", URL: "https://example.com/", ChunkIndex: 0, DocID: "kb_v1"},
		{Text: "contact text", SectionTitle: "Contact", URL: "https://example.com/contact", ChunkIndex: 0, DocID: "kb_v1"},
	}
}

func TestMetaStoreReplaceAndLoad(t *testing.T) {
	store, err := NewMetaStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.Replace(ctx, "gen-1", testMetas()); err != nil {
		t.Fatal(err)
	}
	metas, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 metas, got %d", len(metas))
	}
	if metas[0].SectionTitle != "Hero" || metas[1].SectionTitle != "Contact" {
		t.Errorf("position order not preserved: %s, %s", metas[0].SectionTitle, metas[1].SectionTitle)
	}
	n, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Count=%d", n)
	}
}

func TestMetaStoreReplaceDropsOldGeneration(t *testing.T) {
	store, err := NewMetaStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.Replace(ctx, "gen-1", testMetas()); err != nil {
		t.Fatal(err)
	}
	if err := store.Replace(ctx, "gen-2", testMetas()[:1]); err != nil {
		t.Fatal(err)
	}
	metas, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 1 {
		t.Errorf("old generation rows survived: %d", len(metas))
	}
	gen, _, err := store.Generation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if gen != "gen-2" {
		t.Errorf("Generation=%s", gen)
	}
}

func TestMetaStoreEmptyGeneration(t *testing.T) {
	store, err := NewMetaStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	gen, _, err := store.Generation(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if gen != "" {
		t.Errorf("expected empty generation, got %s", gen)
	}
}
