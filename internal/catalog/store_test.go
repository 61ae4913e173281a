package catalog

import (
	"context"
	"path/filepath"
	"testing"
)

func TestIntakeAssetHappyPath(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "catalog.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	assetID, err := store.IntakeAsset(ctx, "Acme Sounds - Pack Vol 1", true, []File{
		{Basename: "kick.wav", Dirname: "", Size: 17, Filetype: "wav"},
	})
	if err != nil {
		t.Fatalf("IntakeAsset: %v", err)
	}

	cname, err := store.Cname(ctx, assetID)
	if err != nil {
		t.Fatalf("Cname: %v", err)
	}
	if cname != "Acme Sounds - Pack Vol 1" {
		t.Errorf("Cname = %q", cname)
	}

	files, err := store.FilesByAsset(ctx, assetID, nil)
	if err != nil {
		t.Fatalf("FilesByAsset: %v", err)
	}
	if len(files) != 1 || files[0].Basename != "kick.wav" || files[0].Size != 17 || files[0].Filetype != "wav" {
		t.Fatalf("unexpected files: %+v", files)
	}

	ids, err := store.AllAssetIDs(ctx, "")
	if err != nil {
		t.Fatalf("AllAssetIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != assetID {
		t.Fatalf("AllAssetIDs = %v", ids)
	}
}

func TestIntakeAssetRejectsNonCanonicalName(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "catalog.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	_, err = store.IntakeAsset(context.Background(), "not canonical", true, nil)
	if err == nil {
		t.Fatal("expected error for non-canonical cname")
	}
}

func TestFilesByAssetFiletypeFilter(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "catalog.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	assetID, err := store.IntakeAsset(ctx, "Acme Sounds - Pack Vol 1", true, []File{
		{Basename: "kick.wav", Dirname: "", Size: 17, Filetype: "wav"},
		{Basename: "readme.txt", Dirname: "", Size: 5, Filetype: "txt"},
	})
	if err != nil {
		t.Fatalf("IntakeAsset: %v", err)
	}

	files, err := store.FilesByAsset(ctx, assetID, []string{"wav"})
	if err != nil {
		t.Fatalf("FilesByAsset: %v", err)
	}
	if len(files) != 1 || files[0].Basename != "kick.wav" {
		t.Fatalf("filtered files = %+v", files)
	}
}
