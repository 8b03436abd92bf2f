package dataset

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/rlqty/internal/storage"
)

// ObjectSource loads the datasets from objects under Prefix, matched by base name.
type ObjectSource struct {
	Store  storage.ObjectStorage
	Prefix string
}

func (s ObjectSource) Load(ctx context.Context) (*Loaded, error) {
	objects, err := s.Store.ListObjects(ctx, s.Prefix)
	if err != nil {
		return nil, err
	}

	b := make(Bundle, len(Kinds))
	for _, obj := range objects {
		kind, ok := kindFromName(path.Base(obj.Key))
		if !ok {
			continue
		}
		if prev, seen := b[kind]; seen {
			return nil, fmt.Errorf("both %s and %s hold %s", prev.Name, obj.Key, kind)
		}
		key := obj.Key
		b[kind] = Input{
			Name: key,
			Open: func(ctx context.Context) (io.ReadCloser, error) { return s.Store.OpenObject(ctx, key) },
		}
	}
	return b.Load(ctx)
}

// FolderDownloader fetches every dataset file of a remote folder into dir.
type FolderDownloader interface {
	DownloadFolder(ctx context.Context, folderID, dir string) ([]string, error)
}

// DriveSource downloads a Drive folder into Dir and loads it from there.
type DriveSource struct {
	Downloader FolderDownloader
	FolderID   string
	Dir        string
}

func (s DriveSource) Load(ctx context.Context) (*Loaded, error) {
	paths, err := s.Downloader.DownloadFolder(ctx, s.FolderID, s.Dir)
	if err != nil {
		return nil, fmt.Errorf("download drive folder: %w", err)
	}

	byKind := make(map[Kind]string, len(Kinds))
	for _, p := range paths {
		kind, ok := kindFromName(filepath.Base(p))
		if !ok {
			continue
		}
		if prev, seen := byKind[kind]; seen {
			return nil, fmt.Errorf("both %s and %s hold %s", prev, p, kind)
		}
		byKind[kind] = p
	}
	return FileBundle(byKind).Load(ctx)
}

func kindFromName(name string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".csv" && ext != ".xlsx" {
		return "", false
	}
	kind, err := ParseKind(strings.TrimSuffix(name, filepath.Ext(name)))
	return kind, err == nil
}

var (
	_ Source = Bundle(nil)
	_ Source = ObjectSource{}
	_ Source = DriveSource{}
)
