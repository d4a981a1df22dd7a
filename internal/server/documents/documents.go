// Package documents files tutor submissions into object storage: a folder,
// the uploaded files and a key/value data sheet.
package documents

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tutorhub/internal/common"
)

// Folder is a named container; Key is the storage prefix.
type Folder struct {
	Name string
	Key  string
}

type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Row is one key/value line of a data sheet.
type Row struct {
	Key   string
	Value string
}

type Store interface {
	CreateFolder(ctx context.Context, name string) (Folder, error)
	Upload(ctx context.Context, folder Folder, f File) (string, error)
	WriteSheet(ctx context.Context, folder Folder, name string, rows []Row) (string, error)
	DeleteFolder(ctx context.Context, folder Folder) error
	PresignGet(ctx context.Context, key string) (string, error)
}

type Submission struct {
	FolderName string
	Files      []File
	SheetName  string
	Rows       []Row
}

type Result struct {
	Folder   Folder
	FileKeys []string
	SheetKey string
}

const maxFiles = 2

// Submit creates the folder, uploads the files and writes the sheet. When a
// step fails after the folder exists, the folder and everything in it is
// deleted before the error is returned.
func Submit(ctx context.Context, store Store, s Submission) (res Result, err error) {
	if len(s.Files) == 0 || len(s.Files) > maxFiles {
		return Result{}, fmt.Errorf("%w: expected 1 or 2 files, got %d", common.ErrInvalidInput, len(s.Files))
	}

	folder, err := store.CreateFolder(ctx, s.FolderName)
	if err != nil {
		return Result{}, fmt.Errorf("%w: create folder %q: %w", common.ErrUpstream, s.FolderName, err)
	}

	defer func() {
		if err == nil {
			return
		}
		if cerr := store.DeleteFolder(context.WithoutCancel(ctx), folder); cerr != nil {
			err = fmt.Errorf("%w (cleanup of %s failed: %v)", err, folder.Key, cerr)
		}
	}()

	res.Folder = folder
	for _, f := range s.Files {
		key, err := store.Upload(ctx, folder, f)
		if err != nil {
			return Result{}, fmt.Errorf("%w: upload %q: %w", common.ErrUpstream, f.Name, err)
		}
		res.FileKeys = append(res.FileKeys, key)
	}

	res.SheetKey, err = store.WriteSheet(ctx, folder, s.SheetName, s.Rows)
	if err != nil {
		return Result{}, fmt.Errorf("%w: write sheet %q: %w", common.ErrUpstream, s.SheetName, err)
	}

	return res, nil
}
