package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Storage holds uploaded gradesheets: archived uploads and linked sheets
// fetched by the import worker.
type Storage interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Upload(ctx context.Context, key string, data io.Reader) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ArchiveKey is the object key an upload by teacherID is archived under.
func ArchiveKey(teacherID int64, fileName string) string {
	name := strings.ReplaceAll(path.Base(strings.ReplaceAll(fileName, "\\", "/")), " ", "_")
	if name == "." || name == "/" {
		name = "upload"
	}
	return fmt.Sprintf("uploads/%d/%s-%s", teacherID, uuid.NewString(), name)
}
