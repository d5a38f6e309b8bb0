package pipeline

import (
	"context"

	"github.com/dvloznov/statement-trends/internal/master"
	"github.com/dvloznov/statement-trends/internal/statement"
)

// StatementSource provides the loaded statements of one kind. *statement.Cache
// and *statement.Loader implement it.
type StatementSource interface {
	Load(ctx context.Context) (*statement.LoadResult, error)
}

// MasterSource provides the optional account master of a kind. A nil master
// with a nil error means no master is configured. *master.Store implements it.
type MasterSource interface {
	Get(kind statement.Kind) (*master.Master, error)
}

// StorageService is the subset of storage operations used for exports.
type StorageService interface {
	UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error
}
