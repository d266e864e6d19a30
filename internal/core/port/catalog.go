package port

import (
	"context"
	"sagiri/internal/core/domain"
)

type Catalog interface {
	// FetchPage retrieves the page of a user's anime library starting at offset.
	FetchPage(ctx context.Context, catalogID, offset int64) (domain.Page, error)
	// FetchDetail retrieves a single anime together with the user's progress on it.
	FetchDetail(ctx context.Context, catalogID, itemID int64) (domain.DetailItem, error)
}
