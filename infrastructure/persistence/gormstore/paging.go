package gormstore

import (
	"tasktrack/domain/shared"

	"gorm.io/gorm"
)

// applyTimeIDCursor restricts query to rows strictly after the cursor key and
// fetches one extra row so shared.BuildPage can tell whether another page exists.
func applyTimeIDCursor(query *gorm.DB, page shared.PageRequest) (*gorm.DB, error) {
	if page.Cursor != "" {
		after, err := shared.TimeIDCursor.Decode(page.Cursor)
		if err != nil {
			return nil, err
		}
		query = query.Where("(created_at > ? OR (created_at = ? AND id > ?))", after.At, after.At, after.ID)
	}
	return query.Order("created_at ASC, id ASC").Limit(page.Limit + 1), nil
}
