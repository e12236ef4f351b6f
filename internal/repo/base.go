package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the database handle every terminal repository embeds. It
// exists so repositories can swap the handle for a transaction without
// repeating the context plumbing.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB binds the handle to the request context so cancellation reaches the
// driver. A nil context returns the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}
