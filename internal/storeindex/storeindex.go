/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package storeindex is a disposable SQLite cache over the content
// store's filesystem tree, turning contentstore.Store.Enumerate from a
// directory walk into an indexed query. It is never the source of truth:
// the files under the content root are, so losing index.sqlite loses no
// content (see contentstore.Store.Index). Nothing in this module calls
// Rebuild, so a lost or out-of-date index is not repopulated
// automatically.
package storeindex

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/friendsincode/signalwave/internal/contentstore"
)

// row is the gorm model mirroring one content item.
type row struct {
	ContentType string `gorm:"primaryKey;column:content_type"`
	PersonaID   string `gorm:"primaryKey;column:persona_id"`
	TargetID    string `gorm:"primaryKey;column:target_id"`
	Status      string `gorm:"index;column:status"`
}

func (row) TableName() string { return "content_items" }

// Index is a gorm/sqlite-backed contentstore.Indexer.
type Index struct {
	db *gorm.DB
}

// Open opens (creating if needed) the sqlite index at path and migrates its schema.
func Open(path string) (*Index, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("storeindex: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&row{}); err != nil {
		return nil, fmt.Errorf("storeindex: migrate: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database connection.
func (idx *Index) Close() error {
	sqlDB, err := idx.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Upsert implements contentstore.Indexer.
func (idx *Index) Upsert(item contentstore.ContentItem) error {
	r := row{
		ContentType: string(item.Key.ContentType),
		PersonaID:   item.Key.PersonaID,
		TargetID:    item.Key.TargetID,
		Status:      string(item.Status),
	}
	return idx.db.Save(&r).Error
}

// Remove implements contentstore.Indexer.
func (idx *Index) Remove(key contentstore.Key) error {
	return idx.db.Delete(&row{}, "content_type = ? AND persona_id = ? AND target_id = ?",
		string(key.ContentType), key.PersonaID, key.TargetID).Error
}

// Enumerate implements contentstore.Indexer.
func (idx *Index) Enumerate(filter contentstore.Filter) ([]contentstore.Key, error) {
	query := idx.db.Model(&row{})
	if filter.ContentType != "" {
		query = query.Where("content_type = ?", string(filter.ContentType))
	}
	if filter.PersonaID != "" {
		query = query.Where("persona_id = ?", filter.PersonaID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var rows []row
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	keys := make([]contentstore.Key, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, contentstore.Key{
			ContentType: contentstore.ContentType(r.ContentType),
			PersonaID:   r.PersonaID,
			TargetID:    r.TargetID,
		})
	}
	return keys, nil
}

// Rebuild truncates the index and repopulates it from items, skipping
// Absent ones. Callers supply the items, since storeindex has no
// filesystem-walk logic of its own.
func Rebuild(idx *Index, items []contentstore.ContentItem) error {
	if err := idx.db.Exec("DELETE FROM content_items").Error; err != nil {
		return fmt.Errorf("storeindex: truncate: %w", err)
	}
	for _, item := range items {
		if item.Status == contentstore.Absent {
			continue
		}
		if err := idx.Upsert(item); err != nil {
			return fmt.Errorf("storeindex: rebuild upsert %s: %w", item.Key, err)
		}
	}
	return nil
}
