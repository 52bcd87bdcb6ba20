package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

const (
	dirPerms  = 0o750
	filePerms = 0o600
)

// Document is the single persisted file: static settings plus the open ticket set.
type Document struct {
	Settings domain.Settings           `json:"settings"`
	Tickets  map[string]*domain.Ticket `json:"tickets"`
}

func emptyDocument() *Document {
	return &Document{Tickets: map[string]*domain.Ticket{}}
}

// ReadDocument loads the document at path. A missing file yields an empty
// document; an unreadable or corrupt one is moved aside and also yields an
// empty document. Neither case is returned as an error.
func ReadDocument(path string, logger *zap.Logger) *Document {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("ticket document not found; starting empty", zap.String("path", path))
		} else {
			logger.Error("ticket document unreadable; starting empty", zap.String("path", path), zap.Error(err))
		}
		return emptyDocument()
	}

	doc := emptyDocument()
	if err := json.Unmarshal(raw, doc); err != nil {
		logger.Error("ticket document corrupt; starting empty", zap.String("path", path), zap.Error(err))
		quarantine(path, logger)
		return emptyDocument()
	}
	if doc.Tickets == nil {
		doc.Tickets = map[string]*domain.Ticket{}
	}
	for id, t := range doc.Tickets {
		if t == nil {
			delete(doc.Tickets, id)
			continue
		}
		if t.ID == "" {
			t.ID = id
		}
		if t.Answers == nil {
			t.Answers = map[string]string{}
		}
	}
	return doc
}

// quarantine keeps a corrupt document around for the operator instead of
// overwriting it on the next save.
func quarantine(path string, logger *zap.Logger) {
	target := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
	if err := os.Rename(path, target); err != nil {
		logger.Warn("failed to move corrupt ticket document aside", zap.String("path", path), zap.Error(err))
		return
	}
	logger.Warn("corrupt ticket document moved aside", zap.String("path", target))
}

// WriteDocument atomically replaces the document at path.
func WriteDocument(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ticket document: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return fmt.Errorf("create document dir: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write ticket document: %w", err)
	}
	if err := os.Chmod(path, filePerms); err != nil {
		return fmt.Errorf("chmod ticket document: %w", err)
	}
	return nil
}
