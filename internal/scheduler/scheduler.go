// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/service"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/store"
)

// Scheduler handles scheduled tasks: version retention and event log
// trimming.
type Scheduler struct {
	db          *sql.DB
	versions    *service.VersionService
	cron        *cron.Cron
	logger      *slog.Logger
	versionKeep int
	eventKeep   time.Duration
}

// New creates a scheduler. versionKeep is the number of versions kept per
// page by retention; zero disables retention.
func New(db *sql.DB, versions *service.VersionService, versionKeep int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		db:          db,
		versions:    versions,
		cron:        cron.New(),
		logger:      logger,
		versionKeep: versionKeep,
		eventKeep:   90 * 24 * time.Hour,
	}
}

// Start registers the jobs and begins the cron loop. Retention runs
// hourly, event trimming daily.
func (s *Scheduler) Start() error {
	if s.versionKeep > 0 {
		if _, err := s.cron.AddFunc("0 * * * *", func() {
			if err := s.applyRetention(); err != nil {
				s.logger.Error("version retention failed", "category", "version", "error", err)
			}
		}); err != nil {
			return err
		}
	}

	if _, err := s.cron.AddFunc("30 3 * * *", func() {
		if err := s.trimEvents(); err != nil {
			s.logger.Error("event trimming failed", "category", "system", "error", err)
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// applyRetention applies the retention policy to every page. One failing
// page does not stop the sweep.
func (s *Scheduler) applyRetention() error {
	ctx := context.Background()

	pageIDs, err := store.New(s.db).ListPageIDs(ctx)
	if err != nil {
		return err
	}

	total := 0
	for _, pageID := range pageIDs {
		deleted, err := s.versions.ApplyRetentionPolicy(ctx, pageID, s.versionKeep)
		if err != nil {
			s.logger.Error("retention failed for page",
				"category", "version", "page_id", pageID, "error", err)
			continue
		}
		total += deleted
	}

	if total > 0 {
		s.logger.Info("retention sweep finished",
			"category", "version", "pages", len(pageIDs), "deleted", total)
	}
	return nil
}

func (s *Scheduler) trimEvents() error {
	cutoff := time.Now().Add(-s.eventKeep)
	return store.New(s.db).DeleteOldEvents(context.Background(), cutoff)
}
