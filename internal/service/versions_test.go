// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/testutil"
)

func newVersionService(f *fixture) *VersionService {
	return NewVersionService(f.db, nil, testutil.TestLogger())
}

func TestVersionService_CreateVersion_SequentialNumbers(t *testing.T) {
	f := newFixture(t)
	svc := newVersionService(f)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		v, err := svc.CreateVersion(ctx, f.page.ID, "", 0, nil)
		require.NoError(t, err)
		require.Equal(t, want, v.VersionNumber)
		require.Equal(t, f.page.ID, v.PageID)
	}

	versions, err := svc.GetPageVersions(ctx, f.page.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	// Newest first.
	require.Equal(t, int64(3), versions[0].VersionNumber)
	require.Equal(t, int64(1), versions[2].VersionNumber)
}

func TestVersionService_CreateVersion_SnapshotShape(t *testing.T) {
	f := newFixture(t)
	svc := newVersionService(f)
	ctx := context.Background()

	v, err := svc.CreateVersion(ctx, f.page.ID, "milestone", 7, map[string]any{"note": "x"})
	require.NoError(t, err)
	require.Equal(t, "milestone", v.VersionName.String)
	require.Equal(t, int64(7), v.CreatedBy.Int64)
	require.False(t, v.PublishedAt.Valid, "new version must start unpublished")

	snap, err := model.DecodeSnapshot([]byte(v.Snapshot))
	require.NoError(t, err)
	require.Equal(t, "home", snap.Page.Keyword)
	require.Len(t, snap.Page.Sections, 1)

	child := snap.Page.Sections[0].Children[0]
	// All languages are preserved, including the property language.
	require.Equal(t, "Welcome", child.Translations[f.en.ID]["title"].Content)
	require.Equal(t, "Willkommen", child.Translations[f.de.ID]["title"].Content)
	require.Equal(t, "house", child.Translations[model.PropertyLanguageID]["icon"].Content)
	// Markdown stays raw in the snapshot.
	require.Equal(t, "## Hello", child.Translations[f.en.ID]["text_md"].Content)
}

func TestVersionService_CreateVersion_UnknownPage(t *testing.T) {
	f := newFixture(t)
	svc := newVersionService(f)

	_, err := svc.CreateVersion(context.Background(), 9999, "", 0, nil)
	require.ErrorIs(t, err, ErrPageNotFound)
}

func TestVersionService_PublishVersion(t *testing.T) {
	f := newFixture(t)
	svc := newVersionService(f)
	ctx := context.Background()

	v1, err := svc.CreateVersion(ctx, f.page.ID, "", 0, nil)
	require.NoError(t, err)
	v2, err := svc.CreateVersion(ctx, f.page.ID, "", 0, nil)
	require.NoError(t, err)

	published, err := svc.PublishVersion(ctx, f.page.ID, v1.ID)
	require.NoError(t, err)
	require.True(t, published.PublishedAt.Valid)

	page, err := f.queries.GetPageByID(ctx, f.page.ID)
	require.NoError(t, err)
	require.Equal(t, v1.ID, page.PublishedVersionID.Int64)

	// Publishing another version atomically moves the pointer and clears
	// the previous published timestamp.
	_, err = svc.PublishVersion(ctx, f.page.ID, v2.ID)
	require.NoError(t, err)

	page, err = f.queries.GetPageByID(ctx, f.page.ID)
	require.NoError(t, err)
	require.Equal(t, v2.ID, page.PublishedVersionID.Int64)

	old, err := svc.GetVersion(ctx, v1.ID)
	require.NoError(t, err)
	require.False(t, old.PublishedAt.Valid, "previous version must be unpublished")
}

func TestVersionService_PublishVersion_PageMismatch(t *testing.T) {
	f := newFixture(t)
	svc := newVersionService(f)
	ctx := context.Background()

	other, err := f.queries.CreatePage(ctx, createOtherPageParams())
	require.NoError(t, err)

	v, err := svc.CreateVersion(ctx, f.page.ID, "", 0, nil)
	require.NoError(t, err)

	_, err = svc.PublishVersion(ctx, other.ID, v.ID)
	require.ErrorIs(t, err, ErrVersionPageMismatch)

	// The failed publish must not leave partial state behind.
	page, err := f.queries.GetPageByID(ctx, other.ID)
	require.NoError(t, err)
	require.False(t, page.PublishedVersionID.Valid)
}

func TestVersionService_UnpublishPage(t *testing.T) {
	f := newFixture(t)
	svc := newVersionService(f)
	ctx := context.Background()

	v, err := svc.CreateAndPublish(ctx, f.page.ID, "", 0)
	require.NoError(t, err)

	require.NoError(t, svc.UnpublishPage(ctx, f.page.ID))

	page, err := f.queries.GetPageByID(ctx, f.page.ID)
	require.NoError(t, err)
	require.False(t, page.PublishedVersionID.Valid)

	unpublished, err := svc.GetVersion(ctx, v.ID)
	require.NoError(t, err)
	require.False(t, unpublished.PublishedAt.Valid)

	require.ErrorIs(t, svc.UnpublishPage(ctx, 9999), ErrPageNotFound)
}

func TestVersionService_DeleteVersion(t *testing.T) {
	f := newFixture(t)
	svc := newVersionService(f)
	ctx := context.Background()

	v1, err := svc.CreateVersion(ctx, f.page.ID, "", 0, nil)
	require.NoError(t, err)
	v2, err := svc.CreateAndPublish(ctx, f.page.ID, "", 0)
	require.NoError(t, err)

	// The published version is protected.
	require.ErrorIs(t, svc.DeleteVersion(ctx, v2.ID), ErrVersionPublished)

	require.NoError(t, svc.DeleteVersion(ctx, v1.ID))
	_, err = svc.GetVersion(ctx, v1.ID)
	require.ErrorIs(t, err, ErrVersionNotFound)

	require.ErrorIs(t, svc.DeleteVersion(ctx, v1.ID), ErrVersionNotFound)
}

func TestVersionService_ApplyRetentionPolicy(t *testing.T) {
	f := newFixture(t)
	svc := newVersionService(f)
	ctx := context.Background()

	var oldest model.PageVersion
	for i := 0; i < 5; i++ {
		v, err := svc.CreateVersion(ctx, f.page.ID, "", 0, nil)
		require.NoError(t, err)
		if i == 0 {
			oldest = v
		}
	}
	// Publish the oldest version, putting it outside any keep window.
	_, err := svc.PublishVersion(ctx, f.page.ID, oldest.ID)
	require.NoError(t, err)

	deleted, err := svc.ApplyRetentionPolicy(ctx, f.page.ID, 2)
	require.NoError(t, err)
	require.Equal(t, 2, deleted)

	versions, err := svc.GetPageVersions(ctx, f.page.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)

	numbers := make([]int64, len(versions))
	for i, v := range versions {
		numbers[i] = v.VersionNumber
	}
	// Two newest plus the published survivor.
	require.Equal(t, []int64{5, 4, 1}, numbers)
}

func TestVersionService_ApplyRetentionPolicy_KeepAll(t *testing.T) {
	f := newFixture(t)
	svc := newVersionService(f)
	ctx := context.Background()

	_, err := svc.CreateVersion(ctx, f.page.ID, "", 0, nil)
	require.NoError(t, err)

	deleted, err := svc.ApplyRetentionPolicy(ctx, f.page.ID, 0)
	require.NoError(t, err)
	require.Equal(t, 0, deleted)
}

func TestVersionService_GetPageVersions_UnknownPage(t *testing.T) {
	f := newFixture(t)
	svc := newVersionService(f)

	_, err := svc.GetPageVersions(context.Background(), 9999)
	if !errors.Is(err, ErrPageNotFound) {
		t.Errorf("err = %v, want ErrPageNotFound", err)
	}
}

func TestVersionService_CreateAndPublish(t *testing.T) {
	f := newFixture(t)
	svc := newVersionService(f)
	ctx := context.Background()

	v1, err := svc.CreateAndPublish(ctx, f.page.ID, "launch", 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), v1.VersionNumber)
	require.True(t, v1.PublishedAt.Valid)

	page, err := f.queries.GetPageByID(ctx, f.page.ID)
	require.NoError(t, err)
	require.Equal(t, v1.ID, page.PublishedVersionID.Int64)

	// The snapshot captures the draft as of the call, and a later
	// create-and-publish repoints the page and unstamps the old version.
	f.editDraft(t, "Welcome back")
	v2, err := svc.CreateAndPublish(ctx, f.page.ID, "", 0)
	require.NoError(t, err)
	require.Equal(t, int64(2), v2.VersionNumber)

	page, err = f.queries.GetPageByID(ctx, f.page.ID)
	require.NoError(t, err)
	require.Equal(t, v2.ID, page.PublishedVersionID.Int64)

	versions, err := svc.GetPageVersions(ctx, f.page.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.False(t, versions[1].IsPublished())
	require.True(t, versions[0].IsPublished())
}

func TestVersionService_CreateAndPublish_UnknownPage(t *testing.T) {
	f := newFixture(t)
	svc := newVersionService(f)
	ctx := context.Background()

	_, err := svc.CreateAndPublish(ctx, 9999, "", 0)
	require.Error(t, err)

	// A failed create-and-publish leaves no version row behind.
	var count int64
	err = f.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM page_versions WHERE page_id = 9999`).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, int64(0), count)
}
