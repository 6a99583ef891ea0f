package simplewidget_test

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-widget/pkg/simplewidget"
	"github.com/tendant/simple-widget/pkg/simplewidget/repo/memory"
	memorystorage "github.com/tendant/simple-widget/pkg/simplewidget/storage/memory"
)

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []simplewidget.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []simplewidget.Option{},
			expectError: true,
		},
		{
			name: "with repository should succeed",
			options: []simplewidget.Option{
				simplewidget.WithRepository(memory.New()),
			},
			expectError: false,
		},
		{
			name: "with repository and blob store should succeed",
			options: []simplewidget.Option{
				simplewidget.WithRepository(memory.New()),
				simplewidget.WithBlobStore("default", memorystorage.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := simplewidget.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func setupTestService(t *testing.T) simplewidget.Service {
	svc, err := simplewidget.New(
		simplewidget.WithRepository(memory.New()),
		simplewidget.WithBlobStore("default", memorystorage.New()),
		simplewidget.WithPublicBaseURL("https://widgets.example.com"),
	)
	require.NoError(t, err)
	require.NotNil(t, svc)

	return svc
}

func TestCreateWidget(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()

	t.Run("derives slug from title", func(t *testing.T) {
		svc := setupTestService(t)

		widget, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
			OwnerID: ownerID,
			Title:   "My Portfolio",
		})
		require.NoError(t, err)
		assert.Equal(t, "myportfolio", widget.Slug)
		assert.Equal(t, 1, widget.Version)
		assert.False(t, widget.IsActive, "widgets start unpublished")
		assert.NotEqual(t, uuid.Nil, widget.ID)
	})

	t.Run("generates random slug without title", func(t *testing.T) {
		svc := setupTestService(t)

		widget, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{OwnerID: ownerID})
		require.NoError(t, err)
		assert.Len(t, widget.Slug, 24)
	})

	t.Run("accepts valid explicit slug", func(t *testing.T) {
		svc := setupTestService(t)

		widget, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
			OwnerID: ownerID,
			Title:   "Anything",
			Slug:    "customslug42",
		})
		require.NoError(t, err)
		assert.Equal(t, "customslug42", widget.Slug)
	})

	t.Run("rejects invalid explicit slug", func(t *testing.T) {
		svc := setupTestService(t)

		_, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
			OwnerID: ownerID,
			Slug:    "bad slug!",
		})
		assert.ErrorIs(t, err, simplewidget.ErrInvalidSlug)
	})

	t.Run("rejects taken explicit slug", func(t *testing.T) {
		svc := setupTestService(t)

		_, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
			OwnerID: ownerID,
			Slug:    "customslug42",
		})
		require.NoError(t, err)

		_, err = svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
			OwnerID: ownerID,
			Slug:    "customslug42",
		})
		assert.ErrorIs(t, err, simplewidget.ErrSlugTaken)
	})

	t.Run("colliding titles get distinct slugs", func(t *testing.T) {
		svc := setupTestService(t)

		first, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
			OwnerID: ownerID,
			Title:   "My Portfolio",
		})
		require.NoError(t, err)

		second, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
			OwnerID: ownerID,
			Title:   "My Portfolio",
		})
		require.NoError(t, err)
		assert.NotEqual(t, first.Slug, second.Slug)
	})

	t.Run("sanitizes config text", func(t *testing.T) {
		svc := setupTestService(t)

		widget, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
			OwnerID: ownerID,
			Title:   "Hi <script>alert(1)</script> there",
			ConfigData: simplewidget.ConfigData{
				Nickname: "  <b>nick</b>  ",
				LinkURL:  "https://example.com/profile",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "Hi alert(1) there", widget.Title)
		assert.Equal(t, "nick", widget.ConfigData.Nickname)
	})

	t.Run("rejects non-http link URL", func(t *testing.T) {
		svc := setupTestService(t)

		_, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
			OwnerID: ownerID,
			Title:   "Linked",
			ConfigData: simplewidget.ConfigData{
				LinkURL: "javascript:alert(1)",
			},
		})
		assert.ErrorIs(t, err, simplewidget.ErrInvalidConfig)
	})

	t.Run("truncates long text on rune boundary", func(t *testing.T) {
		svc := setupTestService(t)

		// 49 bytes of ASCII followed by a two-byte rune straddling the
		// 50-byte nickname cap.
		widget, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
			OwnerID: ownerID,
			Title:   "Unicode",
			ConfigData: simplewidget.ConfigData{
				Nickname: strings.Repeat("x", 49) + "é",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("x", 49), widget.ConfigData.Nickname)
		assert.True(t, utf8.ValidString(widget.ConfigData.Nickname))
	})
}

func TestUpdateWidget(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()

	t.Run("partial update bumps version", func(t *testing.T) {
		svc := setupTestService(t)
		widget, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
			OwnerID: ownerID,
			Title:   "Original",
		})
		require.NoError(t, err)

		newTitle := "Renamed"
		updated, err := svc.UpdateWidget(ctx, simplewidget.UpdateWidgetRequest{
			WidgetID: widget.ID,
			OwnerID:  ownerID,
			Title:    &newTitle,
		})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Title)
		assert.Equal(t, 2, updated.Version)
		assert.Equal(t, widget.Slug, updated.Slug)
	})

	t.Run("every mutation increments version", func(t *testing.T) {
		svc := setupTestService(t)
		widget, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
			OwnerID: ownerID,
			Title:   "Versioned",
		})
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			title := "Versioned"
			widget, err = svc.UpdateWidget(ctx, simplewidget.UpdateWidgetRequest{
				WidgetID: widget.ID,
				OwnerID:  ownerID,
				Title:    &title,
			})
			require.NoError(t, err)
		}
		assert.Equal(t, 4, widget.Version)
	})

	t.Run("non-owner cannot update", func(t *testing.T) {
		svc := setupTestService(t)
		widget, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
			OwnerID: ownerID,
			Title:   "Protected",
		})
		require.NoError(t, err)

		title := "Hijacked"
		_, err = svc.UpdateWidget(ctx, simplewidget.UpdateWidgetRequest{
			WidgetID: widget.ID,
			OwnerID:  uuid.New(),
			Title:    &title,
		})
		assert.ErrorIs(t, err, simplewidget.ErrNotOwner)
	})
}

func TestDeleteWidget(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	svc := setupTestService(t)

	widget, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
		OwnerID: ownerID,
		Title:   "Disposable",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteWidget(ctx, ownerID, widget.ID))

	_, err = svc.GetWidget(ctx, ownerID, widget.ID)
	assert.ErrorIs(t, err, simplewidget.ErrWidgetNotFound)

	// Soft delete frees the slug for reuse
	reused, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
		OwnerID: ownerID,
		Slug:    widget.Slug,
	})
	require.NoError(t, err)
	assert.Equal(t, widget.Slug, reused.Slug)
}

func TestListWidgets(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	ownerID := uuid.New()
	otherID := uuid.New()

	for _, title := range []string{"first one", "second one", "third one"} {
		_, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{OwnerID: ownerID, Title: title})
		require.NoError(t, err)
	}
	_, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{OwnerID: otherID, Title: "not mine"})
	require.NoError(t, err)

	widgets, err := svc.ListWidgets(ctx, ownerID)
	require.NoError(t, err)
	assert.Len(t, widgets, 3)
	for _, w := range widgets {
		assert.Equal(t, ownerID, w.OwnerID)
	}
}

func TestGenerateLink(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	svc := setupTestService(t)

	widget, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
		OwnerID: ownerID,
		Title:   "Shareable",
	})
	require.NoError(t, err)

	preview, err := svc.GenerateLink(ctx, ownerID, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://widgets.example.com/widget/"+widget.Slug, preview.PublicURL)
	assert.Contains(t, preview.EmbedCode, preview.PublicURL)
	assert.Contains(t, preview.QRCodeURL, "cht=qr")
	assert.Equal(t, widget.Slug, preview.Slug)
	assert.True(t, preview.IsActive)

	_, err = svc.GenerateLink(ctx, uuid.New(), widget.ID)
	assert.ErrorIs(t, err, simplewidget.ErrNotOwner)

	t.Run("publishes the widget", func(t *testing.T) {
		refreshed, err := svc.GetWidget(ctx, ownerID, widget.ID)
		require.NoError(t, err)
		assert.True(t, refreshed.IsActive)
		assert.Equal(t, 2, refreshed.Version)
	})

	t.Run("reactivates a deactivated widget", func(t *testing.T) {
		inactive := false
		_, err := svc.UpdateWidget(ctx, simplewidget.UpdateWidgetRequest{
			WidgetID: widget.ID,
			OwnerID:  ownerID,
			IsActive: &inactive,
		})
		require.NoError(t, err)

		_, err = svc.GenerateLink(ctx, ownerID, widget.ID)
		require.NoError(t, err)

		refreshed, err := svc.GetWidget(ctx, ownerID, widget.ID)
		require.NoError(t, err)
		assert.True(t, refreshed.IsActive)
	})
}

func TestGetPublicWidget(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()

	t.Run("active widget is visible", func(t *testing.T) {
		svc := setupTestService(t)
		created, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
			OwnerID: ownerID,
			Title:   "Public Card",
			ConfigData: simplewidget.ConfigData{
				Nickname: "nick",
			},
		})
		require.NoError(t, err)
		_, err = svc.GenerateLink(ctx, ownerID, created.ID)
		require.NoError(t, err)

		public, err := svc.GetPublicWidget(ctx, created.Slug)
		require.NoError(t, err)
		assert.Equal(t, created.Slug, public.Slug)
		assert.Equal(t, "nick", public.ConfigData.Nickname)
		assert.Equal(t, 2, public.Version)
		assert.Empty(t, public.AssetURLs)
	})

	t.Run("unknown slug", func(t *testing.T) {
		svc := setupTestService(t)
		_, err := svc.GetPublicWidget(ctx, "nosuchslug1")
		assert.ErrorIs(t, err, simplewidget.ErrWidgetNotFound)
	})

	t.Run("unpublished widget hidden", func(t *testing.T) {
		svc := setupTestService(t)
		created, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
			OwnerID: ownerID,
			Title:   "Hidden",
		})
		require.NoError(t, err)

		_, err = svc.GetPublicWidget(ctx, created.Slug)
		assert.ErrorIs(t, err, simplewidget.ErrWidgetInactive)
	})

	t.Run("signed asset URLs included", func(t *testing.T) {
		repo := memory.New()
		store := memorystorage.New()
		svc, err := simplewidget.New(
			simplewidget.WithRepository(repo),
			simplewidget.WithBlobStore("default", store),
		)
		require.NoError(t, err)

		uploaded, err := svc.UploadAsset(ctx, simplewidget.UploadAssetRequest{
			OwnerID:   ownerID,
			AssetType: simplewidget.AssetTypeHeader,
			FileName:  "header.png",
			MimeType:  "image/png",
			Size:      4,
			Reader:    strings.NewReader("data"),
		})
		require.NoError(t, err)

		created, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
			OwnerID: ownerID,
			Title:   "With Assets",
		})
		require.NoError(t, err)

		_, err = svc.UpdateWidget(ctx, simplewidget.UpdateWidgetRequest{
			WidgetID:  created.ID,
			OwnerID:   ownerID,
			AssetRefs: &simplewidget.AssetRefs{HeaderImage: uploaded.Key},
		})
		require.NoError(t, err)
		_, err = svc.GenerateLink(ctx, ownerID, created.ID)
		require.NoError(t, err)

		public, err := svc.GetPublicWidget(ctx, created.Slug)
		require.NoError(t, err)
		require.Contains(t, public.AssetURLs, "header_image")
		assert.Contains(t, public.AssetURLs["header_image"], uploaded.Key)
	})
}

func TestRefreshAssets(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()

	svcWithStore, err := simplewidget.New(
		simplewidget.WithRepository(memory.New()),
		simplewidget.WithBlobStore("default", memorystorage.New()),
	)
	require.NoError(t, err)

	uploaded, err := svcWithStore.UploadAsset(ctx, simplewidget.UploadAssetRequest{
		OwnerID:   ownerID,
		AssetType: simplewidget.AssetTypeProfile,
		FileName:  "me.jpg",
		MimeType:  "image/jpeg",
		Size:      4,
		Reader:    strings.NewReader("data"),
	})
	require.NoError(t, err)

	created, err := svcWithStore.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
		OwnerID: ownerID,
		Title:   "Refresh Me",
	})
	require.NoError(t, err)
	_, err = svcWithStore.UpdateWidget(ctx, simplewidget.UpdateWidgetRequest{
		WidgetID:  created.ID,
		OwnerID:   ownerID,
		AssetRefs: &simplewidget.AssetRefs{ProfileImage: uploaded.Key},
	})
	require.NoError(t, err)
	_, err = svcWithStore.GenerateLink(ctx, ownerID, created.ID)
	require.NoError(t, err)

	urls, err := svcWithStore.RefreshAssets(ctx, created.Slug)
	require.NoError(t, err)
	require.Contains(t, urls, "profile_image")
	assert.Contains(t, urls["profile_image"], uploaded.Key)

	_, err = svcWithStore.RefreshAssets(ctx, "missingslug9")
	assert.ErrorIs(t, err, simplewidget.ErrWidgetNotFound)
}

func TestUploadAsset(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()

	newService := func(t *testing.T) simplewidget.Service {
		svc, err := simplewidget.New(
			simplewidget.WithRepository(memory.New()),
			simplewidget.WithBlobStore("default", memorystorage.New()),
		)
		require.NoError(t, err)
		return svc
	}

	t.Run("stores under owner-scoped key", func(t *testing.T) {
		svc := newService(t)
		asset, err := svc.UploadAsset(ctx, simplewidget.UploadAssetRequest{
			OwnerID:   ownerID,
			AssetType: simplewidget.AssetTypeHeader,
			FileName:  "banner.webp",
			MimeType:  "image/webp",
			Size:      9,
			Reader:    strings.NewReader("imagedata"),
		})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(asset.Key, "users/"+ownerID.String()+"/headers/header_"))
		assert.True(t, strings.HasSuffix(asset.Key, ".webp"))
		assert.NotEmpty(t, asset.SignedURL)
	})

	t.Run("rejects oversize upload", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.UploadAsset(ctx, simplewidget.UploadAssetRequest{
			OwnerID:   ownerID,
			AssetType: simplewidget.AssetTypeProfile,
			MimeType:  "image/png",
			Size:      simplewidget.MaxUploadSize + 1,
			Reader:    strings.NewReader("x"),
		})
		assert.ErrorIs(t, err, simplewidget.ErrUploadTooLarge)
	})

	t.Run("rejects disallowed mime type", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.UploadAsset(ctx, simplewidget.UploadAssetRequest{
			OwnerID:   ownerID,
			AssetType: simplewidget.AssetTypeProfile,
			MimeType:  "image/gif",
			Size:      4,
			Reader:    strings.NewReader("data"),
		})
		assert.ErrorIs(t, err, simplewidget.ErrUnsupportedMediaType)
	})

	t.Run("attaches to widget and replaces old asset", func(t *testing.T) {
		store := memorystorage.New()
		svc, err := simplewidget.New(
			simplewidget.WithRepository(memory.New()),
			simplewidget.WithBlobStore("default", store),
		)
		require.NoError(t, err)

		widget, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
			OwnerID: ownerID,
			Title:   "Pictured",
		})
		require.NoError(t, err)

		first, err := svc.UploadAsset(ctx, simplewidget.UploadAssetRequest{
			OwnerID:   ownerID,
			WidgetID:  widget.ID,
			AssetType: simplewidget.AssetTypeHeader,
			MimeType:  "image/png",
			Size:      4,
			Reader:    strings.NewReader("one!"),
		})
		require.NoError(t, err)

		refreshed, err := svc.GetWidget(ctx, ownerID, widget.ID)
		require.NoError(t, err)
		assert.Equal(t, first.Key, refreshed.AssetRefs.HeaderImage)
		assert.Equal(t, 2, refreshed.Version)

		second, err := svc.UploadAsset(ctx, simplewidget.UploadAssetRequest{
			OwnerID:   ownerID,
			WidgetID:  widget.ID,
			AssetType: simplewidget.AssetTypeHeader,
			MimeType:  "image/png",
			Size:      4,
			Reader:    strings.NewReader("two!"),
		})
		require.NoError(t, err)

		refreshed, err = svc.GetWidget(ctx, ownerID, widget.ID)
		require.NoError(t, err)
		assert.Equal(t, second.Key, refreshed.AssetRefs.HeaderImage)

		_, err = store.Download(ctx, first.Key)
		assert.Error(t, err, "replaced asset should be removed")
	})

	t.Run("rejects unknown asset type", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.UploadAsset(ctx, simplewidget.UploadAssetRequest{
			OwnerID:   ownerID,
			AssetType: "banner",
			MimeType:  "image/png",
			Size:      4,
			Reader:    strings.NewReader("data"),
		})
		assert.ErrorIs(t, err, simplewidget.ErrInvalidUpload)
	})
}

func TestDeleteWidgetRemovesAssets(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()

	store := memorystorage.New()
	svc, err := simplewidget.New(
		simplewidget.WithRepository(memory.New()),
		simplewidget.WithBlobStore("default", store),
	)
	require.NoError(t, err)

	widget, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
		OwnerID: ownerID,
		Title:   "Pictured",
	})
	require.NoError(t, err)

	uploaded, err := svc.UploadAsset(ctx, simplewidget.UploadAssetRequest{
		OwnerID:   ownerID,
		WidgetID:  widget.ID,
		AssetType: simplewidget.AssetTypeProfile,
		MimeType:  "image/jpeg",
		Size:      4,
		Reader:    strings.NewReader("data"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteWidget(ctx, ownerID, widget.ID))

	_, err = store.Download(ctx, uploaded.Key)
	assert.Error(t, err)
}

func TestWidgetExpiry(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()

	repo := memory.New()
	svc, err := simplewidget.New(
		simplewidget.WithRepository(repo),
		simplewidget.WithBlobStore("default", memorystorage.New()),
	)
	require.NoError(t, err)

	created, err := svc.CreateWidget(ctx, simplewidget.CreateWidgetRequest{
		OwnerID: ownerID,
		Title:   "Ephemeral",
	})
	require.NoError(t, err)

	_, err = svc.GenerateLink(ctx, ownerID, created.ID)
	require.NoError(t, err)

	// Expire the widget directly through the repository
	stored, err := repo.GetWidget(ctx, created.ID)
	require.NoError(t, err)
	past := time.Now().Add(-time.Hour)
	stored.ExpiresAt = &past
	require.NoError(t, repo.UpdateWidget(ctx, stored))

	_, err = svc.GetPublicWidget(ctx, created.Slug)
	assert.ErrorIs(t, err, simplewidget.ErrWidgetExpired)
}
