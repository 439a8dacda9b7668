package core_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/opscrm-api/internal/core"
	"github.com/target/opscrm-api/internal/domain/model"
	"github.com/target/opscrm-api/internal/mocks"
	"go.uber.org/mock/gomock"
)

func newTemplateCache(t *testing.T) (*mocks.MockCacheRepository, *mocks.MockChecklistTemplateRepository, *core.TemplateCacheService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	repo := mocks.NewMockChecklistTemplateRepository(ctrl)
	svc := core.NewTemplateCacheService(core.TemplateCacheServiceOptions{
		Cache:     cache,
		Templates: repo,
		Config:    core.TemplateCacheConfig{TTL: time.Minute},
	})
	return cache, repo, svc
}

func TestTemplateCacheService_ListActive(t *testing.T) {
	t.Parallel()

	tmpls := []*model.ChecklistTemplate{{ID: "t1", Name: "Standard", ServiceType: "cleaning", Items: []string{"A"}, IsActive: true}}
	encoded, err := json.Marshal(tmpls)
	require.NoError(t, err)

	tests := []struct {
		name    string
		setup   func(*mocks.MockCacheRepository, *mocks.MockChecklistTemplateRepository)
		want    []*model.ChecklistTemplate
		wantErr bool
	}{
		{
			name: "hit",
			setup: func(cache *mocks.MockCacheRepository, _ *mocks.MockChecklistTemplateRepository) {
				cache.EXPECT().Counter(gomock.Any(), "opscrm:templates:gen:cleaning").Return(int64(3), nil)
				cache.EXPECT().Get(gomock.Any(), "opscrm:templates:active:cleaning:3").Return(encoded, nil)
			},
			want: tmpls,
		},
		{
			name: "miss loads and stores",
			setup: func(cache *mocks.MockCacheRepository, repo *mocks.MockChecklistTemplateRepository) {
				cache.EXPECT().Counter(gomock.Any(), "opscrm:templates:gen:cleaning").Return(int64(0), nil)
				cache.EXPECT().Get(gomock.Any(), "opscrm:templates:active:cleaning:0").Return(nil, nil)
				repo.EXPECT().ListActiveByServiceType(gomock.Any(), "cleaning").Return(tmpls, nil)
				cache.EXPECT().Set(gomock.Any(), "opscrm:templates:active:cleaning:0", encoded, time.Minute).Return(nil)
			},
			want: tmpls,
		},
		{
			name: "cache down falls back to repository",
			setup: func(cache *mocks.MockCacheRepository, repo *mocks.MockChecklistTemplateRepository) {
				cache.EXPECT().Counter(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("connection refused"))
				repo.EXPECT().ListActiveByServiceType(gomock.Any(), "cleaning").Return(tmpls, nil)
			},
			want: tmpls,
		},
		{
			name: "repository error surfaces",
			setup: func(cache *mocks.MockCacheRepository, repo *mocks.MockChecklistTemplateRepository) {
				cache.EXPECT().Counter(gomock.Any(), gomock.Any()).Return(int64(0), nil)
				cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil)
				repo.EXPECT().ListActiveByServiceType(gomock.Any(), "cleaning").Return(nil, errors.New("db down"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cache, repo, svc := newTemplateCache(t)
			tt.setup(cache, repo)

			got, err := svc.ListActive(context.Background(), "  Cleaning ")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplateCacheService_Invalidate(t *testing.T) {
	t.Parallel()
	cache, _, svc := newTemplateCache(t)

	cache.EXPECT().Incr(gomock.Any(), "opscrm:templates:gen:cleaning").Return(int64(1), nil)
	cache.EXPECT().Incr(gomock.Any(), "opscrm:templates:gen:training").Return(int64(4), nil)

	require.NoError(t, svc.Invalidate(context.Background(), "cleaning", "CLEANING", "", "training"))
}

func TestTemplateCacheService_InvalidateError(t *testing.T) {
	t.Parallel()
	cache, _, svc := newTemplateCache(t)

	cache.EXPECT().Incr(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("boom"))

	err := svc.Invalidate(context.Background(), "cleaning")
	require.ErrorContains(t, err, "invalidate templates for cleaning")
}
