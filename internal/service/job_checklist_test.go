package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/target/opscrm-api/internal/domain/auth"
	"github.com/target/opscrm-api/internal/domain/model"
	apperrors "github.com/target/opscrm-api/internal/errors"
	"github.com/target/opscrm-api/internal/testutil"
)

const checklistTemplateID = "33333333-3333-3333-3333-333333333333"

func jobWithChecklist(status model.JobStatus, assignee string, items map[string]bool) *model.Job {
	j := testutil.JobFixture(status, assignee)
	id := checklistTemplateID
	j.ChecklistTemplateID = &id
	j.ItemStatus = items
	return j
}

// expectChecklistWrite makes UpdateChecklist return job with w applied.
func (h *jobHarness) expectChecklistWrite(job *model.Job, capture *model.ChecklistWrite) {
	h.jobs.EXPECT().UpdateChecklist(gomock.Any(), job.ID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, w model.ChecklistWrite) (*model.Job, error) {
			if capture != nil {
				*capture = w
			}
			out := *job
			out.ChecklistTemplateID = w.TemplateID
			out.ItemStatus = w.ItemStatus
			out.ChecklistCompletedAt = w.ChecklistCompletedAt
			return &out, nil
		})
}

func TestJobService_GetChecklistState(t *testing.T) {
	t.Parallel()

	tmpl := testutil.TemplateFixture(checklistTemplateID, "cleaning", "Vacuum", "Mop", "Bins")

	tests := []struct {
		name          string
		actor         domainauth.Actor
		wantCanMutate bool
	}{
		{name: "assignee can mutate", actor: opsActor, wantCanMutate: true},
		{name: "admin can mutate", actor: adminActor, wantCanMutate: true},
		{name: "other staff sees a read-only view", actor: otherOps},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newJobHarness(t)
			job := jobWithChecklist(model.JobStatusInProgress, "ops-1", map[string]bool{
				"Vacuum": true,
				"Mop":    false,
				"Stale":  true,
			})
			h.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
			h.templates.EXPECT().GetByID(gomock.Any(), checklistTemplateID).Return(tmpl, nil)

			st, err := h.svc.GetChecklistState(context.Background(), tt.actor, job.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCanMutate, st.CanMutate)
			assert.Equal(t, 1, st.Completed)
			assert.Equal(t, 3, st.Total)
			assert.Equal(t, 33, st.Percent)
			assert.False(t, st.IsComplete)
			require.Len(t, st.Items, 3)
			assert.Equal(t, "Vacuum", st.Items[0].Text)
			assert.True(t, st.Items[0].Done)
		})
	}
}

func TestJobService_GetChecklistState_NoTemplate(t *testing.T) {
	t.Parallel()
	h := newJobHarness(t)
	job := testutil.JobFixture(model.JobStatusNew, "")
	h.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)

	st, err := h.svc.GetChecklistState(context.Background(), adminActor, job.ID)
	require.NoError(t, err)
	assert.Nil(t, st.TemplateID)
	assert.Empty(t, st.Items)
	assert.Zero(t, st.Total)
}

func TestJobService_UpdateChecklistProgress(t *testing.T) {
	t.Parallel()

	tmpl := testutil.TemplateFixture(checklistTemplateID, "cleaning", "Vacuum", "Mop")

	t.Run("partial progress leaves completion unset", func(t *testing.T) {
		t.Parallel()
		h := newJobHarness(t)
		job := jobWithChecklist(model.JobStatusInProgress, "ops-1", map[string]bool{"Vacuum": false, "Mop": false})
		h.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
		h.templates.EXPECT().GetByID(gomock.Any(), checklistTemplateID).Return(tmpl, nil)
		var write model.ChecklistWrite
		h.expectChecklistWrite(job, &write)

		st, err := h.svc.UpdateChecklistProgress(context.Background(), opsActor, job.ID,
			&model.UpdateChecklistProgressRequest{ItemStatus: map[string]bool{" Vacuum ": true, "Mop": false}})
		require.NoError(t, err)

		assert.Equal(t, map[string]bool{"Vacuum": true, "Mop": false}, write.ItemStatus)
		assert.Nil(t, write.ChecklistCompletedAt)
		assert.Equal(t, 1, st.Completed)
		assert.Equal(t, 50, st.Percent)
		assert.True(t, st.CanMutate)

		events := h.published()
		require.Len(t, events, 1)
		assert.Equal(t, model.JobEventChecklistUpdated, events[0].Type)
		assert.Equal(t, false, events[0].Data["is_complete"])
	})

	t.Run("finishing every item stamps completion", func(t *testing.T) {
		t.Parallel()
		h := newJobHarness(t)
		job := jobWithChecklist(model.JobStatusInProgress, "ops-1", map[string]bool{"Vacuum": true, "Mop": false})
		h.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
		h.templates.EXPECT().GetByID(gomock.Any(), checklistTemplateID).Return(tmpl, nil)
		var write model.ChecklistWrite
		h.expectChecklistWrite(job, &write)

		st, err := h.svc.UpdateChecklistProgress(context.Background(), opsActor, job.ID,
			&model.UpdateChecklistProgressRequest{ItemStatus: map[string]bool{"Vacuum": true, "Mop": true}})
		require.NoError(t, err)
		require.NotNil(t, write.ChecklistCompletedAt)
		assert.Equal(t, h.clock.Now().UTC(), *write.ChecklistCompletedAt)
		assert.True(t, st.IsComplete)
		assert.Equal(t, 100, st.Percent)
	})

	t.Run("an earlier completion stamp is kept", func(t *testing.T) {
		t.Parallel()
		h := newJobHarness(t)
		job := jobWithChecklist(model.JobStatusCompleted, "ops-1", map[string]bool{"Vacuum": true, "Mop": true})
		earlier := testutil.TestTime().Add(30 * time.Minute)
		job.ChecklistCompletedAt = &earlier
		h.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
		h.templates.EXPECT().GetByID(gomock.Any(), checklistTemplateID).Return(tmpl, nil)
		var write model.ChecklistWrite
		h.expectChecklistWrite(job, &write)

		_, err := h.svc.UpdateChecklistProgress(context.Background(), opsActor, job.ID,
			&model.UpdateChecklistProgressRequest{ItemStatus: map[string]bool{"Vacuum": true, "Mop": true}})
		require.NoError(t, err)
		require.NotNil(t, write.ChecklistCompletedAt)
		assert.Equal(t, earlier, *write.ChecklistCompletedAt)
	})

	t.Run("unchecking an item clears completion", func(t *testing.T) {
		t.Parallel()
		h := newJobHarness(t)
		job := jobWithChecklist(model.JobStatusInProgress, "ops-1", map[string]bool{"Vacuum": true, "Mop": true})
		earlier := testutil.TestTime()
		job.ChecklistCompletedAt = &earlier
		h.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
		h.templates.EXPECT().GetByID(gomock.Any(), checklistTemplateID).Return(tmpl, nil)
		var write model.ChecklistWrite
		h.expectChecklistWrite(job, &write)

		_, err := h.svc.UpdateChecklistProgress(context.Background(), opsActor, job.ID,
			&model.UpdateChecklistProgressRequest{ItemStatus: map[string]bool{"Vacuum": true, "Mop": false}})
		require.NoError(t, err)
		assert.Nil(t, write.ChecklistCompletedAt)
	})

	t.Run("other staff is refused", func(t *testing.T) {
		t.Parallel()
		h := newJobHarness(t)
		job := jobWithChecklist(model.JobStatusInProgress, "ops-1", map[string]bool{})
		h.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)

		_, err := h.svc.UpdateChecklistProgress(context.Background(), otherOps, job.ID,
			&model.UpdateChecklistProgressRequest{ItemStatus: map[string]bool{"Vacuum": true}})
		require.Error(t, err)
		assert.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("job without a template", func(t *testing.T) {
		t.Parallel()
		h := newJobHarness(t)
		job := testutil.JobFixture(model.JobStatusInProgress, "ops-1")
		h.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)

		_, err := h.svc.UpdateChecklistProgress(context.Background(), opsActor, job.ID,
			&model.UpdateChecklistProgressRequest{ItemStatus: map[string]bool{"Vacuum": true}})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, "checklist_template_id", apperrors.GetField(err))
	})

	t.Run("missing item map", func(t *testing.T) {
		t.Parallel()
		h := newJobHarness(t)
		_, err := h.svc.UpdateChecklistProgress(context.Background(), opsActor, "job-1",
			&model.UpdateChecklistProgressRequest{})
		require.Error(t, err)
		assert.Equal(t, "item_status", apperrors.GetField(err))
	})
}

func TestJobService_AttachTemplate(t *testing.T) {
	t.Parallel()

	t.Run("attaching seeds every item as not done", func(t *testing.T) {
		t.Parallel()
		h := newJobHarness(t)
		job := jobWithChecklist(model.JobStatusAssigned, "ops-1", map[string]bool{"Old item": true})
		tmpl := testutil.TemplateFixture("tmpl-new", "cleaning", "Vacuum", "Mop")
		h.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
		h.templates.EXPECT().GetByID(gomock.Any(), "tmpl-new").Return(tmpl, nil)
		var write model.ChecklistWrite
		h.expectChecklistWrite(job, &write)

		st, err := h.svc.AttachTemplate(context.Background(), opsActor, job.ID,
			&model.AttachTemplateRequest{TemplateID: testutil.StringPtr(" tmpl-new ")})
		require.NoError(t, err)

		require.NotNil(t, write.TemplateID)
		assert.Equal(t, "tmpl-new", *write.TemplateID)
		assert.Equal(t, map[string]bool{"Vacuum": false, "Mop": false}, write.ItemStatus)
		assert.Nil(t, write.ChecklistCompletedAt)
		assert.Equal(t, 2, st.Total)
		assert.Zero(t, st.Completed)

		events := h.published()
		require.Len(t, events, 1)
		assert.Equal(t, model.JobEventTemplateAttached, events[0].Type)
	})

	t.Run("null template detaches", func(t *testing.T) {
		t.Parallel()
		h := newJobHarness(t)
		job := jobWithChecklist(model.JobStatusInProgress, "ops-1", map[string]bool{"Vacuum": true})
		h.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
		var write model.ChecklistWrite
		h.expectChecklistWrite(job, &write)

		st, err := h.svc.AttachTemplate(context.Background(), adminActor, job.ID, &model.AttachTemplateRequest{})
		require.NoError(t, err)
		assert.Nil(t, write.TemplateID)
		assert.Empty(t, write.ItemStatus)
		assert.Nil(t, st.TemplateID)

		events := h.published()
		require.Len(t, events, 1)
		assert.Equal(t, model.JobEventTemplateDetached, events[0].Type)
		assert.Equal(t, checklistTemplateID, events[0].Data["previous_template_id"])
	})

	tests := []struct {
		name      string
		tmpl      *model.ChecklistTemplate
		wantField string
	}{
		{
			name: "inactive template",
			tmpl: func() *model.ChecklistTemplate {
				tmpl := testutil.TemplateFixture("tmpl-x", "cleaning")
				tmpl.IsActive = false
				return tmpl
			}(),
			wantField: "template_id",
		},
		{
			name:      "service type mismatch",
			tmpl:      testutil.TemplateFixture("tmpl-x", "plumbing"),
			wantField: "template_id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newJobHarness(t)
			job := testutil.JobFixture(model.JobStatusAssigned, "ops-1")
			h.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
			h.templates.EXPECT().GetByID(gomock.Any(), "tmpl-x").Return(tt.tmpl, nil)

			_, err := h.svc.AttachTemplate(context.Background(), adminActor, job.ID,
				&model.AttachTemplateRequest{TemplateID: testutil.StringPtr("tmpl-x")})
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.wantField, apperrors.GetField(err))
			assert.Empty(t, h.published())
		})
	}

	t.Run("other staff is refused before the template is read", func(t *testing.T) {
		t.Parallel()
		h := newJobHarness(t)
		job := testutil.JobFixture(model.JobStatusAssigned, "ops-1")
		h.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)

		_, err := h.svc.AttachTemplate(context.Background(), otherOps, job.ID,
			&model.AttachTemplateRequest{TemplateID: testutil.StringPtr("tmpl-x")})
		assert.True(t, apperrors.IsUnauthorized(err))
	})
}
