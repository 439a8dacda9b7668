package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/opscrm-api/internal/domain/model"
	"github.com/target/opscrm-api/internal/testutil"
)

func TestChecklistTemplateRepo_CRUD(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewChecklistTemplateRepo(db)

		created, err := repo.Create(ctx, testutil.NewTemplateRequest("Standard", "Cleaning", " Mop ", "", "Dust"))
		require.NoError(t, err)
		assert.Equal(t, "cleaning", created.ServiceType)
		assert.Equal(t, []string{"Mop", "Dust"}, created.Items)
		assert.True(t, created.IsActive)

		_, err = repo.Create(ctx, testutil.NewTemplateRequest("Standard", "cleaning"))
		require.ErrorIs(t, err, ErrTemplateNameExists)

		// Same name under another service type is allowed.
		_, err = repo.Create(ctx, testutil.NewTemplateRequest("Standard", "training"))
		require.NoError(t, err)

		byName, err := repo.GetByNameAndServiceType(ctx, "Standard", "CLEANING")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byName.ID)

		desc := "quarterly"
		updated, err := repo.Update(ctx, created.ID, model.UpdateChecklistTemplateRequest{
			Description: &desc,
			Items:       []string{"Mop", "Dust", "Vacuum"},
		})
		require.NoError(t, err)
		assert.Equal(t, "quarterly", *updated.Description)
		assert.Len(t, updated.Items, 3)

		_, err = repo.Update(ctx, "00000000-0000-0000-0000-000000000000", model.UpdateChecklistTemplateRequest{
			Description: &desc,
		})
		require.ErrorIs(t, err, ErrTemplateNotFound)
	})
}

func TestChecklistTemplateRepo_ListAndActive(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewChecklistTemplateRepo(db)

		b := testutil.SeedTemplate(t, db, "Bravo", "cleaning")
		testutil.SeedTemplate(t, db, "Alpha", "cleaning")
		testutil.SeedTemplate(t, db, "Zulu", "training")
		inactive := false
		_, err := repo.Update(ctx, b, model.UpdateChecklistTemplateRequest{IsActive: &inactive})
		require.NoError(t, err)

		active, err := repo.ListActiveByServiceType(ctx, "cleaning")
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "Alpha", active[0].Name)

		st := "cleaning"
		all, err := repo.List(ctx, model.TemplateListOptions{ServiceType: &st})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Alpha", all[0].Name)
		assert.Equal(t, "Bravo", all[1].Name)

		q := "zu"
		found, err := repo.List(ctx, model.TemplateListOptions{Q: &q})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Zulu", found[0].Name)

		onlyInactive, err := repo.List(ctx, model.TemplateListOptions{Active: &inactive})
		require.NoError(t, err)
		require.Len(t, onlyInactive, 1)
		assert.Equal(t, b, onlyInactive[0].ID)
	})
}

func TestChecklistTemplateRepo_DeleteOrDeactivate(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewChecklistTemplateRepo(db)
		jobs := NewJobRepo(db, RepoConfig{})
		customerID := testutil.SeedCustomer(t, db, "Acme")

		unused := testutil.SeedTemplate(t, db, "Unused", "cleaning")
		res, err := repo.DeleteOrDeactivate(ctx, unused)
		require.NoError(t, err)
		assert.True(t, res.Deleted)
		assert.False(t, res.Deactivated)
		_, err = repo.GetByID(ctx, unused)
		require.ErrorIs(t, err, ErrTemplateNotFound)

		used := testutil.SeedTemplate(t, db, "Used", "cleaning")
		for range 2 {
			req := testutil.NewJobRequest().WithCustomer(customerID).Build()
			require.NoError(t, req.Validate())
			j, cerr := jobs.Create(ctx, req, req.InitialStatus())
			require.NoError(t, cerr)
			_, cerr = jobs.UpdateChecklist(ctx, j.ID, model.ChecklistWrite{
				TemplateID: &used,
				ItemStatus: map[string]bool{"Inspect site": false, "Sign off": false},
			})
			require.NoError(t, cerr)
		}

		n, err := repo.CountJobReferences(ctx, used)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		res, err = repo.DeleteOrDeactivate(ctx, used)
		require.NoError(t, err)
		assert.False(t, res.Deleted)
		assert.True(t, res.Deactivated)
		assert.Equal(t, 2, res.ReferenceCount)

		got, err := repo.GetByID(ctx, used)
		require.NoError(t, err)
		assert.False(t, got.IsActive)

		_, err = repo.DeleteOrDeactivate(ctx, "00000000-0000-0000-0000-000000000000")
		require.ErrorIs(t, err, ErrTemplateNotFound)
	})
}

func TestStaffAndCustomerRepos(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		users := NewUserRepo(db)
		customers := NewCustomerRepo(db)

		email := "Pat@Example.com"
		u, err := users.Upsert(ctx, &model.UpsertUserRequest{ID: "u-1", Name: "Pat", Email: &email, Role: "operations"})
		require.NoError(t, err)
		assert.Equal(t, "operations", u.Role)

		u, err = users.Upsert(ctx, &model.UpsertUserRequest{ID: "u-1", Name: "Pat", Role: "QC_MANAGER"})
		require.NoError(t, err)
		assert.Equal(t, "qc_manager", u.Role)
		assert.Nil(t, u.Email)

		_, err = users.GetByID(ctx, "missing")
		require.ErrorIs(t, err, ErrUserNotFound)

		role := "qc_manager"
		list, err := users.List(ctx, model.UserListOptions{Role: &role})
		require.NoError(t, err)
		assert.Len(t, list, 1)

		c, err := customers.Create(ctx, &model.CreateCustomerRequest{Name: " Acme Corp "})
		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", c.Name)

		got, err := customers.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)

		q := "acme"
		cs, err := customers.List(ctx, model.CustomerListOptions{Q: &q})
		require.NoError(t, err)
		assert.Len(t, cs, 1)

		_, err = customers.GetByID(ctx, "bogus")
		require.ErrorIs(t, err, ErrCustomerNotFound)
	})
}
