package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipecraft/apiserver/internal/apperr"
	"github.com/pipecraft/apiserver/internal/auth"
	"github.com/pipecraft/apiserver/types"
)

var (
	admin  = auth.Identity{ID: "USR00000000000000AD", Role: auth.RoleAdmin}
	member = auth.Identity{ID: "USR00000000000000US", Role: auth.RoleUser}
	past   = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
)

func seededCareer() types.Career {
	return types.Career{
		ID:                "CAR0000000000000001",
		JobTitle:          "Backend Engineer",
		Department:        "Engineering",
		Location:          "Remote",
		JobType:           "Full-time",
		ExperienceLevel:   "Mid Level",
		Description:       "Build and run the platform services.",
		Responsibilities:  []string{"Ship features"},
		Requirements:      []string{"Go"},
		IsActive:          true,
		NumberOfPositions: 2,
		CreatedAt:         past,
		UpdatedAt:         past,
	}
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, status, apperr.Status(err), "error: %v", err)
}

func TestCareerUpdate_OnlyProvidedFieldChanges(t *testing.T) {
	before := seededCareer()
	repo := newMemCareers(before)
	svc := NewCareerService(repo, nil)

	after, err := svc.Update(context.Background(), admin, before.ID, types.UpdateCareerRequest{IsActive: ptr(false)})
	require.NoError(t, err)

	assert.False(t, after.IsActive)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

	after.IsActive = before.IsActive
	after.UpdatedAt = before.UpdatedAt
	assert.Equal(t, before, after)
}

func TestCareerUpdate_EmptyPatchNeverReachesStore(t *testing.T) {
	repo := newMemCareers(seededCareer())
	svc := NewCareerService(repo, nil)

	_, err := svc.Update(context.Background(), admin, "CAR0000000000000001", types.UpdateCareerRequest{})

	requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "no fields to update", apperr.PublicMessage(err))
	assert.Zero(t, repo.calls)
}

func TestCareerUpdate_Missing(t *testing.T) {
	svc := NewCareerService(newMemCareers(), nil)

	_, err := svc.Update(context.Background(), admin, "CAR0000000000000009", types.UpdateCareerRequest{JobTitle: ptr("Staff Engineer")})

	requireStatus(t, err, http.StatusNotFound)
	assert.Equal(t, msgCareerNotFound, apperr.PublicMessage(err))
}

func TestCareerUpdate_Salary(t *testing.T) {
	repo := newMemCareers(seededCareer())
	svc := NewCareerService(repo, nil)

	after, err := svc.Update(context.Background(), admin, "CAR0000000000000001", types.UpdateCareerRequest{
		Salary:           &types.Salary{Min: ptr(100.0), Max: ptr(150.0), Currency: "EUR"},
		Responsibilities: &[]string{"Own the API", "Mentor"},
	})
	require.NoError(t, err)
	require.NotNil(t, after.Salary)
	assert.Equal(t, "EUR", after.Salary.Currency)
	assert.Equal(t, []string{"Own the API", "Mentor"}, after.Responsibilities)
}

func TestCareer_AdminOnly(t *testing.T) {
	repo := newMemCareers(seededCareer())
	svc := NewCareerService(repo, nil)
	ctx := context.Background()
	create := types.CreateCareerRequest{
		JobTitle:         "Designer",
		Department:       "Design",
		Location:         "Berlin",
		JobType:          "Contract",
		ExperienceLevel:  "Senior Level",
		Description:      "Design the product end to end.",
		Responsibilities: []string{"Design"},
		Requirements:     []string{"Figma"},
	}

	_, err := svc.Create(ctx, member, create)
	requireStatus(t, err, http.StatusForbidden)
	_, err = svc.Update(ctx, member, "CAR0000000000000001", types.UpdateCareerRequest{IsActive: ptr(false)})
	requireStatus(t, err, http.StatusForbidden)
	requireStatus(t, svc.Delete(ctx, member, "CAR0000000000000001"), http.StatusForbidden)

	created, err := svc.Create(ctx, admin, create)
	require.NoError(t, err)
	assert.Regexp(t, `^CAR[0-9A-F]{16}$`, created.ID)
	assert.True(t, created.IsActive)
	assert.Equal(t, 1, created.NumberOfPositions)
	require.NoError(t, svc.Delete(ctx, admin, created.ID))
	requireStatus(t, svc.Delete(ctx, admin, created.ID), http.StatusNotFound)
}

func TestCareerList_Public(t *testing.T) {
	inactive := seededCareer()
	inactive.ID = "CAR0000000000000002"
	inactive.IsActive = false
	svc := NewCareerService(newMemCareers(seededCareer(), inactive), nil)

	careers, err := svc.List(context.Background(), types.CareerFilter{IsActive: ptr(true)})
	require.NoError(t, err)
	require.Len(t, careers, 1)
	assert.Equal(t, "CAR0000000000000001", careers[0].ID)
}

func TestCatalogUpdate_EmptyPatchLeavesServiceUnchanged(t *testing.T) {
	before := types.Service{ID: "SRV0000000000000001", Title: "Consulting", Description: "Architecture reviews", Features: []string{}, IsActive: true}
	repo := newMemServices(before)
	svc := NewCatalogService(repo, nil)

	_, err := svc.Update(context.Background(), admin, before.ID, types.UpdateServiceRequest{})

	requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "no fields to update", apperr.PublicMessage(err))
	assert.Zero(t, repo.calls)
	assert.Equal(t, before, repo.byID[before.ID])
}

func TestCatalog_TitleUniqueness(t *testing.T) {
	repo := newMemServices(
		types.Service{ID: "SRV0000000000000001", Title: "Consulting", Description: "Architecture reviews"},
		types.Service{ID: "SRV0000000000000002", Title: "Training", Description: "Workshops for teams"},
	)
	svc := NewCatalogService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, admin, types.CreateServiceRequest{Title: "Consulting", Description: "Something else entirely"})
	requireStatus(t, err, http.StatusConflict)
	assert.Equal(t, msgTitleExists, apperr.PublicMessage(err))

	_, err = svc.Update(ctx, admin, "SRV0000000000000002", types.UpdateServiceRequest{Title: ptr("Consulting")})
	requireStatus(t, err, http.StatusConflict)

	updated, err := svc.Update(ctx, admin, "SRV0000000000000001", types.UpdateServiceRequest{Title: ptr("Consulting"), IsActive: ptr(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	created, err := svc.Create(ctx, admin, types.CreateServiceRequest{Title: "Audits", Description: "Security audits"})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.Equal(t, []string{}, created.Features)
}

func TestContact_PublicCreateAdminRead(t *testing.T) {
	svc := NewContactService(newMemContacts(), nil)
	ctx := context.Background()

	contact, err := svc.Create(ctx, types.CreateContactRequest{Name: "Bo", Email: "bo@x.com", Message: "Please call me back."})
	require.NoError(t, err)
	assert.Regexp(t, `^CNT[0-9A-F]{16}$`, contact.ID)

	_, err = svc.List(ctx, member)
	requireStatus(t, err, http.StatusForbidden)
	contacts, err := svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, contacts, 1)

	updated, err := svc.Update(ctx, admin, contact.ID, types.UpdateContactRequest{CompanyName: ptr("Acme")})
	require.NoError(t, err)
	require.NotNil(t, updated.CompanyName)
	assert.Equal(t, "Acme", *updated.CompanyName)
	assert.Equal(t, contact.Message, updated.Message)

	_, err = svc.Update(ctx, admin, contact.ID, types.UpdateContactRequest{})
	requireStatus(t, err, http.StatusBadRequest)

	require.NoError(t, svc.Delete(ctx, admin, contact.ID))
	_, err = svc.Get(ctx, admin, contact.ID)
	requireStatus(t, err, http.StatusNotFound)
}

func TestProject_ImageLifecycle(t *testing.T) {
	repo := newMemProjects()
	blobs := newFakeBlobs()
	svc := NewProjectService(repo, blobs, nil)
	ctx := context.Background()

	project, err := svc.Create(ctx, admin, types.CreateProjectRequest{Name: "Portal", Client: "Acme", Scope: "Customer portal rebuild"}, file("shot.png", "v1"))
	require.NoError(t, err)
	require.NotNil(t, project.Image)
	first := *project.Image
	assert.True(t, blobs.has(first))

	updated, err := svc.Update(ctx, admin, project.ID, types.UpdateProjectRequest{}, file("shot.png", "v2"))
	require.NoError(t, err)
	require.NotNil(t, updated.Image)
	assert.NotEqual(t, first, *updated.Image)
	assert.True(t, blobs.has(*updated.Image))
	assert.False(t, blobs.has(first))
	assert.Equal(t, "Portal", updated.Name)

	renamed, err := svc.Update(ctx, admin, project.ID, types.UpdateProjectRequest{Name: ptr("Portal v2")}, nil)
	require.NoError(t, err)
	assert.Equal(t, *updated.Image, *renamed.Image)

	require.NoError(t, svc.Delete(ctx, admin, project.ID))
	assert.Equal(t, 0, blobs.count())
	_, err = svc.Get(ctx, project.ID)
	requireStatus(t, err, http.StatusNotFound)
}

func TestProject_UpdateMissingKeepsBlobStoreClean(t *testing.T) {
	blobs := newFakeBlobs()
	svc := NewProjectService(newMemProjects(), blobs, nil)

	_, err := svc.Update(context.Background(), admin, "PRJ0000000000000009", types.UpdateProjectRequest{}, file("shot.png", "v1"))

	requireStatus(t, err, http.StatusNotFound)
	assert.Equal(t, 0, blobs.count())
}

func TestApplication_Submit(t *testing.T) {
	career := seededCareer()
	closed := seededCareer()
	closed.ID = "CAR0000000000000002"
	closed.IsActive = false
	expired := seededCareer()
	expired.ID = "CAR0000000000000003"
	expired.ApplicationDeadline = &past

	apps := newMemApplications()
	blobs := newFakeBlobs()
	svc := NewApplicationService(apps, newMemCareers(career, closed, expired), blobs, nil)
	svc.now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	req := func(careerID string) types.SubmitApplicationRequest {
		return types.SubmitApplicationRequest{CareerID: careerID, ApplicantName: "Cy", ApplicantEmail: "cy@x.com"}
	}

	_, err := svc.Submit(ctx, req("CAR0000000000000009"), file("cv.pdf", "cv"))
	requireStatus(t, err, http.StatusNotFound)
	assert.Equal(t, msgCareerNotFound, apperr.PublicMessage(err))

	_, err = svc.Submit(ctx, req(closed.ID), file("cv.pdf", "cv"))
	requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "this job posting is no longer accepting applications", apperr.PublicMessage(err))

	_, err = svc.Submit(ctx, req(expired.ID), file("cv.pdf", "cv"))
	requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "application deadline has passed", apperr.PublicMessage(err))

	_, err = svc.Submit(ctx, req(career.ID), nil)
	requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, msgResumeRequired, apperr.PublicMessage(err))
	assert.Equal(t, 0, blobs.count())

	application, err := svc.Submit(ctx, req(career.ID), file("cv.pdf", "cv"))
	require.NoError(t, err)
	assert.Regexp(t, `^APP[0-9A-F]{16}$`, application.ID)
	assert.Contains(t, application.ResumeLink, "resumes/"+application.ID+"-")
	assert.True(t, blobs.has(application.ResumeLink))

	grouped, err := svc.ListByCareer(ctx, admin, career.ID)
	require.NoError(t, err)
	assert.Equal(t, career.ID, grouped.Job.ID)
	assert.Equal(t, 1, grouped.TotalApplications)

	_, err = svc.ListByCareer(ctx, member, career.ID)
	requireStatus(t, err, http.StatusForbidden)

	require.NoError(t, svc.Delete(ctx, admin, application.ID))
	assert.False(t, blobs.has(application.ResumeLink))
}

func TestApplication_StoreFailureRemovesResume(t *testing.T) {
	apps := newMemApplications()
	apps.failWrite = errors.New("connection reset")
	blobs := newFakeBlobs()
	svc := NewApplicationService(apps, newMemCareers(seededCareer()), blobs, nil)

	_, err := svc.Submit(context.Background(), types.SubmitApplicationRequest{
		CareerID: "CAR0000000000000001", ApplicantName: "Cy", ApplicantEmail: "cy@x.com",
	}, file("cv.pdf", "cv"))

	requireStatus(t, err, http.StatusInternalServerError)
	assert.Equal(t, "internal server error", apperr.PublicMessage(err))
	assert.Equal(t, 0, blobs.count())
}

func TestApplication_SubmitRetriesDuplicateID(t *testing.T) {
	apps := newMemApplications()
	apps.duplicates = 1
	blobs := newFakeBlobs()
	svc := NewApplicationService(apps, newMemCareers(seededCareer()), blobs, nil)

	application, err := svc.Submit(context.Background(), types.SubmitApplicationRequest{
		CareerID: "CAR0000000000000001", ApplicantName: "Cy", ApplicantEmail: "cy@x.com",
	}, file("cv.pdf", "cv"))

	require.NoError(t, err)
	assert.Equal(t, 0, apps.duplicates)
	assert.Regexp(t, `resumes/APP[0-9A-F]{16}-`, application.ResumeLink)
	assert.NotContains(t, application.ResumeLink, application.ID)
	assert.True(t, blobs.has(application.ResumeLink))
	assert.Equal(t, 1, blobs.count())

	stored, err := apps.Get(context.Background(), application.ID)
	require.NoError(t, err)
	assert.Equal(t, application.ResumeLink, stored.ResumeLink)
}

func TestUserAdmin(t *testing.T) {
	f := newSessionFixture()
	ann := f.register(t, "a@x.com", "secret1")
	bo := f.register(t, "b@x.com", "secret1")
	svc := NewUserService(f.users, f.blobs, nil)
	ctx := context.Background()
	actor := identityOf(ann)
	actor.Role = auth.RoleAdmin

	_, err := svc.List(ctx, identityOf(bo))
	requireStatus(t, err, http.StatusForbidden)
	users, err := svc.List(ctx, actor)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = svc.Update(ctx, actor, bo.ID, types.UpdateUserRequest{}, nil)
	requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, 0, f.users.patches)

	_, err = svc.Update(ctx, actor, bo.ID, types.UpdateUserRequest{Email: ptr("a@x.com")}, nil)
	requireStatus(t, err, http.StatusConflict)
	assert.Equal(t, msgEmailExists, apperr.PublicMessage(err))

	updated, err := svc.Update(ctx, actor, bo.ID, types.UpdateUserRequest{Email: ptr("b@x.com"), Age: ptr(0)}, file("bo.png", "v1"))
	require.NoError(t, err)
	require.NotNil(t, updated.Age)
	assert.Equal(t, 0, *updated.Age)
	require.NotNil(t, updated.Avatar)
	firstAvatar := *updated.Avatar

	updated, err = svc.Update(ctx, actor, bo.ID, types.UpdateUserRequest{}, file("bo.png", "v2"))
	require.NoError(t, err)
	assert.NotEqual(t, firstAvatar, *updated.Avatar)
	assert.False(t, f.blobs.has(firstAvatar))

	self, err := svc.Delete(ctx, actor, bo.ID)
	require.NoError(t, err)
	assert.False(t, self)
	assert.Equal(t, 0, f.blobs.count())

	self, err = svc.Delete(ctx, actor, ann.ID)
	require.NoError(t, err)
	assert.True(t, self)

	_, err = svc.Delete(ctx, actor, ann.ID)
	requireStatus(t, err, http.StatusNotFound)
}

func TestUserSetRole(t *testing.T) {
	f := newSessionFixture()
	ann := f.register(t, "a@x.com", "secret1")
	svc := NewUserService(f.users, f.blobs, nil)
	ctx := context.Background()

	updated, err := svc.SetRole(ctx, "a@x.com", auth.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, updated.Role)
	assert.Equal(t, ann.ID, updated.ID)

	_, err = svc.SetRole(ctx, "a@x.com", "root")
	requireStatus(t, err, http.StatusBadRequest)

	_, err = svc.SetRole(ctx, "nobody@x.com", auth.RoleAdmin)
	requireStatus(t, err, http.StatusNotFound)
}
