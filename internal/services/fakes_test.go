package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pipecraft/apiserver/internal/patch"
	"github.com/pipecraft/apiserver/internal/storage"
	"github.com/pipecraft/apiserver/internal/store"
	"github.com/pipecraft/apiserver/types"
)

// memUsers mimics the users table, including the UNIQUE(email) constraint.
type memUsers struct {
	mu      sync.Mutex
	byID    map[string]types.User
	patches int
	failGet error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]types.User{}}
}

func (m *memUsers) GetByID(_ context.Context, id string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return types.User{}, m.failGet
	}
	u, ok := m.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) List(context.Context) ([]types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[user.ID]; ok {
		return types.User{}, store.ErrDuplicateID
	}
	for _, u := range m.byID {
		if u.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	m.byID[user.ID] = user
	return user, nil
}

func (m *memUsers) Patch(_ context.Context, id string, cs patch.Changeset) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patches++
	u, ok := m.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	for _, a := range cs.Assignments() {
		switch a.Column {
		case "name":
			u.Name = a.Value.(string)
		case "email":
			u.Email = a.Value.(string)
		case "phone":
			v := a.Value.(string)
			u.Phone = &v
		case "age":
			v := a.Value.(int)
			u.Age = &v
		case "avatar":
			v := a.Value.(string)
			u.Avatar = &v
		case "password_hash":
			u.PasswordHash = a.Value.(string)
		case "role":
			u.Role = a.Value.(string)
		case "refresh_token":
			if a.Value == nil {
				u.RefreshToken = nil
			} else {
				v := a.Value.(string)
				u.RefreshToken = &v
			}
		case patch.UpdatedAtColumn:
			u.UpdatedAt = a.Value.(time.Time)
		default:
			return types.User{}, fmt.Errorf("unexpected column %q", a.Column)
		}
	}
	m.byID[id] = u
	return u, nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memCareers struct {
	byID  map[string]types.Career
	calls int
}

func newMemCareers(careers ...types.Career) *memCareers {
	m := &memCareers{byID: map[string]types.Career{}}
	for _, c := range careers {
		m.byID[c.ID] = c
	}
	return m
}

func (m *memCareers) List(_ context.Context, filter types.CareerFilter) ([]types.Career, error) {
	m.calls++
	out := make([]types.Career, 0)
	for _, c := range m.byID {
		if filter.IsActive != nil && c.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memCareers) Get(_ context.Context, id string) (types.Career, error) {
	m.calls++
	c, ok := m.byID[id]
	if !ok {
		return types.Career{}, store.ErrNotFound
	}
	return c, nil
}

func (m *memCareers) Create(_ context.Context, c types.Career) (types.Career, error) {
	m.calls++
	m.byID[c.ID] = c
	return c, nil
}

func (m *memCareers) Patch(_ context.Context, id string, cs patch.Changeset) (types.Career, error) {
	m.calls++
	c, ok := m.byID[id]
	if !ok {
		return types.Career{}, store.ErrNotFound
	}
	for _, a := range cs.Assignments() {
		switch a.Column {
		case "job_title":
			c.JobTitle = a.Value.(string)
		case "is_active":
			c.IsActive = a.Value.(bool)
		case "number_of_positions":
			c.NumberOfPositions = a.Value.(int)
		case "responsibilities":
			c.Responsibilities = a.Value.([]string)
		case "salary":
			s := a.Value.(types.Salary)
			c.Salary = &s
		case patch.UpdatedAtColumn:
			c.UpdatedAt = a.Value.(time.Time)
		default:
			return types.Career{}, fmt.Errorf("unexpected column %q", a.Column)
		}
	}
	m.byID[id] = c
	return c, nil
}

func (m *memCareers) Delete(_ context.Context, id string) error {
	m.calls++
	if _, ok := m.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memServices struct {
	byID  map[string]types.Service
	calls int
}

func newMemServices(services ...types.Service) *memServices {
	m := &memServices{byID: map[string]types.Service{}}
	for _, s := range services {
		m.byID[s.ID] = s
	}
	return m
}

func (m *memServices) List(_ context.Context, isActive *bool) ([]types.Service, error) {
	m.calls++
	out := make([]types.Service, 0)
	for _, s := range m.byID {
		if isActive != nil && s.IsActive != *isActive {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memServices) Get(_ context.Context, id string) (types.Service, error) {
	m.calls++
	s, ok := m.byID[id]
	if !ok {
		return types.Service{}, store.ErrNotFound
	}
	return s, nil
}

func (m *memServices) FindByTitle(_ context.Context, title string) (types.Service, error) {
	m.calls++
	for _, s := range m.byID {
		if s.Title == title {
			return s, nil
		}
	}
	return types.Service{}, store.ErrNotFound
}

func (m *memServices) Create(_ context.Context, s types.Service) (types.Service, error) {
	m.calls++
	m.byID[s.ID] = s
	return s, nil
}

func (m *memServices) Patch(_ context.Context, id string, cs patch.Changeset) (types.Service, error) {
	m.calls++
	s, ok := m.byID[id]
	if !ok {
		return types.Service{}, store.ErrNotFound
	}
	for _, a := range cs.Assignments() {
		switch a.Column {
		case "title":
			s.Title = a.Value.(string)
		case "description":
			s.Description = a.Value.(string)
		case "features":
			s.Features = a.Value.([]string)
		case "is_active":
			s.IsActive = a.Value.(bool)
		case patch.UpdatedAtColumn:
			s.UpdatedAt = a.Value.(time.Time)
		}
	}
	m.byID[id] = s
	return s, nil
}

func (m *memServices) Delete(_ context.Context, id string) error {
	m.calls++
	if _, ok := m.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memContacts struct {
	byID map[string]types.Contact
}

func newMemContacts() *memContacts {
	return &memContacts{byID: map[string]types.Contact{}}
}

func (m *memContacts) List(context.Context) ([]types.Contact, error) {
	out := make([]types.Contact, 0, len(m.byID))
	for _, c := range m.byID {
		out = append(out, c)
	}
	return out, nil
}

func (m *memContacts) Get(_ context.Context, id string) (types.Contact, error) {
	c, ok := m.byID[id]
	if !ok {
		return types.Contact{}, store.ErrNotFound
	}
	return c, nil
}

func (m *memContacts) Create(_ context.Context, c types.Contact) (types.Contact, error) {
	m.byID[c.ID] = c
	return c, nil
}

func (m *memContacts) Patch(_ context.Context, id string, cs patch.Changeset) (types.Contact, error) {
	c, ok := m.byID[id]
	if !ok {
		return types.Contact{}, store.ErrNotFound
	}
	for _, a := range cs.Assignments() {
		switch a.Column {
		case "message":
			c.Message = a.Value.(string)
		case "company_name":
			v := a.Value.(string)
			c.CompanyName = &v
		case patch.UpdatedAtColumn:
			c.UpdatedAt = a.Value.(time.Time)
		}
	}
	m.byID[id] = c
	return c, nil
}

func (m *memContacts) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memProjects struct {
	byID map[string]types.Project
}

func newMemProjects(projects ...types.Project) *memProjects {
	m := &memProjects{byID: map[string]types.Project{}}
	for _, p := range projects {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memProjects) List(context.Context) ([]types.Project, error) {
	out := make([]types.Project, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p)
	}
	return out, nil
}

func (m *memProjects) Get(_ context.Context, id string) (types.Project, error) {
	p, ok := m.byID[id]
	if !ok {
		return types.Project{}, store.ErrNotFound
	}
	return p, nil
}

func (m *memProjects) Create(_ context.Context, p types.Project) (types.Project, error) {
	m.byID[p.ID] = p
	return p, nil
}

func (m *memProjects) Patch(_ context.Context, id string, cs patch.Changeset) (types.Project, error) {
	p, ok := m.byID[id]
	if !ok {
		return types.Project{}, store.ErrNotFound
	}
	for _, a := range cs.Assignments() {
		switch a.Column {
		case "name":
			p.Name = a.Value.(string)
		case "client":
			p.Client = a.Value.(string)
		case "scope":
			p.Scope = a.Value.(string)
		case "image":
			v := a.Value.(string)
			p.Image = &v
		case patch.UpdatedAtColumn:
			p.UpdatedAt = a.Value.(time.Time)
		}
	}
	m.byID[id] = p
	return p, nil
}

func (m *memProjects) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memApplications struct {
	byID       map[string]types.Application
	failWrite  error
	duplicates int
}

func newMemApplications() *memApplications {
	return &memApplications{byID: map[string]types.Application{}}
}

func (m *memApplications) List(_ context.Context, careerID *string) ([]types.Application, error) {
	out := make([]types.Application, 0)
	for _, a := range m.byID {
		if careerID != nil && a.CareerID != *careerID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memApplications) Get(_ context.Context, id string) (types.Application, error) {
	a, ok := m.byID[id]
	if !ok {
		return types.Application{}, store.ErrNotFound
	}
	return a, nil
}

func (m *memApplications) Create(_ context.Context, a types.Application) (types.Application, error) {
	if m.failWrite != nil {
		return types.Application{}, m.failWrite
	}
	if m.duplicates > 0 {
		m.duplicates--
		return types.Application{}, store.ErrDuplicateID
	}
	m.byID[a.ID] = a
	return a, nil
}

func (m *memApplications) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

// fakeBlobs follows the BlobLifecycle contract against an in-memory set of
// refs: upload, link, then delete the replaced ref.
type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string]string
	removed []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string]string{}}
}

func (f *fakeBlobs) Create(ctx context.Context, up storage.Upload, link storage.LinkFunc) (string, error) {
	body, err := io.ReadAll(up.Body)
	if err != nil {
		return "", err
	}
	ref := "blob://" + up.Key
	f.mu.Lock()
	f.objects[ref] = string(body)
	f.mu.Unlock()
	if link == nil {
		return ref, nil
	}
	if err := link(ctx, ref); err != nil {
		f.Remove(ctx, &ref)
		return "", err
	}
	return ref, nil
}

func (f *fakeBlobs) Replace(ctx context.Context, oldRef *string, up storage.Upload, link storage.LinkFunc) (string, error) {
	ref, err := f.Create(ctx, up, link)
	if err != nil {
		return "", err
	}
	if oldRef != nil && *oldRef != ref {
		f.Remove(ctx, oldRef)
	}
	return ref, nil
}

func (f *fakeBlobs) Remove(_ context.Context, ref *string) {
	if ref == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *ref)
	f.removed = append(f.removed, *ref)
}

func (f *fakeBlobs) has(ref string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[ref]
	return ok
}

func (f *fakeBlobs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func file(name, body string) *File {
	return &File{Name: name, ContentType: "application/octet-stream", Size: int64(len(body)), Body: strings.NewReader(body)}
}

func ptr[T any](v T) *T { return &v }
