package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/homereach/dispatch/internal/platform/apperr"
	"github.com/homereach/dispatch/internal/platform/auth"
)

type mockRepo struct {
	profiles  map[uuid.UUID]*NurseProfile
	locations map[uuid.UUID]*NurseLocation
	now       time.Time
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		profiles:  make(map[uuid.UUID]*NurseProfile),
		locations: make(map[uuid.UUID]*NurseLocation),
		now:       time.Now(),
	}
}

func (m *mockRepo) CreateProfile(_ context.Context, p *NurseProfile) error {
	p.CreatedAt = m.now
	p.UpdatedAt = m.now
	m.profiles[p.UserID] = p
	return nil
}

func (m *mockRepo) GetProfile(_ context.Context, userID uuid.UUID) (*NurseProfile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockRepo) ListProfiles(_ context.Context, limit, offset int) ([]*NurseProfile, int, error) {
	var items []*NurseProfile
	for _, p := range m.profiles {
		items = append(items, p)
	}
	return items, len(items), nil
}

func (m *mockRepo) SetAvailability(_ context.Context, userID uuid.UUID, available bool) error {
	p, ok := m.profiles[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	p.Available = available
	return nil
}

func (m *mockRepo) SetActive(_ context.Context, userID uuid.UUID, active bool) error {
	p, ok := m.profiles[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	p.Active = active
	return nil
}

func (m *mockRepo) UpsertLocationThrottled(_ context.Context, nurseID uuid.UUID, lat, lng float64, minInterval time.Duration) (*NurseLocation, bool, error) {
	if existing, ok := m.locations[nurseID]; ok {
		if m.now.Sub(existing.UpdatedAt) < minInterval {
			return existing, false, nil
		}
	}
	loc := &NurseLocation{NurseID: nurseID, Lat: lat, Lng: lng, UpdatedAt: m.now}
	m.locations[nurseID] = loc
	return loc, true, nil
}

func (m *mockRepo) GetLocation(_ context.Context, nurseID uuid.UUID) (*NurseLocation, error) {
	loc, ok := m.locations[nurseID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return loc, nil
}

type mockAudit struct {
	overrides []struct {
		adminID   uuid.UUID
		nurseID   uuid.UUID
		available bool
	}
}

func (m *mockAudit) RecordAvailabilityOverride(_ context.Context, adminID, nurseID uuid.UUID, available bool) error {
	m.overrides = append(m.overrides, struct {
		adminID   uuid.UUID
		nurseID   uuid.UUID
		available bool
	}{adminID, nurseID, available})
	return nil
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *mockRepo, *mockAudit) {
	repo := newMockRepo()
	audit := &mockAudit{}
	return NewService(repo, audit, passthroughTx, 30*time.Second), repo, audit
}

func seedNurse(repo *mockRepo, active bool) *NurseProfile {
	p := &NurseProfile{
		UserID:    uuid.New(),
		FullName:  "Dana Reyes",
		LicenseNo: "RN-442871",
		Active:    active,
		Available: true,
	}
	repo.profiles[p.UserID] = p
	return p
}

func TestRegisterNurse_Validation(t *testing.T) {
	svc, _, _ := newTestService()

	cases := []struct {
		name    string
		profile NurseProfile
	}{
		{"missing user id", NurseProfile{FullName: "A", LicenseNo: "L"}},
		{"missing name", NurseProfile{UserID: uuid.New(), LicenseNo: "L"}},
		{"missing license", NurseProfile{UserID: uuid.New(), FullName: "A"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.RegisterNurse(context.Background(), &tc.profile)
			if !apperr.IsKind(err, apperr.KindValidation) {
				t.Fatalf("expected Validation, got %v", err)
			}
		})
	}
}

func TestRegisterNurse_DefaultsActiveAvailable(t *testing.T) {
	svc, repo, _ := newTestService()
	p := &NurseProfile{UserID: uuid.New(), FullName: "Dana Reyes", LicenseNo: "RN-1"}
	if err := svc.RegisterNurse(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored := repo.profiles[p.UserID]
	if !stored.Active || !stored.Available {
		t.Errorf("expected new nurse active and available, got active=%v available=%v", stored.Active, stored.Available)
	}
}

func TestUpdateAvailability_Self(t *testing.T) {
	svc, repo, audit := newTestService()
	nurse := seedNurse(repo, true)

	actor := auth.Actor{ID: nurse.UserID, Role: auth.RoleNurse}
	if err := svc.UpdateAvailability(context.Background(), actor, nurse.UserID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.profiles[nurse.UserID].Available {
		t.Error("expected availability false")
	}
	if len(audit.overrides) != 0 {
		t.Error("self update must not write an admin audit entry")
	}
}

func TestUpdateAvailability_OtherNurseForbidden(t *testing.T) {
	svc, repo, _ := newTestService()
	nurse := seedNurse(repo, true)

	actor := auth.Actor{ID: uuid.New(), Role: auth.RoleNurse}
	err := svc.UpdateAvailability(context.Background(), actor, nurse.UserID, false)
	if !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}

func TestUpdateAvailability_AdminOverrideAudited(t *testing.T) {
	svc, repo, audit := newTestService()
	nurse := seedNurse(repo, true)
	admin := auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin}

	if err := svc.UpdateAvailability(context.Background(), admin, nurse.UserID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(audit.overrides) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(audit.overrides))
	}
	entry := audit.overrides[0]
	if entry.adminID != admin.ID || entry.nurseID != nurse.UserID || entry.available {
		t.Errorf("unexpected audit entry: %+v", entry)
	}
}

func TestUpdateAvailability_InactiveNurseForbidden(t *testing.T) {
	svc, repo, _ := newTestService()
	nurse := seedNurse(repo, false)

	actor := auth.Actor{ID: nurse.UserID, Role: auth.RoleNurse}
	err := svc.UpdateAvailability(context.Background(), actor, nurse.UserID, true)
	if !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}

func TestUpdateAvailability_UnknownNurseNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	id := uuid.New()
	actor := auth.Actor{ID: id, Role: auth.RoleNurse}
	err := svc.UpdateAvailability(context.Background(), actor, id, true)
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestUpdateLocation_InvalidCoordinates(t *testing.T) {
	svc, repo, _ := newTestService()
	nurse := seedNurse(repo, true)
	actor := auth.Actor{ID: nurse.UserID, Role: auth.RoleNurse}

	_, err := svc.UpdateLocation(context.Background(), actor, 91, 0)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected Validation for lat=91, got %v", err)
	}
	_, err = svc.UpdateLocation(context.Background(), actor, 0, -181)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected Validation for lng=-181, got %v", err)
	}
}

func TestUpdateLocation_WritesFirstReport(t *testing.T) {
	svc, repo, _ := newTestService()
	nurse := seedNurse(repo, true)
	actor := auth.Actor{ID: nurse.UserID, Role: auth.RoleNurse}

	result, err := svc.UpdateLocation(context.Background(), actor, 40.7128, -74.0060)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Throttled {
		t.Error("first report should not be throttled")
	}
	if result.Location.Lat != 40.7128 || result.Location.Lng != -74.0060 {
		t.Errorf("unexpected stored location: %+v", result.Location)
	}
}

func TestUpdateLocation_ThrottledKeepsPrevious(t *testing.T) {
	svc, repo, _ := newTestService()
	nurse := seedNurse(repo, true)
	actor := auth.Actor{ID: nurse.UserID, Role: auth.RoleNurse}

	// A report stored 5s ago is inside the 30s window.
	repo.locations[nurse.UserID] = &NurseLocation{
		NurseID: nurse.UserID, Lat: 10, Lng: 20, UpdatedAt: repo.now.Add(-5 * time.Second),
	}

	result, err := svc.UpdateLocation(context.Background(), actor, 11, 21)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Throttled {
		t.Fatal("expected throttled result")
	}
	if result.Location.Lat != 10 || result.Location.Lng != 20 {
		t.Errorf("throttled update must keep previous location, got %+v", result.Location)
	}
}

func TestUpdateLocation_AcceptedAfterWindow(t *testing.T) {
	svc, repo, _ := newTestService()
	nurse := seedNurse(repo, true)
	actor := auth.Actor{ID: nurse.UserID, Role: auth.RoleNurse}

	repo.locations[nurse.UserID] = &NurseLocation{
		NurseID: nurse.UserID, Lat: 10, Lng: 20, UpdatedAt: repo.now.Add(-31 * time.Second),
	}

	result, err := svc.UpdateLocation(context.Background(), actor, 11, 21)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Throttled {
		t.Fatal("report outside the window must be written")
	}
	if result.Location.Lat != 11 || result.Location.Lng != 21 {
		t.Errorf("unexpected stored location: %+v", result.Location)
	}
}

func TestUpdateLocation_InactiveForbidden(t *testing.T) {
	svc, repo, _ := newTestService()
	nurse := seedNurse(repo, false)
	actor := auth.Actor{ID: nurse.UserID, Role: auth.RoleNurse}

	_, err := svc.UpdateLocation(context.Background(), actor, 0, 0)
	if !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}

func TestUpdateLocation_NoProfileNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	actor := auth.Actor{ID: uuid.New(), Role: auth.RoleNurse}

	_, err := svc.UpdateLocation(context.Background(), actor, 0, 0)
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
