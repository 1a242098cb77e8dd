package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	uuid "github.com/google/uuid"

	"github.com/arklim/signup-iam/internal/core/domain"
	"github.com/arklim/signup-iam/internal/core/port"
	"github.com/arklim/signup-iam/internal/infra/security"
	"github.com/arklim/signup-iam/internal/repository"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testPassword = "Abcdef1!"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// memoryStore backs the in-memory repositories. Unique constraints mirror the database schema.
type memoryStore struct {
	mu          sync.Mutex
	pending     map[string]domain.PendingUser
	users       map[string]domain.ValidatedUser
	permissions map[string]domain.Permission
	grants      map[string]map[string]time.Time
	profiles    map[string]domain.Profile
}

func newMemoryStore() *memoryStore {
	store := &memoryStore{
		pending:     make(map[string]domain.PendingUser),
		users:       make(map[string]domain.ValidatedUser),
		permissions: make(map[string]domain.Permission),
		grants:      make(map[string]map[string]time.Time),
		profiles:    make(map[string]domain.Profile),
	}
	for _, name := range []string{domain.ScopeAdminRead, domain.ScopeAdminWrite, domain.ScopeUserRead, domain.ScopeUserWrite} {
		id := uuid.NewString()
		store.permissions[id] = domain.Permission{ID: id, Name: name}
	}
	return store
}

type pendingRepo struct {
	store     *memoryStore
	deleteErr error
}

func (r *pendingRepo) Create(_ context.Context, user domain.PendingUser) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.pending {
		switch {
		case existing.Username == user.Username:
			return &repository.ConflictError{Column: repository.ColumnUsername}
		case existing.Email != nil && user.Email != nil && *existing.Email == *user.Email:
			return &repository.ConflictError{Column: repository.ColumnEmail}
		case existing.Phone == user.Phone:
			return &repository.ConflictError{Column: repository.ColumnPhone}
		}
	}
	r.store.pending[user.Username] = user
	return nil
}

func (r *pendingRepo) find(match func(domain.PendingUser) bool) (*domain.PendingUser, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.pending {
		if match(user) {
			copy := user
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *pendingRepo) GetByUsername(_ context.Context, username string) (*domain.PendingUser, error) {
	return r.find(func(u domain.PendingUser) bool { return u.Username == username })
}

func (r *pendingRepo) GetByEmail(_ context.Context, email string) (*domain.PendingUser, error) {
	return r.find(func(u domain.PendingUser) bool { return u.Email != nil && *u.Email == email })
}

func (r *pendingRepo) GetByPhone(_ context.Context, phone string) (*domain.PendingUser, error) {
	return r.find(func(u domain.PendingUser) bool { return u.Phone == phone })
}

func (r *pendingRepo) List(context.Context) ([]domain.PendingUser, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]domain.PendingUser, 0, len(r.store.pending))
	for _, user := range r.store.pending {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *pendingRepo) Delete(_ context.Context, username string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.pending[username]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.pending, username)
	return nil
}

type userRepo struct {
	store     *memoryStore
	createErr error
	updateErr error
	updates   int
}

func (r *userRepo) Create(_ context.Context, user domain.ValidatedUser) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.users {
		switch {
		case existing.Username == user.Username:
			return &repository.ConflictError{Column: repository.ColumnUsername}
		case existing.Email != nil && user.Email != nil && *existing.Email == *user.Email:
			return &repository.ConflictError{Column: repository.ColumnEmail}
		case existing.Phone == user.Phone:
			return &repository.ConflictError{Column: repository.ColumnPhone}
		}
	}
	r.store.users[user.ID] = user
	return nil
}

func (r *userRepo) find(match func(domain.ValidatedUser) bool) (*domain.ValidatedUser, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.users {
		if match(user) {
			copy := user
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.ValidatedUser, error) {
	return r.find(func(u domain.ValidatedUser) bool { return u.ID == id })
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*domain.ValidatedUser, error) {
	return r.find(func(u domain.ValidatedUser) bool { return u.Username == username })
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.ValidatedUser, error) {
	return r.find(func(u domain.ValidatedUser) bool { return u.Email != nil && *u.Email == email })
}

func (r *userRepo) GetByPhone(_ context.Context, phone string) (*domain.ValidatedUser, error) {
	return r.find(func(u domain.ValidatedUser) bool { return u.Phone == phone })
}

func (r *userRepo) List(context.Context) ([]domain.ValidatedUser, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]domain.ValidatedUser, 0, len(r.store.users))
	for _, user := range r.store.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *userRepo) Update(_ context.Context, id string, update domain.UserUpdate) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if update.PasswordHash != nil {
		user.PasswordHash = *update.PasswordHash
	}
	if update.Active != nil {
		user.Active = *update.Active
	}
	r.store.users[id] = user
	r.updates++
	return nil
}

func (r *userRepo) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.users, id)
	delete(r.store.grants, id)
	for profileID, profile := range r.store.profiles {
		if profile.UserID == id {
			delete(r.store.profiles, profileID)
		}
	}
	return nil
}

type permissionRepo struct {
	store    *memoryStore
	grantErr error
}

func (r *permissionRepo) GetByName(_ context.Context, name string) (*domain.Permission, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, permission := range r.store.permissions {
		if permission.Name == name {
			copy := permission
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *permissionRepo) GetByID(_ context.Context, id string) (*domain.Permission, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	permission, ok := r.store.permissions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &permission, nil
}

func (r *permissionRepo) List(context.Context) ([]domain.Permission, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]domain.Permission, 0, len(r.store.permissions))
	for _, permission := range r.store.permissions {
		out = append(out, permission)
	}
	return out, nil
}

func (r *permissionRepo) Grant(_ context.Context, permissionID, userID string) error {
	if r.grantErr != nil {
		return r.grantErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[userID]; !ok {
		return repository.ErrNotFound
	}
	if r.store.grants[userID] == nil {
		r.store.grants[userID] = make(map[string]time.Time)
	}
	if _, ok := r.store.grants[userID][permissionID]; !ok {
		r.store.grants[userID][permissionID] = testNow
	}
	return nil
}

func (r *permissionRepo) Revoke(_ context.Context, permissionID, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.grants[userID][permissionID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.grants[userID], permissionID)
	return nil
}

func (r *permissionRepo) GetGrant(_ context.Context, permissionID, userID string) (*domain.PermissionGrant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	at, ok := r.store.grants[userID][permissionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &domain.PermissionGrant{PermissionID: permissionID, UserID: userID, GrantedAt: at}, nil
}

func (r *permissionRepo) ListGrantsByUser(_ context.Context, userID string) ([]domain.PermissionGrant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]domain.PermissionGrant, 0, len(r.store.grants[userID]))
	for permissionID, at := range r.store.grants[userID] {
		out = append(out, domain.PermissionGrant{PermissionID: permissionID, UserID: userID, GrantedAt: at})
	}
	return out, nil
}

type recordingMetrics struct {
	mu             sync.Mutex
	logins         map[string]int
	signups        map[string]int
	approvals      map[string]int
	authorizations map[string]int
	activeUsers    float64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		logins:         make(map[string]int),
		signups:        make(map[string]int),
		approvals:      make(map[string]int),
		authorizations: make(map[string]int),
	}
}

func (m *recordingMetrics) ObserveLogin(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins[outcome]++
}

func (m *recordingMetrics) ObserveSignup(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signups[outcome]++
}

func (m *recordingMetrics) ObserveApproval(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approvals[outcome]++
}

func (m *recordingMetrics) ObserveAuthorization(operation, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authorizations[operation+"/"+outcome]++
}

func (m *recordingMetrics) AddActiveUsers(delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeUsers += delta
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) record(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, name)
	return p.err
}

func (p *recordingPublisher) PublishUserSignedUp(context.Context, domain.UserSignedUpEvent) error {
	return p.record("signed_up")
}

func (p *recordingPublisher) PublishUserApproved(context.Context, domain.UserApprovedEvent) error {
	return p.record("approved")
}

func (p *recordingPublisher) PublishPasswordChanged(context.Context, domain.PasswordChangedEvent) error {
	return p.record("password_changed")
}

func (p *recordingPublisher) PublishUserDeleted(_ context.Context, event domain.UserDeletedEvent) error {
	return p.record("deleted:" + string(event.State))
}

func (p *recordingPublisher) PublishPermissionsChanged(context.Context, domain.PermissionsChangedEvent) error {
	return p.record("permissions_changed")
}

func (p *recordingPublisher) PublishUserActivationChanged(context.Context, domain.UserActivationChangedEvent) error {
	return p.record("activation_changed")
}

type profileRepo struct {
	store *memoryStore
}

func (r *profileRepo) Create(_ context.Context, profile domain.Profile) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[profile.UserID]; !ok {
		return repository.ErrNotFound
	}
	for _, existing := range r.store.profiles {
		if existing.UserID == profile.UserID {
			return &repository.ConflictError{}
		}
	}
	r.store.profiles[profile.ID] = profile
	return nil
}

func (r *profileRepo) find(match func(domain.Profile) bool) (*domain.Profile, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, profile := range r.store.profiles {
		if match(profile) {
			copy := profile
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *profileRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	return r.find(func(p domain.Profile) bool { return p.ID == id })
}

func (r *profileRepo) GetByUserID(_ context.Context, userID string) (*domain.Profile, error) {
	return r.find(func(p domain.Profile) bool { return p.UserID == userID })
}

func (r *profileRepo) Update(_ context.Context, id string, update domain.ProfileUpdate) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	profile, ok := r.store.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	if update.FirstName != nil {
		profile.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		profile.LastName = *update.LastName
	}
	if update.Birthday != nil {
		profile.Birthday = *update.Birthday
	}
	if update.Gender != nil {
		profile.Gender = *update.Gender
	}
	profile.UpdatedAt = update.UpdatedAt
	r.store.profiles[id] = profile
	return nil
}

func (r *profileRepo) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.profiles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.profiles, id)
	return nil
}

// testEnv wires every service over a shared memory store with real security primitives.
type testEnv struct {
	store        *memoryStore
	pending      *pendingRepo
	users        *userRepo
	permissions  *permissionRepo
	profiles     *profileRepo
	hasher       *security.PasswordHasher
	codec        *security.TokenCodec
	policy       *security.PasswordPolicy
	metrics      *recordingMetrics
	events       *recordingPublisher
	clock        *time.Time
	authorizer   *ScopeAuthorizer
	auth         *AuthService
	registration *RegistrationService
	userService  *UserService
	profile      *ProfileService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemoryStore()
	env := &testEnv{
		store:       store,
		pending:     &pendingRepo{store: store},
		users:       &userRepo{store: store},
		permissions: &permissionRepo{store: store},
		profiles:    &profileRepo{store: store},
		metrics:     newRecordingMetrics(),
		events:      &recordingPublisher{},
	}
	now := testNow
	env.clock = &now
	clock := func() time.Time { return *env.clock }

	hasher, err := security.NewPasswordHasher(security.Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewPasswordHasher returned error: %v", err)
	}
	env.hasher = hasher

	codec, err := security.NewTokenCodec([]byte(testSecret), 30*time.Minute, security.WithClock(clock))
	if err != nil {
		t.Fatalf("NewTokenCodec returned error: %v", err)
	}
	env.codec = codec

	policy := security.NewPasswordPolicy(security.DefaultPasswordPolicyConfig())
	env.policy = policy

	env.authorizer = NewScopeAuthorizer(env.users, env.permissions)
	env.auth = NewAuthService(env.users, env.authorizer, hasher, policy, codec).
		WithMetrics(env.metrics).
		WithEventPublisher(env.events).
		WithClock(clock)
	env.registration = NewRegistrationService(env.pending, env.users, env.permissions, hasher, policy).
		WithMetrics(env.metrics).
		WithEventPublisher(env.events).
		WithClock(clock)
	env.userService = NewUserService(env.users, env.permissions, env.authorizer).
		WithMetrics(env.metrics).
		WithEventPublisher(env.events).
		WithClock(clock)
	env.profile = NewProfileService(env.profiles).WithClock(clock)
	return env
}

func (e *testEnv) advance(d time.Duration) {
	*e.clock = e.clock.Add(d)
}

// seedActiveUser signs up and approves username with testPassword.
func (e *testEnv) seedActiveUser(t *testing.T, username, email, phone string) *domain.PublicUser {
	t.Helper()
	ctx := context.Background()
	if _, err := e.registration.Signup(ctx, domain.SignupCandidate{
		Username: username,
		Password: testPassword,
		Email:    email,
		Phone:    phone,
	}); err != nil {
		t.Fatalf("Signup(%s) returned error: %v", username, err)
	}
	user, err := e.registration.Approve(ctx, username, "admin")
	if err != nil {
		t.Fatalf("Approve(%s) returned error: %v", username, err)
	}
	return user
}

func (e *testEnv) loginToken(t *testing.T, username string) string {
	t.Helper()
	token, err := e.auth.Login(context.Background(), username, testPassword)
	if err != nil {
		t.Fatalf("Login(%s) returned error: %v", username, err)
	}
	return token.AccessToken
}

var errStoreDown = errors.New("store unavailable")

var (
	_ port.PendingUserRepository = (*pendingRepo)(nil)
	_ port.UserRepository        = (*userRepo)(nil)
	_ port.PermissionRepository  = (*permissionRepo)(nil)
	_ port.ProfileRepository     = (*profileRepo)(nil)
	_ port.AuthMetrics           = (*recordingMetrics)(nil)
	_ port.EventPublisher        = (*recordingPublisher)(nil)
)
