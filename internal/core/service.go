package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"budgetcore/pkg/domain"
)

// Service errors.
var (
	ErrReadOnly       = errors.New("operation requires admin access")
	ErrNoAuthProvider = errors.New("no authentication provider configured")
)

// Service is the application facade over the repository, the authorization
// state machine, the sync coordinator and the UI passcode. Commands are
// serialised; every state change is handed to the sync coordinator.
type Service struct {
	mu       sync.Mutex
	cache    domain.LocalCache
	repo     *Repository
	session  *AppSession
	sync     *SyncCoordinator
	passcode *PasscodeGuard
	auth     domain.AuthProvider
	obs      observability

	unsubscribe func()
}

// NewService restores the cached role and prepares an empty repository.
// Call Start to load data and attach to the auth provider.
func NewService(cache domain.LocalCache, opts ...Option) (*Service, error) {
	if cache == nil {
		return nil, fmt.Errorf("local cache is required")
	}
	o := buildOptions(opts)
	session, err := NewAppSession(cache)
	if err != nil {
		return nil, err
	}
	return &Service{
		cache:    cache,
		repo:     NewRepository(domain.DefaultSnapshot(), o.clock),
		session:  session,
		sync:     NewSyncCoordinator(cache, opts...),
		passcode: NewPasscodeGuard(cache),
		auth:     o.auth,
		obs:      o.observability,
	}, nil
}

// Start resolves the backend session, loads the starting snapshot and
// subscribes to session changes.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sess *domain.Session
	if s.auth != nil {
		var err error
		if sess, err = s.auth.CurrentSession(ctx); err != nil {
			s.obs.logger.Warn("restore session failed", "error", err)
			sess = nil
		}
	}
	changed, err := s.session.HandleAuthChange(sess)
	if err != nil {
		return err
	}
	if changed && s.auth == nil {
		s.obs.logger.Warn("cached admin role dropped, no auth provider configured")
	}
	if err := s.reloadLocked(ctx); err != nil {
		return err
	}
	if s.auth != nil && s.unsubscribe == nil {
		bg := context.WithoutCancel(ctx)
		s.unsubscribe = s.auth.Subscribe(func(sess *domain.Session) { s.onAuthChange(bg, sess) })
	}
	s.obs.logger.Info("service started", "role", string(s.session.Role()), "demo", s.session.Demo(), "agency_id", s.repo.CurrentAgencyID())
	return nil
}

// Close detaches from the auth provider and waits for pending uploads.
func (s *Service) Close() {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.mu.Unlock()
	s.sync.Close()
}

// Wait blocks until background uploads have finished.
func (s *Service) Wait() { s.sync.Wait() }

func (s *Service) onAuthChange(ctx context.Context, sess *domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed, err := s.session.HandleAuthChange(sess)
	if err != nil {
		s.obs.logger.Error("persist auth change failed", "error", err)
	}
	if !changed {
		return
	}
	s.obs.logger.Info("auth state changed", "role", string(s.session.Role()), "signed_in", sess != nil)
	if sess != nil {
		if err := s.reloadLocked(ctx); err != nil {
			s.obs.logger.Error("reload after sign-in failed", "error", err)
		}
	}
}

func (s *Service) reloadLocked(ctx context.Context) error {
	snap, err := s.sync.Load(ctx, s.session.Session())
	s.repo.Replace(snap)
	return err
}

// run executes a command under the service lock with tracing, metrics,
// logging and auditing. fn reports whether state changed and which entity
// it touched; changed state is handed to the sync coordinator.
func (s *Service) run(ctx context.Context, op string, requireAdmin bool, fn func() (changed bool, entityID string, err error)) error {
	ctx, span := s.obs.tracer.Start(ctx, op)
	start := s.obs.clock.Now()

	s.mu.Lock()
	role := s.session.Role()
	var (
		changed  bool
		entityID string
		err      error
	)
	if requireAdmin && !role.CanWrite() {
		err = ErrReadOnly
	} else {
		changed, entityID, err = fn()
		if err == nil && changed {
			err = s.sync.Observe(ctx, s.repo.Snapshot(), s.session.Session())
		}
	}
	agencyID := s.repo.CurrentAgencyID()
	s.mu.Unlock()

	duration := since(s.obs.clock, start)
	s.obs.metrics.Observe(ctx, op, err == nil, duration)
	span.End(err)
	entry := AuditEntry{
		Operation: op,
		AgencyID:  agencyID,
		EntityID:  entityID,
		Role:      string(role),
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.obs.clock.Now().UTC(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		s.obs.logger.Warn("operation failed", "operation", op, "error", err)
	} else {
		s.obs.logger.Debug("operation completed", "operation", op, "changed", changed, "entity_id", entityID)
	}
	if requireAdmin {
		s.obs.audit.Record(ctx, entry)
	}
	return err
}

// Role returns the viewer's role.
func (s *Service) Role() domain.Role { return s.session.Role() }

// DemoMode reports whether the demo admin bypass is active.
func (s *Service) DemoMode() bool { return s.session.Demo() }

// Session returns the backend session, or nil.
func (s *Service) Session() *domain.Session { return s.session.Session() }

// Agencies lists the agencies visible to the viewer: every agency for an
// admin, the unlocked agency for a reader and none for a guest.
func (s *Service) Agencies() []domain.Agency {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.session.Role() {
	case domain.RoleAdmin:
		return s.repo.Agencies()
	case domain.RoleReader:
		return []domain.Agency{redactAgency(s.repo.CurrentAgency())}
	default:
		return nil
	}
}

// CurrentAgency returns the current agency. Readers get it without its
// passcode; guests get the zero Agency.
func (s *Service) CurrentAgency() domain.Agency {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.session.Role() {
	case domain.RoleAdmin:
		return s.repo.CurrentAgency()
	case domain.RoleReader:
		return redactAgency(s.repo.CurrentAgency())
	default:
		return domain.Agency{}
	}
}

// Projects lists the current agency's projects, newest first. Guests see
// none.
func (s *Service) Projects() []domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Role() == domain.RoleGuest {
		return nil
	}
	return s.repo.Projects()
}

// Project returns a project of the current agency.
func (s *Service) Project(id int64) (domain.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Role() == domain.RoleGuest {
		return domain.Project{}, false
	}
	return s.repo.Project(id)
}

// Summary returns the budget dashboard for the current agency, or the zero
// summary for a guest.
func (s *Service) Summary() BudgetSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Role() == domain.RoleGuest {
		return BudgetSummary{}
	}
	return s.repo.Summary()
}

// Snapshot returns the repository state visible to the viewer. Only admins
// see every agency and passcode.
func (s *Service) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.session.Role() {
	case domain.RoleAdmin:
		return s.repo.Snapshot()
	case domain.RoleReader:
		cur := redactAgency(s.repo.CurrentAgency())
		return domain.Snapshot{Agencies: []domain.Agency{cur}, CurrentAgencyID: cur.ID}
	default:
		return domain.Snapshot{}
	}
}

func redactAgency(a domain.Agency) domain.Agency {
	a.Passcode = ""
	return a
}

// AddAgency creates an agency and makes it current.
func (s *Service) AddAgency(ctx context.Context, name string) (domain.Agency, error) {
	var created domain.Agency
	err := s.run(ctx, "add_agency", true, func() (bool, string, error) {
		created = s.repo.AddAgency(name)
		return true, created.ID, nil
	})
	return created, err
}

// SwitchAgency makes agency id current. Unknown ids are ignored.
func (s *Service) SwitchAgency(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := s.run(ctx, "switch_agency", true, func() (bool, string, error) {
		ok = s.repo.SwitchAgency(id)
		return ok, id, nil
	})
	return ok, err
}

// UpdateAgencyName renames an agency.
func (s *Service) UpdateAgencyName(ctx context.Context, id, name string) (bool, error) {
	var ok bool
	err := s.run(ctx, "update_agency_name", true, func() (bool, string, error) {
		ok = s.repo.UpdateAgencyName(id, name)
		return ok, id, nil
	})
	return ok, err
}

// UpdateAgencyPasscode sets an agency's reader passcode.
func (s *Service) UpdateAgencyPasscode(ctx context.Context, id, passcode string) (bool, error) {
	var ok bool
	err := s.run(ctx, "update_agency_passcode", true, func() (bool, string, error) {
		ok = s.repo.UpdateAgencyPasscode(id, passcode)
		return ok, id, nil
	})
	return ok, err
}

// DeleteAgency removes an agency; ErrLastAgency when it is the only one.
func (s *Service) DeleteAgency(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := s.run(ctx, "delete_agency", true, func() (bool, string, error) {
		var err error
		ok, err = s.repo.DeleteAgency(id)
		return ok, id, err
	})
	return ok, err
}

// ClearAllData resets to the seeded default agency.
func (s *Service) ClearAllData(ctx context.Context) error {
	return s.run(ctx, "clear_all_data", true, func() (bool, string, error) {
		s.repo.ClearAllData()
		return true, domain.DefaultAgencyID, nil
	})
}

// AddProject adds p to the current agency and returns the stored project.
func (s *Service) AddProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	var created domain.Project
	err := s.run(ctx, "add_project", true, func() (bool, string, error) {
		created = s.repo.AddProject(p)
		return true, fmt.Sprint(created.ID), nil
	})
	return created, err
}

// UpdateProject merges patch into a project of the current agency.
func (s *Service) UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (bool, error) {
	var ok bool
	err := s.run(ctx, "update_project", true, func() (bool, string, error) {
		ok = s.repo.UpdateProject(id, patch)
		return ok, fmt.Sprint(id), nil
	})
	return ok, err
}

// DeleteProject removes a project of the current agency.
func (s *Service) DeleteProject(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := s.run(ctx, "delete_project", true, func() (bool, string, error) {
		ok = s.repo.DeleteProject(id)
		return ok, fmt.Sprint(id), nil
	})
	return ok, err
}

// DuplicateProject copies a project of the current agency.
func (s *Service) DuplicateProject(ctx context.Context, id int64) (domain.Project, bool, error) {
	var (
		cp domain.Project
		ok bool
	)
	err := s.run(ctx, "duplicate_project", true, func() (bool, string, error) {
		cp, ok = s.repo.DuplicateProject(id)
		return ok, fmt.Sprint(cp.ID), nil
	})
	return cp, ok, err
}

// ResetAllProjectDates clears activity dates across every agency.
func (s *Service) ResetAllProjectDates(ctx context.Context) error {
	return s.run(ctx, "reset_all_project_dates", true, func() (bool, string, error) {
		s.repo.ResetAllProjectDates()
		return true, "", nil
	})
}

// AddCategory adds a category to the current agency; repeated names are ignored.
func (s *Service) AddCategory(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := s.run(ctx, "add_category", true, func() (bool, string, error) {
		ok = s.repo.AddCategory(name)
		return ok, name, nil
	})
	return ok, err
}

// DeleteCategory removes a category from the current agency.
func (s *Service) DeleteCategory(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := s.run(ctx, "delete_category", true, func() (bool, string, error) {
		ok = s.repo.DeleteCategory(name)
		return ok, name, nil
	})
	return ok, err
}

// UpdateTotalAllocatedBudget sets the current agency's allocation.
func (s *Service) UpdateTotalAllocatedBudget(ctx context.Context, amount float64) error {
	return s.run(ctx, "update_total_allocated_budget", true, func() (bool, string, error) {
		return s.repo.UpdateTotalAllocatedBudget(amount), "", nil
	})
}

// LoginAsReader grants read-only access to the first agency whose passcode
// matches and makes it current. It reports false when nothing matches. A
// backend session held before the switch is ended.
func (s *Service) LoginAsReader(ctx context.Context, passcode string) (bool, error) {
	var ok, hadSession bool
	err := s.run(ctx, "login_reader", false, func() (bool, string, error) {
		a, found := s.repo.FindAgencyByPasscode(passcode)
		if !found {
			return false, "", nil
		}
		ok = true
		s.sync.Wait()
		hadSession = s.session.Session() != nil
		if err := s.session.EnterReader(); err != nil {
			return false, a.ID, err
		}
		return s.repo.SwitchAgency(a.ID), a.ID, nil
	})
	if err != nil || !hadSession || s.auth == nil {
		return ok, err
	}
	if err := s.auth.SignOut(ctx); err != nil {
		return ok, fmt.Errorf("sign out: %w", err)
	}
	return ok, nil
}

// LoginAsDemoAdmin enters demo mode and reloads data from the local cache.
func (s *Service) LoginAsDemoAdmin(ctx context.Context) error {
	return s.run(ctx, "login_demo", false, func() (bool, string, error) {
		if err := s.session.EnterDemo(); err != nil {
			return false, "", err
		}
		return false, "", s.reloadLocked(ctx)
	})
}

// SignUp registers a backend account and signs in as admin.
func (s *Service) SignUp(ctx context.Context, email, password string) (domain.Session, error) {
	if s.auth == nil {
		return domain.Session{}, ErrNoAuthProvider
	}
	sess, err := s.auth.SignUp(ctx, email, password)
	if err != nil {
		return domain.Session{}, err
	}
	return sess, s.enterBackend(ctx, "sign_up", sess)
}

// SignIn authenticates against the backend and becomes admin. Data is
// reloaded, adopting the remote snapshot when one exists.
func (s *Service) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	if s.auth == nil {
		return domain.Session{}, ErrNoAuthProvider
	}
	sess, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		s.obs.logger.Warn("sign in failed", "email", email, "error", err)
		return domain.Session{}, err
	}
	return sess, s.enterBackend(ctx, "sign_in", sess)
}

// enterBackend completes an explicit sign-in unless the auth callback
// already did.
func (s *Service) enterBackend(ctx context.Context, op string, sess domain.Session) error {
	return s.run(ctx, op, false, func() (bool, string, error) {
		cur := s.session.Session()
		if cur != nil && cur.UserID == sess.UserID && !s.session.Demo() && s.session.Role() == domain.RoleAdmin {
			return false, sess.UserID, nil
		}
		if err := s.session.EnterAdmin(sess); err != nil {
			return false, sess.UserID, err
		}
		return false, sess.UserID, s.reloadLocked(ctx)
	})
}

// UpdatePassword changes the signed-in account's password.
func (s *Service) UpdatePassword(ctx context.Context, newPassword string) error {
	if s.auth == nil {
		return ErrNoAuthProvider
	}
	if s.session.Session() == nil {
		return ErrNoSession
	}
	return s.auth.UpdatePassword(ctx, newPassword)
}

// Logout clears the role and demo flags, ends any backend session and
// reloads state from the local cache.
func (s *Service) Logout(ctx context.Context) error {
	err := s.run(ctx, "logout", false, func() (bool, string, error) {
		s.sync.Wait()
		if err := s.session.Reset(); err != nil {
			return false, "", err
		}
		return false, "", s.reloadLocked(ctx)
	})
	if err != nil {
		return err
	}
	if s.auth != nil {
		if err := s.auth.SignOut(ctx); err != nil {
			return fmt.Errorf("sign out: %w", err)
		}
	}
	return nil
}

// SyncLocalToCloud overwrites the remote document with the local snapshot.
func (s *Service) SyncLocalToCloud(ctx context.Context) error {
	return s.run(ctx, "sync_local_to_cloud", true, func() (bool, string, error) {
		sess := s.session.Session()
		if sess == nil {
			return false, "", ErrNoSession
		}
		return false, sess.UserID, s.sync.ForceUpload(ctx, s.repo.Snapshot(), sess)
	})
}

// VerifyPasscode checks the global UI passcode.
func (s *Service) VerifyPasscode(input string) (bool, error) {
	return s.passcode.Verify(input)
}

// ChangePasscode replaces the global UI passcode.
func (s *Service) ChangePasscode(current, next, confirm string) error {
	if err := s.passcode.Change(current, next, confirm); err != nil {
		return err
	}
	s.obs.logger.Info("ui passcode changed")
	return nil
}
