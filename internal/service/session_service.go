package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/bppowerplay/portal/internal/model"
	"github.com/bppowerplay/portal/pkg/auth"
	"github.com/bppowerplay/portal/pkg/fingerprint"
	"github.com/bppowerplay/portal/pkg/identity"
)

// SessionStore is the local persistence the guard owns: the session record,
// the device id, and the account email. Nobody else writes these.
type SessionStore interface {
	SaveSession(ctx context.Context, rec *model.SessionRecord) error
	GetSession(ctx context.Context) (*model.SessionRecord, error)
	SaveDeviceID(ctx context.Context, deviceID string) error
	GetDeviceID(ctx context.Context) (string, error)
	SaveEmail(ctx context.Context, email string) error
	GetEmail(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// DeviceStore is the remote document store holding one device-ownership
// record per account.
type DeviceStore interface {
	Get(ctx context.Context, email string) (*model.DeviceRecord, error)
	Upsert(ctx context.Context, email string, rec *model.DeviceRecord) error
	TouchVerified(ctx context.Context, email string, at time.Time) error
	Delete(ctx context.Context, email string) error
}

// EventSink pushes guard events to open pages.
type EventSink interface {
	SendToAccount(email string, event *model.WSEvent)
}

// DeviceAlerter sends the new-device security notice. Optional.
type DeviceAlerter interface {
	SendDeviceAlert(toEmail, userAgent, platform string, when time.Time) error
}

// Config holds the guard's timing parameters.
type Config struct {
	SessionDuration time.Duration // validity window of a new session
	VerifyInterval  time.Duration // periodic device re-check
	WarningWindow   time.Duration // multi-device warning display window
}

// Guard owns the login/logout lifecycle and the single-active-device check:
// LoggedOut → Authenticating → Active → {Expired, DeviceSuperseded} → LoggedOut.
// All dependencies are injected; the guard never reaches for globals.
type Guard struct {
	provider identity.Provider
	devices  DeviceStore
	store    SessionStore
	tokens   *auth.TokenManager
	events   EventSink
	alerter  DeviceAlerter

	cfg Config
	now func() time.Time

	mu           sync.Mutex
	state        model.SessionState
	stopVerifier context.CancelFunc
}

// NewGuard creates the session/device guard.
func NewGuard(
	provider identity.Provider,
	devices DeviceStore,
	store SessionStore,
	tokens *auth.TokenManager,
	events EventSink,
	alerter DeviceAlerter,
	cfg Config,
) *Guard {
	return &Guard{
		provider: provider,
		devices:  devices,
		store:    store,
		tokens:   tokens,
		events:   events,
		alerter:  alerter,
		cfg:      cfg,
		now:      time.Now,
		state:    model.StateLoggedOut,
	}
}

// State returns the guard's current lifecycle state.
func (g *Guard) State() model.SessionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Guard) setState(s model.SessionState) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

// ==================== Login ====================

// Login delegates credential verification to the identity provider, then
// claims the account's single active device: the remote ownership record is
// overwritten unconditionally, a fresh 7-day session is persisted locally,
// and a session token is issued. Provider failures are returned verbatim and
// never retried.
func (g *Guard) Login(ctx context.Context, email, password string, signals model.DeviceSignals) (*model.LoginResponse, error) {
	g.setState(model.StateAuthenticating)

	user, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		g.setState(model.StateLoggedOut)
		return nil, err
	}

	now := g.now()
	deviceID := fingerprint.DeviceID(signals)

	prior, err := g.devices.Get(ctx, user.Email)
	if err != nil {
		log.Printf("⚠️  Could not read prior device record for %s: %v", user.Email, err)
	}

	rec := &model.DeviceRecord{
		DeviceID:     deviceID,
		LastLogin:    now,
		LastVerified: now,
		UserAgent:    signals.UserAgent,
		Platform:     signals.Platform,
	}
	if err := g.devices.Upsert(ctx, user.Email, rec); err != nil {
		// The session still proceeds; the next verification pass settles it.
		log.Printf("⚠️  Failed to store device record for %s: %v", user.Email, err)
	}

	session := &model.SessionRecord{
		Email:     user.Email,
		AccountID: user.UID,
		DeviceID:  deviceID,
		LoginTime: now,
		Expiry:    now.Add(g.cfg.SessionDuration),
	}

	if err := g.store.SaveSession(ctx, session); err != nil {
		g.setState(model.StateLoggedOut)
		return nil, errors.New("failed to persist session")
	}
	if err := g.store.SaveDeviceID(ctx, deviceID); err != nil {
		g.setState(model.StateLoggedOut)
		return nil, errors.New("failed to persist device id")
	}
	if err := g.store.SaveEmail(ctx, user.Email); err != nil {
		g.setState(model.StateLoggedOut)
		return nil, errors.New("failed to persist account email")
	}

	token, err := g.tokens.Generate(user.UID, user.Email, deviceID)
	if err != nil {
		g.setState(model.StateLoggedOut)
		return nil, errors.New("failed to generate session token")
	}

	g.setState(model.StateActive)
	g.startVerifier()

	// Tell the account a new device took over, asynchronously and best-effort.
	if prior != nil && prior.DeviceID != deviceID && g.alerter != nil {
		go func() {
			if err := g.alerter.SendDeviceAlert(user.Email, signals.UserAgent, signals.Platform, now); err != nil {
				log.Printf("⚠️  Device alert email failed for %s: %v", user.Email, err)
			}
		}()
	}

	return &model.LoginResponse{Token: token, Session: *session}, nil
}

// ==================== Session reconciliation ====================

// CheckSession is the read-only reconciliation run on page load. The initial
// answer comes from persisted state: no session means logged out, an expired
// session is cleared without any network call, and only a live session is
// handed to device verification.
func (g *Guard) CheckSession(ctx context.Context) (*model.SessionStatusResponse, error) {
	session, err := g.store.GetSession(ctx)
	if err != nil {
		return nil, err
	}

	if session == nil {
		g.setState(model.StateLoggedOut)
		return &model.SessionStatusResponse{State: model.StateLoggedOut}, nil
	}

	if session.Expired(g.now()) {
		if err := g.store.Clear(ctx); err != nil {
			log.Printf("⚠️  Failed to clear expired session: %v", err)
		}
		g.stop()
		g.setState(model.StateLoggedOut)
		return &model.SessionStatusResponse{State: model.StateExpired}, nil
	}

	if !g.VerifyDevice(ctx, session.Email) {
		return &model.SessionStatusResponse{State: model.StateDeviceSuperseded}, nil
	}

	g.setState(model.StateActive)
	g.startVerifier()
	return &model.SessionStatusResponse{State: model.StateActive, Session: session}, nil
}

// VerifyDevice checks that this gateway still owns the account's single
// active session. A missing local id, a missing remote record, a mismatch, or
// any store failure all mean ownership cannot be confirmed: force logout and
// warn, never fall back to granting access. On a match only the remote
// lastVerified timestamp is refreshed.
func (g *Guard) VerifyDevice(ctx context.Context, email string) bool {
	localID, err := g.store.GetDeviceID(ctx)
	if err != nil || localID == "" {
		g.supersede(ctx, email)
		return false
	}

	rec, err := g.devices.Get(ctx, email)
	if err != nil {
		log.Printf("⚠️  Device verification failed for %s: %v", email, err)
		g.supersede(ctx, email)
		return false
	}

	if rec == nil || rec.DeviceID != localID {
		g.supersede(ctx, email)
		return false
	}

	if err := g.devices.TouchVerified(ctx, email, g.now()); err != nil {
		log.Printf("⚠️  Failed to refresh lastVerified for %s: %v", email, err)
	}
	return true
}

// supersede handles loss of device ownership: force logout and surface the
// multi-device warning for a bounded display window.
func (g *Guard) supersede(ctx context.Context, email string) {
	g.setState(model.StateDeviceSuperseded)

	if g.events != nil {
		g.events.SendToAccount(email, &model.WSEvent{
			Type: model.WSEventDeviceSuperseded,
			Payload: model.DeviceSupersededEvent{
				Email:     email,
				Message:   "Your account was signed in on another device. This device has been signed out.",
				DisplayMs: g.cfg.WarningWindow.Milliseconds(),
			},
		})
	}

	if err := g.Logout(ctx); err != nil {
		log.Printf("⚠️  Forced logout failed: %v", err)
	}
}

// ==================== Logout ====================

// Logout is best-effort on the remote side: the ownership record delete and
// the provider sign-out may fail, but local cleanup always runs.
func (g *Guard) Logout(ctx context.Context) error {
	session, err := g.store.GetSession(ctx)
	if err != nil {
		log.Printf("⚠️  Could not read session during logout: %v", err)
	}

	if session != nil {
		if err := g.devices.Delete(ctx, session.Email); err != nil {
			log.Printf("⚠️  Failed to delete remote device record for %s: %v", session.Email, err)
		}
		if err := g.provider.SignOut(ctx, session.AccountID); err != nil {
			log.Printf("⚠️  Provider sign-out failed for %s: %v", session.Email, err)
		}
	}

	clearErr := g.store.Clear(ctx)

	g.stop()
	g.setState(model.StateLoggedOut)
	return clearErr
}

// ==================== Periodic verification ====================

// startVerifier launches the fixed-interval device re-check. This is how the
// first device learns, within one interval, that a second device logged in.
func (g *Guard) startVerifier() {
	g.mu.Lock()
	if g.stopVerifier != nil {
		g.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	g.stopVerifier = cancel
	g.mu.Unlock()

	go g.verifyLoop(ctx)
}

// stop cancels the verifier so no background check outlives its session.
func (g *Guard) stop() {
	g.mu.Lock()
	cancel := g.stopVerifier
	g.stopVerifier = nil
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Stop tears the guard down on shutdown.
func (g *Guard) Stop() {
	g.stop()
}

func (g *Guard) verifyLoop(ctx context.Context) {
	ticker := time.NewTicker(g.cfg.VerifyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tickCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			session, err := g.store.GetSession(tickCtx)
			switch {
			case err != nil:
				log.Printf("⚠️  Verifier could not read session: %v", err)
			case session == nil:
				cancel()
				g.stop()
				return
			case session.Expired(g.now()):
				if err := g.store.Clear(tickCtx); err != nil {
					log.Printf("⚠️  Failed to clear expired session: %v", err)
				}
				g.setState(model.StateLoggedOut)
				cancel()
				g.stop()
				return
			default:
				g.VerifyDevice(tickCtx, session.Email)
			}
			cancel()
		}
	}
}
