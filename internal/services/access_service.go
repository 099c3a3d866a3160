package services

import (
	"context"
	"log/slog"
	"time"

	"gatehouse/internal/auth"
	"gatehouse/internal/models"
	"gatehouse/pkg/logger"
)

// AttemptLedger is the slice of the attempt repository the gateway needs.
type AttemptLedger interface {
	Record(ctx context.Context, attempt *models.LoginAttempt) (string, error)
	AttachToken(ctx context.Context, attemptID, token string, expiresAt *time.Time) error
}

// CredentialVerifier verifies and consumes site credentials.
type CredentialVerifier interface {
	Verify(ctx context.Context, resourceCode, secret string) (*models.Credential, string, error)
	Consume(ctx context.Context, credentialID, attemptID, deviceAddress string) error
}

// AdminVerifier verifies the admin credential.
type AdminVerifier interface {
	Verify(ctx context.Context, origin, password string) (string, error)
}

// LockoutChecker decides whether an (origin, resource) pair may attempt.
type LockoutChecker interface {
	Check(ctx context.Context, origin, resourceCode string) (LockoutDecision, error)
}

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	IssueAdminToken(attemptID string) (string, time.Time, error)
	IssueSiteToken(attemptID, credentialID, resourceCode string, expiresAt time.Time) (string, time.Time, error)
}

// LocationResolver resolves an origin address to a display location.
type LocationResolver interface {
	Lookup(ctx context.Context, address string) string
}

// AccessRequest is one login attempt as seen by the gateway. When the origin
// address could not be resolved from the connection, OriginUnresolved is set
// and OriginAddress is empty.
type AccessRequest struct {
	ResourceCode     string
	Secret           string
	OriginAddress    string
	OriginUnresolved bool
	UserAgent        string
}

// AuthOutcome is the result of an authentication flow. It is a closed set:
// AuthSuccess, AuthDenied or AuthFailed, nothing else.
type AuthOutcome interface {
	authOutcome()
}

// AuthSuccess carries the issued token and its cookie binding.
type AuthSuccess struct {
	Token      string
	CookieName string
	ExpiresAt  time.Time
}

// AuthDenied means the lockout policy refused the attempt before any
// credential was examined. Denied attempts are not recorded in the ledger.
type AuthDenied struct {
	Message     string
	LockedUntil *time.Time
}

// AuthFailed means the attempt ran and did not authenticate. The reason is
// recorded in the ledger; the message is safe to show the user.
type AuthFailed struct {
	Reason  string
	Message string
}

func (AuthSuccess) authOutcome() {}
func (AuthDenied) authOutcome()  {}
func (AuthFailed) authOutcome()  {}

const internalErrorMessage = "Something went wrong. Please try again."

// AccessGateway runs the full login flow: lockout check, credential
// verification, ledger write, token issuance and credential consumption.
type AccessGateway struct {
	attempts    AttemptLedger
	credentials CredentialVerifier
	admin       AdminVerifier
	lockout     LockoutChecker
	tokens      TokenIssuer
	geo         LocationResolver
	timing      *auth.TimingDelay
	audit       *logger.AuditLogger
	logger      *slog.Logger
	now         func() time.Time
}

// NewAccessGateway creates a new AccessGateway
func NewAccessGateway(
	attempts AttemptLedger,
	credentials CredentialVerifier,
	admin AdminVerifier,
	lockout LockoutChecker,
	tokens TokenIssuer,
	geo LocationResolver,
	timing *auth.TimingDelay,
	audit *logger.AuditLogger,
	log *slog.Logger,
) *AccessGateway {
	return &AccessGateway{
		attempts:    attempts,
		credentials: credentials,
		admin:       admin,
		lockout:     lockout,
		tokens:      tokens,
		geo:         geo,
		timing:      timing,
		audit:       audit,
		logger:      log,
		now:         time.Now,
	}
}

// Authenticate runs one login attempt end to end. Every path that examines a
// credential records exactly one ledger row; a lockout denial records none.
// Failure paths are padded to a uniform duration before returning.
func (g *AccessGateway) Authenticate(ctx context.Context, req AccessRequest) AuthOutcome {
	start := g.now()

	if req.OriginUnresolved {
		g.recordFailure(ctx, req, models.ReasonAddressResolutionFailed)
		return g.failed(start, req, models.ReasonAddressResolutionFailed, internalErrorMessage)
	}

	decision, err := g.lockout.Check(ctx, req.OriginAddress, req.ResourceCode)
	if err != nil {
		// Fail closed, but still write the ledger row: a failed count query
		// does not mean the insert will fail too.
		g.logger.Error("lockout check failed", slog.Any("error", err))
		g.recordFailure(ctx, req, models.ReasonInternalError)
		return g.failed(start, req, models.ReasonInternalError, internalErrorMessage)
	}
	if !decision.Allowed {
		g.timing.WaitFrom(start, false)
		return AuthDenied{
			Message:     FormatDecision(decision, g.now()),
			LockedUntil: decision.LockedUntil,
		}
	}

	var cred *models.Credential
	var reason string
	if req.ResourceCode == models.ResourceAdmin {
		reason, err = g.admin.Verify(ctx, req.OriginAddress, req.Secret)
	} else {
		cred, reason, err = g.credentials.Verify(ctx, req.ResourceCode, req.Secret)
	}
	if err != nil {
		g.logger.Error("credential verification failed", slog.Any("error", err))
		g.recordFailure(ctx, req, models.ReasonInternalError)
		return g.failed(start, req, models.ReasonInternalError, internalErrorMessage)
	}

	if reason != "" {
		if _, recordErr := g.record(ctx, req, false, &reason); recordErr != nil {
			g.logger.Error("failed to record attempt", slog.Any("error", recordErr))
		}
		return g.failed(start, req, reason, g.failureMessage(ctx, req))
	}

	attemptID, err := g.record(ctx, req, true, nil)
	if err != nil {
		g.logger.Error("failed to record attempt", slog.Any("error", err))
		return g.failed(start, req, models.ReasonInternalError, internalErrorMessage)
	}

	if cred != nil {
		if err := g.credentials.Consume(ctx, cred.ID, attemptID, req.OriginAddress); err != nil {
			g.logger.Error("failed to consume credential",
				slog.String("credential_id", cred.ID), slog.Any("error", err))
			return g.failed(start, req, models.ReasonInternalError, internalErrorMessage)
		}
	}

	var token string
	var expiresAt time.Time
	if req.ResourceCode == models.ResourceAdmin {
		token, expiresAt, err = g.tokens.IssueAdminToken(attemptID)
	} else {
		token, expiresAt, err = g.tokens.IssueSiteToken(attemptID, cred.ID, req.ResourceCode, cred.ExpiresAt)
	}
	if err != nil {
		g.logger.Error("failed to issue token", slog.Any("error", err))
		return g.failed(start, req, models.ReasonInternalError, internalErrorMessage)
	}

	if err := g.attempts.AttachToken(ctx, attemptID, token, &expiresAt); err != nil {
		g.logger.Error("failed to attach token to attempt",
			slog.String("attempt_id", attemptID), slog.Any("error", err))
	}

	g.audit.LogAccessAttempt(logger.AuditEvent{
		EventType:     "login",
		ResourceCode:  req.ResourceCode,
		OriginAddress: req.OriginAddress,
		UserAgent:     req.UserAgent,
		Success:       true,
	})

	return AuthSuccess{
		Token:      token,
		CookieName: auth.AccessCookieName(req.ResourceCode),
		ExpiresAt:  expiresAt,
	}
}

// record writes one ledger row for this request and returns its id.
func (g *AccessGateway) record(ctx context.Context, req AccessRequest, succeeded bool, reason *string) (string, error) {
	attempt := &models.LoginAttempt{
		OriginAddress:    req.OriginAddress,
		UserAgent:        req.UserAgent,
		ResourceCode:     req.ResourceCode,
		Succeeded:        succeeded,
		IsAdministrator:  req.ResourceCode == models.ResourceAdmin,
		FailureReason:    reason,
		ResolvedLocation: g.geo.Lookup(ctx, req.OriginAddress),
	}
	return g.attempts.Record(ctx, attempt)
}

// recordFailure is a best-effort ledger write for paths that are already
// failing; a second error here is logged, not surfaced.
func (g *AccessGateway) recordFailure(ctx context.Context, req AccessRequest, reason string) {
	if _, err := g.record(ctx, req, false, &reason); err != nil {
		g.logger.Error("failed to record attempt", slog.Any("error", err))
	}
}

// failureMessage re-runs the lockout check so the attempts-remaining count
// reflects the failure just recorded.
func (g *AccessGateway) failureMessage(ctx context.Context, req AccessRequest) string {
	decision, err := g.lockout.Check(ctx, req.OriginAddress, req.ResourceCode)
	if err != nil {
		return "Incorrect password."
	}
	return FormatDecision(decision, g.now())
}

func (g *AccessGateway) failed(start time.Time, req AccessRequest, reason, message string) AuthOutcome {
	g.audit.LogAccessAttempt(logger.AuditEvent{
		EventType:     "login",
		ResourceCode:  req.ResourceCode,
		OriginAddress: req.OriginAddress,
		UserAgent:     req.UserAgent,
		Success:       false,
		FailureReason: reason,
	})

	g.timing.WaitFrom(start, false)
	return AuthFailed{Reason: reason, Message: message}
}
