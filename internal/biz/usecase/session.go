package usecase

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/flared/icq-bridge/internal/biz/domain"
	"github.com/flared/icq-bridge/internal/biz/repo"
	"github.com/flared/icq-bridge/internal/host"
)

// SessionState is the registration/session state of an account
type SessionState int32

const (
	StateUnregistered SessionState = iota
	StateRegistering
	StateRegistered
	StateSessionActive
)

func (s SessionState) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistering:
		return "registering"
	case StateRegistered:
		return "registered"
	case StateSessionActive:
		return "session_active"
	}
	return "unknown"
}

// SessionUsecase turns registration credentials into an active session
type SessionUsecase struct {
	icqRepo repo.ICQRepo
	phone   string
	prompt  host.InputRequest
	slot    *domain.SessionSlot
	logger  *slog.Logger

	state       atomic.Int32
	newDeviceID func() string
}

// NewSessionUsecase creates a new session usecase.
// prompt holds the texts of the verification code request.
func NewSessionUsecase(
	icqRepo repo.ICQRepo,
	phone string,
	prompt host.InputRequest,
	slot *domain.SessionSlot,
	logger *slog.Logger,
) *SessionUsecase {
	if prompt.Who == "" {
		prompt.Who = phone
	}
	return &SessionUsecase{
		icqRepo:     icqRepo,
		phone:       phone,
		prompt:      prompt,
		slot:        slot,
		logger:      logger,
		newDeviceID: NewDeviceID,
	}
}

// NewDeviceID derives a device id from a random seed.
// It is not stable across runs.
func NewDeviceID() string {
	seed := binary.BigEndian.AppendUint64(nil, rand.Uint64())
	return uuid.NewSHA1(uuid.NameSpaceOID, seed).String()
}

// State returns the current state
func (uc *SessionUsecase) State() SessionState {
	return SessionState(uc.state.Load())
}

func (uc *SessionUsecase) setState(s SessionState) {
	old := SessionState(uc.state.Swap(int32(s)))
	if old != s {
		uc.logger.Debug("session state", "from", old, "to", s)
	}
}

// Login registers the account if needed, then starts a session and installs it in the slot.
// Any failure is terminal for this attempt and reported to the connection.
func (uc *SessionUsecase) Login(ctx context.Context, account host.Account, conn host.Connection) (*domain.Session, error) {
	creds, ok, err := account.LoadCredentials(ctx)
	if err != nil {
		return nil, uc.fail(ctx, conn, "Failed to read settings", err)
	}

	if !ok {
		creds, err = uc.register(ctx, account)
		if err != nil {
			uc.setState(StateUnregistered)
			return nil, uc.fail(ctx, conn, "Failed to register account", err)
		}
	}
	uc.setState(StateRegistered)

	if err := conn.SetState(ctx, host.StateConnecting); err != nil {
		uc.logger.Warn("failed to set connection state", "error", err)
	}

	session, err := uc.icqRepo.StartSession(ctx, creds, uc.newDeviceID())
	if err != nil {
		return nil, uc.fail(ctx, conn, "Failed to start session", err)
	}

	uc.slot.Install(*session)
	uc.setState(StateSessionActive)
	uc.logger.Info("session started", "aim_id", session.AimID)

	if err := conn.SetState(ctx, host.StateConnected); err != nil {
		uc.logger.Warn("failed to set connection state", "error", err)
	}
	return session, nil
}

// register runs the SMS verification and persists the credentials
func (uc *SessionUsecase) register(ctx context.Context, account host.Account) (domain.Credentials, error) {
	uc.setState(StateRegistering)

	transID, err := uc.icqRepo.SendCode(ctx, uc.phone)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("send code: %w", err)
	}

	code, ok, err := account.RequestInput(ctx, uc.prompt)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("read code: %w", err)
	}
	if !ok || code == "" {
		return domain.Credentials{}, domain.ErrMissingInput
	}

	creds, err := uc.icqRepo.LoginWithPhone(ctx, uc.phone, transID, code)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("login with phone: %w", err)
	}

	if err := account.PersistCredentials(ctx, creds); err != nil {
		return domain.Credentials{}, fmt.Errorf("write settings: %w", err)
	}
	return creds, nil
}

func (uc *SessionUsecase) fail(ctx context.Context, conn host.Connection, message string, cause error) error {
	uc.logger.Error(message, "error", cause)
	if err := conn.ReportAuthFailure(ctx, message); err != nil {
		uc.logger.Warn("failed to report auth failure", "error", err)
	}
	return fmt.Errorf("%s: %w: %w", message, domain.ErrAuthentication, cause)
}

// Logout closes the session slot; the poller exits at its next iteration
func (uc *SessionUsecase) Logout() {
	uc.slot.Close()
	if uc.State() == StateSessionActive {
		uc.setState(StateRegistered)
	}
}
