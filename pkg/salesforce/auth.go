package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// CommandRunner executes an external command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands through os/exec with colors disabled, the way the
// sf CLI expects to be scripted.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return out, fmt.Errorf("%s failed: %w: %s", name, err, string(exitErr.Stderr))
		}
		return out, fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}

// getSession retrieves a valid session, using cache if available.
// A static token from the environment always wins; otherwise the sf CLI
// is asked for the org's stored token and, if that token no longer works,
// a web login is started.
func (s *Salesforce) getSession(ctx context.Context) (*Session, error) {
	s.tokenCache.mu.RLock()
	if s.tokenCache.session != nil {
		session := s.tokenCache.session
		s.tokenCache.mu.RUnlock()
		s.logger.Debug("Using cached Salesforce session")
		return session, nil
	}
	s.tokenCache.mu.RUnlock()

	var (
		session *Session
		err     error
	)
	if s.config.HasStaticToken() {
		session = &Session{AccessToken: s.config.AccessToken, InstanceURL: s.config.InstanceURL}
	} else {
		session, err = s.Authenticate(ctx)
		if err != nil {
			s.logger.Error("Failed to authenticate", zap.Error(err))
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	s.tokenCache.mu.Lock()
	s.tokenCache.session = session
	s.tokenCache.mu.Unlock()

	return session, nil
}

// invalidateSession drops the cached session so the next call
// re-authenticates.
func (s *Salesforce) invalidateSession() {
	s.tokenCache.mu.Lock()
	s.tokenCache.session = nil
	s.tokenCache.mu.Unlock()
}

// Authenticate returns a session from the sf CLI, logging in through the
// browser only when no valid stored token exists.
func (s *Salesforce) Authenticate(ctx context.Context) (*Session, error) {
	session, err := s.displayOrg(ctx)
	if err == nil {
		if s.validateSession(ctx, session) {
			s.logger.Info("Using existing valid token", zap.String("instance_url", session.InstanceURL))
			return session, nil
		}
		s.logger.Warn("Existing token is invalid, re-authenticating", zap.String("org_alias", s.config.OrgAlias))
	} else {
		s.logger.Info("No existing token found, authenticating", zap.String("org_alias", s.config.OrgAlias), zap.Error(err))
	}

	if err := s.login(ctx); err != nil {
		return nil, err
	}

	session, err = s.displayOrg(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve token after authentication: %w", err)
	}

	s.logger.Info("Successfully authenticated", zap.String("instance_url", session.InstanceURL))
	return session, nil
}

func (s *Salesforce) displayOrg(ctx context.Context) (*Session, error) {
	out, err := s.run(ctx, "sf", "org", "display", "--json", "-o", s.config.OrgAlias)
	if err != nil {
		return nil, err
	}

	var resp orgDisplayResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse sf org display output: %w", err)
	}
	if resp.Result.AccessToken == "" || resp.Result.InstanceURL == "" {
		return nil, fmt.Errorf("sf org display returned no token for alias %q", s.config.OrgAlias)
	}

	return &Session{AccessToken: resp.Result.AccessToken, InstanceURL: resp.Result.InstanceURL}, nil
}

func (s *Salesforce) login(ctx context.Context) error {
	s.logger.Info("Opening browser for Salesforce login", zap.String("login_url", s.config.LoginURL))
	out, err := s.run(ctx, "sf", "org", "login", "web", "-r", s.config.LoginURL, "-d", "-a", s.config.OrgAlias)
	if err != nil {
		s.logger.Error("Login failed", zap.Error(err))
		return fmt.Errorf("authentication failed: %w", err)
	}
	s.logger.Debug("Login output", zap.ByteString("output", out))
	return nil
}

// validateSession checks the token with a trivial query.
func (s *Salesforce) validateSession(ctx context.Context, session *Session) bool {
	_, err := s.queryWithSession(ctx, session, "SELECT Id FROM User LIMIT 1")
	if err != nil {
		s.logger.Debug("Session validation failed", zap.Error(err))
		return false
	}
	return true
}
