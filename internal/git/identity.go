package git

import (
	"context"
	"fmt"
)

// IdentitySession scopes the repository-local git identity to one tool run.
// Close restores whatever user.name/user.email were configured before, so
// the identity never leaks out as ambient state.
type IdentitySession struct {
	run *Runner

	prevName  string
	prevEmail string
	hadName   bool
	hadEmail  bool
}

// ConfigureIdentity sets the repository-local commit identity and returns a
// session whose Close undoes the change.
func ConfigureIdentity(ctx context.Context, run *Runner, name, email string) (*IdentitySession, error) {
	s := &IdentitySession{run: run}
	s.prevName, s.hadName = s.current(ctx, "user.name")
	s.prevEmail, s.hadEmail = s.current(ctx, "user.email")

	if _, err := run.Run(ctx, "config", "user.name", name); err != nil {
		return nil, fmt.Errorf("failed to set user.name: %w", err)
	}
	if _, err := run.Run(ctx, "config", "user.email", email); err != nil {
		return nil, fmt.Errorf("failed to set user.email: %w", err)
	}
	return s, nil
}

// Close restores the previous identity configuration.
func (s *IdentitySession) Close(ctx context.Context) error {
	if err := s.restore(ctx, "user.name", s.prevName, s.hadName); err != nil {
		return err
	}
	return s.restore(ctx, "user.email", s.prevEmail, s.hadEmail)
}

func (s *IdentitySession) current(ctx context.Context, key string) (string, bool) {
	out, err := s.run.Run(ctx, "config", "--get", key)
	if err != nil {
		// Exit code 1 means the key is not set.
		return "", false
	}
	v := out.Stdout
	if n := len(v); n > 0 && v[n-1] == '\n' {
		v = v[:n-1]
	}
	return v, true
}

func (s *IdentitySession) restore(ctx context.Context, key, value string, had bool) error {
	if had {
		_, err := s.run.Run(ctx, "config", key, value)
		return err
	}
	_, err := s.run.Run(ctx, "config", "--unset", key)
	if err != nil && ExitCode(err) == 5 {
		// Exit 5: nothing to unset, the key was never written.
		return nil
	}
	return err
}
