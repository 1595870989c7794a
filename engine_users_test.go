package goIAM

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrEthical07/goIAM/mail"
	"github.com/MrEthical07/goIAM/params"
	"github.com/MrEthical07/goIAM/password"
	"github.com/MrEthical07/goIAM/store"
)

func TestCreateUserGeneratesPasswordAndSendsWelcome(t *testing.T) {
	env := newTestEngine(t)
	ctx := WithActor(context.Background(), "admin@example.com")

	res, err := env.engine.CreateUser(ctx, CreateUserInput{
		Email: " Bob@Example.com ",
		Roles: []string{"Admin"},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if res.User.Email != "bob@example.com" || res.User.Name != "bob" {
		t.Fatalf("unexpected user %+v", res.User)
	}
	if res.User.Provider != store.ProviderLocal || !res.User.Active || !res.User.MustChangePassword {
		t.Fatalf("unexpected defaults %+v", res.User)
	}
	if res.User.PasswordHash != "" {
		t.Fatalf("result must not carry the hash")
	}
	if !password.Valid(res.TempPassword, password.DefaultPolicy()) {
		t.Fatalf("generated password %q fails the policy", res.TempPassword)
	}
	if !res.EmailSent || res.EmailError != "" || env.mailer.count() != 1 {
		t.Fatalf("expected welcome email, got sent=%v err=%q count=%d", res.EmailSent, res.EmailError, env.mailer.count())
	}

	// The temporary password works but forces a change.
	_, err = env.engine.Login(context.Background(), "bob@example.com", res.TempPassword)
	var cr *ChangeRequiredError
	if !errors.As(err, &cr) {
		t.Fatalf("expected change-required, got %v", err)
	}
}

func TestCreateUserRespectsStoredPolicy(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	if _, err := env.engine.PutParameter(ctx, params.KeyPasswordMinLength, ParameterInput{Value: "20"}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	res, err := env.engine.CreateUser(ctx, CreateUserInput{Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(res.TempPassword) < 20 {
		t.Fatalf("expected a 20+ char password, got %d", len(res.TempPassword))
	}

	_, err = env.engine.CreateUser(ctx, CreateUserInput{Email: "carol@example.com", Password: testPassword})
	if !errors.Is(err, ErrPolicyViolation) {
		t.Fatalf("expected ErrPolicyViolation for a 19-char password, got %v", err)
	}
}

func TestCreateUserWelcomeFailureKeepsAccount(t *testing.T) {
	env := newTestEngine(t)
	env.mailer.fail(errors.New("smtp down"))

	res, err := env.engine.CreateUser(context.Background(), CreateUserInput{Email: "bob@example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if res.EmailSent || !strings.Contains(res.EmailError, "smtp down") {
		t.Fatalf("expected reported email failure, got %+v", res)
	}
	if res.TempPassword != testPassword {
		t.Fatalf("expected the supplied password echoed back")
	}
	env.user(t, "bob@example.com")
}

func TestCreateUserWithoutEmailFlag(t *testing.T) {
	env := newTestEngine(t)
	no := false
	res, err := env.engine.CreateUser(context.Background(), CreateUserInput{Email: "bob@example.com", SendEmail: &no})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if res.EmailSent || env.mailer.count() != 0 {
		t.Fatalf("expected no email")
	}
}

func TestCreateUserValidation(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	if _, err := env.engine.CreateUser(ctx, CreateUserInput{Email: "not-an-email"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := env.engine.CreateUser(ctx, CreateUserInput{Email: "bob@example.com"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := env.engine.CreateUser(ctx, CreateUserInput{Email: "BOB@example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}
}

func TestUpdateUserAndActivation(t *testing.T) {
	env := newTestEngine(t)
	env.addUser(t, "alice@example.com", testPassword)
	ctx := context.Background()
	id := "u-alice@example.com"

	name := "Alice Liddell"
	roles := []string{"Auditor", "auditor"}
	u, err := env.engine.UpdateUser(ctx, id, UserPatch{Name: &name, Roles: &roles})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if u.Name != name || len(u.Roles) != 1 || u.Roles[0] != "auditor" {
		t.Fatalf("unexpected patched user %+v", u)
	}

	if _, err := env.engine.UpdateUser(ctx, id, UserPatch{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty patch, got %v", err)
	}
	empty := " "
	if _, err := env.engine.UpdateUser(ctx, id, UserPatch{Name: &empty}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank name, got %v", err)
	}
	if _, err := env.engine.UpdateUser(ctx, "missing", UserPatch{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := env.engine.SetUserActive(ctx, id, false); err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	if _, err := env.engine.Login(ctx, "alice@example.com", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("disabled account must not log in, got %v", err)
	}
	if _, err := env.engine.SetUserActive(ctx, id, true); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	if _, err := env.engine.Login(ctx, "alice@example.com", testPassword); err != nil {
		t.Fatalf("re-enabled account must log in, got %v", err)
	}
}

func TestSetUserPassword(t *testing.T) {
	env := newTestEngine(t)
	env.addUser(t, "alice@example.com", testPassword)
	ctx := context.Background()
	id := "u-alice@example.com"

	pw, err := env.engine.SetUserPassword(ctx, id, "")
	if err != nil {
		t.Fatalf("set password failed: %v", err)
	}
	if pw == "" || !password.Valid(pw, password.DefaultPolicy()) {
		t.Fatalf("expected generated password, got %q", pw)
	}
	if !env.user(t, "alice@example.com").MustChangePassword {
		t.Fatalf("admin reset must force a change")
	}
	_, err = env.engine.Login(ctx, "alice@example.com", pw)
	var cr *ChangeRequiredError
	if !errors.As(err, &cr) {
		t.Fatalf("expected change-required, got %v", err)
	}

	if _, err := env.engine.SetUserPassword(ctx, id, "weak"); !errors.Is(err, ErrPolicyViolation) {
		t.Fatalf("expected ErrPolicyViolation, got %v", err)
	}
	if _, err := env.engine.SetUserPassword(ctx, "missing", newTestPassword); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListGetDeleteUsers(t *testing.T) {
	env := newTestEngine(t)
	env.addUser(t, "alice@example.com", testPassword)
	env.addUser(t, "bob@example.com", testPassword)
	env.addUser(t, "carol@other.org", testPassword)
	ctx := context.Background()

	users, total, err := env.engine.ListUsers(ctx, "EXAMPLE", 10, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(users) != 2 {
		t.Fatalf("expected 2 matches, got %d/%d", len(users), total)
	}
	for _, u := range users {
		if u.PasswordHash != "" {
			t.Fatalf("list must return public views")
		}
	}

	page, total, err := env.engine.ListUsers(ctx, "", 1, 1)
	if err != nil || total != 3 || len(page) != 1 {
		t.Fatalf("expected page of 1 out of 3, got %d/%d (%v)", len(page), total, err)
	}

	u, err := env.engine.GetUser(ctx, "u-bob@example.com")
	if err != nil || u.Email != "bob@example.com" {
		t.Fatalf("get failed: %+v (%v)", u, err)
	}
	if err := env.engine.DeleteUser(ctx, "u-bob@example.com"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := env.engine.GetUser(ctx, "u-bob@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := env.engine.DeleteUser(ctx, "u-bob@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestProductionModeSurfacesMissingMailer(t *testing.T) {
	dev, err := New().
		WithConfig(testEngineConfig()).
		WithStore(newMemStore()).
		WithMailer(mail.LogMailer{}).
		Build()
	if err != nil {
		t.Fatalf("log-only mailer must be accepted outside production: %v", err)
	}
	dev.Close()

	cfg := testEngineConfig()
	cfg.Access.ProductionMode = true
	if _, err := New().WithConfig(cfg).WithStore(newMemStore()).WithMailer(mail.LogMailer{}).Build(); err == nil {
		t.Fatalf("expected a log-only mailer to be rejected in production")
	}

	engine, err := New().WithConfig(cfg).WithStore(newMemStore()).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(engine.Close)
	ctx := context.Background()

	res, err := engine.CreateUser(ctx, CreateUserInput{Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if res.EmailSent || res.EmailError == "" {
		t.Fatalf("expected the missing mailer to surface, got sent=%v error=%q", res.EmailSent, res.EmailError)
	}
	if _, err := engine.RequestPasswordCode(ctx, "ana@example.com"); !errors.Is(err, ErrDeliveryFailure) {
		t.Fatalf("expected ErrDeliveryFailure, got %v", err)
	}
}
